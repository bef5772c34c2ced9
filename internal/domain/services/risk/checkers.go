package risk

import (
	"context"

	"github.com/mcs-service/mcs_service/internal/domain/entities"
)

// CheckResult is the outcome of a pluggable consistency check
type CheckResult struct {
	Consistent bool
	Score      int
	Indicators []string
}

// LocationChecker compares activity against the locations a user is known to use
type LocationChecker interface {
	CheckTransactions(ctx context.Context, txs []entities.TransactionRecord, locations []string) CheckResult
	CheckProfile(ctx context.Context, profile *entities.UserProfile) CheckResult
}

// DeviceChecker inspects device or network fingerprints attached to transactions
type DeviceChecker interface {
	CheckDevices(ctx context.Context, txs []entities.TransactionRecord) CheckResult
}

// WalletChangeChecker reports whether a user rotates wallets unusually often
type WalletChangeChecker interface {
	FrequentChanges(ctx context.Context, userID string, wallets entities.AddressSet) bool
}

// AnomalyDetector is one behavioral anomaly heuristic
type AnomalyDetector interface {
	Detect(ctx context.Context, txs []entities.TransactionRecord, p *entities.Portfolio) entities.AnomalyFinding
}

// AnomalyDetectorFunc adapts a function to AnomalyDetector
type AnomalyDetectorFunc func(ctx context.Context, txs []entities.TransactionRecord, p *entities.Portfolio) entities.AnomalyFinding

// Detect calls f
func (f AnomalyDetectorFunc) Detect(ctx context.Context, txs []entities.TransactionRecord, p *entities.Portfolio) entities.AnomalyFinding {
	return f(ctx, txs, p)
}

type consistentChecker struct{}

func (consistentChecker) CheckTransactions(context.Context, []entities.TransactionRecord, []string) CheckResult {
	return CheckResult{Consistent: true}
}

func (consistentChecker) CheckProfile(context.Context, *entities.UserProfile) CheckResult {
	return CheckResult{Consistent: true}
}

func (consistentChecker) CheckDevices(context.Context, []entities.TransactionRecord) CheckResult {
	return CheckResult{Consistent: true}
}

type stableWallets struct{}

func (stableWallets) FrequentChanges(context.Context, string, entities.AddressSet) bool { return false }

func noAnomaly(description string) AnomalyDetector {
	return AnomalyDetectorFunc(func(context.Context, []entities.TransactionRecord, *entities.Portfolio) entities.AnomalyFinding {
		return entities.AnomalyFinding{Description: description}
	})
}

// Anomaly detector slots and their severity weights
const (
	DetectorInvestmentPattern = "investment-pattern-change"
	DetectorPortfolioChange   = "sudden-portfolio-change"
	DetectorTradingBehavior   = "trading-behavior-change"
)

type detectorSlot struct {
	name      string
	detailKey string
	weight    int
}

var detectorSlots = []detectorSlot{
	{name: DetectorInvestmentPattern, detailKey: "pattern_change", weight: 5},
	{name: DetectorPortfolioChange, detailKey: "portfolio_change", weight: 10},
	{name: DetectorTradingBehavior, detailKey: "trading_change", weight: 8},
}

func defaultDetectors() map[string]AnomalyDetector {
	return map[string]AnomalyDetector{
		DetectorInvestmentPattern: noAnomaly("no significant pattern change"),
		DetectorPortfolioChange:   noAnomaly("portfolio changes within normal range"),
		DetectorTradingBehavior:   noAnomaly("trading behavior consistent"),
	}
}
