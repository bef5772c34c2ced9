// Package risk derives withdrawal, fraud and activity risk signals from a user's ledger.
package risk

import (
	"context"
	"math"
	"sort"
	"time"

	"github.com/mcs-service/mcs_service/internal/domain/entities"
	apperrors "github.com/mcs-service/mcs_service/pkg/errors"
	"github.com/mcs-service/mcs_service/pkg/events"
	"github.com/mcs-service/mcs_service/pkg/logger"
	"github.com/mcs-service/mcs_service/pkg/tracing"
	"go.opentelemetry.io/otel/attribute"
)

const day = 24 * time.Hour

// Risk levels
const (
	LevelHigh    = "high"
	LevelMedium  = "medium"
	LevelLow     = "low"
	LevelMinimal = "minimal"
)

// Analyzer computes risk profiles
type Analyzer struct {
	publisher     events.Publisher
	logger        *logger.Logger
	now           func() time.Time
	location      *time.Location
	locations     LocationChecker
	devices       DeviceChecker
	walletChanges WalletChangeChecker
	detectors     map[string]AnomalyDetector
}

// Option configures an Analyzer
type Option func(*Analyzer)

// WithClock overrides the time source
func WithClock(now func() time.Time) Option {
	return func(a *Analyzer) { a.now = now }
}

// WithLocation sets the business time zone used for hour-of-day and calendar checks.
// The default is UTC.
func WithLocation(loc *time.Location) Option {
	return func(a *Analyzer) {
		if loc != nil {
			a.location = loc
		}
	}
}

// WithLocationChecker plugs in a location consistency check
func WithLocationChecker(c LocationChecker) Option {
	return func(a *Analyzer) { a.locations = c }
}

// WithDeviceChecker plugs in a device consistency check
func WithDeviceChecker(c DeviceChecker) Option {
	return func(a *Analyzer) { a.devices = c }
}

// WithWalletChangeChecker plugs in wallet rotation tracking
func WithWalletChangeChecker(c WalletChangeChecker) Option {
	return func(a *Analyzer) { a.walletChanges = c }
}

// WithAnomalyDetector replaces the detector for one of the named anomaly slots
func WithAnomalyDetector(name string, d AnomalyDetector) Option {
	return func(a *Analyzer) { a.detectors[name] = d }
}

// NewAnalyzer creates a risk analyzer with consistent-by-default checkers
func NewAnalyzer(publisher events.Publisher, log *logger.Logger, opts ...Option) *Analyzer {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	if log == nil {
		log = logger.NewNop()
	}
	a := &Analyzer{
		publisher:     publisher,
		logger:        log,
		now:           time.Now,
		location:      time.UTC,
		locations:     consistentChecker{},
		devices:       consistentChecker{},
		walletChanges: stableWallets{},
		detectors:     defaultDetectors(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// PerformRiskAnalysis derives the risk profile. The profile may be nil.
func (a *Analyzer) PerformRiskAnalysis(ctx context.Context, userID string, txs []entities.TransactionRecord, p *entities.Portfolio, profile *entities.UserProfile) (*entities.RiskProfile, error) {
	ctx, span := tracing.StartSpan(ctx, "risk.analyze",
		attribute.String("user_id", userID),
		attribute.Int("transactions", len(txs)))
	var err error
	defer func() { tracing.End(span, err) }()

	for _, tx := range txs {
		if verr := tx.Validate(); verr != nil {
			err = apperrors.AnalysisFailed(apperrors.StageRisk, userID, verr)
			return nil, err
		}
	}

	now := a.now()
	ledger := sortedDesc(txs)

	r := &entities.RiskProfile{
		UserID:              userID,
		Timestamp:           now,
		WithdrawalPatterns:  analyzeWithdrawals(ledger),
		FraudIndicators:     a.detectFraud(ctx, ledger, profile),
		WalletUsage:         a.analyzeWallets(ctx, userID, p),
		ActivityLevel:       analyzeActivity(ledger, now),
		UnusualTransactions: detectUnusual(ledger, a.location),
		GeographicRisk:      a.analyzeGeography(ctx, profile),
		Velocity:            analyzeVelocity(ledger, a.location),
		BehavioralAnomalies: a.detectAnomalies(ctx, ledger, p),
	}
	r.OverallRiskScore = OverallRiskScore(r)
	r.RiskLevel = Level(r.OverallRiskScore)
	r.RiskFactors = Factors(r)

	a.logger.CtxDebug(ctx, "Risk analyzed",
		"user_id", userID,
		"overall_risk_score", r.OverallRiskScore,
		"risk_level", r.RiskLevel)

	a.publisher.Publish(ctx, events.TopicRiskCompleted, userID, r)
	return r, nil
}

// OverallRiskScore weighs the component scores into [0,100]
func OverallRiskScore(r *entities.RiskProfile) float64 {
	score := float64(r.WithdrawalPatterns.RiskScore)*0.30 +
		float64(r.FraudIndicators.Score)*0.40 +
		float64(r.WalletUsage.RiskScore)*0.15 +
		float64(r.ActivityLevel.RiskScore)*0.10 +
		float64(r.UnusualTransactions.RiskScore)*0.05 +
		float64(r.GeographicRisk.Score) +
		float64(r.Velocity.RiskScore) +
		float64(r.BehavioralAnomalies.RiskScore)
	return math.Max(0, math.Min(100, score))
}

// Level bands the overall risk score
func Level(score float64) string {
	switch {
	case score >= 70:
		return LevelHigh
	case score >= 40:
		return LevelMedium
	case score >= 20:
		return LevelLow
	default:
		return LevelMinimal
	}
}

// Factors lists the human-readable drivers of the risk profile
func Factors(r *entities.RiskProfile) []string {
	factors := []string{}
	if r.WithdrawalPatterns.RiskScore > 20 {
		factors = append(factors, "High withdrawal risk")
	}
	if r.FraudIndicators.Score > 30 {
		factors = append(factors, "Fraud indicators detected")
	}
	if r.ActivityLevel.DaysSinceLastActivity > 90 {
		factors = append(factors, "Inactive account")
	}
	if r.UnusualTransactions.Count > 5 {
		factors = append(factors, "Unusual transaction patterns")
	}
	if r.GeographicRisk.Score > 10 {
		factors = append(factors, "Geographical risk factors")
	}
	return factors
}

func sortedDesc(txs []entities.TransactionRecord) []entities.TransactionRecord {
	out := make([]entities.TransactionRecord, len(txs))
	copy(out, txs)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.After(out[j].Timestamp)
	})
	return out
}

func amounts(txs []entities.TransactionRecord) []float64 {
	out := make([]float64, len(txs))
	for i, tx := range txs {
		out[i] = tx.AmountFloat()
	}
	return out
}

func days(d time.Duration) float64 {
	return d.Hours() / 24
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
