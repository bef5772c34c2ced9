// Package behavior derives investment-discipline signals from a user's ledger.
package behavior

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

// Analyzer computes behavior profiles
type Analyzer struct {
	publisher events.Publisher
	logger    *logger.Logger
	now       func() time.Time
}

// Option configures an Analyzer
type Option func(*Analyzer)

// WithClock overrides the time source used for "days since" calculations
func WithClock(now func() time.Time) Option {
	return func(a *Analyzer) { a.now = now }
}

// NewAnalyzer creates a behavior analyzer
func NewAnalyzer(publisher events.Publisher, log *logger.Logger, opts ...Option) *Analyzer {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	if log == nil {
		log = logger.NewNop()
	}
	a := &Analyzer{publisher: publisher, logger: log, now: time.Now}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// AnalyzeBehavior derives the behavior profile from the ledger.
// It fails only when a transaction record is malformed.
func (a *Analyzer) AnalyzeBehavior(ctx context.Context, userID string, txs []entities.TransactionRecord, _ *entities.Portfolio) (*entities.BehaviorProfile, error) {
	_, span := tracing.StartSpan(ctx, "behavior.analyze",
		attribute.String("user_id", userID),
		attribute.Int("transactions", len(txs)))
	var err error
	defer func() { tracing.End(span, err) }()

	for _, tx := range txs {
		if verr := tx.Validate(); verr != nil {
			err = apperrors.AnalysisFailed(apperrors.StageBehavior, userID, verr)
			return nil, err
		}
	}

	now := a.now()
	ledger := sortedDesc(txs)
	purchases := filter(ledger, func(tx entities.TransactionRecord) bool {
		return tx.Type == entities.TransactionTypePurchase
	})

	profile := &entities.BehaviorProfile{
		UserID:           userID,
		Timestamp:        now,
		TransactionCount: len(ledger),
		SIP:              analyzeSIP(purchases),
		MonthlyStreak:    analyzeMonthlyStreak(purchases, now),
		Volatility:       analyzeWithdrawalVolatility(ledger),
		HoldingDuration:  analyzeHoldingDuration(ledger, now),
		PanicSelling:     analyzePanicSelling(ledger),
		Investment:       analyzeInvestmentPattern(purchases),
		Consistency:      consistencyScore(purchases),
		RiskTolerance:    analyzeRiskTolerance(ledger, purchases),
	}
	profile.OverallScore = OverallScore(profile)

	a.logger.CtxDebug(ctx, "Behavior analyzed",
		"user_id", userID,
		"transactions", len(ledger),
		"overall_score", profile.OverallScore)

	a.publisher.Publish(ctx, events.TopicBehaviorAnalyzed, userID, profile)
	return profile, nil
}

// OverallScore weighs the profile signals into [0,100].
// Volatility and panic terms need ledger evidence and contribute nothing for an empty ledger.
func OverallScore(b *entities.BehaviorProfile) float64 {
	score := 0.0

	if b.SIP.Active {
		score += b.SIP.Consistency * 40
	}
	score += float64(b.MonthlyStreak.CurrentStreak) / 12 * 20
	score += math.Min(15, float64(b.HoldingDuration.AverageDays)/365*15)

	if b.TransactionCount > 0 {
		score += (1 - b.Volatility.Volatility) * 15
		if b.PanicSelling.TotalEvents == 0 {
			score += 10
		} else {
			score += math.Max(0, 10-float64(b.PanicSelling.TotalEvents)*2)
		}
	}

	return math.Max(0, math.Min(100, score))
}

func sortedDesc(txs []entities.TransactionRecord) []entities.TransactionRecord {
	out := make([]entities.TransactionRecord, len(txs))
	copy(out, txs)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.After(out[j].Timestamp)
	})
	return out
}

func filter(txs []entities.TransactionRecord, keep func(entities.TransactionRecord) bool) []entities.TransactionRecord {
	var out []entities.TransactionRecord
	for _, tx := range txs {
		if keep(tx) {
			out = append(out, tx)
		}
	}
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
