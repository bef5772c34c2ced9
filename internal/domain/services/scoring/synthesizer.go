// Package scoring turns a portfolio, behavior profile and risk profile into a credit score.
package scoring

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/mcs-service/mcs_service/internal/domain/entities"
	apperrors "github.com/mcs-service/mcs_service/pkg/errors"
	"github.com/mcs-service/mcs_service/pkg/logger"
	"github.com/mcs-service/mcs_service/pkg/metrics"
	"github.com/mcs-service/mcs_service/pkg/tracing"
	"go.opentelemetry.io/otel/attribute"
)

var (
	errMissingPortfolio = errors.New("portfolio is required")
	errMissingBehavior  = errors.New("behavior profile is required")
	errMissingRisk      = errors.New("risk profile is required")
	errNegativeIncome   = errors.New("income must not be negative")
)

// BatchInput is one item of a batch scoring run
type BatchInput struct {
	UserID    string
	Portfolio *entities.Portfolio
	Behavior  *entities.BehaviorProfile
	Risk      *entities.RiskProfile
}

// Synthesizer combines the analysis stages into a score
type Synthesizer struct {
	logger *logger.Logger
	now    func() time.Time
}

// Option configures a Synthesizer
type Option func(*Synthesizer)

// WithClock overrides the result timestamp source
func WithClock(now func() time.Time) Option {
	return func(s *Synthesizer) { s.now = now }
}

// NewSynthesizer creates a score synthesizer
func NewSynthesizer(log *logger.Logger, opts ...Option) *Synthesizer {
	if log == nil {
		log = logger.NewNop()
	}
	s := &Synthesizer{logger: log, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CalculateScore computes the bounded score, its category, loan terms and reasons
func (s *Synthesizer) CalculateScore(ctx context.Context, p *entities.Portfolio, b *entities.BehaviorProfile, r *entities.RiskProfile) (*entities.ScoreResult, error) {
	userID := ""
	if p != nil {
		userID = p.UserID
	}
	ctx, span := tracing.StartSpan(ctx, "scoring.calculate", attribute.String("user_id", userID))
	var err error
	defer func() { tracing.End(span, err) }()

	if err = validateInputs(p, b, r); err != nil {
		err = apperrors.ScoreCalculationFailed(userID, err)
		return nil, err
	}

	asset := AssetScore(p)
	behavior := BehaviorScore(b)
	risk := RiskScore(r)

	final := int(math.Round(clamp(asset+behavior+risk, entities.MinScore, entities.MaxScore)))
	result := &entities.ScoreResult{
		UserID:   userID,
		Score:    final,
		Category: Category(final),
		Breakdown: entities.ScoreBreakdown{
			AssetScore:    int(math.Round(asset)),
			BehaviorScore: int(math.Round(behavior)),
			RiskScore:     int(math.Round(risk)),
		},
		Recommendation: Recommend(final, p.TotalAssetValue()),
		Reasons:        Reasons(asset, behavior, risk),
		Timestamp:      s.now(),
		ValidityDays:   entities.ScoreValidityDays,
	}

	metrics.RecordScore(result.Category, result.Score)
	s.logger.CtxInfo(ctx, "Credit score calculated",
		"user_id", userID,
		"score", result.Score,
		"category", result.Category,
		"asset_score", result.Breakdown.AssetScore,
		"behavior_score", result.Breakdown.BehaviorScore,
		"risk_score", result.Breakdown.RiskScore)

	return result, nil
}

// BatchCalculateScores scores items in order; one item's failure never aborts the rest
// It works on already analyzed inputs. pipeline.Service.ScoreBatch runs fetch and analysis per user as well.
func (s *Synthesizer) BatchCalculateScores(ctx context.Context, items []BatchInput) []entities.BatchItemResult {
	results := make([]entities.BatchItemResult, 0, len(items))
	for _, item := range items {
		res, err := s.CalculateScore(ctx, item.Portfolio, item.Behavior, item.Risk)
		if err != nil {
			s.logger.CtxWarn(ctx, "Batch item failed", "user_id", item.UserID, "error", err)
			results = append(results, entities.BatchItemResult{UserID: item.UserID, Error: err.Error()})
			continue
		}
		results = append(results, entities.BatchItemResult{UserID: item.UserID, Success: true, Result: res})
	}
	return results
}

func validateInputs(p *entities.Portfolio, b *entities.BehaviorProfile, r *entities.RiskProfile) error {
	switch {
	case p == nil:
		return errMissingPortfolio
	case b == nil:
		return errMissingBehavior
	case r == nil:
		return errMissingRisk
	case p.Income != nil && p.Income.IsNegative():
		return errNegativeIncome
	}
	return nil
}
