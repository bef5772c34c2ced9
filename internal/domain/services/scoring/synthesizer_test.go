package scoring

import (
	"context"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/mcs-service/mcs_service/internal/domain/entities"
	"github.com/mcs-service/mcs_service/internal/domain/services/behavior"
	"github.com/mcs-service/mcs_service/internal/domain/services/risk"
	apperrors "github.com/mcs-service/mcs_service/pkg/errors"
	"github.com/mcs-service/mcs_service/pkg/logger"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

var now = time.Date(2025, 6, 20, 12, 0, 0, 0, time.UTC)

func newTestSynthesizer(t *testing.T) *Synthesizer {
	t.Helper()
	return NewSynthesizer(logger.NewLogger(zaptest.NewLogger(t)), WithClock(func() time.Time { return now }))
}

func TestCalculateScore_GoldOnlyScenario(t *testing.T) {
	ctx := context.Background()
	log := logger.NewLogger(zaptest.NewLogger(t))
	clock := func() time.Time { return now }

	p := &entities.Portfolio{
		UserID:       "u1",
		Gold:         &entities.AssetHolding{Value: decimal.NewFromInt(20000)},
		Transactions: []entities.TransactionRecord{},
	}
	b, err := behavior.NewAnalyzer(nil, log, behavior.WithClock(clock)).AnalyzeBehavior(ctx, "u1", p.Transactions, p)
	require.NoError(t, err)
	r, err := risk.NewAnalyzer(nil, log, risk.WithClock(clock)).PerformRiskAnalysis(ctx, "u1", p.Transactions, p, nil)
	require.NoError(t, err)

	res, err := newTestSynthesizer(t).CalculateScore(ctx, p, b, r)
	require.NoError(t, err)

	assert.Equal(t, "u1", res.UserID)
	assert.Equal(t, entities.ScoreBreakdown{AssetScore: 200, BehaviorScore: 0, RiskScore: 200}, res.Breakdown)
	assert.Equal(t, 400, res.Score)
	assert.Equal(t, CategoryVeryPoor, res.Category)
	assert.True(t, decimal.NewFromInt(8000).Equal(res.Recommendation.MaxAmount), res.Recommendation.MaxAmount.String())
	assert.Equal(t, "40%", res.Recommendation.MaxPercentage)
	assert.Equal(t, "24-26%", res.Recommendation.InterestRate)
	assert.Equal(t, "6 months", res.Recommendation.Tenure)
	assert.Equal(t, []string{
		"Good asset base with solid gold and stablecoin reserves",
		"Low risk profile with minimal suspicious activity",
	}, res.Reasons)
	assert.Equal(t, now, res.Timestamp)
	assert.Equal(t, 30, res.ValidityDays)
}

func TestCalculateScore_RejectsMalformedInput(t *testing.T) {
	s := newTestSynthesizer(t)
	ctx := context.Background()
	p := &entities.Portfolio{UserID: "u1"}

	_, err := s.CalculateScore(ctx, nil, &entities.BehaviorProfile{}, &entities.RiskProfile{})
	assert.ErrorIs(t, err, apperrors.ErrScoreCalculationFailed)

	_, err = s.CalculateScore(ctx, p, nil, &entities.RiskProfile{})
	assert.ErrorIs(t, err, apperrors.ErrScoreCalculationFailed)

	negative := decimal.NewFromInt(-1)
	p.Income = &negative
	_, err = s.CalculateScore(ctx, p, &entities.BehaviorProfile{}, &entities.RiskProfile{})
	require.Error(t, err)

	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperrors.StageScoring, appErr.Details[apperrors.DetailStage])
	assert.Equal(t, "u1", appErr.Details[apperrors.DetailUserID])
}

func TestCategory_StepFunction(t *testing.T) {
	cases := []struct {
		score    int
		expected string
	}{
		{900, CategoryExcellent},
		{800, CategoryExcellent},
		{799, CategoryVeryGood},
		{750, CategoryVeryGood},
		{749, CategoryGood},
		{700, CategoryGood},
		{699, CategoryAverage},
		{650, CategoryAverage},
		{649, CategoryFair},
		{600, CategoryFair},
		{599, CategoryPoor},
		{550, CategoryPoor},
		{549, CategoryVeryPoor},
		{300, CategoryVeryPoor},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.expected, Category(tc.score), "score %d", tc.score)
	}

	rank := map[string]int{}
	for i, b := range brackets {
		rank[b.category] = len(brackets) - i
	}
	for s := entities.MinScore; s < entities.MaxScore; s++ {
		assert.LessOrEqual(t, rank[Category(s)], rank[Category(s+1)])
	}
}

func TestEstimateIncome(t *testing.T) {
	explicit := decimal.NewFromInt(40000)
	assert.True(t, explicit.Equal(EstimateIncome(&explicit, "rural")))
	assert.True(t, IncomeMetro.Equal(EstimateIncome(nil, "Navi Mumbai")))
	assert.True(t, IncomeMetro.Equal(EstimateIncome(nil, "METRO")))
	assert.True(t, IncomeRural.Equal(EstimateIncome(nil, "rural Bihar")))
	assert.True(t, IncomeSemiUrban.Equal(EstimateIncome(nil, "Semi-urban")))
	assert.True(t, IncomeSemiUrban.Equal(EstimateIncome(nil, "Tier 2 city")))
	assert.True(t, IncomeUrban.Equal(EstimateIncome(nil, "")))
}

func TestAssetScore(t *testing.T) {
	p := &entities.Portfolio{
		Gold:     &entities.AssetHolding{Value: decimal.NewFromInt(9000)},
		Silver:   &entities.AssetHolding{Value: decimal.NewFromInt(2500)},
		Platinum: &entities.AssetHolding{Value: decimal.NewFromInt(100000)},
		Stable:   &entities.AssetHolding{Balance: decimal.NewFromInt(4500)},
	}
	// gold 100 + silver 40 + platinum 40 + stable 40
	assert.InDelta(t, 220, AssetScore(p), 1e-9)

	income := decimal.NewFromInt(1)
	p.Income = &income
	// gold 200 + silver 40 + platinum 40 + stable 80
	assert.InDelta(t, 360, AssetScore(p), 1e-9)
}

func TestBehaviorScore(t *testing.T) {
	b := &entities.BehaviorProfile{TransactionCount: 10}
	b.SIP.Active = true
	b.SIP.Consistency = 0.5
	b.MonthlyStreak.CurrentStreak = 6
	b.HoldingDuration.AverageDays = 365
	b.Volatility.Volatility = 0.2
	b.PanicSelling.TotalEvents = 2
	// 60 + 30 + 70 + 40 + 30
	assert.InDelta(t, 230, BehaviorScore(b), 1e-9)

	assert.Zero(t, BehaviorScore(&entities.BehaviorProfile{}))
}

func TestRiskScore_UnusualPenalty(t *testing.T) {
	tests := []struct {
		count int
		want  float64
	}{
		{0, 200},
		{1, 195},
		{3, 185},
		{5, 175},
		{6, 170},
		{20, 170},
	}
	for _, tt := range tests {
		r := &entities.RiskProfile{}
		r.UnusualTransactions.Count = tt.count
		assert.Equal(t, tt.want, RiskScore(r), "unusual count %d", tt.count)
	}
}

func TestRiskScore(t *testing.T) {
	r := &entities.RiskProfile{}
	assert.Equal(t, 200.0, RiskScore(r))

	r.WithdrawalPatterns.LargeWithdrawals = 2
	r.WalletUsage.Count = 4
	r.ActivityLevel.TotalTransactions = 3
	r.ActivityLevel.DaysSinceLastActivity = 120
	r.UnusualTransactions.Count = 5
	// 200 - 30 - 20 - 20 - 25
	assert.Equal(t, 105.0, RiskScore(r))

	r.UnusualTransactions.Count = 8
	r.FraudIndicators.SuspiciousActivity = 1
	r.WithdrawalPatterns.LargeWithdrawals = 9
	assert.Equal(t, 0.0, RiskScore(r))
}

func TestReasons(t *testing.T) {
	assert.Equal(t, []string{
		"Strong asset portfolio with diversified holdings",
		"Excellent investment behavior with consistent SIP contributions",
		"Moderate risk with standard transaction patterns",
	}, Reasons(300, 250, 150))

	assert.Equal(t, []string{"Higher risk profile - requires additional monitoring"}, Reasons(99, 149, 99))
	assert.Empty(t, Reasons(0, 0, 120))
}

func TestScoreProperties(t *testing.T) {
	s := NewSynthesizer(logger.NewNop())
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 300
	properties := gopter.NewProperties(parameters)

	properties.Property("score and sub-scores stay within bounds and loan respects bracket", prop.ForAll(
		func(gold, stable int64, streak, events, large, unusual int, volatility float64) bool {
			p := &entities.Portfolio{
				UserID: "u",
				Gold:   &entities.AssetHolding{Value: decimal.NewFromInt(gold)},
				Stable: &entities.AssetHolding{Balance: decimal.NewFromInt(stable)},
			}
			b := &entities.BehaviorProfile{TransactionCount: events + 1}
			b.MonthlyStreak.CurrentStreak = streak
			b.Volatility.Volatility = volatility
			b.PanicSelling.TotalEvents = events
			r := &entities.RiskProfile{}
			r.WithdrawalPatterns.LargeWithdrawals = large
			r.UnusualTransactions.Count = unusual

			res, err := s.CalculateScore(context.Background(), p, b, r)
			if err != nil {
				return false
			}
			if res.Score < entities.MinScore || res.Score > entities.MaxScore {
				return false
			}
			bd := res.Breakdown
			if bd.AssetScore < 0 || bd.AssetScore > MaxAssetScore ||
				bd.BehaviorScore < 0 || bd.BehaviorScore > MaxBehaviorScore ||
				bd.RiskScore < 0 || bd.RiskScore > MaxRiskScore {
				return false
			}

			br := bracketFor(res.Score)
			share := p.TotalAssetValue().Mul(decimal.NewFromInt(br.percentage)).Div(decimal.NewFromInt(100))
			amount := res.Recommendation.MaxAmount
			return amount.LessThanOrEqual(decimal.NewFromInt(br.baseAmount)) &&
				amount.LessThanOrEqual(share.Round(0))
		},
		gen.Int64Range(0, 5_000_000),
		gen.Int64Range(0, 5_000_000),
		gen.IntRange(0, 48),
		gen.IntRange(0, 20),
		gen.IntRange(0, 20),
		gen.IntRange(0, 40),
		gen.Float64Range(0, 3),
	))

	properties.TestingRun(t)
}

func TestBatchCalculateScores_IsolatesFailures(t *testing.T) {
	s := newTestSynthesizer(t)
	good := BatchInput{
		UserID:    "ok",
		Portfolio: &entities.Portfolio{UserID: "ok"},
		Behavior:  &entities.BehaviorProfile{},
		Risk:      &entities.RiskProfile{},
	}
	bad := BatchInput{UserID: "broken", Portfolio: &entities.Portfolio{UserID: "broken"}}

	results := s.BatchCalculateScores(context.Background(), []BatchInput{good, bad, good})
	require.Len(t, results, 3)

	assert.True(t, results[0].Success)
	assert.Equal(t, entities.MinScore, results[0].Result.Score)
	assert.False(t, results[1].Success)
	assert.Equal(t, "broken", results[1].UserID)
	assert.Contains(t, results[1].Error, "score calculation failed")
	assert.True(t, results[2].Success)
}
