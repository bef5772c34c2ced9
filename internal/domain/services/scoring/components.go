package scoring

import (
	"math"
	"strings"

	"github.com/mcs-service/mcs_service/internal/domain/entities"
	"github.com/shopspring/decimal"
)

// Sub-score ceilings
const (
	MaxAssetScore    = 400
	MaxBehaviorScore = 300
	MaxRiskScore     = 200
)

var (
	goldMax     = decimal.NewFromInt(200)
	silverMax   = decimal.NewFromInt(80)
	platinumMax = decimal.NewFromInt(40)
	stableMax   = decimal.NewFromInt(80)

	silverBenchmark   = decimal.NewFromInt(5000)
	platinumBenchmark = decimal.NewFromInt(20000)
	stableIncomeShare = decimal.NewFromFloat(0.5)
)

// Monthly income estimates by location tier
var (
	IncomeMetro     = decimal.NewFromInt(25000)
	IncomeUrban     = decimal.NewFromInt(18000)
	IncomeSemiUrban = decimal.NewFromInt(12000)
	IncomeRural     = decimal.NewFromInt(8000)
)

var metroMarkers = []string{"metro", "mumbai", "delhi", "bangalore"}

// EstimateIncome returns the explicit income when set, otherwise a location-tier estimate
func EstimateIncome(income *decimal.Decimal, location string) decimal.Decimal {
	if income != nil && income.IsPositive() {
		return *income
	}
	loc := strings.ToLower(location)
	for _, m := range metroMarkers {
		if strings.Contains(loc, m) {
			return IncomeMetro
		}
	}
	switch {
	case strings.Contains(loc, "rural"):
		return IncomeRural
	case strings.Contains(loc, "semi"), strings.Contains(loc, "tier 2"):
		return IncomeSemiUrban
	}
	return IncomeUrban
}

// ratioPoints awards ceiling×value/benchmark points, capped at ceiling
func ratioPoints(value, benchmark, ceiling decimal.Decimal) decimal.Decimal {
	if !benchmark.IsPositive() || !value.IsPositive() {
		return decimal.Zero
	}
	return decimal.Min(ceiling, value.Div(benchmark).Mul(ceiling))
}

// AssetScore scores holdings against income-relative benchmarks, in [0,400]
func AssetScore(p *entities.Portfolio) float64 {
	income := EstimateIncome(p.Income, p.Location)

	score := ratioPoints(p.Value(entities.PlatformGold), income, goldMax).
		Add(ratioPoints(p.Value(entities.PlatformSilver), silverBenchmark, silverMax)).
		Add(ratioPoints(p.Value(entities.PlatformPlatinum), platinumBenchmark, platinumMax)).
		Add(ratioPoints(p.Value(entities.PlatformStable), income.Mul(stableIncomeShare), stableMax))

	f, _ := score.Float64()
	return clamp(f, 0, MaxAssetScore)
}

// BehaviorScore converts the behavior profile into [0,300].
// Volatility and panic credit require at least one transaction.
func BehaviorScore(b *entities.BehaviorProfile) float64 {
	score := 0.0
	if b.SIP.Active {
		score += b.SIP.Consistency * 120
	}
	score += math.Min(60, float64(b.MonthlyStreak.CurrentStreak)/12*60)
	score += math.Min(70, float64(b.HoldingDuration.AverageDays)/365*70)

	if b.TransactionCount > 0 {
		score += math.Max(0, 50*(1-b.Volatility.Volatility))
		score += 50 - math.Min(50, float64(b.PanicSelling.TotalEvents)*10)
	}
	return clamp(score, 0, MaxBehaviorScore)
}

// RiskScore starts at 200 and subtracts penalties, in [0,200]
func RiskScore(r *entities.RiskProfile) float64 {
	score := float64(MaxRiskScore)

	score -= math.Min(60, float64(r.WithdrawalPatterns.LargeWithdrawals)*15)
	if r.FraudIndicators.SuspiciousActivity > 0 {
		score -= 100
	}
	if r.WalletUsage.Count > 3 {
		score -= 20
	}
	if r.ActivityLevel.TotalTransactions > 0 && r.ActivityLevel.DaysSinceLastActivity > 90 {
		score -= 20
	}
	score -= math.Min(30, float64(r.UnusualTransactions.Count)*5)
	return clamp(score, 0, MaxRiskScore)
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
