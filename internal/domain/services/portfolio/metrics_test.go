package portfolio

import (
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/mcs-service/mcs_service/internal/domain/entities"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func holding(v int64) *entities.AssetHolding {
	return &entities.AssetHolding{Value: decimal.NewFromInt(v)}
}

func TestComputeMetrics_NoAssets(t *testing.T) {
	m := ComputeMetrics(&entities.Portfolio{})
	assert.True(t, m.TotalValue.IsZero())
	assert.Equal(t, 0, m.DiversificationIndex)
	assert.Equal(t, RiskLevelNoAssets, m.RiskLevel)
	for _, p := range entities.AllPlatforms {
		assert.True(t, m.Allocation[p].IsZero())
	}
}

func TestComputeMetrics_SingleAsset(t *testing.T) {
	m := ComputeMetrics(&entities.Portfolio{Silver: holding(500)})
	assert.Equal(t, 50, m.DiversificationIndex)
	assert.True(t, m.Allocation[entities.PlatformSilver].Equal(decimal.NewFromInt(100)))
	assert.Equal(t, RiskLevelMedium, m.RiskLevel)
}

func TestComputeMetrics_EqualWeights(t *testing.T) {
	m := ComputeMetrics(&entities.Portfolio{
		Gold:     holding(100),
		Silver:   holding(100),
		Platinum: holding(100),
		Stable:   &entities.AssetHolding{Balance: decimal.NewFromInt(100)},
	})
	assert.Equal(t, 75, m.DiversificationIndex)
	assert.True(t, m.Allocation[entities.PlatformStable].Equal(decimal.NewFromInt(25)))
	assert.Equal(t, RiskLevelHigh, m.RiskLevel)
}

func TestComputeMetrics_RiskLevels(t *testing.T) {
	tests := []struct {
		name string
		p    *entities.Portfolio
		want string
	}{
		{"stable majority", &entities.Portfolio{Gold: holding(50), Stable: &entities.AssetHolding{Balance: decimal.NewFromInt(50)}}, RiskLevelLow},
		{"gold heavy", &entities.Portfolio{Gold: holding(60), Platinum: holding(10), Stable: &entities.AssetHolding{Balance: decimal.NewFromInt(30)}}, RiskLevelLow},
		{"metals heavy", &entities.Portfolio{Gold: holding(40), Silver: holding(40), Stable: &entities.AssetHolding{Balance: decimal.NewFromInt(20)}}, RiskLevelMedium},
		{"mixed", &entities.Portfolio{Gold: holding(30), Silver: holding(30), Stable: &entities.AssetHolding{Balance: decimal.NewFromInt(40)}}, RiskLevelHigh},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ComputeMetrics(tt.p).RiskLevel)
		})
	}
}

func TestComputeMetrics_LastActivity(t *testing.T) {
	early := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	late := early.AddDate(0, 3, 0)
	gold := holding(1)
	gold.LastActivity = &early
	silver := holding(1)
	silver.LastActivity = &late

	m := ComputeMetrics(&entities.Portfolio{Gold: gold, Silver: silver})
	assert.Equal(t, late, *m.LastActivity)
}

func TestDiversificationProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("allocation sums to 100 and index matches HHI", prop.ForAll(
		func(g, s, p, b int64) bool {
			portfolio := &entities.Portfolio{
				Gold:     holding(g),
				Silver:   holding(s),
				Platinum: holding(p),
				Stable:   &entities.AssetHolding{Balance: decimal.NewFromInt(b)},
			}
			m := ComputeMetrics(portfolio)
			if m.DiversificationIndex < 0 || m.DiversificationIndex > 100 {
				return false
			}

			positive := 0
			sum := decimal.Zero
			for _, platform := range entities.AllPlatforms {
				sum = sum.Add(m.Allocation[platform])
				if portfolio.Value(platform).IsPositive() {
					positive++
				}
			}

			switch positive {
			case 0:
				return m.DiversificationIndex == 0
			case 1:
				return m.DiversificationIndex == 50 && sum.Equal(decimal.NewFromInt(100))
			}
			if sum.Sub(decimal.NewFromInt(100)).Abs().GreaterThan(decimal.RequireFromString("0.02")) {
				return false
			}

			total := float64(g + s + p + b)
			hhi := 0.0
			for _, v := range []int64{g, s, p, b} {
				w := float64(v) / total
				hhi += w * w
			}
			expected := (1 - hhi) * 100
			diff := float64(m.DiversificationIndex) - expected
			return diff <= 0.5001 && diff >= -0.5001
		},
		gen.Int64Range(0, 1_000_000),
		gen.Int64Range(0, 1_000_000),
		gen.Int64Range(0, 1_000_000),
		gen.Int64Range(0, 1_000_000),
	))

	properties.TestingRun(t)
}
