package portfolio

import (
	"github.com/mcs-service/mcs_service/internal/domain/entities"
	"github.com/shopspring/decimal"
)

// Risk level labels derived from allocation
const (
	RiskLevelNoAssets = "No Assets"
	RiskLevelLow      = "Low"
	RiskLevelMedium   = "Medium"
	RiskLevelHigh     = "High"
)

var hundred = decimal.NewFromInt(100)

// ComputeMetrics derives totals, allocation, diversification and risk level from the holdings
func ComputeMetrics(p *entities.Portfolio) entities.PortfolioMetrics {
	m := entities.PortfolioMetrics{
		TotalValue:  decimal.Zero,
		TotalTokens: decimal.Zero,
		Allocation:  make(map[entities.Platform]decimal.Decimal, len(entities.AllPlatforms)),
	}

	for _, platform := range entities.AllPlatforms {
		h := p.Holding(platform)
		if h == nil {
			continue
		}
		m.TotalValue = m.TotalValue.Add(h.EffectiveValue(platform))
		m.TotalTokens = m.TotalTokens.Add(h.Tokens)
		if h.LastActivity != nil && (m.LastActivity == nil || h.LastActivity.After(*m.LastActivity)) {
			t := *h.LastActivity
			m.LastActivity = &t
		}
	}

	for _, platform := range entities.AllPlatforms {
		m.Allocation[platform] = allocation(p.Value(platform), m.TotalValue).Round(2)
	}

	m.DiversificationIndex = Diversification(p, m.TotalValue)
	m.RiskLevel = riskLevel(m)
	return m
}

func allocation(value, total decimal.Decimal) decimal.Decimal {
	if !total.IsPositive() {
		return decimal.Zero
	}
	return value.Div(total).Mul(hundred)
}

// Diversification is the inverted Herfindahl-Hirschman index of the allocation weights.
// No positive weight gives 0 and a single positive weight gives 50.
func Diversification(p *entities.Portfolio, total decimal.Decimal) int {
	if !total.IsPositive() {
		return 0
	}

	var weights []decimal.Decimal
	for _, platform := range entities.AllPlatforms {
		v := p.Value(platform)
		if v.IsPositive() {
			weights = append(weights, v.Div(total))
		}
	}

	switch len(weights) {
	case 0:
		return 0
	case 1:
		return 50
	}

	hhi := decimal.Zero
	for _, w := range weights {
		hhi = hhi.Add(w.Mul(w))
	}
	index := decimal.NewFromInt(1).Sub(hhi).Mul(hundred).Round(0).IntPart()
	if index < 0 {
		return 0
	}
	if index > 100 {
		return 100
	}
	return int(index)
}

func riskLevel(m entities.PortfolioMetrics) string {
	if !m.TotalValue.IsPositive() {
		return RiskLevelNoAssets
	}

	fifty := decimal.NewFromInt(50)
	sixty := decimal.NewFromInt(60)
	eighty := decimal.NewFromInt(80)

	alloc := m.Allocation
	if alloc[entities.PlatformStable].GreaterThanOrEqual(fifty) {
		return RiskLevelLow
	}
	if alloc[entities.PlatformGold].GreaterThanOrEqual(sixty) {
		return RiskLevelLow
	}
	metals := alloc[entities.PlatformGold].Add(alloc[entities.PlatformSilver]).Add(alloc[entities.PlatformPlatinum])
	if metals.GreaterThanOrEqual(eighty) {
		return RiskLevelMedium
	}
	return RiskLevelHigh
}
