package behavior

import (
	"math"
	"sort"
	"time"

	"github.com/mcs-service/mcs_service/internal/domain/entities"
	"gonum.org/v1/gonum/stat"
)

const (
	longTermHoldingDays   = 180
	panicWindow           = 7 * day
	shortTermTradeWindow  = 30 * day
	diversificationAssets = 4
)

// coefficientOfVariation uses the population standard deviation.
// A zero mean yields 0.
func coefficientOfVariation(values []float64) float64 {
	if len(values) <= 1 {
		return 0
	}
	mean, std := stat.PopMeanStdDev(values, nil)
	if mean == 0 {
		return 0
	}
	return std / mean
}

func analyzeWithdrawalVolatility(ledger []entities.TransactionRecord) entities.WithdrawalVolatility {
	withdrawals := filter(ledger, func(tx entities.TransactionRecord) bool {
		return tx.Type == entities.TransactionTypeWithdrawal
	})
	out := entities.WithdrawalVolatility{Pattern: "low", Withdrawals: len(withdrawals)}
	if len(withdrawals) == 0 {
		return out
	}

	values := amounts(withdrawals)
	for _, v := range values {
		out.TotalWithdrawn += v
		out.MaxWithdrawal = math.Max(out.MaxWithdrawal, v)
	}
	out.AvgWithdrawal = out.TotalWithdrawn / float64(len(values))
	out.Volatility = coefficientOfVariation(values)

	switch {
	case out.Volatility > 0.5:
		out.Pattern = "high"
	case out.Volatility > 0.25:
		out.Pattern = "medium"
	}
	return out
}

func analyzeHoldingDuration(ledger []entities.TransactionRecord, now time.Time) entities.HoldingDuration {
	out := entities.HoldingDuration{Assets: make(map[entities.Platform]entities.AssetHoldingDuration)}

	var avgs []float64
	for _, platform := range entities.AllPlatforms {
		txs := filter(ledger, func(tx entities.TransactionRecord) bool { return tx.Platform == platform })
		if len(txs) == 0 {
			continue
		}
		asset := entities.AssetHoldingDuration{TotalTransactions: len(txs)}

		var ages []float64
		longTerm := 0
		for _, tx := range txs {
			if tx.Type != entities.TransactionTypePurchase {
				continue
			}
			age := days(now.Sub(tx.Timestamp))
			ages = append(ages, age)
			if age >= longTermHoldingDays {
				longTerm++
			}
		}
		if len(ages) > 0 {
			minAge, maxAge := ages[0], ages[0]
			for _, a := range ages {
				minAge = math.Min(minAge, a)
				maxAge = math.Max(maxAge, a)
			}
			asset.AvgHoldingDays = int(math.Round(stat.Mean(ages, nil)))
			asset.MinHoldingDays = int(math.Round(minAge))
			asset.MaxHoldingDays = int(math.Round(maxAge))
			asset.LongTermPercentage = int(math.Round(float64(longTerm) / float64(len(ages)) * 100))
		}
		out.Assets[platform] = asset

		if asset.AvgHoldingDays > 0 {
			avgs = append(avgs, float64(asset.AvgHoldingDays))
		}
	}

	overall := 0.0
	if len(avgs) > 0 {
		overall = stat.Mean(avgs, nil)
	}
	out.AverageDays = int(math.Round(overall))

	switch {
	case overall > 180:
		out.OverallPattern = "long-term"
	case overall > 30:
		out.OverallPattern = "medium-term"
	default:
		out.OverallPattern = "short-term"
	}
	return out
}

// analyzePanicSelling flags outflows preceded within seven days by a purchase of the same asset
func analyzePanicSelling(ledger []entities.TransactionRecord) entities.PanicSelling {
	out := entities.PanicSelling{Events: []entities.PanicEvent{}, Severity: "none"}

	for _, sale := range ledger {
		if sale.Type == entities.TransactionTypePurchase {
			continue
		}
		var dates []time.Time
		var latest time.Time
		for _, p := range ledger {
			if p.Type != entities.TransactionTypePurchase || p.Platform != sale.Platform {
				continue
			}
			gap := sale.Timestamp.Sub(p.Timestamp)
			if gap < 0 || gap > panicWindow {
				continue
			}
			dates = append(dates, p.Timestamp)
			if p.Timestamp.After(latest) {
				latest = p.Timestamp
			}
		}
		if len(dates) == 0 {
			continue
		}
		out.Events = append(out.Events, entities.PanicEvent{
			TransactionID: sale.ID,
			SaleDate:      sale.Timestamp,
			PurchaseDates: dates,
			DaysBetween:   days(sale.Timestamp.Sub(latest)),
			Platform:      sale.Platform,
			Amount:        sale.AmountFloat(),
		})
	}

	out.TotalEvents = len(out.Events)
	switch {
	case out.TotalEvents == 0:
	case out.TotalEvents <= 2:
		out.Severity = "low"
	case out.TotalEvents <= 5:
		out.Severity = "medium"
	default:
		out.Severity = "high"
	}
	return out
}

func analyzeInvestmentPattern(purchases []entities.TransactionRecord) entities.InvestmentPattern {
	if len(purchases) == 0 {
		return entities.InvestmentPattern{Pattern: "no-investments", InvestmentStyle: "none"}
	}

	values := amounts(purchases)
	total := 0.0
	for _, v := range values {
		total += v
	}
	avg := total / float64(len(values))

	large, small := 0, 0
	for _, v := range values {
		if v > avg*2 {
			large++
		}
		if v < avg*0.5 {
			small++
		}
	}
	pattern := "regular"
	switch {
	case large > small*2:
		pattern = "lump-sum"
	case small > large*2:
		pattern = "micro"
	}

	platforms := make(map[entities.Platform]bool)
	for _, p := range purchases {
		platforms[p.Platform] = true
	}
	diversification := float64(len(platforms)) / diversificationAssets

	style := "regular-investor"
	switch {
	case diversification > 0.75:
		style = "well-diversified"
	case avg < 1000:
		style = "micro-investor"
	case avg > 25000:
		style = "large-investor"
	}

	return entities.InvestmentPattern{
		Pattern:          pattern,
		InvestmentStyle:  style,
		Regularity:       regularity(purchases),
		Diversification:  diversification,
		AvgInvestment:    avg,
		TotalInvestments: len(purchases),
		TotalAmount:      total,
	}
}

func purchaseIntervals(purchases []entities.TransactionRecord) []float64 {
	var intervals []float64
	for i := 1; i < len(purchases); i++ {
		intervals = append(intervals, math.Abs(days(purchases[i-1].Timestamp.Sub(purchases[i].Timestamp))))
	}
	return intervals
}

func regularity(purchases []entities.TransactionRecord) float64 {
	if len(purchases) <= 1 {
		return 0.5
	}
	intervals := purchaseIntervals(purchases)
	if stat.Mean(intervals, nil) == 0 {
		return 0
	}
	return math.Max(0, 1-coefficientOfVariation(intervals))
}

// consistencyScore measures how evenly purchases are spaced.
// Purchases sharing one instant give no cadence and score 0.
func consistencyScore(purchases []entities.TransactionRecord) float64 {
	switch len(purchases) {
	case 0:
		return 0
	case 1:
		return 0.5
	}
	intervals := purchaseIntervals(purchases)
	if stat.Mean(intervals, nil) == 0 {
		return 0
	}
	return math.Min(1, math.Max(0, 1-coefficientOfVariation(intervals)))
}

func analyzeRiskTolerance(ledger, purchases []entities.TransactionRecord) entities.RiskTolerance {
	if len(purchases) == 0 {
		return entities.RiskTolerance{Level: "unknown", Indicators: []string{}}
	}

	score := 0
	indicators := []string{}

	highValue, large := false, 0
	platinum := false
	platforms := make(map[entities.Platform]bool)
	for _, p := range purchases {
		v := p.AmountFloat()
		if v > 50000 {
			highValue = true
		}
		if v > 10000 {
			large++
		}
		if p.Platform == entities.PlatformPlatinum {
			platinum = true
		}
		platforms[p.Platform] = true
	}

	if highValue {
		score += 20
		indicators = append(indicators, "high-value-investments")
	}
	if len(platforms) >= 3 {
		score += 15
		indicators = append(indicators, "diversified-portfolio")
	}
	if platinum {
		score += 25
		indicators = append(indicators, "volatile-assets")
	}
	if float64(large)/float64(len(purchases)) > 0.5 {
		score += 20
		indicators = append(indicators, "consistent-large-investments")
	}
	if shortTermTrades(ledger) > 3 {
		score += 30
		indicators = append(indicators, "short-term-trading")
	}

	if score > 100 {
		score = 100
	}

	level := "conservative"
	switch {
	case score >= 70:
		level = "aggressive"
	case score >= 50:
		level = "moderate"
	case score >= 30:
		level = "balanced"
	}
	return entities.RiskTolerance{Level: level, Score: score, Indicators: indicators}
}

// shortTermTrades counts direction flips on the same asset within thirty days
func shortTermTrades(ledger []entities.TransactionRecord) int {
	count := 0
	for _, platform := range entities.AllPlatforms {
		txs := filter(ledger, func(tx entities.TransactionRecord) bool { return tx.Platform == platform })
		sort.SliceStable(txs, func(i, j int) bool { return txs[i].Timestamp.Before(txs[j].Timestamp) })

		for i := 1; i < len(txs); i++ {
			prev, cur := txs[i-1], txs[i]
			if cur.Timestamp.Sub(prev.Timestamp) > shortTermTradeWindow {
				continue
			}
			buyThenSell := prev.Type == entities.TransactionTypePurchase && cur.Type != entities.TransactionTypePurchase
			sellThenBuy := prev.Type == entities.TransactionTypeSale && cur.Type == entities.TransactionTypePurchase
			if buyThenSell || sellThenBuy {
				count++
			}
		}
	}
	return count
}
