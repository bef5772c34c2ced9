package scoring

import (
	"fmt"

	"github.com/mcs-service/mcs_service/internal/domain/entities"
	"github.com/shopspring/decimal"
)

// Score categories
const (
	CategoryExcellent = "Excellent"
	CategoryVeryGood  = "Very Good"
	CategoryGood      = "Good"
	CategoryAverage   = "Average"
	CategoryFair      = "Fair"
	CategoryPoor      = "Poor"
	CategoryVeryPoor  = "Very Poor"
)

// bracket ties a score floor to its category and loan terms
type bracket struct {
	minScore     int
	category     string
	percentage   int64
	baseAmount   int64
	interestRate string
	tenure       string
}

// brackets are ordered from the highest floor down; the last one catches everything
var brackets = []bracket{
	{800, CategoryExcellent, 75, 50000, "12-14%", "36 months"},
	{750, CategoryVeryGood, 70, 40000, "14-16%", "36 months"},
	{700, CategoryGood, 65, 35000, "16-18%", "24 months"},
	{650, CategoryAverage, 60, 25000, "18-20%", "18 months"},
	{600, CategoryFair, 55, 20000, "20-22%", "12 months"},
	{550, CategoryPoor, 50, 15000, "22-24%", "6 months"},
	{0, CategoryVeryPoor, 40, 10000, "24-26%", "6 months"},
}

func bracketFor(score int) bracket {
	for _, b := range brackets {
		if score >= b.minScore {
			return b
		}
	}
	return brackets[len(brackets)-1]
}

// Category maps a final score to its label
func Category(score int) string {
	return bracketFor(score).category
}

// Recommend selects the loan terms for a score.
// The amount is the lesser of the bracket base and the bracket share of total assets.
func Recommend(score int, totalAssets decimal.Decimal) entities.LoanRecommendation {
	b := bracketFor(score)
	share := totalAssets.Mul(decimal.NewFromInt(b.percentage)).Div(decimal.NewFromInt(100))
	amount := decimal.Min(share, decimal.NewFromInt(b.baseAmount)).Round(0)
	if amount.IsNegative() {
		amount = decimal.Zero
	}
	return entities.LoanRecommendation{
		MaxAmount:     amount,
		MaxPercentage: fmt.Sprintf("%d%%", b.percentage),
		InterestRate:  b.interestRate,
		Tenure:        b.tenure,
	}
}

// Reasons explains the sub-scores with fixed templates
func Reasons(asset, behavior, risk float64) []string {
	reasons := []string{}

	switch {
	case asset >= 300:
		reasons = append(reasons, "Strong asset portfolio with diversified holdings")
	case asset >= 200:
		reasons = append(reasons, "Good asset base with solid gold and stablecoin reserves")
	case asset >= 100:
		reasons = append(reasons, "Moderate asset accumulation showing investment discipline")
	}

	switch {
	case behavior >= 250:
		reasons = append(reasons, "Excellent investment behavior with consistent SIP contributions")
	case behavior >= 200:
		reasons = append(reasons, "Good investment habits with regular contributions")
	case behavior >= 150:
		reasons = append(reasons, "Stable investment pattern with low volatility")
	}

	switch {
	case risk >= 180:
		reasons = append(reasons, "Low risk profile with minimal suspicious activity")
	case risk >= 150:
		reasons = append(reasons, "Moderate risk with standard transaction patterns")
	case risk < 100:
		reasons = append(reasons, "Higher risk profile - requires additional monitoring")
	}
	return reasons
}
