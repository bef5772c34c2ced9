package entities

import "time"

// SIPFrequency buckets the mean interval between systematic contributions
type SIPFrequency string

const (
	SIPFrequencyNone      SIPFrequency = "none"
	SIPFrequencyDaily     SIPFrequency = "daily"
	SIPFrequencyWeekly    SIPFrequency = "weekly"
	SIPFrequencyBiWeekly  SIPFrequency = "bi-weekly"
	SIPFrequencyMonthly   SIPFrequency = "monthly"
	SIPFrequencyIrregular SIPFrequency = "irregular"
)

// SIPMetrics describes systematic investment plan behavior
type SIPMetrics struct {
	Active             bool         `json:"active"`
	Consistency        float64      `json:"consistency"`
	AvgAmount          float64      `json:"avg_amount"`
	Frequency          SIPFrequency `json:"frequency"`
	Streak             int          `json:"streak"`
	TotalContributions int          `json:"total_contributions"`
	TotalAmount        float64      `json:"total_amount"`
	LastContribution   *time.Time   `json:"last_contribution,omitempty"`
}

// MonthlyStreak describes month-over-month purchase continuity
type MonthlyStreak struct {
	CurrentStreak int      `json:"current_streak"`
	LongestStreak int      `json:"longest_streak"`
	TotalMonths   int      `json:"total_months"`
	Consistency   float64  `json:"consistency"`
	Months        []string `json:"months,omitempty"`
}

// WithdrawalVolatility describes the dispersion of withdrawal amounts
type WithdrawalVolatility struct {
	Volatility     float64 `json:"volatility"`
	Pattern        string  `json:"pattern"`
	Withdrawals    int     `json:"withdrawals"`
	AvgWithdrawal  float64 `json:"avg_withdrawal"`
	MaxWithdrawal  float64 `json:"max_withdrawal"`
	TotalWithdrawn float64 `json:"total_withdrawn"`
}

// AssetHoldingDuration is the holding-age summary for one platform
type AssetHoldingDuration struct {
	AvgHoldingDays     int `json:"avg_holding_days"`
	MinHoldingDays     int `json:"min_holding_days"`
	MaxHoldingDays     int `json:"max_holding_days"`
	TotalTransactions  int `json:"total_transactions"`
	LongTermPercentage int `json:"long_term_percentage"`
}

// HoldingDuration aggregates holding ages across platforms
type HoldingDuration struct {
	Assets         map[Platform]AssetHoldingDuration `json:"assets"`
	AverageDays    int                               `json:"average_days"`
	OverallPattern string                            `json:"overall_pattern"`
}

// PanicEvent is a sale or withdrawal that closely followed a purchase of the same asset
type PanicEvent struct {
	TransactionID string      `json:"transaction_id"`
	SaleDate      time.Time   `json:"sale_date"`
	PurchaseDates []time.Time `json:"purchase_dates"`
	DaysBetween   float64     `json:"days_between"`
	Platform      Platform    `json:"platform"`
	Amount        float64     `json:"amount"`
}

// PanicSelling summarizes panic events
type PanicSelling struct {
	TotalEvents int          `json:"total_events"`
	Events      []PanicEvent `json:"events"`
	Severity    string       `json:"severity"`
}

// InvestmentPattern classifies purchase sizes and spread
type InvestmentPattern struct {
	Pattern          string  `json:"pattern"`
	InvestmentStyle  string  `json:"investment_style"`
	Regularity       float64 `json:"regularity"`
	Diversification  float64 `json:"diversification"`
	AvgInvestment    float64 `json:"avg_investment"`
	TotalInvestments int     `json:"total_investments"`
	TotalAmount      float64 `json:"total_amount"`
}

// RiskTolerance is the additive indicator score and its band
type RiskTolerance struct {
	Level      string   `json:"level"`
	Score      int      `json:"score"`
	Indicators []string `json:"indicators"`
}

// BehaviorProfile is the derived investment-discipline snapshot for one user
type BehaviorProfile struct {
	UserID           string               `json:"user_id"`
	Timestamp        time.Time            `json:"timestamp"`
	TransactionCount int                  `json:"transaction_count"`
	SIP              SIPMetrics           `json:"sip"`
	MonthlyStreak    MonthlyStreak        `json:"monthly_streak"`
	Volatility       WithdrawalVolatility `json:"volatility"`
	HoldingDuration  HoldingDuration      `json:"holding_duration"`
	PanicSelling     PanicSelling         `json:"panic_selling"`
	Investment       InvestmentPattern    `json:"investment"`
	Consistency      float64              `json:"consistency"`
	RiskTolerance    RiskTolerance        `json:"risk_tolerance"`
	OverallScore     float64              `json:"overall_score"`
}
