package entities

import "time"

// WithdrawalRisk summarizes outflow patterns
type WithdrawalRisk struct {
	LargeWithdrawals    int     `json:"large_withdrawals"`
	FrequentWithdrawals int     `json:"frequent_withdrawals"`
	SuddenPattern       bool    `json:"sudden_pattern"`
	MaxWithdrawal       float64 `json:"max_withdrawal"`
	TotalWithdrawn      float64 `json:"total_withdrawn"`
	WithdrawalFrequency float64 `json:"withdrawal_frequency"`
	MaxConsecutiveLarge int     `json:"max_consecutive_large"`
	AvgInterval         float64 `json:"avg_interval"`
	RiskScore           int     `json:"risk_score"`
}

// FraudDetails counts each fraud heuristic's matches
type FraudDetails struct {
	UnusualAmounts       int `json:"unusual_amounts"`
	UnusualTimeTransfers int `json:"unusual_time_transactions"`
	RapidTransactions    int `json:"rapid_transactions"`
	CircularTransactions int `json:"circular_transactions"`
}

// FraudIndicators is the fraud heuristic result
type FraudIndicators struct {
	SuspiciousActivity int          `json:"suspicious_activity"`
	Indicators         []string     `json:"indicators"`
	Score              int          `json:"score"`
	Severity           string       `json:"severity"`
	Details            FraudDetails `json:"details"`
}

// WalletUsage summarizes wallet sprawl
type WalletUsage struct {
	Count           int        `json:"count"`
	Types           []Platform `json:"types"`
	MultiChainUsage int        `json:"multi_chain_usage"`
	Indicators      []string   `json:"indicators"`
	RiskScore       int        `json:"risk_score"`
}

// ActivityLevel summarizes recency and frequency of activity
type ActivityLevel struct {
	DaysSinceLastActivity int     `json:"days_since_last_activity"`
	ActivityFrequency     float64 `json:"activity_frequency"`
	TotalTransactions     int     `json:"total_transactions"`
	ActiveMonths          int     `json:"active_months"`
	RiskScore             int     `json:"risk_score"`
}

// UnusualTransactions lists statistical outliers by amount or hour
type UnusualTransactions struct {
	Count     int                 `json:"count"`
	Patterns  []string            `json:"patterns"`
	RiskScore int                 `json:"risk_score"`
	Outliers  []TransactionRecord `json:"outliers,omitempty"`
}

// GeographicRisk is the location heuristic result
type GeographicRisk struct {
	Score      int      `json:"score"`
	Indicators []string `json:"indicators"`
	Location   string   `json:"location,omitempty"`
	Consistent bool     `json:"consistent"`
}

// VelocityWindow holds transaction counts per bucket for one window size
type VelocityWindow struct {
	Count int `json:"count"`
	Max   int `json:"max"`
	Min   int `json:"min"`
}

// VelocityAnalysis holds per-day, per-week and per-month counts
type VelocityAnalysis struct {
	Daily     VelocityWindow `json:"daily"`
	Weekly    VelocityWindow `json:"weekly"`
	Monthly   VelocityWindow `json:"monthly"`
	RiskScore int            `json:"risk_score"`
}

// AnomalyFinding is the output of one behavioral anomaly detector
type AnomalyFinding struct {
	Anomaly     bool   `json:"anomaly"`
	Severity    int    `json:"severity"`
	Description string `json:"description"`
}

// BehavioralAnomalies aggregates the anomaly detectors
type BehavioralAnomalies struct {
	Anomalies []string                  `json:"anomalies"`
	RiskScore int                       `json:"risk_score"`
	Details   map[string]AnomalyFinding `json:"details"`
}

// RiskProfile is the derived risk and fraud snapshot for one user
type RiskProfile struct {
	UserID              string              `json:"user_id"`
	Timestamp           time.Time           `json:"timestamp"`
	WithdrawalPatterns  WithdrawalRisk      `json:"withdrawal_patterns"`
	FraudIndicators     FraudIndicators     `json:"fraud_indicators"`
	WalletUsage         WalletUsage         `json:"wallet_usage"`
	ActivityLevel       ActivityLevel       `json:"activity_level"`
	UnusualTransactions UnusualTransactions `json:"unusual_transactions"`
	GeographicRisk      GeographicRisk      `json:"geographic_risk"`
	Velocity            VelocityAnalysis    `json:"velocity"`
	BehavioralAnomalies BehavioralAnomalies `json:"behavioral_anomalies"`
	OverallRiskScore    float64             `json:"overall_risk_score"`
	RiskLevel           string              `json:"risk_level"`
	RiskFactors         []string            `json:"risk_factors"`
}
