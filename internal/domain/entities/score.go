package entities

import (
	"time"

	"github.com/shopspring/decimal"
)

// Credit score bounds
const (
	MinScore = 300
	MaxScore = 900

	ScoreValidityDays = 30
)

// ScoreBreakdown holds the three sub-scores before final clamping
type ScoreBreakdown struct {
	AssetScore    int `json:"asset_score"`
	BehaviorScore int `json:"behavior_score"`
	RiskScore     int `json:"risk_score"`
}

// LoanRecommendation is the loan bracket selected for a score
type LoanRecommendation struct {
	MaxAmount     decimal.Decimal `json:"max_amount"`
	MaxPercentage string          `json:"max_percentage"`
	InterestRate  string          `json:"interest_rate"`
	Tenure        string          `json:"tenure"`
}

// ScoreResult is the output of one scoring call
type ScoreResult struct {
	UserID         string             `json:"user_id"`
	Score          int                `json:"score"`
	Category       string             `json:"category"`
	Breakdown      ScoreBreakdown     `json:"breakdown"`
	Recommendation LoanRecommendation `json:"recommendation"`
	Reasons        []string           `json:"reasons"`
	Timestamp      time.Time          `json:"timestamp"`
	ValidityDays   int                `json:"validity_days"`
}

// BatchItemResult is one entry of a batch scoring run
type BatchItemResult struct {
	UserID  string       `json:"user_id"`
	Success bool         `json:"success"`
	Result  *ScoreResult `json:"result,omitempty"`
	Error   string       `json:"error,omitempty"`
}
