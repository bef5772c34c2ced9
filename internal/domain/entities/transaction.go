package entities

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Platform identifies one of the four asset platforms a user can hold tokens on
type Platform string

const (
	PlatformGold     Platform = "gold"
	PlatformSilver   Platform = "silver"
	PlatformPlatinum Platform = "platinum"
	PlatformStable   Platform = "stable"
)

// AllPlatforms lists the platforms in their canonical order
var AllPlatforms = []Platform{PlatformGold, PlatformSilver, PlatformPlatinum, PlatformStable}

// IsValid checks whether the platform is one of the supported platforms
func (p Platform) IsValid() bool {
	switch p {
	case PlatformGold, PlatformSilver, PlatformPlatinum, PlatformStable:
		return true
	default:
		return false
	}
}

// IsPreciousMetal reports whether the platform tokenizes a precious metal
func (p Platform) IsPreciousMetal() bool {
	return p == PlatformGold || p == PlatformSilver || p == PlatformPlatinum
}

// TransactionType represents the direction of a ledger entry
type TransactionType string

const (
	TransactionTypePurchase   TransactionType = "purchase"
	TransactionTypeSale       TransactionType = "sale"
	TransactionTypeWithdrawal TransactionType = "withdrawal"
)

// IsValid checks whether the transaction type is supported
func (t TransactionType) IsValid() bool {
	switch t {
	case TransactionTypePurchase, TransactionTypeSale, TransactionTypeWithdrawal:
		return true
	default:
		return false
	}
}

// IsOutflow reports whether the transaction moves value out of the platform
func (t TransactionType) IsOutflow() bool {
	return t == TransactionTypeSale || t == TransactionTypeWithdrawal
}

// TransactionRecord is a single immutable ledger entry reported by a platform
type TransactionRecord struct {
	ID              string          `json:"id"`
	Platform        Platform        `json:"platform"`
	Type            TransactionType `json:"type"`
	Amount          decimal.Decimal `json:"amount"`
	Timestamp       time.Time       `json:"timestamp"`
	SIPContribution bool            `json:"sip_contribution"`
	From            string          `json:"from,omitempty"`
	To              string          `json:"to,omitempty"`
	TokenSymbol     string          `json:"token_symbol,omitempty"`
	PlatformName    string          `json:"platform_name,omitempty"`
}

// Validate checks the record carries the fields every analysis stage relies on
func (r TransactionRecord) Validate() error {
	if !r.Platform.IsValid() {
		return fmt.Errorf("transaction %q: unknown platform %q", r.ID, r.Platform)
	}
	if !r.Type.IsValid() {
		return fmt.Errorf("transaction %q: unknown type %q", r.ID, r.Type)
	}
	if r.Amount.IsNegative() {
		return fmt.Errorf("transaction %q: negative amount %s", r.ID, r.Amount)
	}
	if r.Timestamp.IsZero() {
		return fmt.Errorf("transaction %q: missing timestamp", r.ID)
	}
	return nil
}

// AmountFloat returns the amount as float64 for statistical use
func (r TransactionRecord) AmountFloat() float64 {
	f, _ := r.Amount.Float64()
	return f
}

// IsSelfTransfer reports a transfer whose source and destination wallets match
func (r TransactionRecord) IsSelfTransfer() bool {
	return r.From != "" && r.To != "" && r.From == r.To
}
