package entities

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// AssetHolding is one platform's snapshot of a user's position.
// Stablecoin holdings populate the deposit/withdrawal fields instead of the price fields.
type AssetHolding struct {
	TokenSymbol          string          `json:"token_symbol"`
	Name                 string          `json:"name"`
	Address              string          `json:"address"`
	Balance              decimal.Decimal `json:"balance"`
	Tokens               decimal.Decimal `json:"tokens"`
	Value                decimal.Decimal `json:"value"`
	AvgPurchasePrice     decimal.Decimal `json:"avg_purchase_price"`
	CurrentPrice         decimal.Decimal `json:"current_price"`
	ProfitLoss           decimal.Decimal `json:"profit_loss"`
	ProfitLossPercentage decimal.Decimal `json:"profit_loss_percentage"`
	TotalPurchases       int             `json:"total_purchases"`
	SIPActive            bool            `json:"sip_active"`
	SIPAmount            decimal.Decimal `json:"sip_amount"`
	SIPFrequency         string          `json:"sip_frequency,omitempty"`
	VaultStored          bool            `json:"vault_stored"`
	StakingRewards       decimal.Decimal `json:"staking_rewards"`
	LastActivity         *time.Time      `json:"last_activity,omitempty"`

	TotalDeposits    decimal.Decimal `json:"total_deposits"`
	TotalWithdrawals decimal.Decimal `json:"total_withdrawals"`
	AvgBalance       decimal.Decimal `json:"avg_balance"`
	TransactionCount int             `json:"transaction_count"`
	InterestEarned   decimal.Decimal `json:"interest_earned"`
	YieldPercentage  decimal.Decimal `json:"yield_percentage"`
	WalletType       string          `json:"wallet_type,omitempty"`
}

// EffectiveValue returns the currency value the holding contributes to the portfolio.
// The stablecoin is valued at its balance, metals at their reported value.
func (h *AssetHolding) EffectiveValue(p Platform) decimal.Decimal {
	if h == nil {
		return decimal.Zero
	}
	if p == PlatformStable {
		return h.Balance
	}
	return h.Value
}

// AddressSet maps each platform to the user's wallet address on it
type AddressSet map[Platform]string

// Validate rejects unknown platforms and addresses that cannot be used as a URL path segment
func (a AddressSet) Validate() error {
	for p, addr := range a {
		if !p.IsValid() {
			return fmt.Errorf("unknown platform %q in address set", p)
		}
		if addr == "" {
			continue
		}
		if strings.ContainsAny(addr, " \t\r\n/?#") {
			return fmt.Errorf("malformed %s address %q", p, addr)
		}
	}
	return nil
}

// Get returns the address for a platform or "" when absent
func (a AddressSet) Get(p Platform) string {
	if a == nil {
		return ""
	}
	return a[p]
}

// CacheKey serializes the set deterministically; map keys are emitted in sorted order
func (a AddressSet) CacheKey() string {
	compact := make(map[Platform]string, len(a))
	for p, addr := range a {
		if addr != "" {
			compact[p] = addr
		}
	}
	b, err := json.Marshal(compact)
	if err != nil {
		return "{}"
	}
	return string(b)
}

// PortfolioMetrics are derived from the holdings of a single fetch
type PortfolioMetrics struct {
	TotalValue           decimal.Decimal              `json:"total_value"`
	TotalTokens          decimal.Decimal              `json:"total_tokens"`
	Allocation           map[Platform]decimal.Decimal `json:"allocation"`
	DiversificationIndex int                          `json:"diversification_index"`
	RiskLevel            string                       `json:"risk_level"`
	LastActivity         *time.Time                   `json:"last_activity,omitempty"`
}

// Portfolio is the aggregate a scoring request works from
type Portfolio struct {
	UserID       string              `json:"user_id"`
	Gold         *AssetHolding       `json:"gold,omitempty"`
	Silver       *AssetHolding       `json:"silver,omitempty"`
	Platinum     *AssetHolding       `json:"platinum,omitempty"`
	Stable       *AssetHolding       `json:"stable,omitempty"`
	Transactions []TransactionRecord `json:"transactions"`
	Metrics      PortfolioMetrics    `json:"metrics"`
	Income       *decimal.Decimal    `json:"income,omitempty"`
	Location     string              `json:"location,omitempty"`
	FetchedAt    time.Time           `json:"fetched_at"`
}

// Holding returns the holding for a platform, nil when absent
func (p *Portfolio) Holding(platform Platform) *AssetHolding {
	switch platform {
	case PlatformGold:
		return p.Gold
	case PlatformSilver:
		return p.Silver
	case PlatformPlatinum:
		return p.Platinum
	case PlatformStable:
		return p.Stable
	}
	return nil
}

// SetHolding stores the holding for a platform
func (p *Portfolio) SetHolding(platform Platform, h *AssetHolding) {
	switch platform {
	case PlatformGold:
		p.Gold = h
	case PlatformSilver:
		p.Silver = h
	case PlatformPlatinum:
		p.Platinum = h
	case PlatformStable:
		p.Stable = h
	}
}

// Value returns the effective value of one platform's holding
func (p *Portfolio) Value(platform Platform) decimal.Decimal {
	return p.Holding(platform).EffectiveValue(platform)
}

// TotalAssetValue sums the effective value of every present holding
func (p *Portfolio) TotalAssetValue() decimal.Decimal {
	total := decimal.Zero
	for _, platform := range AllPlatforms {
		total = total.Add(p.Value(platform))
	}
	return total
}

// PlatformStatus is the result of one platform health probe
type PlatformStatus struct {
	Online       bool          `json:"online"`
	ResponseTime time.Duration `json:"response_time"`
	LastCheck    time.Time     `json:"last_check"`
	Error        string        `json:"error,omitempty"`
}

// UserProfile carries the optional profile data used for income and location heuristics
type UserProfile struct {
	UserID    string           `json:"user_id"`
	Location  string           `json:"location,omitempty"`
	Locations []string         `json:"locations,omitempty"`
	Income    *decimal.Decimal `json:"income,omitempty"`
}
