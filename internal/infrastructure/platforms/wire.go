package platforms

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/mcs-service/mcs_service/internal/domain/entities"
	"github.com/shopspring/decimal"
)

// flexTime accepts RFC 3339 strings, unix milliseconds or null.
// RFC 3339 values keep their offset; unix values are UTC.
type flexTime struct {
	time.Time
}

func (t *flexTime) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		if s == "" {
			return nil
		}
		parsed, err := time.Parse(time.RFC3339Nano, s)
		if err != nil {
			return fmt.Errorf("invalid timestamp %q: %w", s, err)
		}
		t.Time = parsed
		return nil
	}
	ms, err := strconv.ParseInt(string(b), 10, 64)
	if err != nil {
		return fmt.Errorf("invalid timestamp %s: %w", b, err)
	}
	t.Time = time.UnixMilli(ms).UTC()
	return nil
}

func (t flexTime) ptr() *time.Time {
	if t.IsZero() {
		return nil
	}
	v := t.Time
	return &v
}

// holdingResponse is the GET /portfolio/{address} body of every platform.
// The stablecoin platform fills the deposit fields instead of the price fields.
type holdingResponse struct {
	Balance              decimal.Decimal `json:"balance"`
	Tokens               decimal.Decimal `json:"tokens"`
	InrValue             decimal.Decimal `json:"inrValue"`
	LastPurchaseDate     flexTime        `json:"lastPurchaseDate"`
	TotalPurchases       int             `json:"totalPurchases"`
	AvgPurchasePrice     decimal.Decimal `json:"avgPurchasePrice"`
	CurrentPrice         decimal.Decimal `json:"currentPrice"`
	ProfitLoss           decimal.Decimal `json:"profitLoss"`
	ProfitLossPercentage decimal.Decimal `json:"profitLossPercentage"`
	SIPActive            bool            `json:"sipActive"`
	SIPAmount            decimal.Decimal `json:"sipAmount"`
	SIPFrequency         string          `json:"sipFrequency"`
	VaultStored          bool            `json:"vaultStored"`
	StakingRewards       decimal.Decimal `json:"stakingRewards"`

	TotalDeposits       decimal.Decimal `json:"totalDeposits"`
	TotalWithdrawals    decimal.Decimal `json:"totalWithdrawals"`
	AvgBalance          decimal.Decimal `json:"avgBalance"`
	LastTransactionDate flexTime        `json:"lastTransactionDate"`
	TransactionCount    int             `json:"transactionCount"`
	InterestEarned      decimal.Decimal `json:"interestEarned"`
	YieldPercentage     decimal.Decimal `json:"yieldPercentage"`
	WalletType          string          `json:"walletType"`
}

func (r holdingResponse) toEntity(platform entities.Platform, symbol, name, address string) *entities.AssetHolding {
	h := &entities.AssetHolding{
		TokenSymbol: symbol,
		Name:        name,
		Address:     address,
		Balance:     r.Balance,
	}

	if platform == entities.PlatformStable {
		h.TotalDeposits = r.TotalDeposits
		h.TotalWithdrawals = r.TotalWithdrawals
		h.AvgBalance = r.AvgBalance
		h.TransactionCount = r.TransactionCount
		h.InterestEarned = r.InterestEarned
		h.YieldPercentage = r.YieldPercentage
		h.WalletType = r.WalletType
		if h.WalletType == "" {
			h.WalletType = "standard"
		}
		h.LastActivity = r.LastTransactionDate.ptr()
		return h
	}

	h.Tokens = r.Tokens
	h.Value = r.InrValue
	h.TotalPurchases = r.TotalPurchases
	h.AvgPurchasePrice = r.AvgPurchasePrice
	h.CurrentPrice = r.CurrentPrice
	h.ProfitLoss = r.ProfitLoss
	h.ProfitLossPercentage = r.ProfitLossPercentage
	h.SIPActive = r.SIPActive
	h.SIPAmount = r.SIPAmount
	h.SIPFrequency = r.SIPFrequency
	h.VaultStored = r.VaultStored
	h.StakingRewards = r.StakingRewards
	h.LastActivity = r.LastPurchaseDate.ptr()
	return h
}

// transactionResponse is one element of the GET /transactions/{address} array
type transactionResponse struct {
	ID              string          `json:"id"`
	Type            string          `json:"type"`
	Amount          decimal.Decimal `json:"amount"`
	Timestamp       flexTime        `json:"timestamp"`
	SIPContribution bool            `json:"sipContribution"`
	From            string          `json:"from"`
	To              string          `json:"to"`
}

func (r transactionResponse) toEntity(platform entities.Platform, symbol, name string) entities.TransactionRecord {
	id := r.ID
	if id == "" {
		id = uuid.NewString()
	}
	return entities.TransactionRecord{
		ID:              id,
		Platform:        platform,
		Type:            entities.TransactionType(r.Type),
		Amount:          r.Amount,
		Timestamp:       r.Timestamp.Time,
		SIPContribution: r.SIPContribution,
		From:            r.From,
		To:              r.To,
		TokenSymbol:     symbol,
		PlatformName:    name,
	}
}

// parseResponseTime reads an x-response-time header such as "12ms", "0.4s" or "12"
func parseResponseTime(v string) (time.Duration, bool) {
	if v == "" {
		return 0, false
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d, true
	}
	if ms, err := strconv.ParseFloat(v, 64); err == nil {
		return time.Duration(ms * float64(time.Millisecond)), true
	}
	return 0, false
}
