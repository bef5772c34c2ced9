package platforms

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/mcs-service/mcs_service/internal/domain/entities"
	"github.com/mcs-service/mcs_service/pkg/circuitbreaker"
	apperrors "github.com/mcs-service/mcs_service/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func newTestClient(t *testing.T, platform entities.Platform, handler http.HandlerFunc) *HTTPClient {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	return NewHTTPClient(Config{
		Platform:    platform,
		BaseURL:     server.URL + "/api/",
		APIToken:    "secret",
		TokenSymbol: "BGT",
		Name:        "Bharat Gold Token",
		Timeout:     2 * time.Second,
		Breaker:     circuitbreaker.Config{MaxRequests: 1, Interval: time.Minute, Timeout: time.Minute},
	}, zaptest.NewLogger(t))
}

func TestHTTPClient_FetchHolding(t *testing.T) {
	client := newTestClient(t, entities.PlatformGold, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/portfolio/0xabc", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"balance":2.5,"tokens":"2.5","inrValue":20000,"lastPurchaseDate":"2025-05-01T10:00:00Z",
			"totalPurchases":7,"sipActive":true,"sipAmount":1000,"sipFrequency":"monthly","vaultStored":true}`))
	})

	h, err := client.FetchHolding(context.Background(), "0xabc")
	require.NoError(t, err)
	assert.Equal(t, "BGT", h.TokenSymbol)
	assert.Equal(t, "0xabc", h.Address)
	assert.True(t, h.Value.Equal(decimal.NewFromInt(20000)))
	assert.True(t, h.Tokens.Equal(decimal.RequireFromString("2.5")))
	assert.True(t, h.SIPActive)
	assert.Equal(t, 7, h.TotalPurchases)
	require.NotNil(t, h.LastActivity)
	assert.Equal(t, 2025, h.LastActivity.Year())
}

func TestHTTPClient_FetchStableHolding(t *testing.T) {
	client := newTestClient(t, entities.PlatformStable, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"balance":5000,"totalDeposits":8000,"totalWithdrawals":3000,"interestEarned":120,"transactionCount":4}`))
	})

	h, err := client.FetchHolding(context.Background(), "binr-1")
	require.NoError(t, err)
	assert.True(t, h.Balance.Equal(decimal.NewFromInt(5000)))
	assert.True(t, h.Value.IsZero())
	assert.Equal(t, "standard", h.WalletType)
	assert.Equal(t, 4, h.TransactionCount)
	assert.True(t, h.EffectiveValue(entities.PlatformStable).Equal(decimal.NewFromInt(5000)))
}

func TestHTTPClient_FetchTransactions(t *testing.T) {
	client := newTestClient(t, entities.PlatformGold, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/transactions/0xabc", r.URL.Path)
		assert.Equal(t, "50", r.URL.Query().Get("limit"))
		w.Write([]byte(`[
			{"id":"t1","type":"purchase","amount":1000,"timestamp":"2025-05-01T10:00:00Z","sipContribution":true},
			{"type":"sale","amount":"250.50","timestamp":1746093600000,"from":"w1","to":"w2"},
			{"id":"t3","type":"purchase","amount":500,"timestamp":"2025-05-02T09:00:00+05:30"}
		]`))
	})

	txs, err := client.FetchTransactions(context.Background(), "0xabc", 50)
	require.NoError(t, err)
	require.Len(t, txs, 3)

	assert.Equal(t, "t1", txs[0].ID)
	assert.Equal(t, entities.PlatformGold, txs[0].Platform)
	assert.Equal(t, "Bharat Gold Token", txs[0].PlatformName)
	assert.True(t, txs[0].SIPContribution)

	assert.NotEmpty(t, txs[1].ID)
	assert.Equal(t, entities.TransactionTypeSale, txs[1].Type)
	assert.True(t, txs[1].Amount.Equal(decimal.RequireFromString("250.5")))
	assert.Equal(t, time.UnixMilli(1746093600000).UTC(), txs[1].Timestamp)

	_, offset := txs[2].Timestamp.Zone()
	assert.Equal(t, 5*60*60+30*60, offset, "offset must survive decoding")
	assert.Equal(t, 9, txs[2].Timestamp.Hour())
	assert.True(t, txs[2].Timestamp.Equal(time.Date(2025, 5, 2, 3, 30, 0, 0, time.UTC)))
}

func TestHTTPClient_ServerErrorsTripBreaker(t *testing.T) {
	calls := 0
	client := newTestClient(t, entities.PlatformSilver, func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusInternalServerError)
	})

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		_, err := client.FetchHolding(ctx, "addr")
		require.Error(t, err)
		assert.Equal(t, apperrors.ErrorTypeExternal, apperrors.GetType(err))
	}

	_, err := client.FetchHolding(ctx, "addr")
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrorTypeCircuitOpen, apperrors.ClassifyError(err))
	assert.Equal(t, 3, calls)
}

func TestHTTPClient_NotFoundDoesNotTripBreaker(t *testing.T) {
	calls := 0
	client := newTestClient(t, entities.PlatformSilver, func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusNotFound)
	})

	for i := 0; i < 5; i++ {
		_, err := client.FetchHolding(context.Background(), "unknown")
		require.Error(t, err)
		assert.Equal(t, apperrors.ErrorTypeNotFound, apperrors.GetType(err))
	}
	assert.Equal(t, 5, calls)
}

func TestHTTPClient_Health(t *testing.T) {
	client := newTestClient(t, entities.PlatformGold, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/health", r.URL.Path)
		assert.Empty(t, r.Header.Get("Authorization"))
		w.Header().Set("X-Response-Time", "42ms")
		w.WriteHeader(http.StatusOK)
	})

	latency, err := client.Health(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 42*time.Millisecond, latency)
}

func TestHTTPClient_HealthDown(t *testing.T) {
	client := newTestClient(t, entities.PlatformGold, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	_, err := client.Health(context.Background())
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrorTypeTransient, apperrors.GetType(err))
}

func TestParseResponseTime(t *testing.T) {
	d, ok := parseResponseTime("12")
	assert.True(t, ok)
	assert.Equal(t, 12*time.Millisecond, d)

	d, ok = parseResponseTime("0.5s")
	assert.True(t, ok)
	assert.Equal(t, 500*time.Millisecond, d)

	_, ok = parseResponseTime("N/A")
	assert.False(t, ok)
}

func TestFakeClient(t *testing.T) {
	fake := NewFakeClient(entities.PlatformGold).
		SetHolding("a", &entities.AssetHolding{Value: decimal.NewFromInt(10)}).
		SetTransactions("a", []entities.TransactionRecord{{ID: "1"}, {ID: "2"}, {ID: "3"}})

	ctx := context.Background()
	h, err := fake.FetchHolding(ctx, "a")
	require.NoError(t, err)
	h.Value = decimal.NewFromInt(99)

	again, _ := fake.FetchHolding(ctx, "a")
	assert.True(t, again.Value.Equal(decimal.NewFromInt(10)))

	txs, err := fake.FetchTransactions(ctx, "a", 2)
	require.NoError(t, err)
	assert.Len(t, txs, 2)

	fake.Fail(true, false, true)
	_, err = fake.FetchHolding(ctx, "a")
	assert.ErrorIs(t, err, ErrFakeUnavailable)
	_, err = fake.Health(ctx)
	assert.ErrorIs(t, err, ErrFakeUnavailable)

	holdings, transactions, health := fake.Calls()
	assert.Equal(t, int64(3), holdings)
	assert.Equal(t, int64(1), transactions)
	assert.Equal(t, int64(1), health)
}

func TestFakeClient_LatencyHonorsContext(t *testing.T) {
	fake := NewFakeClient(entities.PlatformGold).SetLatency(time.Second)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := fake.FetchHolding(ctx, "a")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
