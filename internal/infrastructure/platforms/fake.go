package platforms

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/mcs-service/mcs_service/internal/domain/entities"
)

// ErrFakeUnavailable is returned by a FakeClient configured to fail
var ErrFakeUnavailable = errors.New("platform unavailable")

// FakeClient is a deterministic in-memory platform for tests and local runs
type FakeClient struct {
	platform entities.Platform

	mu           sync.RWMutex
	holdings     map[string]*entities.AssetHolding
	transactions map[string][]entities.TransactionRecord
	failHoldings bool
	failTxs      bool
	failHealth   bool
	latency      time.Duration

	holdingCalls     int64
	transactionCalls int64
	healthCalls      int64
}

// NewFakeClient creates an empty fake for platform
func NewFakeClient(platform entities.Platform) *FakeClient {
	return &FakeClient{
		platform:     platform,
		holdings:     make(map[string]*entities.AssetHolding),
		transactions: make(map[string][]entities.TransactionRecord),
	}
}

// SetHolding registers the holding returned for address
func (f *FakeClient) SetHolding(address string, h *entities.AssetHolding) *FakeClient {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.holdings[address] = h
	return f
}

// SetTransactions registers the ledger returned for address
func (f *FakeClient) SetTransactions(address string, txs []entities.TransactionRecord) *FakeClient {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.transactions[address] = txs
	return f
}

// Fail makes the selected operations return ErrFakeUnavailable
func (f *FakeClient) Fail(holdings, transactions, health bool) *FakeClient {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failHoldings, f.failTxs, f.failHealth = holdings, transactions, health
	return f
}

// SetLatency delays every call by d, honoring ctx cancellation
func (f *FakeClient) SetLatency(d time.Duration) *FakeClient {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.latency = d
	return f
}

func (f *FakeClient) wait(ctx context.Context) error {
	f.mu.RLock()
	d := f.latency
	f.mu.RUnlock()
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// FetchHolding returns a copy of the registered holding
func (f *FakeClient) FetchHolding(ctx context.Context, address string) (*entities.AssetHolding, error) {
	atomic.AddInt64(&f.holdingCalls, 1)
	if err := f.wait(ctx); err != nil {
		return nil, err
	}

	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.failHoldings {
		return nil, ErrFakeUnavailable
	}
	h, ok := f.holdings[address]
	if !ok {
		return nil, errors.New("address not found")
	}
	cp := *h
	return &cp, nil
}

// FetchTransactions returns at most limit registered records
func (f *FakeClient) FetchTransactions(ctx context.Context, address string, limit int) ([]entities.TransactionRecord, error) {
	atomic.AddInt64(&f.transactionCalls, 1)
	if err := f.wait(ctx); err != nil {
		return nil, err
	}

	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.failTxs {
		return nil, ErrFakeUnavailable
	}
	txs := f.transactions[address]
	if limit > 0 && len(txs) > limit {
		txs = txs[:limit]
	}
	out := make([]entities.TransactionRecord, len(txs))
	copy(out, txs)
	return out, nil
}

// Health reports the configured latency
func (f *FakeClient) Health(ctx context.Context) (time.Duration, error) {
	atomic.AddInt64(&f.healthCalls, 1)
	if err := f.wait(ctx); err != nil {
		return 0, err
	}

	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.failHealth {
		return 0, ErrFakeUnavailable
	}
	return f.latency, nil
}

// Calls returns how many holding, transaction and health calls were made
func (f *FakeClient) Calls() (holdings, transactions, health int64) {
	return atomic.LoadInt64(&f.holdingCalls),
		atomic.LoadInt64(&f.transactionCalls),
		atomic.LoadInt64(&f.healthCalls)
}

// Platform returns the platform this fake serves
func (f *FakeClient) Platform() entities.Platform {
	return f.platform
}
