// Package portfolio assembles a user's holdings and consolidated ledger across the asset platforms.
package portfolio

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/mcs-service/mcs_service/internal/domain/entities"
	apperrors "github.com/mcs-service/mcs_service/pkg/errors"
	"github.com/mcs-service/mcs_service/pkg/events"
	"github.com/mcs-service/mcs_service/pkg/logger"
	"github.com/mcs-service/mcs_service/pkg/metrics"
	"github.com/mcs-service/mcs_service/pkg/tracing"
	"go.opentelemetry.io/otel/attribute"
)

// PlatformClient is the capability the aggregator needs from one asset platform
type PlatformClient interface {
	FetchHolding(ctx context.Context, address string) (*entities.AssetHolding, error)
	FetchTransactions(ctx context.Context, address string, limit int) ([]entities.TransactionRecord, error)
	Health(ctx context.Context) (time.Duration, error)
}

// Source binds a platform to its client and display metadata
type Source struct {
	Platform    entities.Platform
	TokenSymbol string
	Name        string
	Client      PlatformClient
}

// Cache stores assembled portfolios by key
type Cache interface {
	Get(ctx context.Context, key string) (*entities.Portfolio, bool, error)
	Set(ctx context.Context, key string, p *entities.Portfolio, ttl time.Duration) error
	DeleteByPrefix(ctx context.Context, prefix string) (int, error)
}

// Config controls fetch timeouts and caching
type Config struct {
	FetchTimeout     time.Duration
	HealthTimeout    time.Duration
	TransactionLimit int
	CacheTTL         time.Duration
}

// DefaultConfig returns the production defaults
func DefaultConfig() Config {
	return Config{
		FetchTimeout:     10 * time.Second,
		HealthTimeout:    5 * time.Second,
		TransactionLimit: 100,
		CacheTTL:         5 * time.Minute,
	}
}

// Aggregator fetches portfolios across platforms
type Aggregator struct {
	sources   []Source
	cache     Cache
	publisher events.Publisher
	logger    *logger.Logger
	cfg       Config
	now       func() time.Time
}

// NewAggregator creates an aggregator. A nil cache disables caching.
func NewAggregator(sources []Source, cache Cache, publisher events.Publisher, log *logger.Logger, cfg Config) *Aggregator {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	if log == nil {
		log = logger.NewNop()
	}
	defaults := DefaultConfig()
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = defaults.FetchTimeout
	}
	if cfg.HealthTimeout <= 0 {
		cfg.HealthTimeout = defaults.HealthTimeout
	}
	if cfg.TransactionLimit <= 0 {
		cfg.TransactionLimit = defaults.TransactionLimit
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = defaults.CacheTTL
	}
	return &Aggregator{
		sources:   sources,
		cache:     cache,
		publisher: publisher,
		logger:    log,
		cfg:       cfg,
		now:       time.Now,
	}
}

// Key returns the cache key for a user and address set
func Key(userID string, addresses entities.AddressSet) string {
	return userID + "_" + addresses.CacheKey()
}

// FetchPortfolio returns the user's portfolio, served from cache when fresh.
// Individual platform failures leave that holding absent; only invalid input fails the call.
func (a *Aggregator) FetchPortfolio(ctx context.Context, userID string, addresses entities.AddressSet) (*entities.Portfolio, error) {
	ctx, span := tracing.StartSpan(ctx, "portfolio.fetch", attribute.String("user_id", userID))
	var err error
	defer func() { tracing.End(span, err) }()

	if strings.TrimSpace(userID) == "" {
		err = apperrors.PortfolioFetchFailed(userID, fmt.Errorf("user id is required"))
		return nil, err
	}
	if verr := addresses.Validate(); verr != nil {
		err = apperrors.PortfolioFetchFailed(userID, verr)
		return nil, err
	}

	key := Key(userID, addresses)
	if cached := a.lookup(ctx, key); cached != nil {
		span.SetAttributes(attribute.Bool("cache_hit", true))
		return cached, nil
	}

	start := a.now()
	p := &entities.Portfolio{UserID: userID, FetchedAt: start}

	var wg sync.WaitGroup
	var mu sync.Mutex
	var ledger []entities.TransactionRecord

	for _, src := range a.sources {
		address := addresses.Get(src.Platform)
		if address == "" {
			continue
		}

		wg.Add(2)
		go func(src Source, address string) {
			defer wg.Done()
			holding := a.fetchHolding(ctx, userID, src, address)
			if holding == nil {
				return
			}
			mu.Lock()
			p.SetHolding(src.Platform, holding)
			mu.Unlock()
		}(src, address)

		go func(src Source, address string) {
			defer wg.Done()
			txs := a.fetchTransactions(ctx, userID, src, address)
			if len(txs) == 0 {
				return
			}
			mu.Lock()
			ledger = append(ledger, txs...)
			mu.Unlock()
		}(src, address)
	}
	wg.Wait()

	SortLedger(ledger)
	if ledger == nil {
		ledger = []entities.TransactionRecord{}
	}
	p.Transactions = ledger
	p.Metrics = ComputeMetrics(p)

	a.store(ctx, key, p)
	a.logger.CtxInfo(ctx, "Portfolio fetched",
		"user_id", userID,
		"total_value", p.Metrics.TotalValue.String(),
		"transactions", len(p.Transactions),
		"duration_ms", a.now().Sub(start).Milliseconds())

	a.publisher.Publish(ctx, events.TopicPortfolioFetched, userID, p)
	return p, nil
}

func (a *Aggregator) fetchHolding(ctx context.Context, userID string, src Source, address string) *entities.AssetHolding {
	ctx, cancel := context.WithTimeout(ctx, a.cfg.FetchTimeout)
	defer cancel()

	holding, err := src.Client.FetchHolding(ctx, address)
	if err != nil {
		a.logger.CtxWarn(ctx, "Platform holding unavailable",
			"user_id", userID,
			"platform", string(src.Platform),
			"error", err)
		return nil
	}
	if holding == nil {
		return nil
	}
	if holding.TokenSymbol == "" {
		holding.TokenSymbol = src.TokenSymbol
	}
	if holding.Name == "" {
		holding.Name = src.Name
	}
	if holding.Address == "" {
		holding.Address = address
	}
	return holding
}

func (a *Aggregator) fetchTransactions(ctx context.Context, userID string, src Source, address string) []entities.TransactionRecord {
	ctx, cancel := context.WithTimeout(ctx, a.cfg.FetchTimeout)
	defer cancel()

	txs, err := src.Client.FetchTransactions(ctx, address, a.cfg.TransactionLimit)
	if err != nil {
		a.logger.CtxWarn(ctx, "Platform transactions unavailable",
			"user_id", userID,
			"platform", string(src.Platform),
			"error", err)
		return nil
	}

	tagged := make([]entities.TransactionRecord, 0, len(txs))
	for _, tx := range txs {
		tx.Platform = src.Platform
		tx.TokenSymbol = src.TokenSymbol
		tx.PlatformName = src.Name
		if verr := tx.Validate(); verr != nil {
			a.logger.CtxWarn(ctx, "Dropping malformed platform transaction",
				"user_id", userID,
				"platform", string(src.Platform),
				"error", verr)
			continue
		}
		tagged = append(tagged, tx)
	}
	return tagged
}

// SortLedger orders records newest first; equal timestamps are ordered by ID
func SortLedger(txs []entities.TransactionRecord) {
	sort.SliceStable(txs, func(i, j int) bool {
		if txs[i].Timestamp.Equal(txs[j].Timestamp) {
			return txs[i].ID < txs[j].ID
		}
		return txs[i].Timestamp.After(txs[j].Timestamp)
	})
}

func (a *Aggregator) lookup(ctx context.Context, key string) *entities.Portfolio {
	if a.cache == nil {
		return nil
	}
	p, ok, err := a.cache.Get(ctx, key)
	if err != nil {
		a.logger.CtxWarn(ctx, "Portfolio cache read failed", "key", key, "error", err)
		return nil
	}
	if !ok {
		return nil
	}
	return p
}

func (a *Aggregator) store(ctx context.Context, key string, p *entities.Portfolio) {
	if a.cache == nil {
		return
	}
	if err := a.cache.Set(ctx, key, p, a.cfg.CacheTTL); err != nil {
		a.logger.CtxWarn(ctx, "Portfolio cache write failed", "key", key, "error", err)
	}
}

// InvalidateUser removes every cached portfolio of the user regardless of address set
func (a *Aggregator) InvalidateUser(ctx context.Context, userID string) (int, error) {
	if a.cache == nil {
		return 0, nil
	}
	if strings.TrimSpace(userID) == "" {
		return 0, apperrors.NewValidationError("user id is required")
	}
	n, err := a.cache.DeleteByPrefix(ctx, userID+"_")
	if err != nil {
		return 0, apperrors.Wrapf(err, "invalidate portfolio cache for %s", userID)
	}
	a.logger.CtxInfo(ctx, "Portfolio cache invalidated", "user_id", userID, "entries", n)
	return n, nil
}

// PlatformStatus probes every platform's health endpoint concurrently
func (a *Aggregator) PlatformStatus(ctx context.Context) map[entities.Platform]entities.PlatformStatus {
	statuses := make(map[entities.Platform]entities.PlatformStatus, len(a.sources))
	var mu sync.Mutex
	var wg sync.WaitGroup

	for _, src := range a.sources {
		wg.Add(1)
		go func(src Source) {
			defer wg.Done()
			status := a.probe(ctx, src)
			metrics.UpdatePlatformOnline(string(src.Platform), status.Online)

			mu.Lock()
			statuses[src.Platform] = status
			mu.Unlock()
		}(src)
	}
	wg.Wait()
	return statuses
}

func (a *Aggregator) probe(ctx context.Context, src Source) entities.PlatformStatus {
	ctx, cancel := context.WithTimeout(ctx, a.cfg.HealthTimeout)
	defer cancel()

	start := a.now()
	latency, err := src.Client.Health(ctx)
	status := entities.PlatformStatus{LastCheck: a.now()}
	if err != nil {
		status.Error = err.Error()
		status.ResponseTime = a.now().Sub(start)
		return status
	}
	status.Online = true
	status.ResponseTime = latency
	return status
}

// Sources returns the configured platform sources
func (a *Aggregator) Sources() []Source {
	return a.sources
}
