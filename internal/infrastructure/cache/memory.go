package cache

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/mcs-service/mcs_service/internal/domain/entities"
	"github.com/mcs-service/mcs_service/pkg/metrics"
)

const backendMemory = "memory"

type memoryEntry struct {
	portfolio *entities.Portfolio
	expiresAt time.Time
}

// MemoryPortfolioCache is the process-local portfolio cache.
// Writes are last-writer-wins and stale entries are evicted when read.
type MemoryPortfolioCache struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	now     func() time.Time
}

// NewMemoryPortfolioCache creates an empty cache
func NewMemoryPortfolioCache() *MemoryPortfolioCache {
	return &MemoryPortfolioCache{
		entries: make(map[string]memoryEntry),
		now:     time.Now,
	}
}

// WithClock overrides the time source, for tests
func (c *MemoryPortfolioCache) WithClock(now func() time.Time) *MemoryPortfolioCache {
	c.now = now
	return c
}

// Get returns a shallow copy of the cached portfolio when it has not expired
func (c *MemoryPortfolioCache) Get(_ context.Context, key string) (*entities.Portfolio, bool, error) {
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok {
		metrics.RecordCacheLookup(backendMemory, "miss")
		return nil, false, nil
	}
	if !c.now().Before(entry.expiresAt) {
		c.mu.Lock()
		if current, still := c.entries[key]; still && current.expiresAt.Equal(entry.expiresAt) {
			delete(c.entries, key)
		}
		c.mu.Unlock()
		metrics.RecordCacheLookup(backendMemory, "miss")
		return nil, false, nil
	}

	metrics.RecordCacheLookup(backendMemory, "hit")
	cp := *entry.portfolio
	return &cp, true, nil
}

// Set stores a shallow copy of the portfolio
func (c *MemoryPortfolioCache) Set(_ context.Context, key string, p *entities.Portfolio, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = defaultPortfolioTTL
	}
	cp := *p

	c.mu.Lock()
	c.entries[key] = memoryEntry{portfolio: &cp, expiresAt: c.now().Add(ttl)}
	c.mu.Unlock()
	return nil
}

// DeleteByPrefix removes every key starting with prefix
func (c *MemoryPortfolioCache) DeleteByPrefix(_ context.Context, prefix string) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := 0
	for key := range c.entries {
		if strings.HasPrefix(key, prefix) {
			delete(c.entries, key)
			n++
		}
	}
	return n, nil
}

// Sweep drops expired entries and returns how many were removed
func (c *MemoryPortfolioCache) Sweep() int {
	now := c.now()

	c.mu.Lock()
	defer c.mu.Unlock()

	n := 0
	for key, entry := range c.entries {
		if !now.Before(entry.expiresAt) {
			delete(c.entries, key)
			n++
		}
	}
	return n
}

// Len returns the number of stored entries, expired or not
func (c *MemoryPortfolioCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
