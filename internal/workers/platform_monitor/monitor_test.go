package platform_monitor

import (
	"context"
	"testing"
	"time"

	"github.com/mcs-service/mcs_service/internal/domain/entities"
	"github.com/mcs-service/mcs_service/internal/domain/services/portfolio"
	"github.com/mcs-service/mcs_service/internal/infrastructure/cache"
	"github.com/mcs-service/mcs_service/internal/infrastructure/platforms"
	"github.com/mcs-service/mcs_service/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func newAggregator(t *testing.T) (*portfolio.Aggregator, map[entities.Platform]*platforms.FakeClient) {
	t.Helper()
	fakes := make(map[entities.Platform]*platforms.FakeClient)
	var sources []portfolio.Source
	for _, p := range entities.AllPlatforms {
		fakes[p] = platforms.NewFakeClient(p)
		sources = append(sources, portfolio.Source{Platform: p, Client: fakes[p]})
	}
	agg := portfolio.NewAggregator(sources, nil, nil, logger.NewLogger(zaptest.NewLogger(t)), portfolio.Config{})
	return agg, fakes
}

func TestMonitor_RunOnceTracksOfflineStreaks(t *testing.T) {
	agg, fakes := newAggregator(t)
	fakes[entities.PlatformSilver].Fail(false, false, true)

	m := NewMonitor(agg, nil, DefaultConfig(), zaptest.NewLogger(t))
	m.RunOnce(context.Background())
	m.RunOnce(context.Background())

	stats := m.Stats()
	assert.Equal(t, int64(2), stats.TotalRuns)
	assert.Equal(t, 1, stats.OfflineCount)
	assert.Equal(t, 2, stats.OfflineStreaks[entities.PlatformSilver])
	assert.Equal(t, 0, stats.OfflineStreaks[entities.PlatformGold])
	assert.True(t, stats.LastStatus[entities.PlatformGold].Online)
	assert.False(t, stats.LastStatus[entities.PlatformSilver].Online)

	fakes[entities.PlatformSilver].Fail(false, false, false)
	m.RunOnce(context.Background())
	stats = m.Stats()
	assert.Equal(t, 0, stats.OfflineCount)
	assert.Equal(t, 0, stats.OfflineStreaks[entities.PlatformSilver])
}

func TestMonitor_RunOnceSweepsExpiredEntries(t *testing.T) {
	agg, _ := newAggregator(t)
	now := time.Now()
	mem := cache.NewMemoryPortfolioCache().WithClock(func() time.Time { return now })

	ctx := context.Background()
	require.NoError(t, mem.Set(ctx, "u1_{}", &entities.Portfolio{UserID: "u1"}, time.Minute))
	require.NoError(t, mem.Set(ctx, "u2_{}", &entities.Portfolio{UserID: "u2"}, time.Hour))
	now = now.Add(2 * time.Minute)

	m := NewMonitor(agg, mem, DefaultConfig(), zaptest.NewLogger(t))
	m.RunOnce(ctx)

	assert.Equal(t, 1, mem.Len())
	assert.Equal(t, int64(1), m.Stats().EntriesSwept)
}

func TestMonitor_StatsIsASnapshot(t *testing.T) {
	agg, _ := newAggregator(t)
	m := NewMonitor(agg, nil, DefaultConfig(), nil)
	m.RunOnce(context.Background())

	stats := m.Stats()
	stats.LastStatus[entities.PlatformGold] = entities.PlatformStatus{Error: "mutated"}
	assert.Empty(t, m.Stats().LastStatus[entities.PlatformGold].Error)
}

func TestMonitor_StartStop(t *testing.T) {
	agg, fakes := newAggregator(t)
	m := NewMonitor(agg, nil, Config{Schedule: "@every 10ms"}, zaptest.NewLogger(t))

	require.NoError(t, m.Start())
	assert.Error(t, m.Start(), "second start must fail")

	require.Eventually(t, func() bool {
		_, _, health := fakes[entities.PlatformGold].Calls()
		return health > 0
	}, 2*time.Second, 10*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, m.Stop(ctx))
	assert.Error(t, m.Stop(ctx), "stopping twice must fail")
}

func TestMonitor_StartRejectsBadSchedule(t *testing.T) {
	agg, _ := newAggregator(t)
	m := NewMonitor(agg, nil, Config{Schedule: "every now and then"}, zaptest.NewLogger(t))
	assert.Error(t, m.Start())
}
