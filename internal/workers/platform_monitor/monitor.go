// Package platform_monitor periodically probes the asset platforms and sweeps the local portfolio cache.
package platform_monitor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/mcs-service/mcs_service/internal/domain/entities"
	"github.com/robfig/cron/v3"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// StatusProber probes every platform; the aggregator also publishes the result as a gauge
type StatusProber interface {
	PlatformStatus(ctx context.Context) map[entities.Platform]entities.PlatformStatus
}

// Sweeper drops expired cache entries
type Sweeper interface {
	Sweep() int
}

// Config controls the monitor schedule
type Config struct {
	Schedule     string        `mapstructure:"schedule"`
	ProbeTimeout time.Duration `mapstructure:"probe_timeout"`
}

// DefaultConfig probes every minute
func DefaultConfig() Config {
	return Config{
		Schedule:     "@every 1m",
		ProbeTimeout: 15 * time.Second,
	}
}

// RunStats summarizes the monitor's runs so far
type RunStats struct {
	TotalRuns      int64                                         `json:"total_runs"`
	LastRun        time.Time                                     `json:"last_run"`
	LastDuration   time.Duration                                 `json:"last_duration"`
	OfflineCount   int                                           `json:"offline_count"`
	EntriesSwept   int64                                         `json:"entries_swept"`
	LastStatus     map[entities.Platform]entities.PlatformStatus `json:"last_status"`
	OfflineStreaks map[entities.Platform]int                     `json:"offline_streaks"`
}

// zapCronLogger adapts zap to cron's printf logger
type zapCronLogger struct {
	logger *zap.Logger
}

func (l *zapCronLogger) Printf(format string, args ...interface{}) {
	l.logger.Sugar().Debugf(format, args...)
}

// Monitor runs the platform probe on a cron schedule
type Monitor struct {
	cron    *cron.Cron
	prober  StatusProber
	sweeper Sweeper
	config  Config
	logger  *zap.Logger
	tracer  trace.Tracer

	mu      sync.RWMutex
	running bool
	stats   RunStats
}

// NewMonitor creates a monitor. A nil sweeper skips cache sweeping.
func NewMonitor(prober StatusProber, sweeper Sweeper, config Config, logger *zap.Logger) *Monitor {
	if config.Schedule == "" {
		config.Schedule = DefaultConfig().Schedule
	}
	if config.ProbeTimeout <= 0 {
		config.ProbeTimeout = DefaultConfig().ProbeTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Monitor{
		cron:    cron.New(cron.WithLogger(cron.VerbosePrintfLogger(&zapCronLogger{logger: logger}))),
		prober:  prober,
		sweeper: sweeper,
		config:  config,
		logger:  logger,
		tracer:  otel.Tracer("platform-monitor"),
		stats: RunStats{
			LastStatus:     make(map[entities.Platform]entities.PlatformStatus),
			OfflineStreaks: make(map[entities.Platform]int),
		},
	}
}

// Start schedules the probe
func (m *Monitor) Start() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		return fmt.Errorf("platform monitor is already running")
	}
	if _, err := m.cron.AddFunc(m.config.Schedule, func() { m.RunOnce(context.Background()) }); err != nil {
		return fmt.Errorf("failed to add cron job: %w", err)
	}
	m.cron.Start()
	m.running = true

	var next time.Time
	if entries := m.cron.Entries(); len(entries) > 0 {
		next = entries[0].Next
	}
	m.logger.Info("Platform monitor started",
		zap.String("schedule", m.config.Schedule),
		zap.Time("next_run", next),
	)
	return nil
}

// Stop waits for a running probe to finish, bounded by ctx
func (m *Monitor) Stop(ctx context.Context) error {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return fmt.Errorf("platform monitor is not running")
	}
	m.running = false
	m.mu.Unlock()

	select {
	case <-m.cron.Stop().Done():
		m.logger.Info("Platform monitor stopped")
		return nil
	case <-ctx.Done():
		m.logger.Warn("Platform monitor stop timed out")
		return ctx.Err()
	}
}

// RunOnce probes every platform and sweeps the cache
func (m *Monitor) RunOnce(ctx context.Context) {
	start := time.Now()
	ctx, span := m.tracer.Start(ctx, "platform_monitor.run")
	defer span.End()

	probeCtx, cancel := context.WithTimeout(ctx, m.config.ProbeTimeout)
	statuses := m.prober.PlatformStatus(probeCtx)
	cancel()

	swept := 0
	if m.sweeper != nil {
		swept = m.sweeper.Sweep()
	}

	m.mu.Lock()
	m.stats.TotalRuns++
	m.stats.LastRun = start
	m.stats.LastDuration = time.Since(start)
	m.stats.EntriesSwept += int64(swept)
	m.stats.OfflineCount = 0
	for p, st := range statuses {
		m.stats.LastStatus[p] = st
		if st.Online {
			m.stats.OfflineStreaks[p] = 0
			continue
		}
		m.stats.OfflineCount++
		m.stats.OfflineStreaks[p]++
		if m.stats.OfflineStreaks[p] == 1 {
			m.logger.Warn("Platform went offline", zap.String("platform", string(p)), zap.String("error", st.Error))
		}
	}
	offline := m.stats.OfflineCount
	m.mu.Unlock()

	span.SetAttributes(
		attribute.Int("platforms.offline", offline),
		attribute.Int("cache.swept", swept),
	)
	m.logger.Debug("Platform monitor run complete",
		zap.Int("offline", offline),
		zap.Int("swept", swept),
		zap.Duration("duration", time.Since(start)),
	)
}

// Stats returns a snapshot of the run statistics
func (m *Monitor) Stats() RunStats {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := m.stats
	out.LastStatus = make(map[entities.Platform]entities.PlatformStatus, len(m.stats.LastStatus))
	for k, v := range m.stats.LastStatus {
		out.LastStatus[k] = v
	}
	out.OfflineStreaks = make(map[entities.Platform]int, len(m.stats.OfflineStreaks))
	for k, v := range m.stats.OfflineStreaks {
		out.OfflineStreaks[k] = v
	}
	return out
}
