package di

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/jmoiron/sqlx"
	"github.com/mcs-service/mcs_service/internal/domain/entities"
	"github.com/mcs-service/mcs_service/internal/domain/services/behavior"
	"github.com/mcs-service/mcs_service/internal/domain/services/pipeline"
	"github.com/mcs-service/mcs_service/internal/domain/services/portfolio"
	"github.com/mcs-service/mcs_service/internal/domain/services/risk"
	"github.com/mcs-service/mcs_service/internal/domain/services/scoring"
	"github.com/mcs-service/mcs_service/internal/infrastructure/cache"
	"github.com/mcs-service/mcs_service/internal/infrastructure/config"
	"github.com/mcs-service/mcs_service/internal/infrastructure/platforms"
	"github.com/mcs-service/mcs_service/internal/persistence/postgres"
	"github.com/mcs-service/mcs_service/pkg/events"
	"github.com/mcs-service/mcs_service/pkg/health"
	"github.com/mcs-service/mcs_service/pkg/logger"
	"go.uber.org/zap"
)

// Container holds all application dependencies
type Container struct {
	Config *config.Config
	Logger *logger.Logger
	ZapLog *zap.Logger

	// Infrastructure, nil when the matching feature is off
	Redis       redis.UniversalClient
	DB          *sqlx.DB
	MemoryCache *cache.MemoryPortfolioCache
	ScoreStore  *cache.RedisScoreStore
	ScoreRepo   *postgres.ScoreRepository

	Bus    *events.Bus
	Health *health.HealthChecker

	// Domain Services
	Aggregator  *portfolio.Aggregator
	Behavior    *behavior.Analyzer
	Risk        *risk.Analyzer
	Synthesizer *scoring.Synthesizer
	Pipeline    *pipeline.Service
}

// NewContainer connects the configured backends and wires the scoring services
func NewContainer(ctx context.Context, cfg *config.Config, log *logger.Logger) (*Container, error) {
	c := &Container{
		Config: cfg,
		Logger: log,
		ZapLog: log.Zap(),
		Health: health.NewHealthChecker(cfg.Scoring.HealthTimeout * 2),
	}
	c.Bus = events.NewBus(c.ZapLog)

	if err := c.initializeBackends(ctx); err != nil {
		_ = c.Close()
		return nil, err
	}
	if err := c.initializeDomainServices(); err != nil {
		_ = c.Close()
		return nil, err
	}
	return c, nil
}

func (c *Container) initializeBackends(ctx context.Context) error {
	cfg := c.Config

	if cfg.Scoring.CacheBackend == "redis" || cfg.Scoring.ScoreSink == "redis" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr(),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := client.Ping(pingCtx).Err(); err != nil {
			_ = client.Close()
			return fmt.Errorf("failed to connect to redis at %s: %w", cfg.Redis.Addr(), err)
		}
		c.Redis = client
		c.Health.Register(health.NewRedisChecker(client, 0))
		c.ZapLog.Info("Redis connected", zap.String("addr", cfg.Redis.Addr()))
	}

	if cfg.Scoring.ScoreSink == "redis" {
		c.ScoreStore = cache.NewRedisScoreStore(c.Redis, "", c.ZapLog)
	}

	if cfg.Database.Enabled {
		db, err := postgres.Open(ctx, postgres.Config{
			URL:             cfg.Database.URL,
			MaxOpenConns:    cfg.Database.MaxOpenConns,
			MaxIdleConns:    cfg.Database.MaxIdleConns,
			ConnMaxLifetime: time.Duration(cfg.Database.ConnMaxLifetime) * time.Second,
		})
		if err != nil {
			return err
		}
		c.DB = db
		if err := postgres.RunMigrations(db); err != nil {
			return err
		}
		c.ScoreRepo = postgres.NewScoreRepository(db, c.ZapLog)
		c.Health.Register(health.NewDatabaseChecker(db.DB, 0))
		c.ZapLog.Info("Score history database ready")
	}
	return nil
}

func (c *Container) initializeDomainServices() error {
	cfg := c.Config

	var portfolioCache portfolio.Cache
	if cfg.Scoring.CacheBackend == "redis" {
		portfolioCache = cache.NewRedisPortfolioCache(c.Redis, "", c.ZapLog)
	} else {
		c.MemoryCache = cache.NewMemoryPortfolioCache()
		portfolioCache = c.MemoryCache
	}

	sources := c.platformSources()
	for _, src := range sources {
		c.Health.Register(health.NewPlatformChecker(string(src.Platform), src.Client, cfg.Scoring.HealthTimeout))
	}

	c.Aggregator = portfolio.NewAggregator(sources, portfolioCache, c.Bus, c.Logger, portfolio.Config{
		FetchTimeout:     cfg.Scoring.FetchTimeout,
		HealthTimeout:    cfg.Scoring.HealthTimeout,
		TransactionLimit: cfg.Scoring.TransactionLimit,
		CacheTTL:         cfg.Scoring.CacheTTL,
	})
	c.Behavior = behavior.NewAnalyzer(c.Bus, c.Logger)
	loc, err := cfg.Scoring.Location()
	if err != nil {
		return fmt.Errorf("invalid scoring timezone: %w", err)
	}
	c.Risk = risk.NewAnalyzer(c.Bus, c.Logger, risk.WithLocation(loc))
	c.Synthesizer = scoring.NewSynthesizer(c.Logger)

	var sinks []pipeline.ScoreSink
	if c.ScoreStore != nil {
		sinks = append(sinks, c.ScoreStore)
	}
	if c.ScoreRepo != nil {
		sinks = append(sinks, c.ScoreRepo)
	}

	pipelineCfg := pipeline.DefaultConfig()
	pipelineCfg.BatchGroupSize = cfg.Scoring.BatchGroupSize
	pipelineCfg.MaxBatchSize = cfg.Scoring.MaxBatchSize
	c.Pipeline = pipeline.NewService(c.Aggregator, c.Behavior, c.Risk, c.Synthesizer, c.Bus, c.Logger, pipelineCfg, sinks...)
	return nil
}

// platformSources builds one source per platform in canonical order
func (c *Container) platformSources() []portfolio.Source {
	cfg := c.Config
	table := map[entities.Platform]config.PlatformConfig{
		entities.PlatformGold:     cfg.Platforms.Gold,
		entities.PlatformSilver:   cfg.Platforms.Silver,
		entities.PlatformPlatinum: cfg.Platforms.Platinum,
		entities.PlatformStable:   cfg.Platforms.Stable,
	}

	sources := make([]portfolio.Source, 0, len(entities.AllPlatforms))
	for _, p := range entities.AllPlatforms {
		pc := table[p]
		var client portfolio.PlatformClient
		if cfg.Scoring.PlatformMode == "fake" {
			client = platforms.NewFakeClient(p)
		} else {
			client = platforms.NewHTTPClient(platforms.Config{
				Platform:     p,
				BaseURL:      pc.BaseURL,
				APIToken:     pc.APIToken,
				TokenSymbol:  pc.TokenSymbol,
				Name:         pc.Name,
				Timeout:      cfg.Scoring.FetchTimeout,
				RateLimitRPS: cfg.Scoring.RateLimitRPS,
			}, c.ZapLog)
		}
		sources = append(sources, portfolio.Source{
			Platform:    p,
			TokenSymbol: pc.TokenSymbol,
			Name:        pc.Name,
			Client:      client,
		})
	}
	if cfg.Scoring.PlatformMode == "fake" {
		c.ZapLog.Warn("Using in-memory fake platforms")
	}
	return sources
}

// Close releases backend connections
func (c *Container) Close() error {
	var firstErr error
	if c.Redis != nil {
		if err := c.Redis.Close(); err != nil {
			firstErr = err
		}
	}
	if c.DB != nil {
		if err := c.DB.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
