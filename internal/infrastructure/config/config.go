package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Environment string          `mapstructure:"environment" validate:"required"`
	LogLevel    string          `mapstructure:"log_level" validate:"oneof=debug info warn error"`
	Server      ServerConfig    `mapstructure:"server"`
	Database    DatabaseConfig  `mapstructure:"database"`
	Redis       RedisConfig     `mapstructure:"redis"`
	Platforms   PlatformsConfig `mapstructure:"platforms"`
	Scoring     ScoringConfig   `mapstructure:"scoring"`
	Tracing     TracingConfig   `mapstructure:"tracing"`
	Monitor     MonitorConfig   `mapstructure:"monitor"`
}

type ServerConfig struct {
	Port            int      `mapstructure:"port" validate:"min=1,max=65535"`
	Host            string   `mapstructure:"host"`
	ReadTimeout     int      `mapstructure:"read_timeout" validate:"gt=0"`
	WriteTimeout    int      `mapstructure:"write_timeout" validate:"gt=0"`
	AllowedOrigins  []string `mapstructure:"allowed_origins"`
	RateLimitPerMin int      `mapstructure:"rate_limit_per_min" validate:"gte=0"`
}

// DatabaseConfig configures the optional score history store
type DatabaseConfig struct {
	Enabled         bool   `mapstructure:"enabled"`
	URL             string `mapstructure:"url" validate:"required_if=Enabled true"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// Addr returns host:port
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// PlatformConfig describes one asset platform API
type PlatformConfig struct {
	BaseURL     string `mapstructure:"base_url" validate:"required,url"`
	APIToken    string `mapstructure:"api_token"`
	TokenSymbol string `mapstructure:"token_symbol" validate:"required"`
	Name        string `mapstructure:"name" validate:"required"`
}

type PlatformsConfig struct {
	Gold     PlatformConfig `mapstructure:"gold"`
	Silver   PlatformConfig `mapstructure:"silver"`
	Platinum PlatformConfig `mapstructure:"platinum"`
	Stable   PlatformConfig `mapstructure:"stable"`
}

// ScoringConfig controls the portfolio fetch and scoring pipeline
type ScoringConfig struct {
	FetchTimeout     time.Duration `mapstructure:"fetch_timeout" validate:"gt=0"`
	HealthTimeout    time.Duration `mapstructure:"health_timeout" validate:"gt=0"`
	TransactionLimit int           `mapstructure:"transaction_limit" validate:"gt=0"`
	CacheTTL         time.Duration `mapstructure:"cache_ttl" validate:"gt=0"`
	CacheBackend     string        `mapstructure:"cache_backend" validate:"oneof=memory redis"`
	BatchGroupSize   int           `mapstructure:"batch_group_size" validate:"gt=0"`
	MaxBatchSize     int           `mapstructure:"max_batch_size" validate:"gt=0"`
	PlatformMode     string        `mapstructure:"platform_mode" validate:"oneof=http fake"`
	RateLimitRPS     float64       `mapstructure:"rate_limit_rps" validate:"gt=0"`
	ScoreSink        string        `mapstructure:"score_sink" validate:"oneof=none redis"`
	Timezone         string        `mapstructure:"timezone" validate:"omitempty,timezone"`
}

// Location resolves the business time zone; empty means UTC
func (s ScoringConfig) Location() (*time.Location, error) {
	if s.Timezone == "" {
		return time.UTC, nil
	}
	return time.LoadLocation(s.Timezone)
}

type TracingConfig struct {
	Enabled     bool    `mapstructure:"enabled"`
	Endpoint    string  `mapstructure:"endpoint" validate:"required_if=Enabled true"`
	Insecure    bool    `mapstructure:"insecure"`
	SampleRate  float64 `mapstructure:"sample_rate" validate:"gte=0,lte=1"`
	ServiceName string  `mapstructure:"service_name"`
}

// MonitorConfig schedules the background platform monitor
type MonitorConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Schedule string `mapstructure:"schedule" validate:"required_if=Enabled true"`
}

// Load loads configuration from .env, configs/config.yaml and the environment
func Load() (*Config, error) {
	godotenv.Load()

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./configs")
	viper.AddConfigPath(".")

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	overrideFromEnv()

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

func setDefaults() {
	viper.SetDefault("environment", "development")
	viper.SetDefault("log_level", "info")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.read_timeout", 30)
	viper.SetDefault("server.write_timeout", 60)
	viper.SetDefault("server.allowed_origins", []string{"http://localhost:3000", "http://localhost:8080"})
	viper.SetDefault("server.rate_limit_per_min", 200)

	viper.SetDefault("database.enabled", false)
	viper.SetDefault("database.max_open_conns", 25)
	viper.SetDefault("database.max_idle_conns", 5)
	viper.SetDefault("database.conn_max_lifetime", 300)

	viper.SetDefault("redis.host", "localhost")
	viper.SetDefault("redis.port", 6379)
	viper.SetDefault("redis.db", 0)

	viper.SetDefault("platforms.gold.base_url", "http://localhost:3001/api")
	viper.SetDefault("platforms.gold.token_symbol", "BGT")
	viper.SetDefault("platforms.gold.name", "Bharat Gold Token")
	viper.SetDefault("platforms.silver.base_url", "http://localhost:3002/api")
	viper.SetDefault("platforms.silver.token_symbol", "BST")
	viper.SetDefault("platforms.silver.name", "Bharat Silver Token")
	viper.SetDefault("platforms.platinum.base_url", "http://localhost:3003/api")
	viper.SetDefault("platforms.platinum.token_symbol", "BPT")
	viper.SetDefault("platforms.platinum.name", "Bharat Platinum Token")
	viper.SetDefault("platforms.stable.base_url", "http://localhost:3004/api")
	viper.SetDefault("platforms.stable.token_symbol", "BINR")
	viper.SetDefault("platforms.stable.name", "BINR Stablecoin")

	viper.SetDefault("scoring.fetch_timeout", 10*time.Second)
	viper.SetDefault("scoring.health_timeout", 5*time.Second)
	viper.SetDefault("scoring.transaction_limit", 100)
	viper.SetDefault("scoring.cache_ttl", 5*time.Minute)
	viper.SetDefault("scoring.cache_backend", "memory")
	viper.SetDefault("scoring.batch_group_size", 10)
	viper.SetDefault("scoring.max_batch_size", 100)
	viper.SetDefault("scoring.platform_mode", "http")
	viper.SetDefault("scoring.rate_limit_rps", 20.0)
	viper.SetDefault("scoring.score_sink", "none")
	viper.SetDefault("scoring.timezone", "Asia/Kolkata")

	viper.SetDefault("tracing.enabled", false)
	viper.SetDefault("tracing.insecure", true)
	viper.SetDefault("tracing.sample_rate", 1.0)
	viper.SetDefault("tracing.service_name", "mcs-service")

	viper.SetDefault("monitor.enabled", true)
	viper.SetDefault("monitor.schedule", "@every 1m")
}

// platformEnv maps config keys to the environment variables the platform deployments export
var platformEnv = map[string]string{
	"gold":     "BGT",
	"silver":   "BST",
	"platinum": "BPT",
	"stable":   "BINR",
}

func overrideFromEnv() {
	if port := os.Getenv("PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			viper.Set("server.port", p)
		}
	}

	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		viper.Set("database.url", dbURL)
		viper.Set("database.enabled", true)
	}

	if redisURL := os.Getenv("REDIS_HOST"); redisURL != "" {
		viper.Set("redis.host", redisURL)
	}
	if redisPassword := os.Getenv("REDIS_PASSWORD"); redisPassword != "" {
		viper.Set("redis.password", redisPassword)
	}

	if origins := os.Getenv("ALLOWED_ORIGINS"); origins != "" {
		var list []string
		for _, part := range strings.Split(origins, ",") {
			if trimmed := strings.TrimSpace(part); trimmed != "" {
				list = append(list, trimmed)
			}
		}
		if len(list) > 0 {
			viper.Set("server.allowed_origins", list)
		}
	}

	for key, prefix := range platformEnv {
		if baseURL := os.Getenv(prefix + "_API_URL"); baseURL != "" {
			viper.Set("platforms."+key+".base_url", baseURL)
		}
		if token := os.Getenv(prefix + "_API_TOKEN"); token != "" {
			viper.Set("platforms."+key+".api_token", token)
		}
	}

	if endpoint := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"); endpoint != "" {
		viper.Set("tracing.endpoint", endpoint)
		viper.Set("tracing.enabled", true)
	}
}

func validate(config *Config) error {
	if err := validator.New().Struct(config); err != nil {
		return err
	}
	if config.Scoring.BatchGroupSize > config.Scoring.MaxBatchSize {
		return fmt.Errorf("scoring.batch_group_size (%d) exceeds scoring.max_batch_size (%d)",
			config.Scoring.BatchGroupSize, config.Scoring.MaxBatchSize)
	}
	if config.Scoring.ScoreSink == "redis" && config.Redis.Host == "" {
		return fmt.Errorf("scoring.score_sink=redis requires redis.host")
	}
	return nil
}
