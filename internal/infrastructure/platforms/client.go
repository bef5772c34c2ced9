// Package platforms talks to the asset platform APIs.
package platforms

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/mcs-service/mcs_service/internal/domain/entities"
	"github.com/mcs-service/mcs_service/pkg/circuitbreaker"
	apperrors "github.com/mcs-service/mcs_service/pkg/errors"
	"github.com/mcs-service/mcs_service/pkg/metrics"
	"github.com/mcs-service/mcs_service/pkg/tracing"
	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	defaultTimeout   = 10 * time.Second
	defaultRateLimit = 20
	defaultBurst     = 10
	maxBodyBytes     = 4 << 20
)

// Config describes one platform endpoint
type Config struct {
	Platform     entities.Platform
	BaseURL      string
	APIToken     string
	TokenSymbol  string
	Name         string
	Timeout      time.Duration
	RateLimitRPS float64
	Burst        int
	Breaker      circuitbreaker.Config
}

// HTTPClient calls one platform's REST API behind a circuit breaker and rate limiter
type HTTPClient struct {
	config     Config
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker
	limiter    *rate.Limiter
	logger     *zap.Logger
}

// NewHTTPClient creates a platform client
func NewHTTPClient(config Config, logger *zap.Logger) *HTTPClient {
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.Timeout == 0 {
		config.Timeout = defaultTimeout
	}
	if config.RateLimitRPS <= 0 {
		config.RateLimitRPS = defaultRateLimit
	}
	if config.Burst <= 0 {
		config.Burst = defaultBurst
	}
	if config.Breaker.Timeout == 0 {
		config.Breaker = circuitbreaker.DefaultConfig()
	}
	config.BaseURL = strings.TrimRight(config.BaseURL, "/")

	httpClient := &http.Client{
		Timeout: config.Timeout,
		Transport: &http.Transport{
			TLSClientConfig:     &tls.Config{MinVersion: tls.VersionTLS12},
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
		},
	}

	return &HTTPClient{
		config:     config,
		httpClient: httpClient,
		breaker:    circuitbreaker.New("platform_"+string(config.Platform), config.Breaker, logger),
		limiter:    rate.NewLimiter(rate.Limit(config.RateLimitRPS), config.Burst),
		logger:     logger.With(zap.String("platform", string(config.Platform))),
	}
}

// FetchHolding returns the holding at address
func (c *HTTPClient) FetchHolding(ctx context.Context, address string) (*entities.AssetHolding, error) {
	var body holdingResponse
	if err := c.call(ctx, "portfolio", "/portfolio/"+url.PathEscape(address), &body); err != nil {
		return nil, err
	}
	return body.toEntity(c.config.Platform, c.config.TokenSymbol, c.config.Name, address), nil
}

// FetchTransactions returns up to limit ledger entries for address
func (c *HTTPClient) FetchTransactions(ctx context.Context, address string, limit int) ([]entities.TransactionRecord, error) {
	path := "/transactions/" + url.PathEscape(address) + "?limit=" + strconv.Itoa(limit)

	var body []transactionResponse
	if err := c.call(ctx, "transactions", path, &body); err != nil {
		return nil, err
	}

	txs := make([]entities.TransactionRecord, 0, len(body))
	for _, tx := range body {
		txs = append(txs, tx.toEntity(c.config.Platform, c.config.TokenSymbol, c.config.Name))
	}
	return txs, nil
}

// Health pings GET /health directly, bypassing the breaker and limiter.
// The latency is taken from x-response-time when the platform reports it.
func (c *HTTPClient) Health(ctx context.Context) (time.Duration, error) {
	start := time.Now()
	resp, err := c.do(ctx, "health", "/health", false)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))

	if errType := apperrors.ClassifyHTTPError(resp.StatusCode); errType != "" {
		return 0, c.statusError(resp.StatusCode, "health")
	}
	if d, ok := parseResponseTime(resp.Header.Get("X-Response-Time")); ok {
		return d, nil
	}
	return time.Since(start), nil
}

func (c *HTTPClient) call(ctx context.Context, endpoint, path string, out interface{}) error {
	ctx, span := tracing.StartClientSpan(ctx, "platform."+endpoint,
		attribute.String("platform", string(c.config.Platform)))
	var err error
	defer func() { tracing.End(span, err) }()

	if err = c.limiter.Wait(ctx); err != nil {
		err = apperrors.WrapTimeout(err, "platform rate limiter")
		return err
	}

	_, err = c.breaker.Execute(func() (interface{}, error) {
		resp, err := c.do(ctx, endpoint, path, true)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		if errType := apperrors.ClassifyHTTPError(resp.StatusCode); errType != "" {
			io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))
			return nil, c.statusError(resp.StatusCode, endpoint)
		}
		if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes)).Decode(out); err != nil {
			return nil, apperrors.WrapExternal(err, string(c.config.Platform), "decode "+endpoint+" response")
		}
		return nil, nil
	})
	if err != nil {
		c.logger.Debug("Platform call failed", zap.String("endpoint", endpoint), zap.Error(err))
	}
	return err
}

func (c *HTTPClient) do(ctx context.Context, endpoint, path string, auth bool) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.config.BaseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("build %s request: %w", endpoint, err)
	}
	req.Header.Set("Accept", "application/json")
	if auth && c.config.APIToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.config.APIToken)
	}
	tracing.InjectTraceContext(ctx, req.Header)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	duration := time.Since(start).Seconds()
	if err != nil {
		metrics.RecordPlatformCall(string(c.config.Platform), endpoint, "error", duration)
		return nil, apperrors.WrapWithType(err, apperrors.ClassifyError(err), apperrors.CodeExternal,
			fmt.Sprintf("%s %s request failed", c.config.Platform, endpoint))
	}
	metrics.RecordPlatformCall(string(c.config.Platform), endpoint, strconv.Itoa(resp.StatusCode), duration)
	return resp, nil
}

func (c *HTTPClient) statusError(status int, endpoint string) error {
	errType := apperrors.ClassifyHTTPError(status)
	appErr := apperrors.New(errType, apperrors.CodeExternal,
		fmt.Sprintf("%s %s returned HTTP %d", c.config.Platform, endpoint, status))
	appErr.WithDetail("service", string(c.config.Platform))
	return appErr
}

// Platform returns the platform this client serves
func (c *HTTPClient) Platform() entities.Platform {
	return c.config.Platform
}
