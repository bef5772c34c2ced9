package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mcs_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mcs_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	// Platform metrics
	PlatformCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mcs_platform_calls_total",
			Help: "Total number of asset platform API calls",
		},
		[]string{"platform", "endpoint", "status_code"},
	)

	PlatformCallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mcs_platform_call_duration_seconds",
			Help:    "Asset platform API call duration in seconds",
			Buckets: []float64{0.05, 0.1, 0.5, 1.0, 2.0, 5.0, 10.0},
		},
		[]string{"platform", "endpoint"},
	)

	PlatformOnlineGauge = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "mcs_platform_online",
			Help: "Last observed platform health (1=online, 0=offline)",
		},
		[]string{"platform"},
	)

	CircuitBreakerStateGauge = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "mcs_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=open, 2=half-open)",
		},
		[]string{"service"},
	)

	// Cache metrics
	PortfolioCacheTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mcs_portfolio_cache_total",
			Help: "Portfolio cache lookups by result",
		},
		[]string{"backend", "result"}, // hit, miss, error
	)

	RedisOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mcs_redis_operation_duration_seconds",
			Help:    "Redis operation duration in seconds",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1},
		},
		[]string{"operation"},
	)

	DatabaseQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mcs_database_query_duration_seconds",
			Help:    "Database query duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0, 5.0},
		},
		[]string{"operation", "table"},
	)

	// Scoring metrics
	ScoresCalculatedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mcs_scores_calculated_total",
			Help: "Total number of credit scores calculated",
		},
		[]string{"category"},
	)

	ScoreValue = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "mcs_score_value",
			Help:    "Distribution of final credit scores",
			Buckets: []float64{300, 400, 500, 550, 600, 650, 700, 750, 800, 900},
		},
	)

	PipelineStageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mcs_pipeline_stage_duration_seconds",
			Help:    "Duration of each scoring pipeline stage",
			Buckets: []float64{0.001, 0.01, 0.1, 0.5, 1.0, 5.0, 15.0},
		},
		[]string{"stage"},
	)

	PipelineFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mcs_pipeline_failures_total",
			Help: "Scoring pipeline failures by stage and code",
		},
		[]string{"stage", "code"},
	)

	BatchItemsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mcs_batch_items_total",
			Help: "Batch scoring items by outcome",
		},
		[]string{"result"}, // success, failed
	)

	ScoreSinkWritesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mcs_score_sink_writes_total",
			Help: "Score sink writes by backend and result",
		},
		[]string{"backend", "result"},
	)
)

// RecordHTTPRequest records HTTP request metrics
func RecordHTTPRequest(method, endpoint, statusCode string, duration float64) {
	HTTPRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	HTTPRequestDuration.WithLabelValues(method, endpoint).Observe(duration)
}

// RecordPlatformCall records an upstream platform call
func RecordPlatformCall(platform, endpoint, statusCode string, duration float64) {
	PlatformCallsTotal.WithLabelValues(platform, endpoint, statusCode).Inc()
	PlatformCallDuration.WithLabelValues(platform, endpoint).Observe(duration)
}

// UpdatePlatformOnline records the latest health probe outcome
func UpdatePlatformOnline(platform string, online bool) {
	v := 0.0
	if online {
		v = 1
	}
	PlatformOnlineGauge.WithLabelValues(platform).Set(v)
}

// UpdateCircuitBreakerState updates circuit breaker state
func UpdateCircuitBreakerState(service string, state float64) {
	CircuitBreakerStateGauge.WithLabelValues(service).Set(state)
}

// RecordCacheLookup records a portfolio cache lookup
func RecordCacheLookup(backend, result string) {
	PortfolioCacheTotal.WithLabelValues(backend, result).Inc()
}

// RecordRedisOperation records Redis operation metrics
func RecordRedisOperation(operation string, duration float64) {
	RedisOperationDuration.WithLabelValues(operation).Observe(duration)
}

// RecordDatabaseQuery records database query metrics
func RecordDatabaseQuery(operation, table string, duration float64) {
	DatabaseQueryDuration.WithLabelValues(operation, table).Observe(duration)
}

// RecordScore records a completed score
func RecordScore(category string, score int) {
	ScoresCalculatedTotal.WithLabelValues(category).Inc()
	ScoreValue.Observe(float64(score))
}

// RecordStage records how long one pipeline stage took
func RecordStage(stage string, duration float64) {
	PipelineStageDuration.WithLabelValues(stage).Observe(duration)
}

// RecordPipelineFailure records a failed scoring run
func RecordPipelineFailure(stage, code string) {
	PipelineFailuresTotal.WithLabelValues(stage, code).Inc()
}

// RecordBatchItem records the outcome of one batch item
func RecordBatchItem(success bool) {
	result := "failed"
	if success {
		result = "success"
	}
	BatchItemsTotal.WithLabelValues(result).Inc()
}

// RecordSinkWrite records a score sink write
func RecordSinkWrite(backend string, err error) {
	result := "success"
	if err != nil {
		result = "failed"
	}
	ScoreSinkWritesTotal.WithLabelValues(backend, result).Inc()
}
