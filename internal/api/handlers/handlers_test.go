package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mcs-service/mcs_service/internal/domain/entities"
	"github.com/mcs-service/mcs_service/internal/domain/services/behavior"
	"github.com/mcs-service/mcs_service/internal/domain/services/pipeline"
	"github.com/mcs-service/mcs_service/internal/domain/services/portfolio"
	"github.com/mcs-service/mcs_service/internal/domain/services/risk"
	"github.com/mcs-service/mcs_service/internal/domain/services/scoring"
	"github.com/mcs-service/mcs_service/internal/infrastructure/cache"
	"github.com/mcs-service/mcs_service/internal/infrastructure/platforms"
	apperrors "github.com/mcs-service/mcs_service/pkg/errors"
	"github.com/mcs-service/mcs_service/pkg/health"
	"github.com/mcs-service/mcs_service/pkg/logger"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *ErrorBody      `json:"error"`
}

type apiFixture struct {
	router *gin.Engine
	gold   *platforms.FakeClient
	agg    *portfolio.Aggregator
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()
	log := logger.NewLogger(zaptest.NewLogger(t))
	f := &apiFixture{router: gin.New()}

	var sources []portfolio.Source
	for _, p := range entities.AllPlatforms {
		fake := platforms.NewFakeClient(p)
		if p == entities.PlatformGold {
			f.gold = fake
		}
		sources = append(sources, portfolio.Source{Platform: p, Client: fake})
	}
	f.agg = portfolio.NewAggregator(sources, cache.NewMemoryPortfolioCache(), nil, log, portfolio.Config{})
	svc := pipeline.NewService(f.agg, behavior.NewAnalyzer(nil, log), risk.NewAnalyzer(nil, log),
		scoring.NewSynthesizer(log), nil, log, pipeline.DefaultConfig())

	ph := NewPortfolioHandlers(f.agg, log)
	sh := NewScoreHandlers(svc, log)
	f.router.GET("/api/v1/platforms/status", ph.PlatformStatus)
	f.router.GET("/api/v1/portfolio/:userId", ph.GetPortfolio)
	f.router.DELETE("/api/v1/portfolio/:userId/cache", ph.InvalidateCache)
	f.router.POST("/api/v1/score/batch", sh.BatchScore)
	f.router.GET("/api/v1/score/:userId", sh.GetScore)
	f.router.GET("/api/v1/score/:userId/history", sh.GetHistory)
	return f
}

func (f *apiFixture) do(t *testing.T, method, target string, body interface{}) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, target, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)

	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return w, env
}

func goldQuery(userID string) string {
	return "addresses=" + url.QueryEscape(fmt.Sprintf(`{"gold":"gold_%s"}`, userID))
}

func TestScoreHandlers_GetScore(t *testing.T) {
	f := newAPIFixture(t)
	f.gold.SetHolding("gold_u1", &entities.AssetHolding{Value: decimal.NewFromInt(20000)})

	w, env := f.do(t, http.MethodGet, "/api/v1/score/u1?"+goldQuery("u1"), nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.True(t, env.Success)

	var score ScoreResponse
	require.NoError(t, json.Unmarshal(env.Data, &score))
	assert.Equal(t, "u1", score.UserID)
	assert.Equal(t, 400, score.Score)
	assert.Equal(t, scoring.CategoryVeryPoor, score.Category)
	assert.Equal(t, "₹8,000", score.LimitRecommendation)
	assert.Equal(t, entities.ScoreValidityDays, score.ValidityDays)
	assert.NotEmpty(t, score.Reasons)
}

func TestScoreHandlers_GetScoreWithIncome(t *testing.T) {
	f := newAPIFixture(t)
	f.gold.SetHolding("gold_u1", &entities.AssetHolding{Value: decimal.NewFromInt(20000)})

	w, env := f.do(t, http.MethodGet, "/api/v1/score/u1?income=40000&location=Mumbai&"+goldQuery("u1"), nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var score ScoreResponse
	require.NoError(t, json.Unmarshal(env.Data, &score))
	assert.Equal(t, 100, score.Breakdown.AssetScore)
}

func TestScoreHandlers_GetScoreRejectsBadInput(t *testing.T) {
	f := newAPIFixture(t)

	tests := []struct {
		name   string
		target string
		status int
		code   string
	}{
		{"non alphanumeric user", "/api/v1/score/bad-id", http.StatusBadRequest, apperrors.CodeValidation},
		{"negative income", "/api/v1/score/u1?income=-5", http.StatusBadRequest, apperrors.CodeValidation},
		{"malformed addresses", "/api/v1/score/u1?addresses=notjson", http.StatusBadRequest, apperrors.CodeValidation},
		{
			"unknown platform",
			"/api/v1/score/u1?addresses=" + url.QueryEscape(`{"copper":"c1"}`),
			http.StatusBadRequest,
			apperrors.CodePortfolioFetchFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, env := f.do(t, http.MethodGet, tt.target, nil)
			assert.Equal(t, tt.status, w.Code, w.Body.String())
			assert.False(t, env.Success)
			require.NotNil(t, env.Error)
			assert.Equal(t, tt.code, env.Error.Code)
		})
	}
}

func TestScoreHandlers_BatchScore(t *testing.T) {
	f := newAPIFixture(t)
	for _, id := range []string{"a1", "a2", "a3"} {
		f.gold.SetHolding("gold_"+id, &entities.AssetHolding{Value: decimal.NewFromInt(20000)})
	}

	w, env := f.do(t, http.MethodPost, "/api/v1/score/batch", map[string]interface{}{"user_ids": []string{"a1", "a2", "a3"}})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp BatchScoreResponse
	require.NoError(t, json.Unmarshal(env.Data, &resp))
	assert.Equal(t, 3, resp.TotalProcessed)
	assert.Equal(t, 3, resp.Successful)
	assert.Equal(t, 0, resp.Failed)
	for i, id := range []string{"a1", "a2", "a3"} {
		assert.Equal(t, id, resp.Results[i].UserID)
		require.NotNil(t, resp.Results[i].Result)
		assert.Equal(t, 400, resp.Results[i].Result.Score)
	}
}

func TestScoreHandlers_BatchScoreValidatesSize(t *testing.T) {
	f := newAPIFixture(t)

	tooMany := make([]string, 101)
	for i := range tooMany {
		tooMany[i] = fmt.Sprintf("u%d", i)
	}

	for name, ids := range map[string][]string{
		"empty":    {},
		"too many": tooMany,
		"bad id":   {"ok1", "not ok"},
	} {
		t.Run(name, func(t *testing.T) {
			w, env := f.do(t, http.MethodPost, "/api/v1/score/batch", map[string]interface{}{"user_ids": ids})
			assert.Equal(t, http.StatusBadRequest, w.Code)
			require.NotNil(t, env.Error)
			assert.Equal(t, apperrors.CodeValidation, env.Error.Code)
		})
	}
}

func TestPortfolioHandlers_FetchAndInvalidate(t *testing.T) {
	f := newAPIFixture(t)
	f.gold.SetHolding("gold_u1", &entities.AssetHolding{Value: decimal.NewFromInt(5000)})

	w, env := f.do(t, http.MethodGet, "/api/v1/portfolio/u1?"+goldQuery("u1"), nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var p entities.Portfolio
	require.NoError(t, json.Unmarshal(env.Data, &p))
	assert.Equal(t, "u1", p.UserID)
	require.NotNil(t, p.Gold)
	assert.True(t, decimal.NewFromInt(5000).Equal(p.Gold.Value))

	w, env = f.do(t, http.MethodDelete, "/api/v1/portfolio/u1/cache", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var out struct {
		Invalidated int `json:"invalidated"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &out))
	assert.Equal(t, 1, out.Invalidated)
}

func TestPortfolioHandlers_PlatformStatus(t *testing.T) {
	f := newAPIFixture(t)
	f.gold.Fail(false, false, true)

	w, env := f.do(t, http.MethodGet, "/api/v1/platforms/status", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp PlatformStatusResponse
	require.NoError(t, json.Unmarshal(env.Data, &resp))
	require.Len(t, resp.Platforms, 4)
	assert.False(t, resp.Platforms[entities.PlatformGold].Online)
	assert.NotEmpty(t, resp.Platforms[entities.PlatformGold].Error)
	assert.True(t, resp.Platforms[entities.PlatformSilver].Online)
}

type stubScorer struct{ err error }

func (s stubScorer) ScoreUser(context.Context, pipeline.Request) (*pipeline.Report, error) {
	return nil, s.err
}

func (s stubScorer) ScoreBatch(context.Context, []pipeline.Request) ([]entities.BatchItemResult, error) {
	return nil, s.err
}

func TestRespondAppError_StatusMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"analysis", apperrors.AnalysisFailed(apperrors.StageRisk, "u1", errors.New("bad type")), http.StatusUnprocessableEntity, apperrors.CodeAnalysisFailed},
		{"scoring", apperrors.ScoreCalculationFailed("u1", errors.New("nil risk")), http.StatusUnprocessableEntity, apperrors.CodeScoreCalculationFailed},
		{"timeout", apperrors.WrapTimeout(context.DeadlineExceeded, "fetch"), http.StatusGatewayTimeout, apperrors.CodeTimeout},
		{"unclassified", errors.New("boom"), http.StatusInternalServerError, "UNKNOWN_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := gin.New()
			router.GET("/api/v1/score/:userId", NewScoreHandlers(stubScorer{err: tt.err}, logger.NewNop()).GetScore)

			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/score/u1", nil))
			assert.Equal(t, tt.status, w.Code)

			var env envelope
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
			require.NotNil(t, env.Error)
			assert.Equal(t, tt.code, env.Error.Code)
			if tt.status == http.StatusInternalServerError {
				assert.Equal(t, "Internal server error", env.Error.Message)
			}
		})
	}
}

type stubHistory struct{ scores []entities.ScoreResult }

func (s stubHistory) History(_ context.Context, _ string, limit int) ([]entities.ScoreResult, error) {
	if limit < len(s.scores) {
		return s.scores[:limit], nil
	}
	return s.scores, nil
}

func TestScoreHandlers_History(t *testing.T) {
	f := newAPIFixture(t)
	w, _ := f.do(t, http.MethodGet, "/api/v1/score/u1/history", nil)
	assert.Equal(t, http.StatusNotImplemented, w.Code)

	now := time.Now().UTC()
	h := NewScoreHandlers(stubScorer{}, logger.NewNop()).WithHistory(stubHistory{scores: []entities.ScoreResult{
		{UserID: "u1", Score: 650, Timestamp: now, Recommendation: entities.LoanRecommendation{MaxAmount: decimal.NewFromInt(100000)}},
		{UserID: "u1", Score: 600, Timestamp: now.Add(-time.Hour)},
	}})
	router := gin.New()
	router.GET("/api/v1/score/:userId/history", h.GetHistory)

	for target, want := range map[string]int{
		"/api/v1/score/u1/history":         2,
		"/api/v1/score/u1/history?limit=1": 1,
	} {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, target, nil))
		require.Equal(t, http.StatusOK, w.Code)

		var env envelope
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
		var out struct {
			Scores []ScoreResponse `json:"scores"`
		}
		require.NoError(t, json.Unmarshal(env.Data, &out))
		assert.Len(t, out.Scores, want, target)
		assert.Equal(t, 650, out.Scores[0].Score)
	}

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/score/u1/history?limit=zero", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHealthHandler(t *testing.T) {
	checker := health.NewHealthChecker(time.Second)
	gold := platforms.NewFakeClient(entities.PlatformGold)
	checker.Register(health.NewPlatformChecker("gold", gold, time.Second))

	router := gin.New()
	h := NewHealthHandler(checker)
	router.GET("/health", h.Health)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"healthy"`)

	gold.Fail(false, false, true)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code, "an offline platform only degrades the service")
	assert.Contains(t, w.Body.String(), `"status":"degraded"`)
}

func TestParseAddresses(t *testing.T) {
	set, err := parseAddresses("", "u9")
	require.NoError(t, err)
	assert.Equal(t, "gold_u9", set[entities.PlatformGold])
	assert.Equal(t, "stable_u9", set[entities.PlatformStable])
	assert.Len(t, set, len(entities.AllPlatforms))

	set, err = parseAddresses(`{"BINR":"w1","gold":"g1"}`, "u9")
	require.NoError(t, err)
	assert.Equal(t, entities.AddressSet{entities.PlatformStable: "w1", entities.PlatformGold: "g1"}, set)

	_, err = parseAddresses(`["gold"]`, "u9")
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeValidation, apperrors.GetCode(err))
	assert.Equal(t, http.StatusBadRequest, apperrors.GetStatusCode(err))
}

func TestFormatINR(t *testing.T) {
	assert.Equal(t, "₹8,000", formatINR(decimal.NewFromInt(8000)))
	assert.Equal(t, "₹0", formatINR(decimal.Zero))
	assert.True(t, strings.HasPrefix(formatINR(decimal.RequireFromString("2500000.4")), "₹2"))
}
