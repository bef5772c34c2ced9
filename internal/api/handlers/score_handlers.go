package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mcs-service/mcs_service/internal/domain/entities"
	"github.com/mcs-service/mcs_service/internal/domain/services/pipeline"
	"github.com/mcs-service/mcs_service/pkg/database"
	"github.com/mcs-service/mcs_service/pkg/logger"
	"github.com/shopspring/decimal"
)

// ScoringService runs the scoring pipeline
type ScoringService interface {
	ScoreUser(ctx context.Context, req pipeline.Request) (*pipeline.Report, error)
	ScoreBatch(ctx context.Context, reqs []pipeline.Request) ([]entities.BatchItemResult, error)
}

// ScoreHistory reads previously calculated scores, newest first
type ScoreHistory interface {
	History(ctx context.Context, userID string, limit int) ([]entities.ScoreResult, error)
}

// LatestScores reads the most recent unexpired score
type LatestScores interface {
	Latest(ctx context.Context, userID string) (*entities.ScoreResult, bool, error)
}

// ScoreHandlers serves the scoring endpoints
type ScoreHandlers struct {
	scorer  ScoringService
	history ScoreHistory
	latest  LatestScores
	logger  *logger.Logger
}

// NewScoreHandlers creates score handlers. History and latest lookups are optional.
func NewScoreHandlers(scorer ScoringService, log *logger.Logger) *ScoreHandlers {
	return &ScoreHandlers{scorer: scorer, logger: log}
}

// WithHistory enables GET /score/:userId/history
func (h *ScoreHandlers) WithHistory(history ScoreHistory) *ScoreHandlers {
	h.history = history
	return h
}

// WithLatest enables GET /score/:userId/latest
func (h *ScoreHandlers) WithLatest(latest LatestScores) *ScoreHandlers {
	h.latest = latest
	return h
}

// ScoreResponse is the public view of a score
type ScoreResponse struct {
	UserID              string                      `json:"user_id"`
	Score               int                         `json:"score"`
	Category            string                      `json:"category"`
	LimitRecommendation string                      `json:"limit_recommendation"`
	Reasons             []string                    `json:"reasons"`
	Recommendation      entities.LoanRecommendation `json:"recommendation"`
	Breakdown           entities.ScoreBreakdown     `json:"breakdown"`
	Timestamp           time.Time                   `json:"timestamp"`
	ValidityDays        int                         `json:"validity_days"`
}

func newScoreResponse(r *entities.ScoreResult) ScoreResponse {
	return ScoreResponse{
		UserID:              r.UserID,
		Score:               r.Score,
		Category:            r.Category,
		LimitRecommendation: formatINR(r.Recommendation.MaxAmount),
		Reasons:             r.Reasons,
		Recommendation:      r.Recommendation,
		Breakdown:           r.Breakdown,
		Timestamp:           r.Timestamp,
		ValidityDays:        r.ValidityDays,
	}
}

// BatchScoreRequest is the body of POST /api/v1/score/batch
type BatchScoreRequest struct {
	UserIDs []string `json:"user_ids" binding:"required,min=1,max=100,dive,required,alphanum,max=64"`
}

// BatchScoreResponse summarizes a batch run
type BatchScoreResponse struct {
	TotalProcessed int                        `json:"total_processed"`
	Successful     int                        `json:"successful"`
	Failed         int                        `json:"failed"`
	Results        []entities.BatchItemResult `json:"results"`
}

// GetScore handles GET /api/v1/score/:userId
func (h *ScoreHandlers) GetScore(c *gin.Context) {
	userID, ok := bindUserID(c)
	if !ok {
		return
	}
	addresses, err := parseAddresses(c.Query("addresses"), userID)
	if err != nil {
		respondAppError(c, err)
		return
	}

	profile := &entities.UserProfile{UserID: userID, Location: c.Query("location")}
	if raw := c.Query("income"); raw != "" {
		income, err := decimal.NewFromString(raw)
		if err != nil || !income.IsPositive() {
			respondBadRequest(c, "income must be a positive number", map[string]string{"income": raw})
			return
		}
		profile.Income = &income
	}

	report, err := h.scorer.ScoreUser(c.Request.Context(), pipeline.Request{
		UserID:    userID,
		Addresses: addresses,
		Profile:   profile,
	})
	if err != nil {
		h.logger.CtxError(c.Request.Context(), "Score calculation failed", "user_id", userID, "error", err)
		respondAppError(c, err)
		return
	}
	respondOK(c, newScoreResponse(report.Score))
}

// BatchScore handles POST /api/v1/score/batch
func (h *ScoreHandlers) BatchScore(c *gin.Context) {
	var body BatchScoreRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		respondBadRequest(c, "user_ids must hold 1 to 100 alphanumeric user IDs", map[string]string{"user_ids": err.Error()})
		return
	}

	reqs := make([]pipeline.Request, len(body.UserIDs))
	for i, id := range body.UserIDs {
		reqs[i] = pipeline.Request{UserID: id, Addresses: DefaultAddresses(id)}
	}

	results, err := h.scorer.ScoreBatch(c.Request.Context(), reqs)
	if err != nil {
		respondAppError(c, err)
		return
	}

	resp := BatchScoreResponse{TotalProcessed: len(results), Results: results}
	for _, r := range results {
		if r.Success {
			resp.Successful++
		} else {
			resp.Failed++
		}
	}
	respondOK(c, resp)
}

// GetHistory handles GET /api/v1/score/:userId/history
func (h *ScoreHandlers) GetHistory(c *gin.Context) {
	if h.history == nil {
		respondError(c, http.StatusNotImplemented, "HISTORY_DISABLED", "Score history is not enabled", nil)
		return
	}
	userID, ok := bindUserID(c)
	if !ok {
		return
	}
	limit := database.DefaultLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			respondBadRequest(c, "limit must be a positive integer", map[string]string{"limit": raw})
			return
		}
		limit = database.ClampLimit(n)
	}

	scores, err := h.history.History(c.Request.Context(), userID, limit)
	if err != nil {
		h.logger.CtxError(c.Request.Context(), "Score history lookup failed", "user_id", userID, "error", err)
		respondAppError(c, err)
		return
	}
	out := make([]ScoreResponse, len(scores))
	for i := range scores {
		out[i] = newScoreResponse(&scores[i])
	}
	respondOK(c, gin.H{"user_id": userID, "scores": out})
}

// GetLatest handles GET /api/v1/score/:userId/latest
func (h *ScoreHandlers) GetLatest(c *gin.Context) {
	if h.latest == nil {
		respondError(c, http.StatusNotImplemented, "LATEST_DISABLED", "Latest score store is not enabled", nil)
		return
	}
	userID, ok := bindUserID(c)
	if !ok {
		return
	}
	result, found, err := h.latest.Latest(c.Request.Context(), userID)
	if err != nil {
		respondAppError(c, err)
		return
	}
	if !found {
		respondError(c, http.StatusNotFound, "NOT_FOUND", "No valid score for "+userID, nil)
		return
	}
	respondOK(c, newScoreResponse(result))
}
