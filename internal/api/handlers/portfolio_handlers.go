package handlers

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mcs-service/mcs_service/internal/domain/entities"
	"github.com/mcs-service/mcs_service/pkg/logger"
)

// PortfolioService is what the portfolio endpoints need from the aggregator
type PortfolioService interface {
	FetchPortfolio(ctx context.Context, userID string, addresses entities.AddressSet) (*entities.Portfolio, error)
	InvalidateUser(ctx context.Context, userID string) (int, error)
	PlatformStatus(ctx context.Context) map[entities.Platform]entities.PlatformStatus
}

// PortfolioHandlers serves portfolio and platform endpoints
type PortfolioHandlers struct {
	portfolios PortfolioService
	logger     *logger.Logger
}

// NewPortfolioHandlers creates portfolio handlers
func NewPortfolioHandlers(portfolios PortfolioService, log *logger.Logger) *PortfolioHandlers {
	return &PortfolioHandlers{portfolios: portfolios, logger: log}
}

// PlatformStatusResponse lists the latest probe of every platform
type PlatformStatusResponse struct {
	Timestamp time.Time                                     `json:"timestamp"`
	Platforms map[entities.Platform]entities.PlatformStatus `json:"platforms"`
}

// GetPortfolio handles GET /api/v1/portfolio/:userId
func (h *PortfolioHandlers) GetPortfolio(c *gin.Context) {
	userID, ok := bindUserID(c)
	if !ok {
		return
	}
	addresses, err := parseAddresses(c.Query("addresses"), userID)
	if err != nil {
		respondAppError(c, err)
		return
	}

	p, err := h.portfolios.FetchPortfolio(c.Request.Context(), userID, addresses)
	if err != nil {
		h.logger.CtxError(c.Request.Context(), "Portfolio fetch failed", "user_id", userID, "error", err)
		respondAppError(c, err)
		return
	}
	respondOK(c, p)
}

// InvalidateCache handles DELETE /api/v1/portfolio/:userId/cache
func (h *PortfolioHandlers) InvalidateCache(c *gin.Context) {
	userID, ok := bindUserID(c)
	if !ok {
		return
	}
	n, err := h.portfolios.InvalidateUser(c.Request.Context(), userID)
	if err != nil {
		h.logger.CtxError(c.Request.Context(), "Cache invalidation failed", "user_id", userID, "error", err)
		respondAppError(c, err)
		return
	}
	respondOK(c, gin.H{"user_id": userID, "invalidated": n})
}

// PlatformStatus handles GET /api/v1/platforms/status
func (h *PortfolioHandlers) PlatformStatus(c *gin.Context) {
	respondOK(c, PlatformStatusResponse{
		Timestamp: time.Now().UTC(),
		Platforms: h.portfolios.PlatformStatus(c.Request.Context()),
	})
}
