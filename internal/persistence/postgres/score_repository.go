package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/mcs-service/mcs_service/internal/domain/entities"
	"github.com/mcs-service/mcs_service/pkg/database"
	apperrors "github.com/mcs-service/mcs_service/pkg/errors"
	"github.com/mcs-service/mcs_service/pkg/metrics"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const scoresTable = "credit_scores"

// ScoreRepository persists calculated scores as an append-only history
type ScoreRepository struct {
	db     *sqlx.DB
	logger *zap.Logger
	tracer trace.Tracer
}

// NewScoreRepository creates a new score repository
func NewScoreRepository(db *sqlx.DB, logger *zap.Logger) *ScoreRepository {
	return &ScoreRepository{
		db:     db,
		logger: logger,
		tracer: otel.Tracer("score-repository"),
	}
}

type scoreRow struct {
	ID            uuid.UUID       `db:"id"`
	UserID        string          `db:"user_id"`
	Score         int             `db:"score"`
	Category      string          `db:"category"`
	AssetScore    int             `db:"asset_score"`
	BehaviorScore int             `db:"behavior_score"`
	RiskScore     int             `db:"risk_score"`
	MaxAmount     decimal.Decimal `db:"max_amount"`
	MaxPercentage string          `db:"max_percentage"`
	InterestRate  string          `db:"interest_rate"`
	Tenure        string          `db:"tenure"`
	Reasons       []byte          `db:"reasons"`
	CalculatedAt  time.Time       `db:"calculated_at"`
	ValidUntil    time.Time       `db:"valid_until"`
}

func (r scoreRow) toResult() (entities.ScoreResult, error) {
	var reasons []string
	if err := json.Unmarshal(r.Reasons, &reasons); err != nil {
		return entities.ScoreResult{}, fmt.Errorf("failed to unmarshal reasons: %w", err)
	}
	return entities.ScoreResult{
		UserID:   r.UserID,
		Score:    r.Score,
		Category: r.Category,
		Breakdown: entities.ScoreBreakdown{
			AssetScore:    r.AssetScore,
			BehaviorScore: r.BehaviorScore,
			RiskScore:     r.RiskScore,
		},
		Recommendation: entities.LoanRecommendation{
			MaxAmount:     r.MaxAmount,
			MaxPercentage: r.MaxPercentage,
			InterestRate:  r.InterestRate,
			Tenure:        r.Tenure,
		},
		Reasons:      reasons,
		Timestamp:    r.CalculatedAt,
		ValidityDays: int(r.ValidUntil.Sub(r.CalculatedAt).Hours() / 24),
	}, nil
}

// Name identifies the backend in metrics and logs
func (r *ScoreRepository) Name() string {
	return "postgres"
}

// Save appends a score to the user's history
func (r *ScoreRepository) Save(ctx context.Context, result *entities.ScoreResult) error {
	ctx, span := r.tracer.Start(ctx, "score_repo.save", trace.WithAttributes(
		attribute.String("user_id", result.UserID),
		attribute.Int("score", result.Score),
	))
	defer span.End()

	reasons, err := json.Marshal(result.Reasons)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to marshal reasons: %w", err)
	}

	query := `
		INSERT INTO credit_scores (
			id, user_id, score, category, asset_score, behavior_score, risk_score,
			max_amount, max_percentage, interest_rate, tenure, reasons,
			calculated_at, valid_until
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14
		)
	`

	start := time.Now()
	_, err = r.db.ExecContext(ctx, query,
		uuid.New(),
		result.UserID,
		result.Score,
		result.Category,
		result.Breakdown.AssetScore,
		result.Breakdown.BehaviorScore,
		result.Breakdown.RiskScore,
		result.Recommendation.MaxAmount,
		result.Recommendation.MaxPercentage,
		result.Recommendation.InterestRate,
		result.Recommendation.Tenure,
		reasons,
		result.Timestamp,
		result.Timestamp.AddDate(0, 0, result.ValidityDays),
	)
	metrics.RecordDatabaseQuery("insert", scoresTable, time.Since(start).Seconds())

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("failed to save score: %w", err)
	}

	r.logger.Debug("Score saved",
		zap.String("user_id", result.UserID),
		zap.Int("score", result.Score),
	)
	return nil
}

// History returns a user's scores, newest first
func (r *ScoreRepository) History(ctx context.Context, userID string, limit int) ([]entities.ScoreResult, error) {
	ctx, span := r.tracer.Start(ctx, "score_repo.history", trace.WithAttributes(
		attribute.String("user_id", userID),
		attribute.Int("limit", limit),
	))
	defer span.End()

	where, args := database.BuildWhereClause(map[string]interface{}{"user_id": userID})
	query := `
		SELECT
			id, user_id, score, category, asset_score, behavior_score, risk_score,
			max_amount, max_percentage, interest_rate, tenure, reasons,
			calculated_at, valid_until
		FROM credit_scores` +
		where +
		database.BuildOrderByClause("calculated_at DESC", []string{"calculated_at"}) +
		database.BuildPaginationClause(limit, 0)

	var rows []scoreRow
	start := time.Now()
	err := r.db.SelectContext(ctx, &rows, query, args...)
	metrics.RecordDatabaseQuery("select", scoresTable, time.Since(start).Seconds())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, apperrors.WrapInternal(err, "failed to load score history")
	}

	results := make([]entities.ScoreResult, 0, len(rows))
	for _, row := range rows {
		res, err := row.toResult()
		if err != nil {
			span.RecordError(err)
			return nil, err
		}
		results = append(results, res)
	}
	return results, nil
}
