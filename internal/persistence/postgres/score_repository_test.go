package postgres

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/mcs-service/mcs_service/internal/domain/entities"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func testDB(t *testing.T) *sqlx.DB {
	t.Helper()
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}
	url := os.Getenv("DATABASE_URL")
	if url == "" {
		t.Skip("DATABASE_URL not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	t.Cleanup(cancel)

	db, err := Open(ctx, Config{URL: url})
	if err != nil {
		t.Skipf("Skipping test - Postgres not available: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, RunMigrations(db))
	return db
}

func TestScoreRow_ToResult(t *testing.T) {
	at := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	row := scoreRow{
		UserID:        "u1",
		Score:         712,
		Category:      "Good",
		AssetScore:    300,
		BehaviorScore: 212,
		RiskScore:     200,
		MaxAmount:     decimal.NewFromInt(35000),
		MaxPercentage: "65%",
		InterestRate:  "16-18%",
		Tenure:        "24 months",
		Reasons:       []byte(`["Strong asset portfolio with diversified holdings"]`),
		CalculatedAt:  at,
		ValidUntil:    at.AddDate(0, 0, 30),
	}

	res, err := row.toResult()
	require.NoError(t, err)
	assert.Equal(t, 30, res.ValidityDays)
	assert.Equal(t, 300, res.Breakdown.AssetScore)
	assert.Equal(t, []string{"Strong asset portfolio with diversified holdings"}, res.Reasons)

	row.Reasons = []byte("not json")
	_, err = row.toResult()
	assert.Error(t, err)
}

func TestScoreRepository_SaveAndHistory(t *testing.T) {
	db := testDB(t)
	repo := NewScoreRepository(db, zaptest.NewLogger(t))
	ctx := context.Background()

	userID := "it-" + time.Now().Format("150405.000000")
	base := time.Now().UTC().Truncate(time.Second)
	for i, score := range []int{400, 650} {
		err := repo.Save(ctx, &entities.ScoreResult{
			UserID:         userID,
			Score:          score,
			Category:       "Average",
			Recommendation: entities.LoanRecommendation{MaxAmount: decimal.NewFromInt(8000), MaxPercentage: "40%"},
			Reasons:        []string{},
			Timestamp:      base.Add(time.Duration(i) * time.Minute),
			ValidityDays:   entities.ScoreValidityDays,
		})
		require.NoError(t, err)
	}

	history, err := repo.History(ctx, userID, 10)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, 650, history[0].Score)
	assert.Equal(t, 400, history[1].Score)
	assert.True(t, decimal.NewFromInt(8000).Equal(history[0].Recommendation.MaxAmount))
}
