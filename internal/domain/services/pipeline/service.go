// Package pipeline runs fetch, analysis and scoring for single users and batches.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/mcs-service/mcs_service/internal/domain/entities"
	apperrors "github.com/mcs-service/mcs_service/pkg/errors"
	"github.com/mcs-service/mcs_service/pkg/events"
	"github.com/mcs-service/mcs_service/pkg/logger"
	"github.com/mcs-service/mcs_service/pkg/metrics"
	"github.com/mcs-service/mcs_service/pkg/retry"
	"github.com/mcs-service/mcs_service/pkg/tracing"
	"go.opentelemetry.io/otel/attribute"
)

// PortfolioFetcher assembles a user's portfolio
type PortfolioFetcher interface {
	FetchPortfolio(ctx context.Context, userID string, addresses entities.AddressSet) (*entities.Portfolio, error)
}

// BehaviorAnalyzer derives a behavior profile
type BehaviorAnalyzer interface {
	AnalyzeBehavior(ctx context.Context, userID string, txs []entities.TransactionRecord, p *entities.Portfolio) (*entities.BehaviorProfile, error)
}

// RiskAnalyzer derives a risk profile
type RiskAnalyzer interface {
	PerformRiskAnalysis(ctx context.Context, userID string, txs []entities.TransactionRecord, p *entities.Portfolio, profile *entities.UserProfile) (*entities.RiskProfile, error)
}

// ScoreCalculator synthesizes the final score
type ScoreCalculator interface {
	CalculateScore(ctx context.Context, p *entities.Portfolio, b *entities.BehaviorProfile, r *entities.RiskProfile) (*entities.ScoreResult, error)
}

// ScoreSink receives every calculated score. Sink failures never fail scoring.
type ScoreSink interface {
	Name() string
	Save(ctx context.Context, result *entities.ScoreResult) error
}

// Request identifies one user to score
type Request struct {
	UserID    string                `json:"user_id"`
	Addresses entities.AddressSet   `json:"addresses"`
	Profile   *entities.UserProfile `json:"profile,omitempty"`
}

// Report is everything one scoring run produced
type Report struct {
	Portfolio *entities.Portfolio       `json:"portfolio"`
	Behavior  *entities.BehaviorProfile `json:"behavior"`
	Risk      *entities.RiskProfile     `json:"risk"`
	Score     *entities.ScoreResult     `json:"score"`
}

// Config controls batching and sink retries
type Config struct {
	BatchGroupSize int               `mapstructure:"batch_group_size"`
	MaxBatchSize   int               `mapstructure:"max_batch_size"`
	SinkRetry      retry.RetryConfig `mapstructure:"sink_retry"`
}

// DefaultConfig returns groups of 10, at most 100 users per batch
func DefaultConfig() Config {
	return Config{
		BatchGroupSize: 10,
		MaxBatchSize:   100,
		SinkRetry:      retry.DefaultConfig(),
	}
}

// Service composes the scoring stages
type Service struct {
	portfolios PortfolioFetcher
	behavior   BehaviorAnalyzer
	risk       RiskAnalyzer
	scorer     ScoreCalculator
	sinks      []ScoreSink
	publisher  events.Publisher
	logger     *logger.Logger
	cfg        Config
}

// NewService creates a pipeline service
func NewService(
	portfolios PortfolioFetcher,
	behavior BehaviorAnalyzer,
	risk RiskAnalyzer,
	scorer ScoreCalculator,
	publisher events.Publisher,
	log *logger.Logger,
	cfg Config,
	sinks ...ScoreSink,
) *Service {
	defaults := DefaultConfig()
	if cfg.BatchGroupSize <= 0 {
		cfg.BatchGroupSize = defaults.BatchGroupSize
	}
	if cfg.MaxBatchSize <= 0 {
		cfg.MaxBatchSize = defaults.MaxBatchSize
	}
	if cfg.SinkRetry.MaxAttempts <= 0 {
		cfg.SinkRetry = defaults.SinkRetry
	}
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &Service{
		portfolios: portfolios,
		behavior:   behavior,
		risk:       risk,
		scorer:     scorer,
		sinks:      sinks,
		publisher:  publisher,
		logger:     log,
		cfg:        cfg,
	}
}

// ScoreUser runs the full pipeline for one user
func (s *Service) ScoreUser(ctx context.Context, req Request) (*Report, error) {
	ctx, span := tracing.StartSpan(ctx, "pipeline.score_user", attribute.String("user_id", req.UserID))
	var err error
	defer func() { tracing.End(span, err) }()

	report := &Report{}

	err = s.stage(ctx, apperrors.StagePortfolio, func(ctx context.Context) error {
		p, ferr := s.portfolios.FetchPortfolio(ctx, req.UserID, req.Addresses)
		if ferr != nil {
			return ferr
		}
		report.Portfolio = withProfile(p, req.Profile)
		return nil
	})
	if err != nil {
		return nil, err
	}

	if err = s.analyze(ctx, req, report); err != nil {
		return nil, err
	}

	err = s.stage(ctx, apperrors.StageScoring, func(ctx context.Context) error {
		res, serr := s.scorer.CalculateScore(ctx, report.Portfolio, report.Behavior, report.Risk)
		if serr != nil {
			return serr
		}
		report.Score = res
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.deliver(ctx, report.Score)
	s.publisher.Publish(ctx, events.TopicScoreCalculated, req.UserID, report.Score)
	return report, nil
}

// analyze runs the behavior and risk stages side by side over the same ledger
func (s *Service) analyze(ctx context.Context, req Request, report *Report) error {
	p := report.Portfolio
	var behaviorErr, riskErr error
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		behaviorErr = s.stage(ctx, apperrors.StageBehavior, func(ctx context.Context) error {
			b, err := s.behavior.AnalyzeBehavior(ctx, req.UserID, p.Transactions, p)
			report.Behavior = b
			return err
		})
	}()
	go func() {
		defer wg.Done()
		riskErr = s.stage(ctx, apperrors.StageRisk, func(ctx context.Context) error {
			r, err := s.risk.PerformRiskAnalysis(ctx, req.UserID, p.Transactions, p, req.Profile)
			report.Risk = r
			return err
		})
	}()
	wg.Wait()

	if behaviorErr != nil {
		return behaviorErr
	}
	return riskErr
}

// ScoreBatch scores users in sequential groups, concurrently within a group.
// Item failures are reported per item; only an out-of-range batch size fails the call.
func (s *Service) ScoreBatch(ctx context.Context, reqs []Request) ([]entities.BatchItemResult, error) {
	if len(reqs) == 0 || len(reqs) > s.cfg.MaxBatchSize {
		return nil, apperrors.NewValidationError(
			fmt.Sprintf("batch must contain between 1 and %d users", s.cfg.MaxBatchSize))
	}

	ctx, span := tracing.StartSpan(ctx, "pipeline.score_batch", attribute.Int("users", len(reqs)))
	defer span.End()

	results := make([]entities.BatchItemResult, len(reqs))
	for start := 0; start < len(reqs); start += s.cfg.BatchGroupSize {
		end := min(start+s.cfg.BatchGroupSize, len(reqs))

		var wg sync.WaitGroup
		for i := start; i < end; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				results[i] = s.batchItem(ctx, reqs[i])
			}(i)
		}
		wg.Wait()
	}

	succeeded := 0
	for _, r := range results {
		if r.Success {
			succeeded++
		}
	}
	s.logger.CtxInfo(ctx, "Batch scored",
		"users", len(reqs),
		"succeeded", succeeded,
		"failed", len(reqs)-succeeded)
	return results, nil
}

func (s *Service) batchItem(ctx context.Context, req Request) entities.BatchItemResult {
	report, err := s.ScoreUser(ctx, req)
	metrics.RecordBatchItem(err == nil)
	if err != nil {
		return entities.BatchItemResult{UserID: req.UserID, Error: err.Error()}
	}
	return entities.BatchItemResult{UserID: req.UserID, Success: true, Result: report.Score}
}

// stage times fn and records failures against the stage name
func (s *Service) stage(ctx context.Context, name string, fn func(context.Context) error) error {
	ctx, span := tracing.StartSpan(ctx, "pipeline."+name)
	start := time.Now()
	err := fn(ctx)
	metrics.RecordStage(name, time.Since(start).Seconds())
	tracing.End(span, err)

	if err != nil {
		metrics.RecordPipelineFailure(name, apperrors.GetCode(err))
		s.logger.CtxWarn(ctx, "Pipeline stage failed", "stage", name, "error", err)
	}
	return err
}

// deliver hands the score to every sink with bounded retries
func (s *Service) deliver(ctx context.Context, res *entities.ScoreResult) {
	for _, sink := range s.sinks {
		err := retry.WithExponentialBackoff(ctx, s.cfg.SinkRetry, func() error {
			return sink.Save(ctx, res)
		}, func(err error) bool {
			return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
		})
		metrics.RecordSinkWrite(sink.Name(), err)
		if err != nil {
			s.logger.WithFields(map[string]interface{}{
				"sink":    sink.Name(),
				"user_id": res.UserID,
			}).WithError(err).CtxError(ctx, "Score sink write failed")
		}
	}
}

// withProfile overlays profile income and location on a copy of the portfolio
func withProfile(p *entities.Portfolio, profile *entities.UserProfile) *entities.Portfolio {
	if profile == nil {
		return p
	}
	out := *p
	if profile.Income != nil {
		out.Income = profile.Income
	}
	if profile.Location != "" {
		out.Location = profile.Location
	}
	return &out
}
