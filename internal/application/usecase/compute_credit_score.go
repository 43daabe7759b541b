package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/bibbank/lendcore/internal/application/dto"
	"github.com/bibbank/lendcore/internal/application/outbox"
	"github.com/bibbank/lendcore/internal/domain/event"
	"github.com/bibbank/lendcore/internal/domain/model"
	"github.com/bibbank/lendcore/internal/domain/port"
	"github.com/bibbank/lendcore/internal/domain/service"
)

// ComputeCreditScoreUseCase recomputes a borrower's score and optionally
// persists it and announces the change.
type ComputeCreditScoreUseCase struct {
	uow       port.UnitOfWork
	engine    *service.CreditScoringEngine
	publisher *outbox.Publisher
	clock     port.Clock
	metrics   *Metrics
	logger    *slog.Logger
}

// NewComputeCreditScoreUseCase wires dependencies.
func NewComputeCreditScoreUseCase(
	uow port.UnitOfWork,
	engine *service.CreditScoringEngine,
	publisher *outbox.Publisher,
	clock port.Clock,
	metrics *Metrics,
	logger *slog.Logger,
) *ComputeCreditScoreUseCase {
	if clock == nil {
		clock = port.SystemClock
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ComputeCreditScoreUseCase{
		uow:       uow,
		engine:    engine,
		publisher: publisher,
		clock:     clock,
		metrics:   metrics,
		logger:    logger,
	}
}

// Execute computes the score. A read-only computation takes no locks and
// writes nothing. With Persist the new score and, when it changed, a score
// event are stored; with Emit a user.score_changed event is appended to the
// outbox when the score changed. Both compare against the same stored score.
func (uc *ComputeCreditScoreUseCase) Execute(ctx context.Context, req dto.ComputeScoreRequest) (dto.ScoreResponse, error) {
	meta := withCorrelation(req.Meta)
	now := uc.clock.Now()

	var (
		resp dto.ScoreResponse
		err  error
	)
	if !req.Persist && !req.Emit {
		resp, err = uc.compute(ctx, uc.uow.Repos(), meta, req.UserID, false, false, now)
	} else {
		err = uc.uow.WithinTx(ctx, func(ctx context.Context, repos port.Repos) error {
			var txErr error
			resp, txErr = uc.compute(ctx, repos, meta, req.UserID, req.Persist, req.Emit, now)
			return txErr
		})
	}
	if err != nil {
		return dto.ScoreResponse{}, err
	}

	uc.metrics.recordScore(ctx, resp.Changed)
	uc.logger.InfoContext(ctx, "credit score computed",
		"user_id", resp.UserID,
		"old_score", resp.OldScore,
		"score", resp.Score,
		"persisted", resp.Persisted,
		"emitted", resp.Emitted,
		"correlation_id", meta.CorrelationID,
	)
	return resp, nil
}

// compute scores one borrower through repos, which may belong to a caller's
// transaction.
func (uc *ComputeCreditScoreUseCase) compute(
	ctx context.Context,
	repos port.Repos,
	meta dto.Meta,
	userID uuid.UUID,
	persist, emit bool,
	now time.Time,
) (dto.ScoreResponse, error) {
	borrower, err := repos.Borrowers.FindByID(ctx, userID)
	if err != nil {
		return dto.ScoreResponse{}, fmt.Errorf("find borrower: %w", err)
	}
	facts, err := repos.Scoring.Facts(ctx, userID, now)
	if err != nil {
		return dto.ScoreResponse{}, fmt.Errorf("gather scoring facts: %w", err)
	}

	result := uc.engine.Compute(service.NewScoringHistory(facts, now))
	oldScore := borrower.CurrentScore()
	changed := result.Score != oldScore

	if persist {
		if err := repos.Borrowers.UpdateScore(ctx, userID, result.Score); err != nil {
			return dto.ScoreResponse{}, fmt.Errorf("update score: %w", err)
		}
		if changed {
			ev := model.NewCreditScoreEvent(userID, model.ScoreReasonRecompute, oldScore, result.Score, result.Components, now)
			if err := repos.ScoreEvents.Append(ctx, ev); err != nil {
				return dto.ScoreResponse{}, fmt.Errorf("append score event: %w", err)
			}
		}
	}

	emitted := emit && changed
	if emitted {
		changedEvent := event.NewUserScoreChanged(userID, oldScore, result.Score, now)
		if err := uc.publisher.Publish(ctx, repos.Outbox, outboxHeaders(meta), changedEvent); err != nil {
			return dto.ScoreResponse{}, fmt.Errorf("publish score change: %w", err)
		}
	}

	return dto.ScoreResponse{
		UserID:     userID,
		OldScore:   oldScore,
		Score:      result.Score,
		Changed:    changed,
		Persisted:  persist,
		Emitted:    emitted,
		Components: toScoreComponents(result.Components),
	}, nil
}
