package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/bibbank/lendcore/internal/application/dto"
	"github.com/bibbank/lendcore/internal/domain/model"
	"github.com/bibbank/lendcore/internal/domain/port"
	"github.com/bibbank/lendcore/internal/domain/valueobject"
)

// DefaultSweepBatchSize bounds how many loans one sweep pass visits.
const DefaultSweepBatchSize = 500

// SweepDelinquencyUseCase marks past-due loans overdue and long past-due
// loans defaulted. Each loan goes through its own lifecycle transaction, so
// one loan failing its guard does not stop the sweep. Any other error does.
type SweepDelinquencyUseCase struct {
	uow       port.UnitOfWork
	lifecycle *LoanLifecycle
	logger    *slog.Logger
}

// NewSweepDelinquencyUseCase wires dependencies.
func NewSweepDelinquencyUseCase(uow port.UnitOfWork, lifecycle *LoanLifecycle, logger *slog.Logger) *SweepDelinquencyUseCase {
	if logger == nil {
		logger = slog.Default()
	}
	return &SweepDelinquencyUseCase{uow: uow, lifecycle: lifecycle, logger: logger}
}

// Execute runs one sweep: overdue first, so a loan far past due moves
// disbursed -> overdue -> defaulted in a single run.
func (uc *SweepDelinquencyUseCase) Execute(ctx context.Context, req dto.SweepRequest) (dto.SweepResponse, error) {
	meta := withCorrelation(req.Meta)
	batch := req.BatchSize
	if batch <= 0 {
		batch = DefaultSweepBatchSize
	}

	var resp dto.SweepResponse
	passes := []struct {
		states  []valueobject.LoanState
		minDays int
		mark    func(context.Context, dto.LoanTransitionRequest) (dto.LoanResponse, error)
		count   *int
	}{
		{
			states: []valueobject.LoanState{valueobject.LoanStateDisbursed},
			mark:   uc.lifecycle.MarkOverdue,
			count:  &resp.MarkedOverdue,
		},
		{
			states:  []valueobject.LoanState{valueobject.LoanStateOverdue, valueobject.LoanStateDisbursed},
			minDays: model.DefaultThresholdDays,
			mark:    uc.lifecycle.MarkDefaulted,
			count:   &resp.MarkedDefaulted,
		},
	}

	for _, pass := range passes {
		ids, err := uc.uow.Repos().Loans.ListPastDue(ctx, pass.states, uc.lifecycle.clock.Now(), pass.minDays, batch)
		if err != nil {
			return resp, fmt.Errorf("list past due loans: %w", err)
		}
		for _, id := range ids {
			if err := ctx.Err(); err != nil {
				return resp, err
			}
			if _, err := pass.mark(ctx, dto.LoanTransitionRequest{Meta: meta, LoanID: id}); err != nil {
				if errors.Is(err, model.ErrGuardFailed) || errors.Is(err, model.ErrInvalidStateTransition) {
					resp.Skipped++
					continue
				}
				return resp, fmt.Errorf("sweep loan %s: %w", id, err)
			}
			*pass.count++
		}
	}

	uc.logger.InfoContext(ctx, "delinquency sweep finished",
		"marked_overdue", resp.MarkedOverdue,
		"marked_defaulted", resp.MarkedDefaulted,
		"skipped", resp.Skipped,
		"correlation_id", meta.CorrelationID,
	)
	return resp, nil
}
