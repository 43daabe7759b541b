package usecase

import (
	"context"
	"fmt"

	"github.com/bibbank/lendcore/internal/application/dto"
	"github.com/bibbank/lendcore/internal/domain/port"
)

// GetLoanUseCase retrieves a loan and its payments.
type GetLoanUseCase struct {
	uow port.UnitOfWork
}

// NewGetLoanUseCase wires dependencies.
func NewGetLoanUseCase(uow port.UnitOfWork) *GetLoanUseCase {
	return &GetLoanUseCase{uow: uow}
}

// Execute returns the loan with the given ID. It takes no locks.
func (uc *GetLoanUseCase) Execute(ctx context.Context, req dto.GetLoanRequest) (dto.LoanDetailResponse, error) {
	repos := uc.uow.Repos()

	loan, err := repos.Loans.FindByID(ctx, req.LoanID)
	if err != nil {
		return dto.LoanDetailResponse{}, fmt.Errorf("find loan: %w", err)
	}
	payments, err := repos.Payments.ListByLoan(ctx, req.LoanID)
	if err != nil {
		return dto.LoanDetailResponse{}, fmt.Errorf("list payments: %w", err)
	}

	resp := dto.LoanDetailResponse{
		Loan:     toLoanResponse(loan),
		Payments: make([]dto.PaymentResponse, len(payments)),
	}
	for i, p := range payments {
		resp.Payments[i] = toPaymentResponse(p)
	}
	return resp, nil
}
