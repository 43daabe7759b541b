package usecase

import (
	"time"

	"github.com/google/uuid"

	"github.com/bibbank/lendcore/internal/application/dto"
	"github.com/bibbank/lendcore/internal/domain/model"
	"github.com/bibbank/lendcore/pkg/events"
	"github.com/bibbank/lendcore/pkg/money"
)

func toLoanResponse(loan model.Loan) dto.LoanResponse {
	return dto.LoanResponse{
		ID:                        loan.ID(),
		UserID:                    loan.UserID(),
		State:                     loan.State().String(),
		Product:                   loan.Product().String(),
		Amount:                    money.FromCents(loan.AmountCents(), money.PHP).String(),
		AmountCents:               loan.AmountCents(),
		TermDays:                  loan.TermDays(),
		DueOn:                     loan.DueOn().Format(time.DateOnly),
		PrincipalOutstandingCents: loan.PrincipalOutstanding(),
		InterestAccruedCents:      loan.InterestAccrued(),
		PenaltyAccruedCents:       loan.PenaltyAccrued(),
		OutstandingBalanceCents:   loan.OutstandingBalance(),
		APR:                       loan.APR(),
		CreatedAt:                 loan.CreatedAt(),
		UpdatedAt:                 loan.UpdatedAt(),
	}
}

func toPaymentResponse(p model.Payment) dto.PaymentResponse {
	return dto.PaymentResponse{
		ID:          p.ID(),
		LoanID:      p.LoanID(),
		Kind:        p.Kind().String(),
		State:       p.State().String(),
		GatewayRef:  p.GatewayRef(),
		Amount:      money.FromCents(p.AmountCents(), money.PHP).String(),
		AmountCents: p.AmountCents(),
		PostedAt:    p.PostedAt(),
	}
}

func toScoreComponents(components []model.ScoreComponent) []dto.ScoreComponentResponse {
	out := make([]dto.ScoreComponentResponse, len(components))
	for i, c := range components {
		out[i] = dto.ScoreComponentResponse{
			Name:         c.Name,
			Raw:          c.Raw,
			Normalized:   c.Normalized,
			Weight:       c.Weight,
			Contribution: c.Contribution,
		}
	}
	return out
}

// withCorrelation fills in a correlation id so logs and outbox rows of one
// operation agree on it.
func withCorrelation(meta dto.Meta) dto.Meta {
	if meta.CorrelationID == "" {
		meta.CorrelationID = uuid.NewString()
	}
	return meta
}

func outboxHeaders(meta dto.Meta) events.Headers {
	headers := events.Headers{events.HeaderCorrelationID: meta.CorrelationID}
	if meta.ActorID != "" {
		headers[events.HeaderActorID] = meta.ActorID
	}
	return headers
}
