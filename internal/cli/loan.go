package cli

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"github.com/bibbank/lendcore/internal/app"
	"github.com/bibbank/lendcore/internal/application/dto"
)

type transitionFunc func(ctx context.Context, req dto.LoanTransitionRequest) (dto.LoanResponse, error)

func loanCmd(s *session) *cobra.Command {
	c := &cobra.Command{
		Use:   "loan",
		Short: "Inspect loans and drive their lifecycle",
	}

	c.AddCommand(
		loanShowCmd(s),
		loanTransitionCmd(s, "approve", "Approve a pending loan",
			func(a *app.App) transitionFunc { return a.Lifecycle.Approve }),
		loanRejectCmd(s),
		loanDisburseCmd(s),
		loanTransitionCmd(s, "mark-paid", "Mark a loan with nothing outstanding as paid",
			func(a *app.App) transitionFunc { return a.Lifecycle.MarkPaid }),
		loanTransitionCmd(s, "mark-overdue", "Mark a disbursed loan past its due date as overdue",
			func(a *app.App) transitionFunc { return a.Lifecycle.MarkOverdue }),
		loanTransitionCmd(s, "mark-defaulted", "Mark a loan more than 30 days past due as defaulted",
			func(a *app.App) transitionFunc { return a.Lifecycle.MarkDefaulted }),
	)
	return c
}

func loanShowCmd(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "show <loan-id>",
		Short: "Print a loan and its payments",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("loan", args[0])
			if err != nil {
				return err
			}
			return s.withApp(cmd, func(ctx context.Context, a *app.App) (any, error) {
				return a.GetLoan.Execute(ctx, dto.GetLoanRequest{LoanID: id})
			})
		},
	}
}

func loanTransitionCmd(s *session, use, short string, pick func(*app.App) transitionFunc) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <loan-id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("loan", args[0])
			if err != nil {
				return err
			}
			return s.withApp(cmd, func(ctx context.Context, a *app.App) (any, error) {
				return pick(a)(ctx, dto.LoanTransitionRequest{Meta: s.meta, LoanID: id})
			})
		},
	}
}

func loanRejectCmd(s *session) *cobra.Command {
	var reason string

	cmd := &cobra.Command{
		Use:   "reject <loan-id>",
		Short: "Reject a pending loan",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("loan", args[0])
			if err != nil {
				return err
			}
			return s.withApp(cmd, func(ctx context.Context, a *app.App) (any, error) {
				return a.Lifecycle.Reject(ctx, dto.RejectLoanRequest{Meta: s.meta, LoanID: id, Reason: reason})
			})
		},
	}

	cmd.Flags().StringVar(&reason, "reason", "", "reason recorded on loan.rejected")
	return cmd
}

func loanDisburseCmd(s *session) *cobra.Command {
	var key string

	cmd := &cobra.Command{
		Use:   "disburse <loan-id>",
		Short: "Disburse an approved loan; repeating the same key replays the first result",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("loan", args[0])
			if err != nil {
				return err
			}
			if key == "" {
				return errors.New("--key is required")
			}
			return s.withApp(cmd, func(ctx context.Context, a *app.App) (any, error) {
				return a.Lifecycle.Disburse(ctx, dto.DisburseLoanRequest{Meta: s.meta, LoanID: id, IdempotencyKey: key})
			})
		},
	}

	cmd.Flags().StringVar(&key, "key", "", "idempotency key (required)")
	return cmd
}
