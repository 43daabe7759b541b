package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/bibbank/lendcore/internal/app"
	"github.com/bibbank/lendcore/internal/application/dto"
	"github.com/bibbank/lendcore/internal/application/usecase"
	"github.com/bibbank/lendcore/internal/infrastructure/config"
	"github.com/bibbank/lendcore/pkg/events"
	pkgpostgres "github.com/bibbank/lendcore/pkg/postgres"
)

func migrateCmd(s *session) *cobra.Command {
	c := &cobra.Command{
		Use:   "migrate",
		Short: "Apply or roll back the database schema",
	}

	run := func(direction string, fn func(dsn, dir string) error) *cobra.Command {
		return &cobra.Command{
			Use:   direction,
			Short: "Run all " + direction + " migrations",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				cfg, err := s.loadConfig()
				if err != nil {
					return err
				}
				if cfg.StorageDriver != config.DriverPostgres {
					return fmt.Errorf("migrate requires STORAGE_DRIVER=%s, got %q", config.DriverPostgres, cfg.StorageDriver)
				}
				if err := fn(cfg.Postgres().DSN(), cfg.DB.MigrationsPath); err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), map[string]string{
					"migrations": cfg.DB.MigrationsPath,
					"direction":  direction,
					"status":     "ok",
				})
			},
		}
	}

	c.AddCommand(
		run("up", pkgpostgres.RunMigrations),
		run("down", pkgpostgres.RunMigrationsDown),
	)
	return c
}

func scoreCmd(s *session) *cobra.Command {
	c := &cobra.Command{
		Use:   "score",
		Short: "Credit scoring",
	}

	var persist, emit bool
	compute := &cobra.Command{
		Use:   "compute <user-id>",
		Short: "Compute a borrower's credit score with its breakdown",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("user", args[0])
			if err != nil {
				return err
			}
			return s.withApp(cmd, func(ctx context.Context, a *app.App) (any, error) {
				return a.Scorer.Execute(ctx, dto.ComputeScoreRequest{Meta: s.meta, UserID: id, Persist: persist, Emit: emit})
			})
		},
	}
	compute.Flags().BoolVar(&persist, "persist", false, "store the new score and a score event")
	compute.Flags().BoolVar(&emit, "emit", false, "append user.score_changed to the outbox when the score changed")

	c.AddCommand(compute)
	return c
}

func sweepCmd(s *session) *cobra.Command {
	c := &cobra.Command{
		Use:   "sweep",
		Short: "Batch jobs",
	}

	var batch int
	delinquency := &cobra.Command{
		Use:   "delinquency",
		Short: "Mark past-due loans overdue and long past-due loans defaulted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return s.withApp(cmd, func(ctx context.Context, a *app.App) (any, error) {
				return a.Sweep.Execute(ctx, dto.SweepRequest{Meta: s.meta, BatchSize: batch})
			})
		},
	}
	delinquency.Flags().IntVar(&batch, "batch", usecase.DefaultSweepBatchSize, "maximum loans per pass")

	c.AddCommand(delinquency)
	return c
}

// outboxRow is the operator view of an outbox entry.
type outboxRow struct {
	CreatedAt     time.Time         `json:"created_at"`
	Headers       map[string]string `json:"headers"`
	Name          string            `json:"name"`
	AggregateType string            `json:"aggregate_type"`
	Payload       json.RawMessage   `json:"payload"`
	Attempts      int               `json:"attempts"`
	ID            uuid.UUID         `json:"id"`
	AggregateID   uuid.UUID         `json:"aggregate_id"`
}

func toOutboxRows(entries []events.OutboxEntry) []outboxRow {
	rows := make([]outboxRow, len(entries))
	for i, e := range entries {
		rows[i] = outboxRow{
			CreatedAt:     e.CreatedAt,
			Headers:       e.Headers,
			Name:          e.Name,
			AggregateType: e.AggregateType,
			Payload:       e.Payload,
			Attempts:      e.Attempts,
			ID:            e.ID,
			AggregateID:   e.AggregateID,
		}
	}
	return rows
}

func outboxCmd(s *session) *cobra.Command {
	c := &cobra.Command{
		Use:   "outbox",
		Short: "Inspect the transactional outbox",
	}

	var limit int
	deadLetters := &cobra.Command{
		Use:   "dead-letters",
		Short: fmt.Sprintf("List unprocessed events with %d or more delivery attempts", events.DeadLetterThreshold),
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return s.withApp(cmd, func(ctx context.Context, a *app.App) (any, error) {
				entries, err := a.Repos().Outbox.DeadLettered(ctx, limit)
				if err != nil {
					return nil, err
				}
				return toOutboxRows(entries), nil
			})
		},
	}
	deadLetters.Flags().IntVar(&limit, "limit", 100, "maximum rows to print (0 for all)")

	c.AddCommand(deadLetters)
	return c
}
