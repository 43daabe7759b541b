// Package cli implements lendingctl, the operator command line for the
// lending core.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/bibbank/lendcore/internal/app"
	"github.com/bibbank/lendcore/internal/application/dto"
	"github.com/bibbank/lendcore/internal/infrastructure/config"
	"github.com/bibbank/lendcore/pkg/observability"
)

// deps lets tests replace configuration loading and application wiring.
type deps struct {
	loadConfig func() (config.Config, error)
	open       func(ctx context.Context, cfg config.Config) (*app.App, error)
}

func defaultDeps() deps {
	return deps{
		loadConfig: func() (config.Config, error) {
			cfg, err := config.Load()
			if err != nil {
				return config.Config{}, err
			}
			return cfg, cfg.Validate()
		},
		open: func(ctx context.Context, cfg config.Config) (*app.App, error) {
			logger := observability.NewLogger(os.Stderr, observability.LogConfig{
				Level:   cfg.Log.Level,
				Format:  "text",
				Service: "lendingctl",
			})
			return app.New(ctx, cfg, logger, nil)
		},
	}
}

func Execute() {
	cmd := newRootCmd(defaultDeps())
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// session is the per-invocation state shared by subcommands.
type session struct {
	deps
	meta dto.Meta
}

func newRootCmd(d deps) *cobra.Command {
	s := &session{deps: d}

	cmd := &cobra.Command{
		Use:          "lendingctl",
		Short:        "Operate the lending core: migrations, loan transitions, scoring and sweeps",
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&s.meta.ActorID, "actor", "", "operator id recorded in outbox headers")
	cmd.PersistentFlags().StringVar(&s.meta.CorrelationID, "correlation-id", "", "correlation id for emitted events (generated when empty)")

	cmd.AddCommand(
		migrateCmd(s),
		loanCmd(s),
		scoreCmd(s),
		sweepCmd(s),
		outboxCmd(s),
	)
	return cmd
}

// withApp wires the application, runs fn and prints its result as JSON.
func (s *session) withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app.App) (any, error)) error {
	cfg, err := s.loadConfig()
	if err != nil {
		return err
	}
	a, err := s.open(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	out, err := fn(cmd.Context(), a)
	if err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), out)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func parseID(kind, raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid %s id %q: %w", kind, raw, err)
	}
	return id, nil
}
