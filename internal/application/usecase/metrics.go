package usecase

import (
	"context"
	"strconv"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"

	"github.com/bibbank/lendcore/internal/domain/model"
)

// Metrics holds the lending instruments. A nil *Metrics records nothing.
type Metrics struct {
	transitions       metric.Int64Counter
	scoreComputations metric.Int64Counter
}

// NewMetrics creates the instruments on meter, or on a no-op meter when nil.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	if meter == nil {
		meter = noop.NewMeterProvider().Meter("lending")
	}

	transitions, err := meter.Int64Counter("lending_transitions",
		metric.WithDescription("Loan lifecycle transitions by action and outcome"))
	if err != nil {
		return nil, err
	}
	scores, err := meter.Int64Counter("lending_score_computations",
		metric.WithDescription("Credit score computations by whether the score changed"))
	if err != nil {
		return nil, err
	}
	return &Metrics{transitions: transitions, scoreComputations: scores}, nil
}

func (m *Metrics) recordTransition(ctx context.Context, action string, err error) {
	if m == nil {
		return
	}
	m.transitions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("action", action),
		attribute.String("outcome", string(model.Kind(err))),
	))
}

func (m *Metrics) recordScore(ctx context.Context, changed bool) {
	if m == nil {
		return
	}
	m.scoreComputations.Add(ctx, 1, metric.WithAttributes(
		attribute.String("changed", strconv.FormatBool(changed)),
	))
}
