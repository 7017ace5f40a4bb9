package gateway

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	"github.com/fablesmith/loregate/internal/catalog"
)

const instrumentationName = "github.com/fablesmith/loregate/internal/gateway"

// Metrics instruments verification transitions.
type Metrics struct {
	meter            metric.Meter
	logger           *zap.Logger
	transitionsTotal metric.Int64Counter
}

// NewMetrics creates gateway metrics on the global meter provider.
func NewMetrics(logger *zap.Logger) *Metrics {
	if logger == nil {
		logger = zap.NewNop()
	}

	m := &Metrics{
		meter:  otel.Meter(instrumentationName),
		logger: logger,
	}
	m.init()
	return m
}

func (m *Metrics) init() {
	var err error

	m.transitionsTotal, err = m.meter.Int64Counter(
		"loregate.verification.transitions_total",
		metric.WithDescription("Verification transitions labeled by action (approve, reject, edit_approve) and outcome (ok, not_found, already_finalized, invalid_edit, error)."),
		metric.WithUnit("{transition}"),
	)
	if err != nil {
		m.logger.Warn("failed to create transitions counter", zap.Error(err))
	}
}

// RecordTransition counts one transition attempt.
func (m *Metrics) RecordTransition(ctx context.Context, action, outcome string) {
	if m.transitionsTotal == nil {
		return
	}
	m.transitionsTotal.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("action", action),
			attribute.String("outcome", outcome),
		))
}

// outcomeOf maps a transition error onto the metric outcome label.
func outcomeOf(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, catalog.ErrNotFound):
		return "not_found"
	case errors.Is(err, catalog.ErrAlreadyFinalized):
		return "already_finalized"
	case errors.Is(err, catalog.ErrInvalidEdit):
		return "invalid_edit"
	default:
		return "error"
	}
}
