package bulk

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

const instrumentationName = "github.com/fablesmith/loregate/internal/bulk"

// Metrics instruments bulk fan-out batches.
type Metrics struct {
	meter        metric.Meter
	logger       *zap.Logger
	batchSize    metric.Int64Histogram
	itemOutcomes metric.Int64Counter
}

// NewMetrics creates bulk metrics on the global meter provider.
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

	m.batchSize, err = m.meter.Int64Histogram(
		"loregate.bulk.batch_size",
		metric.WithDescription("Number of items snapshotted per bulk transition, labeled by action."),
		metric.WithUnit("{item}"),
		metric.WithExplicitBucketBoundaries(1, 5, 10, 25, 50, 100, 250, 500),
	)
	if err != nil {
		m.logger.Warn("failed to create batch size histogram", zap.Error(err))
	}

	m.itemOutcomes, err = m.meter.Int64Counter(
		"loregate.bulk.item_outcomes_total",
		metric.WithDescription("Per-item bulk outcomes labeled by action and outcome (succeeded, failed)."),
		metric.WithUnit("{item}"),
	)
	if err != nil {
		m.logger.Warn("failed to create item outcomes counter", zap.Error(err))
	}
}

// RecordBatch records one completed bulk application.
func (m *Metrics) RecordBatch(ctx context.Context, action string, succeeded, failed int) {
	attrs := metric.WithAttributes(attribute.String("action", action))
	if m.batchSize != nil {
		m.batchSize.Record(ctx, int64(succeeded+failed), attrs)
	}
	if m.itemOutcomes != nil {
		m.itemOutcomes.Add(ctx, int64(succeeded),
			metric.WithAttributes(attribute.String("action", action), attribute.String("outcome", "succeeded")))
		m.itemOutcomes.Add(ctx, int64(failed),
			metric.WithAttributes(attribute.String("action", action), attribute.String("outcome", "failed")))
	}
}
