package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/fyrsmithlabs/orchd/internal/workflow"
)

const instrumentationName = "github.com/fyrsmithlabs/orchd/internal/engine"

var (
	metricsOnce sync.Once

	actionCounter     metric.Int64Counter
	actionDuration    metric.Float64Histogram
	actionFailures    metric.Int64Counter
	transitionCounter metric.Int64Counter
)

// initMetrics creates the OpenTelemetry instruments once, on first use.
func initMetrics() {
	metricsOnce.Do(func() {
		meter := otel.Meter(instrumentationName)

		var err error
		actionCounter, err = meter.Int64Counter(
			"orchd.engine.actions",
			metric.WithDescription("Total number of executed orchestration actions"),
			metric.WithUnit("{action}"),
		)
		if err != nil {
			panic(fmt.Sprintf("failed to create action counter: %v", err))
		}

		actionDuration, err = meter.Float64Histogram(
			"orchd.engine.action_duration",
			metric.WithDescription("Wall time of orchestration action execution"),
			metric.WithUnit("s"),
		)
		if err != nil {
			panic(fmt.Sprintf("failed to create action duration histogram: %v", err))
		}

		actionFailures, err = meter.Int64Counter(
			"orchd.engine.action_failures",
			metric.WithDescription("Number of failed orchestration actions"),
			metric.WithUnit("{action}"),
		)
		if err != nil {
			panic(fmt.Sprintf("failed to create failure counter: %v", err))
		}

		transitionCounter, err = meter.Int64Counter(
			"orchd.engine.phase_transitions",
			metric.WithDescription("Number of phase transitions"),
			metric.WithUnit("{transition}"),
		)
		if err != nil {
			panic(fmt.Sprintf("failed to create transition counter: %v", err))
		}
	})
}

// observeAction records one executed action.
func observeAction(ctx context.Context, pluginType string, kind workflow.ActionKind, success bool, elapsed time.Duration) {
	initMetrics()

	attrs := metric.WithAttributes(
		attribute.String("plugin_type", pluginType),
		attribute.String("action", string(kind)),
		attribute.Bool("success", success),
	)
	actionCounter.Add(ctx, 1, attrs)
	actionDuration.Record(ctx, elapsed.Seconds(), attrs)
	if !success {
		actionFailures.Add(ctx, 1, attrs)
	}
}

// observeTransition records one phase transition.
func observeTransition(ctx context.Context, pluginType string, from, to workflow.Phase) {
	initMetrics()

	transitionCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("plugin_type", pluginType),
		attribute.String("from", string(from)),
		attribute.String("to", string(to)),
	))
}
