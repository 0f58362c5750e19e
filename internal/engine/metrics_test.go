package engine

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/fyrsmithlabs/orchd/internal/adapter"
	"github.com/fyrsmithlabs/orchd/internal/state"
	"github.com/fyrsmithlabs/orchd/internal/workflow"
)

var metricReader *sdkmetric.ManualReader

// TestMain installs a manual-reader meter provider before any engine runs,
// because instruments are created once on first use and would otherwise bind
// to the global no-op meter.
func TestMain(m *testing.M) {
	metricReader = sdkmetric.NewManualReader()
	otel.SetMeterProvider(sdkmetric.NewMeterProvider(sdkmetric.WithReader(metricReader)))
	os.Exit(m.Run())
}

func collect(t *testing.T) map[string]metricdata.Metrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, metricReader.Collect(context.Background(), &rm))

	out := map[string]metricdata.Metrics{}
	for _, scope := range rm.ScopeMetrics {
		for _, m := range scope.Metrics {
			out[m.Name] = m
		}
	}
	return out
}

func counterTotal(t *testing.T, m metricdata.Metrics) int64 {
	t.Helper()
	sum, ok := m.Data.(metricdata.Sum[int64])
	require.True(t, ok, "metric %s is not an int64 sum", m.Name)
	var total int64
	for _, dp := range sum.DataPoints {
		total += dp.Value
	}
	return total
}

func TestMetrics_ActionsAndTransitions(t *testing.T) {
	eng, err := New(Config{
		StudyID:      "study-metrics",
		WorkItemSeed: state.WorkItem{Repository: "acme/widgets", IssueNumber: 7},
		Adapter:      adapter.NewSim(),
	})
	require.NoError(t, err)

	before := collect(t)
	var actionsBefore, failuresBefore, transitionsBefore int64
	if m, ok := before["orchd.engine.actions"]; ok {
		actionsBefore = counterTotal(t, m)
	}
	if m, ok := before["orchd.engine.action_failures"]; ok {
		failuresBefore = counterTotal(t, m)
	}
	if m, ok := before["orchd.engine.phase_transitions"]; ok {
		transitionsBefore = counterTotal(t, m)
	}

	outcome := eng.ExecuteAction(context.Background(), Action{Kind: workflow.ActionProvisionAgent})
	require.True(t, outcome.Success)
	outcome = eng.ExecuteAction(context.Background(), Action{Kind: workflow.ActionUpdatePR})
	require.False(t, outcome.Success)

	after := collect(t)

	actions, ok := after["orchd.engine.actions"]
	require.True(t, ok)
	assert.Equal(t, actionsBefore+2, counterTotal(t, actions))

	failures, ok := after["orchd.engine.action_failures"]
	require.True(t, ok)
	assert.Equal(t, failuresBefore+1, counterTotal(t, failures))

	transitions, ok := after["orchd.engine.phase_transitions"]
	require.True(t, ok)
	assert.Equal(t, transitionsBefore+1, counterTotal(t, transitions))

	duration, ok := after["orchd.engine.action_duration"]
	require.True(t, ok)
	hist, ok := duration.Data.(metricdata.Histogram[float64])
	require.True(t, ok)
	assert.NotEmpty(t, hist.DataPoints)
}
