package otel

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/benjamonnguyen/chilltimer"
)

func newTestExporter(t *testing.T) (*Exporter, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	e, err := newExporter(sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader)))
	require.NoError(t, err)
	t.Cleanup(func() { _ = e.Close(context.Background()) })
	return e, reader
}

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Metrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	got := make(map[string]metricdata.Metrics)
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			got[m.Name] = m
		}
	}
	return got
}

func sumByOutcome(t *testing.T, m metricdata.Metrics) map[string]int64 {
	t.Helper()
	sum, ok := m.Data.(metricdata.Sum[int64])
	require.True(t, ok)
	got := make(map[string]int64)
	for _, dp := range sum.DataPoints {
		outcome, _ := dp.Attributes.Value(attribute.Key("outcome"))
		got[outcome.AsString()] += dp.Value
	}
	return got
}

func TestExporter_RecordSession(t *testing.T) {
	t.Parallel()

	e, reader := newTestExporter(t)
	ctx := context.Background()

	e.RecordSession(ctx, chilltimer.SessionRecord{TargetSeconds: 600, ActualDurationSeconds: 700})
	e.RecordSession(ctx, chilltimer.SessionRecord{TargetSeconds: 600, ActualDurationSeconds: 120})
	e.RecordReset(ctx)

	metrics := collect(t, reader)
	assert.Equal(t, map[string]int64{
		OutcomeCompleted: 1,
		OutcomeEarly:     1,
		OutcomeReset:     1,
	}, sumByOutcome(t, metrics["chill_sessions_total"]))

	duration, ok := metrics["chill_session_duration_seconds"].Data.(metricdata.Histogram[float64])
	require.True(t, ok)
	var count uint64
	var total float64
	for _, dp := range duration.DataPoints {
		count += dp.Count
		total += dp.Sum
	}
	assert.Equal(t, uint64(2), count)
	assert.InDelta(t, 820, total, 0.001)

	overtime, ok := metrics["chill_session_overtime_seconds"].Data.(metricdata.Histogram[float64])
	require.True(t, ok)
	require.Len(t, overtime.DataPoints, 1)
	assert.InDelta(t, 100, overtime.DataPoints[0].Sum, 0.001)
}

type cueFunc func(context.Context, float64) error

func (f cueFunc) Play(ctx context.Context, volume float64) error {
	return f(ctx, volume)
}

func TestExporter_CountCues(t *testing.T) {
	t.Parallel()

	e, reader := newTestExporter(t)
	ctx := context.Background()

	ok := e.CountCues(cueFunc(func(context.Context, float64) error { return nil }))
	failing := e.CountCues(cueFunc(func(context.Context, float64) error { return errors.New("no device") }))

	require.NoError(t, ok.Play(ctx, 0.5))
	require.NoError(t, ok.Play(ctx, 0))
	require.Error(t, failing.Play(ctx, 0.5))

	cues, found := collect(t, reader)["chill_cues_total"].Data.(metricdata.Sum[int64])
	require.True(t, found)
	require.Len(t, cues.DataPoints, 1)
	assert.Equal(t, int64(1), cues.DataPoints[0].Value)
}

func TestNewExporter_Disabled(t *testing.T) {
	t.Parallel()

	_, err := NewExporter(context.Background(), chilltimer.OtelConfig{})
	assert.Error(t, err)
}

func TestNoOpExporter(t *testing.T) {
	t.Parallel()

	e := NewNoOpExporter()
	cue := cueFunc(func(context.Context, float64) error { return nil })
	e.RecordSession(context.Background(), chilltimer.SessionRecord{})
	e.RecordReset(context.Background())
	assert.NotNil(t, e.CountCues(cue))
	assert.NoError(t, e.Close(context.Background()))
}
