// Package otel exports meditation session metrics to an OTEL Collector.
package otel

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/benjamonnguyen/chilltimer"
	"github.com/benjamonnguyen/chilltimer/timer"
)

const (
	serviceName    = "chilltimer"
	serviceVersion = "0.1.0"

	OutcomeCompleted = "completed"
	OutcomeEarly     = "stopped_early"
	OutcomeReset     = "reset"
)

// Exporter records session outcomes, durations and completion cues.
type Exporter struct {
	provider      *sdkmetric.MeterProvider
	sessionsTotal metric.Int64Counter
	cuesTotal     metric.Int64Counter
	durationHist  metric.Float64Histogram
	overtimeHist  metric.Float64Histogram
}

// NewExporter creates an exporter that pushes to the configured OTLP gRPC
// endpoint.
func NewExporter(ctx context.Context, cfg chilltimer.OtelConfig) (*Exporter, error) {
	if !cfg.Enabled() {
		return nil, fmt.Errorf("OTEL endpoint not configured")
	}

	opts := []otlpmetricgrpc.Option{
		otlpmetricgrpc.WithEndpoint(cfg.Endpoint),
	}
	if cfg.Insecure {
		opts = append(opts, otlpmetricgrpc.WithDialOption(grpc.WithTransportCredentials(insecure.NewCredentials())))
		opts = append(opts, otlpmetricgrpc.WithInsecure())
	}

	exp, err := otlpmetricgrpc.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating OTLP exporter: %w", err)
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(serviceName),
			semconv.ServiceVersion(serviceVersion),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("creating resource: %w", err)
	}

	provider := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exp)),
		sdkmetric.WithResource(res),
	)
	otel.SetMeterProvider(provider)

	return newExporter(provider)
}

func newExporter(provider *sdkmetric.MeterProvider) (*Exporter, error) {
	meter := provider.Meter(serviceName)

	sessionsTotal, err := meter.Int64Counter(
		"chill_sessions_total",
		metric.WithDescription("Sessions ended, by outcome"),
		metric.WithUnit("{session}"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating sessions counter: %w", err)
	}

	cuesTotal, err := meter.Int64Counter(
		"chill_cues_total",
		metric.WithDescription("Completion cues played"),
		metric.WithUnit("{cue}"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating cues counter: %w", err)
	}

	durationHist, err := meter.Float64Histogram(
		"chill_session_duration_seconds",
		metric.WithDescription("Actual session duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating duration histogram: %w", err)
	}

	overtimeHist, err := meter.Float64Histogram(
		"chill_session_overtime_seconds",
		metric.WithDescription("Time sat past the target in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating overtime histogram: %w", err)
	}

	return &Exporter{
		provider:      provider,
		sessionsTotal: sessionsTotal,
		cuesTotal:     cuesTotal,
		durationHist:  durationHist,
		overtimeHist:  overtimeHist,
	}, nil
}

// RecordSession records a stopped session.
func (e *Exporter) RecordSession(ctx context.Context, rec chilltimer.SessionRecord) {
	outcome := OutcomeEarly
	if rec.TargetSeconds > 0 && rec.ActualDurationSeconds >= rec.TargetSeconds {
		outcome = OutcomeCompleted
	}
	opt := metric.WithAttributes(
		attribute.String("outcome", outcome),
		attribute.Int("target_minutes", rec.TargetSeconds/60),
	)

	e.sessionsTotal.Add(ctx, 1, opt)
	e.durationHist.Record(ctx, float64(rec.ActualDurationSeconds), opt)
	if outcome == OutcomeCompleted {
		e.overtimeHist.Record(ctx, float64(rec.OvertimeSeconds()), opt)
	}
}

func (e *Exporter) RecordReset(ctx context.Context) {
	e.sessionsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", OutcomeReset)))
}

// CountCues wraps p so every successful play is counted.
func (e *Exporter) CountCues(p timer.CuePlayer) timer.CuePlayer {
	return countingCue{p: p, counter: e.cuesTotal}
}

// Close shuts down the exporter and flushes any pending metrics.
func (e *Exporter) Close(ctx context.Context) error {
	return e.provider.Shutdown(ctx)
}

type countingCue struct {
	p       timer.CuePlayer
	counter metric.Int64Counter
}

func (c countingCue) Play(ctx context.Context, volume float64) error {
	if err := c.p.Play(ctx, volume); err != nil {
		return err
	}
	if volume > 0 {
		c.counter.Add(ctx, 1)
	}
	return nil
}
