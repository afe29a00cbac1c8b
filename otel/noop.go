package otel

import (
	"context"

	"github.com/benjamonnguyen/chilltimer"
	"github.com/benjamonnguyen/chilltimer/timer"
)

// NoOpExporter is a metrics exporter that does nothing.
type NoOpExporter struct{}

func NewNoOpExporter() *NoOpExporter {
	return &NoOpExporter{}
}

func (e *NoOpExporter) RecordSession(context.Context, chilltimer.SessionRecord) {}

func (e *NoOpExporter) RecordReset(context.Context) {}

func (e *NoOpExporter) CountCues(p timer.CuePlayer) timer.CuePlayer {
	return p
}

func (e *NoOpExporter) Close(context.Context) error {
	return nil
}
