package main

import (
	"context"

	"github.com/Thiht/transactor"
	"github.com/charmbracelet/log"

	"github.com/benjamonnguyen/chilltimer"
)

type summaryPoster interface {
	PostSummary(context.Context, chilltimer.SessionRecord) error
}

// journal handles a stopped session: metrics always, storage and the discord
// summary only for sessions long enough to keep.
type journal struct {
	tx       transactor.Transactor
	sessions chilltimer.SessionRepo
	metrics  sessionMetrics
	poster   summaryPoster // optional
	l        *log.Logger
}

type journalResult struct {
	record chilltimer.SessionRecord
	saved  chilltimer.ExistingSessionRecord
	logged bool
	err    error
}

func (j *journal) Finish(ctx context.Context, rec chilltimer.SessionRecord) journalResult {
	res := journalResult{record: rec}
	j.metrics.RecordSession(ctx, rec)
	if !chilltimer.ShouldLog(rec) {
		j.l.Debug("session too short to journal", "actualSeconds", rec.ActualDurationSeconds)
		return res
	}

	res.err = j.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		saved, err := j.sessions.InsertSession(ctx, rec)
		if err != nil {
			return err
		}
		res.saved = saved
		return nil
	})
	if res.err != nil {
		j.l.Error("failed to journal session", "err", res.err)
		return res
	}
	res.logged = true
	j.l.Info("journaled session", "sessionID", res.saved.ID, "actualSeconds", rec.ActualDurationSeconds)

	if j.poster != nil {
		if err := j.poster.PostSummary(ctx, rec); err != nil {
			j.l.Error("failed to post session summary", "sessionID", res.saved.ID, "err", err)
		}
	}
	return res
}

func (j *journal) Reset(ctx context.Context) {
	j.metrics.RecordReset(ctx)
}
