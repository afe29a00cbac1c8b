package chilltimer

import (
	"context"
	"time"
)

type SessionID string

// SessionRecord is the finalized result of a stopped session. It is the only
// artifact handed to session logging.
type SessionRecord struct {
	StartTime, EndTime time.Time

	//
	TargetSeconds         int
	ActualDurationSeconds int
}

func (r SessionRecord) OvertimeSeconds() int {
	return max(0, r.ActualDurationSeconds-r.TargetSeconds)
}

type ExistingSessionRecord struct {
	ExistingRecord[SessionID]
	SessionRecord
}

type SessionRepo interface {
	InsertSession(context.Context, SessionRecord) (ExistingSessionRecord, error)
	GetSession(context.Context, SessionID) (ExistingSessionRecord, error)
	ListSessions(ctx context.Context, limit int) ([]ExistingSessionRecord, error)
	DeleteSession(context.Context, SessionID) (ExistingSessionRecord, error)
}

type SettingsRepo interface {
	GetSettings(context.Context) (Settings, error)
	SaveSettings(context.Context, Settings) (Settings, error)
}

// minLoggableSeconds matches the shortest session worth writing to a journal.
const minLoggableSeconds = 60

// ShouldLog reports whether a stopped session is long enough to be journaled.
func ShouldLog(r SessionRecord) bool {
	return r.ActualDurationSeconds >= minLoggableSeconds
}
