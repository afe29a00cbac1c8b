package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	txStdLib "github.com/Thiht/transactor/stdlib"
	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/benjamonnguyen/chilltimer"
)

const (
	SelectAllSessions = "SELECT id, started_at, ended_at, target_seconds, actual_seconds, created_at, updated_at FROM sessions"
)

type sessionEntity struct {
	ID            string
	StartedAt     int64
	EndedAt       int64
	TargetSeconds int
	ActualSeconds int
	CreatedAt     int64
	UpdatedAt     int64
}

type sessionRepo struct {
	dbGetter txStdLib.DBGetter
	l        *log.Logger
	now      func() time.Time
}

func NewSessionRepo(dbGetter txStdLib.DBGetter, logger *log.Logger) *sessionRepo {
	return &sessionRepo{
		dbGetter: dbGetter,
		l:        logger,
		now:      time.Now,
	}
}

func (r *sessionRepo) InsertSession(ctx context.Context, session chilltimer.SessionRecord) (chilltimer.ExistingSessionRecord, error) {
	if session.EndTime.Before(session.StartTime) {
		return chilltimer.ExistingSessionRecord{}, fmt.Errorf("session ends before it starts")
	}

	db := r.dbGetter(ctx)
	existingRecord := chilltimer.ExistingSessionRecord{
		SessionRecord:  session,
		ExistingRecord: chilltimer.NewExistingRecord[chilltimer.SessionID](uuid.NewString(), r.now()),
	}
	e := mapToSessionEntity(existingRecord)

	args := []any{
		e.ID,
		e.StartedAt,
		e.EndedAt,
		e.TargetSeconds,
		e.ActualSeconds,
		e.CreatedAt,
		e.UpdatedAt,
	}
	query := "INSERT INTO sessions (id, started_at, ended_at, target_seconds, actual_seconds, created_at, updated_at) VALUES " + generateParameters(len(args))
	r.l.Debug("creating session", "query", query, "args", args)
	if _, err := db.ExecContext(ctx, query, args...); err != nil {
		return chilltimer.ExistingSessionRecord{}, err
	}

	return existingRecord, nil
}

func (r *sessionRepo) GetSession(ctx context.Context, id chilltimer.SessionID) (chilltimer.ExistingSessionRecord, error) {
	if id == "" {
		return chilltimer.ExistingSessionRecord{}, fmt.Errorf("provide id")
	}

	db := r.dbGetter(ctx)
	row := db.QueryRowContext(
		ctx,
		fmt.Sprintf("%s WHERE id=?", SelectAllSessions), id,
	)

	return extractSession(row)
}

// ListSessions returns the most recent sessions first.
func (r *sessionRepo) ListSessions(ctx context.Context, limit int) ([]chilltimer.ExistingSessionRecord, error) {
	if limit <= 0 {
		return nil, nil
	}

	db := r.dbGetter(ctx)
	query := fmt.Sprintf("%s ORDER BY started_at DESC, created_at DESC LIMIT ?", SelectAllSessions)
	r.l.Debug("listing sessions", "query", query, "limit", limit)
	rows, err := db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close() //nolint

	var sessions []chilltimer.ExistingSessionRecord
	for rows.Next() {
		session, err := extractSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, session)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return sessions, nil
}

func (r *sessionRepo) DeleteSession(ctx context.Context, id chilltimer.SessionID) (chilltimer.ExistingSessionRecord, error) {
	existing, err := r.GetSession(ctx, id)
	if err != nil {
		return chilltimer.ExistingSessionRecord{}, err
	}

	db := r.dbGetter(ctx)
	query := "DELETE FROM sessions WHERE id = ?"
	r.l.Debug("deleting session", "query", query, "id", id)
	if _, err := db.ExecContext(ctx, query, id); err != nil {
		return chilltimer.ExistingSessionRecord{}, err
	}

	return existing, nil
}

func extractSession(s scannable) (chilltimer.ExistingSessionRecord, error) {
	var e sessionEntity
	if err := s.Scan(&e.ID, &e.StartedAt, &e.EndedAt, &e.TargetSeconds, &e.ActualSeconds, &e.CreatedAt, &e.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return chilltimer.ExistingSessionRecord{}, ErrNotFound
		}
		return chilltimer.ExistingSessionRecord{}, err
	}

	return mapToExistingSessionRecord(e), nil
}

func mapToSessionEntity(session chilltimer.ExistingSessionRecord) sessionEntity {
	return sessionEntity{
		ID:            string(session.ID),
		StartedAt:     session.StartTime.Unix(),
		EndedAt:       session.EndTime.Unix(),
		TargetSeconds: session.TargetSeconds,
		ActualSeconds: session.ActualDurationSeconds,
		CreatedAt:     session.CreatedAt.Unix(),
		UpdatedAt:     session.UpdatedAt.Unix(),
	}
}

func mapToExistingSessionRecord(e sessionEntity) chilltimer.ExistingSessionRecord {
	return chilltimer.ExistingSessionRecord{
		ExistingRecord: chilltimer.ExistingRecord[chilltimer.SessionID]{
			ID:        chilltimer.SessionID(e.ID),
			CreatedAt: time.Unix(e.CreatedAt, 0),
			UpdatedAt: time.Unix(e.UpdatedAt, 0),
		},
		SessionRecord: chilltimer.SessionRecord{
			StartTime:             time.Unix(e.StartedAt, 0),
			EndTime:               time.Unix(e.EndedAt, 0),
			TargetSeconds:         e.TargetSeconds,
			ActualDurationSeconds: e.ActualSeconds,
		},
	}
}
