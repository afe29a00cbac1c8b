package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"path/filepath"
	"testing"
	"time"

	txStdLib "github.com/Thiht/transactor/stdlib"
	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/benjamonnguyen/chilltimer"
)

func openTestDB(t *testing.T) (*sql.DB, txStdLib.DBGetter) {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "chill.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	_, dbGetter := txStdLib.NewTransactor(db, txStdLib.NestedTransactionsSavepoints)
	return db, dbGetter
}

func TestOpen_MigrationsAreIdempotent(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "chill.db")
	db, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	db, err = Open(path)
	require.NoError(t, err)
	defer db.Close() //nolint

	var n int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM sessions").Scan(&n))
	assert.Zero(t, n)
}

func TestSessionRepo(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	_, dbGetter := openTestDB(t)
	repo := NewSessionRepo(dbGetter, log.New(io.Discard))

	start := time.Date(2024, 3, 1, 7, 0, 0, 0, time.UTC)
	first := chilltimer.SessionRecord{
		StartTime:             start,
		EndTime:               start.Add(11 * time.Minute),
		TargetSeconds:         600,
		ActualDurationSeconds: 660,
	}
	second := chilltimer.SessionRecord{
		StartTime:             start.Add(time.Hour),
		EndTime:               start.Add(time.Hour + 5*time.Minute),
		TargetSeconds:         600,
		ActualDurationSeconds: 300,
	}

	inserted, err := repo.InsertSession(ctx, first)
	require.NoError(t, err)
	assert.NotEmpty(t, inserted.ID)
	assert.Equal(t, first, inserted.SessionRecord)

	_, err = repo.InsertSession(ctx, second)
	require.NoError(t, err)

	t.Run("get", func(t *testing.T) {
		got, err := repo.GetSession(ctx, inserted.ID)
		require.NoError(t, err)
		assert.Equal(t, inserted.ID, got.ID)
		assert.True(t, first.StartTime.Equal(got.StartTime))
		assert.True(t, first.EndTime.Equal(got.EndTime))
		assert.Equal(t, 600, got.TargetSeconds)
		assert.Equal(t, 660, got.ActualDurationSeconds)
		assert.Equal(t, 60, got.OvertimeSeconds())
	})

	t.Run("get missing", func(t *testing.T) {
		_, err := repo.GetSession(ctx, "missing")
		assert.True(t, errors.Is(err, ErrNotFound))

		_, err = repo.GetSession(ctx, "")
		assert.Error(t, err)
	})

	t.Run("list newest first", func(t *testing.T) {
		got, err := repo.ListSessions(ctx, 10)
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, 300, got[0].ActualDurationSeconds)
		assert.Equal(t, 660, got[1].ActualDurationSeconds)

		got, err = repo.ListSessions(ctx, 1)
		require.NoError(t, err)
		assert.Len(t, got, 1)

		got, err = repo.ListSessions(ctx, 0)
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("delete", func(t *testing.T) {
		deleted, err := repo.DeleteSession(ctx, inserted.ID)
		require.NoError(t, err)
		assert.Equal(t, inserted.ID, deleted.ID)

		_, err = repo.GetSession(ctx, inserted.ID)
		assert.ErrorIs(t, err, ErrNotFound)

		_, err = repo.DeleteSession(ctx, inserted.ID)
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestSessionRepo_RejectsInvertedTimes(t *testing.T) {
	t.Parallel()

	_, dbGetter := openTestDB(t)
	repo := NewSessionRepo(dbGetter, log.New(io.Discard))

	now := time.Now()
	_, err := repo.InsertSession(context.Background(), chilltimer.SessionRecord{
		StartTime: now,
		EndTime:   now.Add(-time.Second),
	})
	assert.Error(t, err)
}

func TestSessionRepo_WithinTransaction(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	db, err := Open(filepath.Join(t.TempDir(), "chill.db"))
	require.NoError(t, err)
	defer db.Close() //nolint
	tx, dbGetter := txStdLib.NewTransactor(db, txStdLib.NestedTransactionsSavepoints)
	repo := NewSessionRepo(dbGetter, log.New(io.Discard))

	now := time.Now()
	rollback := errors.New("rollback")
	err = tx.WithinTransaction(ctx, func(ctx context.Context) error {
		if _, err := repo.InsertSession(ctx, chilltimer.SessionRecord{StartTime: now, EndTime: now}); err != nil {
			return err
		}
		return rollback
	})
	require.ErrorIs(t, err, rollback)

	got, err := repo.ListSessions(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestSettingsRepo(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	_, dbGetter := openTestDB(t)
	defaults := chilltimer.Settings{DurationMinutes: 20, GongVolume: 0.5}
	repo := NewSettingsRepo(dbGetter, defaults, log.New(io.Discard))

	got, err := repo.GetSettings(ctx)
	require.NoError(t, err)
	assert.Equal(t, defaults, got)

	saved, err := repo.SaveSettings(ctx, chilltimer.Settings{DurationMinutes: 500, GongVolume: -1})
	require.NoError(t, err)
	assert.Equal(t, chilltimer.Settings{DurationMinutes: chilltimer.MaxDurationMinutes, GongVolume: 0}, saved)

	got, err = repo.GetSettings(ctx)
	require.NoError(t, err)
	assert.Equal(t, saved, got)

	_, err = repo.SaveSettings(ctx, chilltimer.Settings{DurationMinutes: 15, GongVolume: 0.25})
	require.NoError(t, err)
	got, err = repo.GetSettings(ctx)
	require.NoError(t, err)
	assert.Equal(t, chilltimer.Settings{DurationMinutes: 15, GongVolume: 0.25}, got)
}
