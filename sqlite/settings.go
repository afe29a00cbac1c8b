package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	txStdLib "github.com/Thiht/transactor/stdlib"
	"github.com/charmbracelet/log"

	"github.com/benjamonnguyen/chilltimer"
)

type settingsRepo struct {
	dbGetter txStdLib.DBGetter
	l        *log.Logger
	defaults chilltimer.Settings
	now      func() time.Time
}

// NewSettingsRepo stores a single settings row. GetSettings returns defaults
// until something is saved.
func NewSettingsRepo(dbGetter txStdLib.DBGetter, defaults chilltimer.Settings, logger *log.Logger) *settingsRepo {
	return &settingsRepo{
		dbGetter: dbGetter,
		l:        logger,
		defaults: defaults.Normalize(),
		now:      time.Now,
	}
}

func (r *settingsRepo) GetSettings(ctx context.Context) (chilltimer.Settings, error) {
	var s chilltimer.Settings
	row := r.dbGetter(ctx).QueryRowContext(ctx, "SELECT duration_minutes, gong_volume FROM settings WHERE id = 1")
	if err := row.Scan(&s.DurationMinutes, &s.GongVolume); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return r.defaults, nil
		}
		return chilltimer.Settings{}, err
	}
	return s.Normalize(), nil
}

func (r *settingsRepo) SaveSettings(ctx context.Context, s chilltimer.Settings) (chilltimer.Settings, error) {
	s = s.Normalize()
	now := r.now().Unix()
	query := `INSERT INTO settings (id, duration_minutes, gong_volume, created_at, updated_at) VALUES (1, ?, ?, ?, ?)
ON CONFLICT (id) DO UPDATE SET duration_minutes = excluded.duration_minutes, gong_volume = excluded.gong_volume, updated_at = excluded.updated_at`
	args := []any{s.DurationMinutes, s.GongVolume, now, now}
	r.l.Debug("saving settings", "query", query, "args", args)
	if _, err := r.dbGetter(ctx).ExecContext(ctx, query, args...); err != nil {
		return chilltimer.Settings{}, err
	}
	return s, nil
}
