package main

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/Thiht/transactor"
	txStdLib "github.com/Thiht/transactor/stdlib"
	dg "github.com/bwmarrin/discordgo"
	"github.com/charmbracelet/log"

	"github.com/benjamonnguyen/chilltimer"
	"github.com/benjamonnguyen/chilltimer/discordgo"
	"github.com/benjamonnguyen/chilltimer/otel"
	"github.com/benjamonnguyen/chilltimer/sqlite"
	"github.com/benjamonnguyen/chilltimer/timer"
)

type sessionMetrics interface {
	RecordSession(context.Context, chilltimer.SessionRecord)
	RecordReset(context.Context)
	CountCues(timer.CuePlayer) timer.CuePlayer
	Close(context.Context) error
}

type app struct {
	cfg      chilltimer.Config
	l        *log.Logger
	db       *sql.DB
	tx       transactor.Transactor
	sessions chilltimer.SessionRepo
	settings chilltimer.SettingsRepo
	metrics  sessionMetrics

	// set only when discord is configured
	discord   *dg.Session
	messenger *discordgo.Messenger
	voiceCue  *discordgo.VoiceCue

	closers []func()
}

// loadApp wires storage, metrics and the optional discord adapters. Logs go to
// logOut, or to the configured log file when logOut is nil.
func loadApp(ctx context.Context, opts rootOptions, logOut io.Writer) (*app, error) {
	initTimeout, initTimeoutC := context.WithTimeout(ctx, 10*time.Second)
	defer initTimeoutC()

	// config
	cfg, err := chilltimer.LoadConfig(opts.envFile, opts.configFile)
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg}

	// logger
	if logOut == nil {
		f, err := os.OpenFile(cfg.Log.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("open log file: %w", err)
		}
		a.closers = append(a.closers, func() { _ = f.Close() })
		logOut = f
	}
	a.l = log.NewWithOptions(logOut, log.Options{
		ReportTimestamp: true,
		Prefix:          "chill",
	})
	level, err := log.ParseLevel(cfg.Log.Level)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("parse log level: %w", err)
	}
	a.l.SetLevel(level)

	// db
	a.l.Info("opening db", "path", cfg.Database.Path)
	db, err := sqlite.Open(cfg.Database.Path)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.db = db
	a.closers = append(a.closers, func() { _ = db.Close() })

	tx, dbGetter := txStdLib.NewTransactor(db, txStdLib.NestedTransactionsSavepoints)
	a.tx = tx
	a.sessions = sqlite.NewSessionRepo(dbGetter, a.l.WithPrefix("sessions"))
	a.settings = sqlite.NewSettingsRepo(dbGetter, cfg.Settings(), a.l.WithPrefix("settings"))

	// metrics
	if cfg.Otel.Enabled() {
		exp, err := otel.NewExporter(initTimeout, cfg.Otel)
		if err != nil {
			a.l.Warn("metrics disabled", "endpoint", cfg.Otel.Endpoint, "err", err)
			a.metrics = otel.NewNoOpExporter()
		} else {
			a.metrics = exp
		}
	} else {
		a.metrics = otel.NewNoOpExporter()
	}

	// discord
	if cfg.Discord.Enabled() {
		if err := a.openDiscord(); err != nil {
			a.l.Error("discord disabled", "err", err)
		}
	}

	return a, nil
}

func (a *app) openDiscord() error {
	cfg := a.cfg.Discord
	cl, err := dg.New("Bot " + cfg.Token)
	if err != nil {
		return err
	}
	cl.ShouldRetryOnRateLimit = false
	cl.Client = &http.Client{Timeout: (20 * time.Second)}
	cl.UserAgent = fmt.Sprintf("%s (%s, v%s)", AppName, RepoURL, Version)
	cl.ShouldReconnectVoiceOnSessionError = true

	var packets [][]byte
	if cfg.VoiceChannelID != "" {
		packets, err = discordgo.LoadOpusFile(cfg.GongOpusPath)
		if err != nil {
			return fmt.Errorf("load gong audio: %w", err)
		}
	}

	if err := cl.Open(); err != nil {
		return fmt.Errorf("open discord connection: %w", err)
	}
	a.discord = cl
	if cfg.TextChannelID != "" {
		a.messenger = discordgo.NewMessenger(cl, cfg.TextChannelID)
	}
	if cfg.VoiceChannelID != "" && len(packets) > 0 {
		a.voiceCue = discordgo.NewVoiceCue(cl, packets, cfg.GuildID, cfg.VoiceChannelID, a.l.WithPrefix("discord"))
	}
	a.l.Info("discord connected", "textChannelID", cfg.TextChannelID, "voiceChannelID", cfg.VoiceChannelID)
	return nil
}

// Close releases everything loadApp opened, newest first.
func (a *app) Close() {
	shutdownTimeout, shutdownTimeoutC := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownTimeoutC()

	if a.metrics != nil {
		if err := a.metrics.Close(shutdownTimeout); err != nil {
			a.l.Error("failed to flush metrics", "err", err)
		}
	}
	if a.voiceCue != nil {
		if err := a.voiceCue.Close(); err != nil {
			a.l.Error(err)
		}
	}
	if a.discord != nil {
		if err := a.discord.Close(); err != nil {
			a.l.Error(err)
		}
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}
