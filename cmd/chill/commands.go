package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/benjamonnguyen/chilltimer"
	"github.com/benjamonnguyen/chilltimer/notify"
	"github.com/benjamonnguyen/chilltimer/timer"
)

func newStartCmd(opts *rootOptions) *cobra.Command {
	var minutes int
	var volume float64

	cmd := &cobra.Command{
		Use:   "start",
		Short: "Open the timer",
		RunE: func(cmd *cobra.Command, _ []string) error {
			topCtx, topCtxC := signal.NotifyContext(cmd.Context(), syscall.SIGTERM)
			defer topCtxC()

			a, err := loadApp(topCtx, *opts, nil)
			if err != nil {
				return err
			}
			defer a.Close()

			settings, err := a.settings.GetSettings(topCtx)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("minutes") {
				settings.DurationMinutes = minutes
			}
			if cmd.Flags().Changed("volume") {
				settings.GongVolume = volume
			}
			return runTimer(topCtx, a, settings.Normalize())
		},
	}
	cmd.Flags().IntVar(&minutes, "minutes", chilltimer.DefaultDurationMinutes, "session length for this run")
	cmd.Flags().Float64Var(&volume, "volume", chilltimer.DefaultGongVolume, "gong volume for this run, 0 to 1")
	return cmd
}

func runTimer(ctx context.Context, a *app, settings chilltimer.Settings) error {
	var p *tea.Program

	// side effects
	queue := timer.NewQueue(ctx, a.l.WithPrefix("effects"))
	defer queue.Close()

	deliverers := []notify.Deliverer{
		notify.DelivererFunc(func(_ context.Context, n notify.Notification) error {
			p.Send(notificationMsg(n))
			return nil
		}),
	}
	if a.messenger != nil {
		deliverers = append(deliverers, a.messenger)
	}
	scheduler := notify.NewScheduler(ctx, deliverers, notify.WithSchedulerLogger(a.l.WithPrefix("notify")))
	defer scheduler.Close()

	cues := notify.Cues{notify.NewBell(os.Stderr)}
	if a.voiceCue != nil {
		cues = append(cues, a.voiceCue)
	}

	// engine
	engine := timer.New(
		timer.WithCuePlayer(a.metrics.CountCues(cues)),
		timer.WithNotifier(scheduler),
		timer.WithDispatcher(queue),
		timer.WithLogger(a.l.WithPrefix("timer")),
	)
	defer engine.Close()
	lifecycle := newFocusLifecycle()
	unwatch := engine.WatchLifecycle(lifecycle)
	defer unwatch()

	j := &journal{
		tx:       a.tx,
		sessions: a.sessions,
		metrics:  a.metrics,
		l:        a.l.WithPrefix("journal"),
	}
	if a.messenger != nil {
		j.poster = a.messenger
	}

	m := newModel(engine, settings, lifecycle,
		func(rec chilltimer.SessionRecord) journalResult { return j.Finish(ctx, rec) },
		func() { j.Reset(ctx) },
	)
	p = tea.NewProgram(m, tea.WithContext(ctx), tea.WithReportFocus())
	unsubscribe := engine.OnChange(func(s timer.Snapshot) {
		go p.Send(snapshotMsg(s))
	})
	defer unsubscribe()

	final, runErr := p.Run()

	// ended without going through quit
	if fm, ok := final.(model); !ok || !fm.quitting {
		if rec := engine.Stop(); rec.ActualDurationSeconds > 0 {
			res := j.Finish(context.WithoutCancel(ctx), rec)
			_, _ = fmt.Fprintln(os.Stdout, summarize(res))
		}
	}
	if runErr != nil && !errors.Is(runErr, tea.ErrProgramKilled) {
		return runErr
	}
	return nil
}

func newSettingsCmd(opts *rootOptions) *cobra.Command {
	var minutes int
	var volume float64

	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Show or change the stored session length and gong volume",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := loadApp(cmd.Context(), *opts, os.Stderr)
			if err != nil {
				return err
			}
			defer a.Close()
			return runSettings(cmd.Context(), cmd.OutOrStdout(), a.settings, settingsChange{
				minutes:    minutes,
				setMinutes: cmd.Flags().Changed("minutes"),
				volume:     volume,
				setVolume:  cmd.Flags().Changed("volume"),
			})
		},
	}
	cmd.Flags().IntVar(&minutes, "minutes", 0, "session length in minutes, 1 to 180")
	cmd.Flags().Float64Var(&volume, "volume", 0, "gong volume, 0 to 1")
	return cmd
}

type settingsChange struct {
	minutes    int
	setMinutes bool
	volume     float64
	setVolume  bool
}

func runSettings(ctx context.Context, out io.Writer, repo chilltimer.SettingsRepo, change settingsChange) error {
	settings, err := repo.GetSettings(ctx)
	if err != nil {
		return err
	}
	if change.setMinutes || change.setVolume {
		if change.setMinutes {
			settings.DurationMinutes = change.minutes
		}
		if change.setVolume {
			settings.GongVolume = change.volume
		}
		if settings, err = repo.SaveSettings(ctx, settings); err != nil {
			return err
		}
	}
	_, _ = fmt.Fprintf(out, "duration: %s (%d min)\ngong volume: %.2f\n",
		chilltimer.FormatMinutes(settings.DurationMinutes), settings.DurationMinutes, settings.GongVolume)
	return nil
}

func newHistoryCmd(opts *rootOptions) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List journaled sessions, newest first",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := loadApp(cmd.Context(), *opts, os.Stderr)
			if err != nil {
				return err
			}
			defer a.Close()
			return runHistory(cmd.Context(), cmd.OutOrStdout(), a.sessions, limit)
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum sessions to list")
	return cmd
}

func runHistory(ctx context.Context, out io.Writer, repo chilltimer.SessionRepo, limit int) error {
	sessions, err := repo.ListSessions(ctx, limit)
	if err != nil {
		return err
	}
	if len(sessions) == 0 {
		_, _ = fmt.Fprintln(out, "no sessions")
		return nil
	}
	for _, s := range sessions {
		line := fmt.Sprintf("%s\t%s / %s",
			s.StartTime.Local().Format("2006-01-02 15:04"),
			chilltimer.FormatClock(s.ActualDurationSeconds),
			chilltimer.FormatClock(s.TargetSeconds),
		)
		if over := s.OvertimeSeconds(); over > 0 {
			line += "\t+" + chilltimer.FormatClock(over)
		}
		_, _ = fmt.Fprintln(out, line)
	}
	return nil
}
