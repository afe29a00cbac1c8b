package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/benjamonnguyen/chilltimer"
	"github.com/benjamonnguyen/chilltimer/notify"
	"github.com/benjamonnguyen/chilltimer/timer"
)

type engineControl interface {
	Start(durationMinutes int, gongVolume float64)
	Pause()
	Resume()
	Stop() chilltimer.SessionRecord
	Reset()
	Snapshot() timer.Snapshot
}

type snapshotMsg timer.Snapshot

type notificationMsg notify.Notification

type finishedMsg journalResult

type keyMap struct {
	Start   key.Binding
	Toggle  key.Binding
	Stop    key.Binding
	Reset   key.Binding
	Suspend key.Binding
	Quit    key.Binding
}

func defaultKeys() keyMap {
	return keyMap{
		Start:   key.NewBinding(key.WithKeys("enter", "s"), key.WithHelp("enter", "start")),
		Toggle:  key.NewBinding(key.WithKeys(" ", "space", "p"), key.WithHelp("space", "pause/resume")),
		Stop:    key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "stop")),
		Reset:   key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "reset")),
		Suspend: key.NewBinding(key.WithKeys("ctrl+z"), key.WithHelp("ctrl+z", "suspend")),
		Quit:    key.NewBinding(key.WithKeys("ctrl+c", "q"), key.WithHelp("q", "quit")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Start, k.Toggle, k.Stop, k.Reset, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{k.ShortHelp(), {k.Suspend}}
}

var (
	sage  = lipgloss.Color("#a6e3a1")
	sand  = lipgloss.Color("#f9e2af")
	mist  = lipgloss.Color("#a6adc8")
	peach = lipgloss.Color("#fab387")

	frameStyle   = lipgloss.NewStyle().Padding(1, 3)
	clockStyle   = lipgloss.NewStyle().Bold(true).Foreground(sage)
	overStyle    = clockStyle.Foreground(peach)
	stateStyle   = lipgloss.NewStyle().Foreground(mist)
	noticeStyle  = lipgloss.NewStyle().Foreground(sand).Bold(true)
	summaryStyle = lipgloss.NewStyle().Foreground(mist).Italic(true)
)

// model drives a single engine from the keyboard. Engine changes arrive as
// snapshotMsg and are re-read from the engine so message order never matters.
type model struct {
	engine    engineControl
	settings  chilltimer.Settings
	finish    func(chilltimer.SessionRecord) journalResult
	reset     func()
	lifecycle *focusLifecycle

	keys     keyMap
	help     help.Model
	progress progress.Model

	snap     timer.Snapshot
	notice   string
	summary  string
	quitting bool
}

func newModel(
	engine engineControl, settings chilltimer.Settings, lifecycle *focusLifecycle,
	finish func(chilltimer.SessionRecord) journalResult, reset func(),
) model {
	return model{
		engine:    engine,
		settings:  settings.Normalize(),
		finish:    finish,
		reset:     reset,
		lifecycle: lifecycle,
		keys:      defaultKeys(),
		help:      help.New(),
		progress:  progress.New(progress.WithSolidFill(string(sage)), progress.WithoutPercentage()),
		snap:      engine.Snapshot(),
	}
}

func (m model) Init() tea.Cmd {
	return nil
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.FocusMsg:
		m.lifecycle.set(true)
	case tea.BlurMsg:
		m.lifecycle.set(false)
	case tea.ResumeMsg:
		m.lifecycle.set(true)

	case snapshotMsg:
		m.snap = m.engine.Snapshot()

	case notificationMsg:
		m.notice = msg.Title

	case finishedMsg:
		m.summary = summarize(journalResult(msg))
		if m.quitting {
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.help.Width = msg.Width
		m.progress.Width = max(10, min(60, msg.Width-8))
	}
	return m, nil
}

func (m model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	state := m.engine.Snapshot().State
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.quitting = true
		if state == timer.Idle {
			return m, tea.Quit
		}
		return m, m.stop()

	case key.Matches(msg, m.keys.Start):
		if state == timer.Idle {
			m.notice, m.summary = "", ""
			m.engine.Start(m.settings.DurationMinutes, m.settings.GongVolume)
		}

	case key.Matches(msg, m.keys.Toggle):
		switch state {
		case timer.Running, timer.Overtime:
			m.engine.Pause()
		case timer.Paused:
			m.engine.Resume()
		}

	case key.Matches(msg, m.keys.Stop):
		if state != timer.Idle {
			return m, m.stop()
		}

	case key.Matches(msg, m.keys.Reset):
		m.engine.Reset()
		m.notice = ""
		if state != timer.Idle && m.reset != nil {
			m.reset()
		}

	case key.Matches(msg, m.keys.Suspend):
		m.lifecycle.set(false)
		return m, tea.Suspend
	}

	m.snap = m.engine.Snapshot()
	return m, nil
}

// stop finalizes the session now and journals it off the update loop.
func (m *model) stop() tea.Cmd {
	rec := m.engine.Stop()
	m.snap = m.engine.Snapshot()
	finish := m.finish
	return func() tea.Msg {
		return finishedMsg(finish(rec))
	}
}

func (m model) View() string {
	s := m.snap
	var b strings.Builder

	clock := clockStyle
	if s.IsOvertime {
		clock = overStyle
	}
	display := s.Display
	if s.State == timer.Idle {
		display = chilltimer.FormatMinutes(m.settings.DurationMinutes)
	}
	b.WriteString(clock.Render(display))
	b.WriteString("  ")
	b.WriteString(stateStyle.Render(stateLabel(s)))
	b.WriteString("\n\n")
	b.WriteString(m.progress.ViewAs(s.Progress()))
	b.WriteString("\n")

	if m.notice != "" {
		b.WriteString("\n" + noticeStyle.Render(m.notice) + "\n")
	}
	if m.summary != "" {
		b.WriteString("\n" + summaryStyle.Render(m.summary) + "\n")
	}
	b.WriteString("\n" + m.help.View(m.keys))
	return frameStyle.Render(b.String())
}

func stateLabel(s timer.Snapshot) string {
	switch s.State {
	case timer.Idle:
		return "ready"
	case timer.Paused:
		return "paused"
	case timer.Overtime:
		return "overtime"
	default:
		return "sitting"
	}
}

func summarize(res journalResult) string {
	rec := res.record
	line := fmt.Sprintf("Sat for %s", chilltimer.FormatDuration(rec.ActualDurationSeconds))
	if over := rec.OvertimeSeconds(); over > 0 && rec.TargetSeconds > 0 {
		line += fmt.Sprintf(" (%s over)", chilltimer.FormatDuration(over))
	}
	switch {
	case res.err != nil:
		line += " · not saved: " + res.err.Error()
	case !res.logged:
		line += " · too short to journal"
	}
	return line
}
