// Package tui implements the terminal front-end: a thin bubbletea program
// wired onto the Playback Engine's Controls and watch channels. It renders
// only text (queue, transport, notifications) — no album-art rendering.
package tui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/chartzngrafs/streamtrack/internal/engine"
	"github.com/chartzngrafs/streamtrack/internal/notify"
	"github.com/chartzngrafs/streamtrack/internal/tracklist"
	"github.com/chartzngrafs/streamtrack/internal/watch"
)

type tabKind int

const (
	tabQueue tabKind = iota
	tabBrowse
	tabLog
	tabCount
)

func (t tabKind) title() string {
	switch t {
	case tabQueue:
		return "Queue"
	case tabBrowse:
		return "Browse"
	case tabLog:
		return "Log"
	default:
		return "?"
	}
}

const maxLogMessages = 200

// Model is the bubbletea Model driving the whole terminal UI.
type Model struct {
	controls *engine.Controls

	statusW    *watch.Watch[engine.Status]
	positionW  *watch.Watch[time.Duration]
	tracklistW *watch.Watch[tracklist.Tracklist]
	volumeW    *watch.Watch[float64]
	bus        *notify.Bus

	keys   KeyMap
	styles Styles

	width, height int

	tab tabKind

	status   engine.Status
	position time.Duration
	list     tracklist.Tracklist
	volume   float64
	queueIdx int

	messages []notify.Notification

	inputMode bool
	input     string
	lastErr   string
}

// New builds a Model from the engine's public surface. The caller owns
// starting the underlying Engine.Run goroutine; the Model only ever reads
// watches and sends Commands through controls.
func New(controls *engine.Controls, statusW *watch.Watch[engine.Status], positionW *watch.Watch[time.Duration], tracklistW *watch.Watch[tracklist.Tracklist], volumeW *watch.Watch[float64], bus *notify.Bus, keys KeyMap, themeName string) Model {
	return Model{
		controls:   controls,
		statusW:    statusW,
		positionW:  positionW,
		tracklistW: tracklistW,
		volumeW:    volumeW,
		bus:        bus,
		keys:       keys,
		styles:     NewStyles(NewTheme(themeName)),
		status:     statusW.Value(),
		position:   positionW.Value(),
		list:       tracklistW.Value(),
		volume:     volumeW.Value(),
	}
}

type statusMsg engine.Status
type positionMsg time.Duration
type tracklistMsg tracklist.Tracklist
type volumeMsg float64
type notificationMsg notify.Notification
type browseResultMsg struct{ err error }

func waitForStatus(w *watch.Watch[engine.Status]) tea.Cmd {
	return func() tea.Msg {
		<-w.Subscribe()
		return statusMsg(w.Value())
	}
}

func waitForPosition(w *watch.Watch[time.Duration]) tea.Cmd {
	return func() tea.Msg {
		<-w.Subscribe()
		return positionMsg(w.Value())
	}
}

func waitForTracklist(w *watch.Watch[tracklist.Tracklist]) tea.Cmd {
	return func() tea.Msg {
		<-w.Subscribe()
		return tracklistMsg(w.Value())
	}
}

func waitForVolume(w *watch.Watch[float64]) tea.Cmd {
	return func() tea.Msg {
		<-w.Subscribe()
		return volumeMsg(w.Value())
	}
}

func waitForNotification(ch <-chan notify.Notification) tea.Cmd {
	return func() tea.Msg {
		n, ok := <-ch
		if !ok {
			return nil
		}
		return notificationMsg(n)
	}
}

// Init subscribes to every watch and the notification bus so the model
// stays live without polling.
func (m Model) Init() tea.Cmd {
	notifications, _ := m.bus.Subscribe()
	return tea.Batch(
		waitForStatus(m.statusW),
		waitForPosition(m.positionW),
		waitForTracklist(m.tracklistW),
		waitForVolume(m.volumeW),
		waitForNotification(notifications),
	)
}

// Run starts the bubbletea program in the alt screen and blocks until the
// user quits.
func Run(m Model) error {
	_, err := tea.NewProgram(m, tea.WithAltScreen()).Run()
	return err
}
