package tui

import (
	"errors"
	"strconv"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/chartzngrafs/streamtrack/internal/engine"
	"github.com/chartzngrafs/streamtrack/internal/notify"
	"github.com/chartzngrafs/streamtrack/internal/tracklist"
)

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case statusMsg:
		m.status = engine.Status(msg)
		return m, waitForStatus(m.statusW)

	case positionMsg:
		m.position = time.Duration(msg)
		return m, waitForPosition(m.positionW)

	case tracklistMsg:
		m.list = tracklist.Tracklist(msg)
		if m.queueIdx >= len(m.list.Tracks) {
			m.queueIdx = max0(len(m.list.Tracks) - 1)
		}
		return m, waitForTracklist(m.tracklistW)

	case volumeMsg:
		m.volume = float64(msg)
		return m, waitForVolume(m.volumeW)

	case notificationMsg:
		m.messages = append(m.messages, notify.Notification(msg))
		if len(m.messages) > maxLogMessages {
			m.messages = m.messages[len(m.messages)-maxLogMessages:]
		}
		ch, _ := m.bus.Subscribe()
		return m, waitForNotification(ch)

	case browseResultMsg:
		if msg.err != nil {
			m.lastErr = msg.err.Error()
		} else {
			m.lastErr = ""
		}
		return m, nil
	}

	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.inputMode {
		return m.handleInputKey(msg)
	}

	switch {
	case m.keys.Matches(msg, "quit"):
		return m, tea.Quit
	case m.keys.Matches(msg, "next_tab"):
		m.tab = (m.tab + 1) % tabCount
		return m, nil
	case m.keys.Matches(msg, "prev_tab"):
		m.tab = (m.tab - 1 + tabCount) % tabCount
		return m, nil
	case m.keys.Matches(msg, "play_pause"):
		m.controls.PlayPause()
		return m, nil
	case m.keys.Matches(msg, "next_track"):
		m.controls.Next()
		return m, nil
	case m.keys.Matches(msg, "prev_track"):
		m.controls.Previous()
		return m, nil
	case m.keys.Matches(msg, "seek_forward"):
		m.controls.JumpForward()
		return m, nil
	case m.keys.Matches(msg, "seek_backward"):
		m.controls.JumpBackward()
		return m, nil
	case m.keys.Matches(msg, "volume_up"):
		m.controls.SetVolume(clamp01(m.volume + 0.05))
		return m, nil
	case m.keys.Matches(msg, "volume_down"):
		m.controls.SetVolume(clamp01(m.volume - 0.05))
		return m, nil
	}

	switch m.tab {
	case tabQueue:
		return m.handleQueueKey(msg)
	case tabBrowse:
		return m.handleBrowseKey(msg)
	}
	return m, nil
}

func (m Model) handleQueueKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "up", "k":
		if m.queueIdx > 0 {
			m.queueIdx--
		}
	case "down", "j":
		if m.queueIdx < len(m.list.Tracks)-1 {
			m.queueIdx++
		}
	case "enter":
		m.controls.SkipToPosition(m.queueIdx, true)
	case "d":
		m.controls.RemoveIndexFromQueue(m.queueIdx)
	}
	return m, nil
}

func (m Model) handleBrowseKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "enter" {
		m.inputMode = true
		m.input = ""
	}
	return m, nil
}

func (m Model) handleInputKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEnter:
		input := m.input
		m.inputMode = false
		m.input = ""
		return m, m.runBrowseCommand(input)
	case tea.KeyEsc:
		m.inputMode = false
		m.input = ""
		return m, nil
	case tea.KeyBackspace:
		if len(m.input) > 0 {
			m.input = m.input[:len(m.input)-1]
		}
		return m, nil
	default:
		m.input += msg.String()
		return m, nil
	}
}

// runBrowseCommand parses a line like "album abc123 0" or "track 42" typed
// into the Browse tab and dispatches it through Controls. It runs inside a
// tea.Cmd goroutine since the Play* methods block for the engine's reply.
func (m Model) runBrowseCommand(input string) tea.Cmd {
	controls := m.controls
	return func() tea.Msg {
		fields := strings.Fields(input)
		if len(fields) == 0 {
			return browseResultMsg{}
		}

		index := 0
		if len(fields) >= 3 {
			if n, err := strconv.Atoi(fields[2]); err == nil {
				index = n
			}
		}

		var err error
		switch fields[0] {
		case "album":
			if len(fields) < 2 {
				return browseResultMsg{err: errUsage("album <id> [index]")}
			}
			err = controls.PlayAlbum(fields[1], index)
		case "playlist":
			if len(fields) < 2 {
				return browseResultMsg{err: errUsage("playlist <id> [index] [shuffle]")}
			}
			shuffle := len(fields) >= 4 && fields[3] == "shuffle"
			err = controls.PlayPlaylist(fields[1], index, shuffle)
		case "artist":
			if len(fields) < 2 {
				return browseResultMsg{err: errUsage("artist <id> [index]")}
			}
			err = controls.PlayArtistTopTracks(fields[1], index)
		case "track":
			if len(fields) < 2 {
				return browseResultMsg{err: errUsage("track <id>")}
			}
			err = controls.PlayTrack(fields[1])
		case "queue":
			if len(fields) < 2 {
				return browseResultMsg{err: errUsage("queue <track-id>")}
			}
			err = controls.AddTrackToQueue(fields[1])
		case "next":
			if len(fields) < 2 {
				return browseResultMsg{err: errUsage("next <track-id>")}
			}
			err = controls.PlayTrackNext(fields[1])
		default:
			err = errUsage("album|playlist|artist|track|queue|next <id> ...")
		}
		return browseResultMsg{err: err}
	}
}

func errUsage(usage string) error {
	return errors.New("usage: " + usage)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func max0(v int) int {
	if v < 0 {
		return 0
	}
	return v
}
