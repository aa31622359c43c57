package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/chartzngrafs/streamtrack/internal/engine"
	"github.com/chartzngrafs/streamtrack/internal/tracklist"
)

// View implements tea.Model.
func (m Model) View() string {
	var b strings.Builder

	b.WriteString(m.styles.Header.Render("streamtrack"))
	b.WriteString("\n")
	b.WriteString(m.renderTabs())
	b.WriteString("\n\n")

	switch m.tab {
	case tabQueue:
		b.WriteString(m.renderQueue())
	case tabBrowse:
		b.WriteString(m.renderBrowse())
	case tabLog:
		b.WriteString(m.renderLog())
	}

	b.WriteString("\n")
	b.WriteString(m.renderNowPlaying())
	b.WriteString("\n")
	b.WriteString(m.renderFooter())

	return b.String()
}

func (m Model) renderTabs() string {
	var parts []string
	for t := tabKind(0); t < tabCount; t++ {
		style := m.styles.TabInactive
		if t == m.tab {
			style = m.styles.TabActive
		}
		parts = append(parts, style.Render(t.title()))
	}
	return strings.Join(parts, " ")
}

func (m Model) renderQueue() string {
	if len(m.list.Tracks) == 0 {
		return m.styles.Muted.Render("queue is empty — switch to Browse to play something")
	}

	var b strings.Builder
	for i, t := range m.list.Tracks {
		cursor := "  "
		if i == m.queueIdx {
			cursor = "> "
		}
		marker := " "
		switch t.Status {
		case tracklist.Playing:
			marker = "▶"
		case tracklist.Played:
			marker = "✓"
		}
		line := fmt.Sprintf("%s%s %2d. %-40s %s", cursor, marker, i+1, truncate(t.Title, 40), formatDuration(int(t.Duration)))
		if i == m.queueIdx {
			b.WriteString(m.styles.Cursor.Render(line))
		} else {
			b.WriteString(line)
		}
		b.WriteString("\n")
	}
	return b.String()
}

func (m Model) renderBrowse() string {
	if m.inputMode {
		return fmt.Sprintf("> %s█", m.input)
	}
	help := []string{
		"press enter to type a command:",
		"  album <id> [index]",
		"  playlist <id> [index] [shuffle]",
		"  artist <id> [index]",
		"  track <id>",
		"  queue <track-id>",
		"  next <track-id>",
	}
	out := strings.Join(help, "\n")
	if m.lastErr != "" {
		out += "\n" + m.styles.ErrorMsg.Render(m.lastErr)
	}
	return out
}

func (m Model) renderLog() string {
	if len(m.messages) == 0 {
		return m.styles.Muted.Render("no notifications yet")
	}
	var b strings.Builder
	start := 0
	if len(m.messages) > 20 {
		start = len(m.messages) - 20
	}
	for _, n := range m.messages[start:] {
		style := m.styles.InfoMsg
		switch n.Kind.String() {
		case "error":
			style = m.styles.ErrorMsg
		case "warning":
			style = m.styles.WarningMsg
		case "success":
			style = m.styles.SuccessMsg
		}
		b.WriteString(style.Render(fmt.Sprintf("[%s] %s", n.Kind, n.Message)))
		b.WriteString("\n")
	}
	return b.String()
}

func (m Model) renderNowPlaying() string {
	list := m.list
	track, ok := (&list).CurrentTrack()
	if !ok {
		return m.styles.Muted.Render("nothing playing") + "  " + m.styles.renderVolumeIndicator(m.volume)
	}

	statusIcon := "⏸"
	if m.status == engine.StatusPlaying {
		statusIcon = "▶"
	} else if m.status == engine.StatusBuffering {
		statusIcon = "⟳"
	}

	title := m.styles.NowPlaying.Render(fmt.Sprintf("%s %s", statusIcon, track.Title))
	progress := m.styles.renderProgressBar(30, trackProgress(m.position, track.Duration))
	timing := fmt.Sprintf("%s / %s", formatDuration(int(m.position.Seconds())), formatDuration(int(track.Duration)))

	return fmt.Sprintf("%s\n%s %s  %s", title, progress, timing, m.styles.renderVolumeIndicator(m.volume))
}

func (m Model) renderFooter() string {
	return m.styles.Footer.Render("tab: switch view   space: play/pause   ←/→: seek   alt+←/→: prev/next   q: quit")
}

func trackProgress(pos time.Duration, totalSeconds uint32) float64 {
	if totalSeconds == 0 {
		return 0
	}
	return float64(pos.Seconds()) / float64(totalSeconds)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-1] + "…"
}
