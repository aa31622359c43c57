package tui

import "github.com/charmbracelet/lipgloss"

// Theme is the color palette the TUI renders with, selectable via
// config.toml's ui.theme ("dark" or "light").
type Theme struct {
	Accent    lipgloss.Color
	Secondary lipgloss.Color
	Error     lipgloss.Color
	Warning   lipgloss.Color
	Success   lipgloss.Color
	Text      lipgloss.Color
	Muted     lipgloss.Color
	Border    lipgloss.Color
}

// NewTheme resolves a theme by name, defaulting to dark.
func NewTheme(name string) Theme {
	if name == "light" {
		return lightTheme()
	}
	return darkTheme()
}

func darkTheme() Theme {
	return Theme{
		Accent:    lipgloss.Color("#a9fbd7"),
		Secondary: lipgloss.Color("#9f87af"),
		Error:     lipgloss.Color("#9c528b"),
		Warning:   lipgloss.Color("#e8b95e"),
		Success:   lipgloss.Color("#048ba8"),
		Text:      lipgloss.Color("#ffffff"),
		Muted:     lipgloss.Color("#999999"),
		Border:    lipgloss.Color("#444444"),
	}
}

func lightTheme() Theme {
	return Theme{
		Accent:    lipgloss.Color("#048ba8"),
		Secondary: lipgloss.Color("#9f87af"),
		Error:     lipgloss.Color("#9c528b"),
		Warning:   lipgloss.Color("#a66b00"),
		Success:   lipgloss.Color("#1c6e3e"),
		Text:      lipgloss.Color("#222222"),
		Muted:     lipgloss.Color("#666666"),
		Border:    lipgloss.Color("#cccccc"),
	}
}

// Styles bundles the lipgloss.Style values derived from a Theme, built
// once at startup.
type Styles struct {
	Header      lipgloss.Style
	TabActive   lipgloss.Style
	TabInactive lipgloss.Style
	NowPlaying  lipgloss.Style
	ProgressFil lipgloss.Style
	ProgressBar lipgloss.Style
	Footer      lipgloss.Style
	ErrorMsg    lipgloss.Style
	WarningMsg  lipgloss.Style
	SuccessMsg  lipgloss.Style
	InfoMsg     lipgloss.Style
	Cursor      lipgloss.Style
	Muted       lipgloss.Style
}

// NewStyles builds the TUI's styles from t.
func NewStyles(t Theme) Styles {
	return Styles{
		Header:      lipgloss.NewStyle().Bold(true).Foreground(t.Accent),
		TabActive:   lipgloss.NewStyle().Bold(true).Foreground(t.Text).Background(t.Secondary).Padding(0, 1),
		TabInactive: lipgloss.NewStyle().Foreground(t.Muted).Padding(0, 1),
		NowPlaying:  lipgloss.NewStyle().Foreground(t.Accent).Bold(true),
		ProgressFil: lipgloss.NewStyle().Foreground(t.Accent),
		ProgressBar: lipgloss.NewStyle().Foreground(t.Muted),
		Footer:      lipgloss.NewStyle().Foreground(t.Muted),
		ErrorMsg:    lipgloss.NewStyle().Foreground(t.Error),
		WarningMsg:  lipgloss.NewStyle().Foreground(t.Warning),
		SuccessMsg:  lipgloss.NewStyle().Foreground(t.Success),
		InfoMsg:     lipgloss.NewStyle().Foreground(t.Muted),
		Cursor:      lipgloss.NewStyle().Foreground(t.Text).Background(t.Secondary),
		Muted:       lipgloss.NewStyle().Foreground(t.Muted),
	}
}
