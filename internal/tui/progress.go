package tui

import (
	"fmt"
	"strings"
)

// renderProgressBar draws a width-wide bar filled to progress (0..1).
func (s Styles) renderProgressBar(width int, progress float64) string {
	if width <= 0 {
		return ""
	}
	if progress < 0 {
		progress = 0
	}
	if progress > 1 {
		progress = 1
	}

	filled := int(float64(width) * progress)
	if filled > width {
		filled = width
	}

	bar := s.ProgressFil.Render(strings.Repeat("█", filled))
	empty := s.ProgressBar.Render(strings.Repeat("░", width-filled))
	return bar + empty
}

// renderVolumeIndicator draws a compact volume bar plus an icon chosen by
// level.
func (s Styles) renderVolumeIndicator(volume float64) string {
	var icon string
	switch {
	case volume <= 0:
		icon = "🔇"
	case volume < 0.3:
		icon = "🔈"
	case volume < 0.7:
		icon = "🔉"
	default:
		icon = "🔊"
	}
	return fmt.Sprintf("%s %s", icon, s.renderProgressBar(12, volume))
}

func formatDuration(totalSeconds int) string {
	m := totalSeconds / 60
	sec := totalSeconds % 60
	return fmt.Sprintf("%d:%02d", m, sec)
}
