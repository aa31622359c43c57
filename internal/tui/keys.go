package tui

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"
)

// KeyMap maps an action name to the one or more key strings that trigger
// it, following the config file's "ctrl+c,q"-style comma-separated
// convention.
type KeyMap map[string][]string

// DefaultKeyMap returns the built-in bindings used when config.toml
// carries no override for a given action.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		"quit":           {"ctrl+c", "q"},
		"next_tab":       {"tab"},
		"prev_tab":       {"shift+tab"},
		"play_pause":     {"space"},
		"next_track":     {"alt+right"},
		"prev_track":     {"alt+left"},
		"volume_up":      {"shift+up"},
		"volume_down":    {"shift+down"},
		"seek_forward":   {"right"},
		"seek_backward":  {"left"},
		"toggle_shuffle": {"alt+s"},
	}
}

// NewKeyMap layers bindings (from config.toml's ui.keybindings) on top of
// DefaultKeyMap, one action per non-empty entry.
func NewKeyMap(bindings map[string]string) KeyMap {
	km := DefaultKeyMap()
	for action, spec := range bindings {
		if spec == "" {
			continue
		}
		km[action] = strings.Split(spec, ",")
	}
	return km
}

// Matches reports whether msg is bound to action. The binding "space"
// matches the space bar, which bubbletea reports as a literal " ".
func (k KeyMap) Matches(msg tea.KeyMsg, action string) bool {
	pressed := msg.String()
	for _, key := range k[action] {
		if key == pressed || (key == "space" && pressed == " ") {
			return true
		}
	}
	return false
}
