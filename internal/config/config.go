// Package config loads the app-level TOML configuration file: catalogue
// server settings, default audio quality, and UI/scrobbling preferences.
// It is distinct from internal/store's Playback Config table, which the
// engine reads and rewrites continuously at runtime.
package config

import (
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"

	"github.com/chartzngrafs/streamtrack/internal/catalogue"
)

// Config is the process-wide application configuration.
type Config struct {
	Catalogue  CatalogueConfig  `toml:"catalogue"`
	Audio      AudioConfig      `toml:"audio"`
	UI         UIConfig         `toml:"ui"`
	Scrobbling ScrobblingConfig `toml:"scrobbling"`
}

// CatalogueConfig holds the remote subscription catalogue's connection
// settings. Username/Password may instead come from the environment (see
// applyEnvOverrides) so they need not be committed to the config file.
type CatalogueConfig struct {
	ServerURL string `toml:"server_url"`
	Username  string `toml:"username"`
	Password  string `toml:"password"`
	Timeout   int    `toml:"timeout"` // seconds
}

// AudioConfig holds audio settings read by `open`: MaxAudioQuality is
// written into the store's configuration on every start, and CacheDir
// picks the audio cache directory unless --audio-cache-dir is given.
// Device is not read; the store's configuration table holds the selected
// output device.
type AudioConfig struct {
	Device          string `toml:"device"`
	MaxAudioQuality string `toml:"max_audio_quality"`
	CacheDir        string `toml:"cache_dir"`
}

// UIConfig holds front-end preferences. ShowAlbumArt is retained only for
// config-file compatibility; the thin TUI built here never renders album
// art.
type UIConfig struct {
	Theme        string            `toml:"theme"`
	ShowAlbumArt bool              `toml:"show_album_art"`
	Keybindings  map[string]string `toml:"keybindings"`
}

// ScrobblingConfig holds scrobbling service settings. No scrobbling client
// is implemented; this section is accepted and persisted for
// forward-compatibility with existing config files, but the engine never
// reads it.
type ScrobblingConfig struct {
	Method       string             `toml:"method"`
	LastFM       LastFMConfig       `toml:"lastfm"`
	ListenBrainz ListenBrainzConfig `toml:"listenbrainz"`
}

type LastFMConfig struct {
	Enabled  bool   `toml:"enabled"`
	Username string `toml:"username"`
	APIKey   string `toml:"api_key"`
	Secret   string `toml:"secret"`
}

type ListenBrainzConfig struct {
	Enabled bool   `toml:"enabled"`
	Token   string `toml:"token"`
}

// DefaultConfig returns a configuration with sane defaults for a fresh
// install.
func DefaultConfig() *Config {
	return &Config{
		Catalogue: CatalogueConfig{
			Timeout: 30,
		},
		Audio: AudioConfig{
			MaxAudioQuality: catalogue.HiRes192.String(),
		},
		UI: UIConfig{
			Theme:        "dark",
			ShowAlbumArt: false,
			Keybindings: map[string]string{
				"quit":           "ctrl+c,q",
				"next_tab":       "tab",
				"prev_tab":       "shift+tab",
				"play_pause":     "space",
				"next_track":     "alt+right",
				"prev_track":     "alt+left",
				"volume_up":      "shift+up",
				"volume_down":    "shift+down",
				"seek_forward":   "right",
				"seek_backward":  "left",
				"toggle_shuffle": "alt+s",
			},
		},
		Scrobbling: ScrobblingConfig{
			Method: "disabled",
		},
	}
}

// Path returns the config file's location: $STREAMTRACK_CONFIG if set,
// else $XDG_CONFIG_HOME/streamtrack/config.toml (via os.UserConfigDir).
func Path() (string, error) {
	if p := os.Getenv("STREAMTRACK_CONFIG"); p != "" {
		return p, nil
	}

	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}

	dir := filepath.Join(configDir, "streamtrack")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// Load reads the config file, creating one populated with defaults if it
// doesn't exist yet, then applies any .env-sourced credential overrides.
func Load() (*Config, error) {
	path, err := Path()
	if err != nil {
		return nil, err
	}

	cfg := DefaultConfig()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := Save(cfg); err != nil {
			return nil, err
		}
	} else {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, err
		}
	}

	applyEnvOverrides(cfg)
	return cfg, nil
}

// applyEnvOverrides loads a .env file (if present) and lets
// STREAMTRACK_SERVER_URL/STREAMTRACK_USERNAME/STREAMTRACK_PASSWORD override
// whatever the config file holds, so credentials need not be committed to
// disk in plaintext.
func applyEnvOverrides(cfg *Config) {
	_ = godotenv.Load()

	if v := os.Getenv("STREAMTRACK_SERVER_URL"); v != "" {
		cfg.Catalogue.ServerURL = v
	}
	if v := os.Getenv("STREAMTRACK_USERNAME"); v != "" {
		cfg.Catalogue.Username = v
	}
	if v := os.Getenv("STREAMTRACK_PASSWORD"); v != "" {
		cfg.Catalogue.Password = v
	}
}

// Save writes cfg to its config file.
func Save(cfg *Config) error {
	path, err := Path()
	if err != nil {
		return err
	}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	return toml.NewEncoder(file).Encode(cfg)
}

// Validate reports whether cfg has enough to attempt connecting to the
// catalogue.
func (c *Config) Validate() error {
	if c.Catalogue.ServerURL == "" {
		return &ValidationError{Field: "catalogue.server_url", Message: "server URL is required"}
	}
	if c.Catalogue.Username == "" {
		return &ValidationError{Field: "catalogue.username", Message: "username is required"}
	}
	return nil
}

// ValidationError reports a single invalid configuration field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Message
}
