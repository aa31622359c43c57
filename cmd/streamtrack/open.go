package main

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/chartzngrafs/streamtrack/internal/catalogue"
	"github.com/chartzngrafs/streamtrack/internal/config"
	"github.com/chartzngrafs/streamtrack/internal/engine"
	"github.com/chartzngrafs/streamtrack/internal/logging"
	"github.com/chartzngrafs/streamtrack/internal/mpris"
	"github.com/chartzngrafs/streamtrack/internal/notify"
	"github.com/chartzngrafs/streamtrack/internal/store"
	"github.com/chartzngrafs/streamtrack/internal/tui"
)

type openFlags struct {
	maxQuality    string
	noTUI         bool
	noAlbumArt    bool
	noMPRIS       bool
	rfid          bool
	web           bool
	webPort       int
	webSecret     string
	cacheDir      string
	cacheTTLHours int
}

func newOpenCommand() *cobra.Command {
	var flags openFlags

	cmd := &cobra.Command{
		Use:   "open",
		Short: "Start the playback engine and its front-ends (default command)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOpen(flags)
		},
	}

	fl := cmd.Flags()
	fl.StringVar(&flags.maxQuality, "max-quality", "", "cap stream quality (mp3, cd, hi-res96, hi-res192)")
	fl.BoolVar(&flags.noTUI, "no-tui", false, "disable the terminal front-end")
	fl.BoolVar(&flags.noAlbumArt, "no-album-art", false, "disable TUI album-cover rendering (always off in this build)")
	fl.BoolVar(&flags.noMPRIS, "no-mpris", false, "disable the MPRIS D-Bus bridge")
	fl.BoolVar(&flags.rfid, "rfid", false, "accepted for CLI compatibility; no RFID reader is wired in this build")
	fl.BoolVar(&flags.web, "web", false, "accepted for CLI compatibility; no web front-end is built into this distribution")
	fl.IntVar(&flags.webPort, "web-port", 8080, "port for the web front-end")
	fl.StringVar(&flags.webSecret, "web-secret", "", "shared secret for the web front-end")
	fl.StringVar(&flags.cacheDir, "audio-cache-dir", "", "override the on-disk audio cache directory")
	fl.IntVar(&flags.cacheTTLHours, "audio-cache-ttl-hours", 24*7, "evict cached audio older than this many hours (0 disables cleanup)")

	return cmd
}

func runOpen(flags openFlags) error {
	logger := logging.New(logLevel)
	log := logging.Component(logger, "cmd")

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}
	if flags.maxQuality != "" {
		if _, ok := catalogue.ParseAudioQuality(flags.maxQuality); !ok {
			return fmt.Errorf("--max-quality: unrecognised value %q", flags.maxQuality)
		}
		cfg.Audio.MaxAudioQuality = flags.maxQuality
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("%w (run `streamtrack config username`/`config password` first)", err)
	}

	cacheDir := flags.cacheDir
	if cacheDir == "" {
		cacheDir = cfg.Audio.CacheDir
	}
	if cacheDir == "" {
		cacheDir, err = defaultCacheDir()
		if err != nil {
			return fmt.Errorf("resolving audio cache directory: %w", err)
		}
	}
	if err := os.MkdirAll(cacheDir, 0o755); err != nil {
		return fmt.Errorf("creating audio cache directory: %w", err)
	}

	dbPath, err := defaultDBPath()
	if err != nil {
		return fmt.Errorf("resolving database path: %w", err)
	}
	st, err := store.Open(dbPath, logging.Component(logger, "store"))
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer st.Close()

	if quality, ok := catalogue.ParseAudioQuality(cfg.Audio.MaxAudioQuality); ok {
		if err := st.SetMaxQuality(quality); err != nil {
			log.WithError(err).Warn("persisting max audio quality")
		}
	}

	cat := catalogue.New(catalogue.Credentials{
		BaseURL:  cfg.Catalogue.ServerURL,
		Username: cfg.Catalogue.Username,
		Password: cfg.Catalogue.Password,
	}, logging.Component(logger, "catalogue"))

	initialList, err := st.GetTracklist()
	if err != nil {
		log.WithError(err).Warn("restoring tracklist, starting empty")
	}
	initialVolume, err := st.GetVolume()
	if err != nil {
		log.WithError(err).Warn("restoring volume, defaulting to 1.0")
		initialVolume = 1.0
	}

	bus := notify.NewBus()

	eng, controls := engine.New(initialList, initialVolume, cat, bus, cacheDir, st, logging.Component(logger, "engine"))

	exit := make(chan struct{})
	go watchSignals(exit)
	go eng.Run(exit)
	go engine.WatchDevices(st, controls, bus, logging.Component(logger, "devicewatch"), exit)
	go notify.LogTo(bus, logging.Component(logger, "notify"), exit)
	if flags.cacheTTLHours > 0 {
		go runCacheCleanup(st, time.Duration(flags.cacheTTLHours)*time.Hour, logging.Component(logger, "cache-cleanup"), exit)
	}

	if flags.rfid {
		log.Info("RFID tag bindings are resolvable through the store, but no physical reader is wired in this build")
	}
	if flags.web {
		log.Warn("the web front-end is an external collaborator and is not built into this distribution")
	}

	var mp *mpris.Player
	if !flags.noMPRIS {
		mp, err = mpris.New(controls, eng.StatusWatch(), eng.Position(), eng.Tracklist(), eng.Volume(), logging.Component(logger, "mpris"))
		if err != nil {
			log.WithError(err).Warn("MPRIS bridge unavailable, continuing without it")
		} else {
			go mp.Run(exit)
			defer mp.Close()
		}
	}

	if flags.noTUI {
		log.Info("TUI disabled, running headless; press Ctrl+C to exit")
		<-exit
		return nil
	}

	keys := tui.NewKeyMap(cfg.UI.Keybindings)
	model := tui.New(controls, eng.StatusWatch(), eng.Position(), eng.Tracklist(), eng.Volume(), bus, keys, cfg.UI.Theme)
	runErr := tui.Run(model)
	closeOnce(exit)
	return runErr
}

// watchSignals closes exit the first time the process receives SIGINT or
// SIGTERM, so every cooperative task (engine, device monitor, cache
// cleanup, MPRIS bridge) shuts down the same way whether the TUI or a
// headless run asked for it.
func watchSignals(exit chan struct{}) {
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig
	closeOnce(exit)
}

var closeExitOnce sync.Once

func closeOnce(exit chan struct{}) {
	closeExitOnce.Do(func() { close(exit) })
}

func runCacheCleanup(st *store.Store, ttl time.Duration, log *logrus.Entry, exit <-chan struct{}) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-exit:
			return
		case <-ticker.C:
			paths, err := st.CleanUpCacheEntries(ttl, time.Now())
			if err != nil {
				log.WithError(err).Warn("cleaning up audio cache")
				continue
			}
			for _, p := range paths {
				if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
					log.WithError(err).WithField("path", p).Warn("removing stale cache file")
				}
			}
			if len(paths) > 0 {
				log.WithField("count", len(paths)).Info("evicted stale cached audio files")
			}
		}
	}
}

func defaultCacheDir() (string, error) {
	if v := os.Getenv("STREAMTRACK_CACHE_DIR"); v != "" {
		return v, nil
	}
	dir, err := os.UserCacheDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "streamtrack", "audio"), nil
}

func defaultDBPath() (string, error) {
	if v := os.Getenv("STREAMTRACK_DB"); v != "" {
		return v, nil
	}
	dir, err := os.UserCacheDir()
	if err != nil {
		return "", err
	}
	full := filepath.Join(dir, "streamtrack")
	if err := os.MkdirAll(full, 0o755); err != nil {
		return "", err
	}
	return filepath.Join(full, "streamtrack.db"), nil
}
