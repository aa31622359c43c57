// Package engine implements the Playback Engine: the single-threaded,
// command-driven state machine that owns the tracklist, the Sink, the
// Downloader, and the Stretch/Pitch configuration, and fans out observable
// state through watch channels.
package engine

import (
	"time"

	"github.com/sirupsen/logrus"

	"github.com/chartzngrafs/streamtrack/internal/catalogue"
	"github.com/chartzngrafs/streamtrack/internal/downloader"
	"github.com/chartzngrafs/streamtrack/internal/notify"
	"github.com/chartzngrafs/streamtrack/internal/sink"
	"github.com/chartzngrafs/streamtrack/internal/store"
	"github.com/chartzngrafs/streamtrack/internal/stretch"
	"github.com/chartzngrafs/streamtrack/internal/tracklist"
	"github.com/chartzngrafs/streamtrack/internal/watch"
)

// Status is the engine's coarse playback state, distinct from a Track's own
// per-item Status within the tracklist.
type Status int

const (
	StatusPaused Status = iota
	StatusBuffering
	StatusPlaying
)

func (s Status) String() string {
	switch s {
	case StatusPaused:
		return "paused"
	case StatusBuffering:
		return "buffering"
	case StatusPlaying:
		return "playing"
	default:
		return "unknown"
	}
}

const (
	tickInterval      = 500 * time.Millisecond
	prefetchThreshold = 60 * time.Second
	deviceSettleDelay = 200 * time.Millisecond
	jumpStep          = 10 * time.Second
	previousThreshold = 1 * time.Second
)

// Engine owns every mutable piece of playback state; it is the sole writer
// of the position/status/tracklist/volume watch values, so other components
// never need to coordinate ordering against each other directly.
type Engine struct {
	catalogue  *catalogue.Client
	bus        *notify.Bus
	store      *store.Store
	downloader *downloader.Downloader
	sink       *sink.Sink
	stretch    *stretch.Shared

	commands chan Command

	positionW  *watch.Watch[time.Duration]
	statusW    *watch.Watch[Status]
	tracklistW *watch.Watch[tracklist.Tracklist]
	volumeW    *watch.Watch[float64]

	list tracklist.Tracklist
	cfg  store.Configuration

	nextInSinkQueue        bool
	nextQueryStarted       bool
	pendingCurrentTrackID  *uint32
	pendingCurrentStartAt  *time.Duration
	pendingNextTrackID     *uint32

	log *logrus.Entry
}

// New constructs an Engine over a restored tracklist and volume. The
// Playback Config (device name, stretch ratio, pitch) is loaded from store.
func New(initial tracklist.Tracklist, initialVolume float64, cat *catalogue.Client, bus *notify.Bus, cacheDir string, st *store.Store, log *logrus.Entry) (*Engine, *Controls) {
	cfg, err := st.GetConfiguration()
	if err != nil {
		log.WithError(err).Warn("loading playback configuration, using defaults")
	}

	volumeW := watch.New(initialVolume)
	stretchShared := stretch.NewShared(stretch.Config{
		TimeStretchRatio: cfg.TimeStretchRatio,
		PitchSemitones:   cfg.PitchSemitones,
		PitchCents:       cfg.PitchCents,
	})

	snk := sink.New(volumeW, stretchShared, log.WithField("component", "sink"))
	snk.SetDevice(cfg.AudioDeviceName)

	dl := downloader.New(cacheDir, st, bus, log.WithField("component", "downloader"))

	controls, commandsCh := newControls()

	e := &Engine{
		catalogue:  cat,
		bus:        bus,
		store:      st,
		downloader: dl,
		sink:       snk,
		stretch:    stretchShared,

		commands: commandsCh,

		positionW:  watch.New[time.Duration](0),
		statusW:    watch.New(StatusPaused),
		tracklistW: watch.New(initial),
		volumeW:    volumeW,

		list: initial,
		cfg:  cfg,

		log: log.WithField("component", "engine"),
	}
	return e, controls
}

// Position returns the watch receiver for the engine's published position.
func (e *Engine) Position() *watch.Watch[time.Duration] { return e.positionW }

// StatusWatch returns the watch receiver for the engine's published status.
func (e *Engine) StatusWatch() *watch.Watch[Status] { return e.statusW }

// Tracklist returns the watch receiver for the engine's published tracklist.
func (e *Engine) Tracklist() *watch.Watch[tracklist.Tracklist] { return e.tracklistW }

// Volume returns the watch receiver for the engine's published volume.
func (e *Engine) Volume() *watch.Watch[float64] { return e.volumeW }

// Run drives the engine's command loop until exit is closed or receives a
// value. It is the engine's only goroutine; every mutation of engine state
// happens here, so no internal locking is required.
func (e *Engine) Run(exit <-chan struct{}) {
	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()

	downloadDone := e.downloader.Done().Subscribe()
	trackFinished := e.sink.TrackFinished()

	for {
		select {
		case <-exit:
			return

		case cmd := <-e.commands:
			e.handleCommand(cmd)

		case <-ticker.C:
			e.tick()

		case <-downloadDone:
			downloadDone = e.downloader.Done().Subscribe()
			e.handleDownloadDone(e.downloader.Done().Value())

		case <-trackFinished:
			e.handleTrackFinished()
		}
	}
}

func (e *Engine) publishTracklist() {
	snapshot := e.list
	snapshot.Tracks = append([]tracklist.Track(nil), e.list.Tracks...)
	e.tracklistW.Publish(snapshot)
	if err := e.store.SetTracklist(snapshot); err != nil {
		e.log.WithError(err).Warn("persisting tracklist")
	}
}

func (e *Engine) setStatus(s Status) {
	e.statusW.Publish(s)
}

func (e *Engine) notifyErr(err error) {
	if err == nil {
		return
	}
	e.log.WithError(err).Warn("command failed")
	e.bus.Errorf("%v", err)
}

// displayRatio returns the stretch ratio currently applied, used to convert
// catalog-reported (source) seconds into display seconds.
func (e *Engine) displayRatio() float64 {
	return e.stretch.Get().TimeStretchRatio
}
