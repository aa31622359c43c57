// Package sink owns the OS audio output stream: gapless hand-off between
// the current and next-queued track, volume, device selection/fallback,
// and position accounting. Built on oto/v3's context construction and
// Play/Pause/IsPlaying control flow (see DESIGN.md), but organised around
// a two-slot queue instead of a one-track-at-a-time streaming loop, so
// gapless hand-off and sample-rate-change recovery both fall out of the
// same slot-swap path.
package sink

import (
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"
	"github.com/sirupsen/logrus"

	"github.com/chartzngrafs/streamtrack/internal/apperr"
	"github.com/chartzngrafs/streamtrack/internal/decode"
	"github.com/chartzngrafs/streamtrack/internal/stretch"
	"github.com/chartzngrafs/streamtrack/internal/watch"
)

// QueryResult reports whether a just-queried track was chained onto the
// live stream or requires a new stream (different sample rate).
type QueryResult int

const (
	Queued QueryResult = iota
	RecreateStreamRequired
)

// Sink owns at most one oto output stream at a time, feeding it from a
// multiSource holding a current and optionally one queued decode.Source.
type Sink struct {
	mu sync.Mutex

	ctx    *oto.Context
	player *oto.Player
	mixer  *multiSource

	volume *watch.Watch[float64]
	config *stretch.Shared

	deviceMu   sync.Mutex
	deviceName *string

	durationPlayed   time.Duration
	positionOffsetMs int64
	liveStretch      bool

	finished chan struct{}

	log *logrus.Entry
}

// New constructs an empty Sink. volume is the engine's shared volume watch
// (read, never written, by the Sink); config is the shared stretch/pitch
// configuration new sources are wrapped against.
func New(volume *watch.Watch[float64], config *stretch.Shared, log *logrus.Entry) *Sink {
	return &Sink{
		volume:   volume,
		config:   config,
		finished: make(chan struct{}, 4),
		log:      log,
	}
}

// GetDevice returns the currently selected device name, or nil for "use
// system default".
func (s *Sink) GetDevice() *string {
	s.deviceMu.Lock()
	defer s.deviceMu.Unlock()
	return s.deviceName
}

// SetDevice records the device the next stream construction should target.
// It does not itself tear down or rebuild a running stream — the engine
// drives that sequence (pause, clear, query_track, resume, seek).
func (s *Sink) SetDevice(name *string) {
	s.deviceMu.Lock()
	defer s.deviceMu.Unlock()
	s.deviceName = name
}

// IsEmpty reports whether the Sink currently has no stream at all.
func (s *Sink) IsEmpty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mixer == nil || s.mixer.isEmpty()
}

// SupportsLiveStretch reports whether the current source can be rescaled
// in place on a stretch-ratio change (2-channel sources only).
func (s *Sink) SupportsLiveStretch() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.liveStretch
}

// TrackFinished is pulsed once per completed source, whether or not a
// gapless hand-off followed.
func (s *Sink) TrackFinished() <-chan struct{} {
	return s.finished
}

// QueryTrack opens path and either chains it after the current source
// (Queued) or reports that the live stream's sample rate does not match
// and must be recreated (RecreateStreamRequired). If startAt is non-nil the
// newly opened source seeks there before anything else reads from it.
func (s *Sink) QueryTrack(path string, startAt *time.Duration) (QueryResult, error) {
	raw, err := decode.Open(path)
	if err != nil {
		return 0, fmt.Errorf("sink: opening %s: %w", path, err)
	}

	src, liveStretch := s.wrap(raw)
	if startAt != nil {
		if err := src.Seek(*startAt); err != nil && !errors.Is(err, decode.ErrSeekUnsupported) {
			src.Close()
			return 0, fmt.Errorf("sink: seeking to start position: %w", err)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.mixer == nil || s.mixer.isEmpty() {
		if err := s.openStream(src); err != nil {
			src.Close()
			return 0, err
		}
		s.liveStretch = liveStretch
		return Queued, nil
	}

	if src.SampleRate() != s.mixer.sampleRate {
		src.Close()
		return RecreateStreamRequired, apperr.ErrRecreateStreamRequired
	}

	s.mixer.setQueued(src)
	return Queued, nil
}

// wrap applies the Stretch/Pitch Source filter when the decoded source is
// stereo (see stretch.SupportsLiveStretch); mono sources play back raw.
func (s *Sink) wrap(raw decode.Source) (decode.Source, bool) {
	if stretch.SupportsLiveStretch(raw) {
		return stretch.New(raw, s.config), true
	}
	return raw, false
}

// openStream tears down any existing oto context and opens a fresh one at
// src's sample rate, becoming the new current source.
func (s *Sink) openStream(src decode.Source) error {
	s.closeStreamLocked()

	var ctx *oto.Context
	tryOpen := func(AudioDevice) error {
		op := &oto.NewContextOptions{
			SampleRate:   src.SampleRate(),
			ChannelCount: outChannels,
			Format:       oto.FormatSignedInt16LE,
		}
		c, readyChan, err := oto.NewContext(op)
		if err != nil {
			return err
		}
		<-readyChan
		ctx = c
		return nil
	}

	s.deviceMu.Lock()
	selected := s.deviceName
	s.deviceMu.Unlock()

	if _, err := resolveDevice(defaultEnumerator, selected, tryOpen); err != nil {
		return fmt.Errorf("%w: %s", apperr.ErrDeviceGone, err)
	}

	mixer := newMultiSource(src, s.onBoundary)
	player := ctx.NewPlayer(mixer)

	s.ctx = ctx
	s.mixer = mixer
	s.player = player
	s.durationPlayed = 0
	s.positionOffsetMs = 0
	s.syncVolumeLocked()
	return nil
}

func (s *Sink) onBoundary(completed time.Duration, continuing bool) {
	if continuing {
		s.mu.Lock()
		s.durationPlayed += completed
		s.mu.Unlock()
	}
	select {
	case s.finished <- struct{}{}:
	default:
	}
}

// Play starts or resumes output.
func (s *Sink) Play() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.player != nil {
		s.player.Play()
	}
}

// Pause suspends output without discarding position.
func (s *Sink) Pause() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.player != nil {
		s.player.Pause()
	}
}

// Seek repositions the current source to d (display time) and resets the
// duration-played accumulator and position offset to zero.
func (s *Sink) Seek(d time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.mixer == nil || s.mixer.current == nil {
		return fmt.Errorf("sink: seek with no current source")
	}
	if err := s.mixer.current.Seek(d); err != nil {
		return fmt.Errorf("sink: seek: %w", err)
	}

	s.mixer.resetFrames(int64(d.Seconds() * float64(s.mixer.sampleRate)))
	s.durationPlayed = 0
	s.positionOffsetMs = 0
	return nil
}

// Clear tears down the entire stream, discarding current and queued
// sources and resetting position accounting.
func (s *Sink) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closeStreamLocked()
	s.durationPlayed = 0
	s.positionOffsetMs = 0
	s.liveStretch = false
}

func (s *Sink) closeStreamLocked() {
	if s.player != nil {
		s.player.Close()
		s.player = nil
	}
	if s.mixer != nil {
		s.mixer.close()
		s.mixer = nil
	}
	s.ctx = nil
}

// ClearQueue drops only the queued next-track slot, leaving current
// playback untouched.
func (s *Sink) ClearQueue() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.mixer != nil {
		s.mixer.clearQueued()
	}
}

// SyncVolume re-reads the shared volume watch and applies the perceptual
// curve clamp(v,0,1)^3 to the live player.
func (s *Sink) SyncVolume() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.syncVolumeLocked()
}

func (s *Sink) syncVolumeLocked() {
	if s.player == nil {
		return
	}
	v := s.volume.Value()
	if v < 0 {
		v = 0
	}
	if v > 1 {
		v = 1
	}
	s.player.SetVolume(math.Pow(v, 3))
}

// AdjustPositionOffsetMs nudges the reported position by delta without
// touching the underlying stream; used when a stretch-ratio change
// rescales the display timeline in place.
func (s *Sink) AdjustPositionOffsetMs(delta int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.positionOffsetMs += delta
}

// Position reports max(0, raw_pos - duration_played) + position_offset.
func (s *Sink) Position() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.mixer == nil {
		return 0
	}
	raw := time.Duration(s.mixer.framesElapsed()) * time.Second / time.Duration(s.mixer.sampleRate)
	pos := raw - s.durationPlayed
	if pos < 0 {
		pos = 0
	}
	return pos + time.Duration(s.positionOffsetMs)*time.Millisecond
}

// Close releases the oto context entirely. The Sink is unusable after.
func (s *Sink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closeStreamLocked()
	return nil
}
