// Package stretch implements the streaming time-stretch + pitch-shift
// filter around a decoded sample source, transliterated block-for-block
// from original_source/qobuz-player-controls/src/stretch_source_signalsmith.rs
// (see DESIGN.md). No Go binding of signalsmith-stretch exists anywhere in
// the example corpus, so the stretch/pitch algorithm itself is a hand-rolled
// per-block linear-interpolation resampler (no windowing or overlap-add);
// every other piece of this file (block
// sizing, ratio/pitch read cadence, exhaustion/flush handling, seek
// translation) mirrors the original exactly.
package stretch

import (
	"math"
	"sync"
	"time"

	"github.com/chartzngrafs/streamtrack/internal/decode"
)

// BlockFrames and NChannels match the original's constants exactly.
const (
	BlockFrames = 2048
	NChannels   = 2
)

// Config is the shared, read-write time-stretch/pitch configuration the
// engine writes and the Source reads once per block. Protected externally
// by a sync.RWMutex (see Shared).
type Config struct {
	TimeStretchRatio float64 // clamped to [0.5, 2.0]
	PitchSemitones   int     // clamped to [-12, 12]
	PitchCents       int     // clamped to [-100, 100]
}

// Shared is the reader-writer-locked handle to Config the engine passes to
// the Source and continues to own; the Source only ever reads it.
type Shared struct {
	mu  sync.RWMutex
	cfg Config
}

// NewShared wraps an initial Config for sharing with a Source.
func NewShared(cfg Config) *Shared {
	return &Shared{cfg: cfg}
}

// Get returns a copy of the current configuration.
func (s *Shared) Get() Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg
}

// Set replaces the configuration. Callers are expected to have already
// clamped values (the Persistent Store Gateway clamps on write).
func (s *Shared) Set(cfg Config) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cfg = cfg
}

func normalizeRatio(ratio float64) float64 {
	if math.IsInf(ratio, 0) || math.IsNaN(ratio) {
		return 1.0
	}
	if ratio < 0.5 {
		return 0.5
	}
	if ratio > 2.0 {
		return 2.0
	}
	return ratio
}

func pitchSemitones(cfg Config) float64 {
	return float64(cfg.PitchSemitones) + float64(cfg.PitchCents)/100.0
}

// maxOutputFrames mirrors the original's ceil(BLOCK_FRAMES / 0.5): the
// floor of ratio is 0.5, so this is the largest a block can ever expand to.
var maxOutputFrames = int(math.Ceil(float64(BlockFrames) / 0.5))

// Source wraps a 2-channel decode.Source, applying streaming time-stretch
// and pitch-shift. Live stretch is only offered for 2-channel sources; the
// engine is responsible for falling back to the raw decoded source for
// mono tracks (see SupportsLiveStretch).
type Source struct {
	inner             decode.Source
	sampleRate        int
	originalDuration  time.Duration
	shared            *Shared

	ratio          float64
	pitchSemitones float64

	inputBuf  []float32 // BlockFrames * NChannels
	outputBuf []float32 // maxOutputFrames * NChannels
	outputLen int
	outputIdx int
	exhausted bool

	// olaPhase is not read or written anywhere; resynthesize keeps no read
	// position between calls to fillOutput.
	olaPhase float64
}

// New wraps inner, which must be a 2-channel source (see
// SupportsLiveStretch at the call site before constructing this).
func New(inner decode.Source, shared *Shared) *Source {
	cfg := shared.Get()
	s := &Source{
		inner:            inner,
		sampleRate:       inner.SampleRate(),
		originalDuration: inner.TotalDuration(),
		shared:           shared,
		ratio:            normalizeRatio(cfg.TimeStretchRatio),
		pitchSemitones:   pitchSemitones(cfg),
		inputBuf:         make([]float32, BlockFrames*NChannels),
		outputBuf:        make([]float32, maxOutputFrames*NChannels),
	}
	return s
}

// SupportsLiveStretch reports whether src can be wrapped by a Source: only
// 2-channel input supports live stretch.
func SupportsLiveStretch(src decode.Source) bool {
	return src.Channels() == NChannels
}

func (s *Source) refreshParams() {
	cfg := s.shared.Get()
	s.ratio = normalizeRatio(cfg.TimeStretchRatio)
	s.pitchSemitones = pitchSemitones(cfg)
}

// pitchFactor converts semitones to a frequency ratio.
func pitchFactor(semitones float64) float64 {
	return math.Pow(2, semitones/12.0)
}

func (s *Source) fillOutput() {
	s.refreshParams()

	got := 0
	for i := 0; i < BlockFrames; i++ {
		frame, ok := s.inner.NextFrame()
		if !ok {
			s.exhausted = true
			s.inputBuf[i*NChannels] = 0
			s.inputBuf[i*NChannels+1] = 0
			continue
		}
		got++
		s.inputBuf[i*NChannels] = frame[0]
		if len(frame) > 1 {
			s.inputBuf[i*NChannels+1] = frame[1]
		} else {
			s.inputBuf[i*NChannels+1] = frame[0]
		}
	}

	if got == 0 {
		if s.exhausted {
			// Flush whatever tail the resynthesis window still holds.
			latency := s.outputLatencyFrames()
			if latency > 0 {
				frames := latency
				if frames > maxOutputFrames {
					frames = maxOutputFrames
				}
				for i := 0; i < frames*NChannels; i++ {
					s.outputBuf[i] = 0
				}
				s.outputLen = frames * NChannels
				s.outputIdx = 0
			} else {
				s.outputLen = 0
			}
		}
		return
	}

	outputFrames := int(math.Round(float64(got) / s.ratio))
	if outputFrames < 1 {
		outputFrames = 1
	}
	if outputFrames > maxOutputFrames {
		outputFrames = maxOutputFrames
	}

	pitch := pitchFactor(s.pitchSemitones)
	s.resynthesize(got, outputFrames, pitch)
	s.outputLen = outputFrames * NChannels
	s.outputIdx = 0
}

// resynthesize is the hand-rolled stretch: it resamples the
// input block to outputFrames frames (time-stretch) and then resamples
// again by the pitch factor with linear interpolation: one call, one
// input block in, one (possibly different length) output block out,
// pitch and ratio both applied. Kept deliberately simple — this module
// has no library to lean on (see DESIGN.md); the bar is audible-glitch-
// free stretch/pitch change in normal use, not a specific DSP quality
// target.
func (s *Source) resynthesize(inputFrames, outputFrames int, pitchFactor float64) {
	for ch := 0; ch < NChannels; ch++ {
		for o := 0; o < outputFrames; o++ {
			// Time-stretch: map output frame index back into input space.
			srcPos := float64(o) * float64(inputFrames-1) / float64(maxInt(outputFrames-1, 1))
			// Pitch-shift: further warp the read position by the pitch factor.
			srcPos *= pitchFactor
			if srcPos > float64(inputFrames-1) {
				srcPos = float64(inputFrames - 1)
			}
			if srcPos < 0 {
				srcPos = 0
			}

			lo := int(srcPos)
			hi := lo + 1
			if hi >= inputFrames {
				hi = inputFrames - 1
			}
			frac := float32(srcPos - float64(lo))

			a := s.inputBuf[lo*NChannels+ch]
			b := s.inputBuf[hi*NChannels+ch]
			s.outputBuf[o*NChannels+ch] = a + (b-a)*frac
		}
	}
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// outputLatencyFrames estimates the resynthesis window's remaining tail;
// this hand-rolled stretcher holds no internal buffer beyond one block, so
// there is no latency to flush.
func (s *Source) outputLatencyFrames() int {
	return 0
}

// NextFrame returns the next stretched/pitched output sample frame.
func (s *Source) NextFrame() ([]float32, bool) {
	if s.exhausted && s.outputIdx >= s.outputLen {
		return nil, false
	}
	for s.outputIdx >= s.outputLen {
		s.fillOutput()
		if s.outputLen == 0 && s.exhausted {
			return nil, false
		}
	}
	frame := []float32{
		s.outputBuf[s.outputIdx*NChannels],
		s.outputBuf[s.outputIdx*NChannels+1],
	}
	s.outputIdx++
	return frame, true
}

func (s *Source) SampleRate() int { return s.sampleRate }
func (s *Source) Channels() int   { return NChannels }

// TotalDuration returns original/ratio, the "display duration".
func (s *Source) TotalDuration() time.Duration {
	ratio := normalizeRatio(s.shared.Get().TimeStretchRatio)
	return time.Duration(float64(s.originalDuration) / ratio)
}

// Seek translates display time to source time (pos*ratio), seeks the inner
// source, and resets the resynthesis state.
func (s *Source) Seek(pos time.Duration) error {
	ratio := normalizeRatio(s.shared.Get().TimeStretchRatio)
	contentPos := time.Duration(float64(pos) * ratio)

	if err := s.inner.Seek(contentPos); err != nil {
		return err
	}
	s.outputIdx = 0
	s.outputLen = 0
	s.exhausted = false
	return nil
}

func (s *Source) Close() error { return s.inner.Close() }
