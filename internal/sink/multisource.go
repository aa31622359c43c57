package sink

import (
	"encoding/binary"
	"io"
	"sync"
	"time"

	"github.com/chartzngrafs/streamtrack/internal/decode"
)

// outChannels is the fixed channel count the underlying oto stream is
// opened with; mono sources are duplicated across both channels on read.
const outChannels = 2

// multiSource is the Go-idiomatic redesign of rodio's pull-based
// Sink/mixer/queue: rather than a Source trait object rodio chains
// internally, this is a plain io.Reader oto pulls PCM bytes from, holding
// at most a current and one queued decode.Source. When current is
// exhausted it either hands off to queued (if still present, meaning the
// Sink already established the two are rate-compatible) or stops, pulsing
// onBoundary exactly once per completed source either way. See
// famish99-direttampd/internal/player/transition.go for the sibling
// context-cancel/restart idiom this was grounded alongside (used by the
// Sink for the RecreateStreamRequired path instead, since that tears the
// whole stream down).
type multiSource struct {
	mu            sync.Mutex
	sampleRate    int
	current       decode.Source
	queued        decode.Source
	framesWritten int64
	onBoundary    func(completedDuration time.Duration, continuing bool)
	closed        bool
}

func newMultiSource(current decode.Source, onBoundary func(time.Duration, bool)) *multiSource {
	return &multiSource{
		sampleRate: current.SampleRate(),
		current:    current,
		onBoundary: onBoundary,
	}
}

// setQueued installs src as the slot played immediately after current
// exhausts. Callers (Sink) must already have verified src.SampleRate()
// matches this multiSource's sampleRate.
func (m *multiSource) setQueued(src decode.Source) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.queued != nil {
		m.queued.Close()
	}
	m.queued = src
}

func (m *multiSource) clearQueued() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.queued != nil {
		m.queued.Close()
		m.queued = nil
	}
}

func (m *multiSource) isEmpty() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current == nil
}

func (m *multiSource) framesElapsed() int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.framesWritten
}

func (m *multiSource) resetFrames(n int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.framesWritten = n
}

func (m *multiSource) close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	if m.current != nil {
		m.current.Close()
		m.current = nil
	}
	if m.queued != nil {
		m.queued.Close()
		m.queued = nil
	}
}

// Read fills p with interleaved signed 16-bit little-endian PCM frames,
// advancing through current and, on exhaustion, queued.
func (m *multiSource) Read(p []byte) (int, error) {
	const frameSize = 2 * outChannels
	n := 0

	for n+frameSize <= len(p) {
		m.mu.Lock()
		if m.closed || m.current == nil {
			m.mu.Unlock()
			break
		}

		frame, ok := m.current.NextFrame()
		if !ok {
			completed := m.current.TotalDuration()
			m.current.Close()

			if m.queued != nil {
				m.current = m.queued
				m.queued = nil
				m.mu.Unlock()
				m.onBoundary(completed, true)
				continue
			}

			m.current = nil
			m.mu.Unlock()
			m.onBoundary(completed, false)
			break
		}

		for ch := 0; ch < outChannels; ch++ {
			sample := frame[0]
			if ch < len(frame) {
				sample = frame[ch]
			}
			binary.LittleEndian.PutUint16(p[n:], uint16(float32ToInt16(sample)))
			n += 2
		}
		m.framesWritten++
		m.mu.Unlock()
	}

	if n == 0 {
		return 0, io.EOF
	}
	return n, nil
}

func float32ToInt16(v float32) int16 {
	if v > 1 {
		v = 1
	}
	if v < -1 {
		v = -1
	}
	return int16(v * 32767)
}
