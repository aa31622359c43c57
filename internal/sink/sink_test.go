package sink

import (
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chartzngrafs/streamtrack/internal/apperr"
	"github.com/chartzngrafs/streamtrack/internal/stretch"
	"github.com/chartzngrafs/streamtrack/internal/watch"
)

type fakeSource struct {
	sampleRate int
	total      int
	pos        int
	closed     bool
}

func (f *fakeSource) NextFrame() ([]float32, bool) {
	if f.pos >= f.total {
		return nil, false
	}
	f.pos++
	return []float32{0, 0}, true
}
func (f *fakeSource) SampleRate() int              { return f.sampleRate }
func (f *fakeSource) Channels() int                { return 2 }
func (f *fakeSource) TotalDuration() time.Duration { return time.Duration(f.total) * time.Second / time.Duration(f.sampleRate) }
func (f *fakeSource) Seek(d time.Duration) error   { f.pos = int(d.Seconds() * float64(f.sampleRate)); return nil }
func (f *fakeSource) Close() error                 { f.closed = true; return nil }

func TestMultiSourceChainsToQueuedGaplessly(t *testing.T) {
	first := &fakeSource{sampleRate: 100, total: 10}
	second := &fakeSource{sampleRate: 100, total: 10}

	var boundaries []bool
	m := newMultiSource(first, func(d time.Duration, continuing bool) {
		boundaries = append(boundaries, continuing)
	})
	m.setQueued(second)

	buf := make([]byte, 4) // one stereo frame
	total := 0
	for {
		n, err := m.Read(buf)
		total += n
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		if total > 10000 {
			t.Fatal("multiSource never drained")
		}
	}

	require.Len(t, boundaries, 2)
	assert.True(t, boundaries[0], "first boundary should chain to queued")
	assert.False(t, boundaries[1], "second boundary should end the stream")
	assert.True(t, first.closed)
	assert.True(t, second.closed)
}

func TestMultiSourceEndsWithoutQueued(t *testing.T) {
	src := &fakeSource{sampleRate: 100, total: 5}
	pulses := 0
	m := newMultiSource(src, func(time.Duration, bool) { pulses++ })

	buf := make([]byte, 4096)
	_, err := m.Read(buf)
	require.NoError(t, err)

	_, err = m.Read(buf)
	assert.Equal(t, io.EOF, err)
	assert.Equal(t, 1, pulses)
}

func TestResolveDeviceFallsBackToDefault(t *testing.T) {
	enum := fakeEnumerator{
		def:  AudioDevice{Name: "default"},
		list: []AudioDevice{{Name: "default"}, {Name: "other"}},
	}
	selected := "missing"
	tried := []string{}
	d, err := resolveDevice(enum, &selected, func(dev AudioDevice) error {
		tried = append(tried, dev.Name)
		if dev.Name == "missing" {
			return assert.AnError
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, "default", d.Name)
	assert.Equal(t, []string{"missing", "default"}, tried)
}

func TestResolveDeviceFailsWhenNothingOpens(t *testing.T) {
	enum := fakeEnumerator{
		def:  AudioDevice{Name: "default"},
		list: []AudioDevice{{Name: "default"}},
	}
	_, err := resolveDevice(enum, nil, func(AudioDevice) error { return assert.AnError })
	assert.ErrorIs(t, err, apperr.ErrDeviceGone)
}

type fakeEnumerator struct {
	def  AudioDevice
	list []AudioDevice
}

func (f fakeEnumerator) List() ([]AudioDevice, error)    { return f.list, nil }
func (f fakeEnumerator) Default() (AudioDevice, error)   { return f.def, nil }

func TestPositionSubtractsDurationPlayedAndAddsOffset(t *testing.T) {
	s := New(watch.New(1.0), stretch.NewShared(stretch.Config{TimeStretchRatio: 1.0}), nil)
	s.mixer = newMultiSource(&fakeSource{sampleRate: 100, total: 1000}, s.onBoundary)
	s.mixer.resetFrames(500) // 5s raw
	s.durationPlayed = 2 * time.Second
	s.positionOffsetMs = 250

	assert.Equal(t, 3250*time.Millisecond, s.Position())
}

func TestPositionNeverGoesNegative(t *testing.T) {
	s := New(watch.New(1.0), stretch.NewShared(stretch.Config{TimeStretchRatio: 1.0}), nil)
	s.mixer = newMultiSource(&fakeSource{sampleRate: 100, total: 1000}, s.onBoundary)
	s.mixer.resetFrames(100) // 1s raw
	s.durationPlayed = 5 * time.Second

	assert.Equal(t, time.Duration(0), s.Position())
}
