package stretch

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSource is a minimal decode.Source producing silence for n frames at a
// fixed sample rate, used to exercise the Stretch Source's block mechanics
// without depending on any real decoder.
type fakeSource struct {
	sampleRate int
	total      int
	pos        int
}

func (f *fakeSource) NextFrame() ([]float32, bool) {
	if f.pos >= f.total {
		return nil, false
	}
	f.pos++
	return []float32{0, 0}, true
}
func (f *fakeSource) SampleRate() int { return f.sampleRate }
func (f *fakeSource) Channels() int   { return 2 }
func (f *fakeSource) TotalDuration() time.Duration {
	return time.Duration(f.total) * time.Second / time.Duration(f.sampleRate)
}
func (f *fakeSource) Seek(d time.Duration) error {
	f.pos = int(d.Seconds() * float64(f.sampleRate))
	return nil
}
func (f *fakeSource) Close() error { return nil }

func TestTotalDurationRescalesByRatio(t *testing.T) {
	inner := &fakeSource{sampleRate: 44100, total: 44100 * 60} // 60s
	shared := NewShared(Config{TimeStretchRatio: 1.0})
	src := New(inner, shared)

	require.Equal(t, 60*time.Second, src.TotalDuration())

	shared.Set(Config{TimeStretchRatio: 1.5})
	assert.InDelta(t, 40.0, src.TotalDuration().Seconds(), 0.01)
}

func TestSeekTranslatesDisplayTimeToSourceTime(t *testing.T) {
	inner := &fakeSource{sampleRate: 44100, total: 44100 * 60}
	shared := NewShared(Config{TimeStretchRatio: 2.0})
	src := New(inner, shared)

	require.NoError(t, src.Seek(10*time.Second))
	assert.Equal(t, 44100*20, inner.pos)
}

func TestNextFrameEventuallyExhausts(t *testing.T) {
	inner := &fakeSource{sampleRate: 44100, total: BlockFrames * 2}
	shared := NewShared(Config{TimeStretchRatio: 1.0})
	src := New(inner, shared)

	count := 0
	for {
		_, ok := src.NextFrame()
		if !ok {
			break
		}
		count++
		if count > BlockFrames*10 {
			t.Fatal("stretch source never exhausted")
		}
	}
	assert.Greater(t, count, 0)
}

func TestSupportsLiveStretchRequiresTwoChannels(t *testing.T) {
	mono := &fakeSourceMono{}
	assert.False(t, SupportsLiveStretch(mono))

	stereo := &fakeSource{sampleRate: 44100, total: 100}
	assert.True(t, SupportsLiveStretch(stereo))
}

type fakeSourceMono struct{}

func (f *fakeSourceMono) NextFrame() ([]float32, bool)   { return nil, false }
func (f *fakeSourceMono) SampleRate() int                { return 44100 }
func (f *fakeSourceMono) Channels() int                  { return 1 }
func (f *fakeSourceMono) TotalDuration() time.Duration   { return 0 }
func (f *fakeSourceMono) Seek(d time.Duration) error     { return nil }
func (f *fakeSourceMono) Close() error                   { return nil }
