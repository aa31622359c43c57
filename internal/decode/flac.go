package decode

import (
	"fmt"
	"os"
	"time"

	"github.com/mewkiz/flac"
	"github.com/mewkiz/flac/frame"
)

// flacSource wraps mewkiz/flac, de-interleaving frame subframes into
// float32 sample frames matching this package's Source shape.
type flacSource struct {
	f          *os.File
	stream     *flac.Stream
	bitsPerSample uint8
	channels   int
	cur        *frame.Frame
	curIndex   int
}

func newFLACSource(f *os.File) (Source, error) {
	stream, err := flac.New(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("decode: flac: %w", err)
	}
	return &flacSource{
		f:             f,
		stream:        stream,
		bitsPerSample: uint8(stream.Info.BitsPerSample),
		channels:      int(stream.Info.NChannels),
	}, nil
}

func (s *flacSource) NextFrame() ([]float32, bool) {
	for {
		if s.cur == nil || s.curIndex >= len(s.cur.Subframes[0].Samples) {
			fr, err := s.stream.ParseNext()
			if err != nil {
				return nil, false
			}
			s.cur = fr
			s.curIndex = 0
		}

		scale := float32(int64(1) << (s.bitsPerSample - 1))
		out := make([]float32, s.channels)
		for ch := 0; ch < s.channels && ch < len(s.cur.Subframes); ch++ {
			out[ch] = float32(s.cur.Subframes[ch].Samples[s.curIndex]) / scale
		}
		s.curIndex++
		return out, true
	}
}

func (s *flacSource) SampleRate() int { return int(s.stream.Info.SampleRate) }
func (s *flacSource) Channels() int   { return s.channels }

func (s *flacSource) TotalDuration() time.Duration {
	if s.stream.Info.SampleRate == 0 {
		return 0
	}
	return time.Duration(s.stream.Info.NSamples) * time.Second / time.Duration(s.stream.Info.SampleRate)
}

func (s *flacSource) Seek(d time.Duration) error {
	sample := uint64(d.Seconds() * float64(s.stream.Info.SampleRate))
	if _, err := s.stream.Seek(sample); err != nil {
		return fmt.Errorf("decode: flac seek: %w", err)
	}
	s.cur = nil
	s.curIndex = 0
	return nil
}

func (s *flacSource) Close() error { return s.f.Close() }
