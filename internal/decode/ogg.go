package decode

import (
	"fmt"
	"os"
	"time"

	"github.com/jfreymuth/oggvorbis"
)

// oggSource wraps jfreymuth/oggvorbis, which already decodes straight to
// float32 samples, so they pass straight through to this package's Source
// shape without re-quantising.
type oggSource struct {
	f        *os.File
	reader   *oggvorbis.Reader
	channels int
	buf      []float32
	pos      int
	filled   int
}

func newOggSource(f *os.File) (Source, error) {
	r, err := oggvorbis.NewReader(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("decode: ogg: %w", err)
	}
	channels := r.Channels()
	return &oggSource{
		f:        f,
		reader:   r,
		channels: channels,
		buf:      make([]float32, channels*256),
	}, nil
}

func (s *oggSource) NextFrame() ([]float32, bool) {
	if s.pos >= s.filled {
		n, err := s.reader.Read(s.buf)
		if n == 0 || err != nil {
			return nil, false
		}
		s.filled = n
		s.pos = 0
	}

	frame := make([]float32, s.channels)
	copy(frame, s.buf[s.pos:s.pos+s.channels])
	s.pos += s.channels
	return frame, true
}

func (s *oggSource) SampleRate() int { return int(s.reader.SampleRate()) }
func (s *oggSource) Channels() int   { return s.channels }

func (s *oggSource) TotalDuration() time.Duration {
	length := s.reader.Length()
	if length <= 0 || s.reader.SampleRate() == 0 {
		return 0
	}
	return time.Duration(length) * time.Second / time.Duration(s.reader.SampleRate())
}

func (s *oggSource) Seek(d time.Duration) error {
	sample := int64(d.Seconds() * float64(s.reader.SampleRate()))
	if err := s.reader.SetPosition(sample); err != nil {
		return fmt.Errorf("decode: ogg seek: %w", err)
	}
	s.pos = 0
	s.filled = 0
	return nil
}

func (s *oggSource) Close() error { return s.f.Close() }
