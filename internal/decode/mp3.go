package decode

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/hajimehoshi/go-mp3"
)

// mp3Source wraps hajimehoshi/go-mp3, which always decodes to 16-bit
// stereo PCM.
type mp3Source struct {
	f       *os.File
	dec     *mp3.Decoder
	buf     [4]byte
	readPos int64
}

func newMP3Source(f *os.File) (Source, error) {
	dec, err := mp3.NewDecoder(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("decode: mp3: %w", err)
	}
	return &mp3Source{f: f, dec: dec}, nil
}

func (s *mp3Source) NextFrame() ([]float32, bool) {
	n, err := io.ReadFull(s.dec, s.buf[:])
	if n < 4 || err != nil {
		return nil, false
	}
	s.readPos += 4
	left := pcm16ToFloat32(int16(binary.LittleEndian.Uint16(s.buf[0:2])))
	right := pcm16ToFloat32(int16(binary.LittleEndian.Uint16(s.buf[2:4])))
	return []float32{left, right}, true
}

func (s *mp3Source) SampleRate() int { return s.dec.SampleRate() }
func (s *mp3Source) Channels() int   { return 2 }

func (s *mp3Source) TotalDuration() time.Duration {
	totalBytes := s.dec.Length()
	if totalBytes <= 0 || s.dec.SampleRate() == 0 {
		return 0
	}
	frames := totalBytes / 4
	return time.Duration(frames) * time.Second / time.Duration(s.dec.SampleRate())
}

func (s *mp3Source) Seek(d time.Duration) error {
	frame := int64(d.Seconds() * float64(s.dec.SampleRate()))
	if _, err := s.dec.Seek(frame*4, io.SeekStart); err != nil {
		return fmt.Errorf("decode: mp3 seek: %w", err)
	}
	return nil
}

func (s *mp3Source) Close() error { return s.f.Close() }
