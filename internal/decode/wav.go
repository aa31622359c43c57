package decode

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"time"
)

// wavSource hand-parses the RIFF/WAVE header (no pack library in this
// module's dependency set parses WAV — see DESIGN.md), then reads 16-bit
// PCM samples from the data chunk.
type wavSource struct {
	f             *os.File
	sampleRate    int
	channels      int
	bitsPerSample int
	dataStart     int64
	dataSize      int64
	readOffset    int64
}

type wavHeader struct {
	RIFF          [4]byte
	FileSize      uint32
	WAVE          [4]byte
	FmtChunk      [4]byte
	FmtSize       uint32
	AudioFormat   uint16
	Channels      uint16
	SampleRate    uint32
	ByteRate      uint32
	BlockAlign    uint16
	BitsPerSample uint16
}

func newWAVSource(f *os.File) (Source, error) {
	var header wavHeader
	if err := binary.Read(f, binary.LittleEndian, &header); err != nil {
		f.Close()
		return nil, fmt.Errorf("decode: reading wav header: %w", err)
	}
	if string(header.RIFF[:]) != "RIFF" || string(header.WAVE[:]) != "WAVE" {
		f.Close()
		return nil, fmt.Errorf("decode: not a valid WAV file")
	}

	if header.FmtSize > 16 {
		if _, err := io.CopyN(io.Discard, f, int64(header.FmtSize-16)); err != nil {
			f.Close()
			return nil, fmt.Errorf("decode: skipping extra wav format bytes: %w", err)
		}
	}

	for {
		var chunk struct {
			ID   [4]byte
			Size uint32
		}
		if err := binary.Read(f, binary.LittleEndian, &chunk); err != nil {
			f.Close()
			return nil, fmt.Errorf("decode: reading wav chunk header: %w", err)
		}
		if string(chunk.ID[:]) == "data" {
			pos, err := f.Seek(0, io.SeekCurrent)
			if err != nil {
				f.Close()
				return nil, fmt.Errorf("decode: locating wav data chunk: %w", err)
			}
			return &wavSource{
				f:             f,
				sampleRate:    int(header.SampleRate),
				channels:      int(header.Channels),
				bitsPerSample: int(header.BitsPerSample),
				dataStart:     pos,
				dataSize:      int64(chunk.Size),
			}, nil
		}
		if _, err := io.CopyN(io.Discard, f, int64(chunk.Size)); err != nil {
			f.Close()
			return nil, fmt.Errorf("decode: skipping wav chunk: %w", err)
		}
	}
}

func (s *wavSource) NextFrame() ([]float32, bool) {
	bytesPerSample := s.bitsPerSample / 8
	frameSize := bytesPerSample * s.channels
	if s.readOffset+int64(frameSize) > s.dataSize {
		return nil, false
	}

	buf := make([]byte, frameSize)
	if _, err := io.ReadFull(s.f, buf); err != nil {
		return nil, false
	}
	s.readOffset += int64(frameSize)

	out := make([]float32, s.channels)
	for ch := 0; ch < s.channels; ch++ {
		v := int16(binary.LittleEndian.Uint16(buf[ch*2 : ch*2+2]))
		out[ch] = pcm16ToFloat32(v)
	}
	return out, true
}

func (s *wavSource) SampleRate() int { return s.sampleRate }
func (s *wavSource) Channels() int   { return s.channels }

func (s *wavSource) TotalDuration() time.Duration {
	bytesPerSample := s.bitsPerSample / 8
	if s.sampleRate == 0 || bytesPerSample == 0 || s.channels == 0 {
		return 0
	}
	frames := s.dataSize / int64(bytesPerSample*s.channels)
	return time.Duration(frames) * time.Second / time.Duration(s.sampleRate)
}

func (s *wavSource) Seek(d time.Duration) error {
	bytesPerSample := s.bitsPerSample / 8
	frame := int64(d.Seconds() * float64(s.sampleRate))
	offset := frame * int64(bytesPerSample*s.channels)
	if _, err := s.f.Seek(s.dataStart+offset, io.SeekStart); err != nil {
		return fmt.Errorf("decode: wav seek: %w", err)
	}
	s.readOffset = offset
	return nil
}

func (s *wavSource) Close() error { return s.f.Close() }
