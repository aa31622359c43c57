// Package decode turns an on-disk encoded audio file into the duck-typed
// "Source" capability set the Sink and Stretch/Pitch Source need:
// next-sample, sample-rate, channels, total-duration, seekable.
//
// Built around the small Source interface below, which produces
// normalised float32 sample frames instead of raw 16-bit PCM bytes, since
// that is the shape the Stretch Source's block algorithm operates on.
package decode

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Source is the common interface every format decoder in this package
// implements. NextFrame returns the next interleaved sample frame (one
// float32 per channel, range [-1, 1]); ok is false once the stream is
// exhausted.
type Source interface {
	NextFrame() (frame []float32, ok bool)
	SampleRate() int
	Channels() int
	TotalDuration() time.Duration
	// Seek repositions playback to d from the start. Returns
	// ErrSeekUnsupported if the underlying format/transport cannot seek.
	Seek(d time.Duration) error
	Close() error
}

// ErrSeekUnsupported is returned by Seek when the underlying source cannot
// reposition (e.g. a non-seekable streaming reader).
var ErrSeekUnsupported = fmt.Errorf("decode: seek not supported by this source")

// Open detects the format of path (by extension, falling back to content
// sniffing) and returns a ready-to-read Source.
func Open(path string) (Source, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("decode: opening %s: %w", path, err)
	}

	format := detectFormat(path, f)
	switch format {
	case "mp3":
		return newMP3Source(f)
	case "flac":
		return newFLACSource(f)
	case "ogg", "oga":
		return newOggSource(f)
	case "wav", "wave":
		return newWAVSource(f)
	default:
		f.Close()
		return nil, fmt.Errorf("decode: unsupported audio format %q for %s", format, path)
	}
}

func detectFormat(path string, r io.ReadSeeker) string {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
	switch ext {
	case "mp3", "flac", "ogg", "oga", "wav", "wave":
		return ext
	}

	header := make([]byte, 12)
	if _, err := io.ReadFull(r, header); err == nil {
		switch {
		case string(header[:4]) == "fLaC":
			r.Seek(0, io.SeekStart)
			return "flac"
		case string(header[:4]) == "RIFF" && string(header[8:12]) == "WAVE":
			r.Seek(0, io.SeekStart)
			return "wav"
		case string(header[:4]) == "OggS":
			r.Seek(0, io.SeekStart)
			return "ogg"
		}
	}
	r.Seek(0, io.SeekStart)
	return "mp3"
}

func pcm16ToFloat32(s int16) float32 {
	return float32(s) / 32768.0
}
