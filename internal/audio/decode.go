package audio

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/mp3"
	"github.com/gopxl/beep/v2/wav"
)

// ErrUnsupported is returned for audio formats without a decoder.
var ErrUnsupported = errors.New("unsupported audio format")

// Decode decodes an in-memory MP3 or WAV payload.
func Decode(data []byte) (beep.StreamSeekCloser, beep.Format, error) {
	detected := mimetype.Detect(data)
	reader := bytes.NewReader(data)

	switch {
	case detected.Is("audio/mpeg"):
		return mp3.Decode(nopCloser{reader})
	case detected.Is("audio/wav"):
		return wav.Decode(reader)
	default:
		return nil, beep.Format{}, fmt.Errorf("%w: %s", ErrUnsupported, detected.String())
	}
}

// ProbeDuration returns the playing time of the audio file at path.
func ProbeDuration(path string) (time.Duration, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("failed to read audio file: %w", err)
	}

	streamer, format, err := Decode(data)
	if err != nil {
		return 0, err
	}
	defer streamer.Close()

	return format.SampleRate.D(streamer.Len()), nil
}

// nopCloser wraps a bytes.Reader to implement io.ReadCloser.
type nopCloser struct {
	*bytes.Reader
}

func (nopCloser) Close() error { return nil }
