package speech

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/rs/zerolog"
)

// DefaultWindow is the length of audio handed to the transcriber at once.
const DefaultWindow = 500 * time.Millisecond

// Stream transcribes a live PCM feed in fixed windows. It must not share a
// Transcriber with a running Listener.
type Stream struct {
	stt    Transcriber
	window time.Duration
	log    zerolog.Logger
}

func NewStream(stt Transcriber, window time.Duration, log zerolog.Logger) *Stream {
	if window <= 0 {
		window = DefaultWindow
	}
	return &Stream{stt: stt, window: window, log: log.With().Str("component", "stream").Logger()}
}

// WindowBytes is the size of one window of 16-bit mono PCM.
func (s *Stream) WindowBytes() int {
	return int(s.window.Seconds()*SampleRate) * 2
}

// Run reads 16-bit little-endian mono PCM from r and calls fn with the
// non-empty transcription of every window. It returns at end of input or
// when ctx is cancelled.
func (s *Stream) Run(ctx context.Context, r io.Reader, fn func(text string)) error {
	buf := make([]byte, s.WindowBytes())
	for {
		if err := ctx.Err(); err != nil {
			return nil
		}
		n, err := io.ReadFull(r, buf)
		if n > 0 {
			text, terr := s.stt.Transcribe(ctx, DecodePCM16(buf[:n]))
			if terr != nil {
				s.log.Warn().Err(terr).Msg("window transcription failed")
			} else if text != "" {
				fn(text)
			}
		}
		switch {
		case err == nil:
		case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
			return nil
		default:
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
	}
}
