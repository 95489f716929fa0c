// Package speech wires the voice side of the assistant: capturing audio,
// transcribing it, and speaking answers through a content-addressed cache.
package speech

import (
	"context"
	"time"
)

// SampleRate is the capture rate expected by the transcriber.
const SampleRate = 16000

// Transcriber converts mono PCM samples in [-1, 1] into text.
type Transcriber interface {
	Transcribe(ctx context.Context, samples []float32) (string, error)
}

// Recorder captures audio for a fixed duration.
type Recorder interface {
	Record(ctx context.Context, d time.Duration) ([]float32, error)
}

// Speaker speaks text and returns the path of the audio it played, or ""
// when nothing could be synthesized.
type Speaker interface {
	Speak(ctx context.Context, text string) (string, error)
}

// Synthesizer renders text to MP3 bytes.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string) ([]byte, error)
}

// Player plays an audio file to completion.
type Player interface {
	Play(ctx context.Context, path string) error
}

// Announcer speaks a short English message without network access.
type Announcer interface {
	Announce(ctx context.Context, text string) error
}

// CommandRunner executes external commands and returns their stdout.
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}
