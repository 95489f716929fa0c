package speech

import (
	"bytes"
	"context"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"

	"tamil-assistant/internal/domain"
)

// WhisperConfig configures an OpenAI-compatible transcription endpoint.
type WhisperConfig struct {
	BaseURL   string
	APIKeyEnv string
	Model     string
	Language  string
	Timeout   time.Duration
}

// Whisper transcribes audio through the /audio/transcriptions API.
type Whisper struct {
	client   *openai.Client
	model    string
	language string
}

var _ Transcriber = (*Whisper)(nil)

func NewWhisper(cfg WhisperConfig) *Whisper {
	oc := openai.DefaultConfig(os.Getenv(cfg.APIKeyEnv))
	if cfg.BaseURL != "" {
		oc.BaseURL = cfg.BaseURL
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 60 * time.Second
	}
	oc.HTTPClient = &http.Client{Timeout: timeout}
	if cfg.Model == "" {
		cfg.Model = openai.Whisper1
	}
	if cfg.Language == "" {
		cfg.Language = domain.LanguageTamil
	}
	return &Whisper{client: openai.NewClientWithConfig(oc), model: cfg.Model, language: cfg.Language}
}

// Transcribe returns the recognized text. Silence yields "".
func (w *Whisper) Transcribe(ctx context.Context, samples []float32) (string, error) {
	if len(samples) == 0 {
		return "", nil
	}
	resp, err := w.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    w.model,
		FilePath: "speech.wav",
		Reader:   bytes.NewReader(EncodeWAV(samples, SampleRate)),
		Language: w.language,
		Format:   openai.AudioResponseFormatJSON,
	})
	if err != nil {
		return "", domain.E(domain.KindExternal, "transcribe", err)
	}
	return strings.TrimSpace(resp.Text), nil
}
