package conversation

import (
	"context"
	"errors"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/sashabaranov/go-openai"
)

const llmSystemPrompt = "நீங்கள் ஒரு தமிழ் உதவியாளர். கொடுக்கப்பட்ட குறிப்புகளின் அடிப்படையில் மட்டும் சுருக்கமாக தமிழில் பதிலளிக்கவும்."

// LLMConfig configures an OpenAI-compatible chat endpoint. An empty key is
// allowed for local servers such as Ollama.
type LLMConfig struct {
	BaseURL   string
	APIKeyEnv string
	Model     string
	Timeout   time.Duration
}

// LLMResponder asks a chat model to answer from the retrieved context and
// falls back to another responder when the model is unavailable.
type LLMResponder struct {
	client   *openai.Client
	model    string
	fallback Responder
	log      zerolog.Logger
}

func NewLLMResponder(cfg LLMConfig, fallback Responder, log zerolog.Logger) *LLMResponder {
	oc := openai.DefaultConfig(os.Getenv(cfg.APIKeyEnv))
	if cfg.BaseURL != "" {
		oc.BaseURL = cfg.BaseURL
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 60 * time.Second
	}
	oc.HTTPClient = &http.Client{Timeout: timeout}
	return &LLMResponder{
		client:   openai.NewClientWithConfig(oc),
		model:    cfg.Model,
		fallback: fallback,
		log:      log.With().Str("component", "llm").Logger(),
	}
}

func (l *LLMResponder) Compose(ctx context.Context, query, retrieved string) (string, error) {
	answer, err := l.generate(ctx, query, retrieved)
	if err == nil {
		return answer, nil
	}
	l.log.Warn().Err(err).Str("model", l.model).Msg("chat completion failed, using template")
	return l.fallback.Compose(ctx, query, retrieved)
}

func (l *LLMResponder) generate(ctx context.Context, query, retrieved string) (string, error) {
	req := openai.ChatCompletionRequest{
		Model: l.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: llmSystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: "குறிப்புகள்:\n" + retrieved + "\n\nகேள்வி: " + query},
		},
	}
	rsp, err := l.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", err
	}
	if len(rsp.Choices) == 0 || strings.TrimSpace(rsp.Choices[0].Message.Content) == "" {
		return "", errors.New("no response from model")
	}
	return strings.TrimSpace(rsp.Choices[0].Message.Content), nil
}
