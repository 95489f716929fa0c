package conversation

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLLMResponder_UsesModelAnswer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		var req struct {
			Model    string `json:"model"`
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "llama3.2:3b", req.Model)
		require.Len(t, req.Messages, 2)
		assert.Contains(t, req.Messages[1].Content, "சூழல்")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"1","object":"chat.completion","created":1,"model":"llama3.2:3b","choices":[{"index":0,"message":{"role":"assistant","content":" திருவிழா சனிக்கிழமை. "},"finish_reason":"stop"}]}`))
	}))
	defer srv.Close()

	l := NewLLMResponder(LLMConfig{BaseURL: srv.URL, Model: "llama3.2:3b"}, &recordingResponder{}, zerolog.Nop())
	out, err := l.Compose(context.Background(), question, "சூழல்")
	require.NoError(t, err)
	assert.Equal(t, "திருவிழா சனிக்கிழமை.", out)
}

func TestLLMResponder_FallsBackOnError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	fallback := &recordingResponder{}
	l := NewLLMResponder(LLMConfig{BaseURL: srv.URL, Model: "m"}, fallback, zerolog.Nop())
	out, err := l.Compose(context.Background(), question, "சூழல்")
	require.NoError(t, err)
	assert.Equal(t, "answer", out)
	assert.Equal(t, "சூழல்", fallback.retrieved)
}
