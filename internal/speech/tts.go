package speech

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"tamil-assistant/internal/domain"
)

// maxTTSRunes is the longest piece the translate TTS endpoint accepts.
const maxTTSRunes = 100

// GoogleTTSConfig configures the Google Translate speech endpoint.
type GoogleTTSConfig struct {
	// Endpoint overrides the full URL; by default it is derived from TLD.
	Endpoint string
	TLD      string
	Language string
	Timeout  time.Duration
}

// GoogleTTS synthesizes MP3 speech from Google Translate. Long text is sent
// in pieces and the MP3 streams are concatenated.
type GoogleTTS struct {
	endpoint string
	language string
	client   *http.Client
}

var _ Synthesizer = (*GoogleTTS)(nil)

func NewGoogleTTS(cfg GoogleTTSConfig) *GoogleTTS {
	if cfg.TLD == "" {
		cfg.TLD = "co.in"
	}
	if cfg.Endpoint == "" {
		cfg.Endpoint = fmt.Sprintf("https://translate.google.%s/translate_tts", cfg.TLD)
	}
	if cfg.Language == "" {
		cfg.Language = domain.LanguageTamil
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 20 * time.Second
	}
	return &GoogleTTS{endpoint: cfg.Endpoint, language: cfg.Language, client: &http.Client{Timeout: cfg.Timeout}}
}

func (g *GoogleTTS) Synthesize(ctx context.Context, text string) ([]byte, error) {
	parts := splitForTTS(text, maxTTSRunes)
	var out bytes.Buffer
	for i, part := range parts {
		q := url.Values{}
		q.Set("ie", "UTF-8")
		q.Set("client", "tw-ob")
		q.Set("tl", g.language)
		q.Set("q", part)
		q.Set("total", fmt.Sprint(len(parts)))
		q.Set("idx", fmt.Sprint(i))
		q.Set("textlen", fmt.Sprint(utf8.RuneCountInString(part)))
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.endpoint+"?"+q.Encode(), nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("User-Agent", "Mozilla/5.0")
		resp, err := g.client.Do(req)
		if err != nil {
			return nil, domain.E(domain.KindExternal, "synthesize", err)
		}
		if resp.StatusCode >= 300 {
			resp.Body.Close()
			return nil, domain.E(domain.KindExternal, "synthesize", fmt.Errorf("tts endpoint returned %s", resp.Status))
		}
		_, err = io.Copy(&out, resp.Body)
		resp.Body.Close()
		if err != nil {
			return nil, domain.E(domain.KindExternal, "synthesize", err)
		}
	}
	if out.Len() == 0 {
		return nil, domain.E(domain.KindExternal, "synthesize", fmt.Errorf("empty audio"))
	}
	return out.Bytes(), nil
}

// splitForTTS breaks text into pieces of at most limit runes, preferring
// whitespace boundaries.
func splitForTTS(text string, limit int) []string {
	var parts []string
	var cur []string
	curLen := 0
	flush := func() {
		if len(cur) > 0 {
			parts = append(parts, strings.Join(cur, " "))
			cur, curLen = nil, 0
		}
	}
	for _, word := range strings.Fields(text) {
		runes := []rune(word)
		for len(runes) > limit {
			flush()
			parts = append(parts, string(runes[:limit]))
			runes = runes[limit:]
		}
		n := len(runes)
		if curLen > 0 && curLen+1+n > limit {
			flush()
		}
		if curLen > 0 {
			curLen++
		}
		cur = append(cur, string(runes))
		curLen += n
	}
	flush()
	return parts
}
