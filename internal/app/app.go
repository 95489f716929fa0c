// Package app assembles the assistant from configuration and owns the
// lifetime of its components.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"tamil-assistant/internal/chunker"
	"tamil-assistant/internal/config"
	"tamil-assistant/internal/conversation"
	"tamil-assistant/internal/domain"
	"tamil-assistant/internal/embedding/openai"
	"tamil-assistant/internal/embedding/tfidf"
	"tamil-assistant/internal/extractor"
	"tamil-assistant/internal/knowledge"
	"tamil-assistant/internal/speech"
	"tamil-assistant/internal/summarizer"
	"tamil-assistant/internal/vectorstore"
	"tamil-assistant/internal/vectorstore/memory"
	"tamil-assistant/internal/vectorstore/qdrant"
	"tamil-assistant/internal/vectorstore/sqlite"
)

// Options override collaborators that touch the host system.
type Options struct {
	// Runner executes external programs (pdftotext, arecord, mpg123, espeak).
	Runner extractor.CommandRunner
	Now    func() time.Time
}

// App is the application context: configuration, logger and the wired
// components. It is used by one conversation at a time.
type App struct {
	Config       *config.AppConfig
	Log          zerolog.Logger
	Extractor    *extractor.Extractor
	Analyzer     *extractor.Analyzer
	Knowledge    *knowledge.Store
	Conversation *conversation.Orchestrator
	// Speaker is nil when voice output is disabled.
	Speaker speech.Speaker

	runner extractor.CommandRunner
}

// New wires the application. The knowledge base is not built until
// EnsureKnowledge is called.
func New(cfg *config.AppConfig, log zerolog.Logger, opts Options) (*App, error) {
	if opts.Runner == nil {
		opts.Runner = extractor.ExecRunner{}
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if err := cfg.Validate(); err != nil {
		log.Warn().Err(err).Msg("configuration problems, continuing with defaults where possible")
	}
	for _, dir := range []string{cfg.Paths.Documents, cfg.Paths.AudioCache, cfg.Paths.ChromaDB} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, domain.E(domain.KindIO, "setup paths", err)
		}
	}

	emb, err := newEmbedder(cfg)
	if err != nil {
		return nil, domain.E(domain.KindConfig, "embedder", err)
	}
	store, err := newStorage(cfg)
	if err != nil {
		return nil, domain.E(domain.KindConfig, "vector store", err)
	}

	ex := extractor.NewWithRunner(opts.Runner, log)
	ch := chunker.NewBoundaryChunker(cfg.Chunker.ChunkSize, cfg.Chunker.Overlap())
	sum := summarizer.NewFrequencySummarizer()

	a := &App{
		Config:    cfg,
		Log:       log,
		Extractor: ex,
		Analyzer:  extractor.NewAnalyzer(ex, ch, sum),
		runner:    opts.Runner,
	}
	a.Knowledge = knowledge.New(knowledge.Options{
		DocumentsDir: cfg.Paths.Documents,
		PersistDir:   cfg.Paths.ChromaDB,
		Extractor:    ex,
		Chunker:      ch,
		Embedder:     emb,
		Storage:      store,
		Summarizer:   sum,
		Logger:       log,
		Now:          opts.Now,
	})

	seed := cfg.Assistant.Seed
	if seed == 0 {
		seed = rand.Uint64()
	}
	rng := rand.New(rand.NewPCG(seed, seed))
	var responder conversation.Responder = conversation.NewTemplateResponder(rng)
	if cfg.Assistant.Responder == "llm" {
		responder = conversation.NewLLMResponder(conversation.LLMConfig{
			BaseURL:   cfg.Models.LLMBaseURL,
			APIKeyEnv: cfg.Models.LLMAPIKeyEnv,
			Model:     cfg.Models.LLMModel,
		}, responder, log)
	}
	a.Conversation = conversation.New(conversation.Options{
		Knowledge:     a.Knowledge,
		Responder:     responder,
		History:       conversation.NewHistory(cfg.Assistant.MaxHistory, cfg.Assistant.HistoryEnabled()),
		ExitWord:      cfg.Assistant.ExitWord,
		Version:       cfg.Version,
		DocumentCount: a.documentCount,
		Rand:          rng,
		Logger:        log,
		Now:           opts.Now,
	})

	if cfg.Assistant.VoiceEnabled() {
		a.Speaker = speech.NewCachedSpeaker(
			cfg.Paths.AudioCache,
			speech.NewGoogleTTS(speech.GoogleTTSConfig{Endpoint: cfg.Speech.TTSEndpoint, TLD: cfg.Speech.TTSTLD, Language: cfg.Language}),
			speech.NewCommandPlayer(opts.Runner, cfg.Speech.PlayCommand),
			speech.NewCommandAnnouncer(opts.Runner, cfg.Speech.AnnounceCommand),
			log,
		)
	}
	return a, nil
}

func newEmbedder(cfg *config.AppConfig) (domain.Embedder, error) {
	switch cfg.Embedder.Type {
	case "tfidf", "":
		return tfidf.NewEmbedder(), nil
	case "openai":
		oc := cfg.Embedder.OpenAI
		if oc == nil {
			return nil, errors.New("openai embedder config missing")
		}
		client, err := openai.NewClient(openai.Config{
			BaseURL:   oc.BaseURL,
			APIKeyEnv: oc.APIKeyEnv,
			Model:     cfg.Models.EmbeddingModel,
			Timeout:   time.Duration(oc.TimeoutSecs) * time.Second,
		})
		if err != nil {
			return nil, fmt.Errorf("openai embedder init failed: %w", err)
		}
		return client, nil
	default:
		return nil, fmt.Errorf("unknown embedder: %s", cfg.Embedder.Type)
	}
}

func newStorage(cfg *config.AppConfig) (vectorstore.Storage, error) {
	switch cfg.VectorStore.Type {
	case "sqlite", "":
		return sqlite.NewStorage(cfg.Paths.ChromaDB), nil
	case "memory":
		return memory.NewStorage(), nil
	case "qdrant":
		q := cfg.VectorStore.Qdrant
		if q == nil {
			return nil, errors.New("qdrant config missing")
		}
		return qdrant.NewStorage(qdrant.Config{
			URL:        q.URL,
			APIKey:     q.APIKey,
			Collection: q.Collection,
			Timeout:    time.Duration(q.TimeoutSecs) * time.Second,
		}), nil
	default:
		return nil, fmt.Errorf("unknown vector store: %s", cfg.VectorStore.Type)
	}
}

func (a *App) documentCount() int {
	docs, err := a.Extractor.List(a.Config.Paths.Documents)
	if err != nil {
		a.Log.Warn().Err(err).Msg("listing documents failed")
		return 0
	}
	return len(docs)
}

// EnsureKnowledge builds or loads the knowledge base once.
func (a *App) EnsureKnowledge(ctx context.Context) error {
	if a.Knowledge.Loaded() {
		return nil
	}
	return a.Knowledge.Build(ctx, false)
}

// Rebuild re-indexes the whole corpus.
func (a *App) Rebuild(ctx context.Context) error {
	return a.Knowledge.Build(ctx, true)
}

// AddDocument copies src into the documents directory and rebuilds the index.
func (a *App) AddDocument(ctx context.Context, src string) (string, error) {
	if !extractor.Supported(src) {
		return "", domain.E(domain.KindInput, "add document", fmt.Errorf("%w: %s", domain.ErrUnsupportedFormat, filepath.Ext(src)))
	}
	dest := filepath.Join(a.Config.Paths.Documents, filepath.Base(src))
	if err := copyFile(src, dest); err != nil {
		return "", domain.E(domain.KindIO, "add document", err)
	}
	a.Log.Info().Str("file", filepath.Base(dest)).Msg("document added")
	return dest, a.Rebuild(ctx)
}

// CreateDocument writes lines to a new .txt document and rebuilds the index.
func (a *App) CreateDocument(ctx context.Context, name string, lines []string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" || filepath.Base(name) != name {
		return "", domain.E(domain.KindInput, "create document", fmt.Errorf("invalid file name %q", name))
	}
	if !strings.HasSuffix(name, ".txt") {
		name += ".txt"
	}
	dest := filepath.Join(a.Config.Paths.Documents, name)
	if err := os.WriteFile(dest, []byte(strings.Join(lines, "\n")), 0o644); err != nil {
		return "", domain.E(domain.KindIO, "create document", err)
	}
	a.Log.Info().Str("file", name).Msg("document created")
	return dest, a.Rebuild(ctx)
}

func copyFile(src, dest string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	info, err := in.Stat()
	if err != nil {
		return err
	}
	out, err := os.OpenFile(dest, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	return os.Chtimes(dest, info.ModTime(), info.ModTime())
}

// Speak says text when voice output is enabled.
func (a *App) Speak(ctx context.Context, text string) (string, error) {
	if a.Speaker == nil {
		return "", nil
	}
	return a.Speaker.Speak(ctx, text)
}

func (a *App) transcriber() *speech.Whisper {
	return speech.NewWhisper(speech.WhisperConfig{
		BaseURL:   a.Config.Speech.BaseURL,
		APIKeyEnv: a.Config.Speech.APIKeyEnv,
		Model:     a.Config.Models.STTModel,
		Language:  a.Config.Language,
	})
}

// Listener builds the voice loop over the configured devices.
func (a *App) Listener(onTurn func(heard string, reply conversation.Reply)) *speech.Listener {
	cfg := speech.ListenerConfig{
		WakeWord:        a.Config.Assistant.WakeWord,
		ExitWord:        a.Config.Assistant.ExitWord,
		RequireWakeWord: a.Config.Assistant.RequireWakeWord,
		Listen:          time.Duration(a.Config.Assistant.ListenSeconds) * time.Second,
		OnTurn:          onTurn,
	}
	rec := speech.NewCommandRecorder(a.runner, a.Config.Speech.RecordCommand)
	return speech.NewListener(cfg, rec, a.transcriber(), a.Conversation, a.Speaker, a.Log)
}

// Stream transcribes live microphone input window by window until ctx ends.
func (a *App) Stream(ctx context.Context, fn func(text string)) error {
	rec := speech.NewCommandRecorder(a.runner, a.Config.Speech.RecordCommand)
	pcm, err := rec.Open(ctx)
	if err != nil {
		return err
	}
	defer pcm.Close()
	return speech.NewStream(a.transcriber(), speech.DefaultWindow, a.Log).Run(ctx, pcm, fn)
}

// Close releases the index.
func (a *App) Close() error {
	return a.Knowledge.Close()
}
