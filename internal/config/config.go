package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"tamil-assistant/internal/domain"
)

// Environment variables that override file settings.
const (
	EnvDocuments = "TAMIL_ASSISTANT_DOCUMENTS"
	EnvIndexDir  = "TAMIL_ASSISTANT_INDEX_DIR"
	EnvLogLevel  = "LOG_LEVEL"
)

// ModelsConfig names the speech, chat and embedding models.
type ModelsConfig struct {
	STTModel       string `yaml:"stt_model"`
	LLMModel       string `yaml:"llm_model"`
	EmbeddingModel string `yaml:"embedding_model"`
	LLMBaseURL     string `yaml:"llm_base_url"`
	LLMAPIKeyEnv   string `yaml:"llm_api_key_env"`
}

// PathsConfig locates the corpus, the speech cache and the index directory.
type PathsConfig struct {
	Documents  string `yaml:"documents"`
	AudioCache string `yaml:"audio_cache"`
	ChromaDB   string `yaml:"chroma_db"`
}

// AssistantConfig controls the conversation and the voice loop.
type AssistantConfig struct {
	WakeWord        string `yaml:"wake_word"`
	ExitWord        string `yaml:"exit_word"`
	EnableVoice     *bool  `yaml:"enable_voice"`
	EnableHistory   *bool  `yaml:"enable_history"`
	MaxHistory      int    `yaml:"max_history"`
	RequireWakeWord bool   `yaml:"require_wake_word"`
	ListenSeconds   int    `yaml:"listen_seconds"`
	Responder       string `yaml:"responder"`
	// Seed fixes the answer template choice; 0 picks a random seed.
	Seed uint64 `yaml:"seed"`
}

// VoiceEnabled reports whether spoken output is on.
func (a AssistantConfig) VoiceEnabled() bool { return a.EnableVoice == nil || *a.EnableVoice }

// HistoryEnabled reports whether conversation turns are recorded.
func (a AssistantConfig) HistoryEnabled() bool { return a.EnableHistory == nil || *a.EnableHistory }

// ChunkerConfig configures how documents are split into chunks.
type ChunkerConfig struct {
	ChunkSize    int `yaml:"chunk_size"`
	// ChunkOverlap is a pointer so an explicit 0 survives defaulting.
	ChunkOverlap *int `yaml:"chunk_overlap"`
}

// Overlap returns the configured overlap, 200 when unset.
func (c ChunkerConfig) Overlap() int {
	if c.ChunkOverlap == nil {
		return 200
	}
	return *c.ChunkOverlap
}

// OpenAIEmbedderConfig holds configuration for the OpenAI-compatible embedder.
type OpenAIEmbedderConfig struct {
	BaseURL     string `yaml:"base_url"`
	APIKeyEnv   string `yaml:"api_key_env"`
	TimeoutSecs int    `yaml:"timeout_secs"`
}

// EmbedderConfig selects and configures the text embedder implementation.
type EmbedderConfig struct {
	Type   string                `yaml:"type"`
	OpenAI *OpenAIEmbedderConfig `yaml:"openai,omitempty"`
}

// VectorStoreConfig selects and configures the vector store implementation.
type VectorStoreConfig struct {
	Type   string        `yaml:"type"`
	Qdrant *QdrantConfig `yaml:"qdrant,omitempty"`
}

// QdrantConfig contains connection details for a Qdrant vector store.
type QdrantConfig struct {
	URL         string `yaml:"url"`
	APIKey      string `yaml:"api_key"`
	Collection  string `yaml:"collection"`
	TimeoutSecs int    `yaml:"timeout_secs"`
}

// SpeechConfig configures transcription, synthesis and the audio commands.
type SpeechConfig struct {
	BaseURL         string `yaml:"base_url"`
	APIKeyEnv       string `yaml:"api_key_env"`
	RecordCommand   string `yaml:"record_command"`
	PlayCommand     string `yaml:"play_command"`
	AnnounceCommand string `yaml:"announce_command"`
	TTSEndpoint     string `yaml:"tts_endpoint"`
	TTSTLD          string `yaml:"tts_tld"`
}

// LoggingConfig configures the process logger.
type LoggingConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// AppConfig is the root application configuration structure.
type AppConfig struct {
	AppName     string            `yaml:"app_name"`
	Version     string            `yaml:"version"`
	Language    string            `yaml:"language"`
	Models      ModelsConfig      `yaml:"models"`
	Paths       PathsConfig       `yaml:"paths"`
	Assistant   AssistantConfig   `yaml:"assistant"`
	Chunker     ChunkerConfig     `yaml:"chunker"`
	Embedder    EmbedderConfig    `yaml:"embedder"`
	VectorStore VectorStoreConfig `yaml:"vector_store"`
	Speech      SpeechConfig      `yaml:"speech"`
	Logging     LoggingConfig     `yaml:"logging"`
}

// Load reads a config from a specified path. If the file does not exist, returns defaults.
// JSON files are accepted since YAML is a superset of JSON.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			cfg := defaultConfig()
			applyEnv(cfg)
			return cfg, nil
		}
		return nil, err
	}
	var cfg AppConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	applyConfigDefaults(&cfg)
	applyEnv(&cfg)
	return &cfg, nil
}

// LoadDefault tries ./config.yaml, ./config.json, then ~/.config/tamil-assistant/config.yaml.
// If none exists, it writes defaults to the user path and returns them.
func LoadDefault() (*AppConfig, string, error) {
	for _, p := range []string{"config.yaml", "config.json"} {
		if _, err := os.Stat(p); err == nil {
			cfg, err := Load(p)
			return cfg, p, err
		}
	}
	userPath, err := defaultUserConfigPath()
	if err != nil {
		return nil, "", err
	}
	if _, err := os.Stat(userPath); err == nil {
		cfg, err := Load(userPath)
		return cfg, userPath, err
	}
	cfg := defaultConfig()
	if err := Save(userPath, cfg); err != nil {
		return nil, "", err
	}
	applyEnv(cfg)
	return cfg, userPath, nil
}

// Save writes the config to the given path, creating directories as needed.
func Save(path string, cfg *AppConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func defaultUserConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "tamil-assistant", "config.yaml"), nil
}

func boolPtr(b bool) *bool { return &b }

func intPtr(n int) *int { return &n }

func defaultConfig() *AppConfig {
	cfg := &AppConfig{}
	applyConfigDefaults(cfg)
	return cfg
}

func applyConfigDefaults(cfg *AppConfig) {
	if cfg.AppName == "" {
		cfg.AppName = "தமிழ் குரு உதவியாளர்"
	}
	if cfg.Version == "" {
		cfg.Version = "1.0"
	}
	if cfg.Language == "" {
		cfg.Language = domain.LanguageTamil
	}

	if cfg.Models.STTModel == "" {
		cfg.Models.STTModel = "whisper-1"
	}
	if cfg.Models.LLMModel == "" {
		cfg.Models.LLMModel = "llama3.2:3b"
	}
	if cfg.Models.LLMBaseURL == "" {
		cfg.Models.LLMBaseURL = "http://localhost:11434/v1"
	}
	if cfg.Models.LLMAPIKeyEnv == "" {
		cfg.Models.LLMAPIKeyEnv = "OLLAMA_API_KEY"
	}
	if cfg.Models.EmbeddingModel == "" {
		cfg.Models.EmbeddingModel = "text-embedding-3-small"
	}

	if cfg.Paths.Documents == "" {
		cfg.Paths.Documents = "./data/documents"
	}
	if cfg.Paths.AudioCache == "" {
		cfg.Paths.AudioCache = "./data/audio_cache"
	}
	if cfg.Paths.ChromaDB == "" {
		cfg.Paths.ChromaDB = "./data/chroma_db"
	}

	a := &cfg.Assistant
	if a.WakeWord == "" {
		a.WakeWord = "உதவி"
	}
	if a.ExitWord == "" {
		a.ExitWord = "நிறுத்து"
	}
	if a.EnableVoice == nil {
		a.EnableVoice = boolPtr(true)
	}
	if a.EnableHistory == nil {
		a.EnableHistory = boolPtr(true)
	}
	if a.MaxHistory <= 0 {
		a.MaxHistory = 10
	}
	if a.ListenSeconds <= 0 {
		a.ListenSeconds = 5
	}
	if a.Responder == "" {
		a.Responder = "template"
	}

	if cfg.Chunker.ChunkSize <= 0 {
		cfg.Chunker.ChunkSize = 1000
	}
	if cfg.Chunker.ChunkOverlap == nil {
		cfg.Chunker.ChunkOverlap = intPtr(200)
	}

	if cfg.Embedder.Type == "" {
		cfg.Embedder.Type = "tfidf"
	}
	if cfg.Embedder.Type == "openai" {
		if cfg.Embedder.OpenAI == nil {
			cfg.Embedder.OpenAI = &OpenAIEmbedderConfig{}
		}
		if cfg.Embedder.OpenAI.BaseURL == "" {
			cfg.Embedder.OpenAI.BaseURL = "https://api.openai.com/v1"
		}
		if cfg.Embedder.OpenAI.APIKeyEnv == "" {
			cfg.Embedder.OpenAI.APIKeyEnv = "OPENAI_API_KEY"
		}
		if cfg.Embedder.OpenAI.TimeoutSecs == 0 {
			cfg.Embedder.OpenAI.TimeoutSecs = 30
		}
	}

	if cfg.VectorStore.Type == "" {
		cfg.VectorStore.Type = "sqlite"
	}
	if cfg.VectorStore.Type == "qdrant" {
		if cfg.VectorStore.Qdrant == nil {
			cfg.VectorStore.Qdrant = &QdrantConfig{}
		}
		if cfg.VectorStore.Qdrant.URL == "" {
			cfg.VectorStore.Qdrant.URL = "http://localhost:6333"
		}
		if cfg.VectorStore.Qdrant.Collection == "" {
			cfg.VectorStore.Qdrant.Collection = "tamil_documents"
		}
		if cfg.VectorStore.Qdrant.TimeoutSecs == 0 {
			cfg.VectorStore.Qdrant.TimeoutSecs = 15
		}
	}

	if cfg.Speech.APIKeyEnv == "" {
		cfg.Speech.APIKeyEnv = "OPENAI_API_KEY"
	}
	if cfg.Speech.RecordCommand == "" {
		cfg.Speech.RecordCommand = "arecord"
	}
	if cfg.Speech.PlayCommand == "" {
		cfg.Speech.PlayCommand = "mpg123"
	}
	if cfg.Speech.AnnounceCommand == "" {
		cfg.Speech.AnnounceCommand = "espeak"
	}
	if cfg.Speech.TTSTLD == "" {
		cfg.Speech.TTSTLD = "co.in"
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.File == "" {
		cfg.Logging.File = "tamil_assistant.log"
	}
}

func applyEnv(cfg *AppConfig) {
	if v := os.Getenv(EnvDocuments); v != "" {
		cfg.Paths.Documents = v
	}
	if v := os.Getenv(EnvIndexDir); v != "" {
		cfg.Paths.ChromaDB = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		cfg.Logging.Level = strings.ToLower(v)
	}
}

// Validate reports settings that cannot work. Callers treat the result as a
// warning; defaults already cover missing keys.
func (c *AppConfig) Validate() error {
	var errs []error
	if ov := c.Chunker.Overlap(); ov < 0 || ov >= c.Chunker.ChunkSize {
		errs = append(errs, fmt.Errorf("chunk_overlap %d must be in [0, chunk_size %d)", ov, c.Chunker.ChunkSize))
	}
	switch c.Embedder.Type {
	case "tfidf", "openai":
	default:
		errs = append(errs, fmt.Errorf("unknown embedder: %s", c.Embedder.Type))
	}
	switch c.VectorStore.Type {
	case "sqlite", "memory", "qdrant":
	default:
		errs = append(errs, fmt.Errorf("unknown vector store: %s", c.VectorStore.Type))
	}
	switch c.Assistant.Responder {
	case "template", "llm":
	default:
		errs = append(errs, fmt.Errorf("unknown responder: %s", c.Assistant.Responder))
	}
	if c.Language != domain.LanguageTamil {
		errs = append(errs, fmt.Errorf("unsupported language: %s", c.Language))
	}
	return domain.E(domain.KindConfig, "validate config", errors.Join(errs...))
}
