package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	defaultAddr           = ":8080"
	defaultMaxUploadBytes = 32 << 20
	defaultChunkSize      = 500
	defaultChunkOverlap   = 100
	defaultMinPassage     = 20
	defaultKPerDoc        = 5
	defaultMaxChunks      = 5
	defaultThreshold      = 0.35
	defaultVectorWeight   = 0.65
	defaultMinContext     = 50
	defaultMaxTokens      = 512
	defaultHashDimension  = 384
	defaultBatchSize      = 32
	defaultVectorDBPath   = "./chromemdb"
)

type ServerConfig struct {
	Addr           string        `yaml:"addr"`
	MaxUploadBytes int64         `yaml:"max_upload_bytes"`
	ReadTimeout    time.Duration `yaml:"read_timeout"`
	WriteTimeout   time.Duration `yaml:"write_timeout"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Pretty bool   `yaml:"pretty"`
}

// LLMConfig describes a model endpoint; it is used for both the embedding and the inference model
type LLMConfig struct {
	Provider  string   `yaml:"provider"`
	BaseURL   string   `yaml:"base_url"`
	Model     string   `yaml:"model"`
	Key       string   `yaml:"key"`
	Dimension int      `yaml:"dimension"`
	BatchSize int      `yaml:"batch_size"`
	MaxTokens int      `yaml:"max_tokens"`
	StopWords []string `yaml:"stop_words"`
	Serialize bool     `yaml:"serialize"`
}

type RAGConfig struct {
	ChunkSize          int     `yaml:"chunk_size"`
	ChunkOverlap       int     `yaml:"chunk_overlap"`
	MinPassageChars    int     `yaml:"min_passage_chars"`
	KPerDoc            int     `yaml:"k_per_doc"`
	MaxChunks          int     `yaml:"max_chunks"`
	Threshold          float64 `yaml:"threshold"`
	VectorWeight       float64 `yaml:"vector_weight"`
	MinContextChars    int     `yaml:"min_context_chars"`
	StrictMentionCheck bool    `yaml:"strict_mention_check"`
}

type VectorDBConfig struct {
	Path          string `yaml:"path"`
	Persist       bool   `yaml:"persist"`
	Compress      bool   `yaml:"compress"`
	EncryptionKey string `yaml:"encryption_key"`
}

type DatabaseConfig struct {
	DSN   string `yaml:"dsn"`
	Debug bool   `yaml:"debug"`
}

type Config struct {
	Server       ServerConfig   `yaml:"server"`
	Log          LogConfig      `yaml:"log"`
	EmbedLLM     LLMConfig      `yaml:"embed_llm"`
	InferenceLLM LLMConfig      `yaml:"inference_llm"`
	RAG          RAGConfig      `yaml:"rag"`
	VectorDB     VectorDBConfig `yaml:"vector_db"`
	Database     DatabaseConfig `yaml:"database"`
}

// LoadConfig reads the YAML file at path, falling back to defaults when it does not exist.
// Values from .env and the process environment override the file.
func LoadConfig(path string) (*Config, error) {
	_ = godotenv.Load()

	// seeded before decoding so keys absent from the file keep their defaults
	// while explicit zeros such as threshold: 0 survive
	cfg := Config{RAG: defaultRAG()}
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, err
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}

	applyEnv(&cfg)
	applyDefaults(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns the configuration used when no file is present
func Default() *Config {
	cfg := Config{RAG: defaultRAG()}
	applyDefaults(&cfg)
	return &cfg
}

func defaultRAG() RAGConfig {
	return RAGConfig{
		ChunkSize:       defaultChunkSize,
		ChunkOverlap:    defaultChunkOverlap,
		MinPassageChars: defaultMinPassage,
		KPerDoc:         defaultKPerDoc,
		MaxChunks:       defaultMaxChunks,
		Threshold:       defaultThreshold,
		VectorWeight:    defaultVectorWeight,
		MinContextChars: defaultMinContext,
	}
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("DOCQA_ADDR"); v != "" {
		cfg.Server.Addr = v
	}
	if v := os.Getenv("DOCQA_LLM_API_KEY"); v != "" {
		cfg.InferenceLLM.Key = v
	}
	if v := os.Getenv("DOCQA_EMBED_API_KEY"); v != "" {
		cfg.EmbedLLM.Key = v
	}
	if v := os.Getenv("DOCQA_DATABASE_DSN"); v != "" {
		cfg.Database.DSN = v
	}
	if v := os.Getenv("DOCQA_VECTOR_DB_KEY"); v != "" {
		cfg.VectorDB.EncryptionKey = v
	}
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = defaultAddr
	}
	if cfg.Server.MaxUploadBytes == 0 {
		cfg.Server.MaxUploadBytes = defaultMaxUploadBytes
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 30 * time.Second
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = 5 * time.Minute
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}

	if cfg.EmbedLLM.Provider == "" {
		cfg.EmbedLLM.Provider = "ollama"
	}
	if cfg.EmbedLLM.Provider == "hash" && cfg.EmbedLLM.Dimension == 0 {
		cfg.EmbedLLM.Dimension = defaultHashDimension
	}
	if cfg.EmbedLLM.BatchSize == 0 {
		cfg.EmbedLLM.BatchSize = defaultBatchSize
	}
	if cfg.EmbedLLM.Model == "" {
		switch cfg.EmbedLLM.Provider {
		case "ollama":
			cfg.EmbedLLM.Model = "all-minilm"
		case "openai":
			cfg.EmbedLLM.Model = "text-embedding-3-small"
		}
	}
	if cfg.EmbedLLM.BaseURL == "" {
		cfg.EmbedLLM.BaseURL = defaultBaseURL(cfg.EmbedLLM.Provider)
	}

	if cfg.InferenceLLM.Provider == "" {
		cfg.InferenceLLM.Provider = "ollama"
	}
	if cfg.InferenceLLM.Model == "" {
		switch cfg.InferenceLLM.Provider {
		case "ollama":
			cfg.InferenceLLM.Model = "qwen2.5:1.5b-instruct"
		case "openai":
			cfg.InferenceLLM.Model = "gpt-4o-mini"
		}
	}
	if cfg.InferenceLLM.BaseURL == "" {
		cfg.InferenceLLM.BaseURL = defaultBaseURL(cfg.InferenceLLM.Provider)
	}
	if cfg.InferenceLLM.MaxTokens == 0 {
		cfg.InferenceLLM.MaxTokens = defaultMaxTokens
	}
	if cfg.InferenceLLM.StopWords == nil {
		cfg.InferenceLLM.StopWords = []string{"<|im_end|>", "<|endoftext|>"}
	}

	if cfg.VectorDB.Path == "" {
		cfg.VectorDB.Path = defaultVectorDBPath
	}
}

func defaultBaseURL(provider string) string {
	switch provider {
	case "ollama":
		return "http://localhost:11434"
	case "openai":
		return "https://api.openai.com/v1"
	}
	return ""
}

// Validate rejects settings the pipeline cannot run with
func (c *Config) Validate() error {
	switch c.EmbedLLM.Provider {
	case "ollama", "openai", "hash":
	default:
		return fmt.Errorf("unknown embedding provider: %s", c.EmbedLLM.Provider)
	}
	switch c.InferenceLLM.Provider {
	case "ollama", "openai":
	default:
		return fmt.Errorf("unknown inference provider: %s", c.InferenceLLM.Provider)
	}
	if c.RAG.ChunkSize <= 0 {
		return fmt.Errorf("rag.chunk_size must be positive, got %d", c.RAG.ChunkSize)
	}
	if c.RAG.ChunkOverlap < 0 {
		return fmt.Errorf("rag.chunk_overlap must not be negative, got %d", c.RAG.ChunkOverlap)
	}
	if c.RAG.VectorWeight < 0 || c.RAG.VectorWeight > 1 {
		return fmt.Errorf("rag.vector_weight must be within [0, 1], got %v", c.RAG.VectorWeight)
	}
	if c.RAG.Threshold < 0 || c.RAG.Threshold > 1 {
		return fmt.Errorf("rag.threshold must be within [0, 1], got %v", c.RAG.Threshold)
	}
	if c.RAG.KPerDoc <= 0 || c.RAG.MaxChunks <= 0 {
		return errors.New("rag.k_per_doc and rag.max_chunks must be positive")
	}
	if c.VectorDB.Persist && c.VectorDB.Path == "" {
		return errors.New("vector_db.path is required when vector_db.persist is set")
	}
	return nil
}
