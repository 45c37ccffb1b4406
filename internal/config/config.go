package config

import (
	"errors"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// OpenAIEmbedderConfig holds configuration for the OpenAI-compatible embedder.
// The API key is taken from the environment, never from the file.
type OpenAIEmbedderConfig struct {
	BaseURL       string `yaml:"base_url"`
	APIKeyEnv     string `yaml:"api_key_env"`
	Model         string `yaml:"model"`
	BatchSize     int    `yaml:"batch_size"`
	MaxAttempts   int    `yaml:"max_attempts"`
	BaseDelayMsec int    `yaml:"base_delay_msec"`
	MaxDelayMsec  int    `yaml:"max_delay_msec"`
}

// EmbedderConfig selects and configures the embedder implementation.
type EmbedderConfig struct {
	Type      string                `yaml:"type"`
	Dimension int                   `yaml:"dimension"`
	OpenAI    *OpenAIEmbedderConfig `yaml:"openai,omitempty"`
}

// ChunkerConfig configures how ingested text is split into chunks.
type ChunkerConfig struct {
	WordsPerChunk int `yaml:"words_per_chunk"`
	OverlapWords  int `yaml:"overlap_words"`
}

// RedisConfig contains connection details shared by the Redis-backed
// vector index and history store.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// VectorIndexConfig selects and configures the vector index backend.
type VectorIndexConfig struct {
	Type  string       `yaml:"type"`
	Redis *RedisConfig `yaml:"redis,omitempty"`
}

// HistoryConfig configures the bounded conversation log.
type HistoryConfig struct {
	Type   string `yaml:"type"`
	Cap    int    `yaml:"cap"`
	Recent int    `yaml:"recent"`
}

// AssemblerConfig configures context assembly for the downstream generator.
type AssemblerConfig struct {
	MaxChars int `yaml:"max_chars"`
	TopK     int `yaml:"top_k"`
}

// LoggingConfig selects the zap configuration profile.
type LoggingConfig struct {
	Mode string `yaml:"mode"`
}

// AppConfig is the root application configuration structure.
type AppConfig struct {
	Embedder    EmbedderConfig    `yaml:"embedder"`
	Chunker     ChunkerConfig     `yaml:"chunker"`
	VectorIndex VectorIndexConfig `yaml:"vector_index"`
	History     HistoryConfig     `yaml:"history"`
	Assembler   AssemblerConfig   `yaml:"assembler"`
	Logging     LoggingConfig     `yaml:"logging"`
}

// Load reads a config from a specified path. If the file does not exist,
// returns defaults.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return defaultConfig(), nil
		}
		return nil, err
	}
	var cfg AppConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	applyConfigDefaults(&cfg)
	return &cfg, nil
}

// LoadDefault tries ./config.yaml first, then ~/.config/lexrag/config.yaml.
// If neither exists, it writes defaults to ~/.config/lexrag/config.yaml and
// returns them.
func LoadDefault() (*AppConfig, string, error) {
	cwdPath := "config.yaml"
	if _, err := os.Stat(cwdPath); err == nil {
		cfg, err := Load(cwdPath)
		return cfg, cwdPath, err
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
	return filepath.Join(home, ".config", "lexrag", "config.yaml"), nil
}

func defaultConfig() *AppConfig {
	cfg := &AppConfig{
		Embedder:    EmbedderConfig{Type: "hashing", Dimension: 256},
		Chunker:     ChunkerConfig{WordsPerChunk: 500, OverlapWords: 0},
		VectorIndex: VectorIndexConfig{Type: "memory"},
		History:     HistoryConfig{Type: "memory", Cap: 20, Recent: 10},
		Assembler:   AssemblerConfig{MaxChars: 4000, TopK: 3},
		Logging:     LoggingConfig{Mode: "dev"},
	}
	return cfg
}

func applyConfigDefaults(cfg *AppConfig) {
	if cfg.Chunker.WordsPerChunk == 0 {
		cfg.Chunker.WordsPerChunk = 500
	}
	if cfg.Embedder.Type == "" {
		cfg.Embedder.Type = "hashing"
	}
	if cfg.Embedder.Type == "hashing" && cfg.Embedder.Dimension == 0 {
		cfg.Embedder.Dimension = 256
	}
	if cfg.Embedder.Type == "openai" {
		if cfg.Embedder.OpenAI == nil {
			cfg.Embedder.OpenAI = &OpenAIEmbedderConfig{}
		}
		if cfg.Embedder.OpenAI.APIKeyEnv == "" {
			cfg.Embedder.OpenAI.APIKeyEnv = "OPENAI_API_KEY"
		}
		if cfg.Embedder.OpenAI.Model == "" {
			cfg.Embedder.OpenAI.Model = "text-embedding-3-small"
		}
		if cfg.Embedder.OpenAI.BatchSize == 0 {
			cfg.Embedder.OpenAI.BatchSize = 32
		}
	}
	if cfg.VectorIndex.Type == "" {
		cfg.VectorIndex.Type = "memory"
	}
	if cfg.VectorIndex.Type == "redis" && cfg.VectorIndex.Redis == nil {
		cfg.VectorIndex.Redis = &RedisConfig{Addr: "localhost:6379"}
	}
	if cfg.History.Type == "" {
		cfg.History.Type = "memory"
	}
	if cfg.History.Cap == 0 {
		cfg.History.Cap = 20
	}
	if cfg.History.Recent == 0 {
		cfg.History.Recent = 10
	}
	if cfg.Assembler.MaxChars == 0 {
		cfg.Assembler.MaxChars = 4000
	}
	if cfg.Assembler.TopK == 0 {
		cfg.Assembler.TopK = 3
	}
	if cfg.Logging.Mode == "" {
		cfg.Logging.Mode = "dev"
	}
}
