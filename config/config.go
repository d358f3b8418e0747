package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the support bot.
type Config struct {
	Data      DataConfig      `yaml:"data"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Retrieve  RetrieveConfig  `yaml:"retrieve"`
	Chat      ChatConfig      `yaml:"chat"`
	Mirror    MirrorConfig    `yaml:"mirror"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// DataConfig holds the locations of raw, processed and embedded data.
type DataConfig struct {
	Dir           string   `yaml:"dir"`
	RawFile       string   `yaml:"raw_file"`       // scraped-data JSON
	RawDir        string   `yaml:"raw_dir"`        // optional directory of .md/.txt/.json sources
	Includes      []string `yaml:"includes"`
	Excludes      []string `yaml:"excludes"`
	ProcessedFile string   `yaml:"processed_file"`
	SnapshotFile  string   `yaml:"snapshot_file"`
	ChunkSize     int      `yaml:"chunk_size"`
	ChunkOverlap  int      `yaml:"chunk_overlap"`
}

// EmbeddingConfig holds embedding provider configuration.
type EmbeddingConfig struct {
	Provider   string        `yaml:"provider"` // "openai", "ollama", "mock"
	Model      string        `yaml:"model"`
	BaseURL    string        `yaml:"base_url"`
	APIKeyEnv  string        `yaml:"api_key_env"`
	Dimension  int           `yaml:"dimension"`
	BatchSize  int           `yaml:"batch_size"`
	Timeout    time.Duration `yaml:"timeout"`
	MaxRetries int           `yaml:"max_retries"`
}

// RetrieveConfig holds retrieval configuration.
type RetrieveConfig struct {
	TopK      int           `yaml:"top_k"`
	CacheSize int           `yaml:"cache_size"` // 0 disables the query cache
	CacheTTL  time.Duration `yaml:"cache_ttl"`
}

// ChatConfig holds completion provider configuration.
type ChatConfig struct {
	Provider      string        `yaml:"provider"` // "openai", "anthropic", "none"
	Model         string        `yaml:"model"`
	BaseURL       string        `yaml:"base_url"`
	APIKeyEnv     string        `yaml:"api_key_env"`
	Temperature   float64       `yaml:"temperature"`
	MaxTokens     int           `yaml:"max_tokens"`
	Timeout       time.Duration `yaml:"timeout"`
	HistoryBudget int           `yaml:"history_budget"` // tokens of conversation history kept
	ContextBudget int           `yaml:"context_budget"` // tokens of retrieved context sent
	Company       string        `yaml:"company"`
}

// MirrorConfig holds the optional Qdrant export target.
type MirrorConfig struct {
	Host       string `yaml:"host"`
	Port       int    `yaml:"port"`
	APIKeyEnv  string `yaml:"api_key_env"`
	Collection string `yaml:"collection"`
	UseTLS     bool   `yaml:"use_tls"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // "text" or "json"
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Data: DataConfig{
			Dir:           "data",
			RawFile:       filepath.Join("data", "scraped_data.json"),
			Includes:      []string{"**/*.json", "**/*.md", "**/*.txt"},
			Excludes:      []string{"**/.git/**", "**/node_modules/**"},
			ProcessedFile: filepath.Join("data", "processed_data.json"),
			SnapshotFile:  filepath.Join("data", "vector_store.db"),
			ChunkSize:     1000,
			ChunkOverlap:  200,
		},
		Embedding: EmbeddingConfig{
			Provider:   "openai",
			Model:      "text-embedding-3-small",
			APIKeyEnv:  "OPENAI_API_KEY",
			Dimension:  1536,
			BatchSize:  20,
			Timeout:    60 * time.Second,
			MaxRetries: 3,
		},
		Retrieve: RetrieveConfig{
			TopK:      3,
			CacheSize: 64,
			CacheTTL:  5 * time.Minute,
		},
		Chat: ChatConfig{
			Provider:      "openai",
			Model:         "gpt-3.5-turbo",
			APIKeyEnv:     "OPENAI_API_KEY",
			Temperature:   0.2,
			MaxTokens:     300,
			Timeout:       60 * time.Second,
			HistoryBudget: 4000,
			ContextBudget: 2000,
			Company:       "Able",
		},
		Mirror: MirrorConfig{
			Host:       "localhost",
			Port:       6334,
			APIKeyEnv:  "QDRANT_API_KEY",
			Collection: "supportbot",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load loads configuration from a YAML file.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil // Return defaults if no config file
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadFromDir loads configuration from a directory (looks for supportbot.yaml).
func LoadFromDir(dir string) (*Config, error) {
	path := filepath.Join(dir, "supportbot.yaml")
	if _, err := os.Stat(path); err == nil {
		return Load(path)
	}

	path = filepath.Join(dir, ".supportbot", "config.yaml")
	if _, err := os.Stat(path); err == nil {
		return Load(path)
	}

	return DefaultConfig(), nil
}

// LoadEnv loads a .env file from dir into the process environment.
// A missing file is not an error.
func LoadEnv(dir string) error {
	path := filepath.Join(dir, ".env")
	if _, err := os.Stat(path); err != nil {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// Credential resolves an API key from the named environment variable.
// Placeholder values shipped in example .env files count as unset.
func Credential(envName string) string {
	if envName == "" {
		return ""
	}
	v := strings.TrimSpace(os.Getenv(envName))
	if v == "your_api_key_here" {
		return ""
	}
	return v
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Resolve makes relative data paths absolute against dir.
func (c *Config) Resolve(dir string) {
	abs := func(p string) string {
		if p == "" || filepath.IsAbs(p) {
			return p
		}
		return filepath.Join(dir, p)
	}
	c.Data.Dir = abs(c.Data.Dir)
	c.Data.RawFile = abs(c.Data.RawFile)
	c.Data.RawDir = abs(c.Data.RawDir)
	c.Data.ProcessedFile = abs(c.Data.ProcessedFile)
	c.Data.SnapshotFile = abs(c.Data.SnapshotFile)
}

// Validate returns warnings for suspicious values. It never fails.
func (c *Config) Validate() []string {
	var warnings []string

	if c.Embedding.BatchSize <= 0 {
		warnings = append(warnings, fmt.Sprintf("embedding batch_size %d is not positive, using 20", c.Embedding.BatchSize))
	}
	if c.Embedding.Dimension <= 0 && c.Embedding.Provider != "openai" {
		warnings = append(warnings, fmt.Sprintf("embedding dimension %d is not positive", c.Embedding.Dimension))
	}
	if c.Retrieve.TopK <= 0 {
		warnings = append(warnings, fmt.Sprintf("retrieve top_k %d is not positive, using 3", c.Retrieve.TopK))
	}
	if c.Chat.Temperature < 0 || c.Chat.Temperature > 2.0 {
		warnings = append(warnings, fmt.Sprintf("chat temperature %.2f is outside recommended range [0.0, 2.0]", c.Chat.Temperature))
	}
	if c.Data.ChunkOverlap >= c.Data.ChunkSize {
		warnings = append(warnings, fmt.Sprintf("chunk_overlap %d must be smaller than chunk_size %d", c.Data.ChunkOverlap, c.Data.ChunkSize))
	}

	return warnings
}

// EnsureDataDir ensures the data directory exists.
func EnsureDataDir(cfg *Config) error {
	return os.MkdirAll(cfg.Data.Dir, 0755)
}
