// Package config loads engine configuration from a TOML file with
// environment-variable overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/BurntSushi/toml"
)

// Config holds all engine settings.
type Config struct {
	Store     StoreConfig     `toml:"store"`
	Embedding EmbeddingConfig `toml:"embedding"`
	Search    SearchConfig    `toml:"search"`
	Extract   ExtractConfig   `toml:"extract"`
}

// StoreConfig configures the SQLite store.
type StoreConfig struct {
	Path string `toml:"path"`
}

// EmbeddingConfig configures the embedding provider.
type EmbeddingConfig struct {
	Provider  string `toml:"provider"` // "ollama" | "openai" | "local"
	Model     string `toml:"model"`
	BaseURL   string `toml:"base_url"`
	Dims      int    `toml:"dims"`
	CacheSize int    `toml:"cache_size"`
}

// SearchConfig holds hybrid-search tunables. The diversity threshold and
// oversample factor were inherited as constants; they are configuration
// here so they can be validated against the target corpus.
type SearchConfig struct {
	HalfLifeDays       float64 `toml:"half_life_days"`
	Oversample         int     `toml:"oversample"`
	DiversityThreshold float64 `toml:"diversity_threshold"`
	MinScore           float64 `toml:"min_score"`
	LexicalWeight      float64 `toml:"lexical_weight"`
	SemanticWeight     float64 `toml:"semantic_weight"`
	RecencyWeight      float64 `toml:"recency_weight"`
	ImportanceWeight   float64 `toml:"importance_weight"`
}

// ExtractConfig configures the consolidation extractor.
type ExtractConfig struct {
	Provider  string `toml:"provider"` // "anthropic" | "" (disabled)
	Model     string `toml:"model"`
	MaxTokens int    `toml:"max_tokens"`
}

// Default returns the built-in configuration.
func Default() Config {
	home, _ := os.UserHomeDir()
	return Config{
		Store: StoreConfig{
			Path: filepath.Join(home, ".recall", "memory.db"),
		},
		Embedding: EmbeddingConfig{
			Provider:  "local",
			CacheSize: 2048,
		},
		Search: SearchConfig{
			HalfLifeDays:       30,
			Oversample:         4,
			DiversityThreshold: 0.92,
			MinScore:           0.05,
			LexicalWeight:      0.30,
			SemanticWeight:     0.50,
			RecencyWeight:      0.10,
			ImportanceWeight:   0.10,
		},
		Extract: ExtractConfig{
			Provider:  "anthropic",
			Model:     "claude-3-5-haiku-latest",
			MaxTokens: 1024,
		},
	}
}

// Load reads the config file at path (if it exists), then applies
// environment overrides. A missing file is not an error; a malformed
// file is.
func Load(path string) (Config, error) {
	cfg := Default()

	if path == "" {
		home, _ := os.UserHomeDir()
		path = filepath.Join(home, ".recall", "config.toml")
	}

	if _, err := os.Stat(path); err == nil {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	applyEnv(&cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("RECALL_DB"); v != "" {
		cfg.Store.Path = v
	}
	if v := os.Getenv("RECALL_EMBED_PROVIDER"); v != "" {
		cfg.Embedding.Provider = v
	}
	if v := os.Getenv("RECALL_EMBED_MODEL"); v != "" {
		cfg.Embedding.Model = v
	}
	if v := os.Getenv("RECALL_EMBED_URL"); v != "" {
		cfg.Embedding.BaseURL = v
	}
	if v := os.Getenv("RECALL_EXTRACT_MODEL"); v != "" {
		cfg.Extract.Model = v
	}
	if v := os.Getenv("RECALL_HALF_LIFE_DAYS"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f > 0 {
			cfg.Search.HalfLifeDays = f
		}
	}
}
