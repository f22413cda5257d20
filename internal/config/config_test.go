package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Embedding.Provider != "local" {
		t.Errorf("default provider = %q", cfg.Embedding.Provider)
	}
	sum := cfg.Search.LexicalWeight + cfg.Search.SemanticWeight +
		cfg.Search.RecencyWeight + cfg.Search.ImportanceWeight
	if sum != 1.0 {
		t.Errorf("default weights sum to %f", sum)
	}
	if cfg.Search.HalfLifeDays != 30 {
		t.Errorf("default half life = %f", cfg.Search.HalfLifeDays)
	}
	if cfg.Store.Path == "" {
		t.Error("expected default db path")
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
[store]
path = "/tmp/custom.db"

[embedding]
provider = "ollama"
model = "all-minilm"

[search]
half_life_days = 7.0
min_score = 0.2
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Store.Path != "/tmp/custom.db" {
		t.Errorf("path = %q", cfg.Store.Path)
	}
	if cfg.Embedding.Provider != "ollama" || cfg.Embedding.Model != "all-minilm" {
		t.Errorf("embedding = %+v", cfg.Embedding)
	}
	if cfg.Search.HalfLifeDays != 7 {
		t.Errorf("half life = %f", cfg.Search.HalfLifeDays)
	}
	if cfg.Search.MinScore != 0.2 {
		t.Errorf("min score = %f", cfg.Search.MinScore)
	}
	// Unset sections keep their defaults
	if cfg.Search.SemanticWeight != 0.50 {
		t.Errorf("semantic weight = %f", cfg.Search.SemanticWeight)
	}
}

func TestLoadMissingFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	if err != nil {
		t.Fatalf("missing file should not error: %v", err)
	}
	if cfg.Embedding.Provider != "local" {
		t.Errorf("expected defaults, got provider %q", cfg.Embedding.Provider)
	}
}

func TestLoadMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	os.WriteFile(path, []byte("[store\npath="), 0o644)

	if _, err := Load(path); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("RECALL_DB", "/tmp/env.db")
	t.Setenv("RECALL_EMBED_PROVIDER", "openai")
	t.Setenv("RECALL_HALF_LIFE_DAYS", "14")

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Store.Path != "/tmp/env.db" {
		t.Errorf("path = %q", cfg.Store.Path)
	}
	if cfg.Embedding.Provider != "openai" {
		t.Errorf("provider = %q", cfg.Embedding.Provider)
	}
	if cfg.Search.HalfLifeDays != 14 {
		t.Errorf("half life = %f", cfg.Search.HalfLifeDays)
	}

	// Garbage numeric values are ignored, not fatal
	t.Setenv("RECALL_HALF_LIFE_DAYS", "soon")
	cfg, _ = Load(filepath.Join(t.TempDir(), "absent.toml"))
	if cfg.Search.HalfLifeDays != 30 {
		t.Errorf("bad env value should keep default, got %f", cfg.Search.HalfLifeDays)
	}
}
