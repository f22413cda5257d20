package engine

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/jtao/recall/internal/config"
	"github.com/jtao/recall/internal/store"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	cfg := config.Default()
	cfg.Store.Path = filepath.Join(t.TempDir(), "test.db")
	cfg.Embedding.Provider = "local"
	cfg.Extract.Provider = "" // no extraction capability in tests

	e, err := New(cfg)
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	t.Cleanup(func() { e.Close() })
	return e
}

func TestEngine_SaveAndSearch(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t)

	mem, err := e.Save(ctx, store.CreateParams{
		Title: "Thai House", Content: "great pad see ew on 5th", SourceType: "manual",
	})
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	e.Save(ctx, store.CreateParams{Content: "water the plants on sunday"})

	// Save embedded the memory in the same transaction
	stats, _ := e.Stats(ctx)
	if stats.Embeddings != 2 {
		t.Errorf("expected 2 embeddings after save, got %d", stats.Embeddings)
	}

	results, err := e.Search(ctx, "pad see ew", 5)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(results) == 0 || results[0].Memory.ID != mem.ID {
		t.Fatalf("expected saved memory first, got %v", results)
	}

	got, err := e.Get(ctx, mem.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.AccessCount != 1 {
		t.Errorf("expected access accounted after search, got %d", got.AccessCount)
	}
}

func TestEngine_DeleteAndRebuild(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t)

	mem, _ := e.Save(ctx, store.CreateParams{Content: "temporary note"})
	if err := e.Delete(ctx, mem.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := e.Get(ctx, mem.ID); err == nil {
		t.Fatal("expected not found after delete")
	}

	// Nothing left to rebuild
	n, err := e.RebuildEmbeddings(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Errorf("expected 0 rebuilt, got %d", n)
	}
}

func TestEngine_ExportImport(t *testing.T) {
	ctx := context.Background()
	src := newTestEngine(t)
	dst := newTestEngine(t)

	src.Save(ctx, store.CreateParams{Title: "a", Content: "alpha"})
	src.Save(ctx, store.CreateParams{Title: "b", Content: "beta"})

	dump, err := src.Export(ctx)
	if err != nil {
		t.Fatal(err)
	}
	n, err := dst.Import(ctx, dump)
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Fatalf("expected 2 imported, got %d", n)
	}
}
