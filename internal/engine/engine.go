// Package engine wires the store, embedder, retriever, and consolidator
// into the surface exposed to the delegation layer and admin tooling.
package engine

import (
	"context"
	"log"
	"time"

	"github.com/jtao/recall/internal/config"
	"github.com/jtao/recall/internal/consolidate"
	"github.com/jtao/recall/internal/embedding"
	"github.com/jtao/recall/internal/model"
	"github.com/jtao/recall/internal/retriever"
	"github.com/jtao/recall/internal/store"
)

// Engine is the assembled memory engine.
type Engine struct {
	store        *store.SQLiteStore
	embedder     *embedding.Service
	retriever    *retriever.Retriever
	consolidator *consolidate.Consolidator
	weights      retriever.Weights
}

// New builds an Engine from configuration.
func New(cfg config.Config) (*Engine, error) {
	st, err := store.NewSQLiteStore(cfg.Store.Path)
	if err != nil {
		return nil, err
	}

	provider, err := embedding.NewProvider(cfg.Embedding)
	if err != nil {
		st.Close()
		return nil, err
	}
	svc := embedding.NewService(provider, cfg.Embedding.CacheSize)

	ret := retriever.New(st, svc, retriever.Options{
		HalfLife:           time.Duration(cfg.Search.HalfLifeDays * 24 * float64(time.Hour)),
		Oversample:         cfg.Search.Oversample,
		DiversityThreshold: cfg.Search.DiversityThreshold,
		MinScore:           cfg.Search.MinScore,
	})

	var ex consolidate.Extractor
	if cfg.Extract.Provider == "anthropic" {
		ex = consolidate.NewAnthropicExtractor(cfg.Extract.Model, cfg.Extract.MaxTokens)
	}

	return &Engine{
		store:        st,
		embedder:     svc,
		retriever:    ret,
		consolidator: consolidate.New(st, svc, ex),
		weights: retriever.Weights{
			Lexical:    cfg.Search.LexicalWeight,
			Semantic:   cfg.Search.SemanticWeight,
			Recency:    cfg.Search.RecencyWeight,
			Importance: cfg.Search.ImportanceWeight,
		},
	}, nil
}

// Save persists a memory. When the embedding backend is available the
// row, its lexical index entry, and its vector commit in one transaction;
// when it is not, the row and index commit alone and the vector is left
// for RebuildEmbeddings.
func (e *Engine) Save(ctx context.Context, p store.CreateParams) (*model.Memory, error) {
	if p.Vector == nil && e.embedder.Available(ctx) {
		v, err := e.embedder.Embed(ctx, retriever.EmbedText(p.Title, p.Content))
		if err != nil {
			log.Printf("[ENGINE] embed on save failed, vector deferred to rebuild: %v", err)
		} else {
			p.Vector = v
			p.ModelVersion = e.embedder.Version()
		}
	}
	return e.store.Create(ctx, p)
}

// Search runs hybrid search with the configured default weights. The
// returned results carry memory ids so the caller can display provenance.
func (e *Engine) Search(ctx context.Context, query string, topK int) ([]model.SearchResult, error) {
	return e.retriever.HybridSearch(ctx, query, topK, e.weights)
}

// SearchWeighted runs hybrid search with caller-supplied weights.
func (e *Engine) SearchWeighted(ctx context.Context, query string, topK int, w retriever.Weights) ([]model.SearchResult, error) {
	return e.retriever.HybridSearch(ctx, query, topK, w)
}

// Get returns one memory by id.
func (e *Engine) Get(ctx context.Context, id string) (*model.Memory, error) {
	return e.store.Get(ctx, id)
}

// Delete removes a memory, its embedding, and its index entry.
func (e *Engine) Delete(ctx context.Context, id string) error {
	return e.store.Delete(ctx, id)
}

// UpdateImportance sets a memory's importance score.
func (e *Engine) UpdateImportance(ctx context.Context, id string, score float64) error {
	return e.store.UpdateImportance(ctx, id, score)
}

// List returns recent memories, optionally filtered by source type.
func (e *Engine) List(ctx context.Context, sourceType string, limit int) ([]model.Memory, error) {
	return e.store.ListRecent(ctx, sourceType, limit)
}

// Stats returns store statistics.
func (e *Engine) Stats(ctx context.Context) (*store.Stats, error) {
	return e.store.Stats(ctx)
}

// Migrate imports a legacy flat note file.
func (e *Engine) Migrate(ctx context.Context, path string) (int, error) {
	return e.store.MigrateFlatNotes(ctx, path)
}

// RebuildEmbeddings regenerates missing or stale vectors.
func (e *Engine) RebuildEmbeddings(ctx context.Context) (int, error) {
	return e.retriever.RebuildEmbeddings(ctx)
}

// ConsolidateSession extracts insights from one transcript file.
func (e *Engine) ConsolidateSession(ctx context.Context, path string) ([]string, error) {
	return e.consolidator.ConsolidateSession(ctx, path)
}

// ConsolidateAll extracts insights from every transcript in a directory.
func (e *Engine) ConsolidateAll(ctx context.Context, dir string) (*consolidate.Summary, error) {
	return e.consolidator.ConsolidateAll(ctx, dir)
}

// Export returns every stored memory.
func (e *Engine) Export(ctx context.Context) ([]model.Memory, error) {
	return e.store.ExportAll(ctx)
}

// Import stores memories from an export, skipping duplicates.
func (e *Engine) Import(ctx context.Context, memories []model.Memory) (int, error) {
	return e.store.Import(ctx, memories)
}

// Close closes the underlying store.
func (e *Engine) Close() error {
	return e.store.Close()
}
