// Package store provides the memory storage layer: durable rows, the
// FTS5 lexical index kept in sync with them, and embedding blobs, all in
// one SQLite file.
package store

import (
	"context"

	"github.com/jtao/recall/internal/embedding"
	"github.com/jtao/recall/internal/model"
)

// CreateParams holds parameters for creating a memory. When Vector is
// non-nil the embedding row commits in the same transaction as the memory
// row.
type CreateParams struct {
	Type       string
	Title      string
	Content    string
	Metadata   map[string]string
	Importance *float64 // nil means DefaultImportance; explicit 0 is honored
	SourceType string
	SourceID   string

	Vector       embedding.Vector
	ModelVersion string
}

// Candidate is one lexical match: a memory id and its raw lexical score
// (higher is better).
type Candidate struct {
	ID    string
	Score float64
}

// Store is the storage contract consumed by the retriever and engine.
type Store interface {
	Create(ctx context.Context, p CreateParams) (*model.Memory, error)
	Get(ctx context.Context, id string) (*model.Memory, error)
	Delete(ctx context.Context, id string) error
	UpdateAccess(ctx context.Context, id string) error
	UpdateImportance(ctx context.Context, id string, score float64) error
	LexicalCandidates(ctx context.Context, query string, limit int) ([]Candidate, error)

	PutEmbedding(ctx context.Context, memoryID string, v embedding.Vector, modelVersion string) error
	GetEmbedding(ctx context.Context, memoryID string) (*model.Embedding, error)
	AllEmbeddings(ctx context.Context) ([]model.Embedding, error)

	Stats(ctx context.Context) (*Stats, error)
	Close() error
}
