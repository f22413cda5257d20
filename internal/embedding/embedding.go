// Package embedding turns text into fixed-length vectors and scores
// vector similarity. Providers are pluggable; the Service wraps one with
// lazy initialization and an identity cache.
package embedding

import (
	"context"
	"math"

	"github.com/jtao/recall/internal/memerr"
)

// Vector is a float32 embedding vector.
type Vector = []float32

// Provider generates embedding vectors from text.
type Provider interface {
	Embed(ctx context.Context, text string) (Vector, error)
	// Dims is the fixed output dimension.
	Dims() int
	// Version identifies the embedding function; vectors produced under a
	// different version must not be compared.
	Version() string
	// Ping verifies the backend is reachable.
	Ping(ctx context.Context) error
}

// BatchProvider is implemented by providers that accept many texts per call.
type BatchProvider interface {
	Provider
	EmbedBatch(ctx context.Context, texts []string) ([]Vector, error)
}

// CosineSimilarity computes cosine similarity in [-1, 1].
// Vectors of different lengths are a caller error, not a zero score.
func CosineSimilarity(a, b Vector) (float64, error) {
	if len(a) != len(b) {
		return 0, memerr.ErrDimensionMismatch
	}
	if len(a) == 0 {
		return 0, nil
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0, nil
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB)), nil
}
