// Package model defines the core memory data types.
package model

import "time"

// Memory represents a stored unit of knowledge.
type Memory struct {
	ID          string            `json:"id"`
	Type        string            `json:"memory_type"`
	Title       string            `json:"title,omitempty"`
	Content     string            `json:"content"`
	Metadata    map[string]string `json:"metadata,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
	Importance  float64           `json:"importance"`
	AccessCount int               `json:"access_count"`
	LastAccess  *time.Time        `json:"last_accessed,omitempty"`
	SourceType  string            `json:"source_type,omitempty"`
	SourceID    string            `json:"source_id,omitempty"`
}

// Embedding is the stored vector for one memory. Lifetime is tied to the
// memory row; deleting the memory cascades to its embedding.
type Embedding struct {
	MemoryID     string    `json:"memory_id"`
	Vector       []float32 `json:"-"`
	Dims         int       `json:"dims"`
	ModelVersion string    `json:"model_version"`
	CreatedAt    time.Time `json:"created_at"`
}

// SearchResult is a memory plus the component scores that ranked it.
// Ephemeral; never persisted.
type SearchResult struct {
	Memory     Memory  `json:"memory"`
	Lexical    float64 `json:"lexical_score"`
	Semantic   float64 `json:"semantic_score"`
	Recency    float64 `json:"recency_score"`
	Importance float64 `json:"importance_score"`
	Score      float64 `json:"score"`
}

// DefaultImportance is assigned to memories created without an explicit score.
const DefaultImportance = 0.5

// ValidTypes are the allowed memory types.
var ValidTypes = map[string]bool{
	"note":       true,
	"insight":    true,
	"fact":       true,
	"preference": true,
}

// NormalizeType maps an arbitrary type tag onto a valid one.
// Unknown tags become "note".
func NormalizeType(t string) string {
	if ValidTypes[t] {
		return t
	}
	return "note"
}
