package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/jtao/recall/internal/embedding"
	"github.com/jtao/recall/internal/memerr"
	"github.com/jtao/recall/internal/model"
)

// PutEmbedding stores or replaces the embedding for a memory.
func (s *SQLiteStore) PutEmbedding(ctx context.Context, memoryID string, v embedding.Vector, modelVersion string) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO embeddings (memory_id, vector, dims, model_version, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		memoryID, embedding.EncodeVector(v), len(v), modelVersion,
		time.Now().UTC().Format(time.RFC3339))
	return err
}

// GetEmbedding returns the stored embedding for a memory.
func (s *SQLiteStore) GetEmbedding(ctx context.Context, memoryID string) (*model.Embedding, error) {
	var e model.Embedding
	var blob []byte
	var createdAt string

	err := s.db.QueryRowContext(ctx,
		`SELECT memory_id, vector, dims, model_version, created_at FROM embeddings WHERE memory_id = ?`,
		memoryID).Scan(&e.MemoryID, &blob, &e.Dims, &e.ModelVersion, &createdAt)
	if err == sql.ErrNoRows {
		return nil, memerr.NotFoundf("embedding for memory %s", memoryID)
	}
	if err != nil {
		return nil, err
	}

	e.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	e.Vector, err = embedding.DecodeVector(blob, e.Dims)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// AllEmbeddings loads every stored embedding. The retriever's brute-force
// scan reads this once per search; at the target corpus size (~1k rows)
// that is well inside the latency budget.
func (s *SQLiteStore) AllEmbeddings(ctx context.Context) ([]model.Embedding, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT memory_id, vector, dims, model_version, created_at FROM embeddings ORDER BY memory_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Embedding
	for rows.Next() {
		var e model.Embedding
		var blob []byte
		var createdAt string
		if err := rows.Scan(&e.MemoryID, &blob, &e.Dims, &e.ModelVersion, &createdAt); err != nil {
			return nil, err
		}
		e.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		e.Vector, err = embedding.DecodeVector(blob, e.Dims)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// MissingOrStale returns memories with no embedding or one produced by a
// different model version. The rebuild path regenerates exactly these.
func (s *SQLiteStore) MissingOrStale(ctx context.Context, modelVersion string) ([]model.Memory, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+memoryColumns+`
		FROM memories m
		WHERE NOT EXISTS (
			SELECT 1 FROM embeddings e
			WHERE e.memory_id = m.id AND e.model_version = ?
		)
		ORDER BY m.id`, modelVersion)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var memories []model.Memory
	for rows.Next() {
		m, err := scanMemory(rows)
		if err != nil {
			return nil, err
		}
		memories = append(memories, m)
	}
	return memories, rows.Err()
}
