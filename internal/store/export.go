package store

import (
	"context"

	"github.com/jtao/recall/internal/model"
)

// ExportAll returns every memory, oldest first. Embeddings are not
// exported; they regenerate from content on the importing side.
func (s *SQLiteStore) ExportAll(ctx context.Context) ([]model.Memory, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+memoryColumns+` FROM memories ORDER BY created_at, id`)
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

// Import stores memories from an export. Duplicates (same title+content)
// are skipped, so importing twice is safe.
func (s *SQLiteStore) Import(ctx context.Context, memories []model.Memory) (int, error) {
	imported := 0
	for _, m := range memories {
		exists, err := s.existsByTitleContent(ctx, m.Title, m.Content)
		if err != nil {
			return imported, err
		}
		if exists {
			continue
		}

		imp := m.Importance
		if _, err := s.Create(ctx, CreateParams{
			Type:       m.Type,
			Title:      m.Title,
			Content:    m.Content,
			Metadata:   m.Metadata,
			Importance: &imp,
			SourceType: m.SourceType,
			SourceID:   m.SourceID,
		}); err != nil {
			return imported, err
		}
		imported++
	}
	return imported, nil
}
