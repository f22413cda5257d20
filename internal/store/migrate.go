package store

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/jtao/recall/internal/notes"
)

// MigrateFlatNotes imports a legacy flat note file, one memory per
// record. Re-running against already-migrated content is a no-op: records
// dedupe on exact title+content.
func (s *SQLiteStore) MigrateFlatNotes(ctx context.Context, path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("read notes file: %w", err)
	}

	imported := 0
	for _, rec := range notes.Parse(string(data)) {
		content := rec.Content
		if content == "" {
			// Title-only record; the title is the content.
			content = rec.Title
		}

		exists, err := s.existsByTitleContent(ctx, rec.Title, content)
		if err != nil {
			return imported, err
		}
		if exists {
			continue
		}

		var meta map[string]string
		if len(rec.Tags) > 0 {
			meta = map[string]string{"tags": strings.Join(rec.Tags, ",")}
		}

		m, err := s.Create(ctx, CreateParams{
			Type:       "note",
			Title:      rec.Title,
			Content:    content,
			Metadata:   meta,
			SourceType: "migrated",
		})
		if err != nil {
			return imported, fmt.Errorf("migrate record %q: %w", rec.Title, err)
		}

		// Preserve the original note date when the record carried one.
		if !rec.Date.IsZero() {
			s.writeMu.Lock()
			s.db.ExecContext(ctx, `UPDATE memories SET created_at = ? WHERE id = ?`,
				rec.Date.UTC().Format(time.RFC3339), m.ID)
			s.writeMu.Unlock()
		}

		imported++
	}

	return imported, nil
}
