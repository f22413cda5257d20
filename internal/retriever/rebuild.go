package retriever

import (
	"context"
	"fmt"
	"log"
)

const rebuildBatchSize = 16

// RebuildEmbeddings regenerates the embedding for every memory whose
// vector is missing or was produced by a different model version,
// overwriting in place. Returns the number regenerated.
func (r *Retriever) RebuildEmbeddings(ctx context.Context) (int, error) {
	version := r.embedder.Version()

	stale, err := r.store.MissingOrStale(ctx, version)
	if err != nil {
		return 0, err
	}
	if len(stale) == 0 {
		return 0, nil
	}

	log.Printf("[RETRIEVE] rebuilding %d embeddings for model %s", len(stale), version)

	count := 0
	for start := 0; start < len(stale); start += rebuildBatchSize {
		end := min(start+rebuildBatchSize, len(stale))
		batch := stale[start:end]

		texts := make([]string, len(batch))
		for i, m := range batch {
			texts[i] = embedText(m.Title, m.Content)
		}

		vecs, err := r.embedder.EmbedBatch(ctx, texts)
		if err != nil {
			return count, fmt.Errorf("rebuild batch: %w", err)
		}

		for i, m := range batch {
			if err := r.store.PutEmbedding(ctx, m.ID, vecs[i], version); err != nil {
				return count, fmt.Errorf("store embedding for %s: %w", m.ID, err)
			}
			count++
		}
	}

	return count, nil
}

// embedText is the canonical text embedded for a memory: title and
// content joined. The write path and the rebuild path must agree on it.
func embedText(title, content string) string {
	if title == "" {
		return content
	}
	return title + "\n" + content
}

// EmbedText exposes the canonical embedding text for the write path.
func EmbedText(title, content string) string {
	return embedText(title, content)
}
