package consolidate

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/jtao/recall/internal/embedding"
	"github.com/jtao/recall/internal/memerr"
	"github.com/jtao/recall/internal/model"
	"github.com/jtao/recall/internal/retriever"
	"github.com/jtao/recall/internal/store"
)

// Store is the storage surface the consolidator needs.
type Store interface {
	Create(ctx context.Context, p store.CreateParams) (*model.Memory, error)
	ExistsBySource(ctx context.Context, sourceID, content string) (bool, error)
}

// Embedder is the embedding surface the consolidator needs.
type Embedder interface {
	Embed(ctx context.Context, text string) (embedding.Vector, error)
	Version() string
	Available(ctx context.Context) bool
}

// Summary reports the outcome of a consolidation batch.
type Summary struct {
	BatchID     string            `json:"batch_id"`
	Transcripts int               `json:"transcripts"`
	Created     int               `json:"created"`
	Skipped     int               `json:"skipped"`
	Failed      int               `json:"failed"`
	Errors      map[string]string `json:"errors,omitempty"`
}

// Consolidator turns session transcripts into memories.
type Consolidator struct {
	store     Store
	embedder  Embedder
	extractor Extractor
}

// New creates a Consolidator.
func New(st Store, emb Embedder, ex Extractor) *Consolidator {
	return &Consolidator{store: st, embedder: emb, extractor: ex}
}

// ConsolidateSession processes one transcript file and returns the ids of
// the memories it created. Re-processing an already-consolidated
// transcript creates nothing: items dedupe on source id plus content.
func (c *Consolidator) ConsolidateSession(ctx context.Context, path string) ([]string, error) {
	ids, _, err := c.consolidate(ctx, path, uuid.NewString())
	return ids, err
}

func (c *Consolidator) consolidate(ctx context.Context, path, batchID string) (ids []string, skipped int, err error) {
	if c.extractor == nil {
		return nil, 0, memerr.Configf("no extraction capability configured")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, 0, fmt.Errorf("read transcript: %w", err)
	}

	transcript, ok := ParseTranscript(filepath.Base(path), string(data))
	if !ok {
		return nil, 0, memerr.Validationf("no recognizable sections in %s", path)
	}

	items, err := c.extractor.Extract(ctx, transcript.ExtractionInput())
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %s: %v", memerr.ErrExtraction, transcript.ID, err)
	}

	for _, item := range validate(items) {
		exists, err := c.store.ExistsBySource(ctx, transcript.ID, item.Text)
		if err != nil {
			return ids, skipped, err
		}
		if exists {
			skipped++
			continue
		}

		p := store.CreateParams{
			Type:       kindToType[item.Kind],
			Title:      item.Title,
			Content:    item.Text,
			Metadata:   map[string]string{"kind": item.Kind, "batch": batchID},
			SourceType: "session",
			SourceID:   transcript.ID,
		}

		// Each created memory is its own atomic unit; a long batch never
		// holds the store's write serialization across items.
		if c.embedder.Available(ctx) {
			if v, err := c.embedder.Embed(ctx, retriever.EmbedText(item.Title, item.Text)); err == nil {
				p.Vector = v
				p.ModelVersion = c.embedder.Version()
			} else {
				log.Printf("[CONSOLIDATE] embed failed for %q, vector deferred to rebuild: %v", item.Title, err)
			}
		}

		m, err := c.store.Create(ctx, p)
		if err != nil {
			return ids, skipped, fmt.Errorf("save insight %q: %w", item.Title, err)
		}
		ids = append(ids, m.ID)
	}

	return ids, skipped, nil
}

// ConsolidateAll processes every session_*.txt transcript in a directory.
// One failing transcript is recorded in the summary and never aborts its
// siblings.
func (c *Consolidator) ConsolidateAll(ctx context.Context, dir string) (*Summary, error) {
	files, err := filepath.Glob(filepath.Join(dir, "session_*.txt"))
	if err != nil {
		return nil, err
	}

	sum := &Summary{BatchID: uuid.NewString(), Errors: map[string]string{}}
	for _, f := range files {
		sum.Transcripts++
		ids, skipped, err := c.consolidate(ctx, f, sum.BatchID)
		sum.Created += len(ids)
		sum.Skipped += skipped
		if err != nil {
			sum.Failed++
			sum.Errors[filepath.Base(f)] = err.Error()
			log.Printf("[CONSOLIDATE] %s failed: %v", filepath.Base(f), err)
		}
	}

	return sum, nil
}
