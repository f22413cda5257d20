// Package retriever executes hybrid search: lexical candidates plus a
// brute-force embedding scan, merged, scored, reranked, and diversified.
package retriever

import (
	"context"
	"errors"
	"log"
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/jtao/recall/internal/embedding"
	"github.com/jtao/recall/internal/memerr"
	"github.com/jtao/recall/internal/model"
	"github.com/jtao/recall/internal/store"
)

// Weights are the per-signal weights for composite scoring. They must
// sum to 1; a partial configuration is rejected rather than silently
// renormalized.
type Weights struct {
	Lexical    float64 `json:"lexical"`
	Semantic   float64 `json:"semantic"`
	Recency    float64 `json:"recency"`
	Importance float64 `json:"importance"`
}

// DefaultWeights returns the standard signal mix.
func DefaultWeights() Weights {
	return Weights{Lexical: 0.30, Semantic: 0.50, Recency: 0.10, Importance: 0.10}
}

const weightTolerance = 1e-6

func (w Weights) validate() error {
	for _, v := range []float64{w.Lexical, w.Semantic, w.Recency, w.Importance} {
		if v < 0 || v > 1 {
			return memerr.Configf("weight %.3f outside [0,1]", v)
		}
	}
	sum := w.Lexical + w.Semantic + w.Recency + w.Importance
	if math.Abs(sum-1) > weightTolerance {
		return memerr.Configf("weights sum to %.6f, want 1", sum)
	}
	return nil
}

// Options are the retriever tunables.
type Options struct {
	HalfLife           time.Duration // recency decay half-life
	Oversample         int           // lexical candidate multiplier over top-k
	DiversityThreshold float64       // cosine at or above which results are near-duplicates
	MinScore           float64       // composite floor; lower-scoring candidates are dropped
}

// DefaultOptions returns the standard tunables.
func DefaultOptions() Options {
	return Options{
		HalfLife:           30 * 24 * time.Hour,
		Oversample:         4,
		DiversityThreshold: 0.92,
		MinScore:           0.05,
	}
}

// Store is the storage surface the retriever needs.
type Store interface {
	Get(ctx context.Context, id string) (*model.Memory, error)
	LexicalCandidates(ctx context.Context, query string, limit int) ([]store.Candidate, error)
	AllEmbeddings(ctx context.Context) ([]model.Embedding, error)
	UpdateAccess(ctx context.Context, id string) error
	MissingOrStale(ctx context.Context, modelVersion string) ([]model.Memory, error)
	PutEmbedding(ctx context.Context, memoryID string, v embedding.Vector, modelVersion string) error
}

// Embedder is the embedding surface the retriever needs.
type Embedder interface {
	Embed(ctx context.Context, text string) (embedding.Vector, error)
	EmbedBatch(ctx context.Context, texts []string) ([]embedding.Vector, error)
	Version() string
}

// Retriever ranks stored memories against queries.
type Retriever struct {
	store    Store
	embedder Embedder
	opts     Options
}

// New creates a Retriever. Zero-valued options fields fall back to defaults.
func New(st Store, emb Embedder, opts Options) *Retriever {
	def := DefaultOptions()
	if opts.HalfLife <= 0 {
		opts.HalfLife = def.HalfLife
	}
	if opts.Oversample <= 0 {
		opts.Oversample = def.Oversample
	}
	if opts.DiversityThreshold <= 0 {
		opts.DiversityThreshold = def.DiversityThreshold
	}
	return &Retriever{store: st, embedder: emb, opts: opts}
}

// HybridSearch returns up to topK memories ranked by the weighted blend
// of lexical, semantic, recency, and importance signals. Access counters
// are bumped for every returned memory.
//
// When the embedding backend is unavailable the semantic component is
// zero for all candidates and ranking proceeds on the remaining signals;
// the caller never sees the backend failure.
func (r *Retriever) HybridSearch(ctx context.Context, query string, topK int, weights Weights) ([]model.SearchResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, memerr.Validationf("query is empty")
	}
	if topK <= 0 {
		return nil, memerr.Validationf("top_k must be positive, got %d", topK)
	}
	if err := weights.validate(); err != nil {
		return nil, err
	}

	lexical, err := r.store.LexicalCandidates(ctx, query, r.opts.Oversample*topK)
	if err != nil {
		return nil, err
	}
	lexScores := make(map[string]float64, len(lexical))
	for _, c := range lexical {
		lexScores[c.ID] = c.Score
	}

	semScores, vectors := r.semanticScan(ctx, query)

	// Candidate superset: lexical hits plus top semantic hits.
	ids := map[string]bool{}
	for id := range lexScores {
		ids[id] = true
	}
	for _, id := range topSemantic(semScores, r.opts.Oversample*topK) {
		ids[id] = true
	}
	if len(ids) == 0 {
		return nil, nil
	}

	lexMax := 0.0
	for _, s := range lexScores {
		if s > lexMax {
			lexMax = s
		}
	}

	now := time.Now().UTC()
	results := make([]model.SearchResult, 0, len(ids))
	for id := range ids {
		m, err := r.store.Get(ctx, id)
		if err != nil {
			if errors.Is(err, memerr.ErrNotFound) {
				continue // deleted since candidate generation
			}
			return nil, err
		}

		res := model.SearchResult{Memory: *m, Importance: m.Importance}
		if lexMax > 0 {
			res.Lexical = lexScores[id] / lexMax
		}
		if cos, ok := semScores[id]; ok {
			res.Semantic = (cos + 1) / 2
		}
		age := now.Sub(m.CreatedAt)
		res.Recency = math.Exp(-math.Ln2 * age.Hours() / r.opts.HalfLife.Hours())

		res.Score = weights.Lexical*res.Lexical +
			weights.Semantic*res.Semantic +
			weights.Recency*res.Recency +
			weights.Importance*res.Importance

		if res.Score < r.opts.MinScore {
			continue
		}
		results = append(results, res)
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		if !results[i].Memory.CreatedAt.Equal(results[j].Memory.CreatedAt) {
			return results[i].Memory.CreatedAt.After(results[j].Memory.CreatedAt)
		}
		return results[i].Memory.ID < results[j].Memory.ID
	})

	results = r.diversify(results, vectors, topK)

	for _, res := range results {
		if err := r.store.UpdateAccess(ctx, res.Memory.ID); err != nil {
			log.Printf("[RETRIEVE] access update for %s: %v", res.Memory.ID, err)
		}
	}

	return results, nil
}

const scanWorkers = 4

// semanticScan embeds the query and scores it against every stored
// vector. Workers write into a private slice each and results merge
// afterward; no shared state mutates during the scan. Vectors whose model
// version or dimension differ from the current provider are skipped. On
// context cancellation the scan stops and whatever scored so far is used.
func (r *Retriever) semanticScan(ctx context.Context, query string) (map[string]float64, map[string]embedding.Vector) {
	scores := map[string]float64{}
	vectors := map[string]embedding.Vector{}

	qv, err := r.embedder.Embed(ctx, query)
	if err != nil {
		if errors.Is(err, memerr.ErrUnavailable) {
			log.Printf("[RETRIEVE] embedding backend unavailable, lexical-only search")
		} else {
			log.Printf("[RETRIEVE] query embedding failed, lexical-only search: %v", err)
		}
		return scores, vectors
	}

	embs, err := r.store.AllEmbeddings(ctx)
	if err != nil {
		log.Printf("[RETRIEVE] embedding scan failed, lexical-only search: %v", err)
		return scores, vectors
	}

	version := r.embedder.Version()

	type scored struct {
		id  string
		cos float64
	}
	parts := make([][]scored, scanWorkers)

	var wg sync.WaitGroup
	for w := 0; w < scanWorkers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := w; i < len(embs); i += scanWorkers {
				select {
				case <-ctx.Done():
					return // keep best-so-far
				default:
				}
				e := embs[i]
				if e.ModelVersion != version || e.Dims != len(qv) {
					continue // stale vector; memory ranks by lexical score alone
				}
				cos, err := embedding.CosineSimilarity(qv, e.Vector)
				if err != nil {
					continue
				}
				parts[w] = append(parts[w], scored{id: e.MemoryID, cos: cos})
			}
		}(w)
	}
	wg.Wait()

	for _, part := range parts {
		for _, s := range part {
			scores[s.id] = s.cos
		}
	}
	// Keep the scanned vectors for diversity filtering.
	for _, e := range embs {
		if _, ok := scores[e.MemoryID]; ok {
			vectors[e.MemoryID] = e.Vector
		}
	}

	return scores, vectors
}

// topSemantic returns the ids of the best n semantic scores,
// deterministically ordered.
func topSemantic(scores map[string]float64, n int) []string {
	ids := make([]string, 0, len(scores))
	for id := range scores {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		if scores[ids[i]] != scores[ids[j]] {
			return scores[ids[i]] > scores[ids[j]]
		}
		return ids[i] < ids[j]
	})
	if len(ids) > n {
		ids = ids[:n]
	}
	return ids
}

// diversify walks the ranked list and greedily accepts candidates that
// are not near-duplicates of anything already accepted. Near-duplicate
// means cosine at or above the threshold, or exact substring containment.
func (r *Retriever) diversify(ranked []model.SearchResult, vectors map[string]embedding.Vector, topK int) []model.SearchResult {
	accepted := make([]model.SearchResult, 0, topK)

	for _, cand := range ranked {
		if len(accepted) >= topK {
			break
		}

		duplicate := false
		for _, a := range accepted {
			if containsEither(cand.Memory.Content, a.Memory.Content) {
				duplicate = true
				break
			}
			cv, av := vectors[cand.Memory.ID], vectors[a.Memory.ID]
			if cv == nil || av == nil {
				continue
			}
			if cos, err := embedding.CosineSimilarity(cv, av); err == nil && cos >= r.opts.DiversityThreshold {
				duplicate = true
				break
			}
		}
		if !duplicate {
			accepted = append(accepted, cand)
		}
	}

	return accepted
}

func containsEither(a, b string) bool {
	return strings.Contains(a, b) || strings.Contains(b, a)
}
