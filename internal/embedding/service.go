package embedding

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/jtao/recall/internal/memerr"
)

// Service wraps a Provider with one-time initialization and an identity
// cache. Initialization probes the backend exactly once no matter how many
// goroutines call Embed concurrently; a failed probe makes every
// subsequent call return ErrUnavailable so callers can degrade.
type Service struct {
	provider Provider
	cache    *lru.Cache[string, Vector]

	initOnce sync.Once
	initErr  error
}

// NewService creates a Service around the given provider. cacheSize <= 0
// selects a default.
func NewService(provider Provider, cacheSize int) *Service {
	if cacheSize <= 0 {
		cacheSize = 2048
	}
	cache, _ := lru.New[string, Vector](cacheSize)
	return &Service{provider: provider, cache: cache}
}

func (s *Service) init(ctx context.Context) error {
	s.initOnce.Do(func() {
		probeCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		if err := s.provider.Ping(probeCtx); err != nil {
			log.Printf("[EMBED] backend %s unavailable: %v", s.provider.Version(), err)
			s.initErr = fmt.Errorf("%w: %v", memerr.ErrUnavailable, err)
		}
	})
	return s.initErr
}

// Available reports whether the backend initialized successfully. It
// triggers initialization if it has not happened yet.
func (s *Service) Available(ctx context.Context) bool {
	return s.init(ctx) == nil
}

// Version identifies the current embedding function.
func (s *Service) Version() string { return s.provider.Version() }

// Dims is the current vector dimension.
func (s *Service) Dims() int { return s.provider.Dims() }

// Embed returns the vector for text. Cache hits and misses are
// byte-identical for the same model version; the cache is an optimization
// only.
func (s *Service) Embed(ctx context.Context, text string) (Vector, error) {
	if err := s.init(ctx); err != nil {
		return nil, err
	}

	key := cacheKey(s.provider.Version(), text)
	if v, ok := s.cache.Get(key); ok {
		return v, nil
	}

	v, err := s.provider.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("embed: %w", err)
	}
	if len(v) != s.provider.Dims() {
		return nil, fmt.Errorf("%w: provider returned %d dims, expected %d",
			memerr.ErrDimensionMismatch, len(v), s.provider.Dims())
	}
	s.cache.Add(key, v)
	return v, nil
}

// batchWorkers bounds concurrent per-item embeds for providers without
// native batching.
const batchWorkers = 4

// EmbedBatch embeds texts preserving input order. Providers with native
// batch support get one call; others are fanned out across a bounded
// worker pool.
func (s *Service) EmbedBatch(ctx context.Context, texts []string) ([]Vector, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	if err := s.init(ctx); err != nil {
		return nil, err
	}

	if bp, ok := s.provider.(BatchProvider); ok {
		vecs, err := bp.EmbedBatch(ctx, texts)
		if err != nil {
			return nil, fmt.Errorf("embed batch: %w", err)
		}
		for i, v := range vecs {
			s.cache.Add(cacheKey(s.provider.Version(), texts[i]), v)
		}
		return vecs, nil
	}

	vecs := make([]Vector, len(texts))
	errs := make([]error, len(texts))
	jobs := make(chan int)

	var wg sync.WaitGroup
	for w := 0; w < batchWorkers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				vecs[i], errs[i] = s.Embed(ctx, texts[i])
			}
		}()
	}
	for i := range texts {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	return vecs, nil
}

// Similarity computes cosine similarity between two vectors produced by
// this service's model.
func (s *Service) Similarity(a, b Vector) (float64, error) {
	return CosineSimilarity(a, b)
}

func cacheKey(version, text string) string {
	h := sha256.Sum256([]byte(version + "\x00" + text))
	return hex.EncodeToString(h[:])
}
