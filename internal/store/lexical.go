package store

import (
	"context"
	"sort"
	"strings"
)

// LexicalCandidates returns the top lexical matches for a query, ranked
// by bm25. An exact phrase hit is boosted above any partial token match,
// so ranking is deterministic for identical inputs and index state.
func (s *SQLiteStore) LexicalCandidates(ctx context.Context, query string, limit int) ([]Candidate, error) {
	if limit <= 0 {
		limit = 20
	}

	tokens := tokenize(query)
	if len(tokens) == 0 {
		return nil, nil
	}

	scores := map[string]float64{}

	// Token OR query: partial matches with raw bm25 scores.
	tokenMatch := strings.Join(quoteAll(tokens), " OR ")
	tokenScores, err := s.ftsQuery(ctx, tokenMatch, limit)
	if err != nil {
		return nil, err
	}
	maxToken := 0.0
	for id, score := range tokenScores {
		scores[id] = score
		if score > maxToken {
			maxToken = score
		}
	}

	// Phrase query: any full-phrase hit outranks every token-only hit.
	if len(tokens) > 1 {
		phraseScores, err := s.ftsQuery(ctx, quote(strings.Join(tokens, " ")), limit)
		if err != nil {
			return nil, err
		}
		boost := maxToken + 1
		for id, score := range phraseScores {
			scores[id] += boost + score
		}
	}

	candidates := make([]Candidate, 0, len(scores))
	for id, score := range scores {
		candidates = append(candidates, Candidate{ID: id, Score: score})
	}
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].Score != candidates[j].Score {
			return candidates[i].Score > candidates[j].Score
		}
		return candidates[i].ID < candidates[j].ID
	})
	if len(candidates) > limit {
		candidates = candidates[:limit]
	}
	return candidates, nil
}

// ftsQuery runs one FTS5 MATCH and maps memory id to a positive score
// (negated bm25; higher is better).
func (s *SQLiteStore) ftsQuery(ctx context.Context, match string, limit int) (map[string]float64, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT m.id, -bm25(memories_fts)
		FROM memories_fts
		JOIN memories m ON m.rowid = memories_fts.rowid
		WHERE memories_fts MATCH ?
		ORDER BY bm25(memories_fts), m.id
		LIMIT ?`, match, limit)
	if err != nil {
		if ftsSyntaxErr(err) {
			return map[string]float64{}, nil
		}
		return nil, err
	}
	defer rows.Close()

	scores := map[string]float64{}
	for rows.Next() {
		var id string
		var score float64
		if err := rows.Scan(&id, &score); err != nil {
			return nil, err
		}
		scores[id] = score
	}
	if err := rows.Err(); err != nil {
		if ftsSyntaxErr(err) {
			return map[string]float64{}, nil
		}
		return nil, err
	}
	return scores, nil
}

// ftsSyntaxErr reports whether err is FTS5 rejecting the MATCH
// expression. Only that degrades to no matches; storage failures
// propagate.
func ftsSyntaxErr(err error) bool {
	return err != nil && strings.Contains(err.Error(), "fts5")
}

func tokenize(query string) []string {
	fields := strings.Fields(query)
	tokens := make([]string, 0, len(fields))
	for _, f := range fields {
		f = strings.Trim(f, `"'.,;:!?()[]{}`)
		if f != "" {
			tokens = append(tokens, f)
		}
	}
	return tokens
}

// quote wraps s as an FTS5 string literal.
func quote(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

func quoteAll(tokens []string) []string {
	out := make([]string, len(tokens))
	for i, t := range tokens {
		out[i] = quote(t)
	}
	return out
}
