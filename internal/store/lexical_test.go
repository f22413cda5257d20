package store

import (
	"context"
	"testing"
)

func TestLexical_Basic(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	s.Create(ctx, CreateParams{Title: "Go notes", Content: "Go is a compiled language with goroutines"})
	s.Create(ctx, CreateParams{Title: "Python notes", Content: "Python is an interpreted language"})
	s.Create(ctx, CreateParams{Title: "Rust notes", Content: "Rust has a borrow checker"})

	cands, err := s.LexicalCandidates(ctx, "language", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(cands) != 2 {
		t.Fatalf("expected 2 candidates, got %d", len(cands))
	}

	cands, err = s.LexicalCandidates(ctx, "borrow", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(cands) != 1 {
		t.Fatalf("expected 1 candidate, got %d", len(cands))
	}

	cands, err = s.LexicalCandidates(ctx, "javascript", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(cands) != 0 {
		t.Fatalf("expected 0 candidates, got %d", len(cands))
	}
}

func TestLexical_TitleMatches(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	mem, _ := s.Create(ctx, CreateParams{Title: "deployment checklist", Content: "steps for the release"})

	cands, err := s.LexicalCandidates(ctx, "deployment", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(cands) != 1 || cands[0].ID != mem.ID {
		t.Fatalf("expected title match, got %v", cands)
	}
}

func TestLexical_PhraseOutranksTokens(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	// Partial matches share tokens with the query but never the full phrase
	s.Create(ctx, CreateParams{Content: "the staging database password rotates weekly"})
	s.Create(ctx, CreateParams{Content: "production logs go to the central server"})
	phrase, _ := s.Create(ctx, CreateParams{Content: "the production database lives on host pg-3"})

	cands, err := s.LexicalCandidates(ctx, "production database", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(cands) < 2 {
		t.Fatalf("expected phrase and token matches, got %d", len(cands))
	}
	if cands[0].ID != phrase.ID {
		t.Errorf("expected exact phrase match ranked first, got %s", cands[0].ID)
	}
}

func TestLexical_LimitAndDeterminism(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	for i := 0; i < 8; i++ {
		s.Create(ctx, CreateParams{Content: "shared keyword alpha"})
	}

	first, err := s.LexicalCandidates(ctx, "alpha", 5)
	if err != nil {
		t.Fatal(err)
	}
	if len(first) != 5 {
		t.Fatalf("expected limit 5, got %d", len(first))
	}

	second, _ := s.LexicalCandidates(ctx, "alpha", 5)
	for i := range first {
		if first[i].ID != second[i].ID {
			t.Fatalf("ranking not deterministic at position %d", i)
		}
	}
}

func TestLexical_SyntaxErrorVersusStorageError(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	s.Create(ctx, CreateParams{Content: "plain note"})

	// A malformed MATCH expression degrades to no matches
	scores, err := s.ftsQuery(ctx, "AND NOT (", 10)
	if err != nil {
		t.Fatalf("expected syntax trouble to degrade, got %v", err)
	}
	if len(scores) != 0 {
		t.Fatalf("expected no matches, got %d", len(scores))
	}

	// A storage failure propagates instead of reading as no matches
	s.Close()
	if _, err := s.LexicalCandidates(ctx, "plain", 10); err == nil {
		t.Fatal("expected error from closed store")
	}
}

func TestLexical_PunctuationAndQuotes(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	s.Create(ctx, CreateParams{Content: "remember the wifi password"})

	// Stray FTS syntax in user input must not error out
	cands, err := s.LexicalCandidates(ctx, `"wifi" password?`, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(cands) != 1 {
		t.Fatalf("expected 1 candidate, got %d", len(cands))
	}

	cands, err = s.LexicalCandidates(ctx, "   ", 10)
	if err != nil {
		t.Fatal(err)
	}
	if cands != nil {
		t.Fatalf("expected nil for blank query, got %v", cands)
	}
}
