package consolidate

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jtao/recall/internal/embedding"
	"github.com/jtao/recall/internal/memerr"
	"github.com/jtao/recall/internal/retriever"
	"github.com/jtao/recall/internal/store"
)

const sampleSession = `================================================================================
SESSION 2024-03-01
================================================================================

SUMMARY
-------
User asked about Thai restaurants and settled on Thai House.

RAW TRANSCRIPT
--------------
user: where should I eat tonight?
assistant: Thai House on 5th has great pad see ew.

ACTIONS TAKEN
-------------
Saved a restaurant recommendation.

================================================================================
`

func TestParseTranscript(t *testing.T) {
	tr, ok := ParseTranscript("session_1.txt", sampleSession)
	if !ok {
		t.Fatal("expected recognizable sections")
	}
	if tr.ID != "session_1.txt" {
		t.Errorf("id = %q", tr.ID)
	}
	if tr.Summary != "User asked about Thai restaurants and settled on Thai House." {
		t.Errorf("summary = %q", tr.Summary)
	}
	if !strings.Contains(tr.Exchanges, "pad see ew") {
		t.Errorf("exchanges = %q", tr.Exchanges)
	}
	if tr.Actions != "Saved a restaurant recommendation." {
		t.Errorf("actions = %q", tr.Actions)
	}

	input := tr.ExtractionInput()
	for _, want := range []string{"Session Summary:", "Transcript:", "Actions:"} {
		if !strings.Contains(input, want) {
			t.Errorf("extraction input missing %q", want)
		}
	}
}

func TestParseTranscript_NoSections(t *testing.T) {
	if _, ok := ParseTranscript("x", "just some random text\nwith no structure"); ok {
		t.Fatal("expected unparseable transcript")
	}
}

func TestParseTranscript_TruncatesLongExchanges(t *testing.T) {
	long := "SUMMARY\n-------\nshort summary\n\nRAW TRANSCRIPT\n--------------\n" +
		strings.Repeat("a", 5000) + "\n\n================\n"
	tr, ok := ParseTranscript("x", long)
	if !ok {
		t.Fatal("expected parse")
	}
	if len(tr.Exchanges) != maxExchangeChars+len("...") {
		t.Errorf("exchanges length = %d", len(tr.Exchanges))
	}
	if !strings.HasSuffix(tr.Exchanges, "...") {
		t.Error("expected truncation marker")
	}
}

// fakeExtractor returns canned items, failing when the transcript
// contains failOn.
type fakeExtractor struct {
	items  []Item
	failOn string
}

func (f *fakeExtractor) Extract(ctx context.Context, transcript string) ([]Item, error) {
	if f.failOn != "" && strings.Contains(transcript, f.failOn) {
		return nil, errors.New("extraction backend error")
	}
	return f.items, nil
}

func newTestDeps(t *testing.T) (*store.SQLiteStore, *embedding.Service) {
	t.Helper()
	s, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { s.Close() })
	return s, embedding.NewService(embedding.NewLocalProvider(), 0)
}

func writeSession(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestConsolidateSession(t *testing.T) {
	ctx := context.Background()
	st, svc := newTestDeps(t)
	path := writeSession(t, t.TempDir(), "session_1.txt", sampleSession)

	ex := &fakeExtractor{items: []Item{
		{Kind: "fact", Title: "Thai House", Text: "Thai House on 5th has great pad see ew"},
		{Kind: "preference", Title: "Cuisine", Text: "User likes Thai food"},
		{Kind: "mystery", Title: "Odd", Text: "unclassified observation"},
		{Kind: "fact", Title: "Empty", Text: "   "},
	}}
	c := New(st, svc, ex)

	ids, err := c.ConsolidateSession(ctx, path)
	if err != nil {
		t.Fatalf("consolidate: %v", err)
	}
	if len(ids) != 3 {
		t.Fatalf("expected 3 memories (blank item dropped), got %d", len(ids))
	}

	types := map[string]string{}
	for _, id := range ids {
		m, err := st.Get(ctx, id)
		if err != nil {
			t.Fatal(err)
		}
		if m.SourceType != "session" || m.SourceID != "session_1.txt" {
			t.Errorf("source = %s/%s", m.SourceType, m.SourceID)
		}
		if m.Metadata["batch"] == "" {
			t.Error("expected batch id in metadata")
		}
		types[m.Title] = m.Type

		// Vectors commit alongside since the local backend is always up
		if _, err := st.GetEmbedding(ctx, id); err != nil {
			t.Errorf("expected embedding for %s: %v", m.Title, err)
		}
	}
	if types["Thai House"] != "fact" {
		t.Errorf("fact kind mapped to %q", types["Thai House"])
	}
	if types["Cuisine"] != "preference" {
		t.Errorf("preference kind mapped to %q", types["Cuisine"])
	}
	// Unknown kinds downgrade to insight
	if types["Odd"] != "insight" {
		t.Errorf("unknown kind mapped to %q", types["Odd"])
	}
}

func TestConsolidateEmbedsCanonicalText(t *testing.T) {
	ctx := context.Background()
	st, svc := newTestDeps(t)
	path := writeSession(t, t.TempDir(), "session_1.txt", sampleSession)

	// An untitled item must embed the same text the rebuild path would
	c := New(st, svc, &fakeExtractor{items: []Item{
		{Kind: "fact", Title: "", Text: "untitled extracted fact"},
	}})
	ids, err := c.ConsolidateSession(ctx, path)
	if err != nil {
		t.Fatal(err)
	}
	if len(ids) != 1 {
		t.Fatalf("expected 1 memory, got %d", len(ids))
	}

	got, err := st.GetEmbedding(ctx, ids[0])
	if err != nil {
		t.Fatal(err)
	}
	want, err := svc.Embed(ctx, retriever.EmbedText("", "untitled extracted fact"))
	if err != nil {
		t.Fatal(err)
	}
	for i := range want {
		if got.Vector[i] != want[i] {
			t.Fatalf("stored vector diverges from canonical embed text at %d", i)
		}
	}
}

func TestConsolidateIdempotent(t *testing.T) {
	ctx := context.Background()
	st, svc := newTestDeps(t)
	path := writeSession(t, t.TempDir(), "session_1.txt", sampleSession)

	ex := &fakeExtractor{items: []Item{
		{Kind: "fact", Title: "T", Text: "a stable extracted fact"},
	}}
	c := New(st, svc, ex)

	first, err := c.ConsolidateSession(ctx, path)
	if err != nil {
		t.Fatal(err)
	}
	if len(first) != 1 {
		t.Fatalf("expected 1 created, got %d", len(first))
	}

	second, err := c.ConsolidateSession(ctx, path)
	if err != nil {
		t.Fatal(err)
	}
	if len(second) != 0 {
		t.Fatalf("expected 0 on re-run, got %d", len(second))
	}

	stats, _ := st.Stats(ctx)
	if stats.TotalMemories != 1 {
		t.Errorf("expected 1 memory after re-run, got %d", stats.TotalMemories)
	}
}

func TestConsolidateNoExtractor(t *testing.T) {
	ctx := context.Background()
	st, svc := newTestDeps(t)
	path := writeSession(t, t.TempDir(), "session_1.txt", sampleSession)

	c := New(st, svc, nil)
	if _, err := c.ConsolidateSession(ctx, path); !errors.Is(err, memerr.ErrConfig) {
		t.Fatalf("expected config error, got %v", err)
	}
}

func TestConsolidateUnparseable(t *testing.T) {
	ctx := context.Background()
	st, svc := newTestDeps(t)
	path := writeSession(t, t.TempDir(), "session_1.txt", "no structure here at all")

	c := New(st, svc, &fakeExtractor{})
	if _, err := c.ConsolidateSession(ctx, path); !errors.Is(err, memerr.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestConsolidateAll_FailureIsolation(t *testing.T) {
	ctx := context.Background()
	st, svc := newTestDeps(t)
	dir := t.TempDir()

	writeSession(t, dir, "session_1.txt", sampleSession)
	writeSession(t, dir, "session_2.txt", strings.ReplaceAll(sampleSession, "Thai", "POISON"))
	writeSession(t, dir, "notes.txt", sampleSession) // ignored, wrong name

	ex := &fakeExtractor{
		items:  []Item{{Kind: "fact", Title: "F", Text: "one extracted fact"}},
		failOn: "POISON",
	}
	c := New(st, svc, ex)

	sum, err := c.ConsolidateAll(ctx, dir)
	if err != nil {
		t.Fatal(err)
	}
	if sum.Transcripts != 2 {
		t.Errorf("expected 2 transcripts, got %d", sum.Transcripts)
	}
	if sum.Failed != 1 {
		t.Errorf("expected 1 failure, got %d", sum.Failed)
	}
	if sum.Created != 1 {
		t.Errorf("expected 1 created despite sibling failure, got %d", sum.Created)
	}
	if _, ok := sum.Errors["session_2.txt"]; !ok {
		t.Errorf("expected error recorded for failing transcript, got %v", sum.Errors)
	}
	if sum.BatchID == "" {
		t.Error("expected batch id")
	}
}

func TestExtractionErrorWrapped(t *testing.T) {
	ctx := context.Background()
	st, svc := newTestDeps(t)
	path := writeSession(t, t.TempDir(), "session_1.txt", sampleSession)

	c := New(st, svc, &fakeExtractor{failOn: "Thai"})
	_, err := c.ConsolidateSession(ctx, path)
	if !errors.Is(err, memerr.ErrExtraction) {
		t.Fatalf("expected extraction error, got %v", err)
	}
}
