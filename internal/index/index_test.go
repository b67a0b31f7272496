package index

import (
	"context"
	"testing"

	"github.com/lightonai/ducksearch/internal/corpus"
	"github.com/lightonai/ducksearch/internal/storage"
)

func newTestEnv(t *testing.T) (*storage.Store, string) {
	t.Helper()
	store, err := storage.Open(context.Background(), "", storage.Options{MaxRetries: 1})
	if err != nil {
		t.Fatalf("storage.Open: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	ctx := context.Background()
	if err := corpus.EnsureSchema(ctx, store); err != nil {
		t.Fatalf("corpus.EnsureSchema: %v", err)
	}
	if err := EnsureSchema(ctx, store, DocumentsSchema); err != nil {
		t.Fatalf("index.EnsureSchema: %v", err)
	}
	return store, t.TempDir()
}

func TestUpdateIndexAssignsBM25IDsAndScores(t *testing.T) {
	store, dir := newTestEnv(t)
	ctx := context.Background()

	docs := []corpus.Document{
		{Key: "d1", Fields: map[string]any{"text": "the cat sat on the mat"}},
		{Key: "d2", Fields: map[string]any{"text": "the dog sat on the log"}},
		{Key: "d3", Fields: map[string]any{"text": "cats and dogs are friends"}},
	}
	if err := corpus.InsertDocuments(ctx, store, dir, docs, nil); err != nil {
		t.Fatalf("InsertDocuments: %v", err)
	}

	rows := []SourceRow{
		{ID: "d1", Text: "the cat sat on the mat"},
		{ID: "d2", Text: "the dog sat on the log"},
		{ID: "d3", Text: "cats and dogs are friends"},
	}
	n, err := UpdateIndex(ctx, store, DocumentsSchema, "bm25_tables.documents", dir, rows)
	if err != nil {
		t.Fatalf("UpdateIndex: %v", err)
	}
	if n != 3 {
		t.Fatalf("indexed = %d, want 3", n)
	}

	var docsCount int
	if err := store.QueryRowContext(ctx, "SELECT count(*) FROM bm25_documents.docs").Scan(&docsCount); err != nil {
		t.Fatalf("docs count: %v", err)
	}
	if docsCount != 3 {
		t.Fatalf("bm25_documents.docs count = %d, want 3", docsCount)
	}

	var termCount int
	if err := store.QueryRowContext(ctx, "SELECT count(*) FROM bm25_documents.dict").Scan(&termCount); err != nil {
		t.Fatalf("dict count: %v", err)
	}
	if termCount == 0 {
		t.Fatal("expected dict to contain terms")
	}

	var scoreCount int
	if err := store.QueryRowContext(ctx, "SELECT count(*) FROM bm25_documents.scores").Scan(&scoreCount); err != nil {
		t.Fatalf("scores count: %v", err)
	}
	if scoreCount == 0 {
		t.Fatal("expected scores to be precomputed")
	}

	var numDocs int
	var avgdl float64
	if err := store.QueryRowContext(ctx, "SELECT num_docs, avgdl FROM bm25_documents.stats").Scan(&numDocs, &avgdl); err != nil {
		t.Fatalf("stats: %v", err)
	}
	if numDocs != 3 {
		t.Fatalf("num_docs = %d, want 3", numDocs)
	}
	if avgdl <= 0 {
		t.Fatalf("avgdl = %v, want > 0", avgdl)
	}

	var backfilled int
	if err := store.QueryRowContext(ctx, "SELECT count(*) FROM bm25_tables.documents WHERE bm25id IS NOT NULL").Scan(&backfilled); err != nil {
		t.Fatalf("backfill count: %v", err)
	}
	if backfilled != 3 {
		t.Fatalf("backfilled bm25id count = %d, want 3", backfilled)
	}
}

func TestDeleteCorpusCascades(t *testing.T) {
	store, dir := newTestEnv(t)
	ctx := context.Background()

	docs := []corpus.Document{{Key: "d1", Fields: map[string]any{"text": "alpha beta"}}}
	if err := corpus.InsertDocuments(ctx, store, dir, docs, nil); err != nil {
		t.Fatalf("InsertDocuments: %v", err)
	}
	rows := []SourceRow{{ID: "d1", Text: "alpha beta"}}
	if _, err := UpdateIndex(ctx, store, DocumentsSchema, "bm25_tables.documents", dir, rows); err != nil {
		t.Fatalf("UpdateIndex: %v", err)
	}

	if err := DeleteCorpus(ctx, store, DocumentsSchema, "bm25_tables.documents", []string{"d1"}); err != nil {
		t.Fatalf("DeleteCorpus: %v", err)
	}

	for _, table := range []string{"bm25_documents.scores", "bm25_documents.terms", "bm25_documents.docs", "bm25_tables.documents"} {
		var count int
		if err := store.QueryRowContext(ctx, "SELECT count(*) FROM "+table).Scan(&count); err != nil {
			t.Fatalf("count %s: %v", table, err)
		}
		if count != 0 {
			t.Fatalf("table %s still has %d rows after delete", table, count)
		}
	}
}
