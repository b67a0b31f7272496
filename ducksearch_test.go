package ducksearch

import (
	"context"
	"testing"
)

func TestEndToEndUploadIndexSearchDelete(t *testing.T) {
	ctx := context.Background()
	db, err := Open(ctx, "", WithIndexedFields("title", "text"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer db.Close()

	rows := []map[string]any{
		{"id": "d1", "title": "Cats", "text": "The cat sat on the mat"},
		{"id": "d2", "title": "Dogs", "text": "The dog sat on the log"},
		{"id": "d3", "title": "Pets", "text": "Cats and dogs are popular pets"},
	}
	if err := db.UploadDocuments(ctx, "id", rows, nil); err != nil {
		t.Fatalf("UploadDocuments: %v", err)
	}

	n, err := db.UpdateIndexDocuments(ctx)
	if err != nil {
		t.Fatalf("UpdateIndexDocuments: %v", err)
	}
	if n != 3 {
		t.Fatalf("indexed = %d, want 3", n)
	}

	results, err := db.SearchDocuments(ctx, []string{"cat"}, DefaultSearchOptions())
	if err != nil {
		t.Fatalf("SearchDocuments: %v", err)
	}
	if len(results[0]) == 0 {
		t.Fatal("expected hits for \"cat\"")
	}

	if err := db.DeleteDocuments(ctx, []string{"d1"}); err != nil {
		t.Fatalf("DeleteDocuments: %v", err)
	}

	stats, err := db.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats["bm25_tables.documents"] != 2 {
		t.Fatalf("documents remaining = %d, want 2", stats["bm25_tables.documents"])
	}
}

func TestSettingsWriteOnce(t *testing.T) {
	ctx := context.Background()
	db, err := Open(ctx, "")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer db.Close()

	s, err := db.ConfigureDocuments(ctx, Settings{K1: 1.2, B: 0.6, Stemmer: "none", IgnoreRegex: "[^a-z]+", Lower: true})
	if err != nil {
		t.Fatalf("ConfigureDocuments (first): %v", err)
	}
	if s.K1 != 1.2 {
		t.Fatalf("k1 = %v, want 1.2", s.K1)
	}

	s2, err := db.ConfigureDocuments(ctx, Settings{K1: 9.9, B: 0.1, Stemmer: "none", IgnoreRegex: "[^a-z]+", Lower: true})
	if err != nil {
		t.Fatalf("ConfigureDocuments (second): %v", err)
	}
	if s2.K1 != 1.2 {
		t.Fatalf("conflicting configure should be ignored, got k1=%v", s2.K1)
	}
}

func TestGraphSearchEndToEnd(t *testing.T) {
	ctx := context.Background()
	db, err := Open(ctx, "", WithIndexedFields("text"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer db.Close()

	rows := []map[string]any{{"id": "d1", "text": "the cat sat on the mat"}}
	if err := db.UploadDocuments(ctx, "id", rows, nil); err != nil {
		t.Fatalf("UploadDocuments: %v", err)
	}
	if _, err := db.UpdateIndexDocuments(ctx); err != nil {
		t.Fatalf("UpdateIndexDocuments: %v", err)
	}

	if err := db.UploadDocumentsQueries(ctx, map[string]map[string]float64{
		"d1": {"what does the cat do": 1},
	}); err != nil {
		t.Fatalf("UploadDocumentsQueries: %v", err)
	}
	if _, err := db.UpdateIndexQueries(ctx); err != nil {
		t.Fatalf("UpdateIndexQueries: %v", err)
	}

	results, err := db.GraphSearch(ctx, []string{"cat"}, DefaultSearchOptions())
	if err != nil {
		t.Fatalf("GraphSearch: %v", err)
	}
	if len(results[0]) == 0 || results[0][0].ID != "d1" {
		t.Fatalf("expected graph search to surface d1, got %#v", results[0])
	}
}
