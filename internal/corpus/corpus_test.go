package corpus

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/apache/arrow-go/v18/arrow"

	"github.com/lightonai/ducksearch/internal/storage"
)

func openStore(t *testing.T) *storage.Store {
	t.Helper()
	store, err := storage.Open(context.Background(), "", storage.Options{MaxRetries: 1})
	if err != nil {
		t.Fatalf("storage.Open: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	if err := EnsureSchema(context.Background(), store); err != nil {
		t.Fatalf("EnsureSchema: %v", err)
	}
	return store
}

func TestInsertDocumentsUpserts(t *testing.T) {
	store := openStore(t)
	dir := t.TempDir()
	ctx := context.Background()

	docs := []Document{
		{Key: "d1", Fields: map[string]any{"title": "Hello", "text": "world"}},
		{Key: "d2", Fields: map[string]any{"title": "Bonjour", "text": "monde"}},
	}
	if err := InsertDocuments(ctx, store, dir, docs, nil); err != nil {
		t.Fatalf("InsertDocuments: %v", err)
	}

	var count int
	if err := store.QueryRowContext(ctx, "SELECT count(*) FROM bm25_tables.documents").Scan(&count); err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 2 {
		t.Fatalf("count = %d, want 2", count)
	}

	updated := []Document{
		{Key: "d1", Fields: map[string]any{"title": "Hello Updated", "text": "world"}},
	}
	if err := InsertDocuments(ctx, store, dir, updated, nil); err != nil {
		t.Fatalf("InsertDocuments (update): %v", err)
	}

	var title string
	if err := store.QueryRowContext(ctx, "SELECT title FROM bm25_tables.documents WHERE id = 'd1'").Scan(&title); err != nil {
		t.Fatalf("select title: %v", err)
	}
	if title != "Hello Updated" {
		t.Fatalf("title = %q, want %q", title, "Hello Updated")
	}

	if err := store.QueryRowContext(ctx, "SELECT count(*) FROM bm25_tables.documents").Scan(&count); err != nil {
		t.Fatalf("count after update: %v", err)
	}
	if count != 2 {
		t.Fatalf("update should not duplicate rows, count = %d", count)
	}
}

func TestInsertDocumentsQueriesAutoInsertsQueries(t *testing.T) {
	store := openStore(t)
	dir := t.TempDir()
	ctx := context.Background()

	docs := []Document{{Key: "d1", Fields: map[string]any{"title": "x"}}}
	if err := InsertDocuments(ctx, store, dir, docs, nil); err != nil {
		t.Fatalf("InsertDocuments: %v", err)
	}

	edges := []Edge{{DocumentID: "d1", QueryText: "what is x", Score: 1}}
	if err := InsertDocumentsQueries(ctx, store, dir, edges); err != nil {
		t.Fatalf("InsertDocumentsQueries: %v", err)
	}

	var queryCount int
	if err := store.QueryRowContext(ctx, "SELECT count(*) FROM bm25_tables.queries WHERE query = 'what is x'").Scan(&queryCount); err != nil {
		t.Fatalf("query count: %v", err)
	}
	if queryCount != 1 {
		t.Fatalf("expected query auto-inserted, count = %d", queryCount)
	}

	var edgeCount int
	if err := store.QueryRowContext(ctx, "SELECT count(*) FROM bm25_tables.documents_queries").Scan(&edgeCount); err != nil {
		t.Fatalf("edge count: %v", err)
	}
	if edgeCount != 1 {
		t.Fatalf("edge count = %d, want 1", edgeCount)
	}
}

func TestInsertDocumentsFromParquetUpsertsFromExistingFiles(t *testing.T) {
	store := openStore(t)
	dir := t.TempDir()
	ctx := context.Background()

	columns := []storage.Column{
		{Name: "id", Type: arrow.BinaryTypes.String},
		{Name: "title", Type: arrow.BinaryTypes.String},
	}
	rows := []storage.Row{
		{"id": "p1", "title": "Parquet One"},
		{"id": "p2", "title": "Parquet Two"},
	}
	if _, err := storage.StageRows(dir, columns, rows); err != nil {
		t.Fatalf("StageRows: %v", err)
	}

	glob := filepath.Join(dir, "*.parquet")
	if err := InsertDocumentsFromParquet(ctx, store, glob, nil); err != nil {
		t.Fatalf("InsertDocumentsFromParquet: %v", err)
	}

	var count int
	if err := store.QueryRowContext(ctx, "SELECT count(*) FROM bm25_tables.documents").Scan(&count); err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 2 {
		t.Fatalf("count = %d, want 2", count)
	}

	var title string
	if err := store.QueryRowContext(ctx, "SELECT title FROM bm25_tables.documents WHERE id = 'p1'").Scan(&title); err != nil {
		t.Fatalf("select title: %v", err)
	}
	if title != "Parquet One" {
		t.Fatalf("title = %q, want %q", title, "Parquet One")
	}
}

func TestDeleteDocumentsRemovesRows(t *testing.T) {
	store := openStore(t)
	dir := t.TempDir()
	ctx := context.Background()

	docs := []Document{
		{Key: "d1", Fields: map[string]any{"title": "x"}},
		{Key: "d2", Fields: map[string]any{"title": "y"}},
	}
	if err := InsertDocuments(ctx, store, dir, docs, nil); err != nil {
		t.Fatalf("InsertDocuments: %v", err)
	}

	err := store.WithTx(ctx, func(tx *sql.Tx) error {
		return DeleteDocuments(ctx, tx, []string{"d1"})
	})
	if err != nil {
		t.Fatalf("DeleteDocuments: %v", err)
	}

	var count int
	if err := store.QueryRowContext(ctx, "SELECT count(*) FROM bm25_tables.documents").Scan(&count); err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Fatalf("count after delete = %d, want 1", count)
	}

	ids, err := ResolveBM25IDs(ctx, store, []string{"d1", "d2"})
	if err != nil {
		t.Fatalf("ResolveBM25IDs: %v", err)
	}
	if _, ok := ids["d1"]; ok {
		t.Fatal("deleted document should not resolve a bm25id")
	}
}
