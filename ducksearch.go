// Package ducksearch is a persistent BM25 full-text search engine built on
// an embedded DuckDB file: upload documents and queries, build an inverted
// index over either, search by term overlap, and walk one hop through
// recorded query/document relevance to surface documents a similar past
// query was judged relevant for.
package ducksearch

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/lightonai/ducksearch/internal/corpus"
	"github.com/lightonai/ducksearch/internal/engine"
	"github.com/lightonai/ducksearch/internal/index"
	"github.com/lightonai/ducksearch/internal/settings"
	"github.com/lightonai/ducksearch/internal/storage"
)

// Hit and SearchOptions are re-exported so callers never need to import
// internal/engine directly.
type Hit = engine.Hit
type SearchOptions = engine.SearchOptions

// Settings is re-exported so callers can build the configuration passed to
// ConfigureDocuments and ConfigureQueries without importing internal/settings.
type Settings = settings.Settings

// DefaultSearchOptions returns the library's default ranking parameters.
func DefaultSearchOptions() SearchOptions { return engine.DefaultSearchOptions() }

// DB is an open connection to one ducksearch database file.
type DB struct {
	store         *storage.Store
	stageDir      string
	indexedFields []string
}

// Option configures Open.
type Option func(*config)

type config struct {
	stageDir      string
	indexedFields []string
	readOnly      bool
}

// WithStageDir sets the directory parquet staging files are written under
// during ingest and search. Defaults to the OS temp directory.
func WithStageDir(dir string) Option {
	return func(c *config) { c.stageDir = dir }
}

// WithIndexedFields declares which document fields update_index
// concatenates and tokenizes. Fields not listed are still stored and
// returned with hits, just never matched against.
func WithIndexedFields(fields ...string) Option {
	return func(c *config) { c.indexedFields = fields }
}

// WithReadOnly opens the database for search only; uploads and index
// updates will fail.
func WithReadOnly() Option {
	return func(c *config) { c.readOnly = true }
}

// Open connects to the database at path (empty = in-memory) and ensures
// the corpus and index schemas exist.
func Open(ctx context.Context, path string, opts ...Option) (*DB, error) {
	cfg := config{stageDir: "", indexedFields: nil}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.stageDir == "" {
		cfg.stageDir = os.TempDir()
	}

	store, err := storage.Open(ctx, path, storage.Options{ReadOnly: cfg.readOnly})
	if err != nil {
		return nil, err
	}

	if !cfg.readOnly {
		if err := corpus.EnsureSchema(ctx, store); err != nil {
			store.Close()
			return nil, err
		}
		if err := index.EnsureSchema(ctx, store, index.DocumentsSchema); err != nil {
			store.Close()
			return nil, err
		}
		if err := index.EnsureSchema(ctx, store, index.QueriesSchema); err != nil {
			store.Close()
			return nil, err
		}
	}

	return &DB{store: store, stageDir: cfg.stageDir, indexedFields: cfg.indexedFields}, nil
}

// Close releases the database connection and its writer lock.
func (db *DB) Close() error { return db.store.Close() }

// UploadDocuments upserts rows into the documents corpus by key, adding any
// new fields as columns. This does not update the search index itself —
// call UpdateIndexDocuments afterward to make new or changed rows
// searchable.
func (db *DB) UploadDocuments(ctx context.Context, key string, rows []map[string]any, fieldTypes map[string]string) error {
	docs := make([]corpus.Document, len(rows))
	for i, r := range rows {
		id, ok := r[key].(string)
		if !ok {
			return fmt.Errorf("ducksearch: row %d missing string key field %q", i, key)
		}
		fields := make(map[string]any, len(r))
		for k, v := range r {
			if k != key {
				fields[k] = v
			}
		}
		docs[i] = corpus.Document{Key: id, Fields: fields}
	}
	return corpus.InsertDocuments(ctx, db.store, db.stageDir, docs, fieldTypes)
}

// UploadDocumentsParquet upserts documents directly from a glob of
// already-exported parquet files (e.g. a downloaded dataset snapshot)
// instead of in-memory rows, skipping the staging step since the source
// files are already in the format DuckDB's read_parquet expects. Like
// UploadDocuments, it does not update the search index itself.
func (db *DB) UploadDocumentsParquet(ctx context.Context, glob string, fieldTypes map[string]string) error {
	return corpus.InsertDocumentsFromParquet(ctx, db.store, glob, fieldTypes)
}

// UploadQueries inserts query text rows, deduplicating on text.
func (db *DB) UploadQueries(ctx context.Context, queries []string) error {
	return corpus.InsertQueries(ctx, db.store, db.stageDir, queries)
}

// UploadDocumentsQueries records relevance judgements, keyed by document id
// to a map of query text to score, auto-inserting any new query text.
func (db *DB) UploadDocumentsQueries(ctx context.Context, documentsQueries map[string]map[string]float64) error {
	var edges []corpus.Edge
	for docID, byQuery := range documentsQueries {
		for query, score := range byQuery {
			edges = append(edges, corpus.Edge{DocumentID: docID, QueryText: query, Score: score})
		}
	}
	return corpus.InsertDocumentsQueries(ctx, db.store, db.stageDir, edges)
}

// UpdateIndexDocuments tokenizes every not-yet-indexed document and folds
// it into the BM25 index, returning how many rows were indexed.
func (db *DB) UpdateIndexDocuments(ctx context.Context) (int, error) {
	return db.updateIndex(ctx, index.DocumentsSchema, "bm25_tables.documents", db.indexedFields)
}

// UpdateIndexQueries tokenizes every not-yet-indexed query and folds it
// into the query-side BM25 index (used by GraphSearch and SearchQueries).
func (db *DB) UpdateIndexQueries(ctx context.Context) (int, error) {
	return db.updateIndex(ctx, index.QueriesSchema, "bm25_tables.queries", []string{"query"})
}

func (db *DB) updateIndex(ctx context.Context, ns index.Namespace, table string, fields []string) (int, error) {
	textExpr := concatFieldsExpr(fields)
	query := fmt.Sprintf("SELECT id, %s AS indexed_text FROM %s WHERE bm25id IS NULL", textExpr, table)

	rows, err := db.store.QueryContext(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("ducksearch: select unindexed rows: %w", err)
	}
	defer rows.Close()

	var sourceRows []index.SourceRow
	for rows.Next() {
		var id, text string
		if err := rows.Scan(&id, &text); err != nil {
			return 0, err
		}
		sourceRows = append(sourceRows, index.SourceRow{ID: id, Text: text})
	}
	if err := rows.Err(); err != nil {
		return 0, err
	}

	return index.UpdateIndex(ctx, db.store, ns, table, db.stageDir, sourceRows)
}

func concatFieldsExpr(fields []string) string {
	if len(fields) == 0 {
		return "''"
	}
	quoted := make([]string, len(fields))
	for i, f := range fields {
		quoted[i] = `"` + strings.ReplaceAll(f, `"`, `""`) + `"`
	}
	return "concat_ws(' ', " + strings.Join(quoted, ", ") + ")"
}

// SearchDocuments scores queries against the document index.
func (db *DB) SearchDocuments(ctx context.Context, queries []string, opts SearchOptions) ([][]Hit, error) {
	e := engine.New(db.store, index.DocumentsSchema, "bm25_tables.documents", db.stageDir)
	return e.Search(ctx, queries, opts)
}

// SearchQueries scores queries against the historical-query index,
// surfacing similarly-phrased past queries rather than documents.
func (db *DB) SearchQueries(ctx context.Context, queries []string, opts SearchOptions) ([][]Hit, error) {
	e := engine.New(db.store, index.QueriesSchema, "bm25_tables.queries", db.stageDir)
	return e.Search(ctx, queries, opts)
}

// GraphSearch walks query -> similar historical query -> judged-relevant
// document, summing neighbour_score * edge_score per document.
func (db *DB) GraphSearch(ctx context.Context, queries []string, opts SearchOptions) ([][]Hit, error) {
	g := engine.NewGraphEngine(db.store, db.stageDir)
	return g.Search(ctx, queries, opts)
}

// DeleteDocuments removes documents and every index row referencing them.
func (db *DB) DeleteDocuments(ctx context.Context, ids []string) error {
	return index.DeleteCorpus(ctx, db.store, index.DocumentsSchema, "bm25_tables.documents", ids)
}

// DeleteQueries removes queries and every index row referencing them.
func (db *DB) DeleteQueries(ctx context.Context, ids []string) error {
	return index.DeleteCorpus(ctx, db.store, index.QueriesSchema, "bm25_tables.queries", ids)
}

// Settings reports the in-effect BM25 configuration for a namespace, so
// callers can tell whether a requested configuration actually took (see the
// write-once invariant in internal/settings).
func (db *DB) Settings(ctx context.Context, ns index.Namespace) (settings.Settings, bool, error) {
	return settings.Load(ctx, db.store, string(ns))
}

// ConfigureDocuments sets the BM25 configuration for the document index.
// Only the first call for a fresh database actually takes effect; later
// calls with different values are logged and ignored (write-once).
func (db *DB) ConfigureDocuments(ctx context.Context, s settings.Settings) (settings.Settings, error) {
	return settings.SaveOrWarn(ctx, db.store, string(index.DocumentsSchema), s)
}

// ConfigureQueries is ConfigureDocuments for the query index.
func (db *DB) ConfigureQueries(ctx context.Context, s settings.Settings) (settings.Settings, error) {
	return settings.SaveOrWarn(ctx, db.store, string(index.QueriesSchema), s)
}

// Stats reports row counts for every table ducksearch owns, used by the CLI
// to print a table-size report after index updates and deletes.
func (db *DB) Stats(ctx context.Context) (map[string]int64, error) {
	tables := []string{
		"bm25_tables.documents", "bm25_tables.queries", "bm25_tables.documents_queries",
		"bm25_documents.dict", "bm25_documents.docs", "bm25_documents.terms", "bm25_documents.scores",
		"bm25_queries.dict", "bm25_queries.docs", "bm25_queries.terms", "bm25_queries.scores",
	}
	out := make(map[string]int64, len(tables))
	for _, table := range tables {
		var count int64
		row := db.store.QueryRowContext(ctx, "SELECT count(*) FROM "+table)
		if err := row.Scan(&count); err != nil {
			return nil, fmt.Errorf("ducksearch: stats for %s: %w", table, err)
		}
		out[table] = count
	}
	return out, nil
}
