// Package corpus owns the source-of-truth tables an index is built over:
// documents, queries, and the document-query relevance edges used by graph
// search. These tables never hold BM25 state themselves — only a
// once-assigned bm25id pointing into the matching internal/index namespace.
package corpus

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/apache/arrow-go/v18/arrow"

	"github.com/lightonai/ducksearch/internal/storage"
)

// Schema is the fixed schema name corpus tables live in, mirroring the
// original implementation's "bm25_tables" namespace.
const Schema = "bm25_tables"

// DefaultFieldType is used for any document field the caller doesn't
// override via fieldTypes.
const DefaultFieldType = "VARCHAR"

// EnsureSchema creates the corpus schema and its three tables if absent.
func EnsureSchema(ctx context.Context, db storage.Driver) error {
	stmts := []string{
		fmt.Sprintf("CREATE SCHEMA IF NOT EXISTS %s", Schema),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.documents (
			id VARCHAR PRIMARY KEY,
			bm25id BIGINT UNIQUE
		)`, Schema),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.queries (
			id VARCHAR PRIMARY KEY,
			bm25id BIGINT UNIQUE,
			query VARCHAR NOT NULL
		)`, Schema),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.documents_queries (
			document_id VARCHAR NOT NULL,
			query_id VARCHAR NOT NULL,
			score DOUBLE NOT NULL,
			PRIMARY KEY (document_id, query_id)
		)`, Schema),
	}
	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("corpus: ensure schema: %w", err)
		}
	}
	return nil
}

// EnsureDocumentFields adds a column for each name in fields that documents
// doesn't already have, typed from fieldTypes and defaulting to VARCHAR when
// a field has no declared type. Entries of fieldTypes not named in fields
// are not added.
// Existing columns are left untouched — fields only ever grow.
func EnsureDocumentFields(ctx context.Context, db storage.Driver, fields []string, fieldTypes map[string]string) error {
	for _, field := range fields {
		if field == "id" {
			continue
		}
		typ := fieldTypes[field]
		if typ == "" {
			typ = DefaultFieldType
		}
		stmt := fmt.Sprintf("ALTER TABLE %s.documents ADD COLUMN IF NOT EXISTS %s %s", Schema, quoteIdent(field), typ)
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("corpus: add column %s: %w", field, err)
		}
	}
	return nil
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// Document is one row destined for the documents table: Key identifies it
// and Fields holds every other column by name.
type Document struct {
	Key    string
	Fields map[string]any
}

// InsertBatchSize is how many documents InsertDocuments stages into one
// parquet file and bulk-loads at a time (every field is staged as a string
// column), the parquet shard size the original implementation uses for
// document ingest.
const InsertBatchSize = 30_000

// InsertDocuments stages and upserts documents in batches of
// InsertBatchSize, adding any new fields as columns first.
func InsertDocuments(ctx context.Context, store *storage.Store, stageDir string, docs []Document, fieldTypes map[string]string) error {
	if len(docs) == 0 {
		return nil
	}

	fieldSet := map[string]struct{}{}
	for _, d := range docs {
		for f := range d.Fields {
			fieldSet[f] = struct{}{}
		}
	}
	fields := make([]string, 0, len(fieldSet))
	for f := range fieldSet {
		fields = append(fields, f)
	}

	if err := EnsureDocumentFields(ctx, store, fields, fieldTypes); err != nil {
		return err
	}

	columns := make([]storage.Column, 0, len(fields)+1)
	columns = append(columns, storage.Column{Name: "id", Type: arrow.BinaryTypes.String})
	for _, f := range fields {
		columns = append(columns, storage.Column{Name: f, Type: arrow.BinaryTypes.String})
	}

	for start := 0; start < len(docs); start += InsertBatchSize {
		end := min(start+InsertBatchSize, len(docs))
		batch := docs[start:end]

		rows := make([]storage.Row, len(batch))
		for i, d := range batch {
			row := storage.Row{"id": d.Key}
			for _, f := range fields {
				if v, ok := d.Fields[f]; ok {
					row[f] = fmt.Sprint(v)
				}
			}
			rows[i] = row
		}

		path, err := storage.StageRows(stageDir, columns, rows)
		if err != nil {
			return fmt.Errorf("corpus: stage documents: %w", err)
		}

		setClauses := make([]string, len(fields))
		for i, f := range fields {
			ident := quoteIdent(f)
			setClauses[i] = fmt.Sprintf("%s = EXCLUDED.%s", ident, ident)
		}
		onConflict := "DO NOTHING"
		if len(setClauses) > 0 {
			onConflict = "DO UPDATE SET " + strings.Join(setClauses, ", ")
		}

		query := fmt.Sprintf(
			"INSERT INTO %s.documents BY NAME SELECT * FROM read_parquet($1) ON CONFLICT (id) %s",
			Schema, onConflict)

		err = store.WithTx(ctx, func(tx *sql.Tx) error {
			return storage.BulkLoad(ctx, tx, query, path)
		})
		if err != nil {
			return fmt.Errorf("corpus: load documents batch: %w", err)
		}
	}
	return nil
}

// InsertQueries upserts query text rows, ignoring ones already present. The
// query text itself is the primary key: two calls with the same text are
// idempotent, matching how upload.queries dedupes by value.
func InsertQueries(ctx context.Context, store *storage.Store, stageDir string, queries []string) error {
	if len(queries) == 0 {
		return nil
	}
	columns := []storage.Column{{Name: "query", Type: arrow.BinaryTypes.String}}
	rows := make([]storage.Row, len(queries))
	for i, q := range queries {
		rows[i] = storage.Row{"query": q}
	}
	path, err := storage.StageRows(stageDir, columns, rows)
	if err != nil {
		return fmt.Errorf("corpus: stage queries: %w", err)
	}

	query := fmt.Sprintf(
		`INSERT INTO %s.queries (id, query)
		 SELECT query, query FROM read_parquet($1)
		 ON CONFLICT (id) DO NOTHING`, Schema)

	return store.WithTx(ctx, func(tx *sql.Tx) error {
		return storage.BulkLoad(ctx, tx, query, path)
	})
}

// Edge is one document-query relevance judgement.
type Edge struct {
	DocumentID string
	QueryText  string
	Score      float64
}

// InsertDocumentsQueries records relevance edges, auto-inserting any query
// text not already in the queries table (the edge is useless without a
// queries row to join through at graph-search time).
func InsertDocumentsQueries(ctx context.Context, store *storage.Store, stageDir string, edges []Edge) error {
	if len(edges) == 0 {
		return nil
	}

	seen := map[string]struct{}{}
	var queryTexts []string
	for _, e := range edges {
		if _, ok := seen[e.QueryText]; !ok {
			seen[e.QueryText] = struct{}{}
			queryTexts = append(queryTexts, e.QueryText)
		}
	}
	if err := InsertQueries(ctx, store, stageDir, queryTexts); err != nil {
		return err
	}

	columns := []storage.Column{
		{Name: "document_id", Type: arrow.BinaryTypes.String},
		{Name: "query_id", Type: arrow.BinaryTypes.String},
		{Name: "score", Type: arrow.PrimitiveTypes.Float64},
	}
	rows := make([]storage.Row, len(edges))
	for i, e := range edges {
		rows[i] = storage.Row{"document_id": e.DocumentID, "query_id": e.QueryText, "score": e.Score}
	}
	path, err := storage.StageRows(stageDir, columns, rows)
	if err != nil {
		return fmt.Errorf("corpus: stage document-query edges: %w", err)
	}

	query := fmt.Sprintf(
		`INSERT INTO %s.documents_queries
		 SELECT * FROM read_parquet($1)
		 ON CONFLICT (document_id, query_id) DO UPDATE SET score = EXCLUDED.score`, Schema)

	return store.WithTx(ctx, func(tx *sql.Tx) error {
		return storage.BulkLoad(ctx, tx, query, path)
	})
}

// InsertDocumentsFromParquet upserts documents directly from one or more
// already-existing parquet files (a glob such as "shards/*.parquet"),
// without restaging through internal/storage.StageRows — the files are
// already in the format DuckDB's read_parquet wants. This is the path a
// caller uses to ingest a dataset that's already been exported to parquet
// (e.g. a Hugging Face dataset snapshot) instead of passing rows in memory.
// The source files must have an "id" column; every other column becomes a
// document field, added via EnsureDocumentFields first.
func InsertDocumentsFromParquet(ctx context.Context, store *storage.Store, glob string, fieldTypes map[string]string) error {
	describeQuery := fmt.Sprintf("SELECT column_name FROM (DESCRIBE SELECT * FROM read_parquet('%s'))", strings.ReplaceAll(glob, "'", "''"))
	rows, err := store.QueryContext(ctx, describeQuery)
	if err != nil {
		return fmt.Errorf("corpus: describe parquet glob %s: %w", glob, err)
	}
	var fields []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			rows.Close()
			return err
		}
		if name != "id" {
			fields = append(fields, name)
		}
	}
	if err := rows.Err(); err != nil {
		return err
	}
	rows.Close()

	if err := EnsureDocumentFields(ctx, store, fields, fieldTypes); err != nil {
		return err
	}

	setClauses := make([]string, len(fields))
	for i, f := range fields {
		ident := quoteIdent(f)
		setClauses[i] = fmt.Sprintf("%s = EXCLUDED.%s", ident, ident)
	}
	onConflict := "DO NOTHING"
	if len(setClauses) > 0 {
		onConflict = "DO UPDATE SET " + strings.Join(setClauses, ", ")
	}

	query := fmt.Sprintf(
		"INSERT INTO %s.documents BY NAME SELECT * FROM read_parquet($1) ON CONFLICT (id) %s",
		Schema, onConflict)

	return store.WithTx(ctx, func(tx *sql.Tx) error {
		return storage.BulkLoad(ctx, tx, query, glob)
	})
}

// DeleteRows removes rows from the named corpus table (e.g.
// "bm25_tables.documents" or "bm25_tables.queries") by primary key. Callers
// must have already removed any referencing index rows (internal/index's
// deletion cascade) before calling this — the corpus row is deleted last,
// exactly as scores/terms/docs are deleted before it.
func DeleteRows(ctx context.Context, tx *sql.Tx, table string, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	placeholders := make([]string, len(ids))
	args := make([]any, len(ids))
	for i, id := range ids {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args[i] = id
	}
	query := fmt.Sprintf("DELETE FROM %s WHERE id IN (%s)", table, strings.Join(placeholders, ", "))
	_, err := tx.ExecContext(ctx, query, args...)
	return err
}

// DeleteDocuments removes rows from the documents table by key.
func DeleteDocuments(ctx context.Context, tx *sql.Tx, ids []string) error {
	return DeleteRows(ctx, tx, Schema+".documents", ids)
}

// ResolveBM25IDs looks up the bm25id assigned to each document id, omitting
// ids that haven't been indexed yet (bm25id IS NULL or the row is absent).
func ResolveBM25IDs(ctx context.Context, db storage.Driver, ids []string) (map[string]int64, error) {
	out := map[string]int64{}
	if len(ids) == 0 {
		return out, nil
	}
	placeholders := make([]string, len(ids))
	args := make([]any, len(ids))
	for i, id := range ids {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args[i] = id
	}
	query := fmt.Sprintf(
		"SELECT id, bm25id FROM %s.documents WHERE id IN (%s) AND bm25id IS NOT NULL",
		Schema, strings.Join(placeholders, ", "))

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var id string
		var bm25id int64
		if err := rows.Scan(&id, &bm25id); err != nil {
			return nil, err
		}
		out[id] = bm25id
	}
	return out, rows.Err()
}
