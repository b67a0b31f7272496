// Package index builds and maintains the BM25 inverted index over a corpus
// namespace (documents or queries): the term dictionary, per-document
// lengths, postings, corpus statistics, and precomputed term/document
// scores. Everything here operates on a single namespace's schema; the
// caller picks which one (DocumentsSchema or QueriesSchema) per call.
package index

import (
	"context"
	"fmt"

	"github.com/lightonai/ducksearch/internal/settings"
	"github.com/lightonai/ducksearch/internal/storage"
)

// Namespace identifies which parallel index (over documents, or over
// queries) a call targets.
type Namespace string

const (
	DocumentsSchema Namespace = "bm25_documents"
	QueriesSchema   Namespace = "bm25_queries"
)

// EnsureSchema creates every table and sequence an index namespace needs.
func EnsureSchema(ctx context.Context, db storage.Driver, ns Namespace) error {
	schema := string(ns)
	stmts := []string{
		fmt.Sprintf("CREATE SCHEMA IF NOT EXISTS %s", schema),
		fmt.Sprintf("CREATE SEQUENCE IF NOT EXISTS %s.termid_seq", schema),
		fmt.Sprintf("CREATE SEQUENCE IF NOT EXISTS %s.bm25id_seq", schema),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.stopwords (word VARCHAR PRIMARY KEY)`, schema),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.dict (
			term VARCHAR PRIMARY KEY,
			termid BIGINT UNIQUE NOT NULL
		)`, schema),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.docs (
			bm25id BIGINT PRIMARY KEY,
			length BIGINT NOT NULL
		)`, schema),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.terms (
			termid BIGINT NOT NULL,
			bm25id BIGINT NOT NULL,
			tf INTEGER NOT NULL,
			PRIMARY KEY (termid, bm25id)
		)`, schema),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.stats (
			num_docs BIGINT NOT NULL,
			avgdl DOUBLE NOT NULL
		)`, schema),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.scores (
			termid BIGINT NOT NULL,
			bm25id BIGINT NOT NULL,
			score FLOAT NOT NULL,
			PRIMARY KEY (termid, bm25id)
		)`, schema),
	}
	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("index: ensure schema %s: %w", schema, err)
		}
	}
	if err := settings.EnsureSchema(ctx, db, schema); err != nil {
		return fmt.Errorf("index: ensure settings schema %s: %w", schema, err)
	}
	return nil
}
