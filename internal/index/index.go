package index

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/apache/arrow-go/v18/arrow"

	"github.com/lightonai/ducksearch/internal/corpus"
	"github.com/lightonai/ducksearch/internal/settings"
	"github.com/lightonai/ducksearch/internal/storage"
	"github.com/lightonai/ducksearch/internal/tokenize"
)

// SourceRow is one not-yet-indexed corpus row: ID is the corpus primary
// key, Text is the already-concatenated text of every field update_index
// should tokenize.
type SourceRow struct {
	ID   string
	Text string
}

// BatchSize is the default number of source rows tokenized and staged per
// transaction, matching the original implementation's ingest batching.
const BatchSize = 10_000

// ResolveSettings loads the namespace's persisted settings, writing the
// defaults on first use, and returns the tokenizer-ready form.
func ResolveSettings(ctx context.Context, db storage.Driver, ns Namespace) (tokenize.Settings, settings.Settings, error) {
	stored, err := settings.SaveOrWarn(ctx, db, string(ns), settings.Default())
	if err != nil {
		return tokenize.Settings{}, settings.Settings{}, err
	}
	resolved, err := stored.Resolve()
	if err != nil {
		return tokenize.Settings{}, settings.Settings{}, err
	}
	return resolved, stored, nil
}

// UpdateIndex tokenizes rows, assigns each a bm25id, records its postings
// and length, backfills bm25id onto corpusTable (e.g. "bm25_tables.documents"
// or "bm25_tables.queries"), and recomputes every term's BM25 score. Rows
// are processed in batches of BatchSize so memory stays bounded regardless
// of corpus size. It returns the number of rows indexed.
func UpdateIndex(ctx context.Context, store *storage.Store, ns Namespace, corpusTable string, stageDir string, rows []SourceRow) (int, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	tok, cfg, err := ResolveSettings(ctx, store, ns)
	if err != nil {
		return 0, err
	}

	indexed := 0
	for start := 0; start < len(rows); start += BatchSize {
		end := min(start+BatchSize, len(rows))
		batch := rows[start:end]

		lengthCols := []storage.Column{
			{Name: "id", Type: arrow.BinaryTypes.String},
			{Name: "length", Type: arrow.PrimitiveTypes.Int64},
		}
		postingCols := []storage.Column{
			{Name: "id", Type: arrow.BinaryTypes.String},
			{Name: "term", Type: arrow.BinaryTypes.String},
			{Name: "tf", Type: arrow.PrimitiveTypes.Int32},
		}

		var lengthRows, postingRows []storage.Row
		for _, r := range batch {
			terms, err := tokenize.Tokenize(r.Text, tok)
			if err != nil {
				return indexed, fmt.Errorf("index: tokenize %s: %w", r.ID, err)
			}
			length, tf := tokenize.TermFrequencies(terms)
			lengthRows = append(lengthRows, storage.Row{"id": r.ID, "length": int64(length)})
			for term, count := range tf {
				postingRows = append(postingRows, storage.Row{"id": r.ID, "term": term, "tf": count})
			}
		}

		lengthPath, err := storage.StageRows(stageDir, lengthCols, lengthRows)
		if err != nil {
			return indexed, fmt.Errorf("index: stage lengths: %w", err)
		}
		postingPath, err := storage.StageRows(stageDir, postingCols, postingRows)
		if err != nil {
			return indexed, fmt.Errorf("index: stage postings: %w", err)
		}

		schema := string(ns)
		err = store.WithTx(ctx, func(tx *sql.Tx) error {
			if _, err := tx.ExecContext(ctx, "DROP TABLE IF EXISTS new_docs"); err != nil {
				return err
			}
			createNewDocs := fmt.Sprintf(
				`CREATE TEMP TABLE new_docs AS
				 SELECT id AS source_id, length, nextval('%s.bm25id_seq') AS bm25id
				 FROM read_parquet($1)`, schema)
			if err := storage.BulkLoad(ctx, tx, createNewDocs, lengthPath); err != nil {
				return err
			}

			if _, err := tx.ExecContext(ctx,
				fmt.Sprintf("INSERT INTO %s.docs SELECT bm25id, length FROM new_docs", schema)); err != nil {
				return fmt.Errorf("insert docs: %w", err)
			}

			backfill := fmt.Sprintf(
				`UPDATE %s SET bm25id = new_docs.bm25id
				 FROM new_docs WHERE %s.id = new_docs.source_id`, corpusTable, corpusTable)
			if _, err := tx.ExecContext(ctx, backfill); err != nil {
				return fmt.Errorf("backfill bm25id: %w", err)
			}

			if _, err := tx.ExecContext(ctx, "DROP TABLE IF EXISTS new_terms"); err != nil {
				return err
			}
			createNewTerms := `CREATE TEMP TABLE new_terms AS SELECT DISTINCT term FROM read_parquet($1)`
			if err := storage.BulkLoad(ctx, tx, createNewTerms, postingPath); err != nil {
				return err
			}

			insertDict := fmt.Sprintf(
				`INSERT INTO %s.dict
				 SELECT term, nextval('%s.termid_seq') FROM new_terms
				 WHERE term NOT IN (SELECT term FROM %s.dict)`, schema, schema, schema)
			if _, err := tx.ExecContext(ctx, insertDict); err != nil {
				return fmt.Errorf("insert dict: %w", err)
			}

			insertTerms := fmt.Sprintf(
				`INSERT INTO %s.terms
				 SELECT d.termid, nd.bm25id, p.tf
				 FROM read_parquet($1) p
				 JOIN %s.dict d ON d.term = p.term
				 JOIN new_docs nd ON nd.source_id = p.id`, schema, schema)
			if err := storage.BulkLoad(ctx, tx, insertTerms, postingPath); err != nil {
				return err
			}

			if err := recomputeStats(ctx, tx, schema); err != nil {
				return err
			}
			if err := rescoreAll(ctx, tx, schema, cfg.K1, cfg.B, ScoreBatchSize); err != nil {
				return err
			}

			tx.ExecContext(ctx, "DROP TABLE IF EXISTS new_docs")
			tx.ExecContext(ctx, "DROP TABLE IF EXISTS new_terms")
			return nil
		})
		if err != nil {
			return indexed, fmt.Errorf("index: update batch: %w", err)
		}
		indexed += len(batch)
		slog.Info("index: batch indexed", "namespace", ns, "count", len(batch))
	}

	return indexed, nil
}

func recomputeStats(ctx context.Context, tx *sql.Tx, schema string) error {
	if _, err := tx.ExecContext(ctx, fmt.Sprintf("DELETE FROM %s.stats", schema)); err != nil {
		return fmt.Errorf("clear stats: %w", err)
	}
	insert := fmt.Sprintf(
		`INSERT INTO %s.stats
		 SELECT count(*), COALESCE(avg(length), 0) FROM %s.docs`, schema, schema)
	if _, err := tx.ExecContext(ctx, insert); err != nil {
		return fmt.Errorf("insert stats: %w", err)
	}
	return nil
}

// DeleteCorpus removes the given corpus ids: their scores, postings and doc
// rows are deleted from the index namespace first, stats are recomputed,
// and finally the corpus rows themselves are removed — the ordering the
// deletion protocol requires so a crash mid-delete never leaves a
// documents row pointing at index state that no longer exists.
func DeleteCorpus(ctx context.Context, store *storage.Store, ns Namespace, corpusTable string, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	schema := string(ns)

	return store.WithTx(ctx, func(tx *sql.Tx) error {
		placeholders, args := inClause(ids, 1)
		bm25Rows, err := tx.QueryContext(ctx,
			fmt.Sprintf("SELECT bm25id FROM %s WHERE id IN (%s) AND bm25id IS NOT NULL", corpusTable, placeholders),
			args...)
		if err != nil {
			return err
		}
		var bm25ids []int64
		for bm25Rows.Next() {
			var id int64
			if err := bm25Rows.Scan(&id); err != nil {
				bm25Rows.Close()
				return err
			}
			bm25ids = append(bm25ids, id)
		}
		if err := bm25Rows.Err(); err != nil {
			bm25Rows.Close()
			return err
		}
		bm25Rows.Close()

		if len(bm25ids) > 0 {
			idPlaceholders, idArgs := inClauseInt64(bm25ids, 1)
			if _, err := tx.ExecContext(ctx,
				fmt.Sprintf("DELETE FROM %s.scores WHERE bm25id IN (%s)", schema, idPlaceholders), idArgs...); err != nil {
				return fmt.Errorf("delete scores: %w", err)
			}
			if _, err := tx.ExecContext(ctx,
				fmt.Sprintf("DELETE FROM %s.terms WHERE bm25id IN (%s)", schema, idPlaceholders), idArgs...); err != nil {
				return fmt.Errorf("delete terms: %w", err)
			}
			if _, err := tx.ExecContext(ctx,
				fmt.Sprintf("DELETE FROM %s.docs WHERE bm25id IN (%s)", schema, idPlaceholders), idArgs...); err != nil {
				return fmt.Errorf("delete docs: %w", err)
			}
			if err := recomputeStats(ctx, tx, schema); err != nil {
				return err
			}
		}

		return corpus.DeleteRows(ctx, tx, corpusTable, ids)
	})
}

func inClause(values []string, startAt int) (string, []any) {
	placeholders := make([]string, len(values))
	args := make([]any, len(values))
	for i, v := range values {
		placeholders[i] = fmt.Sprintf("$%d", startAt+i)
		args[i] = v
	}
	return joinComma(placeholders), args
}

func inClauseInt64(values []int64, startAt int) (string, []any) {
	placeholders := make([]string, len(values))
	args := make([]any, len(values))
	for i, v := range values {
		placeholders[i] = fmt.Sprintf("$%d", startAt+i)
		args[i] = v
	}
	return joinComma(placeholders), args
}

func joinComma(parts []string) string {
	out := ""
	for i, p := range parts {
		if i > 0 {
			out += ", "
		}
		out += p
	}
	return out
}
