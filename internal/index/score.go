package index

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lightonai/ducksearch/internal/settings"
)

// ScoreBatchSize bounds how many termids are rescored in a single DELETE +
// INSERT pass. Termids are dense and monotonic (dict.termid is never
// reused), so batches are defined as contiguous termid ranges rather than
// an explicit IN-list — cheap to generate and cheap for DuckDB to plan
// against the primary key.
const ScoreBatchSize = 10_000

// rescoreAll recomputes every row of schema.scores in batches of batchSize
// termids. Run after any change to docs/terms/stats, since avgdl and every
// term's document frequency are corpus-wide quantities: a single new
// document can shift the score of every existing term.
func rescoreAll(ctx context.Context, tx *sql.Tx, schema string, k1, b float64, batchSize int) error {
	var minID, maxID sql.NullInt64
	row := tx.QueryRowContext(ctx, fmt.Sprintf("SELECT min(termid), max(termid) FROM %s.dict", schema))
	if err := row.Scan(&minID, &maxID); err != nil {
		return fmt.Errorf("score range: %w", err)
	}
	if !minID.Valid {
		return nil // empty dict, nothing to score
	}

	for lo := minID.Int64; lo <= maxID.Int64; lo += int64(batchSize) {
		hi := lo + int64(batchSize) - 1

		if _, err := tx.ExecContext(ctx,
			fmt.Sprintf("DELETE FROM %s.scores WHERE termid BETWEEN $1 AND $2", schema), lo, hi); err != nil {
			return fmt.Errorf("delete score batch: %w", err)
		}

		insert := fmt.Sprintf(`
			INSERT INTO %s.scores
			SELECT t.termid, t.bm25id,
				CAST(
					ln((s.num_docs - df.df + 0.5) / (df.df + 0.5) + 1)
					* (t.tf * ($3 + 1))
					/ (t.tf + $3 * (1 - $4 + $4 * d.length / s.avgdl))
				AS FLOAT) AS score
			FROM %s.terms t
			JOIN (
				SELECT termid, count(*) AS df
				FROM %s.terms
				WHERE termid BETWEEN $1 AND $2
				GROUP BY termid
			) df ON df.termid = t.termid
			JOIN %s.docs d ON d.bm25id = t.bm25id
			CROSS JOIN %s.stats s
			WHERE t.termid BETWEEN $1 AND $2 AND df.df <= $5
		`, schema, schema, schema, schema, schema)

		if _, err := tx.ExecContext(ctx, insert, lo, hi, k1, b, settings.MaxDF); err != nil {
			return fmt.Errorf("insert score batch: %w", err)
		}
	}
	return nil
}
