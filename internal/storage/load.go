package storage

import (
	"context"
	"database/sql"
	"fmt"
)

// BulkLoad runs a query that reads a staged parquet file (via DuckDB's
// read_parquet($1) table function) inside tx, wrapping any failure as
// ErrBulkLoadFailure. query must reference the parquet path as its sole
// positional parameter.
func BulkLoad(ctx context.Context, tx *sql.Tx, query string, parquetPath string) error {
	if _, err := tx.ExecContext(ctx, query, parquetPath); err != nil {
		return fmt.Errorf("%w: %v", ErrBulkLoadFailure, err)
	}
	return nil
}
