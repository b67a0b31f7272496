package storage

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/apache/arrow-go/v18/arrow"
)

var errIntentional = errors.New("intentional test failure")

func TestOpenInMemory(t *testing.T) {
	store, err := Open(context.Background(), "", Options{MaxRetries: 1})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer store.Close()

	if _, err := store.ExecContext(context.Background(), "CREATE TABLE t (id INTEGER)"); err != nil {
		t.Fatalf("ExecContext: %v", err)
	}
}

func TestWithTxRollsBackOnError(t *testing.T) {
	store, err := Open(context.Background(), "", Options{MaxRetries: 1})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer store.Close()
	ctx := context.Background()

	if _, err := store.ExecContext(ctx, "CREATE TABLE t (id INTEGER)"); err != nil {
		t.Fatalf("create table: %v", err)
	}

	err = store.WithTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, "INSERT INTO t VALUES (1)"); err != nil {
			return err
		}
		return errIntentional
	})
	if err == nil {
		t.Fatal("expected WithTx to propagate the function error")
	}

	var count int
	row := store.QueryRowContext(ctx, "SELECT count(*) FROM t")
	if err := row.Scan(&count); err != nil {
		t.Fatalf("scan: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected rollback to discard the insert, got count=%d", count)
	}
}

func TestStageRowsAndBulkLoad(t *testing.T) {
	dir, _, cleanup, err := NewRunDir(t.TempDir())
	if err != nil {
		t.Fatalf("NewRunDir: %v", err)
	}
	defer cleanup()

	columns := []Column{
		{Name: "id", Type: arrow.BinaryTypes.String},
		{Name: "length", Type: arrow.PrimitiveTypes.Int64},
	}
	rows := []Row{
		{"id": "doc-1", "length": int64(10)},
		{"id": "doc-2", "length": int64(20)},
	}

	path, err := StageRows(dir, columns, rows)
	if err != nil {
		t.Fatalf("StageRows: %v", err)
	}

	store, err := Open(context.Background(), "", Options{MaxRetries: 1})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer store.Close()
	ctx := context.Background()

	if _, err := store.ExecContext(ctx, "CREATE TABLE staged (id VARCHAR, length BIGINT)"); err != nil {
		t.Fatalf("create table: %v", err)
	}

	err = store.WithTx(ctx, func(tx *sql.Tx) error {
		return BulkLoad(ctx, tx, "INSERT INTO staged SELECT * FROM read_parquet($1)", path)
	})
	if err != nil {
		t.Fatalf("BulkLoad: %v", err)
	}

	var count int
	if err := store.QueryRowContext(ctx, "SELECT count(*) FROM staged").Scan(&count); err != nil {
		t.Fatalf("scan: %v", err)
	}
	if count != 2 {
		t.Fatalf("count = %d, want 2", count)
	}
}
