// Package storage owns the single DuckDB connection each index database
// uses and the retry/locking discipline around it. Every other package in
// this module reaches the database through a *Store rather than importing
// database/sql directly, the same ownership shape the teacher's
// store/duckdb.Store follows for its own schema.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	_ "github.com/duckdb/duckdb-go/v2"
)

// Driver is the storage surface the rest of the module depends on. *Store
// satisfies it; tests may substitute a fake.
type Driver interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	WithTx(ctx context.Context, fn func(*sql.Tx) error) error
	Close() error
}

// Store wraps a single DuckDB file (or in-memory database when Path is
// empty). A read-write Store limits its pool to a single connection
// (SetMaxOpenConns(1)): DuckDB allows one writer connection at a time per
// file, so every statement, mutating or not, runs on that one connection.
type Store struct {
	db     *sql.DB
	path   string
	lock   *fileLock
	readOnly bool
}

// Options configures how a Store opens its underlying connection.
type Options struct {
	// ReadOnly opens the database in access_mode=READ_ONLY, for the
	// parallel query/shard workers that never mutate the index.
	ReadOnly bool
	// MaxRetries and InitialBackoff govern the retry loop Open uses when
	// the database file is transiently locked by another process.
	MaxRetries     int
	InitialBackoff time.Duration
}

// DefaultOptions mirrors the retry budget called out in the concurrency
// notes: up to 30 retries after the first attempt, starting at 100ms and
// doubling, capped at 5s.
func DefaultOptions() Options {
	return Options{MaxRetries: 30, InitialBackoff: 100 * time.Millisecond}
}

// Open connects to the DuckDB file at path (empty = in-memory), retrying on
// transient I/O errors with exponential backoff. For a read-write open it
// also acquires the advisory writer lock for path (see lock_unix.go).
func Open(ctx context.Context, path string, opts Options) (*Store, error) {
	if opts.MaxRetries == 0 && opts.InitialBackoff == 0 {
		readOnly := opts.ReadOnly
		opts = DefaultOptions()
		opts.ReadOnly = readOnly
	}

	dsn := path
	if opts.ReadOnly && path != "" {
		dsn = path + "?access_mode=READ_ONLY"
	}

	var lock *fileLock
	if !opts.ReadOnly && path != "" {
		var err error
		lock, err = acquireFileLock(path + ".lock")
		if err != nil {
			return nil, fmt.Errorf("%w: acquire writer lock for %s: %v", ErrStorageUnavailable, path, err)
		}
	}

	db, err := retry(ctx, opts, func() (*sql.DB, error) {
		db, err := sql.Open("duckdb", dsn)
		if err != nil {
			return nil, err
		}
		if err := db.PingContext(ctx); err != nil {
			db.Close()
			return nil, err
		}
		return db, nil
	})
	if err != nil {
		if lock != nil {
			lock.release()
		}
		return nil, fmt.Errorf("%w: open %s: %v", ErrStorageUnavailable, path, err)
	}

	if !opts.ReadOnly {
		db.SetMaxOpenConns(1)
	}

	return &Store{db: db, path: path, lock: lock, readOnly: opts.ReadOnly}, nil
}

func retry(ctx context.Context, opts Options, fn func() (*sql.DB, error)) (*sql.DB, error) {
	backoff := opts.InitialBackoff
	var lastErr error
	for attempt := 0; attempt <= opts.MaxRetries; attempt++ {
		db, err := fn()
		if err == nil {
			return db, nil
		}
		if !isTransient(err) {
			return nil, err
		}
		lastErr = err
		slog.Warn("storage: transient open failure, retrying", "attempt", attempt, "error", err)

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
		if backoff > 5*time.Second {
			backoff = 5 * time.Second
		}
	}
	return nil, lastErr
}

func isTransient(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "lock") || strings.Contains(msg, "busy") || strings.Contains(msg, "conflict")
}

// ExecContext executes a statement outside any explicit transaction.
func (s *Store) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return s.db.ExecContext(ctx, query, args...)
}

// QueryContext runs a query outside any explicit transaction.
func (s *Store) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return s.db.QueryContext(ctx, query, args...)
}

// QueryRowContext runs a single-row query outside any explicit transaction.
func (s *Store) QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row {
	return s.db.QueryRowContext(ctx, query, args...)
}

// WithTx runs fn inside a transaction, committing on success and rolling
// back on any error (including a panic, which is re-raised after rollback).
// Every multi-statement mutation in this module (corpus upserts, index
// updates, deletions) goes through WithTx so a failure midway never leaves
// the schema half migrated.
func (s *Store) WithTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin tx: %v", ErrStorageUnavailable, err)
	}
	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			slog.Error("storage: rollback failed after tx error", "original_error", err, "rollback_error", rbErr)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit tx: %v", ErrStorageUnavailable, err)
	}
	return nil
}

// DB exposes the underlying connection pool for packages (corpus, index,
// engine) that need to build schema-qualified queries directly; Store
// itself stays schema-agnostic.
func (s *Store) DB() *sql.DB { return s.db }

// Path reports the file this Store was opened against ("" for in-memory).
func (s *Store) Path() string { return s.path }

// Close releases the connection pool and, for a writer Store, the advisory
// file lock acquired in Open.
func (s *Store) Close() error {
	err := s.db.Close()
	if s.lock != nil {
		if lerr := s.lock.release(); lerr != nil && err == nil {
			err = lerr
		}
	}
	return err
}

// Sentinel errors matching the error kinds called out for the storage
// layer; callers use errors.Is against these to branch on retryability.
var (
	ErrStorageUnavailable = errors.New("storage: unavailable")
	ErrTransientIO        = errors.New("storage: transient I/O error")
	ErrBulkLoadFailure    = errors.New("storage: bulk load failure")
)
