// Package settings models the write-once BM25 configuration for a single
// index namespace (documents or queries) and its persistence rules.
package settings

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/lightonai/ducksearch/internal/tokenize"
)

// Defaults, mirrored next to the struct they configure.
const (
	DefaultK1          = 1.5
	DefaultB           = 0.75
	DefaultIgnoreRegex = tokenize.DefaultIgnoreRegex
	// MaxDF bounds how common a term may be before it is dropped from
	// scoring entirely; terms above this document frequency behave like
	// stopwords the tokenizer didn't know about.
	MaxDF = 100_000
)

// Settings is the persisted BM25 configuration of one index namespace.
type Settings struct {
	K1              float64
	B               float64
	Stemmer         string
	StopwordsRef    string   // recognized language name, resolved at tokenize time
	CustomStopwords []string // explicit word list; wins over StopwordsRef when non-empty
	IgnoreRegex     string
	StripAccents    bool
	Lower           bool
}

// Default returns the settings a fresh namespace is created with when the
// caller supplies none.
func Default() Settings {
	return Settings{
		K1:           DefaultK1,
		B:            DefaultB,
		Stemmer:      "none",
		IgnoreRegex:  DefaultIgnoreRegex,
		StripAccents: true,
		Lower:        true,
	}
}

// Resolve converts the persisted form into the tokenizer's runtime form.
func (s Settings) Resolve() (tokenize.Settings, error) {
	stemmer, err := tokenize.NewStemmer(s.Stemmer)
	if err != nil {
		return tokenize.Settings{}, err
	}
	return tokenize.Settings{
		StripAccents: s.StripAccents,
		Lower:        s.Lower,
		IgnoreRegex:  s.IgnoreRegex,
		Stopwords:    tokenize.ResolveStopwords(s.CustomStopwords, s.StopwordsRef),
		Stemmer:      stemmer,
	}, nil
}

// Equal reports whether two settings values are identical for the purposes
// of the write-once invariant (slice order matters; callers are expected to
// pass stopword lists in a stable order).
func (s Settings) Equal(other Settings) bool {
	if s.K1 != other.K1 || s.B != other.B || s.Stemmer != other.Stemmer ||
		s.StopwordsRef != other.StopwordsRef || s.IgnoreRegex != other.IgnoreRegex ||
		s.StripAccents != other.StripAccents || s.Lower != other.Lower {
		return false
	}
	if len(s.CustomStopwords) != len(other.CustomStopwords) {
		return false
	}
	for i, w := range s.CustomStopwords {
		if other.CustomStopwords[i] != w {
			return false
		}
	}
	return true
}

// Validate rejects configuration that cannot be persisted or tokenized.
func (s Settings) Validate() error {
	if s.K1 < 0 {
		return fmt.Errorf("settings: k1 must be >= 0, got %v", s.K1)
	}
	if s.B < 0 || s.B > 1 {
		return fmt.Errorf("settings: b must be in [0, 1], got %v", s.B)
	}
	if _, err := tokenize.NewStemmer(s.Stemmer); err != nil {
		return err
	}
	return nil
}

// execer is the minimal surface settings needs from a storage connection;
// kept narrow so it can be satisfied directly by *sql.DB or *sql.Tx without
// importing internal/storage here and creating a cycle.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// EnsureSchema creates the settings table for schema (e.g. "bm25_documents")
// if it doesn't already exist.
func EnsureSchema(ctx context.Context, db execer, schema string) error {
	_, err := db.ExecContext(ctx, fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s.settings (
			k1 DOUBLE NOT NULL,
			b DOUBLE NOT NULL,
			stemmer VARCHAR NOT NULL,
			stopwords_ref VARCHAR NOT NULL,
			custom_stopwords VARCHAR[] NOT NULL,
			ignore_regex VARCHAR NOT NULL,
			strip_accents BOOLEAN NOT NULL,
			lower_case BOOLEAN NOT NULL
		)`, schema))
	return err
}

// Load reads the persisted settings for schema, returning ok=false if none
// have been written yet.
func Load(ctx context.Context, db execer, schema string) (s Settings, ok bool, err error) {
	row := db.QueryRowContext(ctx, fmt.Sprintf(
		`SELECT k1, b, stemmer, stopwords_ref, custom_stopwords, ignore_regex, strip_accents, lower_case
		 FROM %s.settings LIMIT 1`, schema))

	var stopwords []string
	err = row.Scan(&s.K1, &s.B, &s.Stemmer, &s.StopwordsRef, &stopwords, &s.IgnoreRegex, &s.StripAccents, &s.Lower)
	if err == sql.ErrNoRows {
		return Settings{}, false, nil
	}
	if err != nil {
		return Settings{}, false, err
	}
	s.CustomStopwords = stopwords
	return s, true, nil
}

// SaveOrWarn implements the write-once invariant: the first call for a
// namespace persists wanted; every subsequent call compares wanted against
// what's stored and, on mismatch, logs a warning and keeps the original
// settings rather than erroring or silently overwriting them. The returned
// Settings is always what's now in effect.
func SaveOrWarn(ctx context.Context, db execer, schema string, wanted Settings) (Settings, error) {
	if err := wanted.Validate(); err != nil {
		return Settings{}, err
	}

	existing, ok, err := Load(ctx, db, schema)
	if err != nil {
		return Settings{}, fmt.Errorf("settings: load %s: %w", schema, err)
	}
	if !ok {
		_, err := db.ExecContext(ctx, fmt.Sprintf(
			`INSERT INTO %s.settings (k1, b, stemmer, stopwords_ref, custom_stopwords, ignore_regex, strip_accents, lower_case)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`, schema),
			wanted.K1, wanted.B, wanted.Stemmer, wanted.StopwordsRef, wanted.CustomStopwords,
			wanted.IgnoreRegex, wanted.StripAccents, wanted.Lower)
		if err != nil {
			return Settings{}, fmt.Errorf("settings: insert %s: %w", schema, err)
		}
		return wanted, nil
	}

	if !existing.Equal(wanted) {
		slog.Warn("settings already initialized for this index; ignoring conflicting configuration",
			"schema", schema, "requested", wanted, "in_effect", existing)
	}
	return existing, nil
}
