package settings

import (
	"context"
	"database/sql"
	"testing"

	_ "github.com/duckdb/duckdb-go/v2"
)

func openTestSchema(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("duckdb", "")
	if err != nil {
		t.Fatalf("sql.Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if _, err := db.Exec("CREATE SCHEMA bm25_documents"); err != nil {
		t.Fatalf("create schema: %v", err)
	}
	if err := EnsureSchema(context.Background(), db, "bm25_documents"); err != nil {
		t.Fatalf("EnsureSchema: %v", err)
	}
	return db
}

func TestSaveOrWarnFirstWriteWins(t *testing.T) {
	db := openTestSchema(t)
	ctx := context.Background()

	first := Default()
	first.Stemmer = "porter"

	got, err := SaveOrWarn(ctx, db, "bm25_documents", first)
	if err != nil {
		t.Fatalf("SaveOrWarn (first): %v", err)
	}
	if !got.Equal(first) {
		t.Fatalf("first save = %#v, want %#v", got, first)
	}

	second := Default()
	second.Stemmer = "none"
	second.K1 = 2.0

	got, err = SaveOrWarn(ctx, db, "bm25_documents", second)
	if err != nil {
		t.Fatalf("SaveOrWarn (second): %v", err)
	}
	if !got.Equal(first) {
		t.Fatalf("conflicting save changed settings: got %#v, want original %#v", got, first)
	}
}

func TestSaveOrWarnRejectsInvalid(t *testing.T) {
	db := openTestSchema(t)
	bad := Default()
	bad.B = 2.0

	if _, err := SaveOrWarn(context.Background(), db, "bm25_documents", bad); err == nil {
		t.Fatal("expected validation error for b > 1")
	}
}

func TestLoadReportsAbsence(t *testing.T) {
	db := openTestSchema(t)
	_, ok, err := Load(context.Background(), db, "bm25_documents")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if ok {
		t.Fatal("expected ok=false before any settings saved")
	}
}

func TestResolveProducesTokenizerSettings(t *testing.T) {
	s := Default()
	s.Stemmer = "porter"
	s.StopwordsRef = "english"

	resolved, err := s.Resolve()
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if resolved.Stemmer == nil {
		t.Fatal("expected a non-nil stemmer")
	}
	if _, stop := resolved.Stopwords["the"]; !stop {
		t.Fatal("expected english stopwords to include \"the\"")
	}
}
