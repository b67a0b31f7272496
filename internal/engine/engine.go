// Package engine answers queries against an index built by internal/index:
// term-weighted retrieval over documents or queries, one-hop graph search
// through query/document relevance edges, and fan-out across database
// shards with a global re-sort.
package engine

import (
	"runtime"

	"github.com/lightonai/ducksearch/internal/index"
	"github.com/lightonai/ducksearch/internal/storage"
)

// Hit is one ranked result: ID is the corpus primary key, Score its BM25 (or
// graph-propagated) weight, Fields its other corpus columns.
type Hit struct {
	ID     string
	Score  float64
	Fields map[string]any
}

// SearchOptions tunes one Search or GraphSearch call.
type SearchOptions struct {
	// TopK bounds how many hits are returned per input query.
	TopK int
	// TopKToken bounds how many top-scoring documents are considered per
	// matched term before candidates are summed — the WAND-style
	// approximation that keeps scoring bounded on corpora with very
	// common terms instead of touching every posting.
	TopKToken int
	// Workers bounds how many query batches SearchParallel, or how many
	// shards SearchShards, runs concurrently; Search itself ignores it.
	Workers int
	// Filters, when non-empty, is a raw SQL boolean expression evaluated
	// against the corpus table's own columns (the table is aliased as t) and
	// ANDed onto the candidate set before ranking.
	Filters string
	// OrderBy, when non-empty, overrides the default score-descending rank
	// with a comma-separated list of "<column> [ASC|DESC]" terms. Each
	// column must be one of the corpus table's own columns or "score";
	// anything else is rejected rather than interpolated into SQL.
	// Ties are always broken by ascending bm25id regardless of OrderBy.
	OrderBy string
}

// DefaultSearchOptions mirrors the defaults of the original search entry
// points: top_k=10, top_k_token=10_000, one worker per logical CPU.
func DefaultSearchOptions() SearchOptions {
	return SearchOptions{TopK: 10, TopKToken: 10_000, Workers: runtime.GOMAXPROCS(0)}
}

// Engine executes queries against one namespace of one database.
type Engine struct {
	store       *storage.Store
	ns          index.Namespace
	corpusTable string
	stageDir    string
}

// New builds an Engine over ns (index.DocumentsSchema or
// index.QueriesSchema), scoring against corpusTable ("bm25_tables.documents"
// or "bm25_tables.queries"), staging query-term batches under stageDir.
func New(store *storage.Store, ns index.Namespace, corpusTable, stageDir string) *Engine {
	return &Engine{store: store, ns: ns, corpusTable: corpusTable, stageDir: stageDir}
}
