package engine

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/lightonai/ducksearch/internal/index"
	"github.com/lightonai/ducksearch/internal/storage"
)

// DocumentsQueriesTable and QueriesTable are the fixed corpus table names
// graph search joins through.
const (
	DocumentsQueriesTable = "bm25_tables.documents_queries"
	QueriesTable          = "bm25_tables.queries"
)

// DefaultNeighbourBreadth bounds how many historical queries a one-hop walk
// considers per input query before following their document edges,
// mirroring the original graph search's default top_k of 1000.
const DefaultNeighbourBreadth = 1000

// GraphEngine answers graph search: queries are first matched against a
// corpus of historical queries (bm25_queries), then each matched query's
// known-relevant documents are pulled in via documents_queries, with
// neighbour_score * edge_score summed per document.
type GraphEngine struct {
	store          *storage.Store
	queriesEngine  *Engine
	documentsTable string
}

// NewGraphEngine builds a GraphEngine scoring queries against the given
// store's bm25_queries namespace and bm25_tables.documents corpus table.
func NewGraphEngine(store *storage.Store, stageDir string) *GraphEngine {
	return &GraphEngine{
		store:          store,
		queriesEngine:  New(store, index.QueriesSchema, QueriesTable, stageDir),
		documentsTable: "bm25_tables.documents",
	}
}

// Search performs the one-hop query -> query -> document walk for each
// input query, returning its top-TopK documents in order.
func (g *GraphEngine) Search(ctx context.Context, queries []string, opts SearchOptions) ([][]Hit, error) {
	if len(queries) == 0 {
		return nil, nil
	}
	topK := opts.TopK
	if topK <= 0 {
		return make([][]Hit, len(queries)), nil
	}

	neighbourOpts := opts
	neighbourOpts.TopK = DefaultNeighbourBreadth

	neighbours, err := g.queriesEngine.Search(ctx, queries, neighbourOpts)
	if err != nil {
		return nil, fmt.Errorf("graph: neighbour query search: %w", err)
	}

	results := make([][]Hit, len(queries))
	for i, hits := range neighbours {
		if len(hits) == 0 {
			continue
		}

		neighbourIDs := make([]string, len(hits))
		scoreByID := make(map[string]float64, len(hits))
		for j, h := range hits {
			neighbourIDs[j] = h.ID
			scoreByID[h.ID] = h.Score
		}

		agg, err := aggregateEdges(ctx, g.store, neighbourIDs, scoreByID)
		if err != nil {
			return nil, err
		}

		ids := make([]string, 0, len(agg))
		for id := range agg {
			ids = append(ids, id)
		}
		sort.Slice(ids, func(a, b int) bool {
			if agg[ids[a]] != agg[ids[b]] {
				return agg[ids[a]] > agg[ids[b]]
			}
			return ids[a] < ids[b]
		})
		if len(ids) > topK {
			ids = ids[:topK]
		}

		hitsOut := make([]Hit, 0, len(ids))
		for _, id := range ids {
			fields, err := fetchRowByID(ctx, g.store, g.documentsTable, id)
			if err != nil {
				return nil, fmt.Errorf("graph: fetch document %s: %w", id, err)
			}
			hitsOut = append(hitsOut, Hit{ID: id, Score: agg[id], Fields: fields})
		}
		results[i] = hitsOut
	}
	return results, nil
}

func aggregateEdges(ctx context.Context, store *storage.Store, neighbourIDs []string, scoreByID map[string]float64) (map[string]float64, error) {
	placeholders := make([]string, len(neighbourIDs))
	args := make([]any, len(neighbourIDs))
	for i, id := range neighbourIDs {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args[i] = id
	}
	query := fmt.Sprintf(
		"SELECT document_id, query_id, score FROM %s WHERE query_id IN (%s)",
		DocumentsQueriesTable, strings.Join(placeholders, ", "))

	rows, err := store.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("graph: fetch edges: %w", err)
	}
	defer rows.Close()

	agg := map[string]float64{}
	for rows.Next() {
		var docID, queryID string
		var edgeScore float64
		if err := rows.Scan(&docID, &queryID, &edgeScore); err != nil {
			return nil, err
		}
		agg[docID] += scoreByID[queryID] * edgeScore
	}
	return agg, rows.Err()
}

// fetchRowByID reads every column of the row in table whose id matches,
// returning an empty map if it's absent (e.g. deleted after the edge was
// recorded).
func fetchRowByID(ctx context.Context, store *storage.Store, table, id string) (map[string]any, error) {
	rows, err := store.QueryContext(ctx, fmt.Sprintf("SELECT * FROM %s WHERE id = $1", table), id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	if !rows.Next() {
		return map[string]any{}, rows.Err()
	}

	vals := make([]any, len(cols))
	ptrs := make([]any, len(cols))
	for i := range vals {
		ptrs[i] = &vals[i]
	}
	if err := rows.Scan(ptrs...); err != nil {
		return nil, err
	}

	out := make(map[string]any, len(cols))
	for i, col := range cols {
		out[col] = vals[i]
	}
	return out, nil
}
