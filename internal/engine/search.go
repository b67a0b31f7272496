package engine

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/apache/arrow-go/v18/arrow"
	"golang.org/x/sync/errgroup"

	"github.com/lightonai/ducksearch/internal/index"
	"github.com/lightonai/ducksearch/internal/storage"
	"github.com/lightonai/ducksearch/internal/tokenize"
)

// Search scores queries against e's namespace and returns, for each input
// query in order, its top-TopK hits. Unknown terms (absent from the
// dictionary) are dropped rather than failing the query — a query entirely
// made of unknown or stopword terms simply returns no hits.
func (e *Engine) Search(ctx context.Context, queries []string, opts SearchOptions) ([][]Hit, error) {
	if len(queries) == 0 {
		return nil, nil
	}
	if opts.TopK <= 0 {
		return make([][]Hit, len(queries)), nil
	}
	if opts.TopKToken <= 0 {
		opts.TopKToken = 10_000
	}

	tok, _, err := index.ResolveSettings(ctx, e.store, e.ns)
	if err != nil {
		return nil, err
	}

	dir, _, cleanup, err := storage.NewRunDir(e.stageDir)
	if err != nil {
		return nil, fmt.Errorf("engine: stage dir: %w", err)
	}
	defer cleanup()

	columns := []storage.Column{
		{Name: "query_index", Type: arrow.PrimitiveTypes.Int32},
		{Name: "term", Type: arrow.BinaryTypes.String},
		{Name: "tf", Type: arrow.PrimitiveTypes.Int32},
	}
	var rows []storage.Row
	anyTerms := false
	for i, q := range queries {
		terms, err := tokenize.Tokenize(q, tok)
		if err != nil {
			return nil, fmt.Errorf("engine: tokenize query %d: %w", i, err)
		}
		_, tf := tokenize.TermFrequencies(terms)
		for term, count := range tf {
			anyTerms = true
			rows = append(rows, storage.Row{"query_index": int32(i), "term": term, "tf": count})
		}
	}

	results := make([][]Hit, len(queries))
	if !anyTerms {
		return results, nil
	}

	path, err := storage.StageRows(dir, columns, rows)
	if err != nil {
		return nil, fmt.Errorf("engine: stage query terms: %w", err)
	}

	schema := string(e.ns)
	filterClause := ""
	if opts.Filters != "" {
		filterClause = "AND (" + opts.Filters + ")"
	}

	orderClause, err := buildOrderClause(ctx, e.store, e.corpusTable, opts.OrderBy)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`
		WITH query_terms AS (
			SELECT qt.query_index, d.termid, qt.tf
			FROM read_parquet($1) qt
			JOIN %[1]s.dict d ON d.term = qt.term
		),
		ranked_scores AS (
			SELECT s.termid, s.bm25id, s.score,
				row_number() OVER (PARTITION BY s.termid ORDER BY s.score DESC) AS rn
			FROM %[1]s.scores s
			WHERE s.termid IN (SELECT DISTINCT termid FROM query_terms)
		),
		candidates AS (
			SELECT qt.query_index, rs.bm25id, SUM(rs.score * qt.tf) AS score
			FROM query_terms qt
			JOIN ranked_scores rs ON rs.termid = qt.termid AND rs.rn <= $2
			GROUP BY qt.query_index, rs.bm25id
		),
		joined AS (
			SELECT c.query_index, c.score, t.*
			FROM candidates c
			JOIN %[2]s t ON t.bm25id = c.bm25id
			WHERE true %[3]s
		),
		ordered AS (
			SELECT j.*,
				row_number() OVER (PARTITION BY j.query_index ORDER BY %[4]s) AS rnk
			FROM joined j
		)
		SELECT * EXCLUDE (rnk)
		FROM ordered
		WHERE rnk <= $3
		ORDER BY query_index, rnk
	`, schema, e.corpusTable, filterClause, orderClause)

	sqlRows, err := e.store.QueryContext(ctx, query, path, opts.TopKToken, opts.TopK)
	if err != nil {
		return nil, fmt.Errorf("engine: search query: %w", err)
	}
	defer sqlRows.Close()

	hits, err := scanHits(sqlRows, "query_index", "score")
	if err != nil {
		return nil, err
	}
	for _, h := range hits {
		idx := h.groupIndex
		results[idx] = append(results[idx], h.Hit)
	}
	return results, nil
}

// SearchParallel splits queries into contiguous batches of batchSize
// (default 30) and runs Search on each, at most opts.Workers batches at a
// time — the Go analogue of the n_jobs threaded batch fan-out the original
// search entry points use.
func (e *Engine) SearchParallel(ctx context.Context, queries []string, batchSize int, opts SearchOptions) ([][]Hit, error) {
	if batchSize <= 0 {
		batchSize = 30
	}
	workers := opts.Workers
	if workers <= 0 {
		workers = 1
	}

	type batch struct {
		start int
		items []string
	}
	var batches []batch
	for start := 0; start < len(queries); start += batchSize {
		end := start + batchSize
		if end > len(queries) {
			end = len(queries)
		}
		batches = append(batches, batch{start: start, items: queries[start:end]})
	}

	results := make([][]Hit, len(queries))
	group, gctx := errgroup.WithContext(ctx)
	group.SetLimit(workers)

	for _, b := range batches {
		b := b
		group.Go(func() error {
			batchResults, err := e.Search(gctx, b.items, opts)
			if err != nil {
				return err
			}
			for i, r := range batchResults {
				results[b.start+i] = r
			}
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// buildOrderClause turns opts.OrderBy into a safe ORDER BY expression: every
// referenced column is checked against table's own columns (plus the
// computed "score") before being concatenated, so a caller-supplied string
// can only select among real columns and ASC/DESC, never inject arbitrary
// SQL. Ties are always broken by ascending bm25id, appended last.
func buildOrderClause(ctx context.Context, db storage.Driver, table, orderBy string) (string, error) {
	if strings.TrimSpace(orderBy) == "" {
		return "score DESC, bm25id ASC", nil
	}

	allowed, err := columnNames(ctx, db, table)
	if err != nil {
		return "", fmt.Errorf("engine: resolve order_by columns: %w", err)
	}
	allowed["score"] = struct{}{}

	terms := strings.Split(orderBy, ",")
	parts := make([]string, 0, len(terms)+1)
	for _, term := range terms {
		fields := strings.Fields(strings.TrimSpace(term))
		if len(fields) == 0 || len(fields) > 2 {
			return "", fmt.Errorf("engine: invalid order_by term %q", term)
		}
		col := fields[0]
		if col == "bm25id" {
			return "", fmt.Errorf("engine: order_by cannot reference bm25id directly")
		}
		if _, ok := allowed[col]; !ok {
			return "", fmt.Errorf("engine: order_by references unknown column %q", col)
		}
		dir := "ASC"
		if len(fields) == 2 {
			dir = strings.ToUpper(fields[1])
			if dir != "ASC" && dir != "DESC" {
				return "", fmt.Errorf("engine: order_by direction must be ASC or DESC, got %q", fields[1])
			}
		}
		parts = append(parts, quoteIdent(col)+" "+dir)
	}
	parts = append(parts, "bm25id ASC")
	return strings.Join(parts, ", "), nil
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// columnNames describes table and returns its column names as an allow-list
// for validating caller-supplied order_by references.
func columnNames(ctx context.Context, db storage.Driver, table string) (map[string]struct{}, error) {
	rows, err := db.QueryContext(ctx, fmt.Sprintf("SELECT column_name FROM (DESCRIBE SELECT * FROM %s)", table))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	names := map[string]struct{}{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names[name] = struct{}{}
	}
	return names, rows.Err()
}

type groupedHit struct {
	Hit
	groupIndex int
}

// scanHits reads rows whose first two columns are an integer grouping key
// and a float score, followed by the corpus table's own columns (one of
// which must be "id"), into a flat slice of groupedHit.
func scanHits(rows *sql.Rows, groupCol, scoreCol string) ([]groupedHit, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	var out []groupedHit
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}

		var h groupedHit
		h.Fields = map[string]any{}
		for i, col := range cols {
			switch col {
			case groupCol:
				h.groupIndex = int(toInt64(vals[i]))
			case scoreCol:
				h.Score = toFloat64(vals[i])
			case "id":
				h.ID = fmt.Sprint(vals[i])
				h.Fields["id"] = vals[i]
			case "bm25id":
				// internal plumbing, not a caller-facing field
			default:
				h.Fields[col] = vals[i]
			}
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

func toInt64(v any) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case int32:
		return int64(n)
	case int:
		return int64(n)
	case float64:
		return int64(n)
	default:
		return 0
	}
}

func toFloat64(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case float32:
		return float64(n)
	case int64:
		return float64(n)
	default:
		return 0
	}
}
