package engine

import (
	"context"
	"sort"

	"golang.org/x/sync/errgroup"
)

// Searcher is satisfied by both *Engine and *GraphEngine, letting
// SearchShards fan out over either kind of index.
type Searcher interface {
	Search(ctx context.Context, queries []string, opts SearchOptions) ([][]Hit, error)
}

// SearchShards runs the same query batch against every shard in parallel
// and merges the results by globally re-sorting on score (ties broken by
// id) and truncating to opts.TopK. Each shard's BM25 scores were computed
// against that shard's own corpus statistics (its own document count and
// average length), so merging does not renormalize IDF across shards —
// a shard with a smaller, more specific corpus can out-rank a shard with a
// larger one for the same term, which is accepted rather than corrected.
func SearchShards(ctx context.Context, shards []Searcher, queries []string, opts SearchOptions) ([][]Hit, error) {
	if len(shards) == 0 {
		return make([][]Hit, len(queries)), nil
	}

	perShard := make([][][]Hit, len(shards))
	group, gctx := errgroup.WithContext(ctx)
	workers := opts.Workers
	if workers > 0 {
		group.SetLimit(workers)
	}

	for i, shard := range shards {
		i, shard := i, shard
		group.Go(func() error {
			res, err := shard.Search(gctx, queries, opts)
			if err != nil {
				return err
			}
			perShard[i] = res
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}

	results := make([][]Hit, len(queries))
	for qi := range queries {
		var merged []Hit
		for _, shardResults := range perShard {
			if qi < len(shardResults) {
				merged = append(merged, shardResults[qi]...)
			}
		}
		sort.Slice(merged, func(a, b int) bool {
			if merged[a].Score != merged[b].Score {
				return merged[a].Score > merged[b].Score
			}
			return merged[a].ID < merged[b].ID
		})
		if opts.TopK > 0 && len(merged) > opts.TopK {
			merged = merged[:opts.TopK]
		}
		results[qi] = merged
	}
	return results, nil
}
