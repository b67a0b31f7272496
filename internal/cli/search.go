package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	ducksearch "github.com/lightonai/ducksearch"
)

func searchCmd() *cobra.Command {
	var topK int
	var graph bool
	var orderBy string

	cmd := &cobra.Command{
		Use:   "search <database> <query...>",
		Short: "Search the document index (or, with --graph, walk judged query similarity)",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSearch(cmd.Context(), args[0], strings.Join(args[1:], " "), topK, graph, orderBy)
		},
	}
	cmd.Flags().IntVar(&topK, "top-k", 10, "number of results to return")
	cmd.Flags().BoolVar(&graph, "graph", false, "search via one-hop query-query-document graph walk instead of direct BM25")
	cmd.Flags().StringVar(&orderBy, "order-by", "", `override ranking, e.g. "updated_at DESC" (column must exist on the corpus table)`)
	return cmd
}

func runSearch(ctx context.Context, dbPath, query string, topK int, graph bool, orderBy string) error {
	db, err := ducksearch.Open(ctx, dbPath, ducksearch.WithReadOnly())
	if err != nil {
		return err
	}
	defer db.Close()

	opts := ducksearch.DefaultSearchOptions()
	opts.TopK = topK
	opts.OrderBy = orderBy

	var results [][]ducksearch.Hit
	if graph {
		results, err = db.GraphSearch(ctx, []string{query}, opts)
	} else {
		results, err = db.SearchDocuments(ctx, []string{query}, opts)
	}
	if err != nil {
		return err
	}

	ui := NewUI()
	ui.Header(iconSearch, fmt.Sprintf("Results for %q", query))
	hits := results[0]
	if len(hits) == 0 {
		ui.Hint("no matches")
		return nil
	}
	for i, h := range hits {
		title := fmt.Sprint(h.Fields["title"])
		if title == "<nil>" {
			title = h.ID
		}
		fmt.Printf("%2d. %-40s %s\n", i+1, title, fmt.Sprintf("%.4f", h.Score))
	}
	return nil
}
