package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	ducksearch "github.com/lightonai/ducksearch"
)

func indexCmd() *cobra.Command {
	var fields []string
	cmd := &cobra.Command{
		Use:   "index",
		Short: "Build or refresh the BM25 index over uploaded documents or queries",
	}

	documents := &cobra.Command{
		Use:   "documents <database>",
		Short: "Index every document that has not been indexed yet",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIndex(cmd.Context(), args[0], fields, false)
		},
	}
	documents.Flags().StringSliceVar(&fields, "fields", nil, "document fields to tokenize and index")

	queries := &cobra.Command{
		Use:   "queries <database>",
		Short: "Index every query that has not been indexed yet",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIndex(cmd.Context(), args[0], nil, true)
		},
	}

	cmd.AddCommand(documents, queries)
	return cmd
}

func runIndex(ctx context.Context, dbPath string, fields []string, isQueries bool) error {
	ui := NewUI()
	ui.Header(iconDatabase, "Updating index")

	db, err := ducksearch.Open(ctx, dbPath, ducksearch.WithIndexedFields(fields...))
	if err != nil {
		return err
	}
	defer db.Close()

	start := time.Now()
	ui.StartSpinner("tokenizing and scoring")

	var n int
	if isQueries {
		n, err = db.UpdateIndexQueries(ctx)
	} else {
		n, err = db.UpdateIndexDocuments(ctx)
	}
	if err != nil {
		ui.StopSpinnerError(err.Error())
		return err
	}
	ui.StopSpinner(fmt.Sprintf("%d rows indexed", n), time.Since(start))

	stats, err := db.Stats(ctx)
	if err != nil {
		return err
	}
	PrintTableSizes(stats)
	return nil
}
