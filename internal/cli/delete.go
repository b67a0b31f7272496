package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	ducksearch "github.com/lightonai/ducksearch"
)

func deleteCmd() *cobra.Command {
	var queries bool

	cmd := &cobra.Command{
		Use:   "delete <database> <id...>",
		Short: "Delete documents (or, with --queries, queries) by id and their index rows",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDelete(cmd.Context(), args[0], args[1:], queries)
		},
	}
	cmd.Flags().BoolVar(&queries, "queries", false, "delete from the query corpus instead of documents")
	return cmd
}

func runDelete(ctx context.Context, dbPath string, ids []string, deleteQueries bool) error {
	ui := NewUI()
	ui.Header(iconCross, "Deleting")
	ui.Info("count", fmt.Sprint(len(ids)))

	db, err := ducksearch.Open(ctx, dbPath)
	if err != nil {
		return err
	}
	defer db.Close()

	start := time.Now()
	ui.StartSpinner("removing rows")
	if deleteQueries {
		err = db.DeleteQueries(ctx, ids)
	} else {
		err = db.DeleteDocuments(ctx, ids)
	}
	if err != nil {
		ui.StopSpinnerError(err.Error())
		return err
	}
	ui.StopSpinner("deleted", time.Since(start))

	stats, err := db.Stats(ctx)
	if err != nil {
		return err
	}
	PrintTableSizes(stats)
	return nil
}
