// Package cli wires the ducksearch library into a thin cobra-based command
// line tool: upload documents/queries, build the index, search, and delete.
package cli

import (
	"context"
	"fmt"
	"os"
	"runtime/debug"
	"strings"

	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"
)

// Execute runs the CLI.
func Execute(ctx context.Context) error {
	root := &cobra.Command{
		Use:   "ducksearch",
		Short: "ducksearch: persistent BM25 full-text search over an embedded DuckDB file",
		Long: `ducksearch builds and queries a BM25 index stored entirely in a DuckDB file.

Usage:
  ducksearch upload documents <db> <json>   Upload documents from a JSON file
  ducksearch upload queries <db> <json>     Upload queries from a JSON file
  ducksearch search <db> <query>            Search documents
  ducksearch delete <db> <id>...            Delete documents by id

Examples:
  ducksearch upload documents corpus.duckdb docs.json
  ducksearch search corpus.duckdb "embedded analytical database"`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.SetVersionTemplate("ducksearch {{.Version}}\n")
	root.Version = versionString()

	root.AddCommand(uploadCmd())
	root.AddCommand(indexCmd())
	root.AddCommand(searchCmd())
	root.AddCommand(deleteCmd())

	if err := fang.Execute(ctx, root); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		return err
	}
	return nil
}

func versionString() string {
	if v := os.Getenv("DUCKSEARCH_VERSION"); strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	if bi, ok := debug.ReadBuildInfo(); ok {
		if bi.Main.Version != "" && bi.Main.Version != "(devel)" {
			return bi.Main.Version
		}
	}
	return "dev"
}
