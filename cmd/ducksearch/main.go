// Command ducksearch is a thin driver over the ducksearch library: upload
// documents/queries, build the BM25 index, search, and delete.
package main

import (
	"context"
	"os"

	"github.com/lightonai/ducksearch/internal/cli"
)

func main() {
	if err := cli.Execute(context.Background()); err != nil {
		os.Exit(1)
	}
}
