package cli

import (
	"os"

	"github.com/fatih/color"
	"github.com/rodaine/table"
)

// tableOrder fixes the row order stats are printed in, grouping corpus
// tables above the two index namespaces rather than relying on map
// iteration order.
var tableOrder = []string{
	"bm25_tables.documents", "bm25_tables.queries", "bm25_tables.documents_queries",
	"bm25_documents.dict", "bm25_documents.docs", "bm25_documents.terms", "bm25_documents.scores",
	"bm25_queries.dict", "bm25_queries.docs", "bm25_queries.terms", "bm25_queries.scores",
}

// PrintTableSizes renders a row-count report after an index update or delete,
// the Go equivalent of the original implementation's post-operation plot.
func PrintTableSizes(stats map[string]int64) {
	headerFmt := color.New(color.FgGreen, color.Bold).SprintfFunc()
	columnFmt := color.New(color.FgWhite).SprintfFunc()

	tbl := table.New("Table", "Rows")
	tbl.WithHeaderFormatter(headerFmt).WithFirstColumnFormatter(columnFmt)

	for _, name := range tableOrder {
		if count, ok := stats[name]; ok {
			tbl.AddRow(name, count)
		}
	}
	tbl.WithWriter(os.Stdout).Print()
}
