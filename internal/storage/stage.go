package storage

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/apache/arrow-go/v18/parquet"
	"github.com/apache/arrow-go/v18/parquet/compress"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"
	"github.com/google/uuid"
)

// Column describes one field of a staged row set.
type Column struct {
	Name string
	Type arrow.DataType
}

// Row is a single staged record, keyed by column name.
type Row map[string]any

// NewRunDir creates a run-scoped staging directory under base, named with a
// fresh UUID (the run_hash) so concurrent bulk-load runs never collide. The
// returned cleanup function removes the directory and everything staged in
// it; callers defer it immediately.
func NewRunDir(base string) (dir string, runHash string, cleanup func(), err error) {
	runHash = uuid.NewString()
	dir = filepath.Join(base, runHash)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", "", func() {}, fmt.Errorf("storage: create run dir: %w", err)
	}
	return dir, runHash, func() { os.RemoveAll(dir) }, nil
}

// StageRows writes rows to a new snappy-compressed parquet file under dir
// and returns its path. This is the one place the module writes parquet:
// every bulk insert (document/query upserts, token postings, length
// batches, query-term batches) goes through it rather than issuing one
// INSERT per row, keeping ingest throughput independent of row count.
func StageRows(dir string, columns []Column, rows []Row) (string, error) {
	if len(columns) == 0 {
		return "", fmt.Errorf("storage: StageRows requires at least one column")
	}

	fields := make([]arrow.Field, len(columns))
	for i, c := range columns {
		fields[i] = arrow.Field{Name: c.Name, Type: c.Type, Nullable: true}
	}
	schema := arrow.NewSchema(fields, nil)

	mem := memory.NewGoAllocator()
	bldr := array.NewRecordBuilder(mem, schema)
	defer bldr.Release()

	for _, row := range rows {
		for i, c := range columns {
			appendValue(bldr.Field(i), c.Type, row[c.Name])
		}
	}
	rec := bldr.NewRecord()
	defer rec.Release()

	path := filepath.Join(dir, uuid.NewString()+".parquet")

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("%w: create staging file: %v", ErrBulkLoadFailure, err)
	}
	defer f.Close()

	props := parquet.NewWriterProperties(parquet.WithCompression(compress.Codecs.Snappy))
	writer, err := pqarrow.NewFileWriter(schema, f, props, pqarrow.DefaultWriterProps())
	if err != nil {
		return "", fmt.Errorf("%w: new parquet writer: %v", ErrBulkLoadFailure, err)
	}
	if err := writer.Write(rec); err != nil {
		writer.Close()
		return "", fmt.Errorf("%w: write record batch: %v", ErrBulkLoadFailure, err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("%w: close parquet writer: %v", ErrBulkLoadFailure, err)
	}
	return path, nil
}

func appendValue(b array.Builder, t arrow.DataType, v any) {
	if v == nil {
		b.AppendNull()
		return
	}
	switch bb := b.(type) {
	case *array.StringBuilder:
		bb.Append(fmt.Sprint(v))
	case *array.Int64Builder:
		bb.Append(toInt64(v))
	case *array.Int32Builder:
		bb.Append(toInt32(v))
	case *array.Float64Builder:
		bb.Append(toFloat64(v))
	case *array.Float32Builder:
		bb.Append(float32(toFloat64(v)))
	case *array.BooleanBuilder:
		bb.Append(toBool(v))
	default:
		b.AppendNull()
	}
}

func toInt64(v any) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case int:
		return int64(n)
	case int32:
		return int64(n)
	default:
		return 0
	}
}

func toInt32(v any) int32 {
	switch n := v.(type) {
	case int32:
		return n
	case int:
		return int32(n)
	case int64:
		return int32(n)
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
	case int:
		return float64(n)
	case int64:
		return float64(n)
	default:
		return 0
	}
}

func toBool(v any) bool {
	b, _ := v.(bool)
	return b
}
