package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/lightonai/ducksearch/internal/corpus"
	"github.com/lightonai/ducksearch/internal/storage"
)

func uploadCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "upload",
		Short: "Upload documents or queries (run index afterwards to make them searchable)",
	}
	cmd.AddCommand(uploadDocumentsCmd())
	cmd.AddCommand(uploadQueriesCmd())
	return cmd
}

func uploadDocumentsCmd() *cobra.Command {
	var key string
	var fields []string
	var parquetGlob string

	cmd := &cobra.Command{
		Use:   "documents <database> [rows.json]",
		Short: "Upload documents from a JSON array of objects (or, with --parquet, an existing parquet glob); does not index them",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if parquetGlob != "" {
				return runUploadDocumentsParquet(cmd.Context(), args[0], parquetGlob)
			}
			if len(args) != 2 {
				return fmt.Errorf("documents: <rows.json> is required unless --parquet is set")
			}
			return runUploadDocuments(cmd.Context(), args[0], args[1], key, fields)
		},
	}
	cmd.Flags().StringVar(&key, "key", "id", "field that identifies each document")
	cmd.Flags().StringSliceVar(&fields, "fields", nil, "not used by upload; indexed fields are chosen with index documents --fields")
	cmd.Flags().StringVar(&parquetGlob, "parquet", "", "glob of already-exported parquet files to ingest directly, instead of a JSON file")
	return cmd
}

func runUploadDocumentsParquet(ctx context.Context, dbPath, glob string) error {
	ui := NewUI()
	ui.Header(iconUpload, "Uploading documents from parquet")
	ui.Info("database", dbPath)
	ui.Info("source", glob)

	store, err := storage.Open(ctx, dbPath, storage.Options{})
	if err != nil {
		return err
	}
	defer store.Close()

	if err := corpus.EnsureSchema(ctx, store); err != nil {
		return err
	}

	start := time.Now()
	ui.StartSpinner("loading parquet glob")
	if err := corpus.InsertDocumentsFromParquet(ctx, store, glob, nil); err != nil {
		ui.StopSpinnerError(err.Error())
		return err
	}
	ui.StopSpinner("parquet glob loaded", time.Since(start))
	ui.Success("upload complete; run the index update to make these documents searchable")
	return nil
}

func runUploadDocuments(ctx context.Context, dbPath, jsonPath, key string, fields []string) error {
	ui := NewUI()
	ui.Header(iconUpload, "Uploading documents")
	ui.Info("database", dbPath)
	ui.Info("source", jsonPath)

	raw, err := os.ReadFile(jsonPath)
	if err != nil {
		return fmt.Errorf("read %s: %w", jsonPath, err)
	}
	var rows []map[string]any
	if err := json.Unmarshal(raw, &rows); err != nil {
		return fmt.Errorf("parse %s: %w", jsonPath, err)
	}

	store, err := storage.Open(ctx, dbPath, storage.Options{})
	if err != nil {
		return err
	}
	defer store.Close()

	if err := corpus.EnsureSchema(ctx, store); err != nil {
		return err
	}

	docs := make([]corpus.Document, len(rows))
	for i, r := range rows {
		id, ok := r[key].(string)
		if !ok {
			return fmt.Errorf("row %d: missing string field %q", i, key)
		}
		rowFields := make(map[string]any, len(r))
		for k, v := range r {
			if k != key {
				rowFields[k] = v
			}
		}
		docs[i] = corpus.Document{Key: id, Fields: rowFields}
	}

	start := time.Now()
	ui.StartSpinner(fmt.Sprintf("loading %d documents", len(docs)))
	stageDir, err := os.MkdirTemp("", "ducksearch-upload-*")
	if err != nil {
		ui.StopSpinnerError(err.Error())
		return err
	}
	defer os.RemoveAll(stageDir)

	if err := corpus.InsertDocuments(ctx, store, stageDir, docs, nil); err != nil {
		ui.StopSpinnerError(err.Error())
		return err
	}
	ui.StopSpinner(fmt.Sprintf("%d documents loaded", len(docs)), time.Since(start))

	_ = fields // field selection is consumed by the index-update step, not upload itself
	ui.Success("upload complete; run the index update to make these documents searchable")
	return nil
}

func uploadQueriesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "queries <database> <queries.json>",
		Short: "Upload queries from a JSON array of strings",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUploadQueries(cmd.Context(), args[0], args[1])
		},
	}
	return cmd
}

func runUploadQueries(ctx context.Context, dbPath, jsonPath string) error {
	ui := NewUI()
	ui.Header(iconUpload, "Uploading queries")

	raw, err := os.ReadFile(jsonPath)
	if err != nil {
		return fmt.Errorf("read %s: %w", jsonPath, err)
	}
	var queries []string
	if err := json.Unmarshal(raw, &queries); err != nil {
		return fmt.Errorf("parse %s: %w", jsonPath, err)
	}

	store, err := storage.Open(ctx, dbPath, storage.Options{})
	if err != nil {
		return err
	}
	defer store.Close()

	if err := corpus.EnsureSchema(ctx, store); err != nil {
		return err
	}

	stageDir, err := os.MkdirTemp("", "ducksearch-upload-*")
	if err != nil {
		return err
	}
	defer os.RemoveAll(stageDir)

	start := time.Now()
	ui.StartSpinner(fmt.Sprintf("loading %d queries", len(queries)))
	if err := corpus.InsertQueries(ctx, store, stageDir, queries); err != nil {
		ui.StopSpinnerError(err.Error())
		return err
	}
	ui.StopSpinner(fmt.Sprintf("%d queries loaded", len(queries)), time.Since(start))
	return nil
}
