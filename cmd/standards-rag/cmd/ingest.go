package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/mfenderov/standards-rag/internal/config"
	"github.com/mfenderov/standards-rag/internal/corpus"
	"github.com/mfenderov/standards-rag/internal/ingest"
	"github.com/mfenderov/standards-rag/internal/storage"
	"github.com/spf13/cobra"
)

var ingestArchivePrefix string

var ingestCmd = &cobra.Command{
	Use:   "ingest [file]",
	Short: "Load standards files into the vector collection",
	Long: `Load scraped standards files into the vector collection.

The prior collection is deleted first: every run fully replaces the corpus.
With no argument the whole configured standards directory is ingested,
skipping not-found placeholder files. A single file may be named instead,
by absolute path or relative to the standards directory.

Examples:
  # Ingest the whole standards directory
  standards-rag ingest

  # Ingest one file
  standards-rag ingest iso-standards.json

  # Ingest an archived snapshot
  standards-rag ingest --archive-prefix corpus/iso/2025-08-01T10-00-00-ab12cd34`,
	Args: cobra.MaximumNArgs(1),
	RunE: runIngest,
}

func init() {
	rootCmd.AddCommand(ingestCmd)

	ingestCmd.Flags().StringVar(&ingestArchivePrefix, "archive-prefix", "", "ingest an archived corpus snapshot instead of local files")
}

func runIngest(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := GetConfig()

	selector := ""
	if len(args) == 1 {
		selector = args[0]
	}

	dir := cfg.Ingest.Dir
	if ingestArchivePrefix != "" {
		var err error
		dir, err = fetchArchivedSnapshot(ctx, cfg.Storage, ingestArchivePrefix)
		if err != nil {
			return err
		}
		defer os.RemoveAll(dir)
	}

	idx, err := newIndexClient(cfg)
	if err != nil {
		return err
	}

	engine := ingest.New(&corpus.Loader{Dir: dir}, idx, cfg.Ingest.BatchSize)

	report, err := engine.Run(ctx, selector)
	if err != nil {
		var partial *ingest.PartialError
		if errors.As(err, &partial) {
			fmt.Printf("Ingestion failed mid-run: %d documents committed, %d pending.\n",
				partial.Committed, partial.Pending)
			fmt.Println("The collection holds a partial corpus; re-run ingestion to rebuild it.")
		}
		return fmt.Errorf("ingestion failed: %w", err)
	}

	fmt.Printf("Ingestion complete:\n")
	fmt.Printf("  Files read:       %d\n", report.FilesRead)
	fmt.Printf("  Records loaded:   %d\n", report.RecordsLoaded)
	fmt.Printf("  Unique standards: %d\n", report.UniqueCount)
	fmt.Printf("  Batches written:  %d\n", report.BatchesWritten)
	fmt.Printf("  Duration:         %v\n", report.Duration)

	if report.FilesSkipped > 0 || report.RecordsSkipped > 0 {
		fmt.Printf("  Warnings: %d files and %d records skipped (see logs)\n",
			report.FilesSkipped, report.RecordsSkipped)
	}

	return nil
}

// fetchArchivedSnapshot downloads an archived corpus snapshot into a temp
// directory so the loader can treat it like the local standards directory.
func fetchArchivedSnapshot(ctx context.Context, storageCfg config.Storage, prefix string) (string, error) {
	archive, err := storage.New(storage.Config{
		Endpoint:        storageCfg.Endpoint,
		Bucket:          storageCfg.Bucket,
		AccessKeyID:     storageCfg.AccessKeyID,
		SecretAccessKey: storageCfg.SecretAccessKey,
		UseSSL:          storageCfg.UseSSL,
	})
	if err != nil {
		return "", fmt.Errorf("failed to create archive client: %w", err)
	}

	files, err := archive.ListCorpusFiles(ctx, prefix)
	if err != nil {
		return "", fmt.Errorf("failed to list snapshot: %w", err)
	}
	if len(files) == 0 {
		return "", fmt.Errorf("snapshot %s holds no corpus files", prefix)
	}

	dir, err := os.MkdirTemp("", "standards-rag-snapshot-")
	if err != nil {
		return "", fmt.Errorf("failed to create temp directory: %w", err)
	}

	for _, name := range files {
		data, err := archive.GetCorpusFile(ctx, prefix, name)
		if err != nil {
			os.RemoveAll(dir)
			return "", fmt.Errorf("failed to fetch %s: %w", name, err)
		}
		if err := os.WriteFile(filepath.Join(dir, name), data, 0o644); err != nil {
			os.RemoveAll(dir)
			return "", fmt.Errorf("failed to write %s: %w", name, err)
		}
	}

	slog.Info("fetched archived snapshot", "prefix", prefix, "files", len(files))
	return dir, nil
}
