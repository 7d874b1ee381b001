package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/mfenderov/standards-rag/internal/config"
	"github.com/mfenderov/standards-rag/internal/scraper"
	"github.com/mfenderov/standards-rag/internal/storage"
	"github.com/spf13/cobra"
)

var (
	scrapeOutputDir string
	scrapeArchive   bool
)

var scrapeCmd = &cobra.Command{
	Use:   "scrape [catalog-url]",
	Short: "Scrape a standards catalog into JSON corpus files",
	Long: `Crawl a standards catalog site and write the extracted records
into the standards directory as <source>-standards.json. Identifiers the
catalog listed but could not locate go into a separate
<source>-not-found-standards.json placeholder, which ingestion skips.

Examples:
  # Scrape a catalog
  standards-rag scrape https://catalog.example.com/standards

  # Scrape and archive the snapshot to object storage
  standards-rag scrape https://catalog.example.com/standards --archive`,
	Args: cobra.ExactArgs(1),
	RunE: runScrape,
}

func init() {
	rootCmd.AddCommand(scrapeCmd)

	scrapeCmd.Flags().StringVar(&scrapeOutputDir, "output-dir", "", "directory for corpus files (default: configured standards directory)")
	scrapeCmd.Flags().BoolVar(&scrapeArchive, "archive", false, "upload the scraped files to the corpus archive")
}

func runScrape(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := GetConfig()

	dir := scrapeOutputDir
	if dir == "" {
		dir = cfg.Ingest.Dir
	}

	s := scraper.New(scraper.Config{
		Delay:     cfg.Scraper.Delay,
		MaxDepth:  cfg.Scraper.MaxDepth,
		UserAgent: cfg.Scraper.UserAgent,
		Timeout:   cfg.Scraper.Timeout,
		Source:    cfg.Scraper.Source,
	})

	fmt.Printf("Scraping: %s\n", args[0])

	result, err := s.Scrape(ctx, args[0])
	if err != nil {
		return fmt.Errorf("scrape failed: %w", err)
	}

	files, err := scraper.WriteCorpus(dir, cfg.Scraper.Source, result)
	if err != nil {
		return fmt.Errorf("failed to write corpus files: %w", err)
	}

	fmt.Printf("\nScrape complete:\n")
	fmt.Printf("  Standards found: %d\n", len(result.Records))
	fmt.Printf("  Not located:     %d\n", len(result.NotFound))
	for _, f := range files {
		fmt.Printf("  Wrote %s\n", f)
	}

	if scrapeArchive {
		prefix, err := archiveCorpus(ctx, cfg, files)
		if err != nil {
			return fmt.Errorf("failed to archive corpus: %w", err)
		}
		fmt.Printf("  Archived under %s\n", prefix)
	}

	return nil
}

// archiveCorpus uploads the written corpus files as one snapshot.
func archiveCorpus(ctx context.Context, cfg config.Config, files []string) (string, error) {
	archive, err := storage.New(storage.Config{
		Endpoint:        cfg.Storage.Endpoint,
		Bucket:          cfg.Storage.Bucket,
		AccessKeyID:     cfg.Storage.AccessKeyID,
		SecretAccessKey: cfg.Storage.SecretAccessKey,
		UseSSL:          cfg.Storage.UseSSL,
	})
	if err != nil {
		return "", err
	}
	if err := archive.EnsureBucket(ctx); err != nil {
		return "", err
	}

	prefix := storage.SnapshotPrefix(cfg.Scraper.Source)
	var names []string
	for _, file := range files {
		data, err := os.ReadFile(file)
		if err != nil {
			return "", err
		}
		name := filepath.Base(file)
		if err := archive.PutCorpusFile(ctx, prefix, name, data); err != nil {
			return "", err
		}
		names = append(names, name)
	}

	meta := storage.SnapshotMetadata{
		Source:    cfg.Scraper.Source,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		FileCount: len(names),
		Files:     names,
	}
	if err := archive.PutMetadata(ctx, prefix, meta); err != nil {
		return "", err
	}

	return prefix, nil
}
