// Package ingest loads standard records into the vector index, replacing
// any prior corpus snapshot.
package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"time"

	"github.com/mfenderov/standards-rag/internal/corpus"
	"github.com/mfenderov/standards-rag/internal/dedup"
	"github.com/mfenderov/standards-rag/internal/normalize"
)

// DefaultBatchSize keeps index writes inside embedding-provider rate limits.
const DefaultBatchSize = 100

// Index is the write side of the vector index.
type Index interface {
	DeleteCollection(ctx context.Context) error
	EnsureCollection(ctx context.Context) error
	Add(ctx context.Context, ids []string, texts []string, attrs []map[string]string) error
}

// Report summarizes one ingestion run.
type Report struct {
	FilesRead      int
	FilesSkipped   int
	RecordsLoaded  int
	RecordsSkipped int
	UniqueCount    int
	BatchesWritten int
	DocsCommitted  int
	Duration       time.Duration
}

// PartialError reports a batch write failing mid-run. The collection keeps
// whatever the successful batches wrote; there is no rollback. Re-running
// ingestion recovers, since a run fully replaces the collection.
type PartialError struct {
	Committed int
	Pending   int
	Err       error
}

func (e *PartialError) Error() string {
	return fmt.Sprintf("ingestion aborted with %d documents committed, %d pending: %v",
		e.Committed, e.Pending, e.Err)
}

func (e *PartialError) Unwrap() error { return e.Err }

// Engine runs the load, dedup, normalize, index flow.
type Engine struct {
	loader    *corpus.Loader
	index     Index
	batchSize int
}

// New creates an ingestion engine. batchSize <= 0 selects the default.
func New(loader *corpus.Loader, index Index, batchSize int) *Engine {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &Engine{loader: loader, index: index, batchSize: batchSize}
}

// Run ingests the selected file, or the whole configured directory when
// selector is empty. The prior corpus snapshot is deleted first: ingestion
// is full-replace, never an incremental merge. Batches are written
// sequentially to pace embedding-provider calls.
func (e *Engine) Run(ctx context.Context, selector string) (*Report, error) {
	start := time.Now()
	report := &Report{}

	files, err := e.loader.Resolve(selector)
	if err != nil {
		return nil, err
	}
	slog.Info("starting ingestion", "files", len(files))

	loaded := e.loader.Load(files)
	report.FilesRead = loaded.FilesRead
	report.FilesSkipped = loaded.FilesSkipped
	report.RecordsLoaded = len(loaded.Records)
	report.RecordsSkipped = loaded.RecordsSkipped

	kept := dedup.Merge(loaded.Records)
	report.UniqueCount = len(kept)

	// Stable batch membership across runs: sort by id. Which record wins an
	// id was already decided by the input-order dedup pass.
	ids := slices.Sorted(maps.Keys(kept))
	texts := make([]string, len(ids))
	attrs := make([]map[string]string, len(ids))
	for i, id := range ids {
		texts[i], attrs[i] = normalize.Document(kept[id])
	}

	if err := e.index.DeleteCollection(ctx); err != nil {
		return report, fmt.Errorf("failed to remove prior snapshot: %w", err)
	}
	if err := e.index.EnsureCollection(ctx); err != nil {
		return report, err
	}

	for lo := 0; lo < len(ids); lo += e.batchSize {
		hi := min(lo+e.batchSize, len(ids))
		if err := e.index.Add(ctx, ids[lo:hi], texts[lo:hi], attrs[lo:hi]); err != nil {
			report.Duration = time.Since(start)
			return report, &PartialError{
				Committed: report.DocsCommitted,
				Pending:   len(ids) - report.DocsCommitted,
				Err:       err,
			}
		}
		report.BatchesWritten++
		report.DocsCommitted = hi
		slog.Debug("batch written", "batch", report.BatchesWritten, "docs", hi-lo)
	}

	report.Duration = time.Since(start)
	slog.Info("ingestion complete",
		"records_loaded", report.RecordsLoaded,
		"unique", report.UniqueCount,
		"batches", report.BatchesWritten,
		"skipped_files", report.FilesSkipped,
		"skipped_records", report.RecordsSkipped,
		"duration", report.Duration)
	return report, nil
}
