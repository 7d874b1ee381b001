// Package corpus reads scraper output files into standard records.
package corpus

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/mfenderov/standards-rag/pkg/models"
)

const (
	// DataSuffix is the extension of scraper output files.
	DataSuffix = ".json"

	// NotFoundMarker tags placeholder files the scraper writes for
	// standards it could not locate. They must never enter the corpus.
	NotFoundMarker = "not-found"
)

// Loader resolves and parses standards files from a configured directory.
type Loader struct {
	Dir string
}

// LoadResult holds the parsed records plus per-item skip counts. Malformed
// files and records are warnings, never fatal.
type LoadResult struct {
	Records        []models.StandardRecord
	FilesRead      int
	FilesSkipped   int
	RecordsSkipped int
}

// Resolve returns the files to ingest. A non-empty selector names a single
// file, absolute or relative to the configured directory. An empty selector
// selects every data file in the directory, minus not-found placeholders.
// Directory enumeration order is the sorted order of os.ReadDir, so repeated
// runs see the same concatenation order.
func (l *Loader) Resolve(selector string) ([]string, error) {
	if selector != "" {
		path := selector
		if !filepath.IsAbs(path) {
			if _, err := os.Stat(path); err != nil {
				path = filepath.Join(l.Dir, selector)
			}
		}
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("standards file not found: %w", err)
		}
		return []string{path}, nil
	}

	entries, err := os.ReadDir(l.Dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read standards directory: %w", err)
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if !strings.HasSuffix(name, DataSuffix) {
			continue
		}
		if strings.Contains(name, NotFoundMarker) {
			slog.Debug("skipping not-found placeholder", "file", name)
			continue
		}
		files = append(files, filepath.Join(l.Dir, name))
	}
	return files, nil
}

// Load parses the given files in order. A file whose top-level shape is not
// an array of records is skipped entirely; a record missing id, standard
// number or title is skipped individually. Both are logged and counted.
func (l *Loader) Load(files []string) *LoadResult {
	result := &LoadResult{}

	for _, file := range files {
		data, err := os.ReadFile(file)
		if err != nil {
			slog.Warn("skipping unreadable standards file", "file", file, "error", err)
			result.FilesSkipped++
			continue
		}

		var records []models.StandardRecord
		if err := json.Unmarshal(data, &records); err != nil {
			slog.Warn("skipping unparsable standards file", "file", file, "error", err)
			result.FilesSkipped++
			continue
		}
		result.FilesRead++

		for _, rec := range records {
			if !rec.Valid() {
				slog.Warn("skipping malformed record", "file", file, "id", rec.ID)
				result.RecordsSkipped++
				continue
			}
			result.Records = append(result.Records, rec)
		}
	}

	return result
}
