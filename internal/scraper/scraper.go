// Package scraper crawls standards catalog sites and emits the JSON corpus
// files the ingestion pipeline consumes.
package scraper

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/gocolly/colly/v2"
	"github.com/mfenderov/standards-rag/internal/corpus"
	"github.com/mfenderov/standards-rag/internal/processor"
	"github.com/mfenderov/standards-rag/pkg/models"
)

// Config holds scraper configuration.
type Config struct {
	Delay     time.Duration
	MaxDepth  int
	UserAgent string
	Timeout   time.Duration
	Source    string // provenance label written into records, e.g. "iso"
}

// Scraper crawls a catalog and extracts one record per standard detail page.
type Scraper struct {
	config    Config
	processor *processor.Processor
}

// New creates a new Scraper with the given configuration.
func New(config Config) *Scraper {
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}
	if config.UserAgent == "" {
		config.UserAgent = "standards-rag/1.0"
	}
	return &Scraper{
		config:    config,
		processor: processor.New(),
	}
}

// Result holds one catalog crawl: the records located plus the identifiers
// the catalog listed but had no detail page for.
type Result struct {
	Records  []models.StandardRecord
	NotFound []string
}

// Scrape crawls the catalog starting at the given URL, staying on the same
// host. Detail pages are recognized by a data-standard-id attribute on the
// record container; pages marked data-standard-missing contribute to the
// not-found list instead.
func (s *Scraper) Scrape(ctx context.Context, startURL string) (*Result, error) {
	parsedURL, err := url.Parse(startURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse URL: %w", err)
	}

	result := &Result{}
	var mu sync.Mutex
	var cancelled bool

	slog.Debug("starting scrape", "url", startURL, "max_depth", s.config.MaxDepth)

	c := colly.NewCollector(
		colly.MaxDepth(s.config.MaxDepth),
		colly.UserAgent(s.config.UserAgent),
	)

	c.Limit(&colly.LimitRule{
		DomainGlob:  "*",
		Delay:       s.config.Delay,
		Parallelism: 2,
	})
	c.SetRequestTimeout(s.config.Timeout)

	c.OnRequest(func(r *colly.Request) {
		if ctx.Err() != nil {
			slog.Debug("scrape cancelled", "url", r.URL.String())
			r.Abort()
			cancelled = true
		}
	})

	c.OnHTML("[data-standard-id]", func(e *colly.HTMLElement) {
		rec := s.extractRecord(e)
		if rec.ID == "" {
			return
		}
		mu.Lock()
		result.Records = append(result.Records, rec)
		mu.Unlock()
		slog.Debug("extracted standard", "id", rec.ID, "number", rec.StandardNumber)
	})

	c.OnHTML("[data-standard-missing]", func(e *colly.HTMLElement) {
		id := strings.TrimSpace(e.Attr("data-standard-missing"))
		if id == "" {
			return
		}
		mu.Lock()
		result.NotFound = append(result.NotFound, id)
		mu.Unlock()
		slog.Debug("standard not located", "id", id)
	})

	c.OnHTML("a[href]", func(e *colly.HTMLElement) {
		absoluteURL := e.Request.AbsoluteURL(e.Attr("href"))
		linkURL, err := url.Parse(absoluteURL)
		if err != nil {
			return
		}
		if linkURL.Host == parsedURL.Host {
			e.Request.Visit(absoluteURL)
		}
	})

	if err := c.Visit(startURL); err != nil {
		slog.Debug("visit error (continuing)", "url", startURL, "error", err)
		return result, nil
	}
	c.Wait()

	if cancelled {
		slog.Info("scrape cancelled by context", "records", len(result.Records))
		return result, ctx.Err()
	}

	slog.Debug("scrape complete", "url", startURL,
		"records", len(result.Records), "not_found", len(result.NotFound))
	return result, nil
}

// extractRecord pulls one standard record out of a detail page container.
func (s *Scraper) extractRecord(e *colly.HTMLElement) models.StandardRecord {
	rec := models.StandardRecord{
		ID:                  strings.TrimSpace(e.Attr("data-standard-id")),
		StandardNumber:      strings.TrimSpace(e.ChildText(".standard-number")),
		Title:               strings.TrimSpace(e.ChildText(".standard-title")),
		SDOName:             strings.TrimSpace(e.ChildText(".sdo-name")),
		Category:            strings.TrimSpace(e.ChildText(".standard-category")),
		Subcategory:         strings.TrimSpace(e.ChildText(".standard-subcategory")),
		RegulationReference: strings.TrimSpace(e.ChildText(".regulation-reference")),
		Source:              s.config.Source,
	}

	if rec.Title == "" {
		rec.Title = s.processor.ExtractTitle(string(e.Response.Body))
	}

	// Scope is published as marked-up HTML; flatten it for embedding.
	if scopeHTML, err := e.DOM.Find(".standard-scope").Html(); err == nil && scopeHTML != "" {
		scope, err := s.processor.ScopeText(scopeHTML)
		if err != nil {
			slog.Warn("failed to flatten scope", "id", rec.ID, "error", err)
		} else {
			rec.Scope = scope
		}
	}

	for _, code := range e.ChildTexts(".ics-code") {
		if code = strings.TrimSpace(code); code != "" {
			rec.ICSClassifications = append(rec.ICSClassifications, code)
		}
	}

	return rec
}

// WriteCorpus writes a crawl result into the standards directory: one
// <source>-standards.json with the located records and, when identifiers
// were missing, a <source>-not-found-standards.json placeholder that
// ingestion knows to skip. Returns the paths written.
func WriteCorpus(dir, source string, result *Result) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create standards directory: %w", err)
	}

	var written []string

	data, err := json.MarshalIndent(result.Records, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal records: %w", err)
	}
	recordsPath := filepath.Join(dir, source+"-standards"+corpus.DataSuffix)
	if err := os.WriteFile(recordsPath, data, 0o644); err != nil {
		return nil, fmt.Errorf("failed to write standards file: %w", err)
	}
	written = append(written, recordsPath)

	if len(result.NotFound) > 0 {
		data, err := json.MarshalIndent(result.NotFound, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("failed to marshal not-found list: %w", err)
		}
		notFoundPath := filepath.Join(dir,
			source+"-"+corpus.NotFoundMarker+"-standards"+corpus.DataSuffix)
		if err := os.WriteFile(notFoundPath, data, 0o644); err != nil {
			return nil, fmt.Errorf("failed to write not-found file: %w", err)
		}
		written = append(written, notFoundPath)
	}

	return written, nil
}
