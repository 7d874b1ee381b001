// Package index stores and retrieves indexed standards in an Elasticsearch
// collection with cosine-similarity vector search.
package index

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/elastic/go-elasticsearch/v8"
)

var (
	// ErrCollectionNotFound means the corpus was never ingested.
	ErrCollectionNotFound = errors.New("collection not found")

	// ErrModelMismatch means the collection was built with a different
	// embedding model than the one configured for querying. Querying
	// across models degrades relevance silently, so fail fast instead.
	ErrModelMismatch = errors.New("embedding model mismatch")
)

// Embedder produces the vectors stored with documents and used for query
// matching. The same model identity must back both sides of the pipeline.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Model() string
}

// Hits holds query results as parallel slices aligned by rank, best first.
// Distances are cosine distances: 0 is identical, higher is farther.
type Hits struct {
	IDs        []string
	Texts      []string
	Attributes []map[string]string
	Distances  []float64
}

// Config holds index client configuration.
type Config struct {
	Addresses  []string
	Collection string
	Username   string
	Password   string
	Dimensions int // embedding vector length
}

// Client wraps Elasticsearch as a vector-indexed document collection.
type Client struct {
	es         *elasticsearch.Client
	collection string
	embedder   Embedder
	dims       int
}

// New creates a new index client. The embedder is invoked for every added
// document and every query.
func New(config Config, embedder Embedder) (*Client, error) {
	if config.Collection == "" {
		return nil, fmt.Errorf("collection name is required")
	}
	if config.Dimensions <= 0 {
		return nil, fmt.Errorf("embedding dimensions are required")
	}

	es, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: config.Addresses,
		Username:  config.Username,
		Password:  config.Password,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create ES client: %w", err)
	}

	return &Client{
		es:         es,
		collection: config.Collection,
		embedder:   embedder,
		dims:       config.Dimensions,
	}, nil
}

// Ping checks if Elasticsearch is available.
func (c *Client) Ping(ctx context.Context) bool {
	res, err := c.es.Ping(c.es.Ping.WithContext(ctx))
	if err != nil {
		return false
	}
	defer res.Body.Close()
	return !res.IsError()
}

// mappingTemplate defines the collection mapping. The embedding model
// identity is recorded in _meta so query time can verify it matches.
const mappingTemplate = `{
	"mappings": {
		"_meta": { "embedding_model": %q },
		"properties": {
			"text": { "type": "text", "analyzer": "english" },
			"attributes": {
				"properties": {
					"standardNumber": { "type": "keyword" },
					"title": { "type": "text" },
					"source": { "type": "keyword" },
					"hasScope": { "type": "keyword" }
				}
			},
			"embedding": {
				"type": "dense_vector",
				"dims": %d,
				"index": true,
				"similarity": "cosine"
			}
		}
	}
}`

// DeleteCollection removes the collection. Deleting a collection that does
// not exist is not an error; full-replace ingestion relies on that.
func (c *Client) DeleteCollection(ctx context.Context) error {
	res, err := c.es.Indices.Delete(
		[]string{c.collection},
		c.es.Indices.Delete.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("failed to delete collection: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() && res.StatusCode != http.StatusNotFound {
		return fmt.Errorf("error deleting collection: %s", res.String())
	}
	return nil
}

// EnsureCollection creates the collection with the vector mapping if it
// does not already exist.
func (c *Client) EnsureCollection(ctx context.Context) error {
	res, err := c.es.Indices.Exists([]string{c.collection}, c.es.Indices.Exists.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("failed to check collection: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusOK {
		return nil
	}

	mapping := fmt.Sprintf(mappingTemplate, c.embedder.Model(), c.dims)
	res, err = c.es.Indices.Create(
		c.collection,
		c.es.Indices.Create.WithContext(ctx),
		c.es.Indices.Create.WithBody(bytes.NewReader([]byte(mapping))),
	)
	if err != nil {
		return fmt.Errorf("failed to create collection: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("error creating collection: %s", res.String())
	}
	return nil
}

// storedDoc is the document shape written to and read from the collection.
type storedDoc struct {
	Text       string            `json:"text"`
	Attributes map[string]string `json:"attributes"`
	Embedding  []float32         `json:"embedding,omitempty"`
}

// Add embeds and writes one batch of documents. The three slices are
// parallel arrays aligned by position; a length mismatch is an error before
// anything is written.
func (c *Client) Add(ctx context.Context, ids []string, texts []string, attrs []map[string]string) error {
	if len(ids) != len(texts) || len(ids) != len(attrs) {
		return fmt.Errorf("parallel arrays misaligned: %d ids, %d texts, %d attributes",
			len(ids), len(texts), len(attrs))
	}

	var buf bytes.Buffer
	for i, id := range ids {
		embedding, err := c.embedder.Embed(ctx, texts[i])
		if err != nil {
			return fmt.Errorf("failed to embed document %s: %w", id, err)
		}

		action, err := json.Marshal(map[string]any{
			"index": map[string]any{"_id": id},
		})
		if err != nil {
			return fmt.Errorf("failed to marshal bulk action: %w", err)
		}
		doc, err := json.Marshal(storedDoc{
			Text:       texts[i],
			Attributes: attrs[i],
			Embedding:  embedding,
		})
		if err != nil {
			return fmt.Errorf("failed to marshal document %s: %w", id, err)
		}
		buf.Write(action)
		buf.WriteByte('\n')
		buf.Write(doc)
		buf.WriteByte('\n')
	}

	res, err := c.es.Bulk(
		bytes.NewReader(buf.Bytes()),
		c.es.Bulk.WithContext(ctx),
		c.es.Bulk.WithIndex(c.collection),
	)
	if err != nil {
		return fmt.Errorf("bulk write failed: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("bulk write error: %s", res.String())
	}

	var br bulkResponse
	if err := json.NewDecoder(res.Body).Decode(&br); err != nil {
		return fmt.Errorf("failed to decode bulk response: %w", err)
	}
	if br.Errors {
		for _, item := range br.Items {
			if item.Index.Error != nil {
				return fmt.Errorf("bulk write error for %s: %s", item.Index.ID, item.Index.Error.Reason)
			}
		}
		return fmt.Errorf("bulk write reported errors")
	}
	return nil
}

// bulkResponse is the subset of the ES bulk response we inspect.
type bulkResponse struct {
	Errors bool `json:"errors"`
	Items  []struct {
		Index struct {
			ID    string `json:"_id"`
			Error *struct {
				Reason string `json:"reason"`
			} `json:"error,omitempty"`
		} `json:"index"`
	} `json:"items"`
}

// Refresh forces a collection refresh so added documents become searchable
// immediately. Useful for tests.
func (c *Client) Refresh(ctx context.Context) error {
	res, err := c.es.Indices.Refresh(
		c.es.Indices.Refresh.WithContext(ctx),
		c.es.Indices.Refresh.WithIndex(c.collection),
	)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	return nil
}

// searchResponse is the subset of the ES search response we read.
type searchResponse struct {
	Hits struct {
		Hits []struct {
			ID     string    `json:"_id"`
			Score  float64   `json:"_score"`
			Source storedDoc `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

// Query embeds the question and returns the top-K nearest documents by
// cosine similarity, best first. Returns ErrCollectionNotFound if the
// collection does not exist and ErrModelMismatch if it was built with a
// different embedding model.
func (c *Client) Query(ctx context.Context, text string, topK int) (*Hits, error) {
	if err := c.checkModel(ctx); err != nil {
		return nil, err
	}

	vector, err := c.embedder.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	searchQuery := map[string]any{
		"knn": map[string]any{
			"field":          "embedding",
			"query_vector":   vector,
			"k":              topK,
			"num_candidates": topK * 4,
		},
		"size":    topK,
		"_source": []string{"text", "attributes"},
	}

	data, err := json.Marshal(searchQuery)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal query: %w", err)
	}

	res, err := c.es.Search(
		c.es.Search.WithContext(ctx),
		c.es.Search.WithIndex(c.collection),
		c.es.Search.WithBody(bytes.NewReader(data)),
	)
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("%w: %s", ErrCollectionNotFound, c.collection)
	}
	if res.IsError() {
		return nil, fmt.Errorf("search error: %s", res.String())
	}

	var sr searchResponse
	if err := json.NewDecoder(res.Body).Decode(&sr); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	hits := &Hits{
		IDs:        make([]string, len(sr.Hits.Hits)),
		Texts:      make([]string, len(sr.Hits.Hits)),
		Attributes: make([]map[string]string, len(sr.Hits.Hits)),
		Distances:  make([]float64, len(sr.Hits.Hits)),
	}
	for i, hit := range sr.Hits.Hits {
		hits.IDs[i] = hit.ID
		hits.Texts[i] = hit.Source.Text
		hits.Attributes[i] = hit.Source.Attributes
		hits.Distances[i] = cosineDistance(hit.Score)
	}
	return hits, nil
}

// cosineDistance converts an ES kNN score back to cosine distance. For a
// cosine dense_vector field ES reports score = (1 + cos) / 2, so the
// distance 1 - cos works out to 2 * (1 - score).
func cosineDistance(score float64) float64 {
	return 2 * (1 - score)
}

// mappingResponse is the subset of the get-mapping response we read.
type mappingResponse map[string]struct {
	Mappings struct {
		Meta map[string]any `json:"_meta"`
	} `json:"mappings"`
}

// checkModel verifies the collection exists and was built with the embedder
// configured for this client.
func (c *Client) checkModel(ctx context.Context) error {
	res, err := c.es.Indices.GetMapping(
		c.es.Indices.GetMapping.WithContext(ctx),
		c.es.Indices.GetMapping.WithIndex(c.collection),
	)
	if err != nil {
		return fmt.Errorf("failed to read collection mapping: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%w: %s", ErrCollectionNotFound, c.collection)
	}
	if res.IsError() {
		return fmt.Errorf("mapping error: %s", res.String())
	}

	var mr mappingResponse
	if err := json.NewDecoder(res.Body).Decode(&mr); err != nil {
		return fmt.Errorf("failed to decode mapping: %w", err)
	}

	for _, idx := range mr {
		stored, _ := idx.Mappings.Meta["embedding_model"].(string)
		if stored != "" && stored != c.embedder.Model() {
			return fmt.Errorf("%w: collection built with %q, querying with %q",
				ErrModelMismatch, stored, c.embedder.Model())
		}
	}
	return nil
}
