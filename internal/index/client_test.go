package index

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"testing"
	"time"
)

// fakeEmbedder produces deterministic vectors so similarity ordering is
// stable across runs.
type fakeEmbedder struct {
	dims  int
	model string
	calls int
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	f.calls++
	vec := make([]float32, f.dims)
	for i := range vec {
		vec[i] = float32((len(text)+i)%7) / 7
	}
	// Keep the vector non-zero for cosine similarity.
	vec[0] += 1
	return vec, nil
}

func (f *fakeEmbedder) Model() string {
	return f.model
}

func skipIfNoES(t *testing.T) {
	if os.Getenv("SKIP_ES_TESTS") == "1" {
		t.Skip("Skipping ES tests (SKIP_ES_TESTS=1)")
	}

	client, err := New(Config{
		Addresses:  []string{"http://localhost:9200"},
		Collection: "test-skip-check",
		Dimensions: 4,
	}, &fakeEmbedder{dims: 4, model: "fake"})
	if err != nil {
		t.Skipf("Skipping ES tests: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if !client.Ping(ctx) {
		t.Skip("Skipping ES tests: Elasticsearch not available")
	}
}

func TestNew_Validation(t *testing.T) {
	embedder := &fakeEmbedder{dims: 4, model: "fake"}

	tests := []struct {
		name    string
		config  Config
		wantErr bool
	}{
		{"valid", Config{Addresses: []string{"http://localhost:9200"}, Collection: "c", Dimensions: 4}, false},
		{"missing collection", Config{Addresses: []string{"http://localhost:9200"}, Dimensions: 4}, true},
		{"missing dimensions", Config{Addresses: []string{"http://localhost:9200"}, Collection: "c"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.config, embedder)
			if (err != nil) != tt.wantErr {
				t.Errorf("New() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestAdd_MisalignedArrays(t *testing.T) {
	embedder := &fakeEmbedder{dims: 4, model: "fake"}
	client, err := New(Config{
		Addresses:  []string{"http://localhost:9200"},
		Collection: "alignment-test",
		Dimensions: 4,
	}, embedder)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	err = client.Add(context.Background(),
		[]string{"a", "b"},
		[]string{"only one text"},
		[]map[string]string{{}, {}},
	)
	if err == nil {
		t.Fatal("Add() should reject misaligned parallel arrays")
	}
	if embedder.calls != 0 {
		t.Error("misalignment must be rejected before any embedding call")
	}
}

func TestCosineDistance(t *testing.T) {
	tests := []struct {
		score float64
		want  float64
	}{
		{1.0, 0.0},  // identical vectors
		{0.5, 1.0},  // orthogonal
		{0.0, 2.0},  // opposite
		{0.75, 0.5}, // halfway
	}

	for _, tt := range tests {
		if got := cosineDistance(tt.score); math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("cosineDistance(%v) = %v, want %v", tt.score, got, tt.want)
		}
	}
}

func TestClient_IndexAndQuery(t *testing.T) {
	skipIfNoES(t)

	embedder := &fakeEmbedder{dims: 4, model: "fake-model"}
	client, err := New(Config{
		Addresses:  []string{"http://localhost:9200"},
		Collection: "standards-rag-test-query",
		Dimensions: 4,
	}, embedder)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	ctx := context.Background()
	client.DeleteCollection(ctx)
	defer client.DeleteCollection(ctx)

	if err := client.EnsureCollection(ctx); err != nil {
		t.Fatalf("EnsureCollection() error = %v", err)
	}
	// Creating again should not error.
	if err := client.EnsureCollection(ctx); err != nil {
		t.Fatalf("EnsureCollection() second call error = %v", err)
	}

	ids := make([]string, 5)
	texts := make([]string, 5)
	attrs := make([]map[string]string, 5)
	for i := range ids {
		ids[i] = fmt.Sprintf("STD-%d", i)
		texts[i] = fmt.Sprintf("ISO %d\nStandard number %d", i, i)
		attrs[i] = map[string]string{"standardNumber": fmt.Sprintf("ISO %d", i)}
	}
	if err := client.Add(ctx, ids, texts, attrs); err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	if err := client.Refresh(ctx); err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}

	hits, err := client.Query(ctx, "ISO 0", 3)
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	if len(hits.IDs) == 0 {
		t.Fatal("Query() returned no hits")
	}
	if len(hits.IDs) > 3 {
		t.Errorf("Query() returned %d hits, want at most 3", len(hits.IDs))
	}
	if len(hits.Texts) != len(hits.IDs) || len(hits.Attributes) != len(hits.IDs) || len(hits.Distances) != len(hits.IDs) {
		t.Error("Query() result slices must be aligned")
	}
	for i := 1; i < len(hits.Distances); i++ {
		if hits.Distances[i] < hits.Distances[i-1] {
			t.Error("hits should be ordered by ascending distance")
		}
	}
}

func TestClient_QueryMissingCollection(t *testing.T) {
	skipIfNoES(t)

	embedder := &fakeEmbedder{dims: 4, model: "fake-model"}
	client, err := New(Config{
		Addresses:  []string{"http://localhost:9200"},
		Collection: "standards-rag-test-missing",
		Dimensions: 4,
	}, embedder)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	ctx := context.Background()
	client.DeleteCollection(ctx)

	_, err = client.Query(ctx, "anything", 5)
	if !errors.Is(err, ErrCollectionNotFound) {
		t.Errorf("Query() error = %v, want ErrCollectionNotFound", err)
	}
}

func TestClient_QueryModelMismatch(t *testing.T) {
	skipIfNoES(t)

	ctx := context.Background()
	config := Config{
		Addresses:  []string{"http://localhost:9200"},
		Collection: "standards-rag-test-mismatch",
		Dimensions: 4,
	}

	writer, err := New(config, &fakeEmbedder{dims: 4, model: "model-a"})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	writer.DeleteCollection(ctx)
	defer writer.DeleteCollection(ctx)
	if err := writer.EnsureCollection(ctx); err != nil {
		t.Fatalf("EnsureCollection() error = %v", err)
	}

	reader, err := New(config, &fakeEmbedder{dims: 4, model: "model-b"})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	_, err = reader.Query(ctx, "anything", 5)
	if !errors.Is(err, ErrModelMismatch) {
		t.Errorf("Query() error = %v, want ErrModelMismatch", err)
	}
}

func TestClient_DeleteMissingCollection(t *testing.T) {
	skipIfNoES(t)

	client, err := New(Config{
		Addresses:  []string{"http://localhost:9200"},
		Collection: "standards-rag-test-never-existed",
		Dimensions: 4,
	}, &fakeEmbedder{dims: 4, model: "fake"})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if err := client.DeleteCollection(context.Background()); err != nil {
		t.Errorf("DeleteCollection() on a missing collection should succeed, got %v", err)
	}
}
