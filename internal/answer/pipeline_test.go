package answer

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/mfenderov/standards-rag/internal/index"
)

type fakeRetriever struct {
	hits *index.Hits
	err  error

	gotQuery string
	gotTopK  int
}

func (f *fakeRetriever) Query(ctx context.Context, text string, topK int) (*index.Hits, error) {
	f.gotQuery = text
	f.gotTopK = topK
	if f.err != nil {
		return nil, f.err
	}
	return f.hits, nil
}

type fakeGenerator struct {
	completion string
	err        error

	gotSystem string
	gotUser   string
}

func (f *fakeGenerator) Complete(ctx context.Context, system, user string) (string, error) {
	f.gotSystem = system
	f.gotUser = user
	if f.err != nil {
		return "", f.err
	}
	return f.completion, nil
}

func implantHits() *index.Hits {
	return &index.Hits{
		IDs:   []string{"ISO-14708-1-2014"},
		Texts: []string{"ISO 14708-1:2014\nImplants for surgery\nRequirements for active implantable medical devices."},
		Attributes: []map[string]string{
			{"standardNumber": "ISO 14708-1:2014", "title": "Implants for surgery"},
		},
		Distances: []float64{0.25},
	}
}

func TestAsk_EndToEnd(t *testing.T) {
	retriever := &fakeRetriever{hits: implantHits()}
	generator := &fakeGenerator{completion: "ISO 14708-1:2014 applies to implantable cardiac devices."}
	pipeline := New(retriever, generator, 5)

	question := "Which standards apply to an implantable cardiac device?"
	result, err := pipeline.Ask(context.Background(), question)
	if err != nil {
		t.Fatalf("Ask() error = %v", err)
	}

	if retriever.gotQuery != question {
		t.Errorf("retriever query = %q, want the raw question", retriever.gotQuery)
	}
	if retriever.gotTopK != 5 {
		t.Errorf("retriever topK = %d, want 5", retriever.gotTopK)
	}
	if generator.gotUser != question {
		t.Errorf("user turn = %q, want the raw question", generator.gotUser)
	}
	if !strings.Contains(generator.gotSystem, "ISO 14708-1:2014") {
		t.Error("system instruction should embed the evidence block")
	}

	if !strings.Contains(result.Answer, "ISO 14708-1:2014") {
		t.Errorf("answer = %q, should reference the standard number", result.Answer)
	}
	if len(result.Sources) != 1 {
		t.Fatalf("sources length = %d, want 1", len(result.Sources))
	}
	src := result.Sources[0]
	if src.ID != "ISO-14708-1-2014" {
		t.Errorf("source ID = %q, want %q", src.ID, "ISO-14708-1-2014")
	}
	if src.Relevance != 0.75 {
		t.Errorf("relevance = %v, want 0.75 (1 - distance)", src.Relevance)
	}
}

func TestAsk_SourcesPreserveRankOrder(t *testing.T) {
	retriever := &fakeRetriever{hits: &index.Hits{
		IDs:   []string{"A", "B", "C"},
		Texts: []string{"text a", "text b", "text c"},
		Attributes: []map[string]string{
			{"standardNumber": "A 1"}, {"standardNumber": "B 1"}, {"standardNumber": "C 1"},
		},
		Distances: []float64{0.1, 0.4, 0.9},
	}}
	pipeline := New(retriever, &fakeGenerator{completion: "ok"}, 5)

	result, err := pipeline.Ask(context.Background(), "question")
	if err != nil {
		t.Fatalf("Ask() error = %v", err)
	}

	if len(result.Sources) != 3 {
		t.Fatalf("sources length = %d, want 3", len(result.Sources))
	}
	for i := 1; i < len(result.Sources); i++ {
		if result.Sources[i].Relevance > result.Sources[i-1].Relevance {
			t.Error("sources should be ordered by descending relevance")
		}
	}
}

func TestAsk_CollectionNotFoundPropagates(t *testing.T) {
	retriever := &fakeRetriever{err: index.ErrCollectionNotFound}
	pipeline := New(retriever, &fakeGenerator{}, 0)

	_, err := pipeline.Ask(context.Background(), "question")
	if !errors.Is(err, index.ErrCollectionNotFound) {
		t.Errorf("error should wrap ErrCollectionNotFound, got %v", err)
	}
}

func TestAsk_GeneratorErrorPropagates(t *testing.T) {
	retriever := &fakeRetriever{hits: implantHits()}
	generator := &fakeGenerator{err: errors.New("model unavailable")}
	pipeline := New(retriever, generator, 0)

	if _, err := pipeline.Ask(context.Background(), "question"); err == nil {
		t.Error("Ask() should fail when generation fails")
	}
}

func TestAsk_EmptyCompletionIsNotAnError(t *testing.T) {
	retriever := &fakeRetriever{hits: implantHits()}
	pipeline := New(retriever, &fakeGenerator{completion: ""}, 0)

	result, err := pipeline.Ask(context.Background(), "question")
	if err != nil {
		t.Fatalf("Ask() error = %v", err)
	}
	if result.Answer != "" {
		t.Errorf("answer = %q, want empty string", result.Answer)
	}
}

func TestEvidenceBlock_Rendering(t *testing.T) {
	hits := &index.Hits{
		IDs:   []string{"A", "B"},
		Texts: []string{"alpha text", "beta text"},
		Attributes: []map[string]string{
			{"standardNumber": "A 1"},
			{}, // missing attribute falls back to the id
		},
		Distances: []float64{0.1, 0.2},
	}

	block := EvidenceBlock(hits)

	if !strings.Contains(block, "[1] A 1\nalpha text") {
		t.Errorf("block should rank and label the first document:\n%s", block)
	}
	if !strings.Contains(block, "[2] B\nbeta text") {
		t.Errorf("block should fall back to the id for the second document:\n%s", block)
	}
	if !strings.Contains(block, "\n---\n") {
		t.Error("documents should be separator-joined")
	}
}

func TestEvidenceBlock_Empty(t *testing.T) {
	block := EvidenceBlock(&index.Hits{})
	if block != "No relevant standards were retrieved." {
		t.Errorf("empty block = %q", block)
	}
}
