package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mfenderov/standards-rag/internal/index"
	"github.com/mfenderov/standards-rag/pkg/models"
)

type fakeAsker struct {
	result *models.QueryResult
	err    error
}

func (f *fakeAsker) Ask(ctx context.Context, question string) (*models.QueryResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

type fakeRetriever struct {
	hits *index.Hits
	err  error

	gotTopK int
}

func (f *fakeRetriever) Query(ctx context.Context, text string, topK int) (*index.Hits, error) {
	f.gotTopK = topK
	if f.err != nil {
		return nil, f.err
	}
	return f.hits, nil
}

func toolRequest(name string, args map[string]any) mcp.CallToolRequest {
	req := mcp.CallToolRequest{}
	req.Params.Name = name
	req.Params.Arguments = args
	return req
}

func textContent(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	if len(result.Content) == 0 {
		t.Fatal("tool result has no content")
	}
	text, ok := result.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("content type = %T, want TextContent", result.Content[0])
	}
	return text.Text
}

func TestServer_Creation(t *testing.T) {
	s := NewServer(Config{Name: "standards-rag", Version: "1.0.0"}, &fakeAsker{}, &fakeRetriever{})

	if s == nil {
		t.Fatal("NewServer() returned nil")
	}
	if s.mcpServer == nil {
		t.Error("mcpServer should not be nil")
	}
}

func TestAskHandler(t *testing.T) {
	asker := &fakeAsker{result: &models.QueryResult{
		Answer: "ISO 14708-1:2014 applies.",
		Sources: []models.Source{
			{ID: "ISO-14708-1-2014", StandardNumber: "ISO 14708-1:2014", Title: "Implants for surgery", Relevance: 0.75},
		},
	}}
	s := NewServer(Config{Name: "standards-rag", Version: "1.0.0"}, asker, &fakeRetriever{})

	result, err := s.askHandler(context.Background(),
		toolRequest("ask_compliance_question", map[string]any{"question": "Which standards apply?"}))
	if err != nil {
		t.Fatalf("askHandler() error = %v", err)
	}
	if result.IsError {
		t.Fatalf("askHandler() returned tool error: %s", textContent(t, result))
	}

	var got models.QueryResult
	if err := json.Unmarshal([]byte(textContent(t, result)), &got); err != nil {
		t.Fatalf("tool output is not valid JSON: %v", err)
	}
	if got.Answer != "ISO 14708-1:2014 applies." {
		t.Errorf("answer = %q", got.Answer)
	}
	if len(got.Sources) != 1 {
		t.Errorf("sources length = %d, want 1", len(got.Sources))
	}
}

func TestAskHandler_MissingQuestion(t *testing.T) {
	s := NewServer(Config{Name: "standards-rag", Version: "1.0.0"}, &fakeAsker{}, &fakeRetriever{})

	result, err := s.askHandler(context.Background(),
		toolRequest("ask_compliance_question", map[string]any{}))
	if err != nil {
		t.Fatalf("askHandler() error = %v", err)
	}
	if !result.IsError {
		t.Error("askHandler() should return a tool error for a missing question")
	}
}

func TestAskHandler_PipelineError(t *testing.T) {
	asker := &fakeAsker{err: errors.New("collection not found")}
	s := NewServer(Config{Name: "standards-rag", Version: "1.0.0"}, asker, &fakeRetriever{})

	result, err := s.askHandler(context.Background(),
		toolRequest("ask_compliance_question", map[string]any{"question": "anything"}))
	if err != nil {
		t.Fatalf("askHandler() error = %v", err)
	}
	if !result.IsError {
		t.Error("pipeline failures should surface as tool errors, not protocol errors")
	}
}

func TestSearchHandler(t *testing.T) {
	retriever := &fakeRetriever{hits: &index.Hits{
		IDs:   []string{"A", "B"},
		Texts: []string{"text a", "text b"},
		Attributes: []map[string]string{
			{"standardNumber": "A 1", "title": "Alpha"},
			{"standardNumber": "B 1", "title": "Beta"},
		},
		Distances: []float64{0.2, 0.5},
	}}
	s := NewServer(Config{Name: "standards-rag", Version: "1.0.0"}, &fakeAsker{}, retriever)

	result, err := s.searchHandler(context.Background(),
		toolRequest("search_standards", map[string]any{"query": "alpha", "limit": 2}))
	if err != nil {
		t.Fatalf("searchHandler() error = %v", err)
	}
	if result.IsError {
		t.Fatalf("searchHandler() returned tool error: %s", textContent(t, result))
	}

	if retriever.gotTopK != 2 {
		t.Errorf("limit = %d, want 2", retriever.gotTopK)
	}

	var got []searchResult
	if err := json.Unmarshal([]byte(textContent(t, result)), &got); err != nil {
		t.Fatalf("tool output is not valid JSON: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("results length = %d, want 2", len(got))
	}
	if got[0].StandardNumber != "A 1" {
		t.Errorf("first standard number = %q", got[0].StandardNumber)
	}
	if got[0].Relevance != 0.8 {
		t.Errorf("relevance = %v, want 0.8", got[0].Relevance)
	}
}

func TestSearchHandler_DefaultLimit(t *testing.T) {
	retriever := &fakeRetriever{hits: &index.Hits{}}
	s := NewServer(Config{Name: "standards-rag", Version: "1.0.0"}, &fakeAsker{}, retriever)

	_, err := s.searchHandler(context.Background(),
		toolRequest("search_standards", map[string]any{"query": "alpha"}))
	if err != nil {
		t.Fatalf("searchHandler() error = %v", err)
	}
	if retriever.gotTopK != 5 {
		t.Errorf("default limit = %d, want 5", retriever.gotTopK)
	}
}
