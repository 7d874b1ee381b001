package cmd

import (
	"fmt"

	"github.com/mfenderov/standards-rag/internal/answer"
	"github.com/mfenderov/standards-rag/internal/config"
	"github.com/mfenderov/standards-rag/internal/embeddings"
	"github.com/mfenderov/standards-rag/internal/index"
	"github.com/mfenderov/standards-rag/internal/llm"
)

// newIndexClient builds the vector index client with its embedder.
func newIndexClient(cfg config.Config) (*index.Client, error) {
	embedder, err := embeddings.New(embeddings.Config{
		BaseURL: cfg.Embeddings.BaseURL,
		APIKey:  cfg.Embeddings.APIKey,
		Model:   cfg.Embeddings.Model,
		Timeout: cfg.Embeddings.Timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create embeddings client: %w", err)
	}

	idx, err := index.New(index.Config{
		Addresses:  cfg.Elasticsearch.Addresses,
		Collection: cfg.Elasticsearch.Collection,
		Username:   cfg.Elasticsearch.Username,
		Password:   cfg.Elasticsearch.Password,
		Dimensions: cfg.Embeddings.Dimensions,
	}, embedder)
	if err != nil {
		return nil, fmt.Errorf("failed to create index client: %w", err)
	}
	return idx, nil
}

// newPipeline builds the full retrieval-and-answer pipeline.
func newPipeline(cfg config.Config) (*answer.Pipeline, *index.Client, error) {
	idx, err := newIndexClient(cfg)
	if err != nil {
		return nil, nil, err
	}

	generator, err := llm.New(llm.Config{
		BaseURL:   cfg.LLM.BaseURL,
		APIKey:    cfg.LLM.APIKey,
		Model:     cfg.LLM.Model,
		MaxTokens: cfg.LLM.MaxTokens,
		Timeout:   cfg.LLM.Timeout,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create LLM client: %w", err)
	}

	return answer.New(idx, generator, cfg.Retrieval.TopK), idx, nil
}
