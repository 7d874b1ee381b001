// Package answer turns a compliance question into a grounded, attributable
// answer backed by retrieved standards.
package answer

import (
	"context"
	"fmt"
	"strings"

	"github.com/mfenderov/standards-rag/internal/index"
	"github.com/mfenderov/standards-rag/internal/normalize"
	"github.com/mfenderov/standards-rag/pkg/models"
)

// DefaultTopK is the number of nearest standards retrieved per question.
const DefaultTopK = 5

// Retriever is the read side of the vector index.
type Retriever interface {
	Query(ctx context.Context, text string, topK int) (*index.Hits, error)
}

// Generator produces the answer text from a system instruction and the
// user's question.
type Generator interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

// systemPrompt constrains the model to the retrieved evidence. The evidence
// block is embedded verbatim; the chat API takes a plain system string.
const systemPrompt = `You are a regulatory compliance assistant. Answer the user's question using only the standards listed in the evidence below. Cite standards by their standard number. If none of the listed standards is relevant to the question, state that explicitly instead of guessing.

Evidence:

%s`

// Pipeline answers questions against the current corpus snapshot. It is
// read-only with respect to the corpus, so any number of questions may run
// concurrently.
type Pipeline struct {
	retriever Retriever
	generator Generator
	topK      int
}

// New creates an answer pipeline. topK <= 0 selects the default.
func New(retriever Retriever, generator Generator, topK int) *Pipeline {
	if topK <= 0 {
		topK = DefaultTopK
	}
	return &Pipeline{retriever: retriever, generator: generator, topK: topK}
}

// Ask retrieves the nearest standards for the question and asks the model
// for an answer grounded in that evidence. The three collaborator calls are
// sequential by necessity: each depends on the previous one's output.
func (p *Pipeline) Ask(ctx context.Context, question string) (*models.QueryResult, error) {
	hits, err := p.retriever.Query(ctx, question, p.topK)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve standards: %w", err)
	}

	system := fmt.Sprintf(systemPrompt, EvidenceBlock(hits))
	answerText, err := p.generator.Complete(ctx, system, question)
	if err != nil {
		return nil, fmt.Errorf("failed to generate answer: %w", err)
	}

	sources := make([]models.Source, len(hits.IDs))
	for i := range hits.IDs {
		sources[i] = models.Source{
			ID:             hits.IDs[i],
			StandardNumber: standardNumber(hits, i),
			Title:          hits.Attributes[i][normalize.AttrTitle],
			// Monotonic transform of cosine distance, for display only.
			// Not clamped: unusual distance metrics may push it outside
			// [0, 1]; higher still means more relevant.
			Relevance: 1 - hits.Distances[i],
		}
	}

	return &models.QueryResult{Answer: answerText, Sources: sources}, nil
}

// EvidenceBlock renders retrieved documents for the model, each prefixed
// with its 1-based rank and standard number.
func EvidenceBlock(hits *index.Hits) string {
	if len(hits.IDs) == 0 {
		return "No relevant standards were retrieved."
	}

	var b strings.Builder
	for i := range hits.IDs {
		if i > 0 {
			b.WriteString("\n---\n")
		}
		fmt.Fprintf(&b, "[%d] %s\n%s", i+1, standardNumber(hits, i), hits.Texts[i])
	}
	return b.String()
}

// standardNumber falls back to the document id when the attribute is missing.
func standardNumber(hits *index.Hits, i int) string {
	if n := hits.Attributes[i][normalize.AttrStandardNumber]; n != "" {
		return n
	}
	return hits.IDs[i]
}
