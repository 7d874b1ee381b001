// Package mcp exposes the compliance pipeline as MCP tools for agent
// clients.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/mfenderov/standards-rag/internal/answer"
	"github.com/mfenderov/standards-rag/internal/normalize"
	"github.com/mfenderov/standards-rag/pkg/models"
)

// Config holds MCP server configuration.
type Config struct {
	Name    string
	Version string
}

// Asker answers a compliance question with cited sources.
type Asker interface {
	Ask(ctx context.Context, question string) (*models.QueryResult, error)
}

// Server wraps the MCP server with the compliance pipeline.
type Server struct {
	mcpServer *server.MCPServer
	pipeline  Asker
	retriever answer.Retriever
}

// NewServer creates an MCP server with ask and search tools.
func NewServer(config Config, pipeline Asker, retriever answer.Retriever) *Server {
	mcpServer := server.NewMCPServer(
		config.Name,
		config.Version,
		server.WithToolCapabilities(true),
	)

	s := &Server{
		mcpServer: mcpServer,
		pipeline:  pipeline,
		retriever: retriever,
	}

	askTool := mcp.NewTool("ask_compliance_question",
		mcp.WithDescription("Answer a compliance question grounded in retrieved regulatory standards. Returns the answer and the standards it cites."),
		mcp.WithString("question",
			mcp.Required(),
			mcp.Description("Natural-language compliance question"),
		),
	)
	mcpServer.AddTool(askTool, s.askHandler)

	searchTool := mcp.NewTool("search_standards",
		mcp.WithDescription("Retrieve the regulatory standards most similar to a query, without generating an answer."),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("Search query string"),
		),
		mcp.WithNumber("limit",
			mcp.Description("Maximum number of standards to return (default: 5)"),
		),
	)
	mcpServer.AddTool(searchTool, s.searchHandler)

	return s
}

// askHandler handles the ask_compliance_question tool call.
func (s *Server) askHandler(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	question, err := req.RequireString("question")
	if err != nil {
		return mcp.NewToolResultError("question parameter is required"), nil
	}

	result, err := s.pipeline.Ask(ctx, question)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("ask failed: %v", err)), nil
	}

	data, err := json.Marshal(result)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

// searchResult is one retrieved standard in search_standards output.
type searchResult struct {
	ID             string  `json:"id"`
	StandardNumber string  `json:"standard_number"`
	Title          string  `json:"title"`
	Relevance      float64 `json:"relevance"`
	Text           string  `json:"text"`
}

// searchHandler handles the search_standards tool call.
func (s *Server) searchHandler(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError("query parameter is required"), nil
	}

	limit := req.GetInt("limit", answer.DefaultTopK)

	hits, err := s.retriever.Query(ctx, query, limit)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("search failed: %v", err)), nil
	}

	results := make([]searchResult, len(hits.IDs))
	for i := range hits.IDs {
		results[i] = searchResult{
			ID:             hits.IDs[i],
			StandardNumber: hits.Attributes[i][normalize.AttrStandardNumber],
			Title:          hits.Attributes[i][normalize.AttrTitle],
			Relevance:      1 - hits.Distances[i],
			Text:           hits.Texts[i],
		}
	}

	data, err := json.Marshal(results)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal results: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

// ServeStdio starts the MCP server using stdio transport.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}
