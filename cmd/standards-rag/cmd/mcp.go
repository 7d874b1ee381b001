package cmd

import (
	"fmt"

	"github.com/mfenderov/standards-rag/internal/mcp"
	"github.com/spf13/cobra"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start the MCP server",
	Long: `Start the MCP server for agent clients.

The server communicates via stdio and provides two tools:
  - ask_compliance_question: Answer a question grounded in retrieved standards
  - search_standards: Retrieve the standards most similar to a query

Example:
  standards-rag mcp`,
	RunE: runMCP,
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}

func runMCP(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()

	pipeline, idx, err := newPipeline(cfg)
	if err != nil {
		return err
	}

	srv := mcp.NewServer(mcp.Config{
		Name:    cfg.MCP.Name,
		Version: cfg.MCP.Version,
	}, pipeline, idx)

	fmt.Fprintln(cmd.ErrOrStderr(), "Starting MCP server...")

	return srv.ServeStdio()
}
