package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var askFormat string

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Answer a single compliance question",
	Long: `Answer a natural-language compliance question grounded in the
ingested standards.

Examples:
  # Basic question
  standards-rag ask "Which standards apply to an implantable cardiac device?"

  # JSON output for scripting
  standards-rag ask "What covers medical electrical equipment?" --format json`,
	Args: cobra.ExactArgs(1),
	RunE: runAsk,
}

func init() {
	rootCmd.AddCommand(askCmd)

	askCmd.Flags().StringVar(&askFormat, "format", "text", "Output format: text or json")
}

func runAsk(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := GetConfig()

	pipeline, _, err := newPipeline(cfg)
	if err != nil {
		return err
	}

	result, err := pipeline.Ask(ctx, args[0])
	if err != nil {
		return fmt.Errorf("ask failed: %w", err)
	}

	if askFormat == "json" {
		output, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(output))
		return nil
	}

	fmt.Println(result.Answer)
	if len(result.Sources) > 0 {
		fmt.Printf("\nSources:\n")
		for i, src := range result.Sources {
			fmt.Printf("  %d. %s — %s (relevance %.3f)\n", i+1, src.StandardNumber, src.Title, src.Relevance)
		}
	}

	return nil
}
