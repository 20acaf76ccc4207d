package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github/itish2003/docchat/models"
)

var queryDebug bool

var queryCmd = &cobra.Command{
	Use:   "query [question]",
	Short: "Ask a question about the ingested documents",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runQuery,
}

func init() {
	queryCmd.Flags().BoolVar(&queryDebug, "debug", false, "Print retrieval diagnostics instead of an answer")
	rootCmd.AddCommand(queryCmd)
}

func runQuery(cmd *cobra.Command, args []string) error {
	question := strings.Join(args, " ")
	ctx := cmd.Context()

	a, err := newApp(ctx, appConfig)
	if err != nil {
		return err
	}
	defer a.Close()

	if queryDebug {
		diagnostics, err := a.rag.DebugRetrieval(ctx, question)
		if err != nil {
			return fmt.Errorf("failed to run diagnostics: %w", err)
		}
		data, err := json.MarshalIndent(diagnostics, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return nil
	}

	resp, err := a.rag.Chat(ctx, models.ChatRequest{
		Messages: []models.Message{{Role: models.RoleUser, Content: question}},
	})
	if err != nil {
		return fmt.Errorf("failed to answer: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, resp.Answer)
	if len(resp.Citations) > 0 {
		fmt.Fprintln(out, "\nSources:")
		for _, c := range resp.Citations {
			fmt.Fprintf(out, "  [%d] %s (%s)\n", c.ID, c.SourceDoc, c.ChunkID)
		}
	}
	return nil
}
