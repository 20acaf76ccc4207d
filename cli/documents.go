package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var documentsCmd = &cobra.Command{
	Use:   "documents",
	Short: "Manage ingested documents",
}

var documentsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List ingested documents",
	Args:  cobra.NoArgs,
	RunE:  runDocumentsList,
}

var documentsDeleteCmd = &cobra.Command{
	Use:   "delete [doc-id]",
	Short: "Delete a document with its chunks and embeddings",
	Args:  cobra.ExactArgs(1),
	RunE:  runDocumentsDelete,
}

func init() {
	documentsCmd.AddCommand(documentsListCmd)
	documentsCmd.AddCommand(documentsDeleteCmd)
	rootCmd.AddCommand(documentsCmd)
}

func runDocumentsList(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	a, err := newApp(ctx, appConfig)
	if err != nil {
		return err
	}
	defer a.Close()

	resp, err := a.rag.ListDocuments(ctx)
	if err != nil {
		return fmt.Errorf("failed to list documents: %w", err)
	}
	out := cmd.OutOrStdout()
	if resp.Count == 0 {
		fmt.Fprintln(out, "No documents found.")
		return nil
	}

	for _, doc := range resp.Documents {
		fmt.Fprintf(out, "  %s\n", doc.ID)
		fmt.Fprintf(out, "    Title:   %s\n", doc.Title)
		fmt.Fprintf(out, "    Source:  %s\n", doc.Source)
		fmt.Fprintf(out, "    Chunks:  %d\n", doc.ChunkCount)
		fmt.Fprintf(out, "    Created: %s\n", doc.CreatedAt.Format("2006-01-02 15:04:05"))
		fmt.Fprintln(out)
	}
	fmt.Fprintf(out, "Total: %d documents\n", resp.Count)
	return nil
}

func runDocumentsDelete(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := newApp(ctx, appConfig)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.rag.DeleteDocument(ctx, args[0]); err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Deleted document %s\n", args[0])
	return nil
}
