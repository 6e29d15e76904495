package cli

import (
	"fmt"
	"maps"
	"slices"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

var documentCmd = &cobra.Command{
	Use:   "document",
	Short: "Manage indexed documents",
	Long:  `Add, view, delete, or find documents similar to an indexed document.`,
}

var documentAddCmd = &cobra.Command{
	Use:   "add [content]",
	Short: "Index a document from text",
	Args:  cobra.ExactArgs(1),
	RunE:  runDocumentAdd,
}

var documentGetCmd = &cobra.Command{
	Use:   "get [doc-id]",
	Short: "Show document info",
	Args:  cobra.ExactArgs(1),
	RunE:  runDocumentGet,
}

var documentDeleteCmd = &cobra.Command{
	Use:   "delete [doc-id]",
	Short: "Remove a document and all its chunks",
	Args:  cobra.ExactArgs(1),
	RunE:  runDocumentDelete,
}

var documentSimilarCmd = &cobra.Command{
	Use:   "similar [doc-id]",
	Short: "Find documents similar to an indexed document",
	Args:  cobra.ExactArgs(1),
	RunE:  runDocumentSimilar,
}

var (
	documentCollection string
	documentTitle      string
	documentLimit      int
)

func init() {
	documentCmd.PersistentFlags().StringVarP(&documentCollection, "collection", "c", "", "collection (default: configured collection)")
	documentAddCmd.Flags().StringVar(&documentTitle, "title", "", "document title")
	documentSimilarCmd.Flags().IntVarP(&documentLimit, "limit", "n", 0, "maximum number of results (0 = configured default)")

	documentCmd.AddCommand(documentAddCmd)
	documentCmd.AddCommand(documentGetCmd)
	documentCmd.AddCommand(documentDeleteCmd)
	documentCmd.AddCommand(documentSimilarCmd)
	rootCmd.AddCommand(documentCmd)
}

func runDocumentAdd(cmd *cobra.Command, args []string) error {
	if documentService == nil {
		return unavailable("document service")
	}

	res, err := documentService.UploadDocument(cmd.Context(),
		domain.DocumentInput{Content: args[0], Title: documentTitle}, documentCollection)
	if err != nil {
		return fmt.Errorf("failed to add document: %w", err)
	}
	if res.Err != nil {
		return fmt.Errorf("failed to add document: %w", res.Err)
	}

	cmd.Printf("Document %s indexed into %s (%d chunks).\n", res.DocumentID, res.Collection, res.ChunkCount)
	if len(res.ZeroFilled) > 0 {
		cmd.Printf("Warning: %d chunks stored without embeddings; run 'sercha-rag repair' later.\n", len(res.ZeroFilled))
	}
	return nil
}

func runDocumentGet(cmd *cobra.Command, args []string) error {
	if documentService == nil {
		return unavailable("document service")
	}

	doc, err := documentService.GetDocument(cmd.Context(), args[0], documentCollection)
	if err != nil {
		return fmt.Errorf("failed to get document: %w", err)
	}

	cmd.Printf("Document: %s\n\n", doc.DocumentID)
	cmd.Printf("  Title:       %s\n", doc.Title)
	cmd.Printf("  Collection:  %s\n", doc.Collection)
	cmd.Printf("  Chunks:      %d\n", doc.TotalChunks)
	if !doc.UploadedAt.IsZero() {
		cmd.Printf("  Uploaded:    %s\n", doc.UploadedAt.Format("2006-01-02 15:04:05"))
	}

	if len(doc.Metadata) > 0 {
		cmd.Println("\n  Metadata:")
		for _, k := range slices.Sorted(maps.Keys(doc.Metadata)) {
			cmd.Printf("    %s: %v\n", k, doc.Metadata[k])
		}
	}
	return nil
}

func runDocumentDelete(cmd *cobra.Command, args []string) error {
	if documentService == nil {
		return unavailable("document service")
	}

	docID := args[0]
	deleted, err := documentService.DeleteDocument(cmd.Context(), docID, documentCollection)
	if err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}
	if !deleted {
		return fmt.Errorf("document %s: %w", docID, domain.ErrNotFound)
	}

	cmd.Printf("Document %s deleted.\n", docID)
	return nil
}

func runDocumentSimilar(cmd *cobra.Command, args []string) error {
	if searchService == nil {
		return unavailable("search service")
	}

	results, err := searchService.Similar(cmd.Context(), args[0], documentLimit, documentCollection)
	if err != nil {
		return fmt.Errorf("similar search failed: %w", err)
	}
	outputSearchTable(cmd, results)
	return nil
}
