package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

// snippetLength bounds the content preview printed per result.
const snippetLength = 160

var (
	searchLimit      int
	searchCollection string
	searchAll        bool
	searchThreshold  float64
	searchJSON       bool
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search indexed documents",
	Long: `Embeds the query and returns the most similar chunks from the vector store.

Use --all to search every configured collection and fuse the rankings.`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "n", 0, "maximum number of results (0 = configured default)")
	searchCmd.Flags().StringVarP(&searchCollection, "collection", "c", "", "collection to search")
	searchCmd.Flags().BoolVar(&searchAll, "all", false, "search every configured collection")
	searchCmd.Flags().Float64Var(&searchThreshold, "threshold", -1, "minimum score (negative = configured default)")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "output results as JSON")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	if searchService == nil {
		return unavailable("search service")
	}
	query := args[0]

	var (
		results []domain.SearchResult
		err     error
	)
	if searchAll {
		results, err = searchService.SearchAll(cmd.Context(), query, searchLimit)
	} else {
		req := domain.SearchRequest{Query: query, TopK: searchLimit, Collection: searchCollection}
		if searchThreshold >= 0 {
			req.Threshold = &searchThreshold
		}
		results, err = searchService.Search(cmd.Context(), req)
	}
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if searchJSON {
		return outputJSON(cmd, results)
	}
	outputSearchTable(cmd, results)
	return nil
}

func outputJSON(cmd *cobra.Command, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	cmd.Println(string(data))
	return nil
}

func outputSearchTable(cmd *cobra.Command, results []domain.SearchResult) {
	if len(results) == 0 {
		cmd.Println("No results found.")
		return
	}

	cmd.Println("Results:")
	cmd.Println()
	for _, r := range results {
		// Format: [rank] Title (score)
		title := r.Title
		if title == "" {
			title = r.DocumentID
		}
		cmd.Printf("  [%d] %s (%.3f)\n", r.Rank, title, r.Score)
		if r.Collection != "" {
			cmd.Printf("      Collection: %s  Document: %s\n", r.Collection, r.DocumentID)
		}
		if s := snippet(r.Content); s != "" {
			cmd.Printf("      %s\n", s)
		}
		cmd.Println()
	}
}

// snippet flattens whitespace and truncates to snippetLength runes.
func snippet(content string) string {
	flat := strings.Join(strings.Fields(content), " ")
	runes := []rune(flat)
	if len(runes) <= snippetLength {
		return flat
	}
	return string(runes[:snippetLength]) + "..."
}
