package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

var (
	chatCollection  string
	chatTopK        int
	chatTemperature float64
	chatPlain       bool
	chatStream      bool
	chatJSON        bool
)

var chatCmd = &cobra.Command{
	Use:   "chat [question]",
	Short: "Ask a question about your documents",
	Long: `Retrieves the passages most relevant to the question and asks the
language model to answer from them. The passages used are listed after
the answer.

Use --plain to talk to the model without retrieval, and --stream to print
the answer as it is generated.`,
	Args: cobra.ExactArgs(1),
	RunE: runChat,
}

func init() {
	chatCmd.Flags().StringVarP(&chatCollection, "collection", "c", "", "collection to retrieve from")
	chatCmd.Flags().IntVarP(&chatTopK, "top-k", "k", 0, "passages to retrieve (0 = configured default)")
	chatCmd.Flags().Float64VarP(&chatTemperature, "temperature", "t", -1, "sampling temperature 0-2 (negative = configured default)")
	chatCmd.Flags().BoolVar(&chatPlain, "plain", false, "skip retrieval")
	chatCmd.Flags().BoolVarP(&chatStream, "stream", "s", false, "print the answer as it streams")
	chatCmd.Flags().BoolVar(&chatJSON, "json", false, "output the answer as JSON")
	rootCmd.AddCommand(chatCmd)
}

func runChat(cmd *cobra.Command, args []string) error {
	if chatService == nil {
		return unavailable("chat service")
	}
	if chatStream && (chatPlain || chatJSON) {
		return errors.New("--stream cannot be combined with --plain or --json")
	}

	req := domain.ChatRequest{
		Message:    args[0],
		TopK:       chatTopK,
		Collection: chatCollection,
		Stream:     chatStream,
	}
	if chatTemperature >= 0 {
		req.Temperature = &chatTemperature
	}

	if chatStream {
		return streamAnswer(cmd, req)
	}

	var (
		answer *domain.Answer
		err    error
	)
	if chatPlain {
		answer, err = chatService.PlainChat(cmd.Context(), req)
	} else {
		answer, err = chatService.Chat(cmd.Context(), req)
	}
	if err != nil {
		return fmt.Errorf("chat failed: %w", err)
	}

	if chatJSON {
		return outputJSON(cmd, answer)
	}
	cmd.Println(answer.Answer)
	printSources(cmd, answer.Sources)
	return nil
}

func streamAnswer(cmd *cobra.Command, req domain.ChatRequest) error {
	stream, err := chatService.ChatStream(cmd.Context(), req)
	if err != nil {
		return fmt.Errorf("chat failed: %w", err)
	}
	defer stream.Close()

	for ev := range stream.Events() {
		switch ev.Type {
		case domain.StreamToken:
			cmd.Print(ev.Content)
		case domain.StreamError:
			cmd.Println()
			return fmt.Errorf("chat stream failed: %s", ev.Content)
		case domain.StreamDone:
			cmd.Println()
			printSources(cmd, stream.Sources())
			return nil
		}
	}
	return errors.New("chat stream ended unexpectedly")
}

func printSources(cmd *cobra.Command, sources []domain.SearchResult) {
	if len(sources) == 0 {
		return
	}
	cmd.Println()
	cmd.Println("Sources:")
	for _, s := range sources {
		title := s.Title
		if title == "" {
			title = s.DocumentID
		}
		cmd.Printf("  [%d] %s (%.3f)\n", s.Rank, title, s.Score)
	}
}
