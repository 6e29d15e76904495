package cli

import (
	"github.com/spf13/cobra"

	"github.com/custodia-labs/sercha-rag/internal/adapters/driving/httpapi"
	"github.com/custodia-labs/sercha-rag/internal/logger"
)

var (
	serveAddr      string
	serveMaxUpload int64
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	Long: `Start the JSON API for chat, search and document management.

Chat responses stream as server-sent events when the request sets
"stream": true. Maintenance tasks run in the background while the
server is up.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVarP(&serveAddr, "addr", "a", "", "listen address (default from server.addr)")
	serveCmd.Flags().Int64Var(&serveMaxUpload, "max-upload", httpapi.DefaultMaxUploadSize, "maximum file upload size in bytes")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	if searchService == nil || documentService == nil {
		return unavailable("search service")
	}
	addr := serveAddr
	if addr == "" {
		addr = serverAddr
	}
	if addr == "" {
		addr = ":8080"
	}

	logger.SetTimestamps(true)
	ctx := cmd.Context()
	stopScheduler := startScheduler(ctx)
	defer stopScheduler()

	srv := httpapi.NewServer(httpapi.Services{
		Chat:        chatService,
		Search:      searchService,
		Documents:   documentService,
		System:      systemService,
		Settings:    settingsService,
		Normalisers: normaliserReg,
	}, httpapi.WithMaxUploadSize(serveMaxUpload))

	cmd.Printf("Listening on %s\n", addr)
	return srv.ListenAndServe(ctx, addr)
}
