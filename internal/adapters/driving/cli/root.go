// Package cli provides the command-line interface for sercha-rag.
package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driving"
	"github.com/custodia-labs/sercha-rag/internal/core/services"
	"github.com/custodia-labs/sercha-rag/internal/logger"
)

// version is set at build time via -ldflags.
var version = "dev"

var (
	verbose bool
	quiet   bool
)

var rootCmd = &cobra.Command{
	Use:   "sercha-rag",
	Short: "Ask questions about your documents",
	Long: `sercha-rag indexes documents into a vector store and answers questions
grounded on the passages it retrieves.

Run 'sercha-rag serve' for the HTTP API, 'sercha-rag mcp serve' for AI
assistants, or use the commands below directly.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		logger.SetQuiet(quiet)
		logger.SetVerbose(verbose)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "hide warnings")
	rootCmd.MarkFlagsMutuallyExclusive("verbose", "quiet")
}

// Runner is a long-running background service. Start blocks until Stop
// is called or ctx is cancelled.
type Runner interface {
	Start(ctx context.Context) error
	Stop() error
}

// Services holds the ports the commands drive. Nil ports disable the
// commands that need them.
type Services struct {
	Chat      driving.ChatService
	Search    driving.SearchService
	Documents driving.DocumentService
	System    driving.SystemService
	Settings  driving.SettingsService

	// Normalisers extract text from uploaded files.
	Normalisers driven.NormaliserRegistry

	// FileSync builds an ingester for a collection.
	FileSync func(collection string) (*services.FileSync, error)

	// Validator pings the configured providers.
	Validator ProviderValidator

	// Scheduler runs maintenance tasks while a server command is up.
	Scheduler Runner

	// ServerAddr is the default HTTP listen address.
	ServerAddr string

	// DisabledReason explains why search and ingestion are unavailable.
	DisabledReason error
}

// ProviderValidator checks provider connectivity.
type ProviderValidator interface {
	ValidateProviders(ctx context.Context) error
}

var (
	chatService     driving.ChatService
	searchService   driving.SearchService
	documentService driving.DocumentService
	systemService   driving.SystemService
	settingsService driving.SettingsService
	normaliserReg   driven.NormaliserRegistry
	fileSyncFactory func(collection string) (*services.FileSync, error)
	providerCheck   ProviderValidator
	scheduler       Runner
	serverAddr      string
	disabledReason  error
)

// SetServices injects the ports every command uses.
func SetServices(s Services) {
	chatService = s.Chat
	searchService = s.Search
	documentService = s.Documents
	systemService = s.System
	settingsService = s.Settings
	normaliserReg = s.Normalisers
	fileSyncFactory = s.FileSync
	providerCheck = s.Validator
	scheduler = s.Scheduler
	serverAddr = s.ServerAddr
	disabledReason = s.DisabledReason
}

// errUnhealthy makes health exit non-zero when a component is down.
var errUnhealthy = errors.New("one or more components are unhealthy")

// unavailable reports a command whose service is missing.
func unavailable(name string) error {
	if disabledReason != nil {
		return fmt.Errorf("%s not available: %w", name, disabledReason)
	}
	return fmt.Errorf("%s not configured", name)
}

// startScheduler runs the scheduler in the background and returns a func
// that stops it.
func startScheduler(ctx context.Context) func() {
	if scheduler == nil {
		return func() {}
	}
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := scheduler.Start(ctx); err != nil {
			logger.Warn("Scheduler stopped: %v", err)
		}
	}()
	return func() {
		if err := scheduler.Stop(); err != nil {
			logger.Warn("Scheduler stop: %v", err)
		}
		cancel()
		<-done
	}
}

// SetVersion overrides the reported version.
func SetVersion(v string) {
	if v != "" {
		version = v
	}
}

// Execute runs the root command with ctx.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}
