// Command sercha-rag indexes documents and answers questions grounded on them.
package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/custodia-labs/sercha-rag/internal/adapters/driving/cli"
	"github.com/custodia-labs/sercha-rag/internal/app"
	"github.com/custodia-labs/sercha-rag/internal/logger"
)

// version is set at build time via -ldflags "-X main.version=...".
var version string

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// A .env file in the working directory supplies SERCHA_RAG_* overrides.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		logger.Warn("Ignoring .env: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cli.SetVersion(version)

	a, err := app.New(app.Options{})
	if err != nil {
		// Keep config commands usable so the problem can be fixed.
		settings, _, settingsErr := app.NewSettings(app.Options{})
		if settingsErr != nil {
			return errors.Join(err, settingsErr)
		}
		cli.SetServices(cli.Services{Settings: settings, Validator: settings, DisabledReason: err})
		return cli.Execute(ctx)
	}
	defer a.Close() //nolint:errcheck // process is exiting

	svc := cli.Services{
		Settings:       a.Settings,
		Validator:      a.Settings,
		Normalisers:    a.Normalisers,
		FileSync:       a.FileSync,
		Scheduler:      a.Scheduler,
		ServerAddr:     a.Config.Server.Addr,
		DisabledReason: a.EmbeddingErr,
	}
	if a.RAG != nil {
		svc.Chat = a.RAG
		svc.Search = a.RAG
		svc.Documents = a.RAG
		svc.System = a.RAG
	}
	cli.SetServices(svc)
	return cli.Execute(ctx)
}
