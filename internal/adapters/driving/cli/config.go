package cli

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View and change settings",
	Long: `Settings live in config.toml under the sercha-rag home directory.
Any key can be overridden with an environment variable: llm.model is
read from SERCHA_RAG_LLM_MODEL.`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective settings",
	Args:  cobra.NoArgs,
	RunE:  runConfigShow,
}

var configGetCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Print a single setting",
	Args:  cobra.ExactArgs(1),
	RunE:  runConfigGet,
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> [value]",
	Short: "Store a setting",
	Long: `Store a setting in config.toml. When the value is omitted it is read
from the terminal without echo, which keeps API keys out of shell history.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runConfigSet,
}

var configKeysCmd = &cobra.Command{
	Use:   "keys",
	Short: "List every settable key",
	Args:  cobra.NoArgs,
	RunE:  runConfigKeys,
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check settings and provider connectivity",
	Args:  cobra.NoArgs,
	RunE:  runConfigValidate,
}

// readPassword reads a line from the terminal without echo.
var readPassword = func() (string, error) {
	fd := int(os.Stdin.Fd()) //nolint:gosec // file descriptors fit in int
	if !term.IsTerminal(fd) {
		return "", errors.New("value required when stdin is not a terminal")
	}
	b, err := term.ReadPassword(fd)
	if err != nil {
		return "", fmt.Errorf("reading value: %w", err)
	}
	return strings.TrimSpace(string(b)), nil
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configGetCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configKeysCmd)
	configCmd.AddCommand(configValidateCmd)
	rootCmd.AddCommand(configCmd)
}

func runConfigShow(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return unavailable("settings service")
	}
	s, err := settingsService.Get()
	if err != nil {
		return err
	}

	cmd.Println("Embedding:")
	cmd.Printf("  Provider:    %s\n", s.Embedding.Provider.Description())
	cmd.Printf("  Model:       %s\n", s.Embedding.Model)
	printOptional(cmd, "  Base URL:    %s\n", s.Embedding.BaseURL)
	printOptional(cmd, "  API key:     %s\n", domain.MaskSecret(s.Embedding.APIKey))

	cmd.Println("LLM:")
	cmd.Printf("  Provider:    %s\n", s.LLM.Provider.Description())
	cmd.Printf("  Model:       %s\n", s.LLM.Model)
	cmd.Printf("  Temperature: %.2f\n", s.LLM.Temperature)
	cmd.Printf("  Max tokens:  %d\n", s.LLM.MaxTokens)
	printOptional(cmd, "  Base URL:    %s\n", s.LLM.BaseURL)
	printOptional(cmd, "  API key:     %s\n", domain.MaskSecret(s.LLM.APIKey))

	cmd.Println("Vector store:")
	cmd.Printf("  Backend:     %s\n", s.VectorStore.Backend)
	cmd.Printf("  Collection:  %s\n", s.VectorStore.Collection)
	switch s.VectorStore.Backend {
	case domain.VectorBackendQdrant:
		cmd.Printf("  URL:         %s\n", s.VectorStore.URL)
		printOptional(cmd, "  API key:     %s\n", domain.MaskSecret(s.VectorStore.APIKey))
	case domain.VectorBackendSQLite:
		printOptional(cmd, "  Path:        %s\n", s.VectorStore.Path)
	}

	cmd.Println("Search:")
	cmd.Printf("  Top K:       %d (max %d)\n", s.Search.DefaultTopK, s.Search.MaxTopK)
	cmd.Printf("  Threshold:   %.2f\n", s.Search.ScoreThreshold)
	cmd.Printf("  Collections: %s\n", strings.Join(s.SearchCollections(), ", "))
	if s.Cache.Enabled {
		cmd.Printf("  Cache:       %d entries, ttl %s\n", s.Cache.MaxSize, s.Cache.TTL)
	} else {
		cmd.Println("  Cache:       disabled")
	}

	cmd.Println("Server:")
	cmd.Printf("  Address:     %s\n", s.Server.Addr)
	return nil
}

func printOptional(cmd *cobra.Command, format, value string) {
	if value != "" {
		cmd.Printf(format, value)
	}
}

func runConfigGet(cmd *cobra.Command, args []string) error {
	if settingsService == nil {
		return unavailable("settings service")
	}
	v, ok := settingsService.Lookup(args[0])
	if !ok {
		return fmt.Errorf("%s is not set: %w", args[0], domain.ErrNotFound)
	}
	s := fmt.Sprint(v)
	if strings.HasSuffix(args[0], "api_key") {
		s = domain.MaskSecret(s)
	}
	cmd.Println(s)
	return nil
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	if settingsService == nil {
		return unavailable("settings service")
	}
	key := args[0]
	var value string
	if len(args) == 2 {
		value = args[1]
	} else {
		cmd.Printf("Value for %s: ", key)
		v, err := readPassword()
		cmd.Println()
		if err != nil {
			return err
		}
		value = v
	}
	if err := settingsService.Set(key, value); err != nil {
		return err
	}
	cmd.Printf("Set %s.\n", key)
	return nil
}

func runConfigKeys(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return unavailable("settings service")
	}
	for _, k := range settingsService.Keys() {
		cmd.Println(k)
	}
	return nil
}

func runConfigValidate(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return unavailable("settings service")
	}
	if err := settingsService.Validate(); err != nil {
		return err
	}
	cmd.Println("Settings are complete.")

	if providerCheck == nil {
		return nil
	}
	if err := providerCheck.ValidateProviders(cmd.Context()); err != nil {
		return err
	}
	cmd.Println("Providers are reachable.")
	return nil
}
