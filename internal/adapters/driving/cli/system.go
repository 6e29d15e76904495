package cli

import (
	"maps"
	"slices"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

var collectionsJSON bool

var collectionsCmd = &cobra.Command{
	Use:   "collections",
	Short: "List vector store collections",
	Args:  cobra.NoArgs,
	RunE:  runCollections,
}

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect or clear the search result cache",
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Drop every cached search result",
	Args:  cobra.NoArgs,
	RunE:  runCacheClear,
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show cache occupancy",
	Args:  cobra.NoArgs,
	RunE:  runCacheStats,
}

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check the vector store and providers are reachable",
	Args:  cobra.NoArgs,
	RunE:  runHealth,
}

var repairCmd = &cobra.Command{
	Use:   "repair [collection]",
	Short: "Re-embed chunks stored without an embedding",
	Long: `Chunks whose embedding failed during ingestion are stored with a zero
vector so the rest of the document stays searchable. Repair embeds them
again. Without an argument the configured collection is repaired.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runRepair,
}

func init() {
	collectionsCmd.Flags().BoolVar(&collectionsJSON, "json", false, "output as JSON")
	cacheCmd.AddCommand(cacheClearCmd)
	cacheCmd.AddCommand(cacheStatsCmd)
	rootCmd.AddCommand(collectionsCmd)
	rootCmd.AddCommand(cacheCmd)
	rootCmd.AddCommand(healthCmd)
	rootCmd.AddCommand(repairCmd)
}

func runCollections(cmd *cobra.Command, _ []string) error {
	if systemService == nil {
		return unavailable("system service")
	}
	collections, err := systemService.ListCollections(cmd.Context())
	if err != nil {
		return err
	}
	if collectionsJSON {
		return outputJSON(cmd, collections)
	}
	if len(collections) == 0 {
		cmd.Println("No collections.")
		return nil
	}
	for _, c := range collections {
		cmd.Printf("  %-24s %9s points  dim %-5d %-10s %s\n",
			c.Name, humanize.Comma(int64(c.PointCount)), c.Dimension, c.Distance, c.Status)
	}
	cmd.Printf("Total: %d collections\n", len(collections))
	return nil
}

func runCacheClear(cmd *cobra.Command, _ []string) error {
	if systemService == nil {
		return unavailable("system service")
	}
	if err := systemService.ClearCache(cmd.Context()); err != nil {
		return err
	}
	cmd.Println("Search cache cleared.")
	return nil
}

func runCacheStats(cmd *cobra.Command, _ []string) error {
	if systemService == nil {
		return unavailable("system service")
	}
	stats := systemService.CacheStats()
	if !stats.Enabled {
		cmd.Println("Search cache is disabled.")
		return nil
	}
	cmd.Printf("Search cache: %s / %s entries\n", humanize.Comma(int64(stats.Size)), humanize.Comma(int64(stats.MaxSize)))
	return nil
}

func runHealth(cmd *cobra.Command, _ []string) error {
	if systemService == nil {
		return unavailable("system service")
	}
	health, err := systemService.HealthCheck(cmd.Context())
	if err != nil {
		return err
	}
	cmd.Printf("Status: %s\n", health.Status)
	cmd.Printf("Collections: %d\n", health.CollectionsCount)
	for _, name := range slices.Sorted(maps.Keys(health.Components)) {
		cmd.Printf("  %-14s %s\n", name, health.Components[name])
	}
	if health.Status != domain.HealthOK {
		return errUnhealthy
	}
	return nil
}

func runRepair(cmd *cobra.Command, args []string) error {
	if systemService == nil {
		return unavailable("system service")
	}
	collection := ""
	if len(args) == 1 {
		collection = args[0]
	}
	n, err := systemService.RepairCollection(cmd.Context(), collection)
	if err != nil {
		return err
	}
	cmd.Printf("Repaired %d chunks.\n", n)
	return nil
}
