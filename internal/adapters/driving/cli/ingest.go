package cli

import (
	"errors"
	"fmt"
	"os"
	"slices"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/custodia-labs/sercha-rag/internal/connectors/filesystem"
	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/services"
)

var (
	ingestCollection string
	ingestWatch      bool
	ingestManifest   string
	ingestBatchSize  int
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [path]",
	Short: "Index files or a manifest of documents",
	Long: `Indexes every supported file under path (or path itself when it is a
file). Hidden files and directories are skipped. Re-ingesting a changed
file replaces its previous chunks.

With --watch, keeps running and applies file changes as they happen.

With --manifest, indexes the documents listed in a YAML file instead:

  collection: handbook
  documents:
    - title: Leave policy
      content: Employees receive 30 days of leave.
      metadata:
        category: hr`,
	Args: cobra.MaximumNArgs(1),
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().StringVarP(&ingestCollection, "collection", "c", "", "target collection (default: configured collection)")
	ingestCmd.Flags().BoolVarP(&ingestWatch, "watch", "w", false, "keep watching path for changes")
	ingestCmd.Flags().StringVarP(&ingestManifest, "manifest", "m", "", "YAML manifest of documents to index")
	ingestCmd.Flags().IntVar(&ingestBatchSize, "batch-size", domain.DefaultUploadBatchSize, "documents per batch for manifests")
	rootCmd.AddCommand(ingestCmd)
}

// manifest is the YAML document list accepted by --manifest.
type manifest struct {
	Collection string                 `yaml:"collection"`
	Documents  []domain.DocumentInput `yaml:"documents"`
}

func runIngest(cmd *cobra.Command, args []string) error {
	switch {
	case ingestManifest != "" && len(args) > 0:
		return errors.New("pass either a path or --manifest, not both")
	case ingestManifest != "":
		if ingestWatch {
			return errors.New("--watch needs a path")
		}
		return ingestFromManifest(cmd, ingestManifest)
	case len(args) == 0:
		return errors.New("a path or --manifest is required")
	}
	return ingestPath(cmd, args[0])
}

func ingestPath(cmd *cobra.Command, path string) error {
	if fileSyncFactory == nil {
		return unavailable("ingestion")
	}
	syncer, err := fileSyncFactory(ingestCollection)
	if err != nil {
		return fmt.Errorf("ingestion unavailable: %w", err)
	}

	conn := filesystem.New(path)
	defer conn.Close()

	ctx := cmd.Context()
	if err := conn.Validate(ctx); err != nil {
		return err
	}

	docs, errs := conn.FullSync(ctx)
	report, err := syncer.Ingest(ctx, docs, errs)
	printFileSyncReport(cmd, report)
	if err != nil {
		return fmt.Errorf("ingest failed: %w", err)
	}
	if !ingestWatch {
		return nil
	}

	changes, err := conn.Watch(ctx)
	if err != nil {
		return fmt.Errorf("watching %s: %w", path, err)
	}
	cmd.Printf("Watching %s for changes (Ctrl+C to stop)...\n", conn.Root())
	report, err = syncer.Run(ctx, changes)
	printFileSyncReport(cmd, report)
	return err
}

func printFileSyncReport(cmd *cobra.Command, report *services.FileSyncReport) {
	if report == nil {
		return
	}
	for _, r := range report.Results {
		if r.Success() {
			cmd.Printf("  ok      %s (%d chunks)\n", r.Title, r.ChunkCount)
		} else {
			cmd.Printf("  failed  %s: %s\n", r.Title, r.Reason)
		}
	}
	cmd.Printf("Indexed %d, failed %d, removed %d.\n", report.Processed, report.Failed, report.Deleted)
}

func ingestFromManifest(cmd *cobra.Command, path string) error {
	if documentService == nil {
		return unavailable("document service")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading manifest: %w", err)
	}
	var m manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return fmt.Errorf("parsing manifest %s: %w", path, err)
	}
	if len(m.Documents) == 0 {
		return fmt.Errorf("manifest %s lists no documents", path)
	}

	collection := m.Collection
	if ingestCollection != "" {
		collection = ingestCollection
	}
	size := ingestBatchSize
	if size <= 0 {
		size = domain.DefaultUploadBatchSize
	}

	var total domain.BatchReport
	for batch := range slices.Chunk(m.Documents, size) {
		report, err := documentService.UploadBatch(cmd.Context(), batch, collection)
		if err != nil {
			return fmt.Errorf("uploading batch: %w", err)
		}
		total.Total += report.Total
		for _, r := range report.Results {
			total.Add(r)
		}
	}

	for _, r := range total.Results {
		if r.Success() {
			cmd.Printf("  ok      %s (%d chunks)\n", r.Title, r.ChunkCount)
		} else {
			cmd.Printf("  failed  %s: %s\n", r.Title, r.Reason)
		}
	}
	cmd.Printf("Indexed %d of %d documents.\n", total.Succeeded, total.Total)
	if total.Failed > 0 {
		return fmt.Errorf("%d documents failed", total.Failed)
	}
	return nil
}
