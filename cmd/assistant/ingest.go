package main

import (
	"fmt"

	"github.com/aescanero/dago-node-assistant/internal/ingest"
	"github.com/aescanero/dago-node-assistant/internal/storage/sqlite"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	ingestReplace bool
	ingestSize    int
	ingestOverlap int
)

var ingestCmd = &cobra.Command{
	Use:   "ingest <dir>",
	Short: "Index documentation files for retrieval",
	Long: `Walk dir for .md, .markdown and .txt files, split them into overlapping
chunks and index them for full-text retrieval. Re-ingesting a file replaces
its previous chunks; --replace clears the whole index first.

Examples:
  assistant ingest ./docs
  assistant ingest ./docs --replace --chunk-size 800 --chunk-overlap 100`,
	Args: cobra.ExactArgs(1),
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().BoolVar(&ingestReplace, "replace", false, "Clear the existing index before loading")
	ingestCmd.Flags().IntVar(&ingestSize, "chunk-size", ingest.DefaultChunkSize, "Chunk size in bytes")
	ingestCmd.Flags().IntVar(&ingestOverlap, "chunk-overlap", ingest.DefaultChunkOverlap, "Overlap between consecutive chunks in bytes")
}

func runIngest(cmd *cobra.Command, args []string) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	if ingestOverlap >= ingestSize {
		return fmt.Errorf("--chunk-overlap must be smaller than --chunk-size")
	}

	store, err := sqlite.Open(cfg.DatabasePath)
	if err != nil {
		return err
	}
	defer store.Close()

	ctx := cmd.Context()
	if ingestReplace {
		if err := store.ClearDocuments(ctx); err != nil {
			return err
		}
		logger.Info("document index cleared")
	}

	loader := ingest.NewLoader(store, ingest.Splitter{Size: ingestSize, Overlap: ingestOverlap}, logger.Named("ingest"))
	stats, err := loader.LoadDir(ctx, args[0])
	if err != nil {
		return err
	}

	docs, chunks, err := store.DocumentStats(ctx)
	if err != nil {
		return err
	}
	logger.Info("ingestion finished",
		zap.Int("documents", stats.Documents),
		zap.Int("chunks", stats.Chunks),
		zap.Int("skipped", stats.Skipped),
	)
	fmt.Fprintf(cmd.OutOrStdout(), "loaded %d documents (%d chunks, %d skipped); index holds %d documents, %d chunks\n",
		stats.Documents, stats.Chunks, stats.Skipped, docs, chunks)
	return nil
}
