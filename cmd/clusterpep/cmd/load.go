package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ChrisMcGann/clusterpep/pkg/reader/psmtsv"
	"github.com/ChrisMcGann/clusterpep/pkg/repository/sqldb"
)

var (
	// Flags for load command
	psmFile          string
	assayFile        string
	chunkSize        int
	releaseNote      string
	loadVersionLabel string
)

var loadCmd = &cobra.Command{
	Use:   "load",
	Short: "Load PSM and assay TSV files into a cluster repository",
	Long: `Load clustered PSMs and assay metadata from tab-separated files into a
SQLite or PostgreSQL cluster repository. Invalid rows are skipped with a warning.

Examples:
  # Create a local repository
  clusterpep load --psms psms.tsv --assays assays.tsv --dsn clusters.db

  # Load into PostgreSQL with larger transactions
  clusterpep load --psms psms.tsv --assays assays.tsv --driver postgres \
    --dsn postgres://user@localhost/clusters --chunk-size 50000`,
	RunE: runLoad,
}

func init() {
	loadCmd.Flags().StringVar(&psmFile, "psms", "", "PSM TSV file (required)")
	loadCmd.Flags().StringVar(&assayFile, "assays", "", "Assay TSV file")
	loadCmd.Flags().IntVar(&chunkSize, "chunk-size", sqldb.DefaultChunkSize, "Rows per transaction")
	loadCmd.Flags().StringVar(&loadVersionLabel, "release-version", "", "Release version recorded in the repository")
	loadCmd.Flags().StringVar(&releaseNote, "description", "", "Release description recorded in the repository")
	loadCmd.Flags().String("mods", "", "Path to an extra modification catalog CSV")

	loadCmd.MarkFlagRequired("psms")

	bindFlags(loadCmd, map[string]string{
		"mods": "ingest.mods_file",
	})
}

func runLoad(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig(v)
	if err != nil {
		return err
	}

	if _, err := os.Stat(psmFile); os.IsNotExist(err) {
		return fmt.Errorf("input file does not exist: %s", psmFile)
	}

	modDB, err := loadModDatabase(cfg.Ingest.ModsFile)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	store, err := sqldb.Open(ctx, cfg.Repository.Driver, cfg.Repository.DSN)
	if err != nil {
		return fmt.Errorf("failed to open repository: %w", err)
	}
	defer store.Close()

	loader, err := sqldb.NewLoader(ctx, store, chunkSize)
	if err != nil {
		return err
	}
	defer loader.Abort()

	fmt.Printf("Loading %s into %s...\n", psmFile, cfg.Repository.DSN)

	if assayFile != "" {
		if err := loadAssays(ctx, loader); err != nil {
			return err
		}
	}

	inFile, err := os.Open(psmFile)
	if err != nil {
		return fmt.Errorf("failed to open input file: %w", err)
	}
	defer inFile.Close()

	reader, err := psmtsv.NewReader(inFile, modDB)
	if err != nil {
		return err
	}

	skipped := 0
	for reader.Next() {
		psm := reader.PSM()

		if err := psm.Validate(); err != nil {
			logger.Warn("Skipping invalid PSM", "psm", psm.Name(), "line", reader.Line(), "error", err)
			skipped++
			continue
		}

		if err := loader.WritePSM(ctx, psm); err != nil {
			return err
		}

		if loader.PSMs%100000 == 0 {
			logger.Info("Loaded rows", "psms", loader.PSMs)
		}
	}

	if err := reader.Err(); err != nil {
		return fmt.Errorf("error reading input file: %w", err)
	}

	if err := loader.Finalize(ctx, loadVersionLabel, releaseNote); err != nil {
		return fmt.Errorf("failed to finalize repository: %w", err)
	}

	fmt.Printf("\nLoad complete!\n")
	fmt.Printf("PSMs: %d\n", loader.PSMs)
	fmt.Printf("Clusters: %d\n", loader.Clusters)
	fmt.Printf("Assays: %d\n", loader.Assays)
	if skipped > 0 {
		fmt.Printf("Skipped: %d PSMs (validation errors)\n", skipped)
	}

	return nil
}

func loadAssays(ctx context.Context, loader *sqldb.Loader) error {
	f, err := os.Open(assayFile)
	if err != nil {
		return fmt.Errorf("failed to open assay file: %w", err)
	}
	defer f.Close()

	reader, err := psmtsv.NewAssayReader(f)
	if err != nil {
		return err
	}

	for reader.Next() {
		if err := loader.WriteAssay(ctx, reader.Assay()); err != nil {
			return err
		}
	}
	if err := reader.Err(); err != nil {
		return fmt.Errorf("error reading assay file: %w", err)
	}
	return nil
}
