package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/ChrisMcGann/clusterpep/pkg/aggregate"
	"github.com/ChrisMcGann/clusterpep/pkg/config"
	"github.com/ChrisMcGann/clusterpep/pkg/core"
	"github.com/ChrisMcGann/clusterpep/pkg/ingest"
	"github.com/ChrisMcGann/clusterpep/pkg/metrics"
	"github.com/ChrisMcGann/clusterpep/pkg/publish"
	"github.com/ChrisMcGann/clusterpep/pkg/rank"
	"github.com/ChrisMcGann/clusterpep/pkg/report"
	"github.com/ChrisMcGann/clusterpep/pkg/repository/sqldb"
	"github.com/ChrisMcGann/clusterpep/pkg/species"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Rank cluster peptide forms and write release reports",
	Long: `Read every clustered PSM of the selected quality tier from the repository,
rank the peptide forms of each cluster and write one report per species.

Examples:
  # Export the high quality tier of a local repository
  clusterpep export --dsn clusters.db --release-version 2026-10 --out reports

  # Export per species, gzip-compressed, with PoGo files
  clusterpep export --dsn clusters.db --species species.tsv --compress --pogo

  # Keep the two best ranks with a minimum ratio
  clusterpep export --rank-threshold 2 --ratio-threshold 0.25`,
	RunE: runExport,
}

func init() {
	flags := exportCmd.Flags()
	flags.String("quality", "", "Minimum cluster quality: LOW, MEDIUM or HIGH")
	flags.Int("page-size", 0, "Repository page size")
	flags.Int("workers", 0, "Number of enrichment and ranking workers")
	flags.String("mods", "", "Path to an extra modification catalog CSV")
	flags.Float64("rank-threshold", 0, "Keep records with rank <= threshold")
	flags.Float64("ratio-threshold", 0, "Keep records with ratio > threshold")
	flags.Bool("filter-multitaxonomy", true, "Suppress peptides seen in more than one taxonomy")
	flags.StringP("out", "o", "", "Output directory")
	flags.String("title", "", "Report file name prefix")
	flags.String("release-version", "", "Release version written in the report header")
	flags.Bool("compress", false, "Write gzip-compressed reports")
	flags.Bool("pogo", false, "Also write PoGo input files")
	flags.String("species", "", "Species TSV file (scientific_name, name, taxonomy)")
	flags.String("metrics-textfile", "", "Write run metrics in Prometheus text format to this file")
	flags.Bool("publish", false, "Upload the written files to the configured bucket")

	bindFlags(exportCmd, map[string]string{
		"quality":              "ingest.quality",
		"page-size":            "ingest.page_size",
		"workers":              "ingest.workers",
		"mods":                 "ingest.mods_file",
		"rank-threshold":       "filter.rank_threshold",
		"ratio-threshold":      "filter.ratio_threshold",
		"filter-multitaxonomy": "filter.filter_out_multitaxonomy",
		"out":                  "report.output_dir",
		"title":                "report.title",
		"release-version":      "report.version",
		"compress":             "report.compress",
		"pogo":                 "report.pogo",
		"species":              "report.species_file",
		"metrics-textfile":     "metrics.textfile",
		"publish":              "publish.enabled",
	})
}

func runExport(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig(v)
	if err != nil {
		return err
	}
	logger = logger.With("run_id", uuid.NewString())

	// Parse quality tier
	quality, err := cfg.Quality()
	if err != nil {
		return err
	}

	// Load modification catalog
	modDB, err := loadModDatabase(cfg.Ingest.ModsFile)
	if err != nil {
		return err
	}

	// Load species targets, ALL first
	targets := []species.Target{species.All}
	if cfg.Report.SpeciesFile != "" {
		list, err := species.Load(cfg.Report.SpeciesFile)
		if err != nil {
			return err
		}
		targets = species.Targets(list)
	}

	m := metrics.NewMetrics()
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	// Open cluster repository
	store, err := sqldb.Open(ctx, cfg.Repository.Driver, cfg.Repository.DSN)
	if err != nil {
		return err
	}
	defer store.Close()

	logger.Info("Starting export",
		"driver", cfg.Repository.Driver,
		"quality", quality,
		"species", len(targets),
		"rank_threshold", cfg.Filter.RankThreshold,
		"ratio_threshold", cfg.Filter.RatioThreshold,
	)

	// Read, enrich and group PSMs
	start := time.Now()
	result, err := ingest.Run(ctx, store, store, ingest.Options{
		Quality:    quality,
		PageSize:   cfg.Ingest.PageSize,
		Workers:    cfg.Ingest.Workers,
		Normalizer: core.NewCatalogNormalizer(modDB),
		Logger:     logger,
		Metrics:    m,
	})
	if err != nil {
		return err
	}

	// Rank peptide forms per cluster
	stage := time.Now()
	ranked, err := rank.RankAll(ctx, result.Clusters, cfg.Ingest.Workers)
	if err != nil {
		return err
	}
	m.AddClustersRanked(len(ranked))
	m.ObserveStage("rank", time.Since(stage).Seconds())
	logger.Info("Ranked clusters", "clusters", len(ranked))

	// Build global form index
	stage = time.Now()
	idx := aggregate.Build(result.Clusters)
	m.ObserveStage("aggregate", time.Since(stage).Seconds())
	logger.Info("Aggregated peptide forms", "forms", idx.Len())

	// Write reports
	stage = time.Now()
	writer := report.NewWriter(reportOptions(cfg, modDB, logger, m))
	paths, err := writer.WriteAll(idx, targets)
	if err != nil {
		return err
	}
	m.ObserveStage("report", time.Since(stage).Seconds())

	// Upload to object storage if configured
	if cfg.Publish.Enabled {
		if err := publishFiles(ctx, cfg, logger, paths); err != nil {
			return err
		}
	}

	// Write metrics textfile
	m.MarkSuccess()
	if cfg.Metrics.Textfile != "" {
		if err := m.WriteTextfile(cfg.Metrics.Textfile); err != nil {
			return err
		}
	}

	fmt.Printf("\nExport complete!\n")
	fmt.Printf("Clusters: %d\n", len(ranked))
	fmt.Printf("Peptide forms: %d\n", idx.Len())
	if result.Duplicates > 0 {
		fmt.Printf("Duplicate PSMs merged: %d\n", result.Duplicates)
	}
	for _, p := range paths {
		fmt.Printf("Output: %s\n", p)
	}
	logger.Info("Export finished", "files", len(paths), "elapsed", time.Since(start))

	return nil
}

func reportOptions(cfg *config.Config, modDB *core.ModDatabase, logger *slog.Logger, m *metrics.Metrics) report.Options {
	rc := cfg.Report
	return report.Options{
		OutputDir: rc.OutputDir,
		FileTitle: rc.Title,
		Version:   rc.Version,
		Compress:  rc.Compress,
		PoGo:      rc.PoGo,
		Header: report.Header{
			ReleaseTitle:            rc.ReleaseTitle,
			ClusterURL:              rc.ClusterURL,
			SpeciesLine:             rc.SpeciesLine,
			ReleaseDescription:      rc.ReleaseDescription,
			PeptideFieldDescription: rc.PeptideDescription,
			ClusterFieldDescription: rc.ClusterDescription,
			PeptideHeader:           rc.PeptideHeader,
			ClusterPeptideHeader:    rc.ClusterPeptideHeader,
		},
		Filter: report.FilterConfig{
			RankThreshold:          cfg.Filter.RankThreshold,
			RatioThreshold:         cfg.Filter.RatioThreshold,
			FilterOutMultiTaxonomy: cfg.Filter.FilterOutMultiTaxonomy,
		},
		Formatter: report.Formatter{
			PeptidePrefix:        rc.PeptidePrefix,
			ClusterPeptidePrefix: rc.ClusterPeptidePrefix,
		},
		PoGoRows: report.PoGoFormatter{
			ExperimentFormat: rc.PoGoExperimentFormat,
			ModDB:            modDB,
		},
		Logger:  logger,
		Metrics: m,
	}
}

func publishFiles(ctx context.Context, cfg *config.Config, logger *slog.Logger, paths []string) error {
	pc := cfg.Publish
	p, err := publish.New(publish.Config{
		Bucket:    pc.Bucket,
		Prefix:    pc.Prefix,
		Region:    pc.Region,
		Endpoint:  pc.Endpoint,
		AccessKey: pc.AccessKey,
		SecretKey: pc.SecretKey,
	}, logger)
	if err != nil {
		return fmt.Errorf("failed to create publisher: %w", err)
	}

	keys, err := p.Upload(ctx, paths)
	if err != nil {
		return err
	}
	logger.Info("Published reports", "bucket", pc.Bucket, "objects", len(keys))
	return nil
}

// loadModDatabase returns the default catalog extended with an optional CSV file
func loadModDatabase(path string) (*core.ModDatabase, error) {
	modDB := core.DefaultModDatabase()
	if path == "" {
		return modDB, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open modification catalog: %w", err)
	}
	defer f.Close()

	if err := modDB.LoadFromCSV(f); err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", path, err)
	}
	return modDB, nil
}
