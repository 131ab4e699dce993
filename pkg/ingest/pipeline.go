package ingest

import (
	"context"
	"log/slog"
	"time"

	"github.com/ChrisMcGann/clusterpep/pkg/core"
	"github.com/ChrisMcGann/clusterpep/pkg/metrics"
	"github.com/ChrisMcGann/clusterpep/pkg/repository"
)

// Options configure an ingestion run.
type Options struct {
	Quality    core.Quality
	PageSize   int
	Workers    int
	Normalizer core.Normalizer // defaults to the catalog normalizer
	Logger     *slog.Logger
	Metrics    *metrics.Metrics
}

// Result is the outcome of an ingestion run.
type Result struct {
	Clusters   map[int64][]*core.ClusteredPsmRecord
	Pages      int
	Rows       int
	Duplicates int
}

// Run builds the assay index, then pages through the repository and groups every
// enriched record by cluster. Any repository failure aborts the run.
func Run(ctx context.Context, pages repository.PageReader, assays repository.AssayReader, opts Options) (*Result, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	normalizer := opts.Normalizer
	if normalizer == nil {
		normalizer = core.NewCatalogNormalizer(nil)
	}

	start := time.Now()
	index, err := BuildAssayIndex(ctx, assays)
	if err != nil {
		return nil, err
	}
	logger.Info("Loaded assay metadata", "assays", len(index))

	enricher := &Enricher{
		Normalizer: normalizer,
		Assays:     index,
		Logger:     logger,
		Metrics:    opts.Metrics,
	}
	grouper := NewClusterGrouper()

	rows := 0
	fetched, err := FetchPages(ctx, pages, opts.Quality, opts.PageSize, func(page int, psms []core.RawPSM) error {
		opts.Metrics.IncPagesFetched(len(psms))
		if err := enricher.EnrichPage(ctx, psms, opts.Workers, grouper); err != nil {
			return err
		}
		rows += len(psms)
		logger.Info("Processed rows", "page", page, "rows", rows, "clusters", grouper.Len())
		return nil
	})
	if err != nil {
		return nil, err
	}
	opts.Metrics.ObserveStage("ingest", time.Since(start).Seconds())

	return &Result{
		Clusters:   grouper.Clusters(),
		Pages:      fetched,
		Rows:       rows,
		Duplicates: grouper.Duplicates(),
	}, nil
}
