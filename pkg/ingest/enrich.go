package ingest

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/ChrisMcGann/clusterpep/pkg/core"
	"github.com/ChrisMcGann/clusterpep/pkg/metrics"
)

// Enricher turns repository rows into clustered PSM records: modifications are normalized
// and assay metadata is joined by assay id.
type Enricher struct {
	Normalizer core.Normalizer
	Assays     map[int64]*core.AssayMetadata
	Logger     *slog.Logger
	Metrics    *metrics.Metrics
}

// Enrich builds the record for one row. Malformed modifications and unknown assays are
// logged and counted, never returned as errors.
func (e *Enricher) Enrich(raw *core.RawPSM) *core.ClusteredPsmRecord {
	rec := &core.ClusteredPsmRecord{
		ClusterID:          raw.ClusterID,
		Sequence:           raw.Sequence,
		AssayID:            raw.AssayID,
		NumSpectra:         raw.NumSpectra,
		DeltaMZ:            raw.DeltaMZ,
		ClusterNumSpectra:  raw.ClusterNumSpectra,
		ClusterNumPSMs:     raw.ClusterNumPSMs,
		ClusterNumProjects: raw.ClusterNumProjects,
		ClusterAvgCharge:   raw.ClusterAvgCharge,
		ClusterAvgMZ:       raw.ClusterAvgMZ,
		Quality:            raw.Quality,
	}

	mods, wrong, err := e.Normalizer.Normalize(raw.RawModifications, raw.Sequence)
	if err != nil {
		e.Metrics.IncMalformedMods()
		if e.Logger != nil {
			e.Logger.Warn("malformed modification", "cluster_id", raw.ClusterID, "error", err)
		}
	}
	if wrong {
		e.Metrics.IncWrongAnnotations()
	}
	rec.Modifications = mods
	rec.WrongAnnotation = wrong

	if assay, ok := e.Assays[raw.AssayID]; ok {
		rec.Assay = assay
	} else {
		e.Metrics.IncMissingAssays()
		if e.Logger != nil {
			e.Logger.Debug("missing assay metadata", "assay_id", raw.AssayID, "cluster_id", raw.ClusterID)
		}
	}

	return rec
}

// EnrichPage enriches the rows of a page on up to workers goroutines and merges the
// records into the grouper.
func (e *Enricher) EnrichPage(ctx context.Context, rows []core.RawPSM, workers int, grouper *ClusterGrouper) error {
	if workers < 1 {
		workers = 1
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	chunk := (len(rows) + workers - 1) / workers
	for start := 0; start < len(rows); start += chunk {
		part := rows[start:min(start+chunk, len(rows))]
		g.Go(func() error {
			for i := range part {
				if err := ctx.Err(); err != nil {
					return err
				}
				if !grouper.Add(e.Enrich(&part[i])) {
					e.Metrics.IncDuplicatePSMs()
				}
			}
			return nil
		})
	}

	return g.Wait()
}
