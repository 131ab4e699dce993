// Package report filters aggregated peptide forms and writes the release report files
package report

import (
	"cmp"
	"slices"

	"github.com/ChrisMcGann/clusterpep/pkg/aggregate"
	"github.com/ChrisMcGann/clusterpep/pkg/core"
	"github.com/ChrisMcGann/clusterpep/pkg/species"
)

// Reasons an entry produced no row
const (
	ReasonThreshold     = "threshold"
	ReasonMultiTaxonomy = "multitaxonomy"
	ReasonSpecies       = "species"
)

// FilterConfig holds the report filtering configuration
type FilterConfig struct {
	RankThreshold          float64 // keep records with rank <= threshold
	RatioThreshold         float64 // keep records with ratio > threshold
	FilterOutMultiTaxonomy bool    // suppress peptide rows whose records span several taxonomies
}

// PeptideRow is one row of the peptide-level report
type PeptideRow struct {
	Form        core.PeptideForm
	BestRank    int
	BestRatio   float64
	NumSpectra  int
	NumProjects int
	NumClusters int
	Taxonomies  []string
	Projects    []string
}

// ClusterPeptideRow is one row of the cluster-peptide report
type ClusterPeptideRow struct {
	ClusterID          int64
	Form               core.PeptideForm
	Rank               int
	Ratio              float64
	DeltaMZ            *float64 // mean over the pair's records; nil when none has one
	ClusterNumSpectra  int
	ClusterNumProjects int
	ClusterNumPSMs     int // PoGo only
	Taxonomies         []string
	Projects           []string
}

// Keep applies the rank and ratio thresholds to a record
func (c FilterConfig) Keep(rec *core.ClusteredPsmRecord) bool {
	return float64(rec.Rank) <= c.RankThreshold && rec.PsmRatio > c.RatioThreshold
}

// survivors returns the records passing the thresholds and, when singleTaxonomy is set,
// listing at most one taxonomy
func (c FilterConfig) survivors(records []*core.ClusteredPsmRecord, singleTaxonomy bool) []*core.ClusteredPsmRecord {
	var out []*core.ClusteredPsmRecord
	for _, rec := range records {
		if !c.Keep(rec) {
			continue
		}
		if singleTaxonomy && len(rec.TaxonomyIDs()) > 1 {
			continue
		}
		out = append(out, rec)
	}
	return out
}

// matchesTarget reports whether any record lists the target's taxonomy id
func matchesTarget(records []*core.ClusteredPsmRecord, target species.Target) bool {
	if target.IsAll() {
		return true
	}
	for _, rec := range records {
		if rec.Assay.HasTaxonomy(target.Taxonomy()) {
			return true
		}
	}
	return false
}

// PeptideRow builds the peptide-level row of an entry. When no row is emitted the
// returned reason says why.
func (c FilterConfig) PeptideRow(e *aggregate.Entry, target species.Target) (PeptideRow, string) {
	recs := c.survivors(e.Records, false)
	if len(recs) == 0 {
		return PeptideRow{}, ReasonThreshold
	}

	taxonomies := newStringSet()
	for _, rec := range recs {
		taxonomies.add(rec.TaxonomyIDs()...)
	}
	if c.FilterOutMultiTaxonomy && taxonomies.size() > 1 {
		return PeptideRow{}, ReasonMultiTaxonomy
	}
	if !matchesTarget(recs, target) {
		return PeptideRow{}, ReasonSpecies
	}

	row := PeptideRow{
		Form:     e.Form,
		BestRank: recs[0].Rank,
	}
	projects := newStringSet()
	clusters := make(map[int64]struct{})
	for _, rec := range recs {
		row.BestRank = min(row.BestRank, rec.Rank)
		row.BestRatio = max(row.BestRatio, rec.PsmRatio)
		row.NumSpectra += rec.NumSpectra
		projects.add(rec.ProjectAccession())
		clusters[rec.ClusterID] = struct{}{}
	}
	row.NumProjects = projects.size()
	row.NumClusters = len(clusters)
	row.Taxonomies = taxonomies.sorted()
	row.Projects = projects.sorted()

	return row, ""
}

// ClusterPeptideRows builds one row per cluster of an entry, ordered by cluster id.
// Records listing more than one taxonomy never contribute, whatever FilterOutMultiTaxonomy says.
func (c FilterConfig) ClusterPeptideRows(e *aggregate.Entry, target species.Target) ([]ClusterPeptideRow, string) {
	recs := c.survivors(e.Records, true)
	if len(recs) == 0 {
		return nil, ReasonThreshold
	}
	if !matchesTarget(recs, target) {
		return nil, ReasonSpecies
	}

	type pair struct {
		row        ClusterPeptideRow
		taxonomies stringSet
		projects   stringSet
		deltaSum   float64
		deltaN     int
	}

	byCluster := make(map[int64]*pair)
	for _, rec := range recs {
		p, ok := byCluster[rec.ClusterID]
		if !ok {
			p = &pair{
				row: ClusterPeptideRow{
					ClusterID:          rec.ClusterID,
					Form:               e.Form,
					Rank:               rec.Rank,
					Ratio:              rec.PsmRatio,
					ClusterNumSpectra:  rec.ClusterNumSpectra,
					ClusterNumProjects: rec.ClusterNumProjects,
					ClusterNumPSMs:     rec.ClusterNumPSMs,
				},
				taxonomies: newStringSet(),
				projects:   newStringSet(),
			}
			byCluster[rec.ClusterID] = p
		}
		p.taxonomies.add(rec.TaxonomyIDs()...)
		p.projects.add(rec.ProjectAccession())
		if rec.DeltaMZ != nil {
			p.deltaSum += *rec.DeltaMZ
			p.deltaN++
		}
	}

	rows := make([]ClusterPeptideRow, 0, len(byCluster))
	for _, p := range byCluster {
		row := p.row
		row.Taxonomies = p.taxonomies.sorted()
		row.Projects = p.projects.sorted()
		if p.deltaN > 0 {
			mean := p.deltaSum / float64(p.deltaN)
			row.DeltaMZ = &mean
		}
		rows = append(rows, row)
	}
	slices.SortFunc(rows, func(a, b ClusterPeptideRow) int {
		return cmp.Compare(a.ClusterID, b.ClusterID)
	})

	return rows, ""
}

// stringSet collects distinct non-empty strings
type stringSet map[string]struct{}

func newStringSet() stringSet {
	return make(stringSet)
}

func (s stringSet) add(values ...string) {
	for _, v := range values {
		if v != "" {
			s[v] = struct{}{}
		}
	}
}

func (s stringSet) size() int {
	return len(s)
}

func (s stringSet) sorted() []string {
	if len(s) == 0 {
		return nil
	}
	out := make([]string, 0, len(s))
	for v := range s {
		out = append(out, v)
	}
	slices.Sort(out)
	return out
}
