// Package rank assigns per-cluster dense ranks and participation ratios to peptide forms.
package rank

import (
	"context"
	"slices"

	"golang.org/x/sync/errgroup"

	"github.com/ChrisMcGann/clusterpep/pkg/core"
)

// RankedGroup is the set of records of one cluster that share a peptide form.
type RankedGroup struct {
	Form    core.PeptideForm
	Records []*core.ClusteredPsmRecord
	Rank    int
	Ratio   float64
}

// Size returns the number of records in the group.
func (g RankedGroup) Size() int {
	return len(g.Records)
}

// Ratio returns size/total, or 0 when total is not positive.
func Ratio(size, total int) float64 {
	if total <= 0 {
		return 0
	}
	return float64(size) / float64(total)
}

// RankCluster groups the records of one cluster by peptide form and assigns every record
// the dense rank and ratio of its group. Groups are ordered by size descending, then
// sequence, then modification string; equal sizes share a rank.
func RankCluster(records []*core.ClusteredPsmRecord) []RankedGroup {
	if len(records) == 0 {
		return nil
	}

	byKey := make(map[string]int)
	var groups []RankedGroup
	for _, rec := range records {
		form := rec.Form()
		i, ok := byKey[form.Key()]
		if !ok {
			i = len(groups)
			byKey[form.Key()] = i
			groups = append(groups, RankedGroup{Form: form})
		}
		groups[i].Records = append(groups[i].Records, rec)
	}

	slices.SortFunc(groups, func(a, b RankedGroup) int {
		if a.Size() != b.Size() {
			return b.Size() - a.Size()
		}
		return a.Form.Compare(b.Form)
	})

	total := 0
	for _, g := range groups {
		total += g.Size()
	}

	rank := 0
	prevSize := -1
	for i := range groups {
		if groups[i].Size() != prevSize {
			rank++
			prevSize = groups[i].Size()
		}
		groups[i].Rank = rank
		groups[i].Ratio = Ratio(groups[i].Size(), total)
		for _, rec := range groups[i].Records {
			rec.Rank = groups[i].Rank
			rec.PsmRatio = groups[i].Ratio
		}
	}

	return groups
}

// RankAll ranks every cluster, up to workers clusters at a time. Clusters are disjoint,
// so no locking is needed on the records.
func RankAll(ctx context.Context, clusters map[int64][]*core.ClusteredPsmRecord, workers int) (map[int64][]RankedGroup, error) {
	if workers < 1 {
		workers = 1
	}

	ids := make([]int64, 0, len(clusters))
	for id := range clusters {
		ids = append(ids, id)
	}

	results := make([][]RankedGroup, len(ids))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, id := range ids {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			results[i] = RankCluster(clusters[id])
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	ranked := make(map[int64][]RankedGroup, len(ids))
	for i, id := range ids {
		ranked[id] = results[i]
	}
	return ranked, nil
}
