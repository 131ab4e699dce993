package ingest

import (
	"slices"
	"sync/atomic"

	"github.com/puzpuzpuz/xsync/v3"

	"github.com/ChrisMcGann/clusterpep/pkg/core"
)

// identity of a record inside its cluster
type identKey struct {
	sequence string
	assayID  int64
}

// clusterBucket holds the records of one cluster. It is only touched inside the
// map's Compute, which serializes access per cluster id.
type clusterBucket struct {
	recs    []*core.ClusteredPsmRecord
	byIdent map[identKey]int // index into recs
}

// ClusterGrouper collects enriched records by cluster id. It is safe for concurrent use.
//
// Within a cluster a record is identified by (sequence, assay id). When two records share
// that identity the one that sorts first under preferRecord is kept. Records that tie under
// preferRecord agree on every reported column, so the result does not depend on the order
// records arrive in.
type ClusterGrouper struct {
	clusters   *xsync.MapOf[int64, *clusterBucket]
	duplicates atomic.Int64
}

// NewClusterGrouper creates an empty grouper.
func NewClusterGrouper() *ClusterGrouper {
	return &ClusterGrouper{
		clusters: xsync.NewMapOf[int64, *clusterBucket](),
	}
}

// Add merges a record into its cluster. It reports false when the record collided with
// an existing identity (whichever of the two was kept).
func (g *ClusterGrouper) Add(rec *core.ClusteredPsmRecord) bool {
	var added bool
	key := identKey{sequence: rec.Sequence, assayID: rec.AssayID}

	g.clusters.Compute(rec.ClusterID, func(b *clusterBucket, loaded bool) (*clusterBucket, bool) {
		if !loaded {
			b = &clusterBucket{byIdent: make(map[identKey]int)}
		}

		i, seen := b.byIdent[key]
		if !seen {
			b.byIdent[key] = len(b.recs)
			b.recs = append(b.recs, rec)
			added = true
			return b, false
		}

		added = false
		if preferRecord(rec, b.recs[i]) {
			b.recs[i] = rec
		}
		return b, false
	})

	if !added {
		g.duplicates.Add(1)
	}
	return added
}

// Clusters returns a snapshot of the grouped records. Later calls to Add do not change it.
func (g *ClusterGrouper) Clusters() map[int64][]*core.ClusteredPsmRecord {
	out := make(map[int64][]*core.ClusteredPsmRecord, g.clusters.Size())
	g.clusters.Range(func(id int64, _ *clusterBucket) bool {
		g.clusters.Compute(id, func(b *clusterBucket, loaded bool) (*clusterBucket, bool) {
			if loaded {
				out[id] = slices.Clone(b.recs)
			}
			return b, !loaded
		})
		return true
	})
	return out
}

// Len returns the number of clusters seen so far.
func (g *ClusterGrouper) Len() int {
	return g.clusters.Size()
}

// Duplicates returns the number of identity collisions merged so far.
func (g *ClusterGrouper) Duplicates() int {
	return int(g.duplicates.Load())
}

// preferRecord reports whether a should be kept over b: more spectra first, then the
// smaller peptide form key, then the smaller delta m/z (present before absent), then
// the record without a wrong annotation.
func preferRecord(a, b *core.ClusteredPsmRecord) bool {
	if a.NumSpectra != b.NumSpectra {
		return a.NumSpectra > b.NumSpectra
	}
	if ka, kb := a.Form().Key(), b.Form().Key(); ka != kb {
		return ka < kb
	}
	switch {
	case a.DeltaMZ == nil && b.DeltaMZ != nil:
		return false
	case a.DeltaMZ != nil && b.DeltaMZ == nil:
		return true
	case a.DeltaMZ != nil && *a.DeltaMZ != *b.DeltaMZ:
		return *a.DeltaMZ < *b.DeltaMZ
	}
	return !a.WrongAnnotation && b.WrongAnnotation
}
