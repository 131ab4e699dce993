// Package aggregate indexes ranked records by peptide form across all clusters.
package aggregate

import (
	"cmp"
	"slices"

	"github.com/ChrisMcGann/clusterpep/pkg/core"
)

// Entry holds every record of one peptide form, ordered by cluster id then assay id.
type Entry struct {
	Form    core.PeptideForm
	Records []*core.ClusteredPsmRecord
}

// Index maps peptide forms to their records. It is read-only once built.
type Index struct {
	entries map[string]*Entry
}

// Build flattens ranked clusters into a form index. Ranks and ratios are taken as assigned.
func Build(clusters map[int64][]*core.ClusteredPsmRecord) *Index {
	idx := &Index{entries: make(map[string]*Entry)}

	for _, recs := range clusters {
		for _, rec := range recs {
			form := rec.Form()
			e, ok := idx.entries[form.Key()]
			if !ok {
				e = &Entry{Form: form}
				idx.entries[form.Key()] = e
			}
			e.Records = append(e.Records, rec)
		}
	}

	for _, e := range idx.entries {
		slices.SortFunc(e.Records, func(a, b *core.ClusteredPsmRecord) int {
			if c := cmp.Compare(a.ClusterID, b.ClusterID); c != 0 {
				return c
			}
			return cmp.Compare(a.AssayID, b.AssayID)
		})
	}

	return idx
}

// Len returns the number of distinct peptide forms.
func (idx *Index) Len() int {
	return len(idx.entries)
}

// Lookup returns the entry of a form.
func (idx *Index) Lookup(form core.PeptideForm) (*Entry, bool) {
	e, ok := idx.entries[form.Key()]
	return e, ok
}

// Entries returns all entries ordered by sequence, then modification string.
func (idx *Index) Entries() []*Entry {
	out := make([]*Entry, 0, len(idx.entries))
	for _, e := range idx.entries {
		out = append(out, e)
	}
	slices.SortFunc(out, func(a, b *Entry) int {
		return a.Form.Compare(b.Form)
	})
	return out
}
