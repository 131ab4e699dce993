package psmtsv

import (
	"fmt"
	"io"
	"strings"

	"github.com/ChrisMcGann/clusterpep/pkg/core"
)

// Column names of the assay file
const (
	ColAccession        = "accession"
	ColProjectAccession = "project_accession"
	ColTaxonomyIDs      = "taxonomy_ids"
	ColSpecies          = "species"
)

// AssayReader provides streaming access to assay metadata files
type AssayReader struct {
	table   *table
	current *core.AssayMetadata
	err     error
}

// NewAssayReader reads the header line and creates an assay reader
func NewAssayReader(r io.Reader) (*AssayReader, error) {
	t, err := newTable(r, []string{ColAssayID})
	if err != nil {
		return nil, fmt.Errorf("invalid assay file: %w", err)
	}
	return &AssayReader{table: t}, nil
}

// Next advances to the next assay. Returns false when no more rows or error.
func (r *AssayReader) Next() bool {
	r.current = nil
	if r.err != nil {
		return false
	}

	if !r.table.next() {
		if err := r.table.scanner.Err(); err != nil {
			r.err = err
		}
		return false
	}

	id, err := r.table.getInt64(ColAssayID)
	if err != nil {
		r.err = err
		return false
	}

	r.current = &core.AssayMetadata{
		ID:               id,
		Accession:        r.table.get(ColAccession),
		ProjectAccession: r.table.get(ColProjectAccession),
		TaxonomyIDs:      splitList(r.table.get(ColTaxonomyIDs)),
		Species:          splitList(r.table.get(ColSpecies)),
	}
	return true
}

// Assay returns the current assay
func (r *AssayReader) Assay() *core.AssayMetadata {
	return r.current
}

// Err returns any error encountered during reading
func (r *AssayReader) Err() error {
	return r.err
}

// splitList splits a comma or semicolon separated list, dropping empty elements
func splitList(v string) []string {
	var out []string
	for _, s := range strings.FieldsFunc(v, func(r rune) bool { return r == ',' || r == ';' }) {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
