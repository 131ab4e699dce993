package core

import (
	"slices"
	"strconv"
	"strings"
)

// Modification is an anchored modification: an accession at a position of the sequence.
// Position 0 is the N-terminus, 1..len(sequence) are residues and len(sequence)+1 is the C-terminus.
type Modification struct {
	Position  int
	Accession string // e.g. "UNIMOD:35", "MOD:00719"
}

// String renders the modification as "position-accession".
func (m Modification) String() string {
	return strconv.Itoa(m.Position) + "-" + m.Accession
}

func compareModifications(a, b Modification) int {
	if a.Position != b.Position {
		return a.Position - b.Position
	}
	return strings.Compare(a.Accession, b.Accession)
}

// SortModifications orders modifications by position, then accession, and removes duplicates.
// The input slice is not modified.
func SortModifications(mods []Modification) []Modification {
	if len(mods) == 0 {
		return nil
	}
	out := slices.Clone(mods)
	slices.SortFunc(out, compareModifications)
	return slices.Compact(out)
}

// PeptideForm is the identity of a peptide occurrence: the sequence plus the set of
// anchored modifications. Two forms are equal when their keys are equal, which ignores
// the order the modifications were listed in.
type PeptideForm struct {
	Sequence      string
	Modifications []Modification // canonical: sorted, no duplicates
	key           string
}

// NewPeptideForm builds a canonical peptide form from a sequence and modifications in any order.
func NewPeptideForm(sequence string, mods []Modification) PeptideForm {
	f := PeptideForm{
		Sequence:      sequence,
		Modifications: SortModifications(mods),
	}
	f.key = f.Sequence + "|" + f.ModString()
	return f
}

// Key returns the canonical grouping key of the form.
func (f PeptideForm) Key() string {
	if f.key == "" {
		return f.Sequence + "|" + f.ModString()
	}
	return f.key
}

// Equal reports whether two forms share the same sequence and modification set.
func (f PeptideForm) Equal(other PeptideForm) bool {
	return f.Key() == other.Key()
}

// ModString returns the modifications as "pos-accession" joined by commas, or "" when unmodified.
func (f PeptideForm) ModString() string {
	if len(f.Modifications) == 0 {
		return ""
	}

	parts := make([]string, 0, len(f.Modifications))
	for _, mod := range f.Modifications {
		parts = append(parts, mod.String())
	}
	return strings.Join(parts, ",")
}

// Compare orders forms by sequence, then modification string.
func (f PeptideForm) Compare(other PeptideForm) int {
	if c := strings.Compare(f.Sequence, other.Sequence); c != 0 {
		return c
	}
	return strings.Compare(f.ModString(), other.ModString())
}

// String returns the form in format "SEQUENCE[mods]"
func (f PeptideForm) String() string {
	if len(f.Modifications) == 0 {
		return f.Sequence
	}
	return f.Sequence + "[" + f.ModString() + "]"
}
