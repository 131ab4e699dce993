package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewPeptideFormOrderInvariance(t *testing.T) {
	a := NewPeptideForm("PEPMTIDEK", []Modification{
		{Position: 4, Accession: "UNIMOD:35"},
		{Position: 0, Accession: "UNIMOD:1"},
	})
	b := NewPeptideForm("PEPMTIDEK", []Modification{
		{Position: 0, Accession: "UNIMOD:1"},
		{Position: 4, Accession: "UNIMOD:35"},
	})

	assert.True(t, a.Equal(b))
	assert.Equal(t, a.Key(), b.Key())
	assert.Equal(t, "0-UNIMOD:1,4-UNIMOD:35", a.ModString())
}

func TestPeptideFormEquality(t *testing.T) {
	base := NewPeptideForm("PEPMTIDE", []Modification{{Position: 4, Accession: "UNIMOD:35"}})

	tests := []struct {
		name  string
		other PeptideForm
		want  bool
	}{
		{
			name:  "same content",
			other: NewPeptideForm("PEPMTIDE", []Modification{{Position: 4, Accession: "UNIMOD:35"}}),
			want:  true,
		},
		{
			name: "duplicate modification collapses",
			other: NewPeptideForm("PEPMTIDE", []Modification{
				{Position: 4, Accession: "UNIMOD:35"},
				{Position: 4, Accession: "UNIMOD:35"},
			}),
			want: true,
		},
		{
			name:  "different position",
			other: NewPeptideForm("PEPMTIDE", []Modification{{Position: 3, Accession: "UNIMOD:35"}}),
			want:  false,
		},
		{
			name:  "different accession",
			other: NewPeptideForm("PEPMTIDE", []Modification{{Position: 4, Accession: "MOD:00719"}}),
			want:  false,
		},
		{
			name:  "unmodified",
			other: NewPeptideForm("PEPMTIDE", nil),
			want:  false,
		},
		{
			name:  "different sequence",
			other: NewPeptideForm("PEPMTIDEK", []Modification{{Position: 4, Accession: "UNIMOD:35"}}),
			want:  false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := base.Equal(tt.other); got != tt.want {
				t.Errorf("Equal() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSortModificationsDoesNotMutateInput(t *testing.T) {
	in := []Modification{
		{Position: 5, Accession: "UNIMOD:4"},
		{Position: 1, Accession: "UNIMOD:35"},
	}

	out := SortModifications(in)

	assert.Equal(t, 5, in[0].Position)
	assert.Equal(t, []Modification{
		{Position: 1, Accession: "UNIMOD:35"},
		{Position: 5, Accession: "UNIMOD:4"},
	}, out)
	assert.Nil(t, SortModifications(nil))
}

func TestPeptideFormCompare(t *testing.T) {
	plain := NewPeptideForm("AAK", nil)
	modified := NewPeptideForm("AAK", []Modification{{Position: 3, Accession: "UNIMOD:1"}})
	other := NewPeptideForm("BBK", nil)

	assert.Negative(t, plain.Compare(modified))
	assert.Negative(t, modified.Compare(other))
	assert.Zero(t, plain.Compare(NewPeptideForm("AAK", nil)))
	assert.Equal(t, "AAK[3-UNIMOD:1]", modified.String())
	assert.Equal(t, "AAK", plain.String())
}

func TestPeptideFormZeroValueKey(t *testing.T) {
	var f PeptideForm
	f.Sequence = "PEPTIDE"
	assert.Equal(t, NewPeptideForm("PEPTIDE", nil).Key(), f.Key())
}
