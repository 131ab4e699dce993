package core

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFromCSV(t *testing.T) {
	csv := `mod,massshift,aa,accession
Carbamidomethyl,57.021464,C,UNIMOD:4
MyMod,12.5,k
`
	db := NewModDatabase()
	require.NoError(t, db.LoadFromCSV(strings.NewReader(csv)))
	assert.Equal(t, 2, db.Len())

	entry, ok := db.Lookup("UNIMOD:4")
	require.True(t, ok)
	assert.Equal(t, "Carbamidomethyl", entry.Name)
	assert.Equal(t, "C", entry.Sites)

	entry, ok = db.LookupName("MyMod")
	require.True(t, ok)
	assert.Equal(t, "MyMod", entry.Accession)
	assert.Equal(t, "K", entry.Sites)
}

func TestLoadFromCSVInvalidMass(t *testing.T) {
	db := NewModDatabase()
	err := db.LoadFromCSV(strings.NewReader("mod,massshift\nBad,abc\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 2")
}

func TestDefaultModDatabase(t *testing.T) {
	db := DefaultModDatabase()

	tests := []struct {
		accession string
		wantName  string
		wantMass  float64
	}{
		{"UNIMOD:35", "Oxidation", 15.994915},
		{"UNIMOD:4", "Carbamidomethyl", 57.021464},
		{"MOD:00719", "L-methionine sulfoxide", 15.994915},
	}

	for _, tt := range tests {
		t.Run(tt.accession, func(t *testing.T) {
			mass, ok := db.GetMass(tt.accession)
			if !ok {
				t.Fatalf("GetMass(%s) not found", tt.accession)
			}
			assert.InDelta(t, tt.wantMass, mass, 1e-6)
			assert.Equal(t, tt.wantName, db.ShortName(tt.accession))
		})
	}

	assert.Equal(t, "UNIMOD:99999", db.ShortName("UNIMOD:99999"))
}

func TestTotalMass(t *testing.T) {
	db := DefaultModDatabase()

	total, complete := db.TotalMass([]Modification{
		{Position: 1, Accession: "UNIMOD:4"},
		{Position: 3, Accession: "UNIMOD:35"},
	})
	assert.True(t, complete)
	assert.InDelta(t, 73.016379, total, 1e-6)

	total, complete = db.TotalMass([]Modification{
		{Position: 1, Accession: "UNIMOD:4"},
		{Position: 2, Accession: "UNKNOWN:1"},
	})
	assert.False(t, complete)
	assert.InDelta(t, 57.021464, total, 1e-6)
}

func TestRawPSMValidate(t *testing.T) {
	tests := []struct {
		name    string
		psm     RawPSM
		wantErr bool
	}{
		{"valid", RawPSM{ClusterID: 1, Sequence: "PEPTIDE", NumSpectra: 2}, false},
		{"empty sequence", RawPSM{ClusterID: 1}, true},
		{"zero cluster", RawPSM{Sequence: "PEPTIDE"}, true},
		{"negative spectra", RawPSM{ClusterID: 1, Sequence: "PEPTIDE", NumSpectra: -1}, true},
		{"lower case residues", RawPSM{ClusterID: 1, Sequence: "peptide"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.psm.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestParseQuality(t *testing.T) {
	q, err := ParseQuality(" high ")
	require.NoError(t, err)
	assert.Equal(t, QualityHigh, q)
	assert.Equal(t, "HIGH", q.String())

	_, err = ParseQuality("best")
	assert.Error(t, err)
	assert.True(t, QualityLow < QualityMedium && QualityMedium < QualityHigh)
}
