package species

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const speciesFile = "scientific_name\tname\ttaxonomy\n" +
	"Mus musculus\tMouse\t10090\n" +
	"Homo sapiens\tHuman\t9606\n" +
	"broken row\t9606\n" +
	"too\tmany\tfields\there\n" +
	"\n"

func TestParse(t *testing.T) {
	list, err := Parse(strings.NewReader(speciesFile))
	require.NoError(t, err)
	require.Len(t, list, 2)

	assert.Equal(t, Species{Taxonomy: "10090", Name: "Mouse", ScientificName: "Mus musculus"}, list[0])
	assert.Equal(t, "Human", list[1].Name)
}

func TestParseEmpty(t *testing.T) {
	list, err := Parse(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "species_metadata.tsv")
	require.NoError(t, os.WriteFile(path, []byte(speciesFile), 0644))

	list, err := Load(path)
	require.NoError(t, err)
	assert.Len(t, list, 2)

	_, err = Load(filepath.Join(t.TempDir(), "missing.tsv"))
	assert.Error(t, err)
}

func TestTargets(t *testing.T) {
	targets := Targets([]Species{{Taxonomy: "9606", Name: "Human"}})
	require.Len(t, targets, 2)

	assert.True(t, targets[0].IsAll())
	assert.Equal(t, "ALL", targets[0].Name())
	assert.Equal(t, "", targets[0].Taxonomy())

	assert.False(t, targets[1].IsAll())
	assert.Equal(t, "Human", targets[1].Name())
	assert.Equal(t, "9606", targets[1].Taxonomy())
}
