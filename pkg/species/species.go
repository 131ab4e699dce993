// Package species loads the list of species a release is exported for.
package species

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"
)

// AllName is the name of the unfiltered species context.
const AllName = "ALL"

// Species is one target species of a release.
type Species struct {
	Taxonomy       string // NEWT taxonomy id, e.g. "9606"
	Name           string // short name used in file names, e.g. "Human"
	ScientificName string
}

// Target selects the records of one species context. The zero value is "ALL".
type Target struct {
	Species *Species
}

// All is the unfiltered target.
var All = Target{}

// ForSpecies returns the target of one species.
func ForSpecies(s Species) Target {
	return Target{Species: &s}
}

// IsAll reports whether the target disables species filtering.
func (t Target) IsAll() bool {
	return t.Species == nil
}

// Taxonomy returns the taxonomy id the target filters on, or "" for ALL.
func (t Target) Taxonomy() string {
	if t.Species == nil {
		return ""
	}
	return t.Species.Taxonomy
}

// Name returns the species name, or "ALL".
func (t Target) Name() string {
	if t.Species == nil {
		return AllName
	}
	return t.Species.Name
}

// Parse reads a species metadata file: a header line, then tab-separated rows of
// scientific name, name and taxonomy id. Rows with a different number of fields are
// skipped. Species are returned ordered by taxonomy id; a repeated taxonomy id replaces
// the earlier row.
func Parse(r io.Reader) ([]Species, error) {
	scanner := bufio.NewScanner(r)

	// Skip header line
	if !scanner.Scan() {
		return nil, scanner.Err()
	}

	byTaxonomy := make(map[string]Species)
	for scanner.Scan() {
		fields := strings.Split(strings.TrimRight(scanner.Text(), "\r"), "\t")
		if len(fields) != 3 {
			continue
		}

		s := Species{
			ScientificName: strings.TrimSpace(fields[0]),
			Name:           strings.TrimSpace(fields[1]),
			Taxonomy:       strings.TrimSpace(fields[2]),
		}
		if s.Taxonomy == "" || s.Name == "" {
			continue
		}
		byTaxonomy[s.Taxonomy] = s
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading species file: %w", err)
	}

	out := make([]Species, 0, len(byTaxonomy))
	for _, s := range byTaxonomy {
		out = append(out, s)
	}
	slices.SortFunc(out, func(a, b Species) int {
		return strings.Compare(a.Taxonomy, b.Taxonomy)
	})
	return out, nil
}

// Load parses the species metadata file at path.
func Load(path string) ([]Species, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open species file: %w", err)
	}
	defer f.Close()

	return Parse(f)
}

// Targets returns the ALL target followed by one target per species.
func Targets(list []Species) []Target {
	targets := make([]Target, 0, len(list)+1)
	targets = append(targets, All)
	for _, s := range list {
		targets = append(targets, ForSpecies(s))
	}
	return targets
}
