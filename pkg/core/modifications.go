// Package core provides modification catalog parsing and management
package core

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// ModEntry is a catalog definition of a modification.
type ModEntry struct {
	Accession string
	Name      string
	Mass      float64 // monoisotopic mass shift
	Sites     string  // residues the modification may sit on; empty = any
}

// ModDatabase stores modification definitions keyed by accession and by name
type ModDatabase struct {
	byAccession map[string]ModEntry
	byName      map[string]ModEntry
}

// NewModDatabase creates an empty modification database
func NewModDatabase() *ModDatabase {
	return &ModDatabase{
		byAccession: make(map[string]ModEntry),
		byName:      make(map[string]ModEntry),
	}
}

// LoadFromCSV loads modifications from a CSV file (format: mod,massshift,aa[,accession]).
// When the accession column is missing the name doubles as accession.
func (db *ModDatabase) LoadFromCSV(r io.Reader) error {
	scanner := bufio.NewScanner(r)

	// Skip header line
	if scanner.Scan() {
		// header line
	}

	lineNum := 1
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		parts := strings.Split(line, ",")
		if len(parts) < 2 {
			return fmt.Errorf("line %d: invalid format, expected at least 2 comma-separated fields", lineNum)
		}

		modName := strings.TrimSpace(parts[0])
		massStr := strings.TrimSpace(parts[1])

		mass, err := strconv.ParseFloat(massStr, 64)
		if err != nil {
			return fmt.Errorf("line %d: invalid mass value '%s': %w", lineNum, massStr, err)
		}

		entry := ModEntry{Name: modName, Accession: modName, Mass: mass}
		if len(parts) > 2 {
			entry.Sites = strings.ToUpper(strings.TrimSpace(parts[2]))
		}
		if len(parts) > 3 && strings.TrimSpace(parts[3]) != "" {
			entry.Accession = strings.TrimSpace(parts[3])
		}

		db.Add(entry)
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("error reading CSV: %w", err)
	}

	return nil
}

// Lookup returns the catalog entry for an accession
func (db *ModDatabase) Lookup(accession string) (ModEntry, bool) {
	entry, ok := db.byAccession[accession]
	return entry, ok
}

// LookupName returns the catalog entry for a modification name
func (db *ModDatabase) LookupName(name string) (ModEntry, bool) {
	entry, ok := db.byName[name]
	return entry, ok
}

// GetMass returns the mass shift for an accession
func (db *ModDatabase) GetMass(accession string) (float64, bool) {
	entry, ok := db.byAccession[accession]
	return entry.Mass, ok
}

// ShortName returns the catalog name for an accession, falling back to the accession itself
func (db *ModDatabase) ShortName(accession string) string {
	if entry, ok := db.byAccession[accession]; ok && entry.Name != "" {
		return entry.Name
	}
	return accession
}

// TotalMass sums the catalog masses of the given modifications. Unknown accessions count as zero
// and are reported through the second return value.
func (db *ModDatabase) TotalMass(mods []Modification) (float64, bool) {
	total := 0.0
	complete := true
	for _, mod := range mods {
		mass, ok := db.GetMass(mod.Accession)
		if !ok {
			complete = false
			continue
		}
		total += mass
	}
	return total, complete
}

// Add adds or updates a modification
func (db *ModDatabase) Add(entry ModEntry) {
	db.byAccession[entry.Accession] = entry
	if entry.Name != "" {
		if _, exists := db.byName[entry.Name]; !exists || entry.Accession == entry.Name {
			db.byName[entry.Name] = entry
		}
	}
}

// Len returns the number of catalogued accessions
func (db *ModDatabase) Len() int {
	return len(db.byAccession)
}

// DefaultModDatabase returns a ModDatabase pre-loaded with common UNIMOD and PSI-MOD accessions
func DefaultModDatabase() *ModDatabase {
	db := NewModDatabase()

	for _, entry := range []ModEntry{
		{"UNIMOD:1", "Acetyl", 42.010565, ""},
		{"UNIMOD:2", "Amidated", -0.984016, ""},
		{"UNIMOD:3", "Biotin", 226.077598, "K"},
		{"UNIMOD:4", "Carbamidomethyl", 57.021464, "C"},
		{"UNIMOD:5", "Carbamyl", 43.005814, ""},
		{"UNIMOD:6", "Carboxymethyl", 58.005479, "C"},
		{"UNIMOD:7", "Deamidated", 0.984016, "NQR"},
		{"UNIMOD:10", "Met->Hse", -29.992806, "M"},
		{"UNIMOD:11", "Met->Hsl", -48.003371, "M"},
		{"UNIMOD:17", "NIPCAM", 99.068414, "C"},
		{"UNIMOD:21", "Phospho", 79.966331, "STYHDCKR"},
		{"UNIMOD:23", "Dehydrated", -18.010565, ""},
		{"UNIMOD:24", "Propionamide", 71.037114, "C"},
		{"UNIMOD:26", "Pyro-carbamidomethyl", 39.994915, "C"},
		{"UNIMOD:27", "Glu->pyro-Glu", -18.010565, "E"},
		{"UNIMOD:28", "Gln->pyro-Glu", -17.026549, "Q"},
		{"UNIMOD:30", "Cation:Na", 21.981943, ""},
		{"UNIMOD:34", "Methyl", 14.01565, ""},
		{"UNIMOD:35", "Oxidation", 15.994915, ""},
		{"UNIMOD:36", "Dimethyl", 28.0313, ""},
		{"UNIMOD:37", "Trimethyl", 42.04695, "KR"},
		{"UNIMOD:39", "Methylthio", 45.987721, ""},
		{"UNIMOD:40", "Sulfo", 79.956815, ""},
		{"UNIMOD:41", "Hex", 162.052824, ""},
		{"UNIMOD:42", "Lipoyl", 188.032956, "K"},
		{"UNIMOD:43", "HexNAc", 203.079373, ""},
		{"UNIMOD:44", "Farnesyl", 204.187801, "C"},
		{"UNIMOD:45", "Myristoyl", 210.198366, ""},
		{"UNIMOD:46", "PyridoxalPhosphate", 229.014009, "K"},
		{"UNIMOD:47", "Palmitoyl", 238.229666, ""},
		{"UNIMOD:48", "GeranylGeranyl", 272.250401, "C"},
		{"UNIMOD:49", "Phosphopantetheine", 340.085794, "S"},
		{"UNIMOD:50", "FAD", 783.141486, ""},
		{"UNIMOD:52", "Guanidinyl", 42.021798, "K"},
		{"UNIMOD:53", "HNE", 156.11503, ""},
		{"UNIMOD:54", "Glucuronyl", 176.032088, ""},
		{"UNIMOD:55", "Glutathione", 305.068156, "C"},
		{"UNIMOD:58", "Propionyl", 56.026215, ""},
		{"UNIMOD:121", "GG", 114.042927, "KSTC"},
		{"UNIMOD:214", "iTRAQ4plex", 144.102063, ""},
		{"UNIMOD:730", "iTRAQ8plex", 304.205360, ""},
		{"UNIMOD:737", "TMT6plex", 229.162932, ""},
		{"UNIMOD:2016", "TMTpro", 304.207146, ""},

		// PSI-MOD equivalents seen in older submissions
		{"MOD:00394", "acetylated residue", 42.010565, ""},
		{"MOD:00397", "iodoacetamide derivatized residue", 57.021464, "C"},
		{"MOD:00696", "phosphorylated residue", 79.966331, "STYHDCKR"},
		{"MOD:00719", "L-methionine sulfoxide", 15.994915, "M"},
	} {
		db.Add(entry)
	}

	return db
}
