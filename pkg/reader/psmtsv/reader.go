// Package psmtsv provides streaming readers for tab-separated PSM and assay release files
package psmtsv

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/ChrisMcGann/clusterpep/pkg/core"
)

// Column names of the PSM file
const (
	ColClusterID          = "cluster_id"
	ColQuality            = "quality"
	ColSequence           = "sequence"
	ColModifications      = "modifications"
	ColAssayID            = "assay_id"
	ColNumSpectra         = "num_spectra"
	ColDeltaMZ            = "delta_mz"
	ColExpMZ              = "exp_mz"
	ColCharge             = "charge"
	ColClusterNumSpectra  = "cluster_num_spectra"
	ColClusterNumPSMs     = "cluster_num_psms"
	ColClusterNumProjects = "cluster_num_projects"
	ColClusterAvgCharge   = "cluster_avg_charge"
	ColClusterAvgMZ       = "cluster_avg_mz"
)

var requiredPSMColumns = []string{ColClusterID, ColQuality, ColSequence, ColModifications, ColAssayID}

// table is a header-driven tab-separated line scanner shared by the readers
type table struct {
	scanner *bufio.Scanner
	columns map[string]int
	lineNum int
	fields  []string
}

func newTable(r io.Reader, required []string) (*table, error) {
	t := &table{scanner: bufio.NewScanner(r)}
	t.scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	for t.scanner.Scan() {
		t.lineNum++
		line := strings.TrimSpace(t.scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		t.columns = make(map[string]int)
		for i, name := range strings.Split(line, "\t") {
			t.columns[strings.ToLower(strings.TrimSpace(name))] = i
		}
		break
	}
	if err := t.scanner.Err(); err != nil {
		return nil, err
	}
	if t.columns == nil {
		return nil, fmt.Errorf("missing header line")
	}

	for _, col := range required {
		if _, ok := t.columns[col]; !ok {
			return nil, fmt.Errorf("missing required column '%s'", col)
		}
	}

	return t, nil
}

// next loads the next non-empty line. It returns false at EOF or on a scanner error.
func (t *table) next() bool {
	for t.scanner.Scan() {
		t.lineNum++
		line := strings.TrimRight(t.scanner.Text(), "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		t.fields = strings.Split(line, "\t")
		return true
	}
	return false
}

// get returns the trimmed value of a column, or "" when the column or field is absent
func (t *table) get(col string) string {
	i, ok := t.columns[col]
	if !ok || i >= len(t.fields) {
		return ""
	}
	return strings.TrimSpace(t.fields[i])
}

func (t *table) getInt(col string) (int, error) {
	v := t.get(col)
	if v == "" || strings.EqualFold(v, "NULL") {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("line %d: invalid %s '%s': %w", t.lineNum, col, v, err)
	}
	return n, nil
}

func (t *table) getInt64(col string) (int64, error) {
	v := t.get(col)
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("line %d: invalid %s '%s': %w", t.lineNum, col, v, err)
	}
	return n, nil
}

// getFloat returns nil for empty or NULL values
func (t *table) getFloat(col string) (*float64, error) {
	v := t.get(col)
	if v == "" || strings.EqualFold(v, "NULL") {
		return nil, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return nil, fmt.Errorf("line %d: invalid %s '%s': %w", t.lineNum, col, v, err)
	}
	return &f, nil
}

// Reader provides streaming access to PSM release files
type Reader struct {
	table      *table
	modDB      *core.ModDatabase
	normalizer core.Normalizer
	current    *core.RawPSM
	err        error
}

// NewReader reads the header line and creates a PSM reader. The catalog is used to
// compute delta m/z for rows that only carry the experimental m/z and charge.
func NewReader(r io.Reader, modDB *core.ModDatabase) (*Reader, error) {
	if modDB == nil {
		modDB = core.DefaultModDatabase()
	}

	t, err := newTable(r, requiredPSMColumns)
	if err != nil {
		return nil, fmt.Errorf("invalid PSM file: %w", err)
	}

	return &Reader{
		table:      t,
		modDB:      modDB,
		normalizer: core.NewCatalogNormalizer(modDB),
	}, nil
}

// Next advances to the next PSM. Returns false when no more rows or error.
func (r *Reader) Next() bool {
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

	psm, err := r.parseRow()
	if err != nil {
		r.err = err
		return false
	}

	r.current = psm
	return true
}

// PSM returns the current row
func (r *Reader) PSM() *core.RawPSM {
	return r.current
}

// Err returns any error encountered during reading
func (r *Reader) Err() error {
	return r.err
}

// Line returns the line number of the current row
func (r *Reader) Line() int {
	return r.table.lineNum
}

func (r *Reader) parseRow() (*core.RawPSM, error) {
	t := r.table
	psm := &core.RawPSM{
		Sequence:         strings.ToUpper(t.get(ColSequence)),
		RawModifications: t.get(ColModifications),
	}

	var err error
	if psm.ClusterID, err = t.getInt64(ColClusterID); err != nil {
		return nil, err
	}
	if psm.AssayID, err = t.getInt64(ColAssayID); err != nil {
		return nil, err
	}
	if psm.Quality, err = parseQuality(t.get(ColQuality)); err != nil {
		return nil, fmt.Errorf("line %d: %w", t.lineNum, err)
	}

	if psm.NumSpectra, err = t.getInt(ColNumSpectra); err != nil {
		return nil, err
	}
	if psm.ClusterNumSpectra, err = t.getInt(ColClusterNumSpectra); err != nil {
		return nil, err
	}
	if psm.ClusterNumPSMs, err = t.getInt(ColClusterNumPSMs); err != nil {
		return nil, err
	}
	if psm.ClusterNumProjects, err = t.getInt(ColClusterNumProjects); err != nil {
		return nil, err
	}

	avgCharge, err := t.getFloat(ColClusterAvgCharge)
	if err != nil {
		return nil, err
	}
	if avgCharge != nil {
		psm.ClusterAvgCharge = *avgCharge
	}
	avgMZ, err := t.getFloat(ColClusterAvgMZ)
	if err != nil {
		return nil, err
	}
	if avgMZ != nil {
		psm.ClusterAvgMZ = *avgMZ
	}

	if psm.DeltaMZ, err = t.getFloat(ColDeltaMZ); err != nil {
		return nil, err
	}
	if psm.DeltaMZ == nil {
		if psm.DeltaMZ, err = r.computeDeltaMZ(psm); err != nil {
			return nil, err
		}
	}

	return psm, nil
}

// computeDeltaMZ derives delta m/z from the experimental m/z and charge columns when present.
// Rows with modifications missing from the catalog get no delta.
func (r *Reader) computeDeltaMZ(psm *core.RawPSM) (*float64, error) {
	expMZ, err := r.table.getFloat(ColExpMZ)
	if err != nil || expMZ == nil {
		return nil, err
	}
	charge, err := r.table.getInt(ColCharge)
	if err != nil {
		return nil, err
	}

	mods, _, _ := r.normalizer.Normalize(psm.RawModifications, psm.Sequence)
	modMass, complete := r.modDB.TotalMass(mods)
	if !complete {
		return nil, nil
	}

	delta, ok := core.DeltaMZ(psm.Sequence, charge, modMass, *expMZ)
	if !ok {
		return nil, nil
	}
	delta = core.RoundFloat(delta, 6)
	return &delta, nil
}

// parseQuality accepts tier names as well as their numeric codes
func parseQuality(v string) (core.Quality, error) {
	if n, err := strconv.Atoi(v); err == nil {
		if n < int(core.QualityLow) || n > int(core.QualityHigh) {
			return 0, fmt.Errorf("invalid quality code %d", n)
		}
		return core.Quality(n), nil
	}
	return core.ParseQuality(v)
}
