package report

import (
	"math"
	"strconv"
	"strings"
)

// NullValue is written for absent values
const NullValue = "NULL"

// Default row prefixes
const (
	DefaultPeptidePrefix        = "PEP"
	DefaultClusterPeptidePrefix = "SPEP"
)

// Formatter renders report rows as tab-separated, newline-terminated lines
type Formatter struct {
	PeptidePrefix        string
	ClusterPeptidePrefix string
}

// FormatPeptide renders a peptide-level row
func (f Formatter) FormatPeptide(row PeptideRow) string {
	return joinRow(
		f.PeptidePrefix,
		row.Form.Sequence,
		formatText(row.Form.ModString()),
		formatFloat(float64(row.BestRank)),
		formatFloat(row.BestRatio),
		strconv.Itoa(row.NumSpectra),
		strconv.Itoa(row.NumProjects),
		strconv.Itoa(row.NumClusters),
		joinSet(row.Taxonomies),
		joinSet(row.Projects),
	)
}

// FormatClusterPeptide renders a cluster-peptide row
func (f Formatter) FormatClusterPeptide(row ClusterPeptideRow) string {
	return joinRow(
		f.ClusterPeptidePrefix,
		strconv.FormatInt(row.ClusterID, 10),
		row.Form.Sequence,
		formatText(row.Form.ModString()),
		formatFloat(float64(row.Rank)),
		formatFloat(row.Ratio),
		formatOptional(row.DeltaMZ),
		strconv.Itoa(row.ClusterNumSpectra),
		strconv.Itoa(row.ClusterNumProjects),
		joinSet(row.Taxonomies),
		joinSet(row.Projects),
	)
}

func joinRow(fields ...string) string {
	return strings.Join(fields, "\t") + "\n"
}

// formatFloat uses two decimals. Values that round to zero print as 0.00, never -0.00.
func formatFloat(v float64) string {
	if math.Round(v*100) == 0 {
		v = 0
	}
	return strconv.FormatFloat(v, 'f', 2, 64)
}

func formatOptional(v *float64) string {
	if v == nil {
		return NullValue
	}
	return formatFloat(*v)
}

func formatText(s string) string {
	if s == "" {
		return NullValue
	}
	return s
}

// joinSet joins sorted values with commas; an empty set is NULL
func joinSet(values []string) string {
	if len(values) == 0 {
		return NullValue
	}
	return strings.Join(values, ",")
}
