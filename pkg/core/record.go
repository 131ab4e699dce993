// Package core provides the record models, peptide-form identity and validation logic
// shared by the clusterpep ingestion, ranking and reporting stages.
package core

import (
	"fmt"
	"strings"
)

// Quality is the tier assigned to a cluster by the upstream clustering release.
type Quality int

const (
	QualityLow Quality = iota
	QualityMedium
	QualityHigh
)

// String returns the upper-case tier name used in the repository and configuration.
func (q Quality) String() string {
	switch q {
	case QualityLow:
		return "LOW"
	case QualityMedium:
		return "MEDIUM"
	case QualityHigh:
		return "HIGH"
	default:
		return fmt.Sprintf("Quality(%d)", int(q))
	}
}

// ParseQuality parses a tier name case-insensitively.
func ParseQuality(s string) (Quality, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "LOW":
		return QualityLow, nil
	case "MEDIUM":
		return QualityMedium, nil
	case "HIGH":
		return QualityHigh, nil
	default:
		return 0, fmt.Errorf("unknown cluster quality '%s', must be LOW, MEDIUM or HIGH", s)
	}
}

// AssayMetadata is the assay-level information joined onto every PSM of that assay.
type AssayMetadata struct {
	ID               int64
	Accession        string
	ProjectAccession string
	TaxonomyIDs      []string // NEWT taxonomy ids, e.g. "9606"
	Species          []string // species names, parallel to TaxonomyIDs when available
}

// HasTaxonomy reports whether the assay lists the given taxonomy id.
func (a *AssayMetadata) HasTaxonomy(taxonomy string) bool {
	if a == nil {
		return false
	}
	for _, t := range a.TaxonomyIDs {
		if t == taxonomy {
			return true
		}
	}
	return false
}

// RawPSM is a clustered PSM row as stored in the cluster repository, before enrichment.
type RawPSM struct {
	ClusterID        int64
	Sequence         string
	RawModifications string // repository modification descriptors, see Normalizer
	AssayID          int64
	NumSpectra       int
	DeltaMZ          *float64

	// Cluster-level aggregates
	ClusterNumSpectra  int
	ClusterNumPSMs     int
	ClusterNumProjects int
	ClusterAvgCharge   float64
	ClusterAvgMZ       float64
	Quality            Quality
}

// ClusteredPsmRecord is an enriched PSM inside a cluster. Rank and PsmRatio are
// assigned by the ranker; all other fields are fixed at enrichment time.
type ClusteredPsmRecord struct {
	ClusterID     int64
	Sequence      string
	Modifications []Modification // anchored, canonical order
	AssayID       int64
	NumSpectra    int
	DeltaMZ       *float64

	// Computed per cluster
	Rank     int
	PsmRatio float64

	// Cluster-level aggregates
	ClusterNumSpectra  int
	ClusterNumPSMs     int
	ClusterNumProjects int
	ClusterAvgCharge   float64
	ClusterAvgMZ       float64
	Quality            Quality

	WrongAnnotation bool
	Assay           *AssayMetadata // nil when the assay id is unknown
}

// Form returns the peptide form identity of the record.
func (r *ClusteredPsmRecord) Form() PeptideForm {
	return NewPeptideForm(r.Sequence, r.Modifications)
}

// TaxonomyIDs returns the record's assay taxonomy list, or nil when the assay is absent.
func (r *ClusteredPsmRecord) TaxonomyIDs() []string {
	if r.Assay == nil {
		return nil
	}
	return r.Assay.TaxonomyIDs
}

// ProjectAccession returns the record's project accession, or "" when the assay is absent.
func (r *ClusteredPsmRecord) ProjectAccession() string {
	if r.Assay == nil {
		return ""
	}
	return r.Assay.ProjectAccession
}

// ValidationError represents an error found during record validation.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error in %s: %s", e.Field, e.Message)
}

// Validate checks that a raw PSM row can be loaded into the repository.
func (p *RawPSM) Validate() error {
	var errs []string

	if p.Sequence == "" {
		errs = append(errs, "sequence is required")
	}
	if p.ClusterID <= 0 {
		errs = append(errs, "cluster id must be positive")
	}
	if p.NumSpectra < 0 {
		errs = append(errs, "spectra count must be non-negative")
	}
	if strings.IndexFunc(p.Sequence, func(r rune) bool { return r < 'A' || r > 'Z' }) >= 0 {
		errs = append(errs, "sequence must contain upper-case residues only")
	}

	if len(errs) > 0 {
		return &ValidationError{
			Field:   "PSM",
			Message: strings.Join(errs, "; "),
		}
	}

	return nil
}

// Name returns the row name in format "Sequence/ClusterID"
func (p *RawPSM) Name() string {
	return fmt.Sprintf("%s/%d", p.Sequence, p.ClusterID)
}
