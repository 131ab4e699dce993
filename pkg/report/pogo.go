package report

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/ChrisMcGann/clusterpep/pkg/core"
)

// PoGoHeader is the column header of PoGo input files
const PoGoHeader = "Experiment\tPeptide\tPSMs\tQuant\n"

// DefaultPoGoExperimentFormat labels PoGo rows by cluster id
const DefaultPoGoExperimentFormat = "Cluster ID %d"

// PoGoFormatter renders cluster-peptide rows as PoGo input
type PoGoFormatter struct {
	ExperimentFormat string
	ModDB            *core.ModDatabase
	Logger           *slog.Logger
}

// FormatRow renders one PoGo line. PSMs is the cluster's PSM count and Quant is always 0.
func (f PoGoFormatter) FormatRow(row ClusterPeptideRow) string {
	format := f.ExperimentFormat
	if format == "" {
		format = DefaultPoGoExperimentFormat
	}

	return joinRow(
		fmt.Sprintf(format, row.ClusterID),
		f.EmbedModifications(row.ClusterID, row.Form),
		strconv.Itoa(row.ClusterNumPSMs),
		"0",
	)
}

// EmbedModifications writes modification short names after the residue they sit on,
// e.g. PEPM(Oxidation)TIDE. Several modifications on one residue are comma-joined.
// Terminal anchors cannot be expressed and are dropped with a warning.
func (f PoGoFormatter) EmbedModifications(clusterID int64, form core.PeptideForm) string {
	db := f.ModDB
	if db == nil {
		db = core.DefaultModDatabase()
	}

	byPosition := make(map[int][]string)
	for _, mod := range form.Modifications {
		if mod.Position < 1 || mod.Position > len(form.Sequence) {
			if f.Logger != nil {
				f.Logger.Warn("excluding modification from PoGo peptide",
					"accession", mod.Accession,
					"sequence", form.Sequence,
					"position", mod.Position,
					"cluster_id", clusterID,
				)
			}
			continue
		}
		byPosition[mod.Position] = append(byPosition[mod.Position], db.ShortName(mod.Accession))
	}

	var b strings.Builder
	for i := 0; i < len(form.Sequence); i++ {
		b.WriteByte(form.Sequence[i])
		if names, ok := byPosition[i+1]; ok {
			b.WriteString("(" + strings.Join(names, ",") + ")")
		}
	}
	return b.String()
}
