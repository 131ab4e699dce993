package report

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"

	"github.com/ChrisMcGann/clusterpep/pkg/aggregate"
	"github.com/ChrisMcGann/clusterpep/pkg/metrics"
	"github.com/ChrisMcGann/clusterpep/pkg/species"
)

// Header holds the text written at the top of every report file. ReleaseTitle and
// SpeciesLine are format strings taking the version and the species name.
type Header struct {
	ReleaseTitle            string
	ClusterURL              string
	SpeciesLine             string
	ReleaseDescription      string
	PeptideFieldDescription string
	ClusterFieldDescription string
	PeptideHeader           string
	ClusterPeptideHeader    string
}

// Options configure a Writer
type Options struct {
	OutputDir string
	FileTitle string // file name prefix, <FileTitle>_<Species>.tsv
	Version   string
	Compress  bool
	PoGo      bool

	Header    Header
	Filter    FilterConfig
	Formatter Formatter
	PoGoRows  PoGoFormatter

	Logger  *slog.Logger
	Metrics *metrics.Metrics
}

// Stats counts what was written for one species context
type Stats struct {
	PeptideRows        int
	ClusterPeptideRows int
	PoGoRows           int
	Suppressed         map[string]int
}

// Writer writes one report file per species context
type Writer struct {
	opts Options
}

// NewWriter creates a report writer
func NewWriter(opts Options) *Writer {
	if opts.Formatter.PeptidePrefix == "" {
		opts.Formatter.PeptidePrefix = DefaultPeptidePrefix
	}
	if opts.Formatter.ClusterPeptidePrefix == "" {
		opts.Formatter.ClusterPeptidePrefix = DefaultClusterPeptidePrefix
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.PoGoRows.Logger == nil {
		opts.PoGoRows.Logger = opts.Logger
	}
	return &Writer{opts: opts}
}

// FileName returns the report file name of a species context
func (w *Writer) FileName(target species.Target) string {
	name := fmt.Sprintf("%s_%s.tsv", w.opts.FileTitle, fileSafe(target.Name()))
	if w.opts.Compress {
		name += ".gz"
	}
	return name
}

// PoGoFileName returns the PoGo file name of a species context
func (w *Writer) PoGoFileName(target species.Target) string {
	return fmt.Sprintf("%s_%s.pogo", w.opts.FileTitle, fileSafe(target.Name()))
}

// WriteAll writes the report of every target and returns the paths written
func (w *Writer) WriteAll(idx *aggregate.Index, targets []species.Target) ([]string, error) {
	if err := os.MkdirAll(w.opts.OutputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	var paths []string
	for _, target := range targets {
		written, stats, err := w.WriteTarget(idx, target)
		paths = append(paths, written...)
		if err != nil {
			return paths, err
		}
		w.opts.Logger.Info("Wrote report",
			"species", target.Name(),
			"peptide_rows", stats.PeptideRows,
			"cluster_peptide_rows", stats.ClusterPeptideRows,
		)
	}
	return paths, nil
}

// WriteTarget writes the report file (and PoGo file when enabled) of one species context
func (w *Writer) WriteTarget(idx *aggregate.Index, target species.Target) ([]string, Stats, error) {
	path := filepath.Join(w.opts.OutputDir, w.FileName(target))
	stats, err := w.writeFile(path, func(out io.Writer) (Stats, error) {
		return w.WriteReport(out, idx, target)
	})
	if err != nil {
		return nil, stats, err
	}
	paths := []string{path}

	if w.opts.PoGo {
		pogoPath := filepath.Join(w.opts.OutputDir, w.PoGoFileName(target))
		pogoStats, err := w.writeFile(pogoPath, func(out io.Writer) (Stats, error) {
			return w.WritePoGo(out, idx, target)
		})
		if err != nil {
			return paths, stats, err
		}
		stats.PoGoRows = pogoStats.PoGoRows
		paths = append(paths, pogoPath)
	}

	return paths, stats, nil
}

// writeFile creates path and hands fn a buffered, optionally gzip-compressed writer.
// PoGo files are never compressed.
func (w *Writer) writeFile(path string, fn func(io.Writer) (Stats, error)) (Stats, error) {
	f, err := os.Create(path)
	if err != nil {
		return Stats{}, fmt.Errorf("failed to create report file: %w", err)
	}
	defer f.Close()

	var (
		out io.Writer = f
		gz  *gzip.Writer
	)
	if w.opts.Compress && strings.HasSuffix(path, ".gz") {
		gz = gzip.NewWriter(f)
		out = gz
	}

	buf := bufio.NewWriterSize(out, 1<<20)
	stats, err := fn(buf)
	if err != nil {
		return stats, err
	}
	if err := buf.Flush(); err != nil {
		return stats, fmt.Errorf("failed to write %s: %w", path, err)
	}
	if gz != nil {
		if err := gz.Close(); err != nil {
			return stats, fmt.Errorf("failed to compress %s: %w", path, err)
		}
	}
	if err := f.Close(); err != nil {
		return stats, fmt.Errorf("failed to close %s: %w", path, err)
	}
	return stats, nil
}

// WriteReport writes the header block, the peptide section and the cluster-peptide section
func (w *Writer) WriteReport(out io.Writer, idx *aggregate.Index, target species.Target) (Stats, error) {
	stats := Stats{Suppressed: make(map[string]int)}
	ew := &errWriter{w: out}

	w.writeHeader(ew, target)

	entries := idx.Entries()

	ew.line(w.opts.Header.PeptideHeader)
	for _, e := range entries {
		row, reason := w.opts.Filter.PeptideRow(e, target)
		if reason != "" {
			stats.Suppressed[reason]++
			if reason == ReasonMultiTaxonomy {
				w.opts.Metrics.IncSuppressed(reason)
				w.opts.Logger.Debug("suppressed multi-taxonomy peptide", "peptide", e.Form.String(), "species", target.Name())
			}
			continue
		}
		ew.write(w.opts.Formatter.FormatPeptide(row))
		stats.PeptideRows++
	}
	ew.line("")

	ew.line(w.opts.Header.ClusterPeptideHeader)
	for _, e := range entries {
		rows, _ := w.opts.Filter.ClusterPeptideRows(e, target)
		for _, row := range rows {
			ew.write(w.opts.Formatter.FormatClusterPeptide(row))
			stats.ClusterPeptideRows++
		}
	}
	ew.line("")

	if ew.err != nil {
		return stats, fmt.Errorf("failed to write report: %w", ew.err)
	}

	w.opts.Metrics.AddRowsWritten("peptide", stats.PeptideRows)
	w.opts.Metrics.AddRowsWritten("cluster_peptide", stats.ClusterPeptideRows)
	return stats, nil
}

// WritePoGo writes the PoGo rows of every cluster-peptide pair emitted for the target
func (w *Writer) WritePoGo(out io.Writer, idx *aggregate.Index, target species.Target) (Stats, error) {
	var stats Stats
	ew := &errWriter{w: out}

	ew.write(PoGoHeader)
	for _, e := range idx.Entries() {
		rows, _ := w.opts.Filter.ClusterPeptideRows(e, target)
		for _, row := range rows {
			ew.write(w.opts.PoGoRows.FormatRow(row))
			stats.PoGoRows++
		}
	}

	if ew.err != nil {
		return stats, fmt.Errorf("failed to write PoGo file: %w", ew.err)
	}
	w.opts.Metrics.AddRowsWritten("pogo", stats.PoGoRows)
	return stats, nil
}

func (w *Writer) writeHeader(ew *errWriter, target species.Target) {
	h := w.opts.Header
	if h.ReleaseTitle != "" {
		ew.line(fmt.Sprintf(h.ReleaseTitle, w.opts.Version))
	}
	if h.ClusterURL != "" {
		ew.line(h.ClusterURL)
	}
	if h.SpeciesLine != "" {
		ew.line(fmt.Sprintf(h.SpeciesLine, target.Name()))
	}
	ew.line("")
	for _, text := range []string{h.ReleaseDescription, h.PeptideFieldDescription, h.ClusterFieldDescription} {
		if text == "" {
			continue
		}
		ew.line(text)
		ew.line("")
	}
}

// errWriter remembers the first write error
type errWriter struct {
	w   io.Writer
	err error
}

func (e *errWriter) write(s string) {
	if e.err != nil {
		return
	}
	_, e.err = io.WriteString(e.w, s)
}

func (e *errWriter) line(s string) {
	e.write(s + "\n")
}

// fileSafe replaces characters that do not belong in file names
func fileSafe(name string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ' ', ':', '*', '?', '"', '<', '>', '|':
			return '_'
		}
		return r
	}, name)
}
