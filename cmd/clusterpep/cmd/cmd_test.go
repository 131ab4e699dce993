package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testPSMs = "cluster_id\tquality\tsequence\tmodifications\tassay_id\tnum_spectra\tcluster_num_spectra\tcluster_num_psms\n" +
	"1\tHIGH\tPEPTIDE\t\t10\t2\t4\t3\n" +
	"1\tHIGH\tPEPTIDE\t\t11\t1\t4\t3\n" +
	"1\tHIGH\tPEPMTIDE\t4-UNIMOD:35\t12\t1\t4\t3\n" +
	"2\tHIGH\tpeptide!\t\t10\t1\t1\t1\n"

const testAssays = "assay_id\taccession\tproject_accession\ttaxonomy_ids\tspecies\n" +
	"10\tA10\tPXD000001\t9606\tHomo sapiens\n" +
	"11\tA11\tPXD000002\t9606\tHomo sapiens\n" +
	"12\tA12\tPXD000002\t9606\tHomo sapiens\n"

func TestLoadExportSummarize(t *testing.T) {
	dir := t.TempDir()
	psms := filepath.Join(dir, "psms.tsv")
	assays := filepath.Join(dir, "assays.tsv")
	dsn := filepath.Join(dir, "clusters.db")
	out := filepath.Join(dir, "reports")
	require.NoError(t, os.WriteFile(psms, []byte(testPSMs), 0644))
	require.NoError(t, os.WriteFile(assays, []byte(testAssays), 0644))

	rootCmd.SetArgs([]string{"load", "--psms", psms, "--assays", assays, "--dsn", dsn, "--log-level", "error"})
	require.NoError(t, rootCmd.Execute())

	rootCmd.SetArgs([]string{"export", "--dsn", dsn, "--out", out, "--release-version", "2026-10", "--log-level", "error"})
	require.NoError(t, rootCmd.Execute())

	data, err := os.ReadFile(filepath.Join(out, "pride_cluster_peptides_ALL.tsv"))
	require.NoError(t, err)
	report := string(data)
	assert.Contains(t, report, "# Cluster release 2026-10\n")
	assert.Contains(t, report, "PEP\tPEPTIDE\tNULL\t1.00\t0.67\t3\t2\t1\t9606\tPXD000001,PXD000002\n")
	assert.Contains(t, report, "SPEP\t1\tPEPTIDE\t")
	assert.NotContains(t, report, "PEPMTIDE")

	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	rootCmd.SetArgs([]string{"summarize", "--dsn", dsn})
	require.NoError(t, rootCmd.Execute())
	assert.Contains(t, buf.String(), "Clusters (HIGH): 1\n")
	assert.Contains(t, buf.String(), "PSMs: 3\n")
	assert.Contains(t, buf.String(), "Assays: 3\n")
}

func TestLoadMissingInput(t *testing.T) {
	dir := t.TempDir()
	rootCmd.SetArgs([]string{"load", "--psms", filepath.Join(dir, "missing.tsv"), "--dsn", filepath.Join(dir, "c.db")})
	err := rootCmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not exist")
}
