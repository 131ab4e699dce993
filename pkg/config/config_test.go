package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ChrisMcGann/clusterpep/pkg/core"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "sqlite3", cfg.Repository.Driver)
	assert.Equal(t, 100000, cfg.Ingest.PageSize)
	assert.Equal(t, "PEP", cfg.Report.PeptidePrefix)
	assert.Equal(t, "SPEP", cfg.Report.ClusterPeptidePrefix)
	assert.True(t, cfg.Filter.FilterOutMultiTaxonomy)
	require.NoError(t, cfg.Validate())

	q, err := cfg.Quality()
	require.NoError(t, err)
	assert.Equal(t, core.QualityHigh, q)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "clusterpep.yaml")
	content := `
repository:
  driver: postgres
  dsn: postgres://localhost/clusters
ingest:
  quality: medium
  page_size: 500
filter:
  rank_threshold: 2
  ratio_threshold: 0.25
  filter_out_multitaxonomy: false
report:
  title: release
  compress: true
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := Load(New(), path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "postgres", cfg.Repository.Driver)
	assert.Equal(t, 500, cfg.Ingest.PageSize)
	assert.Equal(t, 4, cfg.Ingest.Workers)
	assert.Equal(t, 2.0, cfg.Filter.RankThreshold)
	assert.Equal(t, 0.25, cfg.Filter.RatioThreshold)
	assert.False(t, cfg.Filter.FilterOutMultiTaxonomy)
	assert.True(t, cfg.Report.Compress)
	assert.Equal(t, "Cluster ID %d", cfg.Report.PoGoExperimentFormat)
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load(New(), filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLoadEnv(t *testing.T) {
	t.Setenv("CLUSTERPEP_INGEST_PAGE_SIZE", "250")
	t.Setenv("CLUSTERPEP_REPORT_OUTPUT_DIR", "/tmp/out")

	t.Chdir(t.TempDir())
	cfg, err := Load(New(), "")
	require.NoError(t, err)
	assert.Equal(t, 250, cfg.Ingest.PageSize)
	assert.Equal(t, "/tmp/out", cfg.Report.OutputDir)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
		field  string
	}{
		{"unknown driver", func(c *Config) { c.Repository.Driver = "mysql" }, "repository.driver"},
		{"empty dsn", func(c *Config) { c.Repository.DSN = "" }, "repository.dsn"},
		{"bad quality", func(c *Config) { c.Ingest.Quality = "best" }, "ingest.quality"},
		{"zero page size", func(c *Config) { c.Ingest.PageSize = 0 }, "ingest.page_size"},
		{"zero workers", func(c *Config) { c.Ingest.Workers = 0 }, "ingest.workers"},
		{"negative rank", func(c *Config) { c.Filter.RankThreshold = -1 }, "filter.rank_threshold"},
		{"ratio above one", func(c *Config) { c.Filter.RatioThreshold = 1.5 }, "filter.ratio_threshold"},
		{"empty title", func(c *Config) { c.Report.Title = "" }, "report.title"},
		{"publish without bucket", func(c *Config) { c.Publish.Enabled = true }, "publish.bucket"},
		{"bad log level", func(c *Config) { c.Logging.Level = "loud" }, "logging.level"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(cfg)

			err := cfg.Validate()
			var cfgErr *ConfigError
			if !errors.As(err, &cfgErr) {
				t.Fatalf("Validate() error = %v, want *ConfigError", err)
			}
			if cfgErr.Field != tt.field {
				t.Errorf("Validate() field = %s, want %s", cfgErr.Field, tt.field)
			}
		})
	}
}
