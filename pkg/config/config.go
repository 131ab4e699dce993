// Package config loads clusterpep settings from a config file, CLUSTERPEP_* environment
// variables and command-line flags.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/ChrisMcGann/clusterpep/pkg/core"
	"github.com/ChrisMcGann/clusterpep/pkg/logging"
	"github.com/ChrisMcGann/clusterpep/pkg/repository/sqldb"
)

// EnvPrefix prefixes every environment variable, e.g. CLUSTERPEP_REPOSITORY_DSN
const EnvPrefix = "CLUSTERPEP"

// Config is the complete clusterpep configuration
type Config struct {
	Repository RepositoryConfig `mapstructure:"repository"`
	Ingest     IngestConfig     `mapstructure:"ingest"`
	Filter     FilterConfig     `mapstructure:"filter"`
	Report     ReportConfig     `mapstructure:"report"`
	Metrics    MetricsConfig    `mapstructure:"metrics"`
	Publish    PublishConfig    `mapstructure:"publish"`
	Logging    LoggingConfig    `mapstructure:"logging"`
}

// RepositoryConfig selects the cluster repository
type RepositoryConfig struct {
	Driver string `mapstructure:"driver"`
	DSN    string `mapstructure:"dsn"`
}

// IngestConfig controls paging and enrichment
type IngestConfig struct {
	Quality  string `mapstructure:"quality"`
	PageSize int    `mapstructure:"page_size"`
	Workers  int    `mapstructure:"workers"`
	ModsFile string `mapstructure:"mods_file"` // optional extra modification catalog (CSV)
}

// FilterConfig holds the report thresholds
type FilterConfig struct {
	RankThreshold          float64 `mapstructure:"rank_threshold"`
	RatioThreshold         float64 `mapstructure:"ratio_threshold"`
	FilterOutMultiTaxonomy bool    `mapstructure:"filter_out_multitaxonomy"`
}

// ReportConfig controls the report files and their header text
type ReportConfig struct {
	OutputDir            string `mapstructure:"output_dir"`
	Title                string `mapstructure:"title"`
	Version              string `mapstructure:"version"`
	Compress             bool   `mapstructure:"compress"`
	PoGo                 bool   `mapstructure:"pogo"`
	SpeciesFile          string `mapstructure:"species_file"`
	PeptidePrefix        string `mapstructure:"peptide_prefix"`
	ClusterPeptidePrefix string `mapstructure:"cluster_peptide_prefix"`
	ReleaseTitle         string `mapstructure:"release_title"`
	ClusterURL           string `mapstructure:"cluster_url"`
	SpeciesLine          string `mapstructure:"species_line"`
	ReleaseDescription   string `mapstructure:"release_description"`
	PeptideDescription   string `mapstructure:"peptide_field_description"`
	ClusterDescription   string `mapstructure:"cluster_field_description"`
	PeptideHeader        string `mapstructure:"peptide_header"`
	ClusterPeptideHeader string `mapstructure:"cluster_peptide_header"`
	PoGoExperimentFormat string `mapstructure:"pogo_experiment_format"`
}

// MetricsConfig controls the Prometheus textfile written after a run
type MetricsConfig struct {
	Textfile string `mapstructure:"textfile"`
}

// PublishConfig controls uploading report files to S3-compatible storage
type PublishConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Bucket    string `mapstructure:"bucket"`
	Prefix    string `mapstructure:"prefix"`
	Region    string `mapstructure:"region"`
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
}

// LoggingConfig controls log output
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// New returns a viper instance carrying the defaults and reading CLUSTERPEP_* variables.
// Commands bind their flags onto it before calling Load.
func New() *viper.Viper {
	v := viper.New()

	v.SetDefault("repository.driver", sqldb.DriverSQLite)
	v.SetDefault("repository.dsn", "clusters.db")

	v.SetDefault("ingest.quality", "HIGH")
	v.SetDefault("ingest.page_size", 100000)
	v.SetDefault("ingest.workers", 4)
	v.SetDefault("ingest.mods_file", "")

	v.SetDefault("filter.rank_threshold", 1.0)
	v.SetDefault("filter.ratio_threshold", 0.0)
	v.SetDefault("filter.filter_out_multitaxonomy", true)

	v.SetDefault("report.output_dir", ".")
	v.SetDefault("report.title", "pride_cluster_peptides")
	v.SetDefault("report.version", "")
	v.SetDefault("report.compress", false)
	v.SetDefault("report.pogo", false)
	v.SetDefault("report.species_file", "")
	v.SetDefault("report.peptide_prefix", "PEP")
	v.SetDefault("report.cluster_peptide_prefix", "SPEP")
	v.SetDefault("report.release_title", "# Cluster release %s")
	v.SetDefault("report.cluster_url", "# https://www.ebi.ac.uk/pride/cluster")
	v.SetDefault("report.species_line", "# Species: %s")
	v.SetDefault("report.release_description", "# Peptides identified in high quality spectrum clusters")
	v.SetDefault("report.peptide_field_description", "# PEH: peptide level rows, best rank and ratio across clusters")
	v.SetDefault("report.cluster_field_description", "# SPEH: one row per cluster and peptide form")
	v.SetDefault("report.peptide_header",
		"PEH\tsequence\tmodifications\tbest_rank\tbest_ratio\tnum_spectra\tnum_projects\tnum_clusters\ttaxonomy_ids\tprojects")
	v.SetDefault("report.cluster_peptide_header",
		"SPEH\tcluster_id\tsequence\tmodifications\trank\tratio\tdelta_mz\tcluster_num_spectra\tcluster_num_projects\ttaxonomy_ids\tprojects")
	v.SetDefault("report.pogo_experiment_format", "Cluster ID %d")

	v.SetDefault("metrics.textfile", "")

	v.SetDefault("publish.enabled", false)
	v.SetDefault("publish.bucket", "")
	v.SetDefault("publish.prefix", "")
	v.SetDefault("publish.region", "us-east-1")
	v.SetDefault("publish.endpoint", "")
	v.SetDefault("publish.access_key", "")
	v.SetDefault("publish.secret_key", "")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", logging.FormatText)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return v
}

// Load reads the optional config file at path into v and decodes the result.
// An empty path looks for clusterpep.{yaml,toml,json} in the working directory.
func Load(v *viper.Viper, path string) (*Config, error) {
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("clusterpep")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	return &cfg, nil
}

// Default returns the configuration made of defaults and environment only.
func Default() *Config {
	var cfg Config
	if err := New().Unmarshal(&cfg); err != nil {
		panic(err)
	}
	return &cfg
}

// Quality returns the parsed ingestion quality tier
func (c *Config) Quality() (core.Quality, error) {
	return core.ParseQuality(c.Ingest.Quality)
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Repository.Driver != sqldb.DriverSQLite && c.Repository.Driver != sqldb.DriverPostgres {
		return &ConfigError{Field: "repository.driver", Message: "must be sqlite3 or postgres"}
	}
	if c.Repository.DSN == "" {
		return &ConfigError{Field: "repository.dsn", Message: "is required"}
	}
	if _, err := c.Quality(); err != nil {
		return &ConfigError{Field: "ingest.quality", Message: err.Error()}
	}
	if c.Ingest.PageSize <= 0 {
		return &ConfigError{Field: "ingest.page_size", Message: "must be positive"}
	}
	if c.Ingest.Workers <= 0 {
		return &ConfigError{Field: "ingest.workers", Message: "must be positive"}
	}
	if c.Filter.RankThreshold < 0 {
		return &ConfigError{Field: "filter.rank_threshold", Message: "must not be negative"}
	}
	if c.Filter.RatioThreshold < 0 || c.Filter.RatioThreshold > 1 {
		return &ConfigError{Field: "filter.ratio_threshold", Message: "must be between 0 and 1"}
	}
	if c.Report.Title == "" {
		return &ConfigError{Field: "report.title", Message: "is required"}
	}
	if c.Publish.Enabled && c.Publish.Bucket == "" {
		return &ConfigError{Field: "publish.bucket", Message: "is required when publishing"}
	}
	if !logging.ValidLevel(c.Logging.Level) {
		return &ConfigError{Field: "logging.level", Message: "must be debug, info, warn or error"}
	}
	return nil
}

// ConfigError represents a configuration error
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return "config error in field '" + e.Field + "': " + e.Message
}
