// Package cmd provides CLI command implementations
package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ChrisMcGann/clusterpep/pkg/config"
	"github.com/ChrisMcGann/clusterpep/pkg/logging"
)

var (
	configFile string

	// v collects defaults, environment and bound flags
	v = config.New()
)

var rootCmd = &cobra.Command{
	Use:   "clusterpep",
	Short: "clusterpep - Clustered peptide ranking and release report exporter",
	Long: `clusterpep reads clustered PSMs from a cluster repository, ranks the peptide
forms of every cluster and writes one release report per species.

Supported repositories:
- SQLite (local, populated with 'clusterpep load')
- PostgreSQL

Reports can be gzip-compressed, accompanied by PoGo input files and
published to S3-compatible object storage.`,
	Version:       "1.0.0",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(loadCmd)
	rootCmd.AddCommand(summarizeCmd)

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&configFile, "config", "", "Config file (default: ./clusterpep.{yaml,toml,json})")
	flags.String("driver", "", "Repository driver: sqlite3 or postgres")
	flags.String("dsn", "", "Repository data source name (SQLite file path or PostgreSQL URL)")
	flags.String("log-level", "", "Log level: debug, info, warn, error")
	flags.String("log-format", "", "Log format: text or json")

	bindFlags(rootCmd, map[string]string{
		"driver":     "repository.driver",
		"dsn":        "repository.dsn",
		"log-level":  "logging.level",
		"log-format": "logging.format",
	})
}

// bindFlags binds persistent or local flags onto viper keys. Flags left at their zero
// default do not override the config file because viper only uses changed flags.
func bindFlags(c *cobra.Command, keys map[string]string) {
	for flag, key := range keys {
		f := c.PersistentFlags().Lookup(flag)
		if f == nil {
			f = c.Flags().Lookup(flag)
		}
		if f == nil {
			panic(fmt.Sprintf("unknown flag %q", flag))
		}
		if err := v.BindPFlag(key, f); err != nil {
			panic(err)
		}
	}
}

// loadConfig reads and validates the configuration and builds the logger
func loadConfig(vp *viper.Viper) (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(vp, configFile)
	if err != nil {
		return nil, nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}

	logger := logging.New(os.Stderr, logging.LevelFromString(cfg.Logging.Level), cfg.Logging.Format)
	return cfg, logger, nil
}
