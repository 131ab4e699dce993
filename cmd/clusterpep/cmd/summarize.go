package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ChrisMcGann/clusterpep/pkg/core"
	"github.com/ChrisMcGann/clusterpep/pkg/repository/sqldb"
)

var summarizeCmd = &cobra.Command{
	Use:   "summarize",
	Short: "Summarize cluster repository contents",
	Long:  `Print cluster counts per quality tier, PSM and assay counts and the recorded release info.`,
	Args:  cobra.NoArgs,
	RunE:  runSummarize,
}

func runSummarize(cmd *cobra.Command, args []string) error {
	cfg, _, err := loadConfig(v)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	store, err := sqldb.Open(ctx, cfg.Repository.Driver, cfg.Repository.DSN)
	if err != nil {
		return fmt.Errorf("failed to open repository: %w", err)
	}
	defer store.Close()

	summary, err := store.Summary(ctx)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Repository: %s (%s)\n", cfg.Repository.DSN, cfg.Repository.Driver)
	if summary.ReleaseVersion != "" {
		fmt.Fprintf(out, "Release: %s (%s)\n", summary.ReleaseVersion, summary.ReleaseCreated)
	}
	if summary.ReleaseDescription != "" {
		fmt.Fprintf(out, "Description: %s\n", summary.ReleaseDescription)
	}
	for _, q := range []core.Quality{core.QualityHigh, core.QualityMedium, core.QualityLow} {
		fmt.Fprintf(out, "Clusters (%s): %d\n", q, summary.Clusters[q])
	}
	fmt.Fprintf(out, "PSMs: %d\n", summary.PSMs)
	fmt.Fprintf(out, "Assays: %d\n", summary.Assays)

	return nil
}
