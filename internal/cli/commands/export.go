package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/lookscan/internal/analyzer"
	"github.com/leapstack-labs/lookscan/internal/cli/config"
	"github.com/leapstack-labs/lookscan/internal/report"
	"github.com/leapstack-labs/lookscan/internal/usage"
)

// Export script file names written into the output directory.
const (
	exportAllFileName    = "export_all_tables.sql"
	exportActiveFileName = "export_active_tables.sql"
)

// NewExportCommand creates the export command.
func NewExportCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Generate BigQuery EXPORT DATA scripts for referenced tables",
		Long: `Scan a LookML project and generate BigQuery EXPORT DATA scripts that
dump every referenced table to a GCS bucket as Parquet.

Two scripts are written: one covering all referenced tables, and one
restricted to tables behind views with recorded usage. Supplying a
usage file is what makes the active script meaningful.`,
		Example: `  # Export scripts for every referenced table
  lookscan export -p ./looker-project --bucket my-archive-bucket

  # Restrict the active script using explore activity counts
  lookscan export -p ./looker-project --bucket my-archive-bucket --usage-file activity.csv`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runExport(cmd)
		},
	}

	cmd.Flags().StringP("output-dir", "o", "", "Directory for the export scripts")
	cmd.Flags().String("usage-file", "", "Explore activity CSV with usage counts")
	cmd.Flags().String("bucket", "", "GCS bucket for EXPORT DATA destinations (required)")

	return cmd
}

func runExport(cmd *cobra.Command) error {
	ctx := cmd.Context()
	cfg := config.FromContext(ctx)
	logger := config.GetLogger(ctx)

	if cfg.Bucket == "" {
		return fmt.Errorf("a GCS bucket is required: set --bucket or the bucket config key")
	}

	res, err := analyzer.New(cfg.Settings(), logger).Run(ctx, cfg.ProjectDir)
	if err != nil {
		return err
	}
	for _, w := range res.Warnings {
		logger.Warn(w.Message, "file", w.Path)
	}

	var exploreUsage usage.ExploreUsage
	if cfg.UsageFile != "" {
		exploreUsage, err = usage.Load(cfg.UsageFile, logger)
		if err != nil {
			logger.Warn("could not load usage file", "file", cfg.UsageFile, "error", err)
			exploreUsage = nil
		}
	}
	viewUsage := usage.ViewUsage(res.Registry, res.Graph, exploreUsage)

	rows := report.BuildRows(res.Registry, res.Graph, viewUsage)

	if err := os.MkdirAll(cfg.OutputDir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	allPath := filepath.Join(cfg.OutputDir, exportAllFileName)
	activePath := filepath.Join(cfg.OutputDir, exportActiveFileName)

	allFile, err := os.Create(allPath)
	if err != nil {
		return fmt.Errorf("failed to create export script: %w", err)
	}
	defer func() { _ = allFile.Close() }()

	activeFile, err := os.Create(activePath)
	if err != nil {
		return fmt.Errorf("failed to create export script: %w", err)
	}
	defer func() { _ = activeFile.Close() }()

	stats, err := report.WriteExportCommands(allFile, activeFile, rows, report.ExportOptions{
		Bucket:          cfg.Bucket,
		DefaultProject:  cfg.DefaultProject,
		DefaultDataset:  cfg.DefaultDataset,
		SnapshotProject: cfg.SnapshotProject,
	})
	if err != nil {
		return fmt.Errorf("failed to write export commands: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Export scripts written to %s\n", cfg.OutputDir)
	fmt.Fprintf(out, "  %s: %d tables\n", exportAllFileName, stats.Tables)
	fmt.Fprintf(out, "  %s: %d tables\n", exportActiveFileName, stats.ActiveTables)
	if stats.SkippedViews > 0 {
		fmt.Fprintf(out, "  skipped %d views without an exportable table\n", stats.SkippedViews)
	}

	logger.Info("export complete",
		"run_id", res.RunID,
		"tables", stats.Tables,
		"active_tables", stats.ActiveTables)
	return nil
}
