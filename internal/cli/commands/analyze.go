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
	"github.com/leapstack-labs/lookscan/internal/watch"
)

// reportFileName is the CSV written into the output directory.
const reportFileName = "view_analysis.csv"

// NewAnalyzeCommand creates the analyze command.
func NewAnalyzeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Scan a LookML project and report view table provenance",
		Long: `Scan a LookML project, resolve the physical tables behind every view,
and write a per-view provenance report CSV into the output directory.

When a usage file (an explore activity export CSV) is supplied, each
view also gets a calculated usage count distributed from the explores
it appears in. Without one the usage column reports NULL.`,
		Example: `  # Analyze the project in the current directory
  lookscan analyze

  # Analyze a project with explore activity counts
  lookscan analyze -p ./looker-project --usage-file activity.csv

  # Re-run automatically on file changes
  lookscan analyze -p ./looker-project --watch`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runAnalyze(cmd)
		},
	}

	cmd.Flags().StringP("output-dir", "o", "", "Directory for the report CSV")
	cmd.Flags().String("usage-file", "", "Explore activity CSV with usage counts")
	cmd.Flags().Bool("include-source-info", false, "Add source type and definition columns to the report")
	cmd.Flags().BoolP("watch", "w", false, "Watch the project and re-run on changes")

	return cmd
}

func runAnalyze(cmd *cobra.Command) error {
	ctx := cmd.Context()
	cfg := config.FromContext(ctx)
	logger := config.GetLogger(ctx)

	if err := analyzeOnce(cmd, cfg); err != nil {
		return err
	}

	if cfg.Watch {
		w := watch.New(cfg.ProjectDir, logger)
		return w.Run(ctx, func() {
			if err := analyzeOnce(cmd, cfg); err != nil {
				logger.Error("rescan failed", "error", err)
			}
		})
	}
	return nil
}

// analyzeOnce runs a single scan and writes the report.
func analyzeOnce(cmd *cobra.Command, cfg *config.Config) error {
	ctx := cmd.Context()
	logger := config.GetLogger(ctx)

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
			// Missing activity data degrades to NULL usage, not failure.
			logger.Warn("could not load usage file", "file", cfg.UsageFile, "error", err)
			exploreUsage = nil
		}
	}
	viewUsage := usage.ViewUsage(res.Registry, res.Graph, exploreUsage)

	rows := report.BuildRows(res.Registry, res.Graph, viewUsage)

	if err := os.MkdirAll(cfg.OutputDir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	reportPath := filepath.Join(cfg.OutputDir, reportFileName)
	f, err := os.Create(reportPath)
	if err != nil {
		return fmt.Errorf("failed to create report file: %w", err)
	}
	defer func() { _ = f.Close() }()

	if err := report.WriteCSV(f, rows, cfg.IncludeSourceInfo); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}

	report.WriteSummary(cmd.OutOrStdout(), rows)
	fmt.Fprintf(cmd.OutOrStdout(), "\nReport written to %s\n", reportPath)

	logger.Info("analysis complete",
		"run_id", res.RunID,
		"views", res.Registry.Len(),
		"explores", res.Graph.Len(),
		"warnings", len(res.Warnings))
	return nil
}
