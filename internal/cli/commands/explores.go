package commands

import (
	"sort"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/leapstack-labs/lookscan/internal/analyzer"
	"github.com/leapstack-labs/lookscan/internal/cli/config"
)

// NewExploresCommand creates the explores command.
func NewExploresCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "explores",
		Short: "List explores with their models and views",
		Long: `Scan a LookML project and list every explore together with the model
it belongs to, its base view, and the views it joins.`,
		Example: `  # List explores in the current project
  lookscan explores

  # List explores in another project
  lookscan explores -p ./looker-project`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runExplores(cmd)
		},
	}
	return cmd
}

func runExplores(cmd *cobra.Command) error {
	ctx := cmd.Context()
	cfg := config.FromContext(ctx)
	logger := config.GetLogger(ctx)

	res, err := analyzer.New(cfg.Settings(), logger).Run(ctx, cfg.ProjectDir)
	if err != nil {
		return err
	}
	for _, w := range res.Warnings {
		logger.Warn(w.Message, "file", w.Path)
	}

	names := res.Graph.Names()
	sorted := make([]string, len(names))
	copy(sorted, names)
	sort.Strings(sorted)

	t := table.NewWriter()
	t.SetOutputMirror(cmd.OutOrStdout())
	t.AppendHeader(table.Row{"Explore", "Model", "Base View", "Views"})
	for _, name := range sorted {
		e, ok := res.Graph.Get(name)
		if !ok {
			continue
		}
		t.AppendRow(table.Row{e.Name, e.Model, e.BaseView, strings.Join(e.Views, ", ")})
	}
	t.AppendFooter(table.Row{"Total", "", "", res.Graph.Len()})
	t.Render()
	return nil
}
