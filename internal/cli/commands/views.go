package commands

import (
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/leapstack-labs/lookscan/internal/analyzer"
	"github.com/leapstack-labs/lookscan/internal/cli/config"
)

// NewViewsCommand creates the views command.
func NewViewsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "views",
		Short: "List views with their resolved tables",
		Long: `Scan a LookML project and list every view with its citation type and
the physical table it resolves to.`,
		Example: `  # List views in the current project
  lookscan views

  # List views in another project
  lookscan views -p ./looker-project`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runViews(cmd)
		},
	}
	return cmd
}

func runViews(cmd *cobra.Command) error {
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

	counts := res.Graph.ViewExploreCounts()

	t := table.NewWriter()
	t.SetOutputMirror(cmd.OutOrStdout())
	t.AppendHeader(table.Row{"View", "Citation Type", "Table", "Explores"})
	for _, name := range res.Registry.SortedNames() {
		v, _ := res.Registry.Get(name)
		t.AppendRow(table.Row{v.Name, string(v.CitationType), v.PrimaryTable, counts[v.Name]})
	}
	t.AppendFooter(table.Row{"Total", "", "", res.Registry.Len()})
	t.Render()
	return nil
}
