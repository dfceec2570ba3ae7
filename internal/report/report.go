// Package report turns a completed scan into its deliverables: the
// per-view provenance CSV, a citation-type summary table, and BigQuery
// export scripts for the referenced tables.
package report

import (
	"encoding/csv"
	"io"
	"sort"
	"strconv"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/leapstack-labs/lookscan/internal/explore"
	"github.com/leapstack-labs/lookscan/internal/registry"
	"github.com/leapstack-labs/lookscan/internal/sourcedef"
)

// Row is one view's reportable state.
type Row struct {
	ViewName     string
	ExploreCount int
	// Usage is nil when no activity export was provided; unknown is
	// reported as NULL, not zero.
	Usage            *int
	TableName        string
	CitationType     registry.CitationType
	AdditionalTables []string
	SourceType       string
	SourceDefinition string
}

// BuildRows assembles and orders report rows. With usage data, rows sort
// by usage then explore count, both descending. Without it, rows sort by
// explore count descending, then view name for a stable listing.
func BuildRows(reg *registry.Registry, g *explore.Graph, viewUsage map[string]int) []Row {
	exploreCounts := g.ViewExploreCounts()

	rows := make([]Row, 0, reg.Len())
	for _, name := range reg.Names() {
		v, _ := reg.Get(name)
		row := Row{
			ViewName:         name,
			ExploreCount:     exploreCounts[name],
			TableName:        v.PrimaryTable,
			CitationType:     v.CitationType,
			AdditionalTables: v.AdditionalTables,
		}
		if viewUsage != nil {
			u := viewUsage[name]
			row.Usage = &u
		}
		if v.Source != nil {
			row.SourceType = string(v.Source.Kind)
			row.SourceDefinition = sourcedef.Normalized(v.Source)
		}
		rows = append(rows, row)
	}

	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if a.Usage != nil && b.Usage != nil && *a.Usage != *b.Usage {
			return *a.Usage > *b.Usage
		}
		if a.ExploreCount != b.ExploreCount {
			return a.ExploreCount > b.ExploreCount
		}
		if a.Usage != nil {
			return false
		}
		return a.ViewName < b.ViewName
	})
	return rows
}

// WriteCSV writes rows in the provenance report format. Source columns
// are appended only when requested; they can hold multi-line SQL.
func WriteCSV(w io.Writer, rows []Row, includeSourceInfo bool) error {
	cw := csv.NewWriter(w)

	header := []string{"view_name", "explore_count", "calculated_usage", "table_name", "citation_type", "additional_tables"}
	if includeSourceInfo {
		header = append(header, "source_type", "source_definition")
	}
	if err := cw.Write(header); err != nil {
		return err
	}

	for _, row := range rows {
		usage := "NULL"
		if row.Usage != nil {
			usage = strconv.Itoa(*row.Usage)
		}
		record := []string{
			row.ViewName,
			strconv.Itoa(row.ExploreCount),
			usage,
			row.TableName,
			string(row.CitationType),
			joinTables(row.AdditionalTables),
		}
		if includeSourceInfo {
			record = append(record, row.SourceType, row.SourceDefinition)
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func joinTables(tables []string) string {
	out := ""
	for i, t := range tables {
		if i > 0 {
			out += ";"
		}
		out += t
	}
	return out
}

// citationTypeOrder fixes the summary row order.
var citationTypeOrder = []registry.CitationType{
	registry.CitationNative,
	registry.CitationDerived,
	registry.CitationDerivedSQL,
	registry.CitationDerivedExplore,
	registry.CitationDerivedFrom,
	registry.CitationNested,
	registry.CitationUnnest,
}

// WriteSummary renders a citation-type breakdown of the rows.
func WriteSummary(w io.Writer, rows []Row) {
	counts := make(map[registry.CitationType]int)
	for _, row := range rows {
		counts[row.CitationType]++
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.AppendHeader(table.Row{"Citation Type", "Views"})
	for _, ct := range citationTypeOrder {
		if counts[ct] == 0 {
			continue
		}
		t.AppendRow(table.Row{string(ct), counts[ct]})
	}
	t.AppendFooter(table.Row{"Total", len(rows)})
	t.Render()
}
