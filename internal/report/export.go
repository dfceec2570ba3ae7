package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/leapstack-labs/lookscan/internal/registry"
	"github.com/leapstack-labs/lookscan/internal/tableref"
)

// ExportOptions configures BigQuery export script generation.
type ExportOptions struct {
	// Bucket is the GCS destination bucket. Required.
	Bucket          string
	DefaultProject  string
	DefaultDataset  string
	SnapshotProject string
}

// ExportStats summarizes what WriteExportCommands produced.
type ExportStats struct {
	Tables       int
	ActiveTables int
	SkippedViews int
}

const exportCommandFormat = `BEGIN
EXPORT DATA
  OPTIONS (
    uri = 'gs://%[1]s/%[2]s/%[3]s/%[4]s/*.parquet',
    format = 'PARQUET',
    compression = "SNAPPY",
    overwrite = true)
AS (
  SELECT *
  FROM ` + "`%[2]s.%[3]s.%[4]s`" + `
);
EXCEPTION WHEN ERROR THEN
SELECT 1; -- Skip if table does not exist or other issues
END;
`

// WriteExportCommands emits one EXPORT DATA statement per distinct table
// referenced by the rows. Every table goes to all; tables belonging to
// views with nonzero usage additionally go to active when it is non-nil.
// Unnest views are skipped, as are partial references that cannot be
// completed safely: a bare table name gets the default project and
// dataset, while a 2-part name is ambiguous and dropped.
func WriteExportCommands(all, active io.Writer, rows []Row, opts ExportOptions) (ExportStats, error) {
	var stats ExportStats
	seen := make(map[string]bool)
	seenActive := make(map[string]bool)

	for _, row := range rows {
		if row.CitationType == registry.CitationUnnest {
			stats.SkippedViews++
			continue
		}
		tables := append([]string{row.TableName}, row.AdditionalTables...)

		emitted := false
		for _, t := range tables {
			name, ok := completeTableName(t, opts)
			if !ok || seen[name] {
				continue
			}
			seen[name] = true
			emitted = true

			parts := tableref.SplitParts(name)
			project, dataset := parts[0], parts[1]
			shortName := strings.ReplaceAll(parts[2], "*", "")
			if strings.Contains(strings.ToLower(project), "snapshot") {
				project = opts.SnapshotProject
			} else {
				project = opts.DefaultProject
			}

			cmd := fmt.Sprintf(exportCommandFormat, opts.Bucket, project, dataset, shortName)
			if _, err := io.WriteString(all, cmd); err != nil {
				return stats, err
			}
			stats.Tables++

			if active != nil && row.Usage != nil && *row.Usage > 0 && !seenActive[name] {
				seenActive[name] = true
				if _, err := io.WriteString(active, cmd); err != nil {
					return stats, err
				}
				stats.ActiveTables++
			}
		}
		if !emitted {
			stats.SkippedViews++
		}
	}
	return stats, nil
}

// completeTableName normalizes a reference for export. Bare names get the
// default location; 2-part names are skipped rather than guessed.
func completeTableName(raw string, opts ExportOptions) (string, bool) {
	name := strings.NewReplacer("\n", "", "\r", "", "#", "").Replace(strings.TrimSpace(raw))
	if name == "" {
		return "", false
	}
	switch parts := tableref.SplitParts(name); len(parts) {
	case 1:
		return opts.DefaultProject + "." + opts.DefaultDataset + "." + name, true
	case 3:
		return name, true
	default:
		return "", false
	}
}
