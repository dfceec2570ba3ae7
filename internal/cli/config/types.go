// Package config provides configuration management for the lookscan CLI.
package config

import "github.com/leapstack-labs/lookscan/internal/classify"

// Config holds all CLI configuration options.
type Config struct {
	// ProjectDir is the LookML project root to scan.
	ProjectDir string `koanf:"project_dir"`
	// OutputDir receives the report CSV and export scripts.
	OutputDir string `koanf:"output_dir"`
	// UsageFile is an optional activity export CSV with explore usage
	// counts. Empty means usage is reported as NULL.
	UsageFile string `koanf:"usage_file"`
	// Bucket is the GCS bucket for generated EXPORT DATA commands.
	Bucket string `koanf:"bucket"`

	IncludeSourceInfo bool `koanf:"include_source_info"`
	Watch             bool `koanf:"watch"`
	Verbose           bool `koanf:"verbose"`

	// Table-location defaults used when classification has to guess.
	DefaultProject  string `koanf:"default_project"`
	DefaultDataset  string `koanf:"default_dataset"`
	SnapshotProject string `koanf:"snapshot_project"`
	SnapshotDataset string `koanf:"snapshot_dataset"`
}

// Default configuration values.
const (
	DefaultProjectDir      = "."
	DefaultOutputDir       = "."
	DefaultDefaultProject  = "company-dwh"
	DefaultDefaultDataset  = "analytics_prod"
	DefaultSnapshotProject = "company-dwh-snapshot"
	DefaultSnapshotDataset = "analytics_prod_snapshots"
)

// Settings returns the classification settings derived from the config.
func (c *Config) Settings() classify.Settings {
	return classify.Settings{
		DefaultProject:  c.DefaultProject,
		DefaultDataset:  c.DefaultDataset,
		SnapshotProject: c.SnapshotProject,
		SnapshotDataset: c.SnapshotDataset,
	}
}
