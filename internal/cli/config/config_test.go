package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFlags() *pflag.FlagSet {
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("project-dir", "", "")
	flags.String("output-dir", "", "")
	flags.String("usage-file", "", "")
	flags.String("default-project", "", "")
	flags.Bool("verbose", false, "")
	return flags
}

func TestLoadConfig_Defaults(t *testing.T) {
	ResetConfig()
	cfg, err := LoadConfig("", newFlags())
	require.NoError(t, err)

	assert.Equal(t, ".", cfg.ProjectDir)
	assert.Equal(t, "company-dwh", cfg.DefaultProject)
	assert.Equal(t, "analytics_prod", cfg.DefaultDataset)
	assert.Equal(t, "company-dwh-snapshot", cfg.SnapshotProject)
	assert.False(t, cfg.Verbose)
}

func TestLoadConfig_FileInProjectDir(t *testing.T) {
	ResetConfig()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "lookscan.yaml"), []byte(
		"default_project: other-dwh\nusage_file: activity.csv\n"), 0o644))

	flags := newFlags()
	require.NoError(t, flags.Parse([]string{"--project-dir", dir}))

	cfg, err := LoadConfig("", flags)
	require.NoError(t, err)
	assert.Equal(t, "other-dwh", cfg.DefaultProject)
	assert.Equal(t, "activity.csv", cfg.UsageFile)
	assert.Equal(t, filepath.Join(dir, "lookscan.yaml"), GetConfigFileUsed())
}

func TestLoadConfig_FlagsOverrideFile(t *testing.T) {
	ResetConfig()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "lookscan.yaml"), []byte(
		"default_project: from-file\n"), 0o644))

	flags := newFlags()
	require.NoError(t, flags.Parse([]string{"--project-dir", dir, "--default-project", "from-flag"}))

	cfg, err := LoadConfig("", flags)
	require.NoError(t, err)
	assert.Equal(t, "from-flag", cfg.DefaultProject)
}

func TestLoadConfig_EnvOverridesFile(t *testing.T) {
	ResetConfig()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "lookscan.yaml"), []byte(
		"output_dir: from-file\n"), 0o644))
	t.Setenv("LOOKSCAN_OUTPUT_DIR", "from-env")

	flags := newFlags()
	require.NoError(t, flags.Parse([]string{"--project-dir", dir}))

	cfg, err := LoadConfig("", flags)
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.OutputDir)
}

func TestSettings(t *testing.T) {
	cfg := &Config{
		DefaultProject:  "p",
		DefaultDataset:  "d",
		SnapshotProject: "sp",
		SnapshotDataset: "sd",
	}
	s := cfg.Settings()
	assert.Equal(t, "p", s.DefaultProject)
	assert.Equal(t, "sd", s.SnapshotDataset)
}
