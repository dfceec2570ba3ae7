package config

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// loggerKey is used to store the logger in context. Shared with root.go
// via LoggerKey so the commands package avoids an import cycle.
type loggerKey struct{}

var (
	k              = koanf.New(".")
	configFileUsed string
)

// findConfigFile finds the config file to use.
// Priority: explicit path > lookscan.yaml > lookscan.yml, searched in dir.
func findConfigFile(explicit, dir string) string {
	if explicit != "" {
		return explicit
	}
	for _, name := range []string{"lookscan.yaml", "lookscan.yml"} {
		candidate := filepath.Join(dir, name)
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}
	return ""
}

// ResetConfig resets the koanf instance. Used for testing.
func ResetConfig() {
	k = koanf.New(".")
	configFileUsed = ""
}

// LoadConfig loads configuration from file, environment variables, and
// flags. Precedence (highest to lowest): flags > env vars > config file
// > defaults. The config file is looked up in the project directory, so
// a lookscan.yaml checked into the LookML repo travels with it.
func LoadConfig(cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	k = koanf.New(".")

	if err := k.Load(confmap.Provider(map[string]interface{}{
		"project_dir":      DefaultProjectDir,
		"output_dir":       DefaultOutputDir,
		"default_project":  DefaultDefaultProject,
		"default_dataset":  DefaultDefaultDataset,
		"snapshot_project": DefaultSnapshotProject,
		"snapshot_dataset": DefaultSnapshotDataset,
		"verbose":          false,
	}, "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// The --project-dir flag has to be read ahead of the merged config
	// so the config file can be found next to the project itself.
	projectDir := DefaultProjectDir
	if flags != nil && flags.Changed("project-dir") {
		if v, _ := flags.GetString("project-dir"); v != "" {
			projectDir = v
		}
	}

	configFileUsed = findConfigFile(cfgFile, projectDir)
	if configFileUsed != "" {
		if err := k.Load(file.Provider(configFileUsed), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", configFileUsed, err)
		}
	}

	// Environment variables: LOOKSCAN_USAGE_FILE -> usage_file.
	if err := k.Load(env.Provider("LOOKSCAN_", ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, "LOOKSCAN_"))
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, interface{}) {
			if !f.Changed {
				return "", nil
			}
			// Kebab-case flags map onto snake_case config keys.
			return strings.ReplaceAll(f.Name, "-", "_"), posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	return &cfg, nil
}

// GetConfigFileUsed returns the path to the config file being used, if any.
func GetConfigFileUsed() string {
	return configFileUsed
}

// configKey is used to store the loaded config in context.
type configKey struct{}

// ConfigKey returns the context key used for storing the config.
func ConfigKey() interface{} {
	return configKey{}
}

// FromContext retrieves the config from the command context, falling
// back to defaults when absent.
func FromContext(ctx context.Context) *Config {
	if c, ok := ctx.Value(configKey{}).(*Config); ok {
		return c
	}
	return &Config{
		ProjectDir:      DefaultProjectDir,
		OutputDir:       DefaultOutputDir,
		DefaultProject:  DefaultDefaultProject,
		DefaultDataset:  DefaultDefaultDataset,
		SnapshotProject: DefaultSnapshotProject,
		SnapshotDataset: DefaultSnapshotDataset,
	}
}

// LoggerKey returns the context key used for storing the logger.
func LoggerKey() interface{} {
	return loggerKey{}
}

// GetLogger retrieves the logger from the command context.
func GetLogger(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok {
		return l
	}
	return slog.New(slog.DiscardHandler)
}
