// Package config assembles runtime configuration from defaults, an
// optional YAML file, and environment variables, in that order of
// precedence (environment wins).
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const dateLayout = "2006-01-02"

// Paths groups every directory and file the pipeline touches.
type Paths struct {
	DataDir      string `yaml:"data_dir"`
	ProcessedDir string `yaml:"processed_dir"`
	DatasetDir   string `yaml:"dataset_dir"`
	OutputDir    string `yaml:"output_dir"`
	RosterFile   string `yaml:"roster_file"`
	RulesFile    string `yaml:"rules_file"`
	MetricsFile  string `yaml:"metrics_file"`
}

// Milestones are the launch dates the comparative tables pivot on.
type Milestones struct {
	GamesLaunch string `yaml:"games_launch"`
	ModoFull    string `yaml:"modo_full"`
}

// Config is the full runtime configuration.
type Config struct {
	Paths      Paths      `yaml:"paths"`
	Milestones Milestones `yaml:"milestones"`
	LogLevel   string     `yaml:"log_level"`
}

// Load builds the configuration. A YAML file named by WALLET_CONFIG
// is applied over the defaults when present; individual environment
// variables override both.
func Load() (*Config, error) {
	cfg := &Config{
		Paths: Paths{
			DataDir:      "data",
			ProcessedDir: "processed",
			DatasetDir:   "datasets",
			OutputDir:    "csv_dashboard",
		},
		Milestones: Milestones{
			GamesLaunch: "2025-04-14",
			ModoFull:    "2025-07-07",
		},
		LogLevel: "info",
	}

	if path := os.Getenv("WALLET_CONFIG"); path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err := yaml.Unmarshal(raw, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	overrideString(&cfg.Paths.DataDir, "WALLET_DATA_DIR")
	overrideString(&cfg.Paths.ProcessedDir, "WALLET_PROCESSED_DIR")
	overrideString(&cfg.Paths.DatasetDir, "WALLET_DATASET_DIR")
	overrideString(&cfg.Paths.OutputDir, "WALLET_OUTPUT_DIR")
	overrideString(&cfg.Paths.RosterFile, "WALLET_ROSTER_FILE")
	overrideString(&cfg.Paths.RulesFile, "WALLET_RULES_FILE")
	overrideString(&cfg.Paths.MetricsFile, "WALLET_METRICS_FILE")
	overrideString(&cfg.Milestones.GamesLaunch, "WALLET_GAMES_LAUNCH")
	overrideString(&cfg.Milestones.ModoFull, "WALLET_MODO_FULL")
	overrideString(&cfg.LogLevel, "WALLET_LOG_LEVEL")

	if _, err := cfg.GamesLaunchDate(); err != nil {
		return nil, err
	}
	if _, err := cfg.ModoFullDate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func overrideString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func (c *Config) GamesLaunchDate() (time.Time, error) {
	t, err := time.Parse(dateLayout, c.Milestones.GamesLaunch)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid games_launch date %q: %w", c.Milestones.GamesLaunch, err)
	}
	return t, nil
}

func (c *Config) ModoFullDate() (time.Time, error) {
	t, err := time.Parse(dateLayout, c.Milestones.ModoFull)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid modo_full date %q: %w", c.Milestones.ModoFull, err)
	}
	return t, nil
}
