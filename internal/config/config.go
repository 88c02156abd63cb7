// Package config loads the pipeline configuration from defaults, an optional
// YAML file and RTB_-prefixed environment variables, in that order of
// precedence (environment wins).
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// Config is the complete pipeline configuration.
type Config struct {
	Paths     PathsConfig   `yaml:"paths" envconfig:"PATHS"`
	Feed      FeedConfig    `yaml:"feed" envconfig:"FEED"`
	Enrich    EnrichConfig  `yaml:"enrich" envconfig:"ENRICH"`
	Logging   LoggingConfig `yaml:"logging" envconfig:"LOGGING"`
	Blacklist []string      `yaml:"blacklist" envconfig:"BLACKLIST"`
}

// PathsConfig locates the content root and log directory.
type PathsConfig struct {
	DataDir string `yaml:"data_dir" envconfig:"DATA_DIR"`
	LogsDir string `yaml:"logs_dir" envconfig:"LOGS_DIR"`
}

// FeedConfig describes the remote list and detail feeds.
type FeedConfig struct {
	ListURL    string        `yaml:"list_url" envconfig:"LIST_URL"`
	DetailURL  string        `yaml:"detail_url" envconfig:"DETAIL_URL"`
	Timeout    time.Duration `yaml:"timeout" envconfig:"TIMEOUT"`
	MaxRetries int           `yaml:"max_retries" envconfig:"MAX_RETRIES"`
}

// EnrichConfig bounds the enrichment job: request budget per run, how stale
// a profile must be before re-fetching, worker count and request rate.
type EnrichConfig struct {
	Budget      int     `yaml:"budget" envconfig:"BUDGET"`
	RefreshDays int     `yaml:"refresh_days" envconfig:"REFRESH_DAYS"`
	Workers     int     `yaml:"workers" envconfig:"WORKERS"`
	RPS         float64 `yaml:"rps" envconfig:"RPS"`
}

// LoggingConfig controls the slog setup.
type LoggingConfig struct {
	Level    string `yaml:"level" envconfig:"LEVEL"`
	Format   string `yaml:"format" envconfig:"FORMAT"`
	Output   string `yaml:"output" envconfig:"OUTPUT"`
	FilePath string `yaml:"file_path" envconfig:"FILE_PATH"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Paths: PathsConfig{
			DataDir: "api",
			LogsDir: "logs",
		},
		Feed: FeedConfig{
			ListURL:    "https://www.forbes.com/forbesapi/person/rtb/0/position/true.json",
			DetailURL:  "https://www.forbes.com/forbesapi/person",
			Timeout:    30 * time.Second,
			MaxRetries: 4,
		},
		Enrich: EnrichConfig{
			Budget:      150,
			RefreshDays: 30,
			Workers:     4,
			RPS:         2,
		},
		Logging: LoggingConfig{
			Level:    "info",
			Format:   "console",
			Output:   "stdout",
			FilePath: "logs/pipeline.log",
		},
	}
}

// Load builds the configuration: defaults, then the config file (if any),
// then environment variables.
func Load() (*Config, error) {
	return LoadFrom(configFilePath())
}

// LoadFrom loads configuration with an explicit config file path. A missing
// file skips the file layer.
func LoadFrom(file string) (*Config, error) {
	cfg := Default()

	if file != "" {
		data, err := os.ReadFile(file)
		if err == nil {
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config file %s: %w", file, err)
			}
		} else if !os.IsNotExist(err) {
			return nil, fmt.Errorf("read config file %s: %w", file, err)
		}
	}

	if err := envconfig.Process("RTB", cfg); err != nil {
		return nil, fmt.Errorf("load config from env: %w", err)
	}
	return cfg, nil
}

// LogPath resolves a log file name beneath the configured logs directory.
func (c *Config) LogPath(name string) string {
	return filepath.Join(c.Paths.LogsDir, name)
}

func configFilePath() string {
	if p := os.Getenv("RTB_CONFIG"); p != "" {
		return p
	}
	return "config.yaml"
}
