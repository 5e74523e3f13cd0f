package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	foundationerrors "git.home.luguber.info/inful/docpublish/internal/foundation/errors"
)

// DefaultPath is the configuration file used when -c is not given.
const DefaultPath = "docpublish.yaml"

// Config represents the application configuration
type Config struct {
	Repository string        `yaml:"repository"`
	WorkDir    string        `yaml:"work_dir,omitempty"`
	Head       HeadConfig    `yaml:"head"`
	Output     OutputConfig  `yaml:"output"`
	Builder    BuilderConfig `yaml:"builder"`
	Aliases    AliasConfig   `yaml:"aliases"`
	Index      IndexConfig   `yaml:"index"`
	Commit     CommitConfig  `yaml:"commit"`
	Push       PushConfig    `yaml:"push,omitempty"`
	Metrics    MetricsConfig `yaml:"metrics,omitempty"`
	History    HistoryConfig `yaml:"history,omitempty"`
	Notify     NotifyConfig  `yaml:"notify,omitempty"`
	Watch      WatchConfig   `yaml:"watch,omitempty"`
}

// HeadConfig names the in-development line that is always published first.
type HeadConfig struct {
	Ref   string `yaml:"ref"`
	Label string `yaml:"label"`
}

// OutputConfig represents the publish branch.
type OutputConfig struct {
	Branch string `yaml:"branch"`
	// KeepWorktree leaves the output worktree on disk after the run.
	KeepWorktree bool `yaml:"keep_worktree,omitempty"`
}

// AliasConfig holds the fixed tag exception list.
type AliasConfig struct {
	// HeadTags are legacy tags that denote the development line and collapse into the head.
	HeadTags    []string     `yaml:"head_tags,omitempty"`
	Corrections []Correction `yaml:"corrections,omitempty"`
}

// Correction republishes one exact tag under a corrected label.
type Correction struct {
	Tag   string `yaml:"tag"`
	Label string `yaml:"label"`
}

// IndexConfig controls the generated manifest page.
type IndexConfig struct {
	File  string `yaml:"file"`
	Title string `yaml:"title"`
	Intro string `yaml:"intro,omitempty"` // Markdown
}

// CommitConfig controls the single publish commit.
type CommitConfig struct {
	Message     string `yaml:"message"`
	AuthorName  string `yaml:"author_name"`
	AuthorEmail string `yaml:"author_email"`
}

// PushConfig enables pushing the output branch after a non-empty commit.
type PushConfig struct {
	Enabled bool        `yaml:"enabled"`
	Remote  string      `yaml:"remote,omitempty"`
	Auth    *AuthConfig `yaml:"auth,omitempty"`
	Retry   RetryConfig `yaml:"retry,omitempty"`
}

// MetricsConfig enables a Prometheus textfile written after each run.
type MetricsConfig struct {
	Textfile string `yaml:"textfile,omitempty"`
}

// HistoryConfig enables the SQLite run history.
type HistoryConfig struct {
	Database string `yaml:"database,omitempty"`
}

// NotifyConfig enables a NATS message after each published commit.
type NotifyConfig struct {
	NATSURL string `yaml:"nats_url,omitempty"`
	Subject string `yaml:"subject,omitempty"`
}

// WatchConfig tunes the watch command.
type WatchConfig struct {
	Debounce time.Duration `yaml:"debounce,omitempty"`
	Every    time.Duration `yaml:"every,omitempty"`
}

// Load loads configuration from the specified file
func Load(configPath string) (*Config, error) {
	loadEnvFiles()

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("configuration file not found: %s", configPath)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML configuration, expanding ${VAR} references, then applies defaults and validates.
func Parse(data []byte) (*Config, error) {
	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Init writes the example configuration to configPath.
func Init(configPath string, force bool) error {
	return Write(configPath, Example(), force)
}

// Write stores cfg as YAML. An existing file is only replaced when force is set.
func Write(configPath string, cfg *Config, force bool) error {
	if _, err := os.Stat(configPath); err == nil && !force {
		return foundationerrors.ConfigError(fmt.Sprintf("configuration file already exists: %s (use --force to overwrite)", configPath)).
			WithContext("path", configPath).
			Build()
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if dir := filepath.Dir(configPath); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// Example returns a fully defaulted configuration used by init.
func Example() *Config {
	cfg := &Config{
		Repository: ".",
		Aliases: AliasConfig{
			HeadTags: []string{"latest"},
			Corrections: []Correction{
				{Tag: "v0.8.0-legacy-marker", Label: "v0.8.0 stable"},
			},
		},
		Index: IndexConfig{
			Intro: "Documentation for every published release. The prerelease entry tracks the main branch.",
		},
	}
	cfg.ApplyDefaults()
	return cfg
}
