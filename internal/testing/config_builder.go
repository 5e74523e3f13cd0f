package testing

import (
	"os"
	"path/filepath"
	"testing"

	"gopkg.in/yaml.v3"

	"git.home.luguber.info/inful/docpublish/internal/config"
)

// ConfigBuilder provides a fluent interface for creating test configurations
type ConfigBuilder struct {
	config *config.Config
	t      *testing.T
}

// NewConfigBuilder creates a builder for a repository, with a scratch work dir.
func NewConfigBuilder(t *testing.T, repoPath string) *ConfigBuilder {
	return &ConfigBuilder{
		config: &config.Config{
			Repository: repoPath,
			WorkDir:    t.TempDir(),
		},
		t: t,
	}
}

// WithHead overrides the head ref and label.
func (cb *ConfigBuilder) WithHead(ref, label string) *ConfigBuilder {
	cb.config.Head = config.HeadConfig{Ref: ref, Label: label}
	return cb
}

// WithOutputBranch sets the publish branch.
func (cb *ConfigBuilder) WithOutputBranch(branch string) *ConfigBuilder {
	cb.config.Output.Branch = branch
	return cb
}

// WithHeadTags lists legacy tags that collapse into the head.
func (cb *ConfigBuilder) WithHeadTags(tags ...string) *ConfigBuilder {
	cb.config.Aliases.HeadTags = append(cb.config.Aliases.HeadTags, tags...)
	return cb
}

// WithCorrection republishes tag under label.
func (cb *ConfigBuilder) WithCorrection(tag, label string) *ConfigBuilder {
	cb.config.Aliases.Corrections = append(cb.config.Aliases.Corrections, config.Correction{Tag: tag, Label: label})
	return cb
}

// WithCustomBuilder configures an arbitrary builder command.
func (cb *ConfigBuilder) WithCustomBuilder(configFile, titleKey, outputDir string, command ...string) *ConfigBuilder {
	cb.config.Builder = config.BuilderConfig{
		Preset:     config.PresetCustom,
		Command:    command,
		ConfigFile: configFile,
		TitleKey:   titleKey,
		OutputDir:  outputDir,
	}
	return cb
}

// WithHistory enables the run history database.
func (cb *ConfigBuilder) WithHistory(path string) *ConfigBuilder {
	cb.config.History.Database = path
	return cb
}

// WithMetricsTextfile enables the Prometheus textfile.
func (cb *ConfigBuilder) WithMetricsTextfile(path string) *ConfigBuilder {
	cb.config.Metrics.Textfile = path
	return cb
}

// Build applies defaults and returns the configuration.
func (cb *ConfigBuilder) Build() *config.Config {
	cb.config.ApplyDefaults()
	if err := cb.config.Validate(); err != nil {
		cb.t.Fatalf("invalid test configuration: %v", err)
	}
	return cb.config
}

// BuildAndSave writes the configuration as YAML and returns its path.
func (cb *ConfigBuilder) BuildAndSave(path string) string {
	cb.t.Helper()
	cfg := cb.Build()
	data, err := yaml.Marshal(cfg)
	if err != nil {
		cb.t.Fatalf("Failed to marshal config: %v", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), testDirPermissions); err != nil {
		cb.t.Fatalf("Failed to create config directory: %v", err)
	}
	if err := os.WriteFile(path, data, testFilePermissions); err != nil {
		cb.t.Fatalf("Failed to write config file: %v", err)
	}
	return path
}
