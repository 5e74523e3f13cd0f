package config

import (
	"fmt"
	"path/filepath"
	"strings"

	foundationerrors "git.home.luguber.info/inful/docpublish/internal/foundation/errors"
)

// Validate checks invariants that defaults cannot repair.
func (c *Config) Validate() error {
	if _, ok := presets[c.Builder.Preset]; !ok && c.Builder.Preset != PresetCustom {
		return invalid("builder.preset", fmt.Sprintf("unknown preset %q", c.Builder.Preset))
	}
	if len(c.Builder.Command) == 0 {
		return invalid("builder.command", "a command is required for custom builders")
	}
	if c.Builder.ConfigFile == "" {
		return invalid("builder.config_file", "must be set")
	}
	if err := relativeInside("builder.config_file", c.Builder.ConfigFile); err != nil {
		return err
	}
	if c.Builder.OutputDir == "" {
		return invalid("builder.output_dir", "must be set")
	}
	if err := relativeInside("builder.output_dir", c.Builder.OutputDir); err != nil {
		return err
	}
	if filepath.Clean(c.Builder.OutputDir) == "." {
		return invalid("builder.output_dir", "must name a directory below the builder configuration")
	}
	if strings.ContainsAny(c.Index.File, `/\`) {
		return invalid("index.file", "must be a plain file name")
	}
	if NormalizeRetryBackoff(string(c.Push.Retry.Mode)) == "" {
		return invalid("push.retry.mode", fmt.Sprintf("unsupported mode %q", c.Push.Retry.Mode))
	}

	seen := map[string]string{}
	for i, corr := range c.Aliases.Corrections {
		field := fmt.Sprintf("aliases.corrections[%d]", i)
		if corr.Tag == "" || corr.Label == "" {
			return invalid(field, "tag and label are required")
		}
		if prev, dup := seen[corr.Tag]; dup {
			return invalid(field, fmt.Sprintf("tag %q already corrected to %q", corr.Tag, prev))
		}
		seen[corr.Tag] = corr.Label
	}
	for _, tag := range c.Aliases.HeadTags {
		if _, dup := seen[tag]; dup {
			return invalid("aliases.head_tags", fmt.Sprintf("tag %q is also listed as a correction", tag))
		}
	}

	if c.Push.Enabled && c.Push.Auth != nil {
		switch c.Push.Auth.Type {
		case "", AuthTypeNone, AuthTypeSSH, AuthTypeToken, AuthTypeBasic:
		default:
			return invalid("push.auth.type", fmt.Sprintf("unsupported type %q", c.Push.Auth.Type))
		}
	}
	return nil
}

func relativeInside(field, p string) error {
	if filepath.IsAbs(p) {
		return invalid(field, "must be relative to the repository root")
	}
	clean := filepath.Clean(p)
	if clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return invalid(field, "must not leave the repository")
	}
	return nil
}

func invalid(field, reason string) error {
	return foundationerrors.ValidationError(fmt.Sprintf("invalid configuration: %s: %s", field, reason)).
		WithContext("field", field).
		Build()
}
