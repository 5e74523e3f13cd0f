package commands

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"git.home.luguber.info/inful/docpublish/internal/config"
)

// InitCmd writes a starter configuration.
type InitCmd struct {
	Force      bool   `help:"Replace an existing configuration file"`
	Output     string `short:"o" name:"output" help:"Directory to write docpublish.yaml into (default: the -c path)"`
	Repository string `short:"r" help:"Repository whose tags are published" default:"."`
	Preset     string `help:"Site builder preset" enum:"mkdocs,hugo" default:"mkdocs"`
}

func (i *InitCmd) Run(_ *Global, root *CLI) error {
	path := root.Config
	if i.Output != "" {
		path = filepath.Join(i.Output, config.DefaultPath)
	}
	return RunInit(os.Stdout, path, i.seed(), i.Force)
}

// seed starts from the example configuration and applies the flags.
func (i *InitCmd) seed() *config.Config {
	cfg := config.Example()
	if i.Repository != "" {
		cfg.Repository = i.Repository
	}
	if i.Preset != "" && config.BuilderPreset(i.Preset) != cfg.Builder.Preset {
		cfg.Builder = config.BuilderConfig{Preset: config.BuilderPreset(i.Preset)}
		cfg.ApplyDefaults()
	}
	return cfg
}

// RunInit validates cfg, writes it to path and prints the commands to try next.
func RunInit(w io.Writer, path string, cfg *config.Config, force bool) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := config.Write(path, cfg, force); err != nil {
		return err
	}
	_, _ = fmt.Fprintf(w, "Wrote %s (builder %s, output branch %s)\n", path, cfg.Builder.Preset, cfg.Output.Branch)
	_, _ = fmt.Fprintf(w, "Next: docpublish -c %s versions\n", path)
	_, _ = fmt.Fprintf(w, "      docpublish -c %s publish --dry-run\n", path)
	return nil
}
