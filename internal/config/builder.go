package config

// BuilderPreset names a known site generator layout.
type BuilderPreset string

const (
	PresetMkDocs BuilderPreset = "mkdocs"
	PresetHugo   BuilderPreset = "hugo"
	PresetCustom BuilderPreset = "custom"
)

// BuilderConfig describes how the external site builder is located and invoked.
// ConfigFile is the build-configuration marker, relative to the source worktree.
// OutputDir is the rendered output, relative to the directory holding ConfigFile.
type BuilderConfig struct {
	Preset     BuilderPreset     `yaml:"preset,omitempty"`
	Command    []string          `yaml:"command,omitempty"`
	ConfigFile string            `yaml:"config_file,omitempty"`
	TitleKey   string            `yaml:"title_key,omitempty"`
	OutputDir  string            `yaml:"output_dir,omitempty"`
	Env        map[string]string `yaml:"env,omitempty"`
}

type builderDefaults struct {
	command    []string
	configFile string
	titleKey   string
	outputDir  string
}

var presets = map[BuilderPreset]builderDefaults{
	PresetMkDocs: {
		command:    []string{"mkdocs", "build", "--clean"},
		configFile: "mkdocs.yml",
		titleKey:   "site_name",
		outputDir:  "site",
	},
	PresetHugo: {
		command:    []string{"hugo", "--minify"},
		configFile: "docs/hugo.yaml",
		titleKey:   "title",
		outputDir:  "public",
	},
}

// applyPreset fills unset fields from the preset; explicit values always win.
func (b *BuilderConfig) applyPreset() {
	if b.Preset == "" {
		b.Preset = PresetMkDocs
	}
	d, ok := presets[b.Preset]
	if !ok {
		return
	}
	if len(b.Command) == 0 {
		b.Command = append([]string(nil), d.command...)
	}
	if b.ConfigFile == "" {
		b.ConfigFile = d.configFile
	}
	if b.TitleKey == "" {
		b.TitleKey = d.titleKey
	}
	if b.OutputDir == "" {
		b.OutputDir = d.outputDir
	}
}
