package publish

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"git.home.luguber.info/inful/docpublish/internal/config"
	"git.home.luguber.info/inful/docpublish/internal/sitebuilder"
)

// fakeTree materializes a fixed file set per ref, standing in for a git worktree.
type fakeTree struct {
	refs     map[string]map[string]string
	current  string
	restores int
	failRef  string
}

func (f *fakeTree) Checkout(path, ref string) error {
	if ref == f.failRef {
		return errors.New("checkout exploded")
	}
	files, ok := f.refs[ref]
	if !ok {
		return fmt.Errorf("unknown ref %s", ref)
	}
	f.current = ref
	return materialize(path, files)
}

func (f *fakeTree) Restore(path string) error {
	f.restores++
	return materialize(path, f.refs[f.current])
}

func materialize(root string, files map[string]string) error {
	entries, err := os.ReadDir(root)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	for _, e := range entries {
		if err := os.RemoveAll(filepath.Join(root, e.Name())); err != nil {
			return err
		}
	}
	for rel, content := range files {
		full := filepath.Join(root, rel)
		if err := os.MkdirAll(filepath.Dir(full), 0o750); err != nil {
			return err
		}
		if err := os.WriteFile(full, []byte(content), 0o600); err != nil {
			return err
		}
	}
	return nil
}

// renderBuilder "renders" every docs/*.md next to the config into <output>/<name>.html,
// prefixed with the configured site title. A config carrying `fail: true` fails.
type renderBuilder struct {
	mu     sync.Mutex
	titles []string
}

func (b *renderBuilder) Build(_ context.Context, job sitebuilder.Job) error {
	raw, err := os.ReadFile(filepath.Join(job.Dir, job.ConfigFile))
	if err != nil {
		return err
	}
	var cfg struct {
		SiteName string `yaml:"site_name"`
		Fail     bool   `yaml:"fail"`
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return err
	}
	b.mu.Lock()
	b.titles = append(b.titles, cfg.SiteName)
	b.mu.Unlock()
	if cfg.Fail {
		return fmt.Errorf("%w: exit status 1", sitebuilder.ErrBuildFailed)
	}

	out := job.OutputPath()
	if err := os.MkdirAll(out, 0o750); err != nil {
		return err
	}
	pages, err := filepath.Glob(filepath.Join(job.Dir, "docs", "*.md"))
	if err != nil {
		return err
	}
	for _, page := range pages {
		body, err := os.ReadFile(page)
		if err != nil {
			return err
		}
		name := strings.TrimSuffix(filepath.Base(page), ".md") + ".html"
		html := fmt.Sprintf("<title>%s</title>\n%s", cfg.SiteName, body)
		if err := os.WriteFile(filepath.Join(out, name), []byte(html), 0o600); err != nil {
			return err
		}
	}
	return nil
}

func (b *renderBuilder) seenTitles() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.titles...)
}

func mkdocsConfig() config.BuilderConfig {
	cfg := config.BuilderConfig{Preset: config.PresetMkDocs}
	c := config.Config{Builder: cfg}
	c.ApplyDefaults()
	return c.Builder
}
