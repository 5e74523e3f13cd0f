package sitebuilder

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func decode(t *testing.T, data []byte) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, yaml.Unmarshal(data, &m))
	return m
}

func TestRewriteTitle_AppendsLabel(t *testing.T) {
	in := "# project settings\nsite_name: My Project\nnav:\n  - Home: index.md\ntheme:\n  name: material\n"
	out, err := rewriteTitle([]byte(in), "site_name", "v1.2.0 stable")
	require.NoError(t, err)

	m := decode(t, out)
	assert.Equal(t, "My Project (v1.2.0 stable)", m["site_name"])
	assert.Equal(t, map[string]any{"name": "material"}, m["theme"])
	assert.Contains(t, string(out), "# project settings")
}

func TestRewriteTitle_MissingKeyUsesLabel(t *testing.T) {
	out, err := rewriteTitle([]byte("theme: readthedocs\n"), "site_name", "prerelease (main branch)")
	require.NoError(t, err)
	m := decode(t, out)
	assert.Equal(t, "prerelease (main branch)", m["site_name"])
	assert.Equal(t, "readthedocs", m["theme"])
}

func TestRewriteTitle_EmptyDocumentAndEmptyValue(t *testing.T) {
	out, err := rewriteTitle(nil, "title", "v2.0.0 stable")
	require.NoError(t, err)
	assert.Equal(t, "v2.0.0 stable", decode(t, out)["title"])

	out, err = rewriteTitle([]byte("title: \"\"\n"), "title", "v2.0.0 stable")
	require.NoError(t, err)
	assert.Equal(t, "v2.0.0 stable", decode(t, out)["title"])
}

func TestRewriteTitle_Rejects(t *testing.T) {
	_, err := rewriteTitle([]byte("- a\n- b\n"), "title", "x")
	assert.Error(t, err)
	_, err = rewriteTitle([]byte("title:\n  nested: true\n"), "title", "x")
	assert.Error(t, err)
}

func TestRewriteTitle_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mkdocs.yml")
	require.NoError(t, os.WriteFile(path, []byte("site_name: Docs\n"), 0o640))
	require.NoError(t, RewriteTitle(path, "site_name", "v0.8.0 stable"))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "Docs (v0.8.0 stable)", decode(t, data)["site_name"])
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o640), info.Mode().Perm())
}

func TestNoopBuilder_CreatesOutput(t *testing.T) {
	dir := t.TempDir()
	job := Job{Dir: dir, ConfigFile: "mkdocs.yml", OutputDir: "site"}
	require.NoError(t, NoopBuilder{}.Build(context.Background(), job))
	st, err := os.Stat(job.OutputPath())
	require.NoError(t, err)
	assert.True(t, st.IsDir())
}

func requireShell(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
}

func TestBinaryBuilder_Success(t *testing.T) {
	requireShell(t)
	dir := t.TempDir()
	b := &BinaryBuilder{
		Command: []string{"sh", "-c", `mkdir -p site && printf '%s' "$GREETING" > site/index.html`},
		Env:     map[string]string{"GREETING": "hello"},
	}
	require.NoError(t, b.Build(context.Background(), Job{Dir: dir, OutputDir: "site"}))
	data, err := os.ReadFile(filepath.Join(dir, "site", "index.html"))
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))
}

func TestBinaryBuilder_Failure(t *testing.T) {
	requireShell(t)
	b := &BinaryBuilder{Command: []string{"sh", "-c", "echo 'Config value: site_name missing' >&2; exit 1"}}
	err := b.Build(context.Background(), Job{Dir: t.TempDir(), OutputDir: "site"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrBuildFailed))
	assert.Contains(t, err.Error(), "site_name missing")
}

func TestBinaryBuilder_MissingOutput(t *testing.T) {
	requireShell(t)
	b := &BinaryBuilder{Command: []string{"sh", "-c", "true"}}
	err := b.Build(context.Background(), Job{Dir: t.TempDir(), OutputDir: "site"})
	assert.True(t, errors.Is(err, ErrBuildFailed))
}

func TestBinaryBuilder_NotFound(t *testing.T) {
	b := &BinaryBuilder{Command: []string{"definitely-not-a-real-site-builder"}}
	err := b.Build(context.Background(), Job{Dir: t.TempDir()})
	assert.True(t, errors.Is(err, ErrBuilderNotFound))

	err = (&BinaryBuilder{}).Build(context.Background(), Job{Dir: t.TempDir()})
	assert.True(t, errors.Is(err, ErrBuilderNotFound))
}
