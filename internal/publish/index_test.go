package publish

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/docpublish/internal/versioning"
)

func built(ref, label string) BuildResult {
	return BuildResult{Version: versioning.Version{SourceRef: ref, Label: label}, Built: true, Outcome: OutcomeBuilt}
}

func TestIndexComposer_ComposeAndParse(t *testing.T) {
	out := t.TempDir()
	c, err := NewIndexComposer(out, IndexOptions{Title: "Docs <all>", Intro: "Pick a **version**."})
	require.NoError(t, err)

	require.NoError(t, c.Reset())
	require.NoError(t, c.Append(built("main", "prerelease (main branch)")))
	require.NoError(t, c.Append(BuildResult{Version: versioning.Version{SourceRef: "v0.9.0", Label: "v0.9.0 stable"}, Outcome: OutcomeSkipped}))
	require.NoError(t, c.Append(built("v0.10.0", "v0.10.0 stable")))
	require.NoError(t, c.Append(built("feature/x", "a & b")))
	require.NoError(t, c.Close())

	raw, err := os.ReadFile(filepath.Join(out, "index.html"))
	require.NoError(t, err)
	page := string(raw)
	assert.Contains(t, page, "<title>Docs &lt;all&gt;</title>")
	assert.Contains(t, page, "<strong>version</strong>")
	assert.Contains(t, page, `<li><a href="v0.10.0/">v0.10.0 stable</a></li>`)
	assert.NotContains(t, page, "v0.9.0")
	assert.True(t, strings.HasSuffix(page, "</html>\n"))

	entries, err := ParseIndex(strings.NewReader(page))
	require.NoError(t, err)
	want := []IndexEntry{
		{Label: "prerelease (main branch)", Href: "main/", Dir: "main"},
		{Label: "v0.10.0 stable", Href: "v0.10.0/", Dir: "v0.10.0"},
		{Label: "a & b", Href: "feature-x/", Dir: "feature-x"},
	}
	if diff := cmp.Diff(want, entries); diff != "" {
		t.Errorf("ParseIndex mismatch (-want +got):\n%s", diff)
	}
}

func TestIndexComposer_ResetStartsOver(t *testing.T) {
	out := t.TempDir()
	c, err := NewIndexComposer(out, IndexOptions{File: "versions.html"})
	require.NoError(t, err)

	require.NoError(t, c.Reset())
	require.NoError(t, c.Append(built("v1.0.0", "v1.0.0 stable")))
	require.NoError(t, c.Close())
	require.NoError(t, c.Reset())
	require.NoError(t, c.Close())

	f, err := os.Open(c.Path())
	require.NoError(t, err)
	defer f.Close()
	entries, err := ParseIndex(f)
	require.NoError(t, err)
	assert.Empty(t, entries)
	assert.Equal(t, filepath.Join(out, "versions.html"), c.Path())
}

func TestIndexComposer_AppendBeforeReset(t *testing.T) {
	c, err := NewIndexComposer(t.TempDir(), IndexOptions{})
	require.NoError(t, err)
	assert.Error(t, c.Append(built("v1.0.0", "v1.0.0 stable")))
	assert.Error(t, c.Close())
}

func TestIndexComposer_DiscardClosesOpenPage(t *testing.T) {
	c, err := NewIndexComposer(t.TempDir(), IndexOptions{})
	require.NoError(t, err)

	require.NoError(t, c.Reset())
	require.NoError(t, c.Append(built("v1.0.0", "v1.0.0 stable")))
	c.Discard()
	assert.Nil(t, c.f)
	assert.Error(t, c.Append(built("v1.1.0", "v1.1.0 stable")), "a discarded page accepts no entries")
	c.Discard()

	require.NoError(t, c.Reset())
	require.NoError(t, c.Close())
	c.Discard()
	raw, err := os.ReadFile(c.Path())
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(string(raw), "</html>\n"), "Discard after Close leaves the page intact")
}

func TestParseIndex_FallsBackToListLinks(t *testing.T) {
	page := `<html><body><p><a href="elsewhere/">nav</a></p>
<ol><li><a href="./v2.0.0/">v2.0.0 stable</a></li></ol></body></html>`
	entries, err := ParseIndex(strings.NewReader(page))
	require.NoError(t, err)
	assert.Equal(t, []IndexEntry{{Label: "v2.0.0 stable", Href: "./v2.0.0/", Dir: "v2.0.0"}}, entries)
}
