package mirror

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	helpers "git.home.luguber.info/inful/docpublish/internal/testutil/testutils"
)

func write(t *testing.T, root, rel, content string) {
	t.Helper()
	p := filepath.Join(root, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o750))
	require.NoError(t, os.WriteFile(p, []byte(content), 0o600))
}

func TestSync_CopiesIntoEmptyTarget(t *testing.T) {
	src, out := t.TempDir(), t.TempDir()
	write(t, src, "index.html", "home")
	write(t, src, "guide/install/index.html", "install")

	dst := filepath.Join(out, "v1.0.0")
	stats, err := Sync(src, dst)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Copied)
	assert.Equal(t, 0, stats.Removed)
	helpers.NewFileAssertions(t, dst).
		AssertFileContains("index.html", "home").
		AssertFileContains("guide/install/index.html", "install")
}

func TestSync_RemovesStaleEntriesOnlyInsideTarget(t *testing.T) {
	src, out := t.TempDir(), t.TempDir()
	write(t, src, "index.html", "new home")
	write(t, src, "kept/page.html", "kept")

	dst := filepath.Join(out, "v1.0.0")
	write(t, dst, "index.html", "old home")
	write(t, dst, "deleted.html", "gone")
	write(t, dst, "old-section/a.html", "gone")
	write(t, dst, "kept/stale.html", "gone")
	write(t, out, "v0.9.0/deleted.html", "sibling stays")
	write(t, out, "index.html", "root index stays")

	stats, err := Sync(src, dst)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Removed)

	helpers.NewFileAssertions(t, dst).
		AssertFileContains("index.html", "new home").
		AssertFileExists("kept/page.html").
		AssertNotExists("deleted.html").
		AssertNotExists("old-section").
		AssertNotExists("kept/stale.html")
	helpers.NewFileAssertions(t, out).
		AssertFileExists("v0.9.0/deleted.html").
		AssertFileContains("index.html", "root index stays")
}

func TestSync_ReplacesEntryWhoseTypeChanged(t *testing.T) {
	src, out := t.TempDir(), t.TempDir()
	write(t, src, "assets/app.js", "js")
	dst := filepath.Join(out, "v2")
	write(t, dst, "assets", "was a file")

	_, err := Sync(src, dst)
	require.NoError(t, err)
	helpers.NewFileAssertions(t, dst).AssertDirExists("assets").AssertFileContains("assets/app.js", "js")
}

func TestSync_LeavesGitAlone(t *testing.T) {
	src, out := t.TempDir(), t.TempDir()
	write(t, src, ".git/config", "source git")
	write(t, src, "index.html", "x")
	dst := filepath.Join(out, "v3")
	write(t, dst, ".git", "gitdir: elsewhere")

	_, err := Sync(src, dst)
	require.NoError(t, err)
	helpers.NewFileAssertions(t, dst).AssertFileContains(".git", "gitdir: elsewhere").AssertFileExists("index.html")
}

func TestSync_RejectsUnsafeTargets(t *testing.T) {
	src := t.TempDir()
	write(t, src, "index.html", "x")

	_, err := Sync(src, filepath.Join(t.TempDir(), ".git"))
	assert.True(t, errors.Is(err, ErrUnsafeTarget))

	_, err = Sync(src, filepath.Join(src, "nested"))
	assert.True(t, errors.Is(err, ErrUnsafeTarget))

	_, err = Sync(src, src)
	assert.True(t, errors.Is(err, ErrUnsafeTarget))

	_, err = Sync(filepath.Join(src, "missing"), t.TempDir())
	assert.Error(t, err)
}

func TestSubdir(t *testing.T) {
	p, err := Subdir("/out", "v1.0.0")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("/out", "v1.0.0"), p)

	for _, bad := range []string{"", ".", "..", ".git", "a/b", `a\b`} {
		_, err := Subdir("/out", bad)
		assert.True(t, errors.Is(err, ErrUnsafeTarget), bad)
	}
}
