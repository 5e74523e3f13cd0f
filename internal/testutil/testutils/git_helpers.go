package helpers

import (
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// RequireGitCLI skips the test when the git binary is unavailable.
// Worktree registration is only possible through the CLI.
func RequireGitCLI(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git binary not available")
	}
}

// TestRepo is a go-git repository in a temp dir with helpers for building history.
type TestRepo struct {
	t    *testing.T
	Repo *git.Repository
	WT   *git.Worktree
	Path string
	tick int
}

// SetupTestGitRepo initializes a repository whose default branch is main.
func SetupTestGitRepo(t *testing.T) *TestRepo {
	t.Helper()

	tempDir := t.TempDir()
	repo, err := git.PlainInitWithOptions(tempDir, &git.PlainInitOptions{
		InitOptions: git.InitOptions{DefaultBranch: plumbing.Main},
	})
	if err != nil {
		t.Fatalf("failed to initialize git repo: %v", err)
	}
	w, err := repo.Worktree()
	if err != nil {
		t.Fatalf("failed to get worktree: %v", err)
	}
	return &TestRepo{t: t, Repo: repo, WT: w, Path: tempDir}
}

// WriteFile writes content relative to the repository root, creating parents.
func (r *TestRepo) WriteFile(rel, content string) {
	r.t.Helper()
	full := filepath.Join(r.Path, rel)
	if err := os.MkdirAll(filepath.Dir(full), 0o750); err != nil {
		r.t.Fatalf("mkdir %s: %v", rel, err)
	}
	if err := os.WriteFile(full, []byte(content), 0o600); err != nil {
		r.t.Fatalf("write %s: %v", rel, err)
	}
}

// RemoveFile deletes a file relative to the repository root.
func (r *TestRepo) RemoveFile(rel string) {
	r.t.Helper()
	if err := os.Remove(filepath.Join(r.Path, rel)); err != nil {
		r.t.Fatalf("remove %s: %v", rel, err)
	}
}

// Commit stages everything and commits. Timestamps advance so history is ordered.
func (r *TestRepo) Commit(msg string) plumbing.Hash {
	r.t.Helper()
	if err := r.WT.AddWithOptions(&git.AddOptions{All: true}); err != nil {
		r.t.Fatalf("stage: %v", err)
	}
	r.tick++
	sig := &object.Signature{Name: "test", Email: "test@example.com", When: time.Unix(1700000000+int64(r.tick)*60, 0)}
	h, err := r.WT.Commit(msg, &git.CommitOptions{Author: sig, Committer: sig, AllowEmptyCommits: true})
	if err != nil {
		r.t.Fatalf("commit: %v", err)
	}
	return h
}

// Tag creates a lightweight tag at HEAD.
func (r *TestRepo) Tag(name string) {
	r.t.Helper()
	head, err := r.Repo.Head()
	if err != nil {
		r.t.Fatalf("head: %v", err)
	}
	if _, err := r.Repo.CreateTag(name, head.Hash(), nil); err != nil {
		r.t.Fatalf("tag %s: %v", name, err)
	}
}

// CommitAndTag commits the current tree and tags it.
func (r *TestRepo) CommitAndTag(tag string) plumbing.Hash {
	r.t.Helper()
	h := r.Commit("release " + tag)
	r.Tag(tag)
	return h
}
