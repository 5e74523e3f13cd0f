package git

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"

	"git.home.luguber.info/inful/docpublish/internal/logfields"
	perrors "git.home.luguber.info/inful/docpublish/internal/publish/errors"
	"git.home.luguber.info/inful/docpublish/internal/workspace"
)

// Purpose distinguishes the two working copies a run holds.
type Purpose string

const (
	PurposeSource Purpose = "source"
	PurposeOutput Purpose = "output"
)

// WorktreeManager creates and removes the isolated working copies for one run.
// The repository's own working directory is never touched.
type WorktreeManager struct {
	repoPath string
	baseDir  string
	remote   string

	mu       sync.Mutex
	acquired []string
	kept     map[string]bool
}

// NewWorktreeManager places worktrees under baseDir, which must already exist.
func NewWorktreeManager(repoPath, baseDir string) *WorktreeManager {
	return &WorktreeManager{repoPath: repoPath, baseDir: baseDir, kept: make(map[string]bool)}
}

// WithRemote makes AcquireOutput track <remote>/<branch> when the branch only exists remotely.
func (m *WorktreeManager) WithRemote(remote string) *WorktreeManager {
	m.remote = remote
	return m
}

// AcquireSource adds a detached worktree at ref.
func (m *WorktreeManager) AcquireSource(ctx context.Context, ref string) (string, error) {
	path := filepath.Join(m.baseDir, string(PurposeSource))
	m.prune(ctx)
	if _, err := runGit(ctx, m.repoPath, "worktree", "add", "--detach", path, ref); err != nil {
		return "", worktreeError("add source worktree", path, err)
	}
	m.track(path)
	slog.Info("Acquired source worktree", logfields.Path(path), logfields.Ref(ref))
	return path, nil
}

// AcquireOutput adds a worktree on branch, creating it as an orphan when it exists nowhere.
func (m *WorktreeManager) AcquireOutput(ctx context.Context, branch string) (string, error) {
	path := filepath.Join(m.baseDir, string(PurposeOutput))
	m.prune(ctx)
	if err := m.freeBranch(ctx, branch); err != nil {
		return "", worktreeError("add output worktree", path, err)
	}

	local, remote, err := m.branchState(branch)
	if err != nil {
		return "", worktreeError("inspect output branch", path, err)
	}
	switch {
	case local:
		_, err = runGit(ctx, m.repoPath, "worktree", "add", path, branch)
	case remote:
		_, err = runGit(ctx, m.repoPath, "worktree", "add", "--track", "-b", branch, path, m.remote+"/"+branch)
	default:
		if _, err = runGit(ctx, m.repoPath, "worktree", "add", "--detach", path); err == nil {
			m.track(path)
			_, err = runGit(ctx, path, "switch", "--orphan", branch)
		}
	}
	if err != nil {
		return "", worktreeError("add output worktree", path, err)
	}
	m.track(path)
	slog.Info("Acquired output worktree", logfields.Path(path), logfields.Branch(branch), slog.Bool("new_branch", !local && !remote))
	return path, nil
}

type worktreeEntry struct {
	path   string
	branch string
}

// parseWorktreeList reads `git worktree list --porcelain`. The main worktree comes first.
func parseWorktreeList(out string) []worktreeEntry {
	var entries []worktreeEntry
	for block := range strings.SplitSeq(out, "\n\n") {
		var e worktreeEntry
		for line := range strings.SplitSeq(block, "\n") {
			switch {
			case strings.HasPrefix(line, "worktree "):
				e.path = strings.TrimPrefix(line, "worktree ")
			case strings.HasPrefix(line, "branch "):
				e.branch = strings.TrimPrefix(line, "branch ")
			}
		}
		if e.path != "" {
			entries = append(entries, e)
		}
	}
	return entries
}

// freeBranch removes an output worktree that an earlier run left holding branch,
// as happens after --no-commit, keep_worktree or a killed run. A holder that
// no run created is reported with the command that frees it.
func (m *WorktreeManager) freeBranch(ctx context.Context, branch string) error {
	out, err := runGit(ctx, m.repoPath, "worktree", "list", "--porcelain")
	if err != nil {
		return err
	}
	ref := plumbing.NewBranchReferenceName(branch).String()
	for i, wt := range parseWorktreeList(out) {
		if wt.branch != ref {
			continue
		}
		if i == 0 {
			return fmt.Errorf("%w: %s is checked out in the repository at %s; switch it to another branch first",
				perrors.ErrBranchInUse, branch, wt.path)
		}
		if !m.leftByEarlierRun(wt.path) {
			return fmt.Errorf("%w: %s is checked out at %s; free it with: git -C %s worktree remove --force %s",
				perrors.ErrBranchInUse, branch, wt.path, m.repoPath, wt.path)
		}
		slog.Warn("Removing output worktree left by an earlier run", logfields.Path(wt.path), logfields.Branch(branch))
		if _, err := runGit(ctx, m.repoPath, "worktree", "remove", "--force", wt.path); err != nil {
			return err
		}
		// The run directory goes too once nothing else is in it.
		_ = os.Remove(filepath.Dir(wt.path))
	}
	return nil
}

// leftByEarlierRun reports whether path is <work_dir>/docpublish-*/output of a
// run other than this one.
func (m *WorktreeManager) leftByEarlierRun(path string) bool {
	run := filepath.Dir(path)
	return filepath.Base(path) == string(PurposeOutput) &&
		strings.HasPrefix(filepath.Base(run), workspace.DirPrefix) &&
		samePath(filepath.Dir(run), filepath.Dir(m.baseDir)) &&
		!samePath(run, m.baseDir)
}

func samePath(a, b string) bool {
	return resolvePath(a) == resolvePath(b)
}

func resolvePath(p string) string {
	if r, err := filepath.EvalSymlinks(p); err == nil {
		return r
	}
	if abs, err := filepath.Abs(p); err == nil {
		return abs
	}
	return filepath.Clean(p)
}

func (m *WorktreeManager) branchState(branch string) (local, remote bool, err error) {
	repo, err := openRepository(m.repoPath)
	if err != nil {
		return false, false, err
	}
	if _, err := repo.Reference(plumbing.NewBranchReferenceName(branch), false); err == nil {
		return true, false, nil
	} else if !errors.Is(err, plumbing.ErrReferenceNotFound) {
		return false, false, err
	}
	if m.remote == "" {
		return false, false, nil
	}
	if _, err := repo.Reference(plumbing.NewRemoteReferenceName(m.remote, branch), false); err == nil {
		return false, true, nil
	}
	return false, false, nil
}

// Checkout force-switches the worktree at path to ref and removes untracked files,
// so the tree matches ref exactly.
func (m *WorktreeManager) Checkout(path, ref string) error {
	repo, wt, err := openWorktree(path)
	if err != nil {
		return worktreeError("open worktree", path, err)
	}
	hash, err := repo.ResolveRevision(plumbing.Revision(ref))
	if err != nil {
		return worktreeError("resolve "+ref, path, err)
	}
	if err := wt.Checkout(&gogit.CheckoutOptions{Hash: *hash, Force: true}); err != nil {
		return worktreeError("checkout "+ref, path, err)
	}
	if err := wt.Clean(&gogit.CleanOptions{Dir: true}); err != nil {
		return worktreeError("clean", path, err)
	}
	slog.Debug("Checked out ref", logfields.Path(path), logfields.Ref(ref), logfields.Commit(hash.String()))
	return nil
}

// Restore discards every modification and untracked file, returning the tree to HEAD.
func (m *WorktreeManager) Restore(path string) error {
	repo, wt, err := openWorktree(path)
	if err != nil {
		return worktreeError("open worktree", path, err)
	}
	head, err := repo.Head()
	if err != nil {
		return worktreeError("read HEAD", path, err)
	}
	if err := wt.Reset(&gogit.ResetOptions{Commit: head.Hash(), Mode: gogit.HardReset}); err != nil {
		return worktreeError("reset", path, err)
	}
	if err := wt.Clean(&gogit.CleanOptions{Dir: true}); err != nil {
		return worktreeError("clean", path, err)
	}
	return nil
}

// Keep excludes path from ReleaseAll, leaving it registered and on disk.
func (m *WorktreeManager) Keep(path string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.kept[path] = true
}

// Release removes the worktree at path and prunes stale registrations.
func (m *WorktreeManager) Release(ctx context.Context, path string) error {
	_, err := runGit(ctx, m.repoPath, "worktree", "remove", "--force", path)
	if err != nil {
		slog.Warn("git worktree remove failed, removing directory", logfields.Path(path), logfields.Error(err))
		if rmErr := os.RemoveAll(path); rmErr != nil {
			return worktreeError("remove worktree", path, errors.Join(err, rmErr))
		}
	}
	m.prune(ctx)
	m.untrack(path)
	slog.Debug("Released worktree", logfields.Path(path))
	return nil
}

// ReleaseAll releases every acquired worktree not marked with Keep.
func (m *WorktreeManager) ReleaseAll(ctx context.Context) error {
	m.mu.Lock()
	paths := slices.Clone(m.acquired)
	m.mu.Unlock()

	var errs []error
	for _, p := range paths {
		if m.isKept(p) {
			slog.Info("Keeping worktree", logfields.Path(p))
			continue
		}
		if err := m.Release(ctx, p); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("release worktrees: %w", errors.Join(errs...))
	}
	return nil
}

func (m *WorktreeManager) prune(ctx context.Context) {
	if _, err := runGit(ctx, m.repoPath, "worktree", "prune"); err != nil {
		slog.Debug("git worktree prune failed", logfields.Error(err))
	}
}

func (m *WorktreeManager) track(path string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !slices.Contains(m.acquired, path) {
		m.acquired = append(m.acquired, path)
	}
}

func (m *WorktreeManager) untrack(path string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.acquired = slices.DeleteFunc(m.acquired, func(p string) bool { return p == path })
}

func (m *WorktreeManager) isKept(path string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.kept[path]
}
