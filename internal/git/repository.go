package git

import (
	"context"
	"path/filepath"

	gogit "github.com/go-git/go-git/v5"
)

// openRepository opens the repository containing path, walking up to find .git.
func openRepository(path string) (*gogit.Repository, error) {
	return gogit.PlainOpenWithOptions(path, &gogit.PlainOpenOptions{
		DetectDotGit:          true,
		EnableDotGitCommonDir: true,
	})
}

// openWorktree opens a linked worktree created by `git worktree add`. Its .git
// is a file pointing into the main repository, whose commondir holds refs and objects.
func openWorktree(path string) (*gogit.Repository, *gogit.Worktree, error) {
	repo, err := gogit.PlainOpenWithOptions(path, &gogit.PlainOpenOptions{EnableDotGitCommonDir: true})
	if err != nil {
		return nil, nil, err
	}
	wt, err := repo.Worktree()
	if err != nil {
		return nil, nil, err
	}
	return repo, wt, nil
}

// CommonDir returns the absolute git directory holding refs shared by every
// worktree of the repository at repoPath.
func CommonDir(ctx context.Context, repoPath string) (string, error) {
	out, err := runGit(ctx, repoPath, "rev-parse", "--git-common-dir")
	if err != nil {
		return "", repositoryError("locate git directory", repoPath, err)
	}
	if !filepath.IsAbs(out) {
		out = filepath.Join(repoPath, out)
	}
	return filepath.Abs(out)
}
