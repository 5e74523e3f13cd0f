package git

import (
	"fmt"
	"log/slog"
	"time"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"

	"git.home.luguber.info/inful/docpublish/internal/foundation/errors"
	"git.home.luguber.info/inful/docpublish/internal/logfields"
	perrors "git.home.luguber.info/inful/docpublish/internal/publish/errors"
)

// Author identifies who the publish commit is recorded as.
type Author struct {
	Name  string
	Email string
}

// PublishCommit records the whole output tree as a single commit.
type PublishCommit struct {
	author Author
	now    func() time.Time
}

// NewPublishCommit creates a committer that signs commits as author.
func NewPublishCommit(author Author) *PublishCommit {
	return &PublishCommit{author: author, now: time.Now}
}

// Commit stages every addition, modification and deletion in the worktree at path
// and commits them. A clean tree returns an error wrapping ErrEmptyCommit.
func (c *PublishCommit) Commit(path, message string) (string, error) {
	_, wt, err := openWorktree(path)
	if err != nil {
		return "", worktreeError("open output worktree", path, err)
	}
	status, err := wt.Status()
	if err != nil {
		return "", repositoryError("status", path, err)
	}
	if status.IsClean() {
		return "", errors.RepositoryError("output tree unchanged").
			WithCause(perrors.ErrEmptyCommit).
			WithSeverity(errors.SeverityInfo).
			WithContext("path", path).
			Build()
	}

	// One pass over the status; per-file Add recomputes it for every path.
	if err := wt.AddWithOptions(&gogit.AddOptions{All: true}); err != nil {
		return "", repositoryError("stage output tree", path, err)
	}

	sig := &object.Signature{Name: c.author.Name, Email: c.author.Email, When: c.now()}
	hash, err := wt.Commit(message, &gogit.CommitOptions{Author: sig, Committer: sig})
	if err != nil {
		return "", repositoryError("commit", path, fmt.Errorf("create commit: %w", err))
	}
	slog.Info("Created publish commit", logfields.Commit(hash.String()), logfields.Path(path), slog.Int("files", len(status)))
	return hash.String(), nil
}
