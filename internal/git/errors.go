package git

import (
	"fmt"

	"git.home.luguber.info/inful/docpublish/internal/foundation/errors"
	perrors "git.home.luguber.info/inful/docpublish/internal/publish/errors"
)

// repositoryError classifies failures reading the repository or its tags.
func repositoryError(op, path string, err error) error {
	return errors.RepositoryError("cannot read repository").
		WithCause(fmt.Errorf("%w: %w", perrors.ErrRepositoryUnavailable, err)).
		WithContext("op", op).
		WithContext("path", path).
		Build()
}

// worktreeError classifies failures creating, switching or removing a working copy.
func worktreeError(op, path string, err error) error {
	return errors.WorktreeError(op + " failed").
		WithCause(fmt.Errorf("%w: %w", perrors.ErrWorktree, err)).
		WithContext("op", op).
		WithContext("path", path).
		Build()
}
