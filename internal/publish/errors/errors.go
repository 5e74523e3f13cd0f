// Package errors provides sentinel errors for the publish pipeline stages.
// Callers wrap them with %w so errors.Is works across classification layers.
package errors

import "errors"

var (
	// ErrRepositoryUnavailable indicates the repository or its tags could not be read.
	ErrRepositoryUnavailable = errors.New("repository unavailable")
	// ErrWorktree indicates an isolated working copy could not be created, switched or removed.
	ErrWorktree = errors.New("worktree operation failed")
	// ErrBranchInUse indicates the output branch is checked out in a worktree docpublish does not own.
	ErrBranchInUse = errors.New("output branch checked out elsewhere")
	// ErrBuildFailure indicates the site builder failed for one version.
	ErrBuildFailure = errors.New("version build failed")
	// ErrEmptyCommit indicates the output tree had no changes to record.
	ErrEmptyCommit = errors.New("nothing to commit")
	// ErrPushFailed indicates the output branch could not be pushed.
	ErrPushFailed = errors.New("push failed")
)
