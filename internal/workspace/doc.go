// Package workspace manages the per-run scratch directory that holds the
// source and output worktrees.
//
// Each run gets a timestamped directory (e.g., docpublish-20251214-122336-1a2b3c4d)
// that is removed after the run unless the output worktree is kept for inspection.
package workspace
