// Package publish runs one documentation publish: it resolves the versions of
// a repository, renders each in a reusable source worktree, mirrors the output
// into per-version subdirectories of the output branch, writes the version
// index and records everything as a single commit.
package publish
