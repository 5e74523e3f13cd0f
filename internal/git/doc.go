// Package git wraps the repository operations the publisher needs.
//
// go-git handles tags, revision resolution, forced checkout, cleaning,
// staging, committing and pushing. Linked worktrees are created and removed
// through the git CLI because go-git cannot register them; once created they
// are opened with go-git like any other working copy.
package git
