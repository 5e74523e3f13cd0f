package git

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	gogit "github.com/go-git/go-git/v5"
	gitconfig "github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/transport"

	ferrors "git.home.luguber.info/inful/docpublish/internal/foundation/errors"
	"git.home.luguber.info/inful/docpublish/internal/logfields"
	perrors "git.home.luguber.info/inful/docpublish/internal/publish/errors"
	"git.home.luguber.info/inful/docpublish/internal/retry"
)

// Pusher publishes the output branch to a remote.
type Pusher struct {
	repoPath string
	remote   string
	auth     transport.AuthMethod
	policy   retry.Policy
}

// NewPusher creates a pusher. auth may be nil for remotes that need no credentials.
func NewPusher(repoPath, remote string, auth transport.AuthMethod, policy retry.Policy) *Pusher {
	return &Pusher{repoPath: repoPath, remote: remote, auth: auth, policy: policy}
}

// Push sends branch to the remote, retrying transient failures with the configured backoff.
// An up-to-date remote is success.
func (p *Pusher) Push(ctx context.Context, branch string) error {
	repo, err := openRepository(p.repoPath)
	if err != nil {
		return repositoryError("open", p.repoPath, err)
	}
	ref := plumbing.NewBranchReferenceName(branch)
	spec := gitconfig.RefSpec(ref.String() + ":" + ref.String())

	err = p.policy.Do(ctx, "push", func(ctx context.Context) error {
		err := repo.PushContext(ctx, &gogit.PushOptions{
			RemoteName: p.remote,
			RefSpecs:   []gitconfig.RefSpec{spec},
			Auth:       p.auth,
		})
		if err == nil || errors.Is(err, gogit.NoErrAlreadyUpToDate) {
			return nil
		}
		if isPermanentPushError(err) {
			return retry.Permanent(err)
		}
		return err
	})
	if err != nil {
		return classifyPushError(p.remote, branch, err)
	}
	slog.Info("Pushed output branch", logfields.Branch(branch), slog.String("remote", p.remote))
	return nil
}

func isAuthError(err error) bool {
	if errors.Is(err, transport.ErrAuthenticationRequired) || errors.Is(err, transport.ErrAuthorizationFailed) {
		return true
	}
	l := strings.ToLower(err.Error())
	return strings.Contains(l, "authentication") || strings.Contains(l, "permission denied") || strings.Contains(l, "invalid credentials")
}

func isPermanentPushError(err error) bool {
	if isAuthError(err) || errors.Is(err, transport.ErrRepositoryNotFound) || errors.Is(err, gogit.ErrRemoteNotFound) {
		return true
	}
	l := strings.ToLower(err.Error())
	return strings.Contains(l, "non-fast-forward") || strings.Contains(l, "unsupported protocol")
}

func classifyPushError(remote, branch string, err error) error {
	cause := fmt.Errorf("%w: %w", perrors.ErrPushFailed, err)
	var b *ferrors.ErrorBuilder
	switch {
	case isAuthError(err):
		b = ferrors.NewError(ferrors.CategoryAuth, "push rejected: authentication failed").Fatal().UserAction()
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		b = ferrors.NetworkError("push interrupted")
	case isPermanentPushError(err):
		b = ferrors.RepositoryError("push rejected")
	default:
		b = ferrors.NetworkError("push failed after retries")
	}
	return b.WithCause(cause).WithContext("remote", remote).WithContext("branch", branch).Build()
}
