package git

import (
	"errors"
	"io"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// ReadBranchFile returns the content of name at the tip of branch without
// touching any working copy. found is false when the branch or file does not exist.
func ReadBranchFile(repoPath, branch, name string) (content []byte, found bool, err error) {
	repo, err := openRepository(repoPath)
	if err != nil {
		return nil, false, repositoryError("open", repoPath, err)
	}
	ref, err := repo.Reference(plumbing.NewBranchReferenceName(branch), true)
	if errors.Is(err, plumbing.ErrReferenceNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, repositoryError("resolve "+branch, repoPath, err)
	}
	commit, err := repo.CommitObject(ref.Hash())
	if err != nil {
		return nil, false, repositoryError("read commit", repoPath, err)
	}
	file, err := commit.File(name)
	if errors.Is(err, object.ErrFileNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, repositoryError("read "+name, repoPath, err)
	}
	r, err := file.Reader()
	if err != nil {
		return nil, false, repositoryError("read "+name, repoPath, err)
	}
	defer func() { _ = r.Close() }()
	content, err = io.ReadAll(r)
	if err != nil {
		return nil, false, repositoryError("read "+name, repoPath, err)
	}
	return content, true, nil
}
