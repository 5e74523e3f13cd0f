package git

import (
	"log/slog"

	"github.com/go-git/go-git/v5/plumbing"

	"git.home.luguber.info/inful/docpublish/internal/logfields"
)

// TagCatalog enumerates the tags of a repository.
type TagCatalog struct {
	repoPath string
}

// NewTagCatalog creates a catalog for the repository at repoPath.
func NewTagCatalog(repoPath string) *TagCatalog {
	return &TagCatalog{repoPath: repoPath}
}

// List returns every tag short name in no particular order.
func (c *TagCatalog) List() ([]string, error) {
	repo, err := openRepository(c.repoPath)
	if err != nil {
		return nil, repositoryError("open", c.repoPath, err)
	}
	iter, err := repo.Tags()
	if err != nil {
		return nil, repositoryError("list tags", c.repoPath, err)
	}
	defer iter.Close()

	var tags []string
	err = iter.ForEach(func(ref *plumbing.Reference) error {
		tags = append(tags, ref.Name().Short())
		return nil
	})
	if err != nil {
		return nil, repositoryError("list tags", c.repoPath, err)
	}
	slog.Debug("Listed tags", logfields.Path(c.repoPath), slog.Int("count", len(tags)))
	return tags, nil
}
