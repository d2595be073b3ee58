package corpus

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/utils/merkletrie"

	"github.com/artsmia/miarag/internal/errors"
)

// Checkout wraps a local git clone of the corpus repository and answers two
// questions: what revision is checked out, and which JSON documents changed
// between two revisions.
type Checkout struct {
	repoURL   string
	localPath string
	subdir    string
	logger    *slog.Logger
}

// NewCheckout returns a Checkout rooted at localPath. The repository is not
// touched until Sync or one of the read operations is called.
func NewCheckout(repoURL, localPath, subdir string, logger *slog.Logger) *Checkout {
	if logger == nil {
		logger = slog.Default()
	}
	return &Checkout{
		repoURL:   repoURL,
		localPath: localPath,
		subdir:    subdir,
		logger:    logger,
	}
}

// Sync clones the repository if localPath does not hold one yet, otherwise
// fast-forwards the existing clone. A clone that is already up to date is
// not an error.
func (c *Checkout) Sync(ctx context.Context) error {
	repo, err := git.PlainOpen(c.localPath)
	if err == git.ErrRepositoryNotExists {
		c.logger.Info("cloning corpus repository", "url", c.repoURL, "path", c.localPath)
		_, err = git.PlainCloneContext(ctx, c.localPath, false, &git.CloneOptions{
			URL: c.repoURL,
		})
		if err != nil {
			return errors.Wrap(errors.CodeStoreUnavailable, err).WithDetail("url", c.repoURL)
		}
		return nil
	}
	if err != nil {
		return errors.Wrap(errors.CodeStoreUnavailable, err).WithDetail("path", c.localPath)
	}

	wt, err := repo.Worktree()
	if err != nil {
		return errors.Wrap(errors.CodeStoreUnavailable, err)
	}
	err = wt.PullContext(ctx, &git.PullOptions{RemoteName: "origin"})
	if err != nil && err != git.NoErrAlreadyUpToDate {
		return errors.Wrap(errors.CodeStoreUnavailable, err).WithDetail("path", c.localPath)
	}
	return nil
}

// Head returns the full hash of the currently checked-out commit.
func (c *Checkout) Head() (string, error) {
	repo, err := git.PlainOpen(c.localPath)
	if err != nil {
		return "", errors.Wrap(errors.CodeStoreUnavailable, err).WithDetail("path", c.localPath)
	}
	ref, err := repo.Head()
	if err != nil {
		return "", errors.Wrap(errors.CodeStoreUnavailable, err)
	}
	return ref.Hash().String(), nil
}

// ChangedFiles lists corpus-relative paths of JSON documents that were added
// or modified between prev and curr. Deletions are ignored; stale index
// entries stay behind. An empty prev means no revision has been processed
// before; every JSON document under the configured subdirectory is returned.
func (c *Checkout) ChangedFiles(prev, curr string) ([]string, error) {
	if prev == "" {
		return c.enumerate()
	}
	changes, err := c.diff(prev, curr)
	if err != nil {
		return nil, err
	}

	var paths []string
	for _, change := range changes {
		action, err := change.Action()
		if err != nil {
			return nil, errors.Wrap(errors.CodeStoreUnavailable, err)
		}
		if action != merkletrie.Insert && action != merkletrie.Modify {
			continue
		}
		if isCorpusDocument(change.To.Name) {
			paths = append(paths, change.To.Name)
		}
	}
	return paths, nil
}

// ReadFile reads a document by its corpus-relative path.
func (c *Checkout) ReadFile(relPath string) ([]byte, error) {
	data, err := os.ReadFile(filepath.Join(c.localPath, filepath.FromSlash(relPath)))
	if err != nil {
		return nil, errors.Wrap(errors.CodeDocumentUnreadable, err).WithDetail("path", relPath)
	}
	return data, nil
}

// AbsPath resolves a corpus-relative path against the checkout root.
func (c *Checkout) AbsPath(relPath string) string {
	return filepath.Join(c.localPath, filepath.FromSlash(relPath))
}

func (c *Checkout) diff(prev, curr string) (object.Changes, error) {
	repo, err := git.PlainOpen(c.localPath)
	if err != nil {
		return nil, errors.Wrap(errors.CodeStoreUnavailable, err).WithDetail("path", c.localPath)
	}
	prevTree, err := commitTree(repo, prev)
	if err != nil {
		return nil, err
	}
	currTree, err := commitTree(repo, curr)
	if err != nil {
		return nil, err
	}
	changes, err := object.DiffTree(prevTree, currTree)
	if err != nil {
		return nil, errors.Wrap(errors.CodeStoreUnavailable, err)
	}
	return changes, nil
}

// enumerate walks the configured subdirectory and returns every JSON file,
// as slash-separated corpus-relative paths.
func (c *Checkout) enumerate() ([]string, error) {
	root := filepath.Join(c.localPath, filepath.FromSlash(c.subdir))
	var paths []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(strings.ToLower(d.Name()), ".json") {
			return nil
		}
		rel, err := filepath.Rel(c.localPath, path)
		if err != nil {
			return err
		}
		paths = append(paths, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(errors.CodeStoreUnavailable, err).WithDetail("path", root)
	}
	return paths, nil
}

func commitTree(repo *git.Repository, marker string) (*object.Tree, error) {
	commit, err := repo.CommitObject(plumbing.NewHash(marker))
	if err != nil {
		return nil, errors.Wrap(errors.CodeStoreUnavailable, err).WithDetail("revision", marker)
	}
	tree, err := commit.Tree()
	if err != nil {
		return nil, errors.Wrap(errors.CodeStoreUnavailable, err).WithDetail("revision", marker)
	}
	return tree, nil
}

func isCorpusDocument(name string) bool {
	return strings.HasSuffix(strings.ToLower(name), ".json")
}
