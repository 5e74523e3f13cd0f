// Package mirror makes one directory an exact copy of another.
package mirror

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/otiai10/copy"

	"git.home.luguber.info/inful/docpublish/internal/logfields"
)

// ErrUnsafeTarget indicates a destination that must never be mirrored into.
var ErrUnsafeTarget = errors.New("unsafe mirror target")

const gitDir = ".git"

// Stats counts what a Sync changed.
type Stats struct {
	Copied  int
	Removed int
}

// Subdir joins root and name after checking that name is a single path element
// below root. It is the only way callers should build a Sync destination.
func Subdir(root, name string) (string, error) {
	switch {
	case name == "", name == ".", name == "..", name == gitDir:
		return "", fmt.Errorf("%w: %q", ErrUnsafeTarget, name)
	case strings.ContainsAny(name, `/\`):
		return "", fmt.Errorf("%w: %q is not a single path element", ErrUnsafeTarget, name)
	}
	return filepath.Join(root, name), nil
}

// Sync makes dst mirror src: entries missing from src or whose type changed
// are removed, then everything in src is copied over. .git entries in either
// tree are left alone. dst is created when absent.
func Sync(src, dst string) (Stats, error) {
	var stats Stats
	if err := validate(src, dst); err != nil {
		return stats, err
	}
	if err := os.MkdirAll(dst, 0o750); err != nil {
		return stats, fmt.Errorf("create %s: %w", dst, err)
	}

	removed, err := prune(src, dst)
	stats.Removed = removed
	if err != nil {
		return stats, err
	}

	entries, err := os.ReadDir(src)
	if err != nil {
		return stats, fmt.Errorf("read %s: %w", src, err)
	}
	opts := copy.Options{
		OnSymlink: func(string) copy.SymlinkAction { return copy.Shallow },
	}
	for _, e := range entries {
		if e.Name() == gitDir {
			continue
		}
		from, to := filepath.Join(src, e.Name()), filepath.Join(dst, e.Name())
		n, err := countFiles(from)
		if err != nil {
			return stats, err
		}
		if err := copy.Copy(from, to, opts); err != nil {
			return stats, fmt.Errorf("copy %s: %w", e.Name(), err)
		}
		stats.Copied += n
	}
	slog.Debug("Mirrored directory", logfields.Path(dst), slog.Int("copied", stats.Copied), slog.Int("removed", stats.Removed))
	return stats, nil
}

func validate(src, dst string) error {
	st, err := os.Stat(src)
	if err != nil {
		return fmt.Errorf("mirror source: %w", err)
	}
	if !st.IsDir() {
		return fmt.Errorf("mirror source %s is not a directory", src)
	}
	absSrc, err := filepath.Abs(src)
	if err != nil {
		return err
	}
	absDst, err := filepath.Abs(dst)
	if err != nil {
		return err
	}
	if filepath.Base(absDst) == gitDir || filepath.Dir(absDst) == absDst {
		return fmt.Errorf("%w: %s", ErrUnsafeTarget, dst)
	}
	if within(absSrc, absDst) || within(absDst, absSrc) {
		return fmt.Errorf("%w: %s and %s overlap", ErrUnsafeTarget, src, dst)
	}
	return nil
}

func within(parent, child string) bool {
	rel, err := filepath.Rel(parent, child)
	return err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// prune removes dst entries that src does not have with the same type.
func prune(src, dst string) (int, error) {
	removed := 0
	err := filepath.WalkDir(dst, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if path == dst {
			return nil
		}
		if d.Name() == gitDir {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		rel, err := filepath.Rel(dst, path)
		if err != nil {
			return err
		}
		srcInfo, err := os.Lstat(filepath.Join(src, rel))
		if err == nil && srcInfo.Mode().Type() == d.Type() {
			return nil
		}
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
		if err := os.RemoveAll(path); err != nil {
			return fmt.Errorf("remove %s: %w", rel, err)
		}
		removed++
		if d.IsDir() {
			return filepath.SkipDir
		}
		return nil
	})
	return removed, err
}

func countFiles(root string) (int, error) {
	n := 0
	err := filepath.WalkDir(root, func(_ string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			n++
		}
		return nil
	})
	return n, err
}
