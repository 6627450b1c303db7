package materialize

import (
	"io/fs"
	"os"
	"path/filepath"
)

// hardlinkFanOut recursively recreates src's directory tree under dst,
// hardlinking regular files and recreating symlinks by reading their
// targets, per spec.md §4.8. Hardlinks are near-free in space but unsafe
// to modify in place; internal/relocate must break sharing (refcount > 1)
// before rewriting any file produced this way.
func hardlinkFanOut(src, dst string) error {
	return filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)

		switch {
		case d.Type()&os.ModeSymlink != 0:
			link, err := os.Readlink(path)
			if err != nil {
				return err
			}
			if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
				return err
			}
			return os.Symlink(link, target)
		case d.IsDir():
			info, err := d.Info()
			if err != nil {
				return err
			}
			return os.MkdirAll(target, info.Mode().Perm())
		default:
			if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
				return err
			}
			return os.Link(path, target)
		}
	})
}
