//go:build darwin

package materialize

import (
	"io/fs"
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"
)

// cowClone uses APFS's clonefile(2) (exposed as unix.Clonefileat) to clone
// the entire directory tree in one operation per entry. APFS clones
// directories recursively is not guaranteed by the syscall itself, so
// each file and directory is cloned individually, still avoiding any data
// copy for regular files.
func cowClone(src, dst string) error {
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
			return unix.Clonefileat(unix.AT_FDCWD, path, unix.AT_FDCWD, target, 0)
		}
	})
}
