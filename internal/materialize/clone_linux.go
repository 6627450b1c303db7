//go:build linux

package materialize

import (
	"io/fs"
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"
)

// ficlone is the Btrfs/XFS reflink ioctl (FICLONE), which clones an
// entire file's extents in one syscall without copying data.
const ficlone = 0x40049409 // _IOW(0x94, 9, int), i.e. FICLONE

// cowClone attempts a reflink (FICLONE) clone of every regular file under
// src into dst, recreating directories and symlinks structurally. It
// returns an error (falling through to the hardlink strategy) if the
// underlying filesystem doesn't support reflinks.
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
			info, err := d.Info()
			if err != nil {
				return err
			}
			if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
				return err
			}
			return reflinkFile(path, target, info.Mode().Perm())
		}
	})
}

func reflinkFile(src, dst string, perm os.FileMode) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_EXCL, perm)
	if err != nil {
		return err
	}
	defer out.Close()

	_, _, errno := unix.Syscall(unix.SYS_IOCTL, out.Fd(), uintptr(ficlone), in.Fd())
	if errno != 0 {
		os.Remove(dst)
		return errno
	}
	return nil
}
