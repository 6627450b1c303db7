package relocate

import (
	"io"
	"os"
	"syscall"

	"golang.org/x/xerrors"
)

// breakSharing replaces path with a private copy if it is a hardlink
// shared with another file (link count > 1) or a symlink, so that
// in-place rewriting never mutates a store entry or a sibling keg
// (spec.md §4.9, §9's "modifying a store file" trap).
func breakSharing(path string) error {
	fi, err := os.Lstat(path)
	if err != nil {
		return err
	}

	if fi.Mode()&os.ModeSymlink != 0 {
		target, err := os.Readlink(path)
		if err != nil {
			return err
		}
		data, err := os.ReadFile(target)
		if err != nil {
			return xerrors.Errorf("reading symlink target %s: %w", target, err)
		}
		if err := os.Remove(path); err != nil {
			return err
		}
		return os.WriteFile(path, data, fi.Mode().Perm())
	}

	st, ok := fi.Sys().(*syscall.Stat_t)
	if !ok || st.Nlink <= 1 {
		return nil
	}

	tmp := path + ".relocate-private"
	if err := copyFile(path, tmp, fi.Mode().Perm()); err != nil {
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return nil
}

func copyFile(src, dst string, perm os.FileMode) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, perm)
	if err != nil {
		return err
	}
	defer out.Close()
	_, err = io.Copy(out, in)
	return err
}
