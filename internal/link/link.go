// Package link creates and removes the symlinks that expose a keg's
// executables (and its opt/ alias) in the user-visible prefix (C10).
package link

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/nanobrew/nanobrew/internal/xerr"
)

// Linker manages symlinks rooted at a prefix.
type Linker struct {
	PrefixDir string
	BinDir    string
	SbinDir   string
	OptDir    string
}

// New returns a Linker for the given prefix layout paths.
func New(prefixDir, binDir, sbinDir, optDir string) *Linker {
	return &Linker{PrefixDir: prefixDir, BinDir: binDir, SbinDir: sbinDir, OptDir: optDir}
}

// Link creates a bin (and sbin) symlink for every regular file or symlink
// under kegDir/{bin,sbin}, plus <prefix>/opt/<name> -> kegDir. If a
// conflicting non-keg file already occupies a bin slot, the default
// single-writer policy is to overwrite it (spec.md §4.10).
func (l *Linker) Link(name, kegDir string) error {
	for _, sub := range []struct{ dir, linkDir string }{
		{"bin", l.BinDir}, {"sbin", l.SbinDir},
	} {
		srcDir := filepath.Join(kegDir, sub.dir)
		entries, err := os.ReadDir(srcDir)
		if err != nil {
			continue // no bin/sbin directory in this keg: nothing to link
		}
		for _, e := range entries {
			if e.IsDir() {
				continue
			}
			target := filepath.Join(srcDir, e.Name())
			linkPath := filepath.Join(sub.linkDir, e.Name())
			if err := l.placeSymlink(linkPath, target); err != nil {
				return &xerr.LinkError{Path: linkPath, Err: err}
			}
		}
	}

	optLink := filepath.Join(l.OptDir, name)
	_ = os.Remove(optLink)
	if err := os.Symlink(kegDir, optLink); err != nil {
		return &xerr.LinkError{Path: optLink, Err: err}
	}
	return nil
}

// placeSymlink creates linkPath -> target, replacing whatever already
// occupies linkPath (conflicting symlink or regular file) under the
// default single-writer overwrite policy (spec.md §4.10, §5): only one
// worker ever touches a given package's keg in a batch, so a conflict can
// only come from a previous install of the same or a different package,
// and overwrite is the documented default.
func (l *Linker) placeSymlink(linkPath, target string) error {
	_ = os.Remove(linkPath)
	return os.Symlink(target, linkPath)
}

// Unlink removes every symlink under l.BinDir/l.SbinDir/l.OptDir whose
// target resolves into kegDir. Symlinks pointing elsewhere are left
// untouched.
func (l *Linker) Unlink(name, kegDir string) error {
	for _, dir := range []string{l.BinDir, l.SbinDir} {
		entries, err := os.ReadDir(dir)
		if err != nil {
			continue
		}
		for _, e := range entries {
			linkPath := filepath.Join(dir, e.Name())
			target, err := os.Readlink(linkPath)
			if err != nil {
				continue // not a symlink
			}
			if strings.HasPrefix(target, kegDir) {
				if err := os.Remove(linkPath); err != nil {
					return &xerr.LinkError{Path: linkPath, Err: err}
				}
			}
		}
	}
	optLink := filepath.Join(l.OptDir, name)
	if target, err := os.Readlink(optLink); err == nil && target == kegDir {
		_ = os.Remove(optLink)
	}
	return nil
}
