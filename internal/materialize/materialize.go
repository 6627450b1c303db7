// Package materialize clones a store entry into the Cellar (C8). Clone
// strategy, in preference order: COW clone, hardlink fan-out, byte copy.
// The platform-specific COW primitive is the build-tagged cowClone
// function in clone_linux.go, clone_darwin.go and clone_other.go; avoid
// runtime reflection per spec.md §9.
package materialize

import (
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"golang.org/x/xerrors"

	"github.com/nanobrew/nanobrew/internal/xerr"
)

// Materializer materializes store entries into cellarDir.
type Materializer struct {
	StoreDir  string
	CellarDir string
}

// New returns a Materializer reading from storeDir and writing into
// cellarDir.
func New(storeDir, cellarDir string) *Materializer {
	return &Materializer{StoreDir: storeDir, CellarDir: cellarDir}
}

// Materialize clones store/<sha>/<name>/<version-dir> into
// Cellar/<name>/<actualVersion>/ and returns actualVersion. Because
// archives nest as <name>/<version_dir>/..., actualVersion is discovered
// by probing the store entry for a directory equal to version or
// version + "_" + rebuild-suffix; that discovered name, not the
// descriptor's version, is what every later step (relocate, link, db)
// must use (spec.md §4.8, §9).
func (m *Materializer) Materialize(sha, name, version string) (actualVersion string, err error) {
	nameDir := filepath.Join(m.StoreDir, sha, name)
	actualVersion, probeErr := probeVersion(nameDir, version)
	if probeErr != nil {
		return "", &xerr.MaterializeError{Name: name, Version: version, Err: probeErr}
	}

	src := filepath.Join(nameDir, actualVersion)
	cellarName := filepath.Join(m.CellarDir, name)
	if err := os.MkdirAll(cellarName, 0755); err != nil {
		return "", &xerr.MaterializeError{Name: name, Version: version, Err: err}
	}
	dst := filepath.Join(cellarName, actualVersion)

	// atomic replace: clone into a sibling temp path, then rename over any
	// pre-existing keg.
	tmp := dst + ".materializing"
	if err := os.RemoveAll(tmp); err != nil {
		return "", &xerr.MaterializeError{Name: name, Version: version, Err: err}
	}

	cloneErr := cowClone(src, tmp)
	if cloneErr != nil {
		cloneErr = hardlinkFanOut(src, tmp)
	}
	if cloneErr != nil {
		_ = os.RemoveAll(tmp)
		cloneErr = byteCopy(src, tmp)
	}
	if cloneErr != nil {
		_ = os.RemoveAll(tmp)
		return "", &xerr.MaterializeError{Name: name, Version: version, Err: xerrors.Errorf("all clone strategies failed: %w", cloneErr)}
	}

	if err := os.RemoveAll(dst); err != nil {
		_ = os.RemoveAll(tmp)
		return "", &xerr.MaterializeError{Name: name, Version: version, Err: err}
	}
	if err := os.Rename(tmp, dst); err != nil {
		return "", &xerr.MaterializeError{Name: name, Version: version, Err: err}
	}
	return actualVersion, nil
}

// probeVersion finds the directory under nameDir whose name equals
// version or begins with version + "_" (a rebuild suffix the metadata did
// not report).
func probeVersion(nameDir, version string) (string, error) {
	entries, err := os.ReadDir(nameDir)
	if err != nil {
		return "", xerrors.Errorf("probing %s: %w", nameDir, err)
	}
	var best string
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		n := e.Name()
		if n == version {
			return n, nil // exact match wins outright
		}
		if len(n) > len(version) && n[:len(version)] == version && n[len(version)] == '_' {
			if best == "" || n > best {
				best = n
			}
		}
	}
	if best == "" {
		return "", xerrors.Errorf("no version directory matching %q under %s", version, nameDir)
	}
	return best, nil
}

// byteCopy is the last-resort clone strategy: a recursive byte-for-byte
// copy, preserving mode bits and symlink targets (mirroring
// internal/extract's untar semantics).
func byteCopy(src, dst string) error {
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
			in, err := os.Open(path)
			if err != nil {
				return err
			}
			defer in.Close()
			out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, info.Mode().Perm())
			if err != nil {
				return err
			}
			defer out.Close()
			_, err = io.Copy(out, in)
			return err
		}
	})
}
