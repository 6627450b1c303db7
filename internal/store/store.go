// Package store is the content-addressable directory store of extracted
// archives (C6): store/<sha>/ either doesn't exist, or is the complete
// extraction of the blob at that sha. Extraction happens into a sibling
// temp directory which is renamed into place only on full success, so
// readers never observe a partial entry.
package store

import (
	"os"
	"path/filepath"

	"golang.org/x/xerrors"

	"github.com/nanobrew/nanobrew/internal/extract"
	"github.com/nanobrew/nanobrew/internal/xerr"
)

// Store is the store rooted at Dir.
type Store struct {
	Dir string
}

// New returns a Store rooted at dir.
func New(dir string) *Store { return &Store{Dir: dir} }

// Has reports whether a store entry for sha is already present.
func (s *Store) Has(sha string) bool {
	fi, err := os.Stat(s.PathOf(sha))
	return err == nil && fi.IsDir()
}

// PathOf is the canonical store entry path for sha.
func (s *Store) PathOf(sha string) string { return filepath.Join(s.Dir, sha) }

// Ensure extracts blobPath into store/<sha>/ if not already present.
func (s *Store) Ensure(blobPath, sha string) error {
	if s.Has(sha) {
		return nil
	}

	final := s.PathOf(sha)
	tmp := final + ".tmp"
	if err := os.RemoveAll(tmp); err != nil {
		return &xerr.ExtractError{Sha: sha, Err: err}
	}
	if err := os.MkdirAll(tmp, 0755); err != nil {
		return &xerr.ExtractError{Sha: sha, Err: err}
	}

	if err := extract.ToDir(blobPath, tmp); err != nil {
		_ = os.RemoveAll(tmp)
		return &xerr.ExtractError{Sha: sha, Err: xerrors.Errorf("extract: %w", err)}
	}

	if err := os.Rename(tmp, final); err != nil {
		_ = os.RemoveAll(tmp)
		return &xerr.ExtractError{Sha: sha, Err: err}
	}
	return nil
}
