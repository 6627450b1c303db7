// Package layout gives every other component a single, canonical view of
// the on-disk tree rooted at R. Nothing outside this package constructs
// these paths by hand.
package layout

import (
	"os"
	"path/filepath"

	"github.com/nanobrew/nanobrew/internal/xerr"
)

// DefaultRoot is used when $NANOBREW_ROOT is unset.
const DefaultRoot = "/opt/nanobrew"

// Layout is the canonical, absolute path set derived from one root.
type Layout struct {
	Root string
}

// New returns a Layout rooted at root. root is made absolute but its
// existence is not checked; call Init or Verify for that.
func New(root string) Layout {
	abs, err := filepath.Abs(root)
	if err != nil {
		abs = root
	}
	return Layout{Root: abs}
}

func (l Layout) join(parts ...string) string {
	return filepath.Join(append([]string{l.Root}, parts...)...)
}

func (l Layout) CacheDir() string       { return l.join("cache") }
func (l Layout) BlobsDir() string       { return l.join("cache", "blobs") }
func (l Layout) TmpDir() string         { return l.join("cache", "tmp") }
func (l Layout) APICacheDir() string    { return l.join("cache", "api") }
func (l Layout) TokenCacheDir() string  { return l.join("cache", "tokens") }
func (l Layout) StoreDir() string       { return l.join("store") }
func (l Layout) PrefixDir() string      { return l.join("prefix") }
func (l Layout) CellarDir() string      { return l.join("prefix", "Cellar") }
func (l Layout) CaskroomDir() string    { return l.join("prefix", "Caskroom") }
func (l Layout) BinDir() string         { return l.join("prefix", "bin") }
func (l Layout) SbinDir() string        { return l.join("prefix", "sbin") }
func (l Layout) OptDir() string         { return l.join("prefix", "opt") }
func (l Layout) DBFile() string         { return l.join("db", "state.json") }
func (l Layout) DBDir() string          { return l.join("db") }
func (l Layout) LocksDir() string       { return l.join("locks") }

// BlobPath is the canonical path of the blob for sha.
func (l Layout) BlobPath(sha string) string { return filepath.Join(l.BlobsDir(), sha) }

// StoreEntryPath is the canonical path of the extracted store entry for sha.
func (l Layout) StoreEntryPath(sha string) string { return filepath.Join(l.StoreDir(), sha) }

// KegPath is the canonical Cellar path for name/actualVersion.
func (l Layout) KegPath(name, actualVersion string) string {
	return filepath.Join(l.CellarDir(), name, actualVersion)
}

// dirs enumerated in the order Init should create them.
func (l Layout) dirs() []string {
	return []string{
		l.CacheDir(), l.BlobsDir(), l.TmpDir(), l.APICacheDir(), l.TokenCacheDir(),
		l.StoreDir(),
		l.PrefixDir(), l.CellarDir(), l.CaskroomDir(), l.BinDir(), l.SbinDir(), l.OptDir(),
		l.DBDir(), l.LocksDir(),
	}
}

// Init creates the full tree rooted at l.Root.
func (l Layout) Init() error {
	for _, d := range l.dirs() {
		if err := os.MkdirAll(d, 0755); err != nil {
			return &xerr.ConfigError{Path: d, Err: err}
		}
	}
	return nil
}

// Verify checks that the full tree exists, returning a ConfigError
// naming the first missing directory. Components that discover a missing
// directory mid-operation should wrap it the same way: a half-initialized
// root is a fatal configuration error, not something to paper over.
func (l Layout) Verify() error {
	for _, d := range l.dirs() {
		if fi, err := os.Stat(d); err != nil || !fi.IsDir() {
			return &xerr.ConfigError{Path: d, Err: os.ErrNotExist}
		}
	}
	return nil
}
