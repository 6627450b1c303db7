// Package blobcache is the content-addressable file store keyed by
// expected SHA-256, backing C5 of the install pipeline. Publication is
// atomic (download-to-temp, then rename), so a racing second writer that
// finds the destination already present treats it as success — the same
// discipline cmd/distri/install.go relies on for roimg publication.
package blobcache

import (
	"context"
	"os"
	"path/filepath"

	"github.com/nanobrew/nanobrew/internal/fetch"
)

// Cache is the blob cache rooted at Dir.
type Cache struct {
	Dir  string
	HTTP *fetch.Client
}

// New returns a Cache publishing into dir.
func New(dir string, httpClient *fetch.Client) *Cache {
	return &Cache{Dir: dir, HTTP: httpClient}
}

// Has reports whether a blob for sha is already cached.
func (c *Cache) Has(sha string) bool {
	_, err := os.Stat(c.PathOf(sha))
	return err == nil
}

// PathOf is the canonical on-disk path for sha.
func (c *Cache) PathOf(sha string) string { return filepath.Join(c.Dir, sha) }

// Ensure downloads url into the cache under sha if not already present,
// verifying its SHA-256 as it streams. A no-op if Has(sha).
func (c *Cache) Ensure(ctx context.Context, url, sha string) error {
	if c.Has(sha) {
		return nil
	}
	return c.HTTP.GetToFile(ctx, url, c.PathOf(sha), nil, sha)
}
