package blobcache

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/nanobrew/nanobrew/internal/fetch"
)

func TestEnsureSkipsExistingBlob(t *testing.T) {
	dir := t.TempDir()
	c := New(dir, fetch.New())

	const sha = "deadbeef"
	if err := os.WriteFile(c.PathOf(sha), []byte("cached"), 0644); err != nil {
		t.Fatalf("seed blob: %v", err)
	}
	if !c.Has(sha) {
		t.Fatal("Has() = false after seeding, want true")
	}

	// A bogus URL would fail if Ensure ever tried to fetch it; since the
	// blob is already present this must return nil without dialing out.
	if err := c.Ensure(context.Background(), "http://example.invalid/never", sha); err != nil {
		t.Errorf("Ensure() on already-cached blob = %v, want nil", err)
	}
}

func TestPathOf(t *testing.T) {
	c := New("/cache/blobs", nil)
	if got, want := c.PathOf("abc123"), filepath.Join("/cache/blobs", "abc123"); got != want {
		t.Errorf("PathOf() = %q, want %q", got, want)
	}
}
