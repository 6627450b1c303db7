// Package nbtest provides small test-only helpers shared across the
// pipeline's package tests: a scratch root directory and a
// fail-the-test-on-error wrapper, mirroring internal/distritest.
package nbtest

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/nanobrew/nanobrew/internal/layout"
)

// TempRoot creates a fully initialized Layout under t.TempDir(), removed
// automatically when the test completes.
func TempRoot(t testing.TB) layout.Layout {
	t.Helper()
	l := layout.New(t.TempDir())
	if err := l.Init(); err != nil {
		t.Fatalf("layout.Init: %v", err)
	}
	return l
}

// RemoveAll wraps os.RemoveAll and fails the test on failure.
func RemoveAll(t testing.TB, path string) {
	t.Helper()
	if err := os.RemoveAll(path); err != nil {
		t.Fatalf("cleanup: %v", err)
	}
}

// WriteFile writes contents to path, creating parent directories and
// failing the test on any error.
func WriteFile(t testing.TB, path string, contents []byte) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, contents, 0644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}
