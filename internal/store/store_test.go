package store

import (
	"archive/tar"
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

func writeTarBlob(t *testing.T, path string, entries map[string]string) {
	t.Helper()
	var buf bytes.Buffer
	tw := tar.NewWriter(&buf)
	for name, body := range entries {
		hdr := &tar.Header{Name: name, Mode: 0644, Size: int64(len(body))}
		if err := tw.WriteHeader(hdr); err != nil {
			t.Fatalf("WriteHeader: %v", err)
		}
		if _, err := tw.Write([]byte(body)); err != nil {
			t.Fatalf("Write: %v", err)
		}
	}
	if err := tw.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
}

func TestEnsureExtractsOnce(t *testing.T) {
	dir := t.TempDir()
	blob := filepath.Join(dir, "blob.tar")
	writeTarBlob(t, blob, map[string]string{"jq-1.7/bin/jq": "#!/bin/sh\n"})

	s := New(filepath.Join(dir, "store"))
	const sha = "deadbeef"
	if s.Has(sha) {
		t.Fatal("Has() before Ensure = true, want false")
	}
	if err := s.Ensure(blob, sha); err != nil {
		t.Fatalf("Ensure: %v", err)
	}
	if !s.Has(sha) {
		t.Fatal("Has() after Ensure = false, want true")
	}
	if _, err := os.Stat(filepath.Join(s.PathOf(sha), "jq-1.7", "bin", "jq")); err != nil {
		t.Errorf("extracted entry missing: %v", err)
	}

	// Removing the blob and re-running Ensure must be a no-op: the entry
	// is already present, so extraction should never be attempted again.
	if err := os.Remove(blob); err != nil {
		t.Fatalf("Remove blob: %v", err)
	}
	if err := s.Ensure(blob, sha); err != nil {
		t.Errorf("Ensure() on already-present entry = %v, want nil", err)
	}
}

func TestEnsureFailsOnUnreadableBlob(t *testing.T) {
	dir := t.TempDir()
	s := New(filepath.Join(dir, "store"))
	if err := s.Ensure(filepath.Join(dir, "missing.tar"), "cafef00d"); err == nil {
		t.Fatal("Ensure() on a missing blob = nil, want error")
	}
	if s.Has("cafef00d") {
		t.Error("Has() after a failed Ensure = true, want false (no partial entry)")
	}
}
