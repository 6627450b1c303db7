package extract

import (
	"archive/tar"
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

func writeTar(t *testing.T, entries map[string]string) string {
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

	path := filepath.Join(t.TempDir(), "archive.tar")
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func TestSniffPlainTar(t *testing.T) {
	path := writeTar(t, map[string]string{"bin/jq": "binary contents"})
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if got := Sniff(data[:512]); got != KindTar {
		t.Errorf("Sniff() = %v, want KindTar", got)
	}
}

func TestToDirExtractsPlainTar(t *testing.T) {
	path := writeTar(t, map[string]string{
		"jq-1.7/bin/jq":      "#!/bin/sh\n",
		"jq-1.7/share/doc":   "docs",
		"jq-1.7/lib/libjq.a": "archive",
	})
	dest := filepath.Join(t.TempDir(), "out")
	if err := ToDir(path, dest); err != nil {
		t.Fatalf("ToDir: %v", err)
	}
	for _, rel := range []string{"jq-1.7/bin/jq", "jq-1.7/share/doc", "jq-1.7/lib/libjq.a"} {
		if _, err := os.Stat(filepath.Join(dest, rel)); err != nil {
			t.Errorf("missing extracted entry %s: %v", rel, err)
		}
	}
}

func TestToDirRejectsPathTraversal(t *testing.T) {
	path := writeTar(t, map[string]string{"../../escape": "nope"})
	dest := filepath.Join(t.TempDir(), "out")
	if err := ToDir(path, dest); err == nil {
		t.Fatal("ToDir() with a path-traversing entry = nil, want error")
	}
}
