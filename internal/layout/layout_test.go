package layout

import (
	"os"
	"path/filepath"
	"testing"
)

func TestInitCreatesFullTree(t *testing.T) {
	root := t.TempDir()
	l := New(root)

	if err := l.Init(); err != nil {
		t.Fatalf("Init: %v", err)
	}
	for _, d := range l.dirs() {
		fi, err := os.Stat(d)
		if err != nil {
			t.Errorf("Stat(%s): %v", d, err)
			continue
		}
		if !fi.IsDir() {
			t.Errorf("%s is not a directory", d)
		}
	}
	if err := l.Verify(); err != nil {
		t.Errorf("Verify() after Init() = %v, want nil", err)
	}
}

func TestVerifyFailsOnMissingTree(t *testing.T) {
	l := New(filepath.Join(t.TempDir(), "nope"))
	if err := l.Verify(); err == nil {
		t.Fatal("Verify() on uninitialized root = nil, want error")
	}
}

func TestKegPathAndBlobPath(t *testing.T) {
	l := New("/opt/nanobrew")
	if got, want := l.KegPath("jq", "1.7"), filepath.Join(l.CellarDir(), "jq", "1.7"); got != want {
		t.Errorf("KegPath() = %q, want %q", got, want)
	}
	if got, want := l.BlobPath("deadbeef"), filepath.Join(l.BlobsDir(), "deadbeef"); got != want {
		t.Errorf("BlobPath() = %q, want %q", got, want)
	}
}
