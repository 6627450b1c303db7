package link

import (
	"os"
	"path/filepath"
	"testing"
)

func newTestLinker(t *testing.T) (*Linker, string) {
	t.Helper()
	root := t.TempDir()
	prefix := filepath.Join(root, "prefix")
	bin := filepath.Join(prefix, "bin")
	sbin := filepath.Join(prefix, "sbin")
	opt := filepath.Join(prefix, "opt")
	for _, d := range []string{bin, sbin, opt} {
		if err := os.MkdirAll(d, 0755); err != nil {
			t.Fatalf("MkdirAll: %v", err)
		}
	}
	return New(prefix, bin, sbin, opt), root
}

func TestLinkCreatesBinAndOptSymlinks(t *testing.T) {
	l, root := newTestLinker(t)
	kegDir := filepath.Join(root, "Cellar", "jq", "1.7")
	if err := os.MkdirAll(filepath.Join(kegDir, "bin"), 0755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	if err := os.WriteFile(filepath.Join(kegDir, "bin", "jq"), []byte("#!/bin/sh\n"), 0755); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	if err := l.Link("jq", kegDir); err != nil {
		t.Fatalf("Link: %v", err)
	}

	target, err := os.Readlink(filepath.Join(l.BinDir, "jq"))
	if err != nil {
		t.Fatalf("Readlink(bin/jq): %v", err)
	}
	if want := filepath.Join(kegDir, "bin", "jq"); target != want {
		t.Errorf("bin/jq -> %q, want %q", target, want)
	}

	optTarget, err := os.Readlink(filepath.Join(l.OptDir, "jq"))
	if err != nil {
		t.Fatalf("Readlink(opt/jq): %v", err)
	}
	if optTarget != kegDir {
		t.Errorf("opt/jq -> %q, want %q", optTarget, kegDir)
	}
}

func TestLinkOverwritesExistingSymlink(t *testing.T) {
	l, root := newTestLinker(t)
	oldKeg := filepath.Join(root, "Cellar", "jq", "1.6")
	newKeg := filepath.Join(root, "Cellar", "jq", "1.7")
	for _, keg := range []string{oldKeg, newKeg} {
		if err := os.MkdirAll(filepath.Join(keg, "bin"), 0755); err != nil {
			t.Fatalf("MkdirAll: %v", err)
		}
		if err := os.WriteFile(filepath.Join(keg, "bin", "jq"), nil, 0755); err != nil {
			t.Fatalf("WriteFile: %v", err)
		}
	}

	if err := l.Link("jq", oldKeg); err != nil {
		t.Fatalf("Link(old): %v", err)
	}
	if err := l.Link("jq", newKeg); err != nil {
		t.Fatalf("Link(new): %v", err)
	}

	target, err := os.Readlink(filepath.Join(l.BinDir, "jq"))
	if err != nil {
		t.Fatalf("Readlink: %v", err)
	}
	if want := filepath.Join(newKeg, "bin", "jq"); target != want {
		t.Errorf("bin/jq -> %q after re-link, want %q", target, want)
	}
}

func TestUnlinkRemovesOnlyMatchingSymlinks(t *testing.T) {
	l, root := newTestLinker(t)
	jqKeg := filepath.Join(root, "Cellar", "jq", "1.7")
	catKeg := filepath.Join(root, "Cellar", "bat", "1.0")
	for _, keg := range []string{jqKeg, catKeg} {
		if err := os.MkdirAll(filepath.Join(keg, "bin"), 0755); err != nil {
			t.Fatalf("MkdirAll: %v", err)
		}
	}
	os.WriteFile(filepath.Join(jqKeg, "bin", "jq"), nil, 0755)
	os.WriteFile(filepath.Join(catKeg, "bin", "bat"), nil, 0755)
	l.Link("jq", jqKeg)
	l.Link("bat", catKeg)

	if err := l.Unlink("jq", jqKeg); err != nil {
		t.Fatalf("Unlink: %v", err)
	}

	if _, err := os.Lstat(filepath.Join(l.BinDir, "jq")); !os.IsNotExist(err) {
		t.Errorf("bin/jq still exists after Unlink")
	}
	if _, err := os.Lstat(filepath.Join(l.BinDir, "bat")); err != nil {
		t.Errorf("bin/bat was removed by an unrelated Unlink call: %v", err)
	}
}
