package relocate

import (
	"os"
	"path/filepath"
	"testing"
)

func TestReplaceTokenPrefersCellarOverPrefix(t *testing.T) {
	s := TokenCellar + "/jq/1.7/lib " + TokenPrefix + "/lib"
	got := replaceToken(s, "/opt/nanobrew/prefix", "/opt/nanobrew/prefix/Cellar")
	want := "/opt/nanobrew/prefix/Cellar/jq/1.7/lib /opt/nanobrew/prefix/lib"
	if got != want {
		t.Errorf("replaceToken() = %q, want %q", got, want)
	}
}

func TestContainsToken(t *testing.T) {
	if containsToken("no tokens here") {
		t.Error("containsToken() on a plain string = true, want false")
	}
	if !containsToken("libdir=" + TokenPrefix + "/lib") {
		t.Error("containsToken() with TokenPrefix = false, want true")
	}
	if !containsToken("cellardir=" + TokenCellar) {
		t.Error("containsToken() with TokenCellar = false, want true")
	}
}

func TestRelocateRewritesTextFiles(t *testing.T) {
	kegDir := t.TempDir()
	pcPath := filepath.Join(kegDir, "lib", "pkgconfig", "jq.pc")
	if err := os.MkdirAll(filepath.Dir(pcPath), 0755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	content := "prefix=" + TokenPrefix + "\nlibdir=${prefix}/lib\n"
	if err := os.WriteFile(pcPath, []byte(content), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	res, err := Relocate(kegDir, "/opt/nanobrew/prefix", "/opt/nanobrew/prefix/Cellar")
	if err != nil {
		t.Fatalf("Relocate: %v", err)
	}
	if res.TextFilesRewritten != 1 {
		t.Errorf("TextFilesRewritten = %d, want 1", res.TextFilesRewritten)
	}
	if len(res.Warnings) != 0 {
		t.Errorf("Warnings = %v, want none", res.Warnings)
	}

	got, err := os.ReadFile(pcPath)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	want := "prefix=/opt/nanobrew/prefix\nlibdir=${prefix}/lib\n"
	if string(got) != want {
		t.Errorf("rewritten file = %q, want %q", got, want)
	}
}

func TestRelocateLeavesFilesWithoutTokensUntouched(t *testing.T) {
	kegDir := t.TempDir()
	pcPath := filepath.Join(kegDir, "jq.pc")
	if err := os.WriteFile(pcPath, []byte("prefix=/usr/local\n"), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	res, err := Relocate(kegDir, "/opt/nanobrew/prefix", "/opt/nanobrew/prefix/Cellar")
	if err != nil {
		t.Fatalf("Relocate: %v", err)
	}
	if res.TextFilesRewritten != 0 {
		t.Errorf("TextFilesRewritten = %d, want 0", res.TextFilesRewritten)
	}
}
