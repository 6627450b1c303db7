package postinstall

import (
	"os"
	"path/filepath"
	"testing"
)

func TestRunMkdirP(t *testing.T) {
	keg := t.TempDir()
	Run(keg, `mkdir_p "var/log"`)

	if fi, err := os.Stat(filepath.Join(keg, "var", "log")); err != nil || !fi.IsDir() {
		t.Fatalf("var/log not created: %v", err)
	}
}

func TestRunLnSf(t *testing.T) {
	keg := t.TempDir()
	if err := os.WriteFile(filepath.Join(keg, "real.conf"), []byte("x"), 0644); err != nil {
		t.Fatalf("seed file: %v", err)
	}
	Run(keg, `ln_sf "real.conf", "link.conf"`)

	link := filepath.Join(keg, "link.conf")
	target, err := os.Readlink(link)
	if err != nil {
		t.Fatalf("Readlink: %v", err)
	}
	if target != "real.conf" {
		t.Errorf("symlink target = %q, want real.conf", target)
	}
}

func TestRunUnrecognizedConstructIsANoOp(t *testing.T) {
	keg := t.TempDir()
	// Should not panic and should not create any files.
	Run(keg, `(Dir/"share").glob("*.txt").each { |f| f.chmod 0644 }`)

	entries, err := os.ReadDir(keg)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("unrecognized construct created %d entries, want 0", len(entries))
	}
}
