package orchestrate

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/nanobrew/nanobrew/internal/blobcache"
	"github.com/nanobrew/nanobrew/internal/fetch"
	"github.com/nanobrew/nanobrew/internal/layout"
	"github.com/nanobrew/nanobrew/internal/materialize"
	"github.com/nanobrew/nanobrew/internal/metadata"
	"github.com/nanobrew/nanobrew/internal/progress"
	"github.com/nanobrew/nanobrew/internal/state"
)

func newTestInstaller(t *testing.T) (*Installer, layout.Layout) {
	t.Helper()
	l := layout.New(t.TempDir())
	if err := l.Init(); err != nil {
		t.Fatalf("layout.Init: %v", err)
	}
	db, err := state.Open(l.DBFile())
	if err != nil {
		t.Fatalf("state.Open: %v", err)
	}
	blobs := blobcache.New(l.BlobsDir(), fetch.New())
	return New(l, blobs, db), l
}

func TestInstallSkipsAlreadyInstalledSameVersion(t *testing.T) {
	in, _ := newTestInstaller(t)
	if err := in.DB.RecordInstall("jq", "1.7", "deadbeef"); err != nil {
		t.Fatalf("RecordInstall: %v", err)
	}

	descs := []*metadata.Descriptor{{Name: "jq", Version: "1.7", ArchiveURL: "http://example.invalid/jq.tar.gz", ArchiveSHA256: "deadbeef"}}
	ch := progress.New([]string{"jq"})
	outcomes := in.Install(context.Background(), descs, ch, false)

	if len(outcomes) != 1 || outcomes[0].Err != nil {
		t.Fatalf("Install() = %+v, want one successful outcome", outcomes)
	}
	if ch.Get(0) != progress.Done {
		t.Errorf("phase = %v, want Done (skip path should still mark terminal)", ch.Get(0))
	}
}

func TestInstallFailsWithoutArchive(t *testing.T) {
	in, _ := newTestInstaller(t)
	descs := []*metadata.Descriptor{{Name: "jq", Version: "1.7"}}
	ch := progress.New([]string{"jq"})
	outcomes := in.Install(context.Background(), descs, ch, false)

	if len(outcomes) != 1 || outcomes[0].Err == nil {
		t.Fatalf("Install() = %+v, want a failure (no archive available)", outcomes)
	}
	if ch.Get(0) != progress.Failed {
		t.Errorf("phase = %v, want Failed", ch.Get(0))
	}
}

func TestInstallSurvivesRelocateWalkFailure(t *testing.T) {
	// Point in.Matl at a different Cellar than in.Layout's, so Materialize
	// succeeds but the kegDir Install computes from in.Layout never
	// exists on disk: Relocate's WalkDir hits it immediately and returns
	// a fatal error, which must be logged and not fail the package
	// (spec.md §4.12, C9).
	in, l := newTestInstaller(t)

	archiveSHA := "deadbeef"
	if err := os.MkdirAll(filepath.Dir(l.BlobPath(archiveSHA)), 0755); err != nil {
		t.Fatalf("seed blob dir: %v", err)
	}
	if err := os.WriteFile(l.BlobPath(archiveSHA), nil, 0644); err != nil {
		t.Fatalf("seed blob: %v", err)
	}
	storeDir := filepath.Join(l.StoreDir(), archiveSHA)
	if err := os.MkdirAll(filepath.Join(storeDir, "jq", "1.7", "bin"), 0755); err != nil {
		t.Fatalf("seed store entry: %v", err)
	}
	if err := os.WriteFile(filepath.Join(storeDir, "jq", "1.7", "bin", "jq"), nil, 0755); err != nil {
		t.Fatalf("seed store entry: %v", err)
	}
	in.Matl = materialize.New(l.StoreDir(), t.TempDir())

	descs := []*metadata.Descriptor{{
		Name: "jq", Version: "1.7",
		ArchiveURL: "http://example.invalid/jq.tar.gz", ArchiveSHA256: archiveSHA,
	}}
	ch := progress.New([]string{"jq"})
	outcomes := in.Install(context.Background(), descs, ch, false)

	if len(outcomes) != 1 {
		t.Fatalf("Install() = %+v, want one outcome", outcomes)
	}
	if outcomes[0].Err != nil {
		t.Errorf("Install() outcome.Err = %v, want nil (a relocate walk failure must not fail the package)", outcomes[0].Err)
	}
	if ch.Get(0) != progress.Done {
		t.Errorf("phase = %v, want Done despite the relocate walk failure", ch.Get(0))
	}
}

func TestRemoveUnlinksAndDeletesKeg(t *testing.T) {
	in, l := newTestInstaller(t)
	kegDir := l.KegPath("jq", "1.7")
	if err := in.DB.RecordInstall("jq", "1.7", "deadbeef"); err != nil {
		t.Fatalf("RecordInstall: %v", err)
	}
	if err := os.MkdirAll(filepath.Join(kegDir, "bin"), 0755); err != nil {
		t.Fatalf("seed keg: %v", err)
	}
	if err := os.WriteFile(filepath.Join(kegDir, "bin", "jq"), nil, 0755); err != nil {
		t.Fatalf("seed keg: %v", err)
	}
	if err := in.Linker.Link("jq", kegDir); err != nil {
		t.Fatalf("Link: %v", err)
	}

	if err := in.Remove("jq"); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if in.DB.Find("jq") != nil {
		t.Errorf("Find(jq) after Remove = non-nil, want nil")
	}
	if _, err := os.Stat(kegDir); !os.IsNotExist(err) {
		t.Errorf("Stat(keg) after Remove: err = %v, want not-exist", err)
	}
	if _, err := os.Lstat(filepath.Join(l.BinDir(), "jq")); !os.IsNotExist(err) {
		t.Errorf("Lstat(bin/jq) after Remove: err = %v, want not-exist", err)
	}
}
