package state

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestRecordInstallThenRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	db, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := db.RecordInstall("jq", "1.7", "deadbeef"); err != nil {
		t.Fatalf("RecordInstall: %v", err)
	}

	reopened, err := Open(path)
	if err != nil {
		t.Fatalf("Open (reopen): %v", err)
	}
	rec := reopened.Find("jq")
	if rec == nil {
		t.Fatalf("Find(%q) = nil after reopen", "jq")
	}
	if rec.Version != "1.7" || rec.SHA256 != "deadbeef" {
		t.Errorf("Find(%q) = %+v, want version 1.7 sha deadbeef", "jq", rec)
	}
}

func TestRecordInstallPushesHistory(t *testing.T) {
	db, err := Open(filepath.Join(t.TempDir(), "state.json"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := db.RecordInstall("jq", "1.6", "aaaa"); err != nil {
		t.Fatalf("RecordInstall: %v", err)
	}
	if err := db.RecordInstall("jq", "1.7", "bbbb"); err != nil {
		t.Fatalf("RecordInstall (upgrade): %v", err)
	}

	rec := db.Find("jq")
	if rec.Version != "1.7" {
		t.Fatalf("Find(%q).Version = %q, want 1.7", "jq", rec.Version)
	}
	want := []HistoryEntry{{Version: "1.6", SHA256: "aaaa", Installed: rec.History[0].Installed}}
	if diff := cmp.Diff(want, rec.History); diff != "" {
		t.Errorf("History mismatch (-want +got):\n%s", diff)
	}
}

func TestSetPinnedSurvivesReinstall(t *testing.T) {
	db, err := Open(filepath.Join(t.TempDir(), "state.json"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	db.RecordInstall("jq", "1.6", "aaaa")
	if err := db.SetPinned("jq", true); err != nil {
		t.Fatalf("SetPinned: %v", err)
	}
	db.RecordInstall("jq", "1.7", "bbbb")
	if rec := db.Find("jq"); !rec.Pinned {
		t.Errorf("Pinned = false after re-install, want true")
	}
}

func TestRollbackRestoresPriorVersion(t *testing.T) {
	db, err := Open(filepath.Join(t.TempDir(), "state.json"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	db.RecordInstall("jq", "1.6", "aaaa")
	db.RecordInstall("jq", "1.7", "bbbb")

	if err := db.Rollback("jq"); err != nil {
		t.Fatalf("Rollback: %v", err)
	}
	rec := db.Find("jq")
	if rec.Version != "1.6" || rec.SHA256 != "aaaa" {
		t.Errorf("after Rollback: version=%q sha=%q, want 1.6/aaaa", rec.Version, rec.SHA256)
	}
	if len(rec.History) != 1 || rec.History[0].Version != "1.7" {
		t.Errorf("after Rollback, History = %+v, want one entry for 1.7", rec.History)
	}
}

func TestRollbackWithNoHistoryFails(t *testing.T) {
	db, err := Open(filepath.Join(t.TempDir(), "state.json"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	db.RecordInstall("jq", "1.7", "bbbb")
	if err := db.Rollback("jq"); err == nil {
		t.Fatalf("Rollback() on a keg with no history = nil error, want an error")
	}
}

func TestOpenPreservesUnknownTopLevelFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	seed := []byte(`{"kegs": [], "casks": [], "schema_version": 3}`)
	if err := os.WriteFile(path, seed, 0644); err != nil {
		t.Fatalf("seed: %v", err)
	}

	db, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := db.RecordInstall("jq", "1.7", "aaaa"); err != nil {
		t.Fatalf("RecordInstall: %v", err)
	}

	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if _, ok := raw["schema_version"]; !ok {
		t.Errorf("persisted document lost unknown field %q", "schema_version")
	}
}

func TestRecordRemovalRetainsTombstoneHistory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	db, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	db.RecordInstall("jq", "1.6", "aaaa")
	db.RecordInstall("jq", "1.7", "bbbb")
	if err := db.RecordRemoval("jq"); err != nil {
		t.Fatalf("RecordRemoval: %v", err)
	}

	if rec := db.Find("jq"); rec != nil {
		t.Errorf("Find(%q) = %+v after removal, want nil", "jq", rec)
	}
	removed := db.ListRemoved()
	if len(removed) != 1 {
		t.Fatalf("ListRemoved() = %d entries, want 1", len(removed))
	}
	tomb := removed[0]
	if tomb.SHA256 != "bbbb" {
		t.Errorf("tombstone SHA256 = %q, want %q", tomb.SHA256, "bbbb")
	}
	wantSHAs := map[string]bool{"aaaa": true, "bbbb": true}
	gotSHAs := make(map[string]bool)
	for _, h := range tomb.History {
		gotSHAs[h.SHA256] = true
	}
	if diff := cmp.Diff(wantSHAs, gotSHAs); diff != "" {
		t.Errorf("tombstone history SHAs mismatch (-want +got):\n%s", diff)
	}

	reopened, err := Open(path)
	if err != nil {
		t.Fatalf("Open (reopen): %v", err)
	}
	if len(reopened.ListRemoved()) != 1 {
		t.Errorf("ListRemoved() after reopen = %d entries, want 1", len(reopened.ListRemoved()))
	}
}

func TestRecordInstallResumesFromTombstone(t *testing.T) {
	db, err := Open(filepath.Join(t.TempDir(), "state.json"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	db.RecordInstall("jq", "1.6", "aaaa")
	db.RecordRemoval("jq")
	if err := db.RecordInstall("jq", "1.7", "bbbb"); err != nil {
		t.Fatalf("RecordInstall: %v", err)
	}

	if len(db.ListRemoved()) != 0 {
		t.Errorf("ListRemoved() after reinstall = %d entries, want 0", len(db.ListRemoved()))
	}
	rec := db.Find("jq")
	if rec == nil {
		t.Fatalf("Find(%q) = nil after reinstall", "jq")
	}
	if len(rec.History) != 1 || rec.History[0].SHA256 != "aaaa" {
		t.Errorf("History after reinstall = %+v, want one entry carrying sha aaaa", rec.History)
	}
}

func TestPurgeRemovedClearsTombstones(t *testing.T) {
	db, err := Open(filepath.Join(t.TempDir(), "state.json"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	db.RecordInstall("jq", "1.7", "bbbb")
	db.RecordRemoval("jq")
	if len(db.ListRemoved()) != 1 {
		t.Fatalf("ListRemoved() before purge = %d entries, want 1", len(db.ListRemoved()))
	}
	if err := db.PurgeRemoved(); err != nil {
		t.Fatalf("PurgeRemoved: %v", err)
	}
	if len(db.ListRemoved()) != 0 {
		t.Errorf("ListRemoved() after purge = %d entries, want 0", len(db.ListRemoved()))
	}
}

func TestKegRecordPreservesUnknownFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	seed := []byte(`{"kegs": [{"name": "jq", "version": "1.7", "sha256": "bbbb", "pinned": false, "installed_at": 1, "history": [], "build_flavor": "static"}], "casks": [], "removed": []}`)
	if err := os.WriteFile(path, seed, 0644); err != nil {
		t.Fatalf("seed: %v", err)
	}

	db, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := db.SetPinned("jq", true); err != nil {
		t.Fatalf("SetPinned: %v", err)
	}

	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	var raw struct {
		Kegs []map[string]json.RawMessage `json:"kegs"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if len(raw.Kegs) != 1 {
		t.Fatalf("kegs = %d entries, want 1", len(raw.Kegs))
	}
	if _, ok := raw.Kegs[0]["build_flavor"]; !ok {
		t.Errorf("persisted keg record lost unknown field %q", "build_flavor")
	}
}
