// Package state persists the install-state database: one JSON document
// with an ordered list of keg records and an ordered list of cask
// records, round-tripped so unknown fields survive an upgrade/downgrade
// cycle (spec.md §4.11, §6, §9).
package state

import (
	"encoding/json"
	"os"
	"time"

	"github.com/google/renameio"

	"github.com/nanobrew/nanobrew/internal/xerr"
)

// HistoryEntry is one prior installed version of a package, retained
// after a re-install/upgrade/rollback.
type HistoryEntry struct {
	Version   string `json:"version"`
	SHA256    string `json:"sha256"`
	Installed int64  `json:"installed_at"`
}

// KegRecord is the persisted entry for one installed package. At most one
// record exists per Name at a time. Unknown fields from a newer schema
// are preserved across a read-modify-write cycle the same way document
// preserves unknown top-level fields (spec.md §9).
type KegRecord struct {
	Name      string         `json:"name"`
	Version   string         `json:"version"`
	SHA256    string         `json:"sha256"`
	Pinned    bool           `json:"pinned"`
	Installed int64          `json:"installed_at"`
	History   []HistoryEntry `json:"history"`

	extra map[string]json.RawMessage
}

// kegRecordAlias has KegRecord's fields without its MarshalJSON/
// UnmarshalJSON methods, so those methods can decode/encode through it
// without recursing into themselves.
type kegRecordAlias KegRecord

var kegRecordKnownFields = []string{"name", "version", "sha256", "pinned", "installed_at", "history"}

func (k *KegRecord) UnmarshalJSON(b []byte) error {
	var a kegRecordAlias
	if err := json.Unmarshal(b, &a); err != nil {
		return err
	}
	*k = KegRecord(a)

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(b, &raw); err == nil {
		for _, known := range kegRecordKnownFields {
			delete(raw, known)
		}
		if len(raw) > 0 {
			k.extra = raw
		}
	}
	return nil
}

func (k KegRecord) MarshalJSON() ([]byte, error) {
	b, err := json.Marshal(kegRecordAlias(k))
	if err != nil {
		return nil, err
	}
	if len(k.extra) == 0 {
		return b, nil
	}
	var m map[string]json.RawMessage
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, err
	}
	for key, v := range k.extra {
		if _, exists := m[key]; !exists {
			m[key] = v
		}
	}
	return json.Marshal(m)
}

// CaskRecord is the persisted entry for one installed cask. Unknown
// fields are preserved the same way as KegRecord.
type CaskRecord struct {
	Token    string   `json:"token"`
	Version  string   `json:"version"`
	Apps     []string `json:"apps"`
	Binaries []string `json:"binaries"`

	extra map[string]json.RawMessage
}

type caskRecordAlias CaskRecord

var caskRecordKnownFields = []string{"token", "version", "apps", "binaries"}

func (c *CaskRecord) UnmarshalJSON(b []byte) error {
	var a caskRecordAlias
	if err := json.Unmarshal(b, &a); err != nil {
		return err
	}
	*c = CaskRecord(a)

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(b, &raw); err == nil {
		for _, known := range caskRecordKnownFields {
			delete(raw, known)
		}
		if len(raw) > 0 {
			c.extra = raw
		}
	}
	return nil
}

func (c CaskRecord) MarshalJSON() ([]byte, error) {
	b, err := json.Marshal(caskRecordAlias(c))
	if err != nil {
		return nil, err
	}
	if len(c.extra) == 0 {
		return b, nil
	}
	var m map[string]json.RawMessage
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, err
	}
	for key, v := range c.extra {
		if _, exists := m[key]; !exists {
			m[key] = v
		}
	}
	return json.Marshal(m)
}

// document is the on-disk shape of db/state.json.
type document struct {
	Kegs    []*KegRecord  `json:"kegs"`
	Casks   []*CaskRecord `json:"casks"`
	Removed []*KegRecord  `json:"removed"`

	extra map[string]json.RawMessage
}

// DB is the opened state database for one command invocation. Per
// spec.md §5, it is single-writer and only ever mutated between worker
// spawns/joins — there is no internal locking.
type DB struct {
	path string
	doc  document
}

// Open reads path if it exists, or starts from an empty document.
// Unknown top-level fields are preserved via a raw second decode pass so
// Persist can round-trip them.
func Open(path string) (*DB, error) {
	db := &DB{path: path, doc: document{}}

	b, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return db, nil
	}
	if err != nil {
		return nil, &xerr.DBError{Path: path, Err: err}
	}

	if err := json.Unmarshal(b, &db.doc); err != nil {
		return nil, &xerr.DBError{Path: path, Err: err}
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(b, &raw); err == nil {
		delete(raw, "kegs")
		delete(raw, "casks")
		delete(raw, "removed")
		db.doc.extra = raw
	}
	return db, nil
}

// Find returns the active record for name, or nil if none exists.
func (db *DB) Find(name string) *KegRecord {
	for _, k := range db.doc.Kegs {
		if k.Name == name {
			return k
		}
	}
	return nil
}

// FindCask returns the active record for token, or nil if none exists.
func (db *DB) FindCask(token string) *CaskRecord {
	for _, c := range db.doc.Casks {
		if c.Token == token {
			return c
		}
	}
	return nil
}

// List returns every keg record in insertion order.
func (db *DB) List() []*KegRecord { return db.doc.Kegs }

// ListRemoved returns every tombstone left behind by RecordRemoval, in
// insertion order. A tombstone retains the removed package's full
// history (including what was its active version at removal time) so
// cleanup can still recognize those blobs/store entries as referenced
// (spec.md §4.11, P6, S6) even though the package is no longer active.
func (db *DB) ListRemoved() []*KegRecord { return db.doc.Removed }

// ListCasks returns every cask record in insertion order.
func (db *DB) ListCasks() []*CaskRecord { return db.doc.Casks }

// RecordInstall removes any existing record for name (pushing its
// previous {version, sha, installed_at} onto the new record's history),
// then inserts the new record, and persists. A reinstall of a name that
// was previously removed resumes from its tombstone's history instead of
// starting over, and drops the tombstone.
func (db *DB) RecordInstall(name, version, sha string) error {
	var history []HistoryEntry
	var extra map[string]json.RawMessage
	pinned := false
	idx := -1
	for i, k := range db.doc.Kegs {
		if k.Name == name {
			idx = i
			history = append(append([]HistoryEntry{}, k.History...), HistoryEntry{
				Version: k.Version, SHA256: k.SHA256, Installed: k.Installed,
			})
			pinned = k.Pinned
			extra = k.extra
			break
		}
	}
	if idx < 0 {
		for _, t := range db.doc.Removed {
			if t.Name == name {
				history = append([]HistoryEntry{}, t.History...)
				pinned = t.Pinned
				extra = t.extra
				break
			}
		}
	}
	db.removeTombstone(name)
	rec := &KegRecord{
		Name:      name,
		Version:   version,
		SHA256:    sha,
		Pinned:    pinned,
		Installed: time.Now().Unix(),
		History:   history,
		extra:     extra,
	}
	if idx >= 0 {
		db.doc.Kegs[idx] = rec
	} else {
		db.doc.Kegs = append(db.doc.Kegs, rec)
	}
	return db.persist()
}

// RecordRemoval removes the active record for name and retains it as a
// tombstone under Removed, full History intact plus its own
// {version, sha, installed_at} pushed on top, so cleanup (without -all)
// keeps treating its blob/store entries as referenced even though the
// package is no longer installed (spec.md §4.11, P6, S6). A later
// RecordInstall or PurgeRemoved drops the tombstone.
func (db *DB) RecordRemoval(name string) error {
	for i, k := range db.doc.Kegs {
		if k.Name == name {
			db.doc.Kegs = append(db.doc.Kegs[:i], db.doc.Kegs[i+1:]...)
			tomb := &KegRecord{
				Name:    k.Name,
				Version: k.Version,
				SHA256:  k.SHA256,
				Pinned:  k.Pinned,
				History: append(append([]HistoryEntry{}, k.History...), HistoryEntry{
					Version: k.Version, SHA256: k.SHA256, Installed: k.Installed,
				}),
				extra: k.extra,
			}
			db.removeTombstone(name)
			db.doc.Removed = append(db.doc.Removed, tomb)
			break
		}
	}
	return db.persist()
}

// removeTombstone drops any existing tombstone for name, used before
// RecordInstall or RecordRemoval replace it, so repeated
// install/remove cycles don't accumulate unbounded tombstones.
func (db *DB) removeTombstone(name string) {
	for i, k := range db.doc.Removed {
		if k.Name == name {
			db.doc.Removed = append(db.doc.Removed[:i], db.doc.Removed[i+1:]...)
			return
		}
	}
}

// PurgeRemoved clears every tombstone, used by `cleanup -all` once it has
// removed the blobs/store entries a tombstone was the last thing
// protecting: leaving the tombstone behind would make the next
// non--all cleanup believe those files were still referenced.
func (db *DB) PurgeRemoved() error {
	db.doc.Removed = nil
	return db.persist()
}

// SetPinned mutates and persists the pinned flag for name.
func (db *DB) SetPinned(name string, pinned bool) error {
	for _, k := range db.doc.Kegs {
		if k.Name == name {
			k.Pinned = pinned
			return db.persist()
		}
	}
	return &xerr.NotFound{Name: name}
}

// Rollback pops the most recent history entry for name and makes it the
// active record, pushing the current record onto history in its place.
// Returns an error if name has no history to roll back to (spec.md B4).
func (db *DB) Rollback(name string) error {
	rec := db.Find(name)
	if rec == nil {
		return &xerr.NotFound{Name: name}
	}
	if len(rec.History) == 0 {
		return &xerr.DBError{Path: db.path, Err: errNoHistory{Name: name}}
	}
	prev := rec.History[len(rec.History)-1]
	newHistory := append(append([]HistoryEntry{}, rec.History[:len(rec.History)-1]...), HistoryEntry{
		Version: rec.Version, SHA256: rec.SHA256, Installed: rec.Installed,
	})
	rec.Version = prev.Version
	rec.SHA256 = prev.SHA256
	rec.Installed = prev.Installed
	rec.History = newHistory
	return db.persist()
}

type errNoHistory struct{ Name string }

func (e errNoHistory) Error() string { return e.Name + ": no history to roll back to" }

// RecordCaskInstall inserts or replaces the cask record for token.
func (db *DB) RecordCaskInstall(token, version string, apps, binaries []string) error {
	rec := &CaskRecord{Token: token, Version: version, Apps: apps, Binaries: binaries}
	for i, c := range db.doc.Casks {
		if c.Token == token {
			rec.extra = c.extra
			db.doc.Casks[i] = rec
			return db.persist()
		}
	}
	db.doc.Casks = append(db.doc.Casks, rec)
	return db.persist()
}

// RecordCaskRemoval removes the cask record for token.
func (db *DB) RecordCaskRemoval(token string) error {
	for i, c := range db.doc.Casks {
		if c.Token == token {
			db.doc.Casks = append(db.doc.Casks[:i], db.doc.Casks[i+1:]...)
			break
		}
	}
	return db.persist()
}

// persist writes the document write-all-then-rename via renameio, so
// readers never observe a truncated file, and re-merges any unknown
// top-level fields preserved at Open time.
func (db *DB) persist() error {
	out := make(map[string]json.RawMessage, len(db.doc.extra)+3)
	for k, v := range db.doc.extra {
		out[k] = v
	}
	kegsJSON, err := json.MarshalIndent(db.doc.Kegs, "", "  ")
	if err != nil {
		return &xerr.DBError{Path: db.path, Err: err}
	}
	casksJSON, err := json.MarshalIndent(db.doc.Casks, "", "  ")
	if err != nil {
		return &xerr.DBError{Path: db.path, Err: err}
	}
	removedJSON, err := json.MarshalIndent(db.doc.Removed, "", "  ")
	if err != nil {
		return &xerr.DBError{Path: db.path, Err: err}
	}
	out["kegs"] = kegsJSON
	out["casks"] = casksJSON
	out["removed"] = removedJSON

	b, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return &xerr.DBError{Path: db.path, Err: err}
	}
	if err := renameio.WriteFile(db.path, b, 0644); err != nil {
		return &xerr.DBError{Path: db.path, Err: err}
	}
	return nil
}
