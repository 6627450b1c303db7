package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/nanobrew/nanobrew/internal/layout"
)

const cleanupHelp = `nanobrew cleanup [-flags]

Remove cached blobs and store entries that no installed keg's history
references. With -all, also remove every history entry's prior versions,
leaving only the currently active version of each installed keg.

Example:
  % nanobrew cleanup -dry-run
  % nanobrew cleanup -all
`

func cmdCleanup(ctx context.Context, args []string) error {
	fset := flag.NewFlagSet("cleanup", flag.ExitOnError)
	fset.Usage = usage(fset, cleanupHelp)
	dryRun := fset.Bool("dry-run", false, "print what would be removed without removing it")
	all := fset.Bool("all", false, "also remove superseded versions of installed kegs")
	fset.Parse(args)

	l := layout.New(rootDir())
	e, err := newEnv()
	if err != nil {
		return err
	}

	keep := make(map[string]bool) // sha256 values still referenced
	for _, k := range e.DB.List() {
		keep[k.SHA256] = true
		if !*all {
			for _, h := range k.History {
				keep[h.SHA256] = true
			}
		}
	}
	// Removed-but-retained tombstones protect their blob/store entries the
	// same way an active record's history does, unless -all asks to purge
	// everything not currently active (spec.md §4.11, P6, S6).
	if !*all {
		for _, k := range e.DB.ListRemoved() {
			keep[k.SHA256] = true
			for _, h := range k.History {
				keep[h.SHA256] = true
			}
		}
	}

	var toRemove []string
	removeUnderDir := func(dir string) error {
		entries, err := os.ReadDir(dir)
		if err != nil {
			return nil
		}
		for _, ent := range entries {
			if keep[ent.Name()] {
				continue
			}
			toRemove = append(toRemove, filepath.Join(dir, ent.Name()))
		}
		return nil
	}
	if err := removeUnderDir(l.BlobsDir()); err != nil {
		return err
	}
	if err := removeUnderDir(l.StoreDir()); err != nil {
		return err
	}

	if *all {
		for _, k := range e.DB.List() {
			for _, h := range k.History {
				kegDir := l.KegPath(k.Name, h.Version)
				if kegDir != l.KegPath(k.Name, k.Version) {
					toRemove = append(toRemove, kegDir)
				}
			}
		}
	}

	for _, path := range toRemove {
		if *dryRun {
			fmt.Printf("would remove %s\n", path)
			continue
		}
		if err := os.RemoveAll(path); err != nil {
			fmt.Fprintf(os.Stderr, "removing %s: %v\n", path, err)
			continue
		}
		fmt.Printf("removed %s\n", path)
	}

	// -all drops every removed-package tombstone too: their protection
	// just lapsed, and leaving them in place would make the next
	// non--all cleanup think those files were still referenced.
	if *all && !*dryRun && len(e.DB.ListRemoved()) > 0 {
		if err := e.DB.PurgeRemoved(); err != nil {
			return err
		}
	}
	return nil
}
