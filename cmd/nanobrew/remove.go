package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/nanobrew/nanobrew/internal/blobcache"
	"github.com/nanobrew/nanobrew/internal/orchestrate"
)

const removeHelp = `nanobrew remove [-flags] <name>...

Remove one or more installed packages.

Example:
  % nanobrew remove jq
  % nanobrew remove --cask firefox
`

func cmdRemove(ctx context.Context, args []string) error {
	fset := flag.NewFlagSet("remove", flag.ExitOnError)
	fset.Usage = usage(fset, removeHelp)
	cask := fset.Bool("cask", false, "remove a cask instead of a formula")
	fset.Parse(args)

	names := fset.Args()
	if len(names) == 0 {
		return fmt.Errorf("usage: nanobrew remove [-flags] <name>...")
	}

	e, err := newEnv()
	if err != nil {
		return err
	}

	if *cask {
		failed := 0
		for _, token := range names {
			rec := e.DB.FindCask(token)
			if rec == nil {
				fmt.Fprintf(os.Stderr, "%s: not installed\n", token)
				failed++
				continue
			}
			for _, bin := range rec.Binaries {
				_ = os.Remove(filepath.Join(e.Layout.BinDir(), bin))
			}
			if err := os.RemoveAll(filepath.Join(e.Layout.CaskroomDir(), token)); err != nil {
				fmt.Fprintf(os.Stderr, "%s: %v\n", token, err)
				failed++
				continue
			}
			if err := e.DB.RecordCaskRemoval(token); err != nil {
				fmt.Fprintf(os.Stderr, "%s: %v\n", token, err)
				failed++
				continue
			}
			fmt.Printf("%s: removed\n", token)
		}
		if failed > 0 {
			return fmt.Errorf("%d of %d casks failed to remove", failed, len(names))
		}
		return nil
	}

	blobs := blobcache.New(e.Layout.BlobsDir(), e.HTTP)
	installer := orchestrate.New(e.Layout, blobs, e.DB)

	failed := 0
	for _, name := range names {
		if err := installer.Remove(name); err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", name, err)
			failed++
			continue
		}
		fmt.Printf("%s: removed\n", name)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d packages failed to remove", failed, len(names))
	}
	return nil
}
