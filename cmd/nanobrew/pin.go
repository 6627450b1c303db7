package main

import (
	"context"
	"flag"
	"fmt"

	"github.com/nanobrew/nanobrew/internal/link"
)

const pinHelp = `nanobrew pin [-flags] <name>...

Pin installed packages so upgrade skips them.

Example:
  % nanobrew pin jq
`

func cmdPin(ctx context.Context, args []string) error {
	return setPinned(args, pinHelp, "pin", true)
}

const unpinHelp = `nanobrew unpin [-flags] <name>...

Unpin previously pinned packages.

Example:
  % nanobrew unpin jq
`

func cmdUnpin(ctx context.Context, args []string) error {
	return setPinned(args, unpinHelp, "unpin", false)
}

func setPinned(args []string, help, verb string, pinned bool) error {
	fset := flag.NewFlagSet(verb, flag.ExitOnError)
	fset.Usage = usage(fset, help)
	fset.Parse(args)

	names := fset.Args()
	if len(names) == 0 {
		return fmt.Errorf("usage: nanobrew %s <name>...", verb)
	}

	e, err := newEnv()
	if err != nil {
		return err
	}

	failed := 0
	for _, name := range names {
		if err := e.DB.SetPinned(name, pinned); err != nil {
			fmt.Printf("%s: %v\n", name, err)
			failed++
			continue
		}
		fmt.Printf("%s: %sned\n", name, verb)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d names failed", failed, len(names))
	}
	return nil
}

const rollbackHelp = `nanobrew rollback [-flags] <name>...

Roll installed packages back to their previously installed version.

Example:
  % nanobrew rollback jq
`

func cmdRollback(ctx context.Context, args []string) error {
	fset := flag.NewFlagSet("rollback", flag.ExitOnError)
	fset.Usage = usage(fset, rollbackHelp)
	fset.Parse(args)

	names := fset.Args()
	if len(names) == 0 {
		return fmt.Errorf("usage: nanobrew rollback <name>...")
	}

	e, err := newEnv()
	if err != nil {
		return err
	}

	failed := 0
	for _, name := range names {
		if err := e.DB.Rollback(name); err != nil {
			fmt.Printf("%s: %v\n", name, err)
			failed++
			continue
		}
		rec := e.DB.Find(name)
		// Re-point the bin/sbin/opt symlinks at the rolled-back version's
		// keg, if its directory is still on disk (materialize never deletes
		// a prior version, only the link overwrites where it points).
		l := link.New(e.Layout.PrefixDir(), e.Layout.BinDir(), e.Layout.SbinDir(), e.Layout.OptDir())
		kegDir := e.Layout.KegPath(name, rec.Version)
		if err := l.Link(name, kegDir); err != nil {
			fmt.Printf("%s: rolled back db record but could not relink: %v\n", name, err)
		}
		fmt.Printf("%s: rolled back to %s\n", name, rec.Version)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d names failed", failed, len(names))
	}
	return nil
}
