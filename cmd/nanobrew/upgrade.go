package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/nanobrew/nanobrew/internal/blobcache"
	"github.com/nanobrew/nanobrew/internal/metadata"
	"github.com/nanobrew/nanobrew/internal/orchestrate"
	"github.com/nanobrew/nanobrew/internal/progress"
	"github.com/nanobrew/nanobrew/internal/resolve"
)

const upgradeHelp = `nanobrew upgrade [-flags] [<name>...]

Upgrade installed packages to their latest available version. With no
names, every installed, unpinned package is considered.

Example:
  % nanobrew upgrade
  % nanobrew upgrade jq
`

func cmdUpgrade(ctx context.Context, args []string) error {
	fset := flag.NewFlagSet("upgrade", flag.ExitOnError)
	fset.Usage = usage(fset, upgradeHelp)
	cask := fset.Bool("cask", false, "upgrade casks instead of formulas")
	fset.Parse(args)

	e, err := newEnv()
	if err != nil {
		return err
	}

	if *cask {
		return upgradeCasks(ctx, e, fset.Args())
	}

	names := fset.Args()
	if len(names) == 0 {
		for _, k := range e.DB.List() {
			names = append(names, k.Name)
		}
	}
	if len(names) == 0 {
		fmt.Println("nothing to upgrade")
		return nil
	}

	r := resolve.New(e.Meta)
	descs, err := r.Resolve(ctx, names)
	if err != nil {
		return err
	}

	// A package (a requested root or part of the dependency closure
	// resolve pulled in) is reinstalled only when its recorded version
	// differs from the resolved effective version. Pinned packages are
	// announced and skipped.
	var outOfDate []*metadata.Descriptor
	for _, d := range descs {
		rec := e.DB.Find(d.Name)
		if rec != nil && rec.Pinned {
			fmt.Printf("%s [pinned, skipping]\n", d.Name)
			continue
		}
		if rec == nil || rec.Version != d.EffectiveVersion() {
			outOfDate = append(outOfDate, d)
		}
	}
	if len(outOfDate) == 0 {
		fmt.Println("already up to date")
		return nil
	}

	blobs := blobcache.New(e.Layout.BlobsDir(), e.HTTP)
	installer := orchestrate.New(e.Layout, blobs, e.DB)

	ch := progress.New(namesOf(outOfDate))
	done := make(chan struct{})
	go func() {
		progress.Render(os.Stdout, ch)
		close(done)
	}()
	outcomes := installer.Install(ctx, outOfDate, ch, true)
	<-done

	if err := orchestrate.Persist(e.DB, outOfDate, outcomes); err != nil {
		return err
	}
	failed := 0
	for _, o := range outcomes {
		if o.Err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", o.Name, o.Err)
			failed++
		} else {
			fmt.Printf("%s: upgraded to %s\n", o.Name, o.ActualVersion)
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d packages failed to upgrade", failed, len(outcomes))
	}
	return nil
}

func upgradeCasks(ctx context.Context, e *env, tokens []string) error {
	if len(tokens) == 0 {
		for _, c := range e.DB.ListCasks() {
			tokens = append(tokens, c.Token)
		}
	}
	return installCasks(ctx, e, tokens)
}

const outdatedHelp = `nanobrew outdated [-flags]

List installed packages for which a newer version is available.

Example:
  % nanobrew outdated
`

func cmdOutdated(ctx context.Context, args []string) error {
	fset := flag.NewFlagSet("outdated", flag.ExitOnError)
	fset.Usage = usage(fset, outdatedHelp)
	fset.Parse(args)

	e, err := newEnv()
	if err != nil {
		return err
	}

	for _, k := range e.DB.List() {
		d, err := e.Meta.FetchDescriptor(k.Name)
		if err != nil {
			continue
		}
		if d.EffectiveVersion() != k.Version {
			fmt.Printf("%s\t%s -> %s\n", k.Name, k.Version, d.EffectiveVersion())
		}
	}
	return nil
}
