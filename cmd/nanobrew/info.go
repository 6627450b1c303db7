package main

import (
	"context"
	"flag"
	"fmt"
	"os"
)

const infoHelp = `nanobrew info [-flags] <name>...

Show metadata for one or more packages.

Example:
  % nanobrew info jq
`

func cmdInfo(ctx context.Context, args []string) error {
	fset := flag.NewFlagSet("info", flag.ExitOnError)
	fset.Usage = usage(fset, infoHelp)
	fset.Parse(args)

	names := fset.Args()
	if len(names) == 0 {
		return fmt.Errorf("usage: nanobrew info [-flags] <name>...")
	}

	e, err := newEnv()
	if err != nil {
		return err
	}

	failed := 0
	for _, name := range names {
		d, err := e.Meta.FetchDescriptor(name)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", name, err)
			failed++
			continue
		}
		fmt.Printf("%s: %s\n", d.Name, d.EffectiveVersion())
		if d.Desc != "" {
			fmt.Printf("  %s\n", d.Desc)
		}
		if len(d.Dependencies) > 0 {
			fmt.Printf("  depends on: %v\n", d.Dependencies)
		}
		if rec := e.DB.Find(d.Name); rec != nil {
			fmt.Printf("  installed: %s%s\n", rec.Version, pinSuffix(rec.Pinned))
		} else {
			fmt.Printf("  not installed\n")
		}
		if d.Caveats != "" {
			fmt.Printf("  caveats: %s\n", d.Caveats)
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d names failed", failed, len(names))
	}
	return nil
}

func pinSuffix(pinned bool) string {
	if pinned {
		return " (pinned)"
	}
	return ""
}
