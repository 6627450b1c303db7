package main

import (
	"context"
	"flag"
	"fmt"
)

const searchHelp = `nanobrew search [-flags] <query>

Search available formulas and casks by name.

Example:
  % nanobrew search jq
`

func cmdSearch(ctx context.Context, args []string) error {
	fset := flag.NewFlagSet("search", flag.ExitOnError)
	fset.Usage = usage(fset, searchHelp)
	fset.Parse(args)

	if fset.NArg() != 1 {
		return fmt.Errorf("usage: nanobrew search <query>")
	}

	e, err := newEnv()
	if err != nil {
		return err
	}

	results, err := e.Meta.Search(fset.Arg(0))
	if err != nil {
		return err
	}
	for _, r := range results {
		if r.Desc != "" {
			fmt.Printf("%s\t%s\t%s\t%s\n", r.Name, r.Version, r.Kind, r.Desc)
		} else {
			fmt.Printf("%s\t%s\t%s\n", r.Name, r.Version, r.Kind)
		}
	}
	return nil
}
