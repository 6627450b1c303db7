package main

import (
	"context"
	"flag"
	"fmt"
)

const listHelp = `nanobrew list [-flags]

List installed packages and casks.

Example:
  % nanobrew list
`

func cmdList(ctx context.Context, args []string) error {
	fset := flag.NewFlagSet("list", flag.ExitOnError)
	fset.Usage = usage(fset, listHelp)
	fset.Parse(args)

	e, err := newEnv()
	if err != nil {
		return err
	}

	for _, k := range e.DB.List() {
		pin := ""
		if k.Pinned {
			pin = " (pinned)"
		}
		fmt.Printf("%s\t%s%s\n", k.Name, k.Version, pin)
	}
	for _, c := range e.DB.ListCasks() {
		fmt.Printf("%s\t%s (cask)\n", c.Token, c.Version)
	}
	return nil
}
