package main

import (
	"context"
	"flag"
	"fmt"

	"github.com/nanobrew/nanobrew/internal/layout"
)

const initHelp = `nanobrew init [-flags]

Create the nanobrew root directory tree (cache, store, prefix, db).

Example:
  % nanobrew init
`

func cmdInit(ctx context.Context, args []string) error {
	fset := flag.NewFlagSet("init", flag.ExitOnError)
	fset.Usage = usage(fset, initHelp)
	fset.Parse(args)

	l := layout.New(rootDir())
	if err := l.Init(); err != nil {
		return err
	}
	fmt.Printf("initialized %s\n", l.Root)
	return nil
}
