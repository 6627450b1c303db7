package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/nanobrew/nanobrew/internal/layout"
)

const doctorHelp = `nanobrew doctor [-flags]

Diagnose common installation problems: a missing or partial root tree,
a keg recorded in the state db with no corresponding directory, a bin
symlink pointing nowhere.

Example:
  % nanobrew doctor
`

func cmdDoctor(ctx context.Context, args []string) error {
	fset := flag.NewFlagSet("doctor", flag.ExitOnError)
	fset.Usage = usage(fset, doctorHelp)
	fset.Parse(args)

	l := layout.New(rootDir())
	problems := 0

	if err := l.Verify(); err != nil {
		fmt.Printf("root tree: %v\n", err)
		fmt.Printf("%d problem(s) found; run nanobrew init to fix the root tree\n", problems+1)
		return fmt.Errorf("root tree not initialized")
	}
	fmt.Println("root tree: ok")

	e, err := newEnv()
	if err != nil {
		fmt.Printf("state db: %v\n", err)
		problems++
		e = nil
	}
	if e == nil {
		if problems == 0 {
			fmt.Println("no problems found")
			return nil
		}
		return fmt.Errorf("%d problem(s) found", problems)
	}

	for _, k := range e.DB.List() {
		kegDir := l.KegPath(k.Name, k.Version)
		if fi, err := os.Stat(kegDir); err != nil || !fi.IsDir() {
			fmt.Printf("keg %s %s: recorded in state db but missing at %s\n", k.Name, k.Version, kegDir)
			problems++
		}
	}

	for _, dir := range []string{l.BinDir(), l.SbinDir()} {
		entries, err := os.ReadDir(dir)
		if err != nil {
			continue
		}
		for _, ent := range entries {
			linkPath := filepath.Join(dir, ent.Name())
			target, err := os.Readlink(linkPath)
			if err != nil {
				continue
			}
			if _, err := os.Stat(target); err != nil {
				fmt.Printf("dangling symlink: %s -> %s\n", linkPath, target)
				problems++
			}
		}
	}

	if problems == 0 {
		fmt.Println("no problems found")
		return nil
	}
	return fmt.Errorf("%d problem(s) found", problems)
}
