package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/nanobrew/nanobrew"
)

var debug = flag.Bool("debug", false, "format error messages with additional detail")

type verb struct {
	fn   func(ctx context.Context, args []string) error
	help string
}

func verbs() map[string]verb {
	return map[string]verb{
		"init":        {cmdInit, "initialize the nanobrew root directory"},
		"install":     {cmdInstall, "install one or more packages"},
		"remove":      {cmdRemove, "remove one or more installed packages"},
		"list":        {cmdList, "list installed packages"},
		"info":        {cmdInfo, "show metadata for one or more packages"},
		"search":      {cmdSearch, "search available packages by name"},
		"upgrade":     {cmdUpgrade, "upgrade installed packages to their latest version"},
		"outdated":    {cmdOutdated, "list installed packages with a newer version available"},
		"pin":         {cmdPin, "pin a package's version so upgrade skips it"},
		"unpin":       {cmdUnpin, "unpin a previously pinned package"},
		"rollback":    {cmdRollback, "roll a package back to its previously installed version"},
		"bundle":      {cmdBundle, "dump or install from a Bundle manifest"},
		"deps":        {cmdDeps, "print the dependency closure of a package"},
		"services":    {cmdServices, "list, start, stop, or restart installed services"},
		"doctor":      {cmdDoctor, "diagnose common installation problems"},
		"cleanup":     {cmdCleanup, "remove stale cache, store, and history entries"},
		"completions": {cmdCompletions, "print a shell completion script"},
		"update":      {cmdUpdate, "check for and report a newer nanobrew release"},
	}
}

func printHelp(args []string) {
	vs := verbs()
	if len(args) == 1 {
		if v, ok := vs[args[0]]; ok {
			fmt.Fprintf(os.Stderr, "nanobrew %s: %s\n", args[0], v.help)
			return
		}
	}
	fmt.Fprintf(os.Stderr, "nanobrew [-flags] <command> [-flags] <args>\n\n")
	fmt.Fprintf(os.Stderr, "Commands:\n")
	for _, name := range []string{
		"init", "install", "remove", "list", "info", "search", "upgrade",
		"outdated", "pin", "unpin", "rollback", "bundle", "deps", "services",
		"doctor", "cleanup", "completions", "update",
	} {
		fmt.Fprintf(os.Stderr, "  %-12s %s\n", name, vs[name].help)
	}
}

func funcmain() error {
	flag.Parse()
	args := flag.Args()

	verb := "list"
	if len(args) > 0 {
		verb, args = args[0], args[1:]
	}

	if verb == "help" {
		printHelp(args)
		os.Exit(2)
	}

	vs := verbs()
	v, ok := vs[verb]
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown command %q\n", verb)
		printHelp(nil)
		os.Exit(2)
	}

	ctx, cancel := nanobrew.InterruptibleContext()
	defer cancel()

	if err := v.fn(ctx, args); err != nil {
		if *debug {
			return fmt.Errorf("%s: %+v", verb, err)
		}
		return fmt.Errorf("%s: %v", verb, err)
	}
	return nil
}

func main() {
	if err := funcmain(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
