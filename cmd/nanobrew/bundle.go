package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/nanobrew/nanobrew/internal/blobcache"
	"github.com/nanobrew/nanobrew/internal/orchestrate"
	"github.com/nanobrew/nanobrew/internal/progress"
	"github.com/nanobrew/nanobrew/internal/resolve"
)

const bundleHelp = `nanobrew bundle dump|install [file]

dump writes every installed formula (as "brew \"name\"" lines) and cask
(as "cask \"token\"" lines) to file, or stdout if file is omitted.
install reads file (or stdin) and installs everything it names.

Example:
  % nanobrew bundle dump Brewfile
  % nanobrew bundle install Brewfile
`

func cmdBundle(ctx context.Context, args []string) error {
	fset := flag.NewFlagSet("bundle", flag.ExitOnError)
	fset.Usage = usage(fset, bundleHelp)
	fset.Parse(args)

	rest := fset.Args()
	if len(rest) == 0 {
		return fmt.Errorf("usage: nanobrew bundle dump|install [file]")
	}
	sub, rest := rest[0], rest[1:]

	e, err := newEnv()
	if err != nil {
		return err
	}

	switch sub {
	case "dump":
		return bundleDump(e, rest)
	case "install":
		return bundleInstall(ctx, e, rest)
	default:
		return fmt.Errorf("bundle: unknown subcommand %q", sub)
	}
}

func bundleDump(e *env, args []string) error {
	w := os.Stdout
	if len(args) > 0 {
		f, err := os.Create(args[0])
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	}
	for _, k := range e.DB.List() {
		fmt.Fprintf(w, "brew %q\n", k.Name)
	}
	for _, c := range e.DB.ListCasks() {
		fmt.Fprintf(w, "cask %q\n", c.Token)
	}
	return nil
}

func bundleInstall(ctx context.Context, e *env, args []string) error {
	r := os.Stdin
	if len(args) > 0 {
		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer f.Close()
		r = f
	}

	var formulas, casks []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		kind, name, ok := parseBundleLine(sc.Text())
		if !ok {
			continue
		}
		switch kind {
		case "brew":
			formulas = append(formulas, name)
		case "cask":
			casks = append(casks, name)
		}
	}
	if err := sc.Err(); err != nil {
		return err
	}

	if len(casks) > 0 {
		if err := installCasks(ctx, e, casks); err != nil {
			return err
		}
	}
	if len(formulas) == 0 {
		return nil
	}

	r2 := resolve.New(e.Meta)
	descs, err := r2.Resolve(ctx, formulas)
	if err != nil {
		return err
	}
	blobs := blobcache.New(e.Layout.BlobsDir(), e.HTTP)
	installer := orchestrate.New(e.Layout, blobs, e.DB)
	ch := progress.New(namesOf(descs))
	done := make(chan struct{})
	go func() {
		progress.Render(os.Stdout, ch)
		close(done)
	}()
	outcomes := installer.Install(ctx, descs, ch, false)
	<-done
	return orchestrate.Persist(e.DB, descs, outcomes)
}

// parseBundleLine recognizes `brew "name"` and `cask "token"` lines,
// ignoring anything else (comments, tap/vscode/mas directives this
// implementation doesn't support).
func parseBundleLine(line string) (kind, name string, ok bool) {
	line = strings.TrimSpace(line)
	for _, k := range []string{"brew", "cask"} {
		if !strings.HasPrefix(line, k+" ") {
			continue
		}
		rest := strings.TrimSpace(line[len(k):])
		rest = strings.Trim(rest, `"`)
		if rest == "" {
			return "", "", false
		}
		return k, rest, true
	}
	return "", "", false
}
