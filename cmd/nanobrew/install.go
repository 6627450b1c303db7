package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/mattn/go-isatty"

	"github.com/nanobrew/nanobrew/internal/blobcache"
	"github.com/nanobrew/nanobrew/internal/caskinstall"
	"github.com/nanobrew/nanobrew/internal/metadata"
	"github.com/nanobrew/nanobrew/internal/orchestrate"
	"github.com/nanobrew/nanobrew/internal/progress"
	"github.com/nanobrew/nanobrew/internal/resolve"
	"github.com/nanobrew/nanobrew/internal/xerr"
)

const installHelp = `nanobrew install [-flags] <name>...

Resolve and install one or more packages and their dependencies.

Example:
  % nanobrew install jq
  % nanobrew install --cask firefox
  % nanobrew install --deb curl
`

// aptDefaults are the mirror/dist/component/arch nanobrew probes when
// --deb is given and no -mirror/-dist/-component/-arch flags override
// them.
const (
	aptDefaultMirror    = "http://deb.debian.org/debian"
	aptDefaultDist      = "stable"
	aptDefaultComponent = "main"
	aptDefaultArch      = "amd64"
)

func cmdInstall(ctx context.Context, args []string) error {
	fset := flag.NewFlagSet("install", flag.ExitOnError)
	fset.Usage = usage(fset, installHelp)
	cask := fset.Bool("cask", false, "install a cask instead of a formula")
	deb := fset.Bool("deb", false, "resolve against a Debian APT index instead of the formula API")
	force := fset.Bool("force", false, "reinstall even if the requested version is already installed")
	mirror := fset.String("mirror", aptDefaultMirror, "APT mirror base URL (with -deb)")
	dist := fset.String("dist", aptDefaultDist, "APT distribution (with -deb)")
	component := fset.String("component", aptDefaultComponent, "APT component (with -deb)")
	arch := fset.String("arch", aptDefaultArch, "APT architecture (with -deb)")
	fset.Parse(args)

	names := fset.Args()
	if len(names) == 0 {
		return fmt.Errorf("usage: nanobrew install [-flags] <name>...")
	}

	e, err := newEnv()
	if err != nil {
		return err
	}

	if *cask {
		return installCasks(ctx, e, names)
	}

	var descs []*metadata.Descriptor
	var notFound []string
	if *deb {
		descs, notFound, err = resolveDeb(ctx, e, *mirror, *dist, *component, *arch, names)
	} else {
		r := resolve.New(e.Meta)
		descs, err = r.Resolve(ctx, names)
		notFound = r.NotFoundRoots()
	}
	if err != nil {
		return err
	}
	for _, name := range notFound {
		fmt.Fprintf(os.Stderr, "%s: %v\n", name, &xerr.NotFound{Name: name})
	}

	blobs := blobcache.New(e.Layout.BlobsDir(), e.HTTP)
	installer := orchestrate.New(e.Layout, blobs, e.DB)

	ch := progress.New(namesOf(descs))
	done := make(chan struct{})
	go func() {
		progress.Render(os.Stdout, ch)
		close(done)
	}()

	outcomes := installer.Install(ctx, descs, ch, *force)
	<-done

	if err := orchestrate.Persist(e.DB, descs, outcomes); err != nil {
		return err
	}

	failed := len(notFound)
	for _, o := range outcomes {
		if o.Err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", o.Name, o.Err)
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d packages failed to install", failed, len(outcomes)+len(notFound))
	}
	return nil
}

func namesOf(descs []*metadata.Descriptor) []string {
	out := make([]string, len(descs))
	for i, d := range descs {
		out[i] = d.Name
	}
	return out
}

// debIndex adapts a pre-fetched APT Packages index into a resolve.Fetcher
// so internal/resolve never needs to know that a descriptor set might
// come from an index snapshot instead of a per-name API.
type debIndex struct {
	byName map[string]*metadata.Descriptor
}

func (idx *debIndex) FetchDescriptor(name string) (*metadata.Descriptor, error) {
	if d, ok := idx.byName[name]; ok {
		return d, nil
	}
	return nil, &xerr.NotFound{Name: name}
}

func resolveDeb(ctx context.Context, e *env, mirror, dist, component, arch string, names []string) ([]*metadata.Descriptor, []string, error) {
	all, err := e.Meta.FetchAPTDescriptors(mirror, dist, component, arch)
	if err != nil {
		return nil, nil, err
	}
	idx := &debIndex{byName: make(map[string]*metadata.Descriptor, len(all))}
	for _, d := range all {
		idx.byName[d.Name] = d
	}
	r := resolve.New(idx)
	descs, err := r.Resolve(ctx, names)
	if err != nil {
		return nil, nil, err
	}
	return descs, r.NotFoundRoots(), nil
}

func installCasks(ctx context.Context, e *env, tokens []string) error {
	in := caskinstall.New(e.HTTP, e.Layout.CacheDir(), e.Layout.CaskroomDir(), e.Layout.BinDir())
	failed := 0
	for _, token := range tokens {
		d, err := e.Meta.FetchCask(token)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", token, err)
			failed++
			continue
		}
		res, err := in.Install(ctx, d)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", token, err)
			failed++
			continue
		}
		if err := e.DB.RecordCaskInstall(d.Token, d.Version, res.Apps, res.Binaries); err != nil {
			return err
		}
		fmt.Printf("%s: installed %s\n", d.Token, d.Version)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d casks failed to install", failed, len(tokens))
	}
	return nil
}

// interactive reports whether stdout is a terminal, for callers that need
// to choose a non-progress, plain-line output mode.
func interactive() bool {
	return isatty.IsTerminal(os.Stdout.Fd())
}
