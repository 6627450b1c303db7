// Package orchestrate drives the per-package install pipeline (C12):
// download, extract, materialize, relocate, link, each package advancing
// through internal/progress's state machine, with a bounded worker
// fan-out and a single serial pass over internal/state once every worker
// has joined. Modeled on cmd/distri/install.go's installTransitively
// worker pool, generalized from one shared read-only image mount to a
// per-package materialize/relocate/link sequence.
package orchestrate

import (
	"context"
	"fmt"
	"os"

	"golang.org/x/sync/errgroup"
	"golang.org/x/xerrors"

	"github.com/nanobrew/nanobrew/internal/blobcache"
	"github.com/nanobrew/nanobrew/internal/layout"
	"github.com/nanobrew/nanobrew/internal/link"
	"github.com/nanobrew/nanobrew/internal/materialize"
	"github.com/nanobrew/nanobrew/internal/metadata"
	"github.com/nanobrew/nanobrew/internal/postinstall"
	"github.com/nanobrew/nanobrew/internal/progress"
	"github.com/nanobrew/nanobrew/internal/relocate"
	"github.com/nanobrew/nanobrew/internal/state"
	"github.com/nanobrew/nanobrew/internal/store"
)

// maxWorkers bounds the number of packages installed concurrently.
const maxWorkers = 8

// Outcome is one package's terminal pipeline result.
type Outcome struct {
	Name          string
	ActualVersion string
	Err           error
}

// Installer wires together every component C2-C11 needed to carry a
// resolved descriptor from "known" to "linked into the prefix".
type Installer struct {
	Layout  layout.Layout
	Blobs   *blobcache.Cache
	Store   *store.Store
	Matl    *materialize.Materializer
	Linker  *link.Linker
	DB      *state.DB
}

// New wires an Installer from a Layout and a shared state.DB.
func New(l layout.Layout, blobs *blobcache.Cache, db *state.DB) *Installer {
	return &Installer{
		Layout: l,
		Blobs:  blobs,
		Store:  store.New(l.StoreDir()),
		Matl:   materialize.New(l.StoreDir(), l.CellarDir()),
		Linker: link.New(l.PrefixDir(), l.BinDir(), l.SbinDir(), l.OptDir()),
		DB:     db,
	}
}

// Install resolves descs into installed kegs, skipping any whose name
// already has an active record at the same effective version unless
// force is set, publishing phase transitions through ch. Descriptors
// must already be in dependency order (as internal/resolve returns
// them); Install processes them concurrently regardless, since
// materialize/relocate/link never need a dependency's keg to be in
// place first — only the package's own descriptor fields.
func (in *Installer) Install(ctx context.Context, descs []*metadata.Descriptor, ch *progress.Channel, force bool) []Outcome {
	outcomes := make([]Outcome, len(descs))
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(maxWorkers)

	for i, d := range descs {
		i, d := i, d
		eg.Go(func() error {
			outcomes[i] = in.installOne(egCtx, d, ch, i, force)
			return nil // per-package failures are reported, not propagated
		})
	}
	_ = eg.Wait()
	return outcomes
}

func (in *Installer) installOne(ctx context.Context, d *metadata.Descriptor, ch *progress.Channel, idx int, force bool) Outcome {
	name := d.Name
	effective := d.EffectiveVersion()

	if !force {
		if rec := in.DB.Find(name); rec != nil && rec.Version == effective {
			ch.Set(idx, progress.Done)
			return Outcome{Name: name, ActualVersion: rec.Version}
		}
	}

	if !d.HasBinary() {
		ch.Set(idx, progress.Failed)
		return Outcome{Name: name, Err: xerrors.Errorf("%s: no pre-built archive available", name)}
	}

	ch.Set(idx, progress.Downloading)
	if err := in.Blobs.Ensure(ctx, d.ArchiveURL, d.ArchiveSHA256); err != nil {
		ch.Set(idx, progress.Failed)
		return Outcome{Name: name, Err: err}
	}

	ch.Set(idx, progress.Extracting)
	if err := in.Store.Ensure(in.Layout.BlobPath(d.ArchiveSHA256), d.ArchiveSHA256); err != nil {
		ch.Set(idx, progress.Failed)
		return Outcome{Name: name, Err: err}
	}

	ch.Set(idx, progress.Installing)
	actualVersion, err := in.Matl.Materialize(d.ArchiveSHA256, name, d.Version)
	if err != nil {
		ch.Set(idx, progress.Failed)
		return Outcome{Name: name, Err: err}
	}
	kegDir := in.Layout.KegPath(name, actualVersion)

	ch.Set(idx, progress.Relocating)
	// A fatal relocate error (the tree walk itself failing) is logged, not
	// fatal to the package: spec.md §4.12 (C9) only asks that references be
	// rewritten where possible, so linking still proceeds.
	if res, err := relocate.Relocate(kegDir, in.Layout.PrefixDir(), in.Layout.CellarDir()); err != nil {
		fmt.Fprintf(os.Stderr, "warning: %s: relocate: %v\n", name, err)
	} else {
		for _, w := range res.Warnings {
			fmt.Fprintf(os.Stderr, "warning: %v\n", w)
		}
	}

	if d.PostInstallDefined && d.PostInstallScript != "" {
		postinstall.Run(kegDir, d.PostInstallScript)
	}

	ch.Set(idx, progress.Linking)
	if err := in.Linker.Link(name, kegDir); err != nil {
		ch.Set(idx, progress.Failed)
		return Outcome{Name: name, Err: err}
	}

	ch.Set(idx, progress.Done)
	return Outcome{Name: name, ActualVersion: actualVersion}
}

// Persist serially records every successful outcome in db, after every
// worker in the batch has joined — spec.md §5's single-writer discipline
// for the state database.
func Persist(db *state.DB, descs []*metadata.Descriptor, outcomes []Outcome) error {
	for i, o := range outcomes {
		if o.Err != nil {
			continue
		}
		if err := db.RecordInstall(o.Name, o.ActualVersion, descs[i].ArchiveSHA256); err != nil {
			return err
		}
	}
	return nil
}

// Remove unlinks and deletes the Cellar keg for name, then removes its
// state record.
func (in *Installer) Remove(name string) error {
	rec := in.DB.Find(name)
	if rec == nil {
		return xerrors.Errorf("%s: not installed", name)
	}
	kegDir := in.Layout.KegPath(name, rec.Version)
	if err := in.Linker.Unlink(name, kegDir); err != nil {
		return err
	}
	if err := os.RemoveAll(kegDir); err != nil {
		return err
	}
	return in.DB.RecordRemoval(name)
}
