// Package resolve computes the transitive dependency closure of a set of
// requested package names and orders it topologically, the way
// cmd/distri/install.go's installTransitively1 fans out metadata fetches
// with an errgroup before doing any filesystem work.
package resolve

import (
	"context"

	"golang.org/x/sync/errgroup"
	"golang.org/x/xerrors"

	"github.com/nanobrew/nanobrew/internal/metadata"
	"github.com/nanobrew/nanobrew/internal/xerr"
)

// Descriptor is the subset of metadata.Descriptor the resolver needs; the
// concrete metadata.Descriptor satisfies it, kept as an interface-free
// alias so package boundaries stay simple (no runtime dispatch needed
// here, per spec.md §9's note that only the platform capability set
// warrants an interface).
type Descriptor = metadata.Descriptor

// Fetcher is the minimal metadata-client surface the resolver needs.
type Fetcher interface {
	FetchDescriptor(name string) (*Descriptor, error)
}

// maxFanOut bounds the number of concurrent metadata fetches per
// frontier expansion.
const maxFanOut = 16

// Resolver maintains the known/edges maps across repeated Resolve calls,
// matching spec.md §4.4's idempotency requirement: resolving the same
// roots twice returns the same order without re-fetching known
// descriptors.
type Resolver struct {
	fetch Fetcher

	known map[string]*Descriptor
	edges map[string][]string

	// notFoundRoots accumulates the requested root names (not transitive
	// dependencies) that resolved to xerr.NotFound across Resolve calls, so
	// callers can report them and still install whatever did resolve
	// (spec.md B2).
	notFoundRoots []string
}

// New returns a Resolver that fetches descriptors through fetch.
func New(fetch Fetcher) *Resolver {
	return &Resolver{
		fetch: fetch,
		known: make(map[string]*Descriptor),
		edges: make(map[string][]string),
	}
}

// Resolve expands roots' transitive dependency closure and returns it in
// topological order (dependencies before dependents). Returns a *xerr.Cycle
// if the graph is not a DAG.
func (r *Resolver) Resolve(ctx context.Context, roots []string) ([]*Descriptor, error) {
	isRoot := make(map[string]bool, len(roots))
	for _, name := range roots {
		isRoot[name] = true
	}

	frontier := make([]string, 0, len(roots))
	for _, name := range roots {
		if _, ok := r.known[name]; !ok {
			frontier = append(frontier, name)
		}
	}

	queued := make(map[string]bool)
	for _, n := range frontier {
		queued[n] = true
	}

	for len(frontier) > 0 {
		descs, err := r.fetchFrontier(ctx, frontier)
		if err != nil {
			return nil, err
		}

		var next []string
		for i, name := range frontier {
			d := descs[i]
			if d == nil {
				// NotFound: skip expanding this name, matching spec.md B2
				// (a batch keeps going); a requested root must still be
				// reported, so record it for the caller to surface.
				if isRoot[name] {
					r.notFoundRoots = append(r.notFoundRoots, name)
				}
				continue
			}
			r.known[name] = d
			r.edges[name] = d.Dependencies
			for _, dep := range d.Dependencies {
				if _, ok := r.known[dep]; ok {
					continue
				}
				if queued[dep] {
					continue
				}
				queued[dep] = true
				next = append(next, dep)
			}
		}
		frontier = next
	}

	return r.topoSort(roots)
}

// NotFoundRoots returns the requested root names that resolved to
// xerr.NotFound across every Resolve call made on r so far.
func (r *Resolver) NotFoundRoots() []string { return r.notFoundRoots }

// fetchFrontier fetches descriptors for names in parallel, bounded by
// maxFanOut goroutines, returning a slice aligned with names (nil entries
// for names that resolved to xerr.NotFound).
func (r *Resolver) fetchFrontier(ctx context.Context, names []string) ([]*Descriptor, error) {
	out := make([]*Descriptor, len(names))
	eg, _ := errgroup.WithContext(ctx)
	eg.SetLimit(maxFanOut)
	for i, name := range names {
		i, name := i, name
		eg.Go(func() error {
			d, err := r.fetch.FetchDescriptor(name)
			if err != nil {
				if _, ok := err.(*xerr.NotFound); ok {
					return nil
				}
				return xerrors.Errorf("fetching %s: %w", name, err)
			}
			out[i] = d
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// topoSort performs Kahn's algorithm over r.known/r.edges. Order within a
// ready-set is insertion order, matching the order names were first
// discovered, for reproducibility (spec.md §4.4).
func (r *Resolver) topoSort(roots []string) ([]*Descriptor, error) {
	// insertion order across all known names, roots first (roots are the
	// names the user actually asked for; dependency order among them is
	// otherwise arbitrary).
	order := make([]string, 0, len(r.known))
	seen := make(map[string]bool)
	add := func(n string) {
		if !seen[n] {
			seen[n] = true
			order = append(order, n)
		}
	}
	for _, n := range roots {
		if _, ok := r.known[n]; ok {
			add(n)
		}
	}
	// then dependencies breadth-first in edge order, which is the order
	// Resolve discovered them; names known only from earlier calls follow.
	for i := 0; i < len(order); i++ {
		for _, d := range r.edges[order[i]] {
			if _, ok := r.known[d]; ok {
				add(d)
			}
		}
	}
	for n := range r.known {
		add(n)
	}

	indegree := make(map[string]int, len(r.known))
	for n := range r.known {
		indegree[n] = 0
	}
	for n, deps := range r.edges {
		if _, ok := r.known[n]; !ok {
			continue
		}
		for _, d := range deps {
			if _, ok := r.known[d]; ok {
				indegree[n]++
			}
		}
	}

	ready := make([]string, 0, len(order))
	for _, n := range order {
		if indegree[n] == 0 {
			ready = append(ready, n)
		}
	}

	// parents[d] = names that depend on d, so we can decrement their
	// in-degree when d is emitted.
	parents := make(map[string][]string)
	for _, n := range order {
		deps := r.edges[n]
		if _, ok := r.known[n]; !ok {
			continue
		}
		for _, d := range deps {
			if _, ok := r.known[d]; ok {
				parents[d] = append(parents[d], n)
			}
		}
	}

	var emitted []*Descriptor
	emittedSet := make(map[string]bool)
	for len(ready) > 0 {
		n := ready[0]
		ready = ready[1:]
		if emittedSet[n] {
			continue
		}
		emittedSet[n] = true
		emitted = append(emitted, r.known[n])
		for _, p := range parents[n] {
			indegree[p]--
			if indegree[p] == 0 {
				ready = append(ready, p)
			}
		}
	}

	if len(emitted) < len(r.known) {
		var stuck []string
		for _, n := range order {
			if !emittedSet[n] {
				stuck = append(stuck, n)
			}
		}
		return nil, &xerr.Cycle{Stuck: stuck}
	}

	return emitted, nil
}
