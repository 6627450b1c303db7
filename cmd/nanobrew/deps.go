package main

import (
	"context"
	"flag"
	"fmt"

	"github.com/nanobrew/nanobrew/internal/metadata"
	"github.com/nanobrew/nanobrew/internal/resolve"
)

const depsHelp = `nanobrew deps [-flags] <name>

Print the dependency closure of a package, in install order. With -tree,
print it as a nested tree instead.

Example:
  % nanobrew deps jq
  % nanobrew deps -tree jq
`

func cmdDeps(ctx context.Context, args []string) error {
	fset := flag.NewFlagSet("deps", flag.ExitOnError)
	fset.Usage = usage(fset, depsHelp)
	tree := fset.Bool("tree", false, "print as a nested tree instead of flat install order")
	fset.Parse(args)

	if fset.NArg() != 1 {
		return fmt.Errorf("usage: nanobrew deps [-tree] <name>")
	}
	name := fset.Arg(0)

	e, err := newEnv()
	if err != nil {
		return err
	}

	r := resolve.New(e.Meta)
	descs, err := r.Resolve(ctx, []string{name})
	if err != nil {
		return err
	}

	byName := make(map[string]*metadata.Descriptor, len(descs))
	for _, d := range descs {
		byName[d.Name] = d
	}

	if !*tree {
		for _, d := range descs {
			if d.Name == name {
				continue
			}
			fmt.Println(d.Name)
		}
		return nil
	}

	root, ok := byName[name]
	if !ok {
		return fmt.Errorf("%s: not found", name)
	}
	printTree(root, byName, 0, map[string]bool{})
	return nil
}

func printTree(d *metadata.Descriptor, byName map[string]*metadata.Descriptor, depth int, onPath map[string]bool) {
	for i := 0; i < depth; i++ {
		fmt.Print("  ")
	}
	fmt.Println(d.Name)

	if onPath[d.Name] {
		return // cycle guard: the resolver already rejects true cycles, this only
		// prevents runaway recursion if a dependency appears twice in one path
	}
	onPath[d.Name] = true
	defer delete(onPath, d.Name)

	for _, depName := range d.Dependencies {
		dep, ok := byName[depName]
		if !ok {
			continue
		}
		printTree(dep, byName, depth+1, onPath)
	}
}
