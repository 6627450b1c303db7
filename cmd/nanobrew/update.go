package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"

	"github.com/nanobrew/nanobrew/internal/fetch"
)

const updateHelp = `nanobrew update [-flags]

Check a fixed version endpoint for a newer nanobrew release. Does not
modify any installed package (use upgrade for that).

Example:
  % nanobrew update
`

// versionCheckURL is the banner endpoint consulted by update. It's a
// package var, not a const, so tests can point it at a fixture server.
var versionCheckURL = "https://nanobrew.dev/api/latest-version"

// Version is the running binary's own version, set at release build time
// via -ldflags. Unset in development builds.
var Version = "dev"

func cmdUpdate(ctx context.Context, args []string) error {
	fset := flag.NewFlagSet("update", flag.ExitOnError)
	fset.Usage = usage(fset, updateHelp)
	fset.Parse(args)

	b, err := fetch.New().GetToMemoryQuick(ctx, versionCheckURL, nil)
	if err != nil {
		fmt.Printf("running %s; could not check for a newer release: %v\n", Version, err)
		return nil
	}
	var resp struct {
		Version string `json:"version"`
	}
	if err := json.Unmarshal(b, &resp); err != nil || resp.Version == "" {
		fmt.Printf("running %s; could not parse latest-version response\n", Version)
		return nil
	}
	if resp.Version == Version {
		fmt.Printf("running %s, already the latest release\n", Version)
		return nil
	}
	fmt.Printf("running %s; %s is available\n", Version, resp.Version)
	return nil
}
