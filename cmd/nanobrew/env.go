package main

import (
	"os"
	"runtime"

	"github.com/nanobrew/nanobrew/internal/fetch"
	"github.com/nanobrew/nanobrew/internal/layout"
	"github.com/nanobrew/nanobrew/internal/metadata"
	"github.com/nanobrew/nanobrew/internal/state"
)

// rootDir resolves the nanobrew root: $NANOBREW_ROOT if set, else
// layout.DefaultRoot, matching the teacher's env.go preference for a
// single environment-derived override per directory.
func rootDir() string {
	if r := os.Getenv("NANOBREW_ROOT"); r != "" {
		return r
	}
	return layout.DefaultRoot
}

// platformTags is the ordered list of bottle platform aliases probed for
// the running host, most-specific first.
func platformTags() []string {
	switch runtime.GOOS {
	case "darwin":
		if runtime.GOARCH == "arm64" {
			return []string{"arm64_sonoma", "arm64_ventura", "arm64_monterey", "all"}
		}
		return []string{"sonoma", "ventura", "monterey", "all"}
	default:
		return []string{"x86_64_linux", "linux", "all"}
	}
}

// env bundles the collaborators every subcommand needs, built once per
// invocation.
type env struct {
	Layout layout.Layout
	HTTP   *fetch.Client
	Meta   *metadata.Client
	DB     *state.DB
}

// newEnv wires an env rooted at rootDir(), opening (not initializing) the
// state database.
func newEnv() (*env, error) {
	l := layout.New(rootDir())
	if err := l.Verify(); err != nil {
		return nil, err
	}
	httpClient := fetch.New().WithTokenCacheDir(l.TokenCacheDir())
	meta := metadata.New(httpClient, l.APICacheDir(), platformTags()...)
	db, err := state.Open(l.DBFile())
	if err != nil {
		return nil, err
	}
	return &env{Layout: l, HTTP: httpClient, Meta: meta, DB: db}, nil
}
