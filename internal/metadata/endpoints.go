package metadata

import (
	"net/url"

	"github.com/nanobrew/nanobrew/internal/xerr"
)

// DefaultAPIBase is the formula/cask API root. It's a package-level var
// (not a const) so tests and alternate deployments can override it
// without plumbing a config object through every call site, matching the
// teacher's preference for small overridable package vars over a config
// struct (see cmd/distri/env.go's use of environment-derived globals).
var DefaultAPIBase = "https://formulae.brew.sh/api"

func formulaURL(name string) string {
	return DefaultAPIBase + "/formula/" + url.PathEscape(name) + ".json"
}

func caskURL(token string) string {
	return DefaultAPIBase + "/cask/" + url.PathEscape(token) + ".json"
}

func formulaIndexURL() string { return DefaultAPIBase + "/formula.json" }
func caskIndexURL() string    { return DefaultAPIBase + "/cask.json" }

func isNotFound(err error) bool {
	ne, ok := err.(*xerr.NetworkError)
	return ok && ne.StatusCode == 404
}
