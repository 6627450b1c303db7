// Package metadata fetches and parses package metadata: Homebrew-style
// formula JSON, Homebrew-style cask JSON, and APT Packages indices. It
// never exposes the name of the underlying wire format to callers —
// internal/resolve and internal/orchestrate only ever see a Descriptor.
package metadata

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/nanobrew/nanobrew/internal/fetch"
	"github.com/nanobrew/nanobrew/internal/xerr"
)

// listCacheTTL is the on-disk cache lifetime (by file mtime) for
// full-list endpoints (formula index, APT Packages file). Per spec.md
// §4.3, this is a tuning parameter.
const listCacheTTL = time.Hour

// Descriptor is parsed metadata for one package, independent of whether
// it is installed. Immutable after construction.
type Descriptor struct {
	Name         string
	Version      string
	Rebuild      int64
	Desc         string
	Dependencies []string // ordered, direct dependency names

	ArchiveURL    string
	ArchiveSHA256 string // 64 lowercase hex

	SourceURL    string
	SourceSHA256 string

	Caveats            string
	PostInstallDefined bool
	PostInstallScript  string
}

// EffectiveVersion mirrors nanobrew.Ident.EffectiveVersion for a Descriptor.
func (d *Descriptor) EffectiveVersion() string {
	if d.Rebuild == 0 {
		return d.Version
	}
	return d.Version + "_" + itoa(d.Rebuild)
}

func itoa(n int64) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}

// HasBinary reports whether d has a pre-built archive (the fast path) as
// opposed to only a source tarball.
func (d *Descriptor) HasBinary() bool { return d.ArchiveURL != "" }

// CaskArtifact is one element of a cask's heterogeneous artifacts array.
type CaskArtifact struct {
	Kind string // "app", "binary", "pkg", or "uninstall"
	// Payload holds the kind-specific string(s): the app bundle name, the
	// binary name, the pkg filename, or uninstall directives joined.
	Payload []string
}

// CaskDescriptor is parsed metadata for one cask.
type CaskDescriptor struct {
	Token     string
	Name      []string
	Version   string
	URL       string
	SHA256    string // may be "no_check"
	Artifacts []CaskArtifact
}

// Client fetches and parses descriptors from one or more configured
// repositories. It owns no state beyond its HTTP client and cache
// directory; callers construct one per command invocation.
type Client struct {
	HTTP     *fetch.Client
	CacheDir string

	// PlatformAliases is the ordered list of platform tags probed when a
	// bottle/binary is not present for the primary tag, per spec.md §4.3.
	PlatformAliases []string
}

// New returns a Client reading through httpClient, caching full-list
// documents under cacheDir.
func New(httpClient *fetch.Client, cacheDir string, platformAliases ...string) *Client {
	return &Client{HTTP: httpClient, CacheDir: cacheDir, PlatformAliases: platformAliases}
}

// cachedGet serves url from cacheDir/key if younger than listCacheTTL,
// else fetches, writes the cache file, and returns the fresh body.
func (c *Client) cachedGet(url, key string) ([]byte, error) {
	fn := filepath.Join(c.CacheDir, key)
	if fi, err := os.Stat(fn); err == nil && time.Since(fi.ModTime()) < listCacheTTL {
		if b, err := os.ReadFile(fn); err == nil {
			return b, nil
		}
	}
	b, err := c.HTTP.GetToMemory(context.Background(), url, nil)
	if err != nil {
		return nil, err
	}
	_ = os.MkdirAll(c.CacheDir, 0755)
	_ = os.WriteFile(fn, b, 0644)
	return b, nil
}

// formulaJSON is the permissive decode target for a Homebrew-style
// formula document. Every field is optional; missing fields default to
// their zero value, and a missing name falls back to the requested name.
type formulaJSON struct {
	Name     string `json:"name"`
	Versions struct {
		Stable string `json:"stable"`
	} `json:"versions"`
	Revision     int64    `json:"revision"`
	Desc         string   `json:"desc"`
	Dependencies []string `json:"dependencies"`
	Caveats      string   `json:"caveats"`
	PostInstall  bool     `json:"post_install_defined"`
	Bottle       struct {
		Stable struct {
			Files   map[string]formulaBottleFile `json:"files"`
			Rebuild int64                        `json:"rebuild"`
		} `json:"stable"`
	} `json:"bottle"`
	URLs struct {
		Stable struct {
			URL      string `json:"url"`
			Checksum string `json:"checksum"`
		} `json:"stable"`
	} `json:"urls"`
}

type formulaBottleFile struct {
	URL    string `json:"url"`
	SHA256 string `json:"sha256"`
}

// FetchDescriptor fetches and parses the formula document for name.
func (c *Client) FetchDescriptor(name string) (*Descriptor, error) {
	b, err := c.HTTP.GetToMemory(context.Background(), formulaURL(name), nil)
	if err != nil {
		if isNotFound(err) {
			return nil, &xerr.NotFound{Name: name}
		}
		return nil, err
	}
	var fj formulaJSON
	if err := json.Unmarshal(b, &fj); err != nil {
		return nil, &xerr.Malformed{Source: name, Err: err}
	}

	d := &Descriptor{
		Name:               fj.Name,
		Version:            fj.Versions.Stable,
		Rebuild:            fj.Bottle.Stable.Rebuild,
		Desc:               fj.Desc,
		Dependencies:       fj.Dependencies,
		Caveats:            fj.Caveats,
		PostInstallDefined: fj.PostInstall,
		SourceURL:          fj.URLs.Stable.URL,
		SourceSHA256:       fj.URLs.Stable.Checksum,
	}
	if d.Name == "" {
		d.Name = name
	}
	if d.Rebuild == 0 {
		d.Rebuild = fj.Revision
	}

	// Fall back through platform aliases before declaring "no binary",
	// per spec.md §4.3.
	for _, tag := range c.PlatformAliases {
		if bf, ok := fj.Bottle.Stable.Files[tag]; ok {
			d.ArchiveURL = bf.URL
			d.ArchiveSHA256 = bf.SHA256
			break
		}
	}
	return d, nil
}
