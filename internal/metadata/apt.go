package metadata

import (
	"compress/gzip"
	"fmt"
	"io"
	"strings"

	"github.com/nanobrew/nanobrew/internal/deb"
)

// FetchPackageIndex retrieves the APT Packages index text for
// mirror/dist/component/arch. It tries Packages.gz first and decompresses
// it, falling back to the plain Packages file if that fetch fails.
func (c *Client) FetchPackageIndex(mirror, dist, component, arch string) ([]byte, error) {
	base := fmt.Sprintf("%s/dists/%s/%s/binary-%s/Packages", strings.TrimRight(mirror, "/"), dist, component, arch)
	key := fmt.Sprintf("apt_%s_%s_%s_%s", dist, component, arch, sanitize(mirror))

	b, err := c.cachedGet(base+".gz", key+".gz")
	if err == nil {
		zr, zerr := gzip.NewReader(strings.NewReader(string(b)))
		if zerr != nil {
			return nil, zerr
		}
		defer zr.Close()
		return io.ReadAll(zr)
	}
	return c.cachedGet(base, key)
}

func sanitize(s string) string {
	return strings.Map(func(r rune) rune {
		if r == '/' || r == ':' {
			return '_'
		}
		return r
	}, s)
}

// FetchAPTDescriptors parses an APT Packages index into Descriptors,
// delegating the RFC-822 stanza and Depends-clause parsing to
// internal/deb so resolve/orchestrate never see APT-specific shapes.
func (c *Client) FetchAPTDescriptors(mirror, dist, component, arch string) ([]*Descriptor, error) {
	idx, err := c.FetchPackageIndex(mirror, dist, component, arch)
	if err != nil {
		return nil, err
	}
	stanzas, err := deb.ParseIndex(idx)
	if err != nil {
		return nil, err
	}
	out := make([]*Descriptor, 0, len(stanzas))
	for _, s := range stanzas {
		out = append(out, &Descriptor{
			Name:          s.Package,
			Version:       s.Version,
			Desc:          s.Description,
			Dependencies:  deb.ParseDepends(s.Depends),
			ArchiveURL:    strings.TrimRight(mirror, "/") + "/" + s.Filename,
			ArchiveSHA256: strings.ToLower(s.SHA256),
		})
	}
	return out, nil
}
