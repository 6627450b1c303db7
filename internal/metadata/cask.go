package metadata

import (
	"context"
	"encoding/json"

	"github.com/nanobrew/nanobrew/internal/xerr"
)

// caskJSON is the permissive decode target for a Homebrew-style cask
// document. artifacts is heterogeneous: each element is an object whose
// single key names the artifact kind ("app", "binary", "pkg",
// "uninstall") and whose value is a list of payload strings.
type caskJSON struct {
	Token   string   `json:"token"`
	Name    []string `json:"name"`
	Version string   `json:"version"`
	URL     string   `json:"url"`
	// SHA256 may legitimately be the literal string "no_check".
	SHA256    json.RawMessage   `json:"sha256"`
	Artifacts []json.RawMessage `json:"artifacts"`
}

// FetchCask fetches and parses the cask document for token.
func (c *Client) FetchCask(token string) (*CaskDescriptor, error) {
	b, err := c.HTTP.GetToMemory(context.Background(), caskURL(token), nil)
	if err != nil {
		if isNotFound(err) {
			return nil, &xerr.NotFound{Name: token}
		}
		return nil, err
	}
	var cj caskJSON
	if err := json.Unmarshal(b, &cj); err != nil {
		return nil, &xerr.Malformed{Source: token, Err: err}
	}

	d := &CaskDescriptor{
		Token:   cj.Token,
		Name:    cj.Name,
		Version: cj.Version,
		URL:     cj.URL,
	}
	if d.Token == "" {
		d.Token = token
	}
	var sha string
	_ = json.Unmarshal(cj.SHA256, &sha)
	d.SHA256 = sha

	for _, raw := range cj.Artifacts {
		var asMap map[string]json.RawMessage
		if err := json.Unmarshal(raw, &asMap); err != nil {
			continue // malformed artifact entries are skipped, not fatal
		}
		for _, kind := range []string{"app", "binary", "pkg", "uninstall"} {
			payload, ok := asMap[kind]
			if !ok {
				continue
			}
			var strs []string
			if err := json.Unmarshal(payload, &strs); err != nil {
				var one string
				if err := json.Unmarshal(payload, &one); err == nil {
					strs = []string{one}
				}
			}
			d.Artifacts = append(d.Artifacts, CaskArtifact{Kind: kind, Payload: strs})
		}
	}
	return d, nil
}
