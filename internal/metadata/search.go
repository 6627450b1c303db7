package metadata

import (
	"encoding/json"
	"strings"
)

// SearchResult is one row of a search(query) response.
type SearchResult struct {
	Name    string
	Version string
	Desc    string
	Kind    string // "formula" or "cask"
}

// Search fetches (through the cache) the full formula and cask indices
// and returns every entry whose name contains query, case-insensitively.
func (c *Client) Search(query string) ([]SearchResult, error) {
	q := strings.ToLower(query)
	var results []SearchResult

	if b, err := c.cachedGet(formulaIndexURL(), "formula_index.json"); err == nil {
		var fjs []formulaJSON
		if json.Unmarshal(b, &fjs) == nil {
			for _, fj := range fjs {
				if strings.Contains(strings.ToLower(fj.Name), q) {
					results = append(results, SearchResult{
						Name: fj.Name, Version: fj.Versions.Stable, Desc: fj.Desc, Kind: "formula",
					})
				}
			}
		}
	}

	if b, err := c.cachedGet(caskIndexURL(), "cask_index.json"); err == nil {
		var cjs []caskJSON
		if json.Unmarshal(b, &cjs) == nil {
			for _, cj := range cjs {
				if strings.Contains(strings.ToLower(cj.Token), q) {
					results = append(results, SearchResult{
						Name: cj.Token, Version: cj.Version, Kind: "cask",
					})
				}
			}
		}
	}

	return results, nil
}
