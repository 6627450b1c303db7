// Package fetch is the HTTP collaborator used by the metadata client and
// the blob cache: GET-to-memory for small JSON/index documents,
// GET-to-file with streaming checksum verification for archives.
package fetch

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/google/renameio"
	"golang.org/x/xerrors"

	"github.com/nanobrew/nanobrew/internal/xerr"
)

const maxRedirects = 5

// Client wraps an *http.Client with the redirect and auth policy the
// pipeline needs. One Client is shared by all orchestrator workers of a
// batch; *http.Client is safe for concurrent use.
type Client struct {
	HTTP *http.Client
	auth *ociAuth
}

// New returns a Client with sane transport defaults (connection reuse,
// bounded idle conns per host, as the teacher's httpClient in
// cmd/distri/install.go configures).
func New() *Client {
	return &Client{
		HTTP: &http.Client{
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 10,
			},
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= maxRedirects {
					return xerrors.Errorf("stopped after %d redirects", maxRedirects)
				}
				return nil
			},
		},
		auth: newOCIAuth(),
	}
}

// WithTokenCacheDir enables OCI-registry bearer-token caching under dir.
func (c *Client) WithTokenCacheDir(dir string) *Client {
	c.auth.cacheDir = dir
	return c
}

func (c *Client) newRequest(ctx context.Context, url string, headers map[string]string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	if tok, err := c.auth.tokenFor(ctx, c.HTTP, url); err == nil && tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	return req, nil
}

// GetToMemory performs a GET request and returns the full response body.
// Any non-200 status is a NetworkError.
func (c *Client) GetToMemory(ctx context.Context, url string, headers map[string]string) ([]byte, error) {
	req, err := c.newRequest(ctx, url, headers)
	if err != nil {
		return nil, &xerr.NetworkError{URL: url, Err: err}
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, &xerr.NetworkError{URL: url, Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, &xerr.NetworkError{URL: url, StatusCode: resp.StatusCode, Err: xerrors.Errorf("HTTP status %s", resp.Status)}
	}
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &xerr.NetworkError{URL: url, Err: err}
	}
	return b, nil
}

// GetToFile downloads url to destPath. If destPath already exists this is
// a no-op success (idempotent). When expectedSHA256 is non-empty the body
// is hashed incrementally while it streams to a temp file; on mismatch the
// temp file is unlinked and ChecksumMismatch is returned without
// publishing destPath. On success the temp file is atomically renamed
// over destPath via renameio, matching the teacher's renameio.TempFile
// usage in cmd/distri/install.go's hookinstall.
func (c *Client) GetToFile(ctx context.Context, url, destPath string, headers map[string]string, expectedSHA256 string) error {
	if _, err := os.Stat(destPath); err == nil {
		return nil // idempotent: already present
	}

	req, err := c.newRequest(ctx, url, headers)
	if err != nil {
		return &xerr.NetworkError{URL: url, Err: err}
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return &xerr.NetworkError{URL: url, Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return &xerr.NetworkError{URL: url, StatusCode: resp.StatusCode, Err: xerrors.Errorf("HTTP status %s", resp.Status)}
	}

	t, err := renameio.TempFile("", destPath)
	if err != nil {
		return &xerr.NetworkError{URL: url, Err: err}
	}
	defer t.Cleanup()

	var body io.Reader = resp.Body
	h := sha256.New()
	if expectedSHA256 != "" {
		body = io.TeeReader(resp.Body, h)
	}
	if _, err := io.Copy(t, body); err != nil {
		return &xerr.NetworkError{URL: url, Err: err}
	}

	if expectedSHA256 != "" {
		got := hex.EncodeToString(h.Sum(nil))
		if got != expectedSHA256 {
			return &xerr.ChecksumMismatch{URL: url, Want: expectedSHA256, Got: got}
		}
	}

	if err := t.CloseAtomicallyReplace(); err != nil {
		return &xerr.NetworkError{URL: url, Err: err}
	}
	return nil
}

// connectTimeoutContext bounds ancillary, non-archive requests (e.g. the
// version-check banner) to 3 seconds for the whole request, per
// spec.md §5's "≤ 3s" guidance.
func connectTimeoutContext(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, 3*time.Second)
}

// GetToMemoryQuick is GetToMemory bounded by connectTimeoutContext, for
// ancillary requests like the update-check banner.
func (c *Client) GetToMemoryQuick(ctx context.Context, url string, headers map[string]string) ([]byte, error) {
	ctx, cancel := connectTimeoutContext(ctx)
	defer cancel()
	return c.GetToMemory(ctx, url, headers)
}
