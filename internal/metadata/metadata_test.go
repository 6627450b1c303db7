package metadata

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/nanobrew/nanobrew/internal/fetch"
)

func TestFetchDescriptorPicksFirstMatchingPlatformAlias(t *testing.T) {
	const formulaJSONBody = `{
		"name": "jq",
		"versions": {"stable": "1.7"},
		"desc": "Command-line JSON processor",
		"dependencies": ["oniguruma"],
		"post_install_defined": true,
		"bottle": {
			"stable": {
				"rebuild": 1,
				"files": {
					"arm64_sonoma": {"url": "https://example.com/jq-arm64.tar.gz", "sha256": "aaa"},
					"x86_64_linux": {"url": "https://example.com/jq-linux.tar.gz", "sha256": "bbb"}
				}
			}
		}
	}`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(formulaJSONBody))
	}))
	defer srv.Close()

	old := DefaultAPIBase
	DefaultAPIBase = srv.URL
	defer func() { DefaultAPIBase = old }()

	c := New(fetch.New(), t.TempDir(), "x86_64_linux", "arm64_sonoma")
	d, err := c.FetchDescriptor("jq")
	if err != nil {
		t.Fatalf("FetchDescriptor: %v", err)
	}

	want := &Descriptor{
		Name:               "jq",
		Version:            "1.7",
		Rebuild:            1,
		Desc:               "Command-line JSON processor",
		Dependencies:       []string{"oniguruma"},
		PostInstallDefined: true,
		ArchiveURL:         "https://example.com/jq-linux.tar.gz",
		ArchiveSHA256:      "bbb",
	}
	if diff := cmp.Diff(want, d); diff != "" {
		t.Errorf("FetchDescriptor() mismatch (-want +got):\n%s", diff)
	}
}

func TestFetchDescriptorNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "not found", http.StatusNotFound)
	}))
	defer srv.Close()

	old := DefaultAPIBase
	DefaultAPIBase = srv.URL
	defer func() { DefaultAPIBase = old }()

	c := New(fetch.New(), t.TempDir())
	if _, err := c.FetchDescriptor("doesnotexist"); err == nil {
		t.Fatal("FetchDescriptor() on a 404 = nil, want error")
	}
}

func TestFetchCaskParsesHeterogeneousArtifacts(t *testing.T) {
	const caskJSONBody = `{
		"token": "my-app",
		"name": ["My App"],
		"version": "2.0",
		"url": "https://example.com/myapp.dmg",
		"sha256": "no_check",
		"artifacts": [
			{"app": ["My App.app"]},
			{"binary": ["myapp"]}
		]
	}`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(caskJSONBody))
	}))
	defer srv.Close()

	old := DefaultAPIBase
	DefaultAPIBase = srv.URL
	defer func() { DefaultAPIBase = old }()

	c := New(fetch.New(), t.TempDir())
	d, err := c.FetchCask("my-app")
	if err != nil {
		t.Fatalf("FetchCask: %v", err)
	}
	if d.SHA256 != "no_check" {
		t.Errorf("SHA256 = %q, want %q", d.SHA256, "no_check")
	}
	want := []CaskArtifact{
		{Kind: "app", Payload: []string{"My App.app"}},
		{Kind: "binary", Payload: []string{"myapp"}},
	}
	if diff := cmp.Diff(want, d.Artifacts); diff != "" {
		t.Errorf("Artifacts mismatch (-want +got):\n%s", diff)
	}
}

func TestDescriptorEffectiveVersion(t *testing.T) {
	d := &Descriptor{Version: "1.7"}
	if got, want := d.EffectiveVersion(), "1.7"; got != want {
		t.Errorf("EffectiveVersion() = %q, want %q", got, want)
	}
	d.Rebuild = 2
	if got, want := d.EffectiveVersion(), "1.7_2"; got != want {
		t.Errorf("EffectiveVersion() = %q, want %q", got, want)
	}
}

func TestDescriptorHasBinary(t *testing.T) {
	d := &Descriptor{}
	if d.HasBinary() {
		t.Error("HasBinary() with no ArchiveURL = true, want false")
	}
	d.ArchiveURL = "https://example.com/jq.tar.gz"
	if !d.HasBinary() {
		t.Error("HasBinary() with ArchiveURL set = false, want true")
	}
}
