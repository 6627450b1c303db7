package deb

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestParseIndexFoldsContinuationLines(t *testing.T) {
	idx := []byte(`Package: jq
Version: 1.7-1
Depends: libc6 (>= 2.17), libonig5
Filename: pool/main/j/jq/jq_1.7-1_amd64.deb
SHA256: abcdef
Description: lightweight JSON processor
 a command-line JSON processor

Package: curl
Version: 8.4.0-1
Depends: libc6 (>= 2.17)
Filename: pool/main/c/curl/curl_8.4.0-1_amd64.deb
SHA256: 123456
Description: command line tool for transferring data
`)
	got, err := ParseIndex(idx)
	if err != nil {
		t.Fatalf("ParseIndex: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("ParseIndex() returned %d stanzas, want 2", len(got))
	}
	if got[0].Package != "jq" || got[0].Version != "1.7-1" {
		t.Errorf("stanza[0] = %+v, want Package=jq Version=1.7-1", got[0])
	}
	wantDesc := "lightweight JSON processor\na command-line JSON processor"
	if got[0].Description != wantDesc {
		t.Errorf("stanza[0].Description = %q, want %q", got[0].Description, wantDesc)
	}
	if got[1].Package != "curl" {
		t.Errorf("stanza[1].Package = %q, want curl", got[1].Package)
	}
}

func TestParseDependsStripsConstraintsAndQualifiers(t *testing.T) {
	for _, tt := range []struct {
		field string
		want  []string
	}{
		{"libc6 (>= 2.17), libonig5", []string{"libc6", "libonig5"}},
		{"libfoo [amd64]", []string{"libfoo"}},
		{"liba | libb, libc", []string{"liba", "libc"}},
		{"", nil},
	} {
		got := ParseDepends(tt.field)
		if diff := cmp.Diff(tt.want, got); diff != "" {
			t.Errorf("ParseDepends(%q) mismatch (-want +got):\n%s", tt.field, diff)
		}
	}
}
