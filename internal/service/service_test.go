package service

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestParseServiceNamesSystemd(t *testing.T) {
	out := `nanobrew.postgresql.service      loaded active running PostgreSQL database server
nanobrew.redis.service           loaded active running Redis key-value store
unrelated.service                loaded active running Something else
`
	got := parseServiceNames(out, "nanobrew.")
	want := []string{"postgresql", "redis"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("parseServiceNames() mismatch (-want +got):\n%s", diff)
	}
}

func TestParseServiceNamesLaunchd(t *testing.T) {
	out := `PID	Status	Label
-	0	nanobrew.postgresql
1234	0	com.apple.something
`
	got := parseServiceNames(out, "nanobrew.")
	want := []string{"postgresql"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("parseServiceNames() mismatch (-want +got):\n%s", diff)
	}
}
