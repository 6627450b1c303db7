package caskinstall

import "testing"

func TestPayloadExt(t *testing.T) {
	for _, tt := range []struct {
		url  string
		want string
	}{
		{"https://example.com/app.dmg", ".dmg"},
		{"https://example.com/app.zip", ".zip"},
		{"https://example.com/app.pkg", ".pkg"},
		{"https://example.com/app.tar.gz", ".tar.gz"},
		{"https://example.com/app.bin", ""},
	} {
		if got := payloadExt(tt.url); got != tt.want {
			t.Errorf("payloadExt(%q) = %q, want %q", tt.url, got, tt.want)
		}
	}
}

func TestLastVolumesPath(t *testing.T) {
	out := "/dev/disk4          	GUID_partition_scheme\n/dev/disk4s1        	Apple_HFS                      	/Volumes/MyApp\n"
	if got, want := lastVolumesPath(out), "/Volumes/MyApp"; got != want {
		t.Errorf("lastVolumesPath() = %q, want %q", got, want)
	}
	if got := lastVolumesPath("no mount here"); got != "" {
		t.Errorf("lastVolumesPath() = %q, want empty string", got)
	}
}
