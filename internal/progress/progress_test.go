package progress

import "testing"

func TestSetGetRoundTrip(t *testing.T) {
	ch := New([]string{"a", "b"})
	ch.Set(0, Downloading)
	ch.Set(1, Done)

	if got := ch.Get(0); got != Downloading {
		t.Errorf("Get(0) = %v, want Downloading", got)
	}
	if got := ch.Get(1); got != Done {
		t.Errorf("Get(1) = %v, want Done", got)
	}
}

func TestAllTerminal(t *testing.T) {
	ch := New([]string{"a", "b"})
	if ch.AllTerminal() {
		t.Fatalf("AllTerminal() = true for freshly created channel")
	}
	ch.Set(0, Done)
	if ch.AllTerminal() {
		t.Fatalf("AllTerminal() = true with one package still Waiting")
	}
	ch.Set(1, Failed)
	if !ch.AllTerminal() {
		t.Fatalf("AllTerminal() = false with every package in a terminal phase")
	}
}

func TestPhaseStringCoversEveryConstant(t *testing.T) {
	for _, p := range []Phase{Waiting, Downloading, Extracting, Installing, Relocating, Linking, Done, Failed} {
		if p.String() == "unknown" {
			t.Errorf("Phase(%d).String() = %q, want a named phase", p, p.String())
		}
	}
}

func TestTerminal(t *testing.T) {
	for _, tc := range []struct {
		p    Phase
		want bool
	}{
		{Waiting, false}, {Downloading, false}, {Done, true}, {Failed, true},
	} {
		if got := tc.p.Terminal(); got != tc.want {
			t.Errorf("%v.Terminal() = %v, want %v", tc.p, got, tc.want)
		}
	}
}
