// Package progress is the thread-safe per-package phase signal consumed
// by a renderer: one atomic cell per package index, written by exactly
// one worker and read by exactly one renderer, so no locks are needed
// (spec.md §4.13).
package progress

import (
	"fmt"
	"os"
	"sync/atomic"
	"time"

	"github.com/mattn/go-isatty"
)

// Phase is a pipeline state, per spec.md §4.12's state machine.
type Phase int32

const (
	Waiting Phase = iota
	Downloading
	Extracting
	Installing
	Relocating
	Linking
	Done
	Failed
)

func (p Phase) String() string {
	switch p {
	case Waiting:
		return "waiting"
	case Downloading:
		return "downloading"
	case Extracting:
		return "extracting"
	case Installing:
		return "installing"
	case Relocating:
		return "relocating"
	case Linking:
		return "linking"
	case Done:
		return "done"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Terminal reports whether p is a terminal state (Done or Failed).
func (p Phase) Terminal() bool { return p == Done || p == Failed }

// Channel holds one atomic Phase cell per package, indexed by position in
// the install batch.
type Channel struct {
	names  []string
	phases []atomic.Int32
}

// New returns a Channel with one Waiting cell per name.
func New(names []string) *Channel {
	return &Channel{names: names, phases: make([]atomic.Int32, len(names))}
}

// Set publishes phase for package index i. Relaxed-to-release semantics:
// atomic.Int32.Store already provides the ordering the single-reader
// renderer needs.
func (c *Channel) Set(i int, phase Phase) {
	c.phases[i].Store(int32(phase))
}

// Get reads the current phase for package index i (acquire load).
func (c *Channel) Get(i int) Phase {
	return Phase(c.phases[i].Load())
}

// Names returns the package names in batch order.
func (c *Channel) Names() []string { return c.names }

// Len returns the number of packages in the batch.
func (c *Channel) Len() int { return len(c.names) }

// AllTerminal reports whether every package has reached Done or Failed.
func (c *Channel) AllTerminal() bool {
	for i := range c.names {
		if !c.Get(i).Terminal() {
			return false
		}
	}
	return true
}

// PollInterval is the renderer's polling cadence, per spec.md §4.13.
const PollInterval = 80 * time.Millisecond

// Render drives a renderer for ch until every package reaches a terminal
// phase, writing to w. When w is a TTY, Render redraws a fixed block of
// per-package status lines in place; otherwise it falls back to a flat
// append-only log, since cursor movement escapes would just corrupt a
// redirected file or CI log.
func Render(w *os.File, ch *Channel) {
	if isatty.IsTerminal(w.Fd()) {
		renderTTY(w, ch)
		return
	}
	renderPlain(w, ch)
}

func renderTTY(w *os.File, ch *Channel) {
	n := ch.Len()
	first := true
	for {
		if !first {
			fmt.Fprintf(w, "\033[%dA", n)
		}
		first = false
		for i := 0; i < n; i++ {
			fmt.Fprintf(w, "\033[2K%-30s %s\n", ch.Names()[i], ch.Get(i))
		}
		if ch.AllTerminal() {
			return
		}
		time.Sleep(PollInterval)
	}
}

func renderPlain(w *os.File, ch *Channel) {
	last := make([]Phase, ch.Len())
	for i := range last {
		last[i] = Waiting
	}
	for {
		for i := 0; i < ch.Len(); i++ {
			p := ch.Get(i)
			if p != last[i] {
				fmt.Fprintf(w, "%s: %s\n", ch.Names()[i], p)
				last[i] = p
			}
		}
		if ch.AllTerminal() {
			return
		}
		time.Sleep(PollInterval)
	}
}
