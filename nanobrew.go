// Package nanobrew holds the cross-cutting types shared by every pipeline
// component: package identity, version/rebuild formatting, and the
// interruptible top-level context used by command dispatch.
package nanobrew

import (
	"context"
	"os"
	"os/signal"
	"strconv"
	"syscall"
)

// Ident identifies a package independent of whether it is installed.
// Names are opaque strings; versions compare by byte equality only
// (no semver parsing anywhere in this module).
type Ident struct {
	Name    string
	Version string
	Rebuild int64
}

// EffectiveVersion is Version when Rebuild is zero, otherwise
// Version + "_" + Rebuild.
func (id Ident) EffectiveVersion() string {
	if id.Rebuild == 0 {
		return id.Version
	}
	return id.Version + "_" + strconv.FormatInt(id.Rebuild, 10)
}

func (id Ident) String() string {
	return id.Name + "@" + id.EffectiveVersion()
}

// InterruptibleContext returns a context that is canceled when the process
// receives SIGINT or SIGTERM. A second signal bypasses cancellation and lets
// the default disposition terminate the process immediately, which is
// useful when cleanup itself hangs.
func InterruptibleContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sig
		signal.Stop(sig)
		cancel()
	}()
	return ctx, cancel
}
