//go:build !linux && !darwin

package materialize

import "golang.org/x/xerrors"

// cowClone has no known-good COW primitive on this platform; Materialize
// falls through to the hardlink strategy.
func cowClone(src, dst string) error {
	return xerrors.New("COW clone not supported on this platform")
}
