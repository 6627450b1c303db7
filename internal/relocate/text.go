package relocate

import (
	"io"
	"os"

	"github.com/google/renameio"
	"github.com/orcaman/writerseeker"
)

// rewriteTextFile does a byte-level search-and-replace of placeholder
// tokens in a .pc/.cmake/.la-style configuration file. Files that don't
// contain any token are left untouched (not even re-stat'd past the
// initial read), per spec.md §4.9.
func rewriteTextFile(path, realPrefix, realCellar string) (changed bool, err error) {
	orig, err := os.ReadFile(path)
	if err != nil {
		return false, err
	}
	if !containsToken(string(orig)) {
		return false, nil
	}

	// Compose the rewritten content in an in-memory seekable buffer before
	// touching disk, since the replacement can be longer or shorter than
	// the placeholder and nothing here requires the file to stay the same
	// size the way the ELF in-place rewrite does.
	var buf writerseeker.WriterSeeker
	if _, err := buf.Write([]byte(replaceToken(string(orig), realPrefix, realCellar))); err != nil {
		return false, err
	}
	if _, err := buf.Seek(0, io.SeekStart); err != nil {
		return false, err
	}

	fi, err := os.Stat(path)
	if err != nil {
		return false, err
	}
	t, err := renameio.TempFile("", path)
	if err != nil {
		return false, err
	}
	defer t.Cleanup()
	if err := t.Chmod(fi.Mode().Perm()); err != nil {
		return false, err
	}
	if _, err := io.Copy(t, buf.Reader()); err != nil {
		return false, err
	}
	if err := t.CloseAtomicallyReplace(); err != nil {
		return false, err
	}
	return true, nil
}
