// Package extract decodes archive blobs into destination directories:
// gzip/zstd/plain-wrapped tar for bottles, and the ar container plus its
// nested data.tar*/control.tar* members for .deb. File mode bits and
// symlink targets are preserved verbatim; hard links are not.
package extract

import (
	"archive/tar"
	"compress/gzip"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zstd"
	pgzip "github.com/klauspost/pgzip"
	"golang.org/x/xerrors"
)

// Kind identifies the outer container format of an archive blob.
type Kind int

const (
	KindUnknown Kind = iota
	KindTarGz
	KindTarZst
	KindTar
	KindGz
	KindZst
	KindAr // .deb
)

// Sniff inspects the first few bytes of an archive to determine its Kind.
func Sniff(header []byte) Kind {
	switch {
	case len(header) >= 7 && string(header[:7]) == "!<arch>":
		return KindAr
	case len(header) >= 2 && header[0] == 0x1f && header[1] == 0x8b:
		return KindTarGz // assume tar inside; verified by attempting the tar read
	case len(header) >= 4 && header[0] == 0x28 && header[1] == 0xb5 && header[2] == 0x2f && header[3] == 0xfd:
		return KindTarZst
	case len(header) >= 262 && string(header[257:262]) == "ustar":
		return KindTar
	default:
		return KindUnknown
	}
}

// ToDir extracts the archive at blobPath into destDir, which must not
// already exist (the caller, internal/store, extracts into a sibling temp
// directory and renames on success so a partial directory is never
// observed under the canonical name).
func ToDir(blobPath, destDir string) error {
	f, err := os.Open(blobPath)
	if err != nil {
		return err
	}
	defer f.Close()

	header := make([]byte, 512)
	n, _ := io.ReadFull(f, header)
	header = header[:n]
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return err
	}

	switch Sniff(header) {
	case KindAr:
		return extractDeb(f, destDir)
	case KindTarGz:
		zr, err := pgzip.NewReader(f)
		if err != nil {
			return err
		}
		defer zr.Close()
		return untar(zr, destDir)
	case KindTarZst:
		zr, err := zstd.NewReader(f)
		if err != nil {
			return err
		}
		defer zr.Close()
		return untar(zr, destDir)
	case KindTar:
		return untar(f, destDir)
	default:
		return xerrors.Errorf("%s: unrecognized archive format", blobPath)
	}
}

// untar streams a tar reader into destDir, preserving mode bits and
// symlink targets verbatim; relative symlink targets remain relative.
func untar(r io.Reader, destDir string) error {
	tr := tar.NewReader(r)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		target := filepath.Join(destDir, hdr.Name)
		if !withinDir(destDir, target) {
			return xerrors.Errorf("tar entry %q escapes destination", hdr.Name)
		}

		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, os.FileMode(hdr.Mode)&os.ModePerm); err != nil {
				return err
			}
		case tar.TypeReg, tar.TypeRegA:
			if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
				return err
			}
			out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, os.FileMode(hdr.Mode)&os.ModePerm)
			if err != nil {
				return err
			}
			if _, err := io.Copy(out, tr); err != nil {
				out.Close()
				return err
			}
			if err := out.Close(); err != nil {
				return err
			}
		case tar.TypeSymlink:
			if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
				return err
			}
			_ = os.Remove(target)
			if err := os.Symlink(hdr.Linkname, target); err != nil {
				return err
			}
		case tar.TypeLink:
			// hard links are not required to be preserved (spec.md §4.7);
			// fall back to a regular copy of the link target if available,
			// otherwise skip.
			src := filepath.Join(destDir, hdr.Linkname)
			if data, err := os.ReadFile(src); err == nil {
				_ = os.WriteFile(target, data, os.FileMode(hdr.Mode)&os.ModePerm)
			}
		default:
			// device nodes, fifos etc: skip, bottles/debs don't ship these.
		}
	}
}

func withinDir(dir, target string) bool {
	rel, err := filepath.Rel(dir, target)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// gunzip fully decodes a gzip stream to bytes, used for every .gz member
// of a .deb (control.tar.gz and data.tar.gz), whose tar is then read
// through a *bytes.Reader.
func gunzip(r io.Reader) ([]byte, error) {
	zr, err := gzip.NewReader(r)
	if err != nil {
		return nil, err
	}
	defer zr.Close()
	return io.ReadAll(zr)
}
