package extract

import (
	"bytes"
	"io"
	"path/filepath"
	"strings"

	"github.com/blakesmith/ar"
	"github.com/klauspost/compress/zstd"
	"github.com/ulikunitz/xz"
	"golang.org/x/xerrors"
)

// extractDeb extracts a .deb's data.tar* member (the package's installed
// file tree) into destDir. The control.tar* member is extracted alongside
// under destDir/.control so doctor/post-install inspection can see
// maintainer scripts without ever executing them.
func extractDeb(r io.Reader, destDir string) error {
	rd := ar.NewReader(r)
	var dataMember, controlMember *arMember
	for {
		hdr, err := rd.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
		name := strings.TrimSuffix(hdr.Name, "/")
		b := make([]byte, hdr.Size)
		if _, err := io.ReadFull(rd, b); err != nil {
			return err
		}
		switch {
		case strings.HasPrefix(name, "data.tar"):
			dataMember = &arMember{name: name, data: b}
		case strings.HasPrefix(name, "control.tar"):
			controlMember = &arMember{name: name, data: b}
		}
	}
	if dataMember == nil {
		return xerrors.New("deb archive has no data.tar* member")
	}
	if err := extractArMember(dataMember, destDir); err != nil {
		return xerrors.Errorf("extracting %s: %w", dataMember.name, err)
	}
	if controlMember != nil {
		if err := extractArMember(controlMember, filepath.Join(destDir, ".control")); err != nil {
			return xerrors.Errorf("extracting %s: %w", controlMember.name, err)
		}
	}
	return nil
}

type arMember struct {
	name string
	data []byte
}

func extractArMember(m *arMember, destDir string) error {
	var r io.Reader = bytes.NewReader(m.data)
	switch {
	case strings.HasSuffix(m.name, ".gz"):
		b, err := gunzip(r)
		if err != nil {
			return err
		}
		r = bytes.NewReader(b)
	case strings.HasSuffix(m.name, ".xz"):
		xr, err := xz.NewReader(r)
		if err != nil {
			return err
		}
		r = xr
	case strings.HasSuffix(m.name, ".zst"):
		zr, err := zstd.NewReader(r)
		if err != nil {
			return err
		}
		defer zr.Close()
		r = zr
	case strings.HasSuffix(m.name, ".tar"):
		// already plain tar
	default:
		return xerrors.Errorf("unsupported deb member compression: %s", m.name)
	}
	return untar(r, destDir)
}
