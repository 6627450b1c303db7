// Package caskinstall installs cask artifacts (macOS .app bundles, raw
// binaries, and .pkg installers) into the Caskroom. It is a thin,
// best-effort collaborator: unlike the formula pipeline it has no
// content-addressable store or relocation step, since cask payloads are
// platform installer images, not the ecosystem's own bottle format
// (spec.md §4.14/SPEC_FULL.md §4.14).
package caskinstall

import (
	"context"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"golang.org/x/xerrors"

	"github.com/nanobrew/nanobrew/internal/extract"
	"github.com/nanobrew/nanobrew/internal/fetch"
	"github.com/nanobrew/nanobrew/internal/metadata"
)

// Installer installs casks under CaskroomDir, symlinking any binary
// artifacts into BinDir.
type Installer struct {
	HTTP         *fetch.Client
	CacheDir     string
	CaskroomDir  string
	BinDir       string
}

// New returns an Installer.
func New(httpClient *fetch.Client, cacheDir, caskroomDir, binDir string) *Installer {
	return &Installer{HTTP: httpClient, CacheDir: cacheDir, CaskroomDir: caskroomDir, BinDir: binDir}
}

// Result summarizes what Install placed on disk, for the state DB record.
type Result struct {
	Apps     []string
	Binaries []string
}

// Install downloads d's payload and installs each of its artifacts,
// returning the set of app bundle names and binary names placed.
func (in *Installer) Install(ctx context.Context, d *metadata.CaskDescriptor) (*Result, error) {
	dlPath := filepath.Join(in.CacheDir, "casks", d.Token+"-"+d.Version+payloadExt(d.URL))
	if err := os.MkdirAll(filepath.Dir(dlPath), 0755); err != nil {
		return nil, err
	}
	sha := d.SHA256
	if sha == "no_check" {
		sha = ""
	}
	if err := in.HTTP.GetToFile(ctx, d.URL, dlPath, nil, sha); err != nil {
		return nil, err
	}

	res := &Result{}
	tokenDir := filepath.Join(in.CaskroomDir, d.Token, d.Version)
	if err := os.MkdirAll(tokenDir, 0755); err != nil {
		return nil, err
	}

	for _, a := range d.Artifacts {
		switch a.Kind {
		case "app":
			name, err := installApp(dlPath, tokenDir, a.Payload)
			if err != nil {
				return res, err
			}
			res.Apps = append(res.Apps, name...)
		case "binary":
			name, err := installBinary(dlPath, tokenDir, in.BinDir, a.Payload)
			if err != nil {
				return res, err
			}
			res.Binaries = append(res.Binaries, name...)
		case "pkg":
			if err := runPkgInstaller(dlPath, a.Payload); err != nil {
				return res, err
			}
		case "uninstall":
			// nothing is done or recorded for this artifact at install time.
		}
	}
	return res, nil
}

// payloadExt guesses a cache filename suffix from url, for readability
// only; it has no effect on how the payload is later sniffed.
func payloadExt(url string) string {
	for _, ext := range []string{".dmg", ".zip", ".tar.gz", ".pkg"} {
		if strings.HasSuffix(url, ext) {
			return ext
		}
	}
	return ""
}

// installApp extracts (zip/tar payloads) or mounts (dmg payloads) the
// downloaded image and copies each named .app bundle into tokenDir.
func installApp(payloadPath, tokenDir string, names []string) ([]string, error) {
	var srcRoot string
	var cleanup func()
	switch {
	case strings.HasSuffix(payloadPath, ".dmg"):
		mnt, detach, err := mountDMG(payloadPath)
		if err != nil {
			return nil, err
		}
		srcRoot, cleanup = mnt, detach
	default:
		tmp, err := os.MkdirTemp("", "nanobrew-cask-*")
		if err != nil {
			return nil, err
		}
		if err := extract.ToDir(payloadPath, tmp); err != nil {
			os.RemoveAll(tmp)
			return nil, err
		}
		srcRoot = tmp
		cleanup = func() { os.RemoveAll(tmp) }
	}
	defer cleanup()

	var placed []string
	for _, name := range names {
		src := filepath.Join(srcRoot, name)
		dst := filepath.Join(tokenDir, name)
		if err := copyTree(src, dst); err != nil {
			return placed, xerrors.Errorf("installing %s: %w", name, err)
		}
		placed = append(placed, name)
	}
	return placed, nil
}

// installBinary symlinks tokenDir/<name> into binDir for each name; it
// copies nothing, and names not present under tokenDir are skipped.
func installBinary(payloadPath, tokenDir, binDir string, names []string) ([]string, error) {
	var placed []string
	for _, name := range names {
		src := filepath.Join(tokenDir, name)
		if _, err := os.Stat(src); err != nil {
			continue // artifact lives inside an app bundle already handled by installApp
		}
		link := filepath.Join(binDir, filepath.Base(name))
		_ = os.Remove(link)
		if err := os.Symlink(src, link); err != nil {
			return placed, err
		}
		placed = append(placed, filepath.Base(name))
	}
	return placed, nil
}

func runPkgInstaller(pkgPath string, targets []string) error {
	target := "/"
	if len(targets) > 0 {
		target = targets[0]
	}
	cmd := exec.Command("installer", "-pkg", pkgPath, "-target", target)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return xerrors.Errorf("installer -pkg %s: %w: %s", pkgPath, err, out)
	}
	return nil
}

func mountDMG(path string) (mountPoint string, detach func(), err error) {
	out, err := exec.Command("hdiutil", "attach", "-nobrowse", "-noautoopen", path).CombinedOutput()
	if err != nil {
		return "", nil, xerrors.Errorf("hdiutil attach %s: %w: %s", path, err, out)
	}
	mount := lastVolumesPath(string(out))
	if mount == "" {
		return "", nil, xerrors.Errorf("hdiutil attach %s: could not find mount point in output", path)
	}
	return mount, func() { exec.Command("hdiutil", "detach", mount, "-quiet").Run() }, nil
}

func lastVolumesPath(hdiutilOutput string) string {
	idx := strings.LastIndex(hdiutilOutput, "/Volumes/")
	if idx < 0 {
		return ""
	}
	end := strings.IndexAny(hdiutilOutput[idx:], "\n\r")
	if end < 0 {
		return strings.TrimSpace(hdiutilOutput[idx:])
	}
	return strings.TrimSpace(hdiutilOutput[idx : idx+end])
}

func copyTree(src, dst string) error {
	fi, err := os.Stat(src)
	if err != nil {
		return err
	}
	if !fi.IsDir() {
		return copyFile(src, dst, fi.Mode())
	}
	return filepath.WalkDir(src, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)
		if d.IsDir() {
			return os.MkdirAll(target, 0755)
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		if info.Mode()&os.ModeSymlink != 0 {
			link, err := os.Readlink(path)
			if err != nil {
				return err
			}
			return os.Symlink(link, target)
		}
		return copyFile(path, target, info.Mode())
	})
}

func copyFile(src, dst string, mode os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return err
	}
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode.Perm())
	if err != nil {
		return err
	}
	defer out.Close()
	_, err = io.Copy(out, in)
	return err
}
