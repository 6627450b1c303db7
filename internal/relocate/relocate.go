// Package relocate rewrites the ecosystem placeholder tokens embedded in
// pre-built archives — @@PREFIX@@ and @@CELLAR@@ — so that a keg's
// inter-library references, rpaths, and build-system metadata point into
// the local installation instead of the build machine's paths
// (spec.md §4.9). Binary rewriting parses the load-command/dynamic-section
// table directly from the header bytes; no external tool is invoked on
// the ELF hot path. Mach-O rewriting, where in-place string-region
// resizing is disallowed, batches a single platform-native rewriter
// invocation per binary.
package relocate

import (
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/nanobrew/nanobrew/internal/xerr"
)

// Tokens are the sentinel path fragments embedded in pre-built artifacts.
const (
	TokenPrefix = "@@PREFIX@@"
	TokenCellar = "@@CELLAR@@"
)

// textExtensions lists the configuration-file suffixes rewritten with a
// simple byte-level search-and-replace pass.
var textExtensions = map[string]bool{
	".pc":    true,
	".la":    true,
	".cmake": true,
}

// Result summarizes one Relocate call for the orchestrator's progress
// reporting and doctor diagnostics.
type Result struct {
	BinariesRewritten int
	TextFilesRewritten int
	Warnings          []*xerr.RelocateWarning
}

// Relocate walks kegDir rewriting every native binary and text
// configuration file that contains a placeholder token. realPrefix and
// realCellar are the absolute paths to substitute for TokenPrefix and
// TokenCellar respectively. Per-binary rewrite failures are collected as
// warnings and do not abort the walk (spec.md §4.9 failure policy).
func Relocate(kegDir, realPrefix, realCellar string) (*Result, error) {
	res := &Result{}
	var machoBinaries []string

	err := filepath.WalkDir(kegDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || d.Type()&os.ModeSymlink != 0 {
			return nil
		}

		if textExtensions[strings.ToLower(filepath.Ext(path))] {
			rewritten, err := rewriteTextFile(path, realPrefix, realCellar)
			if err != nil {
				res.Warnings = append(res.Warnings, &xerr.RelocateWarning{Path: path, Err: err})
				return nil
			}
			if rewritten {
				res.TextFilesRewritten++
			}
			return nil
		}

		kind, err := sniffBinary(path)
		if err != nil {
			res.Warnings = append(res.Warnings, &xerr.RelocateWarning{Path: path, Err: err})
			return nil
		}
		switch kind {
		case binaryELF64:
			if err := breakSharing(path); err != nil {
				res.Warnings = append(res.Warnings, &xerr.RelocateWarning{Path: path, Err: err})
				return nil
			}
			changed, err := rewriteELF(path, realPrefix, realCellar)
			if err != nil {
				res.Warnings = append(res.Warnings, &xerr.RelocateWarning{Path: path, Err: err})
				return nil
			}
			if changed {
				res.BinariesRewritten++
			}
		case binaryMachO:
			ops, err := machoRewriteOps(path, realPrefix, realCellar)
			if err != nil {
				res.Warnings = append(res.Warnings, &xerr.RelocateWarning{Path: path, Err: err})
				return nil
			}
			if len(ops) > 0 {
				if err := breakSharing(path); err != nil {
					res.Warnings = append(res.Warnings, &xerr.RelocateWarning{Path: path, Err: err})
					return nil
				}
				machoBinaries = append(machoBinaries, path)
				if err := runInstallNameTool(path, ops); err != nil {
					res.Warnings = append(res.Warnings, &xerr.RelocateWarning{Path: path, Err: err})
					return nil
				}
				res.BinariesRewritten++
			}
		}
		return nil
	})
	if err != nil {
		return res, err
	}

	if len(machoBinaries) > 0 && runtime.GOOS == "darwin" {
		if err := codesignBatch(machoBinaries); err != nil {
			log.Printf("re-signing %d binaries: %v", len(machoBinaries), err)
		}
	}

	return res, nil
}

// replaceToken computes the rewritten form of s, substituting TokenCellar
// before TokenPrefix (longest-match-first, spec.md §4.9 step 3, since
// TokenCellar's expansion would otherwise also match as a TokenPrefix
// sub-path).
func replaceToken(s, realPrefix, realCellar string) string {
	s = strings.ReplaceAll(s, TokenCellar, realCellar)
	s = strings.ReplaceAll(s, TokenPrefix, realPrefix)
	return s
}

func containsToken(s string) bool {
	return strings.Contains(s, TokenPrefix) || strings.Contains(s, TokenCellar)
}
