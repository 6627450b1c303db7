// Package postinstall is a best-effort, line-oriented recognizer for the
// small fixed subset of Homebrew-style post_install bodies this
// implementation supports: system "<cmd>" <args...>, mkdir_p "<path>",
// and ln_sf "<target>", "<link>". Anything else is a no-op with a logged
// warning — spec.md §9 is explicit that a fuller DSL emulator is not
// worth building.
package postinstall

import (
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"
)

var (
	systemRe = regexp.MustCompile(`^\s*system\s+((?:"[^"]*"|'[^']*')(?:\s*,\s*(?:"[^"]*"|'[^']*'))*)\s*$`)
	mkdirPRe = regexp.MustCompile(`^\s*mkdir_p\s+"([^"]*)"\s*$`)
	lnSfRe   = regexp.MustCompile(`^\s*ln_sf\s+"([^"]*)"\s*,\s*"([^"]*)"\s*$`)
	argRe    = regexp.MustCompile(`"([^"]*)"|'([^']*)'`)
)

// Run interprets script (one construct per line) relative to kegDir. Run
// itself replaces every "#{prefix}" in argument strings with kegDir;
// relative mkdir_p paths and ln_sf link paths are resolved against kegDir,
// and system commands run with kegDir as their working directory.
func Run(kegDir, script string) {
	for _, line := range strings.Split(script, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		switch {
		case systemRe.MatchString(line):
			runSystem(kegDir, systemRe.FindStringSubmatch(line)[1])
		case mkdirPRe.MatchString(line):
			m := mkdirPRe.FindStringSubmatch(line)
			dir := resolvePath(kegDir, m[1])
			if !filepath.IsAbs(dir) {
				dir = filepath.Join(kegDir, dir)
			}
			if err := os.MkdirAll(dir, 0755); err != nil {
				log.Printf("post_install: mkdir_p %q: %v", m[1], err)
			}
		case lnSfRe.MatchString(line):
			m := lnSfRe.FindStringSubmatch(line)
			target, link := resolvePath(kegDir, m[1]), resolvePath(kegDir, m[2])
			if !filepath.IsAbs(link) {
				link = filepath.Join(kegDir, link)
			}
			_ = os.Remove(link)
			if err := os.Symlink(target, link); err != nil {
				log.Printf("post_install: ln_sf %q %q: %v", m[1], m[2], err)
			}
		default:
			log.Printf("post_install: unrecognized construct, skipping: %q", line)
		}
	}
}

func runSystem(kegDir, argsLiteral string) {
	var args []string
	for _, m := range argRe.FindAllStringSubmatch(argsLiteral, -1) {
		if m[1] != "" {
			args = append(args, m[1])
		} else {
			args = append(args, m[2])
		}
	}
	if len(args) == 0 {
		return
	}
	for i, a := range args {
		args[i] = resolvePath(kegDir, a)
	}
	cmd := exec.Command(args[0], args[1:]...)
	cmd.Dir = kegDir
	if out, err := cmd.CombinedOutput(); err != nil {
		log.Printf("post_install: system %v: %v: %s", args, err, out)
	}
}

func resolvePath(kegDir, s string) string {
	return strings.ReplaceAll(s, "#{prefix}", kegDir)
}
