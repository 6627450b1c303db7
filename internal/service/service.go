// Package service dispatches service lifecycle commands (list/start/stop/
// restart) to the host's native service manager: launchd on Darwin,
// systemd (user units) elsewhere. It is a thin collaborator: it assumes
// the keg has already installed its own unit/plist file under the
// conventional path and only ever shells out, matching the teacher's
// preference for exec.Command over reimplementing another project's
// control protocol.
package service

import (
	"fmt"
	"os/exec"
	"runtime"
	"strings"
	"syscall"

	"golang.org/x/xerrors"
)

// Controller dispatches service actions for keg name.
type Controller struct {
	// Prefix is the label/unit-name prefix services are registered under,
	// e.g. "org.nanobrew." on Darwin or "nanobrew-" on Linux.
	Prefix string
}

// New returns a Controller using prefix.
func New(prefix string) *Controller { return &Controller{Prefix: prefix} }

func (c *Controller) label(name string) string { return c.Prefix + name }

// Start starts name's service.
func (c *Controller) Start(name string) error { return c.dispatch("start", name) }

// Stop stops name's service.
func (c *Controller) Stop(name string) error { return c.dispatch("stop", name) }

// Restart restarts name's service.
func (c *Controller) Restart(name string) error {
	if err := c.Stop(name); err != nil {
		return err
	}
	return c.Start(name)
}

func (c *Controller) dispatch(action, name string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		domain := fmt.Sprintf("gui/%d/%s", syscall.Getuid(), c.label(name))
		switch action {
		case "start":
			cmd = exec.Command("launchctl", "kickstart", "-k", domain)
		case "stop":
			cmd = exec.Command("launchctl", "bootout", domain)
		}
	default:
		unit := c.label(name) + ".service"
		cmd = exec.Command("systemctl", "--user", action, unit)
	}
	if cmd == nil {
		return xerrors.Errorf("%s: unsupported action %q", name, action)
	}
	out, err := cmd.CombinedOutput()
	if err != nil {
		return xerrors.Errorf("%s %s: %w: %s", action, name, err, strings.TrimSpace(string(out)))
	}
	return nil
}

// List reports every service label known to the host's manager that
// carries Controller's Prefix.
func (c *Controller) List() ([]string, error) {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("launchctl", "list")
	default:
		cmd = exec.Command("systemctl", "--user", "list-units", "--type=service", "--no-legend")
	}
	out, err := cmd.CombinedOutput()
	if err != nil {
		return nil, xerrors.Errorf("listing services: %w: %s", err, out)
	}
	return parseServiceNames(string(out), c.Prefix), nil
}

// parseServiceNames extracts every whitespace-separated field in out that
// carries prefix, stripped of the prefix and a trailing ".service".
func parseServiceNames(out, prefix string) []string {
	var names []string
	for _, line := range strings.Split(out, "\n") {
		for _, f := range strings.Fields(line) {
			if strings.HasPrefix(f, prefix) {
				names = append(names, strings.TrimSuffix(strings.TrimPrefix(f, prefix), ".service"))
				break
			}
		}
	}
	return names
}
