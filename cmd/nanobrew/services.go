package main

import (
	"context"
	"flag"
	"fmt"

	"github.com/nanobrew/nanobrew/internal/service"
)

const servicesHelp = `nanobrew services list|start|stop|restart [name]

Manage services registered by installed packages, via launchd on macOS
and systemd --user elsewhere.

Example:
  % nanobrew services list
  % nanobrew services start postgresql
`

// servicePrefix is the label/unit-name prefix nanobrew-managed services
// are registered under.
const servicePrefix = "nanobrew."

func cmdServices(ctx context.Context, args []string) error {
	fset := flag.NewFlagSet("services", flag.ExitOnError)
	fset.Usage = usage(fset, servicesHelp)
	fset.Parse(args)

	rest := fset.Args()
	if len(rest) == 0 {
		return fmt.Errorf("usage: nanobrew services list|start|stop|restart [name]")
	}
	action, rest := rest[0], rest[1:]

	ctl := service.New(servicePrefix)

	switch action {
	case "list":
		names, err := ctl.List()
		if err != nil {
			return err
		}
		for _, n := range names {
			fmt.Println(n)
		}
		return nil
	case "start", "stop", "restart":
		if len(rest) != 1 {
			return fmt.Errorf("usage: nanobrew services %s <name>", action)
		}
		var err error
		switch action {
		case "start":
			err = ctl.Start(rest[0])
		case "stop":
			err = ctl.Stop(rest[0])
		case "restart":
			err = ctl.Restart(rest[0])
		}
		return err
	default:
		return fmt.Errorf("services: unknown action %q", action)
	}
}
