package main

import (
	"context"
	"flag"
	"fmt"
	"strings"
)

const completionsHelp = `nanobrew completions {zsh|bash|fish}

Print a shell completion script for the given shell to stdout.

Example:
  % nanobrew completions zsh > ~/.zsh/completions/_nanobrew
`

var subcommandNames = []string{
	"init", "install", "remove", "list", "info", "search", "upgrade",
	"outdated", "pin", "unpin", "rollback", "bundle", "deps", "services",
	"doctor", "cleanup", "completions", "update",
}

func cmdCompletions(ctx context.Context, args []string) error {
	fset := flag.NewFlagSet("completions", flag.ExitOnError)
	fset.Usage = usage(fset, completionsHelp)
	fset.Parse(args)

	if fset.NArg() != 1 {
		return fmt.Errorf("usage: nanobrew completions {zsh|bash|fish}")
	}

	switch fset.Arg(0) {
	case "bash":
		fmt.Print(bashCompletions())
	case "zsh":
		fmt.Print(zshCompletions())
	case "fish":
		fmt.Print(fishCompletions())
	default:
		return fmt.Errorf("completions: unsupported shell %q", fset.Arg(0))
	}
	return nil
}

func bashCompletions() string {
	return fmt.Sprintf(`_nanobrew() {
    local cur=${COMP_WORDS[COMP_CWORD]}
    COMPREPLY=($(compgen -W "%s" -- "$cur"))
}
complete -F _nanobrew nanobrew
`, strings.Join(subcommandNames, " "))
}

func zshCompletions() string {
	return fmt.Sprintf(`#compdef nanobrew
_nanobrew() {
    _arguments '1: :(%s)'
}
_nanobrew
`, strings.Join(subcommandNames, " "))
}

func fishCompletions() string {
	var b strings.Builder
	for _, c := range subcommandNames {
		fmt.Fprintf(&b, "complete -c nanobrew -n '__fish_use_subcommand' -a %s\n", c)
	}
	return b.String()
}
