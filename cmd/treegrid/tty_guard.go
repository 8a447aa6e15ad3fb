package main

import (
	"os"
	"strings"
)

// init runs before lipgloss probes the terminal. Non-interactive runs
// (printing, export, check) set CI=1 so termenv skips the OSC/DSR queries
// that would otherwise end up in piped output.
func init() {
	if os.Getenv("CI") != "" {
		return
	}
	if shouldSuppressTTYQueries(os.Args[1:]) {
		_ = os.Setenv("CI", "1")
	}
}

func shouldSuppressTTYQueries(args []string) bool {
	for _, arg := range args {
		name, _, _ := strings.Cut(strings.TrimLeft(arg, "-"), "=")
		if !strings.HasPrefix(arg, "-") {
			continue
		}
		switch name {
		case "print", "export", "check", "version", "help", "h":
			return true
		}
	}
	return false
}
