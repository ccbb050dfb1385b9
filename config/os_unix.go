//go:build !windows

package config

import (
	"os"

	"golang.org/x/term"
)

const reservedChars = string(os.PathSeparator) + string(os.PathListSeparator)

func trimName(name string) string { return name }

func reservedName(string) bool { return false }

// EnableColorOutput reports whether log stream is terminal which may be
// colored.
func EnableColorOutput(stream *os.File) bool {
	return !noColor() && term.IsTerminal(int(stream.Fd()))
}
