//go:build windows

package config

import (
	"os"
	"strings"
	"sync"

	"golang.org/x/sys/windows"
	"golang.org/x/sys/windows/registry"
	"golang.org/x/term"
)

const reservedChars = `<>":/\|?*;`

// trailing dots and spaces are silently dropped by Windows
func trimName(name string) string {
	return strings.TrimRight(name, ". ")
}

// reservedName reports DOS device names, which are reserved with any
// extension.
func reservedName(name string) bool {
	base, _, _ := strings.Cut(name, ".")
	base = strings.ToUpper(strings.TrimSpace(base))
	switch base {
	case "CON", "PRN", "AUX", "NUL":
		return true
	}
	return len(base) == 4 && (strings.HasPrefix(base, "COM") || strings.HasPrefix(base, "LPT")) && base[3] >= '1' && base[3] <= '9'
}

// vtConsole reports Windows 10 or later, earlier consoles do not process
// VT100 sequences.
var vtConsole = sync.OnceValue(func() bool {
	k, err := registry.OpenKey(registry.LOCAL_MACHINE, `SOFTWARE\Microsoft\Windows NT\CurrentVersion`, registry.QUERY_VALUE)
	if err != nil {
		return false
	}
	defer k.Close()

	v, _, err := k.GetIntegerValue("CurrentMajorVersionNumber")
	return err == nil && v >= 10
})

const enableVirtualTerminalProcessing uint32 = 0x4

// EnableColorOutput reports whether log stream may be colored and turns on
// VT100 sequence processing for its console.
func EnableColorOutput(stream *os.File) bool {
	if noColor() || !vtConsole() || !term.IsTerminal(int(stream.Fd())) {
		return false
	}
	h := windows.Handle(stream.Fd())
	var mode uint32
	if err := windows.GetConsoleMode(h, &mode); err != nil {
		return false
	}
	return windows.SetConsoleMode(h, mode|enableVirtualTerminalProcessing) == nil
}
