package config

import (
	"os"
	"strings"
	"unicode/utf8"
)

// maxNameBytes is file name length limit common to supported file systems.
const maxNameBytes = 255

const badFileName = "_bad_file_name_"

// CleanFileName makes name of produced file (ext included) safe for the
// destination file system. Characters the platform rejects and control
// characters are dropped, leading dots removed and name cut on rune boundary
// so that with ext it fits file name length limit.
func CleanFileName(in, ext string) string {
	out := strings.Map(func(sym rune) rune {
		if sym < 0x20 || strings.ContainsRune(reservedChars, sym) {
			return -1
		}
		return sym
	}, in)
	out = trimName(strings.TrimLeft(out, "."))

	if limit := maxNameBytes - len(ext); len(out) > limit {
		cut := limit
		for cut > 0 && !utf8.RuneStart(out[cut]) {
			cut--
		}
		out = trimName(out[:cut])
	}
	switch {
	case len(out) == 0:
		out = badFileName
	case reservedName(out):
		out = "_" + out
	}
	return out + ext
}

// noColor follows NO_COLOR convention and never colors dumb terminals.
func noColor() bool {
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		return true
	}
	return os.Getenv("TERM") == "dumb"
}
