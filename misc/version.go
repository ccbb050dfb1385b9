// Package misc keeps build time information.
package misc

import (
	"runtime/debug"
	"strings"
)

// set by linker
var (
	version = "dev"
	hash    = ""
)

const appName = "idmlfill"

func GetAppName() string {
	return appName
}

func GetVersion() string {
	return version
}

// GetGitHash returns either hash provided at link time or vcs revision from
// embedded build information.
func GetGitHash() string {
	if len(hash) > 0 {
		return hash
	}
	if bi, ok := debug.ReadBuildInfo(); ok {
		for _, s := range bi.Settings {
			if s.Key == "vcs.revision" {
				return strings.TrimSpace(s.Value)
			}
		}
	}
	return "unknown"
}
