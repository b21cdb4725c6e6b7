// Package misc provides build identification helpers.
package misc

import "runtime/debug"

const appName = "mailcss"

// GetAppName returns program name to be used in logs and configuration.
func GetAppName() string {
	return appName
}

// GetVersion returns module version recorded in build info.
func GetVersion() string {
	if bi, ok := debug.ReadBuildInfo(); ok && bi.Main.Version != "" {
		return bi.Main.Version
	}
	return "(devel)"
}

// GetGitHash returns vcs revision recorded in build info.
func GetGitHash() string {
	if bi, ok := debug.ReadBuildInfo(); ok {
		for _, s := range bi.Settings {
			if s.Key == "vcs.revision" {
				return s.Value
			}
		}
	}
	return "unknown"
}
