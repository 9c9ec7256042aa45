// Package version reports the version of the mcpbridge binary.
package version

import "runtime/debug"

// Version is set at build time via -ldflags "-X github.com/mcpjungle/mcpbridge/pkg/version.Version=v1.2.3"
var Version = ""

// GetVersion returns the version of mcpbridge.
// If it wasn't set at build time, the module version recorded in the binary is used.
func GetVersion() string {
	if Version != "" {
		return Version
	}
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" && info.Main.Version != "(devel)" {
		return info.Main.Version
	}
	return "dev"
}
