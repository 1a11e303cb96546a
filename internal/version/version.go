// Package version provides build-time version information.
package version

import "fmt"

// These variables are set at build time using -ldflags
var (
	// Version is the semantic version
	Version = "0.1.0"

	// BuildTime is the UTC time when the binary was built
	BuildTime = "unknown"

	// GitCommit is the git commit hash
	GitCommit = "unknown"
)

// Get returns the current version.
func Get() string {
	if Version == "" {
		return "dev"
	}
	return Version
}

// String returns version, commit and build time on one line.
func String() string {
	return fmt.Sprintf("%s (commit %s, built %s)", Get(), GitCommit, BuildTime)
}
