// Package version holds build-time version information.
package version

// Version is the semantic version of the running binary. Overridden at
// build time with -ldflags "-X github.com/crolens/crolens-api/internal/version.Version=...".
var Version = "0.1.0-dev"
