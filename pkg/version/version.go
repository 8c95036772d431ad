// Package version holds the build-time version string, overridden via
// -ldflags at release build time.
package version

// Version is "dev" in local builds; release builds set it via
// -ldflags "-X github.com/scoutscan/scoutscan/pkg/version.Version=vX.Y.Z".
var Version = "dev"
