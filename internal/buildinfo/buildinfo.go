// Package buildinfo carries version identifiers stamped at build time via
// -ldflags "-X github.com/magnolia-hms/finance/internal/buildinfo.Version=...".
package buildinfo

var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// String formats the build identity for logs and the version command.
func String() string {
	return Version + " (" + Commit + ", " + Date + ")"
}
