// Package version holds firerest build metadata, reported by the version
// command and the gateway health endpoint. Values are injected via ldflags:
//
//	-X github.com/kailas-cloud/firerest/internal/version.Version=v0.3.0
package version

//nolint:revive // Set via ldflags at build time.
var (
	Version = "dev"
	Commit  = "unknown"
	Date    = "unknown"
)
