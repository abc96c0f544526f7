// Package buildinfo exposes the version, commit and build date stamped into
// the actionsim binary with -ldflags -X.
package buildinfo

// Set at build time, e.g.
//
//	go build -ldflags "-X github.com/AbdelazizMoustafa10m/actionsim/internal/buildinfo.Version=1.2.0"
var (
	// Version is the semantic version or git describe output.
	Version = "dev"

	// Commit is the short git commit SHA.
	Commit = "unknown"

	// Date is the UTC build timestamp in RFC3339 format.
	Date = "unknown"
)
