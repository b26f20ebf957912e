// Package buildinfo provides build-time version information.
//
// Variables are set via ldflags during build:
//
//	go build -ldflags "-X github.com/frederic-klein/cratefix/internal/buildinfo.Version=v1.0.0 \
//	    -X github.com/frederic-klein/cratefix/internal/buildinfo.Commit=$(git rev-parse HEAD)"
package buildinfo

import "fmt"

var (
	// Version is the semantic version (e.g., "v1.2.3").
	Version = "dev"

	// Commit is the git commit SHA.
	Commit = "none"
)

// Template returns the version template string for cobra.
func Template() string {
	return fmt.Sprintf("{{.Name}} version %s\ncommit: %s\n", Version, Commit)
}
