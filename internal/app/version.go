package app

import "fmt"

// Version and Commit can be overridden at build time:
// go build -ldflags "-X scanpack/internal/app.Version=v0.2.0 -X scanpack/internal/app.Commit=abcdef0" ./cmd/scanpack
var (
	Version = "v0.1.0"
	Commit  = "dev"
)

func VersionString() string {
	return fmt.Sprintf("scanpack %s (%s)", Version, Commit)
}
