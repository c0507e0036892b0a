// Package version holds build metadata, set at link time with
// -ldflags "-X github.com/banshee-data/shetran.soils/internal/version.Version=...".
package version

import (
	"fmt"
	"runtime"
)

var (
	// Version is the current application version
	Version = "dev"
	// GitSHA is the git commit SHA
	GitSHA = "unknown"
	// BuildTime is the build timestamp
	BuildTime = "unknown"
)

// String returns a one-line description of the build.
func String() string {
	sha := GitSHA
	if len(sha) > 12 {
		sha = sha[:12]
	}
	return fmt.Sprintf("shetran-soils %s (%s, built %s, %s %s/%s)",
		Version, sha, BuildTime, runtime.Version(), runtime.GOOS, runtime.GOARCH)
}
