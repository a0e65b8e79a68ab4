// Package version holds build information injected at link time.
package version

import "runtime"

// Build information. Populated via -ldflags at release time.
var (
	GitRelease    = "dev"
	GitCommit     = "unknown"
	GitCommitDate = "unknown"
	GoInfo        = runtime.Version()
)
