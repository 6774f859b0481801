package version

// Set at build time via -ldflags.
var (
	Version   = "v1.1.0"
	BuildTime = "unknown"
	GitCommit = "unknown"
)
