package version

import (
	"fmt"
	"runtime"
)

// Set via -ldflags "-X github.com/frostdev-ops/agent-dashboard-backend/pkg/version.Version=..."
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
	GoVersion = runtime.Version()
)

// BuildInfo contains all build-related information
type BuildInfo struct {
	Version   string `json:"version"`
	GitCommit string `json:"git_commit"`
	BuildDate string `json:"build_date"`
	GoVersion string `json:"go_version"`
}

// GetVersion returns the release version, or dev-<short commit> for local builds
func GetVersion() string {
	if Version != "dev" {
		return Version
	}
	commit := GitCommit
	if len(commit) > 8 {
		commit = commit[:8]
	}
	if commit == "" {
		commit = "unknown"
	}
	return "dev-" + commit
}

// GetFullVersion returns a detailed version string
func GetFullVersion() string {
	return fmt.Sprintf("%s (commit: %s, built: %s, go: %s)",
		GetVersion(), GitCommit, BuildDate, GoVersion)
}

// GetBuildInfo returns all build information
func GetBuildInfo() *BuildInfo {
	return &BuildInfo{
		Version:   GetVersion(),
		GitCommit: GitCommit,
		BuildDate: BuildDate,
		GoVersion: GoVersion,
	}
}
