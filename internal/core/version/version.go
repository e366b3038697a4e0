// Package version reports the build stamped into the binary
package version

import "fmt"

// BuildInfo is the stamped build
type BuildInfo struct {
	Service string `json:"service"`
	Version string `json:"version"`
	Commit  string `json:"commit"`
	Date    string `json:"date"`
}

// Set with -ldflags "-X ottscout/internal/core/version.version=v0.1.0 -X ...commit=abcd -X ...date=2026-01-02"
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// Info returns the stamped build
func Info() BuildInfo {
	return BuildInfo{Service: "ottscout", Version: version, Commit: commit, Date: date}
}

// String renders the build on one line
func (b BuildInfo) String() string {
	return fmt.Sprintf("%s %s (commit %s, built %s)", b.Service, b.Version, b.Commit, b.Date)
}
