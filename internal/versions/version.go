// Package versions exposes build version information for plugindex.
package versions

import (
	"runtime"
	"runtime/debug"
	"time"
)

// Set at build time via -ldflags; empty values fall back to the binary's
// embedded VCS metadata.
var (
	Version   = "dev"
	Commit    = ""
	BuildDate = ""
)

// VersionInfo describes the running binary.
type VersionInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildDate string `json:"build_date"`
	GoVersion string `json:"go_version"`
	Platform  string `json:"platform"`
}

// GetVersionInfo returns the version information for the running binary.
func GetVersionInfo() VersionInfo {
	return build(Version, Commit, BuildDate)
}

func build(version, commit, date string) VersionInfo {
	if commit == "" || date == "" {
		vcsCommit, vcsDate := vcsInfo()
		if commit == "" {
			commit = vcsCommit
		}
		if date == "" {
			date = vcsDate
		}
	}

	// Untagged builds are named after the commit they came from.
	if version == "dev" && commit != "" {
		version = "dev+" + shortCommit(commit)
	}

	return VersionInfo{
		Version:   version,
		Commit:    orUnknown(commit),
		BuildDate: formatDate(date),
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
	}
}

func vcsInfo() (commit, date string) {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return "", ""
	}
	for _, setting := range info.Settings {
		switch setting.Key {
		case "vcs.revision":
			commit = setting.Value
		case "vcs.time":
			date = setting.Value
		}
	}
	return commit, date
}

func shortCommit(commit string) string {
	if len(commit) > 8 {
		return commit[:8]
	}
	return commit
}

func formatDate(date string) string {
	if date == "" {
		return "unknown"
	}
	if t, err := time.Parse(time.RFC3339, date); err == nil {
		return t.Format("2006-01-02 15:04:05 MST")
	}
	return date
}

func orUnknown(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}
