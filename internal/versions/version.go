// Package versions describes the running harvester build and compares it with
// the build recorded in a previous run status.
package versions

import (
	"encoding/json"
	"fmt"
	"runtime"
	"runtime/debug"
	"strings"
	"time"
)

const (
	unknownStr = "unknown"

	// devVersion is the Version of builds made without release ldflags
	devVersion = "dev"

	// devCommitLen is how much of the commit names a development build
	devCommitLen = 8

	buildDateLayout = "2006-01-02 15:04:05 MST"
)

// Set at release time with
// -ldflags "-X github.com/stacklok/csw-harvester/internal/versions.Version=v1.2.3 ..."
var (
	Version   = devVersion
	Commit    = unknownStr
	BuildDate = unknownStr
)

// VersionInfo identifies a harvester build
type VersionInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildDate string `json:"build_date"`
	GoVersion string `json:"go_version"`
	Platform  string `json:"platform"`
}

// GetVersionInfo describes the running binary
func GetVersionInfo() VersionInfo {
	return getVersionInfoWithValues(Version, Commit, BuildDate, debug.ReadBuildInfo)
}

// String renders one aligned "label: value" line per field
func (v VersionInfo) String() string {
	var b strings.Builder
	for _, field := range [][2]string{
		{"Version:", v.Version},
		{"Commit:", v.Commit},
		{"Built:", v.BuildDate},
		{"Go version:", v.GoVersion},
		{"Platform:", v.Platform},
	} {
		fmt.Fprintf(&b, "%-11s %s\n", field[0], field[1])
	}
	return b.String()
}

// JSON renders the build as indented JSON, as printed by "version --format json"
func (v VersionInfo) JSON() (string, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal version info: %w", err)
	}
	return string(data), nil
}

func getVersionInfoWithValues(
	version, commit, buildDate string,
	readBuildInfo func() (*debug.BuildInfo, bool),
) VersionInfo {
	if strings.HasPrefix(version, devVersion) {
		commit, buildDate = fillFromVCS(commit, buildDate, readBuildInfo)
	}
	if version == devVersion {
		version = fmt.Sprintf("build-%.*s", devCommitLen, commit)
	}

	return VersionInfo{
		Version:   version,
		Commit:    commit,
		BuildDate: formatBuildDate(buildDate),
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
	}
}

// fillFromVCS replaces unknown commit and date values with the vcs stamps of a local build
func fillFromVCS(
	commit, buildDate string,
	readBuildInfo func() (*debug.BuildInfo, bool),
) (string, string) {
	info, ok := readBuildInfo()
	if !ok {
		return commit, buildDate
	}
	for _, setting := range info.Settings {
		switch {
		case setting.Key == "vcs.revision" && commit == unknownStr:
			commit = setting.Value
		case setting.Key == "vcs.time" && buildDate == unknownStr:
			buildDate = setting.Value
		}
	}
	return commit, buildDate
}

// formatBuildDate renders RFC 3339 dates in UTC; other values are kept as given
func formatBuildDate(buildDate string) string {
	t, err := time.Parse(time.RFC3339, buildDate)
	if err != nil {
		return buildDate
	}
	return t.UTC().Format(buildDateLayout)
}
