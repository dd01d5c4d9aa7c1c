package versions

import "github.com/Masterminds/semver/v3"

// IsNewerRelease reports whether recorded is a release strictly greater than running.
// Development builds and other non-semver strings never compare as newer.
func IsNewerRelease(recorded, running string) bool {
	recordedVer, err := semver.NewVersion(recorded)
	if err != nil {
		return false
	}
	runningVer, err := semver.NewVersion(running)
	if err != nil {
		return false
	}
	return recordedVer.GreaterThan(runningVer)
}

// NewerThanRunning reports whether recorded was produced by a newer harvester than this binary
func NewerThanRunning(recorded string) bool {
	return IsNewerRelease(recorded, GetVersionInfo().Version)
}
