package status

import "time"

// RunPhase represents the current phase of a harvest run
type RunPhase string

const (
	// RunPhaseRunning means a harvest is in progress
	RunPhaseRunning RunPhase = "Running"

	// RunPhaseComplete means the harvest finished; per-row failures are counted, not fatal
	RunPhaseComplete RunPhase = "Complete"

	// RunPhaseFailed means the harvest aborted
	RunPhaseFailed RunPhase = "Failed"
)

// Counts mirrors the summary of a harvest run
type Counts struct {
	Rows       int `json:"rows"`
	Filtered   int `json:"filtered"`
	Candidates int `json:"candidates"`
	Skipped    int `json:"skipped"`
	Printed    int `json:"printed"`
	Written    int `json:"written"`
	Duplicates int `json:"duplicates"`
	Invalid    int `json:"invalid"`
	Inactive   int `json:"inactive"`
	Failed     int `json:"failed"`
}

// RunStatus represents the outcome of the last harvest run
type RunStatus struct {
	// Phase represents the current run phase
	Phase RunPhase `json:"phase"`

	// Message provides additional information, the abort reason for failed runs
	Message string `json:"message,omitempty"`

	// HarvesterVersion is the version of the binary that wrote the status
	HarvesterVersion string `json:"harvesterVersion,omitempty"`

	// Mode is "print" or "write"
	Mode string `json:"mode,omitempty"`

	// Source is the URL or path the spreadsheet was read from
	Source string `json:"source,omitempty"`

	// SourceHash is the SHA256 hash of the spreadsheet processed by the run
	SourceHash string `json:"sourceHash,omitempty"`

	// StartedAt is when the run started
	StartedAt *time.Time `json:"startedAt,omitempty"`

	// FinishedAt is when the run finished or failed
	FinishedAt *time.Time `json:"finishedAt,omitempty"`

	// Counts holds the per-run counters
	Counts Counts `json:"counts"`

	// InvalidURLs lists the URLs that failed the syntax check
	InvalidURLs []string `json:"invalidUrls,omitempty"`

	// InactiveURLs lists the URLs that failed the CSW handshake
	InactiveURLs []string `json:"inactiveUrls,omitempty"`
}
