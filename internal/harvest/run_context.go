package harvest

import (
	"github.com/stacklok/csw-harvester/internal/probe"
	"github.com/stacklok/csw-harvester/internal/validators"
)

// RunContext accumulates per-run state. A new one is created for every run.
type RunContext struct {
	// Invalid holds URLs that failed the syntax check
	Invalid validators.URLSet

	// Inactive holds URLs that failed the CSW handshake
	Inactive validators.URLSet

	probes  map[string]probe.Result
	summary Summary
}

// NewRunContext creates an empty run context
func NewRunContext() *RunContext {
	return &RunContext{
		probes: make(map[string]probe.Result),
	}
}

// probeResult returns a memoised probe result
func (rc *RunContext) probeResult(url string) (probe.Result, bool) {
	result, ok := rc.probes[url]
	return result, ok
}

func (rc *RunContext) rememberProbe(url string, result probe.Result) {
	rc.probes[url] = result
}

// Summary returns the counters accumulated so far
func (rc *RunContext) Summary() Summary {
	s := rc.summary
	s.Invalid = rc.Invalid.Len()
	s.Inactive = rc.Inactive.Len()
	s.InvalidURLs = rc.Invalid.Values()
	s.InactiveURLs = rc.Inactive.Values()
	return s
}

// Summary reports what a run did
type Summary struct {
	Rows       int
	Filtered   int
	Candidates int
	Skipped    int
	Printed    int
	Written    int
	Duplicates int
	Invalid    int
	Inactive   int
	Failed     int

	InvalidURLs  []string
	InactiveURLs []string
}
