package harvest

import (
	"github.com/stacklok/csw-harvester/internal/config"
	"github.com/stacklok/csw-harvester/internal/probe"
)

// Candidate statuses
const (
	StatusValidLive = "valid-live"
	StatusValidDead = "valid-dead"
	StatusValid     = "valid"
	StatusInvalid   = "invalid"
)

// Verdict is the classification of a candidate
type Verdict struct {
	Valid bool

	// Probe is the handshake result; its State is StateUnknown when no probe ran
	Probe probe.Result
}

// State returns the liveness state of the candidate
func (v Verdict) State() probe.State {
	if v.Probe.State == "" {
		return probe.StateUnknown
	}
	return v.Probe.State
}

// Status returns a single label combining validity and liveness
func (v Verdict) Status() string {
	if !v.Valid {
		return StatusInvalid
	}
	switch v.State() {
	case probe.StateLive:
		return StatusValidLive
	case probe.StateDead:
		return StatusValidDead
	default:
		return StatusValid
	}
}

// Policy decides which classified candidates are routed to the output
type Policy struct {
	Validity config.Validity
	Liveness config.Liveness
}

// NewPolicy builds the routing policy. Writing without a validity selection only admits valid URLs.
func NewPolicy(selection config.SelectionConfig, write bool) Policy {
	policy := Policy{Validity: selection.Validity, Liveness: selection.Liveness}
	if write && policy.Validity == config.ValidityAny {
		policy.Validity = config.ValidityValidOnly
	}
	return policy
}

// Admits reports whether a candidate with verdict v is routed.
// Invalid URLs are never probed and count as not active.
func (p Policy) Admits(v Verdict) bool {
	switch p.Validity {
	case config.ValidityValidOnly:
		if !v.Valid {
			return false
		}
	case config.ValidityInvalidOnly:
		if v.Valid {
			return false
		}
	}

	switch p.Liveness {
	case config.LivenessLiveOnly:
		return v.State() == probe.StateLive
	case config.LivenessDeadOnly:
		return !v.Valid || v.State() == probe.StateDead
	default:
		return true
	}
}
