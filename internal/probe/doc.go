// Package probe performs the CSW GetCapabilities handshake used to decide
// whether a catalogue endpoint is live.
//
// A probe never fails the caller. Every outcome, including transport errors,
// non-200 responses and malformed URLs, is folded into a Result whose State
// is StateLive or StateDead and whose Reason names the failure class.
package probe
