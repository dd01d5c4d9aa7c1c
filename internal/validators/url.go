// Package validators provides validation and normalisation helpers for harvested catalogue URLs
// and registry entry names.
package validators

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/asaskevich/govalidator"
)

// multiURLMarker is the loose token that marks a line of a multi-URL cell as a URL.
// It also matches "https".
const multiURLMarker = "http"

// URLSyntaxError is returned when a URL is not syntactically valid
type URLSyntaxError struct {
	URL    string
	Reason string
}

// Error returns the error message
func (e *URLSyntaxError) Error() string {
	return fmt.Sprintf("invalid URL %q: %s", e.URL, e.Reason)
}

// CheckURL validates the syntax of a URL without resolving or connecting to it.
// The URL must have an http or https scheme and a host.
func CheckURL(raw string) error {
	if raw == "" {
		return &URLSyntaxError{URL: raw, Reason: "empty URL"}
	}
	if strings.TrimSpace(raw) != raw {
		return &URLSyntaxError{URL: raw, Reason: "surrounding whitespace"}
	}

	u, err := url.Parse(raw)
	if err != nil {
		return &URLSyntaxError{URL: raw, Reason: err.Error()}
	}

	switch strings.ToLower(u.Scheme) {
	case "http", "https":
	case "":
		return &URLSyntaxError{URL: raw, Reason: "missing scheme"}
	default:
		return &URLSyntaxError{URL: raw, Reason: fmt.Sprintf("unsupported scheme %q", u.Scheme)}
	}

	if u.Hostname() == "" {
		return &URLSyntaxError{URL: raw, Reason: "missing host"}
	}

	// govalidator only matches lower-case schemes
	if !govalidator.IsURL(lowerScheme(raw, u.Scheme)) {
		return &URLSyntaxError{URL: raw, Reason: "malformed URL"}
	}

	return nil
}

// lowerScheme lower-cases the leading scheme of raw, leaving the rest untouched
func lowerScheme(raw, scheme string) string {
	if len(raw) < len(scheme) || !strings.EqualFold(raw[:len(scheme)], scheme) {
		return raw
	}
	return strings.ToLower(raw[:len(scheme)]) + raw[len(scheme):]
}

// IsValidURL reports whether raw is a syntactically valid http(s) URL
func IsValidURL(raw string) bool {
	return CheckURL(raw) == nil
}

// IsMultiURL reports whether a spreadsheet cell holds more than one line
func IsMultiURL(cell string) bool {
	return len(splitLines(strings.TrimSpace(cell))) > 1
}

// SplitMultiURL splits a newline separated URL cell into its URL tokens.
//
// Lines are trimmed and kept only when they contain the literal substring "http",
// so "xhttpx" is kept and left for IsValidURL to reject.
func SplitMultiURL(cell string) []string {
	urls := make([]string, 0)
	for _, line := range splitLines(cell) {
		token := strings.TrimSpace(line)
		if strings.Contains(token, multiURLMarker) {
			urls = append(urls, token)
		}
	}
	return urls
}

func splitLines(cell string) []string {
	return strings.Split(strings.ReplaceAll(cell, "\r\n", "\n"), "\n")
}
