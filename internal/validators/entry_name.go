package validators

import (
	"fmt"
	"strings"
	"unicode"
)

const (
	maxEntryNameLength = 250
)

// ValidateEntryName validates the name of a registry connection entry.
// Returns the validated name (trimmed, inner whitespace collapsed) and an error if validation fails.
//
// Format requirements:
// - Must not be empty after trimming
// - Must not contain control characters other than whitespace
// - Total length: at most 250 characters
func ValidateEntryName(name string) (string, error) {
	name = strings.Join(strings.Fields(name), " ")

	if name == "" {
		return "", fmt.Errorf("entry name cannot be empty")
	}

	if len(name) > maxEntryNameLength {
		return "", fmt.Errorf("entry name exceeds maximum length of %d characters", maxEntryNameLength)
	}

	for _, r := range name {
		if unicode.IsControl(r) {
			return "", fmt.Errorf("entry name contains control character %U", r)
		}
	}

	return name, nil
}

// IsValidEntryName checks if an entry name is valid.
// This is a convenience wrapper around ValidateEntryName for boolean checks.
func IsValidEntryName(name string) bool {
	_, err := ValidateEntryName(name)
	return err == nil
}
