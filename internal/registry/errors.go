package registry

import (
	"fmt"
	"strings"

	xsderrors "github.com/jacoelho/xsd/errors"
)

// SchemaValidationError is returned when a document, or the schema itself, is not valid
type SchemaValidationError struct {
	// Path is the file being validated, or a description of an in-memory document
	Path string

	// Violations holds the individual schema violations when available
	Violations []xsderrors.Validation

	Err error
}

// Error returns the error message
func (e *SchemaValidationError) Error() string {
	if len(e.Violations) == 0 {
		return fmt.Sprintf("schema validation failed for %s: %v", e.Path, e.Err)
	}
	messages := make([]string, 0, len(e.Violations))
	for i := range e.Violations {
		messages = append(messages, e.Violations[i].Error())
	}
	return fmt.Sprintf("schema validation failed for %s: %s", e.Path, strings.Join(messages, "; "))
}

// Unwrap returns the underlying error
func (e *SchemaValidationError) Unwrap() error {
	return e.Err
}

func newSchemaValidationError(path string, err error) *SchemaValidationError {
	violations, _ := xsderrors.AsValidations(err)
	return &SchemaValidationError{Path: path, Violations: violations, Err: err}
}
