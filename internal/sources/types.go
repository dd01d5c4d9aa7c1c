package sources

import (
	"context"
	"crypto/sha256"
	"fmt"

	"github.com/stacklok/csw-harvester/internal/config"
	"github.com/stacklok/csw-harvester/internal/httpclient"
)

// SourceHandler is an interface with methods to fetch the source spreadsheet
type SourceHandler interface {
	// Fetch retrieves the raw spreadsheet document
	Fetch(ctx context.Context, src config.SourceConfig) (*Document, error)

	// Validate validates the source configuration
	Validate(src config.SourceConfig) error
}

// SourceHandlerFactory creates source handlers based on source type
type SourceHandlerFactory interface {
	// CreateHandler creates a source handler for the given source type
	CreateHandler(sourceType string) (SourceHandler, error)
}

// Document is an acquired, not yet parsed, spreadsheet
type Document struct {
	// Location is the URL or path the document was read from
	Location string

	// Data holds the raw document bytes
	Data []byte

	// Hash is the SHA256 hash of Data
	Hash string
}

// NewDocument creates a Document and computes its hash
func NewDocument(location string, data []byte) *Document {
	return &Document{
		Location: location,
		Data:     data,
		Hash:     fmt.Sprintf("%x", sha256.Sum256(data)),
	}
}

// Acquisition errors. Transport and status errors come from the shared HTTP client.
type (
	// TransportError is a network or DNS failure
	TransportError = httpclient.TransportError

	// HTTPStatusError is a non-200 response carrying the status code and reason phrase
	HTTPStatusError = httpclient.HTTPError

	// PathNotFoundError is a missing local spreadsheet
	PathNotFoundError = config.PathNotFoundError

	// UnexpectedFileExtensionError is a local file that is not an .ods spreadsheet
	UnexpectedFileExtensionError = config.UnexpectedFileExtensionError
)

// UnexpectedContentTypeError is returned when a download is not declared as an OpenDocument spreadsheet
type UnexpectedContentTypeError struct {
	URL  string
	Got  string
	Want string
}

// Error returns the error message
func (e *UnexpectedContentTypeError) Error() string {
	got := e.Got
	if got == "" {
		got = "<none>"
	}
	return fmt.Sprintf("unexpected content type for URL %s: got %s, want %s", e.URL, got, e.Want)
}
