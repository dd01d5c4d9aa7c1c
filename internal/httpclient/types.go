package httpclient

import "fmt"

// HTTPError represents a non-200 HTTP response
type HTTPError struct {
	StatusCode int
	Message    string
	URL        string

	// Body holds the start of the response body, if any
	Body []byte
}

// Error returns the error message
func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP %d for URL %s: %s", e.StatusCode, e.URL, e.Message)
}

// NewHTTPError creates a new HTTP error
func NewHTTPError(statusCode int, url, message string) error {
	return &HTTPError{
		StatusCode: statusCode,
		URL:        url,
		Message:    message,
	}
}

// TransportError represents a network level failure (DNS, connection, TLS, timeout)
type TransportError struct {
	URL string
	Err error
}

// Error returns the error message
func (e *TransportError) Error() string {
	return fmt.Sprintf("transport error for URL %s: %v", e.URL, e.Err)
}

// Unwrap returns the underlying network error
func (e *TransportError) Unwrap() error {
	return e.Err
}
