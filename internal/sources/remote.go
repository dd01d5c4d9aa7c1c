package sources

import (
	"context"
	"fmt"
	"log/slog"
	"mime"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/stacklok/csw-harvester/internal/config"
	"github.com/stacklok/csw-harvester/internal/httpclient"
	"github.com/stacklok/csw-harvester/internal/spreadsheet"
)

// acceptHeader asks for the spreadsheet while tolerating servers that ignore content negotiation
const acceptHeader = spreadsheet.MimeType + ", */*;q=0.8"

// remoteSourceHandler downloads spreadsheets over HTTP(S)
type remoteSourceHandler struct {
	httpClient httpclient.Client
	newBackOff func() backoff.BackOff
}

// NewRemoteSourceHandler creates a new remote source handler
func NewRemoteSourceHandler(httpClient httpclient.Client) SourceHandler {
	return NewRemoteSourceHandlerWithBackOff(httpClient, func() backoff.BackOff {
		return backoff.NewExponentialBackOff()
	})
}

// NewRemoteSourceHandlerWithBackOff creates a remote source handler with a custom retry schedule
func NewRemoteSourceHandlerWithBackOff(httpClient httpclient.Client, newBackOff func() backoff.BackOff) SourceHandler {
	return &remoteSourceHandler{
		httpClient: httpClient,
		newBackOff: newBackOff,
	}
}

// Validate validates the remote source configuration
func (*remoteSourceHandler) Validate(src config.SourceConfig) error {
	if src.URL == "" {
		return fmt.Errorf("source URL cannot be empty")
	}
	if src.Retries < 0 {
		return fmt.Errorf("retries cannot be negative: %d", src.Retries)
	}
	return nil
}

// Fetch downloads the spreadsheet, retrying transport failures only
func (h *remoteSourceHandler) Fetch(ctx context.Context, src config.SourceConfig) (*Document, error) {
	if err := h.Validate(src); err != nil {
		return nil, fmt.Errorf("source validation failed: %w", err)
	}

	if src.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, src.Timeout)
		defer cancel()
	}

	attempt := 0
	operation := func() (*httpclient.Response, error) {
		attempt++
		resp, err := h.httpClient.Get(ctx, src.URL, acceptHeader)
		if err != nil {
			if httpclient.IsTransportError(err) {
				return nil, err
			}
			return nil, backoff.Permanent(err)
		}
		return resp, nil
	}

	resp, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(h.newBackOff()),
		backoff.WithMaxTries(uint(src.Retries)+1),
		backoff.WithNotify(func(err error, next time.Duration) {
			slog.WarnContext(ctx, "Source download failed, retrying",
				"url", src.URL, "attempt", attempt, "retry_in", next.String(), "error", err)
		}),
	)
	if err != nil {
		return nil, err
	}

	if err := checkContentType(src.URL, resp.ContentType); err != nil {
		return nil, err
	}

	doc := NewDocument(src.URL, resp.Body)
	slog.DebugContext(ctx, "Downloaded source spreadsheet",
		"url", src.URL, "bytes", len(resp.Body), "attempts", attempt, "hash", doc.Hash)
	return doc, nil
}

// checkContentType compares the declared media type, ignoring parameters
func checkContentType(url, contentType string) error {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil || mediaType != spreadsheet.MimeType {
		return &UnexpectedContentTypeError{URL: url, Got: contentType, Want: spreadsheet.MimeType}
	}
	return nil
}
