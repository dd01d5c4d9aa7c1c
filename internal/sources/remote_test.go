package sources

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stacklok/csw-harvester/internal/config"
	"github.com/stacklok/csw-harvester/internal/httpclient"
	"github.com/stacklok/csw-harvester/internal/spreadsheet"
)

// newTestServer creates a new test server with keep-alives disabled.
func newTestServer(handler http.Handler) *httptest.Server {
	server := httptest.NewServer(handler)
	server.Config.SetKeepAlivesEnabled(false)
	return server
}

func newTestRemoteHandler() SourceHandler {
	return NewRemoteSourceHandlerWithBackOff(httpclient.NewDefaultClient(5*time.Second), func() backoff.BackOff {
		return backoff.NewConstantBackOff(10 * time.Millisecond)
	})
}

// dropConnection closes the underlying connection without writing a response
func dropConnection(t *testing.T, w http.ResponseWriter) {
	t.Helper()
	hj, ok := w.(http.Hijacker)
	require.True(t, ok)
	conn, _, err := hj.Hijack()
	require.NoError(t, err)
	_ = conn.Close()
}

func TestRemoteSourceHandler_Fetch_Success(t *testing.T) {
	t.Parallel()

	var userAgent string
	server := newTestServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userAgent = r.Header.Get("User-Agent")
		w.Header().Set("Content-Type", spreadsheet.MimeType+"; charset=binary")
		_, _ = w.Write([]byte("ods-bytes"))
	}))
	defer server.Close()

	handler := newTestRemoteHandler()
	doc, err := handler.Fetch(context.Background(), config.SourceConfig{URL: server.URL})

	require.NoError(t, err)
	assert.Equal(t, []byte("ods-bytes"), doc.Data)
	assert.Equal(t, server.URL, doc.Location)
	assert.Len(t, doc.Hash, 64)
	assert.Contains(t, userAgent, "Mozilla/5.0", "a browser-like User-Agent should be sent")
}

func TestRemoteSourceHandler_Fetch_HTTPStatus(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	server := newTestServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		http.NotFound(w, nil)
	}))
	defer server.Close()

	handler := newTestRemoteHandler()
	_, err := handler.Fetch(context.Background(), config.SourceConfig{URL: server.URL, Retries: 3})

	require.Error(t, err)
	var statusErr *HTTPStatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusNotFound, statusErr.StatusCode)
	assert.Equal(t, "Not Found", statusErr.Message)
	assert.Equal(t, int32(1), calls.Load(), "status errors must not be retried")
}

func TestRemoteSourceHandler_Fetch_UnexpectedContentType(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		contentType string
	}{
		{name: "html page", contentType: "text/html; charset=utf-8"},
		{name: "excel workbook", contentType: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"},
		{name: "missing header", contentType: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			server := newTestServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.Header().Set("Content-Type", tt.contentType)
				if tt.contentType == "" {
					w.Header()["Content-Type"] = nil
				}
				_, _ = w.Write([]byte("payload"))
			}))
			defer server.Close()

			_, err := newTestRemoteHandler().Fetch(context.Background(), config.SourceConfig{URL: server.URL})

			require.Error(t, err)
			var ctErr *UnexpectedContentTypeError
			require.ErrorAs(t, err, &ctErr)
			assert.Equal(t, spreadsheet.MimeType, ctErr.Want)
		})
	}
}

func TestRemoteSourceHandler_Fetch_RetriesTransportErrors(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	server := newTestServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) == 1 {
			dropConnection(t, w)
			return
		}
		w.Header().Set("Content-Type", spreadsheet.MimeType)
		_, _ = w.Write([]byte("ods-bytes"))
	}))
	defer server.Close()

	doc, err := newTestRemoteHandler().Fetch(context.Background(), config.SourceConfig{URL: server.URL, Retries: 2})

	require.NoError(t, err)
	assert.Equal(t, []byte("ods-bytes"), doc.Data)
	assert.Equal(t, int32(2), calls.Load())
}

func TestRemoteSourceHandler_Fetch_TransportErrorAfterRetries(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	server := newTestServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		dropConnection(t, w)
	}))
	defer server.Close()

	_, err := newTestRemoteHandler().Fetch(context.Background(), config.SourceConfig{URL: server.URL, Retries: 2})

	require.Error(t, err)
	var transportErr *TransportError
	require.ErrorAs(t, err, &transportErr)
	assert.Equal(t, server.URL, transportErr.URL)
	assert.Equal(t, int32(3), calls.Load())
}

func TestRemoteSourceHandler_Validate(t *testing.T) {
	t.Parallel()

	handler := newTestRemoteHandler()
	require.Error(t, handler.Validate(config.SourceConfig{}))
	require.Error(t, handler.Validate(config.SourceConfig{URL: "http://a.test", Retries: -1}))
	require.NoError(t, handler.Validate(config.SourceConfig{URL: "http://a.test"}))
}
