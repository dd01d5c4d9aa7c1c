package probe

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/beevik/etree"

	"github.com/stacklok/csw-harvester/internal/httpclient"
)

// DefaultTimeout bounds a single handshake
const DefaultTimeout = 10 * time.Second

// CSW request parameters added to the probed URL
const (
	ServiceCSW             = "CSW"
	RequestGetCapabilities = "GetCapabilities"
	DefaultVersion         = "2.0.2"
)

const acceptHeader = "application/xml, text/xml;q=0.9, */*;q=0.5"

// State is the liveness outcome of a probe
type State string

const (
	// StateLive means the endpoint answered with a capabilities document
	StateLive State = "live"
	// StateDead means the handshake failed
	StateDead State = "dead"
	// StateUnknown means no probe was performed
	StateUnknown State = "unknown"
)

// Reason classifies a failed handshake
type Reason string

const (
	// ReasonNone is used for live endpoints
	ReasonNone Reason = ""
	// ReasonExceptionReport means the service answered with an OWS exception report
	ReasonExceptionReport Reason = "exception-report"
	// ReasonMalformedArgument means no request could be built from the URL
	ReasonMalformedArgument Reason = "malformed-argument"
	// ReasonUnexpected covers transport errors, bad status codes and unrecognised payloads
	ReasonUnexpected Reason = "unexpected"
)

// Result is the outcome of probing one URL
type Result struct {
	State   State
	Reason  Reason
	Message string
}

// Live reports whether the probe succeeded
func (r Result) Live() bool {
	return r.State == StateLive
}

// Prober checks whether a URL hosts a responsive CSW endpoint
type Prober interface {
	Probe(ctx context.Context, rawURL string) Result
}

// CSWProber issues GetCapabilities requests through an HTTP client
type CSWProber struct {
	client  httpclient.Client
	timeout time.Duration
}

var _ Prober = (*CSWProber)(nil)

// NewCSWProber creates a prober. A nil client selects a default client bounded by timeout.
func NewCSWProber(client httpclient.Client, timeout time.Duration) *CSWProber {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if client == nil {
		client = httpclient.NewDefaultClient(timeout)
	}
	return &CSWProber{client: client, timeout: timeout}
}

// Probe performs the handshake and classifies the response
func (p *CSWProber) Probe(ctx context.Context, rawURL string) Result {
	requestURL, err := CapabilitiesURL(rawURL)
	if err != nil {
		return dead(ReasonMalformedArgument, err.Error())
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	resp, err := p.client.Get(ctx, requestURL, acceptHeader)
	if err != nil {
		slog.DebugContext(ctx, "CSW probe request failed", "url", rawURL, "error", err)
		return classifyError(err)
	}

	result := classify(resp.Body)
	slog.DebugContext(ctx, "CSW probe finished",
		"url", rawURL, "state", string(result.State), "reason", string(result.Reason))
	return result
}

// CapabilitiesURL adds the GetCapabilities parameters to rawURL, keeping any existing query
func CapabilitiesURL(rawURL string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return "", fmt.Errorf("invalid URL %q: %w", rawURL, err)
	}
	if !strings.EqualFold(u.Scheme, "http") && !strings.EqualFold(u.Scheme, "https") {
		return "", fmt.Errorf("invalid URL %q: unsupported scheme %q", rawURL, u.Scheme)
	}
	u.Scheme = strings.ToLower(u.Scheme)
	if u.Host == "" {
		return "", fmt.Errorf("invalid URL %q: missing host", rawURL)
	}

	query := u.Query()
	setIfAbsent(query, "service", ServiceCSW)
	setIfAbsent(query, "request", RequestGetCapabilities)
	setIfAbsent(query, "version", DefaultVersion)
	u.RawQuery = query.Encode()
	return u.String(), nil
}

// setIfAbsent sets key unless a parameter with the same name exists in any letter case
func setIfAbsent(query url.Values, key, value string) {
	for existing := range query {
		if strings.EqualFold(existing, key) {
			return
		}
	}
	query.Set(key, value)
}

func classify(body []byte) Result {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(body); err != nil {
		return dead(ReasonUnexpected, fmt.Sprintf("response is not XML: %v", err))
	}
	root := doc.Root()
	if root == nil {
		return dead(ReasonUnexpected, "response has no root element")
	}

	switch root.Tag {
	case "Capabilities":
		return Result{State: StateLive, Reason: ReasonNone}
	case "ExceptionReport":
		return dead(ReasonExceptionReport, exceptionText(root))
	default:
		return dead(ReasonUnexpected, fmt.Sprintf("unexpected root element %q", root.FullTag()))
	}
}

// classifyError keeps the exception report that OWS services send with a 4xx or 5xx status
func classifyError(err error) Result {
	var httpErr *httpclient.HTTPError
	if errors.As(err, &httpErr) && len(httpErr.Body) > 0 {
		if result := classify(httpErr.Body); result.Reason == ReasonExceptionReport {
			return result
		}
	}
	return dead(ReasonUnexpected, err.Error())
}

// exceptionText collects the ExceptionText children of an OWS exception report
func exceptionText(root *etree.Element) string {
	var texts []string
	for _, el := range root.FindElements(".//ExceptionText") {
		if text := strings.TrimSpace(el.Text()); text != "" {
			texts = append(texts, text)
		}
	}
	if len(texts) == 0 {
		for _, el := range root.FindElements(".//Exception") {
			if code := el.SelectAttrValue("exceptionCode", ""); code != "" {
				texts = append(texts, code)
			}
		}
	}
	return strings.Join(texts, "; ")
}

func dead(reason Reason, message string) Result {
	return Result{State: StateDead, Reason: reason, Message: message}
}
