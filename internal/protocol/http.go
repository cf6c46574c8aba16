package protocol

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DefaultUserAgent is the User-Agent header sent with every request.
const DefaultUserAgent = "sparqlayers/1.0"

// maxErrorBody bounds how much of a failed response is quoted in errors.
const maxErrorBody = 512

// HTTPClient is the subset of *http.Client used by HTTPTransport.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// HTTPTransport sends queries as GET requests with the query in the
// "query" parameter.
//
// Thread-safety: HTTPTransport is safe for concurrent use if its HTTPClient
// is.
type HTTPTransport struct {
	client    HTTPClient
	userAgent string
	logger    *slog.Logger
}

// HTTPOption configures an HTTPTransport.
type HTTPOption func(*HTTPTransport)

// WithHTTPClient sets the underlying client.
// Default: an *http.Client with a 30 second timeout.
func WithHTTPClient(c HTTPClient) HTTPOption {
	return func(t *HTTPTransport) {
		t.client = c
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) HTTPOption {
	return func(t *HTTPTransport) {
		t.userAgent = ua
	}
}

// WithLogger sets the logger that records each fetch at debug level.
func WithLogger(l *slog.Logger) HTTPOption {
	return func(t *HTTPTransport) {
		t.logger = l
	}
}

// NewHTTPTransport creates a transport.
func NewHTTPTransport(opts ...HTTPOption) *HTTPTransport {
	t := &HTTPTransport{
		client:    &http.Client{Timeout: 30 * time.Second},
		userAgent: DefaultUserAgent,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Get implements Transport.
func (t *HTTPTransport) Get(ctx context.Context, location, query string, opts Options) (*Response, error) {
	target, err := url.Parse(location)
	if err != nil {
		return nil, &TransportError{Location: location, Message: "invalid location", Err: err}
	}
	params := target.Query()
	params.Set("query", query)
	target.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.String(), nil)
	if err != nil {
		return nil, &TransportError{Location: location, Message: "build request", Err: err}
	}
	req.Header.Set("Accept", opts.accept())
	req.Header.Set("User-Agent", t.userAgent)
	if opts.Authentication != "" {
		req.Header.Set("Authorization", opts.Authentication)
	}

	start := time.Now()
	resp, err := t.client.Do(req)
	if err != nil {
		return nil, &TransportError{Location: location, Message: err.Error(), Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{Location: location, Status: resp.StatusCode, Message: "read body", Err: err}
	}

	t.logger.Debug("sparql fetch",
		"location", location,
		"status", resp.StatusCode,
		"accept", opts.accept(),
		"bytes", len(body),
		"elapsed", time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &TransportError{
			Location: location,
			Status:   resp.StatusCode,
			Message:  errorMessage(resp.Status, body),
		}
	}

	return &Response{
		Status:      resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
		Body:        body,
	}, nil
}

func errorMessage(status string, body []byte) string {
	msg := strings.TrimSpace(string(body))
	if msg == "" {
		return status
	}
	if len(msg) > maxErrorBody {
		msg = msg[:maxErrorBody] + "..."
	}
	return fmt.Sprintf("%s: %s", status, msg)
}
