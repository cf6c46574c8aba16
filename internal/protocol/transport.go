// Package protocol is the client side of the SPARQL 1.1 protocol: it sends a
// query to an endpoint location and hands back the raw response.
package protocol

import (
	"context"
	"encoding/json"
	"fmt"
)

// Media types sent in the Accept header.
const (
	AcceptResults  = "application/sparql-results+json"
	AcceptNTriples = "application/n-triples"
)

// Options are per-request settings.
type Options struct {
	// Authentication is sent verbatim as the Authorization header.
	Authentication string

	// Accept is the requested response media type.
	// Default: AcceptResults.
	Accept string
}

func (o Options) accept() string {
	if o.Accept == "" {
		return AcceptResults
	}
	return o.Accept
}

// Response is a completed endpoint response.
type Response struct {
	Status      int
	ContentType string
	Body        []byte
}

// Text returns the body as a string.
func (r *Response) Text() string {
	return string(r.Body)
}

// JSON decodes the body into v.
func (r *Response) JSON(v any) error {
	if err := json.Unmarshal(r.Body, v); err != nil {
		return fmt.Errorf("decode %s response: %w", r.ContentType, err)
	}
	return nil
}

// Transport fetches the result of query from the endpoint at location.
//
// Implementations return a *TransportError for network failures and
// non-2xx statuses.
type Transport interface {
	Get(ctx context.Context, location, query string, opts Options) (*Response, error)
}

// TransportFunc adapts a function to Transport.
type TransportFunc func(ctx context.Context, location, query string, opts Options) (*Response, error)

// Get calls f.
func (f TransportFunc) Get(ctx context.Context, location, query string, opts Options) (*Response, error) {
	return f(ctx, location, query, opts)
}
