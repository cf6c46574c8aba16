package testutil

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/roach88/sparqlayers/internal/protocol"
)

// Request is one call observed by StubTransport.
type Request struct {
	Location string
	Query    string
	Options  protocol.Options
}

// StubTransport is a protocol.Transport that answers from canned bodies and
// counts every call.
//
// Bodies are matched by exact query text; Default answers everything else.
// A nil Default makes unmatched queries fail with a 404 TransportError.
//
// Thread-safety: StubTransport is safe for concurrent use.
type StubTransport struct {
	// Default is returned for queries without a canned body.
	Default []byte

	// Gate, when set, is received from before answering, so tests can hold
	// requests in flight.
	Gate chan struct{}

	calls    atomic.Int64
	mu       sync.Mutex
	bodies   map[string][]byte
	requests []Request
}

// NewStubTransport creates a transport whose unmatched queries return def.
func NewStubTransport(def string) *StubTransport {
	s := &StubTransport{bodies: make(map[string][]byte)}
	if def != "" {
		s.Default = []byte(def)
	}
	return s
}

// Respond registers body as the answer to query.
func (s *StubTransport) Respond(query, body string) *StubTransport {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bodies[query] = []byte(body)
	return s
}

// Calls returns the number of Get calls so far.
func (s *StubTransport) Calls() int {
	return int(s.calls.Load())
}

// Requests returns a copy of the observed requests in call order.
func (s *StubTransport) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Request(nil), s.requests...)
}

// Get implements protocol.Transport.
func (s *StubTransport) Get(ctx context.Context, location, query string, opts protocol.Options) (*protocol.Response, error) {
	s.calls.Add(1)

	s.mu.Lock()
	s.requests = append(s.requests, Request{Location: location, Query: query, Options: opts})
	body, ok := s.bodies[query]
	s.mu.Unlock()

	if s.Gate != nil {
		select {
		case <-s.Gate:
		case <-ctx.Done():
			return nil, &protocol.TransportError{Location: location, Message: "cancelled", Err: ctx.Err()}
		}
	}

	if !ok {
		body = s.Default
	}
	if body == nil {
		return nil, &protocol.TransportError{Location: location, Status: 404, Message: "no canned response"}
	}
	return &protocol.Response{Status: 200, ContentType: opts.Accept, Body: body}, nil
}
