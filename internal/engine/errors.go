package engine

import (
	"errors"
	"fmt"

	"github.com/roach88/sparqlayers/internal/protocol"
)

// RuntimeError represents a failure while executing a node.
//
// Runtime errors include:
//   - Unknown node: the ID is not in the tree
//   - No connection: neither the call, the node nor the engine names an endpoint
//   - Generate: the node's query could not be rendered as text
//   - Transport: the endpoint could not be reached or refused the query
//   - Decode: the response body does not match the requested media type
//   - Superseded: a newer request for the same node was issued meanwhile
type RuntimeError struct {
	// Code identifies the error category.
	Code RuntimeErrorCode

	// Message is a human-readable description.
	Message string

	// NodeKey identifies the affected node.
	NodeKey string

	// Details contains additional context.
	Details map[string]string

	// Err is the underlying cause, if any.
	Err error
}

// RuntimeErrorCode categorizes runtime errors.
type RuntimeErrorCode string

const (
	ErrCodeUnknownNode  RuntimeErrorCode = "UNKNOWN_NODE"
	ErrCodeNoConnection RuntimeErrorCode = "NO_CONNECTION"
	ErrCodeGenerate     RuntimeErrorCode = "GENERATE_FAILED"
	ErrCodeTransport    RuntimeErrorCode = "TRANSPORT_FAILED"
	ErrCodeDecode       RuntimeErrorCode = "DECODE_FAILED"
	ErrCodeSuperseded   RuntimeErrorCode = "SUPERSEDED"
)

// Error implements the error interface.
func (e *RuntimeError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.NodeKey != "" {
		msg += fmt.Sprintf(" (node=%s)", e.NodeKey)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *RuntimeError) Unwrap() error { return e.Err }

func hasCode(err error, code RuntimeErrorCode) bool {
	var re *RuntimeError
	if errors.As(err, &re) {
		return re.Code == code
	}
	return false
}

// IsSuperseded returns true if the response was discarded because a newer
// request for the node was issued. Uses errors.As to handle wrapped errors.
func IsSuperseded(err error) bool {
	return hasCode(err, ErrCodeSuperseded)
}

// IsTransportError returns true for endpoint failures, whether reported
// by the engine or directly by a transport.
func IsTransportError(err error) bool {
	return hasCode(err, ErrCodeTransport) || protocol.IsTransportError(err)
}

func newRuntimeError(code RuntimeErrorCode, nodeKey, message string, cause error) *RuntimeError {
	return &RuntimeError{Code: code, NodeKey: nodeKey, Message: message, Err: cause}
}
