package protocol

import (
	"errors"
	"fmt"
)

// TransportError reports a failed request: either the endpoint could not
// be reached (Status 0, Err set) or it answered with a non-2xx status.
type TransportError struct {
	Location string
	Status   int
	Message  string
	Err      error
}

func (e *TransportError) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("request to %s failed: %s", e.Location, e.Message)
	}
	return fmt.Sprintf("request to %s failed with HTTP %d: %s", e.Location, e.Status, e.Message)
}

func (e *TransportError) Unwrap() error { return e.Err }

// IsTransportError returns true if err is or wraps a *TransportError.
func IsTransportError(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}
