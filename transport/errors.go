package transport

import (
	"fmt"

	"github.com/pithecene-io/meshclient/types"
)

// TransportError wraps a network-level failure: the request was sent
// but no response was received (connection refused, TLS failure, timeout,
// context cancellation).
type TransportError struct { //nolint:revive // transport.TransportError mirrors the error taxonomy name
	Method string
	URL    string
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%v: %s %s: %v", types.ErrTransport, e.Method, e.URL, e.Err)
}

// Unwrap returns the underlying cause.
func (e *TransportError) Unwrap() error {
	return e.Err
}

// Is reports whether target is types.ErrTransport.
func (e *TransportError) Is(target error) bool {
	return target == types.ErrTransport
}
