package types

import (
	"errors"
	"fmt"
)

// Sentinel errors classifying every failure the client can produce.
// Use errors.Is(err, ErrXxx) for typed assertions.
var (
	// ErrInvalidArgument indicates the caller passed an empty or malformed
	// required value. Raised before any network call.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrProtocolMisuse indicates the caller used the wrong retrieval mode,
	// e.g. chunked retrieval of a whole message.
	ErrProtocolMisuse = errors.New("protocol misuse")

	// ErrProtocol indicates the remote service sent data that violates the
	// protocol (malformed chunk range, missing message id).
	ErrProtocol = errors.New("protocol error")

	// ErrMissingChunk indicates a gap in a chunk sequence.
	ErrMissingChunk = errors.New("missing chunk")

	// ErrCorruptData indicates content that cannot be decoded (bad gzip,
	// duplicate or unnumbered chunks).
	ErrCorruptData = errors.New("corrupt data")

	// ErrTransientServer indicates a 5xx response.
	ErrTransientServer = errors.New("transient server error")

	// ErrRemoteRejected indicates a non-success, non-5xx response.
	ErrRemoteRejected = errors.New("rejected by remote service")

	// ErrTransport indicates a network-level failure or timeout.
	ErrTransport = errors.New("transport error")
)

// ArgumentError names the offending parameter of an InvalidArgument error.
type ArgumentError struct {
	// Param is the parameter name, e.g. "mailboxID".
	Param string
	// Reason is a short description, e.g. "must not be empty".
	Reason string
}

func (e *ArgumentError) Error() string {
	return fmt.Sprintf("%v: %s %s", ErrInvalidArgument, e.Param, e.Reason)
}

// Is reports whether target is ErrInvalidArgument.
func (e *ArgumentError) Is(target error) bool {
	return target == ErrInvalidArgument
}

// RequireNonEmpty returns an ArgumentError for param when value is empty.
func RequireNonEmpty(param, value string) error {
	if value == "" {
		return &ArgumentError{Param: param, Reason: "must not be empty"}
	}
	return nil
}

// Failure is the failure half of an Outcome: a classified error carrying
// the remote service's structured description when one was sent.
type Failure struct {
	// Kind is the classification sentinel (e.g. ErrRemoteRejected).
	Kind error `json:"-"`
	// Status is the HTTP status code, 0 when no response was received.
	Status int `json:"status,omitempty"`
	// Event, Code and Description mirror the remote error payload.
	Event       string `json:"errorEvent,omitempty"`
	Code        string `json:"errorCode,omitempty"`
	Description string `json:"errorDescription,omitempty"`
	// Err is the underlying cause, if any.
	Err error `json:"-"`
}

func (f *Failure) Error() string {
	msg := f.Description
	if msg == "" && f.Err != nil {
		msg = f.Err.Error()
	}
	if f.Status != 0 {
		return fmt.Sprintf("%v (status %d): %s", f.Kind, f.Status, msg)
	}
	return fmt.Sprintf("%v: %s", f.Kind, msg)
}

// Unwrap returns the underlying cause for errors.Is/As chain traversal.
func (f *Failure) Unwrap() error {
	return f.Err
}

// Is reports whether the failure matches the target sentinel.
func (f *Failure) Is(target error) bool {
	return f.Kind != nil && errors.Is(f.Kind, target)
}

// Retryable reports whether the failure is a transient server error.
func (f *Failure) Retryable() bool {
	return errors.Is(f.Kind, ErrTransientServer)
}

// NewFailure classifies err as a Failure of the given kind. If err is
// already a Failure it is returned unchanged.
func NewFailure(kind error, err error) *Failure {
	var f *Failure
	if errors.As(err, &f) {
		return f
	}
	return &Failure{Kind: kind, Err: err}
}
