package types

// Outcome is the result of a protocol operation: exactly one of a success
// value or a Failure. A success may additionally be partial (HTTP 206),
// meaning more chunks remain to be fetched.
//
// The zero Outcome is not valid; build one with Success, PartialSuccess,
// Fail or FailureOf.
type Outcome[T any] struct {
	value   T
	partial bool
	failure *Failure
}

// Success returns a complete successful outcome.
func Success[T any](v T) Outcome[T] {
	return Outcome[T]{value: v}
}

// PartialSuccess returns a successful outcome flagged as partial content.
func PartialSuccess[T any](v T) Outcome[T] {
	return Outcome[T]{value: v, partial: true}
}

// Fail returns a failed outcome. A nil failure is replaced by a generic
// transport failure so the outcome is never half-populated.
func Fail[T any](f *Failure) Outcome[T] {
	if f == nil {
		f = &Failure{Kind: ErrTransport, Description: "unknown failure"}
	}
	return Outcome[T]{failure: f}
}

// FailureOf recasts a failed outcome into another outcome type, carrying
// the Failure verbatim. Calling it on a successful outcome is a
// programming error and panics.
func FailureOf[U, T any](o Outcome[T]) Outcome[U] {
	if o.failure == nil {
		panic("types: FailureOf called on a successful outcome")
	}
	return Outcome[U]{failure: o.failure}
}

// OK reports whether the outcome is a success (complete or partial).
func (o Outcome[T]) OK() bool {
	return o.failure == nil
}

// Partial reports whether the outcome is a partial-content success.
func (o Outcome[T]) Partial() bool {
	return o.failure == nil && o.partial
}

// Value returns the success payload, or the zero value on failure.
func (o Outcome[T]) Value() T {
	return o.value
}

// Failure returns the failure, or nil on success.
func (o Outcome[T]) Failure() *Failure {
	return o.failure
}

// Err returns the failure as an error, or nil on success.
func (o Outcome[T]) Err() error {
	if o.failure == nil {
		return nil
	}
	return o.failure
}
