package chunk

import (
	"errors"
	"fmt"
)

// ChunkError reports a reassembly problem at a specific chunk index.
// Kind is types.ErrMissingChunk or types.ErrCorruptData.
type ChunkError struct { //nolint:revive // chunk.ChunkError reads better than chunk.Error at call sites
	Kind   error
	Index  int
	Reason string
	Err    error
}

func (e *ChunkError) Error() string {
	msg := fmt.Sprintf("%v: chunk %d", e.Kind, e.Index)
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *ChunkError) Unwrap() error {
	return e.Err
}

// Is reports whether target matches the error kind.
func (e *ChunkError) Is(target error) bool {
	return e.Kind != nil && errors.Is(e.Kind, target)
}
