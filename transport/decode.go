package transport

import (
	"errors"
	"slices"

	"github.com/pithecene-io/meshclient/types"
)

// Decode turns the result of Client.Send into an Outcome.
//
//   - argument errors (types.ErrInvalidArgument) are returned as errors
//   - any other send error becomes a types.ErrTransport failure
//   - 200, or any status listed in accept, yields Success(fn(resp))
//   - 206 yields PartialSuccess(fn(resp))
//   - anything else yields resp.Failure()
//
// A mapping error from fn becomes a types.ErrProtocol failure, or a
// types.ErrCorruptData failure when the error says so.
func Decode[T any](resp *Response, err error, fn func(*Response) (T, error), accept ...int) (types.Outcome[T], error) {
	if err != nil {
		if errors.Is(err, types.ErrInvalidArgument) {
			return types.Outcome[T]{}, err
		}
		return types.Fail[T](types.NewFailure(types.ErrTransport, err)), nil
	}

	partial := false
	switch {
	case resp.Class() == ClassComplete, slices.Contains(accept, resp.StatusCode):
	case resp.Class() == ClassPartial:
		partial = true
	default:
		return types.Fail[T](resp.Failure()), nil
	}

	v, err := fn(resp)
	if err != nil {
		kind := types.ErrProtocol
		if errors.Is(err, types.ErrCorruptData) {
			kind = types.ErrCorruptData
		}
		return types.Fail[T](&types.Failure{
			Kind:   kind,
			Status: resp.StatusCode,
			Err:    err,
		}), nil
	}
	if partial {
		return types.PartialSuccess(v), nil
	}
	return types.Success(v), nil
}
