package chunk

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/pithecene-io/meshclient/types"
)

// Range is a chunk position within a message, 1 <= Current <= Total.
// Its text form is "{current}:{total}", carried in the mex-chunk-range header.
type Range struct {
	Current int
	Total   int
}

// String returns the header form of r.
func (r Range) String() string {
	return strconv.Itoa(r.Current) + ":" + strconv.Itoa(r.Total)
}

// ParseRange parses a "{current}:{total}" header value.
// Malformed or out-of-bounds input yields an error matching types.ErrProtocol.
func ParseRange(text string) (Range, error) {
	cur, tot, ok := strings.Cut(strings.TrimSpace(text), ":")
	if !ok {
		return Range{}, fmt.Errorf("%w: chunk range %q: missing separator", types.ErrProtocol, text)
	}
	current, err := strconv.Atoi(cur)
	if err != nil {
		return Range{}, fmt.Errorf("%w: chunk range %q: current: %w", types.ErrProtocol, text, err)
	}
	total, err := strconv.Atoi(tot)
	if err != nil {
		return Range{}, fmt.Errorf("%w: chunk range %q: total: %w", types.ErrProtocol, text, err)
	}
	if current < 1 || current > total {
		return Range{}, fmt.Errorf("%w: chunk range %q out of bounds", types.ErrProtocol, text)
	}
	return Range{Current: current, Total: total}, nil
}

// FormatRange returns the header form of (current, total).
func FormatRange(current, total int) (string, error) {
	if current < 1 {
		return "", &types.ArgumentError{Param: "current", Reason: fmt.Sprintf("must be >= 1, got %d", current)}
	}
	if current > total {
		return "", &types.ArgumentError{
			Param:  "current",
			Reason: fmt.Sprintf("%d exceeds total %d", current, total),
		}
	}
	return Range{Current: current, Total: total}.String(), nil
}
