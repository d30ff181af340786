// Package chunk splits payloads into size-bounded chunks and reassembles
// them. Every function is pure: no I/O, no shared state.
package chunk

import (
	"crypto/md5" //nolint:gosec // the remote service defines the checksum as MD5
	"encoding/base64"
	"fmt"
	"sort"

	"github.com/pithecene-io/meshclient/types"
)

// DefaultSize is the default chunk size: 19 MiB, below the 20 MiB limit
// the service enforces for clients outside the private network.
const DefaultSize = 19 * 1024 * 1024

// Split cuts payload into ceil(len/size) chunks, the last holding the
// remainder. An empty payload yields no chunks.
// Chunks alias payload; callers must not mutate it while chunks are live.
func Split(payload []byte, size int) ([][]byte, error) {
	if size <= 0 {
		return nil, &types.ArgumentError{Param: "size", Reason: fmt.Sprintf("must be positive, got %d", size)}
	}
	if len(payload) == 0 {
		return [][]byte{}, nil
	}

	chunks := make([][]byte, 0, Count(len(payload), size))
	for start := 0; start < len(payload); start += size {
		end := min(start+size, len(payload))
		chunks = append(chunks, payload[start:end:end])
	}
	return chunks, nil
}

// Count returns the number of chunks Split produces for a payload of n bytes.
func Count(n, size int) int {
	if n <= 0 {
		return 0
	}
	return (n + size - 1) / size
}

// Reassemble orders chunks by ChunkNumber, verifies the sequence is
// exactly 1..N, decompresses each chunk and concatenates the result.
// The outcome does not depend on the order of the input slice.
// An empty set is the empty sequence and reassembles to empty content.
//
// FileName and ContentType are taken from chunk 1.
func Reassemble(chunks []types.FileAttachment) (types.FileAttachment, error) {
	if len(chunks) == 0 {
		return types.FileAttachment{Content: []byte{}}, nil
	}

	ordered := make([]types.FileAttachment, len(chunks))
	copy(ordered, chunks)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].ChunkNumber < ordered[j].ChunkNumber
	})

	for i, c := range ordered {
		want := i + 1
		switch {
		case c.ChunkNumber < 1:
			return types.FileAttachment{}, &ChunkError{
				Kind: types.ErrCorruptData, Index: c.ChunkNumber, Reason: "chunk number must be >= 1",
			}
		case c.ChunkNumber < want:
			return types.FileAttachment{}, &ChunkError{
				Kind: types.ErrCorruptData, Index: c.ChunkNumber, Reason: "duplicate chunk",
			}
		case c.ChunkNumber > want:
			return types.FileAttachment{}, &ChunkError{Kind: types.ErrMissingChunk, Index: want}
		}
	}

	var out []byte
	for _, c := range ordered {
		plain, err := Decompress(c.Content)
		if err != nil {
			return types.FileAttachment{}, &ChunkError{
				Kind: types.ErrCorruptData, Index: c.ChunkNumber, Err: err,
			}
		}
		out = append(out, plain...)
	}

	first := ordered[0]
	return types.FileAttachment{
		FileName:    first.FileName,
		ContentType: first.ContentType,
		Content:     out,
	}, nil
}

// Checksum returns the base64-encoded MD5 digest of data.
func Checksum(data []byte) string {
	sum := md5.Sum(data) //nolint:gosec // protocol-defined digest
	return base64.StdEncoding.EncodeToString(sum[:])
}
