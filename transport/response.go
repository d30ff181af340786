package transport

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/pithecene-io/meshclient/chunk"
	"github.com/pithecene-io/meshclient/types"
)

// Class is the protocol classification of a response status.
type Class int

const (
	// ClassFailed is any status other than 200 and 206.
	ClassFailed Class = iota
	// ClassComplete is 200: the operation finished.
	ClassComplete
	// ClassPartial is 206: more chunks remain.
	ClassPartial
)

// String returns the class name.
func (c Class) String() string {
	switch c {
	case ClassComplete:
		return "complete"
	case ClassPartial:
		return "partial"
	default:
		return "failed"
	}
}

// Response is a fully read HTTP response.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Class classifies the response status.
func (r *Response) Class() Class {
	switch r.StatusCode {
	case http.StatusOK:
		return ClassComplete
	case http.StatusPartialContent:
		return ClassPartial
	default:
		return ClassFailed
	}
}

// errorBody is the service's structured error payload.
type errorBody struct {
	ErrorEvent       string `json:"errorEvent"`
	ErrorCode        string `json:"errorCode"`
	ErrorDescription string `json:"errorDescription"`
}

// Failure describes a non-success response. 5xx statuses are classified
// as types.ErrTransientServer, everything else as types.ErrRemoteRejected.
// The structured error body is decoded when present; otherwise the
// description falls back to the body text or the status line.
func (r *Response) Failure() *types.Failure {
	kind := types.ErrRemoteRejected
	if r.StatusCode >= 500 {
		kind = types.ErrTransientServer
	}
	f := &types.Failure{Kind: kind, Status: r.StatusCode}

	var eb errorBody
	if len(r.Body) > 0 && json.Unmarshal(r.Body, &eb) == nil {
		f.Event = eb.ErrorEvent
		f.Code = eb.ErrorCode
		f.Description = eb.ErrorDescription
	}
	if f.Description == "" {
		if text := strings.TrimSpace(string(r.Body)); text != "" && len(text) <= 512 && !json.Valid(r.Body) {
			f.Description = text
		} else {
			f.Description = fmt.Sprintf("%d %s", r.StatusCode, http.StatusText(r.StatusCode))
		}
	}
	return f
}

// MetaData derives message metadata from the response headers.
// TotalChunks comes from Mex-Total-Chunks, else from the chunk range total.
func (r *Response) MetaData() types.MessageMetaData {
	h := r.Header
	md := types.MessageMetaData{
		WorkflowID:  h.Get(HeaderWorkflowID),
		ToMailbox:   h.Get(HeaderTo),
		FromMailbox: h.Get(HeaderFrom),
		MessageID:   h.Get(HeaderMessageID),
		FileName:    h.Get(HeaderFileName),
		MessageType: h.Get(HeaderMessageType),
		LocalID:     h.Get(HeaderLocalID),
		Subject:     h.Get(HeaderSubject),
		ChunkRange:  h.Get(HeaderChunkRange),
	}
	if n, err := strconv.Atoi(h.Get(HeaderTotalChunks)); err == nil && n > 0 {
		md.TotalChunks = n
	} else if rng, err := chunk.ParseRange(md.ChunkRange); err == nil {
		md.TotalChunks = rng.Total
	}
	return md
}

// Attachment builds a FileAttachment from the response body and headers.
// ChunkNumber is taken from Mex-Chunk-Range when present and well formed.
func (r *Response) Attachment() types.FileAttachment {
	att := types.FileAttachment{
		FileName:    r.Header.Get(HeaderFileName),
		ContentType: r.Header.Get(HeaderContentType),
		Content:     r.Body,
	}
	if rng, err := chunk.ParseRange(r.Header.Get(HeaderChunkRange)); err == nil {
		att.ChunkNumber = rng.Current
	}
	return att
}

// JSON decodes the response body into T.
func JSON[T any](r *Response) (T, error) {
	var v T
	if err := json.Unmarshal(r.Body, &v); err != nil {
		return v, fmt.Errorf("decode %T: %w", v, err)
	}
	return v, nil
}
