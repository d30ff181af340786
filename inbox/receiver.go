// Package inbox downloads, inspects and acknowledges messages addressed
// to a configured mailbox.
//
// Inbox operations perform no handshake; the service authenticates each
// request from its authorization header alone.
package inbox

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/pithecene-io/meshclient/chunk"
	"github.com/pithecene-io/meshclient/log"
	"github.com/pithecene-io/meshclient/metrics"
	"github.com/pithecene-io/meshclient/transport"
	"github.com/pithecene-io/meshclient/types"
)

// Config configures a Receiver.
type Config struct {
	Logger  *log.Logger
	Metrics *metrics.Collector
}

// Receiver reads a mailbox's inbox. It holds no per-transfer state.
type Receiver struct {
	transport transport.Sender
	endpoints transport.Endpoints
	logger    *log.Logger
	metrics   *metrics.Collector
}

// New creates a Receiver.
func New(t transport.Sender, endpoints transport.Endpoints, cfg Config) *Receiver {
	if cfg.Logger == nil {
		cfg.Logger = log.Nop()
	}
	return &Receiver{
		transport: t,
		endpoints: endpoints,
		logger:    cfg.Logger.WithComponent("inbox"),
		metrics:   cfg.Metrics,
	}
}

func requireIDs(mailboxID, messageID string) error {
	if err := types.RequireNonEmpty("mailboxID", mailboxID); err != nil {
		return err
	}
	return types.RequireNonEmpty("messageID", messageID)
}

func (r *Receiver) send(ctx context.Context, method, url, mailboxID string) (*transport.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set(transport.HeaderAccept, transport.MediaTypeV2)
	return r.transport.Send(req, mailboxID)
}

// List returns the ids of messages waiting in mailboxID's inbox.
func (r *Receiver) List(ctx context.Context, mailboxID string) (types.Outcome[types.InboxListing], error) {
	if err := types.RequireNonEmpty("mailboxID", mailboxID); err != nil {
		return types.Outcome[types.InboxListing]{}, err
	}
	resp, err := r.send(ctx, http.MethodGet, r.endpoints.Inbox(mailboxID), mailboxID)
	return transport.Decode(resp, err, func(resp *transport.Response) (types.InboxListing, error) {
		listing, err := transport.JSON[types.InboxListing](resp)
		if listing.Messages == nil {
			listing.Messages = []string{}
		}
		return listing, err
	})
}

// Get downloads a message. A 200 response yields the whole message.
// A 206 response yields a partial outcome carrying only the metadata:
// the message is chunked and must be fetched with GetChunked.
//
// A body sent with Content-Encoding gzip is decompressed.
func (r *Receiver) Get(ctx context.Context, mailboxID, messageID string) (types.Outcome[types.Message], error) {
	if err := requireIDs(mailboxID, messageID); err != nil {
		return types.Outcome[types.Message]{}, err
	}
	_, out, err := r.get(ctx, mailboxID, messageID)
	return out, err
}

// get issues the first GET of a message and also returns the raw
// response, so a partial answer can seed the chunk walk.
func (r *Receiver) get(ctx context.Context, mailboxID, messageID string) (*transport.Response, types.Outcome[types.Message], error) {
	resp, err := r.send(ctx, http.MethodGet, r.endpoints.Message(mailboxID, messageID), mailboxID)
	out, err := transport.Decode(resp, err, func(resp *transport.Response) (types.Message, error) {
		md := resp.MetaData()
		if resp.Class() == transport.ClassPartial {
			return types.Message{MetaData: md}, nil
		}
		att, err := wholeAttachment(resp)
		return types.Message{Attachment: att, MetaData: md}, err
	})
	if err != nil {
		return resp, out, err
	}

	logger := r.logger.WithMailbox(mailboxID)
	switch {
	case !out.OK():
		r.metrics.IncTransferFailure()
		logger.Warn("get failed", map[string]any{"message_id": messageID, "error": out.Failure().Error()})
	case out.Partial():
		r.metrics.AddChunkReceived(len(resp.Body))
		logger.Info("message is chunked", map[string]any{
			"message_id":   messageID,
			"total_chunks": out.Value().MetaData.TotalChunks,
		})
	default:
		r.metrics.AddChunkReceived(len(resp.Body))
		r.metrics.IncMessageReceived()
		logger.Info("message received", map[string]any{
			"message_id": messageID,
			"bytes":      out.Value().Attachment.Size(),
		})
	}
	return resp, out, nil
}

func wholeAttachment(resp *transport.Response) (types.FileAttachment, error) {
	att := resp.Attachment()
	att.ChunkNumber = 0
	if strings.EqualFold(resp.Header.Get(transport.HeaderContentEncoding), "gzip") {
		plain, err := chunk.Decompress(att.Content)
		if err != nil {
			return att, err
		}
		att.Content = plain
	}
	return att, nil
}

// GetChunked downloads every chunk of a chunked message in order and
// reassembles it.
//
// If the first GET answers 200 the message is not chunked and an error
// matching types.ErrProtocolMisuse is returned. Any chunk answered with
// neither 200 nor 206 aborts the download with that Failure. A malformed
// or inconsistent chunk range yields a types.ErrProtocol failure; a
// reassembly problem yields a types.ErrMissingChunk or
// types.ErrCorruptData failure.
func (r *Receiver) GetChunked(ctx context.Context, mailboxID, messageID string) (types.Outcome[types.Message], error) {
	if err := requireIDs(mailboxID, messageID); err != nil {
		return types.Outcome[types.Message]{}, err
	}
	logger := r.logger.WithMailbox(mailboxID)
	out, err := r.getChunked(ctx, mailboxID, messageID, logger)
	return r.chunkedDone(logger, messageID, out, err)
}

func (r *Receiver) chunkedDone(logger *log.Logger, messageID string, out types.Outcome[types.Message], err error) (types.Outcome[types.Message], error) {
	if err != nil {
		return out, err
	}
	if out.OK() {
		r.metrics.IncMessageReceived()
		logger.Info("chunked message received", map[string]any{
			"message_id":   messageID,
			"total_chunks": out.Value().MetaData.TotalChunks,
			"bytes":        out.Value().Attachment.Size(),
		})
	} else {
		r.metrics.IncTransferFailure()
		logger.Warn("chunked get failed", map[string]any{
			"message_id": messageID,
			"error":      out.Failure().Error(),
		})
	}
	return out, nil
}

func (r *Receiver) getChunked(ctx context.Context, mailboxID, messageID string, logger *log.Logger) (types.Outcome[types.Message], error) {
	fail := types.Fail[types.Message]

	resp, err := r.send(ctx, http.MethodGet, r.endpoints.Message(mailboxID, messageID), mailboxID)
	if f, err := classify(err); err != nil || f != nil {
		if f != nil {
			return fail(f), nil
		}
		return types.Outcome[types.Message]{}, err
	}
	switch resp.StatusCode {
	case http.StatusOK:
		return types.Outcome[types.Message]{}, fmt.Errorf(
			"%w: message %s is not chunked, use Get", types.ErrProtocolMisuse, messageID)
	case http.StatusPartialContent:
	default:
		return fail(resp.Failure()), nil
	}

	r.metrics.AddChunkReceived(len(resp.Body))
	return r.walkChunks(ctx, mailboxID, messageID, resp, logger)
}

// walkChunks fetches chunks 2..N after resp, the 206 answer to the
// message GET, and reassembles the message.
func (r *Receiver) walkChunks(ctx context.Context, mailboxID, messageID string, resp *transport.Response, logger *log.Logger) (types.Outcome[types.Message], error) {
	fail := types.Fail[types.Message]

	rng, err := chunk.ParseRange(resp.Header.Get(transport.HeaderChunkRange))
	if err != nil {
		return fail(&types.Failure{Kind: types.ErrProtocol, Status: resp.StatusCode, Err: err}), nil
	}

	md := resp.MetaData()
	md.TotalChunks = rng.Total
	first := resp.Attachment()
	first.ChunkNumber = rng.Current
	chunks := []types.FileAttachment{first}

	for i := 2; i <= rng.Total; i++ {
		resp, err := r.send(ctx, http.MethodGet, r.endpoints.MessageChunk(mailboxID, messageID, i), mailboxID)
		if f, err := classify(err); err != nil || f != nil {
			if f != nil {
				return fail(f), nil
			}
			return types.Outcome[types.Message]{}, err
		}
		if resp.Class() == transport.ClassFailed {
			return fail(resp.Failure()), nil
		}

		att := resp.Attachment()
		if text := resp.Header.Get(transport.HeaderChunkRange); text != "" {
			got, err := chunk.ParseRange(text)
			if err != nil {
				return fail(&types.Failure{Kind: types.ErrProtocol, Status: resp.StatusCode, Err: err}), nil
			}
			if got.Total != rng.Total {
				return fail(&types.Failure{
					Kind:   types.ErrProtocol,
					Status: resp.StatusCode,
					Description: fmt.Sprintf("chunk %d reports %d total chunks, expected %d",
						i, got.Total, rng.Total),
				}), nil
			}
		} else {
			att.ChunkNumber = i
		}
		chunks = append(chunks, att)

		r.metrics.AddChunkReceived(len(resp.Body))
		logger.Debug("chunk received", map[string]any{
			"message_id": messageID,
			"chunk":      i,
			"total":      rng.Total,
			"bytes":      len(resp.Body),
		})
	}

	assembled, err := chunk.Reassemble(chunks)
	if err != nil {
		kind := types.ErrCorruptData
		if errors.Is(err, types.ErrMissingChunk) {
			kind = types.ErrMissingChunk
		}
		return fail(&types.Failure{Kind: kind, Err: err}), nil
	}
	if assembled.FileName == "" {
		assembled.FileName = md.FileName
	}
	return types.Success(types.Message{Attachment: assembled, MetaData: md}), nil
}

// Download fetches a message whether or not it is chunked. A partial
// answer to the first GET carries chunk 1, so only chunks 2..N are
// requested afterwards.
func (r *Receiver) Download(ctx context.Context, mailboxID, messageID string) (types.Outcome[types.Message], error) {
	if err := requireIDs(mailboxID, messageID); err != nil {
		return types.Outcome[types.Message]{}, err
	}
	resp, out, err := r.get(ctx, mailboxID, messageID)
	if err != nil || !out.Partial() {
		return out, err
	}
	logger := r.logger.WithMailbox(mailboxID)
	out, err = r.walkChunks(ctx, mailboxID, messageID, resp, logger)
	return r.chunkedDone(logger, messageID, out, err)
}

// classify converts a send error: argument errors are returned as-is,
// anything else becomes a transport Failure.
func classify(err error) (*types.Failure, error) {
	if err == nil {
		return nil, nil
	}
	if errors.Is(err, types.ErrInvalidArgument) {
		return nil, err
	}
	return types.NewFailure(types.ErrTransport, err), nil
}

// Head returns a message's metadata without downloading its body.
func (r *Receiver) Head(ctx context.Context, mailboxID, messageID string) (types.Outcome[types.MessageMetaData], error) {
	if err := requireIDs(mailboxID, messageID); err != nil {
		return types.Outcome[types.MessageMetaData]{}, err
	}
	resp, err := r.send(ctx, http.MethodHead, r.endpoints.Message(mailboxID, messageID), mailboxID)
	return transport.Decode(resp, err, func(resp *transport.Response) (types.MessageMetaData, error) {
		md := resp.MetaData()
		if md.MessageID == "" {
			md.MessageID = messageID
		}
		return md, nil
	})
}

// Acknowledge marks a message as received, removing it from the inbox.
func (r *Receiver) Acknowledge(ctx context.Context, mailboxID, messageID string) (types.Outcome[types.AckReceipt], error) {
	if err := requireIDs(mailboxID, messageID); err != nil {
		return types.Outcome[types.AckReceipt]{}, err
	}
	resp, err := r.send(ctx, http.MethodPut, r.endpoints.Acknowledge(mailboxID, messageID), mailboxID)
	out, err := transport.Decode(resp, err, func(resp *transport.Response) (types.AckReceipt, error) {
		ack := types.AckReceipt{MessageID: messageID}
		if len(resp.Body) == 0 {
			return ack, nil
		}
		decoded, err := transport.JSON[types.AckReceipt](resp)
		if err != nil {
			return ack, err
		}
		if decoded.MessageID != "" {
			ack.MessageID = decoded.MessageID
		}
		return ack, nil
	})
	if err == nil && out.OK() {
		r.metrics.IncMessageAcknowledged()
		r.logger.WithMailbox(mailboxID).Info("message acknowledged", map[string]any{"message_id": messageID})
	}
	return out, err
}
