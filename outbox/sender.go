// Package outbox sends messages to other mailboxes, either in a single
// request or as a sequence of compressed chunks, and tracks their delivery.
package outbox

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/pithecene-io/meshclient/chunk"
	"github.com/pithecene-io/meshclient/log"
	"github.com/pithecene-io/meshclient/metrics"
	"github.com/pithecene-io/meshclient/transport"
	"github.com/pithecene-io/meshclient/types"
)

// MessageTypeData is the message type of every payload this client sends.
const MessageTypeData = "DATA"

// Handshaker validates a mailbox before a transfer. *handshake.Gate satisfies it.
type Handshaker interface {
	Validate(ctx context.Context, mailboxID string) (types.Outcome[types.HandshakeInfo], error)
}

// Config configures a Sender.
type Config struct {
	// ChunkSize is the threshold and size of chunks (default chunk.DefaultSize).
	// Payloads of ChunkSize bytes or more are sent chunked.
	ChunkSize int
	Logger    *log.Logger
	Metrics   *metrics.Collector
}

// Sender sends outbound messages. It holds no per-transfer state and
// may run independent transfers concurrently.
type Sender struct {
	transport transport.Sender
	gate      Handshaker
	endpoints transport.Endpoints
	chunkSize int
	logger    *log.Logger
	metrics   *metrics.Collector
}

// New creates a Sender.
func New(t transport.Sender, gate Handshaker, endpoints transport.Endpoints, cfg Config) *Sender {
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = chunk.DefaultSize
	}
	if cfg.Logger == nil {
		cfg.Logger = log.Nop()
	}
	return &Sender{
		transport: t,
		gate:      gate,
		endpoints: endpoints,
		chunkSize: cfg.ChunkSize,
		logger:    cfg.Logger.WithComponent("outbox"),
		metrics:   cfg.Metrics,
	}
}

// Send validates the sending mailbox, then uploads msg.
//
// Payloads smaller than ChunkSize go in one POST, gzipped only when
// msg.Compress is set. Larger payloads are split and every chunk is
// gzipped; chunks are posted strictly in order and the first rejected
// chunk aborts the transfer. Chunks already accepted stay on the remote
// side.
//
// Missing From, To, WorkflowID or FileName is returned as an error
// before any network call. Every remote or network failure, including a
// failed handshake, is returned as a Failure outcome.
func (s *Sender) Send(ctx context.Context, msg types.OutboundMessage) (types.Outcome[types.SendReceipt], error) {
	if err := validate(msg); err != nil {
		return types.Outcome[types.SendReceipt]{}, err
	}

	hs, err := s.gate.Validate(ctx, msg.From)
	if err != nil {
		return types.Outcome[types.SendReceipt]{}, err
	}
	if !hs.OK() {
		s.metrics.IncTransferFailure()
		return types.FailureOf[types.SendReceipt](hs), nil
	}

	var out types.Outcome[types.SendReceipt]
	if len(msg.File.Content) >= s.chunkSize {
		out, err = s.sendChunked(ctx, msg)
	} else {
		out, err = s.sendSingle(ctx, msg)
	}
	if err != nil {
		return out, err
	}

	logger := s.logger.WithMailbox(msg.From)
	if out.OK() {
		s.metrics.IncMessageSent()
		logger.Info("message sent", map[string]any{
			"message_id": out.Value().MessageID,
			"to":         msg.To,
			"chunks":     out.Value().Chunks,
			"bytes":      len(msg.File.Content),
		})
	} else {
		s.metrics.IncTransferFailure()
		logger.Error("send failed", map[string]any{
			"to":    msg.To,
			"error": out.Failure().Error(),
		})
	}
	return out, nil
}

func validate(msg types.OutboundMessage) error {
	for _, f := range []struct{ param, value string }{
		{"from", msg.From},
		{"to", msg.To},
		{"workflowID", msg.WorkflowID},
		{"fileName", msg.File.FileName},
	} {
		if err := types.RequireNonEmpty(f.param, f.value); err != nil {
			return err
		}
	}
	return nil
}

func (s *Sender) sendSingle(ctx context.Context, msg types.OutboundMessage) (types.Outcome[types.SendReceipt], error) {
	body := msg.File.Content
	if msg.Compress {
		z, err := chunk.Compress(body)
		if err != nil {
			return types.Fail[types.SendReceipt](types.NewFailure(types.ErrCorruptData, err)), nil
		}
		body = z
	}

	req, err := s.newRequest(ctx, s.endpoints.Outbox(msg.From), msg, body, msg.Compress)
	if err != nil {
		return types.Outcome[types.SendReceipt]{}, err
	}

	resp, err := s.transport.Send(req, msg.From)
	out, err := transport.Decode(resp, err, decodeReceipt(1), http.StatusAccepted)
	if err == nil && out.OK() {
		s.metrics.AddChunkSent(len(body))
	}
	return out, err
}

func (s *Sender) sendChunked(ctx context.Context, msg types.OutboundMessage) (types.Outcome[types.SendReceipt], error) {
	parts, err := chunk.Split(msg.File.Content, s.chunkSize)
	if err != nil {
		return types.Outcome[types.SendReceipt]{}, err
	}
	total := len(parts)
	logger := s.logger.WithMailbox(msg.From)

	var messageID string
	for i, part := range parts {
		n := i + 1
		body, err := chunk.Compress(part)
		if err != nil {
			return types.Fail[types.SendReceipt](types.NewFailure(types.ErrCorruptData, err)), nil
		}
		rng, err := chunk.FormatRange(n, total)
		if err != nil {
			return types.Outcome[types.SendReceipt]{}, err
		}

		url := s.endpoints.Outbox(msg.From)
		if n > 1 {
			url = s.endpoints.OutboxChunk(msg.From, messageID, n)
		}
		req, err := s.newRequest(ctx, url, msg, body, true)
		if err != nil {
			return types.Outcome[types.SendReceipt]{}, err
		}
		req.Header.Set(transport.HeaderChunkRange, rng)

		resp, err := s.transport.Send(req, msg.From)
		if n == 1 {
			out, err := transport.Decode(resp, err, decodeReceipt(total), http.StatusAccepted)
			if err != nil || !out.OK() {
				return out, err
			}
			messageID = out.Value().MessageID
		} else if f, err := requireOK(resp, err); err != nil || f != nil {
			if f != nil {
				logger.Warn("chunk rejected", map[string]any{
					"message_id": messageID,
					"chunk":      rng,
					"status":     f.Status,
				})
				return types.Fail[types.SendReceipt](f), nil
			}
			return types.Outcome[types.SendReceipt]{}, err
		}

		s.metrics.AddChunkSent(len(body))
		logger.Debug("chunk sent", map[string]any{
			"message_id": messageID,
			"chunk":      rng,
			"bytes":      len(body),
		})
	}

	return types.Success(types.SendReceipt{MessageID: messageID, Chunks: total}), nil
}

// requireOK accepts exactly 200. It returns a Failure for any other
// response or for a network error, and an error for argument errors.
func requireOK(resp *transport.Response, err error) (*types.Failure, error) {
	if err != nil {
		if errors.Is(err, types.ErrInvalidArgument) {
			return nil, err
		}
		return types.NewFailure(types.ErrTransport, err), nil
	}
	if resp.StatusCode != http.StatusOK {
		return resp.Failure(), nil
	}
	return nil, nil
}

func decodeReceipt(chunks int) func(*transport.Response) (types.SendReceipt, error) {
	return func(r *transport.Response) (types.SendReceipt, error) {
		receipt, err := transport.JSON[types.SendReceipt](r)
		if err != nil {
			return receipt, err
		}
		if receipt.MessageID == "" {
			return receipt, fmt.Errorf("%w: response carries no message_id", types.ErrProtocol)
		}
		receipt.Chunks = chunks
		return receipt, nil
	}
}

func (s *Sender) newRequest(ctx context.Context, url string, msg types.OutboundMessage, body []byte, compressed bool) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	contentType := msg.File.ContentType
	if contentType == "" {
		contentType = transport.MediaTypeOctetStream
	}

	h := req.Header
	h.Set(transport.HeaderAccept, transport.MediaTypeV2)
	h.Set(transport.HeaderContentType, contentType)
	h.Set(transport.HeaderFrom, msg.From)
	h.Set(transport.HeaderTo, msg.To)
	h.Set(transport.HeaderWorkflowID, msg.WorkflowID)
	h.Set(transport.HeaderFileName, msg.File.FileName)
	h.Set(transport.HeaderMessageType, MessageTypeData)
	h.Set(transport.HeaderContentEncrypted, "N")
	if msg.LocalID != "" {
		h.Set(transport.HeaderLocalID, msg.LocalID)
	}
	if msg.Subject != "" {
		h.Set(transport.HeaderSubject, msg.Subject)
	}
	if msg.Checksum {
		h.Set(transport.HeaderChecksum, chunk.Checksum(msg.File.Content))
	}
	if compressed {
		h.Set(transport.HeaderContentCompressed, "Y")
		h.Set(transport.HeaderContentEncoding, "gzip")
	} else {
		h.Set(transport.HeaderContentCompressed, "N")
	}
	return req, nil
}
