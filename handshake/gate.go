// Package handshake validates a mailbox with the remote service before
// a transfer proceeds.
package handshake

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/pithecene-io/meshclient/log"
	"github.com/pithecene-io/meshclient/metrics"
	"github.com/pithecene-io/meshclient/transport"
	"github.com/pithecene-io/meshclient/types"
)

// DefaultMaxRetries is the default number of retries after the first attempt.
const DefaultMaxRetries = 3

// DefaultBackoff is the delay before the first retry. It doubles per retry.
const DefaultBackoff = 500 * time.Millisecond

// Config configures a Gate.
type Config struct {
	// MaxRetries is the number of retries after the first attempt,
	// usually DefaultMaxRetries. Only 5xx responses are retried.
	MaxRetries int
	// Backoff is the base delay; retry i waits Backoff * 2^(i-1).
	Backoff time.Duration
	Logger  *log.Logger
	Metrics *metrics.Collector
}

// Gate performs the handshake with bounded retry.
type Gate struct {
	sender     transport.Sender
	endpoints  transport.Endpoints
	maxRetries int
	backoff    time.Duration
	logger     *log.Logger
	metrics    *metrics.Collector
}

// New creates a Gate. A negative MaxRetries is treated as zero.
func New(sender transport.Sender, endpoints transport.Endpoints, cfg Config) *Gate {
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.Backoff <= 0 {
		cfg.Backoff = DefaultBackoff
	}
	if cfg.Logger == nil {
		cfg.Logger = log.Nop()
	}
	return &Gate{
		sender:     sender,
		endpoints:  endpoints,
		maxRetries: cfg.MaxRetries,
		backoff:    cfg.Backoff,
		logger:     cfg.Logger.WithComponent("handshake"),
		metrics:    cfg.Metrics,
	}
}

// Validate performs GET /{mailbox}. It retries only on 5xx responses, up
// to MaxRetries further attempts with exponential backoff; 4xx and
// transport failures are terminal. On exhaustion the last Failure is
// returned. Context cancellation during backoff ends the loop with a
// transport failure.
//
// An empty or unconfigured mailbox id is returned as an error.
func (g *Gate) Validate(ctx context.Context, mailboxID string) (types.Outcome[types.HandshakeInfo], error) {
	if err := types.RequireNonEmpty("mailboxID", mailboxID); err != nil {
		return types.Outcome[types.HandshakeInfo]{}, err
	}

	attempts := 1 + g.maxRetries
	var last types.Outcome[types.HandshakeInfo]

	for i := range attempts {
		if i > 0 {
			g.metrics.IncHandshakeRetry()
			backoff := time.Duration(1<<uint(i-1)) * g.backoff
			g.logger.Warn("handshake retry", map[string]any{
				"mailbox_id": mailboxID,
				"attempt":    i + 1,
				"backoff_ms": backoff.Milliseconds(),
				"status":     last.Failure().Status,
			})
			select {
			case <-ctx.Done():
				g.metrics.IncHandshakeFailure()
				return types.Fail[types.HandshakeInfo](types.NewFailure(types.ErrTransport, ctx.Err())), nil
			case <-time.After(backoff):
			}
		}

		out, err := g.attempt(ctx, mailboxID)
		if err != nil {
			return out, err
		}
		if out.OK() {
			return out, nil
		}
		last = out
		if !out.Failure().Retryable() {
			break
		}
	}

	g.metrics.IncHandshakeFailure()
	g.logger.Error("handshake failed", map[string]any{
		"mailbox_id": mailboxID,
		"error":      last.Failure().Error(),
	})
	return last, nil
}

func (g *Gate) attempt(ctx context.Context, mailboxID string) (types.Outcome[types.HandshakeInfo], error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.endpoints.Handshake(mailboxID), nil)
	if err != nil {
		return types.Outcome[types.HandshakeInfo]{}, err
	}
	req.Header.Set(transport.HeaderAccept, transport.MediaTypeV2)

	g.metrics.IncHandshakeAttempt()
	resp, err := g.sender.Send(req, mailboxID)
	return transport.Decode(resp, err, func(r *transport.Response) (types.HandshakeInfo, error) {
		info := types.HandshakeInfo{MailboxID: mailboxID}
		if len(r.Body) == 0 {
			return info, nil
		}
		if err := json.Unmarshal(r.Body, &info); err != nil {
			return info, err
		}
		if info.MailboxID == "" {
			info.MailboxID = mailboxID
		}
		return info, nil
	})
}
