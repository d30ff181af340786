// Package transport owns one logical HTTP round trip to the mailbox
// service: it signs the request, attaches the client identity headers,
// delegates to an injected HTTP capability and classifies the response.
//
// Retries are not performed here. The only retry loop in the client is
// the handshake gate.
package transport

import (
	"fmt"
	"net/http"
	"sync"

	"github.com/pithecene-io/meshclient/auth"
	"github.com/pithecene-io/meshclient/iox"
	"github.com/pithecene-io/meshclient/log"
	"github.com/pithecene-io/meshclient/mailbox"
	"github.com/pithecene-io/meshclient/metrics"
	"github.com/pithecene-io/meshclient/types"
)

// Doer performs one HTTP request. *http.Client satisfies it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Sender performs one signed round trip. *Client satisfies it; tests and
// decorators may substitute their own.
type Sender interface {
	Send(req *http.Request, mailboxID string) (*Response, error)
}

// Client sends signed requests on behalf of configured mailboxes.
// It holds no per-request state and is safe for concurrent use.
type Client struct {
	registry *mailbox.Registry
	signer   *auth.Signer
	doer     Doer
	doers    map[string]Doer
	logger   *log.Logger
	metrics  *metrics.Collector
	osInfo   OSInfo
	maxBody  int64
}

// Option configures a Client.
type Option func(*Client)

// WithSigner overrides the default signer.
func WithSigner(s *auth.Signer) Option {
	return func(c *Client) { c.signer = s }
}

// WithMailboxDoer routes requests for mailboxID through d, typically an
// *http.Client carrying that mailbox's client certificate.
func WithMailboxDoer(mailboxID string, d Doer) Option {
	return func(c *Client) { c.doers[mailboxID] = d }
}

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// WithMetrics sets the metrics collector.
func WithMetrics(m *metrics.Collector) Option {
	return func(c *Client) { c.metrics = m }
}

// WithOSInfo overrides the detected platform identity.
func WithOSInfo(info OSInfo) Option {
	return func(c *Client) { c.osInfo = info }
}

// WithMaxBodySize overrides the response body bound.
func WithMaxBodySize(n int64) Option {
	return func(c *Client) { c.maxBody = n }
}

// NewClient creates a Client. doer is the default HTTP capability for
// mailboxes without a dedicated one.
func NewClient(registry *mailbox.Registry, doer Doer, opts ...Option) *Client {
	c := &Client{
		registry: registry,
		signer:   auth.NewSigner(),
		doer:     doer,
		doers:    make(map[string]Doer),
		logger:   log.Nop(),
		osInfo:   detectOSOnce(),
		maxBody:  iox.MaxBodySize,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.WithComponent("transport")
	return c
}

var detectOSOnce = sync.OnceValue(DetectOS)

// Send signs req for mailboxID, performs it and reads the full response.
//
// An unconfigured mailbox or a signer argument error is returned as-is
// (types.ErrInvalidArgument) before any network call. A request that
// yields no response is returned as *TransportError. Send mutates
// nothing outside req's headers and is safe to retry.
func (c *Client) Send(req *http.Request, mailboxID string) (*Response, error) {
	id, err := c.registry.Lookup(mailboxID)
	if err != nil {
		return nil, err
	}
	authz, err := c.signer.Sign(id.ID, id.Password, id.SharedKey)
	if err != nil {
		return nil, err
	}

	req.Header.Set(HeaderAuthorization, authz)
	req.Header.Set(HeaderClientVersion, types.ClientVersionHeader())
	req.Header.Set(HeaderOSArchitecture, c.osInfo.Architecture)
	req.Header.Set(HeaderOSName, c.osInfo.Name)
	req.Header.Set(HeaderOSVersion, c.osInfo.Version)

	doer := c.doer
	if d, ok := c.doers[mailboxID]; ok {
		doer = d
	}

	c.metrics.IncRequest()
	c.logger.Debug("sending request", map[string]any{
		"mailbox_id": mailboxID,
		"method":     req.Method,
		"url":        req.URL.String(),
	})

	httpResp, err := doer.Do(req)
	if err != nil {
		c.metrics.IncTransportError()
		c.logger.Warn("request failed", map[string]any{
			"mailbox_id": mailboxID,
			"method":     req.Method,
			"error":      err.Error(),
		})
		return nil, &TransportError{Method: req.Method, URL: req.URL.Redacted(), Err: err}
	}
	defer iox.DiscardClose(httpResp.Body)

	body, err := iox.ReadBounded(httpResp.Body, c.maxBody)
	if err != nil {
		c.metrics.IncTransportError()
		return nil, &TransportError{
			Method: req.Method,
			URL:    req.URL.Redacted(),
			Err:    fmt.Errorf("read body: %w", err),
		}
	}

	c.metrics.RecordResponse(httpResp.StatusCode)
	c.logger.Debug("received response", map[string]any{
		"mailbox_id": mailboxID,
		"method":     req.Method,
		"status":     httpResp.StatusCode,
		"bytes":      len(body),
	})

	return &Response{
		StatusCode: httpResp.StatusCode,
		Header:     httpResp.Header,
		Body:       body,
	}, nil
}

// Verify Client implements Sender.
var _ Sender = (*Client)(nil)
