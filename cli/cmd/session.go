package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/meshclient/adapter"
	"github.com/pithecene-io/meshclient/adapter/redis"
	"github.com/pithecene-io/meshclient/adapter/webhook"
	"github.com/pithecene-io/meshclient/archive"
	"github.com/pithecene-io/meshclient/cli/config"
	"github.com/pithecene-io/meshclient/cli/render"
	"github.com/pithecene-io/meshclient/handshake"
	"github.com/pithecene-io/meshclient/inbox"
	"github.com/pithecene-io/meshclient/iox"
	"github.com/pithecene-io/meshclient/log"
	"github.com/pithecene-io/meshclient/metrics"
	"github.com/pithecene-io/meshclient/outbox"
	"github.com/pithecene-io/meshclient/transport"
	"github.com/pithecene-io/meshclient/types"
)

// Exit codes.
const (
	exitSuccess = 0
	exitFailure = 1 // the service or network reported a failure
	exitUsage   = 2 // invalid arguments or configuration
)

// session is everything one command invocation needs.
type session struct {
	cfg       *config.Config
	mailbox   string
	logger    *log.Logger
	metrics   *metrics.Collector
	renderer  *render.Renderer
	endpoints transport.Endpoints
	gate      *handshake.Gate
	outbox    *outbox.Sender
	inbox     *inbox.Receiver
}

// newSession loads configuration and wires the client stack.
func newSession(c *cli.Context) (*session, error) {
	renderer, err := render.NewRenderer(c)
	if err != nil {
		return nil, cli.Exit(err.Error(), exitUsage)
	}

	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return nil, cli.Exit(err.Error(), exitUsage)
	}
	if lvl := c.String("log-level"); lvl != "" {
		cfg.LogLevel = lvl
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, cli.Exit(fmt.Sprintf("invalid config: %v", err), exitUsage)
	}

	errOut := c.App.ErrWriter
	if errOut == nil {
		errOut = os.Stderr
	}
	logger, err := log.NewLogger(log.Config{Level: cfg.LogLevel, Output: errOut})
	if err != nil {
		return nil, cli.Exit(err.Error(), exitUsage)
	}

	s, err := buildSession(cfg, c.String("mailbox"), logger)
	if err != nil {
		return nil, cli.Exit(err.Error(), exitUsage)
	}
	s.renderer = renderer
	return s, nil
}

// buildSession wires transport, handshake, outbox and inbox from cfg.
// cfg must already have defaults applied.
func buildSession(cfg *config.Config, mailboxID string, logger *log.Logger) (*session, error) {
	registry, err := cfg.Registry()
	if err != nil {
		return nil, err
	}

	switch {
	case mailboxID != "":
		if !registry.Contains(mailboxID) {
			return nil, fmt.Errorf("mailbox %s is not configured", mailboxID)
		}
	case registry.Len() == 1:
		mailboxID = registry.IDs()[0]
	default:
		return nil, errors.New("--mailbox is required when several mailboxes are configured")
	}

	endpoints, err := transport.NewEndpoints(cfg.BaseURL, cfg.Paths)
	if err != nil {
		return nil, err
	}

	httpCfg := cfg.HTTPConfig()
	doer, err := transport.NewHTTPClient(httpCfg, nil)
	if err != nil {
		return nil, err
	}
	m := metrics.NewCollector(hostOf(cfg.BaseURL), cfg.Archive.Backend)
	opts := []transport.Option{transport.WithLogger(logger), transport.WithMetrics(m)}
	for _, id := range registry.IDs() {
		ident, err := registry.Lookup(id)
		if err != nil {
			return nil, err
		}
		if ident.Certificate == nil {
			continue
		}
		mtls, err := transport.NewHTTPClient(httpCfg, ident.Certificate)
		if err != nil {
			return nil, fmt.Errorf("mailbox %s: %w", id, err)
		}
		opts = append(opts, transport.WithMailboxDoer(id, mtls))
	}
	client := transport.NewClient(registry, doer, opts...)

	gate := handshake.New(client, endpoints, handshake.Config{
		MaxRetries: *cfg.MaxRetries,
		Backoff:    cfg.RetryBackoff.Duration,
		Logger:     logger,
		Metrics:    m,
	})
	return &session{
		cfg:       cfg,
		mailbox:   mailboxID,
		logger:    logger,
		metrics:   m,
		endpoints: endpoints,
		gate:      gate,
		outbox: outbox.New(client, gate, endpoints, outbox.Config{
			ChunkSize: cfg.ChunkSize,
			Logger:    logger,
			Metrics:   m,
		}),
		inbox: inbox.New(client, endpoints, inbox.Config{Logger: logger, Metrics: m}),
	}, nil
}

func (s *session) close() {
	iox.DiscardErr(s.logger.Sync)
}

// archive opens the configured archive, or returns nil when none is configured.
func (s *session) archive(ctx context.Context) (*archive.Archive, error) {
	ac := s.cfg.Archive
	cfg := archive.Config{Logger: s.logger, Metrics: s.metrics}
	switch ac.Backend {
	case "":
		return nil, nil
	case "fs":
		return archive.NewFS(ac.Path, cfg)
	case "s3":
		bucket, prefix := archive.ParseS3Path(ac.Path)
		return archive.NewS3(ctx, archive.S3Config{
			Bucket:       bucket,
			Prefix:       prefix,
			Region:       ac.Region,
			Endpoint:     ac.Endpoint,
			UsePathStyle: ac.S3PathStyle,
		}, cfg)
	default:
		return nil, fmt.Errorf("unknown archive backend: %s", ac.Backend)
	}
}

// publisher builds the configured adapter, or returns nil when none is configured.
func (s *session) publisher() (adapter.Adapter, error) {
	ac := s.cfg.Adapter
	retries := webhook.DefaultRetries
	if ac.Retries != nil {
		retries = *ac.Retries
	}
	switch ac.Type {
	case "":
		return nil, nil
	case "webhook":
		return webhook.New(webhook.Config{
			URL:     ac.URL,
			Headers: ac.Headers,
			Timeout: ac.Timeout.Duration,
			Retries: retries,
		})
	case "redis":
		return redis.New(redis.Config{
			URL:          ac.URL,
			Channel:      ac.Channel,
			Timeout:      ac.Timeout.Duration,
			Retries:      retries,
			SplitByEvent: ac.SplitByEvent,
		})
	default:
		return nil, fmt.Errorf("unknown adapter type: %s", ac.Type)
	}
}

// publish sends event through pub, logging rather than failing: the
// transfer it describes has already happened. A nil pub is a no-op.
func publish(ctx context.Context, pub adapter.Adapter, logger *log.Logger, event *adapter.TransferEvent) {
	if pub == nil {
		return
	}
	if err := pub.Publish(ctx, event); err != nil {
		logger.Warn("publish failed", map[string]any{
			"event_type": event.EventType,
			"message_id": event.MessageID,
			"error":      err.Error(),
		})
	}
}

// check turns the pieces of an operation result into a command error:
// invalid arguments and protocol misuse exit with exitUsage, a Failure
// outcome with exitFailure.
func check(err error, failure *types.Failure) error {
	if err != nil {
		if errors.Is(err, types.ErrInvalidArgument) || errors.Is(err, types.ErrProtocolMisuse) {
			return cli.Exit(err.Error(), exitUsage)
		}
		return err
	}
	if failure != nil {
		return cli.Exit(failure.Error(), exitFailure)
	}
	return nil
}

// writeOutput writes data to path, or to w when path is empty or "-".
func writeOutput(w io.Writer, path string, data []byte) error {
	if path == "" || path == "-" {
		_, err := w.Write(data)
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

func timestamp() string {
	return time.Now().UTC().Format(time.RFC3339)
}

func hostOf(baseURL string) string {
	u, err := url.Parse(baseURL)
	if err != nil {
		return ""
	}
	return u.Host
}
