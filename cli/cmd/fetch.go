package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/meshclient/adapter"
	"github.com/pithecene-io/meshclient/archive"
	"github.com/pithecene-io/meshclient/inbox"
	"github.com/pithecene-io/meshclient/iox"
	"github.com/pithecene-io/meshclient/log"
	"github.com/pithecene-io/meshclient/metrics"
	"github.com/pithecene-io/meshclient/state"
)

// Fetch result statuses.
const (
	FetchStatusFetched = "fetched"
	FetchStatusSkipped = "skipped"
	FetchStatusFailed  = "failed"
)

// FetchCommand returns the fetch command.
func FetchCommand() *cli.Command {
	return &cli.Command{
		Name:  "fetch",
		Usage: "Download every new inbox message into the archive",
		Flags: ClientFlags(
			&cli.BoolFlag{Name: "ack", Usage: "Acknowledge each message once it is stored"},
			&cli.IntFlag{Name: "limit", Usage: "Maximum number of messages to download (0 = all)"},
		),
		Action: fetchAction,
	}
}

// FetchResult is the per-message result of a fetch run.
type FetchResult struct {
	MessageID    string `json:"message_id"`
	Status       string `json:"status"`
	FileName     string `json:"file_name,omitempty"`
	Bytes        int    `json:"bytes,omitempty"`
	Chunks       int    `json:"chunks,omitempty"`
	ArchivePath  string `json:"archive_path,omitempty"`
	Acknowledged bool   `json:"acknowledged,omitempty"`
	Error        string `json:"error,omitempty"`
}

// FetchSummary is printed at the end of a fetch run.
type FetchSummary struct {
	Mailbox  string           `json:"mailbox"`
	Listed   int              `json:"listed"`
	Fetched  int              `json:"fetched"`
	Skipped  int              `json:"skipped"`
	Failed   int              `json:"failed"`
	Messages []FetchResult    `json:"messages"`
	Metrics  metrics.Snapshot `json:"metrics"`
}

// fetcher drains one mailbox: list, skip already processed ids,
// download, archive, optionally acknowledge, record, publish.
// A failing message is reported and the run moves on.
type fetcher struct {
	inbox     *inbox.Receiver
	archive   *archive.Archive // nil disables archiving
	tracker   state.Tracker
	publisher adapter.Adapter // nil disables events
	metrics   *metrics.Collector
	logger    *log.Logger
	ack       bool
	limit     int
}

func (f *fetcher) run(ctx context.Context, mailboxID string) (FetchSummary, error) {
	summary := FetchSummary{Mailbox: mailboxID, Messages: []FetchResult{}}

	listing, err := f.inbox.List(ctx, mailboxID)
	if err := check(err, listing.Failure()); err != nil {
		return summary, err
	}
	ids := listing.Value().Messages
	summary.Listed = len(ids)

	for _, id := range ids {
		if ctx.Err() != nil {
			break
		}
		if f.tracker.AlreadyProcessed(id) {
			summary.Skipped++
			summary.Messages = append(summary.Messages, FetchResult{MessageID: id, Status: FetchStatusSkipped})
			continue
		}
		if f.limit > 0 && summary.Fetched+summary.Failed >= f.limit {
			break
		}

		res := f.fetchOne(ctx, mailboxID, id)
		if res.Status == FetchStatusFailed {
			summary.Failed++
			f.logger.Warn("fetch failed", map[string]any{"message_id": id, "error": res.Error})
		} else {
			summary.Fetched++
		}
		summary.Messages = append(summary.Messages, res)
	}

	summary.Metrics = f.metrics.Snapshot()
	return summary, nil
}

func (f *fetcher) fetchOne(ctx context.Context, mailboxID, id string) FetchResult {
	res := FetchResult{MessageID: id, Status: FetchStatusFailed}
	start := time.Now()

	out, err := f.inbox.Download(ctx, mailboxID, id)
	if err != nil {
		res.Error = err.Error()
		return res
	}
	if fail := out.Failure(); fail != nil {
		res.Error = fail.Error()
		return res
	}
	msg := out.Value()
	if msg.MetaData.MessageID == "" {
		msg.MetaData.MessageID = id
	}
	res.FileName = msg.Attachment.FileName
	res.Bytes = msg.Attachment.Size()
	res.Chunks = max(msg.MetaData.TotalChunks, 1)

	if f.archive != nil {
		key, err := f.archive.Save(ctx, mailboxID, msg)
		if err != nil {
			res.Error = err.Error()
			return res
		}
		res.ArchivePath = key
	}
	// A message only counts as processed once the remote side has
	// released it; otherwise a failed ack would be skipped forever.
	if f.ack {
		ack, err := f.inbox.Acknowledge(ctx, mailboxID, id)
		if err != nil {
			res.Error = err.Error()
			return res
		}
		if fail := ack.Failure(); fail != nil {
			res.Error = fail.Error()
			return res
		}
		res.Acknowledged = true
	}
	if err := f.tracker.MarkProcessed(id, mailboxID); err != nil {
		res.Error = err.Error()
		return res
	}
	res.Status = FetchStatusFetched

	publish(ctx, f.publisher, f.logger, &adapter.TransferEvent{
		EventType:    adapter.EventMessageReceived,
		MessageID:    id,
		MailboxID:    mailboxID,
		From:         msg.MetaData.FromMailbox,
		To:           msg.MetaData.ToMailbox,
		WorkflowID:   msg.MetaData.WorkflowID,
		FileName:     res.FileName,
		LocalID:      msg.MetaData.LocalID,
		Bytes:        res.Bytes,
		Chunks:       res.Chunks,
		ArchivePath:  res.ArchivePath,
		Acknowledged: res.Acknowledged,
		Timestamp:    timestamp(),
		DurationMs:   time.Since(start).Milliseconds(),
	})
	return res
}

func fetchAction(c *cli.Context) error {
	s, err := newSession(c)
	if err != nil {
		return err
	}
	defer s.close()

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	arch, err := s.archive(ctx)
	if err != nil {
		return cli.Exit(err.Error(), exitUsage)
	}

	var tracker state.Tracker = state.NewMemoryTracker()
	if s.cfg.StateDir != "" {
		ft, err := state.Open(s.cfg.StateDir)
		if err != nil {
			return cli.Exit(err.Error(), exitUsage)
		}
		defer iox.DiscardClose(ft)
		tracker = ft
	}

	pub, err := s.publisher()
	if err != nil {
		return cli.Exit(err.Error(), exitUsage)
	}
	if pub != nil {
		defer iox.DiscardClose(pub)
	}

	f := &fetcher{
		inbox:     s.inbox,
		archive:   arch,
		tracker:   tracker,
		publisher: pub,
		metrics:   s.metrics,
		logger:    s.logger.WithComponent("fetch"),
		ack:       c.Bool("ack"),
		limit:     c.Int("limit"),
	}
	summary, err := f.run(ctx, s.mailbox)
	if err != nil {
		return err
	}
	s.logger.Sugar().With("mailbox_id", s.mailbox).Infof("fetch complete: %d fetched, %d skipped, %d failed",
		summary.Fetched, summary.Skipped, summary.Failed)
	if err := s.renderer.Render(summary); err != nil {
		return err
	}
	if summary.Failed > 0 {
		return cli.Exit("", exitFailure)
	}
	return nil
}
