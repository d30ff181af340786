package cmd

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/meshclient/adapter"
	"github.com/pithecene-io/meshclient/iox"
	"github.com/pithecene-io/meshclient/types"
)

// SendCommand returns the send command.
func SendCommand() *cli.Command {
	return &cli.Command{
		Name:  "send",
		Usage: "Send a file to another mailbox",
		Flags: ClientFlags(
			&cli.StringFlag{Name: "to", Usage: "Recipient mailbox id", Required: true},
			&cli.StringFlag{Name: "workflow-id", Aliases: []string{"w"}, Usage: "Workflow id agreed with the recipient", Required: true},
			&cli.StringFlag{Name: "file", Usage: "File to send, or - for stdin", Required: true},
			&cli.StringFlag{Name: "file-name", Usage: "File name reported to the recipient (default: base name of --file)"},
			&cli.StringFlag{Name: "content-type", Usage: "Payload media type (default: sniffed from content)"},
			&cli.StringFlag{Name: "local-id", Usage: "Caller correlation id"},
			&cli.StringFlag{Name: "subject", Usage: "Free-text subject"},
			&cli.BoolFlag{Name: "compress", Usage: "Gzip a single-part payload before sending"},
			&cli.BoolFlag{Name: "checksum", Usage: "Attach an MD5 checksum of the payload"},
		),
		Action: sendAction,
	}
}

func sendAction(c *cli.Context) error {
	s, err := newSession(c)
	if err != nil {
		return err
	}
	defer s.close()

	file, err := readAttachment(c.String("file"), c.String("file-name"), c.String("content-type"), os.Stdin)
	if err != nil {
		return cli.Exit(err.Error(), exitUsage)
	}
	pub, err := s.publisher()
	if err != nil {
		return cli.Exit(err.Error(), exitUsage)
	}
	if pub != nil {
		defer iox.DiscardClose(pub)
	}

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	msg := types.OutboundMessage{
		From:       s.mailbox,
		To:         c.String("to"),
		WorkflowID: c.String("workflow-id"),
		File:       file,
		LocalID:    c.String("local-id"),
		Subject:    c.String("subject"),
		Compress:   c.Bool("compress"),
		Checksum:   c.Bool("checksum"),
	}
	start := time.Now()
	out, err := s.outbox.Send(ctx, msg)
	if err := check(err, out.Failure()); err != nil {
		return err
	}

	receipt := out.Value()
	s.logger.Sugar().With("mailbox_id", s.mailbox).Infof("sent %s to %s as %s", file.FileName, msg.To, receipt.MessageID)
	publish(ctx, pub, s.logger, &adapter.TransferEvent{
		EventType:  adapter.EventMessageSent,
		MessageID:  receipt.MessageID,
		MailboxID:  s.mailbox,
		From:       msg.From,
		To:         msg.To,
		WorkflowID: msg.WorkflowID,
		FileName:   file.FileName,
		LocalID:    msg.LocalID,
		Bytes:      file.Size(),
		Chunks:     max(receipt.Chunks, 1),
		Timestamp:  timestamp(),
		DurationMs: time.Since(start).Milliseconds(),
	})
	return s.renderer.Render(receipt)
}

// readAttachment reads path ("-" for stdin) into an attachment.
func readAttachment(path, name, contentType string, stdin io.Reader) (types.FileAttachment, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		if name == "" {
			return types.FileAttachment{}, fmt.Errorf("--file-name is required when reading stdin")
		}
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return types.FileAttachment{}, fmt.Errorf("read %s: %w", path, err)
	}
	if name == "" {
		name = filepath.Base(path)
	}
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}
	return types.FileAttachment{FileName: name, Content: data, ContentType: contentType}, nil
}
