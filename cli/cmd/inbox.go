package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/meshclient/types"
)

// InboxCommand returns the inbox command.
func InboxCommand() *cli.Command {
	return &cli.Command{
		Name:   "inbox",
		Usage:  "List message ids waiting in the inbox",
		Flags:  ClientFlags(),
		Action: inboxAction,
	}
}

// GetCommand returns the get command.
func GetCommand() *cli.Command {
	return &cli.Command{
		Name:      "get",
		Usage:     "Download a message, fetching every chunk",
		ArgsUsage: "<message-id>",
		Flags: ClientFlags(
			&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Usage: "Write the payload to this file and print its metadata"},
		),
		Action: getAction,
	}
}

// HeadCommand returns the head command.
func HeadCommand() *cli.Command {
	return &cli.Command{
		Name:      "head",
		Usage:     "Show message metadata without downloading it",
		ArgsUsage: "<message-id>",
		Flags:     ClientFlags(),
		Action:    headAction,
	}
}

// AckCommand returns the ack command.
func AckCommand() *cli.Command {
	return &cli.Command{
		Name:      "ack",
		Usage:     "Acknowledge a message, removing it from the inbox",
		ArgsUsage: "<message-id>",
		Flags:     ClientFlags(),
		Action:    ackAction,
	}
}

// TrackCommand returns the track command.
func TrackCommand() *cli.Command {
	return &cli.Command{
		Name:      "track",
		Usage:     "Show the delivery status of a sent message",
		ArgsUsage: "<message-id>",
		Flags:     ClientFlags(),
		Action:    trackAction,
	}
}

// GetResponse is printed by get when the payload goes to a file.
type GetResponse struct {
	Output   string                `json:"output"`
	Bytes    int                   `json:"bytes"`
	MetaData types.MessageMetaData `json:"meta_data"`
}

func messageIDArg(c *cli.Context) (string, error) {
	if c.NArg() != 1 {
		return "", cli.Exit(fmt.Sprintf("%s requires exactly one message id", c.Command.Name), exitUsage)
	}
	return c.Args().First(), nil
}

func inboxAction(c *cli.Context) error {
	s, err := newSession(c)
	if err != nil {
		return err
	}
	defer s.close()

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	out, err := s.inbox.List(ctx, s.mailbox)
	if err := check(err, out.Failure()); err != nil {
		return err
	}
	return s.renderer.Render(out.Value())
}

func getAction(c *cli.Context) error {
	id, err := messageIDArg(c)
	if err != nil {
		return err
	}
	s, err := newSession(c)
	if err != nil {
		return err
	}
	defer s.close()

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	out, err := s.inbox.Download(ctx, s.mailbox, id)
	if err := check(err, out.Failure()); err != nil {
		return err
	}

	msg := out.Value()
	path := c.String("output")
	if path == "" || path == "-" {
		return writeOutput(c.App.Writer, "", msg.Attachment.Content)
	}
	if err := writeOutput(c.App.Writer, path, msg.Attachment.Content); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return s.renderer.Render(GetResponse{
		Output:   path,
		Bytes:    msg.Attachment.Size(),
		MetaData: msg.MetaData,
	})
}

func headAction(c *cli.Context) error {
	id, err := messageIDArg(c)
	if err != nil {
		return err
	}
	s, err := newSession(c)
	if err != nil {
		return err
	}
	defer s.close()

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	out, err := s.inbox.Head(ctx, s.mailbox, id)
	if err := check(err, out.Failure()); err != nil {
		return err
	}
	return s.renderer.Render(out.Value())
}

func ackAction(c *cli.Context) error {
	id, err := messageIDArg(c)
	if err != nil {
		return err
	}
	s, err := newSession(c)
	if err != nil {
		return err
	}
	defer s.close()

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	out, err := s.inbox.Acknowledge(ctx, s.mailbox, id)
	if err := check(err, out.Failure()); err != nil {
		return err
	}
	return s.renderer.Render(out.Value())
}

func trackAction(c *cli.Context) error {
	id, err := messageIDArg(c)
	if err != nil {
		return err
	}
	s, err := newSession(c)
	if err != nil {
		return err
	}
	defer s.close()

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	out, err := s.outbox.Track(ctx, s.mailbox, id)
	if err := check(err, out.Failure()); err != nil {
		return err
	}
	return s.renderer.Render(out.Value())
}
