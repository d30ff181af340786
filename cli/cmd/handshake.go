package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"
)

// HandshakeCommand returns the handshake command.
func HandshakeCommand() *cli.Command {
	return &cli.Command{
		Name:   "handshake",
		Usage:  "Validate mailbox credentials against the service",
		Flags:  ClientFlags(),
		Action: handshakeAction,
	}
}

func handshakeAction(c *cli.Context) error {
	s, err := newSession(c)
	if err != nil {
		return err
	}
	defer s.close()

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	out, err := s.gate.Validate(ctx, s.mailbox)
	if err := check(err, out.Failure()); err != nil {
		return err
	}
	return s.renderer.Render(out.Value())
}
