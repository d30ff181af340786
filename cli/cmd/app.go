package cmd

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/meshclient/types"
)

// NewApp builds the meshclient application. The caller installs an
// ExitErrHandler; without one urfave/cli exits the process itself.
func NewApp(commit string) *cli.App {
	return &cli.App{
		Name:    "meshclient",
		Usage:   "MESH mailbox client",
		Version: fmt.Sprintf("%s (commit: %s)", types.Version, commit),
		Commands: []*cli.Command{
			HandshakeCommand(),
			SendCommand(),
			InboxCommand(),
			GetCommand(),
			HeadCommand(),
			AckCommand(),
			TrackCommand(),
			FetchCommand(),
			VersionCommand(commit),
		},
	}
}
