package cmd

import (
	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/meshclient/cli/render"
	"github.com/pithecene-io/meshclient/types"
)

// VersionResponse is the response for the version command.
type VersionResponse struct {
	Version string `json:"version"`
	Commit  string `json:"commit"`
	Client  string `json:"client"`
}

// VersionCommand returns the version command.
// It must not load configuration or contact the service.
func VersionCommand(commit string) *cli.Command {
	return &cli.Command{
		Name:   "version",
		Usage:  "Show version information",
		Flags:  []cli.Flag{FormatFlag},
		Action: versionAction(commit),
	}
}

func versionAction(commit string) cli.ActionFunc {
	return func(c *cli.Context) error {
		r, err := render.NewRenderer(c)
		if err != nil {
			return cli.Exit(err.Error(), exitUsage)
		}
		return r.Render(VersionResponse{
			Version: types.Version,
			Commit:  commit,
			Client:  types.ClientVersionHeader(),
		})
	}
}
