// Package cmd provides CLI commands for the meshclient binary.
package cmd

import "github.com/urfave/cli/v2"

// Shared flags for every command that talks to the mailbox service.
var (
	// ConfigFlag points at the YAML configuration file.
	ConfigFlag = &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "Path to meshclient.yaml",
		Value:   "meshclient.yaml",
		EnvVars: []string{"MESHCLIENT_CONFIG"},
	}

	// MailboxFlag selects the local mailbox.
	MailboxFlag = &cli.StringFlag{
		Name:    "mailbox",
		Aliases: []string{"m"},
		Usage:   "Local mailbox id (default: the only configured mailbox)",
		EnvVars: []string{"MESHCLIENT_MAILBOX"},
	}

	// FormatFlag selects output format: json, table, yaml.
	FormatFlag = &cli.StringFlag{
		Name:    "format",
		Aliases: []string{"f"},
		Usage:   "Output format: json, table, yaml",
	}

	// LogLevelFlag overrides log_level from the config file.
	LogLevelFlag = &cli.StringFlag{
		Name:  "log-level",
		Usage: "Log level: debug, info, warn, error",
	}
)

// ClientFlags returns the shared flags for commands that contact the service.
func ClientFlags(extra ...cli.Flag) []cli.Flag {
	return append([]cli.Flag{ConfigFlag, MailboxFlag, FormatFlag, LogLevelFlag}, extra...)
}
