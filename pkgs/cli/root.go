// Package cli builds the cobra command tree for z21cli, one file per
// command group following the teacher's pkgs/cli layout (one NewXCommand
// constructor per subcommand, each taking the shared *app.App).
package cli

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/keskad/z21/pkgs/app"
)

// NewRootCommand builds the top-level z21cli command tree.
func NewRootCommand(a *app.App) *cobra.Command {
	command := &cobra.Command{
		Use:   "z21cli",
		Short: "Command-line client for Roco/Fleischmann Z21 command stations",
		RunE: func(command *cobra.Command, args []string) error {
			return errors.New("please select a command")
		},
	}

	command.AddCommand(NewStatusCommand(a))
	command.AddCommand(NewPowerCommand(a))
	command.AddCommand(NewEStopCommand(a))
	command.AddCommand(NewSpeedCommand(a))
	command.AddCommand(NewFnCommand(a))
	command.AddCommand(NewTurnoutCommand(a))
	command.AddCommand(NewDiscoverCommand(a))

	return command
}

// hostPortFlags adds the --host/--port/--timeout flags shared by every
// command that talks to a station.
type hostPortFlags struct {
	Host    string
	Port    uint16
	Timeout uint16
}

func addHostPortFlags(command *cobra.Command, f *hostPortFlags) {
	command.Flags().StringVar(&f.Host, "host", "", "Station address (defaults to config)")
	command.Flags().Uint16Var(&f.Port, "port", 0, "Station UDP port (defaults to config)")
	command.Flags().Uint16VarP(&f.Timeout, "timeout", "t", 5, "Connection timeout in seconds")
}
