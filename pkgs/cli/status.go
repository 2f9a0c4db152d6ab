package cli

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/keskad/z21/pkgs/app"
)

// NewStatusCommand connects once, prints the handshake snapshot, disconnects.
func NewStatusCommand(a *app.App) *cobra.Command {
	f := hostPortFlags{}
	var verbose bool
	command := &cobra.Command{
		Use:   "status",
		Short: "Connect and print the station's hardware, firmware and serial number",
		Args:  cobra.NoArgs,
		RunE: func(command *cobra.Command, args []string) error {
			if err := a.Initialize(); err != nil {
				return err
			}
			return a.ConnectAction(f.Host, f.Port, time.Duration(f.Timeout)*time.Second, verbose)
		},
	}
	command.Flags().BoolVarP(&a.Debug, "debug", "v", false, "Increase verbosity to the debug level")
	command.Flags().BoolVar(&verbose, "verbose", false, "Also print system-state currents, voltage and liveness")
	addHostPortFlags(command, &f)
	return command
}
