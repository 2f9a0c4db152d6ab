package cli

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/keskad/z21/pkgs/app"
)

// NewEStopCommand builds `z21cli estop`.
func NewEStopCommand(a *app.App) *cobra.Command {
	f := hostPortFlags{}
	command := &cobra.Command{
		Use:   "estop",
		Short: "Emergency-stop every locomotive on the layout",
		Args:  cobra.NoArgs,
		RunE: func(command *cobra.Command, args []string) error {
			if err := a.Initialize(); err != nil {
				return err
			}
			return a.EmergencyStopAction(f.Host, f.Port, time.Duration(f.Timeout)*time.Second)
		},
	}
	command.Flags().BoolVarP(&a.Debug, "debug", "v", false, "Increase verbosity to the debug level")
	addHostPortFlags(command, &f)
	return command
}
