package cli

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/keskad/z21/pkgs/app"
)

// NewPowerCommand builds `z21cli power on|off`.
func NewPowerCommand(a *app.App) *cobra.Command {
	command := &cobra.Command{
		Use:   "power",
		Short: "Turn track power on or off",
		RunE: func(command *cobra.Command, args []string) error {
			return command.Help()
		},
	}
	command.AddCommand(newPowerSubcommand(a, "on", true))
	command.AddCommand(newPowerSubcommand(a, "off", false))
	return command
}

func newPowerSubcommand(a *app.App, use string, on bool) *cobra.Command {
	f := hostPortFlags{}
	command := &cobra.Command{
		Use:   use,
		Short: "Set track power " + use,
		Args:  cobra.NoArgs,
		RunE: func(command *cobra.Command, args []string) error {
			if err := a.Initialize(); err != nil {
				return err
			}
			return a.PowerAction(f.Host, f.Port, time.Duration(f.Timeout)*time.Second, on)
		},
	}
	command.Flags().BoolVarP(&a.Debug, "debug", "v", false, "Increase verbosity to the debug level")
	addHostPortFlags(command, &f)
	return command
}
