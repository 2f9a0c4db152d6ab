package cli

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/keskad/z21/pkgs/app"
)

// NewDiscoverCommand builds `z21cli discover`.
func NewDiscoverCommand(a *app.App) *cobra.Command {
	var timeoutSeconds uint16
	command := &cobra.Command{
		Use:   "discover",
		Short: "Broadcast for Z21 stations on the local subnet",
		Args:  cobra.NoArgs,
		RunE: func(command *cobra.Command, args []string) error {
			if err := a.Initialize(); err != nil {
				return err
			}
			return a.DiscoverAction(time.Duration(timeoutSeconds) * time.Second)
		},
	}
	command.Flags().BoolVarP(&a.Debug, "debug", "v", false, "Increase verbosity to the debug level")
	command.Flags().Uint16VarP(&timeoutSeconds, "timeout", "t", 3, "Discovery window in seconds")
	return command
}
