package cli

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/keskad/z21/pkgs/app"
	"github.com/keskad/z21/pkgs/model"
)

// NewTurnoutCommand builds `z21cli turnout set`.
func NewTurnoutCommand(a *app.App) *cobra.Command {
	command := &cobra.Command{
		Use:   "turnout",
		Short: "Throw a turnout",
		RunE: func(command *cobra.Command, args []string) error {
			return command.Help()
		},
	}
	command.AddCommand(newTurnoutSetCommand(a))
	return command
}

func newTurnoutSetCommand(a *app.App) *cobra.Command {
	f := hostPortFlags{}
	var addr uint16
	var position uint8
	command := &cobra.Command{
		Use:   "set",
		Short: "Throw a turnout to position 1 or 2",
		Args:  cobra.NoArgs,
		RunE: func(command *cobra.Command, args []string) error {
			if err := a.Initialize(); err != nil {
				return err
			}
			return a.TurnoutAction(f.Host, f.Port, time.Duration(f.Timeout)*time.Second, model.LocoAddr(addr), byte(position))
		},
	}
	command.Flags().BoolVarP(&a.Debug, "debug", "v", false, "Increase verbosity to the debug level")
	addHostPortFlags(command, &f)
	command.Flags().Uint16VarP(&addr, "addr", "a", 0, "Turnout address (required)")
	command.Flags().Uint8VarP(&position, "position", "p", 1, "Position: 1 or 2")
	_ = command.MarkFlagRequired("addr")
	return command
}
