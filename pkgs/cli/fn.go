package cli

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/keskad/z21/pkgs/app"
	"github.com/keskad/z21/pkgs/model"
)

// NewFnCommand builds `z21cli fn toggle`.
func NewFnCommand(a *app.App) *cobra.Command {
	command := &cobra.Command{
		Use:   "fn",
		Short: "Toggle a locomotive function",
		RunE: func(command *cobra.Command, args []string) error {
			return command.Help()
		},
	}
	command.AddCommand(newFnToggleCommand(a))
	return command
}

func newFnToggleCommand(a *app.App) *cobra.Command {
	f := hostPortFlags{}
	var loco uint16
	var fnIndex uint8
	command := &cobra.Command{
		Use:   "toggle",
		Short: "Toggle function F0..F31 on a locomotive",
		Args:  cobra.NoArgs,
		RunE: func(command *cobra.Command, args []string) error {
			if err := a.Initialize(); err != nil {
				return err
			}
			return a.FnAction(f.Host, f.Port, time.Duration(f.Timeout)*time.Second, model.LocoAddr(loco), int(fnIndex))
		},
	}
	command.Flags().BoolVarP(&a.Debug, "debug", "v", false, "Increase verbosity to the debug level")
	addHostPortFlags(command, &f)
	command.Flags().Uint16VarP(&loco, "loco", "l", 0, "Locomotive address (required)")
	command.Flags().Uint8Var(&fnIndex, "fn", 0, "Function index, 0..31")
	_ = command.MarkFlagRequired("loco")
	return command
}
