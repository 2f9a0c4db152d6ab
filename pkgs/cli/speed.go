package cli

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/keskad/z21/pkgs/app"
	"github.com/keskad/z21/pkgs/model"
)

// NewSpeedCommand builds `z21cli speed set|get`, modeled on the teacher's
// speed command.
func NewSpeedCommand(a *app.App) *cobra.Command {
	command := &cobra.Command{
		Use:   "speed",
		Short: "Get or set the speed and direction of a locomotive",
		RunE: func(command *cobra.Command, args []string) error {
			return command.Help()
		},
	}
	command.AddCommand(newSpeedSetCommand(a))
	command.AddCommand(newSpeedGetCommand(a))
	return command
}

func newSpeedSetCommand(a *app.App) *cobra.Command {
	type setArgs struct {
		Loco    uint16
		Forward bool
		Steps   uint8
	}
	f := hostPortFlags{}
	cmdArgs := setArgs{Steps: 128}
	command := &cobra.Command{
		Use:   "set SPEED",
		Short: "Set the speed and direction of a locomotive",
		Long: `Set the speed and direction of a locomotive.

SPEED should be a value from 0 to the maximum for your speed steps:
  - For 14 speed steps: 0-14
  - For 28 speed steps: 0-28
  - For 128 speed steps: 0-126

Examples:
  z21cli speed set 50 --loco 3 --forward
  z21cli speed set 0 --loco 3`,
		Args: cobra.ExactArgs(1),
		RunE: func(command *cobra.Command, args []string) error {
			if err := a.Initialize(); err != nil {
				return err
			}
			speed64, err := strconv.ParseUint(args[0], 10, 8)
			if err != nil {
				return fmt.Errorf("invalid speed value %q: %w", args[0], err)
			}

			var steps model.SpeedSteps
			switch cmdArgs.Steps {
			case 14:
				steps = model.Steps14
			case 28:
				steps = model.Steps28
			case 128:
				steps = model.Steps128
			default:
				return fmt.Errorf("invalid speed steps %d (must be 14, 28, or 128)", cmdArgs.Steps)
			}

			return a.SpeedSetAction(f.Host, f.Port, time.Duration(f.Timeout)*time.Second,
				model.LocoAddr(cmdArgs.Loco), byte(speed64), cmdArgs.Forward, steps)
		},
	}
	command.Flags().BoolVarP(&a.Debug, "debug", "v", false, "Increase verbosity to the debug level")
	addHostPortFlags(command, &f)
	command.Flags().Uint16VarP(&cmdArgs.Loco, "loco", "l", 0, "Locomotive address (required)")
	command.Flags().BoolVarP(&cmdArgs.Forward, "forward", "f", false, "Set direction to forward (default is reverse)")
	command.Flags().Uint8VarP(&cmdArgs.Steps, "steps", "s", 128, "Speed steps: 14, 28, or 128")
	_ = command.MarkFlagRequired("loco")
	return command
}

func newSpeedGetCommand(a *app.App) *cobra.Command {
	f := hostPortFlags{}
	var loco uint16
	command := &cobra.Command{
		Use:   "get",
		Short: "Get the current speed and direction of a locomotive",
		Args:  cobra.NoArgs,
		RunE: func(command *cobra.Command, args []string) error {
			if err := a.Initialize(); err != nil {
				return err
			}
			return a.SpeedGetAction(f.Host, f.Port, time.Duration(f.Timeout)*time.Second, model.LocoAddr(loco))
		},
	}
	command.Flags().BoolVarP(&a.Debug, "debug", "v", false, "Increase verbosity to the debug level")
	addHostPortFlags(command, &f)
	command.Flags().Uint16VarP(&loco, "loco", "l", 0, "Locomotive address (required)")
	_ = command.MarkFlagRequired("loco")
	return command
}
