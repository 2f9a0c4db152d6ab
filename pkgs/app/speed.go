package app

import (
	"context"
	"fmt"
	"time"

	"github.com/keskad/z21/pkgs/model"
	"github.com/keskad/z21/pkgs/wire"
)

// SpeedSetAction drives a locomotive, mirroring the teacher's speed set
// command: steps and direction are caller-facing normalized values, and
// SetLocoDrive handles native-step conversion.
func (app *App) SpeedSetAction(host string, port uint16, timeout time.Duration, loco model.LocoAddr, speed byte, forward bool, steps model.SpeedSteps) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := app.connectClient(ctx, host, port); err != nil {
		return err
	}
	defer app.c.Disconnect()

	dir := model.Reverse
	if forward {
		dir = model.Forward
	}
	return app.c.SetLocoDrive(loco, speed, steps, dir)
}

// SpeedGetAction requests loco-info for loco and blocks for one reply,
// generalizing the teacher's CLI-level sendAndAwait into a one-shot
// subscription against the event router.
func (app *App) SpeedGetAction(host string, port uint16, timeout time.Duration, loco model.LocoAddr) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := app.connectClient(ctx, host, port); err != nil {
		return err
	}
	defer app.c.Disconnect()

	result := make(chan model.LocoInfo, 1)
	token, err := app.c.Subscribe(model.CategoryAllLocoInfo, func(ev wire.Event) {
		if info, ok := ev.(wire.EventLocoInfo); ok && model.LocoInfo(info).Address == loco {
			select {
			case result <- model.LocoInfo(info):
			default:
			}
		}
	})
	if err != nil {
		return err
	}
	defer app.c.Unsubscribe(token)

	if err := app.c.GetLocoInfo(loco); err != nil {
		return err
	}

	select {
	case info := <-result:
		direction := "reverse"
		if info.Direction == model.Forward {
			direction = "forward"
		}
		app.P.Printf("loco %d: speed=%d steps=%d direction=%s\n", loco, info.Speed, info.Step, direction)
		return nil
	case <-ctx.Done():
		return fmt.Errorf("timed out waiting for loco-info from %d", loco)
	}
}

// FnAction toggles function fnIndex on loco.
func (app *App) FnAction(host string, port uint16, timeout time.Duration, loco model.LocoAddr, fnIndex int) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := app.connectClient(ctx, host, port); err != nil {
		return err
	}
	defer app.c.Disconnect()
	return app.c.SetLocoFunction(loco, fnIndex)
}

// TurnoutAction throws a turnout to position (1 or 2).
func (app *App) TurnoutAction(host string, port uint16, timeout time.Duration, addr model.LocoAddr, position byte) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := app.connectClient(ctx, host, port); err != nil {
		return err
	}
	defer app.c.Disconnect()
	return app.c.SetTurnoutPosition(addr, position)
}
