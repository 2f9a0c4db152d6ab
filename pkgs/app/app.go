// Package app is the controller layer between the cobra command tree and
// the client library: every cobra RunE calls Initialize and then exactly
// one action method, and
// every App method talks to the terminal only through the Printer the
// teacher's controller layer is built around — no fmt.Print in this
// package.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/keskad/z21/pkgs/client"
	"github.com/keskad/z21/pkgs/config"
	"github.com/keskad/z21/pkgs/discovery"
	"github.com/keskad/z21/pkgs/output"
)

// App owns one CLI invocation's configuration, client handle and runtime
// flags.
type App struct {
	Config *config.Configuration
	c      *client.Client

	Debug bool
	P     output.Printer
}

// Initialize loads configuration and sets the log level, mirroring the
// teacher's LocoApp.Initialize. It must run before any action that talks
// to a station.
func (app *App) Initialize() error {
	if app.Debug {
		logrus.SetLevel(logrus.DebugLevel)
	}

	logrus.Debug("Reading configuration files")
	cfg, err := config.NewConfig()
	app.Config = cfg
	if err != nil {
		return fmt.Errorf("cannot initialize app: %w", err)
	}
	return nil
}

func (app *App) connectClient(ctx context.Context, host string, port uint16) error {
	if host == "" {
		host = app.Config.Network.Host
	}
	if port == 0 {
		port = app.Config.Network.Port
	}
	app.c = client.New()
	logrus.Debugf("Connecting to %s:%d", host, port)
	return app.c.Connect(ctx, host, port)
}

// ConnectAction connects, prints the handshake snapshot and disconnects.
// It exists mainly as `z21cli status`'s backing action. When verbose is set
// it also prints the system-state currents/voltage/temperature captured
// during the handshake (firmware >= 1.42 only) and how long ago the last
// frame arrived.
func (app *App) ConnectAction(host string, port uint16, timeout time.Duration, verbose bool) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := app.connectClient(ctx, host, port); err != nil {
		return err
	}
	defer app.c.Disconnect()

	hw, _ := app.c.GetHardwareInfo()
	fw, _ := app.c.GetFirmwareVersion()
	serial, _ := app.c.GetSerialNumber()
	app.P.Printf("hardware: %s\n", hw.Type)
	app.P.Printf("firmware: %s\n", fw)
	app.P.Printf("serial:   %d\n", serial.Value)

	if verbose {
		app.printSystemState()
		app.P.Printf("last message: %s\n", output.FormatSince(app.c.LastMessageReceived()))
	}
	return nil
}

// printSystemState renders the currents/voltage/temperature captured during
// the handshake, if the station's firmware reported them. Counters are
// rendered through go-humanize so large mA/mV values stay readable.
func (app *App) printSystemState() {
	sys, ok := app.c.GetSystemState()
	if !ok {
		app.P.Printf("system state: not reported by this firmware\n")
		return
	}
	app.P.Printf("main current:  %s mA\n", output.FormatCount(uint64(sys.MainCurrentMA)))
	app.P.Printf("prog current:  %s mA\n", output.FormatCount(uint64(sys.ProgCurrentMA)))
	app.P.Printf("supply volt.:  %s mV\n", output.FormatCount(uint64(sys.SupplyMV)))
	app.P.Printf("track volt.:   %s mV\n", output.FormatCount(uint64(sys.VCCMV)))
	app.P.Printf("temperature:   %d C\n", sys.TemperatureC)
}

// PowerAction sends track power on/off.
func (app *App) PowerAction(host string, port uint16, timeout time.Duration, on bool) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := app.connectClient(ctx, host, port); err != nil {
		return err
	}
	defer app.c.Disconnect()

	if on {
		return app.c.SetTrackPowerOn()
	}
	return app.c.SetTrackPowerOff()
}

// EmergencyStopAction sends LAN_X_SET_STOP.
func (app *App) EmergencyStopAction(host string, port uint16, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := app.connectClient(ctx, host, port); err != nil {
		return err
	}
	defer app.c.Disconnect()
	return app.c.SetEmergencyStop()
}

// DiscoverAction broadcasts LAN_GET_HWINFO and prints each responder.
func (app *App) DiscoverAction(timeout time.Duration) error {
	found, err := discovery.Query(timeout)
	if err != nil {
		return err
	}
	if len(found) == 0 {
		app.P.Printf("no stations found\n")
		return nil
	}
	for _, f := range found {
		app.P.Printf("%s\t%s\tfw %s\n", f.IP, f.HardwareInfo.Type, f.HardwareInfo.Firmware)
	}
	return nil
}
