// Package client is the single public facade of the library: it wires a
// session, its router and subscription ledger together and exposes every
// operation named in the specification's external-interfaces section as a
// plain Go method, hiding the goroutine/channel plumbing underneath.
package client

import (
	"context"
	"fmt"
	"time"

	"github.com/davecgh/go-spew/spew"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/keskad/z21/pkgs/discovery"
	"github.com/keskad/z21/pkgs/model"
	"github.com/keskad/z21/pkgs/session"
	"github.com/keskad/z21/pkgs/wire"
)

// Client is the caller-facing handle to one command station connection.
type Client struct {
	session *session.Session
}

// New constructs a disconnected Client using the real UDP transport and an
// unprivileged ICMP liveness probe.
func New() *Client {
	return &Client{session: session.New(nil, nil)}
}

// NewWithSession is exposed for tests that need to inject a fake transport
// or probe via session.New directly.
func NewWithSession(s *session.Session) *Client {
	return &Client{session: s}
}

// Connect opens a connection to host:port (port 0 selects the protocol
// default, 21105), running the full handshake of spec §4.2.
func (c *Client) Connect(ctx context.Context, host string, port uint16) error {
	return c.session.Connect(ctx, host, port)
}

// Disconnect tears the connection down. Idempotent.
func (c *Client) Disconnect() error {
	return c.session.Disconnect()
}

// QueryForZ21s runs the broadcast discovery probe. It is a precondition
// violation to call this while connected.
func (c *Client) QueryForZ21s(timeout time.Duration) ([]discovery.Found, error) {
	if c.session.State() != model.Disconnected {
		return nil, fmt.Errorf("%w: cannot discover while connected", model.ErrPrecondition)
	}
	return discovery.Query(timeout)
}

//
// Subscriptions
//

// Token identifies one Subscribe call for a later Unsubscribe.
type Token = uuid.UUID

// Subscribe registers handler against the broadcast-flag category cat,
// returning a token identifying the subscription. While connected, the
// first subscriber to a category causes the corresponding
// LAN_SET_BROADCASTFLAGS bit to be enabled on the station; while
// disconnected the subscription is recorded and nothing is sent.
func (c *Client) Subscribe(cat model.EventCategory, handler func(wire.Event)) (Token, error) {
	routerToken, err := c.session.Router.Subscribe(cat, handler)
	if err != nil {
		return Token{}, err
	}
	id, err := uuid.Parse(routerToken)
	if err != nil {
		// router tokens are always uuid.NewString() output; this branch
		// exists only to satisfy the type system without a panic.
		logrus.Errorf("client: subscription token was not a uuid: %s", routerToken)
		return Token{}, err
	}
	return id, nil
}

// Unsubscribe removes a subscription previously returned by Subscribe.
func (c *Client) Unsubscribe(token Token) error {
	return c.session.Router.Unsubscribe(token.String())
}

//
// Getters
//

// GetBroadcastFlags returns the subscription ledger's active mask with
// FlagBasic OR-ed in, computed locally (not a round trip to the station). It
// does not include the FlagSystemState bit that Connect adds to its initial
// mask.
func (c *Client) GetBroadcastFlags() uint32 {
	return c.session.Ledger.ActiveMask() | uint32(model.FlagBasic)
}

// GetFirmwareVersion returns the firmware captured during the connect
// handshake.
func (c *Client) GetFirmwareVersion() (model.FirmwareVersion, bool) {
	snap := c.session.Snapshot()
	return snap.HardwareInfo.Firmware, snap.HasHWInfo
}

// GetHardwareInfo returns the hardware type/firmware captured during the
// connect handshake.
func (c *Client) GetHardwareInfo() (model.HardwareInfo, bool) {
	snap := c.session.Snapshot()
	return snap.HardwareInfo, snap.HasHWInfo
}

// GetSerialNumber returns the serial number captured during the connect
// handshake.
func (c *Client) GetSerialNumber() (model.SerialNumber, bool) {
	snap := c.session.Snapshot()
	return snap.Serial, snap.HasSerial
}

// GetSystemState returns the most recently observed system-state snapshot.
func (c *Client) GetSystemState() (model.SystemState, bool) {
	snap := c.session.Snapshot()
	return snap.SystemState, snap.HasSysState
}

// GetZ21Code returns the lock-state code captured during the connect
// handshake.
func (c *Client) GetZ21Code() (model.Z21Code, bool) {
	snap := c.session.Snapshot()
	return snap.Z21Code, snap.HasZ21Code
}

// LastMessageReceived returns the time the most recent frame arrived from
// the station, for liveness reporting in `z21cli status --verbose`.
func (c *Client) LastMessageReceived() time.Time {
	return c.session.Snapshot().LastMessageReceived
}

// GetLocoInfo requests LAN_X_GET_LOCO_INFO for addr, marking the address
// for loco-info/loco-mode correlation first per spec §4.4, then fires off
// LAN_GET_LOCOMODE as the paired request. The result arrives asynchronously
// through subscribers to CategoryAllLocoInfo.
func (c *Client) GetLocoInfo(addr model.LocoAddr) error {
	c.session.Router.MarkLocoInfoPending(addr)
	if err := c.session.Send(wire.BuildGetLocoInfo(addr)); err != nil {
		return err
	}
	return c.session.Send(wire.BuildGetLocoMode(addr))
}

// GetLocoMode requests LAN_GET_LOCOMODE for addr without a paired
// loco-info request (no correlation is started).
func (c *Client) GetLocoMode(addr model.LocoAddr) error {
	return c.session.Send(wire.BuildGetLocoMode(addr))
}

// GetLocoSlotInfo requests the undocumented slot-info frame for slot
// (1..120), per spec Open Question (a).
func (c *Client) GetLocoSlotInfo(slot int) error {
	if slot < 1 || slot > 120 {
		return fmt.Errorf("%w: loco slot %d out of range 1..120", model.ErrPrecondition, slot)
	}
	return c.session.Send(wire.BuildGetLocoInfo(model.LocoAddr(slot)))
}

// GetTurnoutInfo requests LAN_X_GET_TURNOUT_INFO for addr.
func (c *Client) GetTurnoutInfo(addr model.LocoAddr) error {
	return c.session.Send(wire.BuildGetTurnoutInfo(addr))
}

// GetTurnoutMode requests LAN_GET_TURNOUTMODE for addr.
func (c *Client) GetTurnoutMode(addr model.LocoAddr) error {
	return c.session.Send(wire.BuildGetTurnoutMode(addr))
}

// GetRBusData requests LAN_RMBUS_GETDATA for group (0 or 1).
func (c *Client) GetRBusData(group byte) error {
	if group > 1 {
		return fmt.Errorf("%w: rbus group %d out of range 0..1", model.ErrPrecondition, group)
	}
	return c.session.Send(wire.BuildRBusGetData(group))
}

// GetRailComData requests LAN_RAILCOM_GETDATA for a specific locomotive
// address (not the round-robin "next" request driven by the polling cycle).
func (c *Client) GetRailComData(addr model.LocoAddr) error {
	return c.session.Send(wire.BuildRailComGetData(addr, false))
}

//
// Setters
//

// SetTrackPowerOn sends LAN_X_SET_TRACK_POWER_ON.
func (c *Client) SetTrackPowerOn() error {
	return c.session.Send(wire.BuildSetTrackPowerOn())
}

// SetTrackPowerOff sends LAN_X_SET_TRACK_POWER_OFF.
func (c *Client) SetTrackPowerOff() error {
	return c.session.Send(wire.BuildSetTrackPowerOff())
}

// SetEmergencyStop sends LAN_X_SET_STOP (all locomotives).
func (c *Client) SetEmergencyStop() error {
	return c.session.Send(wire.BuildSetStop())
}

// SetLocoDrive drives addr at speed (0..max for steps, the caller-facing
// normalized view) and direction, converting to the station's native wire
// encoding per spec §6's speed-step semantics.
func (c *Client) SetLocoDrive(addr model.LocoAddr, speed byte, steps model.SpeedSteps, dir model.Direction) error {
	native := model.NativeFromNormalized(steps)
	wireSpeed := model.ConvertSpeedToNative(speed, native)
	return c.session.Send(wire.BuildSetLocoDrive(addr, native, wireSpeed, dir))
}

// SetLocoFunction toggles function fnIndex (0..31) on addr.
func (c *Client) SetLocoFunction(addr model.LocoAddr, fnIndex int) error {
	return c.session.Send(wire.BuildSetLocoFunction(addr, fnIndex, wire.FunctionToggle))
}

// SetLocoMode sends LAN_SET_LOCOMODE for addr.
func (c *Client) SetLocoMode(addr model.LocoAddr, mode model.Mode) error {
	return c.session.Send(wire.BuildSetLocoMode(addr, mode))
}

// SetTurnoutMode sends LAN_SET_TURNOUTMODE for addr.
func (c *Client) SetTurnoutMode(addr model.LocoAddr, mode model.Mode) error {
	return c.session.Send(wire.BuildSetTurnoutMode(addr, mode))
}

// SetTurnoutPosition drives a turnout through an on-pulse / off-pulse cycle:
// activate position, hold 100ms, deactivate, settle 50ms, per spec §6.
func (c *Client) SetTurnoutPosition(addr model.LocoAddr, position byte) error {
	if position != 1 && position != 2 {
		return fmt.Errorf("%w: turnout position %d must be 1 or 2", model.ErrPrecondition, position)
	}
	if err := c.session.Send(wire.BuildSetTurnout(addr, position, true)); err != nil {
		return err
	}
	time.Sleep(100 * time.Millisecond)
	if err := c.session.Send(wire.BuildSetTurnout(addr, position, false)); err != nil {
		return err
	}
	time.Sleep(50 * time.Millisecond)
	return nil
}

// Dump renders a debug snapshot of the session's cached handshake state, in
// the style of the teacher's lwl.Client.String() found elsewhere in the
// retrieval pack: a go-spew dump, useful for `z21cli status --debug`.
func (c *Client) Dump() string {
	return spew.Sdump(c.session.Snapshot())
}
