package wire

import "github.com/keskad/z21/pkgs/model"

// Event is the tagged union of every inbound message the parser can
// produce. Concrete types implement it as markers; the router type-switches
// over the concrete type to dispatch.
type Event interface {
	isEvent()
}

type EventSerialNumber model.SerialNumber
type EventHardwareInfo model.HardwareInfo
type EventCode model.Z21Code
type EventBroadcastFlags model.BroadcastFlagsInfo
type EventSystemState model.SystemState
type EventTrackPower model.TrackPowerInfo
type EventEmergencyStop model.EmergencyStopInfo
type EventFirmwareVersion model.FirmwareVersion
type EventLocoInfo model.LocoInfo
type EventLocoMode model.LocoModeInfo
type EventTurnoutInfo model.TurnoutInfo
type EventTurnoutMode model.TurnoutMode
type EventRBusData model.RBusData
type EventRailComData model.RailComData
type EventLocoSlotInfo model.LocoSlotInfo
type EventUnknownCommand struct{}

// EventConnectionStateChanged is not produced by the parser: the session
// dispatches it directly when the watchdog declares liveness lost, so
// callers can subscribe to lifecycle changes the same way they subscribe
// to wire events.
type EventConnectionStateChanged model.ConnectionStateChanged

func (EventSerialNumber) isEvent()    {}
func (EventHardwareInfo) isEvent()    {}
func (EventCode) isEvent()            {}
func (EventBroadcastFlags) isEvent()  {}
func (EventSystemState) isEvent()     {}
func (EventTrackPower) isEvent()      {}
func (EventEmergencyStop) isEvent()   {}
func (EventFirmwareVersion) isEvent() {}
func (EventLocoInfo) isEvent()        {}
func (EventLocoMode) isEvent()        {}
func (EventTurnoutInfo) isEvent()     {}
func (EventTurnoutMode) isEvent()     {}
func (EventRBusData) isEvent()        {}
func (EventRailComData) isEvent()     {}
func (EventLocoSlotInfo) isEvent()    {}
func (EventUnknownCommand) isEvent()  {}
func (EventConnectionStateChanged) isEvent() {}
