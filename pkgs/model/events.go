package model

// EventCategory identifies one of the asynchronous message families the
// station can be subscribed to. The subscription manager maps each category
// to the broadcast-flag bit(s) it requires (if any) and a firmware guard.
type EventCategory int

const (
	CategoryBasic EventCategory = iota
	CategoryRBus
	CategoryRailComSubscribed
	CategoryFastClock
	CategorySystemState
	CategoryAllLocoInfo
	CategoryCanBooster
	CategoryAllRailCom
	CategoryLocoNet
	CategoryLocoNetLocos
	CategoryLocoNetSwitches
	CategoryLocoNetGBM
)

func (c EventCategory) String() string {
	names := map[EventCategory]string{
		CategoryBasic:             "Basic",
		CategoryRBus:              "RBus",
		CategoryRailComSubscribed: "RailComSubscribed",
		CategoryFastClock:         "FastClock",
		CategorySystemState:       "SystemState",
		CategoryAllLocoInfo:       "AllLocoInfo",
		CategoryCanBooster:        "CanBooster",
		CategoryAllRailCom:        "AllRailCom",
		CategoryLocoNet:           "LocoNet",
		CategoryLocoNetLocos:      "LocoNetLocos",
		CategoryLocoNetSwitches:   "LocoNetSwitches",
		CategoryLocoNetGBM:        "LocoNetGBM",
	}
	if n, ok := names[c]; ok {
		return n
	}
	return "Unknown"
}

// BroadcastFlag bit values as defined by LAN_SET_BROADCASTFLAGS. A category
// with flag 0 (CategoryBasic) has no bit of its own: it is always implied
// while the session is Ready and does not affect the mask.
type BroadcastFlag uint32

const (
	FlagBasic             BroadcastFlag = 0x00000001
	FlagRBus              BroadcastFlag = 0x00000002
	FlagRailComSubscribed BroadcastFlag = 0x00000004
	FlagSystemState       BroadcastFlag = 0x00000100
	FlagAllLocoInfo       BroadcastFlag = 0x00010000
	FlagCanBooster        BroadcastFlag = 0x00020000
	FlagFastClock         BroadcastFlag = 0x00040000
	FlagAllRailCom        BroadcastFlag = 0x00080000
	FlagLocoNet           BroadcastFlag = 0x01000000
	FlagLocoNetLocos      BroadcastFlag = 0x02000000
	FlagLocoNetSwitches   BroadcastFlag = 0x04000000
	FlagLocoNetGBM        BroadcastFlag = 0x08000000
)

// HardwareInfo is the payload of LAN_GET_HWINFO.
type HardwareInfo struct {
	Type     HardwareType
	Firmware FirmwareVersion
}

// Capabilities is the payload of LAN_X_GET_FIRMWARE_VERSION-gated extended
// system state capability byte (only present when firmware >= 1.42).
type Capabilities struct {
	Raw byte
}

// Z21Code is the lock-state payload of LAN_GET_CODE: the feature lock status
// of the command station.
type Z21Code struct {
	Code byte
}

// SerialNumber is the payload of LAN_GET_SERIAL_NUMBER.
type SerialNumber struct {
	Value uint32
}

// SystemState is the payload of LAN_SYSTEMSTATE_DATACHANGED.
type SystemState struct {
	MainCurrentMA   int16
	ProgCurrentMA   int16
	FilteredMainMA  int16
	TemperatureC    int16
	SupplyMV        int16
	VCCMV           int16
	CentralState    byte
	CentralStateEx  byte
	Capabilities    byte
	HasCapabilities bool
}

// CentralState bits (byte 16 of LAN_SYSTEMSTATE_DATACHANGED).
const (
	CentralStateEmergencyStop  byte = 0x01
	CentralStateTrackVoltageOff byte = 0x02
	CentralStateShortCircuit   byte = 0x04
	CentralStateProgrammingMode byte = 0x20
)

// LocoInfo is the decoded payload of LAN_X_LOCO_INFO, possibly augmented by
// the paired loco-mode response per the firmware-bug correlator (§4.4).
type LocoInfo struct {
	Address    LocoAddr
	Busy       bool
	NativeStep NativeSpeedSteps
	Step       SpeedSteps
	Speed      byte // native speed value as received, 0..max for NativeStep
	Direction  Direction
	Functions  [32]bool
	Mode       Mode
	HasMode    bool
}

// LocoSlotInfo is the decoded payload of the undocumented LAN_X_LOCO_SLOT_INFO
// 24-byte frame (header 0x00AF), reverse-engineered against firmware 1.43
// per spec Open Question (a).
type LocoSlotInfo struct {
	Slot      byte
	Address   LocoAddr
	NativeStep NativeSpeedSteps
	IsMM      bool
	Speed     byte
	Direction Direction
	Functions [29]bool // F0..F28
}

// TurnoutInfo is the payload of LAN_X_TURNOUT_INFO.
type TurnoutInfo struct {
	Address LocoAddr
	State   byte // 0=not switched, 1=position 1(P1/-), 2=position 2(P2/+), 3=invalid
}

// TurnoutMode mirrors LAN_X_GET/SET_TURNOUTMODE.
type TurnoutMode struct {
	Address LocoAddr
	Mode    Mode
}

// LocoModeInfo mirrors LAN_GET/SET_LOCOMODE.
type LocoModeInfo struct {
	Address LocoAddr
	Mode    Mode
}

// RBusData is the decoded payload of LAN_RMBUS_DATACHANGED: 10 bytes / 80
// occupancy inputs for one of the two groups.
type RBusData struct {
	Group byte
	Bytes [10]byte
}

// Occupied reports the state of input n (0..79) within this group.
func (r RBusData) Occupied(n int) bool {
	if n < 0 || n >= 80 {
		return false
	}
	return r.Bytes[n/8]&(1<<(uint(n)%8)) != 0
}

// RailComData is the decoded payload of LAN_RAILCOM_DATACHANGED.
type RailComData struct {
	LocoAddress LocoAddr
	ReceiveCnt  uint32
	ErrorCnt    uint32
	Options     byte
	SpeedKmh    byte
	QOS         byte
}

// TrackPowerInfo is the payload of LAN_X_BC_TRACK_POWER_ON/OFF.
type TrackPowerInfo struct {
	State PowerState
}

// EmergencyStopInfo is the payload of LAN_X_BC_STOPPED.
type EmergencyStopInfo struct{}

// BroadcastFlagsInfo is the payload of LAN_GET_BROADCASTFLAGS's response.
type BroadcastFlagsInfo struct {
	Mask uint32
}

// ConnectionStateChanged is an internal event emitted by the session, not a
// wire frame, carrying the new SessionState.
type ConnectionStateChanged struct {
	State  SessionState
	Reason error
}
