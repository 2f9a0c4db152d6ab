// Package wire implements the Z21 LAN binary codec: outbound frame
// builders, the inbound multi-frame datagram parser, checksum computation
// and the bit-level decodings for loco/turnout/system-state payloads. It
// has no knowledge of sessions, sockets or subscriptions — every function
// here is a pure transform between typed arguments/events and bytes,
// matching the style of the teacher's pkgs/commandstation/z21_proto.go.
package wire

// Header values (little-endian on the wire).
const (
	HeaderGeneral             uint16 = 0x0000
	HeaderGetSerialNumber     uint16 = 0x0010
	HeaderGetCode             uint16 = 0x0018
	HeaderGetHWInfo           uint16 = 0x001A
	HeaderLogoff              uint16 = 0x0030
	HeaderXBus                uint16 = 0x0040
	HeaderSetBroadcastFlags   uint16 = 0x0050
	HeaderGetBroadcastFlags   uint16 = 0x0051
	HeaderGetLocoMode         uint16 = 0x0060
	HeaderSetLocoMode         uint16 = 0x0061
	HeaderGetTurnoutMode      uint16 = 0x0070
	HeaderSetTurnoutMode      uint16 = 0x0071
	HeaderRBusDataChanged     uint16 = 0x0080
	HeaderRBusGetData         uint16 = 0x0081
	HeaderSystemStateResponse uint16 = 0x0084
	HeaderSystemStateGet      uint16 = 0x0085
	HeaderRailComChanged      uint16 = 0x0088
	HeaderRailComGet          uint16 = 0x0089
	HeaderLocoSlotInfo        uint16 = 0x00AF
)

// X-Bus sub-headers (the first payload byte of a HeaderXBus frame).
const (
	XHeaderEmergencyStop     byte = 0x80
	XHeaderBCStopped         byte = 0x81
	XHeaderTurnoutInfo       byte = 0x43
	XHeaderTrackPower        byte = 0x61
	XHeaderLocoInfo          byte = 0xEF
	XHeaderFirmwareVersion   byte = 0xF3
	XHeaderGetFirmwareVer    byte = 0xF1
	XHeaderGetLocoInfo       byte = 0xE3
	XHeaderSetTurnout        byte = 0x53
	XHeaderSetLocoDrive      byte = 0xE4
	XHeaderUnknownCommand    byte = 0x61 // paired with db0 0x82 below
	XDB0UnknownCommand       byte = 0x82
	XDB0TrackPowerOn         byte = 0x01
	XDB0TrackPowerOff        byte = 0x00
	XDB0EmergencyStopAll     byte = 0x80
	XDB0GetFirmwareVersion   byte = 0x0A
)

// XHeaderSetLocoFunctionHi is LAN_X_SET_LOCO_FUNCTION's X-header byte.
const XHeaderSetLocoFunctionHi byte = 0xF8
