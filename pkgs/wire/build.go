package wire

import (
	"encoding/binary"

	"github.com/keskad/z21/pkgs/model"
)

// encodeXBusAddr encodes a loco address for an X-Bus payload: bit 7/6 of the
// high byte (0xC0) are set when address >= 128, per spec §3.
func encodeXBusAddr(addr model.LocoAddr) (hi, lo byte) {
	hi = byte((addr >> 8) & 0x3F)
	if addr >= 128 {
		hi |= 0xC0
	}
	lo = byte(addr & 0xFF)
	return
}

// encodeRawAddr encodes a loco/turnout address as a plain big-endian 16-bit
// value, used by the non-X-Bus loco-mode/turnout-mode commands per spec §3.
func encodeRawAddr(addr model.LocoAddr) (hi, lo byte) {
	return byte(addr >> 8), byte(addr & 0xFF)
}

// BuildGetSerialNumber builds LAN_GET_SERIAL_NUMBER.
func BuildGetSerialNumber() []byte {
	return frameHeader(HeaderGetSerialNumber, nil)
}

// BuildGetHWInfo builds LAN_GET_HWINFO.
func BuildGetHWInfo() []byte {
	return frameHeader(HeaderGetHWInfo, nil)
}

// BuildGetCode builds LAN_GET_CODE.
func BuildGetCode() []byte {
	return frameHeader(HeaderGetCode, nil)
}

// BuildLogoff builds LAN_LOGOFF.
func BuildLogoff() []byte {
	return frameHeader(HeaderLogoff, nil)
}

// BuildSetBroadcastFlags builds LAN_SET_BROADCASTFLAGS with the given mask.
func BuildSetBroadcastFlags(mask uint32) []byte {
	payload := make([]byte, 4)
	binary.LittleEndian.PutUint32(payload, mask)
	return frameHeader(HeaderSetBroadcastFlags, payload)
}

// BuildGetBroadcastFlags builds LAN_GET_BROADCASTFLAGS.
func BuildGetBroadcastFlags() []byte {
	return frameHeader(HeaderGetBroadcastFlags, nil)
}

// BuildGetLocoMode builds LAN_GET_LOCOMODE for addr.
func BuildGetLocoMode(addr model.LocoAddr) []byte {
	hi, lo := encodeRawAddr(addr)
	return frameHeader(HeaderGetLocoMode, []byte{hi, lo})
}

// BuildSetLocoMode builds LAN_SET_LOCOMODE for addr.
func BuildSetLocoMode(addr model.LocoAddr, mode model.Mode) []byte {
	hi, lo := encodeRawAddr(addr)
	return frameHeader(HeaderSetLocoMode, []byte{hi, lo, byte(mode)})
}

// BuildGetTurnoutMode builds LAN_GET_TURNOUTMODE for addr.
func BuildGetTurnoutMode(addr model.LocoAddr) []byte {
	hi, lo := encodeRawAddr(addr)
	return frameHeader(HeaderGetTurnoutMode, []byte{hi, lo})
}

// BuildSetTurnoutMode builds LAN_SET_TURNOUTMODE for addr.
func BuildSetTurnoutMode(addr model.LocoAddr, mode model.Mode) []byte {
	hi, lo := encodeRawAddr(addr)
	return frameHeader(HeaderSetTurnoutMode, []byte{hi, lo, byte(mode)})
}

// BuildRBusGetData builds LAN_RMBUS_GETDATA for the given group (0 or 1).
func BuildRBusGetData(group byte) []byte {
	return frameHeader(HeaderRBusGetData, []byte{group})
}

// BuildSystemStateGet builds LAN_SYSTEMSTATE_GETDATA.
func BuildSystemStateGet() []byte {
	return frameHeader(HeaderSystemStateGet, nil)
}

// BuildRailComGetData builds LAN_RAILCOM_GETDATA. When addr is non-zero the
// request targets that specific locomotive (an on-demand read); a zero addr
// with next=true is the "give me the next address in the polling cycle"
// request driven by the RailCom polling timer (spec §4.4).
func BuildRailComGetData(addr model.LocoAddr, next bool) []byte {
	var opt byte
	if next {
		opt = 0x01
	}
	hi, lo := encodeRawAddr(addr)
	return frameHeader(HeaderRailComGet, []byte{opt, hi, lo})
}

// BuildGetFirmwareVersion builds LAN_X_GET_FIRMWARE_VERSION.
func BuildGetFirmwareVersion() []byte {
	return xbusFrame([]byte{XHeaderGetFirmwareVer, XDB0GetFirmwareVersion})
}

// BuildSetTrackPowerOn builds LAN_X_SET_TRACK_POWER_ON.
func BuildSetTrackPowerOn() []byte {
	return xbusFrame([]byte{XHeaderTrackPower, XDB0TrackPowerOn})
}

// BuildSetTrackPowerOff builds LAN_X_SET_TRACK_POWER_OFF.
func BuildSetTrackPowerOff() []byte {
	return xbusFrame([]byte{XHeaderTrackPower, XDB0TrackPowerOff})
}

// BuildSetStop builds LAN_X_SET_STOP (emergency stop, all locomotives).
func BuildSetStop() []byte {
	return xbusFrame([]byte{XHeaderEmergencyStop, XDB0EmergencyStopAll})
}

// BuildGetLocoInfo builds LAN_X_GET_LOCO_INFO for addr.
func BuildGetLocoInfo(addr model.LocoAddr) []byte {
	hi, lo := encodeXBusAddr(addr)
	return xbusFrame([]byte{XHeaderGetLocoInfo, 0xF0, hi, lo})
}

// stepCode encodes the requested native step count into LAN_X_SET_LOCO_DRIVE's
// DB0 byte.
func stepCode(steps model.NativeSpeedSteps) byte {
	switch steps {
	case model.NativeSteps14:
		return 0x10
	case model.NativeSteps28:
		return 0x12
	case model.NativeSteps128:
		return 0x13
	default:
		return 0x13
	}
}

// BuildSetLocoDrive builds LAN_X_SET_LOCO_DRIVE. wireSpeed is the already
// step-range-encoded speed byte (bit 7 unused here; direction is OR-ed in
// separately) as produced by model.ConvertSpeedToNative.
func BuildSetLocoDrive(addr model.LocoAddr, steps model.NativeSpeedSteps, wireSpeed byte, dir model.Direction) []byte {
	hi, lo := encodeXBusAddr(addr)
	speedDir := wireSpeed & 0x7F
	if dir == model.Forward {
		speedDir |= 0x80
	}
	return xbusFrame([]byte{XHeaderSetLocoDrive, stepCode(steps), hi, lo, speedDir})
}

// FunctionToggleType matches the Type field of LAN_X_SET_LOCO_FUNCTION.
type FunctionToggleType byte

const (
	FunctionOff    FunctionToggleType = 0
	FunctionOn     FunctionToggleType = 1
	FunctionToggle FunctionToggleType = 2
)

// BuildSetLocoFunction builds LAN_X_SET_LOCO_FUNCTION for fnIndex (0..31).
func BuildSetLocoFunction(addr model.LocoAddr, fnIndex int, toggleType FunctionToggleType) []byte {
	hi, lo := encodeXBusAddr(addr)
	db3 := (byte(toggleType) << 6) | byte(fnIndex&0x3F)
	return xbusFrame([]byte{XHeaderSetLocoFunctionHi, hi, lo, db3})
}

// BuildSetTurnout builds LAN_X_SET_TURNOUT for addr, requesting position
// (1 or 2) with the given activation flag.
func BuildSetTurnout(addr model.LocoAddr, position byte, activate bool) []byte {
	hi, lo := encodeXBusAddr(addr)
	db3 := byte(0x08)
	if position == 2 {
		db3 |= 0x01
	}
	if activate {
		db3 |= 0x04
	}
	return xbusFrame([]byte{XHeaderSetTurnout, hi, lo, db3})
}

// BuildGetTurnoutInfo builds LAN_X_GET_TURNOUT_INFO for addr.
func BuildGetTurnoutInfo(addr model.LocoAddr) []byte {
	hi, lo := encodeXBusAddr(addr)
	return xbusFrame([]byte{XHeaderTurnoutInfo, hi, lo})
}
