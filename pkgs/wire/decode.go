package wire

import (
	"encoding/binary"
	"fmt"
	"strconv"

	"github.com/keskad/z21/pkgs/model"
)

// decodeLocoInfoAddr decodes the 14-bit address carried in LAN_X_LOCO_INFO's
// DB0/DB1, per spec §4.1: the top two bits of DB0 are protocol/format flags.
func decodeLocoInfoAddr(db0, db1 byte) model.LocoAddr {
	return model.LocoAddr(uint16(db0&0x3F)<<8 | uint16(db1))
}

// decodeNativeSteps decodes the speed-step field from LAN_X_LOCO_INFO's DB2
// low 3 bits, per spec §4.1.
func decodeNativeSteps(db2 byte) model.NativeSpeedSteps {
	switch db2 & 0x07 {
	case 0:
		return model.NativeSteps14
	case 2:
		return model.NativeSteps28
	case 4:
		return model.NativeSteps128
	default:
		return model.NativeStepsUnknown
	}
}

// decodeLocoInfo decodes a full LAN_X_LOCO_INFO payload (x starting at the
// X-header byte 0xEF, without the trailing checksum).
func decodeLocoInfo(x []byte) (model.LocoInfo, bool) {
	if len(x) < 5 {
		return model.LocoInfo{}, false
	}
	var info model.LocoInfo
	info.Address = decodeLocoInfoAddr(x[1], x[2])
	info.Busy = x[3]&0x08 != 0
	info.NativeStep = decodeNativeSteps(x[3])
	info.Step = model.NormalizeSpeedSteps(info.NativeStep)
	if len(x) >= 5 {
		db3 := x[4]
		info.Speed = db3 & 0x7F
		if db3&0x80 != 0 {
			info.Direction = model.Forward
		} else {
			info.Direction = model.Reverse
		}
	}
	if len(x) >= 6 {
		db4 := x[5]
		info.Functions[0] = db4&0x10 != 0
		for i := 1; i <= 4; i++ {
			info.Functions[i] = db4&(1<<(uint(i)-1)) != 0
		}
	}
	if len(x) >= 7 {
		db5 := x[6]
		for i := 5; i <= 12; i++ {
			info.Functions[i] = db5&(1<<(uint(i)-5)) != 0
		}
	}
	if len(x) >= 8 {
		db6 := x[7]
		for i := 13; i <= 20; i++ {
			info.Functions[i] = db6&(1<<(uint(i)-13)) != 0
		}
	}
	if len(x) >= 9 {
		db7 := x[8]
		for i := 21; i <= 28; i++ {
			info.Functions[i] = db7&(1<<(uint(i)-21)) != 0
		}
	}
	if len(x) >= 10 {
		db8 := x[9]
		for i := 29; i <= 31; i++ {
			info.Functions[i] = db8&(1<<(uint(i)-29)) != 0
		}
	}
	return info, true
}

// decodeSystemState decodes LAN_SYSTEMSTATE_DATACHANGED's payload, per spec
// §4.1. payload starts at byte 4 of the frame (the function receives the
// whole frame so offsets match the spec text directly).
func decodeSystemState(frame []byte, hw model.HardwareType) (model.SystemState, bool) {
	if len(frame) < 18 {
		return model.SystemState{}, false
	}
	le16 := func(off int) int16 {
		return int16(binary.LittleEndian.Uint16(frame[off : off+2]))
	}
	s := model.SystemState{
		MainCurrentMA:  le16(4),
		ProgCurrentMA:  le16(6),
		FilteredMainMA: le16(8),
		TemperatureC:   le16(10),
		SupplyMV:       le16(12),
		VCCMV:          le16(14),
		CentralState:   frame[16],
		CentralStateEx: frame[17],
	}
	if hw.IsSmall() {
		s.ProgCurrentMA = 0
	}
	if len(frame) >= 20 {
		s.Capabilities = frame[19]
		s.HasCapabilities = true
	}
	return s, true
}

// decodeHardwareInfo decodes LAN_GET_HWINFO's response payload.
func decodeHardwareInfo(frame []byte) (model.HardwareInfo, bool) {
	if len(frame) < 12 {
		return model.HardwareInfo{}, false
	}
	hwType := binary.LittleEndian.Uint32(frame[4:8])
	fw := binary.LittleEndian.Uint32(frame[8:12])
	major, minor := decodeBCDFirmware(fw)
	return model.HardwareInfo{
		Type:     model.HardwareType(hwType),
		Firmware: model.FirmwareVersion{Major: major, Minor: minor},
	}, true
}

// decodeBCDFirmware renders fw as 8 hex digits and reads them back as
// decimal digits ("rendered as {upper3 nibbles:X}.{low byte:X2} then parsed
// as major.minor", spec §4.1): each hex nibble is itself a BCD decimal
// digit, so e.g. fw=0x00000143 renders to "00000143" -> major="000"=0,
// minor="43"=43, i.e. firmware 0.43.
func decodeBCDFirmware(fw uint32) (byte, byte) {
	hex := fmt.Sprintf("%08X", fw)
	major, _ := strconv.Atoi(hex[:3])
	minor, _ := strconv.Atoi(hex[6:8])
	return byte(major), byte(minor)
}

// decodeFirmwareVersion decodes LAN_X_GET_FIRMWARE_VERSION's response
// (X-header 0xF3): major at byte 6 (hex), minor at byte 7 (hex).
func decodeFirmwareVersion(frame []byte) (model.FirmwareVersion, bool) {
	if len(frame) < 8 {
		return model.FirmwareVersion{}, false
	}
	return model.FirmwareVersion{Major: frame[6], Minor: frame[7]}, true
}

// decodeTurnoutInfo decodes LAN_X_TURNOUT_INFO.
func decodeTurnoutInfo(frame []byte) (model.TurnoutInfo, bool) {
	if len(frame) < 8 {
		return model.TurnoutInfo{}, false
	}
	addr := model.LocoAddr(binary.BigEndian.Uint16(frame[5:7]))
	return model.TurnoutInfo{Address: addr, State: frame[7] & 0x03}, true
}

// decodeRBusData decodes LAN_RMBUS_DATACHANGED.
func decodeRBusData(frame []byte) (model.RBusData, bool) {
	if len(frame) < 15 {
		return model.RBusData{}, false
	}
	var d model.RBusData
	d.Group = frame[4]
	copy(d.Bytes[:], frame[5:15])
	return d, true
}

// decodeRailComData decodes LAN_RAILCOM_DATACHANGED.
func decodeRailComData(frame []byte) (model.RailComData, bool) {
	if len(frame) < 17 {
		return model.RailComData{}, false
	}
	return model.RailComData{
		LocoAddress: model.LocoAddr(binary.BigEndian.Uint16(frame[4:6])),
		ReceiveCnt:  binary.LittleEndian.Uint32(frame[6:10]),
		ErrorCnt:    binary.LittleEndian.Uint32(frame[10:14]),
		Options:     frame[14],
		SpeedKmh:    frame[15],
		QOS:         frame[16],
	}, true
}

// stepFromModeByte decodes the LAN_X_LOCO_SLOT_INFO mode/step field (byte18)
// into a native step count and an MM flag, per spec §4.1's mapping table.
func stepFromModeByte(b byte) (model.NativeSpeedSteps, bool) {
	switch b {
	case 3:
		return model.NativeSteps14, false
	case 6:
		return model.NativeSteps28, false
	case 9:
		return model.NativeSteps128, false
	case 67:
		return model.NativeSteps14, true
	case 83:
		return model.NativeSteps28, true
	case 117:
		return model.NativeSteps128, true
	default:
		return model.NativeStepsUnknown, false
	}
}

// decodeLocoSlotInfo decodes the undocumented 24-byte LAN_X_LOCO_SLOT_INFO
// frame per spec §4.1 / Open Question (a)-(b).
func decodeLocoSlotInfo(frame []byte) (model.LocoSlotInfo, bool) {
	if len(frame) < 19 {
		return model.LocoSlotInfo{}, false
	}
	var s model.LocoSlotInfo
	s.Slot = frame[7]
	s.Address = model.LocoAddr(frame[9])
	s.Speed = frame[12] & 0x7F
	step, isMM := stepFromModeByte(frame[18])
	s.NativeStep = step
	s.IsMM = isMM
	// byte14 bit 0x20 clear means forward, per spec Open Question (b).
	s.Direction = model.Forward
	if frame[14]&0x20 != 0 {
		s.Direction = model.Reverse
	}

	// F0..F7 / F8..F15 / F16..F23 live in bytes 15/16/17; the overflow bits
	// in byte13 (0x10/0x20/0x40) indicate F12/F20/F28 are carried in bit 7
	// of those same bytes instead of following the dense 8-per-byte layout.
	for i := 0; i < 24 && i < len(s.Functions); i++ {
		byteIdx := 15 + i/8
		if byteIdx >= len(frame) {
			break
		}
		s.Functions[i] = frame[byteIdx]&(1<<(uint(i)%8)) != 0
	}
	if frame[13]&0x10 != 0 && len(frame) > 15 {
		s.Functions[12] = frame[15]&0x80 != 0
	}
	if frame[13]&0x20 != 0 && len(frame) > 16 {
		s.Functions[20] = frame[16]&0x80 != 0
	}
	if frame[13]&0x40 != 0 && len(frame) > 17 {
		s.Functions[28] = frame[17]&0x80 != 0
	}
	return s, true
}
