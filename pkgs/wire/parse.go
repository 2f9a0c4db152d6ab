package wire

import (
	"encoding/binary"

	"github.com/keskad/z21/pkgs/model"
)

// ParseDatagram splits a single UDP datagram into zero or more Events, per
// spec §4.1: a datagram may carry several length-prefixed frames back to
// back. Frames that are too short or fail their X-Bus checksum are dropped
// silently and the next frame in the datagram, if any, is still attempted.
// A zero length or a length that runs past the end of the datagram stops
// parsing: that frame and everything after it are discarded. This mirrors
// the teacher's defensive parsing in pkgs/commandstation/z21_proto.go.
func ParseDatagram(data []byte) []Event {
	var events []Event
	for len(data) >= 2 {
		length := binary.LittleEndian.Uint16(data[0:2])
		if length == 0 || int(length) > len(data) {
			break
		}
		frame := data[:length]
		data = data[length:]
		if length < 4 {
			continue
		}
		if ev, ok := parseFrame(frame); ok {
			events = append(events, ev)
		}
	}
	return events
}

// parseFrame decodes a single, already length-delimited frame (including its
// 4-byte length+header prefix).
func parseFrame(frame []byte) (Event, bool) {
	header := binary.LittleEndian.Uint16(frame[2:4])
	switch header {
	case HeaderGetSerialNumber:
		if len(frame) < 8 {
			return nil, false
		}
		return EventSerialNumber{Value: binary.LittleEndian.Uint32(frame[4:8])}, true

	case HeaderGetHWInfo:
		hw, ok := decodeHardwareInfo(frame)
		return EventHardwareInfo(hw), ok

	case HeaderGetCode:
		if len(frame) < 5 {
			return nil, false
		}
		return EventCode{Code: frame[4]}, true

	case HeaderGetBroadcastFlags:
		if len(frame) < 8 {
			return nil, false
		}
		return EventBroadcastFlags{Mask: binary.LittleEndian.Uint32(frame[4:8])}, true

	case HeaderGetLocoMode:
		if len(frame) < 7 {
			return nil, false
		}
		addr := model.LocoAddr(binary.BigEndian.Uint16(frame[4:6]))
		return EventLocoMode{Address: addr, Mode: model.Mode(frame[6])}, true

	case HeaderGetTurnoutMode:
		if len(frame) < 7 {
			return nil, false
		}
		addr := model.LocoAddr(binary.BigEndian.Uint16(frame[4:6]))
		return EventTurnoutMode{Address: addr, Mode: model.Mode(frame[6])}, true

	case HeaderRBusDataChanged:
		d, ok := decodeRBusData(frame)
		return EventRBusData(d), ok

	case HeaderSystemStateResponse:
		s, ok := decodeSystemState(frame, model.HwUnknown)
		return EventSystemState(s), ok

	case HeaderRailComChanged:
		r, ok := decodeRailComData(frame)
		return EventRailComData(r), ok

	case HeaderLocoSlotInfo:
		s, ok := decodeLocoSlotInfo(frame)
		return EventLocoSlotInfo(s), ok

	case HeaderXBus:
		return parseXBus(frame)

	default:
		return nil, false
	}
}

// parseXBus decodes the X-Bus sub-protocol carried inside a HeaderXBus
// frame: the payload's last byte is an XOR checksum over the preceding
// X-Bus bytes, and the first X-Bus byte (the X-header) selects the message.
func parseXBus(frame []byte) (Event, bool) {
	if len(frame) < 5 || !VerifyChecksum(frame) {
		return nil, false
	}
	x := frame[4 : len(frame)-1]
	xHeader := x[0]

	switch xHeader {
	case XHeaderEmergencyStop:
		if len(x) < 2 {
			return nil, false
		}
		if x[1] == XDB0EmergencyStopAll {
			return EventEmergencyStop{}, true
		}
		return nil, false

	case XHeaderBCStopped:
		return EventEmergencyStop{}, true

	case XHeaderTrackPower:
		if len(x) < 2 {
			return nil, false
		}
		switch x[1] {
		case XDB0TrackPowerOn:
			return EventTrackPower{State: model.PowerOn}, true
		case XDB0TrackPowerOff:
			return EventTrackPower{State: model.PowerOff}, true
		case XDB0UnknownCommand:
			return EventUnknownCommand{}, true
		}
		return nil, false

	case XHeaderTurnoutInfo:
		t, ok := decodeTurnoutInfo(frame)
		return EventTurnoutInfo(t), ok

	case XHeaderFirmwareVersion:
		fw, ok := decodeFirmwareVersion(frame)
		return EventFirmwareVersion(fw), ok

	case XHeaderLocoInfo:
		info, ok := decodeLocoInfo(x)
		return EventLocoInfo(info), ok

	default:
		return nil, false
	}
}
