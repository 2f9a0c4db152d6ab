package wire

import (
	"testing"

	"github.com/keskad/z21/pkgs/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestXorSum(t *testing.T) {
	assert.Equal(t, byte(0x00), xorSum(nil))
	assert.Equal(t, byte(0x61), xorSum([]byte{0x61}))
	assert.Equal(t, byte(0x61^0x01), xorSum([]byte{0x61, 0x01}))
}

func TestBuildGetSerialNumber(t *testing.T) {
	got := BuildGetSerialNumber()
	assert.Equal(t, []byte{0x04, 0x00, 0x10, 0x00}, got)
}

func TestBuildSetTrackPower(t *testing.T) {
	on := BuildSetTrackPowerOn()
	assert.Equal(t, []byte{0x07, 0x00, 0x40, 0x00, 0x61, 0x01, 0x60}, on)

	off := BuildSetTrackPowerOff()
	assert.Equal(t, []byte{0x07, 0x00, 0x40, 0x00, 0x61, 0x00, 0x61}, off)
}

func TestBuildSetStop(t *testing.T) {
	got := BuildSetStop()
	assert.True(t, VerifyChecksum(got))
	assert.Equal(t, XHeaderEmergencyStop, got[4])
}

func TestBuildGetLocoInfoAddressEncoding(t *testing.T) {
	low := BuildGetLocoInfo(model.LocoAddr(3))
	assert.Equal(t, byte(0x00), low[6])
	assert.Equal(t, byte(0x03), low[7])

	high := BuildGetLocoInfo(model.LocoAddr(1000))
	assert.Equal(t, byte(0xC0|(1000>>8)), high[6])
	assert.Equal(t, byte(1000&0xFF), high[7])
}

func TestVerifyChecksumRoundTrip(t *testing.T) {
	frame := BuildGetFirmwareVersion()
	assert.True(t, VerifyChecksum(frame))
	corrupted := append([]byte(nil), frame...)
	corrupted[len(corrupted)-1] ^= 0xFF
	assert.False(t, VerifyChecksum(corrupted))
}

// Literal scenarios from the protocol's documented examples.

func TestParseTrackPowerOff(t *testing.T) {
	frame := []byte{0x07, 0x00, 0x40, 0x00, 0x61, 0x00, 0x61}
	events := ParseDatagram(frame)
	require.Len(t, events, 1)
	ev, ok := events[0].(EventTrackPower)
	require.True(t, ok)
	assert.Equal(t, model.PowerOff, ev.State)
}

func TestParseTrackPowerOn(t *testing.T) {
	frame := []byte{0x07, 0x00, 0x40, 0x00, 0x61, 0x01, 0x60}
	events := ParseDatagram(frame)
	require.Len(t, events, 1)
	ev, ok := events[0].(EventTrackPower)
	require.True(t, ok)
	assert.Equal(t, model.PowerOn, ev.State)
}

func TestParseSerialNumber(t *testing.T) {
	frame := []byte{0x08, 0x00, 0x10, 0x00, 0x12, 0x34, 0x56, 0x78}
	events := ParseDatagram(frame)
	require.Len(t, events, 1)
	ev, ok := events[0].(EventSerialNumber)
	require.True(t, ok)
	assert.Equal(t, uint32(0x78563412), ev.Value)
}

func TestParseEmergencyStop(t *testing.T) {
	frame := BuildSetStop()
	events := ParseDatagram(frame)
	require.Len(t, events, 1)
	_, ok := events[0].(EventEmergencyStop)
	assert.True(t, ok)
}

func TestParseMultipleFramesInOneDatagram(t *testing.T) {
	a := BuildSetTrackPowerOn()
	b := []byte{0x08, 0x00, 0x10, 0x00, 0x01, 0x00, 0x00, 0x00}
	datagram := append(append([]byte{}, a...), b...)

	events := ParseDatagram(datagram)
	require.Len(t, events, 2)
	_, ok0 := events[0].(EventTrackPower)
	assert.True(t, ok0)
	_, ok1 := events[1].(EventSerialNumber)
	assert.True(t, ok1)
}

func TestParseTruncatedTrailerStopsCleanly(t *testing.T) {
	a := BuildSetTrackPowerOn()
	truncated := append(append([]byte{}, a...), 0x09, 0x00)
	events := ParseDatagram(truncated)
	require.Len(t, events, 1)
}

func TestParseRejectsBadChecksum(t *testing.T) {
	frame := BuildSetTrackPowerOn()
	frame[len(frame)-1] ^= 0xFF
	events := ParseDatagram(frame)
	assert.Empty(t, events)
}

func TestParseRejectsZeroLength(t *testing.T) {
	events := ParseDatagram([]byte{0x00, 0x00, 0xFF, 0xFF})
	assert.Empty(t, events)
}

func TestParseRejectsOverrunLength(t *testing.T) {
	events := ParseDatagram([]byte{0xFF, 0x00, 0x40, 0x00})
	assert.Empty(t, events)
}

func TestDecodeHardwareInfoBCD(t *testing.T) {
	frame := make([]byte, 12)
	frame[0], frame[1] = 0x0C, 0x00
	frame[2], frame[3] = 0x1A, 0x00
	frame[4], frame[5], frame[6], frame[7] = 0x00, 0x02, 0x00, 0x00 // hwType=0x200
	frame[8], frame[9], frame[10], frame[11] = 0x43, 0x01, 0x00, 0x00

	events := ParseDatagram(frame)
	require.Len(t, events, 1)
	ev, ok := events[0].(EventHardwareInfo)
	require.True(t, ok)
	assert.Equal(t, model.HwZ21Old, ev.Type)
	assert.Equal(t, byte(0), ev.Firmware.Major)
	assert.Equal(t, byte(43), ev.Firmware.Minor)
}

func TestParseSystemState(t *testing.T) {
	frame := []byte{
		0x14, 0x00, 0x84, 0x00, // length=20, header=LAN_SYSTEMSTATE_DATACHANGED
		0xDC, 0x05, // MainCurrentMA = 1500
		0xF4, 0x01, // ProgCurrentMA = 500
		0x78, 0x05, // FilteredMainMA = 1400
		0x23, 0x00, // TemperatureC = 35
		0x50, 0x46, // SupplyMV = 18000
		0x74, 0x40, // VCCMV = 16500
		0x00,       // CentralState
		0x00,       // CentralStateEx
		0x00, 0x00, // reserved / capabilities
	}
	events := ParseDatagram(frame)
	require.Len(t, events, 1)
	ev, ok := events[0].(EventSystemState)
	require.True(t, ok)
	assert.Equal(t, int16(16500), ev.VCCMV)
	assert.Equal(t, int16(35), ev.TemperatureC)
	assert.Equal(t, int16(1500), ev.MainCurrentMA)
	assert.Equal(t, int16(500), ev.ProgCurrentMA)
}

func TestParseLocoInfo(t *testing.T) {
	x := []byte{XHeaderLocoInfo, 0x00, 0x03, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00}
	frame := xbusFrame(x)
	require.Len(t, frame, 14)

	events := ParseDatagram(frame)
	require.Len(t, events, 1)
	ev, ok := events[0].(EventLocoInfo)
	require.True(t, ok)
	assert.Equal(t, model.LocoAddr(3), ev.Address)
}

func TestSpeedConversion14Step(t *testing.T) {
	assert.Equal(t, byte(0), model.ConvertSpeedToNative(0, model.NativeSteps14))
	assert.Equal(t, byte(1), model.ConvertSpeedToNative(1, model.NativeSteps14))
	assert.Equal(t, byte(14), model.ConvertSpeedToNative(14, model.NativeSteps14))
	assert.Equal(t, byte(14), model.ConvertSpeedToNative(20, model.NativeSteps14))
}

func TestSpeedConversion128Step(t *testing.T) {
	assert.Equal(t, byte(0), model.ConvertSpeedToNative(0, model.NativeSteps128))
	assert.Equal(t, byte(126), model.ConvertSpeedToNative(128, model.NativeSteps128))
}

func TestBuildSetLocoDriveDirectionBit(t *testing.T) {
	fwd := BuildSetLocoDrive(model.LocoAddr(3), model.NativeSteps128, 64, model.Forward)
	assert.NotZero(t, fwd[8]&0x80)

	rev := BuildSetLocoDrive(model.LocoAddr(3), model.NativeSteps128, 64, model.Reverse)
	assert.Zero(t, rev[8]&0x80)
}
