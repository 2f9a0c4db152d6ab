package wire

import "encoding/binary"

// xorSum computes the XOR checksum over b, exactly as the teacher's
// pkgs/commandstation test utility (TestXorSum in utils_test.go).
func xorSum(b []byte) byte {
	var x byte
	for _, v := range b {
		x ^= v
	}
	return x
}

// frameHeader prepends the 2-byte little-endian length and 2-byte header to
// payload, producing a complete Z21 LAN frame. length is payload+4.
func frameHeader(header uint16, payload []byte) []byte {
	length := uint16(len(payload) + 4)
	buf := make([]byte, 4, 4+len(payload))
	binary.LittleEndian.PutUint16(buf[0:2], length)
	binary.LittleEndian.PutUint16(buf[2:4], header)
	return append(buf, payload...)
}

// xbusFrame builds a HeaderXBus frame from the X-Bus payload x (starting at
// the X-header byte, not including the checksum), appending the XOR
// checksum as required by spec §4.1.
func xbusFrame(x []byte) []byte {
	sum := xorSum(x)
	payload := make([]byte, 0, len(x)+1)
	payload = append(payload, x...)
	payload = append(payload, sum)
	return frameHeader(HeaderXBus, payload)
}

// VerifyChecksum reports whether the final byte of an X-Bus payload (bytes
// [4:length-1] being the X-Bus body, byte length-1 the checksum) matches the
// XOR of bytes [4:length-1]. frame is the complete frame including its
// 4-byte length+header prefix.
func VerifyChecksum(frame []byte) bool {
	if len(frame) < 5 {
		return false
	}
	body := frame[4 : len(frame)-1]
	want := frame[len(frame)-1]
	return xorSum(body) == want
}
