package model

import "errors"

// Sentinel errors forming the error taxonomy of spec §7. Protocol errors and
// receive-side transport errors are logged and swallowed at the point of
// occurrence (they never escape the receive loop); send failures are logged
// and returned wrapped in ErrTransport. These sentinels exist so callers that
// do see an error (Connect, Send, discovery, range-validated getters) can
// classify it with errors.Is.
var (
	ErrTransport         = errors.New("z21: transport error")
	ErrMalformedFrame    = errors.New("z21: malformed frame")
	ErrChecksumMismatch  = errors.New("z21: checksum mismatch")
	ErrUnknownCommand    = errors.New("z21: station reported unknown command")
	ErrHandshakeTimeout  = errors.New("z21: handshake step timed out")
	ErrLivenessLost      = errors.New("z21: liveness lost")
	ErrPrecondition      = errors.New("z21: precondition violated")
	ErrAlreadyConnected  = errors.New("z21: already connected")
	ErrNotConnected      = errors.New("z21: not connected")
)
