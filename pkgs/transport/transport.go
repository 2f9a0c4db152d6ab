// Package transport abstracts the UDP socket a session talks over, per the
// client's requirement that the wire connection be swappable for tests: the
// real implementation wraps net.Conn exactly as the teacher's
// pkgs/commandstation.Z21Roco.connect did, while InMemoryTransport lets
// session/router tests run without a socket at all.
package transport

import (
	"fmt"
	"net"
	"time"

	"github.com/sirupsen/logrus"
)

// Transport is anything a Session can send datagrams through and receive
// datagrams from. Implementations must be safe for concurrent Send/Receive
// calls from different goroutines (the session has one sender and one
// receiver goroutine).
type Transport interface {
	// Send writes one outbound datagram.
	Send(b []byte) error
	// Receive blocks for up to the transport's configured deadline, or
	// forever if none was set, returning the next inbound datagram.
	Receive() ([]byte, error)
	// SetReadDeadline bounds the next Receive call, matching net.Conn's
	// deadline semantics so the session's receive loop can check for
	// shutdown without blocking indefinitely.
	SetReadDeadline(t time.Time) error
	// Close releases the underlying socket.
	Close() error
	// RemoteAddr reports the peer the transport is bound to, for logging.
	RemoteAddr() string
}

// UDPTransport is the real network transport, a thin wrapper around
// net.Conn dialed in UDP mode, in the same style as the teacher's
// Z21Roco.connect.
type UDPTransport struct {
	conn net.Conn
	addr string
}

// Dial opens a UDP "connection" (really just a default-destination socket)
// to host:port.
func Dial(host string, port uint16) (*UDPTransport, error) {
	addr := fmt.Sprintf("%s:%d", host, port)
	conn, err := net.Dial("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("UDP dial error while connecting to Z21: %w", err)
	}
	logrus.Debugf("transport: dialed %s", addr)
	return &UDPTransport{conn: conn, addr: addr}, nil
}

func (t *UDPTransport) Send(b []byte) error {
	_, err := t.conn.Write(b)
	if err != nil {
		return fmt.Errorf("transport: write failed: %w", err)
	}
	return nil
}

func (t *UDPTransport) Receive() ([]byte, error) {
	buf := make([]byte, 1500)
	n, err := t.conn.Read(buf)
	if err != nil {
		return nil, err
	}
	return buf[:n], nil
}

func (t *UDPTransport) SetReadDeadline(deadline time.Time) error {
	return t.conn.SetReadDeadline(deadline)
}

func (t *UDPTransport) Close() error {
	return t.conn.Close()
}

func (t *UDPTransport) RemoteAddr() string {
	return t.addr
}
