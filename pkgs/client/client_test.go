package client

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/keskad/z21/pkgs/model"
	"github.com/keskad/z21/pkgs/session"
	"github.com/keskad/z21/pkgs/transport"
	"github.com/keskad/z21/pkgs/wire"
)

func newTestClient(t *testing.T) (*Client, *transport.InMemoryTransport) {
	t.Helper()
	tr := transport.NewInMemoryTransport()
	s := session.New(
		func(host string, port uint16) (transport.Transport, error) { return tr, nil },
		func(host string, timeout time.Duration) error { return nil },
	)
	s.Timeouts.Handshake = 200 * time.Millisecond
	s.Timeouts.KeepAlivePeriod = time.Hour
	s.Timeouts.WatchdogPeriod = time.Hour
	return NewWithSession(s), tr
}

func hwFrame() []byte {
	frame := make([]byte, 12)
	frame[0], frame[1] = 0x0C, 0x00
	frame[2], frame[3] = 0x1A, 0x00
	hwType := uint32(model.HwZ21Old)
	frame[4], frame[5], frame[6], frame[7] = byte(hwType), byte(hwType>>8), byte(hwType>>16), byte(hwType>>24)
	frame[8] = 0x05 // firmware below 1.42
	return frame
}

func autoRespondHW(tr *transport.InMemoryTransport) {
	go func() {
		deadline := time.Now().Add(time.Second)
		for time.Now().Before(deadline) {
			time.Sleep(5 * time.Millisecond)
			for _, frame := range tr.Sent {
				if len(frame) >= 4 && uint16(frame[2])|uint16(frame[3])<<8 == wire.HeaderGetHWInfo {
					tr.Inject(hwFrame())
					return
				}
			}
		}
	}()
}

func TestClientConnectDisconnect(t *testing.T) {
	c, tr := newTestClient(t)
	autoRespondHW(tr)

	err := c.Connect(context.Background(), "127.0.0.1", 0)
	require.NoError(t, err)

	hw, ok := c.GetHardwareInfo()
	assert.True(t, ok)
	assert.Equal(t, model.HwZ21Old, hw.Type)

	require.NoError(t, c.Disconnect())
}

func TestClientSubscribeUnsubscribe(t *testing.T) {
	c, _ := newTestClient(t)
	token, err := c.Subscribe(model.CategoryAllRailCom, func(wire.Event) {})
	require.NoError(t, err)
	assert.NoError(t, c.Unsubscribe(token))
}

func TestClientGetBroadcastFlagsAlwaysIncludesBasic(t *testing.T) {
	c, _ := newTestClient(t)
	mask := c.GetBroadcastFlags()
	assert.NotZero(t, mask&uint32(model.FlagBasic))
}

func TestClientDiscoveryPreconditionViolationWhenConnected(t *testing.T) {
	c, tr := newTestClient(t)
	autoRespondHW(tr)
	require.NoError(t, c.Connect(context.Background(), "127.0.0.1", 0))
	defer c.Disconnect()

	_, err := c.QueryForZ21s(10 * time.Millisecond)
	assert.ErrorIs(t, err, model.ErrPrecondition)
}

func TestClientTurnoutPositionRejectsInvalid(t *testing.T) {
	c, _ := newTestClient(t)
	err := c.SetTurnoutPosition(5, 9)
	assert.ErrorIs(t, err, model.ErrPrecondition)
}

func TestClientDumpContainsSnapshotFields(t *testing.T) {
	c, _ := newTestClient(t)
	dump := c.Dump()
	assert.Contains(t, dump, "Disconnected")
}
