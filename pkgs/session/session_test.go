package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/keskad/z21/pkgs/model"
	"github.com/keskad/z21/pkgs/transport"
	"github.com/keskad/z21/pkgs/wire"
)

// newTestSession wires a Session to an InMemoryTransport and a no-op probe,
// with fast timeouts so tests don't wait on the real defaults.
func newTestSession(t *testing.T) (*Session, *transport.InMemoryTransport) {
	t.Helper()
	tr := transport.NewInMemoryTransport()
	s := New(
		func(host string, port uint16) (transport.Transport, error) { return tr, nil },
		func(host string, timeout time.Duration) error { return nil },
	)
	s.Timeouts.Handshake = 200 * time.Millisecond
	s.Timeouts.KeepAlivePeriod = time.Hour
	s.Timeouts.WatchdogPeriod = time.Hour
	return s, tr
}

// autoRespond runs a goroutine that answers every outbound handshake
// request on tr with the corresponding canned response, simulating a
// well-behaved station for Connect tests.
func autoRespond(tr *transport.InMemoryTransport, hw []byte, sysState []byte, code []byte, serial []byte) chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		seen := map[uint16]bool{}
		deadline := time.Now().Add(2 * time.Second)
		for time.Now().Before(deadline) {
			time.Sleep(5 * time.Millisecond)
			n := len(tr.Sent)
			for i := 0; i < n; i++ {
				frame := tr.Sent[i]
				if len(frame) < 4 {
					continue
				}
				header := uint16(frame[2]) | uint16(frame[3])<<8
				if seen[header] {
					continue
				}
				switch header {
				case wire.HeaderGetHWInfo:
					tr.Inject(hw)
				case wire.HeaderSystemStateGet:
					if sysState != nil {
						tr.Inject(sysState)
					}
				case wire.HeaderGetCode:
					tr.Inject(code)
				case wire.HeaderGetSerialNumber:
					tr.Inject(serial)
				default:
					continue
				}
				seen[header] = true
			}
			if seen[wire.HeaderGetHWInfo] && seen[wire.HeaderGetCode] && seen[wire.HeaderGetSerialNumber] {
				return
			}
		}
	}()
	return done
}

func hwInfoFrame(hwType uint32, fw uint32) []byte {
	frame := make([]byte, 12)
	frame[0], frame[1] = 0x0C, 0x00
	frame[2], frame[3] = 0x1A, 0x00
	frame[4] = byte(hwType)
	frame[5] = byte(hwType >> 8)
	frame[6] = byte(hwType >> 16)
	frame[7] = byte(hwType >> 24)
	frame[8] = byte(fw)
	frame[9] = byte(fw >> 8)
	frame[10] = byte(fw >> 16)
	frame[11] = byte(fw >> 24)
	return frame
}

func codeFrame() []byte {
	return []byte{0x05, 0x00, 0x18, 0x00, 0x00}
}

func serialFrame() []byte {
	return []byte{0x08, 0x00, 0x10, 0x00, 0x40, 0xE2, 0x01, 0x00}
}

func TestConnectHandshakeReachesReady(t *testing.T) {
	s, tr := newTestSession(t)
	// firmware 0.10, below the 1.42 system-state gate.
	hw := hwInfoFrame(uint32(model.HwZ21Old), 0x00000010)

	done := autoRespond(tr, hw, nil, codeFrame(), serialFrame())
	err := s.Connect(context.Background(), "127.0.0.1", 0)
	<-done
	require.NoError(t, err)
	assert.Equal(t, model.Ready, s.State())

	snap := s.Snapshot()
	assert.True(t, snap.HasHWInfo)
	assert.Equal(t, model.HwZ21Old, snap.HardwareInfo.Type)
	assert.True(t, snap.HasZ21Code)
	assert.True(t, snap.HasSerial)

	require.NoError(t, s.Disconnect())
	assert.Equal(t, model.Disconnected, s.State())
}

func TestConnectIsIdempotentWhenReady(t *testing.T) {
	s, tr := newTestSession(t)
	hw := hwInfoFrame(uint32(model.HwZ21Old), 0x00000010)
	done := autoRespond(tr, hw, nil, codeFrame(), serialFrame())
	require.NoError(t, s.Connect(context.Background(), "127.0.0.1", 0))
	<-done

	require.NoError(t, s.Connect(context.Background(), "127.0.0.1", 0))
	assert.Equal(t, model.Ready, s.State())
}

func TestConnectFailsOnHandshakeTimeout(t *testing.T) {
	s, _ := newTestSession(t)
	// nobody ever answers: hwinfo step must time out.
	err := s.Connect(context.Background(), "127.0.0.1", 0)
	require.Error(t, err)
	assert.Equal(t, model.Disconnected, s.State())
}

func TestConnectFailsOnLivenessProbe(t *testing.T) {
	tr := transport.NewInMemoryTransport()
	s := New(
		func(host string, port uint16) (transport.Transport, error) { return tr, nil },
		func(host string, timeout time.Duration) error { return assertErr },
	)
	err := s.Connect(context.Background(), "10.0.0.1", 0)
	require.Error(t, err)
	assert.Equal(t, model.Disconnected, s.State())
}

var assertErr = errNoRoute{}

type errNoRoute struct{}

func (errNoRoute) Error() string { return "no route to host" }

func TestSendAfterDisconnectErrors(t *testing.T) {
	s, _ := newTestSession(t)
	err := s.Send(wire.BuildGetSerialNumber())
	assert.ErrorIs(t, err, model.ErrNotConnected)
}

func TestWatchdogDispatchesConnectionLostAfterMaxMiss(t *testing.T) {
	s, tr := newTestSession(t)
	hw := hwInfoFrame(uint32(model.HwZ21Old), 0x00000010)
	done := autoRespond(tr, hw, nil, codeFrame(), serialFrame())
	require.NoError(t, s.Connect(context.Background(), "127.0.0.1", 0))
	<-done

	s.probe = func(host string, timeout time.Duration) error { return errNoRoute{} }
	s.Timeouts.WatchdogIdle = 0
	s.Timeouts.WatchdogMaxMiss = 2
	s.Timeouts.WatchdogPeriod = 10 * time.Millisecond
	s.mu.Lock()
	s.lastMessageReceived = time.Now().Add(-time.Hour)
	s.mu.Unlock()

	lost := make(chan wire.EventConnectionStateChanged, 1)
	_, err := s.Router.Subscribe(model.CategoryBasic, func(ev wire.Event) {
		if cs, ok := ev.(wire.EventConnectionStateChanged); ok {
			select {
			case lost <- cs:
			default:
			}
		}
	})
	require.NoError(t, err)

	// replace the slow (hour-long) watchdog started by Connect with one
	// running at the test's fast period.
	close(s.stopTimers)
	s.timersDone.Wait()
	s.stopTimers = make(chan struct{})
	s.timersDone.Add(1)
	go s.watchdogLoop()

	select {
	case cs := <-lost:
		assert.Equal(t, model.Lost, cs.State)
		assert.Equal(t, model.Disconnected, s.State())
	case <-time.After(2 * time.Second):
		t.Fatal("expected watchdog to declare liveness lost")
	}
}
