package transport

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryTransportSendCaptures(t *testing.T) {
	tr := NewInMemoryTransport()
	require.NoError(t, tr.Send([]byte{0x01, 0x02}))
	require.Len(t, tr.Sent, 1)
	assert.Equal(t, []byte{0x01, 0x02}, tr.Sent[0])
}

func TestInMemoryTransportInjectReceive(t *testing.T) {
	tr := NewInMemoryTransport()
	tr.Inject([]byte{0xAA})
	got, err := tr.Receive()
	require.NoError(t, err)
	assert.Equal(t, []byte{0xAA}, got)
}

func TestInMemoryTransportReceiveTimesOut(t *testing.T) {
	tr := NewInMemoryTransport()
	require.NoError(t, tr.SetReadDeadline(time.Now().Add(20*time.Millisecond)))
	_, err := tr.Receive()
	require.Error(t, err)
}

func TestInMemoryTransportCloseUnblocksReceive(t *testing.T) {
	tr := NewInMemoryTransport()
	done := make(chan error, 1)
	go func() {
		_, err := tr.Receive()
		done <- err
	}()
	time.Sleep(10 * time.Millisecond)
	require.NoError(t, tr.Close())
	select {
	case err := <-done:
		assert.ErrorIs(t, err, ErrClosed)
	case <-time.After(time.Second):
		t.Fatal("Receive did not unblock after Close")
	}
}

func TestInMemoryTransportSendAfterCloseFails(t *testing.T) {
	tr := NewInMemoryTransport()
	require.NoError(t, tr.Close())
	err := tr.Send([]byte{0x01})
	assert.ErrorIs(t, err, ErrClosed)
}
