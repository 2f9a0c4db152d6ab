package transport

import (
	"errors"
	"sync"
	"time"
)

// ErrClosed is returned by InMemoryTransport once Close has been called.
var ErrClosed = errors.New("transport: closed")

// InMemoryTransport is a fake Transport for exercising sessions, routers and
// clients without a real socket: Sent captures every outbound datagram and
// Inject delivers an inbound one.
type InMemoryTransport struct {
	mu       sync.Mutex
	cond     *sync.Cond
	inbox    [][]byte
	closed   bool
	deadline time.Time
	Sent     [][]byte
}

// NewInMemoryTransport constructs an empty fake transport.
func NewInMemoryTransport() *InMemoryTransport {
	t := &InMemoryTransport{}
	t.cond = sync.NewCond(&t.mu)
	return t
}

func (t *InMemoryTransport) Send(b []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return ErrClosed
	}
	cp := append([]byte(nil), b...)
	t.Sent = append(t.Sent, cp)
	return nil
}

// Inject makes b available to the next Receive call, as if it had arrived
// over the wire.
func (t *InMemoryTransport) Inject(b []byte) {
	t.mu.Lock()
	defer t.mu.Unlock()
	cp := append([]byte(nil), b...)
	t.inbox = append(t.inbox, cp)
	t.cond.Broadcast()
}

func (t *InMemoryTransport) Receive() ([]byte, error) {
	t.mu.Lock()
	deadline := t.deadline
	t.mu.Unlock()

	// A zero deadline means no timeout was requested: wait indefinitely on
	// the condvar, woken by Inject/Close/SetReadDeadline.
	if deadline.IsZero() {
		t.mu.Lock()
		defer t.mu.Unlock()
		for len(t.inbox) == 0 && !t.closed {
			t.cond.Wait()
		}
		if t.closed {
			return nil, ErrClosed
		}
		b := t.inbox[0]
		t.inbox = t.inbox[1:]
		return b, nil
	}

	// A real deadline must actually elapse even if nothing ever wakes the
	// condvar again, so a background goroutine broadcasts once it passes.
	timer := time.AfterFunc(time.Until(deadline), t.cond.Broadcast)
	defer timer.Stop()

	t.mu.Lock()
	defer t.mu.Unlock()
	for len(t.inbox) == 0 && !t.closed {
		if !time.Now().Before(deadline) {
			return nil, timeoutError{}
		}
		t.cond.Wait()
	}
	if t.closed {
		return nil, ErrClosed
	}
	b := t.inbox[0]
	t.inbox = t.inbox[1:]
	return b, nil
}

func (t *InMemoryTransport) SetReadDeadline(deadline time.Time) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.deadline = deadline
	t.cond.Broadcast()
	return nil
}

func (t *InMemoryTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closed = true
	t.cond.Broadcast()
	return nil
}

func (t *InMemoryTransport) RemoteAddr() string {
	return "memory"
}

type timeoutError struct{}

func (timeoutError) Error() string   { return "transport: i/o timeout" }
func (timeoutError) Timeout() bool   { return true }
func (timeoutError) Temporary() bool { return true }
