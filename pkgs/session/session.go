// Package session implements the connect handshake, keep-alive, watchdog
// and send-discipline state machine that sits between the public client
// facade and the wire codec/transport, generalizing the request/await
// pattern the teacher used for CV reads (pkgs/commandstation.sendAndAwait)
// into a reusable one-shot-subscription helper.
package session

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	probing "github.com/prometheus-community/pro-bing"
	"github.com/sirupsen/logrus"

	"github.com/keskad/z21/pkgs/model"
	"github.com/keskad/z21/pkgs/router"
	"github.com/keskad/z21/pkgs/subscription"
	"github.com/keskad/z21/pkgs/transport"
	"github.com/keskad/z21/pkgs/wire"
)

// DefaultPort is the Z21 LAN protocol's default UDP port, used as the remote
// port when Connect is given port 0 and as discovery's broadcast destination.
// The local socket is not bound to it: transport.Dial uses an ephemeral
// local port.
const DefaultPort uint16 = 21105

// Timeouts bundles every period the session's timers run on. The zero value
// is invalid; New fills in DefaultTimeouts.
type Timeouts struct {
	Handshake      time.Duration
	LivenessProbe  time.Duration
	KeepAlivePeriod time.Duration
	KeepAliveIdle   time.Duration
	WatchdogPeriod  time.Duration
	WatchdogIdle    time.Duration
	WatchdogMaxMiss int
}

// DefaultTimeouts mirrors the literal periods in spec §4.2.
var DefaultTimeouts = Timeouts{
	Handshake:       3 * time.Second,
	LivenessProbe:   2 * time.Second,
	KeepAlivePeriod: 45 * time.Second,
	KeepAliveIdle:   40 * time.Second,
	WatchdogPeriod:  5 * time.Second,
	WatchdogIdle:    15 * time.Second,
	WatchdogMaxMiss: 3,
}

// Dialer opens a Transport to host:port. Production code uses
// transport.Dial; tests inject a constructor that returns a
// transport.InMemoryTransport.
type Dialer func(host string, port uint16) (transport.Transport, error)

// Prober performs a liveness check against host, returning a non-nil error
// if the host did not answer within the caller's timeout.
type Prober func(host string, timeout time.Duration) error

// Session owns one connection's lifecycle: the handshake, the keep-alive
// and watchdog timers, the receive loop, and the single send path every
// outbound frame funnels through.
type Session struct {
	dial  Dialer
	probe Prober

	Router  *router.Router
	Ledger  *subscription.Ledger
	Timeouts Timeouts

	sendMu sync.Mutex // serializes socket writes; independent of mu.
	mu     sync.Mutex // guards everything below.
	state  model.SessionState
	tr     transport.Transport
	host   string
	port   uint16

	hwInfo       model.HardwareInfo
	hasHWInfo    bool
	capabilities model.Capabilities
	hasCaps      bool
	z21Code      model.Z21Code
	hasZ21Code   bool
	serial       model.SerialNumber
	hasSerial    bool
	systemState  model.SystemState
	hasSysState  bool

	lastCommandSent     time.Time
	lastMessageReceived time.Time
	failedPingCount     int

	stopReceive chan struct{}
	receiveDone chan struct{}
	stopTimers  chan struct{}
	timersDone  sync.WaitGroup
}

// New constructs a Session. dial/probe default to the real UDP transport and
// an unprivileged ICMP probe when nil.
func New(dial Dialer, probe Prober) *Session {
	if dial == nil {
		dial = func(host string, port uint16) (transport.Transport, error) {
			return transport.Dial(host, port)
		}
	}
	if probe == nil {
		probe = icmpProbe
	}
	s := &Session{
		dial:     dial,
		probe:    probe,
		Timeouts: DefaultTimeouts,
		state:    model.Disconnected,
	}
	s.Ledger = subscription.NewLedger(s.publishMask)
	s.Router = router.New(s.Ledger, s.sendRailComNext)
	return s
}

func icmpProbe(host string, timeout time.Duration) error {
	pinger, err := probing.NewPinger(host)
	if err != nil {
		return fmt.Errorf("liveness probe: %w", err)
	}
	pinger.Count = 1
	pinger.Timeout = timeout
	pinger.SetPrivileged(false)
	if err := pinger.Run(); err != nil {
		return fmt.Errorf("liveness probe: %w", err)
	}
	if pinger.Statistics().PacketsRecv == 0 {
		return model.ErrLivenessLost
	}
	return nil
}

// State reports the current session lifecycle state.
func (s *Session) State() model.SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) setState(state model.SessionState) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
}

// Connect performs the handshake of spec §4.2. It is idempotent: calling it
// while already Ready logs a warning and returns nil.
func (s *Session) Connect(ctx context.Context, host string, port uint16) error {
	if s.State() == model.Ready {
		logrus.Warn("session: connect called while already connected")
		return nil
	}
	if port == 0 {
		port = DefaultPort
	}

	s.setState(model.Connecting)

	if err := s.probe(host, s.Timeouts.LivenessProbe); err != nil {
		s.setState(model.Disconnected)
		return fmt.Errorf("session: liveness probe failed: %w", err)
	}

	tr, err := s.dial(host, port)
	if err != nil {
		s.setState(model.Disconnected)
		return fmt.Errorf("session: dial failed: %w", err)
	}

	s.mu.Lock()
	s.tr = tr
	s.host = host
	s.port = port
	s.lastMessageReceived = time.Now()
	s.mu.Unlock()

	s.stopReceive = make(chan struct{})
	s.receiveDone = make(chan struct{})
	go s.receiveLoop()

	hw, err := awaitEventGeneric(s, ctx, model.CategoryBasic, s.Timeouts.Handshake, wire.BuildGetHWInfo(), func(ev wire.Event) (model.HardwareInfo, bool) {
		info, ok := ev.(wire.EventHardwareInfo)
		return model.HardwareInfo(info), ok
	})
	if err != nil {
		_ = s.teardown()
		return fmt.Errorf("session: hardware-info handshake step: %w", err)
	}
	s.mu.Lock()
	s.hwInfo, s.hasHWInfo = hw, true
	s.mu.Unlock()
	s.Ledger.SetFirmware(hw.Firmware)

	if hw.Firmware.AtLeast(1, 42) {
		state, err := awaitEventGeneric(s, ctx, model.CategorySystemState, s.Timeouts.Handshake, wire.BuildSystemStateGet(), func(ev wire.Event) (model.SystemState, bool) {
			st, ok := ev.(wire.EventSystemState)
			return model.SystemState(st), ok
		})
		if err == nil {
			s.mu.Lock()
			s.systemState, s.hasSysState = state, true
			if state.HasCapabilities {
				s.capabilities, s.hasCaps = model.Capabilities{Raw: state.Capabilities}, true
			}
			s.mu.Unlock()
		} else {
			logrus.Warnf("session: system-state handshake step failed (non-fatal): %s", err)
		}
	}

	code, err := awaitEventGeneric(s, ctx, model.CategoryBasic, s.Timeouts.Handshake, wire.BuildGetCode(), func(ev wire.Event) (model.Z21Code, bool) {
		c, ok := ev.(wire.EventCode)
		return model.Z21Code(c), ok
	})
	if err == nil {
		s.mu.Lock()
		s.z21Code, s.hasZ21Code = code, true
		s.mu.Unlock()
	} else {
		logrus.Warnf("session: z21-code handshake step failed (non-fatal): %s", err)
	}

	serial, err := awaitEventGeneric(s, ctx, model.CategoryBasic, s.Timeouts.Handshake, wire.BuildGetSerialNumber(), func(ev wire.Event) (model.SerialNumber, bool) {
		sn, ok := ev.(wire.EventSerialNumber)
		return model.SerialNumber(sn), ok
	})
	if err == nil {
		s.mu.Lock()
		s.serial, s.hasSerial = serial, true
		s.mu.Unlock()
	} else {
		logrus.Warnf("session: serial-number handshake step failed (non-fatal): %s", err)
	}

	initialMask := uint32(model.FlagBasic) | uint32(model.FlagSystemState)
	if err := s.publishMask(initialMask); err != nil {
		logrus.Warnf("session: failed to publish initial broadcast mask: %s", err)
	}

	s.stopTimers = make(chan struct{})
	s.timersDone.Add(2)
	go s.keepAliveLoop()
	go s.watchdogLoop()

	s.setState(model.Ready)
	return nil
}

// Disconnect tears the session down. Idempotent.
func (s *Session) Disconnect() error {
	if s.State() == model.Disconnected {
		return nil
	}
	if s.State() == model.Ready {
		_ = s.Send(wire.BuildLogoff())
	}
	return s.teardown()
}

func (s *Session) teardown() error {
	if s.stopTimers != nil {
		close(s.stopTimers)
		s.timersDone.Wait()
		s.stopTimers = nil
	}
	if s.stopReceive != nil {
		close(s.stopReceive)
		select {
		case <-s.receiveDone:
		case <-time.After(time.Second):
		}
		s.stopReceive = nil
	}

	s.mu.Lock()
	if s.tr != nil {
		_ = s.tr.Close()
		s.tr = nil
	}
	s.hasHWInfo, s.hasCaps, s.hasZ21Code, s.hasSerial, s.hasSysState = false, false, false, false, false
	s.failedPingCount = 0
	s.mu.Unlock()

	s.setState(model.Disconnected)
	return nil
}

// publishMask is the Ledger's Sender: it always ORs in FlagBasic, which is
// implied unconditionally whenever the session is Ready (spec §3: Basic has
// no subscriber-driven bit of its own). While no transport is open the mask
// is not sent and nil is returned, so subscriptions can be registered before
// Connect.
func (s *Session) publishMask(mask uint32) error {
	s.mu.Lock()
	connected := s.tr != nil
	s.mu.Unlock()
	if !connected {
		return nil
	}
	return s.Send(wire.BuildSetBroadcastFlags(mask | uint32(model.FlagBasic)))
}

func (s *Session) sendRailComNext() error {
	return s.Send(wire.BuildRailComGetData(0, true))
}

// Send serializes frame onto the wire through the send mutex, updating
// last_command_sent on success. Send failures are logged and returned to the
// caller wrapped in model.ErrTransport; they never crash the session.
func (s *Session) Send(frame []byte) error {
	s.mu.Lock()
	tr := s.tr
	s.mu.Unlock()
	if tr == nil {
		return model.ErrNotConnected
	}

	s.sendMu.Lock()
	err := tr.Send(frame)
	s.sendMu.Unlock()

	if err != nil {
		logrus.Warnf("session: send failed: %s", err)
		return fmt.Errorf("%w: %s", model.ErrTransport, err)
	}
	s.mu.Lock()
	s.lastCommandSent = time.Now()
	s.mu.Unlock()
	return nil
}

// awaitEventGeneric subscribes a one-shot matcher at cat (the category the
// router dispatches the expected response under), sends req, and races the
// match against timeout, generalizing the teacher's sendAndAwait.
func awaitEventGeneric[T any](s *Session, ctx context.Context, cat model.EventCategory, timeout time.Duration, req []byte, match func(wire.Event) (T, bool)) (T, error) {
	var zero T
	result := make(chan T, 1)

	token, err := s.Router.Subscribe(cat, func(ev wire.Event) {
		if v, ok := match(ev); ok {
			select {
			case result <- v:
			default:
			}
		}
	})
	if err != nil {
		return zero, err
	}
	defer s.Router.Unsubscribe(token)

	if err := s.Send(req); err != nil {
		return zero, err
	}

	select {
	case v := <-result:
		return v, nil
	case <-time.After(timeout):
		return zero, model.ErrHandshakeTimeout
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

// receiveLoop runs until stopReceive is closed, reading datagrams, only
// accepting those from the configured remote, and dispatching parsed events
// through the router. Parse errors never terminate the loop (spec §4.2).
func (s *Session) receiveLoop() {
	defer close(s.receiveDone)
	for {
		select {
		case <-s.stopReceive:
			return
		default:
		}

		s.mu.Lock()
		tr := s.tr
		s.mu.Unlock()
		if tr == nil {
			return
		}
		_ = tr.SetReadDeadline(time.Now().Add(500 * time.Millisecond))
		data, err := tr.Receive()
		if err != nil {
			if isTimeout(err) {
				continue
			}
			select {
			case <-s.stopReceive:
				return
			default:
			}
			logrus.Debugf("session: receive error: %s", err)
			continue
		}

		s.mu.Lock()
		s.lastMessageReceived = time.Now()
		s.failedPingCount = 0
		s.mu.Unlock()

		events := wire.ParseDatagram(data)
		for _, ev := range events {
			s.Router.Dispatch(ev)
		}
	}
}

func isTimeout(err error) bool {
	type timeout interface{ Timeout() bool }
	if te, ok := err.(timeout); ok {
		return te.Timeout()
	}
	if ne, ok := err.(net.Error); ok {
		return ne.Timeout()
	}
	return false
}

// keepAliveLoop enqueues a system-state request every KeepAlivePeriod if no
// command has been sent in KeepAliveIdle, per spec §4.2.
func (s *Session) keepAliveLoop() {
	defer s.timersDone.Done()
	ticker := time.NewTicker(s.Timeouts.KeepAlivePeriod)
	defer ticker.Stop()
	for {
		select {
		case <-s.stopTimers:
			return
		case <-ticker.C:
			s.mu.Lock()
			idle := time.Since(s.lastCommandSent)
			s.mu.Unlock()
			if idle > s.Timeouts.KeepAliveIdle {
				_ = s.Send(wire.BuildSystemStateGet())
			}
		}
	}
}

// watchdogLoop probes liveness when no message has been received recently,
// declaring the connection Lost after WatchdogMaxMiss consecutive failures.
func (s *Session) watchdogLoop() {
	defer s.timersDone.Done()
	ticker := time.NewTicker(s.Timeouts.WatchdogPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-s.stopTimers:
			return
		case <-ticker.C:
			s.mu.Lock()
			idle := time.Since(s.lastMessageReceived)
			host := s.host
			s.mu.Unlock()
			if idle <= s.Timeouts.WatchdogIdle {
				continue
			}
			if err := s.probe(host, s.Timeouts.LivenessProbe); err == nil {
				logrus.Debug("session: watchdog probe succeeded")
				s.mu.Lock()
				s.failedPingCount = 0
				s.mu.Unlock()
				continue
			}
			s.mu.Lock()
			s.failedPingCount++
			lost := s.failedPingCount >= s.Timeouts.WatchdogMaxMiss
			s.mu.Unlock()
			if lost {
				logrus.Warn("session: watchdog detected liveness loss, tearing down")
				s.setState(model.Lost)
				go func() {
					_ = s.teardown()
					s.Router.Dispatch(wire.EventConnectionStateChanged{
						State:  model.Lost,
						Reason: model.ErrLivenessLost,
					})
				}()
				return
			}
		}
	}
}

// Snapshot is a consistent read of the session's cached handshake state, for
// the client facade's getters and Dump().
type Snapshot struct {
	State        model.SessionState
	HardwareInfo model.HardwareInfo
	HasHWInfo    bool
	Capabilities model.Capabilities
	HasCaps      bool
	Z21Code      model.Z21Code
	HasZ21Code   bool
	Serial       model.SerialNumber
	HasSerial    bool
	SystemState  model.SystemState
	HasSysState  bool

	LastCommandSent     time.Time
	LastMessageReceived time.Time
	FailedPingCount     int
}

// Snapshot returns a consistent copy of the session's cached state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{
		State:               s.state,
		HardwareInfo:        s.hwInfo,
		HasHWInfo:           s.hasHWInfo,
		Capabilities:        s.capabilities,
		HasCaps:             s.hasCaps,
		Z21Code:             s.z21Code,
		HasZ21Code:          s.hasZ21Code,
		Serial:              s.serial,
		HasSerial:           s.hasSerial,
		SystemState:         s.systemState,
		HasSysState:         s.hasSysState,
		LastCommandSent:     s.lastCommandSent,
		LastMessageReceived: s.lastMessageReceived,
		FailedPingCount:     s.failedPingCount,
	}
}
