// Package router dispatches parsed wire frames to subscribers, applying the
// two protocol workarounds documented in the specification: the loco-info /
// loco-mode firmware-bug correlator and the RailCom round-robin polling
// cycle. It never touches the socket directly; RailCom "next" requests are
// pushed out through an injected sender, keeping router tests free of any
// transport.
package router

import (
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/keskad/z21/pkgs/model"
	"github.com/keskad/z21/pkgs/subscription"
	"github.com/keskad/z21/pkgs/wire"
)

// Handler receives one dispatched event.
type Handler func(wire.Event)

type subscriberEntry struct {
	token   string
	handler Handler
}

// Router fans out wire.Event values to category subscribers and owns the
// correlator/RailCom-cycle state machines that sit in that path.
type Router struct {
	mu       sync.Mutex
	handlers map[model.EventCategory][]subscriberEntry
	tokenCat map[string]model.EventCategory

	correlator *correlator
	railcom    *railComCycle
	ledger     *subscription.Ledger

	sendRailComNext func() error
}

// New constructs a Router bound to ledger (for refcount-driven subscribe
// side effects) and sendRailComNext (the session's hook for pushing
// LAN_RAILCOM_GETDATA_NEXT onto the wire).
func New(ledger *subscription.Ledger, sendRailComNext func() error) *Router {
	r := &Router{
		handlers:        make(map[model.EventCategory][]subscriberEntry),
		tokenCat:        make(map[string]model.EventCategory),
		correlator:      newCorrelator(),
		railcom:         newRailComCycle(),
		ledger:          ledger,
		sendRailComNext: sendRailComNext,
	}
	ledger.OnRailComFirst = r.startRailComPolling
	ledger.OnRailComLast = r.railcom.stopPolling
	return r
}

func (r *Router) startRailComPolling() {
	r.railcom.start(func() {
		if r.sendRailComNext != nil {
			_ = r.sendRailComNext()
		}
	})
}

// Subscribe registers handler for cat, bumping the subscription ledger's
// refcount (which may push LAN_SET_BROADCASTFLAGS). It returns an opaque
// token for Unsubscribe.
func (r *Router) Subscribe(cat model.EventCategory, handler Handler) (string, error) {
	token := uuid.NewString()

	r.mu.Lock()
	r.handlers[cat] = append(r.handlers[cat], subscriberEntry{token: token, handler: handler})
	r.tokenCat[token] = cat
	r.mu.Unlock()

	if err := r.ledger.Subscribe(cat); err != nil {
		r.mu.Lock()
		r.removeLocked(cat, token)
		r.mu.Unlock()
		return "", fmt.Errorf("router: subscribe failed: %w", err)
	}
	return token, nil
}

// Unsubscribe removes the handler registered under token.
func (r *Router) Unsubscribe(token string) error {
	r.mu.Lock()
	cat, ok := r.tokenCat[token]
	if !ok {
		r.mu.Unlock()
		return fmt.Errorf("router: unknown subscription token %q", token)
	}
	r.removeLocked(cat, token)
	r.mu.Unlock()

	return r.ledger.Unsubscribe(cat)
}

func (r *Router) removeLocked(cat model.EventCategory, token string) {
	delete(r.tokenCat, token)
	entries := r.handlers[cat]
	for i, e := range entries {
		if e.token == token {
			r.handlers[cat] = append(entries[:i], entries[i+1:]...)
			break
		}
	}
}

// MarkLocoInfoPending records that a targeted get_loco_info(addr) round
// trip has started, so the next loco-info/loco-mode pair for addr is
// correlated into one event instead of two.
func (r *Router) MarkLocoInfoPending(addr model.LocoAddr) {
	r.correlator.markPending(addr)
}

// Dispatch routes one parsed event to its category's subscribers, applying
// the correlator and RailCom cycle along the way.
func (r *Router) Dispatch(ev wire.Event) {
	switch e := ev.(type) {
	case wire.EventLocoInfo:
		if info, emit := r.correlator.onLocoInfo(model.LocoInfo(e)); emit {
			r.emit(model.CategoryAllLocoInfo, wire.EventLocoInfo(info))
		}

	case wire.EventLocoMode:
		info, emitInfo, emitMode := r.correlator.onLocoMode(model.LocoModeInfo(e))
		switch {
		case emitInfo:
			r.emit(model.CategoryAllLocoInfo, wire.EventLocoInfo(info))
		case emitMode:
			r.emit(model.CategoryBasic, e)
		}

	case wire.EventRailComData:
		addr := model.LocoAddr(e.LocoAddress)
		if r.railcom.onFrame(addr) && r.sendRailComNext != nil {
			_ = r.sendRailComNext()
		}
		r.emit(model.CategoryAllRailCom, e)

	case wire.EventSystemState:
		r.emit(model.CategorySystemState, e)

	case wire.EventRBusData:
		r.emit(model.CategoryRBus, e)

	default:
		r.emit(model.CategoryBasic, ev)
	}
}

// emit copies the subscriber slice for cat under lock, then invokes each
// handler outside the lock so a slow/blocking handler cannot stall
// Subscribe/Unsubscribe calls from other goroutines.
func (r *Router) emit(cat model.EventCategory, ev wire.Event) {
	r.mu.Lock()
	entries := append([]subscriberEntry(nil), r.handlers[cat]...)
	r.mu.Unlock()

	for _, e := range entries {
		e.handler(ev)
	}
}
