// Package subscription implements the broadcast-flag refcounting rule: the
// first listener for a category turns its flag on and pushes
// LAN_SET_BROADCASTFLAGS, additional listeners only bump a counter, and the
// last listener leaving turns the flag back off and re-pushes the mask.
package subscription

import (
	"fmt"
	"sync"

	"github.com/keskad/z21/pkgs/model"
)

// requirement describes what it takes for a category to contribute its flag
// to the active mask: the bit itself, and an optional minimum firmware.
type requirement struct {
	flag        model.BroadcastFlag
	minFirmware *model.FirmwareVersion
}

func v(major, minor byte) *model.FirmwareVersion {
	return &model.FirmwareVersion{Major: major, Minor: minor}
}

// requirements mirrors LAN_SET_BROADCASTFLAGS's bit table. CategoryBasic has
// no bit of its own (flag 0): it is always implied while Ready and never
// contributes to the mask.
var requirements = map[model.EventCategory]requirement{
	model.CategoryBasic:             {flag: 0},
	model.CategoryRBus:              {flag: model.FlagRBus},
	model.CategoryRailComSubscribed: {flag: model.FlagRailComSubscribed},
	model.CategoryFastClock:         {flag: model.FlagFastClock},
	model.CategorySystemState:       {flag: model.FlagSystemState},
	model.CategoryAllLocoInfo:       {flag: model.FlagAllLocoInfo, minFirmware: v(1, 20)},
	model.CategoryCanBooster:        {flag: model.FlagCanBooster},
	model.CategoryAllRailCom:        {flag: model.FlagAllRailCom},
	model.CategoryLocoNet:           {flag: model.FlagLocoNet},
	model.CategoryLocoNetLocos:      {flag: model.FlagLocoNetLocos},
	model.CategoryLocoNetSwitches:   {flag: model.FlagLocoNetSwitches},
	model.CategoryLocoNetGBM:        {flag: model.FlagLocoNetGBM},
}

// Sender pushes the computed mask to the station. The session's
// wire.BuildSetBroadcastFlags + transport.Send pipeline implements it.
type Sender func(mask uint32) error

// Ledger is the refcounted subscription table for one session.
type Ledger struct {
	mu       sync.Mutex
	counts   map[model.EventCategory]int
	firmware model.FirmwareVersion
	send     Sender

	// OnRailComFirst/OnRailComLast, if set, fire synchronously (under the
	// ledger's lock released) when CategoryRailComSubscribed or
	// CategoryAllRailCom transitions 0->1 / 1->0, driving the router's
	// RailCom polling timer per spec §4.3.
	OnRailComFirst func()
	OnRailComLast  func()
}

// NewLedger constructs an empty ledger that pushes mask changes via send.
func NewLedger(send Sender) *Ledger {
	return &Ledger{counts: make(map[model.EventCategory]int), send: send}
}

// SetFirmware updates the guard-evaluation firmware version, typically once
// after the connect handshake's hardware-info step completes.
func (l *Ledger) SetFirmware(fw model.FirmwareVersion) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.firmware = fw
}

func (l *Ledger) guardSatisfied(req requirement) bool {
	if req.minFirmware == nil {
		return true
	}
	return l.firmware.AtLeast(req.minFirmware.Major, req.minFirmware.Minor)
}

// computeMaskLocked recomputes the active mask from categories with a
// positive refcount and a satisfied guard. Must be called with l.mu held.
func (l *Ledger) computeMaskLocked() uint32 {
	var mask uint32
	for cat, n := range l.counts {
		if n <= 0 {
			continue
		}
		req, ok := requirements[cat]
		if !ok || req.flag == 0 {
			continue
		}
		if !l.guardSatisfied(req) {
			continue
		}
		mask |= uint32(req.flag)
	}
	return mask
}

// ActiveMask reports the currently computed mask without sending anything.
func (l *Ledger) ActiveMask() uint32 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.computeMaskLocked()
}

// Subscribe increments the category's refcount. If this is the category's
// first listener and its guard is satisfied, the recomputed mask is pushed.
func (l *Ledger) Subscribe(cat model.EventCategory) error {
	req, known := requirements[cat]
	if !known {
		return fmt.Errorf("subscription: unknown event category %v", cat)
	}

	l.mu.Lock()
	wasZero := l.counts[cat] == 0
	l.counts[cat]++
	firstRailCom := wasZero && (cat == model.CategoryRailComSubscribed || cat == model.CategoryAllRailCom)
	needsSend := wasZero && req.flag != 0 && l.guardSatisfied(req)
	mask := l.computeMaskLocked()
	l.mu.Unlock()

	if firstRailCom && l.OnRailComFirst != nil {
		l.OnRailComFirst()
	}
	if needsSend {
		return l.send(mask)
	}
	return nil
}

// Unsubscribe decrements the category's refcount, floored at zero. If the
// count reaches zero, the recomputed mask is pushed (clearing that bit).
func (l *Ledger) Unsubscribe(cat model.EventCategory) error {
	req, known := requirements[cat]
	if !known {
		return fmt.Errorf("subscription: unknown event category %v", cat)
	}

	l.mu.Lock()
	if l.counts[cat] > 0 {
		l.counts[cat]--
	}
	becameZero := l.counts[cat] == 0
	lastRailCom := becameZero && (cat == model.CategoryRailComSubscribed || cat == model.CategoryAllRailCom)
	needsSend := becameZero && req.flag != 0
	mask := l.computeMaskLocked()
	l.mu.Unlock()

	if lastRailCom && l.OnRailComLast != nil {
		l.OnRailComLast()
	}
	if needsSend {
		return l.send(mask)
	}
	return nil
}

// Count reports the current listener count for cat, for tests and Dump().
func (l *Ledger) Count(cat model.EventCategory) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.counts[cat]
}
