package router

import (
	"sync"
	"time"

	"github.com/keskad/z21/pkgs/model"
)

const (
	railComPollInitialDelay = 1 * time.Second
	railComPollPeriod       = 2 * time.Second
)

// railComCycle tracks the round-robin RailCom polling loop of spec §4.4: a
// periodic tick starts a new cycle; each previously-unseen address that
// reports within the cycle triggers exactly one follow-up
// LAN_RAILCOM_GETDATA_NEXT, and re-seeing an address (the station wrapped
// back to the start of its own internal list) ends the cycle without
// sending another request.
type railComCycle struct {
	mu     sync.Mutex
	active bool
	seen   map[model.LocoAddr]bool
	stop   chan struct{}
}

func newRailComCycle() *railComCycle {
	return &railComCycle{seen: make(map[model.LocoAddr]bool)}
}

// start begins a new polling cycle, spawning the ticker goroutine, which
// clears the per-cycle seen set and calls sendNext after the initial delay
// and then every period. Follow-up requests for newly-seen addresses are
// sent by the router, not through sendNext.
func (c *railComCycle) start(sendNext func()) {
	c.mu.Lock()
	if c.active {
		c.mu.Unlock()
		return
	}
	c.active = true
	c.seen = make(map[model.LocoAddr]bool)
	stop := make(chan struct{})
	c.stop = stop
	c.mu.Unlock()

	go func() {
		timer := time.NewTimer(railComPollInitialDelay)
		defer timer.Stop()
		for {
			select {
			case <-stop:
				return
			case <-timer.C:
				c.mu.Lock()
				c.seen = make(map[model.LocoAddr]bool)
				c.mu.Unlock()
				sendNext()
				timer.Reset(railComPollPeriod)
			}
		}
	}()
}

// stopPolling ends the current polling cycle and its ticker goroutine.
func (c *railComCycle) stopPolling() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.active {
		return
	}
	c.active = false
	close(c.stop)
	c.stop = nil
}

// onFrame records addr within the current cycle. It reports whether a
// follow-up LAN_RAILCOM_GETDATA_NEXT should be sent: once per address per
// cycle, and only while polling is active.
func (c *railComCycle) onFrame(addr model.LocoAddr) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.active || c.seen[addr] {
		return false
	}
	c.seen[addr] = true
	return true
}
