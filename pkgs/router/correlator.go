package router

import (
	"sync"

	"github.com/keskad/z21/pkgs/model"
)

// correlator implements the firmware-bug workaround documented in spec §4.4
// as a first-class component rather than buried inline logic: a targeted
// get_loco_info request triggers both LAN_X_GET_LOCO_INFO and
// LAN_GET_LOCOMODE, and the station's two responses must be stitched
// together into one LocoInfo event carrying the correct Mode.
//
// pending[addr] absent: no correlation in progress, loco-info events pass
// straight through. pending[addr] present with a nil pointer: a
// get_loco_info is outstanding and no loco-info response has arrived yet.
// pending[addr] present with a non-nil pointer: the loco-info response
// arrived and is held back, waiting for the paired loco-mode response.
type correlator struct {
	mu      sync.Mutex
	pending map[model.LocoAddr]*model.LocoInfo
}

func newCorrelator() *correlator {
	return &correlator{pending: make(map[model.LocoAddr]*model.LocoInfo)}
}

// markPending records that a get_loco_info(addr) round trip has started.
func (c *correlator) markPending(addr model.LocoAddr) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pending[addr] = nil
}

// onLocoInfo processes an inbound LAN_X_LOCO_INFO. If a correlation is in
// progress for this address, the info is stashed and emit is false; the
// paired loco-mode response completes the correlation later. Otherwise the
// info should be emitted immediately.
func (c *correlator) onLocoInfo(info model.LocoInfo) (out model.LocoInfo, emit bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, waiting := c.pending[info.Address]; waiting {
		cp := info
		c.pending[info.Address] = &cp
		return model.LocoInfo{}, false
	}
	return info, true
}

// onLocoMode processes an inbound LAN_GET_LOCOMODE response. It returns
// (completedInfo, emitInfo, emitModeInstead):
//   - emitInfo: the correlation completed; emit completedInfo as a LocoInfo
//     event (with Mode set) instead of a separate loco-mode event.
//   - neither flag set: the correlation is still waiting on the loco-info
//     response; nothing is emitted yet.
//   - emitModeInstead: no correlation was in progress; emit a plain
//     loco-mode event.
func (c *correlator) onLocoMode(lm model.LocoModeInfo) (out model.LocoInfo, emitInfo bool, emitModeInstead bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	info, waiting := c.pending[lm.Address]
	if !waiting {
		return model.LocoInfo{}, false, true
	}
	if info == nil {
		// loco-info hasn't arrived yet; leave the entry in place.
		return model.LocoInfo{}, false, false
	}

	completed := *info
	completed.Mode = lm.Mode
	completed.HasMode = true
	delete(c.pending, lm.Address)
	return completed, true, false
}
