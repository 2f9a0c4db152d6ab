// Package discovery implements the broadcast probe for Z21 devices on the
// local subnet (spec §4.5): send LAN_GET_HWINFO to the broadcast address and
// collect hardware-info responses, deduplicated by source IP, within a
// timeout.
package discovery

import (
	"fmt"
	"net"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/keskad/z21/pkgs/model"
	"github.com/keskad/z21/pkgs/session"
	"github.com/keskad/z21/pkgs/wire"
)

// Found is one discovered command station.
type Found struct {
	IP           string
	HardwareInfo model.HardwareInfo
}

const broadcastAddr = "255.255.255.255"

// Query broadcasts LAN_GET_HWINFO and collects responses for up to timeout.
// It is a precondition violation (spec §7) to call this while any session
// owned by the caller is connected; Query itself has no way to check that,
// so callers must enforce it (pkgs/client does, via model.ErrPrecondition).
func Query(timeout time.Duration) ([]Found, error) {
	conn, err := net.ListenUDP("udp4", &net.UDPAddr{Port: 0})
	if err != nil {
		return nil, fmt.Errorf("discovery: listen failed: %w", err)
	}
	defer conn.Close()

	if err := setBroadcast(conn); err != nil {
		logrus.Warnf("discovery: could not enable broadcast: %s", err)
	}

	dst := &net.UDPAddr{IP: net.ParseIP(broadcastAddr), Port: int(session.DefaultPort)}
	if _, err := conn.WriteTo(wire.BuildGetHWInfo(), dst); err != nil {
		return nil, fmt.Errorf("discovery: broadcast send failed: %w", err)
	}

	deadline := time.Now().Add(timeout)
	seen := make(map[string]bool)
	var found []Found

	buf := make([]byte, 1500)
	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			break
		}
		_ = conn.SetReadDeadline(time.Now().Add(remaining))
		n, addr, err := conn.ReadFrom(buf)
		if err != nil {
			break
		}
		frame := buf[:n]
		if len(frame) < 8 {
			continue
		}
		header := uint16(frame[2]) | uint16(frame[3])<<8
		if header != wire.HeaderGetHWInfo {
			continue
		}
		events := wire.ParseDatagram(frame)
		for _, ev := range events {
			hw, ok := ev.(wire.EventHardwareInfo)
			if !ok {
				continue
			}
			ip := hostOf(addr)
			if seen[ip] {
				continue
			}
			seen[ip] = true
			found = append(found, Found{IP: ip, HardwareInfo: model.HardwareInfo(hw)})
			logrus.Debugf("discovery: found %s at %s", model.HardwareType(hw.Type), ip)
		}
	}
	return found, nil
}

func hostOf(addr net.Addr) string {
	if udp, ok := addr.(*net.UDPAddr); ok {
		return udp.IP.String()
	}
	host, _, err := net.SplitHostPort(addr.String())
	if err != nil {
		return addr.String()
	}
	return host
}
