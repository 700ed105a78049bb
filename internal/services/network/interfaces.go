// Package network enumerates broadcast-capable interfaces so a user can
// pick where Art-Net packets should go.
package network

import (
	"fmt"
	"net"
	"strings"
)

// BroadcastOption is one candidate Art-Net broadcast destination.
type BroadcastOption struct {
	Interface string `json:"interface"`
	Address   string `json:"address"`
	Broadcast string `json:"broadcast"`
	Kind      string `json:"kind"` // ethernet, wifi, other, localhost, global
}

// interfaceKind guesses the interface type from its name. Good enough for
// grouping the options; the user picks the final address anyway.
func interfaceKind(name string) string {
	n := strings.ToLower(name)
	switch {
	case strings.HasPrefix(n, "wlan"), strings.HasPrefix(n, "wl"),
		strings.Contains(n, "wifi"), strings.Contains(n, "wireless"):
		return "wifi"
	case strings.HasPrefix(n, "eth"), strings.HasPrefix(n, "en"):
		return "ethernet"
	}
	return "other"
}

// broadcastAddr computes the IPv4 directed broadcast for an address.
func broadcastAddr(ip net.IP, mask net.IPMask) net.IP {
	ip4 := ip.To4()
	if ip4 == nil {
		return nil
	}
	if len(mask) == 16 {
		mask = mask[12:16]
	}
	if len(mask) != 4 {
		return nil
	}
	out := make(net.IP, 4)
	for i := 0; i < 4; i++ {
		out[i] = ip4[i] | ^mask[i]
	}
	return out
}

// BroadcastOptions lists the usable broadcast destinations: one per up,
// non-loopback IPv4 interface (ethernet first, then wifi, then the rest),
// plus localhost and the global broadcast.
func BroadcastOptions() ([]BroadcastOption, error) {
	interfaces, err := net.Interfaces()
	if err != nil {
		return nil, fmt.Errorf("list network interfaces: %w", err)
	}

	grouped := map[string][]BroadcastOption{}
	for _, iface := range interfaces {
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagLoopback != 0 {
			continue
		}
		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}
		for _, addr := range addrs {
			ipNet, ok := addr.(*net.IPNet)
			if !ok {
				continue
			}
			ip4 := ipNet.IP.To4()
			if ip4 == nil {
				continue
			}
			bcast := broadcastAddr(ip4, ipNet.Mask)
			if bcast == nil || bcast.String() == ip4.String() {
				continue
			}
			kind := interfaceKind(iface.Name)
			grouped[kind] = append(grouped[kind], BroadcastOption{
				Interface: iface.Name,
				Address:   ip4.String(),
				Broadcast: bcast.String(),
				Kind:      kind,
			})
		}
	}

	options := append(grouped["ethernet"], grouped["wifi"]...)
	options = append(options, grouped["other"]...)
	options = append(options,
		BroadcastOption{Interface: "lo", Address: "127.0.0.1", Broadcast: "127.0.0.1", Kind: "localhost"},
		BroadcastOption{Interface: "", Address: "0.0.0.0", Broadcast: "255.255.255.255", Kind: "global"},
	)
	return options, nil
}
