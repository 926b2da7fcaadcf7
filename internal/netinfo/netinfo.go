// Package netinfo enumerates local IPv4 network adapters for the
// GET /api/network/adapters endpoint (spec.md §6), so the operator can pick
// a bind address for multi-NIC sACN emission without shelling out to `ip
// addr`.
package netinfo

import (
	gopsnet "github.com/shirou/gopsutil/v3/net"
)

// Adapter is one enumerable network interface with its bound IPv4 addresses.
type Adapter struct {
	Name      string   `json:"name"`
	Addresses []string `json:"addresses"`
	Up        bool     `json:"up"`
}

// List returns every interface gopsutil reports, filtered to those carrying
// at least one IPv4 address (loopback included; the operator may legitimately
// bind sACN to 127.0.0.1 during bench testing).
func List() ([]Adapter, error) {
	ifaces, err := gopsnet.Interfaces()
	if err != nil {
		return nil, err
	}
	out := make([]Adapter, 0, len(ifaces))
	for _, iface := range ifaces {
		var addrs []string
		for _, a := range iface.Addrs {
			if ip := parseIPv4(a.Addr); ip != "" {
				addrs = append(addrs, ip)
			}
		}
		if len(addrs) == 0 {
			continue
		}
		up := false
		for _, f := range iface.Flags {
			if f == "up" {
				up = true
				break
			}
		}
		out = append(out, Adapter{Name: iface.Name, Addresses: addrs, Up: up})
	}
	return out, nil
}

// parseIPv4 strips gopsutil's CIDR suffix ("192.168.1.5/24") and returns ""
// for non-IPv4 addresses.
func parseIPv4(addr string) string {
	for i, c := range addr {
		if c == '/' {
			addr = addr[:i]
			break
		}
	}
	dots := 0
	for _, c := range addr {
		if c == '.' {
			dots++
		}
		if c == ':' {
			return ""
		}
	}
	if dots != 3 {
		return ""
	}
	return addr
}
