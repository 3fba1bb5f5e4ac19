package network

import (
	"net"
	"os"
)

var loopback = net.IPv4(127, 0, 0, 1)

// HostIP returns the first non-loopback IPv4 address of this host, or
// 127.0.0.1 when none resolves.
func HostIP() net.IP {
	hostname, err := os.Hostname()
	if err != nil {
		return loopback
	}
	addrs, err := net.LookupIP(hostname)
	if err != nil {
		return loopback
	}
	for _, ip := range addrs {
		if ip.IsLoopback() {
			continue
		}
		if ip4 := ip.To4(); ip4 != nil {
			return ip4
		}
	}
	return loopback
}

// NodeName identifies this process in published events: hostname when
// available, otherwise the host IP.
func NodeName() string {
	if hostname, err := os.Hostname(); err == nil && hostname != "" {
		return hostname
	}
	return HostIP().String()
}
