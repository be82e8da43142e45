// Package netx holds small network helpers.
package netx

import (
	"net"
)

// HostOf returns the host part of addr, so that limits keyed on it apply
// per client machine rather than per connection. Addresses without a port
// (unix sockets, in-memory listeners) are returned as they are.
func HostOf(addr net.Addr) string {
	if addr == nil {
		return ""
	}
	s := addr.String()
	host, _, err := net.SplitHostPort(s)
	if err != nil {
		return s
	}
	return host
}
