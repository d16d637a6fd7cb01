package listeners

import (
	"fmt"
	"net/netip"
)

// IPVersion tells which address family a listening socket was found in.
// It reflects the table the record came from, not the shape of the
// address: an IPv4-mapped address read from the IPv6 table stays V6.
type IPVersion uint8

const (
	V4 IPVersion = 4
	V6 IPVersion = 6
)

func (v IPVersion) String() string {
	switch v {
	case V4:
		return "v4"
	case V6:
		return "v6"
	}
	return fmt.Sprintf("IPVersion(%d)", uint8(v))
}

// MarshalText implements encoding.TextMarshaler so records serialize
// with "v4"/"v6" instead of raw numbers.
func (v IPVersion) MarshalText() ([]byte, error) {
	switch v {
	case V4, V6:
		return []byte(v.String()), nil
	}
	return nil, fmt.Errorf("invalid ip version %d", uint8(v))
}

func (v *IPVersion) UnmarshalText(text []byte) error {
	switch string(text) {
	case "v4":
		*v = V4
	case "v6":
		*v = V6
	default:
		return fmt.Errorf("invalid ip version %q", text)
	}
	return nil
}

// Process identifies the owner of a listening socket. Both fields are
// always populated together; a Listener that could not be attributed
// carries no Process at all rather than a partial one.
type Process struct {
	PID  int    `json:"pid"`
	Name string `json:"name"`
}

func (p Process) String() string {
	return fmt.Sprintf("%s (pid %d)", p.Name, p.PID)
}

// Listener is one TCP socket observed in the LISTEN state. It is a
// value snapshot: nothing links it to records from other calls, and
// the socket or process may be gone by the time the caller reads it.
type Listener struct {
	// Addr is the bound local address, possibly a wildcard
	// (0.0.0.0 or ::).
	Addr netip.Addr `json:"address"`
	// Port is the bound local port. Never zero: a socket cannot
	// listen before the kernel assigns its port.
	Port uint16 `json:"port"`
	// Version is the address family of the source table.
	Version IPVersion `json:"ip_version"`
	// Process is the owning process, or nil when the scan could not
	// attribute the socket (insufficient privileges, process exited
	// mid-scan, or kernel-owned sockets).
	Process *Process `json:"process,omitempty"`
}

// AddrPort returns the bound address and port as a single value.
func (l Listener) AddrPort() netip.AddrPort {
	return netip.AddrPortFrom(l.Addr, l.Port)
}

func (l Listener) String() string {
	if l.Process != nil {
		return fmt.Sprintf("%s [%s] %s", l.AddrPort(), l.Version, l.Process)
	}
	return fmt.Sprintf("%s [%s]", l.AddrPort(), l.Version)
}
