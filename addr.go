package listeners

import (
	"encoding/hex"
	"net/netip"
	"strconv"
	"strings"
)

// parseProcAddr decodes the local_address column of a /proc/net/tcp
// row ("HEXADDR:HEXPORT"). The kernel writes the address as 32-bit
// words in host byte order, so bytes are reversed within each 4-byte
// group: one group for IPv4, four for IPv6. The port is plain
// big-endian hex. Returns false for anything structurally malformed.
func parseProcAddr(raw string, v6 bool) (netip.Addr, uint16, bool) {
	ipHex, portHex, found := strings.Cut(raw, ":")
	if !found {
		return netip.Addr{}, 0, false
	}

	port, err := strconv.ParseUint(portHex, 16, 16)
	if err != nil {
		return netip.Addr{}, 0, false
	}

	b, err := hex.DecodeString(ipHex)
	if err != nil {
		return netip.Addr{}, 0, false
	}

	if v6 {
		if len(b) != 16 {
			return netip.Addr{}, 0, false
		}
		var a [16]byte
		for i := 0; i < 4; i++ {
			a[i*4+0] = b[i*4+3]
			a[i*4+1] = b[i*4+2]
			a[i*4+2] = b[i*4+1]
			a[i*4+3] = b[i*4+0]
		}
		return netip.AddrFrom16(a), uint16(port), true
	}

	if len(b) != 4 {
		return netip.Addr{}, 0, false
	}
	return netip.AddrFrom4([4]byte{b[3], b[2], b[1], b[0]}), uint16(port), true
}

// ntohs converts a 16-bit port stored in network byte order in the low
// half of a 32-bit field, the encoding both the Windows TCP tables and
// the Darwin per-fd socket info use.
func ntohs(n uint32) uint16 {
	v := uint16(n)
	return v>>8 | v<<8
}

// addrFromV4Word decodes an IPv4 address held in a 32-bit field whose
// in-memory byte order is the network order, as read from a
// little-endian host.
func addrFromV4Word(w uint32) netip.Addr {
	return netip.AddrFrom4([4]byte{byte(w), byte(w >> 8), byte(w >> 16), byte(w >> 24)})
}
