package listeners

import (
	"net/netip"
	"testing"
)

func TestParseProcAddrV4(t *testing.T) {
	tests := []struct {
		raw  string
		addr string
		port uint16
	}{
		{"0100007F:1F90", "127.0.0.1", 8080},
		{"00000000:0050", "0.0.0.0", 80},
		{"0101A8C0:01BB", "192.168.1.1", 443},
		{"FFFFFFFF:FFFF", "255.255.255.255", 65535},
	}
	for _, tt := range tests {
		addr, port, ok := parseProcAddr(tt.raw, false)
		if !ok {
			t.Errorf("parseProcAddr(%q) not ok", tt.raw)
			continue
		}
		if want := netip.MustParseAddr(tt.addr); addr != want || port != tt.port {
			t.Errorf("parseProcAddr(%q) = %v:%d, want %v:%d", tt.raw, addr, port, want, tt.port)
		}
	}
}

func TestParseProcAddrV6(t *testing.T) {
	tests := []struct {
		raw  string
		addr string
		port uint16
	}{
		// The kernel writes IPv6 addresses as four 32-bit words in
		// host byte order, so ::1 comes out as ...01000000.
		{"00000000000000000000000001000000:0016", "::1", 22},
		{"00000000000000000000000000000000:1F90", "::", 8080},
		{"0000000000000000FFFF00000100007F:1F90", "::ffff:127.0.0.1", 8080},
		{"B80D0120000000000000000001000000:0050", "2001:db8::1", 80},
	}
	for _, tt := range tests {
		addr, port, ok := parseProcAddr(tt.raw, true)
		if !ok {
			t.Errorf("parseProcAddr(%q) not ok", tt.raw)
			continue
		}
		if want := netip.MustParseAddr(tt.addr); addr != want || port != tt.port {
			t.Errorf("parseProcAddr(%q) = %v:%d, want %v:%d", tt.raw, addr, port, want, tt.port)
		}
	}
}

func TestParseProcAddrMalformed(t *testing.T) {
	tests := []struct {
		raw string
		v6  bool
	}{
		{"", false},
		{"0100007F", false},          // no port separator
		{"0100007F1F90", false},      // no port separator
		{"XYZ:0050", false},          // bad address hex
		{"0100007F:GG", false},       // bad port hex
		{"0100007F:FFFFF", false},    // port out of range
		{"0100007F00:1F90", false},   // five bytes for v4
		{"0100007F:1F90", true},      // four bytes for v6
		{"00000000000000000000000001000000:0016", false}, // sixteen bytes for v4
	}
	for _, tt := range tests {
		if _, _, ok := parseProcAddr(tt.raw, tt.v6); ok {
			t.Errorf("parseProcAddr(%q, v6=%v) accepted malformed input", tt.raw, tt.v6)
		}
	}
}

func TestNtohs(t *testing.T) {
	tests := []struct {
		in   uint32
		want uint16
	}{
		{0x901F, 8080},
		{0x5000, 80},
		{0xBB01, 443},
		{0x0000, 0},
		{0xFFFF, 65535},
		// High bits outside the port half are ignored.
		{0xDEAD5000, 80},
	}
	for _, tt := range tests {
		if got := ntohs(tt.in); got != tt.want {
			t.Errorf("ntohs(%#x) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestAddrFromV4Word(t *testing.T) {
	tests := []struct {
		in   uint32
		want string
	}{
		{0x0100007F, "127.0.0.1"},
		{0x00000000, "0.0.0.0"},
		{0x0101A8C0, "192.168.1.1"},
	}
	for _, tt := range tests {
		if got := addrFromV4Word(tt.in); got != netip.MustParseAddr(tt.want) {
			t.Errorf("addrFromV4Word(%#x) = %v, want %s", tt.in, got, tt.want)
		}
	}
}
