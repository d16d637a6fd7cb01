//go:build windows

package listeners

import (
	"errors"
	"fmt"
	"net/netip"
	"syscall"
	"unsafe"

	"golang.org/x/sys/windows"
)

var (
	iphlpapi                = windows.NewLazySystemDLL("iphlpapi.dll")
	procGetExtendedTcpTable = iphlpapi.NewProc("GetExtendedTcpTable")
)

const (
	afINET  = 2
	afINET6 = 23

	// TCP_TABLE_OWNER_PID_ALL
	tcpTableOwnerPIDAll = 5
	// MIB_TCP_STATE_LISTEN
	tcpStateListen = 2

	// The table can grow between the size query and the fetch while
	// connections churn, so the fetch is retried a bounded number of
	// times.
	maxTableRetries = 100
)

// MIB_TCPROW_OWNER_PID, iphlpapi.h.
type mibTCPRowOwnerPID struct {
	State      uint32
	LocalAddr  uint32
	LocalPort  uint32
	RemoteAddr uint32
	RemotePort uint32
	OwningPID  uint32
}

// MIB_TCP6ROW_OWNER_PID, iphlpapi.h. Unlike the v4 row, the state
// field sits near the end.
type mibTCP6RowOwnerPID struct {
	LocalAddr     [16]byte
	LocalScopeID  uint32
	LocalPort     uint32
	RemoteAddr    [16]byte
	RemoteScopeID uint32
	RemotePort    uint32
	State         uint32
	OwningPID     uint32
}

func getAll() ([]Listener, error) {
	names := processNames()

	var out []Listener
	seen := make(map[recordKey]struct{})

	buf, err := fetchTCPTable(afINET)
	if err != nil {
		return nil, fmt.Errorf("tcp table (AF_INET): %w", err)
	}
	out = appendV4Rows(out, seen, buf, names)

	buf, err = fetchTCPTable(afINET6)
	if err != nil {
		return nil, fmt.Errorf("tcp table (AF_INET6): %w", err)
	}
	out = appendV6Rows(out, seen, buf, names)

	return out, nil
}

// fetchTCPTable returns a raw MIB_TCPTABLE_OWNER_PID buffer for one
// address family: a uint32 row count followed by the rows.
func fetchTCPTable(family uint32) ([]byte, error) {
	var size uint32
	for i := 0; i < maxTableRetries; i++ {
		var buf []byte
		var p uintptr
		if size > 0 {
			buf = make([]byte, size)
			p = uintptr(unsafe.Pointer(&buf[0]))
		}
		r0, _, _ := procGetExtendedTcpTable.Call(
			p,
			uintptr(unsafe.Pointer(&size)),
			0, // unsorted
			uintptr(family),
			tcpTableOwnerPIDAll,
			0,
		)
		errno := syscall.Errno(r0)
		switch {
		case errno == windows.ERROR_INSUFFICIENT_BUFFER:
			// size now holds the required length
		case errno != 0:
			return nil, errno
		case len(buf) > 0:
			return buf, nil
		}
	}
	return nil, errors.New("table size kept changing")
}

func appendV4Rows(out []Listener, seen map[recordKey]struct{}, buf []byte, names map[uint32]string) []Listener {
	rowSize := int(unsafe.Sizeof(mibTCPRowOwnerPID{}))
	n := tableRows(buf, rowSize)
	if n == 0 {
		return out
	}
	rows := unsafe.Slice((*mibTCPRowOwnerPID)(unsafe.Pointer(&buf[4])), n)
	for i := range rows {
		if l, ok := listenerFromRow4(&rows[i], names); ok {
			out = appendRecord(out, seen, l)
		}
	}
	return out
}

func appendV6Rows(out []Listener, seen map[recordKey]struct{}, buf []byte, names map[uint32]string) []Listener {
	rowSize := int(unsafe.Sizeof(mibTCP6RowOwnerPID{}))
	n := tableRows(buf, rowSize)
	if n == 0 {
		return out
	}
	rows := unsafe.Slice((*mibTCP6RowOwnerPID)(unsafe.Pointer(&buf[4])), n)
	for i := range rows {
		if l, ok := listenerFromRow6(&rows[i], names); ok {
			out = appendRecord(out, seen, l)
		}
	}
	return out
}

// tableRows reads the dwNumEntries header, bounded by what the buffer
// can actually hold.
func tableRows(buf []byte, rowSize int) int {
	if len(buf) < 4 {
		return 0
	}
	n := int(*(*uint32)(unsafe.Pointer(&buf[0])))
	if max := (len(buf) - 4) / rowSize; n > max {
		n = max
	}
	return n
}

func listenerFromRow4(row *mibTCPRowOwnerPID, names map[uint32]string) (Listener, bool) {
	if row.State != tcpStateListen {
		return Listener{}, false
	}
	port := ntohs(row.LocalPort)
	if port == 0 {
		return Listener{}, false
	}
	l := Listener{Addr: addrFromV4Word(row.LocalAddr), Port: port, Version: V4}
	attachOwner(&l, row.OwningPID, names)
	return l, true
}

func listenerFromRow6(row *mibTCP6RowOwnerPID, names map[uint32]string) (Listener, bool) {
	if row.State != tcpStateListen {
		return Listener{}, false
	}
	port := ntohs(row.LocalPort)
	if port == 0 {
		return Listener{}, false
	}
	l := Listener{Addr: netip.AddrFrom16(row.LocalAddr), Port: port, Version: V6}
	attachOwner(&l, row.OwningPID, names)
	return l, true
}

// attachOwner joins a table row with the process snapshot. A PID whose
// name never resolves stays unattributed rather than half-filled.
func attachOwner(l *Listener, pid uint32, names map[uint32]string) {
	if name, ok := names[pid]; ok && name != "" {
		l.Process = &Process{PID: int(pid), Name: name}
	}
}

// processNames snapshots the system process list. Failure is not
// fatal: the scan proceeds and every record surfaces unattributed.
func processNames() map[uint32]string {
	snap, err := windows.CreateToolhelp32Snapshot(windows.TH32CS_SNAPPROCESS, 0)
	if err != nil {
		return nil
	}
	defer windows.CloseHandle(snap)

	names := make(map[uint32]string)
	var entry windows.ProcessEntry32
	entry.Size = uint32(unsafe.Sizeof(entry))
	for err := windows.Process32First(snap, &entry); err == nil; err = windows.Process32Next(snap, &entry) {
		names[entry.ProcessID] = windows.UTF16ToString(entry.ExeFile[:])
	}
	return names
}
