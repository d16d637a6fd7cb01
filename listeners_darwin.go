//go:build darwin

package listeners

import (
	"errors"
	"fmt"
	"net/netip"
	"syscall"
	"unsafe"

	"golang.org/x/sys/unix"
)

// proc_info(2) call numbers and flavors, sys/proc_info.h. These back
// libproc's proc_pidinfo and proc_pidfdinfo without going through cgo.
const (
	procInfoCallPIDInfo   = 0x2
	procInfoCallPIDFDInfo = 0x3

	procPIDListFDs      = 1 // PROC_PIDLISTFDS
	procPIDFDSocketInfo = 3 // PROC_PIDFDSOCKETINFO

	fdTypeSocket = 2 // PROX_FDTYPE_SOCKET

	sockInfoTCP    = 2 // SOCKINFO_TCP
	tsiStateListen = 1 // TSI_S_LISTEN

	iniIPv4 = 0x1 // INI_IPV4
	iniIPv6 = 0x2 // INI_IPV6
)

var errTruncated = errors.New("truncated socket info")

// proc_fdinfo
type procFDInfo struct {
	FD   int32
	Type uint32
}

// proc_fileinfo
type procFileInfo struct {
	OpenFlags  uint32
	Status     uint32
	Offset     int64
	Type       int32
	GuardFlags uint32
}

// in_sockinfo. Addresses live in in4in6_addr unions: an IPv4 address
// occupies the last four bytes, an IPv6 address the full sixteen.
type inSockInfo struct {
	FPort  int32
	LPort  int32
	GenCnt uint64
	Flags  uint32
	Flow   uint32
	Vflag  uint8
	TTL    uint8
	_      [2]byte
	_      uint32
	FAddr  [16]byte
	LAddr  [16]byte
	V4TOS  uint8
	_      [3]byte
	V6     struct {
		HLim    uint8
		_       [3]byte
		Cksum   int32
		IfIndex uint16
		Hops    int16
	}
}

// tcp_sockinfo
type tcpSockInfo struct {
	Ini   inSockInfo
	State int32
	Timer [4]int32
	MSS   int32
	Flags uint32
	_     uint32
	TP    uint64
}

// socket_fdinfo. The trailing union is kept as raw bytes and decoded
// according to Kind. Field layout matches arm64 and amd64, the two
// LP64 darwin targets.
type socketFDInfo struct {
	PFI      procFileInfo
	Stat     [136]byte // vinfo_stat
	So       uint64
	PCB      uint64
	Type     int32
	Protocol int32
	Family   int32
	Options  int16
	Linger   int16
	State    int16
	QLen     int16
	IncQLen  int16
	QLimit   int16
	Timeo    int16
	Error    uint16
	OOBMark  uint32
	Rcv      [24]byte // sockbuf_info
	Snd      [24]byte // sockbuf_info
	Kind     int32
	_        uint32
	Proto    [528]byte
}

func getAll() ([]Listener, error) {
	procs, err := unix.SysctlKinfoProcSlice("kern.proc.all")
	if err != nil {
		return nil, fmt.Errorf("process table: %w", err)
	}

	var out []Listener
	seen := make(map[recordKey]struct{})

	for i := range procs {
		pid := int(procs[i].Proc.P_pid)
		if pid <= 0 {
			continue
		}
		name := commString(procs[i].Proc.P_comm)

		fds, err := pidFDs(pid)
		if err != nil {
			// Exited mid-scan, or off-limits without elevated rights.
			continue
		}
		for _, fd := range fds {
			if fd.Type != fdTypeSocket {
				continue
			}
			si, err := fdSocketInfo(pid, fd.FD)
			if err != nil {
				continue
			}
			l, ok := listenerFromSocket(si)
			if !ok {
				continue
			}
			if name != "" {
				l.Process = &Process{PID: pid, Name: name}
			}
			out = appendRecord(out, seen, l)
		}
	}
	return out, nil
}

// procInfo is the raw proc_info(2) syscall behind libproc.
func procInfo(call, pid, flavor int, arg uint64, buf unsafe.Pointer, size int) (int, error) {
	r0, _, errno := syscall.Syscall6(
		syscall.SYS_PROC_INFO,
		uintptr(call),
		uintptr(pid),
		uintptr(flavor),
		uintptr(arg),
		uintptr(buf),
		uintptr(size),
	)
	if errno != 0 {
		return 0, errno
	}
	return int(r0), nil
}

// pidFDs lists one process's open file descriptors.
func pidFDs(pid int) ([]procFDInfo, error) {
	fdSize := int(unsafe.Sizeof(procFDInfo{}))

	size, err := procInfo(procInfoCallPIDInfo, pid, procPIDListFDs, 0, nil, 0)
	if err != nil {
		return nil, err
	}
	if size <= 0 {
		return nil, nil
	}

	// Headroom for descriptors opened between the size query and the
	// fetch.
	n := size/fdSize + 32
	fds := make([]procFDInfo, n)
	got, err := procInfo(procInfoCallPIDInfo, pid, procPIDListFDs, 0, unsafe.Pointer(&fds[0]), n*fdSize)
	if err != nil {
		return nil, err
	}
	if got < 0 {
		got = 0
	}
	if c := got / fdSize; c < n {
		fds = fds[:c]
	}
	return fds, nil
}

// fdSocketInfo fetches the kernel's socket_fdinfo for one descriptor.
func fdSocketInfo(pid int, fd int32) (*socketFDInfo, error) {
	var si socketFDInfo
	size := int(unsafe.Sizeof(si))
	got, err := procInfo(procInfoCallPIDFDInfo, pid, procPIDFDSocketInfo, uint64(fd), unsafe.Pointer(&si), size)
	if err != nil {
		return nil, err
	}
	if got < size {
		return nil, errTruncated
	}
	return &si, nil
}

// listenerFromSocket keeps TCP sockets sitting in LISTEN and decodes
// their bound address by the kernel's vflag, not the address shape.
func listenerFromSocket(si *socketFDInfo) (Listener, bool) {
	if si.Kind != sockInfoTCP {
		return Listener{}, false
	}
	tcp := (*tcpSockInfo)(unsafe.Pointer(&si.Proto[0]))
	if tcp.State != tsiStateListen {
		return Listener{}, false
	}
	port := ntohs(uint32(tcp.Ini.LPort))
	if port == 0 {
		return Listener{}, false
	}

	switch {
	case tcp.Ini.Vflag&iniIPv4 != 0:
		var a [4]byte
		copy(a[:], tcp.Ini.LAddr[12:16])
		return Listener{Addr: netip.AddrFrom4(a), Port: port, Version: V4}, true
	case tcp.Ini.Vflag&iniIPv6 != 0:
		return Listener{Addr: netip.AddrFrom16(tcp.Ini.LAddr), Port: port, Version: V6}, true
	}
	return Listener{}, false
}

func commString(comm [17]byte) string {
	for i, b := range comm {
		if b == 0 {
			return string(comm[:i])
		}
	}
	return string(comm[:])
}
