// Package listeners reports which processes hold TCP sockets in the
// LISTEN state on the local machine, and on which address and port.
//
// The package reads kernel socket tables directly (procfs on Linux,
// proc_info on macOS, the IP helper API on Windows) without shelling
// out to external utilities. Each call takes a fresh snapshot; nothing
// is cached between calls and no ordering is guaranteed. On platforms
// other than Linux, macOS and Windows the package does not compile.
//
// Scans degrade rather than fail under reduced privileges: sockets
// whose owner cannot be determined are still reported, just without
// process attribution.
package listeners

import "net/netip"

// GetAll returns every TCP socket currently in the LISTEN state.
//
// A non-nil error means the kernel's socket or process table could not
// be read at all and nothing useful was observed. Per-socket trouble
// (a row that cannot be decoded, a process that exited mid-scan or is
// off-limits) never fails the scan: malformed rows are dropped and
// unattributable sockets come back with a nil Process.
func GetAll() ([]Listener, error) {
	return getAll()
}

// GetProcessesByPort returns the processes that hold a LISTEN socket
// on the given port, in either address family. Sockets on that port
// with no known owner are not represented.
func GetProcessesByPort(port uint16) ([]Process, error) {
	all, err := getAll()
	if err != nil {
		return nil, err
	}
	var procs []Process
	seen := make(map[Process]struct{})
	for _, l := range all {
		if l.Port != port || l.Process == nil {
			continue
		}
		if _, dup := seen[*l.Process]; dup {
			continue
		}
		seen[*l.Process] = struct{}{}
		procs = append(procs, *l.Process)
	}
	return procs, nil
}

// GetPortsByPID returns the ports the given process is listening on.
func GetPortsByPID(pid int) ([]uint16, error) {
	return ports(func(p Process) bool { return p.PID == pid })
}

// GetPortsByProcessName returns the ports every process with the given
// name is listening on.
func GetPortsByProcessName(name string) ([]uint16, error) {
	return ports(func(p Process) bool { return p.Name == name })
}

func ports(match func(Process) bool) ([]uint16, error) {
	all, err := getAll()
	if err != nil {
		return nil, err
	}
	var out []uint16
	seen := make(map[uint16]struct{})
	for _, l := range all {
		if l.Process == nil || !match(*l.Process) {
			continue
		}
		if _, dup := seen[l.Port]; dup {
			continue
		}
		seen[l.Port] = struct{}{}
		out = append(out, l.Port)
	}
	return out, nil
}

// recordKey is the full value identity of a record, used to collapse
// exact duplicates within a single scan (dup'd descriptors, fork
// inheritance of the same socket by one process).
type recordKey struct {
	addr    netip.Addr
	port    uint16
	version IPVersion
	pid     int
	name    string
}

func keyOf(l Listener) recordKey {
	k := recordKey{addr: l.Addr, port: l.Port, version: l.Version, pid: -1}
	if l.Process != nil {
		k.pid = l.Process.PID
		k.name = l.Process.Name
	}
	return k
}

// appendRecord adds l to out unless an identical record was already
// collected during this scan.
func appendRecord(out []Listener, seen map[recordKey]struct{}, l Listener) []Listener {
	k := keyOf(l)
	if _, dup := seen[k]; dup {
		return out
	}
	seen[k] = struct{}{}
	return append(out, l)
}
