//go:build linux

package listeners

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// LISTEN in the st column of /proc/net/tcp, see net/tcp_states.h.
const tcpListen = "0A"

func getAll() ([]Listener, error) {
	owners := socketOwners()

	var out []Listener
	seen := make(map[recordKey]struct{})

	tables := []struct {
		path string
		v6   bool
	}{
		{"/proc/net/tcp", false},
		{"/proc/net/tcp6", true},
	}
	for _, t := range tables {
		var err error
		out, err = appendFromTable(out, seen, t.path, t.v6, owners)
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

// appendFromTable parses one /proc/net table and appends its LISTEN
// rows. The path is a parameter so tests can feed synthetic tables.
func appendFromTable(out []Listener, seen map[recordKey]struct{}, path string, v6 bool, owners map[uint64]Process) ([]Listener, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	defer f.Close()

	version := V4
	if v6 {
		version = V6
	}

	scanner := bufio.NewScanner(f)
	scanner.Scan() // skip header

	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 10 {
			continue
		}
		if fields[3] != tcpListen {
			continue
		}

		addr, port, ok := parseProcAddr(fields[1], v6)
		if !ok || port == 0 {
			continue
		}
		inode, err := strconv.ParseUint(fields[9], 10, 64)
		if err != nil {
			continue
		}

		l := Listener{Addr: addr, Port: port, Version: version}
		// Inode 0 marks sockets in transitional states with no inode
		// yet; they stay unattributed but are still real listeners.
		if owner, ok := owners[inode]; ok {
			p := owner
			l.Process = &p
		}
		out = appendRecord(out, seen, l)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return out, nil
}

// socketOwners walks /proc/<pid>/fd and maps socket inodes to their
// owning process. The first process found holding an inode keeps it.
// Processes we cannot inspect (exited, or another user's under
// hidepid) are skipped; their sockets surface unattributed.
func socketOwners() map[uint64]Process {
	owners := make(map[uint64]Process)

	procs, err := os.ReadDir("/proc")
	if err != nil {
		return owners
	}
	for _, d := range procs {
		if !d.IsDir() {
			continue
		}
		pid, err := strconv.Atoi(d.Name())
		if err != nil {
			continue
		}

		fdDir := "/proc/" + d.Name() + "/fd"
		fds, err := os.ReadDir(fdDir)
		if err != nil {
			continue
		}

		var name string
		for _, fd := range fds {
			link, err := os.Readlink(fdDir + "/" + fd.Name())
			if err != nil {
				continue
			}
			inode, ok := socketInode(link)
			if !ok {
				continue
			}
			if _, claimed := owners[inode]; claimed {
				continue
			}
			if name == "" {
				// No usable name means no attribution at all;
				// a bare PID would be a partial record.
				if name, ok = procName(pid); !ok {
					break
				}
			}
			owners[inode] = Process{PID: pid, Name: name}
		}
	}
	return owners
}

// socketInode extracts N from an fd symlink target "socket:[N]".
func socketInode(link string) (uint64, bool) {
	rest, ok := strings.CutPrefix(link, "socket:[")
	if !ok {
		return 0, false
	}
	rest, ok = strings.CutSuffix(rest, "]")
	if !ok {
		return 0, false
	}
	n, err := strconv.ParseUint(rest, 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

// procName resolves a process name from /proc/<pid>/comm, falling back
// to the first cmdline argument for processes that expose no comm.
func procName(pid int) (string, bool) {
	b, err := os.ReadFile("/proc/" + strconv.Itoa(pid) + "/comm")
	if err == nil {
		if name := strings.TrimSpace(string(b)); name != "" {
			return name, true
		}
	}

	b, err = os.ReadFile("/proc/" + strconv.Itoa(pid) + "/cmdline")
	if err != nil {
		return "", false
	}
	arg0, _, _ := strings.Cut(string(b), "\x00")
	if arg0 == "" {
		return "", false
	}
	return filepath.Base(arg0), true
}
