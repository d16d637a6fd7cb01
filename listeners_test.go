package listeners

import (
	"fmt"
	"net"
	"os"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// listenTCP4 opens a throwaway IPv4 listener and returns its port.
func listenTCP4(t *testing.T) (net.Listener, uint16) {
	t.Helper()
	ln, err := net.Listen("tcp4", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })
	return ln, uint16(ln.Addr().(*net.TCPAddr).Port)
}

// findOwn looks for a record on the given port and family attributed to
// this test process.
func findOwn(all []Listener, port uint16, v IPVersion) (Listener, bool) {
	for _, l := range all {
		if l.Port == port && l.Version == v && l.Process != nil && l.Process.PID == os.Getpid() {
			return l, true
		}
	}
	return Listener{}, false
}

func TestGetAllFindsOwnListener(t *testing.T) {
	_, port := listenTCP4(t)

	all, err := GetAll()
	require.NoError(t, err)
	require.NotEmpty(t, all)

	rec, ok := findOwn(all, port, V4)
	require.True(t, ok, "own listener on port %d missing from %d records", port, len(all))
	assert.Equal(t, "127.0.0.1", rec.Addr.String())
	assert.NotEmpty(t, rec.Process.Name)
}

func TestGetAllAfterClose(t *testing.T) {
	ln, port := listenTCP4(t)

	all, err := GetAll()
	require.NoError(t, err)
	_, ok := findOwn(all, port, V4)
	require.True(t, ok)

	require.NoError(t, ln.Close())

	all, err = GetAll()
	require.NoError(t, err)
	_, ok = findOwn(all, port, V4)
	assert.False(t, ok, "closed listener on port %d still reported", port)
}

func TestGetAllBothFamilies(t *testing.T) {
	// Grab an IPv4 port and try to take the same port on IPv6. Another
	// process may hold the v6 side, so retry on a few fresh ports
	// before giving up.
	var (
		l6   net.Listener
		port uint16
	)
	for i := 0; i < 5 && l6 == nil; i++ {
		l4, p := listenTCP4(t)
		v6, err := net.Listen("tcp6", fmt.Sprintf("[::1]:%d", p))
		if err != nil {
			l4.Close()
			continue
		}
		t.Cleanup(func() { v6.Close() })
		l6, port = v6, p
	}
	if l6 == nil {
		t.Skip("could not bind the same port on both families")
	}

	all, err := GetAll()
	require.NoError(t, err)

	_, ok4 := findOwn(all, port, V4)
	_, ok6 := findOwn(all, port, V6)
	assert.True(t, ok4, "v4 record on port %d missing", port)
	assert.True(t, ok6, "v6 record on port %d missing", port)
}

func TestGetAllConcurrent(t *testing.T) {
	_, port := listenTCP4(t)

	const scans = 4
	var (
		wg      sync.WaitGroup
		results [scans][]Listener
		errs    [scans]error
	)
	for i := 0; i < scans; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = GetAll()
		}(i)
	}
	wg.Wait()

	for i := 0; i < scans; i++ {
		require.NoError(t, errs[i], "scan %d", i)
		_, ok := findOwn(results[i], port, V4)
		assert.True(t, ok, "scan %d missed own listener", i)
	}
}

func TestGetAllInvariants(t *testing.T) {
	_, _ = listenTCP4(t)

	all, err := GetAll()
	require.NoError(t, err)

	seen := make(map[recordKey]struct{}, len(all))
	for _, l := range all {
		assert.NotZero(t, l.Port, "record %s has port 0", l)
		assert.True(t, l.Version == V4 || l.Version == V6, "record %s has bad version", l)
		assert.True(t, l.Addr.IsValid(), "record %s has invalid address", l)
		if l.Process != nil {
			assert.NotEmpty(t, l.Process.Name, "attributed record %s has empty name", l)
			assert.GreaterOrEqual(t, l.Process.PID, 0, "record %s has negative pid", l)
		}

		k := keyOf(l)
		_, dup := seen[k]
		assert.False(t, dup, "duplicate record %s", l)
		seen[k] = struct{}{}
	}
}

func TestGetProcessesByPort(t *testing.T) {
	_, port := listenTCP4(t)

	procs, err := GetProcessesByPort(port)
	require.NoError(t, err)

	var found bool
	for _, p := range procs {
		if p.PID == os.Getpid() {
			found = true
			assert.NotEmpty(t, p.Name)
		}
	}
	assert.True(t, found, "own process missing from port %d owners %v", port, procs)
}

func TestGetPortsByPID(t *testing.T) {
	_, port := listenTCP4(t)

	ports, err := GetPortsByPID(os.Getpid())
	require.NoError(t, err)
	assert.Contains(t, ports, port)
}

func TestGetPortsByProcessName(t *testing.T) {
	_, port := listenTCP4(t)

	// Resolve our own reported name first; the kernel may truncate it,
	// so the executable name is not a reliable key.
	all, err := GetAll()
	require.NoError(t, err)
	rec, ok := findOwn(all, port, V4)
	require.True(t, ok)

	ports, err := GetPortsByProcessName(rec.Process.Name)
	require.NoError(t, err)
	assert.Contains(t, ports, port)
}

func TestAppendRecordDeduplicates(t *testing.T) {
	l := Listener{Port: 80, Version: V4, Process: &Process{PID: 1, Name: "init"}}
	seen := make(map[recordKey]struct{})

	out := appendRecord(nil, seen, l)
	out = appendRecord(out, seen, l)
	require.Len(t, out, 1)

	// Same socket, different owner: both records survive.
	other := l
	other.Process = &Process{PID: 2, Name: "worker"}
	out = appendRecord(out, seen, other)
	assert.Len(t, out, 2)

	// Attributed and unattributed are distinct records too.
	bare := l
	bare.Process = nil
	out = appendRecord(out, seen, bare)
	assert.Len(t, out, 3)
}
