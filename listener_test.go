package listeners

import (
	"encoding/json"
	"net/netip"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIPVersionString(t *testing.T) {
	assert.Equal(t, "v4", V4.String())
	assert.Equal(t, "v6", V6.String())
	assert.Equal(t, "IPVersion(0)", IPVersion(0).String())
}

func TestIPVersionText(t *testing.T) {
	b, err := V6.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "v6", string(b))

	var v IPVersion
	require.NoError(t, v.UnmarshalText([]byte("v4")))
	assert.Equal(t, V4, v)

	assert.Error(t, v.UnmarshalText([]byte("v5")))
}

func TestListenerJSON(t *testing.T) {
	l := Listener{
		Addr:    netip.MustParseAddr("127.0.0.1"),
		Port:    8080,
		Version: V4,
		Process: &Process{PID: 421, Name: "nginx"},
	}

	b, err := json.Marshal(l)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"address": "127.0.0.1",
		"port": 8080,
		"ip_version": "v4",
		"process": {"pid": 421, "name": "nginx"}
	}`, string(b))

	var back Listener
	require.NoError(t, json.Unmarshal(b, &back))
	assert.Equal(t, l, back)
}

func TestListenerJSONUnattributed(t *testing.T) {
	l := Listener{
		Addr:    netip.MustParseAddr("::1"),
		Port:    22,
		Version: V6,
	}

	b, err := json.Marshal(l)
	require.NoError(t, err)
	assert.JSONEq(t, `{"address": "::1", "port": 22, "ip_version": "v6"}`, string(b))
}

func TestListenerString(t *testing.T) {
	l := Listener{
		Addr:    netip.MustParseAddr("0.0.0.0"),
		Port:    80,
		Version: V4,
		Process: &Process{PID: 1, Name: "init"},
	}
	assert.Equal(t, "0.0.0.0:80 [v4] init (pid 1)", l.String())

	l.Process = nil
	assert.Equal(t, "0.0.0.0:80 [v4]", l.String())
}

func TestListenerAddrPort(t *testing.T) {
	l := Listener{Addr: netip.MustParseAddr("::1"), Port: 443, Version: V6}
	assert.Equal(t, netip.MustParseAddrPort("[::1]:443"), l.AddrPort())
}

func TestProcessString(t *testing.T) {
	p := Process{PID: 77, Name: "sshd"}
	assert.Equal(t, "sshd (pid 77)", p.String())
}
