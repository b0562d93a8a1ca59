package statsd

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func listenUDP(t *testing.T) (*net.UDPConn, string) {
	t.Helper()
	conn, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn, conn.LocalAddr().String()
}

func readLine(t *testing.T, conn *net.UDPConn) string {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	buf := make([]byte, 1024)
	n, _, err := conn.ReadFromUDP(buf)
	require.NoError(t, err)
	return string(buf[:n])
}

func TestClient_Count(t *testing.T) {
	server, addr := listenUDP(t)

	client, err := NewClient(Config{Enabled: true, Address: addr, Prefix: "shopdesk."})
	require.NoError(t, err)
	defer client.Close()

	client.Count("auth.renewal.success", 1, nil)
	assert.Equal(t, "shopdesk.auth.renewal.success:1|c", readLine(t, server))
}

func TestClient_CountWithTags(t *testing.T) {
	server, addr := listenUDP(t)

	client, err := NewClient(Config{Enabled: true, Address: addr, Prefix: "shopdesk"})
	require.NoError(t, err)
	defer client.Close()

	client.Count("gate.denied", 1, map[string]string{"reason": "expired", "plan": "starter"})
	assert.Equal(t, "shopdesk.gate.denied:1|c|#plan:starter,reason:expired", readLine(t, server))
}

func TestClient_Timing(t *testing.T) {
	server, addr := listenUDP(t)

	client, err := NewClient(Config{Enabled: true, Address: addr})
	require.NoError(t, err)
	defer client.Close()

	client.Timing("auth.renewal.duration", 250*time.Millisecond, nil)
	assert.Equal(t, "auth.renewal.duration:250|ms", readLine(t, server))
}

func TestClient_Disabled(t *testing.T) {
	client, err := NewClient(Config{Enabled: false, Address: "127.0.0.1:1"})
	require.NoError(t, err)

	// Must not panic or emit.
	client.Count("auth.signout", 1, nil)
	require.NoError(t, client.Close())
}

func TestClient_NilIsNoOp(t *testing.T) {
	var client *Client
	client.Count("auth.signout", 1, nil)
	client.Timing("auth.renewal.duration", time.Second, nil)
	assert.NoError(t, client.Close())
}

func TestClient_EmptyNameDropped(t *testing.T) {
	server, addr := listenUDP(t)

	client, err := NewClient(Config{Enabled: true, Address: addr})
	require.NoError(t, err)
	defer client.Close()

	client.Count("   ", 1, nil)
	client.Count("after", 1, nil)
	assert.Equal(t, "after:1|c", readLine(t, server))
}
