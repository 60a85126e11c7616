// SPDX-License-Identifier: AGPL-3.0-only

package driver

import (
	"net"
	"testing"
	"time"

	"github.com/fleetlink/pppp/config"
	"github.com/fleetlink/pppp/session"
	"github.com/fleetlink/pppp/wire"
	"github.com/stretchr/testify/require"
)

func TestDriverRespondsToHello(t *testing.T) {
	serverConn, err := net.ListenUDP("udp4", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	require.NoError(t, err)

	clientConn, err := net.DialUDP("udp4", nil, serverConn.LocalAddr().(*net.UDPAddr))
	require.NoError(t, err)
	defer clientConn.Close()

	var duid DUIDAlias
	sess := session.New(session.Descriptor{DUID: duid}, config.Default())
	d := New(serverConn, sess, 10*time.Millisecond)
	d.Start()
	defer d.Stop()

	_, err = clientConn.Write(wire.Encode(&wire.Hello{}))
	require.NoError(t, err)

	buf := make([]byte, 1024)
	require.NoError(t, clientConn.SetReadDeadline(time.Now().Add(time.Second)))
	n, err := clientConn.Read(buf)
	require.NoError(t, err)

	pkt, _, err := wire.Parse(buf[:n])
	require.NoError(t, err)
	require.Equal(t, wire.TypeHelloAck, pkt.Type())
}

type DUIDAlias = wire.DUID

// TestDialReturnsUnconnectedSocket guards against regressing to
// net.DialUDP: a connected *net.UDPConn rejects WriteToUDP outright, which
// is how Driver.send answers every inbound datagram.
func TestDialReturnsUnconnectedSocket(t *testing.T) {
	serverConn, err := net.ListenUDP("udp4", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	require.NoError(t, err)
	defer serverConn.Close()

	serverPort := serverConn.LocalAddr().(*net.UDPAddr).Port
	clientConn, err := Dial("127.0.0.1", serverPort)
	require.NoError(t, err)
	defer clientConn.Close()

	_, err = clientConn.WriteToUDP(wire.Encode(&wire.Hello{}), serverConn.LocalAddr().(*net.UDPAddr))
	require.NoError(t, err, "Dial must return an unconnected socket so WriteToUDP works")

	buf := make([]byte, 1024)
	require.NoError(t, serverConn.SetReadDeadline(time.Now().Add(time.Second)))
	n, raddr, err := serverConn.ReadFromUDP(buf)
	require.NoError(t, err)
	pkt, _, err := wire.Parse(buf[:n])
	require.NoError(t, err)
	require.Equal(t, wire.TypeHello, pkt.Type())
	require.NotNil(t, raddr)
}

// TestDriverDialEndToEndRespondsToHello exercises the exact path cmd/ppppdial
// uses: driver.Dial's returned conn handed to a Driver, receiving a Hello
// and replying with a HelloAck over the same (unconnected) socket.
func TestDriverDialEndToEndRespondsToHello(t *testing.T) {
	serverConn, err := net.ListenUDP("udp4", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	require.NoError(t, err)
	defer serverConn.Close()
	serverPort := serverConn.LocalAddr().(*net.UDPAddr).Port

	clientConn, err := Dial("127.0.0.1", serverPort)
	require.NoError(t, err)

	var duid DUIDAlias
	desc := session.Descriptor{DUID: duid, Host: "127.0.0.1", Port: uint16(serverPort), Role: session.RoleLAN}
	sess := session.New(desc, config.Default())
	d := New(clientConn, sess, 10*time.Millisecond)
	d.Start()
	defer d.Stop()

	_, err = serverConn.WriteToUDP(wire.Encode(&wire.Hello{}), clientConn.LocalAddr().(*net.UDPAddr))
	require.NoError(t, err)

	buf := make([]byte, 1024)
	require.NoError(t, serverConn.SetReadDeadline(time.Now().Add(time.Second)))
	n, _, err := serverConn.ReadFromUDP(buf)
	require.NoError(t, err)

	pkt, _, err := wire.Parse(buf[:n])
	require.NoError(t, err)
	require.Equal(t, wire.TypeHelloAck, pkt.Type())
}
