// SPDX-License-Identifier: AGPL-3.0-only

// Package driver implements the single-threaded UDP I/O loop that owns a
// session's socket: receive-with-timeout, dispatch into the session, poll
// every channel for due retransmissions, and send. Exactly one goroutine
// ever touches the socket.
package driver

import (
	"fmt"
	"net"
	"os"
	"time"

	"github.com/charmbracelet/log"

	"github.com/fleetlink/pppp/internal/worker"
	"github.com/fleetlink/pppp/session"
	"github.com/fleetlink/pppp/wire"
)

const (
	// LANPort and WANPort are the two well-known ports the source dials,
	// depending on whether the peer is believed to be on the local network.
	LANPort = 32108
	WANPort = 32100

	recvBufferSize = 4096
)

// ConnectError indicates a Dial/DialBroadcast socket setup failure.
type ConnectError struct {
	Err error
}

func (e *ConnectError) Error() string {
	return fmt.Sprintf("pppp/driver: connect error: %v", e.Err)
}

func newConnectError(f string, a ...interface{}) error {
	return &ConnectError{Err: fmt.Errorf(f, a...)}
}

// Driver runs the I/O loop for exactly one Session over exactly one UDP
// socket.
type Driver struct {
	worker.Worker

	log *log.Logger

	conn        *net.UDPConn
	recvTimeout time.Duration
	sess        *session.Session
}

// New constructs a Driver bound to conn, driving sess. recvTimeout is the
// deadline applied to every receive (50ms in the source).
func New(conn *net.UDPConn, sess *session.Session, recvTimeout time.Duration) *Driver {
	return &Driver{
		log: log.NewWithOptions(os.Stderr, log.Options{
			ReportTimestamp: true,
			Prefix:          "pppp/driver",
		}),
		conn:        conn,
		recvTimeout: recvTimeout,
		sess:        sess,
	}
}

// Dial opens a UDP socket for talking to host:port, the source's
// open()/open_lan()/open_wan() constructors generalized to one call. The
// socket is deliberately left unconnected (net.ListenUDP on an ephemeral
// local port, not net.DialUDP): the source never connect()s its client
// socket either, since a NAT-punched peer can change port mid-session and
// every send addresses the peer explicitly via sendto. A connected
// *net.UDPConn would also reject WriteToUDP outright (ErrWriteToConnected),
// which is how the driver sends every reply. host:port is still resolved
// here so a bad address fails at Dial time rather than silently at the
// first send.
func Dial(host string, port int) (*net.UDPConn, error) {
	if _, err := net.ResolveUDPAddr("udp4", fmt.Sprintf("%s:%d", host, port)); err != nil {
		return nil, newConnectError("resolve %s:%d: %w", host, port, err)
	}
	conn, err := net.ListenUDP("udp4", nil)
	if err != nil {
		return nil, newConnectError("open socket for %s:%d: %w", host, port, err)
	}
	return conn, nil
}

// BroadcastAddr is the destination the source's open_broadcast() targets:
// the LAN broadcast address on LANPort.
func BroadcastAddr() *net.UDPAddr {
	return &net.UDPAddr{IP: net.IPv4bcast, Port: LANPort}
}

// DialBroadcast opens an unconnected UDP socket with SO_BROADCAST set, the
// source's open_broadcast() constructor. The source never connect()s this
// socket either — it setsockopts SO_BROADCAST and sendto()s the broadcast
// address directly — so the returned conn stays unconnected and the driver
// sends to BroadcastAddr() explicitly. SO_BROADCAST isn't reachable through
// net.Dial's own API, so it's set via a net.ListenConfig.Control callback
// and golang.org/x/sys/unix.
func DialBroadcast() (*net.UDPConn, error) {
	lc := net.ListenConfig{Control: setBroadcast}
	pc, err := lc.ListenPacket(nil, "udp4", ":0")
	if err != nil {
		return nil, newConnectError("listen for broadcast: %w", err)
	}
	udpConn, ok := pc.(*net.UDPConn)
	if !ok {
		pc.Close()
		return nil, newConnectError("broadcast socket was not a UDPConn")
	}
	return udpConn, nil
}

// Start launches the I/O loop as a background goroutine.
func (d *Driver) Start() {
	d.Go(d.loop)
}

// Stop halts the I/O loop and blocks until it has exited, matching the
// source's synchronous stop()/stopped.wait() pair.
func (d *Driver) Stop() {
	d.Halt()
	d.Wait()
}

func (d *Driver) loop() {
	d.log.Debug("started I/O loop")
	buf := make([]byte, recvBufferSize)

	for {
		select {
		case <-d.HaltCh():
			d.sendClose()
			return
		default:
		}

		if d.sess.State() == session.StateClosing {
			d.sendClose()
			return
		}

		if err := d.conn.SetReadDeadline(time.Now().Add(d.recvTimeout)); err != nil {
			d.log.Errorf("set read deadline: %v", err)
		}
		n, raddr, err := d.conn.ReadFromUDP(buf)
		switch {
		case isTimeout(err):
			// no datagram within the poll window; fall through to Poll.
		case err != nil:
			d.log.Debugf("recv error: %v", err)
		default:
			d.handleDatagram(buf[:n], raddr)
		}

		d.pollAndSend(time.Now())
	}
}

func (d *Driver) handleDatagram(data []byte, raddr *net.UDPAddr) {
	pkt, _, err := wire.Parse(data)
	if err != nil {
		d.log.Debugf("drop unparseable datagram from %v: %v", raddr, err)
		return
	}
	if u, ok := pkt.(*wire.Unknown); ok {
		d.log.Debugf("ignore unknown packet type %d from %v", uint16(u.RawType), raddr)
	}
	out, err := d.sess.Dispatch(pkt, wire.HostFromUDPAddr(raddr))
	if err != nil {
		d.log.Debugf("dispatch error from %v: %v", raddr, err)
		return
	}
	for _, o := range out {
		d.send(o.Packet, raddr)
	}
}

func (d *Driver) pollAndSend(now time.Time) {
	for _, o := range d.sess.Poll(now) {
		raddr := d.peerAddr()
		d.send(o.Packet, raddr)
	}
}

func (d *Driver) sendClose() {
	d.send(&wire.Close{}, d.peerAddr())
}

func (d *Driver) peerAddr() *net.UDPAddr {
	if peer, ok := d.sess.PeerAddr(); ok {
		return peer.UDPAddr()
	}
	return nil
}

func (d *Driver) send(p wire.Packet, addr *net.UDPAddr) {
	buf := wire.Encode(p)
	var err error
	if addr != nil {
		_, err = d.conn.WriteToUDP(buf, addr)
	} else {
		_, err = d.conn.Write(buf)
	}
	if err != nil {
		d.log.Debugf("send %s: %v", p.Type(), err)
	}
}

func isTimeout(err error) bool {
	ne, ok := err.(net.Error)
	return ok && ne.Timeout()
}
