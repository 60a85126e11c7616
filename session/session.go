// SPDX-License-Identifier: AGPL-3.0-only

// Package session implements the per-peer connection state machine: New,
// through hole-punch negotiation, to Ready, and finally Closing. It owns the
// eight channel.Channel streams multiplexed over one session and dispatches
// decoded wire.Packets into channel/state updates, but does no I/O itself —
// that's driver's job.
package session

import (
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/fleetlink/pppp/channel"
	"github.com/fleetlink/pppp/config"
	"github.com/fleetlink/pppp/wire"
)

// ErrClosed names the session-closed condition. No function in this module
// returns it: once the owning session has moved to StateClosing, whether
// from a local Close or a peer CLOSE packet, channel reads/writes return
// io.EOF.
var ErrClosed = errors.New("pppp/session: session closed")

// State is the session's position in the New → Ready → Closing lifecycle.
type State uint8

const (
	StateNew State = iota
	StateReady
	StateClosing
)

func (s State) String() string {
	switch s {
	case StateNew:
		return "new"
	case StateReady:
		return "ready"
	case StateClosing:
		return "closing"
	default:
		return "unknown"
	}
}

// ProtocolError indicates a received packet violated the session's current
// state or the wire format.
type ProtocolError struct {
	Err error
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("pppp/session: protocol error: %v", e.Err)
}

func newProtocolError(f string, a ...interface{}) error {
	return &ProtocolError{Err: fmt.Errorf(f, a...)}
}

// NumChannels is the fixed channel count multiplexed over one session.
const NumChannels = 8

// Role selects which of the three transport modes a Descriptor targets,
// matching the source's open_lan/open_wan/open_broadcast constructors.
type Role uint8

const (
	RoleLAN Role = iota
	RoleWAN
	RoleBroadcast
)

// Descriptor is the caller-supplied identity a Session is constructed from:
// the local DUID and, for a client dialing out, the candidate peer's host
// and port. It travels across process boundaries CBOR-encoded (fxamacker/
// cbor/v2), matching the teacher's thin-client IPC encoding.
type Descriptor struct {
	DUID DUID
	Host string
	Port uint16
	Role Role
}

// DUID is re-exported from wire so callers constructing a Descriptor don't
// need a second import for the identity type alone.
type DUID = wire.DUID

// Outbound is one packet the session wants the driver to transmit.
type Outbound struct {
	Packet wire.Packet
	Addr   *wire.HostAddr // nil means "send to the current peer address"
}

// Session is the per-peer state machine plus its eight reliable channels.
// Every exported method assumes the caller (the driver's single I/O
// goroutine) is the only one touching it; Session does no locking of its
// own beyond what channel.Channel already provides for Read/Write/Poll from
// other goroutines.
type Session struct {
	duid DUID
	cfg  config.Config

	state    State
	peer     wire.HostAddr
	havePeer bool
	channels [NumChannels]*channel.Channel
}

// New constructs a Session in StateNew with its eight channels built from
// cfg's tunables and no metrics collection. It is NewWithMetrics(desc, cfg,
// nil) — see that constructor for what desc.Host/Port seed.
func New(desc Descriptor, cfg config.Config) *Session {
	return NewWithMetrics(desc, cfg, nil)
}

// NewWithMetrics is New plus a channel.Metrics collector shared by all eight
// channels (a nil metrics installs channel's own no-op, same as New). The
// driver/cmd callers that register metrics.Channel against a Prometheus
// registerer pass it through here rather than through channel.NewWithLimits
// directly, since Session is what owns channel construction.
//
// desc.Host/Port, when set, seed the session's peer address up front: a
// Session does no socket I/O itself, but the driver's send path needs a
// target before any datagram has been observed (the first outbound packet a
// freshly dialed client emits has no "last seen from" address to reply to).
// peer_addr is overwritten by the address of every datagram Dispatch sees
// afterward, so a stale or unreachable seed self-corrects once the peer
// replies from wherever it actually is.
func NewWithMetrics(desc Descriptor, cfg config.Config, metrics channel.Metrics) *Session {
	s := &Session{duid: desc.DUID, cfg: cfg, state: StateNew}
	for i := range s.channels {
		s.channels[i] = channel.NewWithLimits(uint8(i), cfg.MaxInFlight, cfg.ChunkSize, cfg.RetransmitTimeout, metrics)
	}
	if desc.Host != "" {
		if raddr, err := net.ResolveUDPAddr("udp4", fmt.Sprintf("%s:%d", desc.Host, desc.Port)); err == nil {
			s.peer = wire.HostFromUDPAddr(raddr)
			s.havePeer = true
		}
	}
	return s
}

// State reports the session's current lifecycle position.
func (s *Session) State() State { return s.state }

// DUID is this session's own identity.
func (s *Session) DUID() DUID { return s.duid }

// PeerAddr is the last address a datagram was observed from, or the dial
// target before any datagram has arrived.
func (s *Session) PeerAddr() (wire.HostAddr, bool) { return s.peer, s.havePeer }

// Channel returns one of the eight multiplexed reliable streams.
func (s *Session) Channel(i int) *channel.Channel { return s.channels[i] }

// Poll advances every channel's retransmission timers and returns the DRW
// segments due for (re)transmission, wrapped as Outbound packets addressed
// to the current peer. DRW_ACKs are emitted separately, from Dispatch, as
// the immediate reply to each inbound DRW.
func (s *Session) Poll(now time.Time) []Outbound {
	var out []Outbound
	for _, ch := range s.channels {
		for _, seg := range ch.Poll(now) {
			out = append(out, Outbound{Packet: &wire.DRW{
				Channel: ch.Index(),
				Index:   seg.Index,
				Data:    seg.Data,
			}})
		}
	}
	return out
}

// Dispatch processes one inbound packet from src, updating session/channel
// state and returning any packets to send in reply. Every datagram's source
// updates PeerAddr before dispatch, per the source's own behavior.
func (s *Session) Dispatch(p wire.Packet, src wire.HostAddr) ([]Outbound, error) {
	s.peer = src
	s.havePeer = true

	switch pkt := p.(type) {
	case *wire.Hello:
		return []Outbound{{Packet: &wire.HelloAck{Host: src}}}, nil

	case *wire.HelloAck:
		// Only ever sent, not received, per the source's own dispatch table;
		// observed and ignored like ReportSessionReady rather than treated as
		// a protocol violation.
		return nil, nil

	case *wire.Alive:
		return []Outbound{{Packet: &wire.AliveAck{}}}, nil

	case *wire.AliveAck:
		return nil, nil

	case *wire.DevLgnCRC:
		return []Outbound{{Packet: &wire.DevLgnAckCRC{}}}, nil

	case *wire.DevLgnAckCRC:
		return nil, nil

	case *wire.DRW:
		if int(pkt.Channel) >= NumChannels {
			return nil, newProtocolError("DRW on out-of-range channel %d", pkt.Channel)
		}
		s.channels[pkt.Channel].RxDRW(pkt.Index, pkt.Data)
		return []Outbound{{Packet: &wire.DRWAck{Channel: pkt.Channel, Acks: []uint16{pkt.Index}}}}, nil

	case *wire.DRWAck:
		if int(pkt.Channel) >= NumChannels {
			return nil, newProtocolError("DRW_ACK on out-of-range channel %d", pkt.Channel)
		}
		s.channels[pkt.Channel].RxAck(pkt.Acks)
		return nil, nil

	case *wire.P2PRdy:
		s.state = StateReady
		return []Outbound{{Packet: &wire.P2PRdyAck{DUID: s.duid, Host: src}}}, nil

	case *wire.P2PRdyAck:
		s.state = StateReady
		return nil, nil

	case *wire.PunchPkt:
		// The source's own logic: a PUNCH_PKT seen while still New means the
		// session believes the direct path is open, so it closes out
		// whatever handshake was in progress and announces readiness.
		if s.state == StateNew {
			return []Outbound{
				{Packet: &wire.Close{}},
				{Packet: &wire.P2PRdy{DUID: s.duid}},
			}, nil
		}
		return nil, nil

	case *wire.ReportSessionReady:
		// Observed but never answered, matching the source exactly.
		return nil, nil

	case *wire.SessionReady:
		// Only ever sent (as REPORT_SESSION_READY's unsent reply), not
		// received; observed and ignored rather than a protocol violation.
		return nil, nil

	case *wire.Close:
		s.teardown()
		return nil, nil

	case *wire.Unknown:
		return nil, nil

	default:
		return nil, newProtocolError("unhandled packet type %T", p)
	}
}

// Close transitions the session to Closing and unblocks any goroutine
// blocked in a channel Read/Write, which return io.EOF; the driver sends a
// terminal CLOSE
// packet once it observes the state change.
func (s *Session) Close() {
	s.teardown()
}

// teardown is shared by the local Close() path and the *wire.Close
// dispatch case: both need to flip state and tear down every channel the
// same way.
func (s *Session) teardown() {
	if s.state == StateClosing {
		return
	}
	s.state = StateClosing
	for _, ch := range s.channels {
		ch.Close()
	}
}
