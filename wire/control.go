// SPDX-License-Identifier: AGPL-3.0-only

package wire

import (
	"encoding/binary"
)

// Hello carries no fields; receiving one elicits a HelloAck naming the
// session's own peer address.
type Hello struct{}

func (*Hello) Type() Type      { return TypeHello }
func (*Hello) payload() []byte { return nil }

// HelloAck echoes the host address the session believes it is reachable at.
type HelloAck struct {
	Host HostAddr
}

func (*HelloAck) Type() Type { return TypeHelloAck }
func (h *HelloAck) payload() []byte {
	buf := make([]byte, hostAddrSize)
	encodeHostAddr(buf, h.Host)
	return buf
}

func decodeHelloAck(body []byte) (Packet, error) {
	h, err := decodeHostAddr(body)
	if err != nil {
		return nil, err
	}
	return &HelloAck{Host: h}, nil
}

// P2PRdy announces that the sender believes the peer-to-peer path is ready.
// Emitted by the session itself in response to a PUNCH_PKT seen while New.
type P2PRdy struct {
	DUID DUID
}

func (*P2PRdy) Type() Type { return TypeP2PRdy }
func (p *P2PRdy) payload() []byte {
	out := make([]byte, DUIDLength)
	copy(out, p.DUID[:])
	return out
}

func decodeP2PRdy(body []byte) (Packet, error) {
	if len(body) < DUIDLength {
		return nil, &ErrTruncated{Type: TypeP2PRdy, Want: DUIDLength, Got: len(body)}
	}
	var p P2PRdy
	copy(p.DUID[:], body[:DUIDLength])
	return &p, nil
}

// P2PRdyAck acknowledges P2PRdy and carries the sender's own DUID and host.
type P2PRdyAck struct {
	DUID DUID
	Host HostAddr
}

func (*P2PRdyAck) Type() Type { return TypeP2PRdyAck }
func (p *P2PRdyAck) payload() []byte {
	out := make([]byte, DUIDLength+hostAddrSize)
	copy(out, p.DUID[:])
	encodeHostAddr(out[DUIDLength:], p.Host)
	return out
}

func decodeP2PRdyAck(body []byte) (Packet, error) {
	if len(body) < DUIDLength+hostAddrSize {
		return nil, &ErrTruncated{Type: TypeP2PRdyAck, Want: DUIDLength + hostAddrSize, Got: len(body)}
	}
	var p P2PRdyAck
	copy(p.DUID[:], body[:DUIDLength])
	h, err := decodeHostAddr(body[DUIDLength:])
	if err != nil {
		return nil, err
	}
	p.Host = h
	return &p, nil
}

// PunchPkt is the client-side artifact of NAT hole-punching. Its payload is
// opaque to this core (rendezvous-server semantics are out of scope); Raw
// preserves whatever bytes arrived so a caller can inspect them if needed.
type PunchPkt struct {
	Raw []byte
}

func (*PunchPkt) Type() Type      { return TypePunchPkt }
func (p *PunchPkt) payload() []byte { return p.Raw }

// ReportSessionReady is observed but, per the source, never answered.
type ReportSessionReady struct {
	Raw []byte
}

func (*ReportSessionReady) Type() Type      { return TypeReportSessionReady }
func (r *ReportSessionReady) payload() []byte { return r.Raw }

// SessionReady is the reply the source constructs for ReportSessionReady
// but never sends. It is implemented here for completeness of the packet
// universe (and so a future caller can choose to send it) but the session
// dispatcher never emits one.
type SessionReady struct {
	DUID          DUID
	Handle        int32
	MaxHandles    int32
	ActiveHandles int32
	StartupTicks  int32
	B1, B2, B3, B4 uint8
	AddrLocal, AddrWAN, AddrRelay HostAddr
}

func (*SessionReady) Type() Type { return TypeSessionReady }
func (s *SessionReady) payload() []byte {
	out := make([]byte, DUIDLength+16+4+hostAddrSize*3)
	off := 0
	copy(out[off:], s.DUID[:])
	off += DUIDLength
	binary.BigEndian.PutUint32(out[off:], uint32(s.Handle))
	off += 4
	binary.BigEndian.PutUint32(out[off:], uint32(s.MaxHandles))
	off += 4
	binary.BigEndian.PutUint32(out[off:], uint32(s.ActiveHandles))
	off += 4
	binary.BigEndian.PutUint32(out[off:], uint32(s.StartupTicks))
	off += 4
	out[off], out[off+1], out[off+2], out[off+3] = s.B1, s.B2, s.B3, s.B4
	off += 4
	encodeHostAddr(out[off:], s.AddrLocal)
	off += hostAddrSize
	encodeHostAddr(out[off:], s.AddrWAN)
	off += hostAddrSize
	encodeHostAddr(out[off:], s.AddrRelay)
	return out
}

func decodeSessionReady(body []byte) (Packet, error) {
	const want = DUIDLength + 16 + 4 + hostAddrSize*3
	if len(body) < want {
		return nil, &ErrTruncated{Type: TypeSessionReady, Want: want, Got: len(body)}
	}
	var s SessionReady
	off := 0
	copy(s.DUID[:], body[off:])
	off += DUIDLength
	s.Handle = int32(binary.BigEndian.Uint32(body[off:]))
	off += 4
	s.MaxHandles = int32(binary.BigEndian.Uint32(body[off:]))
	off += 4
	s.ActiveHandles = int32(binary.BigEndian.Uint32(body[off:]))
	off += 4
	s.StartupTicks = int32(binary.BigEndian.Uint32(body[off:]))
	off += 4
	s.B1, s.B2, s.B3, s.B4 = body[off], body[off+1], body[off+2], body[off+3]
	off += 4
	var err error
	if s.AddrLocal, err = decodeHostAddr(body[off:]); err != nil {
		return nil, err
	}
	off += hostAddrSize
	if s.AddrWAN, err = decodeHostAddr(body[off:]); err != nil {
		return nil, err
	}
	off += hostAddrSize
	if s.AddrRelay, err = decodeHostAddr(body[off:]); err != nil {
		return nil, err
	}
	return &s, nil
}

// Alive is a keepalive ping; it elicits AliveAck.
type Alive struct{}

func (*Alive) Type() Type      { return TypeAlive }
func (*Alive) payload() []byte { return nil }

// AliveAck acknowledges Alive and is otherwise inert.
type AliveAck struct{}

func (*AliveAck) Type() Type      { return TypeAliveAck }
func (*AliveAck) payload() []byte { return nil }

// DevLgnCRC carries a device-login CRC value whose meaning is opaque to the
// transport; it always elicits DevLgnAckCRC.
type DevLgnCRC struct {
	CRC uint16
}

func (*DevLgnCRC) Type() Type { return TypeDevLgnCRC }
func (d *DevLgnCRC) payload() []byte {
	out := make([]byte, 2)
	binary.BigEndian.PutUint16(out, d.CRC)
	return out
}

func decodeDevLgnCRC(body []byte) (Packet, error) {
	if len(body) < 2 {
		return nil, &ErrTruncated{Type: TypeDevLgnCRC, Want: 2, Got: len(body)}
	}
	return &DevLgnCRC{CRC: binary.BigEndian.Uint16(body)}, nil
}

// DevLgnAckCRC acknowledges DevLgnCRC.
type DevLgnAckCRC struct{}

func (*DevLgnAckCRC) Type() Type      { return TypeDevLgnAckCRC }
func (*DevLgnAckCRC) payload() []byte { return nil }

// Close terminates a session. Either peer may send it at any time.
type Close struct{}

func (*Close) Type() Type      { return TypeClose }
func (*Close) payload() []byte { return nil }

// Unknown is the catch-all variant for an unrecognized type tag. The driver
// logs it at debug level and session dispatch ignores it rather than
// treating it as an error.
type Unknown struct {
	RawType Type
	Raw     []byte
}

func (u *Unknown) Type() Type      { return u.RawType }
func (u *Unknown) payload() []byte { return u.Raw }
