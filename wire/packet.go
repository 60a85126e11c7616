// SPDX-License-Identifier: AGPL-3.0-only

// Package wire implements the PPPP control-packet codec and the two
// framed payload formats (XZYH, AABB) that travel inside a channel's byte
// stream. Every function here is pure: no I/O, no session state.
package wire

import (
	"encoding/binary"
	"fmt"
)

// Type identifies a decoded control packet's variant.
type Type uint16

const (
	TypeUnknown Type = iota
	TypeHello
	TypeHelloAck
	TypeP2PRdy
	TypeP2PRdyAck
	TypePunchPkt
	TypeReportSessionReady
	TypeSessionReady
	TypeAlive
	TypeAliveAck
	TypeDRW
	TypeDRWAck
	TypeDevLgnCRC
	TypeDevLgnAckCRC
	TypeClose
)

func (t Type) String() string {
	switch t {
	case TypeHello:
		return "HELLO"
	case TypeHelloAck:
		return "HELLO_ACK"
	case TypeP2PRdy:
		return "P2P_RDY"
	case TypeP2PRdyAck:
		return "P2P_RDY_ACK"
	case TypePunchPkt:
		return "PUNCH_PKT"
	case TypeReportSessionReady:
		return "REPORT_SESSION_READY"
	case TypeSessionReady:
		return "SESSION_READY"
	case TypeAlive:
		return "ALIVE"
	case TypeAliveAck:
		return "ALIVE_ACK"
	case TypeDRW:
		return "DRW"
	case TypeDRWAck:
		return "DRW_ACK"
	case TypeDevLgnCRC:
		return "DEV_LGN_CRC"
	case TypeDevLgnAckCRC:
		return "DEV_LGN_ACK_CRC"
	case TypeClose:
		return "CLOSE"
	default:
		return "UNKNOWN"
	}
}

// Packet is the tagged-variant interface over every decodable wire packet.
// Session dispatch type-switches on the concrete variant; a variant the
// dispatcher has no case for reaches its default arm and is reported as a
// ProtocolError, not silently dropped.
type Packet interface {
	Type() Type
	payload() []byte
}

// Encode serializes p as a complete UDP datagram: a 2-byte big-endian type
// tag, a 2-byte big-endian length of the remainder, and the payload.
func Encode(p Packet) []byte {
	body := p.payload()
	out := make([]byte, 4+len(body))
	binary.BigEndian.PutUint16(out[0:2], uint16(p.Type()))
	binary.BigEndian.PutUint16(out[2:4], uint16(len(body)))
	copy(out[4:], body)
	return out
}

// ErrTruncated is returned by Parse when fewer bytes are available than the
// header declares.
type ErrTruncated struct {
	Type   Type
	Want   int
	Got    int
}

func (e *ErrTruncated) Error() string {
	return fmt.Sprintf("wire: truncated %s packet: want %d bytes, got %d", e.Type, e.Want, e.Got)
}

// Parse decodes exactly one packet from the front of data, returning the
// decoded packet and the number of bytes consumed. Parsing is total for
// every recognized Type; an unrecognized type tag yields an *Unknown rather
// than an error, matching the source's "ignore unknown with a debug log"
// behavior (the caller decides whether/how to log it).
func Parse(data []byte) (Packet, int, error) {
	if len(data) < 4 {
		return nil, 0, &ErrTruncated{Type: TypeUnknown, Want: 4, Got: len(data)}
	}
	typ := Type(binary.BigEndian.Uint16(data[0:2]))
	length := int(binary.BigEndian.Uint16(data[2:4]))
	consumed := 4 + length
	if len(data) < consumed {
		return nil, 0, &ErrTruncated{Type: typ, Want: consumed, Got: len(data)}
	}
	body := data[4:consumed]

	pkt, err := decodeBody(typ, body)
	if err != nil {
		return nil, 0, err
	}
	return pkt, consumed, nil
}

func decodeBody(typ Type, body []byte) (Packet, error) {
	switch typ {
	case TypeHello:
		return &Hello{}, nil
	case TypeHelloAck:
		return decodeHelloAck(body)
	case TypeP2PRdy:
		return decodeP2PRdy(body)
	case TypeP2PRdyAck:
		return decodeP2PRdyAck(body)
	case TypePunchPkt:
		return &PunchPkt{Raw: append([]byte(nil), body...)}, nil
	case TypeReportSessionReady:
		return &ReportSessionReady{Raw: append([]byte(nil), body...)}, nil
	case TypeSessionReady:
		return decodeSessionReady(body)
	case TypeAlive:
		return &Alive{}, nil
	case TypeAliveAck:
		return &AliveAck{}, nil
	case TypeDRW:
		return decodeDRW(body)
	case TypeDRWAck:
		return decodeDRWAck(body)
	case TypeDevLgnCRC:
		return decodeDevLgnCRC(body)
	case TypeDevLgnAckCRC:
		return &DevLgnAckCRC{}, nil
	case TypeClose:
		return &Close{}, nil
	default:
		return &Unknown{RawType: typ, Raw: append([]byte(nil), body...)}, nil
	}
}
