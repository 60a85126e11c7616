// SPDX-License-Identifier: AGPL-3.0-only

// Package framed implements the two request/response façades layered on
// top of a channel's reliable byte stream: XZYH (fire-and-forget command
// frames) and AABB (request frames with a synchronous one-byte reply).
package framed

import (
	"fmt"

	"github.com/fleetlink/pppp/channel"
	"github.com/fleetlink/pppp/wire"
)

// ProtocolError indicates a reply frame didn't match what the request
// discipline expected (wrong length, CRC mismatch, non-OK status when the
// caller asked for one).
type ProtocolError struct {
	Err error
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("pppp/framed: protocol error: %v", e.Err)
}

func newProtocolError(f string, a ...interface{}) error {
	return &ProtocolError{Err: fmt.Errorf(f, a...)}
}

// ErrUnexpectedReply is wrapped into a ProtocolError when an AABB reply's
// payload isn't the single status byte the request/reply discipline
// expects.
var ErrUnexpectedReply = fmt.Errorf("unexpected aabb reply payload")

// SendXZYH writes a command frame on ch and blocks until every chunk has
// been acknowledged, returning the (start, end) sequence-number window the
// frame occupied on the channel.
func SendXZYH(ch *channel.Channel, cmd uint16, data []byte, opts ...XZYHOption) (start, end uint16, err error) {
	x := wire.XZYH{Command: cmd, Data: data}
	for _, opt := range opts {
		opt(&x)
	}
	return ch.Write(x.Encode(), true)
}

// XZYHOption customizes the reserved header fields of a SendXZYH call.
type XZYHOption func(*wire.XZYH)

func WithXZYHChannel(c uint8) XZYHOption  { return func(x *wire.XZYH) { x.Channel = c } }
func WithXZYHDevType(t uint8) XZYHOption  { return func(x *wire.XZYH) { x.DevType = t } }
func WithXZYHSignCode(s uint8) XZYHOption { return func(x *wire.XZYH) { x.SignCode = s } }

// RecvXZYH blocks on ch until a complete XZYH frame (header plus its
// declared payload length) has arrived.
func RecvXZYH(ch *channel.Channel) (*wire.XZYH, error) {
	hdr := make([]byte, wire.XZYHHeaderSize)
	if _, err := readFull(ch, hdr); err != nil {
		return nil, err
	}
	x, err := wire.DecodeXZYHHeader(hdr)
	if err != nil {
		return nil, newProtocolError("decode XZYH header: %w", err)
	}
	data := make([]byte, x.Length)
	if _, err := readFull(ch, data); err != nil {
		return nil, err
	}
	x.Data = data
	return x, nil
}

// SendAABB writes a request frame (header, payload, CRC-16) on ch. Unlike
// SendXZYH, the AABB send discipline has no use for the channel's
// sequence-number window, so it's discarded here.
func SendAABB(ch *channel.Channel, h wire.AABB, payload []byte) error {
	_, _, err := ch.Write(wire.EncodeAABB(h, payload), true)
	return err
}

// RecvAABB blocks on ch until a complete AABB frame (header, payload, CRC)
// has arrived, verifying the CRC before returning.
func RecvAABB(ch *channel.Channel) (wire.AABB, []byte, error) {
	hdr := make([]byte, wire.AABBHeaderSize)
	if _, err := readFull(ch, hdr); err != nil {
		return wire.AABB{}, nil, err
	}
	h, err := wire.DecodeAABBHeader(hdr)
	if err != nil {
		return wire.AABB{}, nil, newProtocolError("decode AABB header: %w", err)
	}
	rest := make([]byte, int(h.Length)+wire.AABBCRCSize)
	if _, err := readFull(ch, rest); err != nil {
		return wire.AABB{}, nil, err
	}
	payload := rest[:h.Length]
	crc := uint16(rest[h.Length])<<8 | uint16(rest[h.Length+1])
	if err := wire.VerifyAABBPayload(payload, crc); err != nil {
		return wire.AABB{}, nil, newProtocolError("%w", err)
	}
	return h, payload, nil
}

// RecvAABBReply reads one AABB frame and interprets its single-byte payload
// as a wire.FileTransferReply. If check is true, a non-OK status is
// returned as a ProtocolError rather than a plain value, matching the
// source's aabb_request(check=True) default.
func RecvAABBReply(ch *channel.Channel, check bool) (wire.FileTransferReply, error) {
	_, payload, err := RecvAABB(ch)
	if err != nil {
		return 0, err
	}
	if len(payload) != 1 {
		return 0, newProtocolError("%w: got %d bytes", ErrUnexpectedReply, len(payload))
	}
	reply := wire.FileTransferReply(payload[0])
	if check && reply != wire.FileTransferOK {
		return reply, newProtocolError("aabb request failed: %s (0x%02x)", reply, uint8(reply))
	}
	return reply, nil
}

// AABBRequest sends an AABB request frame and blocks for its reply,
// combining SendAABB and RecvAABBReply the way the source's aabb_request
// does.
func AABBRequest(ch *channel.Channel, h wire.AABB, payload []byte, check bool) (wire.FileTransferReply, error) {
	if err := SendAABB(ch, h, payload); err != nil {
		return 0, err
	}
	return RecvAABBReply(ch, check)
}

// readFull reads exactly len(buf) bytes from ch, blocking across multiple
// Read calls as needed.
func readFull(ch *channel.Channel, buf []byte) (int, error) {
	total := 0
	for total < len(buf) {
		n, err := ch.Read(buf[total:])
		if err != nil {
			return total, err
		}
		total += n
	}
	return total, nil
}
