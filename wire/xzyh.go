// SPDX-License-Identifier: AGPL-3.0-only

package wire

import (
	"encoding/binary"
	"fmt"
)

// XZYHMagic is the 4-byte magic that opens every XZYH frame.
var XZYHMagic = [4]byte{'X', 'Z', 'Y', 'H'}

// XZYHHeaderSize is the fixed size of an XZYH frame header, preserved
// bit-exact on the wire.
const XZYHHeaderSize = 16

// XZYH is the request-frame format layered on top of a channel. The five
// reserved/typed trailer bytes are opaque to the transport; callers that
// don't need them leave them zero.
type XZYH struct {
	Command  uint16
	Length   uint32
	Channel  uint8
	Unk0     uint8
	Unk1     uint8
	SignCode uint8
	Unk3     uint8
	DevType  uint8
	Data     []byte
}

// Encode serializes the frame header plus payload for a channel Write.
func (x *XZYH) Encode() []byte {
	out := make([]byte, XZYHHeaderSize+len(x.Data))
	copy(out[0:4], XZYHMagic[:])
	binary.BigEndian.PutUint16(out[4:6], x.Command)
	binary.BigEndian.PutUint32(out[6:10], uint32(len(x.Data)))
	out[10] = x.Channel
	out[11] = x.Unk0
	out[12] = x.Unk1
	out[13] = x.SignCode
	out[14] = x.Unk3
	out[15] = x.DevType
	copy(out[XZYHHeaderSize:], x.Data)
	return out
}

// DecodeXZYHHeader parses the fixed 16-byte header. The caller is expected
// to read header.Length further bytes from the channel as the payload.
func DecodeXZYHHeader(buf []byte) (*XZYH, error) {
	if len(buf) < XZYHHeaderSize {
		return nil, fmt.Errorf("wire: short XZYH header: %d bytes", len(buf))
	}
	if string(buf[0:4]) != string(XZYHMagic[:]) {
		return nil, fmt.Errorf("wire: bad XZYH magic %x", buf[0:4])
	}
	return &XZYH{
		Command:  binary.BigEndian.Uint16(buf[4:6]),
		Length:   binary.BigEndian.Uint32(buf[6:10]),
		Channel:  buf[10],
		Unk0:     buf[11],
		Unk1:     buf[12],
		SignCode: buf[13],
		Unk3:     buf[14],
		DevType:  buf[15],
	}, nil
}
