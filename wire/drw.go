// SPDX-License-Identifier: AGPL-3.0-only

package wire

import "encoding/binary"

// DRW carries one reliable-channel data segment: the channel index, its
// sequence number, and its payload bytes.
type DRW struct {
	Channel uint8
	Index   uint16
	Data    []byte
}

func (*DRW) Type() Type { return TypeDRW }
func (d *DRW) payload() []byte {
	out := make([]byte, 3+len(d.Data))
	out[0] = d.Channel
	binary.BigEndian.PutUint16(out[1:3], d.Index)
	copy(out[3:], d.Data)
	return out
}

func decodeDRW(body []byte) (Packet, error) {
	if len(body) < 3 {
		return nil, &ErrTruncated{Type: TypeDRW, Want: 3, Got: len(body)}
	}
	d := &DRW{
		Channel: body[0],
		Index:   binary.BigEndian.Uint16(body[1:3]),
		Data:    append([]byte(nil), body[3:]...),
	}
	return d, nil
}

// DRWAck acknowledges one or more DRW sequence numbers on a channel.
type DRWAck struct {
	Channel uint8
	Acks    []uint16
}

func (*DRWAck) Type() Type { return TypeDRWAck }
func (d *DRWAck) payload() []byte {
	out := make([]byte, 2+2*len(d.Acks))
	out[0] = d.Channel
	out[1] = uint8(len(d.Acks))
	for i, a := range d.Acks {
		binary.BigEndian.PutUint16(out[2+2*i:], a)
	}
	return out
}

func decodeDRWAck(body []byte) (Packet, error) {
	if len(body) < 2 {
		return nil, &ErrTruncated{Type: TypeDRWAck, Want: 2, Got: len(body)}
	}
	channel := body[0]
	count := int(body[1])
	want := 2 + 2*count
	if len(body) < want {
		return nil, &ErrTruncated{Type: TypeDRWAck, Want: want, Got: len(body)}
	}
	acks := make([]uint16, count)
	for i := 0; i < count; i++ {
		acks[i] = binary.BigEndian.Uint16(body[2+2*i:])
	}
	return &DRWAck{Channel: channel, Acks: acks}, nil
}
