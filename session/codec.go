// SPDX-License-Identifier: AGPL-3.0-only

package session

import (
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/ugorji/go/codec"
)

// MarshalDescriptor encodes a Descriptor with fxamacker/cbor/v2, the
// library used for data crossing a process boundary (a dial request handed
// to a separate enrollment/supervisor process, say).
func MarshalDescriptor(d Descriptor) ([]byte, error) {
	return cbor.Marshal(d)
}

// UnmarshalDescriptor decodes a Descriptor previously produced by
// MarshalDescriptor.
func UnmarshalDescriptor(data []byte) (Descriptor, error) {
	var d Descriptor
	err := cbor.Unmarshal(data, &d)
	return d, err
}

// Snapshot is a point-in-time dump of a session's own bookkeeping state,
// useful for debug logging or a status RPC. It is never persisted to disk;
// producing one is a pure function over state the Session already owns.
type Snapshot struct {
	DUID  string
	State string
	Peer  string

	Channels [NumChannels]ChannelSnapshot
}

// ChannelSnapshot is one channel's counters at snapshot time.
type ChannelSnapshot struct {
	Index    uint8
	TakenAt  time.Time
	TxCtr    uint16
	TxAck    uint16
	RxCtr    uint16
	InFlight int
}

// TakeSnapshot captures s's current state. Encoded with ugorji/go/codec
// (rather than fxamacker/cbor/v2, used for Descriptor) since this value
// never leaves the process — it mirrors the teacher's own split between the
// two CBOR libraries for two different concerns.
func (s *Session) TakeSnapshot(now time.Time) Snapshot {
	peer, _ := s.PeerAddr()
	snap := Snapshot{
		DUID:  s.duid.String(),
		State: s.state.String(),
		Peer:  peer.String(),
	}
	for i, ch := range s.channels {
		c := ch.Counters()
		snap.Channels[i] = ChannelSnapshot{
			Index:    uint8(i),
			TakenAt:  now,
			TxCtr:    c.TxCtr,
			TxAck:    c.TxAck,
			RxCtr:    c.RxCtr,
			InFlight: c.InFlight,
		}
	}
	return snap
}

var cborHandle = &codec.CborHandle{}

// MarshalSnapshot encodes a Snapshot with ugorji/go/codec.
func MarshalSnapshot(s Snapshot) ([]byte, error) {
	var buf []byte
	err := codec.NewEncoderBytes(&buf, cborHandle).Encode(s)
	return buf, err
}

// UnmarshalSnapshot decodes a Snapshot previously produced by
// MarshalSnapshot.
func UnmarshalSnapshot(data []byte) (Snapshot, error) {
	var s Snapshot
	err := codec.NewDecoderBytes(data, cborHandle).Decode(&s)
	return s, err
}
