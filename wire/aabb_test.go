// SPDX-License-Identifier: AGPL-3.0-only

package wire

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAABBEncodeDecodeRoundTrip(t *testing.T) {
	payload := []byte("gcode chunk")
	frame := EncodeAABB(AABB{FrameType: 1, Serial: 42, Pos: 100}, payload)

	hdr, err := DecodeAABBHeader(frame[:AABBHeaderSize])
	require.NoError(t, err)
	require.Equal(t, uint16(1), hdr.FrameType)
	require.Equal(t, uint16(42), hdr.Serial)
	require.Equal(t, uint16(100), hdr.Pos)
	require.Equal(t, uint16(len(payload)), hdr.Length)

	got := frame[AABBHeaderSize : AABBHeaderSize+int(hdr.Length)]
	crc := frame[AABBHeaderSize+int(hdr.Length):]
	require.NoError(t, VerifyAABBPayload(got, uint16(crc[0])<<8|uint16(crc[1])))
}

func TestAABBCorruptPayloadRejected(t *testing.T) {
	payload := []byte("gcode chunk")
	frame := EncodeAABB(AABB{FrameType: 1, Serial: 1, Pos: 0}, payload)

	// flip a single bit in the payload, leaving the trailing CRC untouched.
	frame[AABBHeaderSize] ^= 0x01

	got := frame[AABBHeaderSize : AABBHeaderSize+len(payload)]
	crc := frame[AABBHeaderSize+len(payload):]
	err := VerifyAABBPayload(got, uint16(crc[0])<<8|uint16(crc[1]))
	require.Error(t, err)
	require.IsType(t, &ErrCorrupt{}, err)
}

func TestAABBHeaderSizeIsTwelveBytes(t *testing.T) {
	require.Equal(t, 12, AABBHeaderSize)
}
