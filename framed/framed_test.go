// SPDX-License-Identifier: AGPL-3.0-only

package framed

import (
	"testing"
	"time"

	"github.com/fleetlink/pppp/channel"
	"github.com/fleetlink/pppp/wire"
	"github.com/stretchr/testify/require"
)

// loopback wires one channel's outbound DRW segments directly into a
// second channel's RxDRW and acknowledges each one back to the sender, as
// session dispatch would, skipping the driver/socket layer entirely.
func loopback(t *testing.T, a, b *channel.Channel, stop <-chan struct{}) {
	t.Helper()
	go func() {
		for {
			select {
			case <-stop:
				return
			default:
			}
			now := time.Now()
			for _, seg := range a.Poll(now) {
				b.RxDRW(seg.Index, seg.Data)
				a.RxAck([]uint16{seg.Index})
			}
			for _, seg := range b.Poll(now) {
				a.RxDRW(seg.Index, seg.Data)
				b.RxAck([]uint16{seg.Index})
			}
			time.Sleep(time.Millisecond)
		}
	}()
}

func TestXZYHRoundTripOverLoopbackChannel(t *testing.T) {
	a := channel.NewWithLimits(0, 64, 1024, 50*time.Millisecond, nil)
	b := channel.NewWithLimits(0, 64, 1024, 50*time.Millisecond, nil)
	stop := make(chan struct{})
	defer close(stop)
	loopback(t, a, b, stop)

	type window struct {
		start, end uint16
		err        error
	}
	windows := make(chan window, 1)
	go func() {
		start, end, err := SendXZYH(a, 42, []byte("print start"))
		windows <- window{start, end, err}
	}()

	got, err := RecvXZYH(b)
	require.NoError(t, err)
	require.Equal(t, uint16(42), got.Command)
	require.Equal(t, "print start", string(got.Data))

	w := <-windows
	require.NoError(t, w.err)
	require.Equal(t, uint16(0), w.start)
	require.Equal(t, uint16(1), w.end) // one 1024-byte chunk holds the whole frame
}

func TestAABBRequestReplyOverLoopbackChannel(t *testing.T) {
	req := channel.NewWithLimits(1, 64, 1024, 50*time.Millisecond, nil)
	resp := channel.NewWithLimits(1, 64, 1024, 50*time.Millisecond, nil)
	stop := make(chan struct{})
	defer close(stop)
	loopback(t, req, resp, stop)

	go func() {
		h, payload, err := RecvAABB(resp)
		require.NoError(t, err)
		require.Equal(t, "hello", string(payload))
		_ = h
		SendAABB(resp, wire.AABB{FrameType: 1}, []byte{byte(wire.FileTransferOK)})
	}()

	reply, err := AABBRequest(req, wire.AABB{FrameType: 1}, []byte("hello"), true)
	require.NoError(t, err)
	require.Equal(t, wire.FileTransferOK, reply)
}

func TestAABBRequestReplyNonOKIsError(t *testing.T) {
	req := channel.NewWithLimits(1, 64, 1024, 50*time.Millisecond, nil)
	resp := channel.NewWithLimits(1, 64, 1024, 50*time.Millisecond, nil)
	stop := make(chan struct{})
	defer close(stop)
	loopback(t, req, resp, stop)

	go func() {
		_, _, err := RecvAABB(resp)
		require.NoError(t, err)
		SendAABB(resp, wire.AABB{FrameType: 1}, []byte{byte(wire.FileTransferNoSpace)})
	}()

	_, err := AABBRequest(req, wire.AABB{FrameType: 1}, []byte("x"), true)
	require.Error(t, err)
}
