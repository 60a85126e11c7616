// SPDX-License-Identifier: AGPL-3.0-only

package channel

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestWriteChunksAndPollEmitsSegments(t *testing.T) {
	c := NewWithLimits(0, 64, 4, time.Second, nil)

	done := make(chan struct{})
	go func() {
		c.Write([]byte("twelvebytes!"), true) // 3 chunks of 4 bytes
		close(done)
	}()

	now := time.Now()
	var segs []Segment
	require.Eventually(t, func() bool {
		segs = c.Poll(now)
		return len(segs) == 3
	}, time.Second, time.Millisecond)

	require.Equal(t, uint16(0), segs[0].Index)
	require.Equal(t, uint16(1), segs[1].Index)
	require.Equal(t, uint16(2), segs[2].Index)

	c.RxAck([]uint16{1, 0, 2}) // reordered acks still cumulative-advance
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("blocking write did not unblock after full ack")
	}
}

func TestWriteReturnsSequenceWindow(t *testing.T) {
	c := NewWithLimits(0, 64, 4, time.Second, nil)

	done := make(chan struct{})
	var start, end uint16
	var werr error
	go func() {
		start, end, werr = c.Write([]byte("twelvebytes!"), true) // 3 chunks of 4 bytes
		close(done)
	}()

	now := time.Now()
	require.Eventually(t, func() bool {
		return len(c.Poll(now)) > 0 || c.inFlight.Len() == 3
	}, time.Second, time.Millisecond)
	c.RxAck([]uint16{0, 1, 2})

	<-done
	require.NoError(t, werr)
	require.Equal(t, uint16(0), start)
	require.Equal(t, uint16(3), end)
}

func TestRetransmitOnTimeout(t *testing.T) {
	c := NewWithLimits(0, 64, 1024, 10*time.Millisecond, nil)
	c.Write([]byte("hello"), false)

	t0 := time.Now()
	first := c.Poll(t0)
	require.Len(t, first, 1)

	// before the retransmit deadline, nothing new is due.
	again := c.Poll(t0.Add(time.Millisecond))
	require.Empty(t, again)

	// past the deadline, the unacked segment is retransmitted.
	retx := c.Poll(t0.Add(20 * time.Millisecond))
	require.Len(t, retx, 1)
	require.Equal(t, first[0].Index, retx[0].Index)
}

func TestRxDRWReassemblesOutOfOrder(t *testing.T) {
	c := New(0)
	c.RxDRW(1, []byte("B"))
	c.RxDRW(0, []byte("A"))
	c.RxDRW(2, []byte("C"))

	buf := make([]byte, 3)
	n, err := c.Read(buf)
	require.NoError(t, err)
	require.Equal(t, 3, n)
	require.Equal(t, "ABC", string(buf))
}

func TestRxDRWDropsStaleRetransmit(t *testing.T) {
	c := New(0)
	c.RxDRW(0, []byte("A"))

	buf := make([]byte, 1)
	_, err := c.Read(buf)
	require.NoError(t, err)

	// a duplicate/stale retransmit of an already-delivered index is dropped,
	// not re-appended to the read stream.
	c.RxDRW(0, []byte("A"))
	done := make(chan struct{})
	go func() {
		more := make([]byte, 1)
		c.Read(more)
		close(done)
	}()
	select {
	case <-done:
		t.Fatal("stale retransmit should not have produced new read data")
	case <-time.After(50 * time.Millisecond):
	}
}
