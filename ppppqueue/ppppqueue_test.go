// SPDX-License-Identifier: AGPL-3.0-only

package ppppqueue

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestInFlightAckRemoves(t *testing.T) {
	f := NewInFlight()
	f.Push(&Segment{Index: 1, Data: []byte("a"), SentAt: time.Unix(0, 0)})
	f.Push(&Segment{Index: 2, Data: []byte("b"), SentAt: time.Unix(0, 0)})
	require.Equal(t, 2, f.Len())

	require.True(t, f.Ack(1))
	require.False(t, f.Ack(1)) // already removed
	require.Equal(t, 1, f.Len())

	var seen []uint16
	f.Each(func(s *Segment) { seen = append(seen, s.Index) })
	require.Equal(t, []uint16{2}, seen)
}

func TestBacklogFIFOOrder(t *testing.T) {
	b := NewBacklog()
	b.Push([]byte("one"))
	b.Push([]byte("two"))
	require.Equal(t, 2, b.Len())

	chunk, ok := b.Pop()
	require.True(t, ok)
	require.Equal(t, "one", string(chunk))

	chunk, ok = b.Pop()
	require.True(t, ok)
	require.Equal(t, "two", string(chunk))

	_, ok = b.Pop()
	require.False(t, ok)
}
