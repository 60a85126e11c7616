// SPDX-License-Identifier: AGPL-3.0-only

// Package ppppqueue provides the small ordered backlog structures a channel
// needs: pending writes not yet chunked onto the wire, and in-flight
// segments awaiting acknowledgement. Both are thin, typed wrappers over
// eapache/queue's ring-buffer FIFO.
package ppppqueue

import (
	"time"

	"github.com/eapache/queue"
)

// Segment is one in-flight DRW awaiting acknowledgement.
type Segment struct {
	Index   uint16
	Data    []byte
	SentAt  time.Time
	Retries uint32
}

// InFlight is an ordered collection of unacknowledged segments, indexed by
// sequence number for O(1) ack removal and walked in send order for
// retransmission scans.
type InFlight struct {
	order *queue.Queue
	byIdx map[uint16]*Segment
}

// NewInFlight returns an empty in-flight set.
func NewInFlight() *InFlight {
	return &InFlight{
		order: queue.New(),
		byIdx: make(map[uint16]*Segment),
	}
}

// Push records a newly sent segment.
func (f *InFlight) Push(s *Segment) {
	f.order.Add(s)
	f.byIdx[s.Index] = s
}

// Ack removes the segment at idx, if present, reporting whether it was
// in flight.
func (f *InFlight) Ack(idx uint16) bool {
	s, ok := f.byIdx[idx]
	if !ok {
		return false
	}
	delete(f.byIdx, idx)
	s.Data = nil // let the GC reclaim the payload; the queue slot lingers until Each trims it off the front.
	return true
}

// Len reports the number of segments still genuinely in flight (pushed,
// not yet acked). This can be less than the backing queue's length because
// Ack doesn't compact immediately.
func (f *InFlight) Len() int {
	return len(f.byIdx)
}

// Each walks every still-in-flight segment in send order, oldest first,
// compacting acked entries off the front of the queue as it goes.
func (f *InFlight) Each(fn func(*Segment)) {
	for f.order.Length() > 0 {
		s := f.order.Peek().(*Segment)
		if _, live := f.byIdx[s.Index]; !live {
			f.order.Remove()
			continue
		}
		break
	}
	for i := 0; i < f.order.Length(); i++ {
		s := f.order.Get(i).(*Segment)
		if _, live := f.byIdx[s.Index]; live {
			fn(s)
		}
	}
}

// Backlog is the FIFO of chunked-but-unsent write payloads waiting for
// window space to open up.
type Backlog struct {
	q *queue.Queue
}

// NewBacklog returns an empty backlog.
func NewBacklog() *Backlog {
	return &Backlog{q: queue.New()}
}

// Push appends a chunk to the back of the backlog.
func (b *Backlog) Push(chunk []byte) {
	b.q.Add(chunk)
}

// Pop removes and returns the oldest chunk, or (nil, false) if empty.
func (b *Backlog) Pop() ([]byte, bool) {
	if b.q.Length() == 0 {
		return nil, false
	}
	chunk := b.q.Peek().([]byte)
	b.q.Remove()
	return chunk, true
}

// Len reports the number of chunks waiting.
func (b *Backlog) Len() int {
	return b.q.Length()
}
