// SPDX-License-Identifier: AGPL-3.0-only

// Package channel implements one of the eight reliable, ordered byte
// streams multiplexed over a session's single UDP socket: chunking and
// backlogging writes, windowed selective-repeat delivery of DRW segments,
// and reassembly of inbound segments into an ordered read stream.
package channel

import (
	"bytes"
	"io"
	"sync"
	"time"

	"github.com/fleetlink/pppp/ppppqueue"
)

// Defaults mirror the source's hardcoded channel constants; config.Config
// overrides them per-Session at construction time.
const (
	DefaultMaxInFlight = 64
	DefaultChunkSize   = 1024
	DefaultRetransmit  = 500 * time.Millisecond
)

// Segment is one pending or in-flight outbound DRW, named for symmetry with
// ppppqueue.Segment but scoped to this package's own Poll bookkeeping.
type Segment = ppppqueue.Segment

// Metrics is the nil-safe counters hook a Channel reports through; the
// metrics package's Prometheus collectors implement it, but a Channel built
// without one (tests, or a caller that doesn't care) works unmodified.
type Metrics interface {
	BytesWritten(ch uint8, n int)
	BytesRead(ch uint8, n int)
	Retransmitted(ch uint8)
	InFlight(ch uint8, n int)
}

type noopMetrics struct{}

func (noopMetrics) BytesWritten(uint8, int) {}
func (noopMetrics) BytesRead(uint8, int)    {}
func (noopMetrics) Retransmitted(uint8)     {}
func (noopMetrics) InFlight(uint8, int)     {}

// Channel is one of the eight multiplexed reliable streams. All exported
// methods are safe for concurrent use.
type Channel struct {
	mu sync.Mutex

	index       uint8
	maxInFlight int
	chunkSize   int
	timeout     time.Duration

	rxQueue map[uint16][]byte
	rxCtr   uint16

	backlog  *ppppqueue.Backlog
	inFlight *ppppqueue.InFlight
	txCtr    uint16
	txAck    uint16
	acked    map[uint16]struct{}

	readBuf bytes.Buffer

	// wake is a cap-1 signal channel: writers/readers block receiving from
	// it, and Poll/RxAck/RxDRW send a non-blocking wake after mutating state
	// any blocked caller might care about. Mirrors the teacher's
	// onRead/onWrite/onAck idiom rather than a sync.Cond.
	wake   chan struct{}
	closed chan struct{}

	metrics Metrics
}

// New constructs a Channel with the source's hardcoded defaults.
func New(index uint8) *Channel {
	return NewWithLimits(index, DefaultMaxInFlight, DefaultChunkSize, DefaultRetransmit, nil)
}

// NewWithLimits constructs a Channel with caller-supplied tunables; a nil
// metrics hook installs a no-op.
func NewWithLimits(index uint8, maxInFlight, chunkSize int, timeout time.Duration, metrics Metrics) *Channel {
	if metrics == nil {
		metrics = noopMetrics{}
	}
	return &Channel{
		index:       index,
		maxInFlight: maxInFlight,
		chunkSize:   chunkSize,
		timeout:     timeout,
		rxQueue:     make(map[uint16][]byte),
		backlog:     ppppqueue.NewBacklog(),
		inFlight:    ppppqueue.NewInFlight(),
		acked:       make(map[uint16]struct{}),
		wake:        make(chan struct{}, 1),
		closed:      make(chan struct{}),
		metrics:     metrics,
	}
}

// Index is the channel's 0..7 multiplexing slot.
func (c *Channel) Index() uint8 { return c.index }

// Counters is a point-in-time snapshot of the channel's sequence-number and
// window bookkeeping, for debug/status reporting.
type Counters struct {
	TxCtr    uint16
	TxAck    uint16
	RxCtr    uint16
	InFlight int
}

// Counters reports TxCtr/TxAck/RxCtr/in-flight count under the channel's
// lock, the fields SPEC_FULL §3 names for a per-channel snapshot.
func (c *Channel) Counters() Counters {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Counters{
		TxCtr:    c.txCtr,
		TxAck:    c.txAck,
		RxCtr:    c.rxCtr,
		InFlight: c.inFlight.Len(),
	}
}

// Close unblocks any in-progress or future Read/Write, which return
// io.EOF. Safe to call more than once.
func (c *Channel) Close() {
	c.mu.Lock()
	select {
	case <-c.closed:
	default:
		close(c.closed)
	}
	c.mu.Unlock()
	c.signal()
}

func (c *Channel) isClosed() bool {
	select {
	case <-c.closed:
		return true
	default:
		return false
	}
}

func (c *Channel) signal() {
	select {
	case c.wake <- struct{}{}:
	default:
	}
}

// windowDelta returns idx's forward distance from base on the 16-bit
// wrapping sequence space: the REDESIGN fix for the source's raw-integer
// rx_ctr comparison, which misbehaves once tx_ctr wraps past 0xFFFF.
func windowDelta(base, idx uint16) uint16 {
	return idx - base
}

// RxDRW records an inbound data segment and reassembles any now-contiguous
// run into the read buffer. index is the segment's sequence number as
// received; segments behind the reassembly cursor (already delivered,
// compared modulo 2^16) are dropped rather than buffered forever.
func (c *Channel) RxDRW(index uint16, data []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()

	behind := windowDelta(index, c.rxCtr) // how far index trails rxCtr, mod 2^16
	if behind > 0 && behind < 0x8000 {
		// stale retransmit of an already-delivered segment; harmless to drop.
		return
	}

	c.rxQueue[index] = data
	for {
		seg, ok := c.rxQueue[c.rxCtr]
		if !ok {
			break
		}
		delete(c.rxQueue, c.rxCtr)
		c.rxCtr++
		c.readBuf.Write(seg)
		c.metrics.BytesRead(c.index, len(seg))
	}
	c.signal()
}

// RxAck removes acknowledged segments from the in-flight set and advances
// the cumulative tx_ack cursor through any now-contiguous run of acks.
func (c *Channel) RxAck(acks []uint16) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, idx := range acks {
		c.inFlight.Ack(idx)
		if windowDelta(c.txAck, idx) < 0x8000 {
			c.acked[idx] = struct{}{}
		}
	}
	for {
		if _, ok := c.acked[c.txAck]; !ok {
			break
		}
		delete(c.acked, c.txAck)
		c.txAck++
	}
	c.metrics.InFlight(c.index, c.inFlight.Len())
	c.signal()
}

// Poll promotes backlog entries into the in-flight window and returns every
// segment due for (re)transmission at now, rescheduling each for timeout
// past the deadline that just fired.
func (c *Channel) Poll(now time.Time) []Segment {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.signal()

	for c.backlog.Len() > 0 && c.inFlight.Len() < c.maxInFlight {
		chunk, ok := c.backlog.Pop()
		if !ok {
			break
		}
		idx := c.nextTxIndexLocked()
		c.inFlight.Push(&ppppqueue.Segment{Index: idx, Data: chunk, SentAt: now})
	}

	var due []Segment
	c.inFlight.Each(func(s *ppppqueue.Segment) {
		if !s.SentAt.After(now) {
			due = append(due, Segment{Index: s.Index, Data: s.Data, SentAt: s.SentAt, Retries: s.Retries})
			if s.Retries > 0 {
				// s.Retries is only >0 once this segment has already gone out
				// once before, so this is a genuine retransmit, not the
				// first send.
				c.metrics.Retransmitted(c.index)
			}
			// Reschedule from the deadline that just fired, not from now:
			// a late Poll call (the driver was busy elsewhere) shouldn't
			// push every later deadline back by the same slop.
			s.SentAt = s.SentAt.Add(c.timeout)
			s.Retries++
		}
	})
	c.metrics.InFlight(c.index, c.inFlight.Len())
	return due
}

// nextTxIndexLocked assigns the next sequence number as a chunk leaves the
// backlog and enters the in-flight window. Because the backlog is strict
// FIFO and every push happens under c.mu, the index a chunk ultimately
// receives here is the same one it would have gotten had indices been
// assigned at Write time instead — callers computing a target index from
// chunk count (see Write) can rely on that.
func (c *Channel) nextTxIndexLocked() uint16 {
	idx := c.txCtr
	c.txCtr++
	return idx
}

// Write chunks payload into chunkSize-byte segments and enqueues them on
// the backlog; Poll drains the backlog into the in-flight window as space
// allows. When block is true, Write doesn't return until every chunk has
// been acknowledged. The returned (start, end) is the half-open window of
// sequence numbers this write occupies — end is one past the last index
// used, so a zero-length payload returns start == end.
func (c *Channel) Write(payload []byte, block bool) (start, end uint16, err error) {
	c.mu.Lock()
	if c.isClosed() {
		c.mu.Unlock()
		return 0, 0, io.EOF
	}
	total := len(payload)
	// Chunks still in the backlog have not been numbered yet but will take
	// the next indices after txCtr, in FIFO order.
	start = c.txCtr + uint16(c.backlog.Len())
	done := start
	rest := payload
	for len(rest) > 0 {
		n := c.chunkSize
		if n > len(rest) {
			n = len(rest)
		}
		chunk := append([]byte(nil), rest[:n]...)
		rest = rest[n:]
		c.backlog.Push(chunk)
		done++
	}
	end = done
	c.metrics.BytesWritten(c.index, total)
	c.mu.Unlock()

	if !block {
		return start, end, nil
	}
	for {
		<-c.wake
		c.mu.Lock()
		reached := windowDelta(done, c.txAck) < 0x8000
		closed := c.isClosed()
		c.mu.Unlock()
		if reached {
			return start, end, nil
		}
		if closed {
			return start, end, io.EOF
		}
	}
}

// Read blocks until at least one byte is available and returns up to
// len(p) bytes from the reassembled stream. Once Close has been called, a
// Read that finds no buffered bytes returns io.EOF rather than blocking.
func (c *Channel) Read(p []byte) (int, error) {
	for {
		c.mu.Lock()
		if c.readBuf.Len() > 0 {
			n, _ := c.readBuf.Read(p)
			c.mu.Unlock()
			return n, nil
		}
		closed := c.isClosed()
		c.mu.Unlock()
		if closed {
			return 0, io.EOF
		}
		<-c.wake
	}
}
