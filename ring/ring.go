// Package ring implements the bounded FIFO that hands received CAN frames
// from the polling intake context to a consuming reader.
//
// The protocol separates the two sides deliberately: producer operations
// (TryClaimEmpty, Publish) never block, matching the no-block constraint of
// the interrupt-equivalent context that drives them; the consumer claim may
// wait with a caller-chosen timeout. The buffer is the only synchronization
// surface between the two contexts and assumes a single producer and a
// single consumer.
package ring

import (
	"sync"
	"time"

	"github.com/dirtcrusher/cansim/can"
)

// DefaultCapacity is the slot count used when New is given a non-positive
// capacity.
const DefaultCapacity = 4

// Immediate makes ClaimFull return without waiting when no frame is ready.
const Immediate time.Duration = 0

// Forever makes ClaimFull wait until a frame is published.
const Forever time.Duration = -1

// Buffer is a fixed-capacity circular buffer of frame slots. The backing
// array is allocated once at construction and never resized; slots move
// through empty -> filling -> full -> draining and back, one at a time on
// each side.
type Buffer struct {
	mu       sync.Mutex
	slots    []can.Frame
	head     int // oldest full slot, next to drain
	tail     int // next empty slot to fill
	used     int // full or draining slots
	filling  bool
	draining bool

	// avail carries one token per published slot; buffered to capacity so
	// Publish can signal without ever blocking.
	avail chan struct{}
}

// New creates a buffer with the given slot count (DefaultCapacity if
// capacity <= 0).
func New(capacity int) *Buffer {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Buffer{
		slots: make([]can.Frame, capacity),
		avail: make(chan struct{}, capacity),
	}
}

// Cap returns the slot count.
func (b *Buffer) Cap() int { return len(b.slots) }

// Len returns the number of published frames awaiting consumption.
func (b *Buffer) Len() int {
	b.mu.Lock()
	n := b.used
	if b.draining {
		n--
	}
	b.mu.Unlock()
	return n
}

// Empty reports whether no published frame is waiting.
func (b *Buffer) Empty() bool { return b.Len() == 0 }

// TryClaimEmpty hands the producer the next empty slot to fill, or nil when
// the buffer is saturated. It never blocks: a nil return means the incoming
// frame must be dropped, which is the intended overload shedding of this
// driver rather than a fault.
func (b *Buffer) TryClaimEmpty() *can.Frame {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.filling {
		panic("ring: TryClaimEmpty with a claim outstanding")
	}
	if b.used == len(b.slots) {
		return nil
	}
	b.filling = true
	return &b.slots[b.tail]
}

// Publish marks the slot claimed by TryClaimEmpty as full and wakes a
// consumer waiting in ClaimFull. Never blocks.
func (b *Buffer) Publish() {
	b.mu.Lock()
	if !b.filling {
		b.mu.Unlock()
		panic("ring: Publish without a claimed slot")
	}
	b.filling = false
	b.tail = (b.tail + 1) % len(b.slots)
	b.used++
	b.mu.Unlock()
	b.avail <- struct{}{}
}

// ClaimFull hands the consumer the oldest published slot, waiting up to
// timeout for one to appear. Immediate never waits, Forever (any negative
// value) waits indefinitely. Returns nil when the wait expires with nothing
// published. The caller must copy the slot's contents out and call Release
// before claiming again.
func (b *Buffer) ClaimFull(timeout time.Duration) *can.Frame {
	switch {
	case timeout == Immediate:
		select {
		case <-b.avail:
		default:
			return nil
		}
	case timeout < 0:
		<-b.avail
	default:
		t := time.NewTimer(timeout)
		defer t.Stop()
		select {
		case <-b.avail:
		case <-t.C:
			return nil
		}
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.draining {
		panic("ring: ClaimFull with a claim outstanding")
	}
	b.draining = true
	return &b.slots[b.head]
}

// Release returns the slot claimed by ClaimFull to the empty pool.
func (b *Buffer) Release() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.draining {
		panic("ring: Release without a claimed slot")
	}
	b.draining = false
	b.head = (b.head + 1) % len(b.slots)
	b.used--
}

// Reset discards all buffered frames and outstanding claims. Only valid
// while neither side is active; lifecycle transitions must be serialized
// against the intake loop by the caller.
func (b *Buffer) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.head, b.tail, b.used = 0, 0, 0
	b.filling, b.draining = false, false
	for {
		select {
		case <-b.avail:
		default:
			return
		}
	}
}
