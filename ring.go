// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package lfq

import (
	"code.hybscloud.com/atomix"
	"code.hybscloud.com/spin"
)

// Ring is a bounded, lock-free multi-producer multi-consumer FIFO queue.
//
// Producers and consumers coordinate through a CAS on a monotonically
// increasing ticket (head for producers, tail for consumers) and a
// per-slot sequence number that encodes whether the slot is empty and
// awaiting a producer, or full and awaiting a consumer. No mutex is ever
// taken; the only retry is a spin hint on a lost CAS.
//
// Ring provides full ABA safety via the sequence/ticket comparison and
// works correctly regardless of how many goroutines call Send or Recv
// concurrently, including exactly one of each (SPSC) or one of either
// (MPSC/SPMC) — those are simply restricted uses of the same protocol.
//
// Memory: capacity slots of 64 bytes plus the size of T each: the sequence
// number is padded to 64 bytes and the element is stored on top of that, so
// a slot is not sized or aligned to exactly one cache line.
type Ring[T any] struct {
	_        pad
	head     atomix.Uint64 // next ticket to be claimed by a producer
	_        pad
	tail     atomix.Uint64 // next ticket to be claimed by a consumer
	_        pad
	buffer   []ringSlot[T]
	mask     uint64
	capacity uint64
	handleRC refcount // shared by every Producer/Consumer handle over this ring
}

type ringSlot[T any] struct {
	seq atomix.Uint64
	data T
	_    padShort // pads seq to 64 bytes; data adds to that
}

// NewRing creates a new Ring with the given capacity.
//
// Capacity rounds up to the next power of 2 (capacity=10 yields an actual
// capacity of 16). Panics if capacity < 1 — construction-time invariant
// violations are fatal and never return an error.
func NewRing[T any](capacity int) *Ring[T] {
	if capacity < 1 {
		panic("lfq: capacity must be >= 1")
	}

	n := uint64(roundToPow2(capacity))
	r := &Ring[T]{
		buffer:   make([]ringSlot[T], n),
		mask:     n - 1,
		capacity: n,
	}

	for i := uint64(0); i < n; i++ {
		r.buffer[i].seq.StoreRelaxed(i)
	}

	return r
}

// Send attempts to enqueue *elem without blocking.
//
// elem is copied into the ring's slot storage; the caller keeps ownership
// of *elem regardless of the outcome, since it is never moved out from
// under the caller. Returns ErrFull if the ring has no slot available for
// the caller's ticket.
//
// The head-tail distance is checked against capacity before every claim
// attempt, not only when the target slot's sequence says it still belongs
// to a prior round. For capacity 1, "full, awaiting consumer" (sequence
// t+1) and "empty, awaiting the next round's producer" (sequence t+C)
// are the same value, so a slot can read as structurally available
// (diff==0) one ticket after it was actually filled; the upfront
// head-tail check is what still reports that ticket as Full instead of
// overwriting the unconsumed item.
func (r *Ring[T]) Send(elem *T) error {
	sw := spin.Wait{}
	for {
		head := r.head.LoadAcquire()
		tail := r.tail.LoadAcquire()
		if head-tail >= r.capacity {
			return ErrFull
		}

		slot := &r.buffer[head&r.mask]
		seq := slot.seq.LoadAcquire()
		diff := int64(seq) - int64(head)

		switch diff {
		case 0:
			// Slot is empty and awaiting this ticket. Claim it.
			if r.head.CompareAndSwapAcqRel(head, head+1) {
				slot.data = *elem
				slot.seq.StoreRelease(head + 1)
				return nil
			}
			// Lost the race for this ticket; retry with a fresh head.
		}
		// diff < 0: the slot still belongs to a prior round, but the
		// check above already ruled out Full, so the consumer holding
		// it is mid-release. diff > 0 is transient (another producer is
		// between CAS and release). Either way, loop and reload.
		sw.Once()
	}
}

// Recv attempts to dequeue an item without blocking.
//
// Returns the zero value and ErrEmpty if no item is available for the
// caller's ticket.
func (r *Ring[T]) Recv() (T, error) {
	sw := spin.Wait{}
	for {
		tail := r.tail.LoadAcquire()
		slot := &r.buffer[tail&r.mask]
		seq := slot.seq.LoadAcquire()
		diff := int64(seq) - int64(tail+1)

		switch {
		case diff == 0:
			if r.tail.CompareAndSwapAcqRel(tail, tail+1) {
				elem := slot.data
				var zero T
				slot.data = zero
				slot.seq.StoreRelease(tail + r.capacity)
				return elem, nil
			}
		case diff < 0:
			var zero T
			return zero, ErrEmpty
		}
		sw.Once()
	}
}

// Cap returns the ring's effective capacity (always a power of 2).
func (r *Ring[T]) Cap() int {
	return int(r.capacity)
}

// Len returns a snapshot of the number of items currently queued.
//
// Like the original source this protocol was distilled from, Len is a
// snapshot: by the time the caller observes the result it may already be
// stale. Use it for metrics/diagnostics, not for correctness decisions.
func (r *Ring[T]) Len() int {
	head := r.head.LoadAcquire()
	tail := r.tail.LoadAcquire()
	return int(head - tail)
}

// IsEmpty reports whether the ring held zero items at the instant of the
// snapshot load.
func (r *Ring[T]) IsEmpty() bool {
	return r.Len() == 0
}

// IsFull reports whether the ring held capacity items at the instant of
// the snapshot load.
func (r *Ring[T]) IsFull() bool {
	return r.Len() >= int(r.capacity)
}

// drainStep destructs one queued payload, if any, during exclusive
// teardown. It returns false once it reaches the first empty slot. No
// concurrency is assumed while this runs.
func (r *Ring[T]) drainStep() bool {
	tail := r.tail.LoadRelaxed()
	slot := &r.buffer[tail&r.mask]
	if slot.seq.LoadRelaxed() != tail+1 {
		return false
	}
	var zero T
	slot.data = zero
	r.tail.StoreRelaxed(tail + 1)
	return true
}
