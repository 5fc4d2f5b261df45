// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package lfq

import (
	"code.hybscloud.com/atomix"
	"code.hybscloud.com/spin"
)

// vectorWidth is the fixed batch-claim width (K in the design docs): four
// 64-bit lanes, claimed with a single CAS on the producer or consumer
// ticket instead of four.
const vectorWidth = 4

// Word64 is the set of element types VectorRing accepts: the three
// concrete 64-bit-wide kinds the batch-claim protocol was specified
// against (unsigned, signed, and IEEE-754 double). Constructing a
// VectorRing for any other type is a compile error, not a runtime
// rejection. Unlike a bit-reinterpreting cast, values round-trip through
// the ring by ordinary Go assignment (slot.data = items[i]). The "64-bit"
// constraint matters only for sizing the cache-line padding and for
// documenting the batch-claim protocol's intended use, since the claim
// itself operates purely on the per-slot sequence numbers, never on the
// payload bits.
type Word64 interface {
	~uint64 | ~int64 | ~float64
}

// vectorSlot holds one element plus its sequence number. Same fields as
// ringSlot, but its padding also accounts for the 8-byte element, so each
// slot is exactly 64 bytes; kept as its own type (rather than reused generically)
// because VectorRing's batch-claim methods are only meaningful under the
// Word64 constraint, and Go does not allow a method set to narrow a
// generic type's constraint after the fact.
type vectorSlot[T Word64] struct {
	seq  atomix.Uint64
	data T
	_    [64 - 16]byte // seq + 8-byte data + pad = one 64-byte cache line
}

// VectorRing is the K=4 batch-claim variant of Ring, restricted to 64-bit
// element types. It implements the same slot/sequence protocol as Ring, so
// a scalar Send/Recv on a VectorRing interoperates safely with a batched
// SendBatch/RecvBatch on the same instance: both paths drive the identical
// per-slot state machine (§4.2's interoperability invariant). VectorRing
// adds SendBatch/RecvBatch, which attempt to claim four contiguous slots
// with a single CAS instead of four.
//
// There is no portable way to ask the Go compiler for a hardware SIMD
// compare across an arbitrary generic element type without hand-written
// per-architecture assembly (see DESIGN.md for why this module does not
// ship any). The batch claim below is therefore a tight, unrolled 4-lane
// comparison in portable Go: the performance win is in the reduced CAS
// count (one CAS per four slots instead of four), not in a
// vector instruction. A build that does carry verified per-architecture
// assembly can swap claimBatchProducer/claimBatchConsumer's sequence-load
// loop for a real SIMD load+compare without touching any other method,
// since the CAS and the per-slot release protocol are unaffected by how
// the four sequences were compared.
type VectorRing[T Word64] struct {
	_        pad
	head     atomix.Uint64
	_        pad
	tail     atomix.Uint64
	_        pad
	buffer   []vectorSlot[T]
	mask     uint64
	capacity uint64
	handleRC refcount // shared by every VectorProducer/VectorConsumer handle over this ring
}

// NewVectorRing creates a VectorRing with the given capacity.
//
// Capacity rounds up to the next power of 2 and is additionally raised to
// at least 2*vectorWidth (8), so a full batch always has room to land
// without immediately wrapping into slots the other side of a round
// boundary still owns. Panics if capacity < 1.
func NewVectorRing[T Word64](capacity int) *VectorRing[T] {
	if capacity < 1 {
		panic("lfq: capacity must be >= 1")
	}

	n := roundToPow2(capacity)
	if n < 2*vectorWidth {
		n = 2 * vectorWidth
	}
	un := uint64(n)

	r := &VectorRing[T]{
		buffer:   make([]vectorSlot[T], un),
		mask:     un - 1,
		capacity: un,
	}
	for i := uint64(0); i < un; i++ {
		r.buffer[i].seq.StoreRelaxed(i)
	}
	return r
}

// Send enqueues a single item, scalar-path, identical in protocol to
// Ring.Send. Used directly for fewer than vectorWidth items and as the
// fallback when a batch claim loses a race.
func (r *VectorRing[T]) Send(elem *T) error {
	sw := spin.Wait{}
	for {
		head := r.head.LoadAcquire()
		slot := &r.buffer[head&r.mask]
		seq := slot.seq.LoadAcquire()
		diff := int64(seq) - int64(head)

		switch {
		case diff == 0:
			if r.head.CompareAndSwapAcqRel(head, head+1) {
				slot.data = *elem
				slot.seq.StoreRelease(head + 1)
				return nil
			}
		case diff < 0:
			tail := r.tail.LoadAcquire()
			if head-tail >= r.capacity {
				return ErrFull
			}
		}
		sw.Once()
	}
}

// Recv dequeues a single item, scalar path, identical in protocol to
// Ring.Recv.
func (r *VectorRing[T]) Recv() (T, error) {
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

// claimBatchProducer attempts to claim vectorWidth contiguous slots
// starting at ticket head in one CAS. It loads the four slots' sequence
// numbers, and only if every one matches its own ticket exactly (slot i
// reads head+i) does it attempt CAS(head, head, head+vectorWidth).
//
// No separate tail-distance check runs before the load (§9's first open
// question): tickets are monotonic in unsigned space, and the slot
// reduction (ticket AND mask) means the only way four adjacent slots can
// simultaneously read {head, head+1, head+2, head+3} is if all four are
// genuinely in the empty-awaiting-this-round state. A stale quartet from
// a previous round cannot coincidentally produce that exact ascending
// pattern, because each slot's sequence only ever equals its own current
// ticket or that ticket's predecessor round.
func (r *VectorRing[T]) claimBatchProducer() (head uint64, ok bool) {
	head = r.head.LoadAcquire()
	var seqs [vectorWidth]uint64
	for i := range seqs {
		idx := (head + uint64(i)) & r.mask
		seqs[i] = r.buffer[idx].seq.LoadAcquire()
	}
	for i := range seqs {
		if seqs[i] != head+uint64(i) {
			return head, false
		}
	}
	return head, r.head.CompareAndSwapAcqRel(head, head+vectorWidth)
}

// claimBatchConsumer is claimBatchProducer's symmetric counterpart:
// expects slot i's sequence to read tail+i+1.
func (r *VectorRing[T]) claimBatchConsumer() (tail uint64, ok bool) {
	tail = r.tail.LoadAcquire()
	var seqs [vectorWidth]uint64
	for i := range seqs {
		idx := (tail + uint64(i)) & r.mask
		seqs[i] = r.buffer[idx].seq.LoadAcquire()
	}
	for i := range seqs {
		if seqs[i] != tail+uint64(i)+1 {
			return tail, false
		}
	}
	return tail, r.tail.CompareAndSwapAcqRel(tail, tail+vectorWidth)
}

// SendBatch attempts to enqueue items, four at a time via claimBatchProducer
// where possible and one at a time otherwise.
//
// Returns the number of items actually enqueued. If that count is less
// than len(items), items[n:] is the unsent suffix and the error is ErrFull;
// on full success err is nil and n == len(items). An empty items slice
// returns (0, nil) immediately without touching the ring.
func (r *VectorRing[T]) SendBatch(items []T) (int, error) {
	if len(items) == 0 {
		return 0, nil
	}

	sent := 0
	for len(items)-sent >= vectorWidth {
		head, ok := r.claimBatchProducer()
		if !ok {
			if err := r.Send(&items[sent]); err != nil {
				return sent, err
			}
			sent++
			continue
		}
		for i := 0; i < vectorWidth; i++ {
			idx := (head + uint64(i)) & r.mask
			slot := &r.buffer[idx]
			slot.data = items[sent+i]
			slot.seq.StoreRelease(head + uint64(i) + 1)
		}
		sent += vectorWidth
	}

	for sent < len(items) {
		if err := r.Send(&items[sent]); err != nil {
			return sent, err
		}
		sent++
	}

	return sent, nil
}

// RecvBatch attempts to dequeue up to len(out) items, four at a time via
// claimBatchConsumer where possible and one at a time otherwise. Returns
// the number of items written to out[:n]; n may be zero. Never returns an
// error — an empty ring simply yields n < len(out) (possibly 0).
func (r *VectorRing[T]) RecvBatch(out []T) int {
	if len(out) == 0 {
		return 0
	}

	received := 0
	for len(out)-received >= vectorWidth {
		tail, ok := r.claimBatchConsumer()
		if !ok {
			v, err := r.Recv()
			if err != nil {
				return received
			}
			out[received] = v
			received++
			continue
		}
		for i := 0; i < vectorWidth; i++ {
			idx := (tail + uint64(i)) & r.mask
			slot := &r.buffer[idx]
			out[received+i] = slot.data
			var zero T
			slot.data = zero
			slot.seq.StoreRelease(tail + uint64(i) + r.capacity)
		}
		received += vectorWidth
	}

	for received < len(out) {
		v, err := r.Recv()
		if err != nil {
			return received
		}
		out[received] = v
		received++
	}

	return received
}

// Cap returns the ring's effective capacity.
func (r *VectorRing[T]) Cap() int {
	return int(r.capacity)
}

// Len returns a snapshot of the number of items currently queued.
func (r *VectorRing[T]) Len() int {
	head := r.head.LoadAcquire()
	tail := r.tail.LoadAcquire()
	return int(head - tail)
}

// IsEmpty reports whether the ring held zero items at the instant of the
// snapshot load.
func (r *VectorRing[T]) IsEmpty() bool {
	return r.Len() == 0
}

// IsFull reports whether the ring held capacity items at the instant of
// the snapshot load.
func (r *VectorRing[T]) IsFull() bool {
	return r.Len() >= int(r.capacity)
}

// drainStep mirrors Ring.drainStep for teardown.
func (r *VectorRing[T]) drainStep() bool {
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
