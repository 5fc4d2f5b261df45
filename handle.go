// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package lfq

import "code.hybscloud.com/atomix"

// drainer is the minimal surface a handle needs from its backing ring to
// run teardown drain: remove one queued payload if any remain.
type drainer interface {
	drainStep() bool
}

// refcount lives embedded in the ring itself, not in the handle: every
// Producer, Consumer, VectorProducer, and VectorConsumer derived from the
// same ring — by NewProducer/NewConsumer/NewVectorProducer/NewVectorConsumer
// or by Clone — acquires against the one counter on that ring, so producer-
// side and consumer-side handles share a single ownership count exactly as
// spec.md §4.3 describes ("Handles (producer, consumer) share ownership of
// the ring; the ring exists while any handle does"), and the last Close of
// either kind is the one that runs teardown drain. There is no Go
// equivalent of Rust's compiler-enforced Drop, so the decrement-and-maybe-
// drain sequence below is the explicit stand-in: callers are expected to
// call Close exactly once per handle value they hold, mirroring Arc<T>'s
// Drop contract in the original source this ownership model was distilled
// from.
type refcount struct {
	n atomix.Int64
}

// acquire registers one more live handle against rc. Called both for a
// brand new handle constructed directly from a ring and for Clone.
func (rc *refcount) acquire() {
	rc.n.AddAcqRel(1)
}

// release decrements the count and reports whether this call brought it
// to zero (i.e. whether the caller is responsible for draining).
func (rc *refcount) release() bool {
	return rc.n.AddAcqRel(-1) == 0
}

// drainAll runs drainStep until the ring reports empty. Called with no
// other handle left alive, so there is no concurrent producer or
// consumer racing the drain.
func drainAll(d drainer) {
	for d.drainStep() {
	}
}

// Producer is a shared handle granting Send access to a Ring. Multiple
// Producer values may be cloned from one NewRing call (one per goroutine
// that wants its own handle to close independently); the ring itself is
// not torn down until every clone, including the original, is closed.
type Producer[T any] struct {
	ring   *Ring[T]
	closed bool
}

// NewProducer wraps r in a Producer handle, acquiring r's shared refcount.
// A Consumer built from the same r with NewConsumer tracks the same count.
func NewProducer[T any](r *Ring[T]) Producer[T] {
	r.handleRC.acquire()
	return Producer[T]{ring: r}
}

// Clone returns a second handle sharing the same ring and refcount. The
// returned value must itself be closed independently of p.
func (p Producer[T]) Clone() Producer[T] {
	p.ring.handleRC.acquire()
	return Producer[T]{ring: p.ring}
}

// Send enqueues *elem; see Ring.Send.
func (p Producer[T]) Send(elem *T) error {
	return p.ring.Send(elem)
}

// IsFull reports whether the ring has no slot available, per Ring.IsFull.
func (p Producer[T]) IsFull() bool {
	return p.ring.IsFull()
}

// Cap returns the ring's effective capacity, per Ring.Cap.
func (p Producer[T]) Cap() int {
	return p.ring.Cap()
}

// Close releases this handle. When the last outstanding handle (producer
// or consumer) on the ring closes, any items still queued are drained and
// destructed. Close is idempotent per handle value, and a zero-value
// (never-cloned, never-closed) Producer simply has nothing to release.
func (p *Producer[T]) Close() error {
	if p.closed || p.ring == nil {
		return nil
	}
	p.closed = true
	if p.ring.handleRC.release() {
		drainAll(p.ring)
	}
	return nil
}

// Consumer is a shared handle granting Recv access to a Ring.
type Consumer[T any] struct {
	ring   *Ring[T]
	closed bool
}

// NewConsumer wraps r in a Consumer handle, acquiring r's shared refcount.
// A Producer built from the same r with NewProducer tracks the same count.
func NewConsumer[T any](r *Ring[T]) Consumer[T] {
	r.handleRC.acquire()
	return Consumer[T]{ring: r}
}

// Clone returns a second handle sharing the same ring and refcount.
func (c Consumer[T]) Clone() Consumer[T] {
	c.ring.handleRC.acquire()
	return Consumer[T]{ring: c.ring}
}

// Recv dequeues an item; see Ring.Recv.
func (c Consumer[T]) Recv() (T, error) {
	return c.ring.Recv()
}

// IsEmpty reports whether the ring held zero items, per Ring.IsEmpty.
func (c Consumer[T]) IsEmpty() bool {
	return c.ring.IsEmpty()
}

// Len returns a snapshot of the number of items queued, per Ring.Len.
func (c Consumer[T]) Len() int {
	return c.ring.Len()
}

// Close releases this handle, draining the ring if it was the last one.
func (c *Consumer[T]) Close() error {
	if c.closed || c.ring == nil {
		return nil
	}
	c.closed = true
	if c.ring.handleRC.release() {
		drainAll(c.ring)
	}
	return nil
}

// VectorProducer is Producer's counterpart for VectorRing, adding
// SendBatch alongside the single-item Send.
type VectorProducer[T Word64] struct {
	ring   *VectorRing[T]
	closed bool
}

// NewVectorProducer wraps r in a VectorProducer handle, acquiring r's
// shared refcount. A VectorConsumer built from the same r with
// NewVectorConsumer tracks the same count.
func NewVectorProducer[T Word64](r *VectorRing[T]) VectorProducer[T] {
	r.handleRC.acquire()
	return VectorProducer[T]{ring: r}
}

// Clone returns a second handle sharing the same ring and refcount.
func (p VectorProducer[T]) Clone() VectorProducer[T] {
	p.ring.handleRC.acquire()
	return VectorProducer[T]{ring: p.ring}
}

// Send enqueues *elem; see VectorRing.Send.
func (p VectorProducer[T]) Send(elem *T) error {
	return p.ring.Send(elem)
}

// SendBatch enqueues items; see VectorRing.SendBatch.
func (p VectorProducer[T]) SendBatch(items []T) (int, error) {
	return p.ring.SendBatch(items)
}

// IsFull reports whether the ring has no slot available, per VectorRing.IsFull.
func (p VectorProducer[T]) IsFull() bool {
	return p.ring.IsFull()
}

// Cap returns the ring's effective capacity, per VectorRing.Cap.
func (p VectorProducer[T]) Cap() int {
	return p.ring.Cap()
}

// Close releases this handle, draining the ring if it was the last one.
func (p *VectorProducer[T]) Close() error {
	if p.closed || p.ring == nil {
		return nil
	}
	p.closed = true
	if p.ring.handleRC.release() {
		drainAll(p.ring)
	}
	return nil
}

// VectorConsumer is Consumer's counterpart for VectorRing, adding
// RecvBatch alongside the single-item Recv.
type VectorConsumer[T Word64] struct {
	ring   *VectorRing[T]
	closed bool
}

// NewVectorConsumer wraps r in a VectorConsumer handle, acquiring r's
// shared refcount. A VectorProducer built from the same r with
// NewVectorProducer tracks the same count.
func NewVectorConsumer[T Word64](r *VectorRing[T]) VectorConsumer[T] {
	r.handleRC.acquire()
	return VectorConsumer[T]{ring: r}
}

// Clone returns a second handle sharing the same ring and refcount.
func (c VectorConsumer[T]) Clone() VectorConsumer[T] {
	c.ring.handleRC.acquire()
	return VectorConsumer[T]{ring: c.ring}
}

// Recv dequeues an item; see VectorRing.Recv.
func (c VectorConsumer[T]) Recv() (T, error) {
	return c.ring.Recv()
}

// RecvBatch dequeues up to len(out) items; see VectorRing.RecvBatch.
func (c VectorConsumer[T]) RecvBatch(out []T) int {
	return c.ring.RecvBatch(out)
}

// IsEmpty reports whether the ring held zero items, per VectorRing.IsEmpty.
func (c VectorConsumer[T]) IsEmpty() bool {
	return c.ring.IsEmpty()
}

// Len returns a snapshot of the number of items queued, per VectorRing.Len.
func (c VectorConsumer[T]) Len() int {
	return c.ring.Len()
}

// Close releases this handle, draining the ring if it was the last one.
func (c *VectorConsumer[T]) Close() error {
	if c.closed || c.ring == nil {
		return nil
	}
	c.closed = true
	if c.ring.handleRC.release() {
		drainAll(c.ring)
	}
	return nil
}
