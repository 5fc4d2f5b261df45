// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package lfq provides a bounded, lock-free multi-producer multi-consumer
// FIFO queue.
//
// Two element-type flavors are available:
//
//   - Ring[T]: any movable type, one item claimed per operation.
//   - VectorRing[T]: 64-bit-word types only (uint64/int64/float64, or a
//     named type over one of those), with a batched four-item claim path
//     alongside the same single-item Send/Recv.
//
// # Quick Start
//
//	r := lfq.NewRing[Event](1024)
//
//	// Enqueue (non-blocking)
//	ev := Event{}
//	err := r.Send(&ev)
//	if lfq.IsWouldBlock(err) {
//	    // ring is full - handle backpressure
//	}
//
//	// Dequeue (non-blocking)
//	got, err := r.Recv()
//	if lfq.IsWouldBlock(err) {
//	    // ring is empty - try again later
//	}
//
// VectorRing adds batched transfer for workloads that can stage several
// items at once:
//
//	vr := lfq.NewVectorRing[uint64](4096)
//
//	batch := []uint64{1, 2, 3, 4, 5}
//	sent, err := vr.SendBatch(batch) // claims in groups of 4 where possible
//
//	out := make([]uint64, 8)
//	n := vr.RecvBatch(out)
//
// # Common Patterns
//
// Pipeline stage, one producer and one consumer goroutine sharing a Ring —
// the MPMC protocol below is a correct, if unoptimized, SPSC queue too:
//
//	r := lfq.NewRing[Data](1024)
//
//	go func() { // producer
//	    backoff := iox.Backoff{}
//	    for data := range input {
//	        for r.Send(&data) != nil {
//	            backoff.Wait()
//	        }
//	        backoff.Reset()
//	    }
//	}()
//
//	go func() { // consumer
//	    backoff := iox.Backoff{}
//	    for {
//	        data, err := r.Recv()
//	        if err != nil {
//	            backoff.Wait()
//	            continue
//	        }
//	        backoff.Reset()
//	        process(data)
//	    }
//	}()
//
// Worker pool, many submitters and many workers on the same Ring:
//
//	r := lfq.NewRing[Job](4096)
//
//	for range numWorkers {
//	    go func() {
//	        for {
//	            job, err := r.Recv()
//	            if err == nil {
//	                job.Run()
//	            }
//	        }
//	    }()
//	}
//
//	func Submit(j Job) error {
//	    return r.Send(&j)
//	}
//
// Shared-ownership handles let independent goroutines each hold and
// release their own reference without coordinating teardown directly:
//
//	r := lfq.NewRing[Job](4096)
//	p := lfq.NewProducer(r)
//	c := lfq.NewConsumer(r)
//
//	go func(p lfq.Producer[Job]) {
//	    defer p.Close()
//	    for j := range submissions {
//	        for p.Send(&j) != nil {
//	        }
//	    }
//	}(p.Clone())
//
//	go func(c lfq.Consumer[Job]) {
//	    defer c.Close()
//	    for {
//	        j, err := c.Recv()
//	        if err == nil {
//	            j.Run()
//	        }
//	    }
//	}(c.Clone())
//
//	p.Close()
//	c.Close()
//
// The ring's contents are drained and destructed automatically once every
// outstanding Producer and Consumer handle derived from it has closed.
//
// # Error Handling
//
// Send/Recv return [ErrFull]/[ErrEmpty] when an operation cannot proceed.
// Both wrap [code.hybscloud.com/iox]'s ErrWouldBlock for ecosystem
// consistency.
//
//	backoff := iox.Backoff{}
//	for {
//	    err := r.Send(&item)
//	    if err == nil {
//	        backoff.Reset()
//	        break
//	    }
//	    if !lfq.IsWouldBlock(err) {
//	        return err // unexpected error
//	    }
//	    backoff.Wait()
//	}
//
// For semantic error classification (delegates to iox):
//
//	lfq.IsWouldBlock(err)  // true if ring full/empty
//	lfq.IsSemantic(err)    // true if control flow signal
//	lfq.IsNonFailure(err)  // true if nil or a would-block sentinel
//
// # Capacity and Length
//
// Capacity rounds up to the next power of 2, and for VectorRing is further
// raised to at least eight slots (twice the batch width):
//
//	r := lfq.NewRing[int](3)           // actual capacity: 4
//	r := lfq.NewRing[int](1000)        // actual capacity: 1024
//	vr := lfq.NewVectorRing[uint64](3) // actual capacity: 8
//
// Panics if capacity < 1.
//
// Len/IsEmpty/IsFull are provided as snapshots: by the time the caller
// observes the result, concurrent Send/Recv calls may already have
// invalidated it. They are useful for metrics and backpressure heuristics,
// never for correctness decisions — a Send that raced ahead of an IsFull
// check still gets ErrFull exactly when the ring is truly full.
//
// # Thread Safety
//
// Send/Recv are safe to call from any number of goroutines concurrently,
// including exactly one of each. Items are delivered to consumers in the
// order their Send calls linearize, i.e. the order their producer-side
// claim CAS succeeded — there is no additional guarantee about relative
// ordering between two different producers' items beyond that.
//
// # Race Detection
//
// Go's race detector is not designed for lock-free algorithm verification:
// it tracks explicit synchronization primitives (mutex, channel,
// WaitGroup) but cannot observe the happens-before relationship this
// package establishes through acquire/release on each slot's sequence
// number. The algorithm is correct; the detector may still flag false
// positives on the non-atomic payload field guarded by that sequence.
// Tests incompatible with the race detector skip themselves when
// [RaceEnabled] is true.
//
// # Dependencies
//
// This package uses [code.hybscloud.com/iox] for semantic errors,
// [code.hybscloud.com/atomix] for atomic primitives with explicit memory
// ordering, and [code.hybscloud.com/spin] for CPU pause instructions.
package lfq
