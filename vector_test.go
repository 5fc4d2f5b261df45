// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package lfq_test

import (
	"errors"
	"sync"
	"testing"
	"time"

	"code.hybscloud.com/iox"
	"github.com/vanamonde/seqring"
)

func TestVectorRingCapacityFloor(t *testing.T) {
	cases := map[int]int{1: 8, 3: 8, 8: 8, 9: 16}
	for in, want := range cases {
		r := lfq.NewVectorRing[uint64](in)
		if got := r.Cap(); got != want {
			t.Errorf("NewVectorRing(%d).Cap() = %d, want %d", in, got, want)
		}
	}
}

func TestVectorRingSendBatchEmptyIsNoop(t *testing.T) {
	r := lfq.NewVectorRing[uint64](16)
	sent, err := r.SendBatch(nil)
	if sent != 0 || err != nil {
		t.Fatalf("SendBatch(nil) = (%d, %v), want (0, nil)", sent, err)
	}
	if !r.IsEmpty() {
		t.Fatal("SendBatch(nil) must not touch the ring")
	}
}

func TestVectorRingSendBatchRecvBatch(t *testing.T) {
	r := lfq.NewVectorRing[uint64](16)

	items := []uint64{1, 2, 3, 4, 5, 6, 7}
	sent, err := r.SendBatch(items)
	if err != nil {
		t.Fatalf("SendBatch: %v", err)
	}
	if sent != len(items) {
		t.Fatalf("SendBatch sent %d, want %d", sent, len(items))
	}

	out := make([]uint64, 10)
	n := r.RecvBatch(out)
	if n != len(items) {
		t.Fatalf("RecvBatch returned %d, want %d", n, len(items))
	}
	for i, want := range items {
		if out[i] != want {
			t.Fatalf("out[%d] = %d, want %d", i, out[i], want)
		}
	}
}

func TestVectorRingSendBatchPartialOnFull(t *testing.T) {
	r := lfq.NewVectorRing[uint64](8)

	first := []uint64{1, 2, 3, 4, 5, 6, 7, 8}
	sent, err := r.SendBatch(first)
	if err != nil || sent != 8 {
		t.Fatalf("filling SendBatch = (%d, %v), want (8, nil)", sent, err)
	}

	more := []uint64{9, 10}
	sent, err = r.SendBatch(more)
	if sent != 0 {
		t.Fatalf("SendBatch on full ring sent %d, want 0", sent)
	}
	if !errors.Is(err, lfq.ErrFull) {
		t.Fatalf("SendBatch on full ring err = %v, want ErrFull", err)
	}
}

func TestVectorRingScalarAndBatchInterop(t *testing.T) {
	r := lfq.NewVectorRing[int64](16)

	v := int64(100)
	if err := r.Send(&v); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if _, err := r.SendBatch([]int64{1, 2, 3, 4}); err != nil {
		t.Fatalf("SendBatch: %v", err)
	}

	got, err := r.Recv()
	if err != nil || got != 100 {
		t.Fatalf("Recv = (%d, %v), want (100, nil)", got, err)
	}

	out := make([]int64, 4)
	if n := r.RecvBatch(out); n != 4 {
		t.Fatalf("RecvBatch = %d, want 4", n)
	}
	for i, want := range []int64{1, 2, 3, 4} {
		if out[i] != want {
			t.Fatalf("out[%d] = %d, want %d", i, out[i], want)
		}
	}
}

func TestVectorRingConcurrentBatchTransfer(t *testing.T) {
	if lfq.RaceEnabled {
		t.Skip("skip: stress test relies on lock-free memory ordering the race detector cannot verify")
	}

	const (
		numProducers = 4
		numConsumers = 4
		itemsPerProd = 200
		capacity     = 64
		timeout      = 10 * time.Second
	)

	r := lfq.NewVectorRing[uint64](capacity)
	total := numProducers * itemsPerProd
	deadline := time.Now().Add(timeout)

	var wg sync.WaitGroup
	for p := 0; p < numProducers; p++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			batch := make([]uint64, 4)
			for i := 0; i < itemsPerProd; i += 4 {
				for j := range batch {
					batch[j] = uint64(id)*1_000_000 + uint64(i+j)
				}
				backoff := iox.Backoff{}
				sent := 0
				for sent < len(batch) {
					n, err := r.SendBatch(batch[sent:])
					sent += n
					if sent == len(batch) {
						break
					}
					if err != nil && time.Now().After(deadline) {
						t.Errorf("producer %d timed out", id)
						return
					}
					backoff.Wait()
				}
			}
		}(p)
	}

	results := make(chan uint64, total)
	var consumeWg sync.WaitGroup
	var mu sync.Mutex
	consumed := 0
	for c := 0; c < numConsumers; c++ {
		consumeWg.Add(1)
		go func() {
			defer consumeWg.Done()
			out := make([]uint64, 4)
			backoff := iox.Backoff{}
			for {
				n := r.RecvBatch(out)
				if n > 0 {
					for _, v := range out[:n] {
						results <- v
					}
					mu.Lock()
					consumed += n
					done := consumed >= total
					mu.Unlock()
					backoff.Reset()
					if done {
						return
					}
					continue
				}
				if time.Now().After(deadline) {
					return
				}
				backoff.Wait()
			}
		}()
	}

	wg.Wait()
	consumeWg.Wait()
	close(results)

	seen := make(map[uint64]bool, total)
	count := 0
	for v := range results {
		if seen[v] {
			t.Fatalf("value %d received more than once", v)
		}
		seen[v] = true
		count++
	}
	if count != total {
		t.Fatalf("received %d items, want %d", count, total)
	}
}
