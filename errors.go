// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package lfq

import (
	"fmt"

	"code.hybscloud.com/iox"
)

// ErrFull indicates Send/SendBatch could not place an item because the ring
// reports no slot available for the caller's ticket.
//
// ErrFull is a control flow signal, not a failure: the item was never moved
// out of the caller (Send takes a pointer and never consumes it), so the
// caller already holds the item and may retry.
//
// ErrFull wraps [iox.ErrWouldBlock] so it classifies the same way as the
// rest of the code.hybscloud.com ecosystem.
//
// Example:
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
var ErrFull = fmt.Errorf("lfq: queue full: %w", iox.ErrWouldBlock)

// ErrEmpty indicates Recv had nothing available.
//
// ErrEmpty wraps [iox.ErrWouldBlock] for the same reason ErrFull does.
var ErrEmpty = fmt.Errorf("lfq: queue empty: %w", iox.ErrWouldBlock)

// IsWouldBlock reports whether err indicates the operation would block
// (ErrFull, ErrEmpty, or any error wrapping [iox.ErrWouldBlock]).
func IsWouldBlock(err error) bool {
	return iox.IsWouldBlock(err)
}

// IsSemantic reports whether err is a control flow signal (not a failure).
// Delegates to [iox.IsSemantic].
func IsSemantic(err error) bool {
	return iox.IsSemantic(err)
}

// IsNonFailure reports whether err represents a non-failure condition.
// Returns true for nil, ErrFull, ErrEmpty, or any other [iox] non-failure.
// Delegates to [iox.IsNonFailure].
func IsNonFailure(err error) bool {
	return iox.IsNonFailure(err)
}
