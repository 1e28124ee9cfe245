// Package workerset tracks which poll-mode workers a resource (a buffer
// pool, a pipeline stage) is bound to.
//
// Each worker runs single-threaded on its own core and owns exactly one
// buffer pool; a WorkerMask records the set of worker ids that may
// legitimately reach a given pool. It is a fixed-width bitmask rather than
// a map or slice so it stays comparable and cheap to pass by value on the
// hot path.
package workerset

import (
	"iter"
	"math/bits"

	"github.com/yanet-platform/corepkt/bitset"
)

// Max is the mask with every worker id set.
const Max = WorkerMask(^uint32(0))

// WorkerMask is a bitmask of worker ids, least significant bit is worker 0.
type WorkerMask uint32

// NewWithOneBitSet returns a new WorkerMask with a single bit set at the
// specified worker id (zero-based).
//
// Panics if idx >= 32.
func NewWithOneBitSet(idx uint32) WorkerMask {
	if idx >= 32 {
		panic("worker id is out of range")
	}

	return WorkerMask(1 << idx)
}

// NewWithTrailingOnes returns a new WorkerMask with the given number of
// trailing ones set, i.e. worker ids [0, numOnes) are included.
func NewWithTrailingOnes(numOnes int) WorkerMask {
	if numOnes == 0 {
		return WorkerMask(0)
	}
	if numOnes > 32 {
		return Max
	}

	return WorkerMask(^uint32(0) >> (32 - numOnes))
}

// IsEmpty reports whether no worker id is set.
func (m WorkerMask) IsEmpty() bool {
	return m == 0
}

// Len returns the number of worker ids set.
func (m WorkerMask) Len() int {
	return bits.OnesCount32(uint32(m))
}

// Has reports whether the given worker id is a member of the mask.
func (m WorkerMask) Has(idx uint32) bool {
	if idx >= 32 {
		return false
	}
	return m&(1<<idx) != 0
}

// Intersect returns the workers present in both masks.
func (m WorkerMask) Intersect(other WorkerMask) WorkerMask {
	return m & other
}

// Iter returns an iterator over the worker ids set in the mask, from least
// to most significant.
func (m WorkerMask) Iter() iter.Seq[uint32] {
	return bitset.NewBitsTraverser(uint64(m)).Iter()
}
