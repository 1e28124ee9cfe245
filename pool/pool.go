// Package pool provides an in-process implementation of the buffer-pool
// capability the core consumes: the real poll-mode driver's mempool lives
// outside this module, but layer code, tests, and the example command
// need something satisfying mbuf.Pool to run against.
//
// Reference is deliberately simple: a sync.Pool of fixed-size byte
// slices, stamped with the worker id it was bound to at construction.
package pool

import (
	"fmt"
	"sync"

	"github.com/yanet-platform/corepkt/mbuf"
	"github.com/yanet-platform/corepkt/workerset"
)

// Reference is a thread-local buffer pool bound to one worker id.
// AllocOne/AllocBulk take the caller's own worker id and check it against
// the one this Reference was constructed for on every call, returning
// mbuf.ErrPoolUnbound on mismatch. Allocating from another worker's pool
// is an error, and the check happens at call time, complementing
// Registry.ForWorker's lookup-time check. Use For to obtain an mbuf.Pool
// view bound to a specific caller worker id.
type Reference struct {
	workerID uint32
	dataRoom int
	free     sync.Pool
}

// NewReference constructs a pool bound to workerID, handing out regions of
// dataRoom bytes (mbuf.DefaultDataRoom if dataRoom <= 0).
func NewReference(workerID uint32, dataRoom int) *Reference {
	if dataRoom <= 0 {
		dataRoom = mbuf.DefaultDataRoom
	}
	room := dataRoom
	return &Reference{
		workerID: workerID,
		dataRoom: room,
		free: sync.Pool{
			New: func() any { return make([]byte, room) },
		},
	}
}

// WorkerID returns the worker id this pool was bound to.
func (r *Reference) WorkerID() uint32 { return r.workerID }

// AllocOne acquires one buffer's backing storage, zeroed, on behalf of
// callerWorkerID. Returns mbuf.ErrPoolUnbound if callerWorkerID does not
// match the worker id r was constructed for.
func (r *Reference) AllocOne(callerWorkerID uint32) ([]byte, error) {
	if callerWorkerID != r.workerID {
		return nil, fmt.Errorf("pool.Reference.AllocOne: %w: pool bound to worker %d, called from worker %d", mbuf.ErrPoolUnbound, r.workerID, callerWorkerID)
	}
	region := r.free.Get().([]byte)
	clear(region)
	return region, nil
}

// FreeOne releases region back to the pool.
func (r *Reference) FreeOne(region []byte) {
	r.free.Put(region) //nolint:staticcheck // region is a fixed-size slice, safe to recycle.
}

// AllocBulk acquires n buffers' backing storage in one call on behalf of
// callerWorkerID. Returns mbuf.ErrPoolUnbound if callerWorkerID does not
// match the worker id r was constructed for.
func (r *Reference) AllocBulk(callerWorkerID uint32, n int) ([][]byte, error) {
	out := make([][]byte, n)
	for i := range out {
		region, err := r.AllocOne(callerWorkerID)
		if err != nil {
			for _, allocated := range out[:i] {
				r.FreeOne(allocated)
			}
			return nil, fmt.Errorf("pool.AllocBulk: %w", err)
		}
		out[i] = region
	}
	return out, nil
}

// FreeBulk releases every region in regions.
func (r *Reference) FreeBulk(regions [][]byte) {
	for _, region := range regions {
		r.FreeOne(region)
	}
}

// boundPool adapts a Reference to mbuf.Pool for one asserted caller
// worker id: every AllocOne call re-checks that id against the
// Reference's own, rather than trusting it once at construction.
type boundPool struct {
	ref      *Reference
	workerID uint32
}

func (b boundPool) AllocOne() ([]byte, error) { return b.ref.AllocOne(b.workerID) }
func (b boundPool) FreeOne(region []byte)     { b.ref.FreeOne(region) }

// For returns an mbuf.Pool view of r asserting callerWorkerID as the
// caller's own worker id. Every AllocOne call through the returned value
// re-validates callerWorkerID against r's bound worker id.
func (r *Reference) For(callerWorkerID uint32) mbuf.Pool {
	return boundPool{ref: r, workerID: callerWorkerID}
}

// Registry hands back the Reference bound to a given worker id and
// rejects lookups for worker ids nothing was bound to. The real runtime
// resolves this from the calling OS thread; tests and the example command
// resolve it by the caller-supplied worker id instead, since Go has no
// per-goroutine thread affinity to key off of.
type Registry struct {
	mu   sync.Mutex
	byID map[uint32]*Reference
}

// NewRegistry returns an empty pool registry.
func NewRegistry() *Registry {
	return &Registry{byID: make(map[uint32]*Reference)}
}

// Bind creates and registers a Reference for workerID, replacing any
// previous binding.
func (reg *Registry) Bind(workerID uint32, dataRoom int) *Reference {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	ref := NewReference(workerID, dataRoom)
	reg.byID[workerID] = ref
	return ref
}

// ForWorker returns the pool bound to workerID. Returns
// mbuf.ErrPoolUnbound if no pool was bound to that worker.
func (reg *Registry) ForWorker(workerID uint32) (*Reference, error) {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	ref, ok := reg.byID[workerID]
	if !ok {
		return nil, fmt.Errorf("pool.ForWorker(%d): %w", workerID, mbuf.ErrPoolUnbound)
	}
	return ref, nil
}

// Bound returns the set of worker ids with a pool currently registered.
func (reg *Registry) Bound() workerset.WorkerMask {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	var mask workerset.WorkerMask
	for id := range reg.byID {
		mask |= workerset.NewWithOneBitSet(id)
	}
	return mask
}
