package pool_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yanet-platform/corepkt/mbuf"
	"github.com/yanet-platform/corepkt/pool"
)

func TestReferenceSatisfiesMbufPool(t *testing.T) {
	ref := pool.NewReference(0, 64)
	b, err := mbuf.New(ref.For(0))
	require.NoError(t, err)
	assert.Equal(t, 64, b.BufLen())
}

func TestReferenceAllocIsZeroed(t *testing.T) {
	ref := pool.NewReference(0, 16)

	region, err := ref.AllocOne(0)
	require.NoError(t, err)
	region[0] = 0xff
	ref.FreeOne(region)

	reused, err := ref.AllocOne(0)
	require.NoError(t, err)
	assert.Equal(t, make([]byte, 16), reused)
}

func TestAllocBulkFreeBulk(t *testing.T) {
	ref := pool.NewReference(0, 32)

	regions, err := ref.AllocBulk(0, 4)
	require.NoError(t, err)
	assert.Len(t, regions, 4)

	ref.FreeBulk(regions)
}

// TestAllocOneRejectsCrossWorkerCaller checks that allocating from
// another worker's pool is an error at call time: AllocOne/AllocBulk
// check the caller's asserted worker id against the Reference's own on
// every call, not only when a pool handle is first looked up.
func TestAllocOneRejectsCrossWorkerCaller(t *testing.T) {
	ref := pool.NewReference(1, 64)

	_, err := ref.AllocOne(2)
	assert.ErrorIs(t, err, mbuf.ErrPoolUnbound)

	region, err := ref.AllocOne(1)
	require.NoError(t, err)
	assert.Len(t, region, 64)
}

func TestAllocBulkRejectsCrossWorkerCaller(t *testing.T) {
	ref := pool.NewReference(1, 32)

	_, err := ref.AllocBulk(2, 4)
	assert.ErrorIs(t, err, mbuf.ErrPoolUnbound)
}

// TestForRevalidatesOnEveryCall establishes that the mbuf.Pool view For
// returns is bound to a fixed caller worker id and keeps rejecting
// allocations for that id if it is itself wrong, rather than only
// checking once when the view is created.
func TestForRevalidatesOnEveryCall(t *testing.T) {
	ref := pool.NewReference(1, 32)
	wrong := ref.For(2)

	_, err := wrong.AllocOne()
	assert.ErrorIs(t, err, mbuf.ErrPoolUnbound)
	_, err = wrong.AllocOne()
	assert.ErrorIs(t, err, mbuf.ErrPoolUnbound)
}

func TestRegistryRejectsUnboundWorker(t *testing.T) {
	reg := pool.NewRegistry()
	reg.Bind(1, 64)

	_, err := reg.ForWorker(2)
	require.ErrorIs(t, err, mbuf.ErrPoolUnbound)

	ref, err := reg.ForWorker(1)
	require.NoError(t, err)
	assert.Equal(t, uint32(1), ref.WorkerID())
}

func TestRegistryBoundMask(t *testing.T) {
	reg := pool.NewRegistry()
	reg.Bind(0, 64)
	reg.Bind(3, 64)

	mask := reg.Bound()
	assert.True(t, mask.Has(0))
	assert.True(t, mask.Has(3))
	assert.False(t, mask.Has(1))
	assert.Equal(t, 2, mask.Len())
}
