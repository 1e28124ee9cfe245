package mbuf_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yanet-platform/corepkt/mbuf"
)

func TestAllocBulkAndFreeBulk(t *testing.T) {
	pool := &arenaPool{}

	buffers, err := mbuf.AllocBulk(pool, 4)
	require.NoError(t, err)
	assert.Len(t, buffers, 4)

	mbuf.FreeBulk(buffers)
	assert.Len(t, pool.freed, 4)
}

// exhaustedPool fails every AllocOne call past the given budget, so
// AllocBulk's partial-failure cleanup path can be exercised.
type exhaustedPool struct {
	remaining int
	freed     [][]byte
}

func (p *exhaustedPool) AllocOne() ([]byte, error) {
	if p.remaining <= 0 {
		return nil, errors.New("exhausted")
	}
	p.remaining--
	return make([]byte, mbuf.DefaultDataRoom), nil
}

func (p *exhaustedPool) FreeOne(region []byte) {
	p.freed = append(p.freed, region)
}

func TestAllocBulkFreesPartialAllocationOnFailure(t *testing.T) {
	pool := &exhaustedPool{remaining: 2}

	buffers, err := mbuf.AllocBulk(pool, 5)
	require.Error(t, err)
	assert.ErrorIs(t, err, mbuf.ErrAllocFailure)
	assert.Nil(t, buffers)
	assert.Len(t, pool.freed, 2)
}

func TestDescribe(t *testing.T) {
	pool := &arenaPool{}
	buffers, err := mbuf.AllocBulk(pool, 2)
	require.NoError(t, err)
	require.NoError(t, buffers[0].Extend(0, 10))
	require.NoError(t, buffers[1].Extend(0, 20))

	descriptions := mbuf.Describe(buffers)
	require.Len(t, descriptions, 2)
	assert.Contains(t, descriptions[0], "data_len=10")
	assert.Contains(t, descriptions[1], "data_len=20")

	mbuf.FreeBulk(buffers)
}
