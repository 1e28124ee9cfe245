package ethernet_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yanet-platform/corepkt/layers/ethernet"
	"github.com/yanet-platform/corepkt/mbuf"
)

type arenaPool struct{}

func (arenaPool) AllocOne() ([]byte, error) { return make([]byte, mbuf.DefaultDataRoom), nil }
func (arenaPool) FreeOne([]byte)            {}

func newBuffer(t *testing.T) *mbuf.Buffer {
	t.Helper()
	b, err := mbuf.New(arenaPool{})
	require.NoError(t, err)
	return b
}

func TestPushSetsFields(t *testing.T) {
	b := newBuffer(t)

	frame, err := ethernet.Push[*mbuf.Buffer](b)
	require.NoError(t, err)
	assert.Equal(t, ethernet.HeaderLen, frame.HeaderLen())
	assert.Equal(t, ethernet.HeaderLen, b.DataLen())

	src := [6]byte{0, 0, 0, 0, 0, 1}
	dst := [6]byte{0, 0x11, 0x22, 0x33, 0x44, 0x55}
	require.NoError(t, frame.SetSrcMAC(src))
	require.NoError(t, frame.SetDstMAC(dst))
	frame.SetEtherType(ethernet.EtherTypeIPv4)

	gotSrc, err := frame.SrcMAC()
	require.NoError(t, err)
	assert.Equal(t, src, gotSrc)

	gotDst, err := frame.DstMAC()
	require.NoError(t, err)
	assert.Equal(t, dst, gotDst)

	etherType, err := frame.EtherType()
	require.NoError(t, err)
	assert.Equal(t, ethernet.EtherTypeIPv4, etherType)
}

// Push then remove returns the envelope with the buffer byte-for-byte as
// it was before push.
func TestRoundTripPushRemove(t *testing.T) {
	b := newBuffer(t)
	require.NoError(t, b.Extend(0, 4))
	_, err := mbuf.WriteSlice(b, 0, []byte{1, 2, 3, 4})
	require.NoError(t, err)

	before := append([]byte(nil), b.Bytes()...)

	frame, err := ethernet.Push[*mbuf.Buffer](b)
	require.NoError(t, err)

	back, err := ethernet.Remove(frame)
	require.NoError(t, err)
	assert.Same(t, b, back)
	assert.Equal(t, before, b.Bytes())
}

func TestParseMismatchOnShortBuffer(t *testing.T) {
	b := newBuffer(t)
	require.NoError(t, b.Extend(0, 4))

	_, envelope, err := ethernet.Parse[*mbuf.Buffer](b)
	require.Error(t, err)
	assert.Same(t, b, envelope)
}

// countingPool counts FreeOne calls so a test can tell whether a region
// was released.
type countingPool struct{ freed int }

func (p *countingPool) AllocOne() ([]byte, error) { return make([]byte, mbuf.DefaultDataRoom), nil }
func (p *countingPool) FreeOne([]byte)            { p.freed++ }

func TestPeekDoesNotFreeOriginal(t *testing.T) {
	pool := &countingPool{}
	b, err := mbuf.New(pool)
	require.NoError(t, err)
	_, err = ethernet.Push[*mbuf.Buffer](b)
	require.NoError(t, err)

	frame, err := ethernet.Peek(b)
	require.NoError(t, err)
	assert.True(t, frame.Buffer().IsClone())

	frame.Buffer().Free()
	assert.Zero(t, pool.freed)
	assert.False(t, b.IsClone())
}
