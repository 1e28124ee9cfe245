package packet_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yanet-platform/corepkt/mbuf"
	"github.com/yanet-platform/corepkt/packet"
)

type arenaPool struct{}

func (arenaPool) AllocOne() ([]byte, error) { return make([]byte, mbuf.DefaultDataRoom), nil }
func (arenaPool) FreeOne([]byte)            {}

func TestHeaderOffsetsNest(t *testing.T) {
	b, err := mbuf.New(arenaPool{})
	require.NoError(t, err)
	require.NoError(t, b.Extend(0, 34)) // 14 eth + 20 ipv4-ish test header

	eth := packet.NewHeader[*mbuf.Buffer](b, 0, 14)
	assert.Equal(t, 14, eth.PayloadOffset())
	assert.Equal(t, 20, eth.PayloadLen())
	assert.Equal(t, 34, eth.Len())

	ip := packet.NewHeader[packet.Header[*mbuf.Buffer]](eth, eth.PayloadOffset(), 20)
	assert.Equal(t, 34, ip.PayloadOffset())
	assert.Equal(t, 0, ip.PayloadLen())
	assert.Same(t, b, ip.Buffer())

	assert.Equal(t, eth, ip.Deparse())
}

func TestPostmarkDispositions(t *testing.T) {
	b, err := mbuf.New(arenaPool{})
	require.NoError(t, err)

	emit := packet.Emit(b)
	assert.True(t, emit.ShouldForward())
	assert.False(t, emit.ShouldStop())

	drop := packet.Drop(b)
	assert.False(t, drop.ShouldForward())
	assert.False(t, drop.ShouldStop())

	abort := packet.Abort(b)
	assert.False(t, abort.ShouldForward())
	assert.True(t, abort.ShouldStop())

	in, err := mbuf.New(arenaPool{})
	require.NoError(t, err)

	emitDrop := packet.EmitAndDrop(b, in)
	assert.True(t, emitDrop.ShouldForward())
	assert.Equal(t, "emit_and_drop", emitDrop.Disposition().String())
	assert.Same(t, b, emitDrop.Envelope())
	assert.Same(t, in, emitDrop.DropEnvelope())
}
