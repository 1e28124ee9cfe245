package ipv6_test

import (
	"net/netip"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yanet-platform/corepkt/layers/ethernet"
	"github.com/yanet-platform/corepkt/layers/ipv6"
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

func TestPushOverEthernetSetsEtherType(t *testing.T) {
	b := newBuffer(t)
	eth, err := ethernet.Push[*mbuf.Buffer](b)
	require.NoError(t, err)

	ip, err := ipv6.Push(eth)
	require.NoError(t, err)
	assert.Equal(t, ipv6.HeaderLen, ip.HeaderLen())

	etherType, err := eth.EtherType()
	require.NoError(t, err)
	assert.Equal(t, ethernet.EtherTypeIPv6, etherType)
}

func TestRoundTripPushRemove(t *testing.T) {
	b := newBuffer(t)
	eth, err := ethernet.Push[*mbuf.Buffer](b)
	require.NoError(t, err)

	before := append([]byte(nil), b.Bytes()...)

	ip, err := ipv6.Push(eth)
	require.NoError(t, err)

	back, err := ipv6.Remove(ip)
	require.NoError(t, err)
	assert.Equal(t, eth, back)
	assert.Equal(t, before, b.Bytes())
}

func TestReconcileRecomputesPayloadLength(t *testing.T) {
	b := newBuffer(t)
	eth, err := ethernet.Push[*mbuf.Buffer](b)
	require.NoError(t, err)
	ip, err := ipv6.Push(eth)
	require.NoError(t, err)

	require.NoError(t, ip.SetSourceAddr(netip.MustParseAddr("2001:db8::1")))
	require.NoError(t, ip.SetDestinationAddr(netip.MustParseAddr("2001:db8::2")))

	require.NoError(t, b.Extend(ip.PayloadOffset(), 16))
	require.NoError(t, ip.Reconcile())

	got, err := ip.PayloadLength()
	require.NoError(t, err)
	assert.Equal(t, uint16(16), got)
}

func TestReconcileIdempotent(t *testing.T) {
	b := newBuffer(t)
	eth, err := ethernet.Push[*mbuf.Buffer](b)
	require.NoError(t, err)
	ip, err := ipv6.Push(eth)
	require.NoError(t, err)
	require.NoError(t, b.Extend(ip.PayloadOffset(), 8))

	require.NoError(t, ip.ReconcileAll())
	once := append([]byte(nil), b.Bytes()...)
	require.NoError(t, ip.ReconcileAll())
	assert.Equal(t, once, b.Bytes())
}
