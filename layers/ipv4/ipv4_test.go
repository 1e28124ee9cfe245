package ipv4_test

import (
	"net/netip"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yanet-platform/corepkt/layers/ethernet"
	"github.com/yanet-platform/corepkt/layers/ipv4"
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

	ip, err := ipv4.Push(eth)
	require.NoError(t, err)
	assert.Equal(t, ipv4.HeaderLen, ip.HeaderLen())

	etherType, err := eth.EtherType()
	require.NoError(t, err)
	assert.Equal(t, ethernet.EtherTypeIPv4, etherType)
}

func TestRoundTripPushRemove(t *testing.T) {
	b := newBuffer(t)
	eth, err := ethernet.Push[*mbuf.Buffer](b)
	require.NoError(t, err)

	before := append([]byte(nil), b.Bytes()...)

	ip, err := ipv4.Push(eth)
	require.NoError(t, err)

	back, err := ipv4.Remove(ip)
	require.NoError(t, err)
	assert.Equal(t, eth, back)
	assert.Equal(t, before, b.Bytes())
}

func TestReconcileRecomputesTotalLengthAndChecksum(t *testing.T) {
	b := newBuffer(t)
	eth, err := ethernet.Push[*mbuf.Buffer](b)
	require.NoError(t, err)
	ip, err := ipv4.Push(eth)
	require.NoError(t, err)

	require.NoError(t, ip.SetSourceAddr(netip.MustParseAddr("10.0.0.1")))
	require.NoError(t, ip.SetDestinationAddr(netip.MustParseAddr("10.0.0.2")))
	require.NoError(t, ip.SetTTL(255))

	require.NoError(t, b.Extend(ip.PayloadOffset(), 8))

	require.NoError(t, ip.Reconcile())

	raw, err := mbuf.ReadSlice[byte](b, ip.Offset(), ipv4.HeaderLen)
	require.NoError(t, err)
	sum := uint32(0)
	for i := 0; i+1 < len(raw); i += 2 {
		sum += uint32(raw[i])<<8 | uint32(raw[i+1])
	}
	for sum>>16 != 0 {
		sum = (sum & 0xffff) + (sum >> 16)
	}
	assert.Equal(t, uint16(0xffff), uint16(sum), "header checksum must validate to 0xffff")
}

// Running ReconcileAll twice must be byte-identical to running it once.
func TestReconcileIdempotent(t *testing.T) {
	b := newBuffer(t)
	eth, err := ethernet.Push[*mbuf.Buffer](b)
	require.NoError(t, err)
	ip, err := ipv4.Push(eth)
	require.NoError(t, err)
	require.NoError(t, b.Extend(ip.PayloadOffset(), 4))

	require.NoError(t, ip.ReconcileAll())
	once := append([]byte(nil), b.Bytes()...)
	require.NoError(t, ip.ReconcileAll())
	assert.Equal(t, once, b.Bytes())
}
