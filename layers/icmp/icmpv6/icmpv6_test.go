package icmpv6_test

import (
	"net/netip"
	"testing"

	"github.com/gopacket/gopacket/layers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yanet-platform/corepkt/layers/ethernet"
	"github.com/yanet-platform/corepkt/layers/icmp/icmpv6"
	"github.com/yanet-platform/corepkt/layers/ipv6"
	"github.com/yanet-platform/corepkt/mbuf"
	"github.com/yanet-platform/corepkt/wiretest"
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

func TestPushEchoOverEthernetIPv6(t *testing.T) {
	b := newBuffer(t)
	eth, err := ethernet.Push[*mbuf.Buffer](b)
	require.NoError(t, err)
	ip6, err := ipv6.Push(eth)
	require.NoError(t, err)

	reply, err := icmpv6.PushEchoReply(ip6)
	require.NoError(t, err)

	assert.Equal(t, icmpv6.CommonHeaderLen, reply.HeaderLen())
	assert.Equal(t, 4, reply.PayloadLen())

	msgType, err := reply.Type()
	require.NoError(t, err)
	assert.Equal(t, icmpv6.TypeEchoReply, msgType)
	assert.EqualValues(t, 129, msgType)

	code, err := reply.Code()
	require.NoError(t, err)
	assert.Equal(t, uint8(0), code)

	nextHeader, err := ip6.NextHeader()
	require.NoError(t, err)
	assert.Equal(t, ipv6.NextHeaderICMPv6, nextHeader)
}

func TestSetEchoFields(t *testing.T) {
	b := newBuffer(t)
	eth, err := ethernet.Push[*mbuf.Buffer](b)
	require.NoError(t, err)
	ip6, err := ipv6.Push(eth)
	require.NoError(t, err)
	require.NoError(t, ip6.SetSourceAddr(netip.MustParseAddr("2001:db8::1")))
	require.NoError(t, ip6.SetDestinationAddr(netip.MustParseAddr("2001:db8::2")))

	reply, err := icmpv6.PushEchoReply(ip6)
	require.NoError(t, err)

	require.NoError(t, reply.SetIdentifier(42))
	require.NoError(t, reply.SetSeqNo(7))
	require.NoError(t, reply.SetData(make([]byte, 10)))

	id, err := reply.Identifier()
	require.NoError(t, err)
	assert.Equal(t, uint16(42), id)

	seq, err := reply.SeqNo()
	require.NoError(t, err)
	assert.Equal(t, uint16(7), seq)

	data, err := reply.Data()
	require.NoError(t, err)
	assert.Equal(t, make([]byte, 10), data)
	assert.Equal(t, 14, reply.PayloadLen())

	require.NoError(t, reply.ReconcileAll())
	checksum, err := reply.Checksum()
	require.NoError(t, err)
	assert.NotEqual(t, uint16(0), checksum)
}

// TestChecksumMatchesIndependentSerializer cross-checks this package's
// ICMPv6 checksum (header + pseudo-header) against gopacket's independent
// implementation.
func TestChecksumMatchesIndependentSerializer(t *testing.T) {
	src := netip.MustParseAddr("2001:db8::1")
	dst := netip.MustParseAddr("2001:db8::2")
	data := []byte("hello, world")

	reference, err := wiretest.ICMPv6Echo(wiretest.DefaultSrcMAC, wiretest.DefaultDstMAC, src, dst, 64, true, 42, 7, data)
	require.NoError(t, err)

	pkt := wiretest.Parse(reference)
	icmpLayer := pkt.Layer(layers.LayerTypeICMPv6)
	require.NotNil(t, icmpLayer)
	wantChecksum := icmpLayer.(*layers.ICMPv6).Checksum

	b := newBuffer(t)
	eth, err := ethernet.Push[*mbuf.Buffer](b)
	require.NoError(t, err)
	require.NoError(t, eth.SetSrcMAC([6]byte(wiretest.DefaultSrcMAC)))
	require.NoError(t, eth.SetDstMAC([6]byte(wiretest.DefaultDstMAC)))

	ip6, err := ipv6.Push(eth)
	require.NoError(t, err)
	require.NoError(t, ip6.SetSourceAddr(src))
	require.NoError(t, ip6.SetDestinationAddr(dst))
	require.NoError(t, ip6.SetHopLimit(64))

	reply, err := icmpv6.PushEchoReply(ip6)
	require.NoError(t, err)
	require.NoError(t, reply.SetIdentifier(42))
	require.NoError(t, reply.SetSeqNo(7))
	require.NoError(t, reply.SetData(data))
	require.NoError(t, reply.ReconcileAll())

	gotChecksum, err := reply.Checksum()
	require.NoError(t, err)
	assert.Equal(t, wantChecksum, gotChecksum)
	assert.Equal(t, reference, b.Bytes())
}

func TestPacketTooBigCarriesMTUAndOffendingPacket(t *testing.T) {
	b := newBuffer(t)
	eth, err := ethernet.Push[*mbuf.Buffer](b)
	require.NoError(t, err)
	ip6, err := ipv6.Push(eth)
	require.NoError(t, err)

	offending := []byte{1, 2, 3, 4, 5, 6, 7, 8}
	ptb, err := icmpv6.PushPacketTooBig(ip6, 1280, offending)
	require.NoError(t, err)

	msgType, err := ptb.Type()
	require.NoError(t, err)
	assert.Equal(t, icmpv6.TypePacketTooBig, msgType)

	mtu, err := ptb.MTU()
	require.NoError(t, err)
	assert.Equal(t, uint32(1280), mtu)

	got, err := ptb.OffendingPacket()
	require.NoError(t, err)
	assert.Equal(t, offending, got)

	require.NoError(t, ptb.ReconcileAll())
	checksum, err := ptb.Checksum()
	require.NoError(t, err)
	assert.NotEqual(t, uint16(0), checksum)
}

func TestDestinationUnreachableCarriesOffendingPacket(t *testing.T) {
	b := newBuffer(t)
	eth, err := ethernet.Push[*mbuf.Buffer](b)
	require.NoError(t, err)
	ip6, err := ipv6.Push(eth)
	require.NoError(t, err)

	offending := []byte{9, 9, 9, 9}
	du, err := icmpv6.PushDestinationUnreachable(ip6, icmpv6.CodeNoRouteToDestination, offending)
	require.NoError(t, err)

	code, err := du.Code()
	require.NoError(t, err)
	assert.Equal(t, icmpv6.CodeNoRouteToDestination, code)

	got, err := du.OffendingPacket()
	require.NoError(t, err)
	assert.Equal(t, offending, got)
}
