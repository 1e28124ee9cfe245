// Package ipv6 implements the fixed 40-byte IPv6 header per RFC 8200:
// version/traffic-class/flow-label, payload length, next header, hop
// limit, and 128-bit source/destination addresses. Extension headers are
// not supported.
package ipv6

import (
	"fmt"
	"net/netip"

	"github.com/yanet-platform/corepkt/endian"
	"github.com/yanet-platform/corepkt/layers/ethernet"
	"github.com/yanet-platform/corepkt/mbuf"
	"github.com/yanet-platform/corepkt/packet"
)

// HeaderLen is the fixed size of an IPv6 header.
const HeaderLen = 40

// Next-header values the ICMP layers push.
const (
	NextHeaderICMPv6 uint8 = 58
)

type rawHeader struct {
	VersionTrafficClassFlowLabel [4]byte
	PayloadLength                endian.U16
	NextHeader                   byte
	HopLimit                     byte
	SrcAddr                      [16]byte
	DstAddr                      [16]byte
}

// Packet is the capability a layer pushed above IPv6 (ICMPv6) needs: the
// ability to announce its own next-header value and to read back the
// addresses needed to build the ICMPv6 pseudo-header.
type Packet interface {
	packet.Envelope
	SetNextHeader(uint8)
	SourceAddr() (netip.Addr, error)
	DestinationAddr() (netip.Addr, error)
}

// Datagram is an IPv6 view over envelope E.
type Datagram[E packet.Envelope] struct {
	packet.Header[E]
}

func headerAt[E packet.Envelope](h packet.Header[E]) (*rawHeader, error) {
	return mbuf.ReadFixed[rawHeader](h.Buffer(), h.Offset())
}

// Parse interprets envelope's payload start as an IPv6 header. Returns
// ErrParseMismatch if envelope is an Ethernet frame whose EtherType is not
// IPv6, or if the version nibble is not 6.
func Parse[E packet.Envelope](envelope E) (Datagram[E], E, error) {
	if eth, ok := any(envelope).(interface{ EtherType() (uint16, error) }); ok {
		if etherType, err := eth.EtherType(); err == nil && etherType != ethernet.EtherTypeIPv6 {
			return Datagram[E]{}, envelope, fmt.Errorf("ipv6.Parse: %w: ethertype %#04x", mbuf.ErrParseMismatch, etherType)
		}
	}
	offset := envelope.PayloadOffset()
	raw, err := mbuf.ReadFixed[rawHeader](envelope.Buffer(), offset)
	if err != nil {
		return Datagram[E]{}, envelope, fmt.Errorf("ipv6.Parse: %w", err)
	}
	if raw.VersionTrafficClassFlowLabel[0]>>4 != 6 {
		return Datagram[E]{}, envelope, fmt.Errorf("ipv6.Parse: %w: version %d", mbuf.ErrParseMismatch, raw.VersionTrafficClassFlowLabel[0]>>4)
	}
	return Datagram[E]{Header: packet.NewHeader(envelope, offset, HeaderLen)}, envelope, nil
}

// Push extends envelope's buffer by HeaderLen, writes a default IPv6
// header (version=6), and sets EtherType=0x86dd on envelope when it is
// capable of carrying one.
func Push[E packet.Envelope](envelope E) (Datagram[E], error) {
	b := envelope.Buffer()
	offset := envelope.PayloadOffset()
	if err := b.Extend(offset, HeaderLen); err != nil {
		return Datagram[E]{}, fmt.Errorf("ipv6.Push: %w", err)
	}

	header := rawHeader{HopLimit: 64}
	header.VersionTrafficClassFlowLabel[0] = 6 << 4
	if _, err := mbuf.WriteFixed(b, offset, &header); err != nil {
		return Datagram[E]{}, fmt.Errorf("ipv6.Push: %w", err)
	}

	if eth, ok := any(envelope).(ethernet.Packet); ok {
		eth.SetEtherType(ethernet.EtherTypeIPv6)
	}

	return Datagram[E]{Header: packet.NewHeader(envelope, offset, HeaderLen)}, nil
}

// Peek clones buf and parses an IPv6 header directly on top of it, for
// observer-only inspection.
func Peek(buf *mbuf.Buffer) (Datagram[*mbuf.Buffer], error) {
	clone := buf.Clone(mbuf.Internal())
	datagram, _, err := Parse[*mbuf.Buffer](clone)
	return datagram, err
}

// Remove shrinks the buffer by HeaderLen at this layer's offset and
// returns the envelope underneath.
func Remove[E packet.Envelope](d Datagram[E]) (E, error) {
	if err := d.Buffer().Shrink(d.Offset(), HeaderLen); err != nil {
		var zero E
		return zero, fmt.Errorf("ipv6.Remove: %w", err)
	}
	return d.Envelope(), nil
}

// HopLimit returns the hop limit field (IPv6's analogue of IPv4's TTL).
func (d Datagram[E]) HopLimit() (uint8, error) {
	h, err := headerAt(d.Header)
	if err != nil {
		return 0, err
	}
	return h.HopLimit, nil
}

// SetHopLimit overwrites the hop limit field.
func (d Datagram[E]) SetHopLimit(hopLimit uint8) error {
	h, err := headerAt(d.Header)
	if err != nil {
		return err
	}
	h.HopLimit = hopLimit
	return nil
}

// NextHeader returns the next-header field.
func (d Datagram[E]) NextHeader() (uint8, error) {
	h, err := headerAt(d.Header)
	if err != nil {
		return 0, err
	}
	return h.NextHeader, nil
}

// SetNextHeader overwrites the next-header field. Satisfies the Packet
// capability consumed by icmpv6.Push.
func (d Datagram[E]) SetNextHeader(nextHeader uint8) {
	h, err := headerAt(d.Header)
	if err != nil {
		panic(fmt.Sprintf("ipv6.SetNextHeader: unreachable: %v", err))
	}
	h.NextHeader = nextHeader
}

// SourceAddr returns the source address.
func (d Datagram[E]) SourceAddr() (netip.Addr, error) {
	h, err := headerAt(d.Header)
	if err != nil {
		return netip.Addr{}, err
	}
	return netip.AddrFrom16(h.SrcAddr), nil
}

// SetSourceAddr overwrites the source address.
func (d Datagram[E]) SetSourceAddr(addr netip.Addr) error {
	h, err := headerAt(d.Header)
	if err != nil {
		return err
	}
	h.SrcAddr = addr.As16()
	return nil
}

// DestinationAddr returns the destination address.
func (d Datagram[E]) DestinationAddr() (netip.Addr, error) {
	h, err := headerAt(d.Header)
	if err != nil {
		return netip.Addr{}, err
	}
	return netip.AddrFrom16(h.DstAddr), nil
}

// SetDestinationAddr overwrites the destination address.
func (d Datagram[E]) SetDestinationAddr(addr netip.Addr) error {
	h, err := headerAt(d.Header)
	if err != nil {
		return err
	}
	h.DstAddr = addr.As16()
	return nil
}

// PayloadLength returns the current payload-length field as stored
// on-wire (not recomputed).
func (d Datagram[E]) PayloadLength() (uint16, error) {
	h, err := headerAt(d.Header)
	if err != nil {
		return 0, err
	}
	return h.PayloadLength.Get(), nil
}

// Reconcile recomputes the payload-length field as
// mbuf.data_len − offset − HeaderLen. IPv6 carries no header checksum of
// its own (RFC 8200 dropped it).
func (d Datagram[E]) Reconcile() error {
	h, err := headerAt(d.Header)
	if err != nil {
		return err
	}
	payloadLength := uint16(d.Buffer().DataLen() - d.Offset() - HeaderLen)
	h.PayloadLength.Set(payloadLength)
	return nil
}

// ReconcileAll reconciles this layer, then cascades into envelope if it
// has derived fields of its own to recompute.
func (d Datagram[E]) ReconcileAll() error {
	if err := d.Reconcile(); err != nil {
		return err
	}
	if r, ok := any(d.Envelope()).(packet.Reconciler); ok {
		return r.ReconcileAll()
	}
	return nil
}
