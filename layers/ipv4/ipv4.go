// Package ipv4 implements the IPv4 layer per RFC 791: header
// version/IHL, DSCP/ECN, total length, identification, flags/fragment,
// TTL, protocol, header checksum, and source/destination addresses.
package ipv4

import (
	"fmt"
	"net/netip"

	"github.com/yanet-platform/corepkt/endian"
	"github.com/yanet-platform/corepkt/layers/ethernet"
	"github.com/yanet-platform/corepkt/mbuf"
	"github.com/yanet-platform/corepkt/packet"
)

// HeaderLen is the fixed size of an IPv4 header without options. Options
// are not supported.
const HeaderLen = 20

// Protocol numbers the ICMP layers push.
const (
	ProtocolICMP uint8 = 1
)

type rawHeader struct {
	VersionIHL     byte
	DSCPECN        byte
	TotalLength    endian.U16
	Identification endian.U16
	FlagsFragment  endian.U16
	TTL            byte
	Protocol       byte
	Checksum       endian.U16
	SrcAddr        [4]byte
	DstAddr        [4]byte
}

// Packet is the capability a layer pushed above IPv4 (ICMPv4) needs: the
// ability to announce its own protocol number.
type Packet interface {
	packet.Envelope
	SetProtocol(uint8)
}

// Datagram is an IPv4 view over envelope E.
type Datagram[E packet.Envelope] struct {
	packet.Header[E]
}

func headerAt[E packet.Envelope](h packet.Header[E]) (*rawHeader, error) {
	return mbuf.ReadFixed[rawHeader](h.Buffer(), h.Offset())
}

// Parse interprets envelope's payload start as an IPv4 header. Returns
// ErrParseMismatch if envelope is an Ethernet frame whose EtherType is not
// IPv4, or if the version nibble is not 4.
func Parse[E packet.Envelope](envelope E) (Datagram[E], E, error) {
	if eth, ok := any(envelope).(interface{ EtherType() (uint16, error) }); ok {
		if etherType, err := eth.EtherType(); err == nil && etherType != ethernet.EtherTypeIPv4 {
			return Datagram[E]{}, envelope, fmt.Errorf("ipv4.Parse: %w: ethertype %#04x", mbuf.ErrParseMismatch, etherType)
		}
	}
	offset := envelope.PayloadOffset()
	raw, err := mbuf.ReadFixed[rawHeader](envelope.Buffer(), offset)
	if err != nil {
		return Datagram[E]{}, envelope, fmt.Errorf("ipv4.Parse: %w", err)
	}
	if raw.VersionIHL>>4 != 4 {
		return Datagram[E]{}, envelope, fmt.Errorf("ipv4.Parse: %w: version %d", mbuf.ErrParseMismatch, raw.VersionIHL>>4)
	}
	return Datagram[E]{Header: packet.NewHeader(envelope, offset, HeaderLen)}, envelope, nil
}

// Push extends envelope's buffer by HeaderLen, writes a default IPv4
// header (version=4, IHL=5), and sets EtherType=0x0800 on envelope when it
// is capable of carrying one (i.e. it is an ethernet.Frame).
func Push[E packet.Envelope](envelope E) (Datagram[E], error) {
	b := envelope.Buffer()
	offset := envelope.PayloadOffset()
	if err := b.Extend(offset, HeaderLen); err != nil {
		return Datagram[E]{}, fmt.Errorf("ipv4.Push: %w", err)
	}

	header := rawHeader{VersionIHL: 4<<4 | 5, TTL: 64}
	if _, err := mbuf.WriteFixed(b, offset, &header); err != nil {
		return Datagram[E]{}, fmt.Errorf("ipv4.Push: %w", err)
	}

	if eth, ok := any(envelope).(ethernet.Packet); ok {
		eth.SetEtherType(ethernet.EtherTypeIPv4)
	}

	return Datagram[E]{Header: packet.NewHeader(envelope, offset, HeaderLen)}, nil
}

// Peek clones buf and parses an IPv4 header directly on top of it, for
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
		return zero, fmt.Errorf("ipv4.Remove: %w", err)
	}
	return d.Envelope(), nil
}

// TTL returns the time-to-live field.
func (d Datagram[E]) TTL() (uint8, error) {
	h, err := headerAt(d.Header)
	if err != nil {
		return 0, err
	}
	return h.TTL, nil
}

// SetTTL overwrites the time-to-live field.
func (d Datagram[E]) SetTTL(ttl uint8) error {
	h, err := headerAt(d.Header)
	if err != nil {
		return err
	}
	h.TTL = ttl
	return nil
}

// Protocol returns the upper-layer protocol number.
func (d Datagram[E]) Protocol() (uint8, error) {
	h, err := headerAt(d.Header)
	if err != nil {
		return 0, err
	}
	return h.Protocol, nil
}

// SetProtocol overwrites the upper-layer protocol number. Satisfies the
// Packet capability consumed by icmpv4.Push.
func (d Datagram[E]) SetProtocol(protocol uint8) {
	h, err := headerAt(d.Header)
	if err != nil {
		panic(fmt.Sprintf("ipv4.SetProtocol: unreachable: %v", err))
	}
	h.Protocol = protocol
}

// SourceAddr returns the source address.
func (d Datagram[E]) SourceAddr() (netip.Addr, error) {
	h, err := headerAt(d.Header)
	if err != nil {
		return netip.Addr{}, err
	}
	return netip.AddrFrom4(h.SrcAddr), nil
}

// SetSourceAddr overwrites the source address.
func (d Datagram[E]) SetSourceAddr(addr netip.Addr) error {
	h, err := headerAt(d.Header)
	if err != nil {
		return err
	}
	h.SrcAddr = addr.As4()
	return nil
}

// DestinationAddr returns the destination address.
func (d Datagram[E]) DestinationAddr() (netip.Addr, error) {
	h, err := headerAt(d.Header)
	if err != nil {
		return netip.Addr{}, err
	}
	return netip.AddrFrom4(h.DstAddr), nil
}

// SetDestinationAddr overwrites the destination address.
func (d Datagram[E]) SetDestinationAddr(addr netip.Addr) error {
	h, err := headerAt(d.Header)
	if err != nil {
		return err
	}
	h.DstAddr = addr.As4()
	return nil
}

// Reconcile recomputes the total-length field as mbuf.data_len − offset,
// then zeroes and recomputes the 16-bit one's-complement header checksum
// over the header bytes only.
func (d Datagram[E]) Reconcile() error {
	h, err := headerAt(d.Header)
	if err != nil {
		return err
	}

	totalLength := uint16(d.Buffer().DataLen() - d.Offset())
	h.TotalLength.Set(totalLength)

	h.Checksum = endian.U16{}
	raw, err := mbuf.ReadSlice[byte](d.Buffer(), d.Offset(), HeaderLen)
	if err != nil {
		return err
	}
	sum := packet.SumBytes(0, raw)
	h.Checksum.Set(packet.FoldChecksum(sum))
	return nil
}

// ReconcileAll reconciles this layer, then cascades into envelope if it
// has derived fields of its own (e.g. Ethernet, or a further tunnel
// envelope) to recompute.
func (d Datagram[E]) ReconcileAll() error {
	if err := d.Reconcile(); err != nil {
		return err
	}
	if r, ok := any(d.Envelope()).(packet.Reconciler); ok {
		return r.ReconcileAll()
	}
	return nil
}
