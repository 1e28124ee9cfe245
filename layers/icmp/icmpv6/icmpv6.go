// Package icmpv6 implements ICMP for IPv6 per RFC 4443: the same 4-byte
// type/code/checksum header as ICMPv4, but the checksum additionally
// covers a pseudo-header built from the enclosing IPv6 envelope (source
// address, destination address, upper-layer packet length, next header =
// 58), as RFC 8200 §8.1 requires.
//
// Message types are parametric over their IPv6 envelope: any envelope
// satisfying ipv6.Packet works, so an ICMPv6 message can be pushed onto a
// bare IPv6 datagram or onto an IPv6 header nested inside a tunnel
// without duplicating this package.
package icmpv6

import (
	"fmt"

	"github.com/yanet-platform/corepkt/endian"
	"github.com/yanet-platform/corepkt/layers/ipv6"
	"github.com/yanet-platform/corepkt/mbuf"
	"github.com/yanet-platform/corepkt/packet"
)

// CommonHeaderLen is the size of the type/code/checksum header shared by
// every ICMPv6 message.
const CommonHeaderLen = 4

// EchoBodyLen is the size of the identifier/sequence-number body shared by
// Echo Request and Echo Reply.
const EchoBodyLen = 4

// Message types this package discriminates.
const (
	TypeDestinationUnreach uint8 = 1
	TypePacketTooBig       uint8 = 2
	TypeEchoRequest        uint8 = 128
	TypeEchoReply          uint8 = 129
)

type commonHeader struct {
	Type     byte
	Code     byte
	Checksum endian.U16
}

type echoBody struct {
	Identifier endian.U16
	SeqNo      endian.U16
}

type packetTooBigBody struct {
	MTU endian.U32
}

// Common is the 4-byte type/code/checksum view shared by every message.
type Common[E ipv6.Packet] struct {
	packet.Header[E]
}

func commonAt[E ipv6.Packet](h packet.Header[E]) (*commonHeader, error) {
	return mbuf.ReadFixed[commonHeader](h.Buffer(), h.Offset())
}

// Type returns the message's type discriminant.
func (c Common[E]) Type() (uint8, error) {
	h, err := commonAt(c.Header)
	if err != nil {
		return 0, err
	}
	return h.Type, nil
}

// Code returns the message's code field.
func (c Common[E]) Code() (uint8, error) {
	h, err := commonAt(c.Header)
	if err != nil {
		return 0, err
	}
	return h.Code, nil
}

// SetCode overwrites the message's code field.
func (c Common[E]) SetCode(code uint8) error {
	h, err := commonAt(c.Header)
	if err != nil {
		return err
	}
	h.Code = code
	return nil
}

// Checksum returns the on-wire checksum field (not recomputed).
func (c Common[E]) Checksum() (uint16, error) {
	h, err := commonAt(c.Header)
	if err != nil {
		return 0, err
	}
	return h.Checksum.Get(), nil
}

// Remove shrinks the buffer by this message's full on-wire length (header
// plus body and any data tail) at its offset and returns the envelope
// underneath. It assumes c is the innermost layer, exactly mirroring the
// bytes a corresponding Push call added.
func Remove[E ipv6.Packet](c Common[E]) (E, error) {
	if err := c.Buffer().Shrink(c.Offset(), c.Len()); err != nil {
		var zero E
		return zero, fmt.Errorf("icmpv6.Remove: %w", err)
	}
	return c.Envelope(), nil
}

func pushCommon[E ipv6.Packet](envelope E, msgType uint8, bodyLen int) (packet.Header[E], error) {
	b := envelope.Buffer()
	offset := envelope.PayloadOffset()
	total := CommonHeaderLen + bodyLen
	if err := b.Extend(offset, total); err != nil {
		return packet.Header[E]{}, fmt.Errorf("icmpv6.Push: %w", err)
	}
	header := commonHeader{Type: msgType}
	if _, err := mbuf.WriteFixed(b, offset, &header); err != nil {
		return packet.Header[E]{}, fmt.Errorf("icmpv6.Push: %w", err)
	}
	envelope.SetNextHeader(ipv6.NextHeaderICMPv6)
	return packet.NewHeader(envelope, offset, CommonHeaderLen), nil
}

func parseCommon[E ipv6.Packet](envelope E, wantType uint8) (packet.Header[E], E, error) {
	if ip, ok := any(envelope).(interface{ NextHeader() (uint8, error) }); ok {
		if nextHeader, err := ip.NextHeader(); err == nil && nextHeader != ipv6.NextHeaderICMPv6 {
			return packet.Header[E]{}, envelope, fmt.Errorf("icmpv6.Parse: %w: next header %d", mbuf.ErrParseMismatch, nextHeader)
		}
	}
	offset := envelope.PayloadOffset()
	h, err := mbuf.ReadFixed[commonHeader](envelope.Buffer(), offset)
	if err != nil {
		return packet.Header[E]{}, envelope, fmt.Errorf("icmpv6.Parse: %w", err)
	}
	if h.Type != wantType {
		return packet.Header[E]{}, envelope, fmt.Errorf("icmpv6.Parse: %w: type %d, want %d", mbuf.ErrParseMismatch, h.Type, wantType)
	}
	return packet.NewHeader(envelope, offset, CommonHeaderLen), envelope, nil
}

// pseudoHeaderSum accumulates the RFC 8200 §8.1 IPv6 pseudo-header: source
// address, destination address, upper-layer packet length (32 bits), and
// next header (cast to 32 bits, the high 24 bits implicitly zero).
func pseudoHeaderSum[E ipv6.Packet](h packet.Header[E]) (uint32, error) {
	src, err := h.Envelope().SourceAddr()
	if err != nil {
		return 0, err
	}
	dst, err := h.Envelope().DestinationAddr()
	if err != nil {
		return 0, err
	}

	sum := packet.SumBytes(0, src.AsSlice())
	sum = packet.SumBytes(sum, dst.AsSlice())
	sum = packet.SumUint32(sum, uint32(h.Len()))
	sum = packet.SumUint32(sum, uint32(ipv6.NextHeaderICMPv6))
	return sum, nil
}

func reconcileChecksum[E ipv6.Packet](h packet.Header[E]) error {
	common, err := commonAt(h)
	if err != nil {
		return err
	}
	common.Checksum = endian.U16{}

	sum, err := pseudoHeaderSum(h)
	if err != nil {
		return err
	}

	span, err := mbuf.ReadSlice[byte](h.Buffer(), h.Offset(), h.Len())
	if err != nil {
		return err
	}
	sum = packet.SumBytes(sum, span)

	common.Checksum.Set(packet.FoldChecksum(sum))
	return nil
}

func cascade[E ipv6.Packet](h packet.Header[E]) error {
	if err := reconcileChecksum(h); err != nil {
		return err
	}
	if r, ok := any(h.Envelope()).(packet.Reconciler); ok {
		return r.ReconcileAll()
	}
	return nil
}

// EchoReply is the Echo Reply message (RFC 4443 §4.2): identifier,
// sequence number, then an opaque data tail copied from the invoking Echo
// Request.
type EchoReply[E ipv6.Packet] struct {
	Common[E]
}

// PushEchoReply pushes a zeroed Echo Reply (code=0, identifier=0, seq=0,
// no data) onto envelope, and sets envelope's next-header to ICMPv6.
func PushEchoReply[E ipv6.Packet](envelope E) (EchoReply[E], error) {
	header, err := pushCommon(envelope, TypeEchoReply, EchoBodyLen)
	if err != nil {
		return EchoReply[E]{}, err
	}
	if _, err := mbuf.WriteFixed(header.Buffer(), header.PayloadOffset(), &echoBody{}); err != nil {
		return EchoReply[E]{}, fmt.Errorf("icmpv6.PushEchoReply: %w", err)
	}
	return EchoReply[E]{Common: Common[E]{Header: header}}, nil
}

// ParseEchoReply parses envelope's payload as an Echo Reply.
func ParseEchoReply[E ipv6.Packet](envelope E) (EchoReply[E], E, error) {
	header, envelope, err := parseCommon(envelope, TypeEchoReply)
	if err != nil {
		return EchoReply[E]{}, envelope, err
	}
	if _, err := mbuf.ReadFixed[echoBody](header.Buffer(), header.PayloadOffset()); err != nil {
		return EchoReply[E]{}, envelope, fmt.Errorf("icmpv6.ParseEchoReply: %w", err)
	}
	return EchoReply[E]{Common: Common[E]{Header: header}}, envelope, nil
}

func (r EchoReply[E]) bodyAt() (*echoBody, error) {
	return mbuf.ReadFixed[echoBody](r.Buffer(), r.PayloadOffset())
}

// Identifier returns the identifier field from the invoking Echo Request.
func (r EchoReply[E]) Identifier() (uint16, error) {
	b, err := r.bodyAt()
	if err != nil {
		return 0, err
	}
	return b.Identifier.Get(), nil
}

// SetIdentifier overwrites the identifier field.
func (r EchoReply[E]) SetIdentifier(id uint16) error {
	b, err := r.bodyAt()
	if err != nil {
		return err
	}
	b.Identifier.Set(id)
	return nil
}

// SeqNo returns the sequence-number field from the invoking Echo Request.
func (r EchoReply[E]) SeqNo() (uint16, error) {
	b, err := r.bodyAt()
	if err != nil {
		return 0, err
	}
	return b.SeqNo.Get(), nil
}

// SetSeqNo overwrites the sequence-number field.
func (r EchoReply[E]) SetSeqNo(seq uint16) error {
	b, err := r.bodyAt()
	if err != nil {
		return err
	}
	b.SeqNo.Set(seq)
	return nil
}

func (r EchoReply[E]) dataOffset() int { return r.PayloadOffset() + EchoBodyLen }
func (r EchoReply[E]) dataLen() int    { return r.PayloadLen() - EchoBodyLen }

// Data returns the opaque bytes from the invoking Echo Request.
func (r EchoReply[E]) Data() ([]byte, error) {
	return mbuf.ReadSlice[byte](r.Buffer(), r.dataOffset(), r.dataLen())
}

// SetData resizes the data tail to len(data) and writes it.
func (r EchoReply[E]) SetData(data []byte) error {
	offset := r.dataOffset()
	delta := len(data) - r.dataLen()
	if delta != 0 {
		if err := r.Buffer().Resize(offset, delta); err != nil {
			return fmt.Errorf("icmpv6.SetData: %w", err)
		}
	}
	if _, err := mbuf.WriteSlice(r.Buffer(), offset, data); err != nil {
		return fmt.Errorf("icmpv6.SetData: %w", err)
	}
	return nil
}

// Reconcile zeroes and recomputes this message's checksum, including the
// IPv6 pseudo-header.
func (r EchoReply[E]) Reconcile() error { return reconcileChecksum(r.Header) }

// ReconcileAll reconciles this message's checksum then cascades into the
// IPv6 envelope's own ReconcileAll (payload length).
func (r EchoReply[E]) ReconcileAll() error { return cascade(r.Header) }

// EchoRequest is the Echo Request message (RFC 4443 §4.1), identical in
// shape to EchoReply but discriminated by TypeEchoRequest.
type EchoRequest[E ipv6.Packet] struct {
	Common[E]
}

// PushEchoRequest pushes a zeroed Echo Request onto envelope.
func PushEchoRequest[E ipv6.Packet](envelope E) (EchoRequest[E], error) {
	header, err := pushCommon(envelope, TypeEchoRequest, EchoBodyLen)
	if err != nil {
		return EchoRequest[E]{}, err
	}
	if _, err := mbuf.WriteFixed(header.Buffer(), header.PayloadOffset(), &echoBody{}); err != nil {
		return EchoRequest[E]{}, fmt.Errorf("icmpv6.PushEchoRequest: %w", err)
	}
	return EchoRequest[E]{Common: Common[E]{Header: header}}, nil
}

// ParseEchoRequest parses envelope's payload as an Echo Request.
func ParseEchoRequest[E ipv6.Packet](envelope E) (EchoRequest[E], E, error) {
	header, envelope, err := parseCommon(envelope, TypeEchoRequest)
	if err != nil {
		return EchoRequest[E]{}, envelope, err
	}
	if _, err := mbuf.ReadFixed[echoBody](header.Buffer(), header.PayloadOffset()); err != nil {
		return EchoRequest[E]{}, envelope, fmt.Errorf("icmpv6.ParseEchoRequest: %w", err)
	}
	return EchoRequest[E]{Common: Common[E]{Header: header}}, envelope, nil
}

func (r EchoRequest[E]) bodyAt() (*echoBody, error) {
	return mbuf.ReadFixed[echoBody](r.Buffer(), r.PayloadOffset())
}

// Identifier returns the identifier field.
func (r EchoRequest[E]) Identifier() (uint16, error) {
	b, err := r.bodyAt()
	if err != nil {
		return 0, err
	}
	return b.Identifier.Get(), nil
}

// SetIdentifier overwrites the identifier field.
func (r EchoRequest[E]) SetIdentifier(id uint16) error {
	b, err := r.bodyAt()
	if err != nil {
		return err
	}
	b.Identifier.Set(id)
	return nil
}

// SeqNo returns the sequence-number field.
func (r EchoRequest[E]) SeqNo() (uint16, error) {
	b, err := r.bodyAt()
	if err != nil {
		return 0, err
	}
	return b.SeqNo.Get(), nil
}

// SetSeqNo overwrites the sequence-number field.
func (r EchoRequest[E]) SetSeqNo(seq uint16) error {
	b, err := r.bodyAt()
	if err != nil {
		return err
	}
	b.SeqNo.Set(seq)
	return nil
}

func (r EchoRequest[E]) dataOffset() int { return r.PayloadOffset() + EchoBodyLen }
func (r EchoRequest[E]) dataLen() int    { return r.PayloadLen() - EchoBodyLen }

// Data returns the opaque data tail.
func (r EchoRequest[E]) Data() ([]byte, error) {
	return mbuf.ReadSlice[byte](r.Buffer(), r.dataOffset(), r.dataLen())
}

// SetData resizes the data tail to len(data) and writes it.
func (r EchoRequest[E]) SetData(data []byte) error {
	offset := r.dataOffset()
	delta := len(data) - r.dataLen()
	if delta != 0 {
		if err := r.Buffer().Resize(offset, delta); err != nil {
			return fmt.Errorf("icmpv6.SetData: %w", err)
		}
	}
	if _, err := mbuf.WriteSlice(r.Buffer(), offset, data); err != nil {
		return fmt.Errorf("icmpv6.SetData: %w", err)
	}
	return nil
}

// Reconcile zeroes and recomputes this message's checksum.
func (r EchoRequest[E]) Reconcile() error { return reconcileChecksum(r.Header) }

// ReconcileAll reconciles this message then cascades to the envelope.
func (r EchoRequest[E]) ReconcileAll() error { return cascade(r.Header) }

// PacketTooBig is the Packet Too Big message (RFC 4443 §3.2): a 4-byte
// MTU field followed by as much of the offending packet as fits.
type PacketTooBig[E ipv6.Packet] struct {
	Common[E]
}

// PushPacketTooBig pushes a Packet Too Big message reporting mtu, with the
// given excerpt of the offending packet.
func PushPacketTooBig[E ipv6.Packet](envelope E, mtu uint32, offending []byte) (PacketTooBig[E], error) {
	header, err := pushCommon(envelope, TypePacketTooBig, 4+len(offending))
	if err != nil {
		return PacketTooBig[E]{}, err
	}
	body := packetTooBigBody{}
	body.MTU.Set(mtu)
	if _, err := mbuf.WriteFixed(header.Buffer(), header.PayloadOffset(), &body); err != nil {
		return PacketTooBig[E]{}, fmt.Errorf("icmpv6.PushPacketTooBig: %w", err)
	}
	if _, err := mbuf.WriteSlice(header.Buffer(), header.PayloadOffset()+4, offending); err != nil {
		return PacketTooBig[E]{}, fmt.Errorf("icmpv6.PushPacketTooBig: %w", err)
	}
	return PacketTooBig[E]{Common: Common[E]{Header: header}}, nil
}

// ParsePacketTooBig parses envelope's payload as a Packet Too Big message.
func ParsePacketTooBig[E ipv6.Packet](envelope E) (PacketTooBig[E], E, error) {
	header, envelope, err := parseCommon(envelope, TypePacketTooBig)
	if err != nil {
		return PacketTooBig[E]{}, envelope, err
	}
	return PacketTooBig[E]{Common: Common[E]{Header: header}}, envelope, nil
}

// MTU returns the reported MTU field.
func (p PacketTooBig[E]) MTU() (uint32, error) {
	b, err := mbuf.ReadFixed[packetTooBigBody](p.Buffer(), p.PayloadOffset())
	if err != nil {
		return 0, err
	}
	return b.MTU.Get(), nil
}

// OffendingPacket returns the captured excerpt of the packet that
// triggered this error.
func (p PacketTooBig[E]) OffendingPacket() ([]byte, error) {
	return mbuf.ReadSlice[byte](p.Buffer(), p.PayloadOffset()+4, p.PayloadLen()-4)
}

// Reconcile zeroes and recomputes this message's checksum.
func (p PacketTooBig[E]) Reconcile() error { return reconcileChecksum(p.Header) }

// ReconcileAll reconciles this message then cascades to the envelope.
func (p PacketTooBig[E]) ReconcileAll() error { return cascade(p.Header) }

// DestinationUnreachable is the Destination Unreachable message (RFC 4443
// §3.1): a reserved 4-byte field followed by as much of the offending
// packet as was captured.
type DestinationUnreachable[E ipv6.Packet] struct {
	Common[E]
}

// Destination Unreachable codes in common use.
const (
	CodeNoRouteToDestination uint8 = 0
	CodeAdminProhibited      uint8 = 1
	CodeAddressUnreachable   uint8 = 3
	CodePortUnreachable      uint8 = 4
)

// PushDestinationUnreachable pushes a Destination Unreachable message with
// the given code and offending-packet excerpt.
func PushDestinationUnreachable[E ipv6.Packet](envelope E, code uint8, offending []byte) (DestinationUnreachable[E], error) {
	header, err := pushCommon(envelope, TypeDestinationUnreach, 4+len(offending))
	if err != nil {
		return DestinationUnreachable[E]{}, err
	}
	if _, err := mbuf.WriteSlice(header.Buffer(), header.PayloadOffset()+4, offending); err != nil {
		return DestinationUnreachable[E]{}, fmt.Errorf("icmpv6.PushDestinationUnreachable: %w", err)
	}
	du := DestinationUnreachable[E]{Common: Common[E]{Header: header}}
	if err := du.SetCode(code); err != nil {
		return DestinationUnreachable[E]{}, err
	}
	return du, nil
}

// ParseDestinationUnreachable parses envelope's payload as a Destination
// Unreachable message.
func ParseDestinationUnreachable[E ipv6.Packet](envelope E) (DestinationUnreachable[E], E, error) {
	header, envelope, err := parseCommon(envelope, TypeDestinationUnreach)
	if err != nil {
		return DestinationUnreachable[E]{}, envelope, err
	}
	return DestinationUnreachable[E]{Common: Common[E]{Header: header}}, envelope, nil
}

// OffendingPacket returns the captured excerpt of the packet that
// triggered this error.
func (d DestinationUnreachable[E]) OffendingPacket() ([]byte, error) {
	return mbuf.ReadSlice[byte](d.Buffer(), d.PayloadOffset()+4, d.PayloadLen()-4)
}

// Reconcile zeroes and recomputes this message's checksum.
func (d DestinationUnreachable[E]) Reconcile() error { return reconcileChecksum(d.Header) }

// ReconcileAll reconciles this message then cascades to the envelope.
func (d DestinationUnreachable[E]) ReconcileAll() error { return cascade(d.Header) }
