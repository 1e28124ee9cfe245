// Package icmpv4 implements ICMP for IPv4 per RFC 792: a common 4-byte
// header (type, code, checksum) followed by a message-specific body.
// Message bodies are discriminated by the type field; parsing the wrong
// message type returns the envelope back unchanged alongside
// mbuf.ErrParseMismatch.
package icmpv4

import (
	"fmt"

	"github.com/yanet-platform/corepkt/endian"
	"github.com/yanet-platform/corepkt/layers/ipv4"
	"github.com/yanet-platform/corepkt/mbuf"
	"github.com/yanet-platform/corepkt/packet"
)

// CommonHeaderLen is the size of the type/code/checksum header shared by
// every ICMPv4 message.
const CommonHeaderLen = 4

// EchoBodyLen is the size of the identifier/sequence-number body shared by
// Echo Request and Echo Reply.
const EchoBodyLen = 4

// UnusedBodyLen is the size of the reserved 4-byte field in Destination
// Unreachable.
const UnusedBodyLen = 4

// Message types this package discriminates.
const (
	TypeEchoReply          uint8 = 0
	TypeDestinationUnreach uint8 = 3
	TypeEchoRequest        uint8 = 8
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

// Common is the 4-byte type/code/checksum view shared by every message.
type Common[E ipv4.Packet] struct {
	packet.Header[E]
}

func commonAt[E ipv4.Packet](h packet.Header[E]) (*commonHeader, error) {
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
func Remove[E ipv4.Packet](c Common[E]) (E, error) {
	if err := c.Buffer().Shrink(c.Offset(), c.Len()); err != nil {
		var zero E
		return zero, fmt.Errorf("icmpv4.Remove: %w", err)
	}
	return c.Envelope(), nil
}

func pushCommon[E ipv4.Packet](envelope E, msgType uint8, bodyLen int) (packet.Header[E], error) {
	b := envelope.Buffer()
	offset := envelope.PayloadOffset()
	total := CommonHeaderLen + bodyLen
	if err := b.Extend(offset, total); err != nil {
		return packet.Header[E]{}, fmt.Errorf("icmpv4.Push: %w", err)
	}
	header := commonHeader{Type: msgType}
	if _, err := mbuf.WriteFixed(b, offset, &header); err != nil {
		return packet.Header[E]{}, fmt.Errorf("icmpv4.Push: %w", err)
	}
	envelope.SetProtocol(ipv4.ProtocolICMP)
	return packet.NewHeader(envelope, offset, CommonHeaderLen), nil
}

func parseCommon[E ipv4.Packet](envelope E, wantType uint8) (packet.Header[E], E, error) {
	if ip, ok := any(envelope).(interface{ Protocol() (uint8, error) }); ok {
		if protocol, err := ip.Protocol(); err == nil && protocol != ipv4.ProtocolICMP {
			return packet.Header[E]{}, envelope, fmt.Errorf("icmpv4.Parse: %w: protocol %d", mbuf.ErrParseMismatch, protocol)
		}
	}
	offset := envelope.PayloadOffset()
	h, err := mbuf.ReadFixed[commonHeader](envelope.Buffer(), offset)
	if err != nil {
		return packet.Header[E]{}, envelope, fmt.Errorf("icmpv4.Parse: %w", err)
	}
	if h.Type != wantType {
		return packet.Header[E]{}, envelope, fmt.Errorf("icmpv4.Parse: %w: type %d, want %d", mbuf.ErrParseMismatch, h.Type, wantType)
	}
	return packet.NewHeader(envelope, offset, CommonHeaderLen), envelope, nil
}

func reconcileChecksum[E ipv4.Packet](h packet.Header[E]) error {
	common, err := commonAt(h)
	if err != nil {
		return err
	}
	common.Checksum = endian.U16{}

	span, err := mbuf.ReadSlice[byte](h.Buffer(), h.Offset(), h.Len())
	if err != nil {
		return err
	}
	sum := packet.SumBytes(0, span)
	common.Checksum.Set(packet.FoldChecksum(sum))
	return nil
}

func cascade[E ipv4.Packet](h packet.Header[E]) error {
	if err := reconcileChecksum(h); err != nil {
		return err
	}
	if r, ok := any(h.Envelope()).(packet.Reconciler); ok {
		return r.ReconcileAll()
	}
	return nil
}

// EchoReply is the Echo Reply message (RFC 792): identifier, sequence
// number, then an opaque data tail copied from the invoking Echo Request.
type EchoReply[E ipv4.Packet] struct {
	Common[E]
}

// PushEchoReply pushes a zeroed Echo Reply (code=0, identifier=0, seq=0,
// no data) onto envelope, and sets envelope's protocol to ICMP.
func PushEchoReply[E ipv4.Packet](envelope E) (EchoReply[E], error) {
	header, err := pushCommon(envelope, TypeEchoReply, EchoBodyLen)
	if err != nil {
		return EchoReply[E]{}, err
	}
	if _, err := mbuf.WriteFixed(header.Buffer(), header.PayloadOffset(), &echoBody{}); err != nil {
		return EchoReply[E]{}, fmt.Errorf("icmpv4.PushEchoReply: %w", err)
	}
	return EchoReply[E]{Common: Common[E]{Header: header}}, nil
}

// ParseEchoReply parses envelope's payload as an Echo Reply. Returns
// ErrParseMismatch (with envelope returned back) if the type field is not
// Echo Reply.
func ParseEchoReply[E ipv4.Packet](envelope E) (EchoReply[E], E, error) {
	header, envelope, err := parseCommon(envelope, TypeEchoReply)
	if err != nil {
		return EchoReply[E]{}, envelope, err
	}
	if _, err := mbuf.ReadFixed[echoBody](header.Buffer(), header.PayloadOffset()); err != nil {
		return EchoReply[E]{}, envelope, fmt.Errorf("icmpv4.ParseEchoReply: %w", err)
	}
	return EchoReply[E]{Common: Common[E]{Header: header}}, envelope, nil
}

func (r EchoReply[E]) bodyAt() (*echoBody, error) {
	return mbuf.ReadFixed[echoBody](r.Buffer(), r.PayloadOffset())
}

// Identifier returns the identifier field.
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

// SeqNo returns the sequence-number field.
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

// Data returns the opaque bytes after the identifier/sequence-number
// body. The returned slice aliases the buffer.
func (r EchoReply[E]) Data() ([]byte, error) {
	return mbuf.ReadSlice[byte](r.Buffer(), r.dataOffset(), r.dataLen())
}

// SetData resizes the data tail to len(data) and writes it.
func (r EchoReply[E]) SetData(data []byte) error {
	offset := r.dataOffset()
	delta := len(data) - r.dataLen()
	if delta != 0 {
		if err := r.Buffer().Resize(offset, delta); err != nil {
			return fmt.Errorf("icmpv4.SetData: %w", err)
		}
	}
	if _, err := mbuf.WriteSlice(r.Buffer(), offset, data); err != nil {
		return fmt.Errorf("icmpv4.SetData: %w", err)
	}
	return nil
}

// Reconcile zeroes and recomputes this message's checksum over its
// header, body, and data.
func (r EchoReply[E]) Reconcile() error { return reconcileChecksum(r.Header) }

// ReconcileAll reconciles this message's checksum, then cascades into the
// IPv4 envelope's own ReconcileAll (total length, header checksum).
func (r EchoReply[E]) ReconcileAll() error { return cascade(r.Header) }

// EchoRequest is the Echo Request message (RFC 792), identical in shape
// to EchoReply but discriminated by TypeEchoRequest.
type EchoRequest[E ipv4.Packet] struct {
	Common[E]
}

// PushEchoRequest pushes a zeroed Echo Request onto envelope.
func PushEchoRequest[E ipv4.Packet](envelope E) (EchoRequest[E], error) {
	header, err := pushCommon(envelope, TypeEchoRequest, EchoBodyLen)
	if err != nil {
		return EchoRequest[E]{}, err
	}
	if _, err := mbuf.WriteFixed(header.Buffer(), header.PayloadOffset(), &echoBody{}); err != nil {
		return EchoRequest[E]{}, fmt.Errorf("icmpv4.PushEchoRequest: %w", err)
	}
	return EchoRequest[E]{Common: Common[E]{Header: header}}, nil
}

// ParseEchoRequest parses envelope's payload as an Echo Request.
func ParseEchoRequest[E ipv4.Packet](envelope E) (EchoRequest[E], E, error) {
	header, envelope, err := parseCommon(envelope, TypeEchoRequest)
	if err != nil {
		return EchoRequest[E]{}, envelope, err
	}
	if _, err := mbuf.ReadFixed[echoBody](header.Buffer(), header.PayloadOffset()); err != nil {
		return EchoRequest[E]{}, envelope, fmt.Errorf("icmpv4.ParseEchoRequest: %w", err)
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
			return fmt.Errorf("icmpv4.SetData: %w", err)
		}
	}
	if _, err := mbuf.WriteSlice(r.Buffer(), offset, data); err != nil {
		return fmt.Errorf("icmpv4.SetData: %w", err)
	}
	return nil
}

// Reconcile zeroes and recomputes this message's checksum.
func (r EchoRequest[E]) Reconcile() error { return reconcileChecksum(r.Header) }

// ReconcileAll reconciles this message then cascades to the envelope.
func (r EchoRequest[E]) ReconcileAll() error { return cascade(r.Header) }

// DestinationUnreachable is the Destination Unreachable message (RFC
// 792): a reserved 4-byte field followed by as much of the original
// invoking datagram as was captured.
type DestinationUnreachable[E ipv4.Packet] struct {
	Common[E]
}

// Destination Unreachable codes in common use.
const (
	CodeNetUnreachable  uint8 = 0
	CodeHostUnreachable uint8 = 1
	CodePortUnreachable uint8 = 3
)

// PushDestinationUnreachable pushes a Destination Unreachable message with
// the given code and original-datagram excerpt.
func PushDestinationUnreachable[E ipv4.Packet](envelope E, code uint8, original []byte) (DestinationUnreachable[E], error) {
	header, err := pushCommon(envelope, TypeDestinationUnreach, UnusedBodyLen+len(original))
	if err != nil {
		return DestinationUnreachable[E]{}, err
	}
	if _, err := mbuf.WriteSlice(header.Buffer(), header.PayloadOffset()+UnusedBodyLen, original); err != nil {
		return DestinationUnreachable[E]{}, fmt.Errorf("icmpv4.PushDestinationUnreachable: %w", err)
	}
	du := DestinationUnreachable[E]{Common: Common[E]{Header: header}}
	if err := du.SetCode(code); err != nil {
		return DestinationUnreachable[E]{}, err
	}
	return du, nil
}

// ParseDestinationUnreachable parses envelope's payload as a Destination
// Unreachable message.
func ParseDestinationUnreachable[E ipv4.Packet](envelope E) (DestinationUnreachable[E], E, error) {
	header, envelope, err := parseCommon(envelope, TypeDestinationUnreach)
	if err != nil {
		return DestinationUnreachable[E]{}, envelope, err
	}
	return DestinationUnreachable[E]{Common: Common[E]{Header: header}}, envelope, nil
}

// OriginalDatagram returns the captured excerpt of the datagram that
// triggered this error.
func (d DestinationUnreachable[E]) OriginalDatagram() ([]byte, error) {
	offset := d.PayloadOffset() + UnusedBodyLen
	return mbuf.ReadSlice[byte](d.Buffer(), offset, d.PayloadLen()-UnusedBodyLen)
}

// Reconcile zeroes and recomputes this message's checksum.
func (d DestinationUnreachable[E]) Reconcile() error { return reconcileChecksum(d.Header) }

// ReconcileAll reconciles this message then cascades to the envelope.
func (d DestinationUnreachable[E]) ReconcileAll() error { return cascade(d.Header) }
