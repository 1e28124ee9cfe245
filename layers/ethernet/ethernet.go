// Package ethernet implements the Ethernet II layer: 6-byte destination
// and source MAC addresses followed by a 2-byte big-endian EtherType.
package ethernet

import (
	"fmt"

	"github.com/yanet-platform/corepkt/endian"
	"github.com/yanet-platform/corepkt/mbuf"
	"github.com/yanet-platform/corepkt/packet"
)

// HeaderLen is the fixed size of an Ethernet II header.
const HeaderLen = 14

// EtherType values recognized by the layers above Ethernet.
const (
	EtherTypeIPv4 uint16 = 0x0800
	EtherTypeIPv6 uint16 = 0x86dd
)

type rawHeader struct {
	DstMAC    [6]byte
	SrcMAC    [6]byte
	EtherType endian.U16
}

// Packet is the capability a layer pushed above Ethernet needs: the
// ability to announce its own protocol in the EtherType field. Satisfied
// structurally by Frame[E] for any E.
type Packet interface {
	packet.Envelope
	SetEtherType(uint16)
}

// Frame is an Ethernet II view over envelope E.
type Frame[E packet.Envelope] struct {
	packet.Header[E]
}

func headerAt[E packet.Envelope](h packet.Header[E]) (*rawHeader, error) {
	return mbuf.ReadFixed[rawHeader](h.Buffer(), h.Offset())
}

// Parse interprets envelope's payload start as an Ethernet header. Returns
// the envelope back on failure so the caller can try a different
// interpretation.
func Parse[E packet.Envelope](envelope E) (Frame[E], E, error) {
	offset := envelope.PayloadOffset()
	if _, err := mbuf.ReadFixed[rawHeader](envelope.Buffer(), offset); err != nil {
		return Frame[E]{}, envelope, fmt.Errorf("ethernet.Parse: %w", err)
	}
	return Frame[E]{Header: packet.NewHeader(envelope, offset, HeaderLen)}, envelope, nil
}

// Push extends envelope's buffer by HeaderLen at the payload offset,
// writes a zeroed header, and returns the new layer.
func Push[E packet.Envelope](envelope E) (Frame[E], error) {
	b := envelope.Buffer()
	offset := envelope.PayloadOffset()
	if err := b.Extend(offset, HeaderLen); err != nil {
		return Frame[E]{}, fmt.Errorf("ethernet.Push: %w", err)
	}
	if _, err := mbuf.WriteFixed(b, offset, &rawHeader{}); err != nil {
		return Frame[E]{}, fmt.Errorf("ethernet.Push: %w", err)
	}
	return Frame[E]{Header: packet.NewHeader(envelope, offset, HeaderLen)}, nil
}

// Peek clones buf and parses an Ethernet header on top of the clone, for
// observer-only inspection whose drop must not free buf. Layer-level
// clones are realized as a clone of the whole underlying buffer: the
// Original/Clone tag lives on mbuf.Buffer, not on individual layer views.
func Peek(buf *mbuf.Buffer) (Frame[*mbuf.Buffer], error) {
	clone := buf.Clone(mbuf.Internal())
	frame, _, err := Parse[*mbuf.Buffer](clone)
	return frame, err
}

// Remove shrinks the buffer by HeaderLen at this layer's offset and
// returns the envelope underneath.
func Remove[E packet.Envelope](f Frame[E]) (E, error) {
	if err := f.Buffer().Shrink(f.Offset(), HeaderLen); err != nil {
		var zero E
		return zero, fmt.Errorf("ethernet.Remove: %w", err)
	}
	return f.Envelope(), nil
}

// DstMAC returns the destination MAC address.
func (f Frame[E]) DstMAC() ([6]byte, error) {
	h, err := headerAt(f.Header)
	if err != nil {
		return [6]byte{}, err
	}
	return h.DstMAC, nil
}

// SetDstMAC overwrites the destination MAC address.
func (f Frame[E]) SetDstMAC(mac [6]byte) error {
	h, err := headerAt(f.Header)
	if err != nil {
		return err
	}
	h.DstMAC = mac
	return nil
}

// SrcMAC returns the source MAC address.
func (f Frame[E]) SrcMAC() ([6]byte, error) {
	h, err := headerAt(f.Header)
	if err != nil {
		return [6]byte{}, err
	}
	return h.SrcMAC, nil
}

// SetSrcMAC overwrites the source MAC address.
func (f Frame[E]) SetSrcMAC(mac [6]byte) error {
	h, err := headerAt(f.Header)
	if err != nil {
		return err
	}
	h.SrcMAC = mac
	return nil
}

// EtherType returns the frame's EtherType field.
func (f Frame[E]) EtherType() (uint16, error) {
	h, err := headerAt(f.Header)
	if err != nil {
		return 0, err
	}
	return h.EtherType.Get(), nil
}

// SetEtherType overwrites the EtherType field. The view was created by a
// successful parse or push, so the header read cannot fail here; a
// failure means the buffer was resized out from under the view.
func (f Frame[E]) SetEtherType(etherType uint16) {
	h, err := headerAt(f.Header)
	if err != nil {
		panic(fmt.Sprintf("ethernet.SetEtherType: unreachable: %v", err))
	}
	h.EtherType.Set(etherType)
}

// Reconcile is a no-op: Ethernet carries no derived length or checksum
// field.
func (f Frame[E]) Reconcile() error { return nil }

// ReconcileAll reconciles this layer then cascades into envelope, if
// envelope itself has derived fields to recompute. Ethernet is typically
// pushed directly on the raw buffer, which does not, so this exists for
// uniformity with the other layers' ReconcileAll and for the (rare) case
// of Ethernet nested inside another reconcilable envelope.
func (f Frame[E]) ReconcileAll() error {
	if err := f.Reconcile(); err != nil {
		return err
	}
	if r, ok := any(f.Envelope()).(packet.Reconciler); ok {
		return r.ReconcileAll()
	}
	return nil
}
