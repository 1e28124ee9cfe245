// Package packet defines the contract every protocol layer satisfies:
// envelope access, header offset/length, and the parse/push/remove/
// deparse/reset/reconcile operations, plus the shared checksum-folding
// routine layers build on.
//
// A "layer" in this package's sense is any type embedding Header[E] for
// some envelope type E. Concrete layers (layers/ethernet, layers/ipv4,
// layers/icmp/icmpv6, ...) implement parse/push/peek/remove as regular
// functions parameterized over their envelope's capability interface,
// rather than as methods on a shared generic interface. Go cannot
// express "returns Self" or "returns (Self, Envelope)" polymorphically
// across instantiations, so each layer package owns its own
// Parse/Push/Remove functions (and, for ethernet/ipv4/ipv6, Peek)
// following this shape. Deparse and Reset are provided once, here, by
// Header.Deparse and Reset.
package packet

import "github.com/yanet-platform/corepkt/mbuf"

// Envelope is the capability every layer's envelope must provide. Both
// *mbuf.Buffer (the root envelope, with no header of its own) and every
// Header[E] (any already-parsed layer) satisfy it, which is what lets
// layers nest arbitrarily deep: Mbuf -> Ethernet -> IPv6 -> ICMPv6 ->
// EchoReply, each one the next one's envelope.
type Envelope interface {
	// Buffer returns the underlying message buffer, transitively through
	// however many envelopes separate this view from it.
	Buffer() *mbuf.Buffer
	// PayloadOffset is the byte index in the buffer where this envelope's
	// payload begins.
	PayloadOffset() int
	// PayloadLen is the number of bytes in this envelope's payload.
	PayloadLen() int
}

// Header is the common state every concrete layer embeds: a reference to
// the envelope it was parsed from or pushed onto, the byte offset where
// this layer's header begins, and the header's length in bytes.
//
// Header itself satisfies Envelope, so a layer built on top of Header[E]
// can in turn be any other layer's envelope, which is what makes the
// encapsulation model recursive.
type Header[E Envelope] struct {
	envelope E
	offset   int
	hdrLen   int
}

// NewHeader constructs a Header view. Layer packages call this from their
// own Parse/Push/Peek constructors; it is not meant to be called directly
// by application code, which is why every layer package re-exports it
// behind its own typed constructor instead.
func NewHeader[E Envelope](envelope E, offset, headerLen int) Header[E] {
	return Header[E]{envelope: envelope, offset: offset, hdrLen: headerLen}
}

// Envelope returns the envelope this layer was parsed from or pushed onto.
func (h Header[E]) Envelope() E { return h.envelope }

// Buffer returns the underlying message buffer.
func (h Header[E]) Buffer() *mbuf.Buffer { return h.envelope.Buffer() }

// Offset is the byte index in the buffer where this layer's header
// begins.
func (h Header[E]) Offset() int { return h.offset }

// HeaderLen is the number of bytes this layer's header occupies.
func (h Header[E]) HeaderLen() int { return h.hdrLen }

// PayloadOffset is the byte index where this layer's payload begins.
func (h Header[E]) PayloadOffset() int { return h.offset + h.hdrLen }

// PayloadLen is the number of bytes available to this layer's payload,
// derived from the envelope's own payload length minus this header.
func (h Header[E]) PayloadLen() int { return h.envelope.PayloadLen() - h.hdrLen }

// Len is the number of bytes from this layer's offset to the end of the
// buffer's live data, i.e. this layer plus everything nested inside it.
func (h Header[E]) Len() int { return h.Buffer().DataLen() - h.offset }

// Deparse discards this view and returns the envelope underneath,
// without mutating any bytes.
func (h Header[E]) Deparse() E { return h.envelope }

// Reconciler is the capability an envelope must provide for a layer
// above it to cascade reconciliation upward: ReconcileAll recomputes this
// layer's own derived fields, then calls the envelope's ReconcileAll in
// turn, so checksums and lengths are always recomputed inner to outer.
type Reconciler interface {
	Envelope
	ReconcileAll() error
}

// Reset discards the entire view chain and returns the raw buffer
// underneath, however many layers deep h is nested (Buffer resolves
// through every envelope). Deparse, by contrast, unwinds one layer per
// call.
func Reset[E Envelope](h Header[E]) *mbuf.Buffer { return h.Buffer() }
