package packet

// Disposition is the outcome a pipeline stage assigns to a packet: whether
// it continues downstream, is dropped, or aborts the pipeline entirely.
type Disposition uint8

const (
	// DispositionEmit continues the packet to the next stage unchanged.
	DispositionEmit Disposition = iota
	// DispositionEmitAndDrop continues one envelope to the next stage
	// while releasing a second, distinct envelope the stage is done
	// with, as when a stage transmits a Clone and frees the Original,
	// or vice versa.
	DispositionEmitAndDrop
	// DispositionDrop discards the packet; it does not continue downstream.
	DispositionDrop
	// DispositionAbort discards the packet and signals the pipeline driver
	// to stop processing the remainder of the current batch.
	DispositionAbort
)

// String renders the disposition for logging.
func (d Disposition) String() string {
	switch d {
	case DispositionEmit:
		return "emit"
	case DispositionEmitAndDrop:
		return "emit_and_drop"
	case DispositionDrop:
		return "drop"
	case DispositionAbort:
		return "abort"
	default:
		return "unknown"
	}
}

// Postmark is the verdict a pipeline stage returns for one packet: what
// should happen to it next, and which envelope (possibly narrowed or
// widened relative to what the stage received) should be handed to the
// next stage. For DispositionEmitAndDrop, a second, distinct envelope
// is carried alongside: the one to release once the first has been
// handed off.
type Postmark[E Envelope] struct {
	disposition Disposition
	envelope    E
	toFree      E
}

// Emit returns a Postmark instructing the driver to forward envelope
// unchanged.
func Emit[E Envelope](envelope E) Postmark[E] {
	return Postmark[E]{disposition: DispositionEmit, envelope: envelope}
}

// EmitAndDrop returns a Postmark instructing the driver to forward out
// and release the distinct envelope in. A stage that transmits a Clone
// while it is finished with the Original (or transmits the Original
// while it is finished with a Clone) reports both here instead of
// freeing one of them itself.
func EmitAndDrop[E Envelope](out, in E) Postmark[E] {
	return Postmark[E]{disposition: DispositionEmitAndDrop, envelope: out, toFree: in}
}

// Drop returns a Postmark instructing the driver to discard envelope.
func Drop[E Envelope](envelope E) Postmark[E] {
	return Postmark[E]{disposition: DispositionDrop, envelope: envelope}
}

// Abort returns a Postmark instructing the driver to discard envelope and
// stop processing the rest of the current batch.
func Abort[E Envelope](envelope E) Postmark[E] {
	return Postmark[E]{disposition: DispositionAbort, envelope: envelope}
}

// Disposition reports what the driver should do with this packet.
func (p Postmark[E]) Disposition() Disposition { return p.disposition }

// Envelope returns the view the stage wants forwarded (Emit,
// EmitAndDrop) or released (Drop, Abort).
func (p Postmark[E]) Envelope() E { return p.envelope }

// DropEnvelope returns the second, distinct envelope a
// DispositionEmitAndDrop postmark also wants released. Its value is the
// zero value of E for every other disposition.
func (p Postmark[E]) DropEnvelope() E { return p.toFree }

// ShouldForward reports whether the driver should hand this packet to the
// next stage.
func (p Postmark[E]) ShouldForward() bool {
	return p.disposition == DispositionEmit || p.disposition == DispositionEmitAndDrop
}

// ShouldStop reports whether the driver should stop processing further
// packets in the current batch after this one.
func (p Postmark[E]) ShouldStop() bool {
	return p.disposition == DispositionAbort
}
