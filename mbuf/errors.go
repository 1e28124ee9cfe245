package mbuf

import "errors"

// Sentinel errors forming the core's error taxonomy. Every fallible
// operation wraps one of these with fmt.Errorf("...: %w", ...) so callers
// can classify failures with errors.Is while still getting a specific
// message.
var (
	// ErrBadOffset is returned when a read starts at or past the end of
	// the live data region.
	ErrBadOffset = errors.New("offset exceeds data length")

	// ErrOutOfBuffer is returned when a read or write's required size
	// exceeds the bytes available from the given offset.
	ErrOutOfBuffer = errors.New("struct size exceeds available buffer")

	// ErrNotResized is returned when an extend/shrink precondition fails:
	// a zero length, an out-of-range offset, or tailroom/data exhaustion.
	ErrNotResized = errors.New("buffer was not resized")

	// ErrParseMismatch is returned when a layer's discriminant (ethertype,
	// IP protocol, ICMP type) does not match what the caller asked to
	// parse.
	ErrParseMismatch = errors.New("discriminant does not match expected layer")

	// ErrPoolUnbound is returned when allocation is attempted outside of
	// any worker context, or from a worker that does not own the pool.
	ErrPoolUnbound = errors.New("no buffer pool bound to this worker")

	// ErrAllocFailure is returned when the pool is exhausted.
	ErrAllocFailure = errors.New("buffer pool exhausted")
)
