// Package mbuf implements the zero-copy message-buffer wrapper: a handle
// over one externally-allocated packet buffer with offset-based read/write
// and in-place resize, mirroring a poll-mode driver's mbuf layout (buf_addr,
// buf_len, data_off, data_len, pkt_len).
//
// Multi-segment (scatter-gather) buffers are not supported: pkt_len always
// equals data_len.
package mbuf

import (
	"fmt"
)

// DefaultDataRoom is the default capacity of a freshly allocated buffer,
// matching the poll-mode driver's default mbuf data room.
const DefaultDataRoom = 2048

// tag distinguishes an Original buffer, which owns its allocation and must
// be released to the pool exactly once, from a Clone, whose release is a
// no-op.
type tag uint8

const (
	tagOriginal tag = iota
	tagClone
)

// Pool is the capability the core consumes to obtain and release buffer
// storage. It is satisfied by the runtime's thread-local buffer pool; the
// core never constructs its own pool.
type Pool interface {
	// AllocOne acquires a single buffer's backing storage.
	AllocOne() ([]byte, error)
	// FreeOne releases a single buffer's backing storage.
	FreeOne([]byte)
}

// Buffer is a handle to a contiguous, externally allocated region holding
// one network packet. It is the MessageBuffer of the packet abstraction
// layer.
//
// A Buffer must not be aliased by more than one mutable view at a time;
// parallel immutable views are fine. A Buffer is not safe for concurrent
// use from multiple goroutines: ownership transfers between workers, it
// is never shared.
type Buffer struct {
	pool Pool
	kind tag

	region []byte // the full allocation; len(region) == bufLen

	dataOff uint16
	dataLen uint16
	pktLen  uint32

	consumed bool
}

// New acquires one buffer from the given pool. Returns ErrPoolUnbound if
// pool is nil: no pool is bound to the current worker.
func New(pool Pool) (*Buffer, error) {
	if pool == nil {
		return nil, fmt.Errorf("mbuf.New: %w", ErrPoolUnbound)
	}

	region, err := pool.AllocOne()
	if err != nil {
		return nil, fmt.Errorf("mbuf.New: %w: %v", ErrAllocFailure, err)
	}

	return &Buffer{
		pool:   pool,
		kind:   tagOriginal,
		region: region,
	}, nil
}

// FromBytes allocates a buffer from pool and writes payload into it at
// offset 0.
func FromBytes(pool Pool, payload []byte) (*Buffer, error) {
	b, err := New(pool)
	if err != nil {
		return nil, err
	}

	if err := b.Extend(0, len(payload)); err != nil {
		b.Free()
		return nil, fmt.Errorf("mbuf.FromBytes: %w", err)
	}
	if _, err := WriteSlice(b, 0, payload); err != nil {
		b.Free()
		return nil, fmt.Errorf("mbuf.FromBytes: %w", err)
	}

	return b, nil
}

// FromRegion wraps an already-allocated region as an Original buffer owned
// by pool. Used by Pool implementations that hand back pre-sized storage.
func FromRegion(pool Pool, region []byte) *Buffer {
	return &Buffer{pool: pool, kind: tagOriginal, region: region}
}

// internal is the witness type Clone takes as its argument. Packet-layer
// constructors (packet.NewHeader and the layers' Parse/Push) do not take
// it.
type internal struct{}

// Internal returns the witness value. It is exported so sibling packages
// in this module (layers/...) can call Clone; being an exported function,
// it is equally callable by any importer of mbuf, so the witness does not
// restrict Clone to code inside this module.
func Internal() internal { return internal{} }

// Clone returns an aliasing view of the same bytes. A Clone's Free is a
// no-op: it never releases the underlying allocation. The caller (the
// runtime) is responsible for sequencing clones before the original is
// freed; the core does not reference-count.
func (b *Buffer) Clone(_ internal) *Buffer {
	clone := *b
	clone.kind = tagClone
	clone.pool = nil
	return &clone
}

// IsClone reports whether this buffer is a non-owning clone view.
func (b *Buffer) IsClone() bool {
	return b.kind == tagClone
}

// BufLen returns the total capacity of the backing region.
func (b *Buffer) BufLen() int { return len(b.region) }

// DataOff returns the offset from the base of the allocation at which live
// bytes begin.
func (b *Buffer) DataOff() int { return int(b.dataOff) }

// DataLen returns the number of live bytes.
func (b *Buffer) DataLen() int { return int(b.dataLen) }

// PktLen returns the total packet length, always equal to DataLen in the
// single-segment case this package supports.
func (b *Buffer) PktLen() int { return int(b.pktLen) }

func (b *Buffer) tailroom() int {
	return len(b.region) - int(b.dataOff) - int(b.dataLen)
}

// data returns the live byte window, independent of any header view.
func (b *Buffer) data() []byte {
	return b.region[b.dataOff : int(b.dataOff)+int(b.dataLen)]
}

// Bytes returns the live byte window. The returned slice aliases the
// buffer's storage; callers must not retain it past the buffer's next
// mutation.
func (b *Buffer) Bytes() []byte {
	return b.data()
}

// Buffer returns b itself: a raw buffer is its own root envelope, the base
// case of the packet package's recursive Envelope chain.
func (b *Buffer) Buffer() *Buffer { return b }

// PayloadOffset is always 0 for a raw buffer: nothing has been parsed off
// it yet.
func (b *Buffer) PayloadOffset() int { return 0 }

// PayloadLen is the buffer's entire live data length, before any layer has
// claimed a header out of it.
func (b *Buffer) PayloadLen() int { return b.DataLen() }

// Extend grows the data region at offset by len bytes, shifting
// [offset, dataLen) down to make room if offset is not already at the
// tail. Returns ErrNotResized if len is zero, offset is out of range, or
// len meets or exceeds the available tailroom.
func (b *Buffer) Extend(offset, length int) error {
	if length <= 0 {
		return fmt.Errorf("mbuf.Extend(%d,%d): %w: length must be positive", offset, length, ErrNotResized)
	}
	if offset > b.DataLen() {
		return fmt.Errorf("mbuf.Extend(%d,%d): %w: offset exceeds data length %d", offset, length, ErrNotResized, b.DataLen())
	}
	if length >= b.tailroom() {
		return fmt.Errorf("mbuf.Extend(%d,%d): %w: exceeds tailroom %d", offset, length, ErrNotResized, b.tailroom())
	}

	toCopy := b.DataLen() - offset
	if toCopy > 0 {
		src := b.region[int(b.dataOff)+offset : int(b.dataOff)+offset+toCopy]
		dst := b.region[int(b.dataOff)+offset+length : int(b.dataOff)+offset+length+toCopy]
		copy(dst, src)
	}

	b.dataLen += uint16(length)
	b.pktLen += uint32(length)
	return nil
}

// Shrink removes len bytes at offset, shifting [offset+len, dataLen) up to
// close the gap. Returns ErrNotResized if len is zero or offset+len
// exceeds the live data length.
func (b *Buffer) Shrink(offset, length int) error {
	if length <= 0 {
		return fmt.Errorf("mbuf.Shrink(%d,%d): %w: length must be positive", offset, length, ErrNotResized)
	}
	if offset+length > b.DataLen() {
		return fmt.Errorf("mbuf.Shrink(%d,%d): %w: exceeds data length %d", offset, length, ErrNotResized, b.DataLen())
	}

	toCopy := b.DataLen() - offset - length
	if toCopy > 0 {
		src := b.region[int(b.dataOff)+offset+length : int(b.dataOff)+offset+length+toCopy]
		dst := b.region[int(b.dataOff)+offset : int(b.dataOff)+offset+toCopy]
		copy(dst, src)
	}

	b.dataLen -= uint16(length)
	b.pktLen -= uint32(length)
	return nil
}

// Resize dispatches to Extend (delta > 0) or Shrink (delta < 0). A zero
// delta is a no-op reported as ErrNotResized, consistent with both Extend
// and Shrink rejecting zero-length changes.
func (b *Buffer) Resize(offset int, delta int) error {
	if delta < 0 {
		return b.Shrink(offset, -delta)
	}
	if delta > 0 {
		return b.Extend(offset, delta)
	}
	return fmt.Errorf("mbuf.Resize(%d,%d): %w: zero-length delta", offset, delta, ErrNotResized)
}

// ResizeTo ensures DataLen equals length, extending at the tail or
// shrinking from the tail as needed. It is a no-op if length already
// equals DataLen.
//
// The offset passed to the underlying Resize is min(DataLen, length): when
// length > DataLen this extends at the current tail; when length <
// DataLen this shrinks starting at length, removing exactly the
// difference from the end.
func (b *Buffer) ResizeTo(length int) error {
	if b.DataLen() == length {
		return nil
	}

	offset := b.DataLen()
	if length < offset {
		offset = length
	}
	return b.Resize(offset, length-b.DataLen())
}

// Truncate drops the buffer's tail so DataLen becomes toLen, without
// moving any bytes. Returns ErrNotResized if toLen is not strictly less
// than the current DataLen.
func (b *Buffer) Truncate(toLen int) error {
	if toLen >= b.DataLen() {
		return fmt.Errorf("mbuf.Truncate(%d): %w: target must be less than data length %d", toLen, ErrNotResized, b.DataLen())
	}

	b.dataLen = uint16(toLen)
	b.pktLen = uint32(toLen)
	return nil
}

// Free releases the buffer to its pool. A no-op for a Clone, and a no-op
// if already called once for an Original, so an Original is released at
// most once.
func (b *Buffer) Free() {
	if b.consumed || b.kind == tagClone {
		return
	}
	b.consumed = true
	if b.pool != nil {
		b.pool.FreeOne(b.region)
	}
}

// Release hands the underlying storage to the caller (the transmit path)
// and suppresses the buffer's own release: the caller now owns freeing it
// back to the pool.
func (b *Buffer) Release() []byte {
	b.consumed = true
	return b.region[b.dataOff : int(b.dataOff)+int(b.dataLen)]
}
