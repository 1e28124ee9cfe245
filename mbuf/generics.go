package mbuf

import (
	"fmt"
	"unsafe"
)

// sizeOfHeader returns T's byte width, computed once per instantiation.
// Header record types used with ReadFixed/WriteFixed/ReadSlice/WriteSlice
// must be fixed-layout (no pointers, no slices, no strings, no maps) or
// the resulting size and overlay are meaningless. Each header package
// declares its struct's wire size as a HeaderLen or *BodyLen constant; no
// test compares those constants with this function's result.
func sizeOfHeader[T any]() int {
	var zero T
	return int(unsafe.Sizeof(zero))
}

// ReadFixed returns a non-owning pointer to a T overlaid on the buffer's
// live bytes at offset. No copy is made. Returns ErrBadOffset if offset is
// at or past the data length, ErrOutOfBuffer if T does not fit in the
// remaining bytes.
func ReadFixed[T any](b *Buffer, offset int) (*T, error) {
	dataLen := b.DataLen()
	if offset < 0 || offset >= dataLen {
		return nil, fmt.Errorf("mbuf.ReadFixed: %w: offset %d, data_len %d", ErrBadOffset, offset, dataLen)
	}

	size := sizeOfHeader[T]()
	if offset+size > dataLen {
		return nil, fmt.Errorf("mbuf.ReadFixed: %w: need %d bytes, have %d", ErrOutOfBuffer, size, dataLen-offset)
	}

	ptr := (*T)(unsafe.Pointer(&b.region[int(b.dataOff)+offset]))
	return ptr, nil
}

// WriteFixed copies *item into the buffer at offset and returns a pointer
// to the new in-place copy. The caller must have already called Extend to
// reserve the space; WriteFixed only checks that the write fits in the
// current data length, not that the bytes were otherwise "reserved".
func WriteFixed[T any](b *Buffer, offset int, item *T) (*T, error) {
	size := sizeOfHeader[T]()
	if offset+size > b.DataLen() {
		return nil, fmt.Errorf("mbuf.WriteFixed: %w: need %d bytes, have %d", ErrOutOfBuffer, size, b.DataLen()-offset)
	}

	dst := (*T)(unsafe.Pointer(&b.region[int(b.dataOff)+offset]))
	*dst = *item
	return dst, nil
}

// ReadSlice returns a non-owning slice of count Ts overlaid on the
// buffer's live bytes starting at offset. No copy is made.
func ReadSlice[T any](b *Buffer, offset, count int) ([]T, error) {
	dataLen := b.DataLen()
	if offset < 0 || offset >= dataLen {
		return nil, fmt.Errorf("mbuf.ReadSlice: %w: offset %d, data_len %d", ErrBadOffset, offset, dataLen)
	}

	size := sizeOfHeader[T]() * count
	if offset+size > dataLen {
		return nil, fmt.Errorf("mbuf.ReadSlice: %w: need %d bytes, have %d", ErrOutOfBuffer, size, dataLen-offset)
	}

	if count == 0 {
		return nil, nil
	}
	ptr := (*T)(unsafe.Pointer(&b.region[int(b.dataOff)+offset]))
	return unsafe.Slice(ptr, count), nil
}

// WriteSlice copies values into the buffer at offset and returns the new
// in-place slice. As with WriteFixed, the caller must have already
// extended the buffer to make room.
func WriteSlice[T any](b *Buffer, offset int, values []T) ([]T, error) {
	count := len(values)
	size := sizeOfHeader[T]() * count
	if offset+size > b.DataLen() {
		return nil, fmt.Errorf("mbuf.WriteSlice: %w: need %d bytes, have %d", ErrOutOfBuffer, size, b.DataLen()-offset)
	}

	if count == 0 {
		return nil, nil
	}
	ptr := (*T)(unsafe.Pointer(&b.region[int(b.dataOff)+offset]))
	dst := unsafe.Slice(ptr, count)
	copy(dst, values)
	return dst, nil
}
