// Package endian defines fixed-width, network-byte-order integer overlays
// used as struct fields in wire header records.
//
// U16 and U32 are byte-identical to their wire representation: they carry
// no conversion on assignment, only on the explicit Get/Set accessors.
// This makes "which fields are network-order" visible in the data model.
package endian

import "encoding/binary"

// U16 is a 2-byte big-endian overlay for a uint16 wire field.
type U16 [2]byte

// NewU16 returns a U16 holding v in network byte order.
func NewU16(v uint16) U16 {
	var u U16
	binary.BigEndian.PutUint16(u[:], v)
	return u
}

// Get returns the host-order value.
func (u U16) Get() uint16 {
	return binary.BigEndian.Uint16(u[:])
}

// Set overwrites u with v's network-order representation.
func (u *U16) Set(v uint16) {
	binary.BigEndian.PutUint16(u[:], v)
}

// U32 is a 4-byte big-endian overlay for a uint32 wire field.
type U32 [4]byte

// NewU32 returns a U32 holding v in network byte order.
func NewU32(v uint32) U32 {
	var u U32
	binary.BigEndian.PutUint32(u[:], v)
	return u
}

// Get returns the host-order value.
func (u U32) Get() uint32 {
	return binary.BigEndian.Uint32(u[:])
}

// Set overwrites u with v's network-order representation.
func (u *U32) Set(v uint32) {
	binary.BigEndian.PutUint32(u[:], v)
}
