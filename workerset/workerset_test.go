package workerset

import (
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
)

func Test_NewWithOneBitSet(t *testing.T) {
	m := NewWithOneBitSet(3)

	assert.True(t, m.Has(3))
	assert.False(t, m.Has(2))
	assert.Equal(t, 1, m.Len())

	assert.Panics(t, func() { NewWithOneBitSet(32) })
}

func Test_NewWithTrailingOnes(t *testing.T) {
	assert.True(t, NewWithTrailingOnes(0).IsEmpty())
	assert.Equal(t, 4, NewWithTrailingOnes(4).Len())
	assert.Equal(t, Max, NewWithTrailingOnes(33))
}

func Test_Intersect(t *testing.T) {
	a := NewWithTrailingOnes(4)
	b := NewWithOneBitSet(2) | NewWithOneBitSet(7)

	got := a.Intersect(b)
	assert.True(t, got.Has(2))
	assert.False(t, got.Has(7))
	assert.Equal(t, 1, got.Len())
}

func Test_Iter(t *testing.T) {
	m := NewWithOneBitSet(0) | NewWithOneBitSet(5) | NewWithOneBitSet(31)

	assert.Equal(t, []uint32{0, 5, 31}, slices.Collect(m.Iter()))
}

func Test_HasOutOfRange(t *testing.T) {
	assert.False(t, Max.Has(32))
}
