package set

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBits(t *testing.T) {
	s := MakeBits[int]()

	assert.False(t, s.IsSet(3))

	s.Set(3)
	s.Set(64)
	s.Set(200)

	assert.True(t, s.IsSet(3))
	assert.True(t, s.IsSet(64))
	assert.True(t, s.IsSet(200))
	assert.False(t, s.IsSet(65))
	assert.Equal(t, 3, s.Size())

	var got []int

	s.Range(func(k int) bool {
		got = append(got, k)
		return true
	})

	assert.Equal(t, []int{3, 64, 200}, got)

	s.Clear(64)
	assert.False(t, s.IsSet(64))

	assert.True(t, s.TestAndSet(3))
	assert.False(t, s.TestAndSet(4))
	assert.True(t, s.IsSet(4))
}

func TestBitsZeroValue(t *testing.T) {
	var s Bits[int]

	assert.False(t, s.IsSet(10))

	s.Set(10)
	assert.True(t, s.IsSet(10))
}
