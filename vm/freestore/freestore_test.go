package freestore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllocFreeCoalesce(t *testing.T) {
	s := New(0, 100)

	a, ok := s.Alloc(10)
	require.True(t, ok)
	assert.Equal(t, 0, a)

	b, ok := s.Alloc(10)
	require.True(t, ok)
	assert.Equal(t, 10, b)

	assert.Equal(t, map[int]int{20: 80}, s.FreeBlocks())
	assert.Equal(t, map[int]int{0: 10, 10: 10}, s.AllocatedBlocks())

	assert.True(t, s.Free(0))
	assert.True(t, s.Free(10))

	assert.Equal(t, map[int]int{0: 100}, s.FreeBlocks())
	assert.Empty(t, s.AllocatedBlocks())
}

func TestAllocFreeRestores(t *testing.T) {
	s := New(1000, 64)

	x, _ := s.Alloc(8)
	_, _ = s.Alloc(8)
	z, _ := s.Alloc(8)

	require.True(t, s.Free(x))
	require.True(t, s.Free(z))

	before := s.FreeBlocks()

	for _, n := range []int{1, 4, 8, 16, 40} {
		a, ok := s.Alloc(n)
		require.True(t, ok, "alloc %d", n)

		require.True(t, s.Free(a))
		assert.Equal(t, before, s.FreeBlocks(), "alloc %d", n)
	}
}

func TestBestFit(t *testing.T) {
	s := New(0, 100)

	a, _ := s.Alloc(10) // 0
	_, _ = s.Alloc(5)   // 10
	c, _ := s.Alloc(4)  // 15
	_, _ = s.Alloc(5)   // 19
	e, _ := s.Alloc(4)  // 24
	_, _ = s.Alloc(5)   // 28

	s.Free(a)
	s.Free(c)
	s.Free(e)

	// holes: 0:10, 15:4, 24:4, 33:67
	got, ok := s.Alloc(3)
	require.True(t, ok)
	assert.Equal(t, 15, got, "smallest hole, lowest address on a tie")

	got, ok = s.Alloc(8)
	require.True(t, ok)
	assert.Equal(t, 0, got)

	got, ok = s.Alloc(50)
	require.True(t, ok)
	assert.Equal(t, 33, got)

	_, ok = s.Alloc(50)
	assert.False(t, ok)
}

func TestBadFree(t *testing.T) {
	s := New(10, 20)

	a, ok := s.Alloc(5)
	require.True(t, ok)

	assert.False(t, s.Free(a+1))
	assert.False(t, s.Free(0))

	assert.True(t, s.Free(a))
	assert.False(t, s.Free(a), "double free")

	assert.Equal(t, map[int]int{10: 20}, s.FreeBlocks())
}

func TestExhausted(t *testing.T) {
	s := New(0, 10)

	_, ok := s.Alloc(11)
	assert.False(t, ok)

	_, ok = s.Alloc(0)
	assert.False(t, ok)

	a, ok := s.Alloc(10)
	assert.True(t, ok)
	assert.Equal(t, 0, a)
	assert.Empty(t, s.FreeBlocks())

	assert.True(t, s.Contains(9))
	assert.False(t, s.Contains(10))
}
