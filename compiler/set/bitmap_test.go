package set

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAddrs(t *testing.T) {
	var s Addrs

	assert.Equal(t, -1, s.Min())
	assert.False(t, s.Has(3))
	assert.False(t, s.Remove(3))

	s.Add(3)
	s.Add(200)
	s.Add(64)

	assert.Equal(t, 3, s.Len())
	assert.Equal(t, 3, s.Min())
	assert.True(t, s.Has(200))
	assert.False(t, s.Has(-1))

	var got []int
	s.Each(func(a int) { got = append(got, a) })
	assert.Equal(t, []int{3, 64, 200}, got)

	assert.True(t, s.Remove(3))
	assert.False(t, s.Remove(3))
	assert.Equal(t, 64, s.Min())
	assert.Equal(t, 2, s.Len())
}
