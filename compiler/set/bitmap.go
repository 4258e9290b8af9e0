package set

import (
	"math/bits"

	"tlog.app/go/tlog/tlwire"
)

type (
	// Addrs is a set of instruction addresses.
	Addrs struct {
		w  []uint64
		w0 [2]uint64
	}
)

func (s *Addrs) Add(a int) {
	i, j := s.ij(a)

	if s.w == nil {
		s.w = s.w0[:0]
	}

	for i >= len(s.w) {
		s.w = append(s.w, 0)
	}

	s.w[i] |= 1 << j
}

// Remove deletes a and reports whether it was there.
func (s *Addrs) Remove(a int) bool {
	if !s.Has(a) {
		return false
	}

	i, j := s.ij(a)
	s.w[i] &^= 1 << j

	return true
}

func (s *Addrs) Has(a int) bool {
	if a < 0 {
		return false
	}

	i, j := s.ij(a)

	return i < len(s.w) && s.w[i]&(1<<j) != 0
}

func (s *Addrs) Len() (n int) {
	for _, w := range s.w {
		n += bits.OnesCount64(w)
	}

	return n
}

// Min returns the lowest address or -1 if the set is empty.
func (s *Addrs) Min() int {
	for i, w := range s.w {
		if w != 0 {
			return i*64 + bits.TrailingZeros64(w)
		}
	}

	return -1
}

func (s *Addrs) Each(f func(a int)) {
	for i, w := range s.w {
		for w != 0 {
			j := bits.TrailingZeros64(w)
			w &^= 1 << j

			f(i*64 + j)
		}
	}
}

func (s *Addrs) TlogAppend(b []byte) []byte {
	var e tlwire.LowEncoder

	if s == nil || s.w == nil {
		return e.AppendNil(b)
	}

	b = e.AppendTag(b, tlwire.Array, -1)

	s.Each(func(a int) {
		b = e.AppendInt(b, a)
	})

	return e.AppendBreak(b)
}

func (s *Addrs) ij(a int) (i, j int) {
	return a / 64, a % 64
}
