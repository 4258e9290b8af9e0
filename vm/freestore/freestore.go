package freestore

import (
	"sort"

	"tlog.app/go/tlog/tlwire"
)

type (
	// Store is a best-fit allocator over [base, base+size).
	// Every address of the range is in exactly one block, free or allocated.
	// Free blocks are never left contiguous.
	Store struct {
		base, size int

		free  []Block // sorted by Addr
		alloc map[int]int
	}

	Block struct {
		Addr int
		Size int
	}
)

func New(base, size int) *Store {
	s := &Store{
		base:  base,
		size:  size,
		alloc: map[int]int{},
	}

	if size > 0 {
		s.free = []Block{{Addr: base, Size: size}}
	}

	return s
}

// Alloc returns the address of n fresh units.
// The smallest free block that fits is used, the lowest address on a tie.
func (s *Store) Alloc(n int) (addr int, ok bool) {
	if n <= 0 {
		return 0, false
	}

	best := -1

	for i, b := range s.free {
		if b.Size < n {
			continue
		}

		if best == -1 || b.Size < s.free[best].Size {
			best = i
		}
	}

	if best == -1 {
		return 0, false
	}

	b := s.free[best]

	if b.Size == n {
		s.free = append(s.free[:best], s.free[best+1:]...)
	} else {
		s.free[best] = Block{Addr: b.Addr + n, Size: b.Size - n}
	}

	s.alloc[b.Addr] = n

	return b.Addr, true
}

// Free returns a block obtained from Alloc.
// Unknown addresses and double frees are rejected and change nothing.
func (s *Store) Free(addr int) bool {
	n, ok := s.alloc[addr]
	if !ok {
		return false
	}

	delete(s.alloc, addr)

	i := sort.Search(len(s.free), func(i int) bool { return s.free[i].Addr > addr })

	prev := i > 0 && s.free[i-1].Addr+s.free[i-1].Size == addr
	next := i < len(s.free) && addr+n == s.free[i].Addr

	switch {
	case prev && next:
		s.free[i-1].Size += n + s.free[i].Size
		s.free = append(s.free[:i], s.free[i+1:]...)
	case prev:
		s.free[i-1].Size += n
	case next:
		s.free[i] = Block{Addr: addr, Size: n + s.free[i].Size}
	default:
		s.free = append(s.free, Block{})
		copy(s.free[i+1:], s.free[i:])
		s.free[i] = Block{Addr: addr, Size: n}
	}

	return true
}

// Contains reports whether addr is inside the managed range.
func (s *Store) Contains(addr int) bool {
	return addr >= s.base && addr < s.base+s.size
}

// FreeBlocks maps the address of every free block to its size.
func (s *Store) FreeBlocks() map[int]int {
	m := make(map[int]int, len(s.free))

	for _, b := range s.free {
		m[b.Addr] = b.Size
	}

	return m
}

// AllocatedBlocks maps the address of every allocated block to its size.
func (s *Store) AllocatedBlocks() map[int]int {
	m := make(map[int]int, len(s.alloc))

	for a, n := range s.alloc {
		m[a] = n
	}

	return m
}

func (s *Store) TlogAppend(b []byte) []byte {
	var e tlwire.Encoder

	used := 0
	for _, n := range s.alloc {
		used += n
	}

	b = e.AppendMap(b, 4)
	b = e.AppendString(b, "base")
	b = e.AppendInt(b, s.base)
	b = e.AppendString(b, "size")
	b = e.AppendInt(b, s.size)
	b = e.AppendString(b, "used")
	b = e.AppendInt(b, used)
	b = e.AppendString(b, "free_blocks")
	b = e.AppendInt(b, len(s.free))

	return b
}
