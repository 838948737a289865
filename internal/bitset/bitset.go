// Package bitset provides a fixed-length, memory-efficient bit-string packed
// into 64-bit words.
package bitset

import (
	"fmt"
	"math/bits"
	"strings"
)

const (
	pow uint = 6
	mod uint = 63
)

// BitSet is a fixed-length bit-string. Position 0 is the leftmost symbol of
// the string form. The zero value is an empty bit-string.
type BitSet struct {
	n     int
	words []uint64
}

// New returns a bit-string of n cleared bits.
func New(n int) BitSet {
	if n < 0 {
		n = 0
	}
	return BitSet{n: n, words: make([]uint64, (n+63)/64)}
}

// FromString parses a string of '0' and '1' symbols.
func FromString(s string) (BitSet, error) {
	b := New(len(s))
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '1':
			b.Set(i)
		case '0':
		default:
			return BitSet{}, fmt.Errorf("bitset: invalid character %q at index %d", s[i], i)
		}
	}
	return b, nil
}

// Len returns the length of the bit-string.
func (b BitSet) Len() int {
	return b.n
}

// Has tests whether the bit at pos is set.
func (b BitSet) Has(pos int) bool {
	return b.words[pos>>pow]&(1<<(uint(pos)&mod)) != 0
}

// Set sets the bit at pos to one.
func (b BitSet) Set(pos int) {
	b.words[pos>>pow] |= 1 << (uint(pos) & mod)
}

// Clear sets the bit at pos to zero.
func (b BitSet) Clear(pos int) {
	b.words[pos>>pow] &^= 1 << (uint(pos) & mod)
}

// Flip inverts the bit at pos.
func (b BitSet) Flip(pos int) {
	b.words[pos>>pow] ^= 1 << (uint(pos) & mod)
}

// CopyBit copies the bit at index from src.
func (b BitSet) CopyBit(src BitSet, index int) {
	if src.Has(index) {
		b.Set(index)
	} else {
		b.Clear(index)
	}
}

// Count returns the number of set bits. Bits past Len are always clear.
func (b BitSet) Count() int {
	total := 0
	for _, w := range b.words {
		total += bits.OnesCount64(w)
	}
	return total
}

// Clone returns an independent copy.
func (b BitSet) Clone() BitSet {
	words := make([]uint64, len(b.words))
	copy(words, b.words)
	return BitSet{n: b.n, words: words}
}

// Splice returns a new bit-string holding b[:cut] followed by other[cut:].
// Both operands must have the same length.
func (b BitSet) Splice(other BitSet, cut int) BitSet {
	out := New(b.n)
	full := cut >> pow
	copy(out.words[:full], b.words[:full])
	copy(out.words[full:], other.words[full:])
	if rem := uint(cut) & mod; rem != 0 {
		mask := uint64(1)<<rem - 1
		out.words[full] = b.words[full]&mask | other.words[full]&^mask
	}
	return out
}

func (b BitSet) String() string {
	var sb strings.Builder
	sb.Grow(b.n)
	for i := 0; i < b.n; i++ {
		if b.Has(i) {
			sb.WriteByte('1')
		} else {
			sb.WriteByte('0')
		}
	}
	return sb.String()
}
