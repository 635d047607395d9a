// Package bitvec manipulates little-endian bitmaps stored in raw byte
// slices. The storage is caller-supplied, so every scan masks bits beyond
// the valid length rather than trusting the padding to be clean.
package bitvec

import (
	"encoding/binary"
	"math/bits"
)

// Bytes returns the storage size in bytes for a bitmap of n bits.
func Bytes(n int) int { return (n + 7) / 8 }

// Init sets the first n bits to one and clears the padding bits of the
// final byte. It touches exactly Bytes(n) bytes.
func Init(bm []byte, n int) {
	nb := Bytes(n)
	for b := 0; b < nb; b++ {
		bm[b] = 0xFF
	}
	if rem := n & 7; rem != 0 {
		bm[nb-1] = 1<<rem - 1
	}
}

// Test reports whether bit i is set.
func Test(bm []byte, i int) bool {
	return bm[i>>3]&(1<<(i&7)) != 0
}

// Set sets bit i.
func Set(bm []byte, i int) {
	bm[i>>3] |= 1 << (i & 7)
}

// Clear clears bit i.
func Clear(bm []byte, i int) {
	bm[i>>3] &^= 1 << (i & 7)
}

// AcquireLowest finds the lowest set bit among the first n, clears it, and
// returns its index; -1 if every valid bit is clear. Full eight-byte words
// are skipped in one load each; the remaining tail is scanned byte-wise.
func AcquireLowest(bm []byte, n int) int {
	nb := Bytes(n)
	words := nb / 8

	for w := 0; w < words; w++ {
		off := w * 8
		raw := binary.LittleEndian.Uint64(bm[off:])

		word := raw
		if rem := n - w*64; rem < 64 {
			word &= 1<<uint(rem) - 1
		}
		if word == 0 {
			continue
		}

		tz := bits.TrailingZeros64(word)
		binary.LittleEndian.PutUint64(bm[off:], raw&^(1<<uint(tz)))
		return w*64 + tz
	}

	for b := words * 8; b < nb; b++ {
		by := bm[b]
		if rem := n - b*8; rem < 8 {
			by &= 1<<uint(rem) - 1
		}
		if by == 0 {
			continue
		}

		tz := bits.TrailingZeros8(by)
		bm[b] &^= 1 << uint(tz)
		return b*8 + tz
	}

	return -1
}

// Count returns the number of set bits among the first n.
func Count(bm []byte, n int) int {
	nb := Bytes(n)
	words := nb / 8
	total := 0

	for w := 0; w < words; w++ {
		word := binary.LittleEndian.Uint64(bm[w*8:])
		if rem := n - w*64; rem < 64 {
			word &= 1<<uint(rem) - 1
		}
		total += bits.OnesCount64(word)
	}

	for b := words * 8; b < nb; b++ {
		by := bm[b]
		if rem := n - b*8; rem < 8 {
			by &= 1<<uint(rem) - 1
		}
		total += bits.OnesCount8(by)
	}

	return total
}
