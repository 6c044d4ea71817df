package iris

import (
	"iter"
	"math/bits"
	"strings"
	"unsafe"
)

const (
	// Bits is the width of every iris code and mask.
	Bits  = 128
	Words = (Bits + 63) / 64
	Bytes = (Bits + 7) / 8
)

// RNG is the subset of *math/rand.Rand the generators need.
type RNG interface {
	Intn(n int) int
	Float64() float64
	Uint64() uint64
}

// BitVector is a fixed-width bit array packed into 64-bit words. Bit i
// lives in word i/64 at position i%64.
type BitVector [Words]uint64

var ZeroBitVector BitVector

func OnesBitVector() BitVector {
	var bv BitVector
	for i := range bv {
		bv[i] = ^uint64(0)
	}
	return bv
}

func RandomBitVector(rng RNG) BitVector {
	var bv BitVector
	for i := range bv {
		bv[i] = rng.Uint64()
	}
	return bv
}

func (bv *BitVector) SetBit(i int, val bool) {
	word, bit := uint(i)/64, uint(i)%64
	if val {
		bv[word] |= 1 << bit
	} else {
		bv[word] &^= 1 << bit
	}
}

func (bv BitVector) GetBit(i int) bool {
	return (bv[uint(i)/64]>>(uint(i)%64))&1 == 1
}

func (bv *BitVector) FlipBit(i int) {
	bv[uint(i)/64] ^= 1 << (uint(i) % 64)
}

func (bv BitVector) CountOnes() int {
	n := 0
	for _, w := range bv {
		n += bits.OnesCount64(w)
	}
	return n
}

func (bv BitVector) And(other BitVector) BitVector {
	bv.AndAssign(other)
	return bv
}

func (bv *BitVector) AndAssign(other BitVector) {
	for i := range bv {
		bv[i] &= other[i]
	}
}

func (bv BitVector) Xor(other BitVector) BitVector {
	bv.XorAssign(other)
	return bv
}

func (bv *BitVector) XorAssign(other BitVector) {
	for i := range bv {
		bv[i] ^= other[i]
	}
}

// Bytes returns the word array viewed as bytes in host byte order. The
// slice aliases bv.
func (bv *BitVector) Bytes() []byte {
	return unsafe.Slice((*byte)(unsafe.Pointer(&bv[0])), Bytes)
}

// All yields every bit in index order. The sequence can be ranged over
// more than once.
func (bv BitVector) All() iter.Seq[bool] {
	return func(yield func(bool) bool) {
		var cur uint64
		for i := 0; i < Bits; i++ {
			if i%64 == 0 {
				cur = bv[i/64]
			}
			if !yield(cur&1 == 1) {
				return
			}
			cur >>= 1
		}
	}
}

func (bv BitVector) String() string {
	var sb strings.Builder
	i := 0
	for b := range bv.All() {
		if i > 0 && i%8 == 0 {
			sb.WriteByte(' ')
		}
		if b {
			sb.WriteByte('1')
		} else {
			sb.WriteByte('0')
		}
		i++
	}
	return sb.String()
}
