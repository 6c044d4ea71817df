package iris

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBitVectorSetGetFlip(t *testing.T) {
	var bv BitVector
	for _, i := range []int{0, 1, 63, 64, 65, 127} {
		assert.False(t, bv.GetBit(i))
		bv.SetBit(i, true)
		assert.True(t, bv.GetBit(i))
		bv.FlipBit(i)
		assert.False(t, bv.GetBit(i))
		bv.FlipBit(i)
		assert.True(t, bv.GetBit(i))
	}
	assert.Equal(t, 6, bv.CountOnes())
	assert.Equal(t, uint64(1<<0|1<<1|1<<63), bv[0])
	assert.Equal(t, uint64(1<<0|1<<1|1<<63), bv[1])

	bv.SetBit(64, false)
	assert.False(t, bv.GetBit(64))
	assert.Equal(t, 5, bv.CountOnes())
}

func TestBitVectorOutOfRangePanics(t *testing.T) {
	var bv BitVector
	assert.Panics(t, func() { bv.GetBit(Bits) })
	assert.Panics(t, func() { bv.SetBit(Bits, true) })
	assert.Panics(t, func() { bv.FlipBit(-1) })
}

func TestBitVectorOnes(t *testing.T) {
	ones := OnesBitVector()
	assert.Equal(t, Bits, ones.CountOnes())
	assert.Equal(t, 0, ZeroBitVector.CountOnes())
}

func TestBitVectorAndXor(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	a := RandomBitVector(rng)
	b := RandomBitVector(rng)

	and := a.And(b)
	xor := a.Xor(b)
	for i := 0; i < Bits; i++ {
		assert.Equal(t, a.GetBit(i) && b.GetBit(i), and.GetBit(i))
		assert.Equal(t, a.GetBit(i) != b.GetBit(i), xor.GetBit(i))
	}

	c := a
	c.AndAssign(b)
	assert.Equal(t, and, c)
	c = a
	c.XorAssign(b)
	assert.Equal(t, xor, c)

	assert.Equal(t, ZeroBitVector, a.Xor(a))
	assert.Equal(t, a, a.And(OnesBitVector()))
}

func TestBitVectorBytesAliases(t *testing.T) {
	var bv BitVector
	raw := bv.Bytes()
	require.Len(t, raw, Bytes)
	for i := range raw {
		raw[i] = 0xff
	}
	assert.Equal(t, OnesBitVector(), bv)
}

func TestRandomBitVectorIsBalanced(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	ones := 0
	const n = 1000
	for i := 0; i < n; i++ {
		ones += RandomBitVector(rng).CountOnes()
	}
	frac := float64(ones) / float64(n*Bits)
	assert.InDelta(t, 0.5, frac, 0.01)
}

// sequenceRNG hands out 1, 2, 3, ... from Uint64.
type sequenceRNG struct {
	*rand.Rand
	n uint64
}

func (s *sequenceRNG) Uint64() uint64 {
	s.n++
	return s.n
}

func TestRandomBitVectorFillsEveryWord(t *testing.T) {
	bv := RandomBitVector(&sequenceRNG{Rand: rand.New(rand.NewSource(1))})
	assert.Equal(t, BitVector{1, 2}, bv)
}

func TestBitVectorAll(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	bv := RandomBitVector(rng)

	for pass := 0; pass < 2; pass++ {
		i := 0
		for b := range bv.All() {
			assert.Equal(t, bv.GetBit(i), b, "bit %d", i)
			i++
		}
		assert.Equal(t, Bits, i)
	}

	n := 0
	for range bv.All() {
		n++
		if n == 10 {
			break
		}
	}
	assert.Equal(t, 10, n)
}

func TestBitVectorString(t *testing.T) {
	var bv BitVector
	bv.SetBit(0, true)
	bv.SetBit(9, true)
	s := bv.String()
	assert.Len(t, s, Bits+Bits/8-1)
	assert.Equal(t, "10000000 01", s[:11])
}
