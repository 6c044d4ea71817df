package iris

import "fmt"

const (
	// MatchThreshold is the distance below which two templates are taken
	// to come from the same eye.
	MatchThreshold = 0.375

	// NoiseProbability is the per-bit flip rate of Similar.
	NoiseProbability = 0.05

	// MaxDistance is returned by Distance when the templates have no
	// mask bit in common.
	MaxDistance = 1.0

	// MergedWords is the length of the flat vector handed to an Index.
	MergedWords = 2 * Words

	maskPairDraws = Bits / 10 / 2
)

// Template is an iris code together with its occlusion mask. A set mask
// bit marks the code bit at the same position as valid for comparison.
type Template struct {
	Code BitVector
	Mask BitVector
}

func DefaultTemplate() Template {
	return Template{
		Code: ZeroBitVector,
		Mask: OnesBitVector(),
	}
}

// RandomTemplate draws a uniform code and clears about 10% of the mask.
// Masks come from duplicated dimension pairs, so bits 2k and 2k+1 are
// always cleared together. Pairs are drawn with replacement and may
// repeat.
func RandomTemplate(rng RNG) Template {
	t := Template{
		Code: RandomBitVector(rng),
		Mask: OnesBitVector(),
	}
	for n := 0; n < maskPairDraws; n++ {
		k := rng.Intn(Bits / 2)
		t.Mask.SetBit(2*k, false)
		t.Mask.SetBit(2*k+1, false)
	}
	return t
}

// Distance is the fraction of differing code bits among the positions
// valid in both masks. It returns MaxDistance when no position is valid
// in both.
func (t Template) Distance(other Template) float64 {
	d, err := t.CheckedDistance(other)
	if err != nil {
		return MaxDistance
	}
	return d
}

func (t Template) CheckedDistance(other Template) (float64, error) {
	combinedMask := t.Mask.And(other.Mask)
	combinedMaskLen := combinedMask.CountOnes()
	if combinedMaskLen == 0 {
		return 0, ErrNoOverlap
	}
	diff := t.Code.Xor(other.Code).And(combinedMask)
	return float64(diff.CountOnes()) / float64(combinedMaskLen), nil
}

func (t Template) IsClose(other Template) bool {
	d, err := t.CheckedDistance(other)
	if err != nil {
		return false
	}
	return d < MatchThreshold
}

// Similar simulates a second capture of the same eye: every code bit and
// every mask bit is flipped independently with NoiseProbability.
func (t Template) Similar(rng RNG) Template {
	res := t
	for i := 0; i < Bits; i++ {
		if rng.Float64() < NoiseProbability {
			res.Code.FlipBit(i)
		}
		if rng.Float64() < NoiseProbability {
			res.Mask.FlipBit(i)
		}
	}
	return res
}

// Merged lays the template out as code words followed by mask words.
func (t Template) Merged() []uint64 {
	out := make([]uint64, MergedWords)
	copy(out[:Words], t.Code[:])
	copy(out[Words:], t.Mask[:])
	return out
}

func SplitMerged(flat []uint64) (Template, error) {
	if len(flat) != MergedWords {
		return Template{}, fmt.Errorf("%w: got %d words, want %d", ErrVectorLength, len(flat), MergedWords)
	}
	var t Template
	copy(t.Code[:], flat[:Words])
	copy(t.Mask[:], flat[Words:])
	return t, nil
}

func (t Template) String() string {
	return fmt.Sprintf("code: %s\nmask: %s", t.Code, t.Mask)
}
