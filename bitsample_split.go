package iris

const (
	candidateBits = 16
	splitSamples  = 200
)

func codeBit(flat []uint64, i int) bool {
	return (flat[i/64]>>uint(i%64))&1 == 1
}

func maskBit(flat []uint64, i int) bool {
	return (flat[Words+i/64]>>uint(i%64))&1 == 1
}

// createSplit picks the basis bit. Like a random hyperplane it should cut
// the population in half, so of a few unused candidate bits the one whose
// split of a random sample is most balanced wins.
func (vs *BitSampleStore) createSplit(used map[int]bool, be BuildableBackend) (int, error) {
	samples := make([][]uint64, splitSamples)
	for i := range samples {
		v, err := be.GetRandomVector()
		if err != nil {
			return 0, err
		}
		samples[i] = v
	}

	best, bestImbalance := -1, splitSamples+1
	for c := 0; c < candidateBits; c++ {
		bit := vs.rng.Intn(Bits)
		if used[bit] && len(used) < Bits {
			continue
		}
		ones, zeros := 0, 0
		for _, s := range samples {
			if !maskBit(s, bit) {
				continue
			}
			if codeBit(s, bit) {
				ones++
			} else {
				zeros++
			}
		}
		imbalance := ones - zeros
		if imbalance < 0 {
			imbalance = -imbalance
		}
		if imbalance < bestImbalance {
			best, bestImbalance = bit, imbalance
		}
	}
	if best < 0 {
		for bit := 0; bit < Bits; bit++ {
			if !used[bit] {
				return bit, nil
			}
		}
		return vs.rng.Intn(Bits), nil
	}
	return best, nil
}
