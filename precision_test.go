package iris

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFloat16Precision(t *testing.T) {
	rng := rand.New(rand.NewSource(30))
	full := NewDistanceFunc(nil, PrecisionFloat32)
	half := NewDistanceFunc(nil, PrecisionFloat16)
	for n := 0; n < 1000; n++ {
		a := RandomTemplate(rng)
		b := a.Similar(rng)
		if n%2 == 0 {
			b = RandomTemplate(rng)
		}
		x, y := a.Merged(), b.Merged()
		assert.InDelta(t, full(x, y), half(x, y), 1.0/4096)
	}
	assert.Equal(t, float32(0), PrecisionFloat16.Narrow(0))
	assert.Equal(t, float32(1), PrecisionFloat16.Narrow(1))
	assert.Equal(t, float32(0.375), PrecisionFloat16.Narrow(MatchThreshold))
}

func TestParsePrecision(t *testing.T) {
	for s, want := range map[string]Precision{
		"":        PrecisionFloat32,
		"float32": PrecisionFloat32,
		"f16":     PrecisionFloat16,
		"float16": PrecisionFloat16,
	} {
		p, err := ParsePrecision(s)
		require.NoError(t, err)
		assert.Equal(t, want, p)
	}
	_, err := ParsePrecision("bfloat16")
	assert.ErrorIs(t, err, ErrInvalidConfig)
	assert.Equal(t, "float16", PrecisionFloat16.String())
}
