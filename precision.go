package iris

import (
	"fmt"

	"github.com/x448/float16"
)

// Precision selects the float width distances are reported in.
type Precision int

const (
	PrecisionFloat32 Precision = iota
	PrecisionFloat16
)

// Narrow converts a distance to float32, rounding through IEEE half
// precision first for PrecisionFloat16. Distances are multiples of
// 1/n for n <= Bits, so half precision is off by at most 2^-12.
func (p Precision) Narrow(d float64) float32 {
	switch p {
	case PrecisionFloat16:
		return float16.Fromfloat32(float32(d)).Float32()
	default:
		return float32(d)
	}
}

func (p Precision) String() string {
	switch p {
	case PrecisionFloat32:
		return "float32"
	case PrecisionFloat16:
		return "float16"
	default:
		return fmt.Sprintf("Precision(%d)", int(p))
	}
}

func ParsePrecision(s string) (Precision, error) {
	switch s {
	case "float32", "f32", "":
		return PrecisionFloat32, nil
	case "float16", "f16":
		return PrecisionFloat16, nil
	}
	return 0, fmt.Errorf("%w: unknown precision %q", ErrInvalidConfig, s)
}
