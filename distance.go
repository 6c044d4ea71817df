package iris

import "sync/atomic"

// DistanceFunc is the generic distance contract an Index is built with.
type DistanceFunc func(a, b []uint64) float32

// EvalCounter counts distance evaluations. It is diagnostic only and is
// reset by the harness when the index switches to searching mode.
type EvalCounter struct {
	n atomic.Uint64
}

func (c *EvalCounter) Inc() {
	c.n.Add(1)
}

func (c *EvalCounter) Load() uint64 {
	return c.n.Load()
}

func (c *EvalCounter) Reset() {
	c.n.Store(0)
}

// NewDistanceFunc adapts Template.Distance to flat merged vectors. Each
// vector is split at its midpoint into code and mask words. counter may
// be nil.
func NewDistanceFunc(counter *EvalCounter, precision Precision) DistanceFunc {
	return func(a, b []uint64) float32 {
		x := splitFlat(a)
		y := splitFlat(b)
		if counter != nil {
			counter.Inc()
		}
		return precision.Narrow(x.Distance(y))
	}
}

// splitFlat panics on malformed input: every vector crossing the index
// boundary was produced by Template.Merged.
func splitFlat(flat []uint64) Template {
	t, err := SplitMerged(flat)
	if err != nil {
		panic(err)
	}
	return t
}
