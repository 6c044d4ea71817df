package iris

import (
	"fmt"
	"sync"
)

type Result struct {
	Distance float32
	ID       ID
}

func (r Result) String() string {
	return fmt.Sprintf("(%d %0.4f)", r.ID, r.Distance)
}

// ResultSet keeps the k nearest results seen so far, nearest first.
type ResultSet struct {
	inner sync.Mutex
	dists []float32
	ids   []ID
	k     int
	valid int
}

func NewResultSet(topK int) *ResultSet {
	return &ResultSet{
		k:     topK,
		dists: make([]float32, topK),
		ids:   make([]ID, topK),
		valid: 0,
	}
}

// ResultSetOf collects results into a set holding the nearest k.
func ResultSetOf(res []Result, k int) *ResultSet {
	rs := NewResultSet(k)
	for _, r := range res {
		rs.AddResult(r.ID, r.Distance)
	}
	return rs
}

func (rs *ResultSet) Len() int {
	return rs.valid
}

// ComputeRecall is the fraction of the baseline's first at IDs that also
// appear in the first at IDs of rs.
func (rs *ResultSet) ComputeRecall(baseline *ResultSet, at int) float64 {
	at = min(at, rs.valid, baseline.valid)
	if at == 0 {
		return 0
	}
	found := 0
	for _, v := range baseline.ids[:at] {
		for _, w := range rs.ids[:at] {
			if v == w {
				found += 1
			}
		}
	}
	return float64(found) / float64(at)
}

func (rs *ResultSet) String() string {
	return fmt.Sprint(rs.ToSlice())
}

// AddResult offers id at dist. An ID is held at most once, at the
// smallest distance it was offered with.
func (rs *ResultSet) AddResult(id ID, dist float32) bool {
	rs.inner.Lock()
	defer rs.inner.Unlock()
	if rs.k == 0 {
		return false
	}
	for i := 0; i < rs.valid; i++ {
		if rs.ids[i] != id {
			continue
		}
		if rs.dists[i] <= dist {
			return true
		}
		rs.remove(i)
		break
	}
	if rs.valid == rs.k && rs.dists[rs.k-1] <= dist {
		return false
	}
	insert := rs.valid
	for i := 0; i < rs.valid; i++ {
		if rs.dists[i] > dist {
			insert = i
			break
		}
	}
	if rs.valid < rs.k {
		rs.valid++
	}
	copy(rs.dists[insert+1:rs.valid], rs.dists[insert:])
	rs.dists[insert] = dist
	copy(rs.ids[insert+1:rs.valid], rs.ids[insert:])
	rs.ids[insert] = id
	return true
}

func (rs *ResultSet) remove(i int) {
	copy(rs.dists[i:], rs.dists[i+1:rs.valid])
	copy(rs.ids[i:], rs.ids[i+1:rs.valid])
	rs.valid--
}

// Best returns the nearest result, or false when the set is empty.
func (rs *ResultSet) Best() (Result, bool) {
	rs.inner.Lock()
	defer rs.inner.Unlock()
	if rs.valid == 0 {
		return Result{}, false
	}
	return Result{Distance: rs.dists[0], ID: rs.ids[0]}, true
}

func (rs *ResultSet) ToSlice() []Result {
	rs.inner.Lock()
	defer rs.inner.Unlock()
	out := make([]Result, rs.valid)
	for i := range out {
		out[i] = Result{
			Distance: rs.dists[i],
			ID:       rs.ids[i],
		}
	}
	return out
}
