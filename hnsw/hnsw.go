// Package hnsw is a hierarchical navigable small world graph over
// word-packed vectors with a caller supplied distance function.
package hnsw

import (
	"container/heap"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bits-and-blooms/bitset"
)

var (
	ErrEmpty       = errors.New("hnsw: graph is empty")
	ErrSearching   = errors.New("hnsw: graph is in searching mode")
	ErrDuplicateID = errors.New("hnsw: id already inserted")
	ErrInvalidK    = errors.New("hnsw: k must be positive")
)

// ErrDimensionMismatch is returned when a vector's length differs from the
// first inserted vector.
type ErrDimensionMismatch struct {
	Expected int
	Actual   int
}

func (e *ErrDimensionMismatch) Error() string {
	return fmt.Sprintf("hnsw: dimension mismatch: expected %d, got %d", e.Expected, e.Actual)
}

// DistanceFunc returns the distance between two vectors. Smaller is
// nearer. It must be safe for concurrent use.
type DistanceFunc func(a, b []uint64) float32

type Options struct {
	// MaxConnections is M: links kept per node on upper layers. Layer 0
	// keeps 2*M.
	MaxConnections int

	// Capacity preallocates room for this many nodes.
	Capacity int

	// Layers caps the number of layers in the graph.
	Layers int

	// EfConstruction is the candidate list width used while inserting.
	EfConstruction int

	// Heuristic selects diverse neighbours instead of the plain closest M.
	Heuristic bool

	// Seed seeds level assignment. Zero means time based.
	Seed int64

	DistanceFunc DistanceFunc
}

type Neighbour struct {
	ID       uint64
	Distance float32
}

type node struct {
	id    uint64
	vec   []uint64
	level int
	links [][]uint32
}

// Graph is safe for concurrent use. Inserts are serialised by a write
// lock; searches share a read lock.
type Graph struct {
	mu        sync.RWMutex
	opts      Options
	dist      DistanceFunc
	mmax      int
	mmax0     int
	ml        float64
	nodes     []*node
	index     map[uint64]uint32
	entry     uint32
	maxLevel  int
	dim       int
	rng       *rand.Rand
	searching atomic.Bool
}

func New(opts Options) (*Graph, error) {
	if opts.DistanceFunc == nil {
		return nil, errors.New("hnsw: DistanceFunc is required")
	}
	if opts.MaxConnections < 2 {
		// M == 1 would make the level normaliser 1/ln(1) infinite.
		opts.MaxConnections = 2
	}
	if opts.Layers < 1 {
		opts.Layers = 1
	}
	if opts.EfConstruction < 1 {
		opts.EfConstruction = opts.MaxConnections
	}
	if opts.Capacity < 0 {
		opts.Capacity = 0
	}
	seed := opts.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Graph{
		opts:  opts,
		dist:  opts.DistanceFunc,
		mmax:  opts.MaxConnections,
		mmax0: 2 * opts.MaxConnections,
		ml:    1 / math.Log(float64(opts.MaxConnections)),
		nodes: make([]*node, 0, opts.Capacity),
		index: make(map[uint64]uint32, opts.Capacity),
		rng:   rand.New(rand.NewSource(seed)),
	}, nil
}

func (g *Graph) Len() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.nodes)
}

func (g *Graph) MaxLevel() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.maxLevel
}

// EnterSearchingMode freezes the graph. Every later Insert fails with
// ErrSearching. There is no way back.
func (g *Graph) EnterSearchingMode() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.searching.Store(true)
}

func (g *Graph) Searching() bool {
	return g.searching.Load()
}

func (g *Graph) randomLevel() int {
	u := 1 - g.rng.Float64()
	level := int(math.Floor(-math.Log(u) * g.ml))
	return min(level, g.opts.Layers-1)
}

func (g *Graph) Insert(vec []uint64, id uint64) error {
	if g.searching.Load() {
		return ErrSearching
	}
	v := slices.Clone(vec)

	g.mu.Lock()
	defer g.mu.Unlock()
	if g.searching.Load() {
		return ErrSearching
	}
	if _, ok := g.index[id]; ok {
		return fmt.Errorf("%w: %d", ErrDuplicateID, id)
	}
	if len(g.nodes) > 0 && len(v) != g.dim {
		return &ErrDimensionMismatch{Expected: g.dim, Actual: len(v)}
	}

	level := g.randomLevel()
	n := &node{
		id:    id,
		vec:   v,
		level: level,
		links: make([][]uint32, level+1),
	}
	slot := uint32(len(g.nodes))

	if len(g.nodes) == 0 {
		g.dim = len(v)
		g.nodes = append(g.nodes, n)
		g.index[id] = slot
		g.entry = slot
		g.maxLevel = level
		return nil
	}

	ep := g.entry
	epDist := g.dist(v, g.nodes[ep].vec)
	for l := g.maxLevel; l > level; l-- {
		ep, epDist = g.greedyClosest(v, ep, epDist, l)
	}

	for l := min(level, g.maxLevel); l >= 0; l-- {
		candidates := g.searchLayer(v, ep, epDist, g.opts.EfConstruction, l)
		selected := g.selectNeighbours(candidates, g.mmax)
		n.links[l] = make([]uint32, len(selected))
		for i, c := range selected {
			n.links[l][i] = c.Node
		}
		ep, epDist = candidates[0].Node, candidates[0].Distance
	}

	g.nodes = append(g.nodes, n)
	g.index[id] = slot

	// Make the new node reachable from its neighbours.
	for l := min(level, g.maxLevel); l >= 0; l-- {
		for _, nb := range n.links[l] {
			g.link(nb, slot, l)
		}
	}

	if level > g.maxLevel {
		g.entry = slot
		g.maxLevel = level
	}
	return nil
}

// greedyClosest walks layer level from ep towards q until no link improves.
func (g *Graph) greedyClosest(q []uint64, ep uint32, epDist float32, level int) (uint32, float32) {
	changed := true
	for changed {
		changed = false
		for _, nb := range g.nodes[ep].links[level] {
			d := g.dist(q, g.nodes[nb].vec)
			if d < epDist {
				ep, epDist = nb, d
				changed = true
			}
		}
	}
	return ep, epDist
}

// searchLayer returns up to ef candidates on layer level, nearest first.
func (g *Graph) searchLayer(q []uint64, ep uint32, epDist float32, ef int, level int) []PriorityQueueItem {
	visited := bitset.New(uint(len(g.nodes)))
	visited.Set(uint(ep))

	start := PriorityQueueItem{Node: ep, Distance: epDist}
	candidates := &PriorityQueue{Order: false}
	heap.Push(candidates, start)
	top := &PriorityQueue{Order: true}
	heap.Push(top, start)

	for candidates.Len() > 0 {
		c := heap.Pop(candidates).(PriorityQueueItem)
		if c.Distance > top.Top().Distance {
			break
		}
		links := g.nodes[c.Node].links
		if len(links) <= level {
			continue
		}
		for _, nb := range links[level] {
			if visited.Test(uint(nb)) {
				continue
			}
			visited.Set(uint(nb))
			d := g.dist(q, g.nodes[nb].vec)
			if top.Len() < ef || d < top.Top().Distance {
				item := PriorityQueueItem{Node: nb, Distance: d}
				heap.Push(candidates, item)
				heap.Push(top, item)
				if top.Len() > ef {
					heap.Pop(top)
				}
			}
		}
	}

	out := make([]PriorityQueueItem, top.Len())
	for i := len(out) - 1; i >= 0; i-- {
		out[i] = heap.Pop(top).(PriorityQueueItem)
	}
	return out
}

// selectNeighbours picks at most m of the candidates, which must be sorted
// nearest first.
func (g *Graph) selectNeighbours(candidates []PriorityQueueItem, m int) []PriorityQueueItem {
	if len(candidates) <= m {
		return candidates
	}
	if !g.opts.Heuristic {
		return candidates[:m]
	}
	selected := make([]PriorityQueueItem, 0, m)
	var pruned []PriorityQueueItem
	for _, c := range candidates {
		if len(selected) >= m {
			break
		}
		keep := true
		for _, s := range selected {
			if g.dist(g.nodes[c.Node].vec, g.nodes[s.Node].vec) < c.Distance {
				keep = false
				break
			}
		}
		if keep {
			selected = append(selected, c)
		} else {
			pruned = append(pruned, c)
		}
	}
	for _, c := range pruned {
		if len(selected) >= m {
			break
		}
		selected = append(selected, c)
	}
	return selected
}

// link adds a directed edge from -> to on level, pruning from's links
// back to the layer's maximum.
func (g *Graph) link(from, to uint32, level int) {
	maxConnections := g.mmax
	if level == 0 {
		maxConnections = g.mmax0
	}
	n := g.nodes[from]
	n.links[level] = append(n.links[level], to)
	if len(n.links[level]) <= maxConnections {
		return
	}

	candidates := make([]PriorityQueueItem, len(n.links[level]))
	for i, nb := range n.links[level] {
		candidates[i] = PriorityQueueItem{Node: nb, Distance: g.dist(n.vec, g.nodes[nb].vec)}
	}
	slices.SortFunc(candidates, func(a, b PriorityQueueItem) int {
		switch {
		case a.Distance < b.Distance:
			return -1
		case a.Distance > b.Distance:
			return 1
		}
		return 0
	})
	selected := g.selectNeighbours(candidates, maxConnections)
	links := make([]uint32, len(selected))
	for i, c := range selected {
		links[i] = c.Node
	}
	n.links[level] = links
}

// Search returns the k nearest neighbours of q, nearest first, exploring
// ef candidates on the bottom layer.
func (g *Graph) Search(q []uint64, k int, ef int) ([]Neighbour, error) {
	if k <= 0 {
		return nil, ErrInvalidK
	}
	g.mu.RLock()
	defer g.mu.RUnlock()
	if len(g.nodes) == 0 {
		return nil, ErrEmpty
	}
	if len(q) != g.dim {
		return nil, &ErrDimensionMismatch{Expected: g.dim, Actual: len(q)}
	}
	ef = max(ef, k)

	ep := g.entry
	epDist := g.dist(q, g.nodes[ep].vec)
	for l := g.maxLevel; l > 0; l-- {
		ep, epDist = g.greedyClosest(q, ep, epDist, l)
	}
	found := g.searchLayer(q, ep, epDist, ef, 0)
	if len(found) > k {
		found = found[:k]
	}
	out := make([]Neighbour, len(found))
	for i, c := range found {
		out[i] = Neighbour{ID: g.nodes[c.Node].id, Distance: c.Distance}
	}
	return out, nil
}

// BruteSearch scans every node. It is the exact baseline for Search.
func (g *Graph) BruteSearch(q []uint64, k int) ([]Neighbour, error) {
	if k <= 0 {
		return nil, ErrInvalidK
	}
	g.mu.RLock()
	defer g.mu.RUnlock()
	if len(g.nodes) == 0 {
		return nil, ErrEmpty
	}
	top := &PriorityQueue{Order: true}
	for slot, n := range g.nodes {
		d := g.dist(q, n.vec)
		if top.Len() < k {
			heap.Push(top, PriorityQueueItem{Node: uint32(slot), Distance: d})
		} else if d < top.Top().Distance {
			heap.Pop(top)
			heap.Push(top, PriorityQueueItem{Node: uint32(slot), Distance: d})
		}
	}
	out := make([]Neighbour, top.Len())
	for i := len(out) - 1; i >= 0; i-- {
		c := heap.Pop(top).(PriorityQueueItem)
		out[i] = Neighbour{ID: g.nodes[c.Node].id, Distance: c.Distance}
	}
	return out, nil
}
