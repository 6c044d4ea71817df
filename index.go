package iris

import (
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/barakmich/irisann/hnsw"
)

// Index is the approximate nearest neighbour collaborator the benchmark
// drives. Insert must be safe for concurrent callers; Search must be safe
// for concurrent callers once searching mode is on.
type Index interface {
	Insert(vec []uint64, id ID) error
	SetSearchingMode(on bool) error
	Search(vec []uint64, k, ef int) ([]Result, error)
	Len() int
}

type IndexKind string

const (
	IndexHNSW      IndexKind = "hnsw"
	IndexBitSample IndexKind = "bitsample"
	IndexFlat      IndexKind = "flat"
)

func ParseIndexKind(s string) (IndexKind, error) {
	switch k := IndexKind(s); k {
	case IndexHNSW, IndexBitSample, IndexFlat:
		return k, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownIndex, s)
}

type IndexParams struct {
	MaxConnections int
	Capacity       int
	Layers         int
	EfConstruction int
	NBasis         int
	Seed           int64
}

func NewIndex(kind IndexKind, p IndexParams, dist DistanceFunc) (Index, error) {
	switch kind {
	case IndexHNSW:
		return NewHNSWIndex(p, dist)
	case IndexBitSample:
		return NewBitSampleStore(NewMemoryBackend(dist, p.Seed), p.NBasis, p.Seed), nil
	case IndexFlat:
		return NewFlatIndex(dist), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownIndex, kind)
}

type hnswIndex struct {
	g *hnsw.Graph
}

func NewHNSWIndex(p IndexParams, dist DistanceFunc) (Index, error) {
	g, err := hnsw.New(hnsw.Options{
		MaxConnections: p.MaxConnections,
		Capacity:       p.Capacity,
		Layers:         p.Layers,
		EfConstruction: p.EfConstruction,
		Heuristic:      true,
		Seed:           p.Seed,
		DistanceFunc:   hnsw.DistanceFunc(dist),
	})
	if err != nil {
		return nil, err
	}
	return &hnswIndex{g: g}, nil
}

func (h *hnswIndex) Insert(vec []uint64, id ID) error {
	err := h.g.Insert(vec, uint64(id))
	switch {
	case errors.Is(err, hnsw.ErrSearching):
		return ErrSearchingMode
	case errors.Is(err, hnsw.ErrDuplicateID):
		return fmt.Errorf("%w: %d", ErrDuplicateID, id)
	}
	return err
}

// SetSearchingMode freezes the graph. Leaving searching mode is refused.
func (h *hnswIndex) SetSearchingMode(on bool) error {
	if !on {
		if h.g.Searching() {
			return ErrAlreadyBuilt
		}
		return nil
	}
	h.g.EnterSearchingMode()
	return nil
}

func (h *hnswIndex) Search(vec []uint64, k, ef int) ([]Result, error) {
	ns, err := h.g.Search(vec, k, ef)
	if errors.Is(err, hnsw.ErrEmpty) {
		return nil, ErrEmptyIndex
	}
	if err != nil {
		return nil, err
	}
	out := make([]Result, len(ns))
	for i, n := range ns {
		out[i] = Result{ID: ID(n.ID), Distance: n.Distance}
	}
	return out, nil
}

func (h *hnswIndex) Len() int {
	return h.g.Len()
}

// FlatIndex answers every search with a full table scan. It is exact and
// serves as ground truth.
type FlatIndex struct {
	be        *MemoryBackend
	searching atomic.Bool
}

func NewFlatIndex(dist DistanceFunc) *FlatIndex {
	return &FlatIndex{be: NewMemoryBackend(dist, 0)}
}

func (f *FlatIndex) Insert(vec []uint64, id ID) error {
	if f.searching.Load() {
		return ErrSearchingMode
	}
	return f.be.PutVector(id, vec)
}

func (f *FlatIndex) SetSearchingMode(on bool) error {
	if !on {
		if f.searching.Load() {
			return ErrAlreadyBuilt
		}
		return nil
	}
	f.searching.Store(true)
	return nil
}

func (f *FlatIndex) Search(vec []uint64, k, ef int) ([]Result, error) {
	if f.Len() == 0 {
		return nil, ErrEmptyIndex
	}
	rs, err := FullTableScanSearch(f.be, vec, k)
	if err != nil {
		return nil, err
	}
	return rs.ToSlice(), nil
}

func (f *FlatIndex) Len() int {
	return f.be.Info().VectorCount
}
