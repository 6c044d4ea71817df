package iris

import (
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/kelindar/bitmap"
)

const (
	defaultNBasis = 32
	// candidateFactor scales ef into the number of voted IDs to rerank.
	candidateFactor = 4
)

type PrintfFunc func(string, ...any)

// BitSampleStore is a bit-sampling LSH index. Each basis is one code bit
// position; IDs whose code has that bit set go left, the rest go right,
// and IDs with the position masked go both ways. A search votes with the
// side matching the query on every basis and reranks the best voted IDs
// with the real distance.
type BitSampleStore struct {
	mu      sync.RWMutex
	logger  PrintfFunc
	backend BuildableBackend
	nbasis  int
	bases   []int
	lefts   []bitmap.Bitmap
	rights  []bitmap.Bitmap
	built   bool
	rng     *rand.Rand
}

var _ Index = &BitSampleStore{}

func NewBitSampleStore(backend BuildableBackend, nbasis int, seed int64) *BitSampleStore {
	if nbasis <= 0 {
		nbasis = defaultNBasis
	}
	if seed == 0 {
		seed = time.Now().UnixMicro()
	}
	return &BitSampleStore{
		backend: backend,
		nbasis:  nbasis,
		rng:     rand.New(rand.NewSource(seed)),
	}
}

func (vs *BitSampleStore) SetLogger(printf PrintfFunc) {
	vs.logger = printf
}

func (vs *BitSampleStore) log(s string, a ...any) {
	if vs.logger != nil {
		vs.logger(s, a...)
	}
}

func (vs *BitSampleStore) Insert(vec []uint64, id ID) error {
	vs.mu.RLock()
	defer vs.mu.RUnlock()
	if vs.built {
		return fmt.Errorf("%w: %w", ErrSearchingMode, ErrAlreadyBuilt)
	}
	if uint64(id) > uint64(^uint32(0)) {
		return fmt.Errorf("BitSampleStore: id %d does not fit a bitmap", id)
	}
	return vs.backend.PutVector(id, vec)
}

// SetSearchingMode builds the bitmaps. It cannot be undone.
func (vs *BitSampleStore) SetSearchingMode(on bool) error {
	if !on {
		if vs.Built() {
			return ErrAlreadyBuilt
		}
		return nil
	}
	return vs.BuildIndex()
}

func (vs *BitSampleStore) Built() bool {
	vs.mu.RLock()
	defer vs.mu.RUnlock()
	return vs.built
}

func (vs *BitSampleStore) Len() int {
	return vs.backend.Info().VectorCount
}

func (vs *BitSampleStore) Search(vec []uint64, k, ef int) ([]Result, error) {
	if len(vec) != MergedWords {
		return nil, fmt.Errorf("BitSampleStore: %w", ErrVectorLength)
	}
	if vs.Len() == 0 {
		return nil, ErrEmptyIndex
	}
	vs.mu.RLock()
	built := vs.built
	vs.mu.RUnlock()
	if !built {
		return vs.fullScan(vec, k)
	}
	return vs.findNearestInternal(vec, k, max(k, candidateFactor*ef))
}

func (vs *BitSampleStore) fullScan(vec []uint64, k int) ([]Result, error) {
	rs, err := FullTableScanSearch(vs.backend, vec, k)
	if err != nil {
		return nil, err
	}
	return rs.ToSlice(), nil
}

func (vs *BitSampleStore) findNearestInternal(vec []uint64, k, searchK int) ([]Result, error) {
	counts := NewVoteCounter(vs.nbasis)
	voted := false
	for i, bit := range vs.bases {
		if !maskBit(vec, bit) {
			continue
		}
		voted = true
		if codeBit(vec, bit) {
			counts.Vote(vs.lefts[i])
		} else {
			counts.Vote(vs.rights[i])
		}
	}
	if !voted {
		// Every sampled position is occluded in the query.
		return vs.fullScan(vec, k)
	}
	elems := counts.Leaders(searchK)
	rs := NewResultSet(k)
	var err error
	elems.Range(func(x uint32) {
		if err != nil {
			return
		}
		var dist float32
		dist, err = vs.backend.ComputeDistance(vec, ID(x))
		if err == nil {
			rs.AddResult(ID(x), dist)
		}
	})
	if err != nil {
		return nil, err
	}
	return rs.ToSlice(), nil
}

func (vs *BitSampleStore) BuildIndex() error {
	vs.mu.Lock()
	defer vs.mu.Unlock()
	if vs.built {
		return ErrAlreadyBuilt
	}
	if vs.backend.Info().VectorCount == 0 {
		return ErrEmptyIndex
	}
	err := vs.makeBasis(vs.backend)
	if err != nil {
		return err
	}
	err = vs.makeBitmaps(vs.backend)
	if err != nil {
		return err
	}
	vs.built = true
	vs.log("Index complete")
	return nil
}

func (vs *BitSampleStore) makeBasis(be BuildableBackend) error {
	vs.log("Making basis set")
	used := make(map[int]bool, vs.nbasis)
	vs.bases = make([]int, vs.nbasis)
	for n := 0; n < vs.nbasis; n++ {
		bit, err := vs.createSplit(used, be)
		if err != nil {
			return err
		}
		used[bit] = true
		vs.bases[n] = bit
	}
	vs.log("Completed basis set generation: %v", vs.bases)
	return nil
}

func (vs *BitSampleStore) makeBitmaps(be BuildableBackend) error {
	vs.log("Making bitmaps")
	lefts := make([]bitmap.Bitmap, vs.nbasis)
	rights := make([]bitmap.Bitmap, vs.nbasis)
	var wg sync.WaitGroup
	errs := make([]error, vs.nbasis)
	for n, bit := range vs.bases {
		wg.Add(1)
		go func(n int, bit int) {
			defer wg.Done()
			var left bitmap.Bitmap
			var right bitmap.Bitmap
			err := be.ForEachVector(func(id ID, v []uint64) error {
				switch {
				case !maskBit(v, bit):
					left.Set(uint32(id))
					right.Set(uint32(id))
				case codeBit(v, bit):
					left.Set(uint32(id))
				default:
					right.Set(uint32(id))
				}
				return nil
			})
			if err != nil {
				errs[n] = err
				return
			}
			lefts[n] = left
			rights[n] = right
		}(n, bit)
	}
	wg.Wait()
	if err := errors.Join(errs...); err != nil {
		return err
	}
	vs.lefts = lefts
	vs.rights = rights
	vs.log("Completed bitmap generation")
	return nil
}
