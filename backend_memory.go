package iris

import (
	"fmt"
	"math/rand"
	"sync"
	"time"
)

// MemoryBackend holds flat vectors in memory. It is safe for concurrent
// use.
type MemoryBackend struct {
	mu   sync.RWMutex
	vecs [][]uint64
	ids  []ID
	pos  map[ID]int
	rng  *rand.Rand
	dist DistanceFunc
}

var _ BuildableBackend = &MemoryBackend{}

// NewMemoryBackend seeds GetRandomVector with seed, or with the clock
// when seed is zero.
func NewMemoryBackend(dist DistanceFunc, seed int64) *MemoryBackend {
	if seed == 0 {
		seed = time.Now().UnixMicro()
	}
	return &MemoryBackend{
		pos:  make(map[ID]int),
		rng:  rand.New(rand.NewSource(seed)),
		dist: dist,
	}
}

func (mem *MemoryBackend) PutVector(id ID, v []uint64) error {
	if len(v) != MergedWords {
		return fmt.Errorf("MemoryBackend: %w: got %d words", ErrVectorLength, len(v))
	}
	vec := make([]uint64, len(v))
	copy(vec, v)
	mem.mu.Lock()
	defer mem.mu.Unlock()
	if _, ok := mem.pos[id]; ok {
		return ErrDuplicateID
	}
	mem.pos[id] = len(mem.vecs)
	mem.vecs = append(mem.vecs, vec)
	mem.ids = append(mem.ids, id)
	return nil
}

func (mem *MemoryBackend) GetVector(id ID) ([]uint64, error) {
	mem.mu.RLock()
	defer mem.mu.RUnlock()
	i, ok := mem.pos[id]
	if !ok {
		return nil, ErrIDNotFound
	}
	return mem.vecs[i], nil
}

func (mem *MemoryBackend) ComputeDistance(target []uint64, targetID ID) (float32, error) {
	v, err := mem.GetVector(targetID)
	if err != nil {
		return 0, err
	}
	return mem.dist(target, v), nil
}

func (mem *MemoryBackend) Distance(a, b []uint64) float32 {
	return mem.dist(a, b)
}

func (mem *MemoryBackend) Info() BackendInfo {
	mem.mu.RLock()
	defer mem.mu.RUnlock()
	return BackendInfo{
		Words:       MergedWords,
		VectorCount: len(mem.vecs),
	}
}

func (mem *MemoryBackend) GetRandomVector() ([]uint64, error) {
	mem.mu.Lock()
	defer mem.mu.Unlock()
	if len(mem.vecs) == 0 {
		return nil, ErrEmptyIndex
	}
	n := mem.rng.Intn(len(mem.vecs))
	return mem.vecs[n], nil
}

// ForEachVector visits vectors in insertion order. cb must not call
// PutVector.
func (mem *MemoryBackend) ForEachVector(cb func(ID, []uint64) error) error {
	mem.mu.RLock()
	defer mem.mu.RUnlock()
	for i, v := range mem.vecs {
		err := cb(mem.ids[i], v)
		if err != nil {
			return err
		}
	}
	return nil
}
