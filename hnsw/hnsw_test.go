package hnsw

import (
	"math/bits"
	"math/rand"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func hamming(a, b []uint64) float32 {
	n := 0
	for i := range a {
		n += bits.OnesCount64(a[i] ^ b[i])
	}
	return float32(n)
}

func randomVectors(n, words int, seed int64) [][]uint64 {
	r := rand.New(rand.NewSource(seed))
	out := make([][]uint64, n)
	for i := range out {
		out[i] = make([]uint64, words)
		for j := range out[i] {
			out[i][j] = r.Uint64()
		}
	}
	return out
}

func newGraph(t *testing.T, m int) *Graph {
	g, err := New(Options{
		MaxConnections: m,
		Capacity:       1000,
		Layers:         6,
		EfConstruction: 64,
		Heuristic:      true,
		Seed:           42,
		DistanceFunc:   hamming,
	})
	require.NoError(t, err)
	return g
}

func TestNewRequiresDistance(t *testing.T) {
	_, err := New(Options{MaxConnections: 8})
	assert.Error(t, err)
}

func TestSearchEmpty(t *testing.T) {
	g := newGraph(t, 8)
	_, err := g.Search([]uint64{0, 0}, 1, 10)
	assert.ErrorIs(t, err, ErrEmpty)
}

func TestSinglePoint(t *testing.T) {
	g := newGraph(t, 8)
	v := []uint64{0xdeadbeef, 0x1234}
	require.NoError(t, g.Insert(v, 7))
	g.EnterSearchingMode()

	res, err := g.Search(v, 1, 10)
	require.NoError(t, err)
	require.Len(t, res, 1)
	assert.Equal(t, uint64(7), res[0].ID)
	assert.Equal(t, float32(0), res[0].Distance)
}

func TestInsertErrors(t *testing.T) {
	g := newGraph(t, 8)
	require.NoError(t, g.Insert([]uint64{1, 2}, 1))

	assert.ErrorIs(t, g.Insert([]uint64{3, 4}, 1), ErrDuplicateID)

	var dim *ErrDimensionMismatch
	assert.ErrorAs(t, g.Insert([]uint64{1, 2, 3}, 2), &dim)

	assert.False(t, g.Searching())
	g.EnterSearchingMode()
	assert.True(t, g.Searching())
	assert.ErrorIs(t, g.Insert([]uint64{5, 6}, 3), ErrSearching)
	g.EnterSearchingMode()
	assert.True(t, g.Searching())

	_, err := g.Search([]uint64{1, 2}, 0, 10)
	assert.ErrorIs(t, err, ErrInvalidK)
}

func TestSearchMatchesBrute(t *testing.T) {
	vecs := randomVectors(1000, 2, 1)
	g := newGraph(t, 16)
	for i, v := range vecs {
		require.NoError(t, g.Insert(v, uint64(i)))
	}
	g.EnterSearchingMode()
	assert.Equal(t, 1000, g.Len())

	hits := 0
	for i, v := range vecs[:100] {
		res, err := g.Search(v, 1, 200)
		require.NoError(t, err)
		require.NotEmpty(t, res)
		if res[0].ID == uint64(i) {
			hits++
		}
	}
	// Every stored vector is its own exact nearest neighbour.
	assert.GreaterOrEqual(t, hits, 95)

	q := randomVectors(1, 2, 99)[0]
	approx, err := g.Search(q, 10, 500)
	require.NoError(t, err)
	exact, err := g.BruteSearch(q, 10)
	require.NoError(t, err)
	require.Len(t, approx, 10)
	require.Len(t, exact, 10)
	assert.Equal(t, exact[0].Distance, approx[0].Distance)
	for i := 1; i < len(approx); i++ {
		assert.LessOrEqual(t, approx[i-1].Distance, approx[i].Distance)
	}
}

func TestConcurrentInsert(t *testing.T) {
	vecs := randomVectors(500, 2, 2)
	g := newGraph(t, 8)

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := w; i < len(vecs); i += 8 {
				assert.NoError(t, g.Insert(vecs[i], uint64(i)))
			}
		}(w)
	}
	wg.Wait()
	g.EnterSearchingMode()

	require.Equal(t, len(vecs), g.Len())
	var sg sync.WaitGroup
	for w := 0; w < 4; w++ {
		sg.Add(1)
		go func(w int) {
			defer sg.Done()
			for i := w; i < 40; i += 4 {
				res, err := g.Search(vecs[i], 1, 100)
				assert.NoError(t, err)
				assert.NotEmpty(t, res)
			}
		}(w)
	}
	sg.Wait()
}

func TestLevelCap(t *testing.T) {
	g, err := New(Options{
		MaxConnections: 2,
		Layers:         2,
		EfConstruction: 8,
		Seed:           3,
		DistanceFunc:   hamming,
	})
	require.NoError(t, err)
	for i, v := range randomVectors(300, 1, 3) {
		require.NoError(t, g.Insert(v, uint64(i)))
	}
	assert.LessOrEqual(t, g.MaxLevel(), 1)
}
