package iris

import (
	"math/rand"
	"testing"

	"github.com/kelindar/bitmap"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildBitSampleStore(t *testing.T, n int, seed int64) (*BitSampleStore, []Template) {
	rng := rand.New(rand.NewSource(seed))
	store := NewBitSampleStore(NewMemoryBackend(NewDistanceFunc(nil, PrecisionFloat32), seed), 32, seed)
	store.SetLogger(t.Logf)
	templates := make([]Template, n)
	for i := range templates {
		templates[i] = RandomTemplate(rng)
		require.NoError(t, store.Insert(templates[i].Merged(), ID(i)))
	}
	return store, templates
}

func TestVoteCounter(t *testing.T) {
	var a, b, c bitmap.Bitmap
	a.Set(1)
	a.Set(2)
	a.Set(3)
	b.Set(2)
	b.Set(3)
	c.Set(3)

	counts := NewVoteCounter(3)
	counts.Vote(a)
	counts.Vote(b)
	counts.Vote(c)
	assert.Equal(t, []int{3, 2, 1}, counts.histogram())
	assert.Equal(t, 1, counts.Votes(1))
	assert.Equal(t, 2, counts.Votes(2))
	assert.Equal(t, 3, counts.Votes(3))
	assert.Equal(t, 0, counts.Votes(4))

	top := counts.Leaders(1)
	assert.True(t, top.Contains(3))
	assert.Equal(t, 1, top.Count())
	top = counts.Leaders(2)
	assert.Equal(t, 2, top.Count())
	top = counts.Leaders(10)
	assert.Equal(t, 3, top.Count())
}

func TestVoteCounterSaturates(t *testing.T) {
	var a bitmap.Bitmap
	a.Set(9)
	counts := NewVoteCounter(2)
	for range 5 {
		counts.Vote(a)
	}
	assert.Equal(t, 2, counts.Votes(9))
	assert.Equal(t, []int{1, 1}, counts.histogram())
}

func TestBitSampleStoreBasesFollowSeed(t *testing.T) {
	a, _ := buildBitSampleStore(t, 300, 54)
	b, _ := buildBitSampleStore(t, 300, 54)
	require.NoError(t, a.BuildIndex())
	require.NoError(t, b.BuildIndex())
	assert.Equal(t, a.bases, b.bases)
}

func TestBitSampleStoreSearch(t *testing.T) {
	store, templates := buildBitSampleStore(t, 2000, 50)

	// Before the bitmaps exist searches fall back to a full scan.
	res, err := store.Search(templates[5].Merged(), 1, 10)
	require.NoError(t, err)
	require.Len(t, res, 1)
	assert.Equal(t, ID(5), res[0].ID)

	require.NoError(t, store.SetSearchingMode(true))
	assert.True(t, store.Built())
	assert.ErrorIs(t, store.Insert(templates[0].Merged(), 99999), ErrSearchingMode)
	assert.ErrorIs(t, store.SetSearchingMode(true), ErrAlreadyBuilt)
	assert.ErrorIs(t, store.SetSearchingMode(false), ErrAlreadyBuilt)

	rng := rand.New(rand.NewSource(51))
	hits := 0
	for i := 0; i < 200; i++ {
		q := templates[i].Similar(rng)
		res, err := store.Search(q.Merged(), 1, 64)
		require.NoError(t, err)
		require.NotEmpty(t, res)
		if res[0].ID == ID(i) {
			hits++
		}
	}
	t.Logf("bitsample recall: %d/200", hits)
	assert.GreaterOrEqual(t, hits, 180)
}

func TestBitSampleStoreBasesAreDistinct(t *testing.T) {
	store, _ := buildBitSampleStore(t, 500, 52)
	require.NoError(t, store.BuildIndex())
	seen := make(map[int]bool)
	for _, b := range store.bases {
		assert.False(t, seen[b], "basis bit %d reused", b)
		seen[b] = true
	}
	for i := range store.bases {
		// Masked positions land on both sides, so the sides cover everyone.
		assert.GreaterOrEqual(t, store.lefts[i].Count()+store.rights[i].Count(), 500)
	}
}

func TestBitSampleStoreEmpty(t *testing.T) {
	store := NewBitSampleStore(NewMemoryBackend(NewDistanceFunc(nil, PrecisionFloat32), 1), 8, 1)
	_, err := store.Search(DefaultTemplate().Merged(), 1, 1)
	assert.ErrorIs(t, err, ErrEmptyIndex)
	assert.ErrorIs(t, store.SetSearchingMode(true), ErrEmptyIndex)
}

func TestBitSampleStoreFullyOccludedQuery(t *testing.T) {
	store, templates := buildBitSampleStore(t, 100, 53)
	require.NoError(t, store.SetSearchingMode(true))
	q := templates[7]
	q.Mask = ZeroBitVector
	res, err := store.Search(q.Merged(), 1, 8)
	require.NoError(t, err)
	assert.Len(t, res, 1)
}
