package iris

import (
	"fmt"

	"github.com/RoaringBitmap/roaring"
)

type ID uint64

// Dataset is a synthetic population of templates. A template's ID is its
// position. Queries marks the IDs that will be re-queried with noise.
type Dataset struct {
	templates []Template
	queries   *roaring.Bitmap
}

// BuildDataset generates n random templates and samples q distinct query
// IDs without replacement.
func BuildDataset(n, q int, rng RNG) (*Dataset, error) {
	if n <= 0 {
		return nil, fmt.Errorf("%w: population must be positive, got %d", ErrInvalidConfig, n)
	}
	if q < 0 || q > n {
		return nil, fmt.Errorf("%w: cannot sample %d queries from %d templates", ErrInvalidConfig, q, n)
	}
	ds := &Dataset{
		templates: make([]Template, n),
		queries:   sampleIDs(n, q, rng),
	}
	for i := range ds.templates {
		ds.templates[i] = RandomTemplate(rng)
	}
	return ds, nil
}

// sampleIDs is Floyd's algorithm: q distinct values from [0, n) in q draws.
func sampleIDs(n, q int, rng RNG) *roaring.Bitmap {
	bm := roaring.New()
	for j := n - q; j < n; j++ {
		t := uint32(rng.Intn(j + 1))
		if !bm.CheckedAdd(t) {
			bm.Add(uint32(j))
		}
	}
	return bm
}

func (ds *Dataset) Len() int {
	return len(ds.templates)
}

func (ds *Dataset) NumQueries() int {
	return int(ds.queries.GetCardinality())
}

func (ds *Dataset) IsQuery(id ID) bool {
	return ds.queries.Contains(uint32(id))
}

// QueryIDs returns the query IDs in ascending order.
func (ds *Dataset) QueryIDs() []ID {
	out := make([]ID, 0, ds.queries.GetCardinality())
	it := ds.queries.Iterator()
	for it.HasNext() {
		out = append(out, ID(it.Next()))
	}
	return out
}

func (ds *Dataset) Template(id ID) (Template, error) {
	if int(id) >= len(ds.templates) {
		return Template{}, ErrIDNotFound
	}
	return ds.templates[id], nil
}

// Batch is a half-open range of IDs.
type Batch struct {
	Start, End ID
}

// Batches splits the population into consecutive ranges of at most size
// IDs.
func (ds *Dataset) Batches(size int) []Batch {
	if size <= 0 {
		size = len(ds.templates)
	}
	var out []Batch
	for start := 0; start < len(ds.templates); start += size {
		end := min(start+size, len(ds.templates))
		out = append(out, Batch{Start: ID(start), End: ID(end)})
	}
	return out
}
