package iris

type VectorBackend interface {
	PutVector(id ID, v []uint64) error
	ComputeDistance(target []uint64, targetID ID) (float32, error)
	Info() BackendInfo
}

type BuildableBackend interface {
	VectorBackend
	GetVector(id ID) ([]uint64, error)
	GetRandomVector() ([]uint64, error)
	ForEachVector(func(ID, []uint64) error) error
	Distance(a, b []uint64) float32
}

type BackendInfo struct {
	Words       int
	VectorCount int
}

// FullTableScanSearch computes the exact k nearest vectors to target.
func FullTableScanSearch(b BuildableBackend, target []uint64, k int) (*ResultSet, error) {
	rs := NewResultSet(k)
	err := b.ForEachVector(func(id ID, v []uint64) error {
		rs.AddResult(id, b.Distance(target, v))
		return nil
	})
	return rs, err
}
