package iris

import (
	"fmt"
	"math"
	"runtime"
	"time"
)

const maxLayers = 16

// Config holds the benchmark tunables. The defaults reproduce the
// reference run: 40k templates, 10k noisy queries, top-1 search.
type Config struct {
	Population     int
	Queries        int
	BatchSize      int
	MaxConnections int
	EfConstruction int
	EfSearch       int
	K              int
	// Layers caps the HNSW layer count. Zero derives min(16, ln N).
	Layers  int
	Workers int
	Seed    int64

	Index     IndexKind
	Precision Precision
	// NBasis is the number of sampled bits for IndexBitSample.
	NBasis int

	// VerifyExact additionally full-scans every noisy query to tell index
	// misses apart from noise that moved the query off its template.
	VerifyExact bool
}

func DefaultConfig() Config {
	return Config{
		Population:     40_000,
		Queries:        10_000,
		BatchSize:      1_000,
		MaxConnections: 128,
		EfConstruction: 128,
		EfSearch:       128,
		K:              1,
		Workers:        runtime.NumCPU(),
		Seed:           time.Now().UnixNano(),
		Index:          IndexHNSW,
		Precision:      PrecisionFloat32,
		NBasis:         defaultNBasis,
	}
}

// LayerCount resolves Layers.
func (c Config) LayerCount() int {
	if c.Layers > 0 {
		return c.Layers
	}
	n := int(math.Trunc(math.Log(float64(c.Population))))
	return max(1, min(maxLayers, n))
}

func (c Config) Validate() error {
	switch {
	case c.Population <= 0:
		return fmt.Errorf("%w: population must be positive, got %d", ErrInvalidConfig, c.Population)
	case c.Queries <= 0 || c.Queries > c.Population:
		return fmt.Errorf("%w: queries must be in [1, %d], got %d", ErrInvalidConfig, c.Population, c.Queries)
	case c.BatchSize <= 0:
		return fmt.Errorf("%w: batch size must be positive, got %d", ErrInvalidConfig, c.BatchSize)
	case c.K <= 0:
		return fmt.Errorf("%w: k must be positive, got %d", ErrInvalidConfig, c.K)
	case c.Workers <= 0:
		return fmt.Errorf("%w: workers must be positive, got %d", ErrInvalidConfig, c.Workers)
	case c.MaxConnections < 2:
		return fmt.Errorf("%w: max connections must be at least 2, got %d", ErrInvalidConfig, c.MaxConnections)
	case c.EfConstruction <= 0 || c.EfSearch <= 0:
		return fmt.Errorf("%w: ef must be positive", ErrInvalidConfig)
	}
	if _, err := ParseIndexKind(string(c.Index)); err != nil {
		return err
	}
	return nil
}

func (c Config) indexParams() IndexParams {
	return IndexParams{
		MaxConnections: c.MaxConnections,
		Capacity:       c.Population,
		Layers:         c.LayerCount(),
		EfConstruction: c.EfConstruction,
		NBasis:         c.NBasis,
		Seed:           c.Seed,
	}
}
