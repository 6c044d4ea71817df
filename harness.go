package iris

import (
	"cmp"
	"context"
	"fmt"
	"math/rand"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/alitto/pond"
)

// State is the harness's position in the benchmark pipeline. Steps only
// move forward.
type State int

const (
	StateEmpty State = iota
	StatePopulated
	StateIndexed
	StateSearching
	StateReported
)

func (s State) String() string {
	switch s {
	case StateEmpty:
		return "empty"
	case StatePopulated:
		return "populated"
	case StateIndexed:
		return "indexed"
	case StateSearching:
		return "searching"
	case StateReported:
		return "reported"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Query is a retained query template with the ID it was inserted under.
type Query struct {
	Template Template
	ID       ID
}

// IndexFactory builds the index under test around the harness's
// counting distance function.
type IndexFactory func(dist DistanceFunc) (Index, error)

type Option func(*Harness)

func WithLogger(printf PrintfFunc) Option {
	return func(h *Harness) {
		h.logger = printf
	}
}

func WithIndexFactory(f IndexFactory) Option {
	return func(h *Harness) {
		h.factory = f
	}
}

type Harness struct {
	cfg     Config
	logger  PrintfFunc
	factory IndexFactory
	state   State
	counter *EvalCounter
	index   Index
	truth   *FlatIndex
	dataset *Dataset
	queries []Query

	insertDuration time.Duration
}

func NewHarness(cfg Config, opts ...Option) (*Harness, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	h := &Harness{
		cfg:     cfg,
		counter: &EvalCounter{},
	}
	for _, o := range opts {
		o(h)
	}
	dist := NewDistanceFunc(h.counter, cfg.Precision)
	var err error
	if h.factory != nil {
		h.index, err = h.factory(dist)
	} else {
		h.index, err = NewIndex(cfg.Index, cfg.indexParams(), dist)
	}
	if err != nil {
		return nil, err
	}
	if bs, ok := h.index.(*BitSampleStore); ok {
		bs.SetLogger(h.logger)
	}
	if cfg.VerifyExact {
		h.truth = NewFlatIndex(NewDistanceFunc(nil, cfg.Precision))
	}
	return h, nil
}

func (h *Harness) log(s string, a ...any) {
	if h.logger != nil {
		h.logger(s, a...)
	}
}

func (h *Harness) State() State {
	return h.state
}

func (h *Harness) Counter() *EvalCounter {
	return h.counter
}

func (h *Harness) Dataset() *Dataset {
	return h.dataset
}

// Queries returns the retained query snapshot. It is nil before Insert.
func (h *Harness) Queries() []Query {
	return h.queries
}

func (h *Harness) expect(s State) error {
	if h.state != s {
		return fmt.Errorf("%w: harness is %s, want %s", ErrInvalidState, h.state, s)
	}
	return nil
}

func (h *Harness) newPool() *pond.WorkerPool {
	return pond.New(h.cfg.Workers, 0, pond.MinWorkers(h.cfg.Workers))
}

// Build generates the population and picks the query IDs.
func (h *Harness) Build() error {
	if err := h.expect(StateEmpty); err != nil {
		return err
	}
	rng := rand.New(rand.NewSource(h.cfg.Seed))
	ds, err := BuildDataset(h.cfg.Population, h.cfg.Queries, rng)
	if err != nil {
		return err
	}
	h.dataset = ds
	h.state = StatePopulated
	h.log("Built %d templates, %d queries", ds.Len(), ds.NumQueries())
	return nil
}

// Insert adds every template to the index, one batch at a time, with the
// rows of a batch spread over the worker pool. Query templates are
// retained on the way.
func (h *Harness) Insert(ctx context.Context) error {
	if err := h.expect(StatePopulated); err != nil {
		return err
	}
	pool := h.newPool()
	defer pool.StopAndWait()

	var mu sync.Mutex
	retained := make([]Query, 0, h.dataset.NumQueries())
	start := time.Now()
	batches := h.dataset.Batches(h.cfg.BatchSize)
	for bi, b := range batches {
		group, gctx := pool.GroupContext(ctx)
		for id := b.Start; id < b.End; id++ {
			group.Submit(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				t := h.dataset.templates[id]
				flat := t.Merged()
				if err := h.index.Insert(flat, id); err != nil {
					return fmt.Errorf("insert %d: %w", id, err)
				}
				if h.truth != nil {
					if err := h.truth.Insert(flat, id); err != nil {
						return fmt.Errorf("insert %d into ground truth: %w", id, err)
					}
				}
				if h.dataset.IsQuery(id) {
					mu.Lock()
					retained = append(retained, Query{Template: t, ID: id})
					mu.Unlock()
				}
				return nil
			})
		}
		if err := group.Wait(); err != nil {
			return err
		}
		h.log("Inserted batch %d/%d (%d templates)", bi+1, len(batches), b.End)
	}
	h.insertDuration = time.Since(start)

	slices.SortFunc(retained, func(a, b Query) int {
		return cmp.Compare(a.ID, b.ID)
	})
	h.queries = retained
	h.state = StateIndexed
	h.log("Built index in %v", h.insertDuration)
	return nil
}

// SwitchToSearch puts the index into searching mode and zeroes the
// evaluation counter so the report only covers queries.
func (h *Harness) SwitchToSearch() error {
	if err := h.expect(StateIndexed); err != nil {
		return err
	}
	if err := h.index.SetSearchingMode(true); err != nil {
		return err
	}
	if h.truth != nil {
		if err := h.truth.SetSearchingMode(true); err != nil {
			return err
		}
	}
	h.counter.Reset()
	h.state = StateSearching
	return nil
}

// querySeed derives an independent, reproducible stream per query.
func querySeed(seed int64, id ID) int64 {
	return int64(uint64(seed) ^ (uint64(id)+1)*0x9E3779B97F4A7C15)
}

// Query searches a noisy variant of every retained template. Any failed
// or empty search aborts the run.
func (h *Harness) Query(ctx context.Context) (*Report, error) {
	if err := h.expect(StateSearching); err != nil {
		return nil, err
	}
	var correct, exact atomic.Uint64
	genuine := make([]float32, len(h.queries))
	var recallAtK []float64
	if h.truth != nil {
		recallAtK = make([]float64, len(h.queries))
	}
	var finished atomic.Uint32

	pool := h.newPool()
	defer pool.StopAndWait()
	group, gctx := pool.GroupContext(ctx)
	start := time.Now()
	for i, q := range h.queries {
		group.Submit(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			rng := rand.New(rand.NewSource(querySeed(h.cfg.Seed, q.ID)))
			noisy := q.Template.Similar(rng)
			flat := noisy.Merged()
			genuine[i] = h.cfg.Precision.Narrow(noisy.Distance(q.Template))

			res, err := h.index.Search(flat, h.cfg.K, h.cfg.EfSearch)
			if err != nil {
				return fmt.Errorf("query %d: %w", q.ID, err)
			}
			got := ResultSetOf(res, h.cfg.K)
			best, ok := got.Best()
			if !ok {
				return fmt.Errorf("query %d: %w", q.ID, ErrEmptyResult)
			}
			if best.ID == q.ID {
				correct.Add(1)
			}

			if h.truth != nil {
				tr, err := h.truth.Search(flat, h.cfg.K, 0)
				if err != nil {
					return fmt.Errorf("exact query %d: %w", q.ID, err)
				}
				truth := ResultSetOf(tr, h.cfg.K)
				if tb, ok := truth.Best(); ok && tb.ID == q.ID {
					exact.Add(1)
				}
				recallAtK[i] = got.ComputeRecall(truth, h.cfg.K)
			}
			if v := finished.Add(1); v%1000 == 0 {
				h.log("Search finished %d", v)
			}
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}

	r := &Report{
		Index:            h.cfg.Index,
		Population:       h.dataset.Len(),
		Queries:          len(h.queries),
		K:                h.cfg.K,
		Correct:          correct.Load(),
		Evaluations:      h.counter.Load(),
		ExactCorrect:     exact.Load(),
		ExactVerified:    h.truth != nil,
		GenuineDistances: genuine,
		InsertDuration:   h.insertDuration,
		QueryDuration:    time.Since(start),
	}
	for _, v := range recallAtK {
		r.RecallAtK += v
	}
	if len(recallAtK) > 0 {
		r.RecallAtK = r.RecallAtK / float64(len(recallAtK)) * 100
	}
	h.state = StateReported
	return r, nil
}

// Run drives the whole pipeline.
func (h *Harness) Run(ctx context.Context) (*Report, error) {
	if err := h.Build(); err != nil {
		return nil, err
	}
	if err := h.Insert(ctx); err != nil {
		return nil, err
	}
	if err := h.SwitchToSearch(); err != nil {
		return nil, err
	}
	return h.Query(ctx)
}
