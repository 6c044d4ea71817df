package iris

import (
	"fmt"
	"strings"
	"time"

	"github.com/viterin/vek/vek32"
)

type Report struct {
	Index       IndexKind
	Population  int
	Queries     int
	K           int
	Correct     uint64
	Evaluations uint64

	// ExactCorrect counts queries whose exact nearest neighbour is the
	// original template. Only set with Config.VerifyExact.
	ExactCorrect  uint64
	ExactVerified bool
	// RecallAtK is the mean percentage of each query's exact top K that
	// the index also returned. Only set with Config.VerifyExact.
	RecallAtK float64

	// GenuineDistances holds, per query, the distance between the noisy
	// query and the template it was derived from.
	GenuineDistances []float32

	InsertDuration time.Duration
	QueryDuration  time.Duration
}

// Recall is the percentage of queries whose top result was the original.
func (r *Report) Recall() float64 {
	if r.Queries == 0 {
		return 0
	}
	return float64(r.Correct) / float64(r.Queries) * 100
}

func (r *Report) ExactRecall() float64 {
	if r.Queries == 0 {
		return 0
	}
	return float64(r.ExactCorrect) / float64(r.Queries) * 100
}

// AvgEvaluations is the mean number of distance evaluations per query
// during the query phase.
func (r *Report) AvgEvaluations() float64 {
	if r.Queries == 0 {
		return 0
	}
	return float64(r.Evaluations) / float64(r.Queries)
}

func (r *Report) QPS() float64 {
	if r.QueryDuration <= 0 {
		return 0
	}
	return float64(r.Queries) / r.QueryDuration.Seconds()
}

func (r *Report) MeanGenuineDistance() float32 {
	if len(r.GenuineDistances) == 0 {
		return 0
	}
	return vek32.Mean(r.GenuineDistances)
}

func (r *Report) MaxGenuineDistance() float32 {
	if len(r.GenuineDistances) == 0 {
		return 0
	}
	return vek32.Max(r.GenuineDistances)
}

func (r *Report) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Recall: %.2f%%\n", r.Recall())
	fmt.Fprintf(&sb, "Avg distance evaluations per query: %.2f\n", r.AvgEvaluations())
	if r.ExactVerified {
		fmt.Fprintf(&sb, "Exact recall: %.2f%%\n", r.ExactRecall())
		fmt.Fprintf(&sb, "Recall@%d against exact search: %.2f%%\n", r.K, r.RecallAtK)
	}
	fmt.Fprintf(&sb, "Genuine distance: mean %.4f max %.4f\n", r.MeanGenuineDistance(), r.MaxGenuineDistance())
	fmt.Fprintf(&sb, "Index %s, %d templates, %d queries\n", r.Index, r.Population, r.Queries)
	fmt.Fprintf(&sb, "Insert %v, query %v (%.1f qps)", r.InsertDuration, r.QueryDuration, r.QPS())
	return sb.String()
}
