package scheme

import (
	"math"
	"sort"

	"github.com/shinji-kodama/rasterbatch/internal/model"
)

// Options controls how Reclassify treats pixels that are not covered by
// the scheme.
type Options struct {
	// Policy decides what happens to values outside every range.
	// The zero value behaves like model.PolicyNoData.
	Policy model.NoDataPolicy

	// SourceNoData is the no-data value of the input band. Pixels equal
	// to it always become NoData. Ignored unless HasSourceNoData is set.
	SourceNoData    float64
	HasSourceNoData bool

	// NoData is the sentinel written for no-data pixels in the output.
	NoData int64
}

// Reclassify maps every input value to its output class. NaN values and
// source no-data values become opts.NoData; values outside every range
// become opts.NoData under PolicyNoData, or keep their rounded value
// under PolicyData.
func (s Scheme) Reclassify(values []float64, opts Options) []int64 {
	out := make([]int64, len(values))
	for i, v := range values {
		out[i] = s.classify(v, opts)
	}
	return out
}

func (s Scheme) classify(v float64, opts Options) int64 {
	if math.IsNaN(v) || (opts.HasSourceNoData && v == opts.SourceNoData) {
		return opts.NoData
	}
	if class, ok := s.Lookup(v); ok {
		return class
	}
	if opts.Policy == model.PolicyData {
		return int64(math.Round(v))
	}
	return opts.NoData
}

// Tabulate counts the pixels of every class value other than noData and
// returns them in ascending value order. An input made only of noData
// pixels yields an empty, non-nil slice.
func Tabulate(classified []int64, noData int64) []model.ClassStat {
	counts := make(map[int64]int64)
	for _, v := range classified {
		if v == noData {
			continue
		}
		counts[v]++
	}
	return statsFromCounts(counts)
}

// Counter accumulates class counts incrementally, for engines that read
// classified rasters block by block.
type Counter struct {
	noData int64
	counts map[int64]int64
}

// NewCounter returns a Counter that ignores noData.
func NewCounter(noData int64) *Counter {
	return &Counter{noData: noData, counts: make(map[int64]int64)}
}

// Add counts a single value.
func (c *Counter) Add(v int64) {
	if v != c.noData {
		c.counts[v]++
	}
}

// Stats returns the accumulated counts in ascending value order.
func (c *Counter) Stats() []model.ClassStat {
	return statsFromCounts(c.counts)
}

func statsFromCounts(counts map[int64]int64) []model.ClassStat {
	stats := make([]model.ClassStat, 0, len(counts))
	for v, n := range counts {
		stats = append(stats, model.ClassStat{Value: v, Count: n})
	}
	sort.Slice(stats, func(i, j int) bool { return stats[i].Value < stats[j].Value })
	return stats
}
