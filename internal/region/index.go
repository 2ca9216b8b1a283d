// Package region indexes query ranges for point lookups.
package region

import (
	"sort"

	"github.com/ffsites/ffsites/internal/query"
)

// Tree provides O(log n + k) overlap queries using a sorted-slice approach.
// Ranges are loaded once and never modified after build.
type Tree struct {
	intervals []interval
	maxEnd    []int64 // maxEnd[i] = max(End) for intervals[i:]
}

type interval struct {
	start int64
	end   int64
	order int // position in the original range list
	rng   *query.Range
}

// BuildTree creates a tree from ranges on a single chromosome.
func BuildTree(ranges []*query.Range) *Tree {
	if len(ranges) == 0 {
		return &Tree{}
	}

	intervals := make([]interval, len(ranges))
	for i, r := range ranges {
		intervals[i] = interval{start: r.Start, end: r.End, order: i, rng: r}
	}

	sort.SliceStable(intervals, func(i, j int) bool {
		return intervals[i].start < intervals[j].start
	})

	// Build suffix-max array: maxEnd[i] = max(end) for intervals[i:]
	maxEnd := make([]int64, len(intervals))
	maxEnd[len(intervals)-1] = intervals[len(intervals)-1].end
	for i := len(intervals) - 2; i >= 0; i-- {
		maxEnd[i] = max(intervals[i].end, maxEnd[i+1])
	}

	return &Tree{intervals: intervals, maxEnd: maxEnd}
}

// Find returns every range whose [Start, End] contains pos, in the order the
// ranges were given to BuildTree.
func (t *Tree) Find(pos int64) []*query.Range {
	if len(t.intervals) == 0 {
		return nil
	}

	// hi is the first index with start > pos; candidates are [0, hi).
	hi := sort.Search(len(t.intervals), func(i int) bool {
		return t.intervals[i].start > pos
	})

	var hits []interval
	for i := hi - 1; i >= 0; i-- {
		// No interval in [0, i] reaches pos.
		if t.maxEnd[i] < pos {
			break
		}
		if t.intervals[i].end >= pos {
			hits = append(hits, t.intervals[i])
		}
	}
	if len(hits) == 0 {
		return nil
	}

	sort.Slice(hits, func(i, j int) bool { return hits[i].order < hits[j].order })
	out := make([]*query.Range, len(hits))
	for i, h := range hits {
		out[i] = h.rng
	}
	return out
}

// Len returns the number of indexed ranges.
func (t *Tree) Len() int {
	return len(t.intervals)
}

// Index holds one Tree per chromosome.
type Index struct {
	trees map[string]*Tree
}

// NewIndex builds an index over ranges. The ranges slice must not be modified
// while the index is in use.
func NewIndex(ranges []query.Range) *Index {
	byChrom := make(map[string][]*query.Range)
	for i := range ranges {
		r := &ranges[i]
		byChrom[r.Chrom] = append(byChrom[r.Chrom], r)
	}
	idx := &Index{trees: make(map[string]*Tree, len(byChrom))}
	for chrom, rs := range byChrom {
		idx.trees[chrom] = BuildTree(rs)
	}
	return idx
}

// Find returns the ranges on chrom that contain pos.
func (idx *Index) Find(chrom string, pos int64) []*query.Range {
	t, ok := idx.trees[chrom]
	if !ok {
		return nil
	}
	return t.Find(pos)
}
