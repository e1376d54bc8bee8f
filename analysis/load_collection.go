//
// Copyright 2024 The Perfsets Authors. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS-IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
//
//
package load

import (
	"sort"

	"github.com/Workiva/go-datastructures/augmentedtree"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/TsaiHao/Perfsets/tracedata/trace"
)

// A busySpan is one busy slice held in a per-CPU interval tree.
type busySpan struct {
	slice trace.Slice
	id    uint64 // A unique identifier for augmentedtree.Tree.
}

// The ID for augmentedtree.Intervals used in queries.  Query intervals
// are never stored, so a reserved ID is safe.
const queryID uint64 = 0

// LowAtDimension returns the start timestamp of the span.  Required to
// support augmentedtree.Interval.
func (bs *busySpan) LowAtDimension(d uint64) int64 {
	return int64(bs.slice.StartTimestamp)
}

// HighAtDimension returns the last covered nanosecond of the span.
// Slices are half-open but the tree works in inclusive coordinates, so
// the high bound is the end timestamp less one.  Required to support
// augmentedtree.Interval.
func (bs *busySpan) HighAtDimension(d uint64) int64 {
	return int64(bs.slice.EndTimestamp) - 1
}

// OverlapsAtDimension returns true if an interval overlaps this interval
// at the specified dimension.  Required to support
// augmentedtree.Interval.
func (bs *busySpan) OverlapsAtDimension(j augmentedtree.Interval, d uint64) bool {
	return bs.HighAtDimension(d) >= j.LowAtDimension(d) &&
		j.HighAtDimension(d) >= bs.LowAtDimension(d)
}

// ID returns the unique identifier for this interval.  Required to
// support augmentedtree.Interval.
func (bs *busySpan) ID() uint64 {
	return bs.id
}

// spanQuery is an inclusive time-range query over a busy-span tree.
type spanQuery struct {
	low, high int64
}

func (q spanQuery) LowAtDimension(d uint64) int64  { return q.low }
func (q spanQuery) HighAtDimension(d uint64) int64 { return q.high }
func (q spanQuery) ID() uint64                     { return queryID }
func (q spanQuery) OverlapsAtDimension(j augmentedtree.Interval, d uint64) bool {
	return q.high >= j.LowAtDimension(d) && j.HighAtDimension(d) >= q.low
}

type collectionOptions struct {
	// If true, all slice timestamps in the collection will be shifted so
	// that the earliest slice starts at timestamp 0.
	normalizeTimestamps bool
}

// Option specifies an option that may be specified for a Collection at
// its creation.
type Option func(o *collectionOptions)

// NormalizeTimestamps specifies whether to adjust slice timestamps.
// Called with true, shifts all slices in the Collection such that the
// earliest slice start has Timestamp 0, and all other timestamps are
// adjusted by the same amount.  Called with false, it leaves all
// timestamps unmodified.  If unspecified, timestamps are not normalized.
func NormalizeTimestamps(b bool) Option {
	return func(o *collectionOptions) {
		o.normalizeTimestamps = b
	}
}

// Collection indexes a set of busy slices for filtered queries and
// windowed utilization computation.  A Collection is immutable once
// built and safe for concurrent queries.
type Collection struct {
	// All valid slices, in increasing start-timestamp order.
	slices []trace.Slice
	// A mapping from CPU to interval tree.  Each CPU's one-dimensional
	// interval tree contains that CPU's busy spans, and can be queried
	// for the spans overlapping any time range.
	busySpansByCPU map[trace.CPUID]augmentedtree.Tree
	// cpus is a cached copy of all CPUs in the collection.
	cpus map[trace.CPUID]struct{}
	// Cached start and end timestamps of the collection.  The end
	// timestamp is exclusive, matching the slices' half-open convention.
	startTimestamp trace.Timestamp
	endTimestamp   trace.Timestamp
	options        *collectionOptions
}

// NewCollection builds and returns a new load.Collection over the
// provided busy slices, or nil and an error if none of the slices is
// usable.  Slices with invalid CPUs or non-positive durations are
// dropped silently; they could contribute nothing to any query.
func NewCollection(slices []trace.Slice, options ...Option) (*Collection, error) {
	c := &Collection{
		busySpansByCPU: make(map[trace.CPUID]augmentedtree.Tree),
		cpus:           map[trace.CPUID]struct{}{},
		options:        &collectionOptions{},
	}
	for _, option := range options {
		option(c.options)
	}
	for _, s := range slices {
		if !s.CPU.Valid() || s.Duration() <= 0 {
			continue
		}
		c.slices = append(c.slices, s)
	}
	if len(c.slices) == 0 {
		return nil, status.Errorf(codes.InvalidArgument, "no usable busy slices in collection")
	}
	sort.Slice(c.slices, func(i, j int) bool {
		if c.slices[i].StartTimestamp != c.slices[j].StartTimestamp {
			return c.slices[i].StartTimestamp < c.slices[j].StartTimestamp
		}
		return c.slices[i].CPU < c.slices[j].CPU
	})
	if c.options.normalizeTimestamps {
		offset := c.slices[0].StartTimestamp
		for i := range c.slices {
			c.slices[i].StartTimestamp -= offset
			c.slices[i].EndTimestamp -= offset
		}
	}
	c.startTimestamp = c.slices[0].StartTimestamp
	for i, s := range c.slices {
		if s.EndTimestamp > c.endTimestamp {
			c.endTimestamp = s.EndTimestamp
		}
		c.cpus[s.CPU] = struct{}{}
		tree, ok := c.busySpansByCPU[s.CPU]
		if !ok {
			tree = augmentedtree.New(1)
			c.busySpansByCPU[s.CPU] = tree
		}
		// IDs start at 1; 0 is reserved for queries.
		tree.Add(&busySpan{slice: s, id: uint64(i) + 1})
	}
	return c, nil
}

// CPUs returns the collection's CPUs in increasing order.
func (c *Collection) CPUs() []trace.CPUID {
	cpus := make([]trace.CPUID, 0, len(c.cpus))
	for cpu := range c.cpus {
		cpus = append(cpus, cpu)
	}
	sort.Slice(cpus, func(i, j int) bool {
		return cpus[i] < cpus[j]
	})
	return cpus
}

// SliceCount returns the number of indexed busy slices.
func (c *Collection) SliceCount() int {
	return len(c.slices)
}

// Interval returns the filtered-in time range as a half-open
// [start, end) pair.
func (c *Collection) Interval(filters ...Filter) (start, end trace.Timestamp) {
	f := c.buildFilter(filters...)
	return f.startTimestamp, f.endTimestamp
}

// BusySlices returns the filtered-in busy slices in increasing
// start-timestamp order.
// FILTERS:
//
//	TimeRange, StartTimestamp, EndTimestamp: slices are restricted to
//	    those overlapping the filtered-in time range.
//	TruncateToTimeRange: if true, returned slices are clipped to the
//	    filtered time range.
//	CPUs: slices are restricted to the specified CPUs.
//	MinSliceDuration: slices shorter than the minimum (after any
//	    truncation) are dropped.
func (c *Collection) BusySlices(filters ...Filter) ([]trace.Slice, error) {
	f := c.buildFilter(filters...)
	if f.startTimestamp >= f.endTimestamp {
		return nil, status.Errorf(codes.InvalidArgument,
			"invalid time range [%d, %d)", f.startTimestamp, f.endTimestamp)
	}
	query := spanQuery{low: int64(f.startTimestamp), high: int64(f.endTimestamp) - 1}
	var ret []trace.Slice
	for cpu, tree := range c.busySpansByCPU {
		if _, ok := f.cpus[cpu]; len(f.cpus) > 0 && !ok {
			continue
		}
		for _, iv := range tree.Query(query) {
			s := iv.(*busySpan).slice
			if f.truncateToTimeRange {
				if s.StartTimestamp < f.startTimestamp {
					s.StartTimestamp = f.startTimestamp
				}
				if s.EndTimestamp > f.endTimestamp {
					s.EndTimestamp = f.endTimestamp
				}
			}
			if s.Duration() < f.minSliceDuration {
				continue
			}
			ret = append(ret, s)
		}
	}
	sort.Slice(ret, func(i, j int) bool {
		if ret[i].StartTimestamp != ret[j].StartTimestamp {
			return ret[i].StartTimestamp < ret[j].StartTimestamp
		}
		return ret[i].CPU < ret[j].CPU
	})
	return ret, nil
}

// LoadSeries holds windowed utilization curves computed over a slice
// collection.  PerCPU rows are ordered as CPUs; Aggregate is the
// combined utilization normalized by the total CPU-time available per
// window; TimestampsNs holds each window's absolute start timestamp.
type LoadSeries struct {
	CPUs         []trace.CPUID `json:"cpus"`
	PerCPU       [][]float32   `json:"perCpu"`
	Aggregate    []float32     `json:"aggregate"`
	TimestampsNs []float32     `json:"timestampsNs"`
}

// UtilizationSeries computes windowed utilization curves over the
// filtered-in slices, laying the window grid over the filtered-in time
// range.  A zero windowStepNs defaults to windowSizeNs (tiled windows).
// FILTERS:
//
//	UtilizationSeries performs its calculations over busy slices, so it
//	honors the same filters as BusySlices.  Slices overlapping the range
//	extremities are always truncated; the portion outside the range can
//	contribute no load to windows within it.
func (c *Collection) UtilizationSeries(windowSizeNs, windowStepNs int64, filters ...Filter) (*LoadSeries, error) {
	f := c.buildFilter(filters...)
	if windowStepNs == 0 {
		windowStepNs = windowSizeNs
	}
	spec := WindowSpec{
		TraceDurationNs: int64(f.endTimestamp - f.startTimestamp),
		WindowSizeNs:    windowSizeNs,
		WindowStepNs:    windowStepNs,
	}
	if err := spec.validate(); err != nil {
		return nil, err
	}
	slices, err := c.BusySlices(append(filters, TruncateToTimeRange(true))...)
	if err != nil {
		return nil, err
	}
	if len(slices) == 0 {
		return nil, status.Errorf(codes.InvalidArgument,
			"no busy slices in range [%d, %d)", f.startTimestamp, f.endTimestamp)
	}
	// The dispatcher works in trace-relative time; shift the filtered
	// range down to zero and restore the offset on the timestamp row.
	shifted := make([]trace.Slice, len(slices))
	for i, s := range slices {
		s.StartTimestamp -= f.startTimestamp
		s.EndTimestamp -= f.startTimestamp
		shifted[i] = s
	}
	grid, err := computeLoad(shifted, spec)
	if err != nil {
		return nil, err
	}
	_, cpus := cpuRowIndex(shifted)
	numCPUs := len(cpus)
	timestamps := grid[numCPUs+1]
	for w := range timestamps {
		timestamps[w] += float32(f.startTimestamp)
	}
	return &LoadSeries{
		CPUs:         cpus,
		PerCPU:       grid[:numCPUs],
		Aggregate:    grid[numCPUs],
		TimestampsNs: timestamps,
	}, nil
}
