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

import "github.com/TsaiHao/Perfsets/tracedata/trace"

type filter struct {
	// If true, slices that overlap the start or end timestamps will be
	// truncated so that they do not overlap the requested range.
	truncateToTimeRange bool
	// Slices shorter than this are filtered out.
	minSliceDuration trace.Duration
	// If Unknown, the start of the collection.
	startTimestamp trace.Timestamp
	// If Unknown, the end of the collection.
	endTimestamp trace.Timestamp
	// If empty, all CPUs.
	cpus map[trace.CPUID]struct{}
}

// Filter specifies a filter to a load collection query.
type Filter func(*filter)

// TruncateToTimeRange sets whether slices will be allowed to overlap the
// start or end timestamp of the filter.
func TruncateToTimeRange(truncateToTimeRange bool) Filter {
	return func(f *filter) {
		f.truncateToTimeRange = truncateToTimeRange
	}
}

// MinSliceDuration filters out slices shorter than the provided duration.
func MinSliceDuration(minSliceDuration trace.Duration) Filter {
	return func(f *filter) {
		f.minSliceDuration = minSliceDuration
	}
}

// StartTimestamp sets the inclusive start of the filtered-in time-range.
func StartTimestamp(startTimestamp trace.Timestamp) Filter {
	return func(f *filter) {
		f.startTimestamp = startTimestamp
	}
}

// EndTimestamp sets the exclusive end of the filtered-in time-range.
func EndTimestamp(endTimestamp trace.Timestamp) Filter {
	return func(f *filter) {
		f.endTimestamp = endTimestamp
	}
}

// TimeRange filters to the half-open time-range [startTimestamp,
// endTimestamp), matching the half-open convention of busy slices.
// Unknown (negative) bounds leave the corresponding collection extremity
// in place.
func TimeRange(startTimestamp, endTimestamp trace.Timestamp) Filter {
	return func(f *filter) {
		f.startTimestamp, f.endTimestamp = startTimestamp, endTimestamp
	}
}

// CPUs filters to the specified CPUs.
func CPUs(cpus ...trace.CPUID) Filter {
	return func(f *filter) {
		for _, cpu := range cpus {
			f.cpus[cpu] = struct{}{}
		}
	}
}

// buildFilter applies the provided filters over the receiver's full
// range.  Unknown bounds default to the collection's extremities; known
// bounds are kept as given, so a viewport wider than the busy span is
// honored (the extra windows simply carry zero load).
func (c *Collection) buildFilter(filters ...Filter) *filter {
	f := &filter{
		startTimestamp: trace.UnknownTimestamp,
		endTimestamp:   trace.UnknownTimestamp,
		cpus:           map[trace.CPUID]struct{}{},
	}
	for _, filt := range filters {
		filt(f)
	}
	if f.startTimestamp < 0 {
		f.startTimestamp = c.startTimestamp
	}
	if f.endTimestamp < 0 {
		f.endTimestamp = c.endTimestamp
	}
	return f
}
