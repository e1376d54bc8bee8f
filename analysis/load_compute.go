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
// Package load converts per-CPU busy slices into windowed CPU utilization
// curves: one load curve per CPU plus an aggregate curve across all CPUs,
// sampled on a uniform sliding-window grid.  It also provides Collection,
// which indexes a slice set for filtered queries in support of the
// serving layer.
package load

import (
	"sort"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/TsaiHao/Perfsets/tracedata/trace"
)

// ComputeCPULoad computes windowed utilization percentages from three
// parallel columns describing busy slices: start timestamps, end
// timestamps, and owning CPU identifiers, all in nanoseconds where
// applicable.  The returned grid holds numCPUs+2 rows, each of length
// spec.NumWindows():
//
//   - rows 0..numCPUs-1: per-CPU utilization percentages in [0, 100], one
//     row per distinct CPU identifier in ascending identifier order;
//   - row numCPUs: the aggregate utilization percentage across all CPUs,
//     in [0, 100];
//   - row numCPUs+1: the window start timestamps, in nanoseconds.
//
// Slices lying partly or wholly outside [0, TraceDurationNs), and slices
// that are empty after clamping to that range, contribute nothing; they
// are not errors.  On unusable input -- no slices, mismatched column
// lengths, a non-positive spec field, or no valid CPU identifier -- the
// grid is nil and the error carries an InvalidArgument status; there are
// no partial results.
func ComputeCPULoad(sliceStartNs, sliceEndNs, cpuID []int64, spec WindowSpec) ([][]float32, error) {
	if len(sliceStartNs) == 0 {
		return nil, status.Errorf(codes.InvalidArgument, "no slices to compute load over")
	}
	if len(sliceStartNs) != len(sliceEndNs) || len(sliceStartNs) != len(cpuID) {
		return nil, status.Errorf(codes.InvalidArgument,
			"mismatched slice columns: %d starts, %d ends, %d cpus",
			len(sliceStartNs), len(sliceEndNs), len(cpuID))
	}
	if err := spec.validate(); err != nil {
		return nil, err
	}
	slices := make([]trace.Slice, len(sliceStartNs))
	for i := range sliceStartNs {
		slices[i] = trace.Slice{
			StartTimestamp: trace.Timestamp(sliceStartNs[i]),
			EndTimestamp:   trace.Timestamp(sliceEndNs[i]),
			CPU:            trace.CPUID(cpuID[i]),
		}
	}
	return computeLoad(slices, spec)
}

// cpuRowIndex assigns each distinct valid CPU identifier in slices a
// dense row index, in ascending identifier order.  Identifiers are
// arbitrary nonnegative integers; sparse identifier sets compact with no
// upper bound on the identifier value.  Slices with invalid identifiers
// are ignored.
func cpuRowIndex(slices []trace.Slice) (map[trace.CPUID]int, []trace.CPUID) {
	seen := map[trace.CPUID]struct{}{}
	for _, s := range slices {
		if s.CPU.Valid() {
			seen[s.CPU] = struct{}{}
		}
	}
	cpus := make([]trace.CPUID, 0, len(seen))
	for cpu := range seen {
		cpus = append(cpus, cpu)
	}
	sort.Slice(cpus, func(i, j int) bool {
		return cpus[i] < cpus[j]
	})
	rowIndex := make(map[trace.CPUID]int, len(cpus))
	for i, cpu := range cpus {
		rowIndex[cpu] = i
	}
	return rowIndex, cpus
}

// computeLoad fans the slices out to one worker per distinct CPU, each
// accumulating raw busy nanoseconds into its own buffer, then merges the
// buffers into the final percentage grid.  Per-CPU buffers have a single
// writer until every worker has been joined, so the accumulation itself
// needs no locking.
func computeLoad(slices []trace.Slice, spec WindowSpec) ([][]float32, error) {
	rowIndex, cpus := cpuRowIndex(slices)
	numCPUs := len(cpus)
	if numCPUs == 0 {
		return nil, status.Errorf(codes.InvalidArgument, "no valid CPU identifiers in slice set")
	}
	numWindows := spec.NumWindows()

	bufs := make([][]int64, numCPUs)
	workers := make([]*cpuWorker, numCPUs)
	for i := range workers {
		bufs[i] = make([]int64, numWindows)
		workers[i] = newCPUWorker(spec, bufs[i])
	}
	// Workers must not outlive the call on any exit path; finishAndJoin
	// is idempotent, so joining again below is harmless.
	defer func() {
		for _, w := range workers {
			w.finishAndJoin()
		}
	}()

	for _, s := range slices {
		row, ok := rowIndex[s.CPU]
		if !ok {
			// Invalid identifier: zero contribution.
			continue
		}
		workers[row].submit(s)
	}

	// The timestamp row depends only on the spec; fill it on the calling
	// goroutine while the workers drain.
	timestamps := make([]float32, numWindows)
	for w := int64(0); w < numWindows; w++ {
		timestamps[w] = float32(w * spec.WindowStepNs)
	}

	for _, w := range workers {
		w.finishAndJoin()
	}

	// Merge: convert each CPU's raw durations to a clamped percentage, and
	// total capacity-normalized raw durations into the aggregate row.  The
	// clamp matters because overlapping slices on one CPU double-count.
	grid := make([][]float32, 0, numCPUs+2)
	for i := range bufs {
		row := make([]float32, numWindows)
		for w, raw := range bufs[i] {
			row[w] = percent(min(raw, spec.WindowSizeNs), spec.WindowSizeNs)
		}
		grid = append(grid, row)
	}
	aggregate := make([]float32, numWindows)
	totalCapacityNs := spec.WindowSizeNs * int64(numCPUs)
	for w := int64(0); w < numWindows; w++ {
		var totalNs int64
		for i := range bufs {
			totalNs += bufs[i][w]
		}
		aggregate[w] = percent(min(totalNs, totalCapacityNs), totalCapacityNs)
	}
	grid = append(grid, aggregate, timestamps)
	return grid, nil
}

func percent(part, whole int64) float32 {
	return float32(part) / float32(whole) * 100
}
