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
	"math/rand"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/TsaiHao/Perfsets/testhelpers"
)

// tenWindows tiles a 1000ns trace with ten 100ns windows.
var tenWindows = WindowSpec{TraceDurationNs: 1000, WindowSizeNs: 100, WindowStepNs: 100}

var tenTimestamps = []float32{0, 100, 200, 300, 400, 500, 600, 700, 800, 900}

func TestComputeCPULoad(t *testing.T) {
	tests := []struct {
		description string
		starts      []int64
		ends        []int64
		cpus        []int64
		spec        WindowSpec
		want        [][]float32
	}{{
		description: "single slice straddling two windows",
		starts:      []int64{150},
		ends:        []int64{250},
		cpus:        []int64{0},
		spec:        tenWindows,
		want: [][]float32{
			{0, 50, 50, 0, 0, 0, 0, 0, 0, 0},
			{0, 50, 50, 0, 0, 0, 0, 0, 0, 0},
			tenTimestamps,
		},
	}, {
		description: "slice clamped at trace start",
		starts:      []int64{-50},
		ends:        []int64{50},
		cpus:        []int64{0},
		spec:        tenWindows,
		want: [][]float32{
			{50, 0, 0, 0, 0, 0, 0, 0, 0, 0},
			{50, 0, 0, 0, 0, 0, 0, 0, 0, 0},
			tenTimestamps,
		},
	}, {
		description: "slice clamped at trace end",
		starts:      []int64{950},
		ends:        []int64{1050},
		cpus:        []int64{0},
		spec:        tenWindows,
		want: [][]float32{
			{0, 0, 0, 0, 0, 0, 0, 0, 0, 50},
			{0, 0, 0, 0, 0, 0, 0, 0, 0, 50},
			tenTimestamps,
		},
	}, {
		description: "slices entirely outside the trace contribute nothing",
		starts:      []int64{-200, 1000, 400},
		ends:        []int64{-100, 1100, 500},
		cpus:        []int64{0, 0, 0},
		spec:        tenWindows,
		want: [][]float32{
			{0, 0, 0, 0, 100, 0, 0, 0, 0, 0},
			{0, 0, 0, 0, 100, 0, 0, 0, 0, 0},
			tenTimestamps,
		},
	}, {
		description: "overlapping slices on one CPU clamp to 100",
		starts:      []int64{100, 150},
		ends:        []int64{200, 250},
		cpus:        []int64{0, 0},
		spec:        tenWindows,
		want: [][]float32{
			{0, 100, 50, 0, 0, 0, 0, 0, 0, 0},
			{0, 100, 50, 0, 0, 0, 0, 0, 0, 0},
			tenTimestamps,
		},
	}, {
		description: "aggregate normalizes across CPUs",
		starts:      []int64{100, 100},
		ends:        []int64{200, 150},
		cpus:        []int64{0, 1},
		spec:        tenWindows,
		want: [][]float32{
			{0, 100, 0, 0, 0, 0, 0, 0, 0, 0},
			{0, 50, 0, 0, 0, 0, 0, 0, 0, 0},
			{0, 75, 0, 0, 0, 0, 0, 0, 0, 0},
			tenTimestamps,
		},
	}, {
		description: "sparse CPU identifiers compact in ascending order",
		starts:      []int64{0, 0},
		ends:        []int64{100, 50},
		cpus:        []int64{5, 2},
		spec:        tenWindows,
		want: [][]float32{
			{50, 0, 0, 0, 0, 0, 0, 0, 0, 0},  // CPU 2
			{100, 0, 0, 0, 0, 0, 0, 0, 0, 0}, // CPU 5
			{75, 0, 0, 0, 0, 0, 0, 0, 0, 0},
			tenTimestamps,
		},
	}, {
		description: "trace shorter than one window still yields one window",
		starts:      []int64{0},
		ends:        []int64{25},
		cpus:        []int64{0},
		spec:        WindowSpec{TraceDurationNs: 50, WindowSizeNs: 100, WindowStepNs: 100},
		want: [][]float32{
			{25},
			{25},
			{0},
		},
	}}
	for _, test := range tests {
		t.Run(test.description, func(t *testing.T) {
			got, err := ComputeCPULoad(test.starts, test.ends, test.cpus, test.spec)
			if err != nil {
				t.Fatalf("ComputeCPULoad() yielded unexpected error: %s", err)
			}
			if diff := testhelpers.DiffGrids(t, test.want, got); diff != "" {
				t.Errorf("ComputeCPULoad() diff (-want +got):\n%s", diff)
			}
		})
	}
}

func TestComputeCPULoadInvalidInput(t *testing.T) {
	tests := []struct {
		description string
		starts      []int64
		ends        []int64
		cpus        []int64
		spec        WindowSpec
	}{{
		description: "empty input",
		spec:        tenWindows,
	}, {
		description: "mismatched column lengths",
		starts:      []int64{0, 100},
		ends:        []int64{50},
		cpus:        []int64{0, 0},
		spec:        tenWindows,
	}, {
		description: "non-positive trace duration",
		starts:      []int64{0},
		ends:        []int64{50},
		cpus:        []int64{0},
		spec:        WindowSpec{TraceDurationNs: 0, WindowSizeNs: 100, WindowStepNs: 100},
	}, {
		description: "non-positive window size",
		starts:      []int64{0},
		ends:        []int64{50},
		cpus:        []int64{0},
		spec:        WindowSpec{TraceDurationNs: 1000, WindowSizeNs: -1, WindowStepNs: 100},
	}, {
		description: "non-positive window step",
		starts:      []int64{0},
		ends:        []int64{50},
		cpus:        []int64{0},
		spec:        WindowSpec{TraceDurationNs: 1000, WindowSizeNs: 100, WindowStepNs: 0},
	}, {
		description: "no valid CPU identifiers",
		starts:      []int64{0},
		ends:        []int64{50},
		cpus:        []int64{-1},
		spec:        tenWindows,
	}}
	for _, test := range tests {
		t.Run(test.description, func(t *testing.T) {
			got, err := ComputeCPULoad(test.starts, test.ends, test.cpus, test.spec)
			if err == nil {
				t.Fatalf("ComputeCPULoad() = %v, wanted an error", got)
			}
			if len(got) != 0 {
				t.Errorf("ComputeCPULoad() returned a partial grid of %d rows on invalid input", len(got))
			}
		})
	}
}

func TestComputeCPULoadOrderIndependence(t *testing.T) {
	// A few hundred slices across four CPUs, with in-CPU overlaps and
	// out-of-range spans.
	rng := rand.New(rand.NewSource(42))
	var starts, ends, cpus []int64
	for i := 0; i < 400; i++ {
		start := rng.Int63n(1200) - 100
		starts = append(starts, start)
		ends = append(ends, start+rng.Int63n(300))
		cpus = append(cpus, rng.Int63n(4))
	}
	want, err := ComputeCPULoad(starts, ends, cpus, tenWindows)
	if err != nil {
		t.Fatalf("ComputeCPULoad() yielded unexpected error: %s", err)
	}
	perm := rng.Perm(len(starts))
	pStarts := make([]int64, len(starts))
	pEnds := make([]int64, len(starts))
	pCpus := make([]int64, len(starts))
	for i, j := range perm {
		pStarts[i], pEnds[i], pCpus[i] = starts[j], ends[j], cpus[j]
	}
	got, err := ComputeCPULoad(pStarts, pEnds, pCpus, tenWindows)
	if err != nil {
		t.Fatalf("ComputeCPULoad() yielded unexpected error: %s", err)
	}
	// Integer accumulation makes permuted inputs bit-identical, not
	// merely close.
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("permuted input changed the result (-want +got):\n%s", diff)
	}
}
