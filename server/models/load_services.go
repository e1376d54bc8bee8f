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
package models

import "github.com/TsaiHao/Perfsets/tracedata/trace"

// LoadCurvesRequest is a request for windowed utilization curves over a
// specified collection.  If StartTimestampNs is -1, the collection's
// first timestamp is used instead; if EndTimestampNs is -1, the
// collection's last.  If WindowStepNs is 0, WindowSizeNs is used as the
// step (tiled windows).  If the provided CPU set is empty, all CPUs are
// filtered in.
type LoadCurvesRequest struct {
	CollectionName   string  `json:"collectionName"`
	StartTimestampNs int64   `json:"startTimestampNs"`
	EndTimestampNs   int64   `json:"endTimestampNs"`
	WindowSizeNs     int64   `json:"windowSizeNs"`
	WindowStepNs     int64   `json:"windowStepNs"`
	Cpus             []int64 `json:"cpus"`
}

// LoadCurvesResponse contains the response to a LoadCurvesRequest.  All
// rows have identical length, one value per window.
type LoadCurvesResponse struct {
	CollectionName string `json:"collectionName"`
	// The CPUs corresponding, in order, to the rows of CpuLoads.
	Cpus []int64 `json:"cpus"`
	// Per-CPU utilization percentages in [0, 100].
	CpuLoads [][]float32 `json:"cpuLoads"`
	// The aggregate utilization percentage across all filtered-in CPUs.
	AggregateLoad []float32 `json:"aggregateLoad"`
	// Each window's start timestamp, in nanoseconds.
	TimestampsNs []float32 `json:"timestampsNs"`
}

// BusySlicesRequest is a request for the busy slices overlapping a
// viewport, for a specified collection, filtered to the requested CPU
// set.  Timestamp fields of -1 default to the collection's extremities.
type BusySlicesRequest struct {
	CollectionName   string  `json:"collectionName"`
	StartTimestampNs int64   `json:"startTimestampNs"`
	EndTimestampNs   int64   `json:"endTimestampNs"`
	MinDurationNs    int64   `json:"minDurationNs"`
	Cpus             []int64 `json:"cpus"`
}

// CPUSlices groups one CPU's busy slices.
type CPUSlices struct {
	CPU    int64         `json:"cpu"`
	Slices []trace.Slice `json:"slices"`
}

// BusySlicesResponse contains the response to a BusySlicesRequest, one
// entry per requested CPU in request order.
type BusySlicesResponse struct {
	CollectionName string      `json:"collectionName"`
	Slices         []CPUSlices `json:"slices"`
}
