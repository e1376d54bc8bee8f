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
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// WindowSpec defines a sliding-window layout over a trace: fixed-width
// windows of WindowSizeNs placed every WindowStepNs nanoseconds, with
// window w spanning [w*WindowStepNs, w*WindowStepNs+WindowSizeNs).
// Windows may overlap (step < size) or leave gaps (step > size).  All
// three fields must be strictly positive.
type WindowSpec struct {
	TraceDurationNs int64 `json:"traceDurationNs"`
	WindowSizeNs    int64 `json:"windowSizeNs"`
	WindowStepNs    int64 `json:"windowStepNs"`
}

func (ws WindowSpec) validate() error {
	if ws.TraceDurationNs <= 0 || ws.WindowSizeNs <= 0 || ws.WindowStepNs <= 0 {
		return status.Errorf(codes.InvalidArgument,
			"trace duration (%d), window size (%d), and window step (%d) must all be positive",
			ws.TraceDurationNs, ws.WindowSizeNs, ws.WindowStepNs)
	}
	return nil
}

// NumWindows returns the number of windows the spec lays over its trace.
// A trace shorter than a single window still yields one window; no
// window's start ever exceeds the trace duration.
func (ws WindowSpec) NumWindows() int64 {
	if ws.TraceDurationNs < ws.WindowSizeNs {
		return 1
	}
	return 1 + (ws.TraceDurationNs-ws.WindowSizeNs)/ws.WindowStepNs
}

func ceilDiv(a, b int64) int64 {
	return (a + b - 1) / b
}

// windowRange returns the inclusive range of window indices that can
// overlap the span [startNs, endNs), which must already be clamped to
// [0, TraceDurationNs] and non-empty.  ok is false if no window overlaps
// the span.  The bounds are closed-form, so each slice costs only the
// windows it actually touches rather than a scan of all windows.
func (ws WindowSpec) windowRange(startNs, endNs int64) (iStart, iEnd int64, ok bool) {
	// The first window whose end exceeds startNs.
	var first int64
	if startNs >= ws.WindowSizeNs {
		first = ceilDiv(startNs-ws.WindowSizeNs+1, ws.WindowStepNs)
	}
	// The last window whose start precedes endNs.
	last := (endNs - 1) / ws.WindowStepNs
	if n := ws.NumWindows(); last > n-1 {
		last = n - 1
	}
	if first > last {
		return 0, 0, false
	}
	return first, last, true
}
