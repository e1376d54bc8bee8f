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
// Package trace provides the record types shared by the Perfsets analysis
// and serving layers: busy slices, trace timestamps and durations, and CPU
// identifiers.  A busy slice is a half-open span [StartTimestamp,
// EndTimestamp) during which a single CPU was executing work.
package trace

import "fmt"

// Timestamp describes a trace event timestamp, in nanoseconds from the
// start of the trace's clock domain.
type Timestamp int64

// UnknownTimestamp represents an unspecified timestamp.
const UnknownTimestamp Timestamp = -1

// Duration is a delta between two Timestamps.
type Duration int64

// UnknownDuration represents an unknown slice or trace duration.
const UnknownDuration Duration = -1

// CPUID specifies a CPU number.  Valid CPUIDs are nonnegative.
type CPUID int64

// UnknownCPU represents an indeterminate CPU value.
const UnknownCPU CPUID = -1

// Valid returns true iff the provided CPUID is valid.
func (c CPUID) Valid() bool {
	return c > UnknownCPU
}

func (c CPUID) String() string {
	if c.Valid() {
		return fmt.Sprintf("CPU %3d", c)
	}
	return "<unknown>"
}

// Slice is a half-open span [StartTimestamp, EndTimestamp) during which the
// specified CPU was busy.  Slices are produced by the trace loader and are
// read-only to the analysis layer; slices from the same CPU may overlap one
// another, and may lie partially or wholly outside the trace's duration.
type Slice struct {
	StartTimestamp Timestamp `json:"startTimestamp"`
	EndTimestamp   Timestamp `json:"endTimestamp"`
	CPU            CPUID     `json:"cpu"`
}

// Duration returns the length of the slice, or UnknownDuration if the slice
// ends before it starts.
func (s Slice) Duration() Duration {
	if s.EndTimestamp < s.StartTimestamp {
		return UnknownDuration
	}
	return Duration(s.EndTimestamp - s.StartTimestamp)
}

func (s Slice) String() string {
	return fmt.Sprintf("%s [%d - %d)", s.CPU, s.StartTimestamp, s.EndTimestamp)
}

// Clip returns the portion of s lying within [0, traceDuration), and false
// if nothing remains: slices starting at or after the trace's end, ending
// at or before its beginning, or empty after clamping contribute nothing.
func (s Slice) Clip(traceDuration Duration) (Slice, bool) {
	if Duration(s.StartTimestamp) >= traceDuration || s.EndTimestamp <= 0 {
		return Slice{}, false
	}
	if s.StartTimestamp < 0 {
		s.StartTimestamp = 0
	}
	if Duration(s.EndTimestamp) > traceDuration {
		s.EndTimestamp = Timestamp(traceDuration)
	}
	if s.StartTimestamp >= s.EndTimestamp {
		return Slice{}, false
	}
	return s, true
}
