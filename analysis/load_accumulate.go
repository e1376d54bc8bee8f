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

// accumulate adds the exact overlap, in nanoseconds, between the span
// [startNs, endNs) and every window it touches into buf, which must have
// length ws.NumWindows().  The span must already be clamped to
// [0, TraceDurationNs] and non-empty; callers clamp via trace.Slice.Clip.
// Accumulation is in raw nanoseconds -- integer arithmetic throughout --
// so that summation order cannot perturb the result; conversion to a
// percentage happens once, in the merge pass, where per-window totals are
// clamped against the window size.
func accumulate(ws WindowSpec, startNs, endNs int64, buf []int64) {
	iStart, iEnd, ok := ws.windowRange(startNs, endNs)
	if !ok {
		return
	}
	for w := iStart; w <= iEnd; w++ {
		windowStart := w * ws.WindowStepNs
		windowEnd := windowStart + ws.WindowSizeNs
		overlap := min(endNs, windowEnd) - max(startNs, windowStart)
		// Boundary windows produced by windowRange may miss the span
		// entirely when windows have gaps.
		if overlap <= 0 {
			continue
		}
		buf[w] += overlap
	}
}
