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
// Package testhelpers contains helpers for tests
package testhelpers

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// Float32Near returns a cmp.Option under which float32 values compare
// equal to within tolerance.  Load grids are produced by a single
// floating-point conversion from exact integer accumulations, so a small
// tolerance suffices.
func Float32Near(tolerance float64) cmp.Option {
	return cmp.Comparer(func(a, b float32) bool {
		return math.Abs(float64(a)-float64(b)) <= tolerance
	})
}

// DiffGrids compares two load grids to within a small tolerance and
// returns their diff, empty if they match.
func DiffGrids(t *testing.T, want, got [][]float32) string {
	t.Helper()
	return cmp.Diff(want, got, Float32Near(1e-4))
}
