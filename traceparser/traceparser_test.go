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
package traceparser

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/TsaiHao/Perfsets/tracedata/trace"
)

func TestParseSliceDump(t *testing.T) {
	dump := strings.Join([]string{
		"ts,dur,ucpu,utid",
		"1000,500,0,12",
		"1200,300,1,34",
		"2000,,1,56",        // missing duration: skipped
		"oops,100,2,78",     // bad timestamp: skipped
		"3000,250",          // short row: skipped
		"4000,100,3,90",
	}, "\n")
	got, err := ParseSliceDump(strings.NewReader(dump))
	if err != nil {
		t.Fatalf("ParseSliceDump() yielded unexpected error: %s", err)
	}
	want := []trace.Slice{
		{StartTimestamp: 1000, EndTimestamp: 1500, CPU: 0},
		{StartTimestamp: 1200, EndTimestamp: 1500, CPU: 1},
		{StartTimestamp: 4000, EndTimestamp: 4100, CPU: 3},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ParseSliceDump() diff (-want +got):\n%s", diff)
	}
}

func TestParseSliceDumpReorderedColumns(t *testing.T) {
	dump := "ucpu, ts, dur\n2, 100, 50\n"
	got, err := ParseSliceDump(strings.NewReader(dump))
	if err != nil {
		t.Fatalf("ParseSliceDump() yielded unexpected error: %s", err)
	}
	want := []trace.Slice{{StartTimestamp: 100, EndTimestamp: 150, CPU: 2}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ParseSliceDump() diff (-want +got):\n%s", diff)
	}
}

func TestParseSliceDumpMissingColumn(t *testing.T) {
	if _, err := ParseSliceDump(strings.NewReader("ts,dur\n100,50\n")); err == nil {
		t.Error("ParseSliceDump() without a ucpu column succeeded, wanted an error")
	}
	if _, err := ParseSliceDump(strings.NewReader("")); err == nil {
		t.Error("ParseSliceDump() on an empty dump succeeded, wanted an error")
	}
}
