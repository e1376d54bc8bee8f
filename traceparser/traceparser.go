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
// Package traceparser parses busy-slice dumps into trace.Slices.  A dump
// is the CSV table extracted from a trace with a trace_processor query
// over sched_slice: a header naming at least the ts, dur, and ucpu
// columns, then one row per span during which a CPU was executing work.
package traceparser

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	log "github.com/golang/glog"

	"github.com/TsaiHao/Perfsets/tracedata/trace"
)

// Column names expected in a slice dump's header.
const (
	tsColumn   = "ts"
	durColumn  = "dur"
	ucpuColumn = "ucpu"
)

// ParseSliceDump reads a CSV slice dump and returns its busy slices.
// Column order is taken from the header, and columns beyond ts, dur, and
// ucpu are ignored.  Malformed rows are skipped with a warning rather
// than failing the parse: a corrupt record loses one slice, not the
// whole dump.
func ParseSliceDump(r io.Reader) ([]trace.Slice, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	// Malformed rows are handled here, not by the CSV layer.
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read slice dump header: %s", err)
	}
	columns := map[string]int{}
	for i, name := range header {
		columns[strings.TrimSpace(name)] = i
	}
	for _, name := range []string{tsColumn, durColumn, ucpuColumn} {
		if _, ok := columns[name]; !ok {
			return nil, fmt.Errorf("slice dump header %v is missing required column %q", header, name)
		}
	}

	var slices []trace.Slice
	for row := 1; ; row++ {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read slice dump row %d: %s", row, err)
		}
		s, err := parseSliceRecord(record, columns)
		if err != nil {
			log.Warningf("skipping malformed slice dump row %d: %s", row, err)
			continue
		}
		slices = append(slices, s)
	}
	return slices, nil
}

func parseSliceRecord(record []string, columns map[string]int) (trace.Slice, error) {
	field := func(name string) (int64, error) {
		i := columns[name]
		if i >= len(record) {
			return 0, fmt.Errorf("row has %d fields, column %q is at index %d", len(record), name, i)
		}
		v, err := strconv.ParseInt(strings.TrimSpace(record[i]), 10, 64)
		if err != nil {
			return 0, fmt.Errorf("bad %q value %q", name, record[i])
		}
		return v, nil
	}
	ts, err := field(tsColumn)
	if err != nil {
		return trace.Slice{}, err
	}
	dur, err := field(durColumn)
	if err != nil {
		return trace.Slice{}, err
	}
	ucpu, err := field(ucpuColumn)
	if err != nil {
		return trace.Slice{}, err
	}
	return trace.Slice{
		StartTimestamp: trace.Timestamp(ts),
		EndTimestamp:   trace.Timestamp(ts + dur),
		CPU:            trace.CPUID(ucpu),
	}, nil
}
