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
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/TsaiHao/Perfsets/tracedata/trace"
)

func TestCPUWorkerDrainsQueueOnJoin(t *testing.T) {
	buf := make([]int64, tenWindows.NumWindows())
	w := newCPUWorker(tenWindows, buf)
	w.submit(trace.Slice{StartTimestamp: 150, EndTimestamp: 250, CPU: 0})
	w.submit(trace.Slice{StartTimestamp: 150, EndTimestamp: 250, CPU: 0})
	w.submit(trace.Slice{StartTimestamp: -500, EndTimestamp: -400, CPU: 0})
	w.finishAndJoin()
	want := make([]int64, tenWindows.NumWindows())
	want[1], want[2] = 100, 100
	if diff := cmp.Diff(want, buf); diff != "" {
		t.Errorf("worker buffer diff (-want +got):\n%s", diff)
	}
}

func TestCPUWorkerJoinIsIdempotent(t *testing.T) {
	buf := make([]int64, tenWindows.NumWindows())
	w := newCPUWorker(tenWindows, buf)
	w.submit(trace.Slice{StartTimestamp: 0, EndTimestamp: 100, CPU: 0})
	w.finishAndJoin()
	// A second join, including concurrent ones, must neither crash nor
	// deadlock.
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			w.finishAndJoin()
		}()
	}
	wg.Wait()
	if buf[0] != 100 {
		t.Errorf("buf[0] = %d, want 100", buf[0])
	}
}

func TestCPUWorkerConcurrentProducers(t *testing.T) {
	buf := make([]int64, tenWindows.NumWindows())
	w := newCPUWorker(tenWindows, buf)
	var wg sync.WaitGroup
	for p := 0; p < 8; p++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				w.submit(trace.Slice{StartTimestamp: 0, EndTimestamp: 1, CPU: 0})
			}
		}()
	}
	wg.Wait()
	w.finishAndJoin()
	if buf[0] != 800 {
		t.Errorf("buf[0] = %d, want 800", buf[0])
	}
}
