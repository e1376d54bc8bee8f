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

	"github.com/TsaiHao/Perfsets/tracedata/trace"
)

// cpuWorkerQueueDepth bounds the per-worker task channel.  Producers
// block rather than buffer unboundedly when a single CPU dominates the
// slice set.
const cpuWorkerQueueDepth = 256

// A cpuWorker accumulates busy slices for a single CPU into a window
// buffer it exclusively owns.  Slices arrive on a channel and are drained
// by a dedicated goroutine; nothing else may read or write buf until
// finishAndJoin has returned.
type cpuWorker struct {
	spec   WindowSpec
	buf    []int64
	tasks  chan trace.Slice
	done   chan struct{}
	finish sync.Once
}

// newCPUWorker starts a worker bound to buf, which must have length
// spec.NumWindows().
func newCPUWorker(spec WindowSpec, buf []int64) *cpuWorker {
	w := &cpuWorker{
		spec:  spec,
		buf:   buf,
		tasks: make(chan trace.Slice, cpuWorkerQueueDepth),
		done:  make(chan struct{}),
	}
	go w.run()
	return w
}

func (w *cpuWorker) run() {
	defer close(w.done)
	for s := range w.tasks {
		clipped, ok := s.Clip(trace.Duration(w.spec.TraceDurationNs))
		if !ok {
			continue
		}
		accumulate(w.spec, int64(clipped.StartTimestamp), int64(clipped.EndTimestamp), w.buf)
	}
}

// submit queues one slice for accumulation.  Safe for concurrent
// producers; must not be called after finishAndJoin.
func (w *cpuWorker) submit(s trace.Slice) {
	w.tasks <- s
}

// finishAndJoin signals that no more slices will arrive and blocks until
// the worker has drained its queue and exited.  It is idempotent, so
// teardown paths may call it regardless of whether the computation
// already joined the worker.
func (w *cpuWorker) finishAndJoin() {
	w.finish.Do(func() { close(w.tasks) })
	<-w.done
}
