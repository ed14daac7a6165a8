/*
Copyright 2022 The Slackproj Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package slack

import "container/heap"

// emissionTimes is a min-heap of emitted watermark timestamps. It only
// serves the inter-emission frequency statistics and is drained, pairwise,
// when a stats snapshot is produced. Not safe for concurrent use, the
// Manager's lock guards it.
type emissionTimes struct {
	ts int64Heap
}

func newEmissionTimes() *emissionTimes {
	return &emissionTimes{}
}

func (e *emissionTimes) push(v int64) {
	heap.Push(&e.ts, v)
}

func (e *emissionTimes) pop() int64 {
	return heap.Pop(&e.ts).(int64)
}

func (e *emissionTimes) peek() int64 {
	return e.ts[0]
}

func (e *emissionTimes) len() int {
	return len(e.ts)
}

type int64Heap []int64

func (h int64Heap) Len() int            { return len(h) }
func (h int64Heap) Less(i, j int) bool  { return h[i] < h[j] }
func (h int64Heap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *int64Heap) Push(x interface{}) { *h = append(*h, x.(int64)) }
func (h *int64Heap) Pop() interface{} {
	old := *h
	n := len(old)
	v := old[n-1]
	*h = old[:n-1]
	return v
}

// RecordWatermark records one watermark emission: the wall clock lag of the
// watermark value goes into the delay histogram, the value itself into the
// emission time heap. Called once per emitted watermark, on the hot path,
// so it never blocks beyond the registry lock.
func (m *Manager) RecordWatermark(watermark int64) {
	m.watDelays.Update(float64(m.clk.Now().UnixMilli() - watermark))
	m.lock.Lock()
	m.watEmissionTimes.push(watermark)
	m.lock.Unlock()
	watermarksRecordedCount.Inc()
}

// LastEmittedWatermark returns the last watermark value handed downstream.
func (m *Manager) LastEmittedWatermark() int64 {
	return m.lastEmittedWatermark.Load()
}

// SetLastEmittedWatermark records the watermark value handed downstream.
// Monotonicity is the caller's contract, it is not enforced here.
func (m *Manager) SetLastEmittedWatermark(watermark int64) {
	m.lastEmittedWatermark.Store(watermark)
}
