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

package histogram

import (
	"sync"

	"github.com/montanaflynn/stats"
)

// DefaultCapacity is the number of samples a Rolling histogram retains
// unless the caller asks for a different capacity.
const DefaultCapacity = 10000

// Statistics is a point-in-time summary of the samples held by a Rolling
// histogram. An empty histogram summarizes to the zero value.
type Statistics struct {
	Count  int
	Mean   float64
	StdDev float64
	Min    float64
	Max    float64
}

// Rolling is a thread safe histogram with a fixed capacity; once full, the
// oldest samples automatically overflow. It trades exact historical
// accounting for bounded memory, which is what the delay bookkeeping here
// needs - recent behavior matters, ancient samples do not.
type Rolling struct {
	samples []float64
	maxSize int
	lock    *sync.RWMutex
}

// NewRolling returns a Rolling histogram retaining up to size samples.
func NewRolling(size int) *Rolling {
	if size <= 0 {
		size = DefaultCapacity
	}
	return &Rolling{
		samples: []float64{},
		maxSize: size,
		lock:    new(sync.RWMutex),
	}
}

// Update adds a sample to the histogram, evicting the oldest sample when
// the histogram is at capacity.
func (r *Rolling) Update(value float64) {
	r.lock.Lock()
	defer r.lock.Unlock()
	if len(r.samples) >= r.maxSize {
		r.samples = r.samples[1:]
	}
	r.samples = append(r.samples, value)
}

// Count returns the current number of retained samples.
func (r *Rolling) Count() int {
	r.lock.RLock()
	defer r.lock.RUnlock()
	return len(r.samples)
}

// Samples returns a copy of the retained samples, oldest first.
func (r *Rolling) Samples() []float64 {
	r.lock.RLock()
	defer r.lock.RUnlock()
	s := make([]float64, len(r.samples))
	copy(s, r.samples)
	return s
}

// Statistics summarizes the retained samples. The standard deviation is the
// sample standard deviation; it is reported as 0 for fewer than two samples.
func (r *Rolling) Statistics() Statistics {
	s := r.Samples()
	if len(s) == 0 {
		return Statistics{}
	}
	mean, _ := stats.Mean(s)
	min, _ := stats.Min(s)
	max, _ := stats.Max(s)
	var stdDev float64
	if len(s) > 1 {
		stdDev, _ = stats.StandardDeviationSample(s)
	}
	return Statistics{
		Count:  len(s),
		Mean:   mean,
		StdDev: stdDev,
		Min:    min,
		Max:    max,
	}
}
