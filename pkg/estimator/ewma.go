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

package estimator

const (
	defaultAge = 30.0
	// decayFactor is the smoothing factor derived from the default age
	decayFactor = 2.0 / (defaultAge + 1.0)
)

// ewma is an exponentially weighted moving average over the raw estimates.
// Not safe for concurrent use, the WindowEstimator serializes access.
type ewma struct {
	alpha float64
	value float64
	init  bool
}

func newEWMA() *ewma {
	return &ewma{alpha: decayFactor}
}

func (e *ewma) add(value float64) {
	if !e.init {
		e.value = value
		e.init = true
		return
	}
	e.value = e.value + e.alpha*(value-e.value)
}

func (e *ewma) get() float64 {
	return e.value
}
