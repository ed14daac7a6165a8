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

// Package estimator turns the two delay distributions of a stream into
// window size and sampling rate estimates for the slack algorithms.
package estimator

import (
	"sync"

	"github.com/slackproj/slackflow/pkg/diststore"
	"github.com/slackproj/slackflow/pkg/window"
)

// netDelayStdDevs is how many standard deviations of network delay the
// slack estimate tolerates on top of the mean.
const netDelayStdDevs = 2.0

// WindowEstimator estimates, from the observed delay distributions, how
// many events a substream will carry, how much slack a window needs to
// absorb out of order arrival, and the sampling rate to apply.
type WindowEstimator struct {
	divisions   *window.Divisions
	netDelays   *diststore.Store
	genDelays   *diststore.Store
	maxNetDelay int64

	// the raw per-query estimates are noisy, smooth them
	slackEWMA  *ewma
	eventsEWMA *ewma
	lock       sync.Mutex
}

// NewWindowEstimator returns a WindowEstimator over the given stores.
// maxNetDelayMillis caps the slack estimate.
func NewWindowEstimator(divisions *window.Divisions, netDelays, genDelays *diststore.Store, maxNetDelayMillis int64) *WindowEstimator {
	return &WindowEstimator{
		divisions:   divisions,
		netDelays:   netDelays,
		genDelays:   genDelays,
		maxNetDelay: maxNetDelayMillis,
		slackEWMA:   newEWMA(),
		eventsEWMA:  newEWMA(),
	}
}

// EventsPerSS estimates the number of events a single substream will carry,
// derived from the mean inter-event generation delay. Returns 0 until the
// generation delay store has samples.
func (e *WindowEstimator) EventsPerSS() float64 {
	gen := e.genDelays.MeanDelayStats()
	if gen.Count == 0 || gen.Mean <= 0 {
		return 0
	}
	raw := float64(e.divisions.SSLength().Milliseconds()) / gen.Mean
	e.lock.Lock()
	defer e.lock.Unlock()
	e.eventsEWMA.add(raw)
	return e.eventsEWMA.get()
}

// Slack estimates the extra delay a window should tolerate before being
// declared closed: the mean network delay plus two standard deviations,
// clamped to [0, maxNetDelay]. With no samples yet the full maxNetDelay is
// assumed, which errs on the side of waiting.
func (e *WindowEstimator) Slack() int64 {
	net := e.netDelays.MeanDelayStats()
	if net.Count == 0 {
		return e.maxNetDelay
	}
	raw := net.Mean + netDelayStdDevs*net.StdDev
	e.lock.Lock()
	e.slackEWMA.add(raw)
	smoothed := e.slackEWMA.get()
	e.lock.Unlock()
	slack := int64(smoothed)
	if slack < 0 {
		slack = 0
	}
	if slack > e.maxNetDelay {
		slack = e.maxNetDelay
	}
	return slack
}

// SamplingRate estimates the sampling rate to apply to new substreams.
// The no-sampling strategies keep every event, so the estimate is 1.0.
func (e *WindowEstimator) SamplingRate() float64 {
	return 1.0
}
