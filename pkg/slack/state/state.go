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

// Package state holds the per window slack state: live substream counters
// and the histograms they fold into once a substream is purged.
package state

import (
	"sync"

	"github.com/slackproj/slackflow/pkg/shared/histogram"
	"github.com/slackproj/slackflow/pkg/window"
)

// WindowState is the slack state of one live window. It is created by the
// registry on first reference to the window's index and owned by it
// exclusively; the event path and the purge loop both reach it through the
// registry, so its counters are lock guarded.
type WindowState struct {
	index     int64
	divisions *window.Divisions

	// slack is the extra delay tolerated past each substream deadline
	// before the substream is purged, in milliseconds. Set once by the
	// slack algorithm when the window is initialized.
	slack int64
	// what the algorithm predicted for this window at init time, kept so
	// that the estimation error can be measured when the window closes
	predictedEventsPerSS  float64
	predictedSamplingRate float64

	ssEvents       []int64
	ssSamplingRate []float64
	ssPurged       []bool
	purgedCount    int64

	eventsPerSS       *histogram.Rolling
	samplingRatePerSS *histogram.Rolling

	lock sync.RWMutex
}

// NewWindowState returns the state of the window at the given index.
func NewWindowState(divisions *window.Divisions, index int64, statsSize int) *WindowState {
	ssSize := divisions.SSSize()
	rates := make([]float64, ssSize)
	for i := range rates {
		rates[i] = 1.0
	}
	return &WindowState{
		index:             index,
		divisions:         divisions,
		ssEvents:          make([]int64, ssSize),
		ssSamplingRate:    rates,
		ssPurged:          make([]bool, ssSize),
		eventsPerSS:       histogram.NewRolling(statsSize),
		samplingRatePerSS: histogram.NewRolling(statsSize),
	}
}

// Index returns the window index this state belongs to.
func (w *WindowState) Index() int64 {
	return w.index
}

// SSSize returns the number of substreams in the window.
func (w *WindowState) SSSize() int64 {
	return w.divisions.SSSize()
}

// Deadline returns the time at which the window is fully closed, slack not
// included.
func (w *WindowState) Deadline() int64 {
	return w.divisions.WindowDeadline(w.index)
}

// SetSlack sets the extra tolerated delay for this window's substreams.
func (w *WindowState) SetSlack(slack int64) {
	w.lock.Lock()
	defer w.lock.Unlock()
	w.slack = slack
}

// Slack returns the extra tolerated delay for this window's substreams.
func (w *WindowState) Slack() int64 {
	w.lock.RLock()
	defer w.lock.RUnlock()
	return w.slack
}

// SetSamplingRate sets the sampling rate of one substream.
func (w *WindowState) SetSamplingRate(ssIndex int64, rate float64) {
	w.lock.Lock()
	defer w.lock.Unlock()
	if ssIndex < 0 || ssIndex >= int64(len(w.ssSamplingRate)) {
		return
	}
	w.ssSamplingRate[ssIndex] = rate
}

// SamplingRate returns the sampling rate of one substream.
func (w *WindowState) SamplingRate(ssIndex int64) float64 {
	w.lock.RLock()
	defer w.lock.RUnlock()
	if ssIndex < 0 || ssIndex >= int64(len(w.ssSamplingRate)) {
		return 0
	}
	return w.ssSamplingRate[ssIndex]
}

// SetPredictions records what the slack algorithm predicted for this window
// when it was initialized.
func (w *WindowState) SetPredictions(eventsPerSS, samplingRate float64) {
	w.lock.Lock()
	defer w.lock.Unlock()
	w.predictedEventsPerSS = eventsPerSS
	w.predictedSamplingRate = samplingRate
}

// PredictedEventsPerSS returns the events-per-substream prediction made at
// window initialization.
func (w *WindowState) PredictedEventsPerSS() float64 {
	w.lock.RLock()
	defer w.lock.RUnlock()
	return w.predictedEventsPerSS
}

// PredictedSamplingRate returns the sampling rate prediction made at window
// initialization.
func (w *WindowState) PredictedSamplingRate() float64 {
	w.lock.RLock()
	defer w.lock.RUnlock()
	return w.predictedSamplingRate
}

// RecordEvent counts an event against its substream. It returns false when
// the event does not belong to this window or its substream has already
// been purged; the caller treats that as a late event, not a fault.
func (w *WindowState) RecordEvent(eventTime int64) bool {
	if w.divisions.IndexOf(eventTime) != w.index {
		return false
	}
	ssIndex := w.divisions.SSIndexOf(eventTime)
	w.lock.Lock()
	defer w.lock.Unlock()
	if w.ssPurged[ssIndex] {
		return false
	}
	w.ssEvents[ssIndex]++
	return true
}

// Events returns the total number of events recorded so far.
func (w *WindowState) Events() int64 {
	w.lock.RLock()
	defer w.lock.RUnlock()
	var total int64
	for _, c := range w.ssEvents {
		total += c
	}
	return total
}

// Purge closes every not yet purged substream whose deadline plus slack has
// elapsed at currTime, folding its event count and sampling rate into the
// window histograms. It returns true if at least one substream was closed.
func (w *WindowState) Purge(currTime int64) bool {
	w.lock.Lock()
	defer w.lock.Unlock()
	purged := false
	for ss := int64(0); ss < int64(len(w.ssPurged)); ss++ {
		if w.ssPurged[ss] {
			continue
		}
		if w.divisions.SSDeadline(w.index, ss)+w.slack > currTime {
			continue
		}
		w.ssPurged[ss] = true
		w.purgedCount++
		w.eventsPerSS.Update(float64(w.ssEvents[ss]))
		w.samplingRatePerSS.Update(w.ssSamplingRate[ss])
		purged = true
	}
	return purged
}

// Closed reports whether every substream of the window has been purged.
func (w *WindowState) Closed() bool {
	w.lock.RLock()
	defer w.lock.RUnlock()
	return w.purgedCount == int64(len(w.ssPurged))
}

// EventsPerSSStats summarizes the event counts of the purged substreams.
func (w *WindowState) EventsPerSSStats() histogram.Statistics {
	return w.eventsPerSS.Statistics()
}

// SamplingRatePerSSStats summarizes the sampling rates of the purged
// substreams.
func (w *WindowState) SamplingRatePerSSStats() histogram.Statistics {
	return w.samplingRatePerSS.Statistics()
}
