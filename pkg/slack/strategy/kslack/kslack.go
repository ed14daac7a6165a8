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

// Package kslack implements the k-slack strategy without sampling: every
// substream keeps all of its events, and the tolerated slack k is taken
// from the delay estimator when the window is initialized.
package kslack

import (
	"github.com/slackproj/slackflow/pkg/estimator"
	"github.com/slackproj/slackflow/pkg/shared/histogram"
	"github.com/slackproj/slackflow/pkg/slack/state"
	"github.com/slackproj/slackflow/pkg/slack/strategy"
)

// KSlack is the no-sampling k-slack algorithm.
type KSlack struct {
	estimator *estimator.WindowEstimator
	// estimation errors, fed when windows close
	sizeErrors *histogram.Rolling
	srErrors   *histogram.Rolling
}

var _ strategy.Algorithm = (*KSlack)(nil)

// New returns a KSlack strategy backed by the given estimator, retaining up
// to statsSize error samples per error kind.
func New(est *estimator.WindowEstimator, statsSize int) *KSlack {
	return &KSlack{
		estimator:  est,
		sizeErrors: histogram.NewRolling(statsSize),
		srErrors:   histogram.NewRolling(statsSize),
	}
}

// InitWindow seeds a freshly created window: slack from the estimator, a
// sampling rate of 1.0 everywhere (this strategy never subsamples), and the
// predictions the estimation errors will later be measured against.
func (k *KSlack) InitWindow(ws *state.WindowState) {
	ws.SetSlack(k.estimator.Slack())
	rate := k.estimator.SamplingRate()
	for ss := int64(0); ss < ws.SSSize(); ss++ {
		ws.SetSamplingRate(ss, rate)
	}
	ws.SetPredictions(k.estimator.EventsPerSS(), rate)
}

// OnWindowClosed records the estimation errors of a fully purged window.
func (k *KSlack) OnWindowClosed(ws *state.WindowState) {
	observed := ws.EventsPerSSStats()
	if observed.Count > 0 {
		k.sizeErrors.Update(observed.Mean - ws.PredictedEventsPerSS())
	}
	observedSR := ws.SamplingRatePerSSStats()
	if observedSR.Count > 0 {
		k.srErrors.Update(observedSR.Mean - ws.PredictedSamplingRate())
	}
}

// SizeEstimationStats summarizes the events-per-substream estimation errors.
func (k *KSlack) SizeEstimationStats() histogram.Statistics {
	return k.sizeErrors.Statistics()
}

// SampleRateEstimationStats summarizes the sampling rate estimation errors.
func (k *KSlack) SampleRateEstimationStats() histogram.Statistics {
	return k.srErrors.Statistics()
}
