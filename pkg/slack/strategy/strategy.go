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

// Package strategy defines the contract a slack algorithm fulfills towards
// the window registry. Concrete strategies live in subpackages and are
// interchangeable; the registry never depends on a specific one.
package strategy

import (
	"github.com/slackproj/slackflow/pkg/shared/histogram"
	"github.com/slackproj/slackflow/pkg/slack/state"
)

// Algorithm initializes the slack parameters of newly created windows and
// keeps running statistics about its own estimation errors.
type Algorithm interface {
	// InitWindow seeds the slack and per-substream sampling rates of a
	// window that was just created by the registry.
	InitWindow(ws *state.WindowState)
	// OnWindowClosed is invoked by the purge loop once every substream of
	// a window has been purged, so the algorithm can measure its
	// predictions against what was observed.
	OnWindowClosed(ws *state.WindowState)
	// SizeEstimationStats summarizes the window size estimation errors.
	SizeEstimationStats() histogram.Statistics
	// SampleRateEstimationStats summarizes the sampling rate estimation
	// errors.
	SampleRateEstimationStats() histogram.Statistics
}
