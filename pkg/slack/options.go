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

import (
	"time"

	"k8s.io/utils/clock"

	"github.com/slackproj/slackflow/pkg/estimator"
	"github.com/slackproj/slackflow/pkg/slack/strategy"
)

const (
	// DefaultHistorySize is the maximum number of windows the registry
	// retains, and the number of successful purges after which the stream
	// is considered warmed up.
	DefaultHistorySize = 1024
	// DefaultMaxNetDelay is the assumed upper bound on network delay. It
	// drives the purge cadence and the initial warm-up grace period.
	DefaultMaxNetDelay = 500 * time.Millisecond
	// DefaultStatsSize is the number of samples every statistics histogram
	// retains.
	DefaultStatsSize = 10000
	// defaultPurgeLookback is how many windows behind the current one each
	// purge cycle revisits.
	defaultPurgeLookback = 15
)

// AlgorithmFactory builds the slack algorithm a Manager will use. The
// estimator is the one owned by the Manager; statsSize bounds the
// algorithm's error histograms.
type AlgorithmFactory func(est *estimator.WindowEstimator, statsSize int) strategy.Algorithm

type options struct {
	historySize   int64
	maxNetDelay   time.Duration
	statsSize     int
	purgeLookback int64
	clk           clock.Clock
	algFactory    AlgorithmFactory
}

func defaultOptions() *options {
	return &options{
		historySize:   DefaultHistorySize,
		maxNetDelay:   DefaultMaxNetDelay,
		statsSize:     DefaultStatsSize,
		purgeLookback: defaultPurgeLookback,
		clk:           clock.RealClock{},
	}
}

// Option customizes a Manager.
type Option func(*options)

// WithHistorySize overrides the window retention horizon.
func WithHistorySize(size int64) Option {
	return func(o *options) {
		o.historySize = size
	}
}

// WithMaxNetDelay overrides the assumed upper bound on network delay.
func WithMaxNetDelay(d time.Duration) Option {
	return func(o *options) {
		o.maxNetDelay = d
	}
}

// WithStatsSize overrides the histogram sample capacity.
func WithStatsSize(size int) Option {
	return func(o *options) {
		o.statsSize = size
	}
}

// WithClock overrides the processing time source, mainly for tests.
func WithClock(c clock.Clock) Option {
	return func(o *options) {
		o.clk = c
	}
}

// WithAlgorithm overrides the slack algorithm strategy.
func WithAlgorithm(f AlgorithmFactory) Option {
	return func(o *options) {
		o.algFactory = f
	}
}
