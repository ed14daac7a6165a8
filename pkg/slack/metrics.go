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
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// windowsCreatedCount is used to indicate the number of windows created
var windowsCreatedCount = promauto.NewCounter(prometheus.CounterOpts{
	Subsystem: "window_slack",
	Name:      "windows_created_total",
	Help:      "Total number of windows created",
})

// windowsEvictedCount is used to indicate the number of windows evicted from the registry
var windowsEvictedCount = promauto.NewCounter(prometheus.CounterOpts{
	Subsystem: "window_slack",
	Name:      "windows_evicted_total",
	Help:      "Total number of windows evicted",
})

// purgeCyclesCount is used to indicate the number of purge cycles executed
var purgeCyclesCount = promauto.NewCounter(prometheus.CounterOpts{
	Subsystem: "window_slack",
	Name:      "purge_cycles_total",
	Help:      "Total number of purge cycles",
})

// purgedWindowsCount is used to indicate the number of successful window purges
var purgedWindowsCount = promauto.NewCounter(prometheus.CounterOpts{
	Subsystem: "window_slack",
	Name:      "purged_windows_total",
	Help:      "Total number of purge calls that closed at least one substream",
})

// watermarksRecordedCount is used to indicate the number of watermarks recorded
var watermarksRecordedCount = promauto.NewCounter(prometheus.CounterOpts{
	Subsystem: "window_slack",
	Name:      "watermarks_recorded_total",
	Help:      "Total number of watermark emissions recorded",
})
