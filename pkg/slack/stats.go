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
	"fmt"
	"sort"
	"strings"

	"github.com/slackproj/slackflow/pkg/shared/histogram"
)

// WindowReport is the per-window portion of a stats snapshot.
type WindowReport struct {
	Index             int64
	EventsPerSS       histogram.Statistics
	SamplingRatePerSS histogram.Statistics
}

// Report is a point-in-time snapshot of the registry's statistics. The
// rendered form is a diagnostic output, not a stable machine readable
// format.
type Report struct {
	WindowsCreated int64
	Windows        []WindowReport

	SizeEstimationError       histogram.Statistics
	SampleRateEstimationError histogram.Statistics
	WatermarkFrequency        histogram.Statistics
	WatermarkDelays           histogram.Statistics

	NetworkDelay    histogram.Statistics
	GenerationDelay histogram.Statistics
}

// Snapshot produces a stats report. It is guarded by a single-flight flag:
// a request arriving while another snapshot is being produced is rejected
// with ok=false, never queued; the caller may retry.
//
// Producing the report drains the watermark emission time heap to compute
// the inter-emission frequency distribution. The drain is deliberate and
// observable: a second snapshot taken immediately after will report an
// empty frequency distribution.
func (m *Manager) Snapshot() (*Report, bool) {
	if !m.printingStats.CompareAndSwap(false, true) {
		return nil, false
	}
	defer m.printingStats.Store(false)

	m.lock.Lock()
	windows := make([]WindowReport, 0, len(m.windows))
	for _, ws := range m.windows {
		windows = append(windows, WindowReport{
			Index:             ws.Index(),
			EventsPerSS:       ws.EventsPerSSStats(),
			SamplingRatePerSS: ws.SamplingRatePerSSStats(),
		})
	}
	freq := histogram.NewRolling(m.opts.statsSize)
	if m.watEmissionTimes.len() > 0 {
		timestamp := m.watEmissionTimes.pop()
		for m.watEmissionTimes.len() > 0 {
			freq.Update(float64(m.watEmissionTimes.peek() - timestamp))
			timestamp = m.watEmissionTimes.pop()
		}
	}
	m.lock.Unlock()

	sort.Slice(windows, func(i, j int) bool {
		return windows[i].Index < windows[j].Index
	})

	return &Report{
		WindowsCreated:            m.windowsCreated.Load(),
		Windows:                   windows,
		SizeEstimationError:       m.alg.SizeEstimationStats(),
		SampleRateEstimationError: m.alg.SampleRateEstimationStats(),
		WatermarkFrequency:        freq.Statistics(),
		WatermarkDelays:           m.watDelays.Statistics(),
		NetworkDelay:              m.netDelayStore.MeanDelayStats(),
		GenerationDelay:           m.interEventStore.MeanDelayStats(),
	}, true
}

// String renders the report as two newline delimited blocks: the per-window
// table first, then the algorithm and delay summary.
func (r *Report) String() string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "Number of Windows observed:\t%d\n", r.WindowsCreated)
	sb.WriteString("===\n")
	for _, w := range r.Windows {
		fmt.Fprintf(&sb, "Window:\t%d\n", w.Index)
		fmt.Fprintf(&sb, "Number of Events per SS:\t%d\t%v\t%v\n",
			w.EventsPerSS.Count, w.EventsPerSS.Mean, w.EventsPerSS.StdDev)
		fmt.Fprintf(&sb, "Sampling Rate per SS:\t%d\t%v\t%v\n",
			w.SamplingRatePerSS.Count, w.SamplingRatePerSS.Mean, w.SamplingRatePerSS.StdDev)
		sb.WriteString("===\n")
	}
	sb.WriteString("\n")

	sb.WriteString("Algorithm Stats:\n")
	fmt.Fprintf(&sb, "Size Error Estimation:\t%d\t%v\t%v\n",
		r.SizeEstimationError.Count, r.SizeEstimationError.Mean, r.SizeEstimationError.StdDev)
	fmt.Fprintf(&sb, "Sampling-Rate Error Estimation:\t%d\t%v\t%v\n",
		r.SampleRateEstimationError.Count, r.SampleRateEstimationError.Mean, r.SampleRateEstimationError.StdDev)
	fmt.Fprintf(&sb, "Watermark Frequency:\t%d\t%v\t%v\n",
		r.WatermarkFrequency.Count, r.WatermarkFrequency.Mean, r.WatermarkFrequency.StdDev)
	fmt.Fprintf(&sb, "Watermark Delays:\t%d\t%v\t%v\n",
		r.WatermarkDelays.Count, r.WatermarkDelays.Mean, r.WatermarkDelays.StdDev)
	sb.WriteString("===\n")
	sb.WriteString("Delays:\n")
	fmt.Fprintf(&sb, "Net Delay:\t%d\t%v\t%v\n",
		r.NetworkDelay.Count, r.NetworkDelay.Mean, r.NetworkDelay.StdDev)
	fmt.Fprintf(&sb, "Inter-Event Generation Delay:\t%d\t%v\t%v\n",
		r.GenerationDelay.Count, r.GenerationDelay.Mean, r.GenerationDelay.StdDev)
	sb.WriteString("===\n")

	return sb.String()
}
