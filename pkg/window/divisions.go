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

// Package window defines the logical division of event time into fixed
// length windows and finer grained substreams, and the deadline arithmetic
// on top of them. Windows are identified by an integer index obtained by
// floor dividing the event time by the window length, so every timestamp,
// including a negative one, maps to exactly one window. All timestamps are
// Unix milliseconds.
package window

import (
	"fmt"
	"time"
)

// Divisions carries the immutable window/substream geometry of a stream.
// It is shared by the registry, the slack algorithms and the per window
// state so that none of them re-derive the arithmetic.
type Divisions struct {
	windowLength time.Duration
	ssLength     time.Duration
	ssSize       int64
}

// NewDivisions validates and returns the window geometry. The substream
// length must be positive and evenly divide the window length; anything
// else would silently corrupt deadline arithmetic later, so it is rejected
// here.
func NewDivisions(windowLength, ssLength time.Duration) (*Divisions, error) {
	if windowLength <= 0 {
		return nil, fmt.Errorf("invalid window length %v, must be positive", windowLength)
	}
	if ssLength <= 0 {
		return nil, fmt.Errorf("invalid substream length %v, must be positive", ssLength)
	}
	if windowLength%ssLength != 0 {
		return nil, fmt.Errorf("substream length %v does not evenly divide window length %v", ssLength, windowLength)
	}
	return &Divisions{
		windowLength: windowLength,
		ssLength:     ssLength,
		ssSize:       int64(windowLength / ssLength),
	}, nil
}

// WindowLength returns the temporal length of one window.
func (d *Divisions) WindowLength() time.Duration {
	return d.windowLength
}

// SSLength returns the temporal length of one substream.
func (d *Divisions) SSLength() time.Duration {
	return d.ssLength
}

// SSSize returns the number of substreams per window.
func (d *Divisions) SSSize() int64 {
	return d.ssSize
}

// IndexOf returns the index of the window containing eventTime.
func (d *Divisions) IndexOf(eventTime int64) int64 {
	return floorDiv(eventTime, d.windowLength.Milliseconds())
}

// SSIndexOf returns the index, within its window, of the substream
// containing eventTime. The result is always in [0, SSSize).
func (d *Divisions) SSIndexOf(eventTime int64) int64 {
	offset := eventTime - d.IndexOf(eventTime)*d.windowLength.Milliseconds()
	return offset / d.ssLength.Milliseconds()
}

// WindowDeadline returns the time at which the window is fully closed.
func (d *Divisions) WindowDeadline(windowIndex int64) int64 {
	return (windowIndex + 1) * d.windowLength.Milliseconds()
}

// SSDeadline returns the time at which the given substream of the given
// window closes.
func (d *Divisions) SSDeadline(windowIndex, ssIndex int64) int64 {
	return windowIndex*d.windowLength.Milliseconds() + (ssIndex+1)*d.ssLength.Milliseconds()
}

// floorDiv is the mathematical floor of a/b, unlike Go's native division
// which truncates towards zero.
func floorDiv(a, b int64) int64 {
	q := a / b
	if a%b != 0 && (a < 0) != (b < 0) {
		q--
	}
	return q
}
