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

// Package diststore accumulates delay samples for a stream. Two stores are
// maintained per stream, one for the network delay and one for the
// inter-event generation delay; their summary statistics drive the slack
// estimation.
package diststore

import (
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/slackproj/slackflow/pkg/shared/histogram"
)

// Kind discriminates the two delay distributions tracked per stream.
type Kind int

const (
	// NetworkDelay is the delay between event generation and arrival.
	NetworkDelay Kind = iota
	// GenerationDelay is the inter-event generation delay at the source.
	GenerationDelay
)

func (k Kind) String() string {
	switch k {
	case NetworkDelay:
		return "net-delay"
	case GenerationDelay:
		return "gen-delay"
	default:
		return "unknown"
	}
}

// Store accumulates delay samples keyed by window index. Window indices grow
// without bound as time advances, so the per-window histograms live in an
// LRU capped at the retention size; an aggregate rolling histogram serves
// the summary statistics regardless of which windows are still resident.
type Store struct {
	kind      Kind
	perWindow *lru.Cache[int64, *histogram.Rolling]
	aggregate *histogram.Rolling
	statsSize int
}

// NewStore returns a Store of the given kind retaining per-window samples
// for up to retention windows and up to statsSize samples per histogram.
func NewStore(kind Kind, retention, statsSize int) (*Store, error) {
	if retention <= 0 {
		return nil, fmt.Errorf("invalid retention %d, must be positive", retention)
	}
	perWindow, err := lru.New[int64, *histogram.Rolling](retention)
	if err != nil {
		return nil, fmt.Errorf("failed to create per-window cache: %w", err)
	}
	return &Store{
		kind:      kind,
		perWindow: perWindow,
		aggregate: histogram.NewRolling(statsSize),
		statsSize: statsSize,
	}, nil
}

// Kind returns the delay kind this store accumulates.
func (s *Store) Kind() Kind {
	return s.kind
}

// Add records a delay sample observed for the given window.
func (s *Store) Add(windowIndex int64, delay float64) {
	h, ok := s.perWindow.Get(windowIndex)
	if !ok {
		h = histogram.NewRolling(s.statsSize)
		if prev, found, _ := s.perWindow.PeekOrAdd(windowIndex, h); found {
			h = prev
		}
	}
	h.Update(delay)
	s.aggregate.Update(delay)
}

// WindowStats returns the delay statistics of a single window, if its
// samples are still resident.
func (s *Store) WindowStats(windowIndex int64) (histogram.Statistics, bool) {
	h, ok := s.perWindow.Get(windowIndex)
	if !ok {
		return histogram.Statistics{}, false
	}
	return h.Statistics(), true
}

// MeanDelayStats returns the summary statistics over all retained samples.
func (s *Store) MeanDelayStats() histogram.Statistics {
	return s.aggregate.Statistics()
}

// Windows returns the number of windows with resident samples.
func (s *Store) Windows() int {
	return s.perWindow.Len()
}
