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

// Package slack is the adaptive watermark/window-slack controller for an
// out-of-order event stream. The Manager is the window registry: it assigns
// events to fixed length windows, tracks per-window slack state, runs the
// background purge loop and aggregates the statistics that feed the slack
// estimation.
package slack

import (
	"context"
	"math"
	"sync"
	"time"

	"go.uber.org/atomic"
	"go.uber.org/zap"

	"k8s.io/utils/clock"

	"github.com/slackproj/slackflow/pkg/diststore"
	"github.com/slackproj/slackflow/pkg/estimator"
	"github.com/slackproj/slackflow/pkg/shared/histogram"
	"github.com/slackproj/slackflow/pkg/shared/logging"
	"github.com/slackproj/slackflow/pkg/slack/state"
	"github.com/slackproj/slackflow/pkg/slack/strategy"
	"github.com/slackproj/slackflow/pkg/slack/strategy/kslack"
	"github.com/slackproj/slackflow/pkg/window"
)

// Manager is the window registry. It maps window indices to their slack
// state, creates windows lazily on first reference, evicts windows that
// fall outside the retention horizon, and keeps the global watermark
// bookkeeping.
//
// Two execution contexts touch the registry: the event/watermark path of
// the host stream engine and the background purge loop. A single RWMutex
// guards the window map and the emission time heap; the hit path of
// GetWindowSlack is a read-locked map lookup and stays allocation free.
type Manager struct {
	divisions *window.Divisions
	alg       strategy.Algorithm

	netDelayStore   *diststore.Store
	interEventStore *diststore.Store
	estimator       *estimator.WindowEstimator

	lock             sync.RWMutex
	windows          map[int64]*state.WindowState
	watEmissionTimes *emissionTimes

	watDelays            *histogram.Rolling
	lastEmittedWatermark *atomic.Int64
	windowsCreated       *atomic.Int64
	warmedUp             *atomic.Bool
	printingStats        *atomic.Bool

	clk  clock.Clock
	opts *options
	log  *zap.SugaredLogger

	stopPurger context.CancelFunc
	purgerDone chan struct{}
	closeOnce  sync.Once
}

// NewManager validates the window geometry, wires the delay stores, the
// estimator and the slack algorithm, and starts the background purge loop.
// The purge loop stops when ctx is cancelled or Close is called.
func NewManager(ctx context.Context, windowLength, ssLength time.Duration, opts ...Option) (*Manager, error) {
	divisions, err := window.NewDivisions(windowLength, ssLength)
	if err != nil {
		return nil, err
	}

	o := defaultOptions()
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}

	netStore, err := diststore.NewStore(diststore.NetworkDelay, int(o.historySize), o.statsSize)
	if err != nil {
		return nil, err
	}
	genStore, err := diststore.NewStore(diststore.GenerationDelay, int(o.historySize), o.statsSize)
	if err != nil {
		return nil, err
	}

	est := estimator.NewWindowEstimator(divisions, netStore, genStore, o.maxNetDelay.Milliseconds())
	var alg strategy.Algorithm
	if o.algFactory != nil {
		alg = o.algFactory(est, o.statsSize)
	} else {
		alg = kslack.New(est, o.statsSize)
	}

	log := logging.FromContext(ctx).Named("window-slack")
	m := &Manager{
		divisions:            divisions,
		alg:                  alg,
		netDelayStore:        netStore,
		interEventStore:      genStore,
		estimator:            est,
		windows:              make(map[int64]*state.WindowState),
		watEmissionTimes:     newEmissionTimes(),
		watDelays:            histogram.NewRolling(o.statsSize),
		lastEmittedWatermark: atomic.NewInt64(math.MinInt64),
		windowsCreated:       atomic.NewInt64(0),
		warmedUp:             atomic.NewBool(false),
		printingStats:        atomic.NewBool(false),
		clk:                  o.clk,
		opts:                 o,
		log:                  log,
		purgerDone:           make(chan struct{}),
	}

	purgerCtx, cancel := context.WithCancel(ctx)
	m.stopPurger = cancel
	purger := newSSStatsPurger(m, m.clk.Now().UnixMilli())
	go purger.run(purgerCtx)

	return m, nil
}

// GetWindowSlack resolves the window containing eventTime, creating it if
// it does not exist yet. On creation the slack algorithm initializes the
// window and every window that has fallen behind the retention horizon is
// evicted.
func (m *Manager) GetWindowSlack(eventTime int64) *state.WindowState {
	windowIndex := m.divisions.IndexOf(eventTime)

	m.lock.RLock()
	ws, ok := m.windows[windowIndex]
	m.lock.RUnlock()
	if ok {
		return ws
	}

	m.lock.Lock()
	defer m.lock.Unlock()
	if ws, ok = m.windows[windowIndex]; ok {
		return ws
	}

	ws = state.NewWindowState(m.divisions, windowIndex, m.opts.statsSize)
	m.windows[windowIndex] = ws
	m.alg.InitWindow(ws)
	m.windowsCreated.Inc()
	windowsCreatedCount.Inc()
	m.evictStaleLocked(windowIndex)
	return ws
}

// evictStaleLocked drops every window whose index has fallen historySize or
// more behind the newest created index. Eviction is lazy and index driven;
// no wall clock is involved, so retention scales with event arrival rate.
// Caller must hold the write lock.
func (m *Manager) evictStaleLocked(newestIndex int64) {
	horizon := newestIndex - m.opts.historySize
	for idx := range m.windows {
		if idx <= horizon {
			delete(m.windows, idx)
			windowsEvictedCount.Inc()
			m.log.Infow("Removing window slack", "windowIndex", idx)
		}
	}
}

// LookupWindow returns the state of the window at the given index, if it
// was ever created and has not been evicted. A missing window is not an
// error.
func (m *Manager) LookupWindow(windowIndex int64) (*state.WindowState, bool) {
	m.lock.RLock()
	defer m.lock.RUnlock()
	ws, ok := m.windows[windowIndex]
	return ws, ok
}

// WindowDeadline returns the time at which the window is fully closed.
func (m *Manager) WindowDeadline(windowIndex int64) int64 {
	return m.divisions.WindowDeadline(windowIndex)
}

// SSDeadline returns the time at which the given substream of the given
// window closes.
func (m *Manager) SSDeadline(windowIndex, ssIndex int64) int64 {
	return m.divisions.SSDeadline(windowIndex, ssIndex)
}

// Divisions returns the immutable window geometry.
func (m *Manager) Divisions() *window.Divisions {
	return m.divisions
}

// WindowLength returns the temporal length of one window.
func (m *Manager) WindowLength() time.Duration {
	return m.divisions.WindowLength()
}

// SSLength returns the temporal length of one substream.
func (m *Manager) SSLength() time.Duration {
	return m.divisions.SSLength()
}

// SSSize returns the number of substreams per window.
func (m *Manager) SSSize() int64 {
	return m.divisions.SSSize()
}

// IsWarmedUp reports whether the purge loop has seen enough successful
// purges to trust the accumulated statistics.
func (m *Manager) IsWarmedUp() bool {
	return m.warmedUp.Load()
}

// WindowsCreated returns the number of windows ever created.
func (m *Manager) WindowsCreated() int64 {
	return m.windowsCreated.Load()
}

// LiveWindows returns the number of currently resident windows.
func (m *Manager) LiveWindows() int {
	m.lock.RLock()
	defer m.lock.RUnlock()
	return len(m.windows)
}

// NetDelayStore returns the network delay distribution store, to which the
// host records per-event network delay samples.
func (m *Manager) NetDelayStore() *diststore.Store {
	return m.netDelayStore
}

// InterEventStore returns the inter-event generation delay distribution
// store.
func (m *Manager) InterEventStore() *diststore.Store {
	return m.interEventStore
}

// Estimator returns the window size/sampling rate estimator.
func (m *Manager) Estimator() *estimator.WindowEstimator {
	return m.estimator
}

// Algorithm returns the slack algorithm in use.
func (m *Manager) Algorithm() strategy.Algorithm {
	return m.alg
}

// Close stops the background purge loop and waits for it to exit, bounded
// by the purge cadence. It is idempotent.
func (m *Manager) Close() {
	m.closeOnce.Do(func() {
		m.stopPurger()
		select {
		case <-m.purgerDone:
		case <-time.After(2 * m.opts.maxNetDelay):
			m.log.Warn("Timed out waiting for the purge loop to stop")
		}
	})
}
