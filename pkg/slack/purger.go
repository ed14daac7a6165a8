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
	"context"
	"time"
)

// ssStatsPurger is the background purge loop. It periodically revisits the
// most recent windows and purges the substreams whose deadline and slack
// have elapsed. After historySize successful purges the stream is declared
// warmed up, exactly once.
//
// The loop's notion of current time is seeded from the clock at start and
// self advanced by the purge cadence afterwards; it drifts from wall clock
// by accumulated scheduling jitter, which is acceptable because the cadence
// only needs to be approximately periodic.
type ssStatsPurger struct {
	mgr           *Manager
	currTime      int64
	ssUntilPurges int64
}

func newSSStatsPurger(mgr *Manager, currTime int64) *ssStatsPurger {
	return &ssStatsPurger{
		mgr:           mgr,
		currTime:      currTime,
		ssUntilPurges: mgr.opts.historySize,
	}
}

// run executes the purge loop until ctx is cancelled. The initial grace
// period lets the earliest windows accumulate samples before being judged.
func (p *ssStatsPurger) run(ctx context.Context) {
	defer close(p.mgr.purgerDone)
	log := p.mgr.log.Named("purger")
	log.Infow("Starting the substream stats purger")

	cadence := p.mgr.opts.maxNetDelay
	if !p.sleep(ctx, 10*cadence) {
		log.Infow("Stopped the substream stats purger before the first cycle")
		return
	}

	for {
		p.purgeCycle()
		if !p.sleep(ctx, cadence) {
			log.Infow("Stopped the substream stats purger")
			return
		}
		p.currTime += cadence.Milliseconds()
	}
}

// purgeCycle purges every resident window in the lookback range behind the
// current window index, inclusive.
func (p *ssStatsPurger) purgeCycle() {
	windowIndex := p.mgr.divisions.IndexOf(p.currTime)
	for currIndex := windowIndex - p.mgr.opts.purgeLookback; currIndex <= windowIndex; currIndex++ {
		ws, ok := p.mgr.LookupWindow(currIndex)
		if !ok {
			continue
		}
		if !ws.Purge(p.currTime) {
			continue
		}
		purgedWindowsCount.Inc()
		if ws.Closed() {
			p.mgr.alg.OnWindowClosed(ws)
		}
		if !p.mgr.warmedUp.Load() {
			p.ssUntilPurges--
			if p.ssUntilPurges <= 0 {
				p.mgr.warmedUp.Store(true)
				p.mgr.log.Infow("It is finally warmed up", "currTime", p.currTime)
			}
		}
	}
	purgeCyclesCount.Inc()
}

// sleep waits for the given duration on the manager's clock, returning
// false when ctx is cancelled first.
func (p *ssStatsPurger) sleep(ctx context.Context, d time.Duration) bool {
	timer := p.mgr.clk.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C():
		return true
	}
}
