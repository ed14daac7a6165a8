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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/goleak"
	clocktesting "k8s.io/utils/clock/testing"
)

// newIdleManager returns a manager whose background purger never fires: the
// fake clock is never advanced, so purge cycles can be driven by hand.
func newIdleManager(t *testing.T, opts ...Option) *Manager {
	t.Helper()
	fake := clocktesting.NewFakeClock(time.UnixMilli(0))
	return newTestManager(t, append(opts, WithClock(fake))...)
}

func TestPurgeCycleWarmUp(t *testing.T) {
	m := newIdleManager(t, WithHistorySize(2))
	p := newSSStatsPurger(m, 0)

	m.GetWindowSlack(500)
	m.GetWindowSlack(1500)

	assert.False(t, m.IsWarmedUp())
	assert.Equal(t, int64(2), p.ssUntilPurges)

	// both windows are fully past deadline+slack at t=2500
	p.currTime = m.WindowDeadline(1) + DefaultMaxNetDelay.Milliseconds()
	p.purgeCycle()
	assert.True(t, m.IsWarmedUp())
	assert.Zero(t, p.ssUntilPurges)

	// warmed up stays warmed up
	p.purgeCycle()
	assert.True(t, m.IsWarmedUp())
}

func TestPurgeCycleFewerSuccessesStayCold(t *testing.T) {
	m := newIdleManager(t, WithHistorySize(3))
	p := newSSStatsPurger(m, 0)

	m.GetWindowSlack(500)
	m.GetWindowSlack(1500)

	p.currTime = m.WindowDeadline(1) + DefaultMaxNetDelay.Milliseconds()
	p.purgeCycle()
	// only two successful purges, three are needed
	assert.False(t, m.IsWarmedUp())
	assert.Equal(t, int64(1), p.ssUntilPurges)

	m.GetWindowSlack(2500)
	p.currTime = m.WindowDeadline(2) + DefaultMaxNetDelay.Milliseconds()
	p.purgeCycle()
	assert.True(t, m.IsWarmedUp())
}

func TestPurgeCycleDistinctIndexes(t *testing.T) {
	m := newIdleManager(t)
	p := newSSStatsPurger(m, 0)

	// several distinct windows in the lookback range must all be purged
	// in one cycle
	w0 := m.GetWindowSlack(500)
	w1 := m.GetWindowSlack(1500)
	w2 := m.GetWindowSlack(2500)

	p.currTime = m.WindowDeadline(2) + DefaultMaxNetDelay.Milliseconds()
	p.purgeCycle()
	assert.True(t, w0.Closed())
	assert.True(t, w1.Closed())
	assert.True(t, w2.Closed())
}

func TestPurgeCycleClosedWindowFeedsAlgorithm(t *testing.T) {
	m := newIdleManager(t)
	p := newSSStatsPurger(m, 0)

	ws := m.GetWindowSlack(0)
	for i := int64(0); i < 1000; i += 100 {
		ws.RecordEvent(i)
	}
	p.currTime = m.WindowDeadline(0) + DefaultMaxNetDelay.Milliseconds()
	p.purgeCycle()

	assert.True(t, ws.Closed())
	assert.Equal(t, 1, m.Algorithm().SizeEstimationStats().Count)
}

func TestPurgerBackgroundWarmUp(t *testing.T) {
	defer goleak.VerifyNone(t)

	ctx := context.Background()
	m, err := NewManager(ctx, 100*time.Millisecond, 10*time.Millisecond,
		WithHistorySize(2), WithMaxNetDelay(2*time.Millisecond))
	assert.NoError(t, err)
	defer m.Close()

	now := time.Now().UnixMilli()
	m.GetWindowSlack(now - 1000)
	m.GetWindowSlack(now - 1200)

	assert.Eventually(t, m.IsWarmedUp, 2*time.Second, 5*time.Millisecond)
}

func TestPurgerStopsOnContextCancel(t *testing.T) {
	defer goleak.VerifyNone(t)

	ctx, cancel := context.WithCancel(context.Background())
	m, err := NewManager(ctx, time.Second, 100*time.Millisecond)
	assert.NoError(t, err)

	cancel()
	select {
	case <-m.purgerDone:
	case <-time.After(time.Second):
		t.Fatal("purge loop did not stop on context cancellation")
	}
	m.Close()
}
