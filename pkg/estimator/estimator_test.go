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

package estimator

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/slackproj/slackflow/pkg/diststore"
	"github.com/slackproj/slackflow/pkg/window"
)

func newTestEstimator(t *testing.T) (*WindowEstimator, *diststore.Store, *diststore.Store) {
	t.Helper()
	d, err := window.NewDivisions(time.Second, 100*time.Millisecond)
	assert.NoError(t, err)
	net, err := diststore.NewStore(diststore.NetworkDelay, 16, 100)
	assert.NoError(t, err)
	gen, err := diststore.NewStore(diststore.GenerationDelay, 16, 100)
	assert.NoError(t, err)
	return NewWindowEstimator(d, net, gen, 500), net, gen
}

func TestSlackWithoutSamples(t *testing.T) {
	e, _, _ := newTestEstimator(t)
	// no samples, assume the worst case
	assert.Equal(t, int64(500), e.Slack())
}

func TestSlackFromSamples(t *testing.T) {
	e, net, _ := newTestEstimator(t)
	for i := 0; i < 50; i++ {
		net.Add(0, 40)
	}
	// constant delay, no variance, slack converges on the mean
	s := e.Slack()
	assert.GreaterOrEqual(t, s, int64(0))
	assert.LessOrEqual(t, s, int64(500))
	for i := 0; i < 200; i++ {
		s = e.Slack()
	}
	assert.InDelta(t, 40, float64(s), 1.0)
}

func TestSlackClamped(t *testing.T) {
	e, net, _ := newTestEstimator(t)
	net.Add(0, 100000)
	assert.Equal(t, int64(500), e.Slack())
}

func TestEventsPerSS(t *testing.T) {
	e, _, gen := newTestEstimator(t)
	assert.Zero(t, e.EventsPerSS())

	// one event every 10ms on a 100ms substream
	for i := 0; i < 50; i++ {
		gen.Add(0, 10)
	}
	var got float64
	for i := 0; i < 200; i++ {
		got = e.EventsPerSS()
	}
	assert.InDelta(t, 10.0, got, 0.5)
}

func TestSamplingRate(t *testing.T) {
	e, _, _ := newTestEstimator(t)
	assert.Equal(t, 1.0, e.SamplingRate())
}

func TestEWMA(t *testing.T) {
	e := newEWMA()
	e.add(10)
	assert.Equal(t, 10.0, e.get())
	e.add(10)
	assert.Equal(t, 10.0, e.get())
	e.add(20)
	assert.Greater(t, e.get(), 10.0)
	assert.Less(t, e.get(), 20.0)
}
