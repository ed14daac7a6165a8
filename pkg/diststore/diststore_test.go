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

package diststore

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewStore(t *testing.T) {
	_, err := NewStore(NetworkDelay, 0, 100)
	assert.Error(t, err)

	s, err := NewStore(NetworkDelay, 16, 100)
	assert.NoError(t, err)
	assert.Equal(t, NetworkDelay, s.Kind())
	assert.Equal(t, "net-delay", s.Kind().String())
}

func TestAddAndWindowStats(t *testing.T) {
	s, err := NewStore(GenerationDelay, 16, 100)
	assert.NoError(t, err)

	_, ok := s.WindowStats(7)
	assert.False(t, ok)

	s.Add(7, 10)
	s.Add(7, 20)
	s.Add(8, 30)

	st, ok := s.WindowStats(7)
	assert.True(t, ok)
	assert.Equal(t, 2, st.Count)
	assert.InDelta(t, 15.0, st.Mean, 1e-9)

	agg := s.MeanDelayStats()
	assert.Equal(t, 3, agg.Count)
	assert.InDelta(t, 20.0, agg.Mean, 1e-9)
}

func TestPerWindowRetention(t *testing.T) {
	s, err := NewStore(NetworkDelay, 4, 100)
	assert.NoError(t, err)

	for i := int64(0); i < 10; i++ {
		s.Add(i, float64(i))
	}
	assert.Equal(t, 4, s.Windows())

	// old windows were evicted, recent ones remain
	_, ok := s.WindowStats(0)
	assert.False(t, ok)
	_, ok = s.WindowStats(9)
	assert.True(t, ok)

	// the aggregate statistics survive eviction
	assert.Equal(t, 10, s.MeanDelayStats().Count)
}
