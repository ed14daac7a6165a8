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

package commands

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func Test_Commands(t *testing.T) {

	t.Run("root execute", func(t *testing.T) {
		rootCmd.SetArgs([]string{"help"})
		assert.NotPanics(t, Execute, "help")
	})

	t.Run("test root", func(t *testing.T) {
		b := bytes.NewBufferString("")
		rootCmd.SetOut(b)
		rootCmd.SetArgs([]string{"help"})
		Execute()
		output, _ := io.ReadAll(b)
		assert.Contains(t, string(output), "Available Commands")
	})

	t.Run("simulate flags", func(t *testing.T) {
		cmd := NewSimulateCommand()
		assert.True(t, cmd.HasLocalFlags())
		assert.Equal(t, "simulate", cmd.Use)
		assert.Equal(t, "duration", cmd.Flag("window-length").Value.Type())
		assert.Equal(t, "duration", cmd.Flag("ss-length").Value.Type())
		assert.Equal(t, "int64", cmd.Flag("history-size").Value.Type())
		assert.Equal(t, "string", cmd.Flag("settings").Value.Type())
	})

	t.Run("version", func(t *testing.T) {
		cmd := NewVersionCommand()
		assert.Equal(t, "version", cmd.Use)
	})
}

func Test_LoadSettings(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")
	err := os.WriteFile(path, []byte(`
windowLength: 2s
ssLength: 200ms
historySize: 64
eventsPerSecond: 500
`), 0600)
	assert.NoError(t, err)

	s, err := loadSettings(path)
	assert.NoError(t, err)
	assert.Equal(t, 2*time.Second, s.WindowLength)
	assert.Equal(t, 200*time.Millisecond, s.SSLength)
	assert.Equal(t, int64(64), s.HistorySize)
	assert.Equal(t, 500, s.EventsPerSecond)
	// unspecified settings keep their defaults
	assert.Equal(t, 30*time.Second, s.Duration)

	_, err = loadSettings(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
