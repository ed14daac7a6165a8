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
	"context"
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/slackproj/slackflow/pkg/shared/logging"
	"github.com/slackproj/slackflow/pkg/slack"
)

// simulationSettings drives the synthetic event source. It can be loaded
// from a YAML document, flags override nothing once a settings file is
// given.
type simulationSettings struct {
	WindowLength    time.Duration `mapstructure:"windowLength"`
	SSLength        time.Duration `mapstructure:"ssLength"`
	HistorySize     int64         `mapstructure:"historySize"`
	MaxNetDelay     time.Duration `mapstructure:"maxNetDelay"`
	StatsSize       int           `mapstructure:"statsSize"`
	Duration        time.Duration `mapstructure:"duration"`
	EventsPerSecond int           `mapstructure:"eventsPerSecond"`
	MeanNetDelayMs  float64       `mapstructure:"meanNetDelayMs"`
	MeanGenDelayMs  float64       `mapstructure:"meanGenDelayMs"`
	StatsInterval   time.Duration `mapstructure:"statsInterval"`
	Seed            int64         `mapstructure:"seed"`
}

func defaultSettings() *simulationSettings {
	return &simulationSettings{
		WindowLength:    time.Second,
		SSLength:        100 * time.Millisecond,
		HistorySize:     slack.DefaultHistorySize,
		MaxNetDelay:     slack.DefaultMaxNetDelay,
		StatsSize:       slack.DefaultStatsSize,
		Duration:        30 * time.Second,
		EventsPerSecond: 1000,
		MeanNetDelayMs:  50,
		MeanGenDelayMs:  1,
		StatsInterval:   10 * time.Second,
		Seed:            42,
	}
}

// loadSettings parses a YAML settings file into simulationSettings.
func loadSettings(path string) (*simulationSettings, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read settings file %q: %w", path, err)
	}
	settings := defaultSettings()
	if err := v.Unmarshal(settings); err != nil {
		return nil, fmt.Errorf("unable to decode settings, %w", err)
	}
	return settings, nil
}

// NewSimulateCommand returns a command running a synthetic out-of-order
// event stream against the window slack manager and printing stats
// snapshots.
func NewSimulateCommand() *cobra.Command {
	var settingsFile string
	settings := defaultSettings()

	command := &cobra.Command{
		Use:   "simulate",
		Short: "Run a synthetic event stream against the window slack manager",
		RunE: func(cmd *cobra.Command, args []string) error {
			if settingsFile != "" {
				s, err := loadSettings(settingsFile)
				if err != nil {
					return err
				}
				settings = s
			}
			log := logging.NewLogger().Named("simulator")
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runSimulation(logging.WithLogger(ctx, log), settings)
		},
	}
	command.Flags().StringVar(&settingsFile, "settings", "", "Path to a YAML settings file")
	command.Flags().DurationVar(&settings.WindowLength, "window-length", settings.WindowLength, "Logical window length")
	command.Flags().DurationVar(&settings.SSLength, "ss-length", settings.SSLength, "Substream length, must evenly divide the window length")
	command.Flags().Int64Var(&settings.HistorySize, "history-size", settings.HistorySize, "Maximum number of windows retained")
	command.Flags().DurationVar(&settings.MaxNetDelay, "max-net-delay", settings.MaxNetDelay, "Assumed upper bound on network delay")
	command.Flags().DurationVar(&settings.Duration, "duration", settings.Duration, "How long to run the simulation")
	command.Flags().IntVar(&settings.EventsPerSecond, "rate", settings.EventsPerSecond, "Synthetic event rate")
	command.Flags().Float64Var(&settings.MeanNetDelayMs, "mean-net-delay-ms", settings.MeanNetDelayMs, "Mean synthetic network delay in milliseconds")
	command.Flags().Float64Var(&settings.MeanGenDelayMs, "mean-gen-delay-ms", settings.MeanGenDelayMs, "Mean synthetic inter-event generation delay in milliseconds")
	command.Flags().DurationVar(&settings.StatsInterval, "stats-interval", settings.StatsInterval, "How often to print a stats snapshot")
	command.Flags().Int64Var(&settings.Seed, "seed", settings.Seed, "Random seed for the synthetic delays")
	return command
}

func runSimulation(ctx context.Context, settings *simulationSettings) error {
	if settings.EventsPerSecond <= 0 {
		return fmt.Errorf("invalid event rate %d, must be positive", settings.EventsPerSecond)
	}
	if settings.StatsInterval <= 0 {
		return fmt.Errorf("invalid stats interval %v, must be positive", settings.StatsInterval)
	}
	log := logging.FromContext(ctx)
	mgr, err := slack.NewManager(ctx, settings.WindowLength, settings.SSLength,
		slack.WithHistorySize(settings.HistorySize),
		slack.WithMaxNetDelay(settings.MaxNetDelay),
		slack.WithStatsSize(settings.StatsSize))
	if err != nil {
		return fmt.Errorf("failed to create the window slack manager: %w", err)
	}
	defer mgr.Close()

	rng := rand.New(rand.NewSource(settings.Seed))
	divisions := mgr.Divisions()

	eventTicker := time.NewTicker(time.Second / time.Duration(settings.EventsPerSecond))
	defer eventTicker.Stop()
	statsTicker := time.NewTicker(settings.StatsInterval)
	defer statsTicker.Stop()
	deadline := time.NewTimer(settings.Duration)
	defer deadline.Stop()

	eventTime := time.Now().UnixMilli()
	lastWatermarkIndex := divisions.IndexOf(eventTime)
	var produced, late int64

	log.Infow("Starting the stream simulation",
		"windowLength", settings.WindowLength, "ssLength", settings.SSLength,
		"rate", settings.EventsPerSecond, "duration", settings.Duration)

	for {
		select {
		case <-ctx.Done():
			log.Infow("Simulation interrupted", "produced", produced, "late", late)
			printSnapshot(mgr)
			return nil
		case <-deadline.C:
			log.Infow("Simulation finished", "produced", produced, "late", late)
			printSnapshot(mgr)
			return nil
		case <-statsTicker.C:
			printSnapshot(mgr)
		case <-eventTicker.C:
			// generation delay advances event time, network delay defers
			// arrival; both are exponentially distributed around their
			// means so the stream arrives out of order.
			genDelay := rng.ExpFloat64() * settings.MeanGenDelayMs
			netDelay := rng.ExpFloat64() * settings.MeanNetDelayMs
			eventTime += int64(genDelay)

			ws := mgr.GetWindowSlack(eventTime)
			if !ws.RecordEvent(eventTime) {
				late++
			}
			produced++
			mgr.NetDelayStore().Add(ws.Index(), netDelay)
			mgr.InterEventStore().Add(ws.Index(), genDelay)

			// once the stream has moved past a window, emit a watermark at
			// that window's deadline deferred by its slack
			if idx := divisions.IndexOf(eventTime); idx > lastWatermarkIndex {
				watermark := divisions.WindowDeadline(lastWatermarkIndex) + ws.Slack()
				if watermark > mgr.LastEmittedWatermark() {
					mgr.RecordWatermark(watermark)
					mgr.SetLastEmittedWatermark(watermark)
				}
				lastWatermarkIndex = idx
			}
		}
	}
}

func printSnapshot(mgr *slack.Manager) {
	if report, ok := mgr.Snapshot(); ok {
		fmt.Println(report.String())
	}
}
