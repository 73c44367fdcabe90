// Copyright (c) 2025 Nishisan. All rights reserved.
// Use of this source code is governed by the N-Backup License (Non-Commercial Evaluation)
// that can be found in the LICENSE file.

// Package report emits periodic and final statistics about the pipeline,
// independent of how those statistics are produced.
package report

import (
	"log/slog"

	"github.com/robfig/cron/v3"
)

// PipelineSnapshot is whatever the reporter needs to log on each tick.
// internal/pipeline.Pipeline satisfies this with its counter accessors.
type PipelineSnapshot interface {
	ConsoleBlocks() int64
	FileBlocks() int64
	QueueDepths() (console, file int)
}

// StatsReporter logs a PipelineSnapshot on a cron schedule, independent of
// the final shutdown report (internal/registry emits that separately).
type StatsReporter struct {
	cron     *cron.Cron
	logger   *slog.Logger
	snapshot PipelineSnapshot
}

// NewStatsReporter builds a reporter that logs snapshot on every firing of
// schedule (a robfig/cron expression, e.g. "@every 30s"). An invalid
// schedule, including a blank one, returns an error; a caller that treats
// a blank schedule as "disabled" must check for it before calling.
func NewStatsReporter(schedule string, snapshot PipelineSnapshot, logger *slog.Logger) (*StatsReporter, error) {
	c := cron.New(cron.WithLogger(cron.VerbosePrintfLogger(slog.NewLogLogger(logger.Handler(), slog.LevelDebug))))
	r := &StatsReporter{cron: c, logger: logger, snapshot: snapshot}
	if _, err := c.AddFunc(schedule, r.report); err != nil {
		return nil, err
	}
	return r, nil
}

// Start begins the cron scheduler. Non-blocking.
func (r *StatsReporter) Start() {
	r.cron.Start()
}

// Stop drains in-flight firings and waits for them to finish.
func (r *StatsReporter) Stop() {
	<-r.cron.Stop().Done()
}

func (r *StatsReporter) report() {
	consoleQ, fileQ := r.snapshot.QueueDepths()
	r.logger.Info("pipeline stats",
		"console_blocks", r.snapshot.ConsoleBlocks(),
		"file_blocks", r.snapshot.FileBlocks(),
		"console_queue_depth", consoleQ,
		"file_queue_depth", fileQ,
	)
}
