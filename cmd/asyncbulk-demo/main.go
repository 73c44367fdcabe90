// Copyright (c) 2025 Nishisan. All rights reserved.
// Use of this source code is governed by the N-Backup License (Non-Commercial Evaluation)
// that can be found in the LICENSE file.

// Command asyncbulk-demo wires a Registry to a YAML config and feeds it a
// synthetic multi-client workload, standing in for an external network
// front-end.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	"golang.org/x/time/rate"

	"github.com/nishisan-dev/asyncbulk/internal/archive"
	"github.com/nishisan-dev/asyncbulk/internal/config"
	"github.com/nishisan-dev/asyncbulk/internal/logging"
	"github.com/nishisan-dev/asyncbulk/internal/mirror"
	"github.com/nishisan-dev/asyncbulk/internal/pipeline"
	"github.com/nishisan-dev/asyncbulk/internal/registry"
	"github.com/nishisan-dev/asyncbulk/internal/report"
)

func main() {
	configPath := flag.String("config", "asyncbulk.yaml", "path to the asyncbulk config file")
	clients := flag.Int("clients", 3, "number of synthetic concurrent client sessions")
	rps := flag.Float64("rate", 20, "synthetic commands per second, shared across all clients")
	duration := flag.Duration("duration", 10*time.Second, "how long to run the synthetic feeder before requesting shutdown")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	logger, logCloser := logging.NewLogger(cfg.Logging.Level, cfg.Logging.Format, "")
	defer logCloser.Close()

	var consoleOut io.Writer = os.Stdout
	if !cfg.Output.Console {
		consoleOut = io.Discard
	}
	var onFileWritten func(path, filename string)

	var mir *mirror.Mirror
	if cfg.Mirror.Enabled {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		mir, err = mirror.New(ctx, cfg.Mirror.Region, cfg.Mirror.Bucket, cfg.Mirror.Prefix,
			cfg.Mirror.AccessKeyID, cfg.Mirror.SecretAccessKey, logger)
		cancel()
		if err != nil {
			logger.Warn("mirror disabled: failed to initialize", "error", err)
			mir = nil
		}
	}
	if mir != nil {
		onFileWritten = mir.UploadAsync
	}

	pl, err := pipeline.New(pipeline.Options{
		ConsoleOut:    consoleOut,
		FileDir:       cfg.Output.Dir,
		OnFileWritten: onFileWritten,
	}, logger)
	if err != nil {
		logger.Error("failed to start pipeline", "error", err)
		os.Exit(1)
	}

	reg := registry.New(pl, cfg.Logging.SessionDir, logger)

	var statsReporter *report.StatsReporter
	if cfg.Stats.ReportSchedule != "" {
		statsReporter, err = report.NewStatsReporter(cfg.Stats.ReportSchedule, pl, logger)
		if err != nil {
			logger.Warn("stats reporting disabled: invalid schedule", "error", err)
		} else {
			statsReporter.Start()
		}
	}

	var archiver *archive.Archiver
	var archiveStop chan struct{}
	if cfg.Archive.Enabled {
		archiver = archive.New(cfg.Output.Dir, cfg.Archive.Dir, cfg.Archive.After, logger)
		archiveStop = runArchiveLoop(archiver, cfg.Archive.After, logger)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)

	feederDone := make(chan struct{})
	go func() {
		defer close(feederDone)
		runSyntheticFeeder(reg, *clients, *rps, *duration, cfg.Bulk.DefaultSize, logger)
	}()

	select {
	case <-feederDone:
		logger.Info("synthetic feeder finished, shutting down")
	case sig := <-sigCh:
		logger.Info("received signal, shutting down", "signal", sig)
	}

	if archiveStop != nil {
		close(archiveStop)
	}
	if statsReporter != nil {
		statsReporter.Stop()
	}
	reg.Shutdown()
}

// runArchiveLoop runs one archive pass every interval until the returned
// channel is closed.
func runArchiveLoop(a *archive.Archiver, interval time.Duration, logger *slog.Logger) chan struct{} {
	stop := make(chan struct{})
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				n, err := a.Run()
				if err != nil {
					logger.Warn("archive pass failed", "error", err)
					continue
				}
				if n > 0 {
					logger.Info("archive pass complete", "files_archived", n)
				}
			case <-stop:
				return
			}
		}
	}()
	return stop
}

// runSyntheticFeeder simulates clients concurrent sessions, each opening
// with bulkSize and sending a fixed repeating pattern of commands and
// dynamic blocks (see nextSyntheticLine) paced by a shared token bucket,
// until duration elapses.
func runSyntheticFeeder(reg *registry.Registry, clients int, ratePerSec float64, duration time.Duration, bulkSize int, logger *slog.Logger) {
	limiter := rate.NewLimiter(rate.Limit(ratePerSec), int(ratePerSec)+1)
	deadline := time.Now().Add(duration)

	var wg sync.WaitGroup
	for i := 0; i < clients; i++ {
		wg.Add(1)
		go func(clientIdx int) {
			defer wg.Done()
			handle, err := reg.Open(bulkSize)
			if err != nil {
				logger.Warn("synthetic client failed to open a session", "client", clientIdx, "error", err)
				return
			}
			defer reg.Close(handle)

			n := 0
			for time.Now().Before(deadline) {
				if err := limiter.Wait(context.Background()); err != nil {
					return
				}
				reg.Deliver(handle, []byte(nextSyntheticLine(clientIdx, n)))
				n++
			}
		}(i)
	}
	wg.Wait()
}

// nextSyntheticLine occasionally wraps a run of commands in a dynamic
// block, to exercise both grouping paths.
func nextSyntheticLine(clientIdx, n int) string {
	if n%11 == 0 {
		return "{\n"
	}
	if n%11 == 5 {
		return "}\n"
	}
	return "client" + strconv.Itoa(clientIdx) + "-cmd" + strconv.Itoa(n) + "\n"
}
