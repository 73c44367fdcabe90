// Copyright (c) 2025 Nishisan. All rights reserved.
// Use of this source code is governed by the N-Backup License (Non-Commercial Evaluation)
// that can be found in the LICENSE file.

package report

import (
	"log/slog"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

// HostSnapshot is a point-in-time read of host resource usage, attached to
// the final shutdown report alongside the writer counters.
type HostSnapshot struct {
	CPUPercent    float64
	MemoryPercent float64
}

// CollectHostSnapshot samples CPU and memory usage. Collection failures are
// logged at debug and leave the corresponding field at zero — host metrics
// are a diagnostic nicety, never a reason to fail shutdown.
func CollectHostSnapshot(logger *slog.Logger) HostSnapshot {
	var snap HostSnapshot

	if percentages, err := cpu.Percent(0, false); err == nil && len(percentages) > 0 {
		snap.CPUPercent = percentages[0]
	} else if logger != nil {
		logger.Debug("failed to collect cpu stats", "error", err)
	}

	if v, err := mem.VirtualMemory(); err == nil {
		snap.MemoryPercent = v.UsedPercent
	} else if logger != nil {
		logger.Debug("failed to collect memory stats", "error", err)
	}

	return snap
}
