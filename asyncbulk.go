// Copyright (c) 2025 Nishisan. All rights reserved.
// Use of this source code is governed by the N-Backup License (Non-Commercial Evaluation)
// that can be found in the LICENSE file.

// Package asyncbulk is the C-compatible public surface — Connect, Receive,
// Disconnect — wrapping a single *registry.Registry installed by Install.
// The shims themselves are thin argument-validation: all grouping,
// routing, and output logic lives in internal/registry and below.
package asyncbulk

import (
	"sync"
	"sync/atomic"

	"github.com/nishisan-dev/asyncbulk/internal/registry"
)

var (
	installMu sync.Mutex
	installed atomic.Pointer[registry.Registry]
)

// Install binds r as the package-level registry used by Connect, Receive,
// and Disconnect. Call it once, at program start, from the entry point
// that owns r's lifetime; tests that want isolation should use
// registry.New directly instead of this facade.
func Install(r *registry.Registry) {
	installMu.Lock()
	defer installMu.Unlock()
	installed.Store(r)
}

// Connect opens a session with static bulk size bulk. Returns 0 (the
// reserved invalid handle) if bulk < 1, the registry has begun shutdown,
// or no registry has been installed.
func Connect(bulk int) uint64 {
	r := installed.Load()
	if r == nil {
		return registry.SharedHandle
	}
	handle, err := r.Open(bulk)
	if err != nil {
		return registry.SharedHandle
	}
	return handle
}

// Receive delivers data to the session at handle. Silent no-op on an
// invalid or unknown handle, an empty payload, or an uninstalled registry.
func Receive(handle uint64, data []byte) {
	r := installed.Load()
	if r == nil {
		return
	}
	r.Deliver(handle, data)
}

// Disconnect closes the session at handle. Idempotent; silent no-op on an
// unknown handle or an uninstalled registry.
func Disconnect(handle uint64) {
	r := installed.Load()
	if r == nil {
		return
	}
	r.Close(handle)
}
