// Package controlapi is the control HTTP API named in SPEC_FULL.md §6: it
// creates simulations from a resolved config, reports stats and grid
// snapshots, and hands off to the websocket step stream for the buffer
// traffic itself. Mirrors the teacher's repository/usecase/handler layering
// (internal/repository, internal/usecase, internal/delivery/http),
// collapsed into one package since this control surface is much narrower
// than the teacher's full game API.
package controlapi

import (
	"sync"

	"mettagrid/internal/simcore/simulation"
)

// Episode bundles one running Simulation with the Buffers it was bound to,
// the caller's memory per spec.md §3 "Ownership". Manager is the only
// owner of an Episode's lifetime; handlers borrow it under RLock, the
// stream connection's Step loop takes the exclusive Lock.
type Episode struct {
	ID      string
	Sim     *simulation.Simulation
	Buffers *simulation.Buffers
	Seed    int64

	mu sync.RWMutex
}

// Lock/Unlock guard Sim.Step and buffer writes so a stray HTTP stats poll
// never races a Step call from the stream connection.
func (e *Episode) Lock()   { e.mu.Lock() }
func (e *Episode) Unlock() { e.mu.Unlock() }

// RLock/RUnlock guard read-only access (stats, grid snapshots) so several
// HTTP handlers can inspect an episode concurrently as long as no Step is
// in flight.
func (e *Episode) RLock()   { e.mu.RLock() }
func (e *Episode) RUnlock() { e.mu.RUnlock() }
