package controlapi

import (
	"fmt"
	"sync"

	"go.uber.org/zap"

	internalerrors "mettagrid/internal/errors"
	"mettagrid/internal/events"
	"mettagrid/internal/logger"
	"mettagrid/internal/simcore/config"
	"mettagrid/internal/simcore/simulation"
)

// Manager owns every running Episode, the way the teacher's
// internal/repository.GameRepository owns every running game.
type Manager struct {
	mu       sync.RWMutex
	episodes map[string]*Episode
	bus      events.EventBus         // optional; nil disables lifecycle event publishing
	repo     *events.EventRepository // handler layer's subscription entry point onto bus
}

// NewManager creates an empty Manager. bus may be nil, in which case no
// lifecycle events are published and Subscribe is a no-op.
func NewManager(bus events.EventBus) *Manager {
	m := &Manager{
		episodes: make(map[string]*Episode),
		bus:      bus,
	}
	if bus != nil {
		m.repo = events.NewEventRepository(bus)
	}
	return m
}

// Subscribe registers listener for episode lifecycle events of eventType
// (one of events.EventTypeEpisodeStarted/Reset/Ended) via the Manager's
// EventRepository — the DTO/handler layer's single subscription entry
// point onto the simulation's event bus, rather than handlers reaching
// into events.EventBus directly. A no-op when no bus was configured.
func (m *Manager) Subscribe(eventType string, listener events.EventListener) {
	if m.repo == nil {
		return
	}
	m.repo.Subscribe(eventType, listener)
}

// Create resolves cfg, allocates buffers sized from cfg directly (the
// control API is the caller that owns buffer memory per spec.md §3
// "Ownership"), builds a Simulation, and registers the Episode under a new
// uuid.
func (m *Manager) Create(cfg *config.Config, seed int64) (*Episode, error) {
	numAgents := countAgents(cfg)
	buf := simulation.NewBuffers(numAgents, cfg.Obs.NumTokens)

	sim, err := simulation.New(cfg, seed, buf)
	if err != nil {
		return nil, fmt.Errorf("controlapi: create episode: %w", err)
	}

	ep := &Episode{
		ID:      sim.ID,
		Sim:     sim,
		Buffers: buf,
		Seed:    seed,
	}

	m.mu.Lock()
	m.episodes[ep.ID] = ep
	m.mu.Unlock()

	if m.bus != nil {
		sim.Attach(m.bus)
	}

	logger.Get().Info("episode created", zap.String("episode_id", ep.ID), zap.Int("agents", numAgents))
	return ep, nil
}

// Get returns the episode by id, if it exists.
func (m *Manager) Get(id string) (*Episode, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ep, ok := m.episodes[id]
	return ep, ok
}

// Delete tears down an episode, per spec.md §4.14's implied teardown
// contract (the core itself does no I/O, so teardown is just dropping the
// reference — the caller's buffer memory is theirs to free).
func (m *Manager) Delete(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.episodes[id]; !ok {
		return &internalerrors.NotFoundError{Resource: "episode", ID: id}
	}
	delete(m.episodes, id)
	logger.Get().Info("episode deleted", zap.String("episode_id", id))
	return nil
}

// countAgents scans cfg.Map for cells whose resolved object type is an
// agent, without running the full config.Resolve pass — NumTokens is
// already plain data on cfg.Obs, so only the agent count needs a pre-scan.
func countAgents(cfg *config.Config) int {
	n := 0
	for _, row := range cfg.Map {
		for _, cellName := range row {
			if cellName == "" {
				continue
			}
			spec, ok := cfg.ObjectTypes[cellName]
			if ok && spec.Kind == config.KindAgent {
				n++
			}
		}
	}
	return n
}
