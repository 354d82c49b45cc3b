package simulation

import (
	"context"
	"os"
	"runtime"
	"strconv"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"mettagrid/internal/events"
	"mettagrid/internal/logger"
	"mettagrid/internal/simcore/action"
	"mettagrid/internal/simcore/config"
	"mettagrid/internal/simcore/gridworld"
	"mettagrid/internal/simcore/handler"
	"mettagrid/internal/simcore/ids"
	"mettagrid/internal/simcore/observation"
	"mettagrid/internal/simcore/reward"
	"mettagrid/internal/simcore/simerrors"
)

// actionArgBits splits one int32 actions[] entry into an action id (low 16
// bits) and an effect argument (high 16 bits). spec §4.14 fixes the actions
// buffer at one int32 column per agent, but the attack effect of §4.10
// needs a (distance, offset) argument alongside the action id; packing both
// into the single buffer column preserves the six-buffer contract instead
// of inventing a seventh. See DESIGN.md for this Open-Question resolution.
const actionArgBits = 16

func decodeAction(raw int32) (actionID, arg int) {
	return int(raw & 0xFFFF), int(raw >> actionArgBits)
}

// Simulation is the per-step kernel driver of spec §4.14: it owns every
// table config.Resolve built and runs the fixed phase pipeline of spec §5
// against the caller-owned Buffers.
type Simulation struct {
	ID string // episode identifier, google/uuid per SPEC_FULL §6

	resolved *config.Resolved
	buffers  *Buffers

	rewardStates [][]reward.State // indexed by agent index, then reward entry
	obsThreads   int

	currentStep int
	episodeDone bool // set once any terminal/truncation fires; gates "reset bookkeeping"

	// EventBus is optional: when set (by the control API or debug viewer),
	// episode lifecycle events are published for external observers.
	// Nil-safe: a nil EventBus publishes nothing and costs a branch per
	// call site, matching spec.md §1's contract that replay/persistence
	// are external collaborators, not part of the step pipeline itself.
	EventBus events.EventBus
}

// ThreadCountFromEnv resolves METTAGRID_OBS_THREADS per spec §4.11/§9: an
// integer, "auto" (runtime.NumCPU()), or unset (single-threaded reference
// path). Returns a simerrors.ThreadCountBadError for anything else.
func ThreadCountFromEnv() (int, error) {
	v := os.Getenv("METTAGRID_OBS_THREADS")
	if v == "" {
		return 1, nil
	}
	if v == "auto" {
		return runtime.NumCPU(), nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 1 {
		return 0, &simerrors.ThreadCountBadError{Value: v}
	}
	return n, nil
}

// New resolves cfg (per config.Resolve), binds buf, and returns a ready
// Simulation. seed drives both config resolution's OrderRandom query
// evaluation and nothing else, matching spec §4.14 "new(config, seed,
// buffers)".
func New(cfg *config.Config, seed int64, buf *Buffers) (*Simulation, error) {
	resolved, err := config.Resolve(cfg, seed)
	if err != nil {
		return nil, err
	}

	if err := buf.bind(len(resolved.Agents), resolved.ObsConfig.NumTokens); err != nil {
		return nil, err
	}

	threads, err := ThreadCountFromEnv()
	if err != nil {
		return nil, err
	}

	rewardStates := make([][]reward.State, len(resolved.Agents))
	for i, objID := range resolved.Agents {
		obj := resolved.World.Store.Object(objID)
		obj.Agent.Rewards = reward.NewStates(resolved.RewardEntries)
		rewardStates[i] = obj.Agent.Rewards
	}

	sim := &Simulation{
		ID:           uuid.NewString(),
		resolved:     resolved,
		buffers:      buf,
		rewardStates: rewardStates,
		obsThreads:   threads,
	}
	logger.Get().Debug("simulation initialized",
		zap.String("sim_id", sim.ID),
		zap.Int("agents", len(resolved.Agents)),
		zap.Int("obs_threads", threads),
	)
	return sim, nil
}

// Attach binds bus as s's event bus and publishes the episode-started
// event. Callers that want episode lifecycle notifications (the control
// API, the debug terminal viewer) call this once after New; it is
// optional and never required by the step pipeline itself.
func (s *Simulation) Attach(bus events.EventBus) {
	s.EventBus = bus
	if bus == nil {
		return
	}
	r := s.resolved
	ev := events.NewEpisodeStartedEvent(s.ID, len(r.Agents), r.Width, r.Height, 0)
	if err := bus.Publish(context.Background(), ev); err != nil {
		logger.Get().Debug("episode-started publish failed", zap.String("sim_id", s.ID), zap.Error(err))
	}
}

// Reset rebuilds the simulation from the same config and a (usually new)
// seed, reusing the same bound Buffers, per spec §4.14 "reset() — equivalent
// to new with same config and (usually) new seed".
func Reset(cfg *config.Config, seed int64, buf *Buffers) (*Simulation, error) {
	return New(cfg, seed, buf)
}

// Step runs one tick of the fixed pipeline of spec §5, in order:
// reset-bookkeeping, events, actions, on_tick, aoe, collectives,
// observations, rewards, truncation. current_step increments at the end.
func (s *Simulation) Step() {
	r := s.resolved
	w := r.World

	// reset bookkeeping (spec §5 phase 1): the previous tick's terminal/
	// truncation flags are advisory to the caller, which is expected to
	// call Reset before the next Step once any fired — nothing internal
	// needs clearing, since every phase below recomputes its buffer row
	// from live state rather than accumulating across ticks.
	if s.episodeDone {
		logger.Get().Debug("stepping after terminal/truncation", zap.String("sim_id", s.ID), zap.Int("step", s.currentStep))
		s.episodeDone = false
	}

	r.EventSchedule.Tick(s.currentStep, w)

	s.runActions()

	s.runOnTick()

	r.AOESystem.Tick(w.Store, w)

	s.computeCollectives()

	territory := s.computeTerritory()
	s.computeObservations(territory)

	s.computeRewards()

	s.computeTerminalsAndTruncation()

	action.TickFreeze(w.Store)

	s.currentStep++
}

// runActions dispatches actions[i] then (if non-noop) vibe_actions[i] for
// each agent in ascending agent index, per spec §4.10/§5 phase 3.
func (s *Simulation) runActions() {
	r := s.resolved
	w := r.World
	for i, objID := range r.Agents {
		agent := w.Store.Object(objID)
		if agent == nil || !agent.Alive {
			continue
		}
		raw := s.buffers.Actions[i]
		actionID, arg := decodeAction(raw)
		result := action.Dispatch(agent, actionID, arg, r.ActionRegistry, w, r.ActionBlueprints)
		if result.Success {
			w.GameStats.Add("action."+actionName(r, actionID)+".success", 1)
		}

		vibeRaw := s.buffers.VibeActions[i]
		vibeID, _ := decodeAction(vibeRaw)
		action.DispatchVibe(agent, vibeID, r.ActionRegistry)
	}
}

func actionName(r *config.Resolved, actionID int) string {
	if actionID < 0 || actionID >= len(r.ActionRegistry.NonVibe) {
		return "unknown"
	}
	return r.ActionRegistry.NonVibe[actionID].Name
}

// runOnTick dispatches every live object's on_tick MultiHandler (All mode)
// in ascending object-id order, per spec §4.7/§5 phase 4.
func (s *Simulation) runOnTick() {
	r := s.resolved
	w := r.World
	w.Store.Each(func(obj *gridworld.Object) {
		bp := r.TypeBlueprints[obj.TypeID]
		if bp == nil || bp.OnTick == nil {
			return
		}
		bp.OnTick.Dispatch(handler.Context{Actor: obj, Target: obj, World: w})
	})
}

// computeCollectives is spec §4.13's bookkeeping phase: it runs after
// AOE/on_tick so that collective inventory mutations from this tick are
// visible to the observation/reward phases that follow. collective.Table
// already holds every deposit/withdraw live, so there is no separate
// snapshot to build here — the phase exists to fix pipeline ordering, not
// to compute anything itself.
func (s *Simulation) computeCollectives() {}

// computeTerritory precomputes the read-only ownership grid the observation
// phase's territory/AOE-mask layer consults, per spec §4.11. nil if the
// config didn't request the layer.
func (s *Simulation) computeTerritory() *observation.TerritoryGrid {
	r := s.resolved
	if !r.ObsConfig.Global.EmitTerritory && !r.ObsConfig.Global.EmitAOEMask {
		return nil
	}
	return observation.ComputeTerritory(r.Width, r.Height, r.TerritorySources, r.ClipsCollective)
}

// computeObservations fans out EncodeAll across s.obsThreads goroutines
// (1 = single-threaded reference path) and packs each agent's tokens into
// its Buffers.Observations row, per spec §4.11/§5 phase 7.
func (s *Simulation) computeObservations(territory *observation.TerritoryGrid) {
	r := s.resolved
	w := r.World

	agents := make([]*gridworld.Object, len(r.Agents))
	for i, objID := range r.Agents {
		agents[i] = w.Store.Object(objID)
	}

	tctx := observation.TickContext{World: w, Territory: territory, Tick: s.currentStep, MaxTicks: r.MaxSteps}
	encoded := r.ObsEncoder.EncodeAll(agents, tctx, s.obsThreads)

	for i, tokens := range encoded {
		row := s.buffers.Observations[i]
		for j, tok := range tokens {
			row[j*3] = tok.Loc
			row[j*3+1] = byte(tok.Feature)
			row[j*3+2] = tok.Value
		}
	}
}

// computeRewards evaluates every agent's reward entries and writes the
// per-tick total into Buffers.Rewards, accumulating episode_reward on the
// agent, per spec §4.12/§5 phase 8.
func (s *Simulation) computeRewards() {
	r := s.resolved
	w := r.World
	for i, objID := range r.Agents {
		agent := w.Store.Object(objID)
		if agent == nil || !agent.Alive {
			s.buffers.Rewards[i] = 0
			continue
		}
		var roleWeights reward.RoleWeights
		if i < len(r.AgentRoleWeights) {
			roleWeights = r.AgentRoleWeights[i]
		}
		total := reward.Evaluate(r.RewardEntries, s.rewardStates[i], roleWeights, w, agent, s.currentStep)
		s.buffers.Rewards[i] = float32(total)
		agent.Agent.LastReward = float32(total)
		agent.Agent.EpisodeReward += float32(total)
	}
}

// computeTerminalsAndTruncation sets spec §5 phase 9's per-agent terminal
// (an agent object no longer alive — spec §3's lifecycle death conditions)
// and truncation (current_step >= max_steps) flags.
func (s *Simulation) computeTerminalsAndTruncation() {
	r := s.resolved
	w := r.World
	// current_step increments after this method returns (spec §5's
	// "current_step increments at the end of the step"), so the completed
	// tick count this phase checks against max_steps is currentStep+1.
	truncated := s.currentStep+1 >= r.MaxSteps
	anyTerminal := false
	for i, objID := range r.Agents {
		agent := w.Store.Object(objID)
		terminal := agent == nil || !agent.Alive
		s.buffers.Terminals[i] = terminal
		s.buffers.Truncations[i] = truncated
		if terminal || truncated {
			s.episodeDone = true
		}
		anyTerminal = anyTerminal || terminal
	}
	if s.EventBus != nil && (anyTerminal || truncated) {
		ev := events.NewEpisodeEndedEvent(s.ID, s.currentStep+1, anyTerminal, truncated)
		if err := s.EventBus.Publish(context.Background(), ev); err != nil {
			logger.Get().Debug("episode-ended publish failed", zap.String("sim_id", s.ID), zap.Error(err))
		}
	}
}

// CurrentStep reports the number of completed Step calls.
func (s *Simulation) CurrentStep() int { return s.currentStep }

// GridObjects returns a pure-read snapshot of every live object, for
// external observers (spec §4.14 "grid_objects()").
func (s *Simulation) GridObjects() []*gridworld.Object {
	var out []*gridworld.Object
	s.resolved.World.Store.Each(func(o *gridworld.Object) {
		out = append(out, o)
	})
	return out
}

// GetGameStat reads the game-wide stats table (spec §6).
func (s *Simulation) GetGameStat(name string) float64 {
	return s.resolved.World.GameStats.Get(name)
}

// GetCollectiveStat reads one collective's stats table by name.
func (s *Simulation) GetCollectiveStat(name, stat string) (float64, bool) {
	cid, ok := s.resolved.CollectiveIDs[name]
	if !ok {
		return 0, false
	}
	if int(cid) >= len(s.resolved.World.CollectiveStats) {
		return 0, false
	}
	return s.resolved.World.CollectiveStats[cid].Get(stat), true
}

// GetAgentStat reads one agent's stats table by dense agent index.
func (s *Simulation) GetAgentStat(agentIdx int, stat string) (float64, bool) {
	if agentIdx < 0 || agentIdx >= len(s.resolved.World.AgentStats) {
		return 0, false
	}
	return s.resolved.World.AgentStats[agentIdx].Get(stat), true
}

// NumAgents reports N, fixed at init.
func (s *Simulation) NumAgents() int { return len(s.resolved.Agents) }

// TagIDs exposes the name->dense-id table config.Resolve built once, for
// external observers (the control API's object-snapshot DTOs) that need to
// render tag ids back to names without the simulation core doing string
// work at runtime.
func (s *Simulation) TagIDs() map[string]ids.TagID { return s.resolved.TagIDs }

// ResourceID resolves a resource name to its dense id, for external
// observers building ad-hoc GameValue queries against this simulation.
func (s *Simulation) ResourceID(name string) (ids.ResourceID, bool) {
	rid, ok := s.resolved.ResourceIDs[name]
	return rid, ok
}

