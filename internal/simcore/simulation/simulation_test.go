package simulation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mettagrid/internal/simcore/config"
)

// roomConfig builds a width x height empty room with the base resource/
// collective/action/obs scaffolding every scenario test in spec §8 shares;
// callers add ObjectTypes and Map placements on top.
func roomConfig(width, height int) *config.Config {
	return &config.Config{
		Width: width, Height: height, MaxSteps: 1000,
		ResourceNames:   []string{"gold", "energy"},
		CollectiveNames: []string{"cogs", "clips"},
		DefaultLimitMax: 100,
		ObjectTypes:     map[string]*config.ObjectTypeSpec{},
		Map:             make([][]string, height),
		Actions: []config.ActionSpec{
			{Name: "noop", Kind: "noop"},
			{Name: "move_north", Kind: "move", Facing: "north"},
			{Name: "move_south", Kind: "move", Facing: "south"},
			{Name: "move_east", Kind: "move", Facing: "east"},
			{Name: "move_west", Kind: "move", Facing: "west"},
		},
		Obs: config.ObsSpec{Width: 5, Height: 5, NumTokens: 50, Resources: []string{"gold", "energy"}},
	}
}

func fillEmpty(cfg *config.Config) {
	for r := range cfg.Map {
		cfg.Map[r] = make([]string, cfg.Width)
	}
}

func newBuffers(n, numTokens int) *Buffers {
	obs := make([][]byte, n)
	for i := range obs {
		obs[i] = make([]byte, numTokens*3)
	}
	return &Buffers{
		Observations: obs,
		Actions:      make([]int32, n),
		VibeActions:  make([]int32, n),
		Rewards:      make([]float32, n),
		Terminals:    make([]bool, n),
		Truncations:  make([]bool, n),
		Masks:        make([]bool, n),
	}
}

func actionIndex(sim *Simulation, name string) int32 {
	for i, spec := range sim.resolved.ActionRegistry.NonVibe {
		if spec.Name == name {
			return int32(i)
		}
	}
	return -1
}

// TestMovementScenario reproduces spec §8 scenario A: a lone agent in an
// empty 5x5 room moving north/east/south/south ends at (1,2),(1,3),(2,3),(3,3).
func TestMovementScenario(t *testing.T) {
	cfg := roomConfig(5, 5)
	fillEmpty(cfg)
	cfg.ObjectTypes["agent.default"] = &config.ObjectTypeSpec{Kind: config.KindAgent}
	cfg.Map[2][2] = "agent.default"

	buf := newBuffers(1, cfg.Obs.NumTokens)
	sim, err := New(cfg, 42, buf)
	require.NoError(t, err)

	moves := []string{"move_north", "move_east", "move_south", "move_south"}
	expected := [][2]int{{1, 2}, {1, 3}, {2, 3}, {3, 3}}

	for i, name := range moves {
		buf.Actions[0] = actionIndex(sim, name)
		sim.Step()
		obj := sim.resolved.World.Store.Object(sim.resolved.Agents[0])
		assert.Equal(t, expected[i][0], obj.Row, "step %d row", i)
		assert.Equal(t, expected[i][1], obj.Col, "step %d col", i)
	}
	assert.Equal(t, 0, sim.GetAgentStatOrZero(0, "not.a.real.stat"))
}

// GetAgentStatOrZero is test-only sugar so scenario tests don't have to
// unpack the (value, ok) pair for assertions that only care about value.
func (s *Simulation) GetAgentStatOrZero(agentIdx int, stat string) int {
	v, _ := s.GetAgentStat(agentIdx, stat)
	return int(v)
}

// TestChestDepletionScenario reproduces spec §8 scenario B: an agent moves
// onto a gold-holding extractor with an on_use withdraw-all-and-remove
// handler; after one step the agent holds the gold and the extractor is
// gone from the grid.
func TestChestDepletionScenario(t *testing.T) {
	cfg := roomConfig(5, 5)
	fillEmpty(cfg)
	cfg.ObjectTypes["agent.default"] = &config.ObjectTypeSpec{Kind: config.KindAgent}
	cfg.ObjectTypes["extractor"] = &config.ObjectTypeSpec{
		Kind:             config.KindChest,
		InitialInventory: map[string]int{"gold": 5},
		OnUse: []config.HandlerSpec{{
			Name: "withdraw_gold",
			Mutations: []config.MutationSpec{{
				Kind:     config.MutationResourceTransfer,
				From:     "target",
				To:       "actor",
				Resource: "gold",
				Amount:   5,
			}, {
				Kind:            config.MutationResourceDelta,
				Subject:         "target",
				RemoveWhenEmpty: []string{"gold"},
			}},
		}},
	}
	cfg.Map[2][2] = "extractor"
	cfg.Map[3][2] = "agent.default"

	buf := newBuffers(1, cfg.Obs.NumTokens)
	sim, err := New(cfg, 42, buf)
	require.NoError(t, err)

	buf.Actions[0] = actionIndex(sim, "move_north")
	sim.Step()

	agent := sim.resolved.World.Store.Object(sim.resolved.Agents[0])
	assert.Equal(t, 2, agent.Row)
	assert.Equal(t, 2, agent.Col)
	assert.Equal(t, 5, agent.Inventory.Get(sim.resolved.ResourceIDs["gold"]))

	extractors := 0
	for _, o := range sim.GridObjects() {
		if o.TypeName == "extractor" {
			extractors++
		}
	}
	assert.Equal(t, 0, extractors)
}

// TestRewardDeltaVsPerTick reproduces spec §8 scenario E: with a constant
// gold=10 inventory and weight=0.1, delta mode accumulates ~1.0 episode
// reward over 10 ticks (credited once, on the first tick); per_tick mode
// accumulates ~10.0.
func TestRewardDeltaVsPerTick(t *testing.T) {
	for _, tc := range []struct {
		perTick  bool
		expected float32
	}{
		{perTick: false, expected: 1.0},
		{perTick: true, expected: 10.0},
	} {
		cfg := roomConfig(5, 5)
		fillEmpty(cfg)
		cfg.ObjectTypes["agent.default"] = &config.ObjectTypeSpec{
			Kind:             config.KindAgent,
			InitialInventory: map[string]int{"gold": 10},
		}
		cfg.Map[2][2] = "agent.default"
		cfg.Rewards = []config.RewardSpec{{
			Name:      "gold_reward",
			Numerator: config.GameValueSpec{Kind: config.GameValueInventory, Resource: "gold", Scope: "agent"},
			Weight:    0.1,
			PerTick:   tc.perTick,
		}}

		buf := newBuffers(1, cfg.Obs.NumTokens)
		sim, err := New(cfg, 42, buf)
		require.NoError(t, err)

		for i := 0; i < 10; i++ {
			buf.Actions[0] = actionIndex(sim, "noop")
			sim.Step()
		}

		agent := sim.resolved.World.Store.Object(sim.resolved.Agents[0])
		assert.InDelta(t, tc.expected, agent.Agent.EpisodeReward, 0.001)
	}
}

// TestTruncationAtMaxSteps reproduces spec §5 phase 9: truncations[i]
// becomes true only once current_step reaches max_steps.
func TestTruncationAtMaxSteps(t *testing.T) {
	cfg := roomConfig(5, 5)
	cfg.MaxSteps = 3
	fillEmpty(cfg)
	cfg.ObjectTypes["agent.default"] = &config.ObjectTypeSpec{Kind: config.KindAgent}
	cfg.Map[2][2] = "agent.default"

	buf := newBuffers(1, cfg.Obs.NumTokens)
	sim, err := New(cfg, 42, buf)
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		sim.Step()
		assert.False(t, buf.Truncations[0], "step %d", i)
	}
	sim.Step()
	assert.True(t, buf.Truncations[0])
}
