package observation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mettagrid/internal/simcore/collective"
	"mettagrid/internal/simcore/gamevalue"
	"mettagrid/internal/simcore/gridworld"
	"mettagrid/internal/simcore/ids"
	"mettagrid/internal/simcore/stats"
	"mettagrid/internal/simcore/tagindex"
)

const resOre ids.ResourceID = 0

func newTestTick(t *testing.T, n int) (TickContext, []*gridworld.Object) {
	t.Helper()
	limits := gridworld.NewLimitTable(1, 100)
	grid := gridworld.NewGrid(9, 9)
	store := gridworld.NewStore(grid, 1, limits)
	ti := tagindex.New(4)
	store.SetTagObserver(ti)

	agents := make([]*gridworld.Object, n)
	for i := 0; i < n; i++ {
		id := store.Reserve()
		obj := gridworld.Object{ID: id, Inventory: store.NewInventory(), Agent: &gridworld.AgentState{AgentID: i}}
		require.NoError(t, store.Place(obj, 4, 4+i))
		agents[i] = store.Object(id)
	}

	w := &gamevalue.World{
		Store:           store,
		Collectives:     collective.NewTable(nil, 1, limits),
		Tags:            ti,
		GameStats:       stats.New(),
		AgentStats:      make([]*stats.Table, n),
	}
	for i := range w.AgentStats {
		w.AgentStats[i] = stats.New()
	}
	return TickContext{World: w, Tick: 10, MaxTicks: 100}, agents
}

func testConfig() *Config {
	return &Config{
		Width:          5,
		Height:         5,
		NumTokens:      32,
		TypeFeature:    1,
		AgentIDFeature: 2,
		VibeFeature:    3,
		InventoryFeatures: map[ids.ResourceID]ids.FeatureID{
			resOre: 4,
		},
		Global: GlobalFeatureIDs{
			EpisodeCompletionPct:     10,
			EmitEpisodeCompletionPct: true,
		},
	}
}

func TestEncodeAgent_EmitsSelfTokenAtWindowCenter(t *testing.T) {
	tctx, agents := newTestTick(t, 1)
	enc := New(testConfig())
	tokens := enc.EncodeAgent(agents[0], tctx)

	centerLoc := packLoc(2, 2) // width/height 5 -> half 2
	found := false
	for _, tok := range tokens {
		if tok.Loc == centerLoc && tok.Feature == 1 {
			found = true
			assert.Equal(t, byte(0), tok.Value) // TypeID defaults to 0
		}
	}
	assert.True(t, found)
}

func TestEncodeAgent_PadsWithEmptySentinel(t *testing.T) {
	tctx, agents := newTestTick(t, 1)
	enc := New(testConfig())
	tokens := enc.EncodeAgent(agents[0], tctx)

	require.Len(t, tokens, 32)
	assert.Equal(t, LocEmpty, tokens[len(tokens)-1].Loc)
}

func TestEncodeAgent_InventoryZeroSuppressed(t *testing.T) {
	tctx, agents := newTestTick(t, 1)
	enc := New(testConfig())
	tokens := enc.EncodeAgent(agents[0], tctx)

	for _, tok := range tokens {
		assert.False(t, tok.Feature == 4 && tok.Loc != LocEmpty, "zero inventory should not emit a token")
	}

	agents[0].Inventory.Delta(resOre, 7)
	tokens = enc.EncodeAgent(agents[0], tctx)
	found := false
	for _, tok := range tokens {
		if tok.Feature == 4 {
			found = true
			assert.Equal(t, byte(7), tok.Value)
		}
	}
	assert.True(t, found)
}

func TestEncodeAll_ParallelMatchesSequential(t *testing.T) {
	tctx, agents := newTestTick(t, 6)
	for i, a := range agents {
		a.Inventory.Delta(resOre, i+1)
	}
	enc := New(testConfig())

	seq := enc.EncodeAll(agents, tctx, 1)
	par := enc.EncodeAll(agents, tctx, 4)

	require.Len(t, par, len(seq))
	for i := range seq {
		assert.Equal(t, seq[i], par[i], "agent %d diverged between thread counts", i)
	}
}

func TestTerritoryGrid_SingleSourceOwnsItsRadius(t *testing.T) {
	sources := []TerritorySource{{CollectiveID: 1, Row: 2, Col: 2, Radius: 2}}
	g := ComputeTerritory(5, 5, sources, ids.NoCollective)

	assert.Equal(t, ids.CollectiveID(1), g.TerritoryOwner(2, 2))
	assert.Equal(t, ids.CollectiveID(1), g.TerritoryOwner(2, 3))
	assert.Equal(t, ids.NoCollective, g.TerritoryOwner(0, 0))
}

func TestTerritoryGrid_TieResolvesToNonClips(t *testing.T) {
	clips := ids.CollectiveID(9)
	sources := []TerritorySource{
		{CollectiveID: clips, Row: 2, Col: 0, Radius: 3},
		{CollectiveID: 1, Row: 2, Col: 4, Radius: 3},
	}
	g := ComputeTerritory(5, 5, sources, clips)

	assert.Equal(t, ids.CollectiveID(1), g.TerritoryOwner(2, 2))
}

func TestTerritoryGrid_TieWithoutClipsIsNeutral(t *testing.T) {
	sources := []TerritorySource{
		{CollectiveID: 1, Row: 2, Col: 0, Radius: 3},
		{CollectiveID: 2, Row: 2, Col: 4, Radius: 3},
	}
	g := ComputeTerritory(5, 5, sources, ids.NoCollective)

	assert.Equal(t, ids.NoCollective, g.TerritoryOwner(2, 2))
}

func TestTerritoryGrid_CardinalBoundaryExcluded(t *testing.T) {
	sources := []TerritorySource{{CollectiveID: 1, Row: 2, Col: 2, Radius: 2}}
	g := ComputeTerritory(5, 5, sources, ids.NoCollective)

	// (2,0) is exactly radius=2 away along the cardinal west direction.
	assert.Equal(t, ids.NoCollective, g.TerritoryOwner(2, 0))
	// (1,1) is at distance sqrt(2) < 2, covered and off-axis.
	assert.Equal(t, ids.CollectiveID(1), g.TerritoryOwner(1, 1))
}

func TestTerritoryGrid_MultipleSourcesStackToOutcompeteOne(t *testing.T) {
	// Both collectives are distance 2 from (3,3) at radius 3 (tied
	// influence 1-per-source), but collective 2 has two covering sources
	// so its total (2) beats collective 1's single-source total (1).
	sources := []TerritorySource{
		{CollectiveID: 1, Row: 3, Col: 5, Radius: 3},
		{CollectiveID: 2, Row: 1, Col: 3, Radius: 3},
		{CollectiveID: 2, Row: 5, Col: 3, Radius: 3},
	}
	g := ComputeTerritory(7, 7, sources, ids.NoCollective)

	assert.Equal(t, ids.CollectiveID(2), g.TerritoryOwner(3, 3))
}

func TestTerritoryGrid_SmallerRadiusLosesEvenWhenCloser(t *testing.T) {
	// Collective 2 is closer (distance 1) but has a smaller radius (2),
	// giving it less influence (2-1=1) than collective 1's farther-but-
	// wider source (distance 2, radius 5, influence 5-2=3).
	sources := []TerritorySource{
		{CollectiveID: 1, Row: 3, Col: 5, Radius: 5},
		{CollectiveID: 2, Row: 3, Col: 2, Radius: 2},
	}
	g := ComputeTerritory(7, 7, sources, ids.NoCollective)

	assert.Equal(t, ids.CollectiveID(1), g.TerritoryOwner(3, 3))
}

func TestTerritoryGrid_AOEMaskTieStaysNeutralEvenAgainstClips(t *testing.T) {
	clips := ids.CollectiveID(9)
	sources := []TerritorySource{
		{CollectiveID: clips, Row: 2, Col: 0, Radius: 3},
		{CollectiveID: 1, Row: 2, Col: 4, Radius: 3},
	}
	g := ComputeTerritory(5, 5, sources, clips)

	// territory breaks this tie in favor of the non-clips collective...
	assert.Equal(t, ids.CollectiveID(1), g.TerritoryOwner(2, 2))
	// ...but aoe_mask's tie-break never favors either side, clips included.
	assert.Equal(t, ids.NoCollective, g.AOEMaskOwner(2, 2))
}

func TestEncodeAgent_AOEMaskEmitsOneTokenPerLocalCell(t *testing.T) {
	tctx, agents := newTestTick(t, 1)
	cfg := testConfig()
	cfg.Global.AOEMask = 20
	cfg.Global.EmitAOEMask = true
	enc := New(cfg)

	agent := agents[0] // placed at (4,4) by newTestTick
	sources := []TerritorySource{
		{CollectiveID: 1, Row: 4, Col: 4, Radius: 2},
		{CollectiveID: 2, Row: 4, Col: 7, Radius: 2},
	}
	tctx.Territory = ComputeTerritory(9, 9, sources, ids.NoCollective)

	tokens := enc.EncodeAgent(agent, tctx)

	byLoc := map[byte]byte{}
	for _, tok := range tokens {
		if tok.Feature == 20 {
			byLoc[tok.Loc] = tok.Value
		}
	}

	// (4,4) is the agent's own cell (window center, local (2,2)); (4,5) is
	// local (2,3). Both are covered only by collective 1.
	centerLoc := packLoc(2, 2)
	eastLoc := packLoc(2, 3)
	require.Contains(t, byLoc, centerLoc)
	assert.Equal(t, byte(1), byLoc[centerLoc])
	require.Contains(t, byLoc, eastLoc)
	assert.Equal(t, byte(1), byLoc[eastLoc])

	// No aoe_mask token should ever be stamped at LocGlobal for this layer.
	for _, tok := range tokens {
		assert.False(t, tok.Feature == 20 && tok.Loc == LocGlobal, "aoe_mask must be per-cell, not global")
	}
}
