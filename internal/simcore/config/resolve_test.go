package config

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mettagrid/internal/simcore/simerrors"
)

func minimalConfig() *Config {
	return &Config{
		Width: 3, Height: 3, MaxSteps: 10,
		ResourceNames:   []string{"heart"},
		CollectiveNames: []string{"red", "blue"},
		VibeNames:       []string{"neutral"},
		DefaultLimitMax: 100,
		ObjectTypes: map[string]*ObjectTypeSpec{
			"agent.red.0": {Kind: KindAgent, Collective: "red"},
			"wall":        {Kind: KindWall},
		},
		Map: [][]string{
			{"agent.red.0", "", "wall"},
			{"", "", ""},
			{"", "", ""},
		},
		Events: map[string]*EventSpec{},
		Obs:    ObsSpec{Width: 3, Height: 3, NumTokens: 16},
	}
}

func TestResolve_AssignsDenseIDsInSortedTypeOrder(t *testing.T) {
	cfg := minimalConfig()
	resolved, err := Resolve(cfg, 1)
	require.NoError(t, err)

	assert.Equal(t, 0, int(resolved.TypeIDs["agent.red.0"]))
	assert.Equal(t, 1, int(resolved.TypeIDs["wall"]))
	assert.Equal(t, 0, int(resolved.ResourceIDs["heart"]))
	assert.Equal(t, 0, int(resolved.CollectiveIDs["red"]))
	assert.Equal(t, 1, int(resolved.CollectiveIDs["blue"]))
}

func TestResolve_PlacesMapObjectsAndAssignsAgentID(t *testing.T) {
	cfg := minimalConfig()
	resolved, err := Resolve(cfg, 1)
	require.NoError(t, err)

	require.Len(t, resolved.Agents, 1)
	agentObj := resolved.World.Store.Object(resolved.Agents[0])
	require.NotNil(t, agentObj)
	assert.True(t, agentObj.IsAgent())
	assert.Equal(t, 0, agentObj.Agent.AgentID)
	assert.Equal(t, 0, agentObj.Row)
	assert.Equal(t, 0, agentObj.Col)

	wallObj := resolved.World.Store.At(0, 2)
	require.NotNil(t, wallObj)
	assert.Equal(t, resolved.TypeIDs["wall"], wallObj.TypeID)
}

func TestResolve_RejectsUnknownMapObjectType(t *testing.T) {
	cfg := minimalConfig()
	cfg.Map[1][1] = "does_not_exist"

	_, err := Resolve(cfg, 1)
	require.Error(t, err)
	var cie *simerrors.ConfigInvalidError
	assert.ErrorAs(t, err, &cie)
}

func TestResolve_RejectsUnknownFallbackEvent(t *testing.T) {
	cfg := minimalConfig()
	cfg.ObjectTypes["marker"] = &ObjectTypeSpec{Kind: KindGeneric, Tags: []string{"markable"}}
	cfg.Events["spawn"] = &EventSpec{
		Name:      "spawn",
		Timesteps: []int{1},
		TargetTag: "markable",
		Fallback:  "no_such_event",
	}

	_, err := Resolve(cfg, 1)
	require.Error(t, err)
	var uee *simerrors.UnknownEventError
	require.ErrorAs(t, err, &uee)
	assert.Equal(t, "no_such_event", uee.Name)
}

func TestResolve_RejectsMalformedRoleGatedReward(t *testing.T) {
	cfg := minimalConfig()
	cfg.Rewards = []RewardSpec{
		{Name: "role:scout:", Numerator: GameValueSpec{Kind: GameValueConst, Const: 1}, Weight: 1},
	}

	_, err := Resolve(cfg, 1)
	require.Error(t, err)
	var cie *simerrors.ConfigInvalidError
	assert.ErrorAs(t, err, &cie)
}

func TestResolve_AcceptsValidRoleGatedReward(t *testing.T) {
	cfg := minimalConfig()
	cfg.Rewards = []RewardSpec{
		{Name: "role:scout:explore", Numerator: GameValueSpec{Kind: GameValueConst, Const: 1}, Weight: 1},
	}

	resolved, err := Resolve(cfg, 1)
	require.NoError(t, err)
	require.Len(t, resolved.RewardEntries, 1)
	assert.True(t, resolved.RewardEntries[0].IsRoleGated)
	assert.Equal(t, "scout", resolved.RewardEntries[0].Role)
}

func TestResolve_RejectsTagCountAboveCap(t *testing.T) {
	cfg := minimalConfig()
	cfg.ObjectTypes = map[string]*ObjectTypeSpec{}
	for i := 0; i < 257; i++ {
		name := "t" + strconv.Itoa(i)
		cfg.ObjectTypes[name] = &ObjectTypeSpec{Kind: KindGeneric}
	}
	cfg.Map = [][]string{{}}

	_, err := Resolve(cfg, 1)
	require.Error(t, err)
	var cie *simerrors.ConfigInvalidError
	assert.ErrorAs(t, err, &cie)
}

func TestResolve_ResolvesHandlerFiltersAndMutations(t *testing.T) {
	cfg := minimalConfig()
	cfg.ObjectTypes["chest"] = &ObjectTypeSpec{
		Kind: KindChest,
		OnUse: []HandlerSpec{
			{
				Name: "open",
				Filters: []FilterSpec{
					{Kind: FilterResource, Subject: "actor", Minimums: map[string]int{"heart": 1}},
				},
				Mutations: []MutationSpec{
					{Kind: MutationResourceDelta, Subject: "actor", Deltas: map[string]int{"heart": -1}},
				},
			},
		},
	}
	cfg.Map[1][1] = "chest"

	resolved, err := Resolve(cfg, 1)
	require.NoError(t, err)

	chestObj := resolved.World.Store.At(1, 1)
	require.NotNil(t, chestObj)
	mh := resolved.ActionBlueprints.OnUse[chestObj.TypeID]
	require.NotNil(t, mh)
	require.Len(t, mh.Handlers, 1)
	assert.Equal(t, "open", mh.Handlers[0].Name)
}

func TestResolve_MaterializeQueryTagsMatchingObjects(t *testing.T) {
	cfg := minimalConfig()
	cfg.ObjectTypes["wall"].Tags = []string{"solid"}
	cfg.MaterializeQueries = []MaterializedQuerySpec{
		{Query: QuerySpec{SourceTag: "solid"}, TagName: "indexed_solid"},
	}

	resolved, err := Resolve(cfg, 1)
	require.NoError(t, err)

	tid := resolved.TagIDs["indexed_solid"]
	wallObj := resolved.World.Store.At(0, 2)
	require.NotNil(t, wallObj)
	assert.True(t, resolved.World.Tags.Has(tid, wallObj.ID))
}
