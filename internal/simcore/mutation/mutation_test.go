package mutation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mettagrid/internal/simcore/collective"
	"mettagrid/internal/simcore/gamevalue"
	"mettagrid/internal/simcore/gridworld"
	"mettagrid/internal/simcore/ids"
	"mettagrid/internal/simcore/query"
	"mettagrid/internal/simcore/stats"
	"mettagrid/internal/simcore/tagindex"
)

const (
	resHeart ids.ResourceID = 0
	resOre   ids.ResourceID = 1
)

func newTestWorld(t *testing.T) (*gamevalue.World, *gridworld.Object, *gridworld.Object) {
	t.Helper()
	limits := gridworld.NewLimitTable(2, 10)
	grid := gridworld.NewGrid(4, 4)
	store := gridworld.NewStore(grid, 2, limits)
	ti := tagindex.New(8)
	store.SetTagObserver(ti)

	actorID := store.Reserve()
	actor := gridworld.Object{ID: actorID, Inventory: store.NewInventory(), CollectiveID: ids.NoCollective, Agent: &gridworld.AgentState{AgentID: 0}}
	require.NoError(t, store.Place(actor, 0, 0))

	targetID := store.Reserve()
	target := gridworld.Object{ID: targetID, Inventory: store.NewInventory(), CollectiveID: ids.NoCollective}
	require.NoError(t, store.Place(target, 0, 1))

	collectives := collective.NewTable([]string{"red"}, 2, limits)

	w := &gamevalue.World{
		Store:           store,
		Collectives:     collectives,
		Tags:            ti,
		GameStats:       stats.New(),
		CollectiveStats: []*stats.Table{stats.New()},
		AgentStats:      []*stats.Table{stats.New()},
	}
	return w, store.Object(actorID), store.Object(targetID)
}

func TestResourceDeltaMutation_RemovesWhenEmpty(t *testing.T) {
	w, _, target := newTestWorld(t)
	target.Inventory.Delta(resHeart, 5)

	m := &ResourceDeltaMutation{
		Subject:         SubjectTarget,
		Deltas:          map[ids.ResourceID]int{resHeart: -5},
		RemoveWhenEmpty: []ids.ResourceID{resHeart},
	}
	m.Apply(Context{Target: target, World: w})

	assert.False(t, w.Store.Object(target.ID).Alive)
}

func TestResourceTransferMutation_ClampsToAvailable(t *testing.T) {
	w, actor, target := newTestWorld(t)
	actor.Inventory.Delta(resOre, 3)

	m := &ResourceTransferMutation{From: SubjectActor, To: SubjectTarget, Resource: resOre, Amount: 10}
	m.Apply(Context{Actor: actor, Target: target, World: w})

	assert.Equal(t, 0, actor.Inventory.Get(resOre))
	assert.Equal(t, 3, target.Inventory.Get(resOre))
}

func TestAlignmentMutation_JoinsActorCollective(t *testing.T) {
	w, actor, target := newTestWorld(t)
	actor.CollectiveID = 0

	m := &AlignmentMutation{Subject: SubjectTarget, AlignTo: AlignActorCollective}
	m.Apply(Context{Actor: actor, Target: target, World: w})

	assert.Equal(t, ids.CollectiveID(0), w.Store.Object(target.ID).CollectiveID)
}

func TestAlignmentMutation_SpecificOverridesCondition(t *testing.T) {
	w, actor, target := newTestWorld(t)

	m := &AlignmentMutation{Subject: SubjectTarget, AlignTo: AlignNone, HasSpecific: true, CollectiveID: 0}
	m.Apply(Context{Actor: actor, Target: target, World: w})

	assert.Equal(t, ids.CollectiveID(0), w.Store.Object(target.ID).CollectiveID)
}

func TestFreezeMutation_NoopOnNonAgent(t *testing.T) {
	w, _, target := newTestWorld(t)
	m := &FreezeMutation{Subject: SubjectTarget, Duration: 5}
	require.NotPanics(t, func() { m.Apply(Context{Target: target, World: w}) })
	assert.Nil(t, target.Agent)
}

func TestStatsMutation_ScopedTables(t *testing.T) {
	w, actor, _ := newTestWorld(t)
	actor.CollectiveID = 0

	(&StatsMutation{Scope: StatsGame, Name: "ticks", Delta: 1}).Apply(Context{World: w})
	(&StatsMutation{Subject: SubjectActor, Scope: StatsAgent, Name: "hits", Delta: 2}).Apply(Context{Actor: actor, World: w})
	(&StatsMutation{Subject: SubjectActor, Scope: StatsCollective, Name: "loot", Delta: 3}).Apply(Context{Actor: actor, World: w})

	assert.Equal(t, 1.0, w.GameStats.Get("ticks"))
	assert.Equal(t, 2.0, w.AgentStats[0].Get("hits"))
	assert.Equal(t, 3.0, w.CollectiveStats[0].Get("loot"))
}

func TestAddRemoveTagMutation_UpdatesTagIndex(t *testing.T) {
	w, actor, _ := newTestWorld(t)
	const tagMarked ids.TagID = 5

	(&AddTagMutation{Subject: SubjectActor, Tag: tagMarked}).Apply(Context{Actor: actor, World: w})
	assert.True(t, w.Tags.Has(tagMarked, actor.ID))

	(&RemoveTagMutation{Subject: SubjectActor, Tag: tagMarked}).Apply(Context{Actor: actor, World: w})
	assert.False(t, w.Tags.Has(tagMarked, actor.ID))
}

func TestRemoveTagsWithPrefixMutation_StripsOnlyMasked(t *testing.T) {
	w, actor, _ := newTestWorld(t)
	const tagA, tagB, tagC ids.TagID = 1, 2, 3
	w.Store.AddTag(actor.ID, tagA)
	w.Store.AddTag(actor.ID, tagB)
	w.Store.AddTag(actor.ID, tagC)

	mask := gridworld.NewPrefixMask([]ids.TagID{tagA, tagB})
	(&RemoveTagsWithPrefixMutation{Subject: SubjectActor, Mask: mask}).Apply(Context{Actor: actor, World: w})

	assert.False(t, actor.Tags.Has(tagA))
	assert.False(t, actor.Tags.Has(tagB))
	assert.True(t, actor.Tags.Has(tagC))
}

func TestSetGameValueMutation_StaticOverwriteAndAccumulate(t *testing.T) {
	w, actor, _ := newTestWorld(t)

	overwrite := &SetGameValueMutation{
		Subject:     SubjectActor,
		Value:       gamevalue.Value{Kind: gamevalue.KindInventory, Scope: gamevalue.ScopeAgent, Resource: resHeart},
		StaticDelta: 4,
		Accumulate:  false,
	}
	overwrite.Apply(Context{Actor: actor, World: w})
	assert.Equal(t, 4, actor.Inventory.Get(resHeart))

	accumulate := &SetGameValueMutation{
		Subject:     SubjectActor,
		Value:       gamevalue.Value{Kind: gamevalue.KindInventory, Scope: gamevalue.ScopeAgent, Resource: resHeart},
		StaticDelta: 2,
		Accumulate:  true,
	}
	accumulate.Apply(Context{Actor: actor, World: w})
	assert.Equal(t, 6, actor.Inventory.Get(resHeart))
}

func TestRecomputeQueryTagMutation_DropsStaleAndAddsFresh(t *testing.T) {
	w, actor, target := newTestWorld(t)
	const tagMarker ids.TagID = 9
	const tagLeader ids.TagID = 10

	w.Store.AddTag(actor.ID, tagMarker)
	w.Store.AddTag(target.ID, tagLeader) // stale holder, does not match below

	q := &query.Query{SourceTag: tagMarker}
	(&RecomputeQueryTagMutation{Query: q, Tag: tagLeader}).Apply(Context{World: w})

	assert.True(t, w.Tags.Has(tagLeader, actor.ID))
	assert.False(t, w.Tags.Has(tagLeader, target.ID))
}
