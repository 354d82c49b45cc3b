package handler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mettagrid/internal/simcore/collective"
	"mettagrid/internal/simcore/filter"
	"mettagrid/internal/simcore/gamevalue"
	"mettagrid/internal/simcore/gridworld"
	"mettagrid/internal/simcore/ids"
	"mettagrid/internal/simcore/mutation"
	"mettagrid/internal/simcore/stats"
	"mettagrid/internal/simcore/tagindex"
)

const resHeart ids.ResourceID = 0

func newTestContext(t *testing.T) (Context, *gridworld.Object) {
	t.Helper()
	limits := gridworld.NewLimitTable(1, 10)
	grid := gridworld.NewGrid(3, 3)
	store := gridworld.NewStore(grid, 1, limits)
	ti := tagindex.New(4)
	store.SetTagObserver(ti)

	id := store.Reserve()
	obj := gridworld.Object{ID: id, Inventory: store.NewInventory()}
	require.NoError(t, store.Place(obj, 0, 0))

	w := &gamevalue.World{
		Store:           store,
		Collectives:     collective.NewTable(nil, 1, limits),
		Tags:            ti,
		GameStats:       stats.New(),
		CollectiveStats: nil,
		AgentStats:      nil,
	}
	actor := store.Object(id)
	return Context{Actor: actor, World: w}, actor
}

func TestHandler_DispatchAppliesMutationsOnMatch(t *testing.T) {
	ctx, actor := newTestContext(t)
	actor.Inventory.Delta(resHeart, 5)

	h := &Handler{
		Name:    "gain_on_threshold",
		Filters: []filter.Filter{&filter.ResourceFilter{Subject: filter.SubjectActor, Minimums: map[ids.ResourceID]int{resHeart: 3}}},
		Mutations: []mutation.Mutation{
			&mutation.ResourceDeltaMutation{Subject: mutation.SubjectActor, Deltas: map[ids.ResourceID]int{resHeart: 1}},
		},
	}

	fired := h.Dispatch(ctx)
	assert.True(t, fired)
	assert.Equal(t, 6, actor.Inventory.Get(resHeart))
}

func TestHandler_DispatchSkipsMutationsWhenFilterFails(t *testing.T) {
	ctx, actor := newTestContext(t)

	h := &Handler{
		Name:    "gain_on_threshold",
		Filters: []filter.Filter{&filter.ResourceFilter{Subject: filter.SubjectActor, Minimums: map[ids.ResourceID]int{resHeart: 3}}},
		Mutations: []mutation.Mutation{
			&mutation.ResourceDeltaMutation{Subject: mutation.SubjectActor, Deltas: map[ids.ResourceID]int{resHeart: 1}},
		},
	}

	fired := h.Dispatch(ctx)
	assert.False(t, fired)
	assert.Equal(t, 0, actor.Inventory.Get(resHeart))
}

func TestMultiHandler_FirstMatchStopsAtFirstHit(t *testing.T) {
	ctx, actor := newTestContext(t)
	actor.Inventory.Delta(resHeart, 5)

	always := &Handler{
		Name:      "always",
		Mutations: []mutation.Mutation{&mutation.ResourceDeltaMutation{Subject: mutation.SubjectActor, Deltas: map[ids.ResourceID]int{resHeart: 1}}},
	}
	alsoAlways := &Handler{
		Name:      "also_always",
		Mutations: []mutation.Mutation{&mutation.ResourceDeltaMutation{Subject: mutation.SubjectActor, Deltas: map[ids.ResourceID]int{resHeart: 100}}},
	}

	mh := &MultiHandler{Mode: FirstMatch, Handlers: []*Handler{always, alsoAlways}}
	fired := mh.Dispatch(ctx)

	assert.Equal(t, []string{"always"}, fired)
	assert.Equal(t, 6, actor.Inventory.Get(resHeart))
}

func TestMultiHandler_AllRunsEveryMatch(t *testing.T) {
	ctx, actor := newTestContext(t)
	actor.Inventory.Delta(resHeart, 5)

	first := &Handler{
		Name:      "first",
		Mutations: []mutation.Mutation{&mutation.ResourceDeltaMutation{Subject: mutation.SubjectActor, Deltas: map[ids.ResourceID]int{resHeart: 1}}},
	}
	second := &Handler{
		Name:      "second",
		Mutations: []mutation.Mutation{&mutation.ResourceDeltaMutation{Subject: mutation.SubjectActor, Deltas: map[ids.ResourceID]int{resHeart: 2}}},
	}

	mh := &MultiHandler{Mode: All, Handlers: []*Handler{first, second}}
	fired := mh.Dispatch(ctx)

	assert.Equal(t, []string{"first", "second"}, fired)
	assert.Equal(t, 8, actor.Inventory.Get(resHeart))
}
