package aoe

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mettagrid/internal/simcore/collective"
	"mettagrid/internal/simcore/gamevalue"
	"mettagrid/internal/simcore/gridworld"
	"mettagrid/internal/simcore/handler"
	"mettagrid/internal/simcore/ids"
	"mettagrid/internal/simcore/mutation"
	"mettagrid/internal/simcore/stats"
	"mettagrid/internal/simcore/tagindex"
)

const resHeart ids.ResourceID = 0

func newWorld(t *testing.T) (*gridworld.Grid, *gridworld.Store, *gamevalue.World) {
	t.Helper()
	limits := gridworld.NewLimitTable(1, 100)
	grid := gridworld.NewGrid(5, 5)
	store := gridworld.NewStore(grid, 1, limits)
	ti := tagindex.New(4)
	store.SetTagObserver(ti)
	w := &gamevalue.World{
		Store:       store,
		Collectives: collective.NewTable(nil, 1, limits),
		Tags:        ti,
		GameStats:   stats.New(),
	}
	return grid, store, w
}

func place(t *testing.T, store *gridworld.Store, row, col int) *gridworld.Object {
	t.Helper()
	id := store.Reserve()
	obj := gridworld.Object{ID: id, Inventory: store.NewInventory()}
	require.NoError(t, store.Place(obj, row, col))
	return store.Object(id)
}

func TestSystem_StaticAOEGrantsOnEachTick(t *testing.T) {
	_, store, w := newWorld(t)
	source := place(t, store, 2, 2)
	target := place(t, store, 2, 3)

	sys := New(store.Grid())
	cfg := &Config{
		Radius: 1,
		Metric: gridworld.Chebyshev,
		Handlers: &handler.MultiHandler{Mode: handler.All, Handlers: []*handler.Handler{{
			Name:      "grant",
			Mutations: []mutation.Mutation{&mutation.ResourceDeltaMutation{Subject: mutation.SubjectTarget, Deltas: map[ids.ResourceID]int{resHeart: 1}}},
		}}},
	}
	sys.Register(source.ID, cfg, source.Row, source.Col)

	sys.Tick(store, w)
	sys.Tick(store, w)

	assert.Equal(t, 2, target.Inventory.Get(resHeart))
}

func TestSystem_EffectSelfFalseSkipsSourceCell(t *testing.T) {
	_, store, w := newWorld(t)
	source := place(t, store, 2, 2)

	sys := New(store.Grid())
	cfg := &Config{
		Radius:     1,
		Metric:     gridworld.Chebyshev,
		EffectSelf: false,
		Handlers: &handler.MultiHandler{Mode: handler.All, Handlers: []*handler.Handler{{
			Name:      "grant",
			Mutations: []mutation.Mutation{&mutation.ResourceDeltaMutation{Subject: mutation.SubjectTarget, Deltas: map[ids.ResourceID]int{resHeart: 1}}},
		}}},
	}
	sys.Register(source.ID, cfg, source.Row, source.Col)
	sys.Tick(store, w)

	assert.Equal(t, 0, source.Inventory.Get(resHeart))
}

func TestSystem_PresenceDeltaFiresOnceOnEntryAndExit(t *testing.T) {
	_, store, w := newWorld(t)
	source := place(t, store, 2, 2)
	target := place(t, store, 0, 0)

	sys := New(store.Grid())
	cfg := &Config{
		Radius: 1,
		Metric: gridworld.Chebyshev,
		Mobile: true,
		OnEnter: []mutation.Mutation{
			&mutation.ResourceDeltaMutation{Subject: mutation.SubjectTarget, Deltas: map[ids.ResourceID]int{resHeart: 5}},
		},
		OnExit: []mutation.Mutation{
			&mutation.ResourceDeltaMutation{Subject: mutation.SubjectTarget, Deltas: map[ids.ResourceID]int{resHeart: -5}},
		},
	}
	sys.Register(source.ID, cfg, source.Row, source.Col)

	require.NoError(t, store.Move(target.ID, 2, 3))
	sys.Tick(store, w)
	assert.Equal(t, 5, target.Inventory.Get(resHeart))

	sys.Tick(store, w)
	assert.Equal(t, 5, target.Inventory.Get(resHeart), "entry mutation must not re-fire while still present")

	require.NoError(t, store.Move(target.ID, 4, 4))
	sys.Tick(store, w)
	assert.Equal(t, 0, target.Inventory.Get(resHeart))
}

func TestSystem_SourcesProcessedInAscendingObjectID(t *testing.T) {
	_, store, _ := newWorld(t)
	sys := New(store.Grid())
	later := place(t, store, 0, 0)
	earlier := place(t, store, 0, 1)
	// Reserve later first so its ObjectID is smaller, to assert sort order
	// is by ObjectID regardless of registration order.
	sys.Register(earlier.ID, &Config{Radius: 0, Metric: gridworld.Chebyshev}, earlier.Row, earlier.Col)
	sys.Register(later.ID, &Config{Radius: 0, Metric: gridworld.Chebyshev}, later.Row, later.Col)

	require.Len(t, sys.sources, 2)
	assert.True(t, sys.sources[0].objectID <= sys.sources[1].objectID)
}
