package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mettagrid/internal/simcore/gridworld"
	"mettagrid/internal/simcore/ids"
	"mettagrid/internal/simcore/tagindex"
)

func newQueryStore(t *testing.T, n int) (*gridworld.Store, *tagindex.TagIndex, []ids.ObjectID) {
	t.Helper()
	limits := gridworld.NewLimitTable(1, 100)
	grid := gridworld.NewGrid(10, 10)
	store := gridworld.NewStore(grid, 1, limits)
	ti := tagindex.New(8)
	store.SetTagObserver(ti)

	var placed []ids.ObjectID
	for i := 0; i < n; i++ {
		id := store.Reserve()
		require.NoError(t, store.Place(gridworld.Object{ID: id, Inventory: store.NewInventory()}, 0, i))
		store.AddTag(id, 3)
		placed = append(placed, id)
	}
	return store, ti, placed
}

func TestQuery_RunMatchesSourceTagInOrder(t *testing.T) {
	store, ti, placed := newQueryStore(t, 3)
	q := &Query{SourceTag: 3}
	got := q.Run(store, ti, nil)
	assert.Equal(t, placed, got)
}

func TestQuery_MaxItemsTruncates(t *testing.T) {
	store, ti, placed := newQueryStore(t, 5)
	q := &Query{SourceTag: 3, MaxItems: 2}
	got := q.Run(store, ti, nil)
	assert.Equal(t, placed[:2], got)
}

func TestQuery_OrderLastReverses(t *testing.T) {
	store, ti, placed := newQueryStore(t, 3)
	q := &Query{SourceTag: 3, OrderBy: OrderLast}
	got := q.Run(store, ti, nil)
	assert.Equal(t, []ids.ObjectID{placed[2], placed[1], placed[0]}, got)
}

func TestQuery_FiltersExcludeNonMatching(t *testing.T) {
	store, ti, placed := newQueryStore(t, 3)
	q := &Query{
		SourceTag: 3,
		Filters:   []Predicate{func(o *gridworld.Object) bool { return o.ID == placed[1] }},
	}
	got := q.Run(store, ti, nil)
	assert.Equal(t, []ids.ObjectID{placed[1]}, got)
}

func TestQuery_SkipsDeadObjects(t *testing.T) {
	store, ti, placed := newQueryStore(t, 3)
	store.Remove(placed[1])
	q := &Query{SourceTag: 3}
	got := q.Run(store, ti, nil)
	assert.Equal(t, []ids.ObjectID{placed[0], placed[2]}, got)
}

func TestClosureQuery_BFSRespectsHopCap(t *testing.T) {
	store, _, placed := newQueryStore(t, 4) // chain of 4 objects, adjacent by column
	cq := &ClosureQuery{
		Sources:    []ids.ObjectID{placed[0]},
		Candidates: []ids.ObjectID{placed[1], placed[2], placed[3]},
		EdgeFilters: []EdgeFilter{{
			MaxHops: 2,
			Predicate: func(from, to *gridworld.Object) bool {
				return to.Col == from.Col+1 // only adjacent columns connect
			},
		}},
	}
	got := cq.Run(store)
	assert.Equal(t, []ids.ObjectID{placed[1], placed[2]}, got)
}

func TestClosureQuery_NoPathMeansUnreached(t *testing.T) {
	store, _, placed := newQueryStore(t, 3)
	cq := &ClosureQuery{
		Sources:    []ids.ObjectID{placed[0]},
		Candidates: []ids.ObjectID{placed[1], placed[2]},
		EdgeFilters: []EdgeFilter{{
			MaxHops:   5,
			Predicate: func(from, to *gridworld.Object) bool { return false },
		}},
	}
	got := cq.Run(store)
	assert.Empty(t, got)
}

func TestMaterialize_TagsEveryMatch(t *testing.T) {
	store, ti, placed := newQueryStore(t, 3)
	q := &Query{SourceTag: 3}
	Materialize(q, 7, store, ti)

	for _, id := range placed {
		assert.True(t, store.Object(id).Tags.Has(7))
	}
}
