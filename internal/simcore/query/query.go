// Package query implements the selector described in spec §3/Glossary:
// {source, filters, max_items, order_by}, plus the ClosureQuery BFS
// reachability variant and MaterializedQuery init-time tagging.
package query

import (
	"math/rand"
	"sort"

	"mettagrid/internal/simcore/gridworld"
	"mettagrid/internal/simcore/ids"
	"mettagrid/internal/simcore/tagindex"
)

// OrderBy selects how matched candidates are ordered/sampled.
type OrderBy uint8

const (
	OrderFirst OrderBy = iota
	OrderLast
	OrderRandom
)

// Predicate is a compiled, context-free candidate test. Filter package
// instances compile down to these so query never imports filter (the
// dependency runs filter -> query, not the reverse).
type Predicate func(candidate *gridworld.Object) bool

// Query is a selector over the tag index, optionally nested over another
// query's results.
type Query struct {
	SourceTag ids.TagID
	Nested    *Query
	Filters   []Predicate
	MaxItems  int // 0 = unlimited
	OrderBy   OrderBy
}

// candidates returns the unfiltered source population in tag-index
// insertion order (or the nested query's own result order).
func (q *Query) candidates(store *gridworld.Store, tags *tagindex.TagIndex, rng *rand.Rand) []ids.ObjectID {
	if q.Nested != nil {
		return q.Nested.Run(store, tags, rng)
	}
	members := tags.Members(q.SourceTag)
	out := make([]ids.ObjectID, len(members))
	copy(out, members)
	return out
}

// Run evaluates the query and returns matched object ids.
func (q *Query) Run(store *gridworld.Store, tags *tagindex.TagIndex, rng *rand.Rand) []ids.ObjectID {
	cands := q.candidates(store, tags, rng)
	matched := make([]ids.ObjectID, 0, len(cands))
	for _, id := range cands {
		obj := store.Object(id)
		if obj == nil || !obj.Alive {
			continue
		}
		ok := true
		for _, f := range q.Filters {
			if !f(obj) {
				ok = false
				break
			}
		}
		if ok {
			matched = append(matched, id)
		}
	}

	switch q.OrderBy {
	case OrderLast:
		for i, j := 0, len(matched)-1; i < j; i, j = i+1, j-1 {
			matched[i], matched[j] = matched[j], matched[i]
		}
	case OrderRandom:
		if rng != nil {
			rng.Shuffle(len(matched), func(i, j int) { matched[i], matched[j] = matched[j], matched[i] })
		}
	case OrderFirst:
		// already in insertion order
	}

	if q.MaxItems > 0 && len(matched) > q.MaxItems {
		matched = matched[:q.MaxItems]
	}
	return matched
}

// EdgeFilter is one hop predicate for ClosureQuery, with its own hop-distance
// cap (a BFS depth cap, confirmed against the reference implementation's
// tests/test_closure_query.py — not a path-length bound).
type EdgeFilter struct {
	Predicate func(from, to *gridworld.Object) bool
	MaxHops   int
}

// ClosureQuery floods from Sources through Candidates via EdgeFilters,
// collecting every candidate reached within its edge filter's hop cap.
type ClosureQuery struct {
	Sources     []ids.ObjectID
	Candidates  []ids.ObjectID
	EdgeFilters []EdgeFilter
}

// Run returns the reachable candidates, sorted by ascending ObjectID for
// determinism.
func (cq *ClosureQuery) Run(store *gridworld.Store) []ids.ObjectID {
	visited := make(map[ids.ObjectID]int, len(cq.Candidates)) // id -> hop distance
	frontier := make([]ids.ObjectID, 0, len(cq.Sources))
	for _, id := range cq.Sources {
		visited[id] = 0
		frontier = append(frontier, id)
	}

	candSet := make(map[ids.ObjectID]bool, len(cq.Candidates))
	for _, id := range cq.Candidates {
		candSet[id] = true
	}

	for len(frontier) > 0 {
		var next []ids.ObjectID
		for _, fromID := range frontier {
			fromObj := store.Object(fromID)
			if fromObj == nil {
				continue
			}
			hops := visited[fromID]
			for _, toID := range cq.Candidates {
				if _, seen := visited[toID]; seen {
					continue
				}
				toObj := store.Object(toID)
				if toObj == nil || !toObj.Alive {
					continue
				}
				for _, ef := range cq.EdgeFilters {
					if hops >= ef.MaxHops {
						continue
					}
					if ef.Predicate(fromObj, toObj) {
						visited[toID] = hops + 1
						next = append(next, toID)
						break
					}
				}
			}
		}
		frontier = next
	}

	result := make([]ids.ObjectID, 0, len(candSet))
	for id := range candSet {
		if _, ok := visited[id]; ok {
			result = append(result, id)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i] < result[j] })
	return result
}

// Materialize runs q once and tags every matched object with tagID,
// implementing the init-only MaterializedQuery of spec §3/§4.14.
func Materialize(q *Query, tagID ids.TagID, store *gridworld.Store, tags *tagindex.TagIndex) {
	for _, id := range q.Run(store, tags, nil) {
		store.AddTag(id, tagID)
	}
}
