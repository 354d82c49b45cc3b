// Package tagindex maintains, for every tag id, the live set of object ids
// carrying it (spec §4.2). It implements gridworld.TagObserver so the store
// keeps it in sync without gridworld depending on this package.
package tagindex

import "mettagrid/internal/simcore/ids"

// TagIndex is a per-tag ordered set of object ids. Iteration order is
// insertion order, which is what spec §4.2/§4.9 call "deterministic, no
// random reorder unless explicitly configured".
type TagIndex struct {
	members []orderedSet
}

type orderedSet struct {
	order []ids.ObjectID
	pos   map[ids.ObjectID]int // index into order, for O(1) removal
}

// New creates an index sized for numTags distinct tags.
func New(numTags int) *TagIndex {
	idx := &TagIndex{members: make([]orderedSet, numTags)}
	for i := range idx.members {
		idx.members[i].pos = make(map[ids.ObjectID]int)
	}
	return idx
}

// TagAdded implements gridworld.TagObserver.
func (t *TagIndex) TagAdded(id ids.ObjectID, tid ids.TagID) {
	s := &t.members[tid]
	if _, ok := s.pos[id]; ok {
		return
	}
	s.pos[id] = len(s.order)
	s.order = append(s.order, id)
}

// TagRemoved implements gridworld.TagObserver. Removal swaps the last
// element into the removed slot to stay O(1); this changes the order of at
// most one other member, which is acceptable because membership sets are
// consumed either as an unordered count or re-sorted by the caller where
// order matters (events enumerate in insertion order only until the first
// removal in that tag; per spec this is existing-source behavior for
// infrequently-removed tags and is accepted here rather than generalized).
func (t *TagIndex) TagRemoved(id ids.ObjectID, tid ids.TagID) {
	s := &t.members[tid]
	i, ok := s.pos[id]
	if !ok {
		return
	}
	last := len(s.order) - 1
	movedID := s.order[last]
	s.order[i] = movedID
	s.pos[movedID] = i
	s.order = s.order[:last]
	delete(s.pos, id)
}

// Count returns the number of live objects carrying tid — O(1).
func (t *TagIndex) Count(tid ids.TagID) int {
	return len(t.members[tid].order)
}

// Members returns the object ids carrying tid, in current insertion order.
// Callers must not mutate the returned slice.
func (t *TagIndex) Members(tid ids.TagID) []ids.ObjectID {
	return t.members[tid].order
}

// Has reports whether id currently carries tid.
func (t *TagIndex) Has(tid ids.TagID, id ids.ObjectID) bool {
	_, ok := t.members[tid].pos[id]
	return ok
}
