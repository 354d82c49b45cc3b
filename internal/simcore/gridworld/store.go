package gridworld

import "mettagrid/internal/simcore/ids"

// TagObserver is notified of tag membership changes so a tag index can stay
// live without gridworld importing it directly (avoids an import cycle,
// since the tag index is also consulted by filters/queries that reference
// objects).
type TagObserver interface {
	TagAdded(id ids.ObjectID, tid ids.TagID)
	TagRemoved(id ids.ObjectID, tid ids.TagID)
}

// Store owns the grid's cell map and the arena of objects placed on it. It
// is the merged "Grid & object store" component of spec §4.1: every
// mutation to an object's position or tag set passes through here so the
// cell-map and tag-index invariants stay consistent.
type Store struct {
	grid         *Grid
	objects      []Object // indexed by ObjectID
	numResources int
	limits       *LimitTable
	tagObserver  TagObserver
	nextAgentID  int
}

// NewStore creates an empty store bound to grid.
func NewStore(grid *Grid, numResources int, limits *LimitTable) *Store {
	return &Store{grid: grid, numResources: numResources, limits: limits}
}

// SetTagObserver installs the tag index (or any observer) to receive
// TagAdded/TagRemoved notifications from here on.
func (s *Store) SetTagObserver(obs TagObserver) { s.tagObserver = obs }

// Grid returns the underlying cell map.
func (s *Store) Grid() *Grid { return s.grid }

// NewInventory returns a zero inventory sized for this store's resource
// table, for use when constructing a new Object.
func (s *Store) NewInventory() Inventory {
	return NewInventory(s.numResources, s.limits)
}

// Reserve allocates a fresh, never-reused ObjectID without placing it.
func (s *Store) Reserve() ids.ObjectID {
	id := ids.ObjectID(len(s.objects))
	s.objects = append(s.objects, Object{ID: id, Alive: false})
	return id
}

// ReserveAgentID hands out the next dense agent id [0..N).
func (s *Store) ReserveAgentID() int {
	id := s.nextAgentID
	s.nextAgentID++
	return id
}

// Place installs obj (whose ID must come from Reserve) at (row, col) and
// fires TagAdded for every tag obj already carries (typically the "auto"
// type:<name> tag set by the caller before Place).
func (s *Store) Place(obj Object, row, col int) error {
	if err := s.grid.Place(obj.ID, row, col); err != nil {
		return err
	}
	obj.Row, obj.Col = row, col
	obj.Alive = true
	s.objects[obj.ID] = obj
	if s.tagObserver != nil {
		s.objects[obj.ID].Tags.Each(func(t ids.TagID) {
			s.tagObserver.TagAdded(obj.ID, t)
		})
	}
	return nil
}

// Object returns a pointer to the live object record for id. The pointer is
// only valid until the next Reserve call (which may grow the backing
// slice); callers must not retain it across a tick boundary.
func (s *Store) Object(id ids.ObjectID) *Object {
	if id < 0 || int(id) >= len(s.objects) {
		return nil
	}
	return &s.objects[id]
}

// At returns the live object at (row, col), or nil.
func (s *Store) At(row, col int) *Object {
	id, ok := s.grid.At(row, col)
	if !ok {
		return nil
	}
	return s.Object(id)
}

// Move relocates id to (newRow, newCol).
func (s *Store) Move(id ids.ObjectID, newRow, newCol int) error {
	obj := s.Object(id)
	if obj == nil || !obj.Alive {
		return nil
	}
	if err := s.grid.Move(id, obj.Row, obj.Col, newRow, newCol); err != nil {
		return err
	}
	obj.Row, obj.Col = newRow, newCol
	return nil
}

// Remove marks id dead, clears its cell, and fires TagRemoved for every tag
// it carried, per spec §4.1/§4.2.
func (s *Store) Remove(id ids.ObjectID) {
	obj := s.Object(id)
	if obj == nil || !obj.Alive {
		return
	}
	s.grid.Clear(obj.Row, obj.Col)
	obj.Alive = false
	if s.tagObserver != nil {
		obj.Tags.Each(func(t ids.TagID) {
			s.tagObserver.TagRemoved(id, t)
		})
	}
}

// AddTag adds tid to id's tag set and reports whether it was newly added
// (fires TagAdded only on a real transition, per spec §4.2).
func (s *Store) AddTag(id ids.ObjectID, tid ids.TagID) bool {
	obj := s.Object(id)
	if obj == nil {
		return false
	}
	if !obj.Tags.Add(tid) {
		return false
	}
	if s.tagObserver != nil {
		s.tagObserver.TagAdded(id, tid)
	}
	return true
}

// RemoveTag removes tid from id's tag set and reports whether it was
// present.
func (s *Store) RemoveTag(id ids.ObjectID, tid ids.TagID) bool {
	obj := s.Object(id)
	if obj == nil {
		return false
	}
	if !obj.Tags.Remove(tid) {
		return false
	}
	if s.tagObserver != nil {
		s.tagObserver.TagRemoved(id, tid)
	}
	return true
}

// Len returns the number of reserved object slots (including dead ones).
func (s *Store) Len() int { return len(s.objects) }

// Each calls fn for every live object in ascending ObjectID order — the
// deterministic order spec §5 requires for on_tick/AOE iteration.
func (s *Store) Each(fn func(*Object)) {
	for i := range s.objects {
		if s.objects[i].Alive {
			fn(&s.objects[i])
		}
	}
}

// NumResources reports the resource table size this store's inventories use.
func (s *Store) NumResources() int { return s.numResources }
