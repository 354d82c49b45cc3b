// Package aoe implements the area-of-effect system of spec §4.8: static
// sources register their footprint once at placement time; mobile sources
// re-evaluate every tick. Entering/exiting an AOE's region fires a one-shot
// presence_delta mutation, tracked per (source, object) pair.
package aoe

import (
	"sort"

	"mettagrid/internal/simcore/gamevalue"
	"mettagrid/internal/simcore/gridworld"
	"mettagrid/internal/simcore/handler"
	"mettagrid/internal/simcore/ids"
	"mettagrid/internal/simcore/mutation"
)

// Config is one AOEConfig: a MultiHandler run against every object found in
// the source's region each tick, plus the optional presence-delta mutations
// fired once on entry/exit.
type Config struct {
	Name         string
	Radius       int
	Metric       gridworld.Metric
	Mobile       bool
	EffectSelf   bool
	Handlers     *handler.MultiHandler
	OnEnter      []mutation.Mutation
	OnExit       []mutation.Mutation
	PresenceStat string // optional stat name; Tick does not read it, and no stat is bumped on enter/exit
}

type source struct {
	objectID ids.ObjectID
	config   *Config
	// staticCells is non-nil for non-mobile sources: the footprint computed
	// once at registration, reused every tick without recomputation.
	staticCells []gridworld.Coord
	// present tracks which object ids are currently inside this source's
	// region, for presence-delta entry/exit detection.
	present map[ids.ObjectID]bool
}

// System owns every registered AOE source and the per-cell reverse index
// static sources populate for O(1) lookup.
type System struct {
	grid    *gridworld.Grid
	sources []*source        // ascending by objectID, the processing order spec §4.8 requires
	byCell  map[gridworld.Coord][]*source // only static sources are indexed here
}

// New creates an AOE system bound to grid.
func New(grid *gridworld.Grid) *System {
	return &System{grid: grid, byCell: make(map[gridworld.Coord][]*source)}
}

// Register adds a source. Static sources have their footprint computed and
// indexed immediately; mobile sources are recomputed every Tick call.
func (s *System) Register(objectID ids.ObjectID, cfg *Config, row, col int) {
	src := &source{objectID: objectID, config: cfg, present: make(map[ids.ObjectID]bool)}
	if !cfg.Mobile {
		src.staticCells = s.grid.Neighborhood(row, col, cfg.Radius, cfg.Metric)
		for _, c := range src.staticCells {
			s.byCell[c] = append(s.byCell[c], src)
		}
	}
	s.sources = append(s.sources, src)
	s.sortSources()
}

func (s *System) sortSources() {
	sort.SliceStable(s.sources, func(i, j int) bool { return s.sources[i].objectID < s.sources[j].objectID })
}

// Unregister removes a source's presence state and static index entries
// (called when the source object is removed from the simulation).
func (s *System) Unregister(objectID ids.ObjectID) {
	kept := s.sources[:0]
	for _, src := range s.sources {
		if src.objectID == objectID {
			for _, c := range src.staticCells {
				s.byCell[c] = removeSource(s.byCell[c], src)
			}
			continue
		}
		kept = append(kept, src)
	}
	s.sources = kept
}

func removeSource(list []*source, target *source) []*source {
	out := list[:0]
	for _, s := range list {
		if s != target {
			out = append(out, s)
		}
	}
	return out
}

// Tick evaluates every registered source in ascending object-id order: for
// mobile sources, recompute the footprint from the source's live position;
// for all sources, run matching handlers against every object in region and
// fire presence-delta mutations on membership transitions.
func (s *System) Tick(store *gridworld.Store, world *gamevalue.World) {
	for _, src := range s.sources {
		srcObj := store.Object(src.objectID)
		if srcObj == nil || !srcObj.Alive {
			continue
		}

		cells := src.staticCells
		if src.config.Mobile {
			cells = s.grid.Neighborhood(srcObj.Row, srcObj.Col, src.config.Radius, src.config.Metric)
		}

		current := make(map[ids.ObjectID]bool, len(cells))
		for _, c := range cells {
			if !src.config.EffectSelf && c.Row == srcObj.Row && c.Col == srcObj.Col {
				continue
			}
			target := store.At(c.Row, c.Col)
			if target == nil || !target.Alive {
				continue
			}
			current[target.ID] = true

			ctx := handler.Context{Actor: srcObj, Target: target, World: world}
			if src.config.Handlers != nil {
				src.config.Handlers.Dispatch(ctx)
			}
			if !src.present[target.ID] {
				applyAll(src.config.OnEnter, mutation.Context{Actor: srcObj, Target: target, World: world})
			}
		}

		for id := range src.present {
			if current[id] {
				continue
			}
			target := store.Object(id)
			if target == nil {
				continue
			}
			applyAll(src.config.OnExit, mutation.Context{Actor: srcObj, Target: target, World: world})
		}

		src.present = current
	}
}

func applyAll(ms []mutation.Mutation, ctx mutation.Context) {
	for _, m := range ms {
		m.Apply(ctx)
	}
}

// RegionCells returns the live footprint for a static source's register
// position, for use by the territory/AOE-mask observation layer (spec
// §4.11) without re-running Tick's full dispatch.
func (s *System) RegionCells(objectID ids.ObjectID) []gridworld.Coord {
	for _, src := range s.sources {
		if src.objectID == objectID {
			if !src.config.Mobile {
				return src.staticCells
			}
		}
	}
	return nil
}
