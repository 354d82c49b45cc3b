// Package event implements the timestep-driven scheduler of spec §4.9:
// EventConfigs fire on registered ticks, select targets via the tag index
// and filters, apply mutations, and may fall back to a named event when
// nothing passed.
package event

import (
	"mettagrid/internal/simcore/filter"
	"mettagrid/internal/simcore/gamevalue"
	"mettagrid/internal/simcore/ids"
	"mettagrid/internal/simcore/mutation"
)

// MaxTargets of 0 means "unlimited" — the same convention as an unset/None
// value in the source config schema, since Go has no optional-int type
// distinct from zero; config.Resolve maps both "omitted" and "0" onto this.
const MaxTargetsUnlimited = 0

// Config is one EventConfig: the timesteps it fires on, how it selects and
// filters candidates, what it does to them, and an optional fallback.
type Config struct {
	Name        string
	Timesteps   map[int]bool
	TargetTagID ids.TagID
	Filters     []filter.Filter
	MaxTargets  int
	Mutations   []mutation.Mutation
	Fallback    string // name of another registered Config to fire once if this one selects zero targets
}

// Schedule owns every registered event and dispatches the ones due on a
// given tick.
type Schedule struct {
	byName []*Config
	index  map[string]int
}

// NewSchedule builds a schedule from configs, in registration order.
func NewSchedule(configs []*Config) *Schedule {
	s := &Schedule{byName: configs, index: make(map[string]int, len(configs))}
	for i, c := range configs {
		s.index[c.Name] = i
	}
	return s
}

// Tick runs every event whose Timesteps contains tick, per spec §4.9.
func (s *Schedule) Tick(tick int, world *gamevalue.World) {
	for _, cfg := range s.byName {
		if cfg.Timesteps[tick] {
			s.fire(cfg, world, true)
		}
	}
}

// fire runs one event's selection+mutation pipeline. allowFallback guards
// against a fallback chain re-triggering its own fallback.
func (s *Schedule) fire(cfg *Config, world *gamevalue.World, allowFallback bool) {
	candidates := world.Tags.Members(cfg.TargetTagID)
	selected := make([]ids.ObjectID, 0, len(candidates))
	for _, id := range candidates {
		target := world.Store.Object(id)
		if target == nil || !target.Alive {
			continue
		}
		fctx := filter.Context{Target: target, World: world}
		if !filter.All(cfg.Filters, fctx) {
			continue
		}
		selected = append(selected, id)
		if cfg.MaxTargets != MaxTargetsUnlimited && len(selected) >= cfg.MaxTargets {
			break
		}
	}

	for _, id := range selected {
		target := world.Store.Object(id)
		mctx := mutation.Context{Target: target, World: world}
		for _, m := range cfg.Mutations {
			m.Apply(mctx)
		}
	}

	if len(selected) == 0 && allowFallback && cfg.Fallback != "" {
		if idx, ok := s.index[cfg.Fallback]; ok {
			s.fire(s.byName[idx], world, false)
		}
	}
}
