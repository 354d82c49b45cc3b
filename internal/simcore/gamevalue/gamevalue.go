// Package gamevalue evaluates the typed GameValue expressions of spec §3/
// §4.4: ConstValue, InventoryValue, StatValue, NumObjectsValue, TagCountValue.
// Used uniformly by rewards, game-value filters, observation-value
// emission, and SetGameValueMutation.
package gamevalue

import (
	"math/rand"

	"mettagrid/internal/simcore/collective"
	"mettagrid/internal/simcore/gridworld"
	"mettagrid/internal/simcore/ids"
	"mettagrid/internal/simcore/stats"
	"mettagrid/internal/simcore/tagindex"
)

// Scope selects which inventory/stat table an expression reads.
type Scope uint8

const (
	ScopeAgent Scope = iota
	ScopeCollective
	ScopeGame
)

// Kind discriminates the GameValue variant.
type Kind uint8

const (
	KindConst Kind = iota
	KindInventory
	KindStat
	KindNumObjects
	KindTagCount
)

// Value is the tagged-variant GameValue expression. Resource/Tag/TypeID are
// resolved to dense ids at config.Resolve time; no string lookups remain.
type Value struct {
	Kind     Kind
	Const    float64
	Resource ids.ResourceID
	Scope    Scope
	StatName string
	Delta    bool
	TypeID   ids.TypeID
	Tag      ids.TagID
}

// World bundles the simulation-wide state an expression, filter or mutation
// may need to consult. It is the one shared "everything" handle threaded
// through filter.Context/mutation.Context so those packages never need their
// own copies of Store/Collectives/Tags wiring.
type World struct {
	Store           *gridworld.Store
	Collectives     *collective.Table
	Tags            *tagindex.TagIndex
	GameStats       *stats.Table
	CollectiveStats []*stats.Table // indexed by ids.CollectiveID
	AgentStats      []*stats.Table // indexed by agent_id
	RNG             *rand.Rand     // drives OrderRandom query evaluation
}

// Context is the call-time {actor, target} pair evaluation runs against.
// Most GameValue kinds only consult Actor; Target exists for symmetry with
// filters/mutations that share this same context shape.
type Context struct {
	Actor  *gridworld.Object
	Target *gridworld.Object
	Tick   int
}

// Eval computes v against ctx in world w.
func Eval(v Value, w *World, ctx Context) float64 {
	switch v.Kind {
	case KindConst:
		return v.Const
	case KindInventory:
		return evalInventory(v, w, ctx)
	case KindStat:
		return evalStat(v, w, ctx)
	case KindNumObjects:
		count := 0
		w.Store.Each(func(o *gridworld.Object) {
			if o.TypeID == v.TypeID {
				count++
			}
		})
		return float64(count)
	case KindTagCount:
		return float64(w.Tags.Count(v.Tag))
	default:
		return 0
	}
}

func evalInventory(v Value, w *World, ctx Context) float64 {
	switch v.Scope {
	case ScopeAgent:
		if ctx.Actor == nil {
			return 0
		}
		return float64(ctx.Actor.Inventory.Get(v.Resource))
	case ScopeCollective:
		cid := ids.NoCollective
		if ctx.Actor != nil {
			cid = ctx.Actor.CollectiveID
		}
		return float64(w.Collectives.Amount(cid, v.Resource))
	case ScopeGame:
		sum := 0
		w.Store.Each(func(o *gridworld.Object) {
			sum += o.Inventory.Get(v.Resource)
		})
		return float64(sum)
	default:
		return 0
	}
}

func evalStat(v Value, w *World, ctx Context) float64 {
	var table *stats.Table
	switch v.Scope {
	case ScopeAgent:
		if ctx.Actor == nil || ctx.Actor.Agent == nil {
			return 0
		}
		if ctx.Actor.Agent.AgentID >= len(w.AgentStats) {
			return 0
		}
		table = w.AgentStats[ctx.Actor.Agent.AgentID]
	case ScopeCollective:
		if ctx.Actor == nil || ctx.Actor.CollectiveID == ids.NoCollective {
			return 0
		}
		if int(ctx.Actor.CollectiveID) >= len(w.CollectiveStats) {
			return 0
		}
		table = w.CollectiveStats[ctx.Actor.CollectiveID]
	case ScopeGame:
		table = w.GameStats
	}
	if table == nil {
		return 0
	}
	if v.Delta {
		return table.Delta(v.StatName)
	}
	return table.Get(v.StatName)
}
