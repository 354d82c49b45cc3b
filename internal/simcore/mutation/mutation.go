// Package mutation implements the effect primitives of spec §4.6: the
// ordered list of side-effecting operations a Handler applies once its
// filters pass. Mutations never fail — they clamp, no-op on a missing
// target, or silently skip, matching the inventory/tag APIs they build on.
package mutation

import (
	"mettagrid/internal/simcore/gamevalue"
	"mettagrid/internal/simcore/gridworld"
	"mettagrid/internal/simcore/ids"
	"mettagrid/internal/simcore/query"
	"mettagrid/internal/simcore/stats"
)

// Subject selects which side of the call-time {actor, target} pair a
// mutation acts on. Kept as its own tiny enum (rather than importing
// filter.Subject) so mutation has no dependency on filter; handler wires the
// two together.
type Subject uint8

const (
	SubjectActor Subject = iota
	SubjectTarget
)

// Context is the call-time evaluation context a mutation applies against.
type Context struct {
	Actor, Target *gridworld.Object
	World         *gamevalue.World
}

func (c Context) resolve(s Subject) *gridworld.Object {
	if s == SubjectActor {
		return c.Actor
	}
	return c.Target
}

// Mutation is one ordered effect step. A Handler applies its mutation list
// in sequence against the same Context, per spec §4.7.
type Mutation interface {
	Apply(ctx Context)
}

// ResourceDeltaMutation applies Deltas to the subject's inventory, then
// removes the subject from the simulation if any resource named in
// RemoveWhenEmpty reads zero afterward (e.g. a chest emptied by the last
// withdrawal).
type ResourceDeltaMutation struct {
	Subject         Subject
	Deltas          map[ids.ResourceID]int
	RemoveWhenEmpty []ids.ResourceID
}

func (m *ResourceDeltaMutation) Apply(ctx Context) {
	obj := ctx.resolve(m.Subject)
	if obj == nil {
		return
	}
	for r, d := range m.Deltas {
		obj.Inventory.Delta(r, d)
	}
	for _, r := range m.RemoveWhenEmpty {
		if obj.Inventory.Get(r) == 0 {
			ctx.World.Store.Remove(obj.ID)
			break
		}
	}
}

// ResourceTransferMutation withdraws Amount of Resource from From (clamped
// by its current holdings) and deposits whatever was actually withdrawn into
// To (clamped by To's capacity) — a source that's short, or a destination
// that's full, loses the difference rather than erroring.
type ResourceTransferMutation struct {
	From, To Subject
	Resource ids.ResourceID
	Amount   int
}

func (m *ResourceTransferMutation) Apply(ctx Context) {
	from := ctx.resolve(m.From)
	to := ctx.resolve(m.To)
	if from == nil || to == nil {
		return
	}
	withdrawnDelta, _ := from.Inventory.Delta(m.Resource, -m.Amount)
	removed := -withdrawnDelta
	if removed <= 0 {
		return
	}
	to.Inventory.Delta(m.Resource, removed)
}

// AlignTo enumerates what AlignmentMutation realigns the subject to.
type AlignTo uint8

const (
	AlignActorCollective AlignTo = iota
	AlignNone
)

// AlignmentMutation changes the subject's collective membership. If
// HasSpecific is set it takes priority and assigns CollectiveID directly
// (mirrors AlignmentFilter's own HasSpecific precedence); otherwise AlignTo
// picks between "join the actor's collective" and "become unaligned".
type AlignmentMutation struct {
	Subject      Subject
	AlignTo      AlignTo
	CollectiveID ids.CollectiveID
	HasSpecific  bool
}

func (m *AlignmentMutation) Apply(ctx Context) {
	obj := ctx.resolve(m.Subject)
	if obj == nil {
		return
	}
	if m.HasSpecific {
		obj.CollectiveID = m.CollectiveID
		return
	}
	switch m.AlignTo {
	case AlignActorCollective:
		if ctx.Actor != nil {
			obj.CollectiveID = ctx.Actor.CollectiveID
		}
	case AlignNone:
		obj.CollectiveID = ids.NoCollective
	}
}

// FreezeMutation sets the subject agent's remaining freeze duration. A
// no-op against a non-agent target.
type FreezeMutation struct {
	Subject  Subject
	Duration int
}

func (m *FreezeMutation) Apply(ctx Context) {
	obj := ctx.resolve(m.Subject)
	if obj == nil || obj.Agent == nil {
		return
	}
	obj.Agent.FreezeDurationRemaining = m.Duration
}

// ClearInventoryMutation zeroes the entire limit group Resource belongs to
// on the subject's inventory (or just Resource itself if it is ungrouped).
type ClearInventoryMutation struct {
	Subject  Subject
	Resource ids.ResourceID
}

func (m *ClearInventoryMutation) Apply(ctx Context) {
	obj := ctx.resolve(m.Subject)
	if obj == nil {
		return
	}
	obj.Inventory.ZeroGroup(m.Resource)
}

// StatsScope selects which stat table StatsMutation writes into.
type StatsScope uint8

const (
	StatsAgent StatsScope = iota
	StatsCollective
	StatsGame
)

// StatsMutation accumulates Delta into a named stat, scoped to the subject's
// agent, the subject's collective, or the game-wide table.
type StatsMutation struct {
	Subject Subject
	Scope   StatsScope
	Name    string
	Delta   float64
}

func (m *StatsMutation) Apply(ctx Context) {
	switch m.Scope {
	case StatsGame:
		ctx.World.GameStats.Add(m.Name, m.Delta)
	case StatsCollective:
		obj := ctx.resolve(m.Subject)
		if obj == nil || obj.CollectiveID == ids.NoCollective || int(obj.CollectiveID) >= len(ctx.World.CollectiveStats) {
			return
		}
		ctx.World.CollectiveStats[obj.CollectiveID].Add(m.Name, m.Delta)
	case StatsAgent:
		obj := ctx.resolve(m.Subject)
		if obj == nil || obj.Agent == nil || obj.Agent.AgentID >= len(ctx.World.AgentStats) {
			return
		}
		ctx.World.AgentStats[obj.Agent.AgentID].Add(m.Name, m.Delta)
	}
}

// AddTagMutation adds Tag to the subject's tag set (routed through the
// store so the tag index stays consistent).
type AddTagMutation struct {
	Subject Subject
	Tag     ids.TagID
}

func (m *AddTagMutation) Apply(ctx Context) {
	if obj := ctx.resolve(m.Subject); obj != nil {
		ctx.World.Store.AddTag(obj.ID, m.Tag)
	}
}

// RemoveTagMutation removes Tag from the subject's tag set.
type RemoveTagMutation struct {
	Subject Subject
	Tag     ids.TagID
}

func (m *RemoveTagMutation) Apply(ctx Context) {
	if obj := ctx.resolve(m.Subject); obj != nil {
		ctx.World.Store.RemoveTag(obj.ID, m.Tag)
	}
}

// RemoveTagsWithPrefixMutation strips every tag in Mask from the subject.
type RemoveTagsWithPrefixMutation struct {
	Subject Subject
	Mask    gridworld.TagSet
}

func (m *RemoveTagsWithPrefixMutation) Apply(ctx Context) {
	obj := ctx.resolve(m.Subject)
	if obj == nil {
		return
	}
	var toRemove []ids.TagID
	obj.Tags.Each(func(t ids.TagID) {
		if m.Mask.Has(t) {
			toRemove = append(toRemove, t)
		}
	})
	for _, t := range toRemove {
		ctx.World.Store.RemoveTag(obj.ID, t)
	}
}

// QueryInventoryMutation applies Deltas to the inventory of every object
// matched by Query — e.g. "every adjacent ally gains 1 heart" expressed as a
// NearFilter-backed query rather than a single subject.
type QueryInventoryMutation struct {
	Query  *query.Query
	Deltas map[ids.ResourceID]int
}

func (m *QueryInventoryMutation) Apply(ctx Context) {
	for _, id := range m.Query.Run(ctx.World.Store, ctx.World.Tags, ctx.World.RNG) {
		obj := ctx.World.Store.Object(id)
		if obj == nil {
			continue
		}
		for r, d := range m.Deltas {
			obj.Inventory.Delta(r, d)
		}
	}
}

// SetGameValueMutation writes a computed amount into the inventory or stat
// slot identified by Value. The amount is either Source evaluated against
// the current context (if Source is set) or the static Delta. Accumulate
// selects add-to-running-value versus overwrite semantics, matching
// SetGameValueMutation's per_tick flag in the reference config schema.
type SetGameValueMutation struct {
	Subject     Subject
	Value       gamevalue.Value // Kind must be KindInventory or KindStat
	Source      *gamevalue.Value
	StaticDelta float64
	Accumulate  bool
}

func (m *SetGameValueMutation) Apply(ctx Context) {
	obj := ctx.resolve(m.Subject)
	amount := m.StaticDelta
	if m.Source != nil {
		amount = gamevalue.Eval(*m.Source, ctx.World, gamevalue.Context{Actor: obj, Target: ctx.Target})
	}

	switch m.Value.Kind {
	case gamevalue.KindInventory:
		m.applyInventory(ctx, obj, amount)
	case gamevalue.KindStat:
		m.applyStat(ctx, obj, amount)
	}
}

func (m *SetGameValueMutation) applyInventory(ctx Context, obj *gridworld.Object, amount float64) {
	var inv *gridworld.Inventory
	switch m.Value.Scope {
	case gamevalue.ScopeAgent:
		if obj == nil {
			return
		}
		inv = &obj.Inventory
	case gamevalue.ScopeCollective:
		if obj == nil || obj.CollectiveID == ids.NoCollective {
			return
		}
		c := ctx.World.Collectives.Get(obj.CollectiveID)
		if c == nil {
			return
		}
		inv = &c.Inventory
	case gamevalue.ScopeGame:
		// GAME scope has no single inventory to write; the sum is read-only.
		return
	}
	if m.Accumulate {
		inv.Delta(m.Value.Resource, int(amount))
	} else {
		inv.Set(m.Value.Resource, int(amount))
	}
}

func (m *SetGameValueMutation) applyStat(ctx Context, obj *gridworld.Object, amount float64) {
	var table *stats.Table
	switch m.Value.Scope {
	case gamevalue.ScopeAgent:
		if obj == nil || obj.Agent == nil || obj.Agent.AgentID >= len(ctx.World.AgentStats) {
			return
		}
		table = ctx.World.AgentStats[obj.Agent.AgentID]
	case gamevalue.ScopeCollective:
		if obj == nil || obj.CollectiveID == ids.NoCollective || int(obj.CollectiveID) >= len(ctx.World.CollectiveStats) {
			return
		}
		table = ctx.World.CollectiveStats[obj.CollectiveID]
	case gamevalue.ScopeGame:
		table = ctx.World.GameStats
	}
	if table == nil {
		return
	}
	if m.Accumulate {
		table.Add(m.Value.StatName, amount)
	} else {
		table.Set(m.Value.StatName, amount)
	}
}

// RecomputeQueryTagMutation re-runs Query and rewrites Tag's membership to
// exactly its result set: objects that drop out of the match lose Tag,
// newly-matching objects gain it. Rarely used at runtime (most configs tag
// once via MaterializedQuery at init) but needed for handlers that must
// react to a moving query result, e.g. a "current leader" tag.
type RecomputeQueryTagMutation struct {
	Query *query.Query
	Tag   ids.TagID
}

func (m *RecomputeQueryTagMutation) Apply(ctx Context) {
	matched := m.Query.Run(ctx.World.Store, ctx.World.Tags, ctx.World.RNG)
	matchedSet := make(map[ids.ObjectID]bool, len(matched))
	for _, id := range matched {
		matchedSet[id] = true
	}

	current := append([]ids.ObjectID(nil), ctx.World.Tags.Members(m.Tag)...)
	for _, id := range current {
		if !matchedSet[id] {
			ctx.World.Store.RemoveTag(id, m.Tag)
		}
	}
	for _, id := range matched {
		ctx.World.Store.AddTag(id, m.Tag)
	}
}
