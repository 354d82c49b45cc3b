// Package filter implements the pure, side-effect-free predicates of spec
// §4.5, gating handler/event/action dispatch.
package filter

import (
	"mettagrid/internal/simcore/gamevalue"
	"mettagrid/internal/simcore/gridworld"
	"mettagrid/internal/simcore/ids"
	"mettagrid/internal/simcore/query"
)

// Subject selects which side of the call-time {actor, target} context a
// filter examines.
type Subject uint8

const (
	SubjectActor Subject = iota
	SubjectTarget
)

// Context is the call-time evaluation context shared by every filter,
// mutation and handler: {actor, target, world}.
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

// Filter is any pure predicate over a Context.
type Filter interface {
	Eval(ctx Context) bool
}

// AlignmentCondition enumerates spec §4.5's AlignmentFilter conditions.
type AlignmentCondition uint8

const (
	Aligned AlignmentCondition = iota
	Unaligned
	SameCollective
	DifferentCollective
)

// AlignmentFilter implements spec §4.5's AlignmentFilter. If CollectiveID is
// set it takes priority over Condition (membership-in-specific-collective
// check), matching the Python reference's alignment_filter.py precedence.
type AlignmentFilter struct {
	Subject      Subject
	Condition    AlignmentCondition
	CollectiveID ids.CollectiveID
	HasSpecific  bool
}

func (f *AlignmentFilter) Eval(ctx Context) bool {
	obj := ctx.resolve(f.Subject)
	if obj == nil {
		return false
	}
	if f.HasSpecific {
		return obj.CollectiveID == f.CollectiveID
	}
	switch f.Condition {
	case Aligned:
		return obj.CollectiveID != ids.NoCollective
	case Unaligned:
		return obj.CollectiveID == ids.NoCollective
	case SameCollective:
		return ctx.Actor != nil && obj.CollectiveID != ids.NoCollective && obj.CollectiveID == ctx.Actor.CollectiveID
	case DifferentCollective:
		return ctx.Actor != nil && obj.CollectiveID != ids.NoCollective &&
			ctx.Actor.CollectiveID != ids.NoCollective && obj.CollectiveID != ctx.Actor.CollectiveID
	default:
		return false
	}
}

// ResourceFilter implements spec §4.5's ResourceFilter: passes iff the
// subject holds at least Minimums[r] of every listed resource (AND
// semantics, encoded as one atomic predicate so NotFilter/OrFilter wrapping
// it compose correctly per spec §8 invariant 8 without special-casing).
type ResourceFilter struct {
	Subject  Subject
	Minimums map[ids.ResourceID]int
}

func (f *ResourceFilter) Eval(ctx Context) bool {
	obj := ctx.resolve(f.Subject)
	if obj == nil {
		return false
	}
	for r, min := range f.Minimums {
		if obj.Inventory.Get(r) < min {
			return false
		}
	}
	return true
}

// VibeFilter passes iff the subject's vibe equals Vibe.
type VibeFilter struct {
	Subject Subject
	Vibe    ids.VibeID
}

func (f *VibeFilter) Eval(ctx Context) bool {
	obj := ctx.resolve(f.Subject)
	return obj != nil && obj.Vibe == f.Vibe
}

// TagFilter passes iff the subject carries Tag.
type TagFilter struct {
	Subject Subject
	Tag     ids.TagID
}

func (f *TagFilter) Eval(ctx Context) bool {
	obj := ctx.resolve(f.Subject)
	return obj != nil && obj.Tags.Has(f.Tag)
}

// TagPrefixFilter passes iff the subject carries any tag in Mask. Mask is
// resolved at config.Resolve time from a textual prefix into a bitset, per
// spec's "Tag-prefix filters" design note.
type TagPrefixFilter struct {
	Subject Subject
	Mask    gridworld.TagSet
}

func (f *TagPrefixFilter) Eval(ctx Context) bool {
	obj := ctx.resolve(f.Subject)
	return obj != nil && obj.Tags.Intersects(&f.Mask)
}

// SharedTagPrefixFilter passes iff actor and target both carry some common
// tag under Mask.
type SharedTagPrefixFilter struct {
	Mask gridworld.TagSet
}

func (f *SharedTagPrefixFilter) Eval(ctx Context) bool {
	if ctx.Actor == nil || ctx.Target == nil {
		return false
	}
	return ctx.Actor.Tags.HasCommonUnderMask(&ctx.Target.Tags, &f.Mask)
}

// MaxDistanceFilter passes iff some object matching Query lies within
// Radius (Chebyshev) of the subject.
type MaxDistanceFilter struct {
	Subject Subject
	Query   *query.Query
	Radius  int
}

func (f *MaxDistanceFilter) Eval(ctx Context) bool {
	obj := ctx.resolve(f.Subject)
	if obj == nil || ctx.World == nil {
		return false
	}
	center := gridworld.Coord{Row: obj.Row, Col: obj.Col}
	for _, id := range f.Query.Run(ctx.World.Store, ctx.World.Tags, nil) {
		cand := ctx.World.Store.Object(id)
		if cand == nil {
			continue
		}
		if gridworld.ChebyshevDistance(center, gridworld.Coord{Row: cand.Row, Col: cand.Col}) <= f.Radius {
			return true
		}
	}
	return false
}

// NearFilter passes iff some object tagged TargetTag lies within Radius
// (Chebyshev) of the subject, enumerated directly from the tag index for
// efficiency (no generic query evaluation needed).
type NearFilter struct {
	Subject   Subject
	Radius    int
	TargetTag ids.TagID
}

func (f *NearFilter) Eval(ctx Context) bool {
	obj := ctx.resolve(f.Subject)
	if obj == nil || ctx.World == nil {
		return false
	}
	center := gridworld.Coord{Row: obj.Row, Col: obj.Col}
	for _, id := range ctx.World.Tags.Members(f.TargetTag) {
		cand := ctx.World.Store.Object(id)
		if cand == nil || !cand.Alive {
			continue
		}
		if gridworld.ChebyshevDistance(center, gridworld.Coord{Row: cand.Row, Col: cand.Col}) <= f.Radius {
			return true
		}
	}
	return false
}

// GameValueFilter passes iff eval(Value) >= Threshold, evaluated with the
// subject as the GameValue context's actor.
type GameValueFilter struct {
	Subject   Subject
	Value     gamevalue.Value
	Threshold float64
}

func (f *GameValueFilter) Eval(ctx Context) bool {
	obj := ctx.resolve(f.Subject)
	return gamevalue.Eval(f.Value, ctx.World, gamevalue.Context{Actor: obj, Target: nil}) >= f.Threshold
}

// NotFilter negates Inner.
type NotFilter struct {
	Inner Filter
}

func (f *NotFilter) Eval(ctx Context) bool { return !f.Inner.Eval(ctx) }

// OrFilter passes iff any of Inner passes.
type OrFilter struct {
	Inner []Filter
}

func (f *OrFilter) Eval(ctx Context) bool {
	for _, inner := range f.Inner {
		if inner.Eval(ctx) {
			return true
		}
	}
	return false
}

// All reports whether every filter in fs passes ctx — the implicit AND
// semantics a Handler applies across its filter list (spec §4.7).
func All(fs []Filter, ctx Context) bool {
	for _, f := range fs {
		if !f.Eval(ctx) {
			return false
		}
	}
	return true
}
