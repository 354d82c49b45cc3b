// Package handler implements the filter-gated mutation dispatcher of spec
// §4.7: a Handler is one {filters, mutations} rule; a MultiHandler groups
// several under FirstMatch or All dispatch.
package handler

import (
	"mettagrid/internal/simcore/filter"
	"mettagrid/internal/simcore/gamevalue"
	"mettagrid/internal/simcore/gridworld"
	"mettagrid/internal/simcore/mutation"
)

// Context is the single {actor, target, world} triple a dispatch attempt
// runs against. It converts losslessly to both filter.Context and
// mutation.Context, which hold the identical triple under their own types
// (kept distinct so filter/mutation have no dependency on each other or on
// this package).
type Context struct {
	Actor, Target *gridworld.Object
	World         *gamevalue.World
}

func (c Context) filterContext() filter.Context {
	return filter.Context{Actor: c.Actor, Target: c.Target, World: c.World}
}

func (c Context) mutationContext() mutation.Context {
	return mutation.Context{Actor: c.Actor, Target: c.Target, World: c.World}
}

// Handler is one rule: if every Filter passes, every Mutation is applied in
// order against the same context.
type Handler struct {
	Name      string
	Filters   []filter.Filter
	Mutations []mutation.Mutation
}

// Matches reports whether h's filters all pass ctx.
func (h *Handler) Matches(ctx Context) bool {
	return filter.All(h.Filters, ctx.filterContext())
}

// Run applies h's mutations against ctx without checking filters again
// (callers that already called Matches should use this to avoid double
// evaluation).
func (h *Handler) Run(ctx Context) {
	mctx := ctx.mutationContext()
	for _, m := range h.Mutations {
		m.Apply(mctx)
	}
}

// Dispatch checks Matches then Run, returning whether it fired.
func (h *Handler) Dispatch(ctx Context) bool {
	if !h.Matches(ctx) {
		return false
	}
	h.Run(ctx)
	return true
}

// Mode selects how a MultiHandler dispatches across its ordered Handlers.
type Mode uint8

const (
	// FirstMatch runs only the first handler whose filters pass.
	FirstMatch Mode = iota
	// All runs every handler whose filters pass, in order.
	All
)

// MultiHandler groups an ordered list of Handlers under one dispatch mode,
// per spec §4.7.
type MultiHandler struct {
	Mode     Mode
	Handlers []*Handler
}

// Dispatch runs ctx through h's handlers per Mode, returning the names of
// every handler that actually fired (for logging/stats, in fire order).
func (h *MultiHandler) Dispatch(ctx Context) []string {
	var fired []string
	for _, sub := range h.Handlers {
		if sub.Dispatch(ctx) {
			fired = append(fired, sub.Name)
			if h.Mode == FirstMatch {
				break
			}
		}
	}
	return fired
}
