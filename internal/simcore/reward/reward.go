// Package reward implements the per-tick reward computation of spec §4.12:
// weighted numerator/denominator GameValue expressions, per_tick versus
// delta-since-last-value accounting, optional clamping, and role-gated
// reward keys that scale by a per-agent role weight.
package reward

import (
	"fmt"
	"strings"

	"mettagrid/internal/simcore/gamevalue"
	"mettagrid/internal/simcore/gridworld"
)

// Entry is one resolved reward config entry.
type Entry struct {
	Name         string
	Numerator    gamevalue.Value
	Denominators []gamevalue.Value
	Weight       float64
	Max          *float64
	PerTick      bool

	// Role-gating, parsed once at config.Resolve time from a "role:<role>:
	// <label>" name.
	IsRoleGated bool
	Role        string
}

// ParseRoleGate validates and splits a "role:<role>:<label>" reward key.
// Returns ok=false if name doesn't start with "role:" (not role-gated at
// all — not an error). Returns an error if it does start with "role:" but
// is malformed (missing role name, empty label, or missing the second
// colon), per spec §4.12.
func ParseRoleGate(name string) (role string, isGated bool, err error) {
	const prefix = "role:"
	if !strings.HasPrefix(name, prefix) {
		return "", false, nil
	}
	rest := name[len(prefix):]
	idx := strings.IndexByte(rest, ':')
	if idx < 0 {
		return "", true, fmt.Errorf("reward key %q: missing second colon in role:<role>:<label> form", name)
	}
	role = rest[:idx]
	label := rest[idx+1:]
	if role == "" {
		return "", true, fmt.Errorf("reward key %q: empty role name", name)
	}
	if label == "" {
		return "", true, fmt.Errorf("reward key %q: empty label", name)
	}
	return role, true, nil
}

// State is one agent's per-entry running reward state, indexed in lockstep
// with the Entry slice it was built from. It is gridworld.RewardState itself
// — carried on gridworld.AgentState.Rewards so it survives across ticks
// without reward needing its own side table keyed by agent.
type State = gridworld.RewardState

// RoleWeights maps a role name to the agent's weight byte in [0,255],
// expressed as the /255 fraction spec §4.12 specifies.
type RoleWeights map[string]uint8

func (w RoleWeights) fraction(role string) float64 {
	return float64(w[role]) / 255.0
}

// Evaluate computes one tick's total reward contribution for agent across
// entries, given and updating states (states[i] corresponds to entries[i]).
// It does not write to agent.Agent.LastReward/EpisodeReward — the
// simulation driver does that after combining every agent's contribution,
// matching spec §4.12's final "written to rewards[i]" step.
func Evaluate(entries []Entry, states []State, roleWeights RoleWeights, world *gamevalue.World, agent *gridworld.Object, tick int) float64 {
	total := 0.0
	ctx := gamevalue.Context{Actor: agent, Tick: tick}

	for i, e := range entries {
		num := gamevalue.Eval(e.Numerator, world, ctx)
		denom := 1.0
		zero := false
		for _, d := range e.Denominators {
			dv := gamevalue.Eval(d, world, ctx)
			if dv == 0 {
				zero = true
				break
			}
			denom *= dv
		}

		var value float64
		if !zero {
			value = e.Weight * num / denom
		}
		if e.Max != nil && value > *e.Max {
			value = *e.Max
		}

		var contribution float64
		if e.PerTick {
			contribution = value
		} else {
			contribution = value - states[i].LastValue
			states[i].LastValue = value
		}

		if e.IsRoleGated {
			contribution *= roleWeights.fraction(e.Role)
		}

		states[i].Accumulated += contribution
		total += contribution
	}
	return total
}

// NewStates builds the per-entry running state for a fresh agent. LastValue
// starts at its Go zero value (0), matching spec §4.12's "initial last_value
// is the baseline at init" — so an agent that starts with nonzero inventory
// or stats gets full credit for it once, on the first tick, as "value - 0".
func NewStates(entries []Entry) []State {
	return make([]State, len(entries))
}
