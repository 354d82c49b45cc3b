// Package action implements the per-agent action pipeline of spec §4.10:
// dense id registration split across the non-vibe and vibe id spaces,
// precondition/effect/commit dispatch, movement with an on_use handshake,
// the declarative attack protocol, and vibe switching.
package action

import (
	"mettagrid/internal/simcore/gamevalue"
	"mettagrid/internal/simcore/gridworld"
	"mettagrid/internal/simcore/handler"
	"mettagrid/internal/simcore/ids"
	"mettagrid/internal/simcore/mutation"
)

// Blueprints resolves the per-TypeID on_use handler a move effect must run
// before entering an occupied destination cell. Owned by the config/
// simulation layer, not by gamevalue.World, since handler.MultiHandler
// cannot be a World field without handler importing gamevalue (a cycle —
// handler already depends on gamevalue for its Context).
type Blueprints struct {
	OnUse []*handler.MultiHandler // indexed by ids.TypeID; nil entries have no on_use handler
}

func (b *Blueprints) onUseHandlers(typeID ids.TypeID) *handler.MultiHandler {
	if b == nil || int(typeID) >= len(b.OnUse) {
		return nil
	}
	return b.OnUse[typeID]
}

// Kind discriminates the action's effect dispatch.
type Kind uint8

const (
	KindNoop Kind = iota
	KindMove
	KindAttack
	KindChangeVibe
)

// Spec is one registered action's static configuration. Vibe actions are
// exactly those whose Name begins with "change_vibe_", per spec §4.10 — the
// registry partitions on that, not on an explicit field, to match the
// reference naming convention.
type Spec struct {
	Name      string
	Kind      Kind
	Facing    gridworld.Facing // for KindMove
	Vibe      ids.VibeID       // for KindChangeVibe
	Required  map[ids.ResourceID]int
	Consumed  map[ids.ResourceID]int
	Attack    *AttackConfig // for KindAttack
}

const vibeActionPrefix = "change_vibe_"

// IsVibeAction reports whether name belongs in the vibe id space.
func IsVibeAction(name string) bool {
	return len(name) >= len(vibeActionPrefix) && name[:len(vibeActionPrefix)] == vibeActionPrefix
}

// Registry assigns dense ids to registered actions, split across the
// non-vibe ("actions" buffer) and vibe ("vibe_actions" buffer) id spaces.
type Registry struct {
	NonVibe []*Spec // dense id = slice index, read from the actions[] buffer
	Vibe    []*Spec // dense id = slice index, read from the vibe_actions[] buffer
}

// NewRegistry partitions specs into the two id spaces in registration order.
func NewRegistry(specs []*Spec) *Registry {
	r := &Registry{}
	for _, s := range specs {
		if IsVibeAction(s.Name) {
			r.Vibe = append(r.Vibe, s)
		} else {
			r.NonVibe = append(r.NonVibe, s)
		}
	}
	return r
}

// AttackConfig is the declarative attack sub-protocol of spec §4.10.
type AttackConfig struct {
	WeaponWeights      map[ids.ResourceID]float64 // attacker inventory[r] * weight, summed = weapon power
	DefenseWeights     map[ids.ResourceID]float64 // defender inventory[r] * weight, summed = defense power
	VibeBonus          map[ids.VibeID]float64      // added to weapon power if attacker.Vibe is a key
	SuccessActorDelta  map[ids.ResourceID]int
	SuccessTargetDelta map[ids.ResourceID]int
	Loot               []ids.ResourceID // resources transferred target -> actor in full, on success
	FreezeDuration     int
	MaxRange           int // maximum (distance) the action arg may address
}

// Result reports one action's outcome for buffer writeback.
type Result struct {
	Success bool
}

// Dispatch executes one agent's action for this tick against world, per the
// precondition/effect/commit pipeline of spec §4.10. actionID indexes into
// reg.NonVibe (vibe actions go through DispatchVibe); arg is the action's single integer
// argument (e.g. attack's (distance, offset) encoding, movement has none).
func Dispatch(agent *gridworld.Object, actionID int, arg int, reg *Registry, world *gamevalue.World, bp *Blueprints) Result {
	if agent.Agent == nil {
		return Result{}
	}
	if agent.Agent.FreezeDurationRemaining > 0 {
		return Result{}
	}
	if actionID < 0 || actionID >= len(reg.NonVibe) {
		return Result{}
	}
	spec := reg.NonVibe[actionID]

	if !preconditionsMet(agent, spec) {
		return Result{}
	}

	ok := effect(agent, spec, arg, world, bp)
	if ok {
		commit(agent, spec)
	}
	agent.Agent.LastAction = int32(actionID)
	agent.Agent.LastActionSuccess = ok
	return Result{Success: ok}
}

// DispatchVibe executes one agent's vibe_actions[i] entry, independent of
// the non-vibe action pipeline's freeze/precondition gating (vibe switches
// are a free per-tick side-channel in the reference schema).
func DispatchVibe(agent *gridworld.Object, vibeActionID int, reg *Registry) {
	if agent.Agent == nil || vibeActionID < 0 || vibeActionID >= len(reg.Vibe) {
		return
	}
	spec := reg.Vibe[vibeActionID]
	if spec.Kind != KindChangeVibe {
		return
	}
	agent.Vibe = spec.Vibe
	agent.Agent.LastVibeAction = int32(vibeActionID)
}

func preconditionsMet(agent *gridworld.Object, spec *Spec) bool {
	for r, need := range spec.Required {
		if agent.Inventory.Get(r) < need {
			return false
		}
	}
	for r, need := range spec.Consumed {
		if agent.Inventory.Get(r) < need {
			return false
		}
	}
	return true
}

func commit(agent *gridworld.Object, spec *Spec) {
	for r, amount := range spec.Consumed {
		agent.Inventory.Delta(r, -amount)
	}
}

func effect(agent *gridworld.Object, spec *Spec, arg int, world *gamevalue.World, bp *Blueprints) bool {
	switch spec.Kind {
	case KindNoop:
		return true
	case KindMove:
		return doMove(agent, spec.Facing, world, bp)
	case KindAttack:
		return doAttack(agent, spec.Attack, arg, world)
	case KindChangeVibe:
		agent.Vibe = spec.Vibe
		return true
	default:
		return false
	}
}

// doMove implements spec §4.10's move_{dir}: before resolving, if the
// destination is occupied by an object carrying on_use handlers, those run
// FirstMatch with actor=mover, target=destination. Only if that handler
// removed the destination object (or it was never occupied) can the mover
// actually enter the cell.
func doMove(agent *gridworld.Object, facing gridworld.Facing, world *gamevalue.World, bp *Blueprints) bool {
	agent.Agent.Facing = facing
	dr, dc := facing.Delta()
	newRow, newCol := agent.Row+dr, agent.Col+dc
	if !world.Store.Grid().InBounds(newRow, newCol) {
		return false
	}

	dest := world.Store.At(newRow, newCol)
	if dest != nil {
		if h := bp.onUseHandlers(dest.TypeID); h != nil {
			h.Dispatch(handler.Context{Actor: agent, Target: dest, World: world})
		}
		dest = world.Store.At(newRow, newCol)
		if dest != nil {
			return false
		}
	}

	err := world.Store.Move(agent.ID, newRow, newCol)
	return err == nil
}

// doAttack implements the declarative attack protocol of spec §4.10. arg
// encodes (distance, offset) as distance*attackOffsetSpan + (offset+1), where
// offset in [-1, 1] shifts the target cell perpendicular to the attacker's
// facing.
func doAttack(attacker *gridworld.Object, cfg *AttackConfig, arg int, world *gamevalue.World) bool {
	if cfg == nil {
		return false
	}
	target := resolveAttackTarget(attacker, cfg, arg, world)
	if target == nil {
		return false
	}

	weaponPower := weightedSum(attacker.Inventory, cfg.WeaponWeights)
	if bonus, ok := cfg.VibeBonus[attacker.Vibe]; ok {
		weaponPower += bonus
	}
	defensePower := weightedSum(target.Inventory, cfg.DefenseWeights)

	if weaponPower <= defensePower {
		return false
	}

	mctx := mutation.Context{Actor: attacker, Target: target, World: world}
	(&mutation.ResourceDeltaMutation{Subject: mutation.SubjectActor, Deltas: cfg.SuccessActorDelta}).Apply(mctx)
	(&mutation.ResourceDeltaMutation{Subject: mutation.SubjectTarget, Deltas: cfg.SuccessTargetDelta}).Apply(mctx)
	for _, r := range cfg.Loot {
		(&mutation.ResourceTransferMutation{From: mutation.SubjectTarget, To: mutation.SubjectActor, Resource: r, Amount: target.Inventory.Get(r)}).Apply(mctx)
	}
	if cfg.FreezeDuration > 0 {
		(&mutation.FreezeMutation{Subject: mutation.SubjectTarget, Duration: cfg.FreezeDuration}).Apply(mctx)
	}
	return true
}

const attackOffsetSpan = 3 // offsets -1, 0, +1 relative to facing

func resolveAttackTarget(attacker *gridworld.Object, cfg *AttackConfig, arg int, world *gamevalue.World) *gridworld.Object {
	distance := arg / attackOffsetSpan
	offset := arg%attackOffsetSpan - 1 // recover {-1, 0, 1}
	if distance < 1 || distance > cfg.MaxRange {
		return nil
	}

	dr, dc := attacker.Agent.Facing.Delta()
	// perpendicular unit vector for the offset shift
	pr, pc := -dc, dr

	row := attacker.Row + dr*distance + pr*offset
	col := attacker.Col + dc*distance + pc*offset
	if !world.Store.Grid().InBounds(row, col) {
		return nil
	}
	target := world.Store.At(row, col)
	if target == nil || !target.Alive {
		return nil
	}
	return target
}

func weightedSum(inv gridworld.Inventory, weights map[ids.ResourceID]float64) float64 {
	sum := 0.0
	for r, w := range weights {
		sum += float64(inv.Get(r)) * w
	}
	return sum
}

// TickFreeze decrements every agent's remaining freeze duration at end of
// tick, per spec §4.10.
func TickFreeze(store *gridworld.Store) {
	store.Each(func(o *gridworld.Object) {
		if o.Agent != nil && o.Agent.FreezeDurationRemaining > 0 {
			o.Agent.FreezeDurationRemaining--
		}
	})
}
