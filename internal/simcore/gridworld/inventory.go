package gridworld

import "mettagrid/internal/simcore/ids"

// LimitModifier adds capacity to a group's max for every unit of Resource
// held, per spec §3 "Inventory limits".
type LimitModifier struct {
	Resource ids.ResourceID
	Amount   int
}

// LimitGroup is a named subset of resource ids sharing one capacity cap.
type LimitGroup struct {
	Name      string
	Resources []ids.ResourceID
	Max       int
	Modifiers []LimitModifier
}

// LimitTable is the resolved, sim-wide set of limit groups plus the
// per-resource group membership and the fallback default cap for
// resources that belong to no explicit group.
type LimitTable struct {
	Groups     []LimitGroup
	GroupOf    []ids.GroupID // indexed by ResourceID
	DefaultMax int
}

// NewLimitTable builds a LimitTable sized for numResources, defaulting every
// resource to no group (uses DefaultMax).
func NewLimitTable(numResources int, defaultMax int) *LimitTable {
	groupOf := make([]ids.GroupID, numResources)
	for i := range groupOf {
		groupOf[i] = ids.NoGroup
	}
	return &LimitTable{GroupOf: groupOf, DefaultMax: defaultMax}
}

// AddGroup registers a limit group and stamps GroupOf for its resources.
// A resource already in an earlier group is reassigned to this one; neither
// AddGroup nor config.Resolve checks for overlapping groups.
func (lt *LimitTable) AddGroup(g LimitGroup) ids.GroupID {
	gid := ids.GroupID(len(lt.Groups))
	lt.Groups = append(lt.Groups, g)
	for _, r := range g.Resources {
		lt.GroupOf[r] = gid
	}
	return gid
}

// Inventory is a dense, non-negative per-resource amount table subject to
// the limit table's capacity arithmetic.
type Inventory struct {
	amounts []int32
	limits  *LimitTable
}

// NewInventory creates an empty inventory with numResources slots.
func NewInventory(numResources int, limits *LimitTable) Inventory {
	return Inventory{amounts: make([]int32, numResources), limits: limits}
}

// Get returns the current amount of r (0 if out of range).
func (inv *Inventory) Get(r ids.ResourceID) int {
	if int(r) >= len(inv.amounts) {
		return 0
	}
	return int(inv.amounts[r])
}

// groupSum and effectiveMax implement the §3 invariant:
//
//	sum_{r in group} inv[r] <= max + sum(modifier.amount * inv[modifier.resource])
func (inv *Inventory) groupSumAndMax(r ids.ResourceID) (sum int, effMax int, group *LimitGroup) {
	gid := inv.limits.GroupOf[r]
	if gid == ids.NoGroup {
		return inv.Get(r), inv.limits.DefaultMax, nil
	}
	g := &inv.limits.Groups[gid]
	sum = 0
	for _, res := range g.Resources {
		sum += inv.Get(res)
	}
	effMax = g.Max
	for _, m := range g.Modifiers {
		effMax += m.Amount * inv.Get(m.Resource)
	}
	return sum, effMax, g
}

// Delta applies delta to resource r, clamping at 0 below and at the
// resource's effective group capacity above. No error is ever returned —
// over/under-flow silently clamps per spec §7 InventoryClamp. It returns
// the amount actually applied and whether clamping occurred.
func (inv *Inventory) Delta(r ids.ResourceID, delta int) (applied int, clamped bool) {
	if int(r) >= len(inv.amounts) {
		return 0, true
	}
	cur := inv.Get(r)
	newVal := cur + delta
	if newVal < 0 {
		newVal = 0
	}
	actual := newVal - cur

	if actual > 0 {
		groupSum, effMax, _ := inv.groupSumAndMax(r)
		newGroupSum := groupSum + actual
		if newGroupSum > effMax {
			overflow := newGroupSum - effMax
			actual -= overflow
			if actual < 0 {
				actual = 0
			}
			newVal = cur + actual
			clamped = true
		}
	}
	if newVal != cur+delta {
		clamped = true
	}
	inv.amounts[r] = int32(newVal)
	return actual, clamped
}

// Set forces resource r to amount v, clamped into [0, effectiveMax]. Used by
// SetGameValueMutation and init.
func (inv *Inventory) Set(r ids.ResourceID, v int) {
	cur := inv.Get(r)
	inv.Delta(r, v-cur)
}

// ZeroGroup zeroes every resource in the named limit group (or just the
// single resource if it belongs to no group).
func (inv *Inventory) ZeroGroup(r ids.ResourceID) {
	gid := inv.limits.GroupOf[r]
	if gid == ids.NoGroup {
		inv.amounts[r] = 0
		return
	}
	for _, res := range inv.limits.Groups[gid].Resources {
		inv.amounts[res] = 0
	}
}

// Total returns the amount of r held (the same value as Get).
func (inv *Inventory) Total(r ids.ResourceID) int {
	return inv.Get(r)
}

// Snapshot returns a copy of the raw amounts slice.
func (inv *Inventory) Snapshot() []int32 {
	out := make([]int32, len(inv.amounts))
	copy(out, inv.amounts)
	return out
}
