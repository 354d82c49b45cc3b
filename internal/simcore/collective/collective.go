// Package collective implements the named shared resource pools of spec
// §3/§4.3: each collective owns an inventory with the same limit-group
// arithmetic as a per-object inventory.
package collective

import (
	"mettagrid/internal/simcore/gridworld"
	"mettagrid/internal/simcore/ids"
)

// Collective is one named shared pool.
type Collective struct {
	ID        ids.CollectiveID
	Name      string
	Inventory gridworld.Inventory
}

// Table owns every collective in the simulation, resolved at init from the
// config's `collectives` map into dense ids.
type Table struct {
	byID   []Collective
	byName map[string]ids.CollectiveID
}

// NewTable builds a table from names, each getting a fresh inventory sized
// for numResources under limits.
func NewTable(names []string, numResources int, limits *gridworld.LimitTable) *Table {
	t := &Table{
		byID:   make([]Collective, len(names)),
		byName: make(map[string]ids.CollectiveID, len(names)),
	}
	for i, name := range names {
		cid := ids.CollectiveID(i)
		t.byID[i] = Collective{ID: cid, Name: name, Inventory: gridworld.NewInventory(numResources, limits)}
		t.byName[name] = cid
	}
	return t
}

// Lookup resolves a collective name to its id, config-time use only.
func (t *Table) Lookup(name string) (ids.CollectiveID, bool) {
	cid, ok := t.byName[name]
	return cid, ok
}

// Get returns a pointer to the collective record, or nil if cid is
// ids.NoCollective or out of range.
func (t *Table) Get(cid ids.CollectiveID) *Collective {
	if cid == ids.NoCollective || int(cid) >= len(t.byID) {
		return nil
	}
	return &t.byID[cid]
}

// Deposit adds amount (clamped) to resource in cid's inventory.
func (t *Table) Deposit(cid ids.CollectiveID, resource ids.ResourceID, amount int) int {
	c := t.Get(cid)
	if c == nil {
		return 0
	}
	applied, _ := c.Inventory.Delta(resource, amount)
	return applied
}

// Withdraw removes amount (clamped) from resource in cid's inventory.
func (t *Table) Withdraw(cid ids.CollectiveID, resource ids.ResourceID, amount int) int {
	c := t.Get(cid)
	if c == nil {
		return 0
	}
	applied, _ := c.Inventory.Delta(resource, -amount)
	return -applied
}

// Amount reads resource's current amount in cid's inventory (0 if no
// collective).
func (t *Table) Amount(cid ids.CollectiveID, resource ids.ResourceID) int {
	c := t.Get(cid)
	if c == nil {
		return 0
	}
	return c.Inventory.Get(resource)
}

// Clear zeroes the limit group containing resource in cid's inventory.
func (t *Table) Clear(cid ids.CollectiveID, resource ids.ResourceID) {
	c := t.Get(cid)
	if c == nil {
		return
	}
	c.Inventory.ZeroGroup(resource)
}

// Each calls fn for every collective, in ascending id order.
func (t *Table) Each(fn func(*Collective)) {
	for i := range t.byID {
		fn(&t.byID[i])
	}
}

// Len reports the number of collectives.
func (t *Table) Len() int { return len(t.byID) }
