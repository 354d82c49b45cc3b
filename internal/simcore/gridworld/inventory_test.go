package gridworld

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"mettagrid/internal/simcore/ids"
)

const (
	resOre  ids.ResourceID = 0
	resGold ids.ResourceID = 1
)

func TestInventory_DeltaClampsAtZero(t *testing.T) {
	limits := NewLimitTable(2, 100)
	inv := NewInventory(2, limits)

	applied, clamped := inv.Delta(resOre, -5)
	assert.Equal(t, 0, applied)
	assert.True(t, clamped)
	assert.Equal(t, 0, inv.Get(resOre))
}

func TestInventory_DeltaClampsAtGroupMax(t *testing.T) {
	limits := NewLimitTable(2, 100)
	limits.AddGroup(LimitGroup{Name: "g", Resources: []ids.ResourceID{resOre, resGold}, Max: 10})
	inv := NewInventory(2, limits)

	applied, clamped := inv.Delta(resOre, 7)
	assert.Equal(t, 7, applied)
	assert.False(t, clamped)

	applied, clamped = inv.Delta(resGold, 7)
	assert.Equal(t, 3, applied)
	assert.True(t, clamped)
	assert.Equal(t, 10, inv.Get(resOre)+inv.Get(resGold))
}

func TestInventory_ModifierExpandsCapacity(t *testing.T) {
	limits := NewLimitTable(2, 100)
	limits.AddGroup(LimitGroup{
		Name:      "g",
		Resources: []ids.ResourceID{resOre},
		Max:       5,
		Modifiers: []LimitModifier{{Resource: resGold, Amount: 2}},
	})
	inv := NewInventory(2, limits)
	inv.Delta(resGold, 3) // effective max for resOre becomes 5 + 2*3 = 11

	applied, clamped := inv.Delta(resOre, 11)
	assert.Equal(t, 11, applied)
	assert.False(t, clamped)

	applied, clamped = inv.Delta(resOre, 1)
	assert.Equal(t, 0, applied)
	assert.True(t, clamped)
}

func TestInventory_ZeroGroupClearsEveryMember(t *testing.T) {
	limits := NewLimitTable(2, 100)
	limits.AddGroup(LimitGroup{Name: "g", Resources: []ids.ResourceID{resOre, resGold}, Max: 50})
	inv := NewInventory(2, limits)
	inv.Delta(resOre, 4)
	inv.Delta(resGold, 6)

	inv.ZeroGroup(resOre)
	assert.Equal(t, 0, inv.Get(resOre))
	assert.Equal(t, 0, inv.Get(resGold))
}

func TestInventory_SetClampsIntoRange(t *testing.T) {
	limits := NewLimitTable(1, 10)
	inv := NewInventory(1, limits)
	inv.Set(resOre, 50)
	assert.Equal(t, 10, inv.Get(resOre))
	inv.Set(resOre, -5)
	assert.Equal(t, 0, inv.Get(resOre))
}
