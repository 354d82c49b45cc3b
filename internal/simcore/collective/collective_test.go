package collective

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"mettagrid/internal/simcore/gridworld"
	"mettagrid/internal/simcore/ids"
)

const resEnergy ids.ResourceID = 0

func TestTable_DepositWithdrawAmount(t *testing.T) {
	limits := gridworld.NewLimitTable(1, 100)
	tbl := NewTable([]string{"cogs", "clips"}, 1, limits)

	cid, ok := tbl.Lookup("cogs")
	assert.True(t, ok)

	applied := tbl.Deposit(cid, resEnergy, 30)
	assert.Equal(t, 30, applied)
	assert.Equal(t, 30, tbl.Amount(cid, resEnergy))

	withdrawn := tbl.Withdraw(cid, resEnergy, 10)
	assert.Equal(t, 10, withdrawn)
	assert.Equal(t, 20, tbl.Amount(cid, resEnergy))

	// other collective unaffected
	other, _ := tbl.Lookup("clips")
	assert.Equal(t, 0, tbl.Amount(other, resEnergy))
}

func TestTable_GetNoCollectiveIsNil(t *testing.T) {
	limits := gridworld.NewLimitTable(1, 100)
	tbl := NewTable([]string{"cogs"}, 1, limits)
	assert.Nil(t, tbl.Get(ids.NoCollective))
	assert.Equal(t, 0, tbl.Amount(ids.NoCollective, resEnergy))
}

func TestTable_ClearZeroesGroup(t *testing.T) {
	limits := gridworld.NewLimitTable(2, 100)
	limits.AddGroup(gridworld.LimitGroup{Name: "g", Resources: []ids.ResourceID{0, 1}, Max: 100})
	tbl := NewTable([]string{"cogs"}, 2, limits)
	cid, _ := tbl.Lookup("cogs")
	tbl.Deposit(cid, 0, 10)
	tbl.Deposit(cid, 1, 20)

	tbl.Clear(cid, 0)
	assert.Equal(t, 0, tbl.Amount(cid, 0))
	assert.Equal(t, 0, tbl.Amount(cid, 1))
}

func TestTable_EachAscendingID(t *testing.T) {
	limits := gridworld.NewLimitTable(1, 100)
	tbl := NewTable([]string{"a", "b", "c"}, 1, limits)
	var names []string
	tbl.Each(func(c *Collective) { names = append(names, c.Name) })
	assert.Equal(t, []string{"a", "b", "c"}, names)
}
