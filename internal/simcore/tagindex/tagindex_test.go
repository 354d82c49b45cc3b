package tagindex

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"mettagrid/internal/simcore/ids"
)

func TestTagIndex_AddedAndCount(t *testing.T) {
	idx := New(4)
	idx.TagAdded(1, 2)
	idx.TagAdded(5, 2)
	idx.TagAdded(1, 2) // duplicate, must not double-count

	assert.Equal(t, 2, idx.Count(2))
	assert.True(t, idx.Has(2, 1))
	assert.True(t, idx.Has(2, 5))
	assert.False(t, idx.Has(2, 9))
}

func TestTagIndex_RemovedDropsMembership(t *testing.T) {
	idx := New(4)
	idx.TagAdded(1, 2)
	idx.TagAdded(5, 2)
	idx.TagAdded(9, 2)

	idx.TagRemoved(5, 2)
	assert.Equal(t, 2, idx.Count(2))
	assert.False(t, idx.Has(2, 5))
	assert.True(t, idx.Has(2, 1))
	assert.True(t, idx.Has(2, 9))

	var remaining []ids.ObjectID
	remaining = append(remaining, idx.Members(2)...)
	assert.ElementsMatch(t, []ids.ObjectID{1, 9}, remaining)
}

func TestTagIndex_RemoveUnknownIsNoop(t *testing.T) {
	idx := New(4)
	idx.TagAdded(1, 2)
	idx.TagRemoved(99, 2)
	assert.Equal(t, 1, idx.Count(2))
}

func TestTagIndex_MembersInsertionOrderUntilRemoval(t *testing.T) {
	idx := New(4)
	idx.TagAdded(3, 0)
	idx.TagAdded(1, 0)
	idx.TagAdded(2, 0)
	assert.Equal(t, []ids.ObjectID{3, 1, 2}, idx.Members(0))
}
