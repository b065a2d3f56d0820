package viewer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCacheSetAndGet(t *testing.T) {
	c := NewCache()

	_, ok := c.Get(TasksKey)
	assert.False(t, ok)

	c.Set(TasksKey, "list")
	got, ok := c.Get(TasksKey)
	require.True(t, ok)
	assert.Equal(t, "list", got)
	assert.True(t, c.Valid(TasksKey))
}

func TestCacheInvalidateIsNotEvict(t *testing.T) {
	c := NewCache()
	c.Set(TaskKey(1), "v1")

	c.Invalidate(TaskKey(1))
	_, ok := c.Get(TaskKey(1))
	assert.False(t, ok)
	assert.False(t, c.Valid(TaskKey(1)))

	// A fresh write revives the invalidated slot.
	c.Set(TaskKey(1), "v2")
	got, ok := c.Get(TaskKey(1))
	require.True(t, ok)
	assert.Equal(t, "v2", got)
}

func TestCacheEvict(t *testing.T) {
	c := NewCache()
	c.Set(TaskKey(1), "v1")
	c.Evict(TaskKey(1))

	_, ok := c.Get(TaskKey(1))
	assert.False(t, ok)
}

func TestCachePendingReadBeforeCommit(t *testing.T) {
	c := NewCache()
	c.Set(TaskKey(1), "committed")

	c.StagePending(TaskKey(1), "optimistic")
	got, ok := c.Get(TaskKey(1))
	require.True(t, ok)
	assert.Equal(t, "optimistic", got)

	c.Commit(TaskKey(1))
	got, ok = c.Get(TaskKey(1))
	require.True(t, ok)
	assert.Equal(t, "optimistic", got)
}

func TestCacheRollbackRestoresCommitted(t *testing.T) {
	c := NewCache()
	c.Set(TaskKey(1), "committed")

	// Simulated failed status move: stage, server rejects, roll back.
	c.StagePending(TaskKey(1), "optimistic")
	c.Rollback(TaskKey(1))

	got, ok := c.Get(TaskKey(1))
	require.True(t, ok)
	assert.Equal(t, "committed", got)
}

func TestCacheRollbackWithoutCommittedRemovesKey(t *testing.T) {
	c := NewCache()

	c.StagePending(TaskKey(2), "optimistic")
	got, ok := c.Get(TaskKey(2))
	require.True(t, ok)
	assert.Equal(t, "optimistic", got)

	c.Rollback(TaskKey(2))
	_, ok = c.Get(TaskKey(2))
	assert.False(t, ok)
	assert.False(t, c.Valid(TaskKey(2)))
}

func TestCacheSetDiscardsPending(t *testing.T) {
	c := NewCache()
	c.Set(TaskKey(1), "committed")
	c.StagePending(TaskKey(1), "optimistic")

	c.Set(TaskKey(1), "confirmed")
	got, ok := c.Get(TaskKey(1))
	require.True(t, ok)
	assert.Equal(t, "confirmed", got)

	// No pending layer left to roll back.
	c.Rollback(TaskKey(1))
	got, ok = c.Get(TaskKey(1))
	require.True(t, ok)
	assert.Equal(t, "confirmed", got)
}
